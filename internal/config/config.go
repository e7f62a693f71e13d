package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type ServerConfig struct {
	Port int `yaml:"port"`
}

type AdminConfig struct {
	JWTSecret string `yaml:"jwt_secret"`
}

type DatabaseConfig struct {
	URL      string `yaml:"url"`
	MaxConns int32  `yaml:"max_conns"`
}

type RedisConfig struct {
	URL      string        `yaml:"url"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	EventTTL time.Duration `yaml:"event_ttl"` // webhook dedup key lifetime
}

type ProviderConfig struct {
	BaseURL     string `yaml:"base_url"`
	AccessToken string `yaml:"access_token"`
	Currency    string `yaml:"currency"`
	Sandbox     bool   `yaml:"sandbox"` // use the in-memory gateway instead of HTTP
}

type SweeperConfig struct {
	Interval time.Duration `yaml:"interval"`
	LockTTL  time.Duration `yaml:"lock_ttl"`
}

type NotifyConfig struct {
	PostmarkServerToken  string `yaml:"postmark_server_token"`
	PostmarkAccountToken string `yaml:"postmark_account_token"`
	SenderEmail          string `yaml:"sender_email"`
	SupportEmail         string `yaml:"support_email"`
}

type Config struct {
	Log      LogConfig      `yaml:"log"`
	Server   ServerConfig   `yaml:"server"`
	Admin    AdminConfig    `yaml:"admin"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Provider ProviderConfig `yaml:"provider"`
	Sweeper  SweeperConfig  `yaml:"sweeper"`
	Notify   NotifyConfig   `yaml:"notify"`

	Runtime RuntimeConfig `yaml:"-"`
}

func LoadConfig() (*Config, error) {
	var configPath string
	var dev bool
	flag.StringVar(&configPath, "config", "config.yaml", "path to config yaml")
	flag.BoolVar(&dev, "dev", false, "development mode")
	flag.Parse()

	b, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	// defaults
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Server.Port <= 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Database.MaxConns <= 0 {
		cfg.Database.MaxConns = 8
	}
	if cfg.Redis.EventTTL <= 0 {
		cfg.Redis.EventTTL = 72 * time.Hour
	}
	if cfg.Provider.Currency == "" {
		cfg.Provider.Currency = "ARS"
	}
	if cfg.Sweeper.Interval <= 0 {
		cfg.Sweeper.Interval = time.Hour
	}
	if cfg.Sweeper.LockTTL <= 0 {
		cfg.Sweeper.LockTTL = 10 * time.Minute
	}

	// Minimal validation
	if cfg.Database.URL == "" {
		return nil, errors.New("database.url is required")
	}
	if cfg.Redis.URL == "" {
		return nil, errors.New("redis.url is required")
	}
	if cfg.Admin.JWTSecret == "" {
		return nil, errors.New("admin.jwt_secret is required")
	}
	if !cfg.Provider.Sandbox && cfg.Provider.AccessToken == "" {
		return nil, errors.New("provider.access_token is required outside sandbox mode")
	}

	cfg.Runtime.Dev = dev
	return &cfg, nil
}
