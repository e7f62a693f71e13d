package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/oklog/ulid/v2"

	"storefront-billing/internal/config"
	"storefront-billing/internal/domain/ports/adapter"
	billingAdapters "storefront-billing/internal/infra/adapters/billing"
	"storefront-billing/internal/infra/adapters/notify"
	pg "storefront-billing/internal/infra/db/postgres"
	"storefront-billing/internal/infra/logging"
	"storefront-billing/internal/infra/metrics"
	red "storefront-billing/internal/infra/redis"
	"storefront-billing/internal/infra/sched"
	"storefront-billing/internal/infra/web"
	"storefront-billing/internal/usecase"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Warn().Msg("developer mode enabled")
	}

	metrics.MustRegister()

	// ---- Postgres ----
	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, cfg.Database.MaxConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres connect failed")
	}
	defer pool.Close()

	// ---- Redis ----
	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis connect failed")
	}
	defer redisClient.Close()
	locker := red.NewLocker(redisClient)
	deduper := red.NewEventDeduper(redisClient, cfg.Redis.EventTTL)

	// ---- Repositories ----
	storeRepo := pg.NewStoreRepo(pool)
	planRepo := pg.NewPlanRepo(pool)
	historyRepo := pg.NewHistoryRepo(pool)
	settingsRepo := pg.NewSettingsRepo(pool)
	tm := pg.NewTxManager(pool)

	// ---- Payment gateway ----
	var gateway adapter.BillingGateway
	if cfg.Provider.Sandbox {
		gateway = billingAdapters.NewNoopGateway()
		logger.Warn().Msg("sandbox mode: using in-memory payment gateway")
	} else {
		gateway, err = billingAdapters.NewMercadoPagoGateway(
			cfg.Provider.BaseURL,
			billingAdapters.StaticCredentials(cfg.Provider.AccessToken),
		)
		if err != nil {
			logger.Fatal().Err(err).Msg("payment gateway init failed")
		}
	}

	// ---- Notifier ----
	var notifier adapter.Notifier
	if cfg.Runtime.Dev || cfg.Notify.PostmarkServerToken == "" {
		notifier = notify.NewLogNotifier(*logger)
	} else {
		notifier, err = notify.NewPostmarkNotifier(&cfg.Notify, *logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("notifier init failed")
		}
	}

	// ---- Use cases ----
	newID := func() string { return ulid.Make().String() }
	planSyncUC := usecase.NewPlanSyncUseCase(planRepo, settingsRepo, gateway, logger)
	subUC := usecase.NewSubscriptionUseCase(
		storeRepo, planRepo, historyRepo, settingsRepo,
		gateway, planSyncUC, notifier, tm, newID, logger,
	)
	webhookUC := usecase.NewWebhookUseCase(storeRepo, subUC, gateway, deduper, logger)
	sweepUC := usecase.NewSweepUseCase(storeRepo, settingsRepo, subUC, gateway, notifier, tm, logger)

	// ---- Sweeper ----
	sweeper := sched.NewSweeper(cfg.Sweeper.Interval, cfg.Sweeper.LockTTL, sweepUC, locker, logger)
	go func() { _ = sweeper.Run(ctx) }()

	// ---- HTTP ----
	auth := web.NewAuthManager(cfg.Admin.JWTSecret, 30*time.Minute)
	srv := web.NewServer(subUC, planSyncUC, webhookUC, auth, logger)
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           srv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info().Str("addr", server.Addr).Msg("http server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("http server error")
		}
	}()

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc
	logger.Info().Msg("shutdown requested")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown error")
	}
}
