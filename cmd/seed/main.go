package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"storefront-billing/internal/config"
	"storefront-billing/internal/domain"
	"storefront-billing/internal/domain/model"
	"storefront-billing/internal/domain/ports/repository"
	pg "storefront-billing/internal/infra/db/postgres"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, 4)
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer pool.Close()

	planRepo := pg.NewPlanRepo(pool)
	settingsRepo := pg.NewSettingsRepo(pool)

	// Settings singleton first
	if _, err := settingsRepo.GetActive(ctx, repository.NoTX); errors.Is(err, domain.ErrNotFound) {
		s := model.DefaultBillingSettings()
		s.ID = "default"
		s.UpdatedAt = time.Now()
		if err := settingsRepo.Save(ctx, repository.NoTX, s); err != nil {
			log.Fatalf("seed settings: %v", err)
		}
		fmt.Println("seeded: billing settings (defaults)")
	} else if err != nil {
		log.Fatalf("load settings: %v", err)
	}

	// If plans already exist, do nothing
	plans, err := planRepo.ListAll(ctx, repository.NoTX)
	if err != nil {
		log.Fatalf("list plans: %v", err)
	}
	if len(plans) > 0 {
		fmt.Printf("%d plans already present. No changes.\n", len(plans))
		for _, p := range plans {
			fmt.Printf("  - %s (products=%d, price=%d %s)\n", p.Name, p.MaxProducts, p.MonthlyPriceMinor, p.Currency)
		}
		return
	}

	seed := []struct {
		ID       string
		Name     string
		Products int
		Price    int64
	}{
		{"starter", "Starter", 25, 499_000},
		{"growth", "Growth", 250, 1_299_000},
		{"scale", "Scale", 2500, 2_999_000},
	}

	for _, s := range seed {
		p, err := model.NewPlan(s.ID, s.Name, s.Products, s.Price, cfg.Provider.Currency)
		if err != nil {
			log.Fatalf("build plan %q: %v", s.Name, err)
		}
		if err := planRepo.Save(ctx, repository.NoTX, p); err != nil {
			log.Fatalf("save plan %q: %v", s.Name, err)
		}
		fmt.Printf("seeded: %s (id=%s, products=%d, price=%d %s)\n", p.Name, p.ID, p.MaxProducts, p.MonthlyPriceMinor, p.Currency)
	}

	fmt.Println("Seeding complete. Run plan sync to mirror plans at the provider.")
}
