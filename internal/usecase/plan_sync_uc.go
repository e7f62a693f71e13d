package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"storefront-billing/internal/domain"
	"storefront-billing/internal/domain/model"
	"storefront-billing/internal/domain/ports/adapter"
	"storefront-billing/internal/domain/ports/repository"
)

// Compile-time check
var _ PlanSyncUseCase = (*planSyncUC)(nil)

// PlanSyncUseCase keeps local plan definitions mirrored at the provider.
// SyncAll is idempotent: re-running with no local changes converges on the
// same remote state.
type PlanSyncUseCase interface {
	// Sync creates or updates the remote mirror and returns its id.
	Sync(ctx context.Context, planID string) (string, error)
	// SyncAll mirrors every local plan, returning how many synced cleanly.
	SyncAll(ctx context.Context) (int, error)
}

type planSyncUC struct {
	plans    repository.PlanRepository
	settings repository.SettingsRepository
	gateway  adapter.BillingGateway
	now      func() time.Time
	log      *zerolog.Logger
}

func NewPlanSyncUseCase(plans repository.PlanRepository, settings repository.SettingsRepository, gateway adapter.BillingGateway, logger *zerolog.Logger) *planSyncUC {
	ucLog := logger.With().Str("component", "PlanSyncUC").Logger()
	return &planSyncUC{plans: plans, settings: settings, gateway: gateway, now: time.Now, log: &ucLog}
}

func (u *planSyncUC) Sync(ctx context.Context, planID string) (string, error) {
	plan, err := u.plans.FindByID(ctx, repository.NoTX, planID)
	if err != nil {
		return "", err
	}
	spec, err := u.specFor(ctx, plan)
	if err != nil {
		return "", err
	}

	var remote adapter.RemotePlan
	if plan.IsSynced() {
		remote, err = u.gateway.UpdatePlan(ctx, *plan.RemotePlanID, spec)
		if isRemoteGone(err) {
			// mirror disappeared provider-side; recreate instead of failing
			u.log.Warn().Str("plan_id", plan.ID).Str("remote_id", *plan.RemotePlanID).Msg("remote plan gone, recreating")
			remote, err = u.gateway.CreatePlan(ctx, spec)
		}
	} else {
		remote, err = u.gateway.CreatePlan(ctx, spec)
	}
	if err != nil {
		return "", fmt.Errorf("sync plan %s: %w", plan.ID, err)
	}

	if err := u.plans.SetRemote(ctx, repository.NoTX, plan.ID, remote.ID, u.now()); err != nil {
		return "", err
	}
	u.log.Info().Str("plan_id", plan.ID).Str("remote_id", remote.ID).Msg("plan synced")
	return remote.ID, nil
}

func (u *planSyncUC) SyncAll(ctx context.Context) (int, error) {
	plans, err := u.plans.ListAll(ctx, repository.NoTX)
	if err != nil {
		return 0, err
	}
	synced := 0
	for _, p := range plans {
		if _, err := u.Sync(ctx, p.ID); err != nil {
			u.log.Error().Err(err).Str("plan_id", p.ID).Msg("plan sync failed")
			continue
		}
		synced++
	}
	return synced, nil
}

// specFor builds the provider spec. The trial length rides along on plan
// creation so the provider applies it at subscription time.
func (u *planSyncUC) specFor(ctx context.Context, plan *model.Plan) (adapter.PlanSpec, error) {
	cfg, err := u.settings.GetActive(ctx, repository.NoTX)
	if errors.Is(err, domain.ErrNotFound) {
		cfg = model.DefaultBillingSettings()
	} else if err != nil {
		return adapter.PlanSpec{}, err
	}
	return adapter.PlanSpec{
		Name:        plan.Name,
		AmountMinor: plan.MonthlyPriceMinor,
		Currency:    plan.Currency,
		TrialDays:   cfg.TrialDays,
		Active:      plan.Active,
	}, nil
}

// isRemoteGone detects the provider telling us the mirror object no longer
// exists. Providers do not support plan deletion, so this only happens when
// the remote account was reset or the id is stale.
func isRemoteGone(err error) bool {
	var pe *domain.ProviderError
	return errors.As(err, &pe) && pe.StatusCode == http.StatusNotFound
}
