package usecase

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"storefront-billing/internal/domain"
	"storefront-billing/internal/domain/model"
	"storefront-billing/internal/domain/ports/adapter"
	"storefront-billing/internal/domain/ports/repository"
	"storefront-billing/internal/infra/logging"
)

// Compile-time check
var _ SweepUseCase = (*sweepUC)(nil)

// SweepUseCase catches whatever webhooks miss. Each sweep is independent:
// the caller runs all four per tick and a failure in one never aborts the
// others. Settings are read fresh on every sweep.
type SweepUseCase interface {
	SendTrialReminders(ctx context.Context) (int, error)
	EnforceTrialExpiry(ctx context.Context) (int, error)
	EnforceRenewalExpiry(ctx context.Context) (int, error)
	MarkGraceExpired(ctx context.Context) (int, error)
}

type sweepUC struct {
	stores   repository.StoreRepository
	settings repository.SettingsRepository
	subs     SubscriptionUseCase
	gateway  adapter.BillingGateway
	notifier adapter.Notifier
	tm       repository.TransactionManager
	now      func() time.Time
	log      *zerolog.Logger
}

func NewSweepUseCase(
	stores repository.StoreRepository,
	settings repository.SettingsRepository,
	subs SubscriptionUseCase,
	gateway adapter.BillingGateway,
	notifier adapter.Notifier,
	tm repository.TransactionManager,
	logger *zerolog.Logger,
) *sweepUC {
	ucLog := logger.With().Str("component", "SweepUC").Logger()
	return &sweepUC{
		stores:   stores,
		settings: settings,
		subs:     subs,
		gateway:  gateway,
		notifier: notifier,
		tm:       tm,
		now:      time.Now,
		log:      &ucLog,
	}
}

func (u *sweepUC) activeSettings(ctx context.Context) (*model.BillingSettings, error) {
	cfg, err := u.settings.GetActive(ctx, repository.NoTX)
	if errors.Is(err, domain.ErrNotFound) {
		return model.DefaultBillingSettings(), nil
	}
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// SendTrialReminders notifies owners whose trial ends within the reminder
// lead window but has not ended yet.
func (u *sweepUC) SendTrialReminders(ctx context.Context) (int, error) {
	defer logging.TraceDuration(u.log, "SweepUC.SendTrialReminders")()
	cfg, err := u.activeSettings(ctx)
	if err != nil {
		return 0, err
	}
	now := u.now()
	stores, err := u.stores.ListTrialEndingWithin(ctx, repository.NoTX, now, cfg.TrialReminderLead())
	if err != nil {
		return 0, err
	}
	sent := 0
	for _, s := range stores {
		daysLeft := 0
		if s.TrialEnd != nil {
			daysLeft = int(s.TrialEnd.Sub(now).Hours() / 24)
		}
		err := u.notifier.Notify(ctx, model.NotifyTrialReminder, s.OwnerEmail, map[string]string{
			"store":     s.Name,
			"days_left": strconv.Itoa(daysLeft),
		})
		if err != nil {
			u.log.Warn().Err(err).Str("store_id", s.ID).Msg("trial reminder failed")
			continue
		}
		sent++
	}
	return sent, nil
}

// EnforceTrialExpiry closes out stores whose trial ended. If a remote
// subscription exists and the provider reports it paid up, the store is
// promoted instead of expired.
func (u *sweepUC) EnforceTrialExpiry(ctx context.Context) (int, error) {
	defer logging.TraceDuration(u.log, "SweepUC.EnforceTrialExpiry")()
	now := u.now()
	stores, err := u.stores.ListTrialExpired(ctx, repository.NoTX, now)
	if err != nil {
		return 0, err
	}
	affected := 0
	for _, s := range stores {
		if s.RemoteSubscriptionID != nil {
			remote, err := u.gateway.GetSubscription(ctx, *s.RemoteSubscriptionID)
			if err != nil {
				// provider unreachable: leave the store alone, next tick retries
				u.log.Warn().Err(err).Str("store_id", s.ID).Msg("trial expiry: provider fetch failed")
				continue
			}
			if remote.Status == model.ProviderAuthorized || remote.Status == model.ProviderActive {
				tr, err := u.subs.ApplyStatus(ctx, s.ID, remote.Status)
				if err != nil {
					u.log.Error().Err(err).Str("store_id", s.ID).Msg("trial expiry: promote failed")
					continue
				}
				if tr.Changed {
					affected++
				}
				continue
			}
		}
		tr, err := u.subs.ExpireIfDue(ctx, s.ID)
		if err != nil {
			u.log.Error().Err(err).Str("store_id", s.ID).Msg("trial expiry failed")
			continue
		}
		if tr.Changed {
			affected++
		}
	}
	return affected, nil
}

// EnforceRenewalExpiry expires active stores whose renewal date passed
// without a renewal webhook ever arriving.
func (u *sweepUC) EnforceRenewalExpiry(ctx context.Context) (int, error) {
	defer logging.TraceDuration(u.log, "SweepUC.EnforceRenewalExpiry")()
	now := u.now()
	stores, err := u.stores.ListRenewalExpired(ctx, repository.NoTX, now)
	if err != nil {
		return 0, err
	}
	affected := 0
	for _, s := range stores {
		tr, err := u.subs.ExpireIfDue(ctx, s.ID)
		if err != nil {
			u.log.Error().Err(err).Str("store_id", s.ID).Msg("renewal expiry failed")
			continue
		}
		if tr.Changed {
			affected++
		}
	}
	return affected, nil
}

// MarkGraceExpired flags suspended stores whose grace period ran out as
// pending deletion. Nothing is deleted here; operators act on the flag.
func (u *sweepUC) MarkGraceExpired(ctx context.Context) (int, error) {
	defer logging.TraceDuration(u.log, "SweepUC.MarkGraceExpired")()
	cfg, err := u.activeSettings(ctx)
	if err != nil {
		return 0, err
	}
	now := u.now()
	cutoff := now.Add(-cfg.SuspensionGrace())
	stores, err := u.stores.ListSuspendedSince(ctx, repository.NoTX, cutoff)
	if err != nil {
		return 0, err
	}
	affected := 0
	for _, s := range stores {
		err := u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
			locked, err := u.stores.FindByIDForUpdate(ctx, tx, s.ID)
			if err != nil {
				return err
			}
			// re-check under the lock; a payment may have landed meanwhile
			if locked.OperationalState != model.StoreSuspended || locked.LastStateChangeAt.After(cutoff) {
				return nil
			}
			if !locked.MarkPendingDeletion(now) {
				return nil
			}
			if err := u.stores.Save(ctx, tx, locked); err != nil {
				return err
			}
			affected++
			return nil
		})
		if err != nil {
			u.log.Error().Err(err).Str("store_id", s.ID).Msg("grace expiry failed")
		}
	}
	return affected, nil
}
