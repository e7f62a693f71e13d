package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"storefront-billing/internal/domain"
	"storefront-billing/internal/domain/model"
	"storefront-billing/internal/domain/ports/repository"
)

// Ensure interface compliance
var _ repository.SettingsRepository = (*settingsRepo)(nil)

// settingsRepo reads the operator-editable billing tunables. Deliberately no
// in-process cache: operators expect edits to take effect within one cycle.
type settingsRepo struct {
	pool *pgxpool.Pool
}

func NewSettingsRepo(pool *pgxpool.Pool) *settingsRepo {
	return &settingsRepo{pool: pool}
}

func (r *settingsRepo) GetActive(ctx context.Context, tx repository.Tx) (*model.BillingSettings, error) {
	const q = `
SELECT id, trial_days, max_payment_retries, suspension_grace_days,
       trial_reminder_lead_days, updated_at
  FROM billing_settings
 ORDER BY updated_at DESC
 LIMIT 1;`

	ex, err := getExecutor(r.pool, tx)
	if err != nil {
		return nil, err
	}
	var s model.BillingSettings
	err = ex.QueryRow(ctx, q).Scan(
		&s.ID, &s.TrialDays, &s.MaxPaymentRetries, &s.SuspensionGraceDays,
		&s.TrialReminderLeadDays, &s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get billing settings: %w", err)
	}
	return &s, nil
}

func (r *settingsRepo) Save(ctx context.Context, tx repository.Tx, s *model.BillingSettings) error {
	const q = `
INSERT INTO billing_settings (
  id, trial_days, max_payment_retries, suspension_grace_days,
  trial_reminder_lead_days, updated_at
) VALUES ($1,$2,$3,$4,$5,$6)
ON CONFLICT (id) DO UPDATE SET
  trial_days               = EXCLUDED.trial_days,
  max_payment_retries      = EXCLUDED.max_payment_retries,
  suspension_grace_days    = EXCLUDED.suspension_grace_days,
  trial_reminder_lead_days = EXCLUDED.trial_reminder_lead_days,
  updated_at               = EXCLUDED.updated_at;`

	ex, err := getExecutor(r.pool, tx)
	if err != nil {
		return err
	}
	_, err = ex.Exec(ctx, q,
		s.ID, s.TrialDays, s.MaxPaymentRetries, s.SuspensionGraceDays,
		s.TrialReminderLeadDays, s.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("save billing settings: %w", err)
	}
	return nil
}
