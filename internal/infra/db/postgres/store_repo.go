package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"storefront-billing/internal/domain"
	"storefront-billing/internal/domain/model"
	"storefront-billing/internal/domain/ports/repository"
)

// Ensure interface compliance
var _ repository.StoreRepository = (*storeRepo)(nil)

type storeRepo struct {
	pool *pgxpool.Pool
}

func NewStoreRepo(pool *pgxpool.Pool) *storeRepo {
	return &storeRepo{pool: pool}
}

const storeColumns = `
id, name, owner_email, operational_state, sub_state, plan_id,
remote_subscription_id, trial_start, trial_end, subscription_renews_at,
payment_retry_count, last_state_change_at, created_at`

func (r *storeRepo) Save(ctx context.Context, tx repository.Tx, s *model.Store) error {
	const q = `
INSERT INTO stores (
  id, name, owner_email, operational_state, sub_state, plan_id,
  remote_subscription_id, trial_start, trial_end, subscription_renews_at,
  payment_retry_count, last_state_change_at, created_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
ON CONFLICT (id) DO UPDATE SET
  name                   = EXCLUDED.name,
  owner_email            = EXCLUDED.owner_email,
  operational_state      = EXCLUDED.operational_state,
  sub_state              = EXCLUDED.sub_state,
  plan_id                = EXCLUDED.plan_id,
  remote_subscription_id = EXCLUDED.remote_subscription_id,
  trial_start            = EXCLUDED.trial_start,
  trial_end              = EXCLUDED.trial_end,
  subscription_renews_at = EXCLUDED.subscription_renews_at,
  payment_retry_count    = EXCLUDED.payment_retry_count,
  last_state_change_at   = EXCLUDED.last_state_change_at;`

	ex, err := getExecutor(r.pool, tx)
	if err != nil {
		return err
	}
	_, err = ex.Exec(ctx, q,
		s.ID, s.Name, s.OwnerEmail, s.OperationalState, s.SubState, s.PlanID,
		s.RemoteSubscriptionID, s.TrialStart, s.TrialEnd, s.SubscriptionRenewsAt,
		s.PaymentRetryCount, s.LastStateChangeAt, s.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("save store: %w", err)
	}
	return nil
}

func (r *storeRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Store, error) {
	q := `SELECT ` + storeColumns + ` FROM stores WHERE id = $1;`
	return r.queryOne(ctx, tx, q, id)
}

func (r *storeRepo) FindByIDForUpdate(ctx context.Context, tx repository.Tx, id string) (*model.Store, error) {
	q := `SELECT ` + storeColumns + ` FROM stores WHERE id = $1 FOR UPDATE;`
	return r.queryOne(ctx, tx, q, id)
}

func (r *storeRepo) FindByRemoteSubscriptionID(ctx context.Context, tx repository.Tx, remoteID string) (*model.Store, error) {
	q := `SELECT ` + storeColumns + ` FROM stores WHERE remote_subscription_id = $1;`
	return r.queryOne(ctx, tx, q, remoteID)
}

func (r *storeRepo) ListTrialEndingWithin(ctx context.Context, tx repository.Tx, now time.Time, lead time.Duration) ([]*model.Store, error) {
	q := `
SELECT ` + storeColumns + `
  FROM stores
 WHERE sub_state = 'trial'
   AND trial_end > $1
   AND trial_end <= $2
 ORDER BY trial_end ASC;`
	return r.queryMany(ctx, tx, q, now, now.Add(lead))
}

func (r *storeRepo) ListTrialExpired(ctx context.Context, tx repository.Tx, now time.Time) ([]*model.Store, error) {
	q := `
SELECT ` + storeColumns + `
  FROM stores
 WHERE sub_state = 'trial'
   AND trial_end <= $1
 ORDER BY trial_end ASC;`
	return r.queryMany(ctx, tx, q, now)
}

func (r *storeRepo) ListRenewalExpired(ctx context.Context, tx repository.Tx, now time.Time) ([]*model.Store, error) {
	q := `
SELECT ` + storeColumns + `
  FROM stores
 WHERE sub_state = 'active'
   AND subscription_renews_at <= $1
 ORDER BY subscription_renews_at ASC;`
	return r.queryMany(ctx, tx, q, now)
}

func (r *storeRepo) ListSuspendedSince(ctx context.Context, tx repository.Tx, cutoff time.Time) ([]*model.Store, error) {
	q := `
SELECT ` + storeColumns + `
  FROM stores
 WHERE operational_state = 'suspended'
   AND last_state_change_at <= $1
 ORDER BY last_state_change_at ASC;`
	return r.queryMany(ctx, tx, q, cutoff)
}

func (r *storeRepo) queryOne(ctx context.Context, tx repository.Tx, q string, args ...interface{}) (*model.Store, error) {
	ex, err := getExecutor(r.pool, tx)
	if err != nil {
		return nil, err
	}
	s, err := scanStore(ex.QueryRow(ctx, q, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("query store: %w", err)
	}
	return s, nil
}

func (r *storeRepo) queryMany(ctx context.Context, tx repository.Tx, q string, args ...interface{}) ([]*model.Store, error) {
	ex, err := getExecutor(r.pool, tx)
	if err != nil {
		return nil, err
	}
	rows, err := ex.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query stores: %w", err)
	}
	defer rows.Close()
	var out []*model.Store
	for rows.Next() {
		s, err := scanStore(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("scan stores: %w", err)
	}
	return out, nil
}

func scanStore(row pgx.Row) (*model.Store, error) {
	var s model.Store
	err := row.Scan(
		&s.ID, &s.Name, &s.OwnerEmail, &s.OperationalState, &s.SubState, &s.PlanID,
		&s.RemoteSubscriptionID, &s.TrialStart, &s.TrialEnd, &s.SubscriptionRenewsAt,
		&s.PaymentRetryCount, &s.LastStateChangeAt, &s.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}
