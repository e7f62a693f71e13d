package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"storefront-billing/internal/domain"
	"storefront-billing/internal/domain/model"
	"storefront-billing/internal/domain/ports/repository"
)

// Ensure interface compliance
var _ repository.HistoryRepository = (*historyRepo)(nil)

// historyRepo persists the subscription ledger. A partial unique index on
// (store_id) WHERE end_at IS NULL backs the one-open-entry invariant; a
// violation maps to domain.ErrAlreadyExists.
type historyRepo struct {
	pool *pgxpool.Pool
}

func NewHistoryRepo(pool *pgxpool.Pool) *historyRepo {
	return &historyRepo{pool: pool}
}

const historyColumns = `
id, store_id, plan_id, start_at, end_at, outcome, payment_method,
external_transaction_id, amount_minor, notes`

func (r *historyRepo) Create(ctx context.Context, tx repository.Tx, e *model.SubscriptionHistoryEntry) error {
	const q = `
INSERT INTO subscription_history (
  id, store_id, plan_id, start_at, end_at, outcome, payment_method,
  external_transaction_id, amount_minor, notes
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10);`

	ex, err := getExecutor(r.pool, tx)
	if err != nil {
		return err
	}
	_, err = ex.Exec(ctx, q,
		e.ID, e.StoreID, e.PlanID, e.StartAt, e.EndAt, e.Outcome, e.PaymentMethod,
		e.ExternalTransactionID, e.AmountMinor, e.Notes,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domain.ErrAlreadyExists
		}
		return fmt.Errorf("create history entry: %w", err)
	}
	return nil
}

func (r *historyRepo) CloseOpen(ctx context.Context, tx repository.Tx, storeID string, endAt time.Time, outcome model.HistoryOutcome, notes string) (bool, error) {
	const q = `
UPDATE subscription_history
   SET end_at = $2,
       outcome = $3,
       notes = CASE WHEN $4 = '' THEN notes ELSE $4 END
 WHERE store_id = $1
   AND end_at IS NULL;`

	ex, err := getExecutor(r.pool, tx)
	if err != nil {
		return false, err
	}
	ct, err := ex.Exec(ctx, q, storeID, endAt, outcome, notes)
	if err != nil {
		return false, fmt.Errorf("close history entry: %w", err)
	}
	return ct.RowsAffected() > 0, nil
}

func (r *historyRepo) FindOpenByStore(ctx context.Context, tx repository.Tx, storeID string) (*model.SubscriptionHistoryEntry, error) {
	q := `SELECT ` + historyColumns + ` FROM subscription_history WHERE store_id = $1 AND end_at IS NULL;`
	ex, err := getExecutor(r.pool, tx)
	if err != nil {
		return nil, err
	}
	e, err := scanHistory(ex.QueryRow(ctx, q, storeID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("find open history entry: %w", err)
	}
	return e, nil
}

func (r *historyRepo) ListByStore(ctx context.Context, tx repository.Tx, storeID string, limit int) ([]*model.SubscriptionHistoryEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	q := `SELECT ` + historyColumns + ` FROM subscription_history WHERE store_id = $1 ORDER BY start_at DESC LIMIT $2;`
	ex, err := getExecutor(r.pool, tx)
	if err != nil {
		return nil, err
	}
	rows, err := ex.Query(ctx, q, storeID, limit)
	if err != nil {
		return nil, fmt.Errorf("list history entries: %w", err)
	}
	defer rows.Close()
	var out []*model.SubscriptionHistoryEntry
	for rows.Next() {
		e, err := scanHistory(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("scan history entries: %w", err)
	}
	return out, nil
}

func scanHistory(row pgx.Row) (*model.SubscriptionHistoryEntry, error) {
	var e model.SubscriptionHistoryEntry
	err := row.Scan(
		&e.ID, &e.StoreID, &e.PlanID, &e.StartAt, &e.EndAt, &e.Outcome, &e.PaymentMethod,
		&e.ExternalTransactionID, &e.AmountMinor, &e.Notes,
	)
	if err != nil {
		return nil, err
	}
	return &e, nil
}
