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
var _ repository.PlanRepository = (*planRepo)(nil)

type planRepo struct {
	pool *pgxpool.Pool
}

func NewPlanRepo(pool *pgxpool.Pool) *planRepo {
	return &planRepo{pool: pool}
}

const planColumns = `
id, name, max_products, monthly_price_minor, currency, active,
remote_plan_id, remote_synced_at, created_at`

func (r *planRepo) Save(ctx context.Context, tx repository.Tx, p *model.Plan) error {
	const q = `
INSERT INTO plans (
  id, name, max_products, monthly_price_minor, currency, active,
  remote_plan_id, remote_synced_at, created_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
ON CONFLICT (id) DO UPDATE SET
  name                = EXCLUDED.name,
  max_products        = EXCLUDED.max_products,
  monthly_price_minor = EXCLUDED.monthly_price_minor,
  currency            = EXCLUDED.currency,
  active              = EXCLUDED.active,
  remote_plan_id      = EXCLUDED.remote_plan_id,
  remote_synced_at    = EXCLUDED.remote_synced_at;`

	ex, err := getExecutor(r.pool, tx)
	if err != nil {
		return err
	}
	_, err = ex.Exec(ctx, q,
		p.ID, p.Name, p.MaxProducts, p.MonthlyPriceMinor, p.Currency, p.Active,
		p.RemotePlanID, p.RemoteSyncedAt, p.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("save plan: %w", err)
	}
	return nil
}

func (r *planRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Plan, error) {
	q := `SELECT ` + planColumns + ` FROM plans WHERE id = $1;`
	ex, err := getExecutor(r.pool, tx)
	if err != nil {
		return nil, err
	}
	p, err := scanPlan(ex.QueryRow(ctx, q, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("find plan: %w", err)
	}
	return p, nil
}

func (r *planRepo) ListAll(ctx context.Context, tx repository.Tx) ([]*model.Plan, error) {
	q := `SELECT ` + planColumns + ` FROM plans ORDER BY created_at ASC;`
	ex, err := getExecutor(r.pool, tx)
	if err != nil {
		return nil, err
	}
	rows, err := ex.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list plans: %w", err)
	}
	defer rows.Close()
	var out []*model.Plan
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("scan plans: %w", err)
	}
	return out, nil
}

func (r *planRepo) SetRemote(ctx context.Context, tx repository.Tx, planID, remotePlanID string, syncedAt time.Time) error {
	const q = `UPDATE plans SET remote_plan_id = $2, remote_synced_at = $3 WHERE id = $1;`
	ex, err := getExecutor(r.pool, tx)
	if err != nil {
		return err
	}
	ct, err := ex.Exec(ctx, q, planID, remotePlanID, syncedAt)
	if err != nil {
		return fmt.Errorf("set plan remote: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func scanPlan(row pgx.Row) (*model.Plan, error) {
	var p model.Plan
	err := row.Scan(
		&p.ID, &p.Name, &p.MaxProducts, &p.MonthlyPriceMinor, &p.Currency, &p.Active,
		&p.RemotePlanID, &p.RemoteSyncedAt, &p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}
