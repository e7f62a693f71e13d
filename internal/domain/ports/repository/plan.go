package repository

import (
	"context"
	"time"

	"storefront-billing/internal/domain/model"
)

// PlanRepository is the port for subscription plans.
type PlanRepository interface {
	Save(ctx context.Context, tx Tx, plan *model.Plan) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.Plan, error)
	ListAll(ctx context.Context, tx Tx) ([]*model.Plan, error)
	// SetRemote records the provider mirror id and sync timestamp.
	SetRemote(ctx context.Context, tx Tx, planID, remotePlanID string, syncedAt time.Time) error
}
