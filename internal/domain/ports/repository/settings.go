package repository

import (
	"context"

	"storefront-billing/internal/domain/model"
)

// SettingsRepository reads the operator-editable billing tunables. GetActive
// must be cheap: callers hit it on every orchestrator and sweeper invocation
// instead of caching.
type SettingsRepository interface {
	GetActive(ctx context.Context, tx Tx) (*model.BillingSettings, error)
	Save(ctx context.Context, tx Tx, s *model.BillingSettings) error
}
