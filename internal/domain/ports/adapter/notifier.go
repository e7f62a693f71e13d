package adapter

import (
	"context"

	"storefront-billing/internal/domain/model"
)

// Notifier delivers a templated notification to a store owner. Delivery is
// best-effort; billing flows log failures and move on.
type Notifier interface {
	Notify(ctx context.Context, kind model.NotificationKind, recipient string, data map[string]string) error
}
