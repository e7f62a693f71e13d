package repository

import (
	"context"
	"time"

	"storefront-billing/internal/domain/model"
)

// StoreRepository is the port for tenant stores. Billing flows serialize
// concurrent mutation of one store through FindByIDForUpdate inside a
// transaction; plain FindByID is for read paths.
type StoreRepository interface {
	Save(ctx context.Context, tx Tx, store *model.Store) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.Store, error)
	// FindByIDForUpdate locks the store row for the duration of tx.
	FindByIDForUpdate(ctx context.Context, tx Tx, id string) (*model.Store, error)
	FindByRemoteSubscriptionID(ctx context.Context, tx Tx, remoteID string) (*model.Store, error)

	// --- Sweeper scans ---
	// ListTrialEndingWithin returns trial stores whose trial ends after now
	// but no later than now+lead.
	ListTrialEndingWithin(ctx context.Context, tx Tx, now time.Time, lead time.Duration) ([]*model.Store, error)
	// ListTrialExpired returns trial stores whose trial end has passed.
	ListTrialExpired(ctx context.Context, tx Tx, now time.Time) ([]*model.Store, error)
	// ListRenewalExpired returns active stores whose renewal date has passed.
	ListRenewalExpired(ctx context.Context, tx Tx, now time.Time) ([]*model.Store, error)
	// ListSuspendedSince returns suspended stores whose last state change is
	// older than the cutoff.
	ListSuspendedSince(ctx context.Context, tx Tx, cutoff time.Time) ([]*model.Store, error)
}
