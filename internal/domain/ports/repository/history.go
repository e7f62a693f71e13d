package repository

import (
	"context"
	"time"

	"storefront-billing/internal/domain/model"
)

// HistoryRepository is the port for the subscription ledger. CloseOpen and a
// following Create are expected to run under one transaction so the
// one-open-entry-per-store invariant holds.
type HistoryRepository interface {
	Create(ctx context.Context, tx Tx, entry *model.SubscriptionHistoryEntry) error
	// CloseOpen ends the store's current entry, if any, and returns whether
	// one was closed.
	CloseOpen(ctx context.Context, tx Tx, storeID string, endAt time.Time, outcome model.HistoryOutcome, notes string) (bool, error)
	FindOpenByStore(ctx context.Context, tx Tx, storeID string) (*model.SubscriptionHistoryEntry, error)
	ListByStore(ctx context.Context, tx Tx, storeID string, limit int) ([]*model.SubscriptionHistoryEntry, error)
}
