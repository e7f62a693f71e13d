package model

import (
	"time"

	"storefront-billing/internal/domain"
)

type HistoryOutcome string

const (
	HistoryActive    HistoryOutcome = "active"
	HistoryCancelled HistoryOutcome = "cancelled"
	HistoryExpired   HistoryOutcome = "expired"
	HistoryChanged   HistoryOutcome = "changed"
)

// SubscriptionHistoryEntry is the append-mostly billing ledger. At most one
// entry per store has EndAt == nil (the current one); opening a new entry
// requires closing the previous one in the same transaction.
type SubscriptionHistoryEntry struct {
	ID                    string // ULID, sortable by creation time
	StoreID               string
	PlanID                string
	StartAt               time.Time
	EndAt                 *time.Time
	Outcome               HistoryOutcome
	PaymentMethod         string
	ExternalTransactionID *string
	AmountMinor           int64
	Notes                 string
}

// NewHistoryEntry opens a ledger entry for a freshly created subscription.
func NewHistoryEntry(id, storeID, planID, paymentMethod string, amountMinor int64, startAt time.Time) (*SubscriptionHistoryEntry, error) {
	if id == "" || storeID == "" || planID == "" {
		return nil, domain.ErrInvalidArgument
	}
	return &SubscriptionHistoryEntry{
		ID:            id,
		StoreID:       storeID,
		PlanID:        planID,
		StartAt:       startAt,
		Outcome:       HistoryActive,
		PaymentMethod: paymentMethod,
		AmountMinor:   amountMinor,
	}, nil
}

// IsOpen reports whether this is the store's current entry.
func (e *SubscriptionHistoryEntry) IsOpen() bool { return e.EndAt == nil }
