package model

import (
	"time"

	"storefront-billing/internal/domain"
)

// OperationalState says whether a store is allowed to trade.
type OperationalState string

const (
	StoreDraft           OperationalState = "draft"
	StoreActive          OperationalState = "active"
	StoreSuspended       OperationalState = "suspended"
	StorePendingDeletion OperationalState = "pending_deletion"
)

// SubState is the billing-side lifecycle of a store's subscription.
type SubState string

const (
	SubNone      SubState = "none"
	SubTrial     SubState = "trial"
	SubActive    SubState = "active"
	SubPending   SubState = "pending"
	SubPaused    SubState = "paused"
	SubCancelled SubState = "cancelled"
	SubExpired   SubState = "expired"
)

// Store is a tenant storefront. Billing fields are mutated exclusively by the
// subscription use case; everything else belongs to the surrounding platform.
type Store struct {
	ID                   string // UUID
	Name                 string
	OwnerEmail           string
	OperationalState     OperationalState
	SubState             SubState
	PlanID               *string
	RemoteSubscriptionID *string // provider preapproval id
	TrialStart           *time.Time
	TrialEnd             *time.Time
	SubscriptionRenewsAt *time.Time
	PaymentRetryCount    int
	LastStateChangeAt    time.Time
	CreatedAt            time.Time
}

// NewStore validates and constructs a store in draft state.
func NewStore(id, name, ownerEmail string) (*Store, error) {
	if id == "" || name == "" || ownerEmail == "" {
		return nil, domain.ErrInvalidArgument
	}
	now := time.Now()
	return &Store{
		ID:                id,
		Name:              name,
		OwnerEmail:        ownerEmail,
		OperationalState:  StoreDraft,
		SubState:          SubNone,
		LastStateChangeAt: now,
		CreatedAt:         now,
	}, nil
}

// HasOpenSubscription reports whether the store currently holds a
// non-terminal subscription. Creating a new one requires this to be false.
func (s *Store) HasOpenSubscription() bool {
	switch s.SubState {
	case SubTrial, SubActive, SubPending, SubPaused:
		return true
	}
	return false
}

// touch records a billing state change; grace-period accounting is measured
// from this timestamp.
func (s *Store) touch(now time.Time) {
	s.LastStateChangeAt = now
}
