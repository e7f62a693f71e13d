package model

import (
	"time"

	"storefront-billing/internal/domain"
)

// Plan is a purchasable monthly-recurring plan with a resource quota.
// RemotePlanID/RemoteSyncedAt track the mirror object at the payment
// provider; price changes never touch already-running subscriptions
// (the provider fixes the price at subscription-creation time).
type Plan struct {
	ID                string
	Name              string
	MaxProducts       int
	MonthlyPriceMinor int64 // minor currency units
	Currency          string
	Active            bool
	RemotePlanID      *string
	RemoteSyncedAt    *time.Time
	CreatedAt         time.Time
}

func (p *Plan) IsZero() bool { return p == nil || p.ID == "" }

// IsSynced reports whether a remote mirror exists for this plan.
func (p *Plan) IsSynced() bool { return p != nil && p.RemotePlanID != nil && *p.RemotePlanID != "" }

// NewPlan validates and constructs a plan.
func NewPlan(id, name string, maxProducts int, monthlyPriceMinor int64, currency string) (*Plan, error) {
	if id == "" || name == "" || maxProducts <= 0 || monthlyPriceMinor <= 0 || currency == "" {
		return nil, domain.ErrInvalidArgument
	}
	return &Plan{
		ID:                id,
		Name:              name,
		MaxProducts:       maxProducts,
		MonthlyPriceMinor: monthlyPriceMinor,
		Currency:          currency,
		Active:            true,
		CreatedAt:         time.Now(),
	}, nil
}
