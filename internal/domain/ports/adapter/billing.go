package adapter

import (
	"context"

	"storefront-billing/internal/domain/model"
)

// CredentialSource resolves the provider bearer credential at call time.
// Credentials are never cached beyond one request; encrypted storage sits
// behind this port, outside the billing core.
type CredentialSource interface {
	AccessToken(ctx context.Context) (string, error)
}

// PlanSpec is what the provider needs to mirror a local plan.
type PlanSpec struct {
	Name        string
	AmountMinor int64
	Currency    string
	TrialDays   int
	Active      bool
}

// RemotePlan is the provider-side mirror object.
type RemotePlan struct {
	ID     string
	Status string
}

// SubscriptionRequest creates a provider preapproval (recurring agreement).
// ExternalReference is echoed back on payment events and carries the store
// identity ("store_<id>").
type SubscriptionRequest struct {
	RemotePlanID      string
	PayerEmail        string
	CardToken         string
	ExternalReference string
	Reason            string
	AmountMinor       int64
	Currency          string
}

// RemoteSubscription is the normalized provider view of a preapproval.
type RemoteSubscription struct {
	ID                string
	Status            model.ProviderStatus
	ExternalReference string
	RedirectURL       string
}

// RemotePayment is the normalized provider view of a single charge attempt.
type RemotePayment struct {
	ID                string
	Status            model.ProviderStatus
	ExternalReference string
	AmountMinor       int64
}

// BillingGateway is the hex port for the external subscription billing API.
// Non-2xx responses surface as *domain.ProviderError.
type BillingGateway interface {
	Name() string

	CreatePlan(ctx context.Context, spec PlanSpec) (RemotePlan, error)
	UpdatePlan(ctx context.Context, remotePlanID string, spec PlanSpec) (RemotePlan, error)

	CreateSubscription(ctx context.Context, req SubscriptionRequest) (RemoteSubscription, error)
	GetSubscription(ctx context.Context, remoteID string) (RemoteSubscription, error)
	CancelSubscription(ctx context.Context, remoteID string) error

	GetPayment(ctx context.Context, paymentID string) (RemotePayment, error)
}
