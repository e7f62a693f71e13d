package billing

import (
	"context"
	"fmt"
	"sync"

	"storefront-billing/internal/domain"
	"storefront-billing/internal/domain/model"
	"storefront-billing/internal/domain/ports/adapter"
)

var _ adapter.BillingGateway = (*NoopGateway)(nil)

// NoopGateway is a simple in-memory gateway for tests and sandbox mode.
// Every created subscription starts authorized.
type NoopGateway struct {
	mu            sync.Mutex
	seq           int64
	plans         map[string]adapter.PlanSpec
	subscriptions map[string]adapter.RemoteSubscription
	payments      map[string]adapter.RemotePayment
}

func NewNoopGateway() *NoopGateway {
	return &NoopGateway{
		plans:         make(map[string]adapter.PlanSpec),
		subscriptions: make(map[string]adapter.RemoteSubscription),
		payments:      make(map[string]adapter.RemotePayment),
	}
}

func (g *NoopGateway) Name() string { return "noop" }

func (g *NoopGateway) next(prefix string) string {
	g.seq++
	return fmt.Sprintf("%s-%d", prefix, g.seq)
}

func (g *NoopGateway) CreatePlan(ctx context.Context, spec adapter.PlanSpec) (adapter.RemotePlan, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	id := g.next("noop-plan")
	g.plans[id] = spec
	return adapter.RemotePlan{ID: id, Status: "active"}, nil
}

func (g *NoopGateway) UpdatePlan(ctx context.Context, remotePlanID string, spec adapter.PlanSpec) (adapter.RemotePlan, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.plans[remotePlanID]; !ok {
		return adapter.RemotePlan{}, &domain.ProviderError{StatusCode: 404, Message: "plan not found"}
	}
	g.plans[remotePlanID] = spec
	status := "active"
	if !spec.Active {
		status = "inactive"
	}
	return adapter.RemotePlan{ID: remotePlanID, Status: status}, nil
}

func (g *NoopGateway) CreateSubscription(ctx context.Context, req adapter.SubscriptionRequest) (adapter.RemoteSubscription, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.plans[req.RemotePlanID]; !ok {
		return adapter.RemoteSubscription{}, &domain.ProviderError{StatusCode: 404, Message: "plan not found"}
	}
	id := g.next("noop-sub")
	sub := adapter.RemoteSubscription{
		ID:                id,
		Status:            model.ProviderAuthorized,
		ExternalReference: req.ExternalReference,
		RedirectURL:       "https://example.test/checkout/" + id,
	}
	g.subscriptions[id] = sub
	return sub, nil
}

func (g *NoopGateway) GetSubscription(ctx context.Context, remoteID string) (adapter.RemoteSubscription, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	sub, ok := g.subscriptions[remoteID]
	if !ok {
		return adapter.RemoteSubscription{}, &domain.ProviderError{StatusCode: 404, Message: "subscription not found"}
	}
	return sub, nil
}

func (g *NoopGateway) CancelSubscription(ctx context.Context, remoteID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	sub, ok := g.subscriptions[remoteID]
	if !ok {
		return &domain.ProviderError{StatusCode: 404, Message: "subscription not found"}
	}
	sub.Status = model.ProviderCancelled
	g.subscriptions[remoteID] = sub
	return nil
}

func (g *NoopGateway) GetPayment(ctx context.Context, paymentID string) (adapter.RemotePayment, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	p, ok := g.payments[paymentID]
	if !ok {
		return adapter.RemotePayment{}, &domain.ProviderError{StatusCode: 404, Message: "payment not found"}
	}
	return p, nil
}

// SetSubscriptionStatus seeds a remote status so tests can drive the poll path.
func (g *NoopGateway) SetSubscriptionStatus(remoteID string, status model.ProviderStatus) {
	g.mu.Lock()
	defer g.mu.Unlock()
	sub := g.subscriptions[remoteID]
	sub.ID = remoteID
	sub.Status = status
	g.subscriptions[remoteID] = sub
}

// AddPayment seeds a payment so tests can drive the payment webhook path.
func (g *NoopGateway) AddPayment(p adapter.RemotePayment) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.payments[p.ID] = p
}
