package usecase

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"

	"storefront-billing/internal/domain"
	"storefront-billing/internal/domain/model"
	"storefront-billing/internal/domain/ports/adapter"
	"storefront-billing/internal/domain/ports/repository"
)

// Compile-time check
var _ WebhookUseCase = (*webhookUC)(nil)

// EventDeduper records processed provider event ids so at-least-once webhook
// delivery cannot re-run increment-sensitive transitions (the paused retry
// counter). Implemented on Redis.
type EventDeduper interface {
	// MarkProcessed returns false when the event id was already recorded.
	MarkProcessed(ctx context.Context, eventID string) (bool, error)
}

// WebhookSummary reports what a delivery amounted to. The HTTP layer acks
// with 200 regardless; this is for logs and metrics only.
type WebhookSummary struct {
	Topic      string
	ResourceID string
	StoreID    string
	Action     string // ignored | duplicate | no_store | applied | unchanged
}

// WebhookUseCase reconciles asynchronous provider notifications. Stateless
// per call; tolerant of duplicate and out-of-order delivery because it
// always fetches authoritative status instead of trusting the payload.
type WebhookUseCase interface {
	Handle(ctx context.Context, topic, resourceID, eventID string) (WebhookSummary, error)
}

type webhookUC struct {
	stores  repository.StoreRepository
	subs    SubscriptionUseCase
	gateway adapter.BillingGateway
	dedup   EventDeduper
	log     *zerolog.Logger
}

func NewWebhookUseCase(stores repository.StoreRepository, subs SubscriptionUseCase, gateway adapter.BillingGateway, dedup EventDeduper, logger *zerolog.Logger) *webhookUC {
	ucLog := logger.With().Str("component", "WebhookUC").Logger()
	return &webhookUC{stores: stores, subs: subs, gateway: gateway, dedup: dedup, log: &ucLog}
}

func (u *webhookUC) Handle(ctx context.Context, topic, resourceID, eventID string) (WebhookSummary, error) {
	sum := WebhookSummary{Topic: topic, ResourceID: resourceID, Action: "ignored"}
	if resourceID == "" {
		return sum, nil
	}

	var isSubscription bool
	switch {
	case strings.Contains(topic, "preapproval"):
		isSubscription = true
	case topic == "payment":
		isSubscription = false
	default:
		// unknown topics are acked immediately so the provider stops retrying
		return sum, nil
	}

	if eventID != "" && u.dedup != nil {
		first, err := u.dedup.MarkProcessed(ctx, eventID)
		if err != nil {
			// dedup store down: fail open, a duplicate is less harmful than
			// dropping a real event
			u.log.Warn().Err(err).Str("event_id", eventID).Msg("event dedup unavailable")
		} else if !first {
			sum.Action = "duplicate"
			return sum, nil
		}
	}

	if isSubscription {
		return u.handleSubscription(ctx, sum)
	}
	return u.handlePayment(ctx, sum)
}

func (u *webhookUC) handleSubscription(ctx context.Context, sum WebhookSummary) (WebhookSummary, error) {
	remote, err := u.gateway.GetSubscription(ctx, sum.ResourceID)
	if err != nil {
		return sum, err
	}
	store, err := u.stores.FindByRemoteSubscriptionID(ctx, repository.NoTX, remote.ID)
	if errors.Is(err, domain.ErrNotFound) {
		// stale or foreign event; ack so the provider does not retry-storm
		sum.Action = "no_store"
		return sum, nil
	}
	if err != nil {
		return sum, err
	}
	return u.apply(ctx, sum, store.ID, remote.Status)
}

func (u *webhookUC) handlePayment(ctx context.Context, sum WebhookSummary) (WebhookSummary, error) {
	pay, err := u.gateway.GetPayment(ctx, sum.ResourceID)
	if err != nil {
		return sum, err
	}
	storeID, ok := parseStoreReference(pay.ExternalReference)
	if !ok {
		// payment not originated by this platform
		return sum, nil
	}
	if _, err := u.stores.FindByID(ctx, repository.NoTX, storeID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			sum.Action = "no_store"
			return sum, nil
		}
		return sum, err
	}
	return u.apply(ctx, sum, storeID, pay.Status)
}

func (u *webhookUC) apply(ctx context.Context, sum WebhookSummary, storeID string, status model.ProviderStatus) (WebhookSummary, error) {
	sum.StoreID = storeID
	tr, err := u.subs.ApplyStatus(ctx, storeID, status)
	if err != nil {
		return sum, err
	}
	if tr.Changed {
		sum.Action = "applied"
	} else {
		sum.Action = "unchanged"
	}
	return sum, nil
}

// parseStoreReference extracts the store id from the external reference
// embedded at subscription-creation time ("store_<id>").
func parseStoreReference(ref string) (string, bool) {
	id, ok := strings.CutPrefix(ref, "store_")
	if !ok || id == "" {
		return "", false
	}
	return id, true
}
