package redis

import (
	"context"
	"time"

	"storefront-billing/internal/usecase"
)

// Compile-time check
var _ usecase.EventDeduper = (*EventDeduper)(nil)

const dedupKeyPrefix = "billing:webhook:event:"

// EventDeduper records processed webhook event ids with a TTL. The window
// only needs to outlast the provider's redelivery horizon.
type EventDeduper struct {
	cli RedisClient
	ttl time.Duration
}

func NewEventDeduper(cli RedisClient, ttl time.Duration) *EventDeduper {
	if ttl <= 0 {
		ttl = 72 * time.Hour
	}
	return &EventDeduper{cli: cli, ttl: ttl}
}

func (d *EventDeduper) MarkProcessed(ctx context.Context, eventID string) (bool, error) {
	return d.cli.SetNX(ctx, dedupKeyPrefix+eventID, 1, d.ttl)
}
