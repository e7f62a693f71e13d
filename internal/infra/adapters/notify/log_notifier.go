package notify

import (
	"context"

	"github.com/rs/zerolog"

	"storefront-billing/internal/domain/model"
	"storefront-billing/internal/domain/ports/adapter"
	"storefront-billing/internal/infra/metrics"
)

var _ adapter.Notifier = (*LogNotifier)(nil)

// LogNotifier writes notifications to the log instead of sending email.
// Used in dev mode and in tests.
type LogNotifier struct {
	log zerolog.Logger
}

func NewLogNotifier(log zerolog.Logger) *LogNotifier {
	return &LogNotifier{log: log.With().Str("component", "log-notifier").Logger()}
}

func (n *LogNotifier) Notify(ctx context.Context, kind model.NotificationKind, recipient string, data map[string]string) error {
	ev := n.log.Info().Str("kind", string(kind)).Str("to", recipient)
	for k, v := range data {
		ev = ev.Str(k, v)
	}
	ev.Msg("notification")
	metrics.IncNotificationSent(string(kind))
	return nil
}
