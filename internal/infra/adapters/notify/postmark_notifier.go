package notify

import (
	"context"
	"fmt"

	"github.com/mrz1836/postmark"
	"github.com/rs/zerolog"

	"storefront-billing/internal/config"
	"storefront-billing/internal/domain/model"
	"storefront-billing/internal/domain/ports/adapter"
	"storefront-billing/internal/infra/metrics"
)

var _ adapter.Notifier = (*PostmarkNotifier)(nil)

// PostmarkNotifier delivers store-owner emails through Postmark's
// transactional API.
type PostmarkNotifier struct {
	client *postmark.Client
	sender string
	reply  string
	log    zerolog.Logger
}

func NewPostmarkNotifier(cfg *config.NotifyConfig, log zerolog.Logger) (*PostmarkNotifier, error) {
	if cfg.PostmarkServerToken == "" || cfg.PostmarkAccountToken == "" {
		return nil, fmt.Errorf("postmark tokens are required")
	}
	if cfg.SenderEmail == "" {
		return nil, fmt.Errorf("sender email is required")
	}
	reply := cfg.SupportEmail
	if reply == "" {
		reply = cfg.SenderEmail
	}
	return &PostmarkNotifier{
		client: postmark.NewClient(cfg.PostmarkServerToken, cfg.PostmarkAccountToken),
		sender: cfg.SenderEmail,
		reply:  reply,
		log:    log.With().Str("component", "postmark-notifier").Logger(),
	}, nil
}

func (n *PostmarkNotifier) Notify(ctx context.Context, kind model.NotificationKind, recipient string, data map[string]string) error {
	subject, body := render(kind, data)
	if subject == "" {
		return fmt.Errorf("unknown notification kind %q", kind)
	}

	resp, err := n.client.SendEmail(ctx, postmark.Email{
		From:     n.sender,
		ReplyTo:  n.reply,
		To:       recipient,
		Subject:  subject,
		Tag:      string(kind),
		TextBody: body,
	})
	if err != nil {
		metrics.IncNotificationFailure(string(kind))
		return fmt.Errorf("send %s notification: %w", kind, err)
	}
	if resp.ErrorCode > 0 {
		metrics.IncNotificationFailure(string(kind))
		return fmt.Errorf("send %s notification: postmark error %d: %s", kind, resp.ErrorCode, resp.Message)
	}

	metrics.IncNotificationSent(string(kind))
	n.log.Debug().Str("kind", string(kind)).Str("to", recipient).Msg("notification sent")
	return nil
}

func render(kind model.NotificationKind, data map[string]string) (subject, body string) {
	store := data["store"]
	switch kind {
	case model.NotifyTrialReminder:
		return fmt.Sprintf("Your trial for %s ends in %s days", store, data["days_left"]),
			fmt.Sprintf("The free trial for your store %s ends in %s days. Subscribe to a plan to keep selling without interruption.", store, data["days_left"])
	case model.NotifyPaymentSucceeded:
		return fmt.Sprintf("Payment received for %s", store),
			fmt.Sprintf("We received your subscription payment for %s. Your store stays active until the next renewal.", store)
	case model.NotifyPaymentFailed:
		return fmt.Sprintf("Payment failed for %s", store),
			fmt.Sprintf("A subscription payment for %s failed. Please review your payment method. We will retry automatically.", store)
	case model.NotifySuspended:
		return fmt.Sprintf("Your store %s has been suspended", store),
			fmt.Sprintf("Your store %s has been suspended because its subscription is no longer active. Subscribe again to reactivate it.", store)
	case model.NotifyReactivated:
		return fmt.Sprintf("Your store %s is active again", store),
			fmt.Sprintf("Payment received. Your store %s has been reactivated and is visible to customers again.", store)
	default:
		return "", ""
	}
}
