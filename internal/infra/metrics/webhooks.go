package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		webhooksReceivedTotal,
		webhookDuplicatesTotal,
		webhookErrorsTotal,
	)
}

var (
	webhooksReceivedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "billing_webhooks_received_total",
			Help: "Webhook deliveries received from the payment provider, by topic.",
		},
		[]string{"topic"},
	)

	webhookDuplicatesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "billing_webhook_duplicates_total",
			Help: "Webhook deliveries skipped because the event id was already processed.",
		},
	)

	webhookErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "billing_webhook_errors_total",
			Help: "Webhook deliveries that failed internally (still acked to the provider).",
		},
	)
)

func IncWebhookReceived(topic string) { webhooksReceivedTotal.WithLabelValues(topic).Inc() }
func IncWebhookDuplicate()            { webhookDuplicatesTotal.Inc() }
func IncWebhookError()                { webhookErrorsTotal.Inc() }
