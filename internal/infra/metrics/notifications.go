package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(notificationsSentTotal, notificationFailuresTotal)
}

var (
	notificationsSentTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "billing_notifications_sent_total",
			Help: "Notifications delivered, by kind.",
		},
		[]string{"kind"},
	)

	notificationFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "billing_notification_failures_total",
			Help: "Notification delivery failures, by kind.",
		},
		[]string{"kind"},
	)
)

func IncNotificationSent(kind string)    { notificationsSentTotal.WithLabelValues(kind).Inc() }
func IncNotificationFailure(kind string) { notificationFailuresTotal.WithLabelValues(kind).Inc() }
