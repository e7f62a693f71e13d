package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		transitionsAppliedTotal,
		storesSuspendedTotal,
		subscriptionsCreatedTotal,
	)
}

var (
	transitionsAppliedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "billing_transitions_applied_total",
			Help: "Provider statuses applied to store billing state, by status.",
		},
		[]string{"status"},
	)

	storesSuspendedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "billing_stores_suspended_total",
			Help: "Stores moved to the suspended operational state.",
		},
	)

	subscriptionsCreatedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "billing_subscriptions_created_total",
			Help: "Remote subscriptions created successfully.",
		},
	)
)

func IncTransitionApplied(status string) { transitionsAppliedTotal.WithLabelValues(status).Inc() }
func IncStoreSuspended()                 { storesSuspendedTotal.Inc() }
func IncSubscriptionCreated()            { subscriptionsCreatedTotal.Inc() }
