package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(
		sweepAffectedTotal,
		sweepErrorsTotal,
		sweepDurationSeconds,
		sweepTicksSkippedTotal,
	)
}

var (
	sweepAffectedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "billing_sweep_affected_total",
			Help: "Stores affected per sweep kind.",
		},
		[]string{"sweep"},
	)

	sweepErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "billing_sweep_errors_total",
			Help: "Sweep runs that returned an error, by sweep kind.",
		},
		[]string{"sweep"},
	)

	sweepDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "billing_sweep_duration_seconds",
			Help:    "Duration of individual sweeps.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"sweep"},
	)

	sweepTicksSkippedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "billing_sweep_ticks_skipped_total",
			Help: "Sweeper ticks skipped because the previous tick was still running or the lock was held elsewhere.",
		},
	)
)

func AddSweepAffected(sweep string, n int) { sweepAffectedTotal.WithLabelValues(sweep).Add(float64(n)) }
func IncSweepError(sweep string)           { sweepErrorsTotal.WithLabelValues(sweep).Inc() }
func ObserveSweepDuration(sweep string, d time.Duration) {
	sweepDurationSeconds.WithLabelValues(sweep).Observe(d.Seconds())
}
func IncSweepTickSkipped() { sweepTicksSkippedTotal.Inc() }
