// Package metrics holds the Prometheus collectors exported at /metrics.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "salon_booking"

var (
	once sync.Once

	holdResults = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "hold_results_total",
			Help:      "Hold and confirmation attempts by operation and outcome.",
		},
		[]string{"operation", "outcome"},
	)

	otpResults = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "otp_results_total",
			Help:      "OTP sends and verifications by outcome.",
		},
		[]string{"operation", "outcome"},
	)

	sweepRows = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sweeper_rows_total",
			Help:      "Rows removed or expired by the cleanup sweeper, by step.",
		},
		[]string{"step"},
	)

	sweepFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sweeper_failures_total",
			Help:      "Cleanup sweeper step failures.",
		},
		[]string{"step"},
	)

	notifications = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Customer notifications by kind and result.",
		},
		[]string{"kind", "result"},
	)
)

// Register registers the collectors with the default registry (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(holdResults, otpResults, sweepRows, sweepFailures, notifications)
	})
}

func IncHold(operation, outcome string) {
	holdResults.WithLabelValues(operation, outcome).Inc()
}

func IncOTP(operation, outcome string) {
	otpResults.WithLabelValues(operation, outcome).Inc()
}

func AddSweepRows(step string, n int64) {
	if n > 0 {
		sweepRows.WithLabelValues(step).Add(float64(n))
	}
}

func IncSweepFailure(step string) {
	sweepFailures.WithLabelValues(step).Inc()
}

func IncNotification(kind, result string) {
	notifications.WithLabelValues(kind, result).Inc()
}
