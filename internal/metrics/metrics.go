package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ReconcileMetrics holds the counters for payment reconciliation.
type ReconcileMetrics struct {
	// Outcome per ingress path: transitioned, already_final, already_final_failed,
	// ignored, bad_signature, not_found, malformed, store_unavailable.
	OutcomesTotal *prometheus.CounterVec

	// Re-issued store calls after a transient failure.
	StoreRetriesTotal   prometheus.Counter
	NotifyFailuresTotal prometheus.Counter
	OrdersExpiredTotal  prometheus.Counter
	Duration            *prometheus.HistogramVec
}

// NewReconcileMetrics registers the metrics on reg. Pass prometheus.NewRegistry()
// in tests so repeated construction does not collide.
func NewReconcileMetrics(reg prometheus.Registerer) *ReconcileMetrics {
	f := promauto.With(reg)
	return &ReconcileMetrics{
		OutcomesTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "reconcile_outcomes_total",
				Help: "Payment assertions by ingress source and outcome",
			},
			[]string{"source", "outcome"},
		),
		StoreRetriesTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "reconcile_store_retries_total",
			Help: "Order store calls retried after a transient error",
		}),
		NotifyFailuresTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "reconcile_notify_failures_total",
			Help: "Confirmation notifications that failed after a committed transition",
		}),
		OrdersExpiredTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "orders_expired_total",
			Help: "Pending orders moved to failed by the expiry sweep",
		}),
		Duration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "reconcile_duration_seconds",
				Help:    "Time spent reconciling one payment assertion",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"source"},
		),
	}
}
