package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all push-engine metrics
type Metrics struct {
	// Dispatch metrics
	DispatchesTotal  *prometheus.CounterVec
	DispatchDuration prometheus.Histogram
	DeliveriesTotal  *prometheus.CounterVec

	// Scheduler metrics
	SchedulerClaims prometheus.Counter
	SchedulerPolls  *prometheus.CounterVec

	// Subscriber metrics
	SubscribersDeactivated prometheus.Counter
	ClicksTracked          prometheus.Counter

	// Database metrics
	DatabaseOperations *prometheus.CounterVec
}

// NewMetrics creates all application metrics. Collectors are not registered
// here; call Register with the target registerer (tests skip registration).
func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		DispatchesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dispatches_total",
			Help:      "Total number of notification dispatches by final status",
		}, []string{"status"}),
		DispatchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "dispatch_duration_seconds",
			Help:      "Time spent fanning out one notification",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		}),
		DeliveriesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "deliveries_total",
			Help:      "Total number of per-subscriber delivery attempts by outcome",
		}, []string{"outcome"}),
		SchedulerClaims: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scheduler_claims_total",
			Help:      "Total number of scheduled notifications claimed for dispatch",
		}),
		SchedulerPolls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scheduler_polls_total",
			Help:      "Total number of scheduler poll iterations",
		}, []string{"status"}),
		SubscribersDeactivated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "subscribers_deactivated_total",
			Help:      "Total number of subscribers deactivated on permanent delivery failure",
		}),
		ClicksTracked: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "clicks_tracked_total",
			Help:      "Total number of click events recorded",
		}),
		DatabaseOperations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "database_operations_total",
			Help:      "Total number of database operations",
		}, []string{"operation", "status"}),
	}
}

// Register registers all collectors with the given registerer.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		m.DispatchesTotal,
		m.DispatchDuration,
		m.DeliveriesTotal,
		m.SchedulerClaims,
		m.SchedulerPolls,
		m.SubscribersDeactivated,
		m.ClicksTracked,
		m.DatabaseOperations,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}
