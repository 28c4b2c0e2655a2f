package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/dynaerp/notify-engine/internal/domain"
	"github.com/dynaerp/notify-engine/internal/engine"
	"github.com/dynaerp/notify-engine/internal/worker"
)

// Metrics groups all Prometheus instruments used across the engine.
// Registered once at startup via New(). Using a custom registry instead of
// prometheus.DefaultRegisterer keeps tests isolated and avoids global state.
type Metrics struct {
	JobsProcessed *prometheus.CounterVec
	JobsFailed    *prometheus.CounterVec
	JobsDropped   *prometheus.CounterVec
	JobLatency    *prometheus.HistogramVec

	NotificationsInserted   prometheus.Counter
	NotificationsReconciled prometheus.Counter
	NotificationsExcluded   prometheus.Counter

	QueueDepth prometheus.GaugeFunc
}

// New registers all instruments with reg. queueDepth feeds the gauge and is
// sampled on every scrape.
func New(reg prometheus.Registerer, queueDepth func() int) *Metrics {
	m := &Metrics{
		JobsProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fanout_jobs_processed_total",
			Help: "Total number of fanout jobs processed to completion.",
		}, []string{"action"}),

		JobsFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fanout_jobs_failed_total",
			Help: "Total number of fanout jobs abandoned with an error.",
		}, []string{"action"}),

		JobsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fanout_jobs_dropped_total",
			Help: "Total number of writes rejected before queuing.",
		}, []string{"reason"}),

		JobLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "fanout_job_seconds",
			Help:    "End-to-end job latency from dequeue to delivery.",
			Buckets: prometheus.DefBuckets,
		}, []string{"action"}),

		NotificationsInserted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "notifications_inserted_total",
			Help: "Total number of freshly inserted notification rows.",
		}),
		NotificationsReconciled: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "notifications_reconciled_total",
			Help: "Total number of notification rows updated in place.",
		}),
		NotificationsExcluded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "notifications_excluded_total",
			Help: "Total number of notification rows flipped to excluded.",
		}),

		QueueDepth: prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "fanout_queue_depth",
			Help: "Current number of jobs waiting in the fanout queue.",
		}, func() float64 { return float64(queueDepth()) }),
	}

	reg.MustRegister(
		m.JobsProcessed,
		m.JobsFailed,
		m.JobsDropped,
		m.JobLatency,
		m.NotificationsInserted,
		m.NotificationsReconciled,
		m.NotificationsExcluded,
		m.QueueDepth,
	)

	return m
}

// WorkerHooks adapts the instruments to the worker's callback shape.
func (m *Metrics) WorkerHooks() worker.MetricHooks {
	return worker.MetricHooks{
		OnProcessed: func(action domain.Action, latency time.Duration) {
			m.JobsProcessed.WithLabelValues(string(action)).Inc()
			m.JobLatency.WithLabelValues(string(action)).Observe(latency.Seconds())
		},
		OnFailed: func(action domain.Action) {
			m.JobsFailed.WithLabelValues(string(action)).Inc()
		},
	}
}

// EngineHooks adapts the instruments to the engine's callback shape.
func (m *Metrics) EngineHooks() engine.Hooks {
	return engine.Hooks{
		OnDropped:    func(reason string) { m.JobsDropped.WithLabelValues(reason).Inc() },
		OnInserted:   func(n int) { m.NotificationsInserted.Add(float64(n)) },
		OnReconciled: func(n int) { m.NotificationsReconciled.Add(float64(n)) },
		OnExcluded:   func(n int) { m.NotificationsExcluded.Add(float64(n)) },
	}
}
