package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// PersistMetrics holds the Prometheus counters and gauges for the
// persistence queue and its worker.
type PersistMetrics struct {
	JobsEnqueued  prometheus.Counter
	JobsDropped   prometheus.Counter
	JobsPersisted prometheus.Counter
	JobsFailed    prometheus.Counter
	QueueDepth    prometheus.Gauge
	WorkerRunning prometheus.Gauge
}

// NewPersistMetrics creates and registers the persistence metrics with the
// default Prometheus registry.
func NewPersistMetrics() *PersistMetrics {
	m := newPersistMetrics()

	prometheus.MustRegister(
		m.JobsEnqueued,
		m.JobsDropped,
		m.JobsPersisted,
		m.JobsFailed,
		m.QueueDepth,
		m.WorkerRunning,
	)

	return m
}

// NewPersistMetricsForTesting creates PersistMetrics without registering
// them, avoiding "already registered" panics across tests.
func NewPersistMetricsForTesting() *PersistMetrics {
	return newPersistMetrics()
}

func newPersistMetrics() *PersistMetrics {
	return &PersistMetrics{
		JobsEnqueued: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "weather_range",
			Name:      "persist_jobs_enqueued_total",
			Help:      "Total persistence jobs accepted by the queue.",
		}),
		JobsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "weather_range",
			Name:      "persist_jobs_dropped_total",
			Help:      "Total persistence jobs dropped because the queue was full.",
		}),
		JobsPersisted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "weather_range",
			Name:      "persist_jobs_persisted_total",
			Help:      "Total persistence jobs written to the store.",
		}),
		JobsFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "weather_range",
			Name:      "persist_jobs_failed_total",
			Help:      "Total persistence jobs that failed at the store.",
		}),
		QueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "weather_range",
			Name:      "persist_queue_depth",
			Help:      "Jobs currently buffered in the persistence queue.",
		}),
		WorkerRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "weather_range",
			Name:      "persist_worker_running",
			Help:      "1 when the persistence worker is active, 0 when shut down.",
		}),
	}
}
