package task

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcome labels for finished tasks.
const (
	OutcomeCompleted = "completed"
	OutcomeFailed    = "failed"
)

// Metrics exposes Prometheus collectors that report task activity.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	started     prometheus.Counter
	finished    *prometheus.CounterVec
	waiting     prometheus.Gauge
	running     prometheus.Gauge
	duration    prometheus.Histogram
	subscribers prometheus.Gauge
}

// MustNewMetrics constructs the task collectors and registers them with reg.
// Collectors that are already registered are reused, so building the
// application twice against the same registry does not fail. Any other
// registration error panics, mirroring promauto.
func MustNewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		started: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "transcheck",
			Subsystem: "tasks",
			Name:      "started_total",
			Help:      "Number of inspection tasks accepted.",
		}),
		finished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "transcheck",
			Subsystem: "tasks",
			Name:      "finished_total",
			Help:      "Number of inspection tasks that reached a terminal event.",
		}, []string{"outcome"}),
		waiting: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "transcheck",
			Subsystem: "tasks",
			Name:      "waiting",
			Help:      "Number of tasks waiting for a free runner slot.",
		}),
		running: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "transcheck",
			Subsystem: "tasks",
			Name:      "running",
			Help:      "Number of tasks whose checker is currently executing.",
		}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "transcheck",
			Subsystem: "tasks",
			Name:      "duration_seconds",
			Help:      "Time from a checker starting to its terminal event.",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
		}),
		subscribers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "transcheck",
			Subsystem: "stream",
			Name:      "subscribers",
			Help:      "Number of live event feeds currently attached.",
		}),
	}

	m.started = register(reg, m.started)
	m.finished = register(reg, m.finished)
	m.waiting = register(reg, m.waiting)
	m.running = register(reg, m.running)
	m.duration = register(reg, m.duration)
	m.subscribers = register(reg, m.subscribers)

	return m
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) C {
	if err := reg.Register(c); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(C); ok {
				return existing
			}
		}
		panic(err)
	}
	return c
}

// TaskAccepted records a newly submitted task waiting for a slot.
func (m *Metrics) TaskAccepted() {
	if m == nil {
		return
	}
	m.started.Inc()
	m.waiting.Inc()
}

// TaskStarted records a task leaving the wait list and starting its checker.
func (m *Metrics) TaskStarted() {
	if m == nil {
		return
	}
	m.waiting.Dec()
	m.running.Inc()
}

// TaskAbandoned records a waiting task that never got a slot.
func (m *Metrics) TaskAbandoned() {
	if m == nil {
		return
	}
	m.waiting.Dec()
	m.finished.WithLabelValues(OutcomeFailed).Inc()
}

// TaskFinished records a running task reaching its terminal event.
func (m *Metrics) TaskFinished(outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.running.Dec()
	m.finished.WithLabelValues(outcome).Inc()
	m.duration.Observe(elapsed.Seconds())
}

// SubscriberAttached records a live feed opening.
func (m *Metrics) SubscriberAttached() {
	if m == nil {
		return
	}
	m.subscribers.Inc()
}

// SubscriberDetached records a live feed closing.
func (m *Metrics) SubscriberDetached() {
	if m == nil {
		return
	}
	m.subscribers.Dec()
}
