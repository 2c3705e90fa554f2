// Package metrics exports scheduler, lifecycle and badge signals to
// Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bnema/calsnap/internal/application"
	"github.com/bnema/calsnap/internal/domain"
)

const namespace = "calsnap"

var badgeKinds = []domain.BadgeKind{domain.BadgeEmpty, domain.BadgeSpinner, domain.BadgeCount, domain.BadgeError}

type Recorder struct {
	registry *prometheus.Registry

	activeTasks  prometheus.Gauge
	tasksStarted prometheus.Counter
	taskDuration prometheus.Histogram
	ticks        *prometheus.CounterVec
	finalized    *prometheus.CounterVec
	badgeCount   prometheus.Gauge
	badgeKind    *prometheus.GaugeVec
}

var _ application.Observer = (*Recorder)(nil)

// NewRecorder registers every collector on a private registry so tests and
// multiple daemons in one process do not collide on the global one.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		activeTasks: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "active_tasks",
			Help:      "Sessions currently being polled.",
		}),
		tasksStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "tasks_started_total",
			Help:      "Polling tasks started, including recovered ones.",
		}),
		taskDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "task_duration_seconds",
			Help:      "Time from session creation until its polling task stopped.",
			Buckets:   []float64{1, 2, 5, 10, 20, 30, 60, 120, 300, 600},
		}),
		ticks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "lifecycle",
			Name:      "ticks_total",
			Help:      "Poll ticks by outcome.",
		}, []string{"outcome"}),
		finalized: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "lifecycle",
			Name:      "sessions_finalized_total",
			Help:      "Sessions that reached a terminal status.",
		}, []string{"status"}),
		badgeCount: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "badge",
			Name:      "count",
			Help:      "Event count shown on the badge, zero unless the badge is a count.",
		}),
		badgeKind: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "badge",
			Name:      "state",
			Help:      "1 for the badge kind currently shown.",
		}, []string{"kind"}),
	}

	r.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.activeTasks,
		r.tasksStarted,
		r.taskDuration,
		r.ticks,
		r.finalized,
		r.badgeCount,
		r.badgeKind,
	)
	r.BadgeRendered(domain.Badge{Kind: domain.BadgeEmpty})

	return r
}

func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

func (r *Recorder) TaskStarted(domain.SessionID) {
	r.activeTasks.Inc()
	r.tasksStarted.Inc()
}

func (r *Recorder) TaskStopped(_ domain.SessionID, ran time.Duration) {
	r.activeTasks.Dec()
	r.taskDuration.Observe(ran.Seconds())
}

func (r *Recorder) TickCompleted(outcome application.TickOutcome) {
	r.ticks.WithLabelValues(string(outcome)).Inc()
}

func (r *Recorder) SessionFinalized(status domain.Status) {
	r.finalized.WithLabelValues(string(status)).Inc()
}

func (r *Recorder) BadgeRendered(badge domain.Badge) {
	for _, kind := range badgeKinds {
		value := 0.0
		if kind == badge.Kind {
			value = 1
		}
		r.badgeKind.WithLabelValues(string(kind)).Set(value)
	}
	r.badgeCount.Set(float64(badge.Count))
}
