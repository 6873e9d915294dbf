// Package observability wires Prometheus metrics and OpenTelemetry tracing.
package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Submission outcomes used as the "outcome" label.
const (
	OutcomeCorrect   = "correct"
	OutcomeIncorrect = "incorrect"
	OutcomeDuplicate = "duplicate"
	OutcomeRejected  = "rejected"
	OutcomeConflict  = "conflict"
	OutcomeFailed    = "failed"
)

// Metrics holds every collector the hub exports. A nil *Metrics is valid
// and records nothing, which keeps tests free of registry plumbing.
type Metrics struct {
	registry *prometheus.Registry

	submissions   *prometheus.CounterVec
	txDuration    prometheus.Histogram
	txRetries     prometheus.Counter
	xpAwarded     prometheus.Counter
	levelUps      prometheus.Counter
	badgesAwarded *prometheus.CounterVec

	eventsPublished *prometheus.CounterVec
	jobRuns         *prometheus.CounterVec

	httpRequests *prometheus.CounterVec
	httpLatency  *prometheus.HistogramVec
	httpInflight prometheus.Gauge
}

// NewMetrics creates collectors on a private registry together with the
// Go runtime and process collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "phishguard",
			Subsystem: "progression",
			Name:      "submissions_total",
			Help:      "Attempt submissions segmented by outcome.",
		}, []string{"outcome"}),
		txDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "phishguard",
			Subsystem: "progression",
			Name:      "transaction_duration_seconds",
			Help:      "Wall time of the progression transaction including retries.",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}),
		txRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "phishguard",
			Subsystem: "progression",
			Name:      "transaction_retries_total",
			Help:      "Progression transactions replayed after a write conflict.",
		}),
		xpAwarded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "phishguard",
			Subsystem: "progression",
			Name:      "xp_awarded_total",
			Help:      "XP granted, attempts and badge rewards combined.",
		}),
		levelUps: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "phishguard",
			Subsystem: "progression",
			Name:      "level_ups_total",
			Help:      "Submissions that raised the user's level.",
		}),
		badgesAwarded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "phishguard",
			Subsystem: "badges",
			Name:      "awarded_total",
			Help:      "Badges awarded segmented by badge key.",
		}, []string{"badge"}),
		eventsPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "phishguard",
			Subsystem: "events",
			Name:      "published_total",
			Help:      "Domain events handed to the bus segmented by type and status.",
		}, []string{"type", "status"}),
		jobRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "phishguard",
			Subsystem: "scheduler",
			Name:      "job_runs_total",
			Help:      "Background job runs segmented by job and status.",
		}, []string{"job", "status"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "phishguard",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		httpLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "phishguard",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP latency by method and route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		httpInflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "phishguard",
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Requests currently being served.",
		}),
	}

	m.registry.MustRegister(
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		m.submissions,
		m.txDuration,
		m.txRetries,
		m.xpAwarded,
		m.levelUps,
		m.badgesAwarded,
		m.eventsPublished,
		m.jobRuns,
		m.httpRequests,
		m.httpLatency,
		m.httpInflight,
	)
	return m
}

// Registry exposes the underlying registry (used by tests).
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveSubmission records one finished submission.
func (m *Metrics) ObserveSubmission(outcome string, took time.Duration) {
	if m == nil {
		return
	}
	m.submissions.WithLabelValues(outcome).Inc()
	m.txDuration.Observe(took.Seconds())
}

// ObserveRetry counts one replayed transaction.
func (m *Metrics) ObserveRetry() {
	if m == nil {
		return
	}
	m.txRetries.Inc()
}

// ObserveProgress records XP and level changes of a committed submission.
func (m *Metrics) ObserveProgress(xp int, levelUp bool) {
	if m == nil {
		return
	}
	if xp > 0 {
		m.xpAwarded.Add(float64(xp))
	}
	if levelUp {
		m.levelUps.Inc()
	}
}

// ObserveBadge counts an awarded badge.
func (m *Metrics) ObserveBadge(key string) {
	if m == nil {
		return
	}
	m.badgesAwarded.WithLabelValues(key).Inc()
}

// ObserveEvent counts an event handed to the bus.
func (m *Metrics) ObserveEvent(eventType string, err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.eventsPublished.WithLabelValues(eventType, status).Inc()
}

// ObserveJob counts one background job run.
func (m *Metrics) ObserveJob(job string, err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.jobRuns.WithLabelValues(job, status).Inc()
}

// ObserveHTTP records a served request. route is the matched pattern,
// never the raw path, to keep label cardinality bounded.
func (m *Metrics) ObserveHTTP(method, route string, status int, took time.Duration) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpLatency.WithLabelValues(method, route).Observe(took.Seconds())
}

// TrackInflight increments the in-flight gauge and returns the decrement.
func (m *Metrics) TrackInflight() func() {
	if m == nil {
		return func() {}
	}
	m.httpInflight.Inc()
	return m.httpInflight.Dec
}
