// Package metrics exposes Prometheus instruments for editing and submission.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "arbor"

// Outcome labels.
const (
	OutcomeOK       = "ok"
	OutcomeRejected = "rejected"
	OutcomeError    = "error"
)

// Metrics holds the collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	Edits       *prometheus.CounterVec
	Rejections  *prometheus.CounterVec
	Submissions *prometheus.CounterVec
	Latency     prometheus.Histogram
	Sessions    *prometheus.CounterVec
}

// New registers the arbor collectors plus the Go and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		Edits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "edits_total",
			Help:      "Tree edits by operation and outcome.",
		}, []string{"op", "outcome"}),
		Rejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rejections_total",
			Help:      "Rejected edits by violated rule.",
		}, []string{"rule"}),
		Submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "submissions_total",
			Help:      "Calls to the analysis service by outcome.",
		}, []string{"outcome"}),
		Latency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "submission_duration_seconds",
			Help:      "Latency of calls to the analysis service.",
			Buckets:   prometheus.DefBuckets,
		}),
		Sessions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_total",
			Help:      "Session lifecycle events (started, ended).",
		}, []string{"event"}),
	}
	reg.MustRegister(
		m.Edits, m.Rejections, m.Submissions, m.Latency, m.Sessions,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry returns the private registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Edit records one edit. rule is empty unless the edit was rejected.
func (m *Metrics) Edit(op, outcome, rule string) {
	if m == nil {
		return
	}
	m.Edits.WithLabelValues(op, outcome).Inc()
	if rule != "" {
		m.Rejections.WithLabelValues(rule).Inc()
	}
}

// Submission records a call to the analysis service.
func (m *Metrics) Submission(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.Submissions.WithLabelValues(outcome).Inc()
	m.Latency.Observe(d.Seconds())
}

// SessionStarted and SessionEnded count session lifecycle events.
func (m *Metrics) SessionStarted() {
	if m != nil {
		m.Sessions.WithLabelValues("started").Inc()
	}
}

func (m *Metrics) SessionEnded() {
	if m != nil {
		m.Sessions.WithLabelValues("ended").Inc()
	}
}
