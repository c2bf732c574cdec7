// Package metrics exposes batch and dashboard counters through a dedicated
// Prometheus registry.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "vista360"

// Profile outcomes.
const (
	OutcomeAnalyzed = "analyzed"
	OutcomeSkipped  = "skipped"
	OutcomeDegraded = "degraded"
)

// Run statuses.
const (
	RunPublished = "published"
	RunDryRun    = "dry_run"
	RunFailed    = "failed"
	RunCancelled = "cancelled"
)

// Recorder holds every collector. A nil *Recorder is valid and records
// nothing.
type Recorder struct {
	registry *prometheus.Registry

	profiles          *prometheus.CounterVec
	narrativeDuration *prometheus.HistogramVec
	runs              *prometheus.CounterVec
	lastPublish       prometheus.Gauge
	publishedProfiles prometheus.Gauge
	cacheRequests     *prometheus.CounterVec
}

// New creates a Recorder with its own registry, including Go runtime and
// process collectors.
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		profiles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "profiles_total",
			Help:      "Identifiers processed by the batch, by outcome.",
		}, []string{"outcome"}),
		narrativeDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "narrative_duration_seconds",
			Help:      "Narrative generation latency including retries.",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 20, 40, 60, 120},
		}, []string{"result"}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Full-analysis runs, by final status.",
		}, []string{"status"}),
		lastPublish: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_publish_timestamp_seconds",
			Help:      "Unix time of the last published result set.",
		}),
		publishedProfiles: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "published_profiles",
			Help:      "Profiles in the last published result set.",
		}),
		cacheRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_requests_total",
			Help:      "Dashboard cache lookups, by result.",
		}, []string{"result"}),
	}
	r.registry.MustRegister(
		r.profiles,
		r.narrativeDuration,
		r.runs,
		r.lastPublish,
		r.publishedProfiles,
		r.cacheRequests,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

// Registry returns the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

// Profile counts one identifier by outcome.
func (r *Recorder) Profile(outcome string) {
	if r == nil {
		return
	}
	r.profiles.WithLabelValues(outcome).Inc()
}

// Narrative observes one narrative call.
func (r *Recorder) Narrative(d time.Duration, err error) {
	if r == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	r.narrativeDuration.WithLabelValues(result).Observe(d.Seconds())
}

// Run counts a finished run.
func (r *Recorder) Run(status string) {
	if r == nil {
		return
	}
	r.runs.WithLabelValues(status).Inc()
}

// Published records a successful publish.
func (r *Recorder) Published(at time.Time, count int) {
	if r == nil {
		return
	}
	r.lastPublish.Set(float64(at.Unix()))
	r.publishedProfiles.Set(float64(count))
}

// CacheLookup counts a dashboard cache hit or miss.
func (r *Recorder) CacheLookup(hit bool) {
	if r == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	r.cacheRequests.WithLabelValues(result).Inc()
}
