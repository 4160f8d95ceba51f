// Package metrics exposes prometheus instrumentation for the diagnosis
// pipeline: counts and latencies per component, registered against a
// caller-supplied registry so tests never collide with the default one.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector holds every metric the diagnosis pipeline records.
type Collector struct {
	diagnosesTotal   *prometheus.CounterVec
	patternHits      *prometheus.CounterVec
	modelLatency     *prometheus.HistogramVec
	modelFailures    *prometheus.CounterVec
	memoryLookups    *prometheus.HistogramVec
	memoryHits       *prometheus.CounterVec
	vcsLookups       *prometheus.HistogramVec
	vcsFailures      *prometheus.CounterVec
}

// NewCollector builds a Collector and registers its metrics against reg.
// Pass prometheus.DefaultRegisterer in production, a fresh
// prometheus.NewRegistry() in tests.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		diagnosesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "railtrace_diagnoses_total",
				Help: "Total number of traces diagnosed, by language and severity",
			},
			[]string{"language", "severity"},
		),
		patternHits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "railtrace_pattern_matches_total",
				Help: "Curated pattern matcher outcomes, by language and matched",
			},
			[]string{"language", "matched"},
		),
		modelLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "railtrace_model_latency_seconds",
				Help:    "Model gateway call latency in seconds, by tier",
				Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
			},
			[]string{"tier"},
		),
		modelFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "railtrace_model_failures_total",
				Help: "Model gateway failures, by tier",
			},
			[]string{"tier"},
		),
		memoryLookups: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "railtrace_memory_lookup_seconds",
				Help:    "Memory store recall latency in seconds, by backend",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"backend"},
		),
		memoryHits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "railtrace_memory_hits_total",
				Help: "Memory store recall outcomes, by backend and hit",
			},
			[]string{"backend", "hit"},
		),
		vcsLookups: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "railtrace_vcs_lookup_seconds",
				Help:    "Version-control subprocess latency in seconds, by operation",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		vcsFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "railtrace_vcs_failures_total",
				Help: "Version-control subprocess failures, by operation",
			},
			[]string{"operation"},
		),
	}

	reg.MustRegister(
		c.diagnosesTotal, c.patternHits, c.modelLatency, c.modelFailures,
		c.memoryLookups, c.memoryHits, c.vcsLookups, c.vcsFailures,
	)

	return c
}

// RecordDiagnosis records a completed diagnosis.
func (c *Collector) RecordDiagnosis(language, severity string) {
	c.diagnosesTotal.WithLabelValues(language, severity).Inc()
}

// RecordPatternMatch records whether the curated matcher produced a hit.
func (c *Collector) RecordPatternMatch(language string, matched bool) {
	c.patternHits.WithLabelValues(language, boolLabel(matched)).Inc()
}

// RecordModelCall records gateway latency and, on failure, bumps the
// failure counter for the same tier.
func (c *Collector) RecordModelCall(tier string, d time.Duration, err error) {
	c.modelLatency.WithLabelValues(tier).Observe(d.Seconds())
	if err != nil {
		c.modelFailures.WithLabelValues(tier).Inc()
	}
}

// RecordMemoryLookup records a recall attempt against the given backend.
func (c *Collector) RecordMemoryLookup(backend string, d time.Duration, hit bool) {
	c.memoryLookups.WithLabelValues(backend).Observe(d.Seconds())
	c.memoryHits.WithLabelValues(backend, boolLabel(hit)).Inc()
}

// RecordVcsLookup records a git subprocess invocation.
func (c *Collector) RecordVcsLookup(operation string, d time.Duration, err error) {
	c.vcsLookups.WithLabelValues(operation).Observe(d.Seconds())
	if err != nil {
		c.vcsFailures.WithLabelValues(operation).Inc()
	}
}

func boolLabel(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
