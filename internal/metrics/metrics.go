// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package metrics holds the Prometheus collectors for provider traffic, the
// memoization cache, and index writes. A nil *Metrics is valid and records
// nothing, so components can be built without instrumentation.
package metrics

import (
	"fmt"
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
)

const namespace = "evidence_engine"

// Metrics groups the collectors used by the fetch client, cache, and index.
type Metrics struct {
	// FetchAttempts counts HTTP attempts against the provider, labeled by outcome
	// (ok, rate_limited, server_error, client_error, network_error).
	FetchAttempts *prometheus.CounterVec

	// FetchRetries counts backoff sleeps, labeled by reason (rate_limited, server_error).
	FetchRetries *prometheus.CounterVec

	// FetchDuration observes per-request latency in seconds including backoff.
	FetchDuration prometheus.Histogram

	// CacheLookups counts cache lookups, labeled by kind (paper, references) and result (hit, miss).
	CacheLookups *prometheus.CounterVec

	// IndexUpserts counts records written to the index.
	IndexUpserts prometheus.Counter

	// IndexSkipped counts papers dropped from writes for lacking an id.
	IndexSkipped prometheus.Counter

	// EvidenceSetSize observes the size of expanded evidence sets.
	EvidenceSetSize prometheus.Histogram
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		FetchAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "fetch",
			Name:      "attempts_total",
			Help:      "HTTP attempts against the literature provider by outcome.",
		}, []string{"outcome"}),
		FetchRetries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "fetch",
			Name:      "retries_total",
			Help:      "Backoff sleeps before retrying a provider request.",
		}, []string{"reason"}),
		FetchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "fetch",
			Name:      "duration_seconds",
			Help:      "Provider request latency including backoff.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 4, 8, 16},
		}),
		CacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "lookups_total",
			Help:      "Memoization cache lookups by kind and result.",
		}, []string{"kind", "result"}),
		IndexUpserts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "index",
			Name:      "upserts_total",
			Help:      "Records written to the semantic index.",
		}),
		IndexSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "index",
			Name:      "skipped_total",
			Help:      "Papers dropped from index writes because they had no id.",
		}),
		EvidenceSetSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "evidence",
			Name:      "set_size",
			Help:      "Size of expanded evidence sets.",
			Buckets:   prometheus.LinearBuckets(0, 20, 7),
		}),
	}

	if reg != nil {
		reg.MustRegister(
			m.FetchAttempts,
			m.FetchRetries,
			m.FetchDuration,
			m.CacheLookups,
			m.IndexUpserts,
			m.IndexSkipped,
			m.EvidenceSetSize,
		)
	}
	return m
}

// ObserveAttempt records one provider attempt.
func (m *Metrics) ObserveAttempt(outcome string) {
	if m == nil {
		return
	}
	m.FetchAttempts.WithLabelValues(outcome).Inc()
}

// ObserveRetry records one backoff sleep.
func (m *Metrics) ObserveRetry(reason string) {
	if m == nil {
		return
	}
	m.FetchRetries.WithLabelValues(reason).Inc()
}

// ObserveFetchSeconds records the latency of one logical request.
func (m *Metrics) ObserveFetchSeconds(seconds float64) {
	if m == nil {
		return
	}
	m.FetchDuration.Observe(seconds)
}

// ObserveCache records a cache lookup.
func (m *Metrics) ObserveCache(kind string, hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheLookups.WithLabelValues(kind, result).Inc()
}

// ObserveUpserts records written and skipped index records.
func (m *Metrics) ObserveUpserts(written, skipped int) {
	if m == nil {
		return
	}
	m.IndexUpserts.Add(float64(written))
	m.IndexSkipped.Add(float64(skipped))
}

// ObserveEvidenceSet records the size of an expanded evidence set.
func (m *Metrics) ObserveEvidenceSet(size int) {
	if m == nil {
		return
	}
	m.EvidenceSetSize.Observe(float64(size))
}

// WriteText writes every metric family gathered from g in the Prometheus
// text exposition format.
func WriteText(w io.Writer, g prometheus.Gatherer) error {
	families, err := g.Gather()
	if err != nil {
		return fmt.Errorf("gathering metrics: %w", err)
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return fmt.Errorf("writing metric family %s: %w", mf.GetName(), err)
		}
	}
	return nil
}
