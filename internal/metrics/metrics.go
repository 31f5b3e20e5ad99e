// Copyright 2026 The ai4all-network Authors
// This file is part of the ai4all-network coordinator.

// Package metrics exposes coordinator counters/gauges on a private
// prometheus registry, grounded on the teacher's cmd/kcn wiring of
// github.com/prometheus/client_golang (there registered against the
// global DefaultRegisterer behind a metrics-enable flag; here kept
// private so an embedding binary chooses whether/how to expose it).
// There is deliberately no HTTP route here — mounting /metrics is an
// outer-surface concern left to the embedding binary.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// Registry holds every coordinator metric behind a dedicated
// registry rather than prometheus.DefaultRegisterer, so embedding this
// package twice in tests never panics on duplicate registration.
type Registry struct {
	registry *prometheus.Registry

	DaysFinalized     prometheus.Counter
	SubmissionsTotal  prometheus.Counter
	CanaryFailures    prometheus.Counter
	ActiveContributors prometheus.Gauge
	FinalizeDuration  prometheus.Histogram
	RewardPoolNano    prometheus.Gauge
}

// New builds a Registry with every metric registered.
func New() *Registry {
	reg := prometheus.NewRegistry()
	m := &Registry{
		registry: reg,
		DaysFinalized: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ai4all", Name: "days_finalized_total", Help: "Number of days the coordinator has finalized.",
		}),
		SubmissionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ai4all", Name: "submissions_total", Help: "Number of submissions processed.",
		}),
		CanaryFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ai4all", Name: "canary_failures_total", Help: "Number of failed canary blocks.",
		}),
		ActiveContributors: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "ai4all", Name: "active_contributors", Help: "Active contributors in the most recently finalized day.",
		}),
		FinalizeDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "ai4all", Name: "finalize_duration_seconds", Help: "Wall-clock duration of finalize().",
		}),
		RewardPoolNano: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "ai4all", Name: "reward_pool_nanounits", Help: "Total nanounits distributed in the most recently finalized day.",
		}),
	}
	reg.MustRegister(
		m.DaysFinalized, m.SubmissionsTotal, m.CanaryFailures,
		m.ActiveContributors, m.FinalizeDuration, m.RewardPoolNano,
	)
	return m
}

// Gather lets an external adapter (e.g. an operator's own HTTP mux)
// pull a snapshot without this package exposing an HTTP route itself.
func (m *Registry) Gather() ([]*dto.MetricFamily, error) {
	return m.registry.Gather()
}

// Registerer exposes the underlying registry for mounting with
// promhttp.HandlerFor in the embedding binary.
func (m *Registry) Registerer() *prometheus.Registry {
	return m.registry
}
