// Copyright 2025 The FoodMap Authors
// SPDX-License-Identifier: Apache-2.0

// Package metrics exposes Prometheus collectors for the location
// resolution pipeline. A nil *Metrics is valid and records nothing.
package metrics

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "foodmap"

// Metrics holds the collectors registered by New.
type Metrics struct {
	GeocodeRequests *prometheus.CounterVec   // by provider and status
	GeocodeDuration *prometheus.HistogramVec // by provider
	Resolutions     *prometheus.CounterVec   // by strategy and outcome
	ImportRows      *prometheus.CounterVec   // by outcome

	registry *prometheus.Registry
}

// New creates the collectors and registers them on a fresh registry.
func New() (*Metrics, error) {
	return NewWithRegistry(prometheus.NewRegistry())
}

// NewWithRegistry creates the collectors and registers them on registry.
func NewWithRegistry(registry *prometheus.Registry) (*Metrics, error) {
	m := &Metrics{
		registry: registry,
		GeocodeRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "geocode_requests_total",
				Help:      "Geocoding provider calls by provider and status (ok, empty, error).",
			},
			[]string{"provider", "status"},
		),
		GeocodeDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "geocode_duration_seconds",
				Help:      "Latency of geocoding provider calls.",
				Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
			[]string{"provider"},
		),
		Resolutions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "resolution_total",
				Help:      "Location resolution attempts by strategy and outcome (hit, miss).",
			},
			[]string{"strategy", "outcome"},
		),
		ImportRows: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "import_rows_total",
				Help:      "Imported rows by outcome (resolved, unresolved, failed, added, skipped).",
			},
			[]string{"outcome"},
		),
	}

	for _, c := range []prometheus.Collector{m.GeocodeRequests, m.GeocodeDuration, m.Resolutions, m.ImportRows} {
		if err := registry.Register(c); err != nil {
			return nil, fmt.Errorf("registering metrics: %w", err)
		}
	}

	return m, nil
}

// Registry returns the registry the collectors live in.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}

	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveGeocode records one provider call.
func (m *Metrics) ObserveGeocode(provider, status string, d time.Duration) {
	if m == nil {
		return
	}

	m.GeocodeRequests.WithLabelValues(provider, status).Inc()
	m.GeocodeDuration.WithLabelValues(provider).Observe(d.Seconds())
}

// ObserveResolution records the outcome of one resolution strategy.
func (m *Metrics) ObserveResolution(strategy string, hit bool) {
	if m == nil {
		return
	}

	outcome := "miss"
	if hit {
		outcome = "hit"
	}

	m.Resolutions.WithLabelValues(strategy, outcome).Inc()
}

// AddImportRows adds n rows with the given outcome.
func (m *Metrics) AddImportRows(outcome string, n int) {
	if m == nil || n == 0 {
		return
	}

	m.ImportRows.WithLabelValues(outcome).Add(float64(n))
}
