// Copyright (C) 2026 Vinay Kumar
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package observability provides Prometheus metrics for the rule
// generation service.
//
// # Description
//
// Metrics cover the generation pipeline end to end:
//   - request counters by endpoint and status
//   - validation defect counters by error code
//   - similarity and confidence distributions
//   - generation latency and in-flight gauge
//
// # Integration
//
// Metrics are exposed via the /metrics endpoint. Use with Prometheus +
// Grafana for dashboards and alerting.
//
// # Thread Safety
//
// All metric operations are thread-safe via Prometheus's internal locking.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "rulegen"

const generationSubsystem = "generation"

// GenerationMetrics holds all Prometheus metrics for the rule generation
// pipeline. Initialize once at startup via InitMetrics().
type GenerationMetrics struct {
	// RequestsTotal counts requests by endpoint and status.
	// Labels: endpoint (generate, keys, documents), status (success, rejected, error)
	RequestsTotal *prometheus.CounterVec

	// ValidationDefectsTotal counts validation errors by code.
	// Labels: code (unknown_key, unknown_operator, type_mismatch, depth_exceeded)
	ValidationDefectsTotal *prometheus.CounterVec

	// MappingSimilarity observes the similarity of accepted key mappings.
	MappingSimilarity prometheus.Histogram

	// ConfidenceScore observes the aggregate confidence per generated rule.
	ConfidenceScore prometheus.Histogram

	// GenerationDurationSeconds measures end-to-end generation latency.
	// Labels: status (success, rejected, error)
	GenerationDurationSeconds *prometheus.HistogramVec

	// InFlight tracks currently running generation requests.
	InFlight prometheus.Gauge
}

// DefaultMetrics is the singleton instance of GenerationMetrics.
// Initialized by InitMetrics().
var DefaultMetrics *GenerationMetrics

// InitMetrics creates and registers all Prometheus metrics. Call once at
// application startup; a second call panics on duplicate registration.
func InitMetrics() *GenerationMetrics {
	DefaultMetrics = &GenerationMetrics{
		RequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: generationSubsystem,
				Name:      "requests_total",
				Help:      "Total requests by endpoint and status",
			},
			[]string{"endpoint", "status"},
		),

		ValidationDefectsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: generationSubsystem,
				Name:      "validation_defects_total",
				Help:      "Validation defects found in drafted rules, by error code",
			},
			[]string{"code"},
		),

		MappingSimilarity: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: generationSubsystem,
				Name:      "mapping_similarity",
				Help:      "Cosine similarity of accepted phrase-to-key mappings",
				Buckets:   []float64{0.2, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 0.95, 1.0},
			},
		),

		ConfidenceScore: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: generationSubsystem,
				Name:      "confidence_score",
				Help:      "Aggregate confidence per generated rule",
				Buckets:   []float64{0.2, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 0.95, 1.0},
			},
		),

		GenerationDurationSeconds: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: generationSubsystem,
				Name:      "duration_seconds",
				Help:      "End-to-end rule generation latency in seconds",
				Buckets:   []float64{0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0},
			},
			[]string{"status"},
		),

		InFlight: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Subsystem: generationSubsystem,
				Name:      "in_flight",
				Help:      "Generation requests currently being processed",
			},
		),
	}
	return DefaultMetrics
}
