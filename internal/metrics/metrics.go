// Farmgate - Produce Marketplace and Quality-Aware Pricing
// Copyright 2026 Farmgate Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/farmgate/farmgate

// Package metrics provides Prometheus instrumentation for:
// - API endpoint latency and throughput
// - WebSocket connections and message relay
// - Presence tracking
// - External quality-inference calls
// - Price suggestion outcomes
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// API Endpoint Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_active_requests",
			Help: "Current number of active API requests",
		},
	)

	// WebSocket Metrics
	WSConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ws_connections_active",
			Help: "Current number of open WebSocket connections",
		},
	)

	WSConnectionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ws_connections_total",
			Help: "Total number of WebSocket connections accepted",
		},
	)

	WSMessagesRelayed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ws_messages_relayed_total",
			Help: "Total number of chat messages relayed to delivery groups",
		},
		[]string{"result"}, // "delivered", "invalid", "persist_error"
	)

	// Presence Metrics
	PresenceOnlineUsers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "presence_online_users",
			Help: "Current number of distinct users considered online",
		},
	)

	// Quality Inference Metrics
	MLRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ml_request_duration_seconds",
			Help:    "Quality inference request duration in seconds",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		},
		[]string{"operation"}, // "infer", "analyze", "ping"
	)

	MLRequestErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ml_request_errors_total",
			Help: "Total number of failed quality inference requests",
		},
		[]string{"operation", "error_type"}, // "timeout", "circuit_open", "http", "decode"
	)

	// Price Suggestion Metrics
	PriceSuggestions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "price_suggestions_total",
			Help: "Total number of price suggestion computations",
		},
		[]string{"outcome"}, // "weighted", "fallback_label", "fallback_admin", "none"
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breakers",
		},
		[]string{"name", "result"}, // "success", "failure", "rejected"
	)

	// Upload Metrics
	UploadsStored = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "uploads_stored_total",
			Help: "Total number of files written to the upload store",
		},
		[]string{"kind"}, // "listing", "message", "quality"
	)

	UploadBytes = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "upload_bytes_total",
			Help: "Total bytes written to the upload store",
		},
	)
)

// RecordAPIRequest records a completed HTTP request.
func RecordAPIRequest(method, endpoint string, statusCode int, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(statusCode)).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// RecordMLRequest records an inference call outcome.
func RecordMLRequest(operation string, duration time.Duration, errType string) {
	MLRequestDuration.WithLabelValues(operation).Observe(duration.Seconds())
	if errType != "" {
		MLRequestErrors.WithLabelValues(operation, errType).Inc()
	}
}
