// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package metrics provides Prometheus metrics for the socratic dev backend.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jeranaias/socratic-tui/internal/model"
)

// Metrics holds all Prometheus metrics for the backend. Each instance owns
// its registry, so tests can create as many as they like.
type Metrics struct {
	registry *prometheus.Registry

	// HTTP request metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Reply tier metrics
	ChatRepliesTotal *prometheus.CounterVec

	// 2 = online, 1 = slow, 0 = offline
	HealthStatus prometheus.Gauge
}

// New creates and registers the backend metrics.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "socratic_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"route", "code"},
		),

		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "socratic_http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds",
				Buckets: []float64{.005, .01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"route"},
		),

		ChatRepliesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "socratic_chat_replies_total",
				Help: "Total number of chat replies by reply tier",
			},
			[]string{"tier"},
		),

		HealthStatus: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "socratic_health_status",
				Help: "Reported service health (2 online, 1 slow, 0 offline)",
			},
		),
	}
}

// RecordRequest records one finished HTTP request.
func (m *Metrics) RecordRequest(route string, code int, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(route, strconv.Itoa(code)).Inc()
	m.HTTPRequestDuration.WithLabelValues(route).Observe(duration.Seconds())
}

// RecordReply counts a reply produced by tier.
func (m *Metrics) RecordReply(tier string) {
	m.ChatRepliesTotal.WithLabelValues(tier).Inc()
}

// SetHealth updates the health gauge.
func (m *Metrics) SetHealth(status model.HealthStatus) {
	switch status {
	case model.StatusOnline:
		m.HealthStatus.Set(2)
	case model.StatusSlow:
		m.HealthStatus.Set(1)
	default:
		m.HealthStatus.Set(0)
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
