// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package metrics exposes the Prometheus instruments of passgate.

A nil [*Metrics] is valid and records nothing, so tests and tools can build
services without a registry.
*/
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome label values.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Metrics contains the custom instruments of the auth core.
type Metrics struct {
	AuthAttempts *prometheus.CounterVec
	HashDuration prometheus.Histogram
	RateLimited  *prometheus.CounterVec
	MailFailures prometheus.Counter
}

// New creates and registers the passgate instruments on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		AuthAttempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "passgate_auth_attempts_total",
				Help: "Auth operations by operation and outcome",
			},
			[]string{"operation", "outcome"},
		),
		HashDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "passgate_hash_duration_seconds",
			Help:    "Time spent deriving password keys, including queueing for a worker slot",
			Buckets: []float64{.01, .025, .05, .1, .25, .5, 1, 2.5},
		}),
		RateLimited: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "passgate_rate_limited_total",
				Help: "Requests rejected by the auth rate limiter, by route",
			},
			[]string{"route"},
		),
		MailFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "passgate_mail_failures_total",
			Help: "Outbound emails that could not be delivered",
		}),
	}

	reg.MustRegister(m.AuthAttempts, m.HashDuration, m.RateLimited, m.MailFailures)
	return m
}

// NewRegistry returns a registry carrying the Go and process collectors.
func NewRegistry() *prometheus.Registry {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return registry
}

// Handler serves the registry in the Prometheus exposition format.
func Handler(registry *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

// # Recording

// Attempt records the outcome of an auth operation.
func (m *Metrics) Attempt(operation string, err error) {
	if m == nil {
		return
	}
	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeFailure
	}
	m.AuthAttempts.WithLabelValues(operation, outcome).Inc()
}

// ObserveHash records the duration of one key derivation started at start.
func (m *Metrics) ObserveHash(start time.Time) {
	if m == nil {
		return
	}
	m.HashDuration.Observe(time.Since(start).Seconds())
}

// RateLimitHit records a rejected request on route.
func (m *Metrics) RateLimitHit(route string) {
	if m == nil {
		return
	}
	m.RateLimited.WithLabelValues(route).Inc()
}

// MailFailure records an undeliverable email.
func (m *Metrics) MailFailure() {
	if m == nil {
		return
	}
	m.MailFailures.Inc()
}
