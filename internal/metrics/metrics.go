// Terascout - Event Intelligence Scouts
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/terascout

// Package metrics defines the Prometheus instruments exported at /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ScoutsActive tracks the number of engines currently running.
	ScoutsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "terascout_scouts_active",
		Help: "Number of scout engines currently running",
	})

	// CyclesTotal counts completed poll cycles by outcome.
	CyclesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "terascout_cycles_total",
		Help: "Completed poll cycles by outcome (ok, expired, error)",
	}, []string{"outcome"})

	// FetchesTotal counts source fetches by result.
	FetchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "terascout_fetches_total",
		Help: "Source fetches by result (ok, error)",
	}, []string{"result"})

	// EventsRecordedTotal counts events inserted into scout event logs.
	EventsRecordedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "terascout_events_recorded_total",
		Help: "Events inserted into scout event logs",
	})

	// EmailsSentTotal counts notification emails dispatched.
	EmailsSentTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "terascout_emails_sent_total",
		Help: "Notification emails dispatched",
	})

	// EmailsSuppressedTotal counts events whose notification was gated by
	// the daily rate limit.
	EmailsSuppressedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "terascout_emails_suppressed_total",
		Help: "Events recorded without notification due to the daily email cap",
	})

	// AICallsTotal counts model calls by status.
	AICallsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "terascout_ai_calls_total",
		Help: "Anthropic API calls by status (ok, error)",
	}, []string{"status"})

	// AICallDuration observes model call latency.
	AICallDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "terascout_ai_call_duration_seconds",
		Help:    "Anthropic API call duration",
		Buckets: prometheus.DefBuckets,
	})

	// HTTPRequestsTotal counts control-plane requests by route and status.
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "terascout_http_requests_total",
		Help: "Control-plane HTTP requests by method, route, and status",
	}, []string{"method", "route", "status"})
)
