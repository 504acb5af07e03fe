// Package metrics registers the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CreateAttempts counts POST /responses attempts by outcome.
	CreateAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "findash",
		Subsystem: "agent",
		Name:      "create_attempts_total",
		Help:      "Create-response attempts against the agent platform.",
	}, []string{"outcome"})

	// CreateRetries counts waits scheduled by the create-and-await loop.
	CreateRetries = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "findash",
		Subsystem: "agent",
		Name:      "create_retries_total",
		Help:      "Retries scheduled after a transient create failure.",
	})

	// Polls counts job status lookups by outcome.
	Polls = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "findash",
		Subsystem: "agent",
		Name:      "polls_total",
		Help:      "Job status lookups issued by the poll loop.",
	}, []string{"outcome"})

	// StatusUpdates counts de-duplicated status changes observed while polling.
	StatusUpdates = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "findash",
		Subsystem: "agent",
		Name:      "status_updates_total",
		Help:      "Distinct job status values observed.",
	}, []string{"status"})

	// JobDuration observes time from submission to a terminal status.
	JobDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "findash",
		Subsystem: "agent",
		Name:      "job_duration_seconds",
		Help:      "Wall-clock time until a job reached a terminal status.",
		Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 900, 1800},
	}, []string{"status"})

	// MarketRequests counts market-data calls, labelled by endpoint and
	// whether the fallback dataset was served.
	MarketRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "findash",
		Subsystem: "market",
		Name:      "requests_total",
		Help:      "Market-data requests by endpoint and source.",
	}, []string{"endpoint", "fallback"})

	// Provisioning counts session agent provisioning outcomes.
	Provisioning = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "findash",
		Subsystem: "session",
		Name:      "provisioning_total",
		Help:      "Session agent provisioning attempts by outcome.",
	}, []string{"outcome"})
)
