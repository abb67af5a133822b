// Package metrics defines the prometheus instruments shared across the
// api and worker processes.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Label value constants to prevent typos
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

var (
	CompletionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coach_completions_total",
			Help: "Completion requests by backend and result",
		},
		[]string{"backend", "result"},
	)

	CompletionSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "coach_completion_duration_seconds",
			Help:    "Wall-clock completion latency by backend",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{"backend"},
	)

	SyncsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coach_garmin_syncs_total",
			Help: "Garmin sync jobs by result",
		},
		[]string{"result"},
	)

	ActivitiesSynced = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "coach_garmin_activities_synced_total",
			Help: "Activity records written by the sync worker",
		},
	)
)
