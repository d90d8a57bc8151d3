// Package metrics exposes Prometheus collectors for the sync engine.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RunsTotal counts finished runs by trigger and outcome.
	RunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "biosync_runs_total",
			Help: "Total number of sync runs by trigger and outcome",
		},
		[]string{"trigger", "outcome"},
	)

	// RunDuration tracks how long a full fetch-transmit-acknowledge run takes.
	RunDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "biosync_run_duration_seconds",
			Help:    "Duration of sync runs in seconds",
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300, 600},
		},
		[]string{"trigger"},
	)

	// RunsSkipped counts runs refused because another run held the gate.
	RunsSkipped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "biosync_runs_skipped_total",
			Help: "Total number of sync runs skipped because one was already in progress",
		},
		[]string{"trigger"},
	)

	// RecordsSynced counts transaction IDs acknowledged in the local store.
	RecordsSynced = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "biosync_records_synced_total",
			Help: "Total number of punch records marked as synced",
		},
	)

	// APIRequests counts remote API calls by normalized result.
	APIRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "biosync_api_requests_total",
			Help: "Total number of remote API requests by result",
		},
		[]string{"result"}, // "accepted", "rejected", "http_error", "invalid_response", "network_error"
	)

	SchedulerRunning = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "biosync_scheduler_running",
			Help: "1 when the periodic scheduler is running",
		},
	)

	SchedulerInterval = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "biosync_scheduler_interval_minutes",
			Help: "Configured scheduler interval in minutes",
		},
	)
)

// RecordRun records the outcome and duration of one run.
func RecordRun(trigger string, success bool, duration time.Duration) {
	outcome := "success"
	if !success {
		outcome = "failure"
	}
	RunsTotal.WithLabelValues(trigger, outcome).Inc()
	RunDuration.WithLabelValues(trigger).Observe(duration.Seconds())
}

// RecordSchedulerState mirrors the scheduler state into gauges.
func RecordSchedulerState(running bool, intervalMinutes int32) {
	if running {
		SchedulerRunning.Set(1)
	} else {
		SchedulerRunning.Set(0)
	}
	SchedulerInterval.Set(float64(intervalMinutes))
}
