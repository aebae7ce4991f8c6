package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	sweepTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "alert_engine_sweep_total",
			Help: "Total sweeps by mode and result (completed, skipped, failed).",
		},
		[]string{"mode", "result"},
	)
	sweepDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "alert_engine_sweep_duration_seconds",
			Help:    "Duration of alert sweeps.",
			Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		},
		[]string{"mode"},
	)
	workflowCheckTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "alert_engine_workflow_check_total",
			Help: "Total single workflow checks by result.",
		},
		[]string{"result"},
	)
	alertsCreatedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "alert_engine_alerts_created_total",
			Help: "Alert records written, one per recipient.",
		},
		[]string{"category"},
	)
	alertsSuppressedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "alert_engine_alerts_suppressed_total",
			Help: "Alert attempts vetoed by a phase override.",
		},
		[]string{"category"},
	)
	dedupHitsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "alert_engine_dedup_hits_total",
			Help: "Alert attempts skipped because the key is still cooling down.",
		},
		[]string{"category"},
	)
	recipientsUnresolvedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "alert_engine_recipients_unresolved_total",
			Help: "Alert attempts dropped because nobody could be notified.",
		},
	)
	stepErrorsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "alert_engine_step_errors_total",
			Help: "Step level failures recovered without aborting the workflow check.",
		},
	)
)
