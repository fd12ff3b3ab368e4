// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	AutomationPasses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "automation_passes_total",
			Help: "Total number of automation passes by scope and outcome",
		},
		[]string{"scope", "outcome"},
	)

	AutomationTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "automation_transitions_total",
			Help: "Total number of committed status transitions per rule",
		},
		[]string{"rule"},
	)

	AutomationRowsSkipped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "automation_rows_skipped_total",
			Help: "Rows skipped by a rule because their data could not be evaluated",
		},
		[]string{"rule"},
	)

	AutomationPassDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "automation_pass_duration_seconds",
			Help: "Duration of automation passes in seconds",
		},
		[]string{"scope"},
	)

	AutomationLastSuccess = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "automation_last_success_timestamp_seconds",
			Help: "Unix time of the last committed pass per job",
		},
		[]string{"job"},
	)

	NotificationsDispatched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_dispatched_total",
			Help: "External notification deliveries by channel and outcome",
		},
		[]string{"channel", "outcome"},
	)
)
