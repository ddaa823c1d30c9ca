package inspection

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	checklistFallbackTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "checklist_fallback_total",
		Help: "Number of checklist loads served from the fallback checklist",
	})

	reconcileRowsCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "reconcile_rows_created_total",
		Help: "Number of pending result rows created by reconciliation",
	})

	reconcileFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "reconcile_insert_failures_total",
		Help: "Number of pending result rows reconciliation failed to create",
	})

	resultPersistFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "result_persist_failures_total",
		Help: "Number of activity result writes that did not take effect",
	}, []string{"field"})

	resultCorrectionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "result_corrections_total",
		Help: "Number of corrective writes issued after read-back disagreed",
	}, []string{"field"})

	reportsSubmittedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reports_submitted_total",
		Help: "Number of trip reports moved out of draft",
	}, []string{"path", "confirmed"})

	reportsReviewedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reports_reviewed_total",
		Help: "Number of trip reports approved or rejected",
	}, []string{"decision"})
)
