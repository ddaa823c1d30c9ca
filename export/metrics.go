package export

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	reportJobsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "report_jobs_total",
		Help: "Number of report generation jobs by outcome",
	}, []string{"status"})

	reportRenderDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "report_render_duration_seconds",
		Help:    "Time spent rendering and printing report documents",
		Buckets: prometheus.DefBuckets,
	}, []string{"format"})
)
