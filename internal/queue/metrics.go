package queue

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	queueJobsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "queue_jobs_total",
			Help: "Total number of queue jobs processed",
		},
		[]string{"job_type", "status"},
	)

	queueJobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "queue_job_duration_seconds",
			Help:    "Queue job processing duration in seconds",
			Buckets: []float64{0.1, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0, 60.0, 120.0},
		},
		[]string{"job_type"},
	)

	queueWorkersActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "queue_workers_active",
			Help: "Number of workers currently processing jobs",
		},
	)
)

// recordJob records the outcome of one job execution.
func recordJob(jobType string, seconds float64, err error) {
	status := "success"
	if err != nil {
		status = "failed"
	}
	queueJobsTotal.WithLabelValues(jobType, status).Inc()
	queueJobDuration.WithLabelValues(jobType).Observe(seconds)
}
