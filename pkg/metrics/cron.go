package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// CronJobMetrics records runs of the retention jobs.
type CronJobMetrics struct {
	duration *prometheus.HistogramVec
	runs     *prometheus.CounterVec
	rows     *prometheus.CounterVec
}

// NewCronJobMetrics registers the cron job metrics on the provided registerer.
func NewCronJobMetrics(reg prometheus.Registerer) *CronJobMetrics {
	if reg == nil {
		return &CronJobMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "cron_job_duration_seconds",
		Help:    "Duration of cron jobs in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"job"})
	runs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cron_job_runs_total",
		Help: "Cron job executions, by outcome.",
	}, []string{"job", "outcome"})
	rows := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cron_job_rows_deleted_total",
		Help: "Rows removed by retention jobs.",
	}, []string{"job"})
	reg.MustRegister(duration, runs, rows)
	return &CronJobMetrics{
		duration: duration,
		runs:     runs,
		rows:     rows,
	}
}

// ObserveRun records one execution of the named job.
func (c *CronJobMetrics) ObserveRun(job string, duration time.Duration, err error) {
	if c == nil || c.duration == nil {
		return
	}
	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeFailure
	}
	c.duration.WithLabelValues(normalizeLabel(job)).Observe(duration.Seconds())
	c.runs.WithLabelValues(normalizeLabel(job), outcome).Inc()
}

// AddRowsDeleted counts rows a retention job removed.
func (c *CronJobMetrics) AddRowsDeleted(job string, rows int64) {
	if c == nil || c.rows == nil || rows <= 0 {
		return
	}
	c.rows.WithLabelValues(normalizeLabel(job)).Add(float64(rows))
}
