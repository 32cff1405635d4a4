package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	CycleCount      prometheus.Counter
	CycleFailures   prometheus.Counter
	MessagesFound   prometheus.Counter
	JobsCreated     prometheus.Counter
	MessagesSkipped prometheus.Counter
	InsertFailures  prometheus.Counter
	CycleDuration   prometheus.Histogram
	LastSuccess     prometheus.Gauge
}

// NewMetrics registers the intake metrics with reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		CycleCount: factory.NewCounter(prometheus.CounterOpts{
			Name: "mail_job_intake_cycles_total",
			Help: "Total number of poll cycles started",
		}),
		CycleFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "mail_job_intake_cycle_failures_total",
			Help: "Total number of poll cycles that ended early on an error",
		}),
		MessagesFound: factory.NewCounter(prometheus.CounterOpts{
			Name: "mail_job_intake_messages_found_total",
			Help: "Total number of unread messages returned by the mailbox",
		}),
		JobsCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "mail_job_intake_jobs_created_total",
			Help: "Total number of draft jobs created",
		}),
		MessagesSkipped: factory.NewCounter(prometheus.CounterOpts{
			Name: "mail_job_intake_messages_skipped_total",
			Help: "Total number of messages skipped because a job already exists",
		}),
		InsertFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "mail_job_intake_insert_failures_total",
			Help: "Total number of messages whose lookup or insert failed",
		}),
		CycleDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "mail_job_intake_cycle_duration_seconds",
			Help:    "Time spent in one poll cycle",
			Buckets: prometheus.DefBuckets,
		}),
		LastSuccess: factory.NewGauge(prometheus.GaugeOpts{
			Name: "mail_job_intake_last_success_timestamp_seconds",
			Help: "Unix time of the last poll cycle that completed without error",
		}),
	}
}
