package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(jobRunsTotal, webhookQueueDepth) }

var (
	jobRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scheduled_job_runs_total",
			Help:      "Total number of scheduled job runs, labeled by job and result.",
		},
		[]string{"job", "result"}, // result: 'ok', 'error'
	)

	webhookQueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "webhook_queue_depth",
			Help:      "Number of webhook deliveries waiting in the worker pool queue.",
		},
	)
)

func IncJobRun(job, result string) {
	jobRunsTotal.WithLabelValues(norm(job), norm(result)).Inc()
}

func SetWebhookQueueDepth(n int) {
	webhookQueueDepth.Set(float64(n))
}
