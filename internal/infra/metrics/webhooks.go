package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		webhookDeliveriesTotal,
		webhookEventsTotal,
		webhookIngressTotal,
		webhookIngressDuration,
	)
}

var (
	// mode: sync|http|queue ; result: ok|error|retry|dropped|fallback
	webhookDeliveriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "webhook_deliveries_total",
			Help:      "Webhook delivery attempts by dispatcher mode and result.",
		},
		[]string{"mode", "result"},
	)

	// branch: signals|resource_purchase|event|course|mentorship|unhandled|ignored
	// result: applied|duplicate|error|noop
	webhookEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "webhook_events_total",
			Help:      "Payment events handled by the router, by branch and result.",
		},
		[]string{"branch", "result"},
	)

	// source: loopback|stripe ; result: ok|bad_signature|bad_payload
	webhookIngressTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "webhook_ingress_requests_total",
			Help:      "Inbound webhook HTTP requests by source and result.",
		},
		[]string{"source", "result"},
	)

	webhookIngressDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "webhook_ingress_duration_seconds",
			Help:      "Duration of inbound webhook handlers in seconds.",
			Buckets:   []float64{0.005, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		},
		[]string{"source"},
	)
)

func IncWebhookDelivery(mode, result string) {
	webhookDeliveriesTotal.WithLabelValues(norm(mode), norm(result)).Inc()
}

func IncWebhookEvent(branch, result string) {
	webhookEventsTotal.WithLabelValues(norm(branch), norm(result)).Inc()
}

func ObserveWebhookIngress(source, result string, seconds float64) {
	webhookIngressTotal.WithLabelValues(norm(source), norm(result)).Inc()
	webhookIngressDuration.WithLabelValues(norm(source)).Observe(seconds)
}
