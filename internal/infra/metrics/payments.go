package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(intentsTotal, settledAmountTotal, declinesTotal) }

var (
	// status: created or the status an intent ends a confirm in
	intentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "payments",
			Name:      "intents_total",
			Help:      "Payment intents created and confirmation outcomes by status.",
		},
		[]string{"status"},
	)

	settledAmountTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "payments",
			Name:      "settled_minor_units_total",
			Help:      "Sum of succeeded intent amounts in minor units, by currency.",
		},
		[]string{"currency"},
	)

	declinesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "payments",
			Name:      "declines_total",
			Help:      "Failed confirmations by decline code.",
		},
		[]string{"decline_code"},
	)
)

func IncPayment(status string) {
	intentsTotal.WithLabelValues(norm(status)).Inc()
}

func AddPaymentRevenue(currency string, amount int64) {
	if amount <= 0 {
		return
	}
	settledAmountTotal.WithLabelValues(norm(currency)).Add(float64(amount))
}

func IncDecline(code string) {
	if code == "" {
		code = "unknown"
	}
	declinesTotal.WithLabelValues(norm(code)).Inc()
}
