package metrics

import (
	"trading-academy/internal/domain/model"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(
		subscriptionTransitionsTotal,
		subscriptionRenewalsTotal,
		subscriptionsTotal,
		entitlementResolutionsTotal,
	)
}

var (
	subscriptionTransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "subscription_transitions_total",
			Help:      "Subscription status transitions, labeled by target status.",
		},
		[]string{"to"},
	)

	subscriptionRenewalsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "subscription_renewals_total",
			Help:      "Renewal charges attempted by the sweep, by result (succeeded/failed/error).",
		},
		[]string{"result"},
	)

	subscriptionsTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "subscriptions_total",
			Help:      "Current number of subscriptions by status.",
		},
		[]string{"status"},
	)

	entitlementResolutionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "entitlement_resolutions_total",
			Help:      "Entitlement resolutions by resulting tier.",
		},
		[]string{"tier"},
	)
)

func IncSubscriptionTransition(to model.SubscriptionStatus) {
	subscriptionTransitionsTotal.WithLabelValues(string(to)).Inc()
}

func IncRenewal(result string) {
	subscriptionRenewalsTotal.WithLabelValues(norm(result)).Inc()
}

func SetSubscriptionsTotal(counts map[model.SubscriptionStatus]int) {
	statuses := []model.SubscriptionStatus{
		model.SubscriptionStatusActive,
		model.SubscriptionStatusPastDue,
		model.SubscriptionStatusGracePeriod,
		model.SubscriptionStatusCanceled,
		model.SubscriptionStatusSuspended,
		model.SubscriptionStatusExpired,
	}
	for _, status := range statuses {
		subscriptionsTotal.WithLabelValues(string(status)).Set(float64(counts[status]))
	}
}

func IncEntitlement(tier model.Tier) {
	entitlementResolutionsTotal.WithLabelValues(string(tier)).Inc()
}
