package metrics

import (
	"runtime"

	"github.com/prometheus/client_golang/prometheus"
)

func init() { register(buildInfo, dbPoolConnections, userCacheLookups) }

var (
	buildInfo = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "build_info",
			Help:      "Always 1; labels carry the running build.",
		},
		[]string{"version", "commit", "go_version"},
	)

	// state: total|idle|in_use
	dbPoolConnections = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "db",
			Name:      "pool_connections",
			Help:      "pgx pool connections by state, sampled by the pool stats job.",
		},
		[]string{"state"},
	)

	// result: hit|miss|error
	userCacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "lookups_total",
			Help:      "Redis read-through lookups by cache name and result.",
		},
		[]string{"cache", "result"},
	)
)

func SetBuildInfo(version, commit string) {
	if version == "" {
		version = "dev"
	}
	buildInfo.Reset()
	buildInfo.WithLabelValues(version, commit, runtime.Version()).Set(1)
}

func SetDBPoolStats(total, idle, inUse int32) {
	dbPoolConnections.WithLabelValues("total").Set(float64(total))
	dbPoolConnections.WithLabelValues("idle").Set(float64(idle))
	dbPoolConnections.WithLabelValues("in_use").Set(float64(inUse))
}

func IncCacheRequest(cacheName, result string) {
	userCacheLookups.WithLabelValues(norm(cacheName), norm(result)).Inc()
}
