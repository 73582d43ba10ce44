package sched

import (
	"context"

	"trading-academy/internal/infra/metrics"
)

// PoolStats reports total, idle and in-use connections.
type PoolStats func() (total, idle, inUse int32)

// PoolStatsWorker publishes connection pool gauges.
type PoolStatsWorker struct {
	stats PoolStats
}

func NewPoolStatsWorker(stats PoolStats) *PoolStatsWorker {
	return &PoolStatsWorker{stats: stats}
}

func (w *PoolStatsWorker) Name() string { return "db_pool_stats" }

func (w *PoolStatsWorker) Run(ctx context.Context) error {
	total, idle, inUse := w.stats()
	metrics.SetDBPoolStats(total, idle, inUse)
	return nil
}
