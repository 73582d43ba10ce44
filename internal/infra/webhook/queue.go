package webhook

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"trading-academy/internal/domain/model"
	"trading-academy/internal/domain/ports/adapter"
	"trading-academy/internal/infra/logging"
	"trading-academy/internal/infra/metrics"
	"trading-academy/internal/infra/worker"
)

// QueueDispatcher delivers through the worker pool with bounded retries.
// Delivery is at-least-once; the router's idempotency claim absorbs repeats.
type QueueDispatcher struct {
	pool    *worker.Pool
	sync    *SyncDispatcher
	retries int
	backoff time.Duration
	log     *zerolog.Logger
}

var _ adapter.WebhookDispatcher = (*QueueDispatcher)(nil)

func NewQueueDispatcher(pool *worker.Pool, sync *SyncDispatcher, retries int, backoff time.Duration, logger *zerolog.Logger) *QueueDispatcher {
	if retries <= 0 {
		retries = 1
	}
	return &QueueDispatcher{
		pool:    pool,
		sync:    sync,
		retries: retries,
		backoff: backoff,
		log:     logging.Component(logger, "webhook_queue"),
	}
}

// Dispatch enqueues and returns. When the queue is full it delivers inline
// so a succeeded payment is never dropped.
func (d *QueueDispatcher) Dispatch(ctx context.Context, pi *model.PaymentIntent) error {
	evt := NewEvent(pi)
	// the request context ends with the request; keep its values only
	detached := context.WithoutCancel(ctx)

	err := d.pool.Submit(func(workerCtx context.Context) error {
		metrics.SetWebhookQueueDepth(d.pool.Len())
		ctx, cancel := context.WithCancel(detached)
		defer cancel()
		stop := context.AfterFunc(workerCtx, cancel)
		defer stop()
		return d.deliverWithRetry(ctx, evt)
	})
	metrics.SetWebhookQueueDepth(d.pool.Len())
	if err == nil {
		metrics.IncWebhookDelivery(ModeQueue, "queued")
		return nil
	}
	if errors.Is(err, worker.ErrQueueFull) || errors.Is(err, worker.ErrStopped) {
		metrics.IncWebhookDelivery(ModeQueue, "fallback")
		logging.With(ctx, d.log).Warn().Err(err).Str("event_id", evt.ID).Msg("queue unavailable, delivering inline")
		return d.sync.deliver(ctx, evt)
	}
	return err
}

func (d *QueueDispatcher) deliverWithRetry(ctx context.Context, evt model.WebhookEvent) error {
	var err error
	for attempt := 1; attempt <= d.retries; attempt++ {
		if err = d.sync.handler.HandleEvent(ctx, evt); err == nil {
			metrics.IncWebhookDelivery(ModeQueue, "ok")
			return nil
		}
		logging.With(ctx, d.log).Warn().Err(err).Str("event_id", evt.ID).Int("attempt", attempt).Msg("queued delivery failed")
		if attempt == d.retries {
			break
		}
		select {
		case <-ctx.Done():
			metrics.IncWebhookDelivery(ModeQueue, "error")
			return ctx.Err()
		case <-time.After(d.backoff * time.Duration(attempt)):
		}
	}
	metrics.IncWebhookDelivery(ModeQueue, "error")
	return err
}
