package webhook

import (
	"context"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"trading-academy/internal/config"
	"trading-academy/internal/domain/model"
	"trading-academy/internal/domain/ports/adapter"
	"trading-academy/internal/infra/logging"
	"trading-academy/internal/infra/metrics"
	"trading-academy/internal/infra/worker"
)

const (
	ModeSync  = "sync"
	ModeHTTP  = "http"
	ModeQueue = "queue"
)

func newEventID() string { return "evt_" + ulid.Make().String() }

// NewEvent wraps a succeeded intent in a provider-shaped envelope.
func NewEvent(pi *model.PaymentIntent) model.WebhookEvent {
	return model.NewPaymentSucceededEvent(newEventID(), pi)
}

// New builds the dispatcher selected by cfg.Mode. pool is only used in
// queue mode and must already be started.
func New(cfg config.WebhookConfig, handler adapter.WebhookHandler, pool *worker.Pool, logger *zerolog.Logger) (adapter.WebhookDispatcher, error) {
	sync := NewSyncDispatcher(handler, logger)
	switch cfg.Mode {
	case "", ModeSync:
		return sync, nil
	case ModeHTTP:
		return NewHTTPDispatcher(cfg.URL, cfg.Secret, cfg.Retries, cfg.Backoff, logger), nil
	case ModeQueue:
		if pool == nil {
			return nil, fmt.Errorf("webhook: queue mode needs a worker pool")
		}
		return NewQueueDispatcher(pool, sync, cfg.Retries, cfg.Backoff, logger), nil
	}
	return nil, fmt.Errorf("webhook: unknown mode %q", cfg.Mode)
}

// SyncDispatcher hands the event straight to the router in the caller's goroutine.
type SyncDispatcher struct {
	handler adapter.WebhookHandler
	log     *zerolog.Logger
}

var _ adapter.WebhookDispatcher = (*SyncDispatcher)(nil)

func NewSyncDispatcher(handler adapter.WebhookHandler, logger *zerolog.Logger) *SyncDispatcher {
	return &SyncDispatcher{handler: handler, log: logging.Component(logger, "webhook_sync")}
}

func (d *SyncDispatcher) Dispatch(ctx context.Context, pi *model.PaymentIntent) error {
	return d.deliver(ctx, NewEvent(pi))
}

func (d *SyncDispatcher) deliver(ctx context.Context, evt model.WebhookEvent) error {
	start := time.Now()
	err := d.handler.HandleEvent(ctx, evt)
	result := "ok"
	if err != nil {
		result = "error"
	}
	metrics.IncWebhookDelivery(ModeSync, result)
	logging.With(ctx, d.log).Debug().
		Str("event_id", evt.ID).
		Dur("took", time.Since(start)).
		Err(err).
		Msg("webhook delivered")
	return err
}
