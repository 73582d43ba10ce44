package adapter

import (
	"context"

	"trading-academy/internal/domain/model"
)

// WebhookHandler applies the domain effect of a payment event.
type WebhookHandler interface {
	HandleEvent(ctx context.Context, evt model.WebhookEvent) error
}

// WebhookHandlerFunc adapts a plain function to WebhookHandler.
type WebhookHandlerFunc func(ctx context.Context, evt model.WebhookEvent) error

func (f WebhookHandlerFunc) HandleEvent(ctx context.Context, evt model.WebhookEvent) error {
	return f(ctx, evt)
}

// WebhookDispatcher delivers a payment_intent.succeeded event for intent to
// the registered handler. Implementations decide whether delivery is direct,
// over HTTP or queued; the returned error reports only the delivery attempt.
type WebhookDispatcher interface {
	Dispatch(ctx context.Context, intent *model.PaymentIntent) error
}
