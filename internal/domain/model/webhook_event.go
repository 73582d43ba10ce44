package model

import "time"

const EventPaymentIntentSucceeded = "payment_intent.succeeded"

type WebhookEventData struct {
	Object *PaymentIntent `json:"object"`
}

// WebhookEvent is the envelope delivered to the payment event router,
// shaped like a provider webhook.
type WebhookEvent struct {
	ID      string           `json:"id"`
	Type    string           `json:"type"`
	Data    WebhookEventData `json:"data"`
	Created int64            `json:"created"`
}

func NewPaymentSucceededEvent(id string, intent *PaymentIntent) WebhookEvent {
	return WebhookEvent{
		ID:      id,
		Type:    EventPaymentIntentSucceeded,
		Data:    WebhookEventData{Object: intent.Clone()},
		Created: time.Now().Unix(),
	}
}
