package model

import "time"

type OrderKind string

const (
	OrderSubscriptionCreate  OrderKind = "subscription_create"
	OrderSubscriptionRenewal OrderKind = "subscription_renewal"
)

type OrderStatus string

const (
	OrderPaid   OrderStatus = "paid"
	OrderFailed OrderStatus = "failed"
)

// Order is the charge row recorded by every billing step.
type Order struct {
	ID              string      `json:"id"`
	UserID          string      `json:"user_id"`
	SubscriptionID  string      `json:"subscription_id"`
	PaymentIntentID string      `json:"payment_intent_id,omitempty"`
	Kind            OrderKind   `json:"kind"`
	Amount          int64       `json:"amount"`
	Currency        string      `json:"currency"`
	Status          OrderStatus `json:"status"`
	FailureMessage  string      `json:"failure_message,omitempty"`
	CreatedAt       time.Time   `json:"created_at"`
}
