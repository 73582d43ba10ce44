package model

import "time"

type Resource struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Premium  bool   `json:"premium"`
	Price    int64  `json:"price"`
	Currency string `json:"currency"`
}

type PurchaseStatus string

const (
	PurchasePending   PurchaseStatus = "PENDING"
	PurchaseCompleted PurchaseStatus = "COMPLETED"
)

type ResourcePurchase struct {
	ID              string         `json:"id"`
	UserID          string         `json:"user_id"`
	ResourceID      string         `json:"resource_id"`
	PaymentIntentID string         `json:"payment_intent_id,omitempty"`
	Status          PurchaseStatus `json:"status"`
	CreatedAt       time.Time      `json:"created_at"`
	CompletedAt     *time.Time     `json:"completed_at,omitempty"`
}

func (p *ResourcePurchase) Complete(intentID string, now time.Time) {
	p.Status = PurchaseCompleted
	if intentID != "" {
		p.PaymentIntentID = intentID
	}
	p.CompletedAt = &now
}

// Signal is a trade idea; premium ones are gated behind the SIGNALS tier.
type Signal struct {
	ID        string    `json:"id"`
	Symbol    string    `json:"symbol"`
	Direction string    `json:"direction"`
	Premium   bool      `json:"premium"`
	CreatedAt time.Time `json:"created_at"`
}
