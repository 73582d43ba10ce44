package model

import "time"

type MentorshipPaymentStatus string

const (
	MentorshipPending   MentorshipPaymentStatus = "pending"
	MentorshipCompleted MentorshipPaymentStatus = "completed"
	MentorshipCancelled MentorshipPaymentStatus = "cancelled"
)

// MentorshipPayment is a one-off mentorship purchase. A completed one grants
// PREMIUM permanently, independent of any subscription.
type MentorshipPayment struct {
	ID              string                  `json:"id"`
	UserID          string                  `json:"user_id"`
	Amount          int64                   `json:"amount"`
	Currency        string                  `json:"currency"`
	Status          MentorshipPaymentStatus `json:"status"`
	PaymentIntentID string                  `json:"payment_intent_id,omitempty"`
	CreatedAt       time.Time               `json:"created_at"`
	CompletedAt     *time.Time              `json:"completed_at,omitempty"`
}
