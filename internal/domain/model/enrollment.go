package model

import "time"

// CourseEnrollment is unique per (UserID, CourseID).
type CourseEnrollment struct {
	ID              string    `json:"id"`
	UserID          string    `json:"user_id"`
	CourseID        string    `json:"course_id"`
	PaymentIntentID string    `json:"payment_intent_id,omitempty"`
	EnrolledAt      time.Time `json:"enrolled_at"`
}

type RegistrationStatus string

const (
	RegistrationPending   RegistrationStatus = "PENDING"
	RegistrationConfirmed RegistrationStatus = "CONFIRMED"
	RegistrationCancelled RegistrationStatus = "CANCELLED"
)

type RegistrationPaymentStatus string

const (
	RegistrationUnpaid RegistrationPaymentStatus = "UNPAID"
	RegistrationPaid   RegistrationPaymentStatus = "PAID"
)

type EventRegistration struct {
	ID              string                    `json:"id"`
	EventID         string                    `json:"event_id"`
	UserID          string                    `json:"user_id,omitempty"`
	Email           string                    `json:"email"`
	Status          RegistrationStatus        `json:"status"`
	PaymentStatus   RegistrationPaymentStatus `json:"payment_status"`
	PaymentIntentID string                    `json:"payment_intent_id,omitempty"`
	CreatedAt       time.Time                 `json:"created_at"`
	UpdatedAt       time.Time                 `json:"updated_at"`
}

func (r *EventRegistration) ConfirmPaid(intentID string, now time.Time) {
	r.Status = RegistrationConfirmed
	r.PaymentStatus = RegistrationPaid
	if intentID != "" {
		r.PaymentIntentID = intentID
	}
	r.UpdatedAt = now
}
