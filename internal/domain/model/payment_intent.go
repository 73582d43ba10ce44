package model

import (
	"strings"
	"time"

	"trading-academy/internal/domain"
)

type PaymentIntentStatus string

const (
	PaymentIntentRequiresPaymentMethod PaymentIntentStatus = "requires_payment_method"
	PaymentIntentRequiresAction        PaymentIntentStatus = "requires_action"
	PaymentIntentSucceeded             PaymentIntentStatus = "succeeded"
	PaymentIntentFailed                PaymentIntentStatus = "payment_failed"
)

// Metadata keys understood by the payment event router.
const (
	MetaUserID           = "userId"
	MetaEmail            = "email"
	MetaSubscriptionType = "subscriptionType"
	MetaPlan             = "plan"
	MetaType             = "type"
	MetaResourceID       = "resourceId"
	MetaEventID          = "eventId"
	MetaCourseID         = "courseId"
	MetaMentorshipID     = "mentorshipPaymentId"
	MetaSubscriptionID   = "subscriptionId"

	SubscriptionTypeSignals = "signals"
	TypeResourcePurchase    = "resource_purchase"
	TypeSubscriptionRenewal = "subscription_renewal"
)

type CardDetails struct {
	Brand    string `json:"brand"`
	Last4    string `json:"last4"`
	ExpMonth int    `json:"exp_month,omitempty"`
	ExpYear  int    `json:"exp_year,omitempty"`
}

// PaymentMethod is attached to an intent once a charge succeeds.
type PaymentMethod struct {
	ID   string       `json:"id"`
	Type string       `json:"type"`
	Card *CardDetails `json:"card,omitempty"`
}

// PaymentError mirrors the gateway-style last_payment_error object.
type PaymentError struct {
	Type        string `json:"type"`
	Code        string `json:"code"`
	DeclineCode string `json:"decline_code,omitempty"`
	Message     string `json:"message"`
}

type RedirectToURL struct {
	URL       string `json:"url"`
	ReturnURL string `json:"return_url,omitempty"`
}

// NextAction is set while a simulated 3-D Secure challenge is pending.
type NextAction struct {
	Type          string         `json:"type"`
	RedirectToURL *RedirectToURL `json:"redirect_to_url,omitempty"`
}

// PaymentIntent is an attempted charge moving through a small status lifecycle.
type PaymentIntent struct {
	ID               string              `json:"id"`
	Amount           int64               `json:"amount"` // minor units
	Currency         string              `json:"currency"`
	Status           PaymentIntentStatus `json:"status"`
	Metadata         map[string]string   `json:"metadata"`
	PaymentMethod    *PaymentMethod      `json:"payment_method,omitempty"`
	LastPaymentError *PaymentError       `json:"last_payment_error,omitempty"`
	NextAction       *NextAction         `json:"next_action,omitempty"`
	CreatedAt        time.Time           `json:"created_at"`
	UpdatedAt        time.Time           `json:"updated_at"`
}

// NewPaymentIntent validates input and returns an intent awaiting a payment method.
func NewPaymentIntent(id string, amount int64, currency string, metadata map[string]string) (*PaymentIntent, error) {
	if id == "" {
		return nil, domain.ErrInvalidArgument
	}
	if amount < 0 {
		return nil, domain.NewValidationError("amount", "must be greater than or equal to 0")
	}
	currency = strings.ToLower(strings.TrimSpace(currency))
	if currency == "" {
		currency = "usd"
	}
	md := make(map[string]string, len(metadata))
	for k, v := range metadata {
		md[k] = v
	}
	now := time.Now().UTC()
	return &PaymentIntent{
		ID:        id,
		Amount:    amount,
		Currency:  currency,
		Status:    PaymentIntentRequiresPaymentMethod,
		Metadata:  md,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (p *PaymentIntent) Meta(key string) string {
	if p == nil || p.Metadata == nil {
		return ""
	}
	return strings.TrimSpace(p.Metadata[key])
}

// Succeed, Fail and RequireAction each reset the fields owned by the other outcomes.

func (p *PaymentIntent) Succeed(pm *PaymentMethod) {
	p.Status = PaymentIntentSucceeded
	p.PaymentMethod = pm
	p.LastPaymentError = nil
	p.NextAction = nil
	p.UpdatedAt = time.Now().UTC()
}

func (p *PaymentIntent) Fail(perr *PaymentError) {
	p.Status = PaymentIntentFailed
	p.PaymentMethod = nil
	p.LastPaymentError = perr
	p.NextAction = nil
	p.UpdatedAt = time.Now().UTC()
}

func (p *PaymentIntent) RequireAction(next *NextAction) {
	p.Status = PaymentIntentRequiresAction
	p.PaymentMethod = nil
	p.LastPaymentError = nil
	p.NextAction = next
	p.UpdatedAt = time.Now().UTC()
}

// Clone returns a deep copy so stores never share maps with callers.
func (p *PaymentIntent) Clone() *PaymentIntent {
	if p == nil {
		return nil
	}
	cp := *p
	cp.Metadata = make(map[string]string, len(p.Metadata))
	for k, v := range p.Metadata {
		cp.Metadata[k] = v
	}
	if p.PaymentMethod != nil {
		pm := *p.PaymentMethod
		if pm.Card != nil {
			card := *pm.Card
			pm.Card = &card
		}
		cp.PaymentMethod = &pm
	}
	if p.LastPaymentError != nil {
		e := *p.LastPaymentError
		cp.LastPaymentError = &e
	}
	if p.NextAction != nil {
		na := *p.NextAction
		if na.RedirectToURL != nil {
			r := *na.RedirectToURL
			na.RedirectToURL = &r
		}
		cp.NextAction = &na
	}
	return &cp
}
