package model

import (
	"strings"
	"time"

	"trading-academy/internal/domain"
)

type SubscriptionStatus string

const (
	SubscriptionStatusActive      SubscriptionStatus = "ACTIVE"
	SubscriptionStatusPastDue     SubscriptionStatus = "PAST_DUE"
	SubscriptionStatusGracePeriod SubscriptionStatus = "GRACE_PERIOD"
	SubscriptionStatusCanceled    SubscriptionStatus = "CANCELED"
	SubscriptionStatusSuspended   SubscriptionStatus = "SUSPENDED"
	SubscriptionStatusExpired     SubscriptionStatus = "EXPIRED"
)

type SubscriptionPlan string

const (
	PlanMonthly SubscriptionPlan = "MONTHLY"
	PlanYearly  SubscriptionPlan = "YEARLY"
)

// ParsePlan accepts any casing; empty input defaults to MONTHLY.
func ParsePlan(s string) (SubscriptionPlan, error) {
	switch SubscriptionPlan(strings.ToUpper(strings.TrimSpace(s))) {
	case "", PlanMonthly:
		return PlanMonthly, nil
	case PlanYearly:
		return PlanYearly, nil
	}
	return "", domain.NewValidationError("plan", "must be MONTHLY or YEARLY")
}

// PeriodEnd returns the end of a billing period starting at start.
func (p SubscriptionPlan) PeriodEnd(start time.Time) time.Time {
	if p == PlanYearly {
		return start.AddDate(0, 12, 0)
	}
	return start.AddDate(0, 1, 0)
}

// Subscription is a user's signals subscription.
type Subscription struct {
	ID                 string             `json:"id"`
	UserID             string             `json:"user_id"`
	Plan               SubscriptionPlan   `json:"plan"`
	Status             SubscriptionStatus `json:"status"`
	CurrentPeriodStart time.Time          `json:"current_period_start"`
	CurrentPeriodEnd   time.Time          `json:"current_period_end"`
	FailedPaymentCount int                `json:"failed_payment_count"`
	GracePeriodEndsAt  *time.Time         `json:"grace_period_ends_at,omitempty"`
	CanceledAt         *time.Time         `json:"canceled_at,omitempty"`
	CancelReason       string             `json:"cancel_reason,omitempty"`
	CreatedAt          time.Time          `json:"created_at"`
	UpdatedAt          time.Time          `json:"updated_at"`
}

// NewSubscription creates an ACTIVE subscription whose first period starts at now.
func NewSubscription(id, userID string, plan SubscriptionPlan, now time.Time) (*Subscription, error) {
	if id == "" || userID == "" {
		return nil, domain.ErrInvalidArgument
	}
	if plan != PlanMonthly && plan != PlanYearly {
		return nil, domain.NewValidationError("plan", "must be MONTHLY or YEARLY")
	}
	return &Subscription{
		ID:                 id,
		UserID:             userID,
		Plan:               plan,
		Status:             SubscriptionStatusActive,
		CurrentPeriodStart: now,
		CurrentPeriodEnd:   plan.PeriodEnd(now),
		CreatedAt:          now,
		UpdatedAt:          now,
	}, nil
}

// IsCurrent reports whether an ACTIVE row is still inside its paid period.
// The stored status alone is not trusted.
func (s *Subscription) IsCurrent(now time.Time) bool {
	return s != nil && s.Status == SubscriptionStatusActive && !s.CurrentPeriodEnd.Before(now)
}

// InGrace reports whether the subscription is inside a dunning grace window.
func (s *Subscription) InGrace(now time.Time) bool {
	return s != nil && s.Status == SubscriptionStatusGracePeriod &&
		s.GracePeriodEndsAt != nil && !s.GracePeriodEndsAt.Before(now)
}

// Renew advances the billing period by one plan interval.
func (s *Subscription) Renew(now time.Time) {
	start := s.CurrentPeriodEnd
	if start.IsZero() || start.After(now) {
		start = now
	}
	end := s.Plan.PeriodEnd(start)
	if !end.After(now) {
		// a period missed entirely is not back-billed
		start, end = now, s.Plan.PeriodEnd(now)
	}
	s.CurrentPeriodStart = start
	s.CurrentPeriodEnd = end
	s.Status = SubscriptionStatusActive
	s.FailedPaymentCount = 0
	s.GracePeriodEndsAt = nil
	s.UpdatedAt = now
}

func (s *Subscription) Cancel(reason string, now time.Time) {
	s.Status = SubscriptionStatusCanceled
	s.CancelReason = strings.TrimSpace(reason)
	s.CanceledAt = &now
	s.UpdatedAt = now
}
