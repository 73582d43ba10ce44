//go:build !integration

package model

import (
	"errors"
	"testing"
	"time"

	"trading-academy/internal/domain"
)

// --- PaymentIntent Model Tests ---

func TestNewPaymentIntent(t *testing.T) {
	t.Run("should create an intent awaiting a payment method", func(t *testing.T) {
		md := map[string]string{MetaCourseID: "C1"}
		pi, err := NewPaymentIntent("pi_1", 5000, " USD ", md)
		if err != nil {
			t.Fatalf("expected no error, but got: %v", err)
		}
		if pi.Status != PaymentIntentRequiresPaymentMethod {
			t.Errorf("expected status requires_payment_method, but got %s", pi.Status)
		}
		if pi.Currency != "usd" {
			t.Errorf("expected currency to be normalized to 'usd', but got %q", pi.Currency)
		}
		md[MetaCourseID] = "mutated"
		if pi.Meta(MetaCourseID) != "C1" {
			t.Error("expected metadata to be copied, not shared")
		}
	})

	t.Run("should accept a zero amount", func(t *testing.T) {
		if _, err := NewPaymentIntent("pi_2", 0, "", nil); err != nil {
			t.Fatalf("expected zero amount to be valid, got %v", err)
		}
	})

	t.Run("should reject a negative amount with field detail", func(t *testing.T) {
		_, err := NewPaymentIntent("pi_3", -1, "usd", nil)
		if !errors.Is(err, domain.ErrInvalidArgument) {
			t.Fatalf("expected ErrInvalidArgument, but got %v", err)
		}
		var verr *domain.ValidationError
		if !errors.As(err, &verr) || verr.Fields["amount"] == "" {
			t.Errorf("expected a ValidationError on 'amount', got %#v", err)
		}
	})
}

func TestPaymentIntent_Transitions(t *testing.T) {
	pi, _ := NewPaymentIntent("pi_1", 100, "usd", nil)

	pi.RequireAction(&NextAction{Type: "redirect_to_url"})
	if pi.Status != PaymentIntentRequiresAction || pi.NextAction == nil {
		t.Fatalf("expected requires_action with next_action, got %+v", pi)
	}

	pi.Fail(&PaymentError{Code: "card_declined"})
	if pi.NextAction != nil || pi.LastPaymentError == nil {
		t.Fatalf("expected failure to clear next_action and set the error, got %+v", pi)
	}

	pi.Succeed(&PaymentMethod{ID: "pm_1", Type: "card"})
	if pi.LastPaymentError != nil || pi.PaymentMethod == nil || pi.Status != PaymentIntentSucceeded {
		t.Fatalf("expected clean success, got %+v", pi)
	}

	cp := pi.Clone()
	cp.PaymentMethod.ID = "pm_other"
	if pi.PaymentMethod.ID != "pm_1" {
		t.Error("expected Clone to deep-copy the payment method")
	}
}

// --- Subscription Model Tests ---

func TestNewSubscription(t *testing.T) {
	now := time.Date(2026, 1, 31, 10, 0, 0, 0, time.UTC)

	monthly, err := NewSubscription("sub-1", "user-1", PlanMonthly, now)
	if err != nil {
		t.Fatalf("expected no error, but got: %v", err)
	}
	if !monthly.CurrentPeriodEnd.Equal(now.AddDate(0, 1, 0)) {
		t.Errorf("expected monthly period end %v, got %v", now.AddDate(0, 1, 0), monthly.CurrentPeriodEnd)
	}
	if monthly.Status != SubscriptionStatusActive {
		t.Errorf("expected ACTIVE, got %s", monthly.Status)
	}

	yearly, _ := NewSubscription("sub-2", "user-1", PlanYearly, now)
	if !yearly.CurrentPeriodEnd.Equal(now.AddDate(1, 0, 0)) {
		t.Errorf("expected yearly period end %v, got %v", now.AddDate(1, 0, 0), yearly.CurrentPeriodEnd)
	}

	if _, err := NewSubscription("sub-3", "user-1", "WEEKLY", now); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument for unknown plan, got %v", err)
	}
}

func TestSubscription_IsCurrent(t *testing.T) {
	now := time.Now()
	sub := &Subscription{Status: SubscriptionStatusActive, CurrentPeriodEnd: now.Add(-time.Minute)}
	if sub.IsCurrent(now) {
		t.Error("expected an ACTIVE row past its period end not to be current")
	}
	sub.CurrentPeriodEnd = now.Add(time.Hour)
	if !sub.IsCurrent(now) {
		t.Error("expected an ACTIVE row inside its period to be current")
	}
	sub.Status = SubscriptionStatusCanceled
	if sub.IsCurrent(now) {
		t.Error("expected a CANCELED row not to be current")
	}
}

func TestSubscription_Renew(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	t.Run("should continue from the previous period end", func(t *testing.T) {
		end := now.Add(-time.Hour)
		sub := &Subscription{Plan: PlanMonthly, Status: SubscriptionStatusPastDue, CurrentPeriodEnd: end, FailedPaymentCount: 2}
		sub.Renew(now)
		if !sub.CurrentPeriodStart.Equal(end) || !sub.CurrentPeriodEnd.Equal(end.AddDate(0, 1, 0)) {
			t.Errorf("unexpected period %v - %v", sub.CurrentPeriodStart, sub.CurrentPeriodEnd)
		}
		if sub.Status != SubscriptionStatusActive || sub.FailedPaymentCount != 0 {
			t.Errorf("expected ACTIVE with reset failures, got %s/%d", sub.Status, sub.FailedPaymentCount)
		}
	})

	t.Run("should restart from now when a whole period was missed", func(t *testing.T) {
		sub := &Subscription{Plan: PlanMonthly, Status: SubscriptionStatusActive, CurrentPeriodEnd: now.AddDate(0, -3, 0)}
		sub.Renew(now)
		if !sub.CurrentPeriodStart.Equal(now) {
			t.Errorf("expected period to restart at now, got %v", sub.CurrentPeriodStart)
		}
	})
}

func TestParsePlan(t *testing.T) {
	for in, want := range map[string]SubscriptionPlan{"": PlanMonthly, "monthly": PlanMonthly, "Yearly": PlanYearly} {
		got, err := ParsePlan(in)
		if err != nil || got != want {
			t.Errorf("ParsePlan(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	if _, err := ParsePlan("daily"); err == nil {
		t.Error("expected an error for an unknown plan")
	}
}

// --- Entitlement & User Model Tests ---

func TestEntitlement_Allows(t *testing.T) {
	none := Entitlement{Tier: TierNone}
	signals := Entitlement{Tier: TierSignals}
	premium := Entitlement{Tier: TierPremium}

	if none.Allows(TierSignals) || none.Allows(TierPremium) || !none.Allows(TierNone) {
		t.Error("NONE must only allow free content")
	}
	if !signals.Allows(TierSignals) || signals.Allows(TierPremium) {
		t.Error("SIGNALS must allow signals but not premium content")
	}
	if !premium.Allows(TierSignals) || !premium.Allows(TierPremium) {
		t.Error("PREMIUM must allow everything")
	}
}

func TestNewUser(t *testing.T) {
	u, err := NewUser("", " Trader@Example.com ", "Trader", "")
	if err != nil {
		t.Fatalf("expected no error, but got: %v", err)
	}
	if u.ID == "" || u.Email != "trader@example.com" || u.Role != RoleStudent {
		t.Errorf("unexpected user %+v", u)
	}
	if _, err := NewUser("", "", "x", RoleAdmin); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument for empty email, got %v", err)
	}
	if r, ok := ParseRole("superadmin"); !ok || !r.CanManageBilling() {
		t.Error("expected SUPERADMIN to parse and manage billing")
	}
	if RoleStudent.CanManageBilling() {
		t.Error("students must not manage billing")
	}
}
