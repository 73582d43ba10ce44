//go:build !integration

package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"trading-academy/internal/domain"
	"trading-academy/internal/domain/model"
	"trading-academy/internal/usecase"
)

func TestSubscriptionUseCase_CreateSubscription(t *testing.T) {
	ctx := context.Background()

	t.Run("should create an ACTIVE monthly subscription and record an order", func(t *testing.T) {
		// --- Arrange ---
		f := newFixture(t, fixtureOpts{})

		// --- Act ---
		sub, err := f.subscription.CreateSubscription(ctx, "u1", model.PlanMonthly, nil)

		// --- Assert ---
		if err != nil {
			t.Fatalf("expected no error, but got: %v", err)
		}
		if sub.Status != model.SubscriptionStatusActive {
			t.Errorf("expected ACTIVE, got %s", sub.Status)
		}
		if want := f.now.AddDate(0, 1, 0); !sub.CurrentPeriodEnd.Equal(want) {
			t.Errorf("expected period end %v, got %v", want, sub.CurrentPeriodEnd)
		}
		orders, _ := f.orders.ListBySubscription(ctx, nil, sub.ID)
		if len(orders) != 1 || orders[0].Kind != model.OrderSubscriptionCreate || orders[0].Amount != 4900 {
			t.Errorf("expected one subscription_create order of 4900, got %+v", orders)
		}
	})

	t.Run("should use twelve months for YEARLY", func(t *testing.T) {
		f := newFixture(t, fixtureOpts{})
		sub, err := f.subscription.CreateSubscription(ctx, "u1", model.PlanYearly, nil)
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		if want := f.now.AddDate(0, 12, 0); !sub.CurrentPeriodEnd.Equal(want) {
			t.Errorf("expected period end %v, got %v", want, sub.CurrentPeriodEnd)
		}
	})

	t.Run("should refuse to stack a second ACTIVE subscription", func(t *testing.T) {
		f := newFixture(t, fixtureOpts{})
		if _, err := f.subscription.CreateSubscription(ctx, "u1", model.PlanMonthly, nil); err != nil {
			t.Fatalf("first: %v", err)
		}

		_, err := f.subscription.CreateSubscription(ctx, "u1", model.PlanYearly, nil)

		if !errors.Is(err, domain.ErrActiveSubscriptionExists) {
			t.Fatalf("expected ErrActiveSubscriptionExists, got %v", err)
		}
		counts, _ := f.subs.CountByStatus(ctx, nil)
		if counts[model.SubscriptionStatusActive] != 1 {
			t.Errorf("expected 1 ACTIVE row, got %d", counts[model.SubscriptionStatusActive])
		}
	})

	t.Run("should replace a lapsed ACTIVE row", func(t *testing.T) {
		f := newFixture(t, fixtureOpts{})
		f.addSubscription(t, "old", "u1", model.PlanMonthly, f.now.AddDate(0, -3, 0))

		sub, err := f.subscription.CreateSubscription(ctx, "u1", model.PlanMonthly, nil)
		if err != nil {
			t.Fatalf("expected a new subscription, got %v", err)
		}
		old, _ := f.subs.FindByID(ctx, nil, "old")
		if old.Status != model.SubscriptionStatusExpired {
			t.Errorf("expected the lapsed row to be EXPIRED, got %s", old.Status)
		}
		if sub.ID == "old" {
			t.Error("expected a fresh row")
		}
	})

	t.Run("should take the order amount from the paying intent", func(t *testing.T) {
		f := newFixture(t, fixtureOpts{})
		pi, _ := model.NewPaymentIntent("pi_paid", 3900, "eur", nil)

		sub, err := f.subscription.CreateSubscription(ctx, "u1", model.PlanMonthly, pi)
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		orders, _ := f.orders.ListBySubscription(ctx, nil, sub.ID)
		if len(orders) != 1 || orders[0].Amount != 3900 || orders[0].Currency != "eur" || orders[0].PaymentIntentID != "pi_paid" {
			t.Errorf("unexpected order: %+v", orders)
		}
	})
}

func TestSubscriptionUseCase_CancelSubscription(t *testing.T) {
	ctx := context.Background()

	t.Run("owner can cancel", func(t *testing.T) {
		f := newFixture(t, fixtureOpts{})
		sub, _ := f.subscription.CreateSubscription(ctx, "u1", model.PlanMonthly, nil)

		got, err := f.subscription.CancelSubscription(ctx, usecase.Actor{UserID: "u1", Role: model.RoleStudent}, sub.ID, " moving on ")
		if err != nil {
			t.Fatalf("cancel: %v", err)
		}
		if got.Status != model.SubscriptionStatusCanceled || got.CanceledAt == nil || got.CancelReason != "moving on" {
			t.Errorf("unexpected canceled row: %+v", got)
		}
	})

	t.Run("another student is forbidden", func(t *testing.T) {
		f := newFixture(t, fixtureOpts{})
		sub, _ := f.subscription.CreateSubscription(ctx, "u1", model.PlanMonthly, nil)

		_, err := f.subscription.CancelSubscription(ctx, usecase.Actor{UserID: "u2", Role: model.RoleStudent}, sub.ID, "")
		if !errors.Is(err, domain.ErrForbidden) {
			t.Fatalf("expected ErrForbidden, got %v", err)
		}
	})

	t.Run("support staff can cancel for a user", func(t *testing.T) {
		f := newFixture(t, fixtureOpts{})
		sub, _ := f.subscription.CreateSubscription(ctx, "u1", model.PlanMonthly, nil)

		if _, err := f.subscription.CancelSubscription(ctx, usecase.Actor{UserID: "agent", Role: model.RoleSupport}, sub.ID, "refund"); err != nil {
			t.Fatalf("expected staff cancel to succeed, got %v", err)
		}
	})

	t.Run("unknown subscription is not found", func(t *testing.T) {
		f := newFixture(t, fixtureOpts{})
		if _, err := f.subscription.CancelSubscription(ctx, usecase.Actor{UserID: "u1"}, "nope", ""); !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("cancel is idempotent", func(t *testing.T) {
		f := newFixture(t, fixtureOpts{})
		sub, _ := f.subscription.CreateSubscription(ctx, "u1", model.PlanMonthly, nil)
		actor := usecase.Actor{UserID: "u1"}
		if _, err := f.subscription.CancelSubscription(ctx, actor, sub.ID, "a"); err != nil {
			t.Fatalf("first cancel: %v", err)
		}
		got, err := f.subscription.CancelSubscription(ctx, actor, sub.ID, "b")
		if err != nil {
			t.Fatalf("second cancel: %v", err)
		}
		if got.CancelReason != "a" {
			t.Errorf("expected the first reason to stick, got %q", got.CancelReason)
		}
	})
}

func TestSubscriptionUseCase_GetCurrent(t *testing.T) {
	ctx := context.Background()

	t.Run("returns the live row untouched", func(t *testing.T) {
		f := newFixture(t, fixtureOpts{})
		f.addSubscription(t, "s1", "u1", model.PlanMonthly, f.now)
		got, err := f.subscription.GetCurrent(ctx, "u1")
		if err != nil || got.Status != model.SubscriptionStatusActive {
			t.Fatalf("expected ACTIVE, got %+v, %v", got, err)
		}
	})

	t.Run("expires a row that lapsed past the renewal window", func(t *testing.T) {
		f := newFixture(t, fixtureOpts{expireAfter: time.Hour})
		f.addSubscription(t, "s1", "u1", model.PlanMonthly, f.now.AddDate(0, -2, 0))

		got, err := f.subscription.GetCurrent(ctx, "u1")
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if got.Status != model.SubscriptionStatusExpired {
			t.Errorf("expected EXPIRED, got %s", got.Status)
		}
		stored, _ := f.subs.FindByID(ctx, nil, "s1")
		if stored.Status != model.SubscriptionStatusExpired {
			t.Errorf("expected EXPIRED to be persisted, got %s", stored.Status)
		}
	})

	t.Run("no subscription is not found", func(t *testing.T) {
		f := newFixture(t, fixtureOpts{})
		if _, err := f.subscription.GetCurrent(ctx, "u1"); !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestSubscriptionUseCase_ProcessDueSubscriptions(t *testing.T) {
	ctx := context.Background()

	t.Run("successful renewal extends the period", func(t *testing.T) {
		// --- Arrange ---
		f := newFixture(t, fixtureOpts{})
		f.random.Set(0.1)
		s := f.addSubscription(t, "s1", "u1", model.PlanMonthly, f.now.AddDate(0, -1, 0).Add(-time.Hour))
		oldEnd := s.CurrentPeriodEnd

		// --- Act ---
		res, err := f.subscription.ProcessDueSubscriptions(ctx)

		// --- Assert ---
		if err != nil {
			t.Fatalf("sweep: %v", err)
		}
		if res.Due != 1 || res.Renewed != 1 {
			t.Fatalf("unexpected result %+v", res)
		}
		got, _ := f.subs.FindByID(ctx, nil, "s1")
		if !got.CurrentPeriodEnd.Equal(oldEnd.AddDate(0, 1, 0)) {
			t.Errorf("expected period to continue from %v, got %v", oldEnd, got.CurrentPeriodEnd)
		}
		orders, _ := f.orders.ListBySubscription(ctx, nil, "s1")
		if len(orders) != 1 || orders[0].Kind != model.OrderSubscriptionRenewal || orders[0].Status != model.OrderPaid {
			t.Errorf("expected one paid renewal order, got %+v", orders)
		}
		if f.dispatcher.Count() != 1 {
			t.Errorf("expected the renewal intent to be dispatched once, got %d", f.dispatcher.Count())
		}
		if n, _ := f.subs.CountByStatus(ctx, nil); n[model.SubscriptionStatusActive] != 1 {
			t.Errorf("renewal must not create rows, got %v", n)
		}
	})

	t.Run("failed renewal without dunning only records a failed order", func(t *testing.T) {
		f := newFixture(t, fixtureOpts{})
		f.random.Set(0.99)
		f.addSubscription(t, "s1", "u1", model.PlanMonthly, f.now.AddDate(0, -1, 0).Add(-time.Hour))

		res, err := f.subscription.ProcessDueSubscriptions(ctx)
		if err != nil {
			t.Fatalf("sweep: %v", err)
		}
		if res.Failed != 1 || res.Renewed != 0 {
			t.Fatalf("unexpected result %+v", res)
		}
		got, _ := f.subs.FindByID(ctx, nil, "s1")
		if got.Status != model.SubscriptionStatusActive || got.FailedPaymentCount != 0 {
			t.Errorf("expected the row untouched, got %+v", got)
		}
		orders, _ := f.orders.ListBySubscription(ctx, nil, "s1")
		if len(orders) != 1 || orders[0].Status != model.OrderFailed || orders[0].FailureMessage == "" {
			t.Errorf("expected one failed order with a message, got %+v", orders)
		}
	})

	t.Run("failed renewal long after the period end expires the row", func(t *testing.T) {
		f := newFixture(t, fixtureOpts{expireAfter: time.Hour})
		f.random.Set(0.99)
		f.addSubscription(t, "s1", "u1", model.PlanMonthly, f.now.AddDate(0, -2, 0))

		res, _ := f.subscription.ProcessDueSubscriptions(ctx)
		if res.Expired != 1 {
			t.Fatalf("expected one expiry, got %+v", res)
		}
		got, _ := f.subs.FindByID(ctx, nil, "s1")
		if got.Status != model.SubscriptionStatusExpired {
			t.Errorf("expected EXPIRED, got %s", got.Status)
		}
	})

	t.Run("dunning walks PAST_DUE, GRACE_PERIOD then SUSPENDED", func(t *testing.T) {
		// --- Arrange ---
		f := newFixture(t, fixtureOpts{dunning: usecase.DunningPolicy{Enabled: true, MaxAttempts: 2, GracePeriod: 48 * time.Hour}})
		f.random.Set(0.99)
		f.addSubscription(t, "s1", "u1", model.PlanMonthly, f.now.AddDate(0, -1, 0).Add(-time.Hour))

		// --- Act & Assert ---
		_, _ = f.subscription.ProcessDueSubscriptions(ctx)
		got, _ := f.subs.FindByID(ctx, nil, "s1")
		if got.Status != model.SubscriptionStatusPastDue || got.FailedPaymentCount != 1 {
			t.Fatalf("after 1st failure expected PAST_DUE/1, got %s/%d", got.Status, got.FailedPaymentCount)
		}

		_, _ = f.subscription.ProcessDueSubscriptions(ctx)
		got, _ = f.subs.FindByID(ctx, nil, "s1")
		if got.Status != model.SubscriptionStatusGracePeriod || got.GracePeriodEndsAt == nil {
			t.Fatalf("after 2nd failure expected GRACE_PERIOD, got %+v", got)
		}
		if ent, _ := f.entitlements.Resolve(ctx, "u1"); ent.Tier != model.TierSignals {
			t.Errorf("expected SIGNALS during grace, got %s", ent.Tier)
		}

		f.now = f.now.Add(72 * time.Hour)
		res, _ := f.subscription.ProcessDueSubscriptions(ctx)
		got, _ = f.subs.FindByID(ctx, nil, "s1")
		if got.Status != model.SubscriptionStatusSuspended || res.Suspended != 1 {
			t.Fatalf("expected SUSPENDED after grace, got %s (%+v)", got.Status, res)
		}
		if ent, _ := f.entitlements.Resolve(ctx, "u1"); ent.Tier != model.TierNone {
			t.Errorf("expected NONE once suspended, got %s", ent.Tier)
		}
	})

	t.Run("dunning recovers on a later successful charge", func(t *testing.T) {
		f := newFixture(t, fixtureOpts{dunning: usecase.DunningPolicy{Enabled: true, MaxAttempts: 3, GracePeriod: time.Hour}})
		f.random.Set(0.99, 0.1)
		f.addSubscription(t, "s1", "u1", model.PlanMonthly, f.now.AddDate(0, -1, 0).Add(-time.Hour))

		_, _ = f.subscription.ProcessDueSubscriptions(ctx)
		_, _ = f.subscription.ProcessDueSubscriptions(ctx)

		got, _ := f.subs.FindByID(ctx, nil, "s1")
		if got.Status != model.SubscriptionStatusActive || got.FailedPaymentCount != 0 || !got.CurrentPeriodEnd.After(f.now) {
			t.Errorf("expected a recovered ACTIVE row, got %+v", got)
		}
	})

	t.Run("nothing due", func(t *testing.T) {
		f := newFixture(t, fixtureOpts{})
		f.addSubscription(t, "s1", "u1", model.PlanMonthly, f.now)
		res, err := f.subscription.ProcessDueSubscriptions(ctx)
		if err != nil || res.Due != 0 {
			t.Errorf("expected an empty sweep, got %+v, %v", res, err)
		}
	})

	t.Run("cancel during the renewal charge keeps the row canceled", func(t *testing.T) {
		// --- Arrange ---
		charger := &interleavingCharger{}
		f := newFixture(t, fixtureOpts{wrapCharger: func(c usecase.Charger) usecase.Charger {
			charger.Charger = c
			return charger
		}})
		f.random.Set(0.1)
		s := f.addSubscription(t, "s1", "u1", model.PlanMonthly, f.now.AddDate(0, -1, 0).Add(-time.Hour))
		oldEnd := s.CurrentPeriodEnd
		charger.during = func(ctx context.Context) {
			if _, err := f.subscription.CancelSubscription(ctx, usecase.Actor{UserID: "u1", Role: model.RoleStudent}, "s1", "changed my mind"); err != nil {
				t.Errorf("cancel: %v", err)
			}
		}

		// --- Act ---
		res, err := f.subscription.ProcessDueSubscriptions(ctx)

		// --- Assert ---
		if err != nil {
			t.Fatalf("sweep: %v", err)
		}
		if res.Due != 1 || res.Skipped != 1 || res.Renewed != 0 || res.Errors != 0 {
			t.Fatalf("unexpected result %+v", res)
		}
		got, _ := f.subs.FindByID(ctx, nil, "s1")
		if got.Status != model.SubscriptionStatusCanceled {
			t.Errorf("expected CANCELED, got %s", got.Status)
		}
		if !got.CurrentPeriodEnd.Equal(oldEnd) {
			t.Errorf("period must not move, got %v want %v", got.CurrentPeriodEnd, oldEnd)
		}
		orders, _ := f.orders.ListBySubscription(ctx, nil, "s1")
		if len(orders) != 1 || orders[0].Kind != model.OrderSubscriptionRenewal || orders[0].Status != model.OrderPaid {
			t.Errorf("expected the paid charge to stay on record, got %+v", orders)
		}
	})
}

func TestSubscriptionUseCase_Checkout(t *testing.T) {
	ctx := context.Background()

	t.Run("checkout then confirm activates signals", func(t *testing.T) {
		f := newFixture(t, fixtureOpts{})
		f.addUser(t, "u1", model.RoleStudent)

		pi, err := f.subscription.Checkout(ctx, "u1", "u1@example.com", model.PlanMonthly)
		if err != nil {
			t.Fatalf("checkout: %v", err)
		}
		if pi.Amount != 4900 || pi.Meta(model.MetaSubscriptionType) != model.SubscriptionTypeSignals {
			t.Fatalf("unexpected intent %+v", pi)
		}
		if _, err := f.payments.Confirm(ctx, pi.ID, successCard()); err != nil {
			t.Fatalf("confirm: %v", err)
		}
		if ent, _ := f.entitlements.Resolve(ctx, "u1"); ent.Tier != model.TierSignals {
			t.Errorf("expected SIGNALS after paying, got %s", ent.Tier)
		}
	})

	t.Run("checkout with a live subscription is refused", func(t *testing.T) {
		f := newFixture(t, fixtureOpts{})
		f.addSubscription(t, "s1", "u1", model.PlanMonthly, f.now)
		if _, err := f.subscription.Checkout(ctx, "u1", "", model.PlanMonthly); !errors.Is(err, domain.ErrActiveSubscriptionExists) {
			t.Fatalf("expected ErrActiveSubscriptionExists, got %v", err)
		}
	})
}
