//go:build !integration

package usecase_test

import (
	"context"
	"testing"
	"time"

	"trading-academy/internal/domain/model"
	"trading-academy/internal/usecase"
)

func TestEntitlementUseCase_Resolve(t *testing.T) {
	ctx := context.Background()

	t.Run("role PREMIUM grants PREMIUM with no subscription rows", func(t *testing.T) {
		f := newFixture(t, fixtureOpts{})
		f.addUser(t, "vip", model.RolePremium)

		ent, err := f.entitlements.Resolve(ctx, "vip")
		if err != nil {
			t.Fatalf("resolve: %v", err)
		}
		if ent.Tier != model.TierPremium || !ent.PremiumValid {
			t.Errorf("expected PREMIUM, got %+v", ent)
		}
	})

	t.Run("stale ACTIVE subscription grants nothing", func(t *testing.T) {
		// --- Arrange ---
		f := newFixture(t, fixtureOpts{})
		f.addUser(t, "u1", model.RoleStudent)
		f.addSubscription(t, "sub-old", "u1", model.PlanMonthly, f.now.AddDate(0, -2, 0))

		// --- Act ---
		ent, err := f.entitlements.Resolve(ctx, "u1")

		// --- Assert ---
		if err != nil {
			t.Fatalf("resolve: %v", err)
		}
		if ent.Tier != model.TierNone || ent.SignalsValid {
			t.Errorf("expected NONE for a lapsed ACTIVE row, got %+v", ent)
		}
		stored, _ := f.subs.FindByID(ctx, nil, "sub-old")
		if stored.Status != model.SubscriptionStatusActive {
			t.Errorf("resolve must not write the subscription, status is now %s", stored.Status)
		}
	})

	t.Run("current monthly subscription grants SIGNALS", func(t *testing.T) {
		f := newFixture(t, fixtureOpts{})
		f.addUser(t, "u1", model.RoleStudent)
		f.addSubscription(t, "sub-1", "u1", model.PlanMonthly, f.now.Add(-time.Hour))

		ent, _ := f.entitlements.Resolve(ctx, "u1")
		if ent.Tier != model.TierSignals || !ent.SignalsValid || ent.Subscription == nil {
			t.Errorf("expected SIGNALS with the subscription attached, got %+v", ent)
		}
	})

	t.Run("period end equal to now still counts", func(t *testing.T) {
		f := newFixture(t, fixtureOpts{})
		s := f.addSubscription(t, "sub-1", "u1", model.PlanMonthly, f.now.AddDate(0, -1, 0))
		f.now = s.CurrentPeriodEnd

		ent, _ := f.entitlements.Resolve(ctx, "u1")
		if ent.Tier != model.TierSignals {
			t.Errorf("expected SIGNALS at the boundary, got %s", ent.Tier)
		}
	})

	t.Run("yearly plan is not a signals plan unless configured", func(t *testing.T) {
		f := newFixture(t, fixtureOpts{})
		f.addSubscription(t, "sub-y", "u1", model.PlanYearly, f.now)
		if ent, _ := f.entitlements.Resolve(ctx, "u1"); ent.Tier != model.TierNone {
			t.Errorf("expected NONE for YEARLY by default, got %s", ent.Tier)
		}

		g := newFixture(t, fixtureOpts{signalsPlans: []string{"monthly", "yearly"}})
		g.addSubscription(t, "sub-y", "u1", model.PlanYearly, g.now)
		if ent, _ := g.entitlements.Resolve(ctx, "u1"); ent.Tier != model.TierSignals {
			t.Errorf("expected SIGNALS when YEARLY is configured, got %s", ent.Tier)
		}
	})

	t.Run("completed mentorship grants PREMIUM", func(t *testing.T) {
		f := newFixture(t, fixtureOpts{})
		f.addUser(t, "u1", model.RoleStudent)
		f.addCompletedMentorship(t, "m1", "u1")

		ent, _ := f.entitlements.Resolve(ctx, "u1")
		if ent.Tier != model.TierPremium || !ent.Mentorship {
			t.Errorf("expected PREMIUM via mentorship, got %+v", ent)
		}
	})

	t.Run("unknown user resolves to NONE", func(t *testing.T) {
		f := newFixture(t, fixtureOpts{})
		ent, err := f.entitlements.Resolve(ctx, "ghost")
		if err != nil || ent.Tier != model.TierNone {
			t.Errorf("expected NONE and no error, got %+v, %v", ent, err)
		}
	})

	t.Run("grace period grants SIGNALS only with dunning", func(t *testing.T) {
		f := newFixture(t, fixtureOpts{dunning: usecase.DunningPolicy{Enabled: true, MaxAttempts: 1, GracePeriod: 48 * time.Hour}})
		s := f.addSubscription(t, "sub-g", "u1", model.PlanMonthly, f.now.AddDate(0, -1, -1))
		ends := f.now.Add(24 * time.Hour)
		s.Status = model.SubscriptionStatusGracePeriod
		s.GracePeriodEndsAt = &ends
		_ = f.subs.Save(ctx, nil, s)

		if ent, _ := f.entitlements.Resolve(ctx, "u1"); ent.Tier != model.TierSignals {
			t.Errorf("expected SIGNALS during grace, got %s", ent.Tier)
		}

		g := newFixture(t, fixtureOpts{})
		_ = g.subs.Save(ctx, nil, s)
		if ent, _ := g.entitlements.Resolve(ctx, "u1"); ent.Tier != model.TierNone {
			t.Errorf("expected NONE during grace with dunning off, got %s", ent.Tier)
		}
	})
}

func TestEntitlementUseCase_CancelThenResolve(t *testing.T) {
	ctx := context.Background()

	t.Run("cancel removes SIGNALS", func(t *testing.T) {
		// --- Arrange ---
		f := newFixture(t, fixtureOpts{})
		f.addUser(t, "u1", model.RoleSignals)
		sub, err := f.subscription.CreateSubscription(ctx, "u1", model.PlanMonthly, nil)
		if err != nil {
			t.Fatalf("create: %v", err)
		}

		// --- Act ---
		if _, err := f.subscription.CancelSubscription(ctx, usecase.Actor{UserID: "u1", Role: model.RoleSignals}, sub.ID, "too expensive"); err != nil {
			t.Fatalf("cancel: %v", err)
		}
		ent, err := f.entitlements.Resolve(ctx, "u1")

		// --- Assert ---
		if err != nil {
			t.Fatalf("resolve: %v", err)
		}
		if ent.Tier == model.TierSignals {
			t.Errorf("expected tier other than SIGNALS after cancel, got %s", ent.Tier)
		}
	})

	t.Run("mentorship PREMIUM survives a cancel", func(t *testing.T) {
		f := newFixture(t, fixtureOpts{})
		f.addUser(t, "u1", model.RoleStudent)
		f.addCompletedMentorship(t, "m1", "u1")
		sub, err := f.subscription.CreateSubscription(ctx, "u1", model.PlanMonthly, nil)
		if err != nil {
			t.Fatalf("create: %v", err)
		}

		if _, err := f.subscription.CancelSubscription(ctx, usecase.Actor{UserID: "u1"}, sub.ID, ""); err != nil {
			t.Fatalf("cancel: %v", err)
		}
		ent, _ := f.entitlements.Resolve(ctx, "u1")

		if ent.Tier != model.TierPremium {
			t.Errorf("expected PREMIUM to survive the cancel, got %s", ent.Tier)
		}
	})

	t.Run("role PREMIUM survives a cancel", func(t *testing.T) {
		f := newFixture(t, fixtureOpts{})
		f.addUser(t, "u1", model.RolePremium)
		sub, _ := f.subscription.CreateSubscription(ctx, "u1", model.PlanMonthly, nil)

		if _, err := f.subscription.CancelSubscription(ctx, usecase.Actor{UserID: "u1"}, sub.ID, ""); err != nil {
			t.Fatalf("cancel: %v", err)
		}

		u, _ := f.users.FindByID(ctx, nil, "u1")
		if u.Role != model.RolePremium {
			t.Errorf("cancel must not touch the role, got %s", u.Role)
		}
		if ent, _ := f.entitlements.Resolve(ctx, "u1"); ent.Tier != model.TierPremium {
			t.Errorf("expected PREMIUM, got %s", ent.Tier)
		}
	})
}
