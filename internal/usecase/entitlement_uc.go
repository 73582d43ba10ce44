// File: internal/usecase/entitlement_uc.go
package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"trading-academy/internal/domain"
	"trading-academy/internal/domain/model"
	"trading-academy/internal/domain/ports/repository"
	"trading-academy/internal/infra/logging"
	"trading-academy/internal/infra/metrics"
)

// Compile-time check
var _ EntitlementUseCase = (*entitlementUC)(nil)

// EntitlementUseCase derives a user's content tier from source-of-truth rows.
// It never writes: not the user's role and not the subscription status.
type EntitlementUseCase interface {
	Resolve(ctx context.Context, userID string) (model.Entitlement, error)
}

type entitlementUC struct {
	users        repository.UserRepository
	mentorships  repository.MentorshipRepository
	subs         repository.SubscriptionRepository
	signalsPlans map[model.SubscriptionPlan]bool
	graceGrants  bool
	now          func() time.Time
	log          *zerolog.Logger
}

// NewEntitlementUseCase builds the resolver. signalsPlans lists the plans
// whose ACTIVE subscriptions grant the SIGNALS tier. graceGrants extends that
// to subscriptions inside a dunning grace window.
func NewEntitlementUseCase(
	users repository.UserRepository,
	mentorships repository.MentorshipRepository,
	subs repository.SubscriptionRepository,
	signalsPlans []string,
	graceGrants bool,
	logger *zerolog.Logger,
) *entitlementUC {
	plans := make(map[model.SubscriptionPlan]bool, len(signalsPlans))
	for _, p := range signalsPlans {
		plans[model.SubscriptionPlan(strings.ToUpper(strings.TrimSpace(p)))] = true
	}
	return &entitlementUC{
		users:        users,
		mentorships:  mentorships,
		subs:         subs,
		signalsPlans: plans,
		graceGrants:  graceGrants,
		now:          time.Now,
		log:          logging.Component(logger, "entitlements"),
	}
}

func (u *entitlementUC) SetClock(now func() time.Time) { u.now = now }

func (u *entitlementUC) Resolve(ctx context.Context, userID string) (model.Entitlement, error) {
	defer logging.TraceDuration(u.log, "EntitlementUC.Resolve")()

	ent := model.Entitlement{UserID: userID, Tier: model.TierNone}
	if userID == "" {
		return ent, domain.ErrInvalidArgument
	}

	var role model.Role
	user, err := u.users.FindByID(ctx, repository.NoTX, userID)
	switch {
	case err == nil:
		role = user.Role
	case !errors.Is(err, domain.ErrNotFound):
		return ent, err
	}

	mentorship, err := u.mentorships.HasCompleted(ctx, repository.NoTX, userID)
	if err != nil {
		return ent, err
	}
	ent.Mentorship = mentorship

	sub, err := u.subs.FindCurrentByUser(ctx, repository.NoTX, userID)
	switch {
	case err == nil:
		ent.Subscription = sub
	case !errors.Is(err, domain.ErrNotFound):
		return ent, err
	}

	now := u.now()
	ent.PremiumValid = role == model.RolePremium || mentorship
	ent.SignalsValid = u.grantsSignals(sub, now)

	switch {
	case ent.PremiumValid:
		ent.Tier = model.TierPremium
	case ent.SignalsValid:
		ent.Tier = model.TierSignals
	}

	metrics.IncEntitlement(ent.Tier)
	logging.With(ctx, u.log).Debug().
		Str("user_id", userID).
		Str("tier", string(ent.Tier)).
		Bool("mentorship", mentorship).
		Msg("entitlement resolved")
	return ent, nil
}

// grantsSignals checks the period end against now; the stored status alone
// is not enough.
func (u *entitlementUC) grantsSignals(sub *model.Subscription, now time.Time) bool {
	if sub == nil || !u.signalsPlans[sub.Plan] {
		return false
	}
	if sub.IsCurrent(now) {
		return true
	}
	return u.graceGrants && sub.InGrace(now)
}
