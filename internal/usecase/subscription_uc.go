// File: internal/usecase/subscription_uc.go
package usecase

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"trading-academy/internal/domain"
	"trading-academy/internal/domain/model"
	"trading-academy/internal/domain/ports/repository"
	"trading-academy/internal/infra/logging"
	"trading-academy/internal/infra/metrics"
)

// Compile-time check
var _ SubscriptionUseCase = (*subscriptionUC)(nil)

// Actor is the authenticated caller of a subscription operation.
type Actor struct {
	UserID string
	Role   model.Role
}

// SweepResult summarizes one ProcessDueSubscriptions run.
type SweepResult struct {
	Due       int `json:"due"`
	Renewed   int `json:"renewed"`
	Failed    int `json:"failed"`
	Expired   int `json:"expired"`
	Suspended int `json:"suspended"`
	Skipped   int `json:"skipped"`
	Errors    int `json:"errors"`
}

type SubscriptionUseCase interface {
	// CreateSubscription fails with domain.ErrActiveSubscriptionExists when
	// the user already holds a current ACTIVE subscription.
	CreateSubscription(ctx context.Context, userID string, plan model.SubscriptionPlan, intent *model.PaymentIntent) (*model.Subscription, error)
	ActivateSignals(ctx context.Context, userID string, plan model.SubscriptionPlan, intent *model.PaymentIntent) (*model.Subscription, error)
	// Checkout opens a payment intent that activates signals once it succeeds.
	Checkout(ctx context.Context, userID, email string, plan model.SubscriptionPlan) (*model.PaymentIntent, error)
	// CancelSubscription marks the row CANCELED. It never changes the user's role.
	CancelSubscription(ctx context.Context, actor Actor, subscriptionID, reason string) (*model.Subscription, error)
	GetCurrent(ctx context.Context, userID string) (*model.Subscription, error)
	ProcessDueSubscriptions(ctx context.Context) (SweepResult, error)
}

// DunningPolicy controls the PAST_DUE -> GRACE_PERIOD -> SUSPENDED path.
// When disabled a failed renewal only records a failed order.
type DunningPolicy struct {
	Enabled     bool
	MaxAttempts int
	GracePeriod time.Duration
}

type subscriptionUC struct {
	subs        repository.SubscriptionRepository
	tm          repository.TransactionManager
	bill        *billing
	dunning     DunningPolicy
	expireAfter time.Duration
	batchSize   int
	now         func() time.Time
	sweepMu     sync.Mutex
	log         *zerolog.Logger
}

func NewSubscriptionUseCase(
	subs repository.SubscriptionRepository,
	orders repository.OrderRepository,
	charger Charger,
	tm repository.TransactionManager,
	prices PlanPrices,
	dunning DunningPolicy,
	expireAfter time.Duration,
	logger *zerolog.Logger,
) *subscriptionUC {
	if dunning.MaxAttempts <= 0 {
		dunning.MaxAttempts = 3
	}
	return &subscriptionUC{
		subs:        subs,
		tm:          tm,
		bill:        &billing{orders: orders, charger: charger, prices: prices},
		dunning:     dunning,
		expireAfter: expireAfter,
		batchSize:   500,
		now:         time.Now,
		log:         logging.Component(logger, "subscriptions"),
	}
}

func (u *subscriptionUC) SetClock(now func() time.Time) { u.now = now }

func (u *subscriptionUC) CreateSubscription(ctx context.Context, userID string, plan model.SubscriptionPlan, intent *model.PaymentIntent) (*model.Subscription, error) {
	defer logging.TraceDuration(u.log, "SubscriptionUC.CreateSubscription")()
	if userID == "" {
		return nil, domain.NewValidationError("userId", "is required")
	}

	now := u.now().UTC()
	var created *model.Subscription
	err := u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		if err := u.subs.LockUser(ctx, tx, userID); err != nil {
			return err
		}
		existing, err := u.subs.FindCurrentByUser(ctx, tx, userID)
		switch {
		case err == nil && existing.IsCurrent(now):
			return domain.ErrActiveSubscriptionExists
		case err == nil && existing.Status == model.SubscriptionStatusActive:
			// a lapsed ACTIVE row would block the one-active-per-user index
			u.expire(existing, now)
			if err := u.subs.Save(ctx, tx, existing); err != nil {
				return err
			}
			metrics.IncSubscriptionTransition(model.SubscriptionStatusExpired)
		case err == nil:
			// a row in dunning could later renew into a second ACTIVE row
			existing.Cancel("superseded by a new subscription", now)
			if err := u.subs.Save(ctx, tx, existing); err != nil {
				return err
			}
		case !errors.Is(err, domain.ErrNotFound):
			return err
		}

		sub, err := model.NewSubscription(uuid.NewString(), userID, plan, now)
		if err != nil {
			return err
		}
		if err := u.subs.Save(ctx, tx, sub); err != nil {
			if errors.Is(err, domain.ErrAlreadyExists) {
				return domain.ErrActiveSubscriptionExists
			}
			return err
		}
		if _, err := u.bill.recordCreate(ctx, tx, sub, intent, now); err != nil {
			return err
		}
		created = sub
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.IncSubscriptionTransition(model.SubscriptionStatusActive)
	logging.With(ctx, u.log).Info().
		Str("user_id", userID).
		Str("subscription_id", created.ID).
		Str("plan", string(plan)).
		Time("period_end", created.CurrentPeriodEnd).
		Msg("subscription created")
	return created, nil
}

func (u *subscriptionUC) ActivateSignals(ctx context.Context, userID string, plan model.SubscriptionPlan, intent *model.PaymentIntent) (*model.Subscription, error) {
	if plan == "" {
		plan = model.PlanMonthly
	}
	return u.CreateSubscription(ctx, userID, plan, intent)
}

func (u *subscriptionUC) Checkout(ctx context.Context, userID, email string, plan model.SubscriptionPlan) (*model.PaymentIntent, error) {
	if userID == "" {
		return nil, domain.NewValidationError("userId", "is required")
	}
	if sub, err := u.subs.FindActiveByUser(ctx, repository.NoTX, userID); err == nil && sub.IsCurrent(u.now()) {
		return nil, domain.ErrActiveSubscriptionExists
	} else if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	return u.bill.checkout(ctx, userID, email, plan)
}

func (u *subscriptionUC) CancelSubscription(ctx context.Context, actor Actor, subscriptionID, reason string) (*model.Subscription, error) {
	defer logging.TraceDuration(u.log, "SubscriptionUC.CancelSubscription")()
	if subscriptionID == "" {
		return nil, domain.NewValidationError("subscriptionId", "is required")
	}

	now := u.now().UTC()
	var sub *model.Subscription
	err := u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		s, err := u.subs.FindByID(ctx, tx, subscriptionID)
		if err != nil {
			return err
		}
		if s.UserID != actor.UserID && !actor.Role.CanManageBilling() {
			return domain.ErrForbidden
		}
		if err := u.subs.LockUser(ctx, tx, s.UserID); err != nil {
			return err
		}
		switch s.Status {
		case model.SubscriptionStatusCanceled:
			sub = s
			return nil
		case model.SubscriptionStatusActive, model.SubscriptionStatusPastDue, model.SubscriptionStatusGracePeriod:
		default:
			return domain.ErrSubscriptionNotActive
		}
		s.Cancel(reason, now)
		sub = s
		return u.subs.Save(ctx, tx, s)
	})
	if err != nil {
		return nil, err
	}

	metrics.IncSubscriptionTransition(model.SubscriptionStatusCanceled)
	logging.With(ctx, u.log).Info().
		Str("subscription_id", sub.ID).
		Str("user_id", sub.UserID).
		Str("actor_id", actor.UserID).
		Str("reason", sub.CancelReason).
		Msg("subscription canceled")
	return sub, nil
}

// GetCurrent returns the user's current subscription. An ACTIVE row that
// lapsed more than expireAfter ago is moved to EXPIRED on the way out.
func (u *subscriptionUC) GetCurrent(ctx context.Context, userID string) (*model.Subscription, error) {
	sub, err := u.subs.FindCurrentByUser(ctx, repository.NoTX, userID)
	if err != nil {
		return nil, err
	}
	now := u.now().UTC()
	if !u.lapsed(sub, now) {
		return sub, nil
	}

	err = u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		if err := u.subs.LockUser(ctx, tx, userID); err != nil {
			return err
		}
		s, err := u.subs.FindByID(ctx, tx, sub.ID)
		if err != nil {
			return err
		}
		if u.lapsed(s, now) {
			u.expire(s, now)
			if err := u.subs.Save(ctx, tx, s); err != nil {
				return err
			}
			metrics.IncSubscriptionTransition(model.SubscriptionStatusExpired)
		}
		sub = s
		return nil
	})
	if err != nil {
		return nil, err
	}
	return sub, nil
}

func (u *subscriptionUC) lapsed(s *model.Subscription, now time.Time) bool {
	return s.Status == model.SubscriptionStatusActive &&
		s.CurrentPeriodEnd.Add(u.expireAfter).Before(now)
}

func (u *subscriptionUC) expire(s *model.Subscription, now time.Time) {
	s.Status = model.SubscriptionStatusExpired
	s.UpdatedAt = now
	u.log.Info().Str("subscription_id", s.ID).Str("user_id", s.UserID).Msg("subscription expired")
}

// ProcessDueSubscriptions re-bills every subscription whose period has ended.
// Concurrent calls in one process are serialized.
func (u *subscriptionUC) ProcessDueSubscriptions(ctx context.Context) (SweepResult, error) {
	defer logging.TraceDuration(u.log, "SubscriptionUC.ProcessDueSubscriptions")()
	u.sweepMu.Lock()
	defer u.sweepMu.Unlock()

	var res SweepResult
	now := u.now().UTC()
	statuses := []model.SubscriptionStatus{model.SubscriptionStatusActive}
	if u.dunning.Enabled {
		statuses = append(statuses, model.SubscriptionStatusPastDue, model.SubscriptionStatusGracePeriod)
	}

	due, err := u.subs.ListDue(ctx, repository.NoTX, statuses, now, u.batchSize)
	if err != nil {
		return res, err
	}
	res.Due = len(due)
	for _, s := range due {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if u.dunning.Enabled && s.Status == model.SubscriptionStatusGracePeriod && !s.InGrace(now) {
			// the suspension pass below handles it
			continue
		}
		outcome, err := u.renew(ctx, s, now)
		if err != nil {
			res.Errors++
			metrics.IncRenewal("error")
			logging.With(ctx, u.log).Error().Err(err).Str("subscription_id", s.ID).Msg("renewal failed")
			continue
		}
		switch outcome {
		case renewalSucceeded:
			res.Renewed++
		case renewalExpired:
			res.Failed++
			res.Expired++
		case renewalSkipped:
			res.Skipped++
		default:
			res.Failed++
		}
	}

	if u.dunning.Enabled {
		n, err := u.suspendExpiredGrace(ctx, now)
		res.Suspended = n
		if err != nil {
			return res, err
		}
	}

	if counts, err := u.subs.CountByStatus(ctx, repository.NoTX); err == nil {
		metrics.SetSubscriptionsTotal(counts)
	}

	u.log.Info().
		Int("due", res.Due).
		Int("renewed", res.Renewed).
		Int("failed", res.Failed).
		Int("expired", res.Expired).
		Int("suspended", res.Suspended).
		Int("skipped", res.Skipped).
		Int("errors", res.Errors).
		Msg("renewal sweep finished")
	return res, nil
}

type renewalOutcome int

const (
	renewalSucceeded renewalOutcome = iota
	renewalFailed
	renewalExpired
	renewalSkipped
)

func (u *subscriptionUC) renew(ctx context.Context, due *model.Subscription, now time.Time) (renewalOutcome, error) {
	intent, err := u.bill.chargeRenewal(ctx, due)
	if err != nil {
		return renewalFailed, err
	}
	log := logging.With(logging.WithIntentID(ctx, intent.ID), u.log)

	outcome := renewalFailed
	err = u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		if err := u.subs.LockUser(ctx, tx, due.UserID); err != nil {
			return err
		}
		s, err := u.subs.FindByID(ctx, tx, due.ID)
		if err != nil {
			return err
		}
		order := u.bill.renewalOrder(s, intent, now)
		if err := u.bill.orders.Save(ctx, tx, order); err != nil {
			return err
		}
		// the row may have been canceled or renewed while the charge ran
		if s.Status != due.Status || !s.CurrentPeriodEnd.Equal(due.CurrentPeriodEnd) {
			outcome = renewalSkipped
			return nil
		}

		before := s.Status
		switch {
		case intent.Status == model.PaymentIntentSucceeded:
			s.Renew(now)
			outcome = renewalSucceeded
		case u.dunning.Enabled:
			u.applyDunning(s, now)
		case u.lapsed(s, now):
			u.expire(s, now)
			outcome = renewalExpired
		default:
			// without dunning a failed renewal leaves the row as it was
			return nil
		}
		if err := u.subs.Save(ctx, tx, s); err != nil {
			return err
		}
		if s.Status != before {
			metrics.IncSubscriptionTransition(s.Status)
		}
		return nil
	})
	if err != nil {
		return outcome, err
	}

	switch outcome {
	case renewalSkipped:
		metrics.IncRenewal("skipped")
		log.Warn().
			Str("subscription_id", due.ID).
			Str("intent_status", string(intent.Status)).
			Msg("subscription changed during renewal charge, left as is")
		return outcome, nil
	case renewalSucceeded:
		metrics.IncRenewal("succeeded")
		log.Info().Str("subscription_id", due.ID).Msg("subscription renewed")
	default:
		metrics.IncRenewal("failed")
		ev := log.Warn().Str("subscription_id", due.ID).Str("intent_status", string(intent.Status))
		if intent.LastPaymentError != nil {
			ev = ev.Str("decline_code", intent.LastPaymentError.DeclineCode)
		}
		ev.Msg("renewal charge failed")
	}
	return outcome, nil
}

func (u *subscriptionUC) applyDunning(s *model.Subscription, now time.Time) {
	s.FailedPaymentCount++
	s.UpdatedAt = now
	if s.Status == model.SubscriptionStatusActive {
		s.Status = model.SubscriptionStatusPastDue
	}
	if s.Status == model.SubscriptionStatusPastDue && s.FailedPaymentCount >= u.dunning.MaxAttempts {
		ends := now.Add(u.dunning.GracePeriod)
		s.Status = model.SubscriptionStatusGracePeriod
		s.GracePeriodEndsAt = &ends
	}
}

func (u *subscriptionUC) suspendExpiredGrace(ctx context.Context, now time.Time) (int, error) {
	expired, err := u.subs.ListGraceExpired(ctx, repository.NoTX, now, u.batchSize)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, s := range expired {
		suspended := false
		err := u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
			cur, err := u.subs.FindByID(ctx, tx, s.ID)
			if err != nil {
				return err
			}
			if cur.Status != model.SubscriptionStatusGracePeriod || cur.InGrace(now) {
				return nil
			}
			cur.Status = model.SubscriptionStatusSuspended
			cur.UpdatedAt = now
			suspended = true
			return u.subs.Save(ctx, tx, cur)
		})
		if err != nil {
			return n, err
		}
		if !suspended {
			continue
		}
		n++
		metrics.IncSubscriptionTransition(model.SubscriptionStatusSuspended)
		logging.With(ctx, u.log).Info().Str("subscription_id", s.ID).Msg("subscription suspended after grace period")
	}
	return n, nil
}
