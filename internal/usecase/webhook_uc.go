// File: internal/usecase/webhook_uc.go
package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"trading-academy/internal/domain"
	"trading-academy/internal/domain/model"
	"trading-academy/internal/domain/ports/adapter"
	"trading-academy/internal/domain/ports/repository"
	"trading-academy/internal/infra/logging"
	"trading-academy/internal/infra/metrics"
)

// Compile-time check
var _ adapter.WebhookHandler = (*webhookUC)(nil)

// Router branches, also used as metric labels.
const (
	BranchSignals          = "signals"
	BranchResourcePurchase = "resource_purchase"
	BranchEvent            = "event"
	BranchCourse           = "course"
	BranchMentorship       = "mentorship"
	BranchUnhandled        = "unhandled"
)

// SignalsActivator is the subscription entry point used by the router.
type SignalsActivator interface {
	ActivateSignals(ctx context.Context, userID string, plan model.SubscriptionPlan, intent *model.PaymentIntent) (*model.Subscription, error)
}

type WebhookRepos struct {
	Purchases     repository.ResourcePurchaseRepository
	Registrations repository.EventRegistrationRepository
	Enrollments   repository.CourseEnrollmentRepository
	Mentorships   repository.MentorshipRepository
}

type webhookUC struct {
	repos      WebhookRepos
	signals    SignalsActivator
	tm         repository.TransactionManager
	processed  adapter.IdempotencyStore
	processTTL time.Duration
	log        *zerolog.Logger
}

func NewWebhookUseCase(
	repos WebhookRepos,
	signals SignalsActivator,
	tm repository.TransactionManager,
	processed adapter.IdempotencyStore,
	processTTL time.Duration,
	logger *zerolog.Logger,
) *webhookUC {
	return &webhookUC{
		repos:      repos,
		signals:    signals,
		tm:         tm,
		processed:  processed,
		processTTL: processTTL,
		log:        logging.Component(logger, "webhook_router"),
	}
}

// HandleEvent applies exactly one domain effect for a succeeded payment,
// chosen by the intent metadata. An intent id is processed at most once;
// the claim is released when the branch fails so a redelivery can retry.
func (u *webhookUC) HandleEvent(ctx context.Context, evt model.WebhookEvent) error {
	defer logging.TraceDuration(u.log, "WebhookUC.HandleEvent")()

	if evt.Type != model.EventPaymentIntentSucceeded {
		metrics.IncWebhookEvent("ignored", "noop")
		u.log.Debug().Str("event_id", evt.ID).Str("type", evt.Type).Msg("ignoring event type")
		return nil
	}
	pi := evt.Data.Object
	if pi == nil || pi.ID == "" {
		return domain.NewValidationError("data.object", "payment intent is required")
	}
	ctx = logging.WithIntentID(ctx, pi.ID)
	log := logging.With(ctx, u.log).With().Str("event_id", evt.ID).Logger()

	key := "webhook:payment_intent:" + pi.ID
	claimed, err := u.processed.Claim(ctx, key, u.processTTL)
	if err != nil {
		return err
	}
	if !claimed {
		metrics.IncWebhookEvent(branchOf(pi), "duplicate")
		log.Info().Msg("payment event already processed")
		return nil
	}

	branch, err := u.route(ctx, pi)
	if err != nil {
		if rerr := u.processed.Release(context.WithoutCancel(ctx), key); rerr != nil {
			log.Warn().Err(rerr).Msg("failed to release idempotency key")
		}
		metrics.IncWebhookEvent(branch, "error")
		log.Error().Err(err).Str("branch", branch).Msg("payment event branch failed")
		return err
	}
	if branch == BranchUnhandled {
		metrics.IncWebhookEvent(branch, "noop")
		log.Info().Msg("payment event matched no branch")
		return nil
	}
	metrics.IncWebhookEvent(branch, "applied")
	log.Info().Str("branch", branch).Msg("payment event applied")
	return nil
}

// branchOf picks the branch by metadata precedence. The keys are distinct so
// at most one branch can match.
func branchOf(pi *model.PaymentIntent) string {
	switch {
	case pi.Meta(model.MetaSubscriptionType) == model.SubscriptionTypeSignals:
		return BranchSignals
	case pi.Meta(model.MetaType) == model.TypeResourcePurchase:
		return BranchResourcePurchase
	case pi.Meta(model.MetaEventID) != "":
		return BranchEvent
	case pi.Meta(model.MetaCourseID) != "":
		return BranchCourse
	case pi.Meta(model.MetaMentorshipID) != "":
		return BranchMentorship
	}
	return BranchUnhandled
}

func (u *webhookUC) route(ctx context.Context, pi *model.PaymentIntent) (string, error) {
	branch := branchOf(pi)
	var err error
	switch branch {
	case BranchSignals:
		err = u.activateSignals(ctx, pi)
	case BranchResourcePurchase:
		err = u.completePurchase(ctx, pi)
	case BranchEvent:
		err = u.confirmRegistration(ctx, pi)
	case BranchCourse:
		err = u.enroll(ctx, pi)
	case BranchMentorship:
		err = u.completeMentorship(ctx, pi)
	}
	return branch, err
}

func (u *webhookUC) activateSignals(ctx context.Context, pi *model.PaymentIntent) error {
	userID := pi.Meta(model.MetaUserID)
	if userID == "" {
		return domain.NewValidationError("metadata.userId", "is required for a signals subscription")
	}
	plan, err := model.ParsePlan(pi.Meta(model.MetaPlan))
	if err != nil {
		return err
	}
	_, err = u.signals.ActivateSignals(ctx, userID, plan, pi)
	if errors.Is(err, domain.ErrActiveSubscriptionExists) {
		logging.With(ctx, u.log).Warn().Str("user_id", userID).Msg("paid for signals while a subscription is already active")
		return nil
	}
	return err
}

func (u *webhookUC) completePurchase(ctx context.Context, pi *model.PaymentIntent) error {
	userID := pi.Meta(model.MetaUserID)
	resourceID := pi.Meta(model.MetaResourceID)
	return u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		p, err := u.repos.Purchases.FindByPaymentIntent(ctx, tx, pi.ID)
		if errors.Is(err, domain.ErrNotFound) && userID != "" && resourceID != "" {
			p, err = u.repos.Purchases.FindPendingByUserAndResource(ctx, tx, userID, resourceID)
		}
		now := time.Now().UTC()
		switch {
		case errors.Is(err, domain.ErrNotFound):
			if userID == "" || resourceID == "" {
				return domain.NewValidationError("metadata", "userId and resourceId are required to record a purchase")
			}
			// paid without a pending row; record it so access follows payment
			p = &model.ResourcePurchase{ID: uuid.NewString(), UserID: userID, ResourceID: resourceID, CreatedAt: now}
		case err != nil:
			return err
		case p.Status == model.PurchaseCompleted:
			return nil
		}
		p.Complete(pi.ID, now)
		return u.repos.Purchases.Save(ctx, tx, p)
	})
}

func (u *webhookUC) confirmRegistration(ctx context.Context, pi *model.PaymentIntent) error {
	eventID := pi.Meta(model.MetaEventID)
	email := normalizeEmail(pi.Meta(model.MetaEmail))
	return u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		r, err := u.repos.Registrations.FindByPaymentIntent(ctx, tx, pi.ID)
		if errors.Is(err, domain.ErrNotFound) && email != "" {
			r, err = u.repos.Registrations.FindOpenByEventAndEmail(ctx, tx, eventID, email)
		}
		now := time.Now().UTC()
		switch {
		case errors.Is(err, domain.ErrNotFound):
			if email == "" {
				return domain.NewValidationError("metadata.email", "is required to match an event registration")
			}
			r = &model.EventRegistration{
				ID:        uuid.NewString(),
				EventID:   eventID,
				UserID:    pi.Meta(model.MetaUserID),
				Email:     email,
				CreatedAt: now,
			}
		case err != nil:
			return err
		case r.Status == model.RegistrationConfirmed && r.PaymentStatus == model.RegistrationPaid:
			return nil
		}
		r.ConfirmPaid(pi.ID, now)
		return u.repos.Registrations.Save(ctx, tx, r)
	})
}

func (u *webhookUC) enroll(ctx context.Context, pi *model.PaymentIntent) error {
	userID := pi.Meta(model.MetaUserID)
	courseID := pi.Meta(model.MetaCourseID)
	if userID == "" {
		return domain.NewValidationError("metadata.userId", "is required for a course enrollment")
	}
	err := u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		if _, err := u.repos.Enrollments.FindByUserAndCourse(ctx, tx, userID, courseID); err == nil {
			return domain.ErrAlreadyExists
		} else if !errors.Is(err, domain.ErrNotFound) {
			return err
		}
		return u.repos.Enrollments.Create(ctx, tx, &model.CourseEnrollment{
			ID:              uuid.NewString(),
			UserID:          userID,
			CourseID:        courseID,
			PaymentIntentID: pi.ID,
			EnrolledAt:      time.Now().UTC(),
		})
	})
	if errors.Is(err, domain.ErrAlreadyExists) {
		logging.With(ctx, u.log).Info().Str("user_id", userID).Str("course_id", courseID).Msg("user already enrolled")
		return nil
	}
	return err
}

func (u *webhookUC) completeMentorship(ctx context.Context, pi *model.PaymentIntent) error {
	id := pi.Meta(model.MetaMentorshipID)
	return u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		m, err := u.repos.Mentorships.FindByID(ctx, tx, id)
		if err != nil {
			return err
		}
		if m.Status == model.MentorshipCompleted {
			return nil
		}
		if userID := pi.Meta(model.MetaUserID); userID != m.UserID {
			return domain.NewValidationError("metadata.userId", "does not own the mentorship")
		}
		if pi.Amount < m.Amount || (m.Currency != "" && !strings.EqualFold(pi.Currency, m.Currency)) {
			return domain.NewValidationError("amount", "does not cover the mentorship price")
		}
		now := time.Now().UTC()
		m.Status = model.MentorshipCompleted
		m.PaymentIntentID = pi.ID
		m.CompletedAt = &now
		return u.repos.Mentorships.Save(ctx, tx, m)
	})
}
