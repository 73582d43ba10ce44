// File: internal/usecase/payment_intent_uc.go
package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"trading-academy/internal/domain"
	"trading-academy/internal/domain/model"
	"trading-academy/internal/domain/ports/adapter"
	"trading-academy/internal/domain/ports/repository"
	"trading-academy/internal/infra/logging"
	"trading-academy/internal/infra/metrics"
)

// Compile-time check
var _ PaymentIntentUseCase = (*paymentIntentUC)(nil)

// PaymentIntentUseCase is the mock payment gateway.
type PaymentIntentUseCase interface {
	Create(ctx context.Context, amount int64, currency string, metadata map[string]string) (*model.PaymentIntent, error)
	Get(ctx context.Context, id string) (*model.PaymentIntent, error)
	// Confirm applies the outcome policy once. A succeeded intent is handed
	// to the webhook dispatcher before Confirm returns; dispatch errors are
	// logged and never returned.
	Confirm(ctx context.Context, id string, card *CardInput) (*model.PaymentIntent, error)
	// ChargeOffSession creates and confirms an intent with no card, so only
	// the probabilistic part of the policy applies.
	ChargeOffSession(ctx context.Context, amount int64, currency string, metadata map[string]string) (*model.PaymentIntent, error)
}

type paymentIntentUC struct {
	intents     repository.PaymentIntentRepository
	policy      *OutcomePolicy
	dispatcher  adapter.WebhookDispatcher
	locker      adapter.Locker
	lockTTL     time.Duration
	defCurrency string
	log         *zerolog.Logger
}

func NewPaymentIntentUseCase(
	intents repository.PaymentIntentRepository,
	policy *OutcomePolicy,
	dispatcher adapter.WebhookDispatcher,
	locker adapter.Locker,
	lockTTL time.Duration,
	defaultCurrency string,
	logger *zerolog.Logger,
) *paymentIntentUC {
	if lockTTL <= 0 {
		lockTTL = 30 * time.Second
	}
	return &paymentIntentUC{
		intents:     intents,
		policy:      policy,
		dispatcher:  dispatcher,
		locker:      locker,
		lockTTL:     lockTTL,
		defCurrency: defaultCurrency,
		log:         logging.Component(logger, "payment_intents"),
	}
}

// SetDispatcher replaces the webhook dispatcher. The router depends on the
// subscription use case which in turn charges through this one, so the
// dispatcher is attached after construction.
func (u *paymentIntentUC) SetDispatcher(d adapter.WebhookDispatcher) {
	u.dispatcher = d
}

func (u *paymentIntentUC) Create(ctx context.Context, amount int64, currency string, metadata map[string]string) (*model.PaymentIntent, error) {
	defer logging.TraceDuration(u.log, "PaymentIntentUC.Create")()

	if currency == "" {
		currency = u.defCurrency
	}
	pi, err := model.NewPaymentIntent(newPrefixedID("pi"), amount, currency, metadata)
	if err != nil {
		return nil, err
	}
	if err := u.intents.Save(ctx, repository.NoTX, pi); err != nil {
		return nil, err
	}
	metrics.IncPayment("created")
	logging.With(ctx, u.log).Info().
		Str("payment_intent_id", pi.ID).
		Int64("amount", pi.Amount).
		Str("currency", pi.Currency).
		Msg("payment intent created")
	return pi, nil
}

func (u *paymentIntentUC) Get(ctx context.Context, id string) (*model.PaymentIntent, error) {
	if id == "" {
		return nil, domain.ErrNotFound
	}
	return u.intents.FindByID(ctx, repository.NoTX, id)
}

func (u *paymentIntentUC) Confirm(ctx context.Context, id string, card *CardInput) (*model.PaymentIntent, error) {
	defer logging.TraceDuration(u.log, "PaymentIntentUC.Confirm")()
	ctx = logging.WithIntentID(ctx, id)
	log := logging.With(ctx, u.log)

	if _, err := u.Get(ctx, id); err != nil {
		return nil, err
	}

	// serialize confirmations of one intent
	key := "lock:payment_intent:" + id
	token, err := u.locker.TryLock(ctx, key, u.lockTTL)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := u.locker.Unlock(context.WithoutCancel(ctx), key, token); err != nil {
			log.Warn().Err(err).Msg("failed to release confirm lock")
		}
	}()

	pi, err := u.intents.FindByID(ctx, repository.NoTX, id)
	if err != nil {
		return nil, err
	}

	out := u.policy.decide(pi.ID, card)
	out.apply(pi)
	if err := u.intents.Save(ctx, repository.NoTX, pi); err != nil {
		return nil, err
	}

	metrics.IncPayment(string(pi.Status))
	ev := log.Info().Str("status", string(pi.Status))
	if card != nil && card.Number != "" {
		ev = ev.Str("card", logging.MaskCard(digitsOnly(card.Number)))
	}
	if pi.LastPaymentError != nil {
		metrics.IncDecline(pi.LastPaymentError.DeclineCode)
		ev = ev.Str("decline_code", pi.LastPaymentError.DeclineCode)
	}
	ev.Msg("payment intent confirmed")

	if pi.Status == model.PaymentIntentSucceeded {
		metrics.AddPaymentRevenue(pi.Currency, pi.Amount)
		u.dispatch(ctx, pi)
	}
	return pi, nil
}

func (u *paymentIntentUC) ChargeOffSession(ctx context.Context, amount int64, currency string, metadata map[string]string) (*model.PaymentIntent, error) {
	pi, err := u.Create(ctx, amount, currency, metadata)
	if err != nil {
		return nil, err
	}
	return u.Confirm(ctx, pi.ID, nil)
}

// dispatch never fails the confirmation that triggered it.
func (u *paymentIntentUC) dispatch(ctx context.Context, pi *model.PaymentIntent) {
	if u.dispatcher == nil {
		return
	}
	if err := u.dispatcher.Dispatch(ctx, pi.Clone()); err != nil {
		lvl := zerolog.ErrorLevel
		if errors.Is(err, context.Canceled) {
			lvl = zerolog.WarnLevel
		}
		logging.With(ctx, u.log).WithLevel(lvl).Err(err).Msg("webhook dispatch failed")
	}
}
