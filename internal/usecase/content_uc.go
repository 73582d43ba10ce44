// File: internal/usecase/content_uc.go
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
	"trading-academy/internal/domain/ports/repository"
	"trading-academy/internal/infra/logging"
)

// Compile-time check
var _ ContentUseCase = (*contentUC)(nil)

// ResourceList is a gated listing. RequiresSubscription is the upsell flag
// returned instead of an error when premium content is withheld.
type ResourceList struct {
	Items                []*model.Resource `json:"items"`
	Tier                 model.Tier        `json:"tier"`
	RequiresSubscription bool              `json:"requiresSubscription"`
}

type SignalList struct {
	Items                []*model.Signal `json:"items"`
	Tier                 model.Tier      `json:"tier"`
	RequiresSubscription bool            `json:"requiresSubscription"`
}

type EventRegistrationInput struct {
	EventID  string `json:"eventId" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	UserID   string `json:"userId"`
	Amount   int64  `json:"amount" validate:"gte=0"`
	Currency string `json:"currency" validate:"omitempty,len=3"`
}

type ContentUseCase interface {
	ListResources(ctx context.Context, userID string, premium bool) (ResourceList, error)
	ListSignals(ctx context.Context, userID string, premium bool) (SignalList, error)
	StartResourcePurchase(ctx context.Context, userID, email, resourceID string) (*model.ResourcePurchase, *model.PaymentIntent, error)
	RegisterForEvent(ctx context.Context, in EventRegistrationInput) (*model.EventRegistration, *model.PaymentIntent, error)
}

type ContentRepos struct {
	Resources     repository.ResourceRepository
	Purchases     repository.ResourcePurchaseRepository
	Signals       repository.SignalRepository
	Registrations repository.EventRegistrationRepository
}

type contentUC struct {
	repos        ContentRepos
	entitlements EntitlementUseCase
	charger      Charger
	tm           repository.TransactionManager
	log          *zerolog.Logger
}

func NewContentUseCase(repos ContentRepos, entitlements EntitlementUseCase, charger Charger, tm repository.TransactionManager, logger *zerolog.Logger) *contentUC {
	return &contentUC{
		repos:        repos,
		entitlements: entitlements,
		charger:      charger,
		tm:           tm,
		log:          logging.Component(logger, "content"),
	}
}

// ListResources returns free resources, or premium ones for a PREMIUM caller.
// Anyone else asking for premium content gets only what they bought one by
// one, plus the upsell flag.
func (u *contentUC) ListResources(ctx context.Context, userID string, premium bool) (ResourceList, error) {
	out := ResourceList{Items: []*model.Resource{}, Tier: model.TierNone}
	items, err := u.repos.Resources.List(ctx, repository.NoTX, premium)
	if err != nil {
		return out, err
	}
	if !premium {
		out.Items = items
		return out, nil
	}

	ent, err := u.resolve(ctx, userID)
	if err != nil {
		return out, err
	}
	out.Tier = ent.Tier
	if ent.PremiumResources() {
		out.Items = items
		return out, nil
	}

	out.RequiresSubscription = true
	if userID == "" {
		return out, nil
	}
	owned, err := u.repos.Purchases.CompletedResourceIDs(ctx, repository.NoTX, userID)
	if err != nil {
		return out, err
	}
	set := make(map[string]bool, len(owned))
	for _, id := range owned {
		set[id] = true
	}
	for _, r := range items {
		if set[r.ID] {
			out.Items = append(out.Items, r)
		}
	}
	return out, nil
}

func (u *contentUC) ListSignals(ctx context.Context, userID string, premium bool) (SignalList, error) {
	out := SignalList{Items: []*model.Signal{}, Tier: model.TierNone}
	if premium {
		ent, err := u.resolve(ctx, userID)
		if err != nil {
			return out, err
		}
		out.Tier = ent.Tier
		if !ent.PremiumSignals() {
			out.RequiresSubscription = true
			return out, nil
		}
	}
	items, err := u.repos.Signals.List(ctx, repository.NoTX, premium)
	if err != nil {
		return out, err
	}
	out.Items = items
	return out, nil
}

func (u *contentUC) StartResourcePurchase(ctx context.Context, userID, email, resourceID string) (*model.ResourcePurchase, *model.PaymentIntent, error) {
	defer logging.TraceDuration(u.log, "ContentUC.StartResourcePurchase")()

	res, err := u.repos.Resources.FindByID(ctx, repository.NoTX, resourceID)
	if err != nil {
		return nil, nil, err
	}
	if !res.Premium || res.Price <= 0 {
		return nil, nil, domain.NewValidationError("resourceId", "resource is free")
	}
	owned, err := u.repos.Purchases.CompletedResourceIDs(ctx, repository.NoTX, userID)
	if err != nil {
		return nil, nil, err
	}
	for _, id := range owned {
		if id == resourceID {
			return nil, nil, domain.ErrAlreadyExists
		}
	}

	md := map[string]string{
		model.MetaType:       model.TypeResourcePurchase,
		model.MetaUserID:     userID,
		model.MetaResourceID: resourceID,
	}
	if email = normalizeEmail(email); email != "" {
		md[model.MetaEmail] = email
	}
	pi, err := u.charger.Create(ctx, res.Price, res.Currency, md)
	if err != nil {
		return nil, nil, err
	}

	var purchase *model.ResourcePurchase
	err = u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		p, err := u.repos.Purchases.FindPendingByUserAndResource(ctx, tx, userID, resourceID)
		switch {
		case errors.Is(err, domain.ErrNotFound):
			p = &model.ResourcePurchase{
				ID:         uuid.NewString(),
				UserID:     userID,
				ResourceID: resourceID,
				Status:     model.PurchasePending,
				CreatedAt:  time.Now().UTC(),
			}
		case err != nil:
			return err
		}
		p.PaymentIntentID = pi.ID
		purchase = p
		return u.repos.Purchases.Save(ctx, tx, p)
	})
	if err != nil {
		return nil, nil, err
	}
	logging.With(ctx, u.log).Info().
		Str("user_id", userID).
		Str("resource_id", resourceID).
		Str("payment_intent_id", pi.ID).
		Msg("resource purchase started")
	return purchase, pi, nil
}

// RegisterForEvent opens (or reuses) a PENDING registration and the intent
// that will confirm it.
func (u *contentUC) RegisterForEvent(ctx context.Context, in EventRegistrationInput) (*model.EventRegistration, *model.PaymentIntent, error) {
	defer logging.TraceDuration(u.log, "ContentUC.RegisterForEvent")()

	email := normalizeEmail(in.Email)
	if in.EventID == "" {
		return nil, nil, domain.NewValidationError("eventId", "is required")
	}
	if email == "" {
		return nil, nil, domain.NewValidationError("email", "is required")
	}

	reg, err := u.repos.Registrations.FindOpenByEventAndEmail(ctx, repository.NoTX, in.EventID, email)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		now := time.Now().UTC()
		reg = &model.EventRegistration{
			ID:            uuid.NewString(),
			EventID:       in.EventID,
			UserID:        in.UserID,
			Email:         email,
			Status:        model.RegistrationPending,
			PaymentStatus: model.RegistrationUnpaid,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
	case err != nil:
		return nil, nil, err
	case reg.Status == model.RegistrationConfirmed:
		return nil, nil, domain.ErrAlreadyExists
	}

	md := map[string]string{
		model.MetaEventID: in.EventID,
		model.MetaEmail:   email,
	}
	if in.UserID != "" {
		md[model.MetaUserID] = in.UserID
	}
	pi, err := u.charger.Create(ctx, in.Amount, in.Currency, md)
	if err != nil {
		return nil, nil, err
	}
	reg.PaymentIntentID = pi.ID
	reg.UpdatedAt = time.Now().UTC()
	if err := u.repos.Registrations.Save(ctx, repository.NoTX, reg); err != nil {
		return nil, nil, err
	}
	logging.With(ctx, u.log).Info().
		Str("event_id", in.EventID).
		Str("email", logging.Redact(email, false)).
		Str("payment_intent_id", pi.ID).
		Msg("event registration opened")
	return reg, pi, nil
}

// resolve treats anonymous callers as NONE.
func (u *contentUC) resolve(ctx context.Context, userID string) (model.Entitlement, error) {
	if userID == "" {
		return model.Entitlement{Tier: model.TierNone}, nil
	}
	return u.entitlements.Resolve(ctx, userID)
}

func normalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
