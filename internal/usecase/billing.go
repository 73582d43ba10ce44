package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	"trading-academy/internal/domain/model"
	"trading-academy/internal/domain/ports/repository"
)

// Charger is the part of the payment engine billing needs.
type Charger interface {
	Create(ctx context.Context, amount int64, currency string, metadata map[string]string) (*model.PaymentIntent, error)
	ChargeOffSession(ctx context.Context, amount int64, currency string, metadata map[string]string) (*model.PaymentIntent, error)
}

// PlanPrices maps each plan to its price in minor units.
type PlanPrices struct {
	Currency string
	Monthly  int64
	Yearly   int64
}

func (p PlanPrices) For(plan model.SubscriptionPlan) int64 {
	if plan == model.PlanYearly {
		return p.Yearly
	}
	return p.Monthly
}

// billing records one Order per billing step.
type billing struct {
	orders  repository.OrderRepository
	charger Charger
	prices  PlanPrices
}

// recordCreate always writes a paid order for a new subscription. When the
// subscription was bought through an intent, the order carries its amount.
func (b *billing) recordCreate(ctx context.Context, tx repository.Tx, sub *model.Subscription, intent *model.PaymentIntent, now time.Time) (*model.Order, error) {
	o := &model.Order{
		ID:             uuid.NewString(),
		UserID:         sub.UserID,
		SubscriptionID: sub.ID,
		Kind:           model.OrderSubscriptionCreate,
		Amount:         b.prices.For(sub.Plan),
		Currency:       b.prices.Currency,
		Status:         model.OrderPaid,
		CreatedAt:      now,
	}
	if intent != nil {
		o.PaymentIntentID = intent.ID
		o.Amount = intent.Amount
		o.Currency = intent.Currency
	}
	return o, b.orders.Save(ctx, tx, o)
}

// chargeRenewal bills one period off-session. The intent is tagged so the
// webhook router ignores it.
func (b *billing) chargeRenewal(ctx context.Context, sub *model.Subscription) (*model.PaymentIntent, error) {
	return b.charger.ChargeOffSession(ctx, b.prices.For(sub.Plan), b.prices.Currency, map[string]string{
		model.MetaType:           model.TypeSubscriptionRenewal,
		model.MetaUserID:         sub.UserID,
		model.MetaSubscriptionID: sub.ID,
		model.MetaPlan:           string(sub.Plan),
	})
}

func (b *billing) renewalOrder(sub *model.Subscription, intent *model.PaymentIntent, now time.Time) *model.Order {
	o := &model.Order{
		ID:              uuid.NewString(),
		UserID:          sub.UserID,
		SubscriptionID:  sub.ID,
		PaymentIntentID: intent.ID,
		Kind:            model.OrderSubscriptionRenewal,
		Amount:          intent.Amount,
		Currency:        intent.Currency,
		Status:          model.OrderPaid,
		CreatedAt:       now,
	}
	if intent.Status != model.PaymentIntentSucceeded {
		o.Status = model.OrderFailed
		o.FailureMessage = string(intent.Status)
		if intent.LastPaymentError != nil {
			o.FailureMessage = intent.LastPaymentError.Message
		}
	}
	return o
}

// checkout opens an intent the router will turn into a signals subscription.
func (b *billing) checkout(ctx context.Context, userID, email string, plan model.SubscriptionPlan) (*model.PaymentIntent, error) {
	md := map[string]string{
		model.MetaSubscriptionType: model.SubscriptionTypeSignals,
		model.MetaUserID:           userID,
		model.MetaPlan:             string(plan),
	}
	if email != "" {
		md[model.MetaEmail] = email
	}
	return b.charger.Create(ctx, b.prices.For(plan), b.prices.Currency, md)
}
