package webhook

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v76"
	stripewebhook "github.com/stripe/stripe-go/v76/webhook"

	"trading-academy/internal/domain/model"
)

// StripeSignatureHeader is the header Stripe signs deliveries with.
const StripeSignatureHeader = "Stripe-Signature"

// ErrIgnoredEvent is returned for verified Stripe events the router has no branch for.
var ErrIgnoredEvent = errors.New("webhook: event type ignored")

// ParseStripeEvent verifies a Stripe delivery and converts a
// payment_intent.succeeded event into the envelope the router consumes.
func ParseStripeEvent(payload []byte, header, secret string) (model.WebhookEvent, error) {
	evt, err := stripewebhook.ConstructEventWithOptions(payload, header, secret,
		stripewebhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return model.WebhookEvent{}, fmt.Errorf("%w: %v", ErrBadSignature, err)
	}
	if string(evt.Type) != model.EventPaymentIntentSucceeded {
		return model.WebhookEvent{ID: evt.ID, Type: string(evt.Type)}, ErrIgnoredEvent
	}
	if evt.Data == nil {
		return model.WebhookEvent{}, fmt.Errorf("webhook: stripe event %s has no data", evt.ID)
	}

	var spi stripe.PaymentIntent
	if err := json.Unmarshal(evt.Data.Raw, &spi); err != nil {
		return model.WebhookEvent{}, fmt.Errorf("webhook: decode stripe payment intent: %w", err)
	}
	return model.NewPaymentSucceededEvent(evt.ID, fromStripeIntent(&spi)), nil
}

func fromStripeIntent(spi *stripe.PaymentIntent) *model.PaymentIntent {
	created := time.Unix(spi.Created, 0).UTC()
	pi := &model.PaymentIntent{
		ID:        spi.ID,
		Amount:    spi.Amount,
		Currency:  strings.ToLower(string(spi.Currency)),
		Status:    model.PaymentIntentSucceeded,
		Metadata:  make(map[string]string, len(spi.Metadata)),
		CreatedAt: created,
		UpdatedAt: time.Now().UTC(),
	}
	for k, v := range spi.Metadata {
		pi.Metadata[k] = v
	}
	if pm := spi.PaymentMethod; pm != nil {
		method := &model.PaymentMethod{ID: pm.ID, Type: string(pm.Type)}
		if pm.Card != nil {
			method.Card = &model.CardDetails{
				Brand:    string(pm.Card.Brand),
				Last4:    pm.Card.Last4,
				ExpMonth: int(pm.Card.ExpMonth),
				ExpYear:  int(pm.Card.ExpYear),
			}
		}
		pi.PaymentMethod = method
	}
	return pi
}
