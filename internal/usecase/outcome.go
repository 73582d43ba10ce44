package usecase

import (
	"math/rand"
	"strings"
	"unicode"

	"trading-academy/internal/domain/model"
)

// Card numbers with a fixed outcome, regardless of the configured success rate.
const (
	CardAlwaysSucceeds    = "4242424242424242"
	CardGenericDecline    = "4000000000000002"
	CardInsufficientFunds = "4000000000009995"
)

const (
	requiresActionUpperBound = 0.95

	declineCodeGeneric       = "generic_decline"
	declineCodeNoFunds       = "insufficient_funds"
	errorTypeCard            = "card_error"
	errorCodeCardDeclined    = "card_declined"
	genericDeclineMessage    = "Your card was declined."
	insufficientFundsMessage = "Your card has insufficient funds."

	nextActionRedirectToURL = "redirect_to_url"
	paymentMethodTypeCard   = "card"
	paymentMethodTypeOnFile = "card_on_file"
)

// CardInput is the card data a caller confirms an intent with.
type CardInput struct {
	Number   string `json:"number" validate:"omitempty,min=12,max=19"`
	ExpMonth int    `json:"expMonth" validate:"omitempty,min=1,max=12"`
	ExpYear  int    `json:"expYear" validate:"omitempty,min=2000"`
	CVC      string `json:"cvc" validate:"omitempty,min=3,max=4"`
}

// outcome is what a single confirmation does to an intent.
type outcome struct {
	status model.PaymentIntentStatus
	method *model.PaymentMethod
	err    *model.PaymentError
	next   *model.NextAction
}

func (o outcome) apply(pi *model.PaymentIntent) {
	switch o.status {
	case model.PaymentIntentSucceeded:
		pi.Succeed(o.method)
	case model.PaymentIntentRequiresAction:
		pi.RequireAction(o.next)
	default:
		pi.Fail(o.err)
	}
}

// OutcomePolicy decides how the mock gateway answers a confirmation.
// Sentinel cards are checked first, then a uniform draw r in [0,1):
// r < successRate succeeds, r < 0.95 needs a 3-D Secure redirect, anything
// else is a generic decline.
type OutcomePolicy struct {
	successRate float64
	redirectURL string
	random      func() float64
	newMethodID func() string
}

func NewOutcomePolicy(successRate float64, redirectURL string, random func() float64) *OutcomePolicy {
	if random == nil {
		random = rand.Float64
	}
	return &OutcomePolicy{
		successRate: successRate,
		redirectURL: redirectURL,
		random:      random,
		newMethodID: func() string { return newPrefixedID("pm") },
	}
}

func (p *OutcomePolicy) decide(intentID string, card *CardInput) outcome {
	number := ""
	if card != nil {
		number = digitsOnly(card.Number)
	}
	switch number {
	case CardAlwaysSucceeds:
		return p.succeeded(card, number)
	case CardGenericDecline:
		return declined(declineCodeGeneric, genericDeclineMessage)
	case CardInsufficientFunds:
		return declined(declineCodeNoFunds, insufficientFundsMessage)
	}

	r := p.random()
	switch {
	case r < p.successRate:
		return p.succeeded(card, number)
	case r < requiresActionUpperBound:
		return outcome{
			status: model.PaymentIntentRequiresAction,
			next: &model.NextAction{
				Type: nextActionRedirectToURL,
				RedirectToURL: &model.RedirectToURL{
					URL: p.redirectURL + "?payment_intent=" + intentID,
				},
			},
		}
	default:
		return declined(declineCodeGeneric, genericDeclineMessage)
	}
}

func (p *OutcomePolicy) succeeded(card *CardInput, number string) outcome {
	pm := &model.PaymentMethod{ID: p.newMethodID(), Type: paymentMethodTypeOnFile}
	if number != "" {
		pm.Type = paymentMethodTypeCard
		pm.Card = &model.CardDetails{Brand: cardBrand(number), Last4: number[len(number)-4:]}
		if card != nil {
			pm.Card.ExpMonth = card.ExpMonth
			pm.Card.ExpYear = card.ExpYear
		}
	}
	return outcome{status: model.PaymentIntentSucceeded, method: pm}
}

func declined(code, msg string) outcome {
	return outcome{
		status: model.PaymentIntentFailed,
		err: &model.PaymentError{
			Type:        errorTypeCard,
			Code:        errorCodeCardDeclined,
			DeclineCode: code,
			Message:     msg,
		},
	}
}

func digitsOnly(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) {
			return r
		}
		return -1
	}, s)
}

func cardBrand(number string) string {
	switch {
	case strings.HasPrefix(number, "4"):
		return "visa"
	case strings.HasPrefix(number, "5"), strings.HasPrefix(number, "2"):
		return "mastercard"
	case strings.HasPrefix(number, "34"), strings.HasPrefix(number, "37"):
		return "amex"
	case strings.HasPrefix(number, "6"):
		return "discover"
	}
	return "unknown"
}
