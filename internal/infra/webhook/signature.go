package webhook

import (
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	stripewebhook "github.com/stripe/stripe-go/v76/webhook"
)

// SignatureHeader carries "t=<unix>,v1=<hex hmac>" over "<t>.<body>", the
// same scheme Stripe uses for its own deliveries.
const SignatureHeader = "X-Webhook-Signature"

var (
	ErrMissingSignature = errors.New("webhook: missing signature")
	ErrBadSignature     = errors.New("webhook: signature mismatch")
	ErrStaleSignature   = errors.New("webhook: signature timestamp outside tolerance")
)

func Sign(secret string, ts time.Time, body []byte) string {
	return fmt.Sprintf("t=%d,v1=%s", ts.Unix(), hex.EncodeToString(stripewebhook.ComputeSignature(ts, body, secret)))
}

// Verify checks header against body. A zero tolerance skips the timestamp check.
func Verify(secret, header string, body []byte, tolerance time.Duration) error {
	var err error
	if tolerance > 0 {
		err = stripewebhook.ValidatePayloadWithTolerance(body, header, secret, tolerance)
	} else {
		err = stripewebhook.ValidatePayloadIgnoringTolerance(body, header, secret)
	}
	switch {
	case err == nil:
		return nil
	case errors.Is(err, stripewebhook.ErrNotSigned), errors.Is(err, stripewebhook.ErrInvalidHeader):
		return ErrMissingSignature
	case errors.Is(err, stripewebhook.ErrTooOld):
		return ErrStaleSignature
	default:
		return ErrBadSignature
	}
}
