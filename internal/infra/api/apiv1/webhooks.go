package apiv1

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"trading-academy/internal/domain/model"
	"trading-academy/internal/infra/api"
	"trading-academy/internal/infra/logging"
	"trading-academy/internal/infra/metrics"
	"trading-academy/internal/infra/webhook"
)

const (
	maxWebhookBody     = 1 << 20
	signatureTolerance = 5 * time.Minute
)

type webhookAck struct {
	Received bool `json:"received"`
}

// handlePaymentWebhook accepts the envelope the loopback dispatcher posts.
// Once the envelope parses the answer is 200; branch errors are only logged
// so the sender never retries a charge that already went through.
func (s *Server) handlePaymentWebhook(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		s.ingressDone("mock", "bad_request", start)
		api.WriteError(w, http.StatusBadRequest, "unreadable body")
		return
	}

	if s.deps.WebhookSecret != "" {
		if err := webhook.Verify(s.deps.WebhookSecret, r.Header.Get(webhook.SignatureHeader), body, signatureTolerance); err != nil {
			s.ingressDone("mock", "unauthorized", start)
			api.WriteError(w, http.StatusUnauthorized, err.Error())
			return
		}
	}

	var evt model.WebhookEvent
	if err := json.Unmarshal(body, &evt); err != nil || evt.Type == "" {
		s.ingressDone("mock", "bad_request", start)
		api.WriteError(w, http.StatusBadRequest, "malformed event")
		return
	}

	s.route(w, r, "mock", evt, start)
}

// signedLoopback reports whether r carries a valid delivery signature. The
// body is read and put back so the handler still sees it.
func (s *Server) signedLoopback(r *http.Request) bool {
	if s.deps.WebhookSecret == "" || r.Method != http.MethodPost || r.Header.Get(webhook.SignatureHeader) == "" {
		return false
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	_ = r.Body.Close()
	r.Body = io.NopCloser(bytes.NewReader(body))
	if err != nil {
		return false
	}
	return webhook.Verify(s.deps.WebhookSecret, r.Header.Get(webhook.SignatureHeader), body, signatureTolerance) == nil
}

func (s *Server) handleStripeWebhook(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	if s.deps.StripeSecret == "" {
		s.ingressDone("stripe", "disabled", start)
		api.WriteError(w, http.StatusNotFound, "stripe ingress not configured")
		return
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		s.ingressDone("stripe", "bad_request", start)
		api.WriteError(w, http.StatusBadRequest, "unreadable body")
		return
	}

	evt, err := webhook.ParseStripeEvent(body, r.Header.Get(webhook.StripeSignatureHeader), s.deps.StripeSecret)
	switch {
	case errors.Is(err, webhook.ErrIgnoredEvent):
		s.ingressDone("stripe", "ignored", start)
		logging.With(r.Context(), s.log).Debug().Str("event_type", evt.Type).Msg("stripe event ignored")
		api.WriteJSON(w, http.StatusOK, webhookAck{Received: true})
		return
	case errors.Is(err, webhook.ErrBadSignature):
		s.ingressDone("stripe", "unauthorized", start)
		api.WriteError(w, http.StatusBadRequest, "invalid signature")
		return
	case err != nil:
		s.ingressDone("stripe", "bad_request", start)
		api.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.route(w, r, "stripe", evt, start)
}

func (s *Server) route(w http.ResponseWriter, r *http.Request, source string, evt model.WebhookEvent, start time.Time) {
	ctx := r.Context()
	if evt.Data.Object != nil {
		ctx = logging.WithIntentID(ctx, evt.Data.Object.ID)
	}
	result := "ok"
	if err := s.deps.Router.HandleEvent(ctx, evt); err != nil {
		result = "error"
		logging.With(ctx, s.log).Error().Err(err).
			Str("source", source).
			Str("event_id", evt.ID).
			Msg("webhook event handling failed")
	}
	s.ingressDone(source, result, start)
	api.WriteJSON(w, http.StatusOK, webhookAck{Received: true})
}

func (s *Server) ingressDone(source, result string, start time.Time) {
	metrics.ObserveWebhookIngress(source, result, time.Since(start).Seconds())
}
