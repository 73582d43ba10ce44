package apiv1

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"trading-academy/internal/domain"
	"trading-academy/internal/domain/model"
	"trading-academy/internal/infra/api"
	"trading-academy/internal/infra/logging"
	redisinfra "trading-academy/internal/infra/redis"
	"trading-academy/internal/usecase"
)

type createIntentRequest struct {
	Amount   *int64            `json:"amount" validate:"required,gte=0"`
	Currency string            `json:"currency" validate:"omitempty,len=3"`
	Metadata map[string]string `json:"metadata"`
}

type confirmRequest struct {
	PaymentMethod *struct {
		Card *usecase.CardInput `json:"card"`
	} `json:"paymentMethod"`
}

// IntentResponse is the public view of an intent. clientSecret lets the
// browser confirm without a bearer token.
type IntentResponse struct {
	PaymentIntentID  string                    `json:"paymentIntentId"`
	ClientSecret     string                    `json:"clientSecret"`
	Amount           int64                     `json:"amount"`
	Currency         string                    `json:"currency"`
	Status           model.PaymentIntentStatus `json:"status"`
	Metadata         map[string]string         `json:"metadata"`
	PaymentMethod    *model.PaymentMethod      `json:"payment_method,omitempty"`
	LastPaymentError *model.PaymentError       `json:"last_payment_error,omitempty"`
	NextAction       *model.NextAction         `json:"next_action,omitempty"`
	Created          int64                     `json:"created"`
}

func toIntentResponse(pi *model.PaymentIntent) IntentResponse {
	return IntentResponse{
		PaymentIntentID:  pi.ID,
		ClientSecret:     pi.ID + "_secret",
		Amount:           pi.Amount,
		Currency:         pi.Currency,
		Status:           pi.Status,
		Metadata:         pi.Metadata,
		PaymentMethod:    pi.PaymentMethod,
		LastPaymentError: pi.LastPaymentError,
		NextAction:       pi.NextAction,
		Created:          pi.CreatedAt.Unix(),
	}
}

func (s *Server) handleCreateIntent(w http.ResponseWriter, r *http.Request) {
	var req createIntentRequest
	if err := decode(r, &req, false); err != nil {
		s.writeError(w, r, err)
		return
	}
	md := req.Metadata
	// userId always names the caller, never someone the body claims to be
	if p, ok := api.PrincipalFrom(r.Context()); ok {
		if md == nil {
			md = map[string]string{}
		}
		md[model.MetaUserID] = p.UserID
		if p.Email != "" {
			md[model.MetaEmail] = p.Email
		}
	} else {
		delete(md, model.MetaUserID)
	}
	pi, err := s.deps.Payments.Create(r.Context(), *req.Amount, req.Currency, md)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	api.WriteJSON(w, http.StatusCreated, toIntentResponse(pi))
}

func (s *Server) handleGetIntent(w http.ResponseWriter, r *http.Request) {
	pi, err := s.deps.Payments.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, toIntentResponse(pi))
}

func (s *Server) handleConfirmIntent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if ok, err := s.allowConfirm(r, id); err != nil {
		logging.With(r.Context(), s.log).Warn().Err(err).Msg("confirm rate limiter unavailable")
	} else if !ok {
		s.writeError(w, r, domain.ErrRateLimited)
		return
	}

	var req confirmRequest
	if err := decode(r, &req, true); err != nil {
		s.writeError(w, r, err)
		return
	}
	var card *usecase.CardInput
	if req.PaymentMethod != nil {
		card = req.PaymentMethod.Card
	}

	pi, err := s.deps.Payments.Confirm(r.Context(), id, card)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	code := http.StatusOK
	if pi.Status == model.PaymentIntentFailed {
		code = http.StatusPaymentRequired
	}
	api.WriteJSON(w, code, toIntentResponse(pi))
}

// allowConfirm keys the window on the caller when authenticated and on the
// client address otherwise. Limiter errors fail open.
func (s *Server) allowConfirm(r *http.Request, intentID string) (bool, error) {
	if s.deps.Limiter == nil || s.deps.ConfirmPerMinute <= 0 {
		return true, nil
	}
	caller := "ip:" + remoteHost(r)
	if p, ok := api.PrincipalFrom(r.Context()); ok {
		caller = "user:" + p.UserID
	}
	return s.deps.Limiter.Allow(r.Context(), redisinfra.ConfirmKey(caller), s.deps.ConfirmPerMinute, time.Minute)
}

// handleChallenge is where the simulated 3-D Secure redirect lands. The
// challenge is considered passed; the client confirms the intent again.
func (s *Server) handleChallenge(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.URL.Query().Get("payment_intent"))
	pi, err := s.deps.Payments.Get(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if pi.Status != model.PaymentIntentRequiresAction {
		s.writeError(w, r, fmt.Errorf("%w: payment intent has no pending challenge", domain.ErrInvalidArgument))
		return
	}
	api.WriteJSON(w, http.StatusOK, map[string]any{
		"paymentIntentId": pi.ID,
		"status":          pi.Status,
		"challenge":       "completed",
		"next":            "/payment-intents/" + pi.ID + "/confirm",
	})
}

func remoteHost(r *http.Request) string {
	addr := r.RemoteAddr
	if i := strings.LastIndexByte(addr, ':'); i > 0 {
		return strings.Trim(addr[:i], "[]")
	}
	return addr
}
