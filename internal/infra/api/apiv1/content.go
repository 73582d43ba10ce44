package apiv1

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"trading-academy/internal/infra/api"
	"trading-academy/internal/usecase"
)

type registerEventRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Amount   int64  `json:"amount" validate:"gte=0"`
	Currency string `json:"currency" validate:"omitempty,len=3"`
}

// premiumParam reads ?premium=; anything unparsable means false.
func premiumParam(r *http.Request) bool {
	v, _ := strconv.ParseBool(r.URL.Query().Get("premium"))
	return v
}

func callerID(r *http.Request) string {
	p, _ := api.PrincipalFrom(r.Context())
	return p.UserID
}

func (s *Server) handleListResources(w http.ResponseWriter, r *http.Request) {
	list, err := s.deps.Content.ListResources(r.Context(), callerID(r), premiumParam(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, list)
}

func (s *Server) handleListSignals(w http.ResponseWriter, r *http.Request) {
	list, err := s.deps.Content.ListSignals(r.Context(), callerID(r), premiumParam(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, list)
}

func (s *Server) handlePurchaseResource(w http.ResponseWriter, r *http.Request) {
	p, _ := api.PrincipalFrom(r.Context())
	purchase, pi, err := s.deps.Content.StartResourcePurchase(r.Context(), p.UserID, p.Email, chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	api.WriteJSON(w, http.StatusCreated, map[string]any{
		"purchase":      purchase,
		"paymentIntent": toIntentResponse(pi),
	})
}

func (s *Server) handleRegisterEvent(w http.ResponseWriter, r *http.Request) {
	var req registerEventRequest
	if err := decode(r, &req, false); err != nil {
		s.writeError(w, r, err)
		return
	}
	reg, pi, err := s.deps.Content.RegisterForEvent(r.Context(), usecase.EventRegistrationInput{
		EventID:  chi.URLParam(r, "id"),
		Email:    req.Email,
		UserID:   callerID(r),
		Amount:   req.Amount,
		Currency: req.Currency,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	api.WriteJSON(w, http.StatusCreated, map[string]any{
		"registration":  reg,
		"paymentIntent": toIntentResponse(pi),
	})
}
