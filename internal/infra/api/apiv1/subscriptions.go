package apiv1

import (
	"errors"
	"net/http"

	"trading-academy/internal/domain"
	"trading-academy/internal/domain/model"
	"trading-academy/internal/infra/api"
	"trading-academy/internal/usecase"
)

type cancelRequest struct {
	SubscriptionID string `json:"subscriptionId" validate:"required"`
	Reason         string `json:"reason" validate:"max=500"`
}

type checkoutRequest struct {
	Plan  string `json:"plan" validate:"omitempty,oneof=MONTHLY YEARLY monthly yearly"`
	Email string `json:"email" validate:"omitempty,email"`
}

// AccessResponse is what the client uses to decide which screens to unlock.
type AccessResponse struct {
	Tier             model.Tier          `json:"tier"`
	SubscriptionType string              `json:"subscriptionType"`
	PremiumSignals   bool                `json:"premiumSignals"`
	PremiumResources bool                `json:"premiumResources"`
	Mentorship       bool                `json:"mentorship"`
	SignalsValid     bool                `json:"signalsValid"`
	PremiumValid     bool                `json:"premiumValid"`
	Subscription     *model.Subscription `json:"subscription"`
}

func toAccessResponse(e model.Entitlement) AccessResponse {
	out := AccessResponse{
		Tier:             e.Tier,
		SubscriptionType: "none",
		PremiumSignals:   e.PremiumSignals(),
		PremiumResources: e.PremiumResources(),
		Mentorship:       e.Mentorship,
		SignalsValid:     e.SignalsValid,
		PremiumValid:     e.PremiumValid,
		Subscription:     e.Subscription,
	}
	switch e.Tier {
	case model.TierPremium:
		out.SubscriptionType = "premium"
	case model.TierSignals:
		out.SubscriptionType = "signals"
	}
	return out
}

func (s *Server) handleAccess(w http.ResponseWriter, r *http.Request) {
	p, _ := api.PrincipalFrom(r.Context())
	ent, err := s.deps.Entitlements.Resolve(r.Context(), p.UserID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, toAccessResponse(ent))
}

func (s *Server) handleCurrentSubscription(w http.ResponseWriter, r *http.Request) {
	p, _ := api.PrincipalFrom(r.Context())
	sub, err := s.deps.Subscriptions.GetCurrent(r.Context(), p.UserID)
	if errors.Is(err, domain.ErrNotFound) {
		api.WriteJSON(w, http.StatusOK, map[string]any{"subscription": nil})
		return
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, map[string]any{"subscription": sub})
}

func (s *Server) handleCheckout(w http.ResponseWriter, r *http.Request) {
	p, _ := api.PrincipalFrom(r.Context())
	var req checkoutRequest
	if err := decode(r, &req, true); err != nil {
		s.writeError(w, r, err)
		return
	}
	plan, err := model.ParsePlan(req.Plan)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	email := req.Email
	if email == "" {
		email = p.Email
	}
	pi, err := s.deps.Subscriptions.Checkout(r.Context(), p.UserID, email, plan)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	api.WriteJSON(w, http.StatusCreated, toIntentResponse(pi))
}

func (s *Server) handleCancelSubscription(w http.ResponseWriter, r *http.Request) {
	p, _ := api.PrincipalFrom(r.Context())
	var req cancelRequest
	if err := decode(r, &req, false); err != nil {
		s.writeError(w, r, err)
		return
	}
	sub, err := s.deps.Subscriptions.CancelSubscription(r.Context(),
		usecase.Actor{UserID: p.UserID, Role: p.Role}, req.SubscriptionID, req.Reason)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, map[string]any{"success": true, "subscription": sub})
}
