package apiv1

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"trading-academy/internal/infra/api"
)

// RegisterAPIV1 mounts every route on r.
func RegisterAPIV1(r chi.Router, s *Server) {
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		if s.deps.Throttle != nil {
			r.Use(s.deps.Throttle.MiddlewareExcept(s.signedLoopback))
		}
		r.Post("/webhooks/payment", s.handlePaymentWebhook)
		r.Post("/webhooks/stripe", s.handleStripeWebhook)
		// 3-D Secure redirect target of the mock gateway
		r.Get("/payment-intents/3ds", s.handleChallenge)
	})

	r.Group(func(r chi.Router) {
		r.Use(s.deps.Auth.Optional())
		r.Post("/payment-intents", s.handleCreateIntent)
		r.Get("/payment-intents/{id}", s.handleGetIntent)
		r.Post("/payment-intents/{id}/confirm", s.handleConfirmIntent)
		r.Post("/events/{id}/register", s.handleRegisterEvent)
		r.Get("/resources", s.handleListResources)
		r.Get("/signals", s.handleListSignals)
	})

	r.Group(func(r chi.Router) {
		r.Use(s.deps.Auth.Require())
		r.Get("/user/access", s.handleAccess)
		r.Get("/subscriptions/current", s.handleCurrentSubscription)
		r.Post("/subscriptions/checkout", s.handleCheckout)
		r.Post("/subscriptions/cancel", s.handleCancelSubscription)
		r.Post("/resources/{id}/purchase", s.handlePurchaseResource)
	})
}

// NewRouter builds the full handler with the shared middleware stack.
func NewRouter(s *Server, mws ...api.Middleware) http.Handler {
	r := chi.NewRouter()
	for _, mw := range mws {
		r.Use(mw)
	}
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		api.WriteError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		api.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
	})
	RegisterAPIV1(r, s)
	return r
}
