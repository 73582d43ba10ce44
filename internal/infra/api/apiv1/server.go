package apiv1

import (
	"context"

	"github.com/rs/zerolog"

	"trading-academy/internal/domain/model"
	"trading-academy/internal/domain/ports/adapter"
	"trading-academy/internal/infra/api"
	"trading-academy/internal/infra/logging"
	"trading-academy/internal/usecase"
)

// Router is what the webhook endpoints hand verified events to.
type Router interface {
	HandleEvent(ctx context.Context, evt model.WebhookEvent) error
}

// Deps are the collaborators behind the v1 handlers. Limiter and the secrets
// are optional.
type Deps struct {
	Payments      usecase.PaymentIntentUseCase
	Subscriptions usecase.SubscriptionUseCase
	Entitlements  usecase.EntitlementUseCase
	Content       usecase.ContentUseCase
	Router        Router
	Auth          *api.Authenticator

	Limiter          adapter.RateLimiter
	ConfirmPerMinute int

	WebhookSecret string
	StripeSecret  string
	// Throttle guards the unauthenticated webhook ingress.
	Throttle *api.Throttle
}

type Server struct {
	deps Deps
	log  *zerolog.Logger
}

func NewServer(deps Deps, logger *zerolog.Logger) *Server {
	return &Server{deps: deps, log: logging.Component(logger, "apiv1")}
}
