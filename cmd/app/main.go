package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"trading-academy/internal/config"
	"trading-academy/internal/infra/api"
	apiv1 "trading-academy/internal/infra/api/apiv1"
	"trading-academy/internal/infra/db/fixtures"
	"trading-academy/internal/infra/logging"
	"trading-academy/internal/infra/metrics"
	"trading-academy/internal/infra/sched"
	"trading-academy/internal/infra/scheduler"
	"trading-academy/internal/infra/webhook"
	"trading-academy/internal/infra/worker"
	"trading-academy/internal/usecase"
)

// set with -ldflags "-X main.version=... -X main.commit=..."
var (
	version = "dev"
	commit  = "none"
)

func main() {
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "developer mode: in-memory stores, seeded catalog, console logs")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	logger := logging.New(cfg.Log, cfg.Runtime.Dev)

	if err := run(cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("service stopped with error")
	}
	logger.Info().Msg("service stopped")
}

func run(cfg *config.Config, logger *zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics.MustRegister()
	metrics.SetBuildInfo(version, commit)

	// ---- Storage ----
	var be *backend
	if cfg.Runtime.Dev && cfg.Database.URL == "" {
		logger.Warn().Msg("[DEV MODE] no database.url, using in-memory stores")
		be = newMemoryBackend()
	} else {
		var err error
		if be, err = newSQLBackend(ctx, cfg, logger); err != nil {
			return err
		}
	}
	defer be.close()

	// ---- Use cases ----
	policy := usecase.NewOutcomePolicy(cfg.Payment.Mock.Rate(), cfg.Payment.Mock.RedirectURL, nil)
	payments := usecase.NewPaymentIntentUseCase(be.intents, policy, nil, be.locker,
		cfg.Payment.ConfirmLock, cfg.Payment.Mock.Currency, logger)
	subscriptions := usecase.NewSubscriptionUseCase(be.subs, be.orders, payments, be.tm,
		usecase.PlanPrices{
			Currency: cfg.Billing.Currency,
			Monthly:  cfg.Billing.Monthly.Amount,
			Yearly:   cfg.Billing.Yearly.Amount,
		},
		usecase.DunningPolicy{
			Enabled:     cfg.Billing.Dunning.Enabled,
			MaxAttempts: cfg.Billing.Dunning.MaxAttempts,
			GracePeriod: cfg.Billing.Dunning.GracePeriod,
		},
		cfg.Billing.ExpireAfter, logger)
	entitlements := usecase.NewEntitlementUseCase(be.users, be.mentorships, be.subs,
		cfg.Entitlement.SignalsPlans, cfg.Billing.Dunning.Enabled, logger)
	content := usecase.NewContentUseCase(usecase.ContentRepos{
		Resources:     be.resources,
		Purchases:     be.purchases,
		Signals:       be.signals,
		Registrations: be.registrations,
	}, entitlements, payments, be.tm, logger)
	router := usecase.NewWebhookUseCase(usecase.WebhookRepos{
		Purchases:     be.purchases,
		Registrations: be.registrations,
		Enrollments:   be.enrollments,
		Mentorships:   be.mentorships,
	}, subscriptions, be.tm, be.idem, cfg.Webhook.IdempotencyTTL, logger)

	// ---- Webhook delivery ----
	var pool *worker.Pool
	if cfg.Webhook.Mode == webhook.ModeQueue {
		pool = worker.NewPool(cfg.Webhook.Workers, cfg.Webhook.Workers*64, logger)
		// in-flight deliveries outlive the signal; Stop below drains the
		// queue once the HTTP server has shut down
		pool.Start(context.WithoutCancel(ctx))
		defer pool.Stop()
	}
	dispatcher, err := webhook.New(cfg.Webhook, router, pool, logger)
	if err != nil {
		return err
	}
	payments.SetDispatcher(dispatcher)

	// ---- HTTP ----
	auth := api.NewAuthenticator(cfg.Auth.JWTSecret, cfg.Auth.TTL)
	srv := apiv1.NewServer(apiv1.Deps{
		Payments:         payments,
		Subscriptions:    subscriptions,
		Entitlements:     entitlements,
		Content:          content,
		Router:           router,
		Auth:             auth,
		Limiter:          be.limiter,
		ConfirmPerMinute: cfg.RateLimit.ConfirmPerMinute,
		WebhookSecret:    cfg.Webhook.Secret,
		StripeSecret:     cfg.Stripe.WebhookSecret,
		Throttle:         api.NewThrottle(cfg.RateLimit.IngressPerMinute, cfg.RateLimit.IngressBurst),
	}, logger)
	handler := apiv1.NewRouter(srv,
		api.TraceID(),
		api.RequestLog(logger),
		api.Recover(logger),
		api.Timeout(cfg.HTTP.RequestTimeout),
	)
	httpServer := api.NewServer(cfg.HTTP, handler, logger)

	if cfg.Runtime.Dev {
		seedDev(ctx, be, auth, logger)
	}

	// ---- Scheduled jobs ----
	jobs := scheduler.NewScheduler(5*time.Minute, logger)
	if err := jobs.Add(cfg.Scheduler.RenewalCron, sched.NewRenewalWorker(subscriptions, be.locker, 10*time.Minute, logger)); err != nil {
		return fmt.Errorf("schedule renewal sweep: %w", err)
	}
	if be.poolStats != nil {
		if err := jobs.Add("@every 15s", sched.NewPoolStatsWorker(be.poolStats)); err != nil {
			return fmt.Errorf("schedule pool stats: %w", err)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return httpServer.ListenAndServe(gctx)
	})
	g.Go(func() error {
		jobs.Start(gctx)
		<-gctx.Done()
		jobs.Stop()
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info().Msg("shutdown requested")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// seedDev loads the demo catalog and logs a bearer token per demo user.
func seedDev(ctx context.Context, be *backend, auth *api.Authenticator, logger *zerolog.Logger) {
	res, err := fixtures.Seed(ctx, fixtures.Repos{Users: be.users, Resources: be.resources, Signals: be.signals})
	if err != nil {
		logger.Error().Err(err).Msg("[DEV MODE] seeding failed")
		return
	}
	for _, u := range res.Users {
		tok, err := auth.Issue(u.ID, u.Email, u.Role)
		if err != nil {
			continue
		}
		logger.Info().Str("user_id", u.ID).Str("role", string(u.Role)).Str("token", tok).Msg("[DEV MODE] demo user")
	}
	logger.Info().Int("resources", res.Resources).Int("signals", res.Signals).Msg("[DEV MODE] catalog seeded")
}
