package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"trading-academy/internal/config"
	"trading-academy/internal/domain/ports/adapter"
	"trading-academy/internal/domain/ports/repository"
	"trading-academy/internal/infra/db/memory"
	pg "trading-academy/internal/infra/db/postgres"
	red "trading-academy/internal/infra/redis"
	"trading-academy/internal/infra/sched"
)

// backend is every storage-facing port the use cases need.
type backend struct {
	tm            repository.TransactionManager
	intents       repository.PaymentIntentRepository
	users         repository.UserRepository
	subs          repository.SubscriptionRepository
	mentorships   repository.MentorshipRepository
	enrollments   repository.CourseEnrollmentRepository
	registrations repository.EventRegistrationRepository
	resources     repository.ResourceRepository
	purchases     repository.ResourcePurchaseRepository
	signals       repository.SignalRepository
	orders        repository.OrderRepository

	locker  adapter.Locker
	limiter adapter.RateLimiter
	idem    adapter.IdempotencyStore

	// poolStats is nil in memory mode.
	poolStats sched.PoolStats
	close     func()
}

// newMemoryBackend keeps everything in process. Only valid in dev mode.
func newMemoryBackend() *backend {
	store := memory.NewStore()
	return &backend{
		tm:            memory.NewTxManager(store),
		intents:       memory.NewPaymentIntentRepo(store),
		users:         memory.NewUserRepo(store),
		subs:          memory.NewSubscriptionRepo(store),
		mentorships:   memory.NewMentorshipRepo(store),
		enrollments:   memory.NewEnrollmentRepo(store),
		registrations: memory.NewRegistrationRepo(store),
		resources:     memory.NewResourceRepo(store),
		purchases:     memory.NewPurchaseRepo(store),
		signals:       memory.NewSignalRepo(store),
		orders:        memory.NewOrderRepo(store),
		locker:        memory.NewLocker(),
		limiter:       memory.NewRateLimiter(),
		idem:          memory.NewIdempotencyStore(),
		close:         func() {},
	}
}

func newSQLBackend(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (*backend, error) {
	pool, err := pg.NewPgxPool(ctx, &cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("postgres: %w", err)
	}
	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("redis: %w", err)
	}
	logger.Info().Msg("connected to postgres and redis")

	return &backend{
		tm:            pg.NewTxManager(pool),
		intents:       pg.NewPaymentIntentRepo(pool),
		users:         pg.NewUserRepoCacheDecorator(pg.NewPostgresUserRepo(pool), redisClient, cfg.Redis.TTL),
		subs:          pg.NewSubscriptionRepo(pool),
		mentorships:   pg.NewMentorshipRepo(pool),
		enrollments:   pg.NewEnrollmentRepo(pool),
		registrations: pg.NewRegistrationRepo(pool),
		resources:     pg.NewResourceRepo(pool),
		purchases:     pg.NewPurchaseRepo(pool),
		signals:       pg.NewSignalRepo(pool),
		orders:        pg.NewOrderRepo(pool),
		locker:        red.NewLocker(redisClient),
		limiter:       red.NewRateLimiter(redisClient),
		idem:          red.NewIdempotencyStore(redisClient),
		poolStats: func() (int32, int32, int32) {
			st := pool.Stat()
			return st.TotalConns(), st.IdleConns(), st.AcquiredConns()
		},
		close: func() {
			_ = redisClient.Close()
			pool.Close()
		},
	}, nil
}
