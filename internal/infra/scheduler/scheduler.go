package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"trading-academy/internal/infra/logging"
	"trading-academy/internal/infra/metrics"
)

// Job is one scheduled unit of work.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// Scheduler runs registered jobs on cron schedules. A run that is still going
// when its next tick fires is skipped, and every run gets its own timeout.
type Scheduler struct {
	cron    *cron.Cron
	timeout time.Duration
	log     *zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc
}

// NewScheduler defaults timeout to 5 minutes.
func NewScheduler(timeout time.Duration, logger *zerolog.Logger) *Scheduler {
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	log := logging.Component(logger, "scheduler")
	cl := cronLogger{log: log}
	return &Scheduler{
		cron: cron.New(
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		timeout: timeout,
		log:     log,
	}
}

// Add registers job under schedule ("@hourly", "*/5 * * * *", ...).
func (s *Scheduler) Add(schedule string, job Job) error {
	_, err := s.cron.AddFunc(schedule, func() { s.runOnce(job) })
	if err != nil {
		return fmt.Errorf("schedule %s: %w", job.Name(), err)
	}
	s.log.Info().Str("job", job.Name()).Str("schedule", schedule).Msg("job scheduled")
	return nil
}

func (s *Scheduler) runOnce(job Job) {
	parent := s.ctx
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithTimeout(parent, s.timeout)
	defer cancel()

	start := time.Now()
	err := job.Run(ctx)
	switch {
	case err == nil:
		metrics.IncJobRun(job.Name(), "ok")
		s.log.Debug().Str("job", job.Name()).Dur("took", time.Since(start)).Msg("job finished")
	case ctx.Err() != nil:
		metrics.IncJobRun(job.Name(), "timeout")
		s.log.Warn().Err(err).Str("job", job.Name()).Msg("job interrupted")
	default:
		metrics.IncJobRun(job.Name(), "error")
		s.log.Error().Err(err).Str("job", job.Name()).Msg("job failed")
	}
}

// Start begins ticking. Calling Start twice has no effect.
func (s *Scheduler) Start(parentCtx context.Context) {
	if s.ctx != nil {
		return
	}
	s.ctx, s.cancel = context.WithCancel(parentCtx)
	s.cron.Start()
	s.log.Info().Int("jobs", len(s.cron.Entries())).Msg("scheduler started")
}

// Stop cancels running jobs and waits for them to return. It is idempotent.
func (s *Scheduler) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.cron.Stop().Done()
	s.ctx, s.cancel = nil, nil
	s.log.Info().Msg("scheduler stopped")
}

// cronLogger routes cron's own logging through zerolog.
type cronLogger struct {
	log *zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug().Fields(keysAndValues).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
