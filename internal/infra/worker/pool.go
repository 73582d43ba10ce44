// File: internal/infra/worker/pool.go
package worker

import (
	"context"
	"errors"
	"runtime"
	"sync"

	"github.com/rs/zerolog"
)

var (
	ErrQueueFull = errors.New("worker queue full")
	ErrStopped   = errors.New("worker pool stopped")
)

// A small fixed-size worker pool. Submit never blocks.

type Task func(ctx context.Context) error

type Pool struct {
	wg      sync.WaitGroup
	jobs    chan Task
	quit    chan struct{}
	once    sync.Once
	n       int
	mu      sync.RWMutex
	ctx     context.Context
	stopped bool
	log     *zerolog.Logger
}

// NewPool sizes the queue at queueSize, or workers*4 when queueSize <= 0.
func NewPool(workers, queueSize int, logger *zerolog.Logger) *Pool {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if queueSize <= 0 {
		queueSize = workers * 4
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Pool{jobs: make(chan Task, queueSize), quit: make(chan struct{}), n: workers, log: logger}
}

// Start launches the workers. Once ctx is done the pool takes no new tasks,
// and tasks already queued still run on a context that is never canceled.
func (p *Pool) Start(ctx context.Context) {
	p.mu.Lock()
	p.ctx = ctx
	p.mu.Unlock()
	for i := 0; i < p.n; i++ {
		p.wg.Add(1)
		go func(id int) {
			defer p.wg.Done()
			for {
				select {
				case <-ctx.Done():
					p.close()
					p.drain(context.WithoutCancel(ctx), id)
					return
				case <-p.quit:
					p.drain(ctx, id)
					return
				case task := <-p.jobs:
					if ctx.Err() != nil {
						// picked after cancel, so it runs like a drained task
						p.close()
						p.run(context.WithoutCancel(ctx), id, task)
						continue
					}
					p.run(ctx, id, task)
				}
			}
		}(i)
	}
}

// drain runs whatever is still queued so accepted work is not lost on Stop.
func (p *Pool) drain(ctx context.Context, id int) {
	for {
		select {
		case task := <-p.jobs:
			p.run(ctx, id, task)
		default:
			return
		}
	}
}

func (p *Pool) run(ctx context.Context, id int, task Task) {
	if task == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			p.log.Error().Int("worker", id).Interface("panic", r).Msg("worker task panicked")
		}
	}()
	if err := task(ctx); err != nil {
		p.log.Warn().Int("worker", id).Err(err).Msg("worker task error")
	}
}

// close rejects further submits. Submit holds the read lock while it
// enqueues, so anything accepted before close is visible to drain.
func (p *Pool) close() {
	p.mu.Lock()
	p.stopped = true
	p.mu.Unlock()
}

// Stop rejects new tasks, runs the queued ones and waits for the workers.
func (p *Pool) Stop() {
	p.close()
	p.once.Do(func() { close(p.quit) })
	p.wg.Wait()
}

func (p *Pool) Submit(task Task) error {
	if task == nil {
		return errors.New("nil task")
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.stopped || (p.ctx != nil && p.ctx.Err() != nil) {
		return ErrStopped
	}
	select {
	case p.jobs <- task:
		return nil
	default:
		return ErrQueueFull
	}
}

// Len reports how many tasks are waiting.
func (p *Pool) Len() int { return len(p.jobs) }
