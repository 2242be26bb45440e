package async

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Job runs outside the request that scheduled it.
type Job func(ctx context.Context)

type Runner interface {
	Go(name string, job Job)
}

type task struct {
	name string
	job  Job
}

// Pool runs jobs on a fixed set of workers fed by a buffered queue.
type Pool struct {
	log     *zap.Logger
	queue   chan task
	timeout time.Duration

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

func NewPool(log *zap.Logger, workers, queueSize int, timeout time.Duration) *Pool {
	if workers < 1 {
		workers = 1
	}
	p := &Pool{
		log:     log,
		queue:   make(chan task, queueSize),
		timeout: timeout,
	}

	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
	return p
}

func (p *Pool) worker() {
	defer p.wg.Done()

	for t := range p.queue {
		p.run(t)
	}
}

func (p *Pool) run(t task) {
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			p.log.Error("async job panicked", zap.String("job", t.name), zap.Any("panic", r))
		}
	}()

	t.job(ctx)
}

// Go enqueues the job. When the queue is full the job is dropped and
// logged; the reconciliation sweep picks the work up later.
func (p *Pool) Go(name string, job Job) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		p.log.Warn("async pool closed, dropping job", zap.String("job", name))
		return
	}

	select {
	case p.queue <- task{name: name, job: job}:
	default:
		p.log.Warn("async queue full, dropping job", zap.String("job", name))
	}
}

func (p *Pool) Close() {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.queue)
	}
	p.mu.Unlock()

	p.wg.Wait()
}

// Inline runs jobs on the caller's goroutine.
type Inline struct{}

func (Inline) Go(_ string, job Job) {
	job(context.Background())
}

// Backoff is base * 2^attempt, capped at 16x base.
func Backoff(base time.Duration, attempt int) time.Duration {
	if attempt <= 0 {
		return base
	}
	if attempt > 4 {
		attempt = 4
	}
	return base * time.Duration(1<<attempt)
}
