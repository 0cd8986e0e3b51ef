// Package worker runs per-user turns in order. Jobs for one user always
// land on the same worker, so they never overlap; different users run in
// parallel.
package worker

import (
	"context"
	"hash/fnv"
	"strconv"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

// Job is one unit of work for a user.
type Job struct {
	UserID  int64
	Handler func(ctx context.Context) error
}

// Stats is a snapshot of pool counters.
type Stats struct {
	Workers    int
	Dispatched int64
	Processed  int64
	Dropped    int64
	Errors     int64
}

// Pool is a fixed set of FIFO workers sharded by user id.
type Pool struct {
	queues []chan Job
	logger *zap.Logger

	wg       sync.WaitGroup
	stopOnce sync.Once
	stopped  atomic.Bool
	mu       sync.RWMutex
	cancel   context.CancelFunc

	dispatched atomic.Int64
	processed  atomic.Int64
	dropped    atomic.Int64
	errors     atomic.Int64
}

// New creates a pool of n workers, each with a queue of queueSize jobs.
func New(n, queueSize int, logger *zap.Logger) *Pool {
	if n <= 0 {
		n = 8
	}
	if queueSize <= 0 {
		queueSize = 64
	}
	p := &Pool{queues: make([]chan Job, n), logger: logger}
	for i := range p.queues {
		p.queues[i] = make(chan Job, queueSize)
	}
	return p
}

// Start launches the workers. They stop when ctx is cancelled or Stop is
// called.
func (p *Pool) Start(ctx context.Context) {
	ctx, p.cancel = context.WithCancel(ctx)
	for i, q := range p.queues {
		p.wg.Add(1)
		go p.run(ctx, i, q)
	}
	p.logger.Info("worker pool started", zap.Int("workers", len(p.queues)))
}

// Stop rejects new jobs, lets queued ones finish, and waits for workers.
func (p *Pool) Stop() {
	p.stopOnce.Do(func() {
		p.mu.Lock()
		p.stopped.Store(true)
		for _, q := range p.queues {
			close(q)
		}
		p.mu.Unlock()
		p.wg.Wait()
		if p.cancel != nil {
			p.cancel()
		}
	})
}

// Dispatch queues job on its user's worker without blocking. It reports
// false when the queue is full or the pool is stopped.
func (p *Pool) Dispatch(job Job) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.stopped.Load() {
		p.dropped.Add(1)
		return false
	}
	shard := p.shard(job.UserID)
	select {
	case p.queues[shard] <- job:
		p.dispatched.Add(1)
		return true
	default:
		p.dropped.Add(1)
		p.logger.Warn("worker queue full, dropping job", zap.Int("worker", shard), zap.Int64("user_id", job.UserID))
		return false
	}
}

// Stopped reports whether Stop has been called.
func (p *Pool) Stopped() bool {
	return p.stopped.Load()
}

func (p *Pool) shard(userID int64) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(strconv.FormatInt(userID, 10)))
	return int(h.Sum32() % uint32(len(p.queues)))
}

func (p *Pool) run(ctx context.Context, id int, q <-chan Job) {
	defer p.wg.Done()
	for job := range q {
		p.exec(ctx, id, job)
	}
}

func (p *Pool) exec(ctx context.Context, id int, job Job) {
	defer func() {
		if r := recover(); r != nil {
			p.errors.Add(1)
			p.logger.Error("worker job panicked", zap.Int("worker", id), zap.Int64("user_id", job.UserID), zap.Any("panic", r))
		}
		p.processed.Add(1)
	}()
	if err := job.Handler(ctx); err != nil {
		p.errors.Add(1)
		p.logger.Error("worker job failed", zap.Int("worker", id), zap.Int64("user_id", job.UserID), zap.Error(err))
	}
}

// Stats returns the current counters.
func (p *Pool) Stats() Stats {
	return Stats{
		Workers:    len(p.queues),
		Dispatched: p.dispatched.Load(),
		Processed:  p.processed.Load(),
		Dropped:    p.dropped.Load(),
		Errors:     p.errors.Load(),
	}
}
