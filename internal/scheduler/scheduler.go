// Package scheduler fires scheduled posts when their publish time arrives.
// Jobs live in the schedule_jobs table, so pending posts survive restarts.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/matheus3301/postbot/internal/bus"
	"github.com/matheus3301/postbot/internal/store"
	"go.uber.org/zap"
)

// FireFunc publishes a due post. A nil error means the post went out.
type FireFunc func(ctx context.Context, p *store.ScheduledPost) error

// Options tune the fire loop.
type Options struct {
	Tick          time.Duration
	MaxConcurrent int
}

// Scheduler registers, cancels and fires jobs.
type Scheduler struct {
	db     *store.DB
	opts   Options
	bus    *bus.Bus
	logger *zap.Logger

	mu   sync.RWMutex
	fire FireFunc

	sem    chan struct{}
	wg     sync.WaitGroup
	cancel context.CancelFunc
	now    func() time.Time
}

// New creates a Scheduler. SetFireFunc must be called before Start.
func New(db *store.DB, opts Options, b *bus.Bus, logger *zap.Logger) *Scheduler {
	if opts.Tick <= 0 {
		opts.Tick = time.Second
	}
	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = 4
	}
	return &Scheduler{
		db:     db,
		opts:   opts,
		bus:    b,
		logger: logger,
		sem:    make(chan struct{}, opts.MaxConcurrent),
		now:    time.Now,
	}
}

// SetFireFunc sets the function called for each due post.
func (s *Scheduler) SetFireFunc(f FireFunc) {
	s.mu.Lock()
	s.fire = f
	s.mu.Unlock()
}

// NewJobID returns a fresh job identifier.
func NewJobID() string {
	return "job_" + uuid.NewString()
}

// Schedule stores p and registers its job in one transaction. It sets
// p.ID and p.JobID and returns the job id.
func (s *Scheduler) Schedule(_ context.Context, p *store.ScheduledPost) (string, error) {
	p.JobID = NewJobID()
	if err := s.db.CreateScheduled(p); err != nil {
		return "", fmt.Errorf("schedule post: %w", err)
	}
	s.logger.Info("post scheduled",
		zap.Int64("post_id", p.ID),
		zap.String("job_id", p.JobID),
		zap.Time("publish_at", p.PublishAt))
	s.bus.Emit(bus.KindPostScheduled, map[string]any{"post_id": p.ID, "job_id": p.JobID})
	return p.JobID, nil
}

// Cancel removes a queued job. Unknown jobs and jobs already firing are
// left alone and reported as success.
func (s *Scheduler) Cancel(_ context.Context, jobID string) error {
	if jobID == "" {
		return nil
	}
	removed, err := s.db.CancelJob(jobID)
	if err != nil {
		return fmt.Errorf("cancel job: %w", err)
	}
	if removed {
		s.logger.Debug("job cancelled", zap.String("job_id", jobID))
		s.bus.Emit(bus.KindJobCancelled, map[string]string{"job_id": jobID})
	}
	return nil
}

// Reschedule replaces p's stored content, publish time and job: the old job
// is dropped and a new one registered under a new id, atomically. p.ID is
// kept. It returns the new job id.
func (s *Scheduler) Reschedule(_ context.Context, p *store.ScheduledPost) (string, error) {
	old := p.JobID
	p.JobID = NewJobID()
	if err := s.db.ReplaceScheduled(p); err != nil {
		p.JobID = old
		return "", fmt.Errorf("reschedule post %d: %w", p.ID, err)
	}
	s.logger.Info("post rescheduled",
		zap.Int64("post_id", p.ID),
		zap.String("old_job_id", old),
		zap.String("job_id", p.JobID),
		zap.Time("publish_at", p.PublishAt))
	if old != "" {
		s.bus.Emit(bus.KindJobCancelled, map[string]string{"job_id": old})
	}
	s.bus.Emit(bus.KindPostScheduled, map[string]any{"post_id": p.ID, "job_id": p.JobID})
	return p.JobID, nil
}

// ErrFiring is returned by PublishNow when the timer is already
// publishing the post.
var ErrFiring = errors.New("post is being published by its timer")

// PublishNow publishes a scheduled post immediately through fire. The job
// is held while fire runs so the timer cannot publish the same post; on
// success the post and its job are removed, on failure both are kept. It
// returns ErrNotFound when the post no longer exists.
func (s *Scheduler) PublishNow(ctx context.Context, postID int64, fire FireFunc) error {
	p, err := s.db.GetScheduled(postID)
	if err != nil {
		return fmt.Errorf("load scheduled post: %w", err)
	}
	if p == nil {
		return store.ErrNotFound
	}

	held := false
	if p.JobID != "" {
		j, err := s.db.GetJob(p.JobID)
		if err != nil {
			return fmt.Errorf("load job: %w", err)
		}
		if j != nil {
			claimed, err := s.db.ClaimJob(p.JobID)
			if err != nil {
				return fmt.Errorf("claim job: %w", err)
			}
			if !claimed {
				return ErrFiring
			}
			held = true
		}
	}

	if err := fire(ctx, p); err != nil {
		if held {
			if rErr := s.db.ReleaseJob(p.JobID); rErr != nil {
				s.logger.Error("failed to release job", zap.String("job_id", p.JobID), zap.Error(rErr))
			}
		}
		return err
	}

	if _, err := s.db.DeleteScheduled(p.ID); err != nil {
		return fmt.Errorf("delete published post: %w", err)
	}
	if held {
		s.bus.Emit(bus.KindJobCancelled, map[string]string{"job_id": p.JobID})
	}
	s.logger.Info("scheduled post published early", zap.Int64("post_id", p.ID), zap.String("job_id", p.JobID))
	return nil
}

// Reconciled reports what Reconcile repaired.
type Reconciled struct {
	Requeued int64
	Attached int
}

// Reconcile repairs the job table after a restart: jobs interrupted while
// firing are queued again and pending posts without a job get one. Overdue
// jobs fire on the next tick.
func (s *Scheduler) Reconcile(_ context.Context) (Reconciled, error) {
	var r Reconciled

	n, err := s.db.ResetFiringJobs()
	if err != nil {
		return r, fmt.Errorf("requeue firing jobs: %w", err)
	}
	r.Requeued = n

	orphans, err := s.db.ListPendingWithoutJob()
	if err != nil {
		return r, fmt.Errorf("list orphan posts: %w", err)
	}
	for _, p := range orphans {
		jobID := NewJobID()
		if err := s.db.AttachJob(p.ID, jobID, p.PublishAt); err != nil {
			s.logger.Error("failed to attach job", zap.Int64("post_id", p.ID), zap.Error(err))
			continue
		}
		r.Attached++
	}

	if r.Requeued > 0 || r.Attached > 0 {
		s.logger.Info("schedule reconciled", zap.Int64("requeued", r.Requeued), zap.Int("attached", r.Attached))
	}
	return r, nil
}

// Start reconciles the job table and begins the fire loop.
func (s *Scheduler) Start(ctx context.Context) error {
	if _, err := s.Reconcile(ctx); err != nil {
		return err
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.wg.Add(1)
	go s.loop(ctx)
	return nil
}

// Stop ends the fire loop and waits for in-flight fires.
func (s *Scheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
}

func (s *Scheduler) loop(ctx context.Context) {
	defer s.wg.Done()
	ticker := time.NewTicker(s.opts.Tick)
	defer ticker.Stop()

	s.processDue(ctx)
	for {
		select {
		case <-ticker.C:
			s.processDue(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// processDue claims every due job and fires it in its own goroutine,
// bounded by MaxConcurrent.
func (s *Scheduler) processDue(ctx context.Context) {
	jobs, err := s.db.DueJobs(s.now(), s.opts.MaxConcurrent*4)
	if err != nil {
		s.logger.Error("failed to read due jobs", zap.Error(err))
		return
	}

	for _, j := range jobs {
		claimed, err := s.db.ClaimJob(j.ID)
		if err != nil {
			s.logger.Error("failed to claim job", zap.String("job_id", j.ID), zap.Error(err))
			continue
		}
		if !claimed {
			continue
		}

		select {
		case s.sem <- struct{}{}:
		case <-ctx.Done():
			// Left in firing; the next start requeues it.
			return
		}
		s.wg.Add(1)
		go func(j store.Job) {
			defer s.wg.Done()
			defer func() { <-s.sem }()
			s.run(ctx, j)
		}(j)
	}
}

func (s *Scheduler) run(ctx context.Context, j store.Job) {
	logger := s.logger.With(zap.String("job_id", j.ID), zap.Int64("post_id", j.PostID))

	p, err := s.db.GetScheduled(j.PostID)
	if err != nil {
		logger.Error("failed to load scheduled post", zap.Error(err))
		s.finish(logger, j.ID)
		return
	}
	if p == nil || p.JobID != j.ID {
		logger.Debug("job has no current post, dropping")
		s.finish(logger, j.ID)
		return
	}

	s.mu.RLock()
	fire := s.fire
	s.mu.RUnlock()
	if fire == nil {
		logger.Error("no fire function set, requeue on next start")
		return
	}

	s.bus.Emit(bus.KindJobFired, map[string]any{"job_id": j.ID, "post_id": p.ID})
	if err := fire(ctx, p); err != nil {
		if ctx.Err() != nil {
			// Interrupted by shutdown, not a delivery failure.
			logger.Info("fire interrupted, job requeued", zap.Error(err))
			if rErr := s.db.ReleaseJob(j.ID); rErr != nil {
				logger.Error("failed to release job", zap.Error(rErr))
			}
			return
		}
		logger.Warn("scheduled post failed", zap.Error(err))
		if mErr := s.db.MarkScheduledFailed(p.ID, err.Error()); mErr != nil {
			logger.Error("failed to mark post failed", zap.Error(mErr))
		}
		s.finish(logger, j.ID)
		s.bus.Emit(bus.KindPostFailed, map[string]any{"post_id": p.ID, "error": err.Error()})
		return
	}

	if _, err := s.db.DeleteScheduled(p.ID); err != nil {
		logger.Error("failed to delete fired post", zap.Error(err))
		s.finish(logger, j.ID)
		return
	}
	logger.Info("scheduled post fired")
}

func (s *Scheduler) finish(logger *zap.Logger, jobID string) {
	if err := s.db.FinishJob(jobID); err != nil {
		logger.Error("failed to remove job", zap.Error(err))
	}
}

// Pending returns the number of queued jobs and the earliest run time.
func (s *Scheduler) Pending() (int, time.Time, error) {
	n, err := s.db.CountJobs()
	if err != nil {
		return 0, time.Time{}, err
	}
	next, err := s.db.NextRunAt()
	return n, next, err
}
