package workers

import (
	"context"
	"fmt"
	"time"

	"github.com/benvon/chore-tracker/internal/queue"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// DeadLetterPurger drops dead-lettered jobs
type DeadLetterPurger interface {
	PurgeDeadLetters(ctx context.Context) (int, error)
}

// SweepScheduler publishes sweep jobs on a cron schedule
type SweepScheduler struct {
	cron     *cron.Cron
	jobQueue JobEnqueuer
	now      func() time.Time
	logger   *zap.Logger
}

// NewSweepScheduler creates a scheduler that evaluates specs in loc
func NewSweepScheduler(jobQueue JobEnqueuer, loc *time.Location, now func() time.Time, logger *zap.Logger) *SweepScheduler {
	return &SweepScheduler{
		cron:     cron.New(cron.WithLocation(loc)),
		jobQueue: jobQueue,
		now:      now,
		logger:   logger,
	}
}

// ScheduleSweep registers the sweep. expr is a standard cron expression or a
// descriptor such as "@every 15m" or "@hourly".
func (s *SweepScheduler) ScheduleSweep(expr string) (cron.EntryID, error) {
	validFor, err := SweepValidity(expr, s.now())
	if err != nil {
		return 0, err
	}
	id, err := s.cron.AddFunc(expr, func() {
		s.EnqueueSweep(context.Background(), validFor)
	})
	if err != nil {
		return 0, fmt.Errorf("failed to schedule sweep: %w", err)
	}
	return id, nil
}

// SchedulePurge registers a periodic purge of dead-lettered jobs
func (s *SweepScheduler) SchedulePurge(expr string, purger DeadLetterPurger) (cron.EntryID, error) {
	id, err := s.cron.AddFunc(expr, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		n, err := purger.PurgeDeadLetters(ctx)
		if err != nil {
			s.logger.Warn("dlq_purge_failed", zap.Error(err))
			return
		}
		if n > 0 {
			s.logger.Info("dlq_purged", zap.Int("messages", n))
		}
	})
	if err != nil {
		return 0, fmt.Errorf("failed to schedule DLQ purge: %w", err)
	}
	return id, nil
}

// EnqueueSweep publishes one sweep job that expires after validFor
func (s *SweepScheduler) EnqueueSweep(ctx context.Context, validFor time.Duration) {
	job := queue.NewSweepJob(s.now(), validFor)
	if err := s.jobQueue.Enqueue(ctx, job); err != nil {
		s.logger.Error("failed_to_enqueue_sweep", zap.String("job_id", job.ID.String()), zap.Error(err))
		return
	}
	s.logger.Debug("sweep_enqueued", zap.String("job_id", job.ID.String()), zap.Duration("valid_for", validFor))
}

// Start runs the scheduler in its own goroutine
func (s *SweepScheduler) Start() {
	s.cron.Start()
}

// Stop stops the scheduler and waits for running jobs
func (s *SweepScheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

// SweepValidity returns how long a sweep enqueued at now stays useful: until
// the schedule fires again.
func SweepValidity(expr string, now time.Time) (time.Duration, error) {
	schedule, err := cron.ParseStandard(expr)
	if err != nil {
		return 0, fmt.Errorf("invalid sweep schedule %q: %w", expr, err)
	}
	next := schedule.Next(now)
	return schedule.Next(next).Sub(next), nil
}
