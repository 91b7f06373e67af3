package workers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/benvon/chore-tracker/internal/queue"
	"github.com/benvon/chore-tracker/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

// JobEnqueuer is the subset of the job queue used to publish jobs
type JobEnqueuer interface {
	Enqueue(ctx context.Context, job *queue.Job) error
}

// AutoAdvanceWorker consumes sweep jobs from the queue
type AutoAdvanceWorker struct {
	advancer *Advancer
	jobQueue JobEnqueuer // for re-enqueueing failed jobs
	now      func() time.Time
	logger   *zap.Logger
}

// NewAutoAdvanceWorker creates a new worker. now supplies the household-local time.
func NewAutoAdvanceWorker(advancer *Advancer, jobQueue JobEnqueuer, now func() time.Time, logger *zap.Logger) *AutoAdvanceWorker {
	return &AutoAdvanceWorker{
		advancer: advancer,
		jobQueue: jobQueue,
		now:      now,
		logger:   logger,
	}
}

// ProcessJob processes a job based on its type and acknowledges it
func (w *AutoAdvanceWorker) ProcessJob(ctx context.Context, msg queue.MessageInterface) error {
	job := msg.GetJob()

	ctx, span := telemetry.Tracer().Start(ctx, "process_job")
	defer span.End()
	span.SetAttributes(
		attribute.String("job.id", job.ID.String()),
		attribute.String("job.type", string(job.Type)),
		attribute.Int("job.retry_count", job.RetryCount),
	)

	now := w.now()
	if job.IsExpired(now) {
		w.logger.Debug("expired_job_skipped", zap.String("job_id", job.ID.String()))
		return ackOrWrap(msg)
	}

	var err error
	switch job.Type {
	case queue.JobTypeAutoAdvanceSweep:
		var advanced int
		advanced, err = w.advancer.Sweep(ctx, now)
		span.SetAttributes(attribute.Int("sweep.advanced", advanced))
	case queue.JobTypeAutoAdvanceTask:
		if job.TaskID == nil {
			err = errors.New("task_id is required for auto_advance_task job")
			break
		}
		_, _, err = w.advancer.AdvanceTask(ctx, *job.TaskID, now)
	default:
		if nackErr := msg.Nack(false); nackErr != nil { // Unknown job type, send to DLQ
			w.logger.Warn("failed_to_nack_unknown_job", zap.Error(nackErr))
		}
		err = fmt.Errorf("unknown job type: %s", job.Type)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return w.handleJobError(ctx, msg, err)
	}
	return ackOrWrap(msg)
}

// handleJobError re-enqueues a failed job with an incremented retry count, or
// dead-letters it once retries are exhausted. RabbitMQ requeues do not carry a
// retry count, so retries are published as new messages.
func (w *AutoAdvanceWorker) handleJobError(ctx context.Context, msg queue.MessageInterface, err error) error {
	job := msg.GetJob()

	if job.CanRetry() && w.jobQueue != nil {
		retry := *job
		retry.IncrementRetry()
		enqueueErr := w.jobQueue.Enqueue(ctx, &retry)
		if enqueueErr == nil {
			if ackErr := msg.Ack(); ackErr != nil {
				w.logger.Warn("failed_to_ack_retried_job", zap.Error(ackErr))
			}
			w.logger.Warn("job_failed_will_retry",
				zap.String("job_id", job.ID.String()),
				zap.Int("attempt", retry.RetryCount),
				zap.Int("max_retries", job.MaxRetries),
				zap.Error(err),
			)
			return fmt.Errorf("job failed (will retry): %w", err)
		}
		w.logger.Warn("failed_to_reenqueue_job", zap.String("job_id", job.ID.String()), zap.Error(enqueueErr))
	}

	w.logger.Error("job_failed_sending_to_dlq",
		zap.String("job_id", job.ID.String()),
		zap.Int("retry_count", job.RetryCount),
		zap.Error(err),
	)
	if nackErr := msg.Nack(false); nackErr != nil {
		w.logger.Warn("failed_to_nack_job", zap.Error(nackErr))
	}
	return fmt.Errorf("job failed (max retries): %w", err)
}

// Run processes messages until ctx is cancelled or the channel closes
func (w *AutoAdvanceWorker) Run(ctx context.Context, msgChan <-chan *queue.Message) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-msgChan:
			if !ok {
				w.logger.Info("message_channel_closed")
				return
			}
			if err := w.ProcessJob(ctx, msg); err != nil {
				w.logger.Error("failed_to_process_job",
					zap.Error(err),
					zap.String("job_id", msg.GetJob().ID.String()),
					zap.String("job_type", string(msg.GetJob().Type)),
				)
			}
		}
	}
}

func ackOrWrap(msg queue.MessageInterface) error {
	if err := msg.Ack(); err != nil {
		return fmt.Errorf("failed to ack job: %w", err)
	}
	return nil
}
