package queue

import (
	"time"

	"github.com/google/uuid"
)

// JobType represents the type of job
type JobType string

const (
	// JobTypeAutoAdvanceSweep advances every overdue autocomplete task
	JobTypeAutoAdvanceSweep JobType = "auto_advance_sweep"
	// JobTypeAutoAdvanceTask advances a single task
	JobTypeAutoAdvanceTask JobType = "auto_advance_task"
)

// Job represents a job in the queue
type Job struct {
	ID         uuid.UUID  `json:"id"`
	Type       JobType    `json:"type"`
	TaskID     *uuid.UUID `json:"task_id,omitempty"`
	NotAfter   *time.Time `json:"not_after,omitempty"` // nil = no expiration
	CreatedAt  time.Time  `json:"created_at"`
	RetryCount int        `json:"retry_count"`
	MaxRetries int        `json:"max_retries"`
}

// NewSweepJob creates a sweep job. A sweep that is still queued when the
// next one is due is useless, so it expires after validFor (zero = never).
func NewSweepJob(now time.Time, validFor time.Duration) *Job {
	job := &Job{
		ID:         uuid.New(),
		Type:       JobTypeAutoAdvanceSweep,
		CreatedAt:  now,
		MaxRetries: 3,
	}
	if validFor > 0 {
		notAfter := now.Add(validFor)
		job.NotAfter = &notAfter
	}
	return job
}

// NewTaskJob creates a job that advances one task
func NewTaskJob(taskID uuid.UUID, now time.Time) *Job {
	id := taskID
	return &Job{
		ID:         uuid.New(),
		Type:       JobTypeAutoAdvanceTask,
		TaskID:     &id,
		CreatedAt:  now,
		MaxRetries: 3,
	}
}

// IsExpired checks if the job has expired
func (j *Job) IsExpired(now time.Time) bool {
	return j.NotAfter != nil && now.After(*j.NotAfter)
}

// CanRetry checks if the job can be retried
func (j *Job) CanRetry() bool {
	return j.RetryCount < j.MaxRetries
}

// IncrementRetry increments the retry count
func (j *Job) IncrementRetry() {
	j.RetryCount++
}
