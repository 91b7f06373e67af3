package workers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/benvon/chore-tracker/internal/database"
	"github.com/benvon/chore-tracker/internal/logger"
	"github.com/benvon/chore-tracker/internal/models"
	"github.com/benvon/chore-tracker/internal/scheduler"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// TaskMutator is the subset of the task store needed to advance tasks
type TaskMutator interface {
	ListOverdueAutocomplete(ctx context.Context, today time.Time) ([]*models.Task, error)
	Mutate(ctx context.Context, id uuid.UUID, fn database.Mutation) (*models.Task, error)
}

// Advancer persists automatic advances of overdue autocomplete tasks. The API
// uses it when tasks are read and the worker uses it on a schedule; both go
// through scheduler.AutoAdvance under the task's row lock, so they converge
// on the same due dates.
type Advancer struct {
	tasks  TaskMutator
	logger *zap.Logger
}

// NewAdvancer creates a new advancer
func NewAdvancer(tasks TaskMutator, logger *zap.Logger) *Advancer {
	return &Advancer{tasks: tasks, logger: logger}
}

// AdvanceTask re-reads the task under lock and advances it if it is still overdue.
// It reports whether the stored task changed.
func (a *Advancer) AdvanceTask(ctx context.Context, id uuid.UUID, now time.Time) (*models.Task, bool, error) {
	changed := false
	task, err := a.tasks.Mutate(ctx, id, func(current models.Task) (models.Task, *models.TaskCompletion, error) {
		updated, ok := scheduler.AutoAdvance(current, now)
		changed = ok
		return updated, nil, nil
	})
	if err != nil {
		return nil, false, fmt.Errorf("failed to advance task %s: %w", id, err)
	}
	if changed {
		a.logger.Info("task_auto_advanced",
			zap.String("task_id", id.String()),
			zap.String("task_name", logger.SanitizeName(task.Name)),
			zap.Timep("next_due", task.NextDue),
			zap.Bool("is_active", task.IsActive),
		)
	}
	return task, changed, nil
}

// AdvanceLoaded advances, in place, every task in the slice that needs it.
// Tasks that fail to advance are left as loaded and reported in the returned error.
func (a *Advancer) AdvanceLoaded(ctx context.Context, tasks []*models.Task, now time.Time) (int, error) {
	var (
		advanced int
		errs     []error
	)
	for i, t := range tasks {
		if !scheduler.NeedsAdvance(*t, now) {
			continue
		}
		updated, changed, err := a.AdvanceTask(ctx, t.ID, now)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		tasks[i] = updated
		if changed {
			advanced++
		}
	}
	return advanced, errors.Join(errs...)
}

// Sweep loads every overdue autocomplete task and advances it
func (a *Advancer) Sweep(ctx context.Context, now time.Time) (int, error) {
	tasks, err := a.tasks.ListOverdueAutocomplete(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("failed to list overdue tasks: %w", err)
	}
	advanced, err := a.AdvanceLoaded(ctx, tasks, now)
	a.logger.Info("auto_advance_sweep_completed",
		zap.Int("candidates", len(tasks)),
		zap.Int("advanced", advanced),
		zap.Bool("partial_failure", err != nil),
	)
	return advanced, err
}
