package scheduler

import (
	"time"

	"github.com/benvon/chore-tracker/internal/models"
	"github.com/benvon/chore-tracker/internal/recurrence"
)

// NeedsAdvance reports whether an autocomplete task has a due date before today
func NeedsAdvance(task models.Task, now time.Time) bool {
	return task.IsActive &&
		task.Autocomplete &&
		task.NextDue != nil &&
		recurrence.DateOf(*task.NextDue).Before(recurrence.DateOf(now))
}

// AutoAdvance moves an overdue autocomplete task on as if it had been completed
// at now, without a completion record and without touching LastCompleted.
// It reports whether anything changed. Calling it again with the same now is a
// no-op, so a sweep on read and a periodic sweep converge on the same state.
func AutoAdvance(task models.Task, now time.Time) (models.Task, bool) {
	if !NeedsAdvance(task, now) {
		return task, false
	}

	updated := task.Clone()
	updated.NextDue = recurrence.NextDue(updated.Recurrence, now)
	if updated.Recurrence.Kind == models.RecurrenceOneTime {
		updated.IsActive = false
	}
	updated.UpdatedAt = now
	return updated, true
}

// Sweep advances every task that needs it and returns only the changed tasks
func Sweep(tasks []models.Task, now time.Time) []models.Task {
	var changed []models.Task
	for _, t := range tasks {
		if updated, ok := AutoAdvance(t, now); ok {
			changed = append(changed, updated)
		}
	}
	return changed
}
