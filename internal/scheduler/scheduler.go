// Package scheduler implements the task lifecycle: creating, completing,
// postponing and editing tasks, plus the automatic advance of autocomplete
// tasks. Every operation takes a task record and a caller-supplied time and
// returns a new record; the input is never modified, so a rejected operation
// leaves the caller's copy untouched.
//
// Callers are responsible for serializing read-modify-write of a single task
// (see database.TaskRepository.Mutate).
package scheduler

import (
	"errors"
	"time"

	"github.com/benvon/chore-tracker/internal/models"
	"github.com/benvon/chore-tracker/internal/recurrence"
	"github.com/benvon/chore-tracker/internal/validation"
	"github.com/google/uuid"
)

// MaxNameLength is the maximum length for a task name
const MaxNameLength = 200

// Scheduler applies lifecycle operations to tasks
type Scheduler struct {
	newID func() uuid.UUID
}

// Option configures a Scheduler
type Option func(*Scheduler)

// WithIDGenerator overrides how new task and completion IDs are generated
func WithIDGenerator(gen func() uuid.UUID) Option {
	return func(s *Scheduler) {
		s.newID = gen
	}
}

// New creates a new scheduler
func New(opts ...Option) *Scheduler {
	s := &Scheduler{newID: uuid.New}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateParams holds the input for a new task
type CreateParams struct {
	Name         string
	Description  *string
	Recurrence   models.RecurrenceRule
	UrgencyLabel *models.Urgency
	// NextDue, when set, is used as the first due date instead of computing one.
	NextDue      *time.Time
	AssignedToID *uuid.UUID
	Autocomplete bool
}

// Create builds a new active task. Without an explicit due date the first one
// is computed from the rule as if the task had been completed at now.
func (s *Scheduler) Create(p CreateParams, now time.Time) (models.Task, error) {
	name, err := cleanName(p.Name)
	if err != nil {
		return models.Task{}, err
	}
	rule, err := checkRule(p.Recurrence)
	if err != nil {
		return models.Task{}, err
	}
	if err := checkUrgency(p.UrgencyLabel); err != nil {
		return models.Task{}, err
	}

	task := models.Task{
		ID:           s.newID(),
		Name:         name,
		Description:  cleanDescription(p.Description),
		Recurrence:   rule,
		Autocomplete: p.Autocomplete,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if p.UrgencyLabel != nil {
		u := *p.UrgencyLabel
		task.UrgencyLabel = &u
	}
	if p.AssignedToID != nil {
		id := *p.AssignedToID
		task.AssignedToID = &id
	}

	switch {
	case rule.Kind == models.RecurrenceContinuous:
		// Continuous tasks never carry a due date, even when one is supplied.
	case p.NextDue != nil:
		due := recurrence.DateOf(*p.NextDue)
		task.NextDue = &due
	default:
		task.NextDue = recurrence.NextDue(rule, now)
	}

	return task, nil
}

// Complete records a member completing the task at the given time. The next
// due date is computed from the actual completion date, not from the date the
// task was due. One-time tasks are deactivated.
func (s *Scheduler) Complete(task models.Task, completedBy *uuid.UUID, at time.Time) (models.Task, models.TaskCompletion, error) {
	if task.Autocomplete {
		return models.Task{}, models.TaskCompletion{}, &InvalidOperationError{Op: "complete", Reason: "autocomplete tasks advance automatically"}
	}
	if !task.IsActive {
		return models.Task{}, models.TaskCompletion{}, &InvalidOperationError{Op: "complete", Reason: "task is inactive"}
	}

	updated := task.Clone()
	completedAt := at
	updated.LastCompleted = &completedAt
	updated.NextDue = recurrence.NextDue(updated.Recurrence, at)
	if updated.Recurrence.Kind == models.RecurrenceOneTime {
		updated.IsActive = false
	}
	updated.UpdatedAt = at

	completion := models.TaskCompletion{
		ID:          s.newID(),
		TaskID:      task.ID,
		CompletedAt: at,
	}
	if completedBy != nil {
		id := *completedBy
		completion.CompletedByID = &id
	}

	return updated, completion, nil
}

// Postpone moves the due date to newDue, bypassing the recurrence rule.
// The new date must be today or later.
func (s *Scheduler) Postpone(task models.Task, newDue time.Time, now time.Time) (models.Task, error) {
	if !task.IsActive {
		return models.Task{}, &InvalidOperationError{Op: "postpone", Reason: "task is inactive"}
	}
	due := recurrence.DateOf(newDue)
	if due.Before(recurrence.DateOf(now)) {
		return models.Task{}, &ValidationError{Field: "next_due", Reason: "postponement date must not be in the past"}
	}

	updated := task.Clone()
	updated.NextDue = &due
	updated.UpdatedAt = now
	return updated, nil
}

// EditParams holds the optional changes for Edit. Nil fields are left unchanged.
type EditParams struct {
	Name              *string
	Description       *string
	Recurrence        *models.RecurrenceRule
	UrgencyLabel      *models.Urgency
	ClearUrgencyLabel bool
	AssignedToID      *uuid.UUID
	ClearAssignee     bool
	Autocomplete      *bool
	IsActive          *bool
	// NextDue sets the due date directly and takes precedence over any
	// rescheduling caused by a rule change.
	NextDue *time.Time
}

// Edit applies changes to a task. When the recurrence rule changes in a way
// that makes the current due date one the new rule could never produce, the
// due date is recomputed from today under the new rule; otherwise it is kept.
func (s *Scheduler) Edit(task models.Task, p EditParams, now time.Time) (models.Task, error) {
	updated := task.Clone()

	if p.Name != nil {
		name, err := cleanName(*p.Name)
		if err != nil {
			return models.Task{}, err
		}
		updated.Name = name
	}
	if p.Description != nil {
		updated.Description = cleanDescription(p.Description)
	}

	switch {
	case p.ClearUrgencyLabel:
		updated.UrgencyLabel = nil
	case p.UrgencyLabel != nil:
		if err := checkUrgency(p.UrgencyLabel); err != nil {
			return models.Task{}, err
		}
		u := *p.UrgencyLabel
		updated.UrgencyLabel = &u
	}

	switch {
	case p.ClearAssignee:
		updated.AssignedToID = nil
	case p.AssignedToID != nil:
		id := *p.AssignedToID
		updated.AssignedToID = &id
	}

	if p.Autocomplete != nil {
		updated.Autocomplete = *p.Autocomplete
	}
	if p.IsActive != nil {
		updated.IsActive = *p.IsActive
	}

	if p.Recurrence != nil {
		rule, err := checkRule(*p.Recurrence)
		if err != nil {
			return models.Task{}, err
		}
		if !task.Recurrence.SameSchedule(rule) {
			updated.NextDue = rescheduled(updated.NextDue, rule, now)
		}
		updated.Recurrence = rule
	}

	if p.NextDue != nil {
		if updated.Recurrence.Kind == models.RecurrenceContinuous {
			return models.Task{}, &ValidationError{Field: "next_due", Reason: "continuous tasks have no due date"}
		}
		due := recurrence.DateOf(*p.NextDue)
		updated.NextDue = &due
	}

	updated.UpdatedAt = now
	return updated, nil
}

// rescheduled returns the due date to keep after a rule change
func rescheduled(current *time.Time, rule models.RecurrenceRule, now time.Time) *time.Time {
	switch {
	case rule.Kind == models.RecurrenceContinuous:
		return nil
	case current == nil:
		return recurrence.NextDue(rule, now)
	case !recurrence.Producible(rule, *current):
		return recurrence.NextDue(rule, now)
	default:
		return current
	}
}

func cleanName(name string) (string, error) {
	name = validation.SanitizeText(name)
	if name == "" {
		return "", &ValidationError{Field: "name", Reason: "name is required"}
	}
	if len(name) > MaxNameLength {
		return "", &ValidationError{Field: "name", Reason: "name is too long"}
	}
	return name, nil
}

func cleanDescription(desc *string) *string {
	if desc == nil {
		return nil
	}
	d := validation.SanitizeText(*desc)
	if d == "" {
		return nil
	}
	return &d
}

func checkRule(rule models.RecurrenceRule) (models.RecurrenceRule, error) {
	if err := validation.ValidateRule(rule); err != nil {
		var fe *validation.FieldError
		if errors.As(err, &fe) {
			return models.RecurrenceRule{}, &ValidationError{Field: fe.Field, Reason: fe.Reason}
		}
		return models.RecurrenceRule{}, &ValidationError{Field: "recurrence", Reason: err.Error()}
	}
	return rule.Normalized(), nil
}

func checkUrgency(u *models.Urgency) error {
	if u == nil {
		return nil
	}
	if err := validation.ValidateUrgency(string(*u)); err != nil {
		return &ValidationError{Field: "urgency_label", Reason: err.Error()}
	}
	return nil
}
