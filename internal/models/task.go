package models

import (
	"slices"
	"time"

	"github.com/google/uuid"
)

// RecurrenceKind represents how a task repeats
type RecurrenceKind string

const (
	RecurrenceDaily     RecurrenceKind = "daily"
	RecurrenceWeekly    RecurrenceKind = "weekly"
	RecurrenceBiweekly  RecurrenceKind = "biweekly"
	RecurrenceMonthly   RecurrenceKind = "monthly"
	RecurrenceQuarterly RecurrenceKind = "quarterly"
	RecurrenceYearly    RecurrenceKind = "yearly"
	// RecurrenceContinuous never ends and never has a due date.
	RecurrenceContinuous RecurrenceKind = "continuous"
	// RecurrenceOneTime happens once; the task is deactivated after completion.
	// It is not the same thing as RecurrenceContinuous.
	RecurrenceOneTime RecurrenceKind = "one-time"
)

// RecurrenceKinds lists every supported kind in display order
var RecurrenceKinds = []RecurrenceKind{
	RecurrenceDaily,
	RecurrenceWeekly,
	RecurrenceBiweekly,
	RecurrenceMonthly,
	RecurrenceQuarterly,
	RecurrenceYearly,
	RecurrenceContinuous,
	RecurrenceOneTime,
}

// TimeOfDay is an advisory display preference
type TimeOfDay string

const (
	TimeOfDayMorning TimeOfDay = "morning"
	TimeOfDayEvening TimeOfDay = "evening"
)

// RecurrenceRule describes how a task repeats.
// DaysOfWeek uses 0=Monday through 6=Sunday and only applies to weekly rules.
type RecurrenceRule struct {
	Kind       RecurrenceKind `json:"type" yaml:"type" validate:"required,recurrence_kind"`
	Interval   int            `json:"interval,omitempty" yaml:"interval,omitempty" validate:"gte=0"`
	DaysOfWeek []int          `json:"days,omitempty" yaml:"days,omitempty" validate:"omitempty,unique,dive,min=0,max=6"`
	TimeOfDay  *TimeOfDay     `json:"time_of_day,omitempty" yaml:"time_of_day,omitempty" validate:"omitempty,time_of_day"`
}

// EffectiveInterval returns the interval, treating absent or invalid values as 1
func (r RecurrenceRule) EffectiveInterval() int {
	if r.Interval < 1 {
		return 1
	}
	return r.Interval
}

// HasDays reports whether a weekly rule is pinned to specific weekdays
func (r RecurrenceRule) HasDays() bool {
	return r.Kind == RecurrenceWeekly && len(r.DaysOfWeek) > 0
}

// Normalized returns a copy with defaults applied and weekdays sorted.
// Fields that the kind ignores are cleared so that two rules producing the
// same dates compare equal.
func (r RecurrenceRule) Normalized() RecurrenceRule {
	n := RecurrenceRule{Kind: r.Kind, Interval: r.EffectiveInterval()}
	if r.TimeOfDay != nil {
		tod := *r.TimeOfDay
		n.TimeOfDay = &tod
	}
	switch r.Kind {
	case RecurrenceWeekly:
		if len(r.DaysOfWeek) > 0 {
			n.DaysOfWeek = slices.Clone(r.DaysOfWeek)
			slices.Sort(n.DaysOfWeek)
			n.DaysOfWeek = slices.Compact(n.DaysOfWeek)
			n.Interval = 1
		}
	case RecurrenceBiweekly, RecurrenceQuarterly, RecurrenceContinuous, RecurrenceOneTime:
		n.Interval = 1
	}
	return n
}

// SameSchedule reports whether two rules produce the same due dates.
// TimeOfDay is advisory and does not take part in the comparison.
func (r RecurrenceRule) SameSchedule(other RecurrenceRule) bool {
	a, b := r.Normalized(), other.Normalized()
	return a.Kind == b.Kind && a.Interval == b.Interval && slices.Equal(a.DaysOfWeek, b.DaysOfWeek)
}

// Clone returns a deep copy of the rule
func (r RecurrenceRule) Clone() RecurrenceRule {
	c := r
	c.DaysOfWeek = slices.Clone(r.DaysOfWeek)
	if r.TimeOfDay != nil {
		tod := *r.TimeOfDay
		c.TimeOfDay = &tod
	}
	return c
}

// Task represents a household chore
type Task struct {
	ID            uuid.UUID      `json:"id"`
	Name          string         `json:"name"`
	Description   *string        `json:"description,omitempty"`
	Recurrence    RecurrenceRule `json:"recurrence"`
	UrgencyLabel  *Urgency       `json:"urgency_label,omitempty"`
	LastCompleted *time.Time     `json:"last_completed,omitempty"`
	NextDue       *time.Time     `json:"next_due,omitempty"`
	AssignedToID  *uuid.UUID     `json:"assigned_to_id,omitempty"`
	Autocomplete  bool           `json:"autocomplete"`
	IsActive      bool           `json:"is_active"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// UrgencySource returns whether the task's urgency is set manually or derived from its due date
func (t Task) UrgencySource() UrgencySource {
	if t.UrgencyLabel != nil {
		return Manual{Tier: *t.UrgencyLabel}
	}
	return Derived{}
}

// Clone returns a deep copy so callers can build a new record without touching the original
func (t Task) Clone() Task {
	c := t
	c.Recurrence = t.Recurrence.Clone()
	c.Description = clonePtr(t.Description)
	c.UrgencyLabel = clonePtr(t.UrgencyLabel)
	c.LastCompleted = clonePtr(t.LastCompleted)
	c.NextDue = clonePtr(t.NextDue)
	c.AssignedToID = clonePtr(t.AssignedToID)
	return c
}

// TaskCompletion is an append-only record of a member completing a task
type TaskCompletion struct {
	ID            uuid.UUID  `json:"id"`
	TaskID        uuid.UUID  `json:"task_id"`
	CompletedAt   time.Time  `json:"completed_at"`
	CompletedByID *uuid.UUID `json:"completed_by_id,omitempty"`
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// CompletionEntry is a completion enriched with the names shown in history
type CompletionEntry struct {
	TaskCompletion
	TaskName        *string `json:"task_name,omitempty"`
	CompletedByName *string `json:"completed_by_name,omitempty"`
}
