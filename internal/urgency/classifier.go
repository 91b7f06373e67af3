// Package urgency derives a task's urgency tier.
package urgency

import (
	"slices"
	"time"

	"github.com/benvon/chore-tracker/internal/models"
	"github.com/benvon/chore-tracker/internal/recurrence"
)

// MediumWindowDays is how many days ahead a task is considered medium urgency
const MediumWindowDays = 3

// Classify returns the effective urgency tier for a task. A manual override
// always wins. Otherwise a task without a due date is low, a task due today or
// overdue is high, one due within MediumWindowDays is medium and anything
// later is low. It never fails.
func Classify(nextDue *time.Time, source models.UrgencySource, today time.Time) models.Urgency {
	if m, ok := source.(models.Manual); ok && m.Tier.Rank() < 3 {
		return m.Tier
	}
	if nextDue == nil {
		return models.UrgencyLow
	}

	daysUntil := recurrence.DaysBetween(today, *nextDue)
	switch {
	case daysUntil <= 0:
		return models.UrgencyHigh
	case daysUntil <= MediumWindowDays:
		return models.UrgencyMedium
	default:
		return models.UrgencyLow
	}
}

// ForTask classifies a task from its stored fields
func ForTask(task models.Task, today time.Time) models.Urgency {
	return Classify(task.NextDue, task.UrgencySource(), today)
}

// Classified pairs a task with the urgency computed for it on read
type Classified struct {
	Task    models.Task
	Urgency models.Urgency
}

// ClassifyAll computes the urgency of every task for today
func ClassifyAll(tasks []models.Task, today time.Time) []Classified {
	out := make([]Classified, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, Classified{Task: t, Urgency: ForTask(t, today)})
	}
	return out
}

// OnlyTier keeps the entries with the given tier
func OnlyTier(items []Classified, tier models.Urgency) []Classified {
	out := make([]Classified, 0, len(items))
	for _, c := range items {
		if c.Urgency == tier {
			out = append(out, c)
		}
	}
	return out
}

// DueWithin keeps tasks whose due date falls between today and today+days inclusive
func DueWithin(items []Classified, today time.Time, days int) []Classified {
	out := make([]Classified, 0, len(items))
	for _, c := range items {
		if c.Task.NextDue == nil {
			continue
		}
		d := recurrence.DaysBetween(today, *c.Task.NextDue)
		if d >= 0 && d <= days {
			out = append(out, c)
		}
	}
	return out
}

// Sort orders entries from most to least urgent, then by earliest due date,
// then by name. Tasks without a due date come last within their tier.
func Sort(items []Classified) {
	slices.SortStableFunc(items, func(a, b Classified) int {
		if r := a.Urgency.Rank() - b.Urgency.Rank(); r != 0 {
			return r
		}
		switch {
		case a.Task.NextDue == nil && b.Task.NextDue != nil:
			return 1
		case a.Task.NextDue != nil && b.Task.NextDue == nil:
			return -1
		case a.Task.NextDue != nil && b.Task.NextDue != nil:
			if c := a.Task.NextDue.Compare(*b.Task.NextDue); c != 0 {
				return c
			}
		}
		switch {
		case a.Task.Name < b.Task.Name:
			return -1
		case a.Task.Name > b.Task.Name:
			return 1
		}
		return 0
	})
}
