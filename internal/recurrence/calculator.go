// Package recurrence computes due dates from recurrence rules.
//
// Every function here is pure: callers pass the reference time in and no
// clock is read. Due dates are calendar dates represented as midnight UTC.
package recurrence

import (
	"slices"
	"time"

	"github.com/benvon/chore-tracker/internal/models"
)

// NextDue returns the date a task following rule is next due after an event
// on from (a completion, or the creation of the task). It returns nil when the
// rule yields no further occurrence: continuous tasks never have a due date and
// one-time tasks do not repeat.
func NextDue(rule models.RecurrenceRule, from time.Time) *time.Time {
	base := DateOf(from)
	interval := rule.EffectiveInterval()

	var next time.Time
	switch rule.Kind {
	case models.RecurrenceDaily:
		next = base.AddDate(0, 0, interval)
	case models.RecurrenceWeekly:
		if rule.HasDays() {
			next = nextWeekday(base, rule.DaysOfWeek)
		} else {
			next = base.AddDate(0, 0, 7*interval)
		}
	case models.RecurrenceBiweekly:
		next = base.AddDate(0, 0, 14)
	case models.RecurrenceMonthly:
		next = AddMonths(base, interval)
	case models.RecurrenceQuarterly:
		next = AddMonths(base, 3)
	case models.RecurrenceYearly:
		next = AddMonths(base, 12*interval)
	default:
		return nil
	}
	return &next
}

// nextWeekday returns the first date strictly after base whose weekday is in days.
// A match on base itself is skipped: the chore was just done.
func nextWeekday(base time.Time, days []int) time.Time {
	current := MondayIndex(base)
	best := 8
	for _, d := range days {
		if d < 0 || d > 6 {
			continue
		}
		delta := (d - current + 7) % 7
		if delta == 0 {
			delta = 7
		}
		best = min(best, delta)
	}
	if best == 8 {
		// No usable weekday; fall back to plain weekly spacing.
		best = 7
	}
	return base.AddDate(0, 0, best)
}

// Producible reports whether rule could ever yield date as a due date.
// Continuous rules yield no dates at all; weekly rules pinned to weekdays only
// yield those weekdays. Every other kind can land on any date depending on
// when the task was last completed, and one-time tasks accept any explicit date.
func Producible(rule models.RecurrenceRule, date time.Time) bool {
	switch {
	case rule.Kind == models.RecurrenceContinuous:
		return false
	case rule.HasDays():
		return slices.Contains(rule.DaysOfWeek, MondayIndex(date))
	default:
		return true
	}
}

// Repeats reports whether the rule produces due dates on its own
func Repeats(kind models.RecurrenceKind) bool {
	return kind != models.RecurrenceContinuous && kind != models.RecurrenceOneTime
}
