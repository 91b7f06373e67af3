package recurrence

import "time"

// DateOf returns the calendar date of t (as seen in t's own location) as
// midnight UTC. All due dates in this package are represented this way.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns the number of calendar days from a to b (negative when b is before a)
func DaysBetween(a, b time.Time) int {
	return int(DateOf(b).Sub(DateOf(a)).Hours() / 24)
}

// MondayIndex returns the weekday of t with Monday=0 and Sunday=6
func MondayIndex(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}

// AddMonths adds n calendar months to the date of t. When the day of month
// does not exist in the target month it is clamped to that month's last day
// (Jan 31 + 1 month is Feb 28, or Feb 29 in a leap year).
func AddMonths(t time.Time, n int) time.Time {
	y, m, d := t.Date()
	total := int(m) - 1 + n
	year := y + floorDiv(total, 12)
	month := time.Month(floorMod(total, 12) + 1)
	if last := daysIn(year, month); d > last {
		d = last
	}
	return time.Date(year, month, d, 0, 0, 0, 0, time.UTC)
}

func daysIn(year int, month time.Month) int {
	// Day 0 of the next month is the last day of this one.
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func floorDiv(a, b int) int {
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}
	return q
}

func floorMod(a, b int) int {
	return a - floorDiv(a, b)*b
}
