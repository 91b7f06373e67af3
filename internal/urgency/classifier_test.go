package urgency

import (
	"testing"
	"time"

	"github.com/benvon/chore-tracker/internal/models"
)

func day(offset int) *time.Time {
	d := time.Date(2024, time.June, 10, 0, 0, 0, 0, time.UTC).AddDate(0, 0, offset)
	return &d
}

func TestClassify(t *testing.T) {
	t.Parallel()

	today := time.Date(2024, time.June, 10, 18, 30, 0, 0, time.UTC)

	tests := []struct {
		name    string
		nextDue *time.Time
		source  models.UrgencySource
		want    models.Urgency
	}{
		{name: "overdue", nextDue: day(-5), source: models.Derived{}, want: models.UrgencyHigh},
		{name: "due today", nextDue: day(0), source: models.Derived{}, want: models.UrgencyHigh},
		{name: "due tomorrow", nextDue: day(1), source: models.Derived{}, want: models.UrgencyMedium},
		{name: "due in three days", nextDue: day(3), source: models.Derived{}, want: models.UrgencyMedium},
		{name: "due in four days", nextDue: day(4), source: models.Derived{}, want: models.UrgencyLow},
		{name: "no due date", nextDue: nil, source: models.Derived{}, want: models.UrgencyLow},
		{name: "nil source behaves as derived", nextDue: day(0), source: nil, want: models.UrgencyHigh},
		{name: "manual low beats overdue", nextDue: day(-2), source: models.Manual{Tier: models.UrgencyLow}, want: models.UrgencyLow},
		{name: "manual high beats far future", nextDue: day(30), source: models.Manual{Tier: models.UrgencyHigh}, want: models.UrgencyHigh},
		{name: "manual medium without due date", nextDue: nil, source: models.Manual{Tier: models.UrgencyMedium}, want: models.UrgencyMedium},
		{name: "unknown manual tier falls back to date", nextDue: day(0), source: models.Manual{Tier: "urgent"}, want: models.UrgencyHigh},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := Classify(tt.nextDue, tt.source, today); got != tt.want {
				t.Errorf("Expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestClassify_MonotoneInDueDate(t *testing.T) {
	t.Parallel()

	today := *day(0)
	prev := models.UrgencyHigh
	for offset := -10; offset <= 30; offset++ {
		got := Classify(day(offset), models.Derived{}, today)
		if got.Rank() < prev.Rank() {
			t.Fatalf("urgency went from %s back to %s at offset %d", prev, got, offset)
		}
		prev = got
	}
	if prev != models.UrgencyLow {
		t.Errorf("Expected low far in the future, got %s", prev)
	}
}

func TestClassify_ManualAlwaysWins(t *testing.T) {
	t.Parallel()

	today := *day(0)
	for _, tier := range []models.Urgency{models.UrgencyHigh, models.UrgencyMedium, models.UrgencyLow} {
		for offset := -10; offset <= 10; offset++ {
			if got := Classify(day(offset), models.Manual{Tier: tier}, today); got != tier {
				t.Fatalf("tier %s at offset %d: got %s", tier, offset, got)
			}
		}
	}
}

func TestViews(t *testing.T) {
	t.Parallel()

	today := *day(0)
	high := models.UrgencyHigh
	tasks := []models.Task{
		{Name: "later", NextDue: day(10)},
		{Name: "soon", NextDue: day(2)},
		{Name: "overdue", NextDue: day(-1)},
		{Name: "ongoing"},
		{Name: "flagged", NextDue: day(6), UrgencyLabel: &high},
	}

	items := ClassifyAll(tasks, today)
	Sort(items)
	wantOrder := []string{"overdue", "flagged", "soon", "later", "ongoing"}
	for i, name := range wantOrder {
		if items[i].Task.Name != name {
			t.Fatalf("position %d: expected %s, got %s", i, name, items[i].Task.Name)
		}
	}

	urgent := OnlyTier(items, models.UrgencyHigh)
	if len(urgent) != 2 {
		t.Errorf("Expected 2 high urgency tasks, got %d", len(urgent))
	}

	upcoming := DueWithin(items, today, 7)
	if len(upcoming) != 2 {
		t.Errorf("Expected 2 upcoming tasks (soon, flagged), got %d", len(upcoming))
	}
}
