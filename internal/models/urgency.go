package models

// Urgency represents how soon a task needs attention
type Urgency string

const (
	UrgencyHigh   Urgency = "high"
	UrgencyMedium Urgency = "medium"
	UrgencyLow    Urgency = "low"
)

// Rank orders tiers from most (0) to least urgent. Unknown values rank last.
func (u Urgency) Rank() int {
	switch u {
	case UrgencyHigh:
		return 0
	case UrgencyMedium:
		return 1
	case UrgencyLow:
		return 2
	default:
		return 3
	}
}

// UrgencySource says where a task's urgency comes from: a manual
// override or the task's due date.
type UrgencySource interface {
	urgencySource()
}

// Manual is an urgency tier set by a member. It always wins.
type Manual struct {
	Tier Urgency
}

// Derived means the urgency is computed from the due date
type Derived struct{}

func (Manual) urgencySource()  {}
func (Derived) urgencySource() {}
