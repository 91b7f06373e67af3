package validation

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/benvon/chore-tracker/internal/models"
	"github.com/go-playground/validator/v10"
)

var (
	// Validate is a shared validator instance
	Validate *validator.Validate
)

func init() {
	Validate = validator.New()

	// Register custom validators for enums
	if err := Validate.RegisterValidation("recurrence_kind", validateRecurrenceKind); err != nil {
		panic(fmt.Sprintf("failed to register recurrence_kind validator: %v", err))
	}
	if err := Validate.RegisterValidation("urgency", validateUrgency); err != nil {
		panic(fmt.Sprintf("failed to register urgency validator: %v", err))
	}
	if err := Validate.RegisterValidation("time_of_day", validateTimeOfDay); err != nil {
		panic(fmt.Sprintf("failed to register time_of_day validator: %v", err))
	}
}

func validateRecurrenceKind(fl validator.FieldLevel) bool {
	return ValidateRecurrenceKind(fl.Field().String()) == nil
}

func validateUrgency(fl validator.FieldLevel) bool {
	return ValidateUrgency(fl.Field().String()) == nil
}

func validateTimeOfDay(fl validator.FieldLevel) bool {
	switch models.TimeOfDay(fl.Field().String()) {
	case models.TimeOfDayMorning, models.TimeOfDayEvening:
		return true
	default:
		return false
	}
}

// SanitizeText sanitizes text input by trimming whitespace and removing control characters
func SanitizeText(text string) string {
	text = strings.TrimSpace(text)

	// Remove control characters except newline and tab
	var sanitized strings.Builder
	for _, r := range text {
		if unicode.IsControl(r) && r != '\n' && r != '\t' {
			continue
		}
		sanitized.WriteRune(r)
	}

	return sanitized.String()
}

// ValidateRecurrenceKind validates a RecurrenceKind string value
func ValidateRecurrenceKind(value string) error {
	switch models.RecurrenceKind(value) {
	case models.RecurrenceDaily, models.RecurrenceWeekly, models.RecurrenceBiweekly,
		models.RecurrenceMonthly, models.RecurrenceQuarterly, models.RecurrenceYearly,
		models.RecurrenceContinuous, models.RecurrenceOneTime:
		return nil
	default:
		return fmt.Errorf("invalid recurrence type: %s", value)
	}
}

// ValidateUrgency validates an Urgency string value
func ValidateUrgency(value string) error {
	switch models.Urgency(value) {
	case models.UrgencyHigh, models.UrgencyMedium, models.UrgencyLow:
		return nil
	default:
		return fmt.Errorf("invalid urgency: %s (must be 'high', 'medium', or 'low')", value)
	}
}

// FieldError describes the first problem found in a validated value
type FieldError struct {
	Field  string
	Reason string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// ValidateRule checks a recurrence rule against its invariants: a known kind,
// a non-negative interval (zero means "not set"), and weekdays 0-6 without
// duplicates.
func ValidateRule(rule models.RecurrenceRule) error {
	err := Validate.Struct(rule)
	if err == nil {
		return nil
	}
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) && len(validationErrors) > 0 {
		return describe(validationErrors[0])
	}
	return &FieldError{Field: "recurrence", Reason: err.Error()}
}

func describe(fe validator.FieldError) *FieldError {
	switch fe.StructField() {
	case "Kind":
		return &FieldError{Field: "recurrence.type", Reason: fmt.Sprintf("unknown recurrence type %q", fe.Value())}
	case "Interval":
		return &FieldError{Field: "recurrence.interval", Reason: "interval must be a positive integer"}
	case "DaysOfWeek":
		if fe.Tag() == "unique" {
			return &FieldError{Field: "recurrence.days", Reason: "days must not contain duplicates"}
		}
		return &FieldError{Field: "recurrence.days", Reason: "days must be weekday indices 0 (Monday) to 6 (Sunday)"}
	case "TimeOfDay":
		return &FieldError{Field: "recurrence.time_of_day", Reason: "time_of_day must be 'morning' or 'evening'"}
	}
	// Element errors from dive report the indexed field, e.g. DaysOfWeek[2].
	if strings.HasPrefix(fe.StructField(), "DaysOfWeek[") {
		return &FieldError{Field: "recurrence.days", Reason: "days must be weekday indices 0 (Monday) to 6 (Sunday)"}
	}
	return &FieldError{Field: fe.Field(), Reason: fe.Error()}
}
