package recurrence

import (
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/benvon/chore-tracker/internal/models"
)

// Dutch weekday names and their abbreviations, Monday=0.
var dayNames = map[string]int{
	"maandag": 0, "ma": 0,
	"dinsdag": 1, "di": 1,
	"woensdag": 2, "wo": 2,
	"donderdag": 3, "do": 3,
	"vrijdag": 4, "vr": 4,
	"zaterdag": 5, "za": 5,
	"zondag": 6, "zo": 6,
}

var numberWords = map[string]int{
	"een": 1, "twee": 2, "drie": 3, "vier": 4, "vijf": 5, "zes": 6, "paar": 2,
}

var (
	everyNDaysRe   = regexp.MustCompile(`^elke (\w+) dag(?:en)?$`)
	everyNMonthsRe = regexp.MustCompile(`^elke (\w+) maand(?:en)?$`)
	everyNWeeksRe  = regexp.MustCompile(`^(?:elke|om de) (\w+) weken?$`)
	perWeekRe      = regexp.MustCompile(`^(\w+)\s*keer\s*per\s*week$`)
	perYearRe      = regexp.MustCompile(`^(\w+)\s*keer\s*per\s*jaar$`)
	tokenSplitRe   = regexp.MustCompile(`[\s,/&+]+`)
)

// ParsePhrase turns a Dutch recurrence phrase from a household task list
// ("elke dag", "om de twee weken", "ma do", "elke drie maanden", "continu")
// into a rule. It reports false when the phrase is not recognised.
func ParsePhrase(phrase string) (models.RecurrenceRule, bool) {
	s := strings.Join(strings.Fields(strings.ToLower(phrase)), " ")
	if s == "" {
		return models.RecurrenceRule{}, false
	}

	switch s {
	case "continu", "doorlopend":
		return models.RecurrenceRule{Kind: models.RecurrenceContinuous}, true
	case "eenmalig", "een keer", "1 keer":
		return models.RecurrenceRule{Kind: models.RecurrenceOneTime}, true
	case "elke ochtend":
		return withTime(models.RecurrenceRule{Kind: models.RecurrenceDaily}, models.TimeOfDayMorning), true
	case "elke avond":
		return withTime(models.RecurrenceRule{Kind: models.RecurrenceDaily}, models.TimeOfDayEvening), true
	case "elke dag", "dagelijks":
		return models.RecurrenceRule{Kind: models.RecurrenceDaily}, true
	case "elke week", "wekelijks", "om de week":
		return models.RecurrenceRule{Kind: models.RecurrenceWeekly}, true
	case "elke maand", "maandelijks":
		return models.RecurrenceRule{Kind: models.RecurrenceMonthly}, true
	case "elk jaar", "jaarlijks":
		return models.RecurrenceRule{Kind: models.RecurrenceYearly}, true
	}

	if strings.Contains(s, "kwartaal") {
		return models.RecurrenceRule{Kind: models.RecurrenceQuarterly}, true
	}

	if m := everyNDaysRe.FindStringSubmatch(s); m != nil {
		return models.RecurrenceRule{Kind: models.RecurrenceDaily, Interval: parseCount(m[1], 2)}, true
	}
	if m := everyNMonthsRe.FindStringSubmatch(s); m != nil {
		return models.RecurrenceRule{Kind: models.RecurrenceMonthly, Interval: parseCount(m[1], 1)}, true
	}
	if m := everyNWeeksRe.FindStringSubmatch(s); m != nil {
		weeks := parseCount(m[1], 2)
		if weeks == 2 {
			return models.RecurrenceRule{Kind: models.RecurrenceBiweekly}, true
		}
		return models.RecurrenceRule{Kind: models.RecurrenceWeekly, Interval: weeks}, true
	}
	if m := perWeekRe.FindStringSubmatch(s); m != nil {
		// "N keer per week" is spread evenly over the week.
		return models.RecurrenceRule{Kind: models.RecurrenceDaily, Interval: max(1, 7/parseCount(m[1], 1))}, true
	}
	if m := perYearRe.FindStringSubmatch(s); m != nil {
		return models.RecurrenceRule{Kind: models.RecurrenceMonthly, Interval: max(1, 12/parseCount(m[1], 1))}, true
	}

	return parseDays(s)
}

// parseDays accepts phrases made only of weekday names, optionally with a
// time of day: "zondag", "ma do", "di en vr avond".
func parseDays(s string) (models.RecurrenceRule, bool) {
	var days []int
	var tod *models.TimeOfDay
	for _, tok := range tokenSplitRe.Split(s, -1) {
		if tok == "" || tok == "en" {
			continue
		}
		if d, ok := dayNames[tok]; ok {
			days = append(days, d)
			continue
		}
		switch strings.TrimSuffix(tok, "s") {
		case "avond":
			v := models.TimeOfDayEvening
			tod = &v
		case "ochtend":
			v := models.TimeOfDayMorning
			tod = &v
		default:
			return models.RecurrenceRule{}, false
		}
	}
	if len(days) == 0 {
		return models.RecurrenceRule{}, false
	}
	slices.Sort(days)
	return models.RecurrenceRule{
		Kind:       models.RecurrenceWeekly,
		DaysOfWeek: slices.Compact(days),
		TimeOfDay:  tod,
	}, true
}

func parseCount(word string, fallback int) int {
	if n, err := strconv.Atoi(word); err == nil && n > 0 {
		return n
	}
	if n, ok := numberWords[word]; ok {
		return n
	}
	return fallback
}

func withTime(rule models.RecurrenceRule, tod models.TimeOfDay) models.RecurrenceRule {
	rule.TimeOfDay = &tod
	return rule
}
