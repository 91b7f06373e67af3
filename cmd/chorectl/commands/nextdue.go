package commands

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/benvon/chore-tracker/internal/models"
	"github.com/benvon/chore-tracker/internal/recurrence"
	"github.com/benvon/chore-tracker/internal/validation"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// NewNextDueCmd creates the next-due command, which previews the due dates a
// recurrence rule produces without touching the database.
func NewNextDueCmd() *cobra.Command {
	var (
		kind     string
		interval int
		days     string
		phrase   string
		ruleFile string
		from     string
		count    int
	)

	cmd := &cobra.Command{
		Use:   "next-due",
		Short: "Preview the due dates of a recurrence rule",
		Long: "Compute the next due dates for a rule given with --type/--interval/--days, " +
			"a Dutch phrase (--phrase \"ma do\"), or a YAML rule file (--rule).",
		Example: "  chorectl next-due --type weekly --days 0,3 --from 2024-06-10 --count 4\n" +
			"  chorectl next-due --phrase \"elke drie maanden\"",
		RunE: func(cmd *cobra.Command, args []string) error {
			rule, err := buildRule(kind, interval, days, phrase, ruleFile)
			if err != nil {
				return err
			}
			if err := validation.ValidateRule(rule); err != nil {
				return fmt.Errorf("invalid rule: %w", err)
			}

			base := time.Now()
			if from != "" {
				base, err = time.Parse(time.DateOnly, from)
				if err != nil {
					return fmt.Errorf("--from must be YYYY-MM-DD: %w", err)
				}
			}
			if count < 1 {
				return fmt.Errorf("--count must be at least 1")
			}

			out := cmd.OutOrStdout()
			for _, due := range upcomingDates(rule, base, count) {
				fmt.Fprintln(out, due.Format(time.DateOnly))
			}
			if next := recurrence.NextDue(rule, base); next == nil {
				fmt.Fprintf(out, "%s tasks have no due date\n", rule.Kind)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&kind, "type", "", "Recurrence type (daily, weekly, biweekly, monthly, quarterly, yearly, continuous, one-time)")
	cmd.Flags().IntVar(&interval, "interval", 1, "Repeat every N units")
	cmd.Flags().StringVar(&days, "days", "", "Comma-separated weekdays for weekly rules, 0=Monday")
	cmd.Flags().StringVar(&phrase, "phrase", "", "Dutch recurrence phrase, e.g. \"om de twee weken\"")
	cmd.Flags().StringVar(&ruleFile, "rule", "", "YAML file holding a single rule")
	cmd.Flags().StringVar(&from, "from", "", "Completion date to compute from (YYYY-MM-DD, default today)")
	cmd.Flags().IntVar(&count, "count", 1, "Number of consecutive due dates to show")
	cmd.MarkFlagsMutuallyExclusive("type", "phrase", "rule")

	return cmd
}

func buildRule(kind string, interval int, days, phrase, ruleFile string) (models.RecurrenceRule, error) {
	switch {
	case ruleFile != "":
		data, err := os.ReadFile(ruleFile)
		if err != nil {
			return models.RecurrenceRule{}, fmt.Errorf("failed to read rule file: %w", err)
		}
		var rule models.RecurrenceRule
		if err := yaml.Unmarshal(data, &rule); err != nil {
			return models.RecurrenceRule{}, fmt.Errorf("failed to parse rule file: %w", err)
		}
		return rule, nil
	case phrase != "":
		rule, ok := recurrence.ParsePhrase(phrase)
		if !ok {
			return models.RecurrenceRule{}, fmt.Errorf("unrecognised recurrence phrase %q", phrase)
		}
		return rule, nil
	case kind != "":
		rule := models.RecurrenceRule{Kind: models.RecurrenceKind(kind), Interval: interval}
		if days != "" {
			for _, part := range strings.Split(days, ",") {
				d, err := strconv.Atoi(strings.TrimSpace(part))
				if err != nil {
					return models.RecurrenceRule{}, fmt.Errorf("--days: %q is not a weekday number", part)
				}
				rule.DaysOfWeek = append(rule.DaysOfWeek, d)
			}
		}
		return rule, nil
	default:
		return models.RecurrenceRule{}, fmt.Errorf("one of --type, --phrase or --rule is required")
	}
}

// upcomingDates chains NextDue as if every occurrence were completed on its due date
func upcomingDates(rule models.RecurrenceRule, base time.Time, count int) []time.Time {
	var out []time.Time
	for len(out) < count {
		next := recurrence.NextDue(rule, base)
		if next == nil {
			break
		}
		out = append(out, *next)
		base = *next
	}
	return out
}
