// Package importer loads a household task list into the task store. Lists
// are either a markdown table ("| Wat | Hoe vaak |") or a YAML file.
package importer

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/benvon/chore-tracker/internal/models"
	"github.com/benvon/chore-tracker/internal/recurrence"
	"github.com/benvon/chore-tracker/internal/scheduler"
	"gopkg.in/yaml.v3"
)

// Entry is one task in an import list. Rule wins over Phrase when both are set.
type Entry struct {
	Name         string                 `yaml:"name"`
	Phrase       string                 `yaml:"recurrence,omitempty"`
	Rule         *models.RecurrenceRule `yaml:"rule,omitempty"`
	Description  *string                `yaml:"description,omitempty"`
	UrgencyLabel *models.Urgency        `yaml:"urgency,omitempty"`
	Autocomplete bool                   `yaml:"autocomplete,omitempty"`
}

// yamlFile is the top-level layout of a YAML task list
type yamlFile struct {
	Tasks []Entry `yaml:"tasks"`
}

// ParseMarkdown reads the rows of a markdown table. The first column is the
// task name and the second the Dutch recurrence phrase. Header and separator
// rows are skipped, as is every line outside the table.
func ParseMarkdown(r io.Reader) ([]Entry, error) {
	var entries []Entry
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "|") {
			continue
		}
		cells := strings.Split(strings.Trim(line, "|"), "|")
		for i := range cells {
			cells[i] = strings.TrimSpace(cells[i])
		}
		if isSeparator(cells) || strings.EqualFold(cells[0], "wat") {
			continue
		}
		if cells[0] == "" {
			continue
		}
		entry := Entry{Name: cells[0]}
		if len(cells) > 1 {
			entry.Phrase = cells[1]
		}
		entries = append(entries, entry)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read task list: %w", err)
	}
	return entries, nil
}

func isSeparator(cells []string) bool {
	for _, c := range cells {
		if strings.Trim(c, "-: ") != "" {
			return false
		}
	}
	return true
}

// ParseYAML reads a YAML task list. Unknown keys are rejected.
func ParseYAML(r io.Reader) ([]Entry, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var file yamlFile
	if err := dec.Decode(&file); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to parse YAML task list: %w", err)
	}
	return file.Tasks, nil
}

// Resolve returns the entry's recurrence. Phrases that cannot be parsed fall
// back to a continuous rule; ok reports whether the phrase was recognised.
func (e Entry) Resolve() (rule models.RecurrenceRule, ok bool) {
	if e.Rule != nil {
		return *e.Rule, true
	}
	if rule, ok := recurrence.ParsePhrase(e.Phrase); ok {
		return rule, true
	}
	return models.RecurrenceRule{Kind: models.RecurrenceContinuous}, false
}

// TaskCreator is the subset of the task store used by the importer
type TaskCreator interface {
	Create(ctx context.Context, task *models.Task) error
	ListNames(ctx context.Context) ([]string, error)
}

// Result summarises an import
type Result struct {
	Imported []string
	// Skipped lists names that already existed or appeared twice in the list
	Skipped []string
	// Defaulted lists tasks whose recurrence phrase was not recognised
	Defaulted []string
}

// Importer creates tasks from parsed entries
type Importer struct {
	store     TaskCreator
	scheduler *scheduler.Scheduler
	now       func() time.Time
}

// New creates an importer. now supplies the household-local time.
func New(store TaskCreator, now func() time.Time) *Importer {
	return &Importer{store: store, scheduler: scheduler.New(), now: now}
}

// Import creates every entry whose name is not already taken. It stops at
// the first invalid entry or store failure; tasks created before that stay.
func (im *Importer) Import(ctx context.Context, entries []Entry, dryRun bool) (Result, error) {
	var res Result

	names, err := im.store.ListNames(ctx)
	if err != nil {
		return res, fmt.Errorf("failed to list existing tasks: %w", err)
	}
	seen := make(map[string]bool, len(names))
	for _, n := range names {
		seen[strings.ToLower(n)] = true
	}

	now := im.now()
	for _, e := range entries {
		name := strings.TrimSpace(e.Name)
		key := strings.ToLower(name)
		if seen[key] {
			res.Skipped = append(res.Skipped, name)
			continue
		}

		rule, ok := e.Resolve()
		if !ok && strings.TrimSpace(e.Phrase) != "" {
			res.Defaulted = append(res.Defaulted, name)
		}

		task, err := im.scheduler.Create(scheduler.CreateParams{
			Name:         name,
			Description:  e.Description,
			Recurrence:   rule,
			UrgencyLabel: e.UrgencyLabel,
			Autocomplete: e.Autocomplete,
		}, now)
		if err != nil {
			return res, fmt.Errorf("task %q: %w", name, err)
		}
		if !dryRun {
			if err := im.store.Create(ctx, &task); err != nil {
				return res, fmt.Errorf("failed to create task %q: %w", name, err)
			}
		}
		seen[key] = true
		res.Imported = append(res.Imported, name)
	}
	return res, nil
}
