package database

import (
	"context"
	"fmt"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS members (
		id UUID PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT UNIQUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS tasks (
		id UUID PRIMARY KEY,
		name TEXT NOT NULL,
		description TEXT,
		recurrence_type TEXT NOT NULL,
		recurrence_interval INTEGER NOT NULL DEFAULT 1 CHECK (recurrence_interval >= 1),
		recurrence_days JSONB,
		time_of_day TEXT,
		urgency_label TEXT,
		last_completed TIMESTAMPTZ,
		next_due DATE,
		assigned_to_id UUID REFERENCES members(id) ON DELETE SET NULL,
		autocomplete BOOLEAN NOT NULL DEFAULT false,
		is_active BOOLEAN NOT NULL DEFAULT true,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_tasks_due ON tasks (next_due) WHERE is_active`,
	`CREATE TABLE IF NOT EXISTS task_completions (
		id UUID PRIMARY KEY,
		task_id UUID NOT NULL REFERENCES tasks(id),
		completed_at TIMESTAMPTZ NOT NULL,
		completed_by_id UUID REFERENCES members(id) ON DELETE SET NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_task_completions_task ON task_completions (task_id, completed_at DESC)`,
	`CREATE TABLE IF NOT EXISTS notes (
		note_key TEXT PRIMARY KEY,
		id UUID NOT NULL,
		content TEXT NOT NULL DEFAULT '',
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
}

// Migrate creates the schema if it does not exist. It is safe to run repeatedly.
func (db *DB) Migrate(ctx context.Context) error {
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema statement %d: %w", i+1, err)
		}
	}
	return nil
}
