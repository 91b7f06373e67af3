package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/benvon/chore-tracker/internal/models"
	"github.com/google/uuid"
)

// DefaultHistoryLimit bounds history queries when the caller does not
const DefaultHistoryLimit = 100

// CompletionRepository reads the append-only completion log. Completions are
// written through TaskRepository.Mutate so that they land together with the
// task update.
type CompletionRepository struct {
	db *DB
}

// NewCompletionRepository creates a new completion repository
func NewCompletionRepository(db *DB) *CompletionRepository {
	return &CompletionRepository{db: db}
}

const completionSelect = `
	SELECT c.id, c.task_id, c.completed_at, c.completed_by_id, t.name, m.name
	FROM task_completions c
	LEFT JOIN tasks t ON t.id = c.task_id
	LEFT JOIN members m ON m.id = c.completed_by_id
`

// List returns the most recent completions across all tasks
func (r *CompletionRepository) List(ctx context.Context, limit int) ([]*models.CompletionEntry, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return r.query(ctx, completionSelect+` ORDER BY c.completed_at DESC LIMIT $1`, limit)
}

// ListByTask returns a task's completions, newest first
func (r *CompletionRepository) ListByTask(ctx context.Context, taskID uuid.UUID) ([]*models.CompletionEntry, error) {
	return r.query(ctx, completionSelect+` WHERE c.task_id = $1 ORDER BY c.completed_at DESC`, taskID)
}

// ListByMember returns a member's completions, newest first
func (r *CompletionRepository) ListByMember(ctx context.Context, memberID uuid.UUID) ([]*models.CompletionEntry, error) {
	return r.query(ctx, completionSelect+` WHERE c.completed_by_id = $1 ORDER BY c.completed_at DESC`, memberID)
}

func (r *CompletionRepository) query(ctx context.Context, query string, args ...any) ([]*models.CompletionEntry, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query completions: %w", err)
	}
	defer rows.Close()

	var entries []*models.CompletionEntry
	for rows.Next() {
		entry := &models.CompletionEntry{}
		var (
			completedBy uuid.NullUUID
			taskName    sql.NullString
			memberName  sql.NullString
		)
		if err := rows.Scan(&entry.ID, &entry.TaskID, &entry.CompletedAt, &completedBy, &taskName, &memberName); err != nil {
			return nil, fmt.Errorf("failed to scan completion: %w", err)
		}
		if completedBy.Valid {
			entry.CompletedByID = &completedBy.UUID
		}
		if taskName.Valid {
			entry.TaskName = &taskName.String
		}
		if memberName.Valid {
			entry.CompletedByName = &memberName.String
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating completions: %w", err)
	}
	return entries, nil
}

func insertCompletion(ctx context.Context, q queryer, c *models.TaskCompletion) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO task_completions (id, task_id, completed_at, completed_by_id)
		VALUES ($1, $2, $3, $4)
	`, c.ID, c.TaskID, c.CompletedAt, c.CompletedByID)
	if err != nil {
		return fmt.Errorf("failed to record completion: %w", err)
	}
	return nil
}
