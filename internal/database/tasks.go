package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/benvon/chore-tracker/internal/models"
	"github.com/benvon/chore-tracker/internal/recurrence"
	"github.com/google/uuid"
)

const taskColumns = `id, name, description, recurrence_type, recurrence_interval, recurrence_days,
	time_of_day, urgency_label, last_completed, next_due, assigned_to_id, autocomplete, is_active,
	created_at, updated_at`

// Mutation computes the new state of a locked task and an optional completion to record
type Mutation func(task models.Task) (models.Task, *models.TaskCompletion, error)

// TaskRepository handles task database operations
type TaskRepository struct {
	db *DB
}

// NewTaskRepository creates a new task repository
func NewTaskRepository(db *DB) *TaskRepository {
	return &TaskRepository{db: db}
}

// Create inserts a new task
func (r *TaskRepository) Create(ctx context.Context, task *models.Task) error {
	days, err := encodeDays(task.Recurrence.DaysOfWeek)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO tasks (id, name, description, recurrence_type, recurrence_interval, recurrence_days,
			time_of_day, urgency_label, last_completed, next_due, assigned_to_id, autocomplete, is_active,
			created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $14)
		RETURNING created_at, updated_at
	`
	now := time.Now()
	err = r.db.QueryRowContext(ctx, query,
		task.ID,
		task.Name,
		task.Description,
		task.Recurrence.Kind,
		task.Recurrence.EffectiveInterval(),
		days,
		nullableTimeOfDay(task.Recurrence.TimeOfDay),
		nullableUrgency(task.UrgencyLabel),
		task.LastCompleted,
		task.NextDue,
		task.AssignedToID,
		task.Autocomplete,
		task.IsActive,
		now,
	).Scan(&task.CreatedAt, &task.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}
	return nil
}

// GetByID retrieves a task by ID
func (r *TaskRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Task, error) {
	return getTask(ctx, r.db, id, false)
}

// List returns tasks ordered by due date, undated tasks last
func (r *TaskRepository) List(ctx context.Context, activeOnly bool) ([]*models.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks`
	if activeOnly {
		query += ` WHERE is_active`
	}
	query += ` ORDER BY next_due ASC NULLS LAST, name ASC`
	return queryTasks(ctx, r.db, query)
}

// ListOverdueAutocomplete returns active autocomplete tasks due before today
func (r *TaskRepository) ListOverdueAutocomplete(ctx context.Context, today time.Time) ([]*models.Task, error) {
	query := `SELECT ` + taskColumns + `
		FROM tasks
		WHERE is_active AND autocomplete AND next_due < $1
		ORDER BY next_due ASC`
	return queryTasks(ctx, r.db, query, recurrence.DateOf(today))
}

// ListNames returns the names of every task, active or not
func (r *TaskRepository) ListNames(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT name FROM tasks`)
	if err != nil {
		return nil, fmt.Errorf("failed to query task names: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan task name: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating task names: %w", err)
	}
	return names, nil
}

// Update writes every mutable field of a task
func (r *TaskRepository) Update(ctx context.Context, task *models.Task) error {
	return updateTask(ctx, r.db, task)
}

// Deactivate marks a task inactive. Completion history is kept.
func (r *TaskRepository) Deactivate(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `UPDATE tasks SET is_active = false, updated_at = $2 WHERE id = $1`, id, time.Now())
	if err != nil {
		return fmt.Errorf("failed to deactivate task: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("task %s: %w", id, ErrNotFound)
	}
	return nil
}

// Mutate loads a task under a row lock, applies fn and persists the result
// together with the completion fn returns, if any. Concurrent mutations of the
// same task are serialized, so two completions cannot both advance from the
// same due date.
func (r *TaskRepository) Mutate(ctx context.Context, id uuid.UUID, fn Mutation) (*models.Task, error) {
	var result models.Task
	err := r.db.withTx(ctx, func(tx *sql.Tx) error {
		current, err := getTask(ctx, tx, id, true)
		if err != nil {
			return err
		}
		updated, completion, err := fn(*current)
		if err != nil {
			return err
		}
		updated.ID = id
		if err := updateTask(ctx, tx, &updated); err != nil {
			return err
		}
		if completion != nil {
			if err := insertCompletion(ctx, tx, completion); err != nil {
				return err
			}
		}
		result = updated
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func getTask(ctx context.Context, q queryer, id uuid.UUID, forUpdate bool) (*models.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	task, err := scanTask(q.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("task %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	return task, nil
}

func queryTasks(ctx context.Context, q queryer, query string, args ...any) ([]*models.Task, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*models.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tasks: %w", err)
	}
	return tasks, nil
}

func updateTask(ctx context.Context, q queryer, task *models.Task) error {
	days, err := encodeDays(task.Recurrence.DaysOfWeek)
	if err != nil {
		return err
	}

	query := `
		UPDATE tasks
		SET name = $2, description = $3, recurrence_type = $4, recurrence_interval = $5,
			recurrence_days = $6, time_of_day = $7, urgency_label = $8, last_completed = $9,
			next_due = $10, assigned_to_id = $11, autocomplete = $12, is_active = $13, updated_at = $14
		WHERE id = $1
		RETURNING updated_at
	`
	err = q.QueryRowContext(ctx, query,
		task.ID,
		task.Name,
		task.Description,
		task.Recurrence.Kind,
		task.Recurrence.EffectiveInterval(),
		days,
		nullableTimeOfDay(task.Recurrence.TimeOfDay),
		nullableUrgency(task.UrgencyLabel),
		task.LastCompleted,
		task.NextDue,
		task.AssignedToID,
		task.Autocomplete,
		task.IsActive,
		time.Now(),
	).Scan(&task.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("task %s: %w", task.ID, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to update task: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*models.Task, error) {
	task := &models.Task{}
	var (
		description   sql.NullString
		days          []byte
		timeOfDay     sql.NullString
		urgencyLabel  sql.NullString
		lastCompleted sql.NullTime
		nextDue       sql.NullTime
		assignedTo    uuid.NullUUID
	)

	err := row.Scan(
		&task.ID,
		&task.Name,
		&description,
		&task.Recurrence.Kind,
		&task.Recurrence.Interval,
		&days,
		&timeOfDay,
		&urgencyLabel,
		&lastCompleted,
		&nextDue,
		&assignedTo,
		&task.Autocomplete,
		&task.IsActive,
		&task.CreatedAt,
		&task.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if task.Recurrence.DaysOfWeek, err = decodeDays(days); err != nil {
		return nil, err
	}
	if description.Valid {
		task.Description = &description.String
	}
	if timeOfDay.Valid {
		tod := models.TimeOfDay(timeOfDay.String)
		task.Recurrence.TimeOfDay = &tod
	}
	if urgencyLabel.Valid {
		u := models.Urgency(urgencyLabel.String)
		task.UrgencyLabel = &u
	}
	if lastCompleted.Valid {
		task.LastCompleted = &lastCompleted.Time
	}
	if nextDue.Valid {
		due := recurrence.DateOf(nextDue.Time)
		task.NextDue = &due
	}
	if assignedTo.Valid {
		task.AssignedToID = &assignedTo.UUID
	}
	return task, nil
}

// encodeDays stores an empty weekday set as NULL
func encodeDays(days []int) (any, error) {
	if len(days) == 0 {
		return nil, nil
	}
	b, err := json.Marshal(days)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal recurrence days: %w", err)
	}
	return b, nil
}

func decodeDays(raw []byte) ([]int, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var days []int
	if err := json.Unmarshal(raw, &days); err != nil {
		return nil, fmt.Errorf("failed to unmarshal recurrence days: %w", err)
	}
	if len(days) == 0 {
		return nil, nil
	}
	return days, nil
}

func nullableTimeOfDay(tod *models.TimeOfDay) sql.NullString {
	if tod == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: string(*tod), Valid: true}
}

func nullableUrgency(u *models.Urgency) sql.NullString {
	if u == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: string(*u), Valid: true}
}
