package database

import (
	"context"
	"errors"
	"time"

	"github.com/benvon/chore-tracker/internal/models"
	"github.com/google/uuid"
)

var (
	// ErrNotFound is wrapped by every lookup that matches no row
	ErrNotFound = errors.New("not found")
	// ErrConflict is wrapped when a unique constraint rejects a write
	ErrConflict = errors.New("already exists")
)

// TaskStore defines the task operations used by handlers and workers.
// This interface enables better testability by allowing mock implementations
type TaskStore interface {
	Create(ctx context.Context, task *models.Task) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Task, error)
	List(ctx context.Context, activeOnly bool) ([]*models.Task, error)
	ListOverdueAutocomplete(ctx context.Context, today time.Time) ([]*models.Task, error)
	ListNames(ctx context.Context) ([]string, error)
	Deactivate(ctx context.Context, id uuid.UUID) error
	Mutate(ctx context.Context, id uuid.UUID, fn Mutation) (*models.Task, error)
}

// CompletionStore defines the completion history operations
type CompletionStore interface {
	List(ctx context.Context, limit int) ([]*models.CompletionEntry, error)
	ListByTask(ctx context.Context, taskID uuid.UUID) ([]*models.CompletionEntry, error)
	ListByMember(ctx context.Context, memberID uuid.UUID) ([]*models.CompletionEntry, error)
}

// MemberStore defines the household member operations
type MemberStore interface {
	Create(ctx context.Context, member *models.Member) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Member, error)
	GetByEmail(ctx context.Context, email string) (*models.Member, error)
	List(ctx context.Context) ([]*models.Member, error)
	CountRegistered(ctx context.Context) (int, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// NoteStore defines the notepad operations
type NoteStore interface {
	Get(ctx context.Context) (*models.Note, error)
	Save(ctx context.Context, content string) (*models.Note, error)
}

// Ensure concrete types implement the interfaces
var (
	_ TaskStore       = (*TaskRepository)(nil)
	_ CompletionStore = (*CompletionRepository)(nil)
	_ MemberStore     = (*MemberRepository)(nil)
	_ NoteStore       = (*NoteRepository)(nil)
)
