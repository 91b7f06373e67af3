package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/benvon/chore-tracker/internal/models"
	"github.com/google/uuid"
)

const householdNoteKey = "household"

// NoteRepository stores the single shared notepad
type NoteRepository struct {
	db *DB
}

// NewNoteRepository creates a new note repository
func NewNoteRepository(db *DB) *NoteRepository {
	return &NoteRepository{db: db}
}

// Get returns the notepad, or an empty note if nothing was saved yet
func (r *NoteRepository) Get(ctx context.Context) (*models.Note, error) {
	note := &models.Note{}
	err := r.db.QueryRowContext(ctx, `
		SELECT id, content, updated_at FROM notes WHERE note_key = $1
	`, householdNoteKey).Scan(&note.ID, &note.Content, &note.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return &models.Note{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get note: %w", err)
	}
	return note, nil
}

// Save upserts the notepad content
func (r *NoteRepository) Save(ctx context.Context, content string) (*models.Note, error) {
	note := &models.Note{}
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO notes (note_key, id, content, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (note_key) DO UPDATE SET
			content = EXCLUDED.content,
			updated_at = EXCLUDED.updated_at
		RETURNING id, content, updated_at
	`, householdNoteKey, uuid.New(), content, time.Now()).Scan(&note.ID, &note.Content, &note.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to save note: %w", err)
	}
	return note, nil
}
