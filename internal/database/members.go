package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/benvon/chore-tracker/internal/models"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

// MemberRepository handles household member database operations
type MemberRepository struct {
	db *DB
}

// NewMemberRepository creates a new member repository
func NewMemberRepository(db *DB) *MemberRepository {
	return &MemberRepository{db: db}
}

// Create inserts a new member. Emails are stored lower-cased.
func (r *MemberRepository) Create(ctx context.Context, member *models.Member) error {
	if member.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*member.Email))
		member.Email = &email
	}

	err := r.db.QueryRowContext(ctx, `
		INSERT INTO members (id, name, email, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at
	`, member.ID, member.Name, member.Email, time.Now()).Scan(&member.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return fmt.Errorf("member email already registered: %w", ErrConflict)
		}
		return fmt.Errorf("failed to create member: %w", err)
	}
	return nil
}

// GetByID retrieves a member by ID
func (r *MemberRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Member, error) {
	return r.getOne(ctx, `SELECT id, name, email, created_at FROM members WHERE id = $1`, id)
}

// GetByEmail retrieves a registered member by email
func (r *MemberRepository) GetByEmail(ctx context.Context, email string) (*models.Member, error) {
	return r.getOne(ctx, `SELECT id, name, email, created_at FROM members WHERE email = $1`, strings.ToLower(strings.TrimSpace(email)))
}

// List returns all members ordered by name
func (r *MemberRepository) List(ctx context.Context) ([]*models.Member, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name, email, created_at FROM members ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to query members: %w", err)
	}
	defer rows.Close()

	var members []*models.Member
	for rows.Next() {
		member, err := scanMember(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		members = append(members, member)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating members: %w", err)
	}
	return members, nil
}

// CountRegistered returns the number of members that can sign in
func (r *MemberRepository) CountRegistered(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT count(*) FROM members WHERE email IS NOT NULL`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count members: %w", err)
	}
	return n, nil
}

// Delete removes a member. Task assignments and completion attributions that
// point at the member are cleared in the same transaction.
func (r *MemberRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `UPDATE tasks SET assigned_to_id = NULL, updated_at = $2 WHERE assigned_to_id = $1`, id, time.Now()); err != nil {
			return fmt.Errorf("failed to clear task assignments: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `UPDATE task_completions SET completed_by_id = NULL WHERE completed_by_id = $1`, id); err != nil {
			return fmt.Errorf("failed to clear completion attributions: %w", err)
		}
		result, err := tx.ExecContext(ctx, `DELETE FROM members WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("failed to delete member: %w", err)
		}
		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if rowsAffected == 0 {
			return fmt.Errorf("member %s: %w", id, ErrNotFound)
		}
		return nil
	})
}

func (r *MemberRepository) getOne(ctx context.Context, query string, arg any) (*models.Member, error) {
	member, err := scanMember(r.db.QueryRowContext(ctx, query, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("member: %w", ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get member: %w", err)
	}
	return member, nil
}

func scanMember(row rowScanner) (*models.Member, error) {
	member := &models.Member{}
	var email sql.NullString
	if err := row.Scan(&member.ID, &member.Name, &email, &member.CreatedAt); err != nil {
		return nil, err
	}
	if email.Valid {
		member.Email = &email.String
	}
	return member, nil
}
