package database

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/benvon/chore-tracker/internal/models"
	"github.com/google/uuid"
)

// DefaultAdminName is used when no admin name is configured
const DefaultAdminName = "Admin"

// AdminSeeder is the subset of MemberStore used to seed the first member
type AdminSeeder interface {
	Create(ctx context.Context, member *models.Member) error
	GetByEmail(ctx context.Context, email string) (*models.Member, error)
	CountRegistered(ctx context.Context) (int, error)
}

// EnsureAdmin creates a registered member when none exists yet, so a fresh
// household has someone who can sign in. It returns the created member, or
// nil when email is empty, a registered member already exists, or the email is taken.
func EnsureAdmin(ctx context.Context, members AdminSeeder, email, name string) (*models.Member, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, nil
	}

	count, err := members.CountRegistered(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count registered members: %w", err)
	}
	if count > 0 {
		return nil, nil
	}

	if _, err := members.GetByEmail(ctx, email); err == nil {
		return nil, nil
	} else if !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("failed to look up admin email: %w", err)
	}

	name = strings.TrimSpace(name)
	if name == "" {
		name = DefaultAdminName
	}
	admin := &models.Member{ID: uuid.New(), Name: name, Email: &email}
	if err := members.Create(ctx, admin); err != nil {
		return nil, fmt.Errorf("failed to create admin member: %w", err)
	}
	return admin, nil
}
