package models

import (
	"time"

	"github.com/google/uuid"
)

// Member represents a household member who can be assigned tasks
type Member struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Email     *string   `json:"email,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// IsRegistered reports whether the member can sign in
func (m *Member) IsRegistered() bool {
	return m.Email != nil && *m.Email != ""
}

// Note is the shared household notepad
type Note struct {
	ID        uuid.UUID `json:"id"`
	Content   string    `json:"content"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SessionClaims represents the claims carried by a session token
type SessionClaims struct {
	MemberID  uuid.UUID `json:"sub"`
	Name      string    `json:"name"`
	IssuedAt  time.Time `json:"iat"`
	ExpiresAt time.Time `json:"exp"`
}
