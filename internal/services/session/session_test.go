package session

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/benvon/chore-tracker/internal/models"
	"github.com/google/uuid"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestNewManager(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		secret  string
		ttl     time.Duration
		wantErr bool
	}{
		{name: "valid", secret: testSecret, ttl: time.Hour},
		{name: "short secret", secret: "short", ttl: time.Hour, wantErr: true},
		{name: "zero ttl", secret: testSecret, ttl: 0, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := NewManager(tt.secret, tt.ttl)
			if (err != nil) != tt.wantErr {
				t.Errorf("Expected error=%v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestIssueVerify(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	m, err := NewManager(testSecret, time.Hour, WithClock(func() time.Time { return now }))
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	member := &models.Member{ID: uuid.New(), Name: "Sanne"}

	token, err := m.Issue(member)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	claims, err := m.Verify(token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if claims.MemberID != member.ID {
		t.Errorf("Expected member %s, got %s", member.ID, claims.MemberID)
	}
	if claims.Name != "Sanne" {
		t.Errorf("Expected name Sanne, got %q", claims.Name)
	}
	if !claims.ExpiresAt.Equal(now.Add(time.Hour)) {
		t.Errorf("Expected expiry %s, got %s", now.Add(time.Hour), claims.ExpiresAt)
	}
}

func TestVerify_Rejects(t *testing.T) {
	t.Parallel()

	issued := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	issuer, _ := NewManager(testSecret, time.Hour, WithClock(func() time.Time { return issued }))
	token, err := issuer.Issue(&models.Member{ID: uuid.New(), Name: "Sanne"})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	later, _ := NewManager(testSecret, time.Hour, WithClock(func() time.Time { return issued.Add(2 * time.Hour) }))
	other, _ := NewManager(strings.Repeat("x", MinSecretLength), time.Hour, WithClock(func() time.Time { return issued }))

	tests := []struct {
		name    string
		manager *Manager
		token   string
	}{
		{name: "expired", manager: later, token: token},
		{name: "wrong secret", manager: other, token: token},
		{name: "garbage", manager: issuer, token: "not-a-token"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if _, err := tt.manager.Verify(tt.token); !errors.Is(err, ErrInvalidToken) {
				t.Errorf("Expected ErrInvalidToken, got %v", err)
			}
		})
	}
}
