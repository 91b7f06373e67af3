// Package session issues and verifies the signed tokens that identify a
// household member on API requests.
package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/benvon/chore-tracker/internal/models"
	"github.com/google/uuid"
	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

// Issuer is the iss claim on every session token
const Issuer = "chore-tracker"

// MinSecretLength is the minimum HMAC secret length accepted
const MinSecretLength = 32

// ErrInvalidToken is returned for tokens that fail verification
var ErrInvalidToken = errors.New("invalid session token")

// Manager signs and verifies HS256 session tokens
type Manager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// Option configures a Manager
type Option func(*Manager)

// WithClock overrides the clock used for issuing and validating tokens
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

// NewManager creates a session manager
func NewManager(secret string, ttl time.Duration, opts ...Option) (*Manager, error) {
	if len(secret) < MinSecretLength {
		return nil, fmt.Errorf("session secret must be at least %d characters", MinSecretLength)
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("session ttl must be positive")
	}
	m := &Manager{secret: []byte(secret), ttl: ttl, now: time.Now}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Issue creates a signed token for the member
func (m *Manager) Issue(member *models.Member) (string, error) {
	now := m.now().Truncate(time.Second)
	token, err := jwt.NewBuilder().
		Issuer(Issuer).
		Subject(member.ID.String()).
		IssuedAt(now).
		Expiration(now.Add(m.ttl)).
		Claim("name", member.Name).
		Build()
	if err != nil {
		return "", fmt.Errorf("failed to build token: %w", err)
	}

	signed, err := jwt.Sign(token, jwt.WithKey(jwa.HS256, m.secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return string(signed), nil
}

// Verify checks the signature, issuer and expiry and extracts the claims
func (m *Manager) Verify(tokenString string) (*models.SessionClaims, error) {
	token, err := jwt.Parse([]byte(tokenString),
		jwt.WithKey(jwa.HS256, m.secret),
		jwt.WithValidate(true),
		jwt.WithIssuer(Issuer),
		jwt.WithClock(jwt.ClockFunc(m.now)),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	memberID, err := uuid.Parse(token.Subject())
	if err != nil {
		return nil, fmt.Errorf("%w: bad subject", ErrInvalidToken)
	}

	claims := &models.SessionClaims{
		MemberID:  memberID,
		IssuedAt:  token.IssuedAt(),
		ExpiresAt: token.Expiration(),
	}
	if name, ok := token.Get("name"); ok {
		if nameStr, ok := name.(string); ok {
			claims.Name = nameStr
		}
	}
	return claims, nil
}
