package auth

import (
	"fmt"
	"log/slog"
	"time"

	"mdbrowse/internal/domain"
	"mdbrowse/internal/domain/models"

	"github.com/golang-jwt/jwt/v5"
)

// SessionClaims are the JWT claims carried by a user session token.
type SessionClaims struct {
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// SessionManager issues and verifies user session tokens. Tokens are
// HS256-signed with a locally configured secret - this service is its own
// issuer, there is no remote key set to fetch.
type SessionManager struct {
	secret []byte
	ttl    time.Duration
	logger *slog.Logger
}

// NewSessionManager creates a session manager.
func NewSessionManager(secret string, ttl time.Duration, logger *slog.Logger) (*SessionManager, error) {
	if secret == "" {
		return nil, fmt.Errorf("session secret cannot be empty")
	}
	return &SessionManager{
		secret: []byte(secret),
		ttl:    ttl,
		logger: logger,
	}, nil
}

// Issue creates a signed session token for a user.
func (m *SessionManager) Issue(user *models.User) (string, error) {
	now := time.Now()
	claims := &SessionClaims{
		Username: user.Username,
		Role:     user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}
	return signed, nil
}

// Verify validates a session token and returns its claims.
// Invalid, expired, or foreign-algorithm tokens are rejected.
func (m *SessionManager) Verify(tokenString string) (*SessionClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &SessionClaims{}, func(t *jwt.Token) (interface{}, error) {
		// Pin the algorithm so a crafted token cannot downgrade verification
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		return m.secret, nil
	})
	if err != nil {
		m.logger.Debug("session token rejected", "error", err)
		return nil, domain.ErrUnauthorized
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid || claims.Subject == "" {
		return nil, domain.ErrUnauthorized
	}
	return claims, nil
}
