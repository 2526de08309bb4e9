package models

import (
	"time"
)

// AgentToken is a machine credential. The plaintext secret is shown to the
// caller exactly once at creation; only TokenHash is stored. TokenPrefix is
// the public lookup key used to find the row before hash comparison.
type AgentToken struct {
	ID          string     `json:"id" db:"id"`
	Name        string     `json:"name" db:"name"`
	Role        string     `json:"role" db:"role"`
	Scopes      []string   `json:"scopes" db:"scopes"`
	TokenPrefix string     `json:"token_prefix" db:"token_prefix"`
	TokenHash   string     `json:"-" db:"token_hash"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty" db:"expires_at"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	LastUsedAt  *time.Time `json:"last_used_at,omitempty" db:"last_used_at"`
}

// Expired reports whether the token is past its expiry at the given instant.
func (t *AgentToken) Expired(now time.Time) bool {
	return t.ExpiresAt != nil && now.After(*t.ExpiresAt)
}
