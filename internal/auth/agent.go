package auth

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"mdbrowse/internal/domain"
	"mdbrowse/internal/domain/models"
	"mdbrowse/internal/domain/repositories"
)

const (
	tokenSecretBytes = 24
	tokenPrefixLen   = 12

	// AgentTokenHeader is the dedicated header carrying machine credentials.
	AgentTokenHeader = "X-Agent-Token"
)

// AgentResolver authenticates machine credentials against stored token
// records: lookup by public prefix, then constant-time comparison of the
// secret's hash.
type AgentResolver struct {
	tokens repositories.AgentTokenRepository
	logger *slog.Logger
}

// NewAgentResolver creates an agent credential resolver.
func NewAgentResolver(tokens repositories.AgentTokenRepository, logger *slog.Logger) *AgentResolver {
	return &AgentResolver{tokens: tokens, logger: logger}
}

// GenerateToken produces a new plaintext credential plus its lookup prefix
// and storage hash. The plaintext is returned to the caller exactly once
// and never persisted.
func GenerateToken() (plaintext, prefix, hash string, err error) {
	raw := make([]byte, tokenSecretBytes)
	if _, err := rand.Read(raw); err != nil {
		return "", "", "", fmt.Errorf("generate token secret: %w", err)
	}
	plaintext = "mdb_" + base64.RawURLEncoding.EncodeToString(raw)
	return plaintext, plaintext[:tokenPrefixLen], HashToken(plaintext), nil
}

// HashToken returns the hex sha256 digest of a plaintext credential.
func HashToken(plaintext string) string {
	sum := sha256.Sum256([]byte(plaintext))
	return hex.EncodeToString(sum[:])
}

// Resolve authenticates a plaintext credential and returns the matching
// token record. Unknown prefixes, hash mismatches, and expired tokens all
// surface as ErrUnauthorized.
func (r *AgentResolver) Resolve(ctx context.Context, plaintext string) (*models.AgentToken, error) {
	plaintext = strings.TrimSpace(plaintext)
	if len(plaintext) < tokenPrefixLen {
		return nil, domain.ErrUnauthorized
	}

	record, err := r.tokens.GetByPrefix(ctx, plaintext[:tokenPrefixLen])
	if err != nil {
		return nil, domain.ErrUnauthorized
	}

	if !hmac.Equal([]byte(HashToken(plaintext)), []byte(record.TokenHash)) {
		return nil, domain.ErrUnauthorized
	}

	now := time.Now()
	if record.Expired(now) {
		return nil, &domain.UnauthorizedError{Message: "agent token expired"}
	}

	if err := r.tokens.TouchLastUsed(ctx, record.ID, now); err != nil {
		r.logger.Warn("failed to update agent token last_used_at", "token_id", record.ID, "error", err)
	} else {
		// Keep the returned record in step with what was just persisted.
		record.LastUsedAt = &now
	}

	return record, nil
}

// ActorFor builds the request actor for an authenticated agent token.
func ActorFor(token *models.AgentToken) *Actor {
	scopes := make([]Scope, 0, len(token.Scopes))
	for _, s := range token.Scopes {
		scopes = append(scopes, Scope(s))
	}
	return &Actor{
		Type:   models.ActorAgent,
		ID:     token.ID,
		Role:   token.Role,
		Scopes: scopes,
	}
}
