package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"mdbrowse/internal/auth"
	"mdbrowse/internal/domain"
	"mdbrowse/internal/domain/models"
)

func TestCreateAgentToken(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	created, err := env.tokens.CreateToken(ctx, adminActor(), &CreateAgentTokenRequest{
		Name:   "ci-bot",
		Scopes: []string{"documents:read", "search:read"},
	})
	if err != nil {
		t.Fatalf("create token: %v", err)
	}
	if !strings.HasPrefix(created.Plaintext, "mdb_") {
		t.Errorf("plaintext = %q, want mdb_ prefix", created.Plaintext)
	}
	if created.Token.TokenPrefix != created.Plaintext[:12] {
		t.Errorf("token prefix = %q, want first 12 chars of plaintext", created.Token.TokenPrefix)
	}
	if created.Token.TokenHash == created.Plaintext {
		t.Error("stored hash must not equal the plaintext")
	}
	if created.Token.Role != "agent" {
		t.Errorf("role = %q, want agent", created.Token.Role)
	}

	listed, err := env.tokens.ListTokens(ctx, adminActor())
	if err != nil {
		t.Fatalf("list tokens: %v", err)
	}
	if len(listed) != 1 || listed[0].ID != created.Token.ID {
		t.Fatalf("list = %+v, want the one created token", listed)
	}

	if got := env.auditEntries(t, ActionAgentTokenCreate); len(got) != 1 {
		t.Errorf("audit entries = %d, want 1", len(got))
	}
}

func TestCreateAgentTokenValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	past := time.Now().Add(-time.Hour)

	tests := []struct {
		name string
		req  *CreateAgentTokenRequest
	}{
		{"missing name", &CreateAgentTokenRequest{Scopes: []string{"documents:read"}}},
		{"missing scopes", &CreateAgentTokenRequest{Name: "bot"}},
		{"unknown scope", &CreateAgentTokenRequest{Name: "bot", Scopes: []string{"documents:admin"}}},
		{"expiry in the past", &CreateAgentTokenRequest{Name: "bot", Scopes: []string{"documents:read"}, ExpiresAt: &past}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.tokens.CreateToken(ctx, adminActor(), tt.req)
			if !errors.Is(err, domain.ErrValidation) {
				t.Errorf("err = %v, want validation error", err)
			}
		})
	}
}

func TestAgentTokenUserOnly(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	agent := agentActor(auth.ScopeDocumentsRead, auth.ScopeDocumentsWrite)

	if _, err := env.tokens.CreateToken(ctx, agent, &CreateAgentTokenRequest{Name: "bot", Scopes: []string{"documents:read"}}); !errors.Is(err, domain.ErrForbidden) {
		t.Errorf("agent create: err = %v, want forbidden", err)
	}
	if _, err := env.tokens.ListTokens(ctx, agent); !errors.Is(err, domain.ErrForbidden) {
		t.Errorf("agent list: err = %v, want forbidden", err)
	}
	if err := env.tokens.DeleteToken(ctx, agent, "any"); !errors.Is(err, domain.ErrForbidden) {
		t.Errorf("agent delete: err = %v, want forbidden", err)
	}
	if _, err := env.tokens.CreateToken(ctx, nil, &CreateAgentTokenRequest{Name: "bot", Scopes: []string{"documents:read"}}); !errors.Is(err, domain.ErrForbidden) {
		t.Errorf("nil actor: err = %v, want forbidden", err)
	}
}

func TestAgentResolverRoundTrip(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	created, err := env.tokens.CreateToken(ctx, adminActor(), &CreateAgentTokenRequest{
		Name:   "crawler",
		Scopes: []string{"documents:read"},
	})
	if err != nil {
		t.Fatalf("create token: %v", err)
	}

	resolver := auth.NewAgentResolver(env.tokenRepo, logger)
	record, err := resolver.Resolve(ctx, created.Plaintext)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if record.ID != created.Token.ID {
		t.Errorf("resolved id = %q, want %q", record.ID, created.Token.ID)
	}
	if record.LastUsedAt == nil {
		t.Error("last_used_at not touched on successful resolve")
	}
	stored, err := env.tokenRepo.GetByPrefix(ctx, created.Token.TokenPrefix)
	if err != nil {
		t.Fatalf("reload token: %v", err)
	}
	if stored.LastUsedAt == nil {
		t.Error("last_used_at not persisted")
	}

	actor := auth.ActorFor(record)
	if actor.Type != models.ActorAgent || actor.ID != record.ID {
		t.Errorf("actor = %+v, want agent actor for token", actor)
	}
	if err := actor.Require(auth.ScopeDocumentsRead); err != nil {
		t.Errorf("granted scope rejected: %v", err)
	}
	if err := actor.Require(auth.ScopeDocumentsWrite); !errors.Is(err, domain.ErrForbidden) {
		t.Errorf("ungranted scope: err = %v, want forbidden", err)
	}
}

func TestAgentResolverRejectsBadTokens(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	resolver := auth.NewAgentResolver(env.tokenRepo, logger)

	created, err := env.tokens.CreateToken(ctx, adminActor(), &CreateAgentTokenRequest{
		Name:   "crawler",
		Scopes: []string{"documents:read"},
	})
	if err != nil {
		t.Fatalf("create token: %v", err)
	}

	tests := []struct {
		name      string
		plaintext string
	}{
		{"empty", ""},
		{"too short", "mdb_abc"},
		{"unknown prefix", "mdb_AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"},
		{"tampered secret", created.Plaintext[:len(created.Plaintext)-4] + "XXXX"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := resolver.Resolve(ctx, tt.plaintext); !errors.Is(err, domain.ErrUnauthorized) {
				t.Errorf("err = %v, want unauthorized", err)
			}
		})
	}
}

func TestAgentResolverExpiredToken(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	// Plant an already-expired record directly; the service refuses to
	// mint one.
	plaintext, prefix, hash, err := auth.GenerateToken()
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	expired := time.Now().Add(-time.Minute)
	record := &models.AgentToken{
		ID:          uuid.NewString(),
		Name:        "stale",
		Role:        "agent",
		Scopes:      []string{"documents:read"},
		TokenPrefix: prefix,
		TokenHash:   hash,
		ExpiresAt:   &expired,
		CreatedAt:   time.Now().Add(-time.Hour),
	}
	if err := env.tokenRepo.Create(ctx, record); err != nil {
		t.Fatalf("plant token: %v", err)
	}

	resolver := auth.NewAgentResolver(env.tokenRepo, logger)
	if _, err := resolver.Resolve(ctx, plaintext); !errors.Is(err, domain.ErrUnauthorized) {
		t.Errorf("err = %v, want unauthorized", err)
	}
}

func TestDeleteAgentTokenRevokesAccess(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	created, err := env.tokens.CreateToken(ctx, adminActor(), &CreateAgentTokenRequest{
		Name:   "short-lived",
		Scopes: []string{"documents:read"},
	})
	if err != nil {
		t.Fatalf("create token: %v", err)
	}
	if err := env.tokens.DeleteToken(ctx, adminActor(), created.Token.ID); err != nil {
		t.Fatalf("delete token: %v", err)
	}

	resolver := auth.NewAgentResolver(env.tokenRepo, logger)
	if _, err := resolver.Resolve(ctx, created.Plaintext); !errors.Is(err, domain.ErrUnauthorized) {
		t.Errorf("revoked token resolve: err = %v, want unauthorized", err)
	}
	if err := env.tokens.DeleteToken(ctx, adminActor(), created.Token.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("double delete: err = %v, want not found", err)
	}
}
