package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"

	"mdbrowse/internal/auth"
	"mdbrowse/internal/domain"
	"mdbrowse/internal/domain/models"
	"mdbrowse/internal/domain/repositories"
)

// CreateAgentTokenRequest is the input for minting a machine credential.
type CreateAgentTokenRequest struct {
	Name      string     `json:"name"`
	Scopes    []string   `json:"scopes"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// CreatedAgentToken pairs the stored record with the plaintext secret,
// which exists only in this response and is never persisted or shown
// again.
type CreatedAgentToken struct {
	Token     *models.AgentToken `json:"token"`
	Plaintext string             `json:"plaintext"`
}

// AgentTokenService manages machine credentials. Creation is the single
// moment the plaintext secret is visible.
type AgentTokenService struct {
	repo   repositories.AgentTokenRepository
	audit  *AuditService
	logger *slog.Logger
}

// NewAgentTokenService creates a new agent token service
func NewAgentTokenService(repo repositories.AgentTokenRepository, audit *AuditService, logger *slog.Logger) *AgentTokenService {
	return &AgentTokenService{repo: repo, audit: audit, logger: logger}
}

// CreateToken mints a credential with an explicit scope set. Only user
// actors may mint tokens.
func (s *AgentTokenService) CreateToken(ctx context.Context, actor *auth.Actor, req *CreateAgentTokenRequest) (*CreatedAgentToken, error) {
	if actor == nil || actor.Type != models.ActorUser {
		return nil, &domain.ForbiddenError{Message: "only user sessions can mint agent tokens"}
	}
	if err := s.validateCreateRequest(req); err != nil {
		return nil, &domain.ValidationError{Message: err.Error()}
	}

	plaintext, prefix, hash, err := auth.GenerateToken()
	if err != nil {
		return nil, err
	}

	token := &models.AgentToken{
		ID:          uuid.NewString(),
		Name:        req.Name,
		Role:        "agent",
		Scopes:      req.Scopes,
		TokenPrefix: prefix,
		TokenHash:   hash,
		ExpiresAt:   req.ExpiresAt,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.repo.Create(ctx, token); err != nil {
		return nil, err
	}

	s.audit.Record(ctx, actor, ActionAgentTokenCreate, "agent_token", token.ID, map[string]any{
		"name":   token.Name,
		"scopes": token.Scopes,
	})
	s.logger.Info("agent token created", "id", token.ID, "name", token.Name, "scopes", token.Scopes)

	return &CreatedAgentToken{Token: token, Plaintext: plaintext}, nil
}

// ListTokens returns all credential records. Hashes never serialize.
func (s *AgentTokenService) ListTokens(ctx context.Context, actor *auth.Actor) ([]models.AgentToken, error) {
	if actor == nil || actor.Type != models.ActorUser {
		return nil, &domain.ForbiddenError{Message: "only user sessions can list agent tokens"}
	}
	return s.repo.List(ctx)
}

// DeleteToken revokes a credential.
func (s *AgentTokenService) DeleteToken(ctx context.Context, actor *auth.Actor, id string) error {
	if actor == nil || actor.Type != models.ActorUser {
		return &domain.ForbiddenError{Message: "only user sessions can revoke agent tokens"}
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.audit.Record(ctx, actor, ActionAgentTokenDelete, "agent_token", id, nil)
	s.logger.Info("agent token revoked", "id", id)
	return nil
}

func (s *AgentTokenService) validateCreateRequest(req *CreateAgentTokenRequest) error {
	if err := validation.ValidateStruct(req,
		validation.Field(&req.Name, validation.Required, validation.Length(1, 120)),
		validation.Field(&req.Scopes, validation.Required),
	); err != nil {
		return err
	}
	for _, scope := range req.Scopes {
		if !auth.ValidScope(auth.Scope(scope)) {
			return fmt.Errorf("unknown scope %q", scope)
		}
	}
	if req.ExpiresAt != nil && req.ExpiresAt.Before(time.Now()) {
		return fmt.Errorf("expires_at must be in the future")
	}
	return nil
}
