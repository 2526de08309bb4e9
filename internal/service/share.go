package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"mdbrowse/internal/auth"
	"mdbrowse/internal/domain"
	"mdbrowse/internal/domain/models"
	"mdbrowse/internal/domain/repositories"
	"mdbrowse/internal/render"
)

const shareTokenBytes = 18

// ShareService issues and resolves unauthenticated read links for single
// documents. Tokens are cryptographically random; access codes, when set,
// are stored bcrypt-hashed only.
type ShareService struct {
	shareRepo   repositories.ShareRepository
	docRepo     repositories.DocumentRepository
	versionRepo repositories.VersionRepository
	renderer    *render.Renderer
	audit       *AuditService
	logger      *slog.Logger
}

// NewShareService creates a new share service
func NewShareService(
	shareRepo repositories.ShareRepository,
	docRepo repositories.DocumentRepository,
	versionRepo repositories.VersionRepository,
	renderer *render.Renderer,
	audit *AuditService,
	logger *slog.Logger,
) *ShareService {
	return &ShareService{
		shareRepo:   shareRepo,
		docRepo:     docRepo,
		versionRepo: versionRepo,
		renderer:    renderer,
		audit:       audit,
		logger:      logger,
	}
}

// CreateShare issues a share link for a document, optionally gated by an
// access code.
func (s *ShareService) CreateShare(ctx context.Context, actor *auth.Actor, documentID string, accessCode *string) (*models.Share, error) {
	if err := actor.Require(auth.ScopeDocumentsRead); err != nil {
		return nil, err
	}

	if _, err := s.docRepo.GetByID(ctx, documentID); err != nil {
		return nil, err
	}

	raw := make([]byte, shareTokenBytes)
	if _, err := rand.Read(raw); err != nil {
		return nil, fmt.Errorf("generate share token: %w", err)
	}

	share := &models.Share{
		ID:         uuid.NewString(),
		DocumentID: documentID,
		Token:      base64.RawURLEncoding.EncodeToString(raw),
		CreatedBy:  actor.ID,
		CreatedAt:  time.Now().UTC(),
	}

	if accessCode != nil && *accessCode != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(*accessCode), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("hash access code: %w", err)
		}
		hashStr := string(hash)
		share.AccessCodeHash = &hashStr
	}

	if err := s.shareRepo.Create(ctx, share); err != nil {
		return nil, err
	}

	s.audit.Record(ctx, actor, ActionShareCreate, "share", share.ID, map[string]any{
		"document_id": documentID,
		"protected":   share.Protected(),
	})
	s.logger.Info("share created", "id", share.ID, "document_id", documentID, "protected", share.Protected())
	return share, nil
}

// ResolveShare returns the shared document with its full content. Unknown
// tokens and soft-deleted targets both surface as not found; an
// access-code mismatch is forbidden.
func (s *ShareService) ResolveShare(ctx context.Context, token, suppliedCode string) (*models.Document, error) {
	share, err := s.shareRepo.GetByToken(ctx, token)
	if err != nil {
		return nil, err
	}

	if share.Protected() {
		if suppliedCode == "" {
			return nil, &domain.ForbiddenError{
				Message: "this share link requires an access code",
				Hint:    "pass ?code=<access code>",
			}
		}
		if bcrypt.CompareHashAndPassword([]byte(*share.AccessCodeHash), []byte(suppliedCode)) != nil {
			return nil, &domain.ForbiddenError{Message: "access code does not match"}
		}
	}

	doc, err := s.docRepo.GetByID(ctx, share.DocumentID)
	if err != nil {
		// Soft-deleted target and dangling share look the same to the caller.
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("shared document: %w", domain.ErrNotFound)
		}
		return nil, err
	}

	version, err := s.versionRepo.GetByNumber(ctx, doc.ID, doc.LatestVersion)
	if err != nil {
		return nil, fmt.Errorf("load shared content: %w", err)
	}
	doc.Content = version.Content
	if html, err := s.renderer.HTML(version.Content); err == nil {
		doc.RenderedHTML = html
	}
	return doc, nil
}

// RevokeShare deletes a share link by its token.
func (s *ShareService) RevokeShare(ctx context.Context, actor *auth.Actor, token string) error {
	if err := actor.Require(auth.ScopeDocumentsWrite); err != nil {
		return err
	}

	share, err := s.shareRepo.GetByToken(ctx, token)
	if err != nil {
		return err
	}
	if err := s.shareRepo.Delete(ctx, share.ID); err != nil {
		return err
	}
	s.logger.Info("share revoked", "id", share.ID, "document_id", share.DocumentID)
	return nil
}
