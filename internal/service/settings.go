package service

import (
	"context"
	"log/slog"
	"time"

	"mdbrowse/internal/auth"
	"mdbrowse/internal/domain"
	"mdbrowse/internal/domain/models"
	"mdbrowse/internal/domain/repositories"
)

// UpdateSettingsRequest is the admin input for instance settings.
type UpdateSettingsRequest struct {
	SiteName          *string            `json:"site_name,omitempty"`
	DefaultVisibility *models.Visibility `json:"default_visibility,omitempty"`
	MaxUploadBytes    *int64             `json:"max_upload_bytes,omitempty"`
}

// SettingsService owns the single-row instance configuration.
type SettingsService struct {
	repo   repositories.SettingsRepository
	audit  *AuditService
	logger *slog.Logger
}

// NewSettingsService creates a new settings service
func NewSettingsService(repo repositories.SettingsRepository, audit *AuditService, logger *slog.Logger) *SettingsService {
	return &SettingsService{repo: repo, audit: audit, logger: logger}
}

// Get returns current settings. Admin only.
func (s *SettingsService) Get(ctx context.Context, actor *auth.Actor) (*models.Settings, error) {
	if !actor.IsAdmin() {
		return nil, &domain.ForbiddenError{Message: "admin role required"}
	}
	return s.repo.Get(ctx)
}

// Update applies a partial settings change. Admin only.
func (s *SettingsService) Update(ctx context.Context, actor *auth.Actor, req *UpdateSettingsRequest) (*models.Settings, error) {
	if !actor.IsAdmin() {
		return nil, &domain.ForbiddenError{Message: "admin role required"}
	}
	if req.SiteName == nil && req.DefaultVisibility == nil && req.MaxUploadBytes == nil {
		return nil, &domain.ValidationError{Message: "at least one field must be provided"}
	}

	settings, err := s.repo.Get(ctx)
	if err != nil {
		return nil, err
	}

	if req.SiteName != nil {
		if *req.SiteName == "" {
			return nil, &domain.ValidationError{Message: "site_name cannot be empty"}
		}
		settings.SiteName = *req.SiteName
	}
	if req.DefaultVisibility != nil {
		if !models.ValidVisibility(*req.DefaultVisibility) {
			return nil, &domain.ValidationError{Message: "default_visibility must be one of private, team, public"}
		}
		settings.DefaultVisibility = *req.DefaultVisibility
	}
	if req.MaxUploadBytes != nil {
		if *req.MaxUploadBytes < 1 {
			return nil, &domain.ValidationError{Message: "max_upload_bytes must be positive"}
		}
		settings.MaxUploadBytes = *req.MaxUploadBytes
	}
	settings.UpdatedAt = time.Now().UTC()

	if err := s.repo.Update(ctx, settings); err != nil {
		return nil, err
	}

	s.audit.Record(ctx, actor, ActionSettingsUpdate, "settings", "instance", nil)
	s.logger.Info("settings updated", "site_name", settings.SiteName)
	return settings, nil
}
