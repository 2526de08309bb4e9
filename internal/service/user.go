package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"mdbrowse/internal/auth"
	"mdbrowse/internal/domain"
	"mdbrowse/internal/domain/models"
	"mdbrowse/internal/domain/repositories"
)

// LoginRequest is the credential input for session issuance.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse carries the signed session token and the authenticated
// user.
type LoginResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

// CreateUserRequest is the admin input for account creation.
type CreateUserRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// UpdateUserRequest is the admin input for account changes.
type UpdateUserRequest struct {
	Password *string `json:"password,omitempty"`
	Role     *string `json:"role,omitempty"`
}

// UserService owns human accounts and session issuance. Password hashing
// is delegated to bcrypt; plaintexts never persist.
type UserService struct {
	repo     repositories.UserRepository
	sessions *auth.SessionManager
	audit    *AuditService
	logger   *slog.Logger
}

// NewUserService creates a new user service
func NewUserService(repo repositories.UserRepository, sessions *auth.SessionManager, audit *AuditService, logger *slog.Logger) *UserService {
	return &UserService{repo: repo, sessions: sessions, audit: audit, logger: logger}
}

// Login verifies credentials and issues a session token. Unknown users
// and wrong passwords are indistinguishable to the caller.
func (s *UserService) Login(ctx context.Context, req *LoginRequest) (*LoginResponse, error) {
	if req.Username == "" || req.Password == "" {
		return nil, &domain.ValidationError{Message: "username and password are required"}
	}

	user, err := s.repo.GetByUsername(ctx, req.Username)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, &domain.UnauthorizedError{Message: "invalid username or password"}
		}
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		return nil, &domain.UnauthorizedError{Message: "invalid username or password"}
	}

	token, err := s.sessions.Issue(user)
	if err != nil {
		return nil, err
	}

	actor := &auth.Actor{Type: models.ActorUser, ID: user.ID, Username: user.Username, Role: user.Role}
	s.audit.Record(ctx, actor, ActionUserLogin, "user", user.ID, nil)
	s.logger.Info("user logged in", "user_id", user.ID, "username", user.Username)

	return &LoginResponse{Token: token, User: user}, nil
}

// GetByID retrieves one account.
func (s *UserService) GetByID(ctx context.Context, id string) (*models.User, error) {
	return s.repo.GetByID(ctx, id)
}

// CreateUser creates an account. Duplicate usernames are a conflict.
// Admin only.
func (s *UserService) CreateUser(ctx context.Context, actor *auth.Actor, req *CreateUserRequest) (*models.User, error) {
	if !actor.IsAdmin() {
		return nil, &domain.ForbiddenError{Message: "admin role required"}
	}
	if err := s.validateCreateRequest(req); err != nil {
		return nil, &domain.ValidationError{Message: err.Error()}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := time.Now().UTC()
	user := &models.User{
		ID:           uuid.NewString(),
		Username:     req.Username,
		Role:         req.Role,
		PasswordHash: string(hash),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return nil, err
	}

	s.audit.Record(ctx, actor, ActionUserCreate, "user", user.ID, map[string]any{
		"username": user.Username,
		"role":     user.Role,
	})
	s.logger.Info("user created", "id", user.ID, "username", user.Username, "role", user.Role)
	return user, nil
}

// ListUsers returns all accounts. Admin only.
func (s *UserService) ListUsers(ctx context.Context, actor *auth.Actor) ([]models.User, error) {
	if !actor.IsAdmin() {
		return nil, &domain.ForbiddenError{Message: "admin role required"}
	}
	return s.repo.List(ctx)
}

// UpdateUser changes an account's role and/or password. Admin only.
func (s *UserService) UpdateUser(ctx context.Context, actor *auth.Actor, username string, req *UpdateUserRequest) (*models.User, error) {
	if !actor.IsAdmin() {
		return nil, &domain.ForbiddenError{Message: "admin role required"}
	}
	if req.Password == nil && req.Role == nil {
		return nil, &domain.ValidationError{Message: "at least one of password or role must be provided"}
	}
	if req.Role != nil && !models.ValidRole(*req.Role) {
		return nil, &domain.ValidationError{Message: "role must be one of admin, editor, viewer"}
	}

	user, err := s.repo.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}

	if req.Role != nil {
		user.Role = *req.Role
	}
	if req.Password != nil {
		if len(*req.Password) < 8 {
			return nil, &domain.ValidationError{Message: "password must be at least 8 characters"}
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(*req.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		user.PasswordHash = string(hash)
	}
	user.UpdatedAt = time.Now().UTC()

	if err := s.repo.Update(ctx, user); err != nil {
		return nil, err
	}

	s.audit.Record(ctx, actor, ActionUserUpdate, "user", user.ID, map[string]any{
		"username": user.Username,
	})
	s.logger.Info("user updated", "id", user.ID, "username", user.Username)
	return user, nil
}

// DeleteUser removes an account. Admin only; admins cannot delete
// themselves.
func (s *UserService) DeleteUser(ctx context.Context, actor *auth.Actor, username string) error {
	if !actor.IsAdmin() {
		return &domain.ForbiddenError{Message: "admin role required"}
	}
	if actor.Username == username {
		return &domain.ValidationError{Message: "cannot delete your own account"}
	}

	user, err := s.repo.GetByUsername(ctx, username)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, user.ID); err != nil {
		return err
	}

	s.audit.Record(ctx, actor, ActionUserDelete, "user", user.ID, map[string]any{
		"username": user.Username,
	})
	s.logger.Info("user deleted", "id", user.ID, "username", user.Username)
	return nil
}

// Bootstrap creates the initial admin account when the user table is
// empty. Safe to call on every startup.
func (s *UserService) Bootstrap(ctx context.Context, username, password string) error {
	count, err := s.repo.Count(ctx)
	if err != nil {
		return fmt.Errorf("count users: %w", err)
	}
	if count > 0 {
		return nil
	}
	if username == "" || password == "" {
		s.logger.Warn("no users exist and no bootstrap admin credentials configured")
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	now := time.Now().UTC()
	user := &models.User{
		ID:           uuid.NewString(),
		Username:     username,
		Role:         models.RoleAdmin,
		PasswordHash: string(hash),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return err
	}

	s.audit.Record(ctx, nil, ActionUserCreate, "user", user.ID, map[string]any{
		"username":  user.Username,
		"role":      user.Role,
		"bootstrap": true,
	})
	s.logger.Info("bootstrap admin created", "username", username)
	return nil
}

func (s *UserService) validateCreateRequest(req *CreateUserRequest) error {
	if err := validation.ValidateStruct(req,
		validation.Field(&req.Username, validation.Required, validation.Length(1, 64)),
		validation.Field(&req.Password, validation.Required, validation.Length(8, 128)),
		validation.Field(&req.Role, validation.Required),
	); err != nil {
		return err
	}
	if !models.ValidRole(req.Role) {
		return fmt.Errorf("role must be one of admin, editor, viewer")
	}
	return nil
}
