package auth

import (
	"fmt"

	"mdbrowse/internal/domain"
	"mdbrowse/internal/domain/models"
)

// Scope is a named capability an agent credential may hold. User sessions
// implicitly hold every scope.
type Scope string

const (
	ScopeDocumentsRead  Scope = "documents:read"
	ScopeDocumentsWrite Scope = "documents:write"
	ScopeVersionsRead   Scope = "versions:read"
	ScopeSearchRead     Scope = "search:read"
	ScopeAuditRead      Scope = "audit:read"
)

// AllScopes lists every known scope in a stable order.
var AllScopes = []Scope{
	ScopeDocumentsRead,
	ScopeDocumentsWrite,
	ScopeVersionsRead,
	ScopeSearchRead,
	ScopeAuditRead,
}

// ValidScope reports whether s names a known scope.
func ValidScope(s Scope) bool {
	for _, known := range AllScopes {
		if s == known {
			return true
		}
	}
	return false
}

// Actor is the resolved identity of an inbound request.
type Actor struct {
	Type     models.ActorType
	ID       string
	Username string // set for user actors
	Role     string
	Scopes   []Scope // set for agent actors
}

// Allows reports whether the actor satisfies the required scope. User and
// system actors always do; agents need the scope explicitly.
func (a *Actor) Allows(required Scope) bool {
	if a == nil {
		return false
	}
	if a.Type != models.ActorAgent {
		return true
	}
	for _, s := range a.Scopes {
		if s == required {
			return true
		}
	}
	return false
}

// Require returns ErrForbidden unless the actor holds the required scope.
func (a *Actor) Require(required Scope) error {
	if a == nil {
		return domain.ErrUnauthorized
	}
	if !a.Allows(required) {
		return &domain.ForbiddenError{
			Message: fmt.Sprintf("missing required scope %q", required),
			Hint:    "request a token that includes this scope",
		}
	}
	return nil
}

// IsAdmin reports whether the actor is a user with the admin role.
func (a *Actor) IsAdmin() bool {
	return a != nil && a.Type == models.ActorUser && a.Role == models.RoleAdmin
}
