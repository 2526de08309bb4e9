package models

import (
	"time"
)

// User roles. Admins manage users and settings; editors mutate documents;
// viewers read. Role checks beyond admin gating are not enforced in this
// core - a session actor holds every capability scope.
const (
	RoleAdmin  = "admin"
	RoleEditor = "editor"
	RoleViewer = "viewer"
)

// User is a human account. PasswordHash is produced by the configured
// hashing capability (bcrypt); the plaintext is never stored.
type User struct {
	ID           string    `json:"id" db:"id"`
	Username     string    `json:"username" db:"username"`
	Role         string    `json:"role" db:"role"`
	PasswordHash string    `json:"-" db:"password_hash"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// ValidRole reports whether role is one of the known user roles.
func ValidRole(role string) bool {
	switch role {
	case RoleAdmin, RoleEditor, RoleViewer:
		return true
	}
	return false
}

// Settings is the single-row instance configuration surfaced under
// /api/v1/admin/settings.
type Settings struct {
	SiteName          string     `json:"site_name" db:"site_name"`
	DefaultVisibility Visibility `json:"default_visibility" db:"default_visibility"`
	MaxUploadBytes    int64      `json:"max_upload_bytes" db:"max_upload_bytes"`
	UpdatedAt         time.Time  `json:"updated_at" db:"updated_at"`
}
