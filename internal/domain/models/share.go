package models

import (
	"time"
)

// Share grants unauthenticated read access to one document via an
// unguessable token, optionally gated by an access code. Only the bcrypt
// hash of the access code is stored.
type Share struct {
	ID             string    `json:"id" db:"id"`
	DocumentID     string    `json:"document_id" db:"document_id"`
	Token          string    `json:"token" db:"token"`
	AccessCodeHash *string   `json:"-" db:"access_code_hash"`
	CreatedBy      string    `json:"created_by" db:"created_by"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
}

// Protected reports whether resolving this share requires an access code.
func (s *Share) Protected() bool {
	return s.AccessCodeHash != nil && *s.AccessCodeHash != ""
}
