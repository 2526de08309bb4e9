package models

import (
	"time"
)

// ActorType identifies what kind of principal performed an action.
type ActorType string

const (
	ActorUser   ActorType = "user"
	ActorAgent  ActorType = "agent"
	ActorSystem ActorType = "system"
)

// AuditLogEntry is one append-only audit record. Entries are never updated
// or deleted. IDs are ULIDs so the log sorts by creation time.
type AuditLogEntry struct {
	ID           string         `json:"id" db:"id"`
	ActorType    ActorType      `json:"actor_type" db:"actor_type"`
	ActorID      string         `json:"actor_id" db:"actor_id"`
	Action       string         `json:"action" db:"action"` // dotted verb.noun, e.g. "document.update"
	ResourceType string         `json:"resource_type" db:"resource_type"`
	ResourceID   string         `json:"resource_id" db:"resource_id"`
	Metadata     map[string]any `json:"metadata,omitempty" db:"metadata"`
	CreatedAt    time.Time      `json:"created_at" db:"created_at"`
}
