package models

import (
	"time"
)

// Folder is one node in the placement hierarchy. DirectoryName is the
// filesystem-safe segment used to build document file paths; it is unique
// among siblings. The parent chain is always acyclic.
type Folder struct {
	ID            string    `json:"id" db:"id"`
	Name          string    `json:"name" db:"name"`
	DirectoryName string    `json:"directory_name" db:"directory_name"`
	ParentID      *string   `json:"parent_id" db:"parent_id"` // NULL = root level
	Path          string    `json:"path,omitempty"`           // Computed display path, not stored
	CreatedBy     string    `json:"created_by" db:"created_by"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time `json:"updated_at" db:"updated_at"`
}
