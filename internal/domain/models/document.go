package models

import (
	"time"
)

// Visibility controls who can see a document.
type Visibility string

const (
	VisibilityPrivate Visibility = "private"
	VisibilityTeam    Visibility = "team"
	VisibilityPublic  Visibility = "public"
)

// ValidVisibility reports whether v is one of the known visibility levels.
func ValidVisibility(v Visibility) bool {
	switch v {
	case VisibilityPrivate, VisibilityTeam, VisibilityPublic:
		return true
	}
	return false
}

// Document is the current metadata and content reference for one markdown
// document. Content history lives in DocumentVersion rows; Content here is
// only populated on read paths that ask for it.
type Document struct {
	ID            string     `json:"id" db:"id"`
	Title         string     `json:"title" db:"title"`
	Slug          string     `json:"slug" db:"slug"`
	Description   string     `json:"description,omitempty" db:"description"`
	Category      string     `json:"category,omitempty" db:"category"`
	Tags          []string   `json:"tags" db:"tags"`
	Project       string     `json:"project,omitempty" db:"project"`
	Visibility    Visibility `json:"visibility" db:"visibility"`
	FolderID      *string    `json:"folder_id" db:"folder_id"` // NULL = root level
	FilePath      string     `json:"file_path" db:"file_path"` // location reference, e.g. "guides/setup/intro.md"
	LatestVersion int        `json:"latest_version" db:"latest_version"`
	Checksum      string     `json:"checksum" db:"checksum"`
	TokenCount    int        `json:"token_count_estimate" db:"token_count"`
	WordCount     int        `json:"word_count" db:"word_count"`
	CreatedBy     string     `json:"created_by" db:"created_by"`
	CreatedAt     time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at" db:"updated_at"`
	DeletedAt     *time.Time `json:"deleted_at,omitempty" db:"deleted_at"`

	// Populated on demand, never listed
	Content      string `json:"content,omitempty"`
	RenderedHTML string `json:"rendered_html,omitempty"`
}

// DocumentVersion is one immutable entry in a document's version chain.
// Version numbers start at 1 and increase without gaps; rows are never
// mutated or deleted.
type DocumentVersion struct {
	ID            string    `json:"id" db:"id"`
	DocumentID    string    `json:"document_id" db:"document_id"`
	VersionNumber int       `json:"version_number" db:"version_number"`
	Content       string    `json:"content,omitempty" db:"content"`
	ChangeNote    string    `json:"change_note,omitempty" db:"change_note"`
	Checksum      string    `json:"checksum" db:"checksum"`
	CreatedBy     string    `json:"created_by" db:"created_by"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}
