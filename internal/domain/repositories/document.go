package repositories

import (
	"context"
	"time"

	"mdbrowse/internal/domain/models"
)

// DocumentFilter narrows and orders a document listing. Sorting is always
// a stable total order: the sort field first, then id as tiebreak, so
// pagination is reproducible for identical inputs.
type DocumentFilter struct {
	Tag       string
	Project   string
	Category  string
	FolderID  *string // nil = any folder
	Query     string  // free-text match against title/description/tags
	SortBy    string  // title, created_at, updated_at
	SortOrder string  // asc, desc
	Page      int
	PageSize  int
}

// AuditFilter narrows an audit log listing.
type AuditFilter struct {
	ActorType    string
	ActorID      string
	Action       string
	ResourceType string
	ResourceID   string
	Since        time.Time
	Until        time.Time
	Page         int
	PageSize     int
}

// TagCount is one entry of the tag or category index.
type TagCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// DocumentRepository defines data access for document metadata. Soft-deleted
// documents are excluded from every method except ListByFolderIDs, which
// feeds folder cascades and must rewrite locations of hidden documents too.
type DocumentRepository interface {
	// Create inserts a new document
	Create(ctx context.Context, doc *models.Document) error

	// GetByID retrieves a live document by ID
	GetByID(ctx context.Context, id string) (*models.Document, error)

	// Update persists changed document fields
	Update(ctx context.Context, doc *models.Document) error

	// SoftDelete marks a document deleted; the version chain is retained
	SoftDelete(ctx context.Context, id string, at time.Time) error

	// List returns one page of documents (content excluded) plus the total
	// match count
	List(ctx context.Context, filter *DocumentFilter) ([]models.Document, int, error)

	// Search returns all live documents matching the query, content included,
	// for ranking and snippet extraction
	Search(ctx context.Context, query string) ([]models.Document, error)

	// ListByFolderIDs returns every document (soft-deleted included) placed
	// directly in one of the given folders
	ListByFolderIDs(ctx context.Context, folderIDs []string) ([]models.Document, error)

	// UpdateLocation rewrites a document's placement after a folder cascade
	UpdateLocation(ctx context.Context, id string, folderID *string, filePath string, at time.Time) error

	// ListCategories returns distinct categories with live document counts
	ListCategories(ctx context.Context) ([]TagCount, error)

	// ListTags returns distinct tags with live document counts
	ListTags(ctx context.Context) ([]TagCount, error)
}
