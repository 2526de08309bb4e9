package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"mdbrowse/internal/domain"
	"mdbrowse/internal/domain/models"
	"mdbrowse/internal/domain/repositories"
)

// DocumentRepository implements repositories.DocumentRepository over the
// in-memory store.
type DocumentRepository struct {
	store *Store
}

// NewDocumentRepository creates a new in-memory document repository.
func NewDocumentRepository(store *Store) repositories.DocumentRepository {
	return &DocumentRepository{store: store}
}

func cloneDocument(doc *models.Document) *models.Document {
	clone := *doc
	clone.Tags = append([]string(nil), doc.Tags...)
	if doc.FolderID != nil {
		id := *doc.FolderID
		clone.FolderID = &id
	}
	if doc.DeletedAt != nil {
		at := *doc.DeletedAt
		clone.DeletedAt = &at
	}
	return &clone
}

// Create inserts a new document.
func (r *DocumentRepository) Create(ctx context.Context, doc *models.Document) error {
	defer r.store.wlock(ctx)()

	if _, exists := r.store.documents[doc.ID]; exists {
		return &domain.ConflictError{
			Message:      fmt.Sprintf("document %s already exists", doc.ID),
			ResourceType: "document",
			ResourceID:   doc.ID,
		}
	}
	r.store.documents[doc.ID] = cloneDocument(doc)
	return nil
}

// GetByID retrieves a live document by ID.
func (r *DocumentRepository) GetByID(ctx context.Context, id string) (*models.Document, error) {
	defer r.store.rlock(ctx)()

	doc, ok := r.store.documents[id]
	if !ok || doc.DeletedAt != nil {
		return nil, fmt.Errorf("document %s: %w", id, domain.ErrNotFound)
	}
	return cloneDocument(doc), nil
}

// Update persists changed document fields.
func (r *DocumentRepository) Update(ctx context.Context, doc *models.Document) error {
	defer r.store.wlock(ctx)()

	if _, ok := r.store.documents[doc.ID]; !ok {
		return fmt.Errorf("document %s: %w", doc.ID, domain.ErrNotFound)
	}
	r.store.documents[doc.ID] = cloneDocument(doc)
	return nil
}

// SoftDelete marks a document deleted.
func (r *DocumentRepository) SoftDelete(ctx context.Context, id string, at time.Time) error {
	defer r.store.wlock(ctx)()

	doc, ok := r.store.documents[id]
	if !ok || doc.DeletedAt != nil {
		return fmt.Errorf("document %s: %w", id, domain.ErrNotFound)
	}
	deletedAt := at
	doc.DeletedAt = &deletedAt
	doc.UpdatedAt = at
	return nil
}

// List returns one page of live documents plus the total match count.
func (r *DocumentRepository) List(ctx context.Context, filter *repositories.DocumentFilter) ([]models.Document, int, error) {
	defer r.store.rlock(ctx)()

	var matched []*models.Document
	for _, doc := range r.store.documents {
		if doc.DeletedAt != nil || !matchesFilter(doc, filter) {
			continue
		}
		matched = append(matched, doc)
	}

	sortDocuments(matched, filter.SortBy, filter.SortOrder)
	total := len(matched)

	start := (filter.Page - 1) * filter.PageSize
	if start > total {
		start = total
	}
	end := start + filter.PageSize
	if end > total {
		end = total
	}

	page := make([]models.Document, 0, end-start)
	for _, doc := range matched[start:end] {
		clone := cloneDocument(doc)
		clone.Content = ""
		page = append(page, *clone)
	}
	return page, total, nil
}

// Search returns all live documents matching the query, content included.
func (r *DocumentRepository) Search(ctx context.Context, query string) ([]models.Document, error) {
	defer r.store.rlock(ctx)()

	needle := strings.ToLower(query)
	var matched []*models.Document
	for _, doc := range r.store.documents {
		if doc.DeletedAt != nil {
			continue
		}
		if strings.Contains(strings.ToLower(doc.Title), needle) ||
			strings.Contains(strings.ToLower(doc.Content), needle) ||
			strings.Contains(strings.ToLower(doc.Description), needle) {
			matched = append(matched, doc)
		}
	}

	sortDocuments(matched, "updated_at", "desc")

	results := make([]models.Document, 0, len(matched))
	for _, doc := range matched {
		results = append(results, *cloneDocument(doc))
	}
	return results, nil
}

// ListByFolderIDs returns every document placed directly in one of the
// given folders, soft-deleted included (cascades must rewrite their
// locations too).
func (r *DocumentRepository) ListByFolderIDs(ctx context.Context, folderIDs []string) ([]models.Document, error) {
	defer r.store.rlock(ctx)()

	wanted := make(map[string]bool, len(folderIDs))
	for _, id := range folderIDs {
		wanted[id] = true
	}

	var results []models.Document
	for _, doc := range r.store.documents {
		if doc.FolderID != nil && wanted[*doc.FolderID] {
			results = append(results, *cloneDocument(doc))
		}
	}
	sort.Slice(results, func(i, j int) bool { return results[i].ID < results[j].ID })
	return results, nil
}

// UpdateLocation rewrites a document's placement after a folder cascade.
func (r *DocumentRepository) UpdateLocation(ctx context.Context, id string, folderID *string, filePath string, at time.Time) error {
	defer r.store.wlock(ctx)()

	doc, ok := r.store.documents[id]
	if !ok {
		return fmt.Errorf("document %s: %w", id, domain.ErrNotFound)
	}
	if folderID != nil {
		fid := *folderID
		doc.FolderID = &fid
	} else {
		doc.FolderID = nil
	}
	doc.FilePath = filePath
	doc.UpdatedAt = at
	return nil
}

// ListCategories returns distinct categories with live document counts.
func (r *DocumentRepository) ListCategories(ctx context.Context) ([]repositories.TagCount, error) {
	defer r.store.rlock(ctx)()

	counts := make(map[string]int)
	for _, doc := range r.store.documents {
		if doc.DeletedAt == nil && doc.Category != "" {
			counts[doc.Category]++
		}
	}
	return sortedCounts(counts), nil
}

// ListTags returns distinct tags with live document counts.
func (r *DocumentRepository) ListTags(ctx context.Context) ([]repositories.TagCount, error) {
	defer r.store.rlock(ctx)()

	counts := make(map[string]int)
	for _, doc := range r.store.documents {
		if doc.DeletedAt != nil {
			continue
		}
		for _, tag := range doc.Tags {
			counts[tag]++
		}
	}
	return sortedCounts(counts), nil
}

func sortedCounts(counts map[string]int) []repositories.TagCount {
	results := make([]repositories.TagCount, 0, len(counts))
	for name, count := range counts {
		results = append(results, repositories.TagCount{Name: name, Count: count})
	}
	sort.Slice(results, func(i, j int) bool { return results[i].Name < results[j].Name })
	return results
}

func matchesFilter(doc *models.Document, filter *repositories.DocumentFilter) bool {
	if filter.Project != "" && doc.Project != filter.Project {
		return false
	}
	if filter.Category != "" && doc.Category != filter.Category {
		return false
	}
	if filter.Tag != "" {
		found := false
		for _, tag := range doc.Tags {
			if tag == filter.Tag {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if filter.FolderID != nil {
		if *filter.FolderID == "" {
			if doc.FolderID != nil {
				return false
			}
		} else if doc.FolderID == nil || *doc.FolderID != *filter.FolderID {
			return false
		}
	}
	if filter.Query != "" {
		needle := strings.ToLower(filter.Query)
		haystack := strings.ToLower(doc.Title + " " + doc.Description + " " + strings.Join(doc.Tags, " "))
		if !strings.Contains(haystack, needle) {
			return false
		}
	}
	return true
}

// sortDocuments applies a stable total order: the sort field, then id as
// tiebreak, so pagination is reproducible.
func sortDocuments(docs []*models.Document, sortBy, sortOrder string) {
	desc := sortOrder != "asc"
	sort.Slice(docs, func(i, j int) bool {
		a, b := docs[i], docs[j]
		var less, equal bool
		switch sortBy {
		case "title":
			less, equal = a.Title < b.Title, a.Title == b.Title
		case "created_at":
			less, equal = a.CreatedAt.Before(b.CreatedAt), a.CreatedAt.Equal(b.CreatedAt)
		default: // updated_at
			less, equal = a.UpdatedAt.Before(b.UpdatedAt), a.UpdatedAt.Equal(b.UpdatedAt)
		}
		if equal {
			return a.ID < b.ID
		}
		if desc {
			return !less
		}
		return less
	})
}
