package memory

import (
	"context"
	"fmt"
	"sort"

	"mdbrowse/internal/domain"
	"mdbrowse/internal/domain/models"
	"mdbrowse/internal/domain/repositories"
)

// FolderRepository implements repositories.FolderRepository over the
// in-memory store.
type FolderRepository struct {
	store *Store
}

// NewFolderRepository creates a new in-memory folder repository.
func NewFolderRepository(store *Store) repositories.FolderRepository {
	return &FolderRepository{store: store}
}

func cloneFolder(f *models.Folder) *models.Folder {
	clone := *f
	if f.ParentID != nil {
		id := *f.ParentID
		clone.ParentID = &id
	}
	return &clone
}

// Create inserts a new folder.
func (r *FolderRepository) Create(ctx context.Context, folder *models.Folder) error {
	defer r.store.wlock(ctx)()

	if _, exists := r.store.folders[folder.ID]; exists {
		return &domain.ConflictError{
			Message:      fmt.Sprintf("folder %s already exists", folder.ID),
			ResourceType: "folder",
			ResourceID:   folder.ID,
		}
	}
	r.store.folders[folder.ID] = cloneFolder(folder)
	return nil
}

// GetByID retrieves a folder by ID.
func (r *FolderRepository) GetByID(ctx context.Context, id string) (*models.Folder, error) {
	defer r.store.rlock(ctx)()

	folder, ok := r.store.folders[id]
	if !ok {
		return nil, fmt.Errorf("folder %s: %w", id, domain.ErrNotFound)
	}
	return cloneFolder(folder), nil
}

// Update persists changed folder fields.
func (r *FolderRepository) Update(ctx context.Context, folder *models.Folder) error {
	defer r.store.wlock(ctx)()

	if _, ok := r.store.folders[folder.ID]; !ok {
		return fmt.Errorf("folder %s: %w", folder.ID, domain.ErrNotFound)
	}
	r.store.folders[folder.ID] = cloneFolder(folder)
	return nil
}

// Delete removes a folder row.
func (r *FolderRepository) Delete(ctx context.Context, id string) error {
	defer r.store.wlock(ctx)()

	if _, ok := r.store.folders[id]; !ok {
		return fmt.Errorf("folder %s: %w", id, domain.ErrNotFound)
	}
	delete(r.store.folders, id)
	return nil
}

// ListChildren lists immediate child folders, parentID nil = root.
func (r *FolderRepository) ListChildren(ctx context.Context, parentID *string) ([]models.Folder, error) {
	defer r.store.rlock(ctx)()

	var results []models.Folder
	for _, folder := range r.store.folders {
		switch {
		case parentID == nil && folder.ParentID == nil:
			results = append(results, *cloneFolder(folder))
		case parentID != nil && folder.ParentID != nil && *folder.ParentID == *parentID:
			results = append(results, *cloneFolder(folder))
		}
	}
	sort.Slice(results, func(i, j int) bool { return results[i].Name < results[j].Name })
	return results, nil
}

// ListAll returns every folder as a flat list.
func (r *FolderRepository) ListAll(ctx context.Context) ([]models.Folder, error) {
	defer r.store.rlock(ctx)()

	results := make([]models.Folder, 0, len(r.store.folders))
	for _, folder := range r.store.folders {
		results = append(results, *cloneFolder(folder))
	}
	sort.Slice(results, func(i, j int) bool { return results[i].Name < results[j].Name })
	return results, nil
}
