package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"regexp"
	"sort"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"

	"mdbrowse/internal/auth"
	"mdbrowse/internal/domain"
	"mdbrowse/internal/domain/models"
	"mdbrowse/internal/domain/repositories"
	"mdbrowse/internal/utils"
)

// MaxFolderNameLength bounds folder display names.
const MaxFolderNameLength = 120

var folderNamePattern = regexp.MustCompile(`^[^/]+$`)

// CreateFolderRequest is the input for folder creation.
type CreateFolderRequest struct {
	Name     string  `json:"name"`
	ParentID *string `json:"parent_id,omitempty"` // nil or "" = root level
}

// UpdateFolderRequest is the input for rename and reparent. ParentID uses
// the empty string to mean "move to root"; nil leaves placement unchanged.
type UpdateFolderRequest struct {
	Name     *string `json:"name,omitempty"`
	ParentID *string `json:"parent_id,omitempty"`
}

// FolderService manages the placement hierarchy. Rename and reparent
// cascade to the materialized file path of every document transitively
// inside the folder; delete reparents contents to the deleted folder's
// former parent. All cascades run under the transaction manager so the
// read-then-write cycle cannot interleave with concurrent mutations.
type FolderService struct {
	folderRepo repositories.FolderRepository
	docRepo    repositories.DocumentRepository
	txManager  repositories.TransactionManager
	audit      *AuditService
	logger     *slog.Logger
}

// NewFolderService creates a new folder service
func NewFolderService(
	folderRepo repositories.FolderRepository,
	docRepo repositories.DocumentRepository,
	txManager repositories.TransactionManager,
	audit *AuditService,
	logger *slog.Logger,
) *FolderService {
	return &FolderService{
		folderRepo: folderRepo,
		docRepo:    docRepo,
		txManager:  txManager,
		audit:      audit,
		logger:     logger,
	}
}

// CreateFolder creates a folder under the given parent. The directory name
// is derived from the display name and made unique among siblings by a
// numeric suffix.
func (s *FolderService) CreateFolder(ctx context.Context, actor *auth.Actor, req *CreateFolderRequest) (*models.Folder, error) {
	if err := actor.Require(auth.ScopeDocumentsWrite); err != nil {
		return nil, err
	}
	if err := s.validateCreateRequest(req); err != nil {
		return nil, &domain.ValidationError{Message: err.Error()}
	}

	parentID := normalizeFolderRef(req.ParentID)
	if parentID != nil {
		if _, err := s.folderRepo.GetByID(ctx, *parentID); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, &domain.ValidationError{
					Message: fmt.Sprintf("unknown parent folder %q", *parentID),
					Hint:    "create the parent folder first or omit parent_id",
				}
			}
			return nil, err
		}
	}

	var folder *models.Folder
	err := s.txManager.ExecTx(ctx, func(ctx context.Context) error {
		siblings, err := s.folderRepo.ListChildren(ctx, parentID)
		if err != nil {
			return fmt.Errorf("list sibling folders: %w", err)
		}

		now := time.Now().UTC()
		folder = &models.Folder{
			ID:            uuid.NewString(),
			Name:          strings.TrimSpace(req.Name),
			DirectoryName: uniqueDirectoryName(siblings, utils.Slugify(req.Name), ""),
			ParentID:      parentID,
			CreatedBy:     actor.ID,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		return s.folderRepo.Create(ctx, folder)
	})
	if err != nil {
		return nil, err
	}

	if p, err := s.FolderPath(ctx, &folder.ID); err == nil {
		folder.Path = p
	}

	s.audit.Record(ctx, actor, ActionFolderCreate, "folder", folder.ID, map[string]any{
		"name": folder.Name,
		"path": folder.Path,
	})
	s.logger.Info("folder created", "id", folder.ID, "name", folder.Name, "path", folder.Path)
	return folder, nil
}

// GetFolder retrieves a folder with its computed display path.
func (s *FolderService) GetFolder(ctx context.Context, actor *auth.Actor, id string) (*models.Folder, error) {
	if err := actor.Require(auth.ScopeDocumentsRead); err != nil {
		return nil, err
	}

	folder, err := s.folderRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p, err := s.FolderPath(ctx, &folder.ID); err == nil {
		folder.Path = p
	}
	return folder, nil
}

// ListFolders returns every folder with computed paths, ordered by path.
func (s *FolderService) ListFolders(ctx context.Context, actor *auth.Actor) ([]models.Folder, error) {
	if err := actor.Require(auth.ScopeDocumentsRead); err != nil {
		return nil, err
	}

	folders, err := s.folderRepo.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]*models.Folder, len(folders))
	for i := range folders {
		byID[folders[i].ID] = &folders[i]
	}
	for i := range folders {
		folders[i].Path = pathFromMap(byID, folders[i].ID)
	}
	sort.Slice(folders, func(i, j int) bool { return folders[i].Path < folders[j].Path })
	return folders, nil
}

// UpdateFolder renames and/or reparents a folder. The new file path of
// every document transitively inside the folder is computed first as an
// explicit move plan, then applied under one transaction.
func (s *FolderService) UpdateFolder(ctx context.Context, actor *auth.Actor, id string, req *UpdateFolderRequest) (*models.Folder, error) {
	if err := actor.Require(auth.ScopeDocumentsWrite); err != nil {
		return nil, err
	}
	if err := s.validateUpdateRequest(req); err != nil {
		return nil, &domain.ValidationError{Message: err.Error()}
	}

	var folder *models.Folder
	var moved int
	err := s.txManager.ExecTx(ctx, func(ctx context.Context) error {
		all, err := s.folderRepo.ListAll(ctx)
		if err != nil {
			return fmt.Errorf("list folders: %w", err)
		}
		byID := make(map[string]*models.Folder, len(all))
		for i := range all {
			byID[all[i].ID] = &all[i]
		}

		folder = byID[id]
		if folder == nil {
			return fmt.Errorf("folder %s: %w", id, domain.ErrNotFound)
		}

		newParent := folder.ParentID
		if req.ParentID != nil {
			newParent = normalizeFolderRef(req.ParentID)
			if newParent != nil {
				if byID[*newParent] == nil {
					return &domain.ValidationError{
						Message: fmt.Sprintf("unknown parent folder %q", *newParent),
					}
				}
				if err := checkNoCycle(byID, id, *newParent); err != nil {
					return err
				}
			}
		}
		if req.Name != nil {
			folder.Name = strings.TrimSpace(*req.Name)
		}
		folder.ParentID = newParent
		folder.UpdatedAt = time.Now().UTC()

		// Directory name must stay unique among the (possibly new) siblings.
		siblings := siblingsOf(all, newParent)
		base := utils.Slugify(folder.Name)
		folder.DirectoryName = uniqueDirectoryName(siblings, base, folder.ID)

		plan, err := s.buildMovePlan(ctx, byID, subtreeIDs(byID, id), nil)
		if err != nil {
			return err
		}

		if err := s.folderRepo.Update(ctx, folder); err != nil {
			return err
		}
		if err := s.applyMovePlan(ctx, plan); err != nil {
			return err
		}
		moved = len(plan)
		return nil
	})
	if err != nil {
		return nil, err
	}

	if p, err := s.FolderPath(ctx, &folder.ID); err == nil {
		folder.Path = p
	}

	s.audit.Record(ctx, actor, ActionFolderUpdate, "folder", folder.ID, map[string]any{
		"name":            folder.Name,
		"path":            folder.Path,
		"documents_moved": moved,
	})
	s.logger.Info("folder updated", "id", folder.ID, "name", folder.Name, "path", folder.Path, "documents_moved", moved)
	return folder, nil
}

// DeleteFolder removes a folder and all descendant folders. Documents
// inside any removed folder are relocated to the deleted folder's former
// parent (or root). Returns the number of folders removed.
func (s *FolderService) DeleteFolder(ctx context.Context, actor *auth.Actor, id string) (int, error) {
	if err := actor.Require(auth.ScopeDocumentsWrite); err != nil {
		return 0, err
	}

	var removed int
	err := s.txManager.ExecTx(ctx, func(ctx context.Context) error {
		all, err := s.folderRepo.ListAll(ctx)
		if err != nil {
			return fmt.Errorf("list folders: %w", err)
		}
		byID := make(map[string]*models.Folder, len(all))
		for i := range all {
			byID[all[i].ID] = &all[i]
		}

		folder := byID[id]
		if folder == nil {
			return fmt.Errorf("folder %s: %w", id, domain.ErrNotFound)
		}

		subtree := subtreeIDs(byID, id)
		plan, err := s.buildMovePlan(ctx, byID, subtree, &moveTarget{folderID: folder.ParentID})
		if err != nil {
			return err
		}
		if err := s.applyMovePlan(ctx, plan); err != nil {
			return err
		}

		// Children before parents so each delete targets a leaf.
		for i := len(subtree) - 1; i >= 0; i-- {
			if err := s.folderRepo.Delete(ctx, subtree[i]); err != nil {
				return err
			}
		}
		removed = len(subtree)
		return nil
	})
	if err != nil {
		return 0, err
	}

	s.audit.Record(ctx, actor, ActionFolderDelete, "folder", id, map[string]any{
		"folders_removed": removed,
	})
	s.logger.Info("folder deleted", "id", id, "folders_removed", removed)
	return removed, nil
}

// FolderPath computes the display path of a folder by walking its parent
// chain. A nil id is the root ("").
func (s *FolderService) FolderPath(ctx context.Context, id *string) (string, error) {
	if id == nil {
		return "", nil
	}

	var segments []string
	seen := make(map[string]bool)
	current := *id
	for {
		if seen[current] {
			return "", fmt.Errorf("folder parent chain contains a cycle at %s", current)
		}
		seen[current] = true

		folder, err := s.folderRepo.GetByID(ctx, current)
		if err != nil {
			return "", err
		}
		segments = append([]string{folder.DirectoryName}, segments...)
		if folder.ParentID == nil {
			break
		}
		current = *folder.ParentID
	}
	return strings.Join(segments, "/"), nil
}

// moveTarget overrides the destination folder of a move plan (used by
// delete, which relocates documents out of the removed subtree).
type moveTarget struct {
	folderID *string
}

type plannedMove struct {
	documentID string
	folderID   *string
	filePath   string
}

// buildMovePlan lists every document directly inside one of the given
// folders (soft-deleted included) and computes its new location. With a
// nil target each document keeps its folder and only the materialized
// path changes; with a target all documents relocate there.
func (s *FolderService) buildMovePlan(ctx context.Context, byID map[string]*models.Folder, folderIDs []string, target *moveTarget) ([]plannedMove, error) {
	docs, err := s.docRepo.ListByFolderIDs(ctx, folderIDs)
	if err != nil {
		return nil, fmt.Errorf("list documents for move plan: %w", err)
	}

	plan := make([]plannedMove, 0, len(docs))
	for _, doc := range docs {
		folderID := doc.FolderID
		if target != nil {
			folderID = target.folderID
		}
		dir := ""
		if folderID != nil {
			dir = pathFromMap(byID, *folderID)
		}
		plan = append(plan, plannedMove{
			documentID: doc.ID,
			folderID:   folderID,
			filePath:   joinFilePath(dir, path.Base(doc.FilePath)),
		})
	}
	return plan, nil
}

func (s *FolderService) applyMovePlan(ctx context.Context, plan []plannedMove) error {
	now := time.Now().UTC()
	for _, m := range plan {
		if err := s.docRepo.UpdateLocation(ctx, m.documentID, m.folderID, m.filePath, now); err != nil {
			return fmt.Errorf("relocate document %s: %w", m.documentID, err)
		}
	}
	return nil
}

func (s *FolderService) validateCreateRequest(req *CreateFolderRequest) error {
	return validation.ValidateStruct(req,
		validation.Field(&req.Name,
			validation.Required,
			validation.Length(1, MaxFolderNameLength),
			validation.Match(folderNamePattern).Error("folder name cannot contain slashes"),
		),
	)
}

func (s *FolderService) validateUpdateRequest(req *UpdateFolderRequest) error {
	if req.Name == nil && req.ParentID == nil {
		return fmt.Errorf("at least one of name or parent_id must be provided")
	}
	if req.Name != nil {
		return validation.ValidateStruct(req,
			validation.Field(&req.Name,
				validation.Required,
				validation.Length(1, MaxFolderNameLength),
				validation.Match(folderNamePattern).Error("folder name cannot contain slashes"),
			),
		)
	}
	return nil
}

// checkNoCycle rejects reparenting id under itself or any of its
// descendants by walking the ancestor chain of the proposed parent.
func checkNoCycle(byID map[string]*models.Folder, id, newParentID string) error {
	current := newParentID
	for {
		if current == id {
			return &domain.ValidationError{
				Message: "cannot move a folder into itself or one of its descendants",
			}
		}
		folder := byID[current]
		if folder == nil || folder.ParentID == nil {
			return nil
		}
		current = *folder.ParentID
	}
}

// subtreeIDs returns id plus every descendant, parents before children.
func subtreeIDs(byID map[string]*models.Folder, id string) []string {
	children := make(map[string][]string)
	for _, f := range byID {
		if f.ParentID != nil {
			children[*f.ParentID] = append(children[*f.ParentID], f.ID)
		}
	}
	for _, c := range children {
		sort.Strings(c)
	}

	var out []string
	queue := []string{id}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		out = append(out, current)
		queue = append(queue, children[current]...)
	}
	return out
}

// pathFromMap computes a folder's path from an in-memory snapshot of all
// folders, so cascade planning doesn't re-query per segment.
func pathFromMap(byID map[string]*models.Folder, id string) string {
	var segments []string
	seen := make(map[string]bool)
	current := id
	for {
		folder := byID[current]
		if folder == nil || seen[current] {
			break
		}
		seen[current] = true
		segments = append([]string{folder.DirectoryName}, segments...)
		if folder.ParentID == nil {
			break
		}
		current = *folder.ParentID
	}
	return strings.Join(segments, "/")
}

// uniqueDirectoryName resolves sibling collisions with a numeric suffix:
// "notes", "notes-2", "notes-3", ...
func uniqueDirectoryName(siblings []models.Folder, base string, excludeID string) string {
	taken := make(map[string]bool, len(siblings))
	for _, f := range siblings {
		if f.ID != excludeID {
			taken[f.DirectoryName] = true
		}
	}
	if !taken[base] {
		return base
	}
	for i := 2; ; i++ {
		candidate := fmt.Sprintf("%s-%d", base, i)
		if !taken[candidate] {
			return candidate
		}
	}
}

func siblingsOf(all []models.Folder, parentID *string) []models.Folder {
	var out []models.Folder
	for _, f := range all {
		if equalFolderRef(f.ParentID, parentID) {
			out = append(out, f)
		}
	}
	return out
}

func equalFolderRef(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// normalizeFolderRef maps the empty string to nil so "" and null both mean
// the root level.
func normalizeFolderRef(id *string) *string {
	if id == nil || *id == "" {
		return nil
	}
	return id
}

func joinFilePath(dir, filename string) string {
	if dir == "" {
		return filename
	}
	return dir + "/" + filename
}
