package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"

	"mdbrowse/internal/auth"
	"mdbrowse/internal/chunk"
	"mdbrowse/internal/domain"
	"mdbrowse/internal/domain/models"
	"mdbrowse/internal/domain/repositories"
	"mdbrowse/internal/metrics"
	"mdbrowse/internal/render"
	"mdbrowse/internal/utils"
)

// MaxDocumentTitleLength bounds document titles.
const MaxDocumentTitleLength = 200

// CreateDocumentRequest is the input for document creation.
type CreateDocumentRequest struct {
	Title       string            `json:"title"`
	Content     string            `json:"content"`
	Description string            `json:"description,omitempty"`
	Category    string            `json:"category,omitempty"`
	Tags        []string          `json:"tags,omitempty"`
	Project     string            `json:"project,omitempty"`
	Visibility  models.Visibility `json:"visibility,omitempty"`
	FolderID    *string           `json:"folder_id,omitempty"`
}

// UpdateDocumentRequest is the partial-update input. Nil fields are left
// unchanged; FolderID uses the empty string to mean "move to root".
// Supplying Content appends a new version; metadata-only updates do not.
type UpdateDocumentRequest struct {
	Title       *string            `json:"title,omitempty"`
	Description *string            `json:"description,omitempty"`
	Category    *string            `json:"category,omitempty"`
	Tags        *[]string          `json:"tags,omitempty"`
	Project     *string            `json:"project,omitempty"`
	Visibility  *models.Visibility `json:"visibility,omitempty"`
	FolderID    *string            `json:"folder_id,omitempty"`
	Content     *string            `json:"content,omitempty"`
	ChangeNote  string             `json:"change_note,omitempty"`
}

// BatchResult is the per-item outcome of a batch operation. Batches are
// best-effort: one failing item never rolls back the others.
type BatchResult struct {
	ID    string `json:"id"`
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// SearchResult is one ranked search hit.
type SearchResult struct {
	Document models.Document `json:"document"`
	Score    int             `json:"score"`
	Snippet  string          `json:"snippet,omitempty"`
}

// ChunkSet is the chunking output for one document at its current version.
type ChunkSet struct {
	DocumentID string        `json:"document_id"`
	Checksum   string        `json:"checksum"`
	MaxTokens  int           `json:"max_tokens"`
	Chunks     []chunk.Chunk `json:"chunks"`
}

// DocumentService owns the document lifecycle: metadata, the append-only
// version chain, placement, search, and chunked retrieval. Placement
// changes always go through the folder service; version numbers only ever
// move forward.
type DocumentService struct {
	docRepo      repositories.DocumentRepository
	versionRepo  repositories.VersionRepository
	settingsRepo repositories.SettingsRepository
	folders      *FolderService
	txManager    repositories.TransactionManager
	renderer     *render.Renderer
	audit        *AuditService
	metrics      *metrics.Metrics
	logger       *slog.Logger
}

// NewDocumentService creates a new document service
func NewDocumentService(
	docRepo repositories.DocumentRepository,
	versionRepo repositories.VersionRepository,
	settingsRepo repositories.SettingsRepository,
	folders *FolderService,
	txManager repositories.TransactionManager,
	renderer *render.Renderer,
	audit *AuditService,
	m *metrics.Metrics,
	logger *slog.Logger,
) *DocumentService {
	return &DocumentService{
		docRepo:      docRepo,
		versionRepo:  versionRepo,
		settingsRepo: settingsRepo,
		folders:      folders,
		txManager:    txManager,
		renderer:     renderer,
		audit:        audit,
		metrics:      m,
		logger:       logger,
	}
}

// CreateDocument creates a document together with version 1 of its content.
func (s *DocumentService) CreateDocument(ctx context.Context, actor *auth.Actor, req *CreateDocumentRequest) (*models.Document, error) {
	if err := actor.Require(auth.ScopeDocumentsWrite); err != nil {
		return nil, err
	}
	if err := s.validateCreateRequest(req); err != nil {
		return nil, &domain.ValidationError{Message: err.Error()}
	}

	folderID := normalizeFolderRef(req.FolderID)
	dir, err := s.resolveFolderDir(ctx, folderID)
	if err != nil {
		return nil, err
	}

	visibility := req.Visibility
	if visibility == "" {
		if settings, err := s.settingsRepo.Get(ctx); err == nil {
			visibility = settings.DefaultVisibility
		} else {
			visibility = models.VisibilityTeam
		}
	}

	stats := AnalyzeContent(req.Content)
	now := time.Now().UTC()
	slug := utils.Slugify(req.Title)

	doc := &models.Document{
		ID:            uuid.NewString(),
		Title:         strings.TrimSpace(req.Title),
		Slug:          slug,
		Description:   req.Description,
		Category:      req.Category,
		Tags:          normalizeTags(req.Tags),
		Project:       req.Project,
		Visibility:    visibility,
		FolderID:      folderID,
		FilePath:      joinFilePath(dir, slug+".md"),
		Content:       req.Content,
		LatestVersion: 1,
		Checksum:      stats.Checksum,
		TokenCount:    stats.TokenCount,
		WordCount:     stats.WordCount,
		CreatedBy:     actor.ID,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	err = s.txManager.ExecTx(ctx, func(ctx context.Context) error {
		if err := s.docRepo.Create(ctx, doc); err != nil {
			return err
		}
		return s.appendVersion(ctx, doc.ID, 1, req.Content, "initial version", actor, now)
	})
	if err != nil {
		return nil, err
	}

	s.audit.Record(ctx, actor, ActionDocumentCreate, "document", doc.ID, map[string]any{
		"title":   doc.Title,
		"version": 1,
	})
	s.logger.Info("document created", "id", doc.ID, "title", doc.Title, "file_path", doc.FilePath)
	return doc, nil
}

// GetDocument retrieves a document, optionally with its current raw
// content and a rendered HTML form.
func (s *DocumentService) GetDocument(ctx context.Context, actor *auth.Actor, id string, includeRaw, includeRendered bool) (*models.Document, error) {
	if err := actor.Require(auth.ScopeDocumentsRead); err != nil {
		return nil, err
	}

	doc, err := s.docRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	// Content only ships when asked for, regardless of what the backing
	// store returned.
	doc.Content = ""

	if includeRaw || includeRendered {
		version, err := s.versionRepo.GetByNumber(ctx, doc.ID, doc.LatestVersion)
		if err != nil {
			return nil, fmt.Errorf("load current content: %w", err)
		}
		if includeRaw {
			doc.Content = version.Content
		}
		if includeRendered {
			html, err := s.renderer.HTML(version.Content)
			if err != nil {
				return nil, fmt.Errorf("render content: %w", err)
			}
			doc.RenderedHTML = html
		}
	}
	return doc, nil
}

// ListDocuments returns one page of documents plus the total match count.
func (s *DocumentService) ListDocuments(ctx context.Context, actor *auth.Actor, filter *repositories.DocumentFilter) ([]models.Document, int, error) {
	if err := actor.Require(auth.ScopeDocumentsRead); err != nil {
		return nil, 0, err
	}

	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 || filter.PageSize > 100 {
		filter.PageSize = 20
	}
	return s.docRepo.List(ctx, filter)
}

// UpdateDocument applies a partial update. New content appends a version
// and advances latest_version/checksum/token_count; metadata-only changes
// do not touch the version chain.
func (s *DocumentService) UpdateDocument(ctx context.Context, actor *auth.Actor, id string, req *UpdateDocumentRequest) (*models.Document, error) {
	if err := actor.Require(auth.ScopeDocumentsWrite); err != nil {
		return nil, err
	}
	if err := s.validateUpdateRequest(req); err != nil {
		return nil, &domain.ValidationError{Message: err.Error()}
	}

	var doc *models.Document
	var newVersion int
	err := s.txManager.ExecTx(ctx, func(ctx context.Context) error {
		var err error
		doc, err = s.docRepo.GetByID(ctx, id)
		if err != nil {
			return err
		}

		if req.Title != nil {
			doc.Title = strings.TrimSpace(*req.Title)
			doc.Slug = utils.Slugify(doc.Title)
		}
		if req.Description != nil {
			doc.Description = *req.Description
		}
		if req.Category != nil {
			doc.Category = *req.Category
		}
		if req.Tags != nil {
			doc.Tags = normalizeTags(*req.Tags)
		}
		if req.Project != nil {
			doc.Project = *req.Project
		}
		if req.Visibility != nil {
			doc.Visibility = *req.Visibility
		}
		if req.FolderID != nil {
			doc.FolderID = normalizeFolderRef(req.FolderID)
		}

		// Placement is re-derived whenever the folder or the slug changed.
		dir, err := s.resolveFolderDir(ctx, doc.FolderID)
		if err != nil {
			return err
		}
		doc.FilePath = joinFilePath(dir, doc.Slug+".md")

		now := time.Now().UTC()
		if req.Content != nil {
			newVersion = doc.LatestVersion + 1
			if err := s.appendVersion(ctx, doc.ID, newVersion, *req.Content, req.ChangeNote, actor, now); err != nil {
				return err
			}
			stats := AnalyzeContent(*req.Content)
			doc.LatestVersion = newVersion
			doc.Checksum = stats.Checksum
			doc.TokenCount = stats.TokenCount
			doc.WordCount = stats.WordCount
			doc.Content = *req.Content
		}
		doc.UpdatedAt = now
		return s.docRepo.Update(ctx, doc)
	})
	if err != nil {
		return nil, err
	}

	auditMeta := map[string]any{"title": doc.Title}
	if newVersion > 0 {
		auditMeta["new_version"] = newVersion
	}
	s.audit.Record(ctx, actor, ActionDocumentUpdate, "document", doc.ID, auditMeta)
	s.logger.Info("document updated", "id", doc.ID, "latest_version", doc.LatestVersion)
	return doc, nil
}

// DeleteDocument soft-deletes a document. The version chain is retained
// and stays readable through direct version lookups.
func (s *DocumentService) DeleteDocument(ctx context.Context, actor *auth.Actor, id string) error {
	if err := actor.Require(auth.ScopeDocumentsWrite); err != nil {
		return err
	}

	err := s.txManager.ExecTx(ctx, func(ctx context.Context) error {
		if _, err := s.docRepo.GetByID(ctx, id); err != nil {
			return err
		}
		return s.docRepo.SoftDelete(ctx, id, time.Now().UTC())
	})
	if err != nil {
		return err
	}

	s.audit.Record(ctx, actor, ActionDocumentDelete, "document", id, nil)
	s.logger.Info("document deleted", "id", id)
	return nil
}

// BatchDelete soft-deletes each document independently and reports
// per-item outcomes.
func (s *DocumentService) BatchDelete(ctx context.Context, actor *auth.Actor, ids []string) ([]BatchResult, error) {
	if err := actor.Require(auth.ScopeDocumentsWrite); err != nil {
		return nil, err
	}

	results := make([]BatchResult, 0, len(ids))
	for _, id := range ids {
		if err := s.DeleteDocument(ctx, actor, id); err != nil {
			results = append(results, BatchResult{ID: id, Error: err.Error()})
			continue
		}
		results = append(results, BatchResult{ID: id, OK: true})
	}
	return results, nil
}

// BatchMove relocates each document to the target folder independently
// and reports per-item outcomes. An empty or nil target moves to root.
func (s *DocumentService) BatchMove(ctx context.Context, actor *auth.Actor, ids []string, target *string) ([]BatchResult, error) {
	if err := actor.Require(auth.ScopeDocumentsWrite); err != nil {
		return nil, err
	}

	folderID := normalizeFolderRef(target)
	if _, err := s.resolveFolderDir(ctx, folderID); err != nil {
		return nil, err
	}

	folderField := ""
	if folderID != nil {
		folderField = *folderID
	}

	results := make([]BatchResult, 0, len(ids))
	for _, id := range ids {
		_, err := s.UpdateDocument(ctx, actor, id, &UpdateDocumentRequest{FolderID: &folderField})
		if err != nil {
			results = append(results, BatchResult{ID: id, Error: err.Error()})
			continue
		}
		results = append(results, BatchResult{ID: id, OK: true})
	}
	return results, nil
}

// ListVersions returns a document's full version chain, ascending,
// content excluded. Works for soft-deleted documents too - history stays
// reachable.
func (s *DocumentService) ListVersions(ctx context.Context, actor *auth.Actor, documentID string) ([]models.DocumentVersion, error) {
	if err := actor.Require(auth.ScopeVersionsRead); err != nil {
		return nil, err
	}

	versions, err := s.versionRepo.ListByDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if len(versions) == 0 {
		return nil, fmt.Errorf("document %s: %w", documentID, domain.ErrNotFound)
	}
	return versions, nil
}

// GetVersion retrieves one version of a document with its content.
func (s *DocumentService) GetVersion(ctx context.Context, actor *auth.Actor, documentID string, number int) (*models.DocumentVersion, error) {
	if err := actor.Require(auth.ScopeVersionsRead); err != nil {
		return nil, err
	}
	return s.versionRepo.GetByNumber(ctx, documentID, number)
}

// Rollback appends a new version whose content equals the target
// version's content. It never rewinds the chain: latest_version strictly
// increases, even when content repeats.
func (s *DocumentService) Rollback(ctx context.Context, actor *auth.Actor, id string, targetVersion int, changeNote string) (*models.Document, error) {
	if err := actor.Require(auth.ScopeDocumentsWrite); err != nil {
		return nil, err
	}
	if targetVersion < 1 {
		return nil, &domain.ValidationError{
			Message: "target_version must be a positive integer",
		}
	}

	var doc *models.Document
	err := s.txManager.ExecTx(ctx, func(ctx context.Context) error {
		var err error
		doc, err = s.docRepo.GetByID(ctx, id)
		if err != nil {
			return err
		}

		target, err := s.versionRepo.GetByNumber(ctx, id, targetVersion)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return &domain.ValidationError{
					Message: fmt.Sprintf("target_version %d does not exist", targetVersion),
					Hint:    fmt.Sprintf("valid versions are 1 through %d", doc.LatestVersion),
				}
			}
			return err
		}

		if changeNote == "" {
			changeNote = fmt.Sprintf("rollback to version %d", targetVersion)
		}

		now := time.Now().UTC()
		if err := s.appendVersion(ctx, doc.ID, doc.LatestVersion+1, target.Content, changeNote, actor, now); err != nil {
			return err
		}

		stats := AnalyzeContent(target.Content)
		doc.LatestVersion++
		doc.Checksum = stats.Checksum
		doc.TokenCount = stats.TokenCount
		doc.WordCount = stats.WordCount
		doc.UpdatedAt = now
		doc.Content = target.Content
		return s.docRepo.Update(ctx, doc)
	})
	if err != nil {
		return nil, err
	}

	s.audit.Record(ctx, actor, ActionDocumentRollback, "document", doc.ID, map[string]any{
		"target_version": targetVersion,
		"new_version":    doc.LatestVersion,
	})
	s.logger.Info("document rolled back", "id", doc.ID, "target_version", targetVersion, "new_version", doc.LatestVersion)
	return doc, nil
}

// Chunks splits the document's current content into token-budgeted,
// heading-tagged segments. The budget is clamped to the supported range.
func (s *DocumentService) Chunks(ctx context.Context, actor *auth.Actor, id string, maxTokens int) (*ChunkSet, error) {
	if err := actor.Require(auth.ScopeDocumentsRead); err != nil {
		return nil, err
	}

	doc, err := s.docRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	version, err := s.versionRepo.GetByNumber(ctx, doc.ID, doc.LatestVersion)
	if err != nil {
		return nil, fmt.Errorf("load current content: %w", err)
	}

	budget := chunk.ClampBudget(maxTokens)
	return &ChunkSet{
		DocumentID: doc.ID,
		Checksum:   doc.Checksum,
		MaxTokens:  budget,
		Chunks:     chunk.Split(version.Content, budget),
	}, nil
}

// Search returns documents ranked by match quality, each with a snippet
// around the first content match. Title hits rank above description hits,
// which rank above body hits.
func (s *DocumentService) Search(ctx context.Context, actor *auth.Actor, query string) ([]SearchResult, error) {
	if err := actor.Require(auth.ScopeSearchRead); err != nil {
		return nil, err
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, &domain.ValidationError{Message: "search query cannot be empty", Hint: "pass ?q=<term>"}
	}

	docs, err := s.docRepo.Search(ctx, query)
	if err != nil {
		return nil, err
	}

	needle := strings.ToLower(query)
	results := make([]SearchResult, 0, len(docs))
	for _, doc := range docs {
		score := 5*strings.Count(strings.ToLower(doc.Title), needle) +
			2*strings.Count(strings.ToLower(doc.Description), needle) +
			strings.Count(strings.ToLower(doc.Content), needle)
		if score == 0 {
			continue
		}
		snippet := extractSnippet(doc.Content, needle)
		doc.Content = "" // full bodies never leave the search path
		results = append(results, SearchResult{Document: doc, Score: score, Snippet: snippet})
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Document.ID < results[j].Document.ID
	})
	return results, nil
}

// ListCategories returns distinct categories with live document counts.
func (s *DocumentService) ListCategories(ctx context.Context, actor *auth.Actor) ([]repositories.TagCount, error) {
	if err := actor.Require(auth.ScopeDocumentsRead); err != nil {
		return nil, err
	}
	return s.docRepo.ListCategories(ctx)
}

// ListTags returns distinct tags with live document counts.
func (s *DocumentService) ListTags(ctx context.Context, actor *auth.Actor) ([]repositories.TagCount, error) {
	if err := actor.Require(auth.ScopeDocumentsRead); err != nil {
		return nil, err
	}
	return s.docRepo.ListTags(ctx)
}

// appendVersion writes one immutable version row and counts it. Version
// numbers are chosen by the caller as latest+1; the repository's
// uniqueness constraint turns a concurrent race into a conflict.
func (s *DocumentService) appendVersion(ctx context.Context, documentID string, number int, content, changeNote string, actor *auth.Actor, now time.Time) error {
	stats := AnalyzeContent(content)
	version := &models.DocumentVersion{
		ID:            uuid.NewString(),
		DocumentID:    documentID,
		VersionNumber: number,
		Content:       content,
		ChangeNote:    changeNote,
		Checksum:      stats.Checksum,
		CreatedBy:     actor.ID,
		CreatedAt:     now,
	}
	if err := s.versionRepo.Append(ctx, version); err != nil {
		return err
	}
	if s.metrics != nil {
		s.metrics.VersionsAppended.Inc()
	}
	return nil
}

func (s *DocumentService) resolveFolderDir(ctx context.Context, folderID *string) (string, error) {
	if folderID == nil {
		return "", nil
	}
	dir, err := s.folders.FolderPath(ctx, folderID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return "", &domain.ValidationError{
				Message: fmt.Sprintf("unknown folder %q", *folderID),
				Hint:    "create the folder first or omit folder_id",
			}
		}
		return "", err
	}
	return dir, nil
}

func (s *DocumentService) validateCreateRequest(req *CreateDocumentRequest) error {
	return validation.ValidateStruct(req,
		validation.Field(&req.Title, validation.Required, validation.Length(1, MaxDocumentTitleLength)),
		validation.Field(&req.Content, validation.Required),
		validation.Field(&req.Visibility, validation.By(validateVisibility)),
	)
}

func (s *DocumentService) validateUpdateRequest(req *UpdateDocumentRequest) error {
	if req.Title == nil && req.Description == nil && req.Category == nil &&
		req.Tags == nil && req.Project == nil && req.Visibility == nil &&
		req.FolderID == nil && req.Content == nil {
		return fmt.Errorf("at least one field must be provided")
	}

	var rules []*validation.FieldRules
	if req.Title != nil {
		rules = append(rules, validation.Field(&req.Title,
			validation.Required, validation.Length(1, MaxDocumentTitleLength)))
	}
	if req.Visibility != nil {
		rules = append(rules, validation.Field(&req.Visibility, validation.By(validateVisibility)))
	}
	if len(rules) == 0 {
		return nil
	}
	return validation.ValidateStruct(req, rules...)
}

func validateVisibility(value interface{}) error {
	var v models.Visibility
	switch t := value.(type) {
	case models.Visibility:
		v = t
	case *models.Visibility:
		if t == nil {
			return nil
		}
		v = *t
	default:
		return fmt.Errorf("invalid visibility")
	}
	if v == "" {
		return nil
	}
	if !models.ValidVisibility(v) {
		return fmt.Errorf("must be one of private, team, public")
	}
	return nil
}

// normalizeTags trims, drops empties and duplicates, preserves first-seen
// order.
func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]bool, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

// extractSnippet returns a short window of text around the first match of
// needle (already lowercased), or the leading text when the body doesn't
// contain it.
func extractSnippet(content, needle string) string {
	const window = 80

	idx := strings.Index(strings.ToLower(content), needle)
	if idx < 0 {
		if len(content) <= window*2 {
			return strings.TrimSpace(content)
		}
		return strings.TrimSpace(content[:window*2]) + "..."
	}

	start := idx - window
	if start < 0 {
		start = 0
	}
	end := idx + len(needle) + window
	if end > len(content) {
		end = len(content)
	}

	snippet := strings.TrimSpace(strings.ReplaceAll(content[start:end], "\n", " "))
	if start > 0 {
		snippet = "..." + snippet
	}
	if end < len(content) {
		snippet += "..."
	}
	return snippet
}
