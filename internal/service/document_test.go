package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"mdbrowse/internal/auth"
	"mdbrowse/internal/domain"
	"mdbrowse/internal/domain/repositories"
	"mdbrowse/internal/utils"
)

func TestCreateDocument(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	actor := adminActor()

	content := "# Getting Started\n\nWelcome to the docs.\n"
	doc, err := env.docs.CreateDocument(ctx, actor, &CreateDocumentRequest{
		Title:   "Getting Started",
		Content: content,
		Tags:    []string{"intro", "intro", " setup "},
	})
	if err != nil {
		t.Fatalf("create document: %v", err)
	}

	if doc.LatestVersion != 1 {
		t.Errorf("latest_version = %d, want 1", doc.LatestVersion)
	}
	if doc.Slug != "getting-started" {
		t.Errorf("slug = %q, want getting-started", doc.Slug)
	}
	if doc.FilePath != "getting-started.md" {
		t.Errorf("file_path = %q, want getting-started.md", doc.FilePath)
	}
	if doc.Checksum != utils.Checksum(content) {
		t.Errorf("checksum does not match content")
	}
	if doc.TokenCount != utils.EstimateTokens(content) {
		t.Errorf("token_count = %d, want %d", doc.TokenCount, utils.EstimateTokens(content))
	}
	if doc.WordCount != utils.CountWords(content) {
		t.Errorf("word_count = %d, want %d", doc.WordCount, utils.CountWords(content))
	}
	if len(doc.Tags) != 2 {
		t.Errorf("tags = %v, want duplicates and whitespace normalized away", doc.Tags)
	}
	if doc.Visibility == "" {
		t.Error("visibility should default when omitted")
	}

	versions, err := env.docs.ListVersions(ctx, actor, doc.ID)
	if err != nil {
		t.Fatalf("list versions: %v", err)
	}
	if len(versions) != 1 || versions[0].VersionNumber != 1 {
		t.Errorf("expected exactly version 1 in the chain, got %+v", versions)
	}

	if got := env.auditEntries(t, ActionDocumentCreate); len(got) != 1 {
		t.Errorf("expected 1 audit entry for document.create, got %d", len(got))
	}
}

func TestCreateDocumentValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	actor := adminActor()

	tests := []struct {
		name string
		req  *CreateDocumentRequest
	}{
		{name: "missing title", req: &CreateDocumentRequest{Content: "body"}},
		{name: "missing content", req: &CreateDocumentRequest{Title: "Doc"}},
		{name: "title too long", req: &CreateDocumentRequest{Title: strings.Repeat("x", MaxDocumentTitleLength+1), Content: "body"}},
		{name: "bad visibility", req: &CreateDocumentRequest{Title: "Doc", Content: "body", Visibility: "everyone"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.docs.CreateDocument(ctx, actor, tt.req)
			var verr *domain.ValidationError
			if !errors.As(err, &verr) {
				t.Errorf("expected validation error, got %v", err)
			}
		})
	}

	t.Run("unknown folder", func(t *testing.T) {
		missing := "0b8f4f5e-0000-0000-0000-000000000000"
		_, err := env.docs.CreateDocument(ctx, actor, &CreateDocumentRequest{
			Title: "Doc", Content: "body", FolderID: &missing,
		})
		if err == nil {
			t.Error("expected error for unknown folder")
		}
	})
}

func TestCreateDocumentInFolder(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	actor := adminActor()

	folder, err := env.folders.CreateFolder(ctx, actor, &CreateFolderRequest{Name: "Guides"})
	if err != nil {
		t.Fatalf("create folder: %v", err)
	}

	doc, err := env.docs.CreateDocument(ctx, actor, &CreateDocumentRequest{
		Title: "Setup", Content: "body", FolderID: &folder.ID,
	})
	if err != nil {
		t.Fatalf("create document: %v", err)
	}
	if doc.FilePath != "guides/setup.md" {
		t.Errorf("file_path = %q, want guides/setup.md", doc.FilePath)
	}
}

func TestUpdateDocumentContentAppendsVersion(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	actor := adminActor()

	doc, err := env.docs.CreateDocument(ctx, actor, &CreateDocumentRequest{Title: "Doc", Content: "first"})
	if err != nil {
		t.Fatalf("create document: %v", err)
	}
	firstChecksum := doc.Checksum

	second := "second draft"
	updated, err := env.docs.UpdateDocument(ctx, actor, doc.ID, &UpdateDocumentRequest{
		Content: &second, ChangeNote: "rewrote the draft",
	})
	if err != nil {
		t.Fatalf("update document: %v", err)
	}

	if updated.LatestVersion != 2 {
		t.Errorf("latest_version = %d, want 2", updated.LatestVersion)
	}
	if updated.Checksum == firstChecksum {
		t.Error("checksum should change with new content")
	}

	versions, err := env.docs.ListVersions(ctx, actor, doc.ID)
	if err != nil {
		t.Fatalf("list versions: %v", err)
	}
	if len(versions) != 2 {
		t.Fatalf("expected 2 versions, got %d", len(versions))
	}
	for i, v := range versions {
		if v.VersionNumber != i+1 {
			t.Errorf("version chain not ascending: position %d has number %d", i, v.VersionNumber)
		}
	}
	if versions[1].ChangeNote != "rewrote the draft" {
		t.Errorf("change_note = %q", versions[1].ChangeNote)
	}

	// Earlier versions stay byte-addressable
	v1, err := env.docs.GetVersion(ctx, actor, doc.ID, 1)
	if err != nil {
		t.Fatalf("get version 1: %v", err)
	}
	if v1.Content != "first" {
		t.Errorf("version 1 content = %q, want original", v1.Content)
	}
}

func TestUpdateDocumentMetadataOnly(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	actor := adminActor()

	doc, err := env.docs.CreateDocument(ctx, actor, &CreateDocumentRequest{Title: "Doc", Content: "body"})
	if err != nil {
		t.Fatalf("create document: %v", err)
	}

	desc := "a better description"
	updated, err := env.docs.UpdateDocument(ctx, actor, doc.ID, &UpdateDocumentRequest{Description: &desc})
	if err != nil {
		t.Fatalf("update document: %v", err)
	}
	if updated.LatestVersion != 1 {
		t.Errorf("metadata-only update advanced the version to %d", updated.LatestVersion)
	}
	if updated.Description != desc {
		t.Errorf("description = %q", updated.Description)
	}

	versions, _ := env.docs.ListVersions(ctx, actor, doc.ID)
	if len(versions) != 1 {
		t.Errorf("metadata-only update appended a version: chain length %d", len(versions))
	}
}

func TestUpdateDocumentTitleRecomputesPath(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	actor := adminActor()

	doc, err := env.docs.CreateDocument(ctx, actor, &CreateDocumentRequest{Title: "Old Title", Content: "body"})
	if err != nil {
		t.Fatalf("create document: %v", err)
	}

	title := "New Title"
	updated, err := env.docs.UpdateDocument(ctx, actor, doc.ID, &UpdateDocumentRequest{Title: &title})
	if err != nil {
		t.Fatalf("update document: %v", err)
	}
	if updated.Slug != "new-title" || updated.FilePath != "new-title.md" {
		t.Errorf("slug/file_path = %q/%q, want new-title/new-title.md", updated.Slug, updated.FilePath)
	}
}

func TestRollback(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	actor := adminActor()

	doc, err := env.docs.CreateDocument(ctx, actor, &CreateDocumentRequest{Title: "Doc", Content: "version one"})
	if err != nil {
		t.Fatalf("create document: %v", err)
	}
	for _, content := range []string{"version two", "version three"} {
		c := content
		if _, err := env.docs.UpdateDocument(ctx, actor, doc.ID, &UpdateDocumentRequest{Content: &c}); err != nil {
			t.Fatalf("update document: %v", err)
		}
	}

	rolled, err := env.docs.Rollback(ctx, actor, doc.ID, 1, "")
	if err != nil {
		t.Fatalf("rollback: %v", err)
	}

	// Rolling back appends; it never rewinds
	if rolled.LatestVersion != 4 {
		t.Errorf("latest_version after rollback = %d, want 4", rolled.LatestVersion)
	}
	if rolled.Checksum != utils.Checksum("version one") {
		t.Error("rollback checksum should match the target version's content")
	}

	v4, err := env.docs.GetVersion(ctx, actor, doc.ID, 4)
	if err != nil {
		t.Fatalf("get version 4: %v", err)
	}
	if v4.Content != "version one" {
		t.Errorf("version 4 content = %q, want the target's content", v4.Content)
	}
	if v4.ChangeNote != "rollback to version 1" {
		t.Errorf("default change note = %q", v4.ChangeNote)
	}

	// The intermediate versions survive
	if versions, _ := env.docs.ListVersions(ctx, actor, doc.ID); len(versions) != 4 {
		t.Errorf("version chain length = %d, want 4", len(versions))
	}
}

func TestRollbackInvalidTarget(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	actor := adminActor()

	doc, err := env.docs.CreateDocument(ctx, actor, &CreateDocumentRequest{Title: "Doc", Content: "body"})
	if err != nil {
		t.Fatalf("create document: %v", err)
	}

	for _, target := range []int{0, -1, 7} {
		_, err := env.docs.Rollback(ctx, actor, doc.ID, target, "")
		var verr *domain.ValidationError
		if !errors.As(err, &verr) {
			t.Errorf("rollback to %d: expected validation error, got %v", target, err)
		}
	}
}

func TestDeleteDocumentKeepsHistory(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	actor := adminActor()

	doc, err := env.docs.CreateDocument(ctx, actor, &CreateDocumentRequest{Title: "Doc", Content: "body"})
	if err != nil {
		t.Fatalf("create document: %v", err)
	}

	if err := env.docs.DeleteDocument(ctx, actor, doc.ID); err != nil {
		t.Fatalf("delete document: %v", err)
	}

	if _, err := env.docs.GetDocument(ctx, actor, doc.ID, false, false); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("deleted document should be not_found, got %v", err)
	}
	// Deleting again is not_found, not a silent success
	if err := env.docs.DeleteDocument(ctx, actor, doc.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("double delete should be not_found, got %v", err)
	}

	// History stays readable after soft delete
	if _, err := env.docs.ListVersions(ctx, actor, doc.ID); err != nil {
		t.Errorf("versions of a deleted document should stay readable: %v", err)
	}
	if _, err := env.docs.GetVersion(ctx, actor, doc.ID, 1); err != nil {
		t.Errorf("version content of a deleted document should stay readable: %v", err)
	}
}

func TestBatchDelete(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	actor := adminActor()

	a, _ := env.docs.CreateDocument(ctx, actor, &CreateDocumentRequest{Title: "A", Content: "body"})
	b, _ := env.docs.CreateDocument(ctx, actor, &CreateDocumentRequest{Title: "B", Content: "body"})

	results, err := env.docs.BatchDelete(ctx, actor, []string{a.ID, "missing-id", b.ID})
	if err != nil {
		t.Fatalf("batch delete: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	if !results[0].OK || results[1].OK || !results[2].OK {
		t.Errorf("unexpected outcomes: %+v", results)
	}
	if results[1].Error == "" {
		t.Error("failed item should carry an error message")
	}
}

func TestBatchMove(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	actor := adminActor()

	folder, _ := env.folders.CreateFolder(ctx, actor, &CreateFolderRequest{Name: "Archive"})
	a, _ := env.docs.CreateDocument(ctx, actor, &CreateDocumentRequest{Title: "A", Content: "body"})

	results, err := env.docs.BatchMove(ctx, actor, []string{a.ID}, &folder.ID)
	if err != nil {
		t.Fatalf("batch move: %v", err)
	}
	if !results[0].OK {
		t.Fatalf("move failed: %s", results[0].Error)
	}

	moved, _ := env.docs.GetDocument(ctx, actor, a.ID, false, false)
	if moved.FilePath != "archive/a.md" {
		t.Errorf("file_path = %q, want archive/a.md", moved.FilePath)
	}

	// Unknown target folder fails the whole batch up front
	missing := "no-such-folder"
	if _, err := env.docs.BatchMove(ctx, actor, []string{a.ID}, &missing); err == nil {
		t.Error("expected error for unknown target folder")
	}
}

func TestListDocumentsPagination(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	actor := adminActor()

	for _, title := range []string{"Alpha", "Beta", "Gamma"} {
		if _, err := env.docs.CreateDocument(ctx, actor, &CreateDocumentRequest{Title: title, Content: "body", Category: "ops"}); err != nil {
			t.Fatalf("create document: %v", err)
		}
	}

	page, total, err := env.docs.ListDocuments(ctx, actor, &repositories.DocumentFilter{
		Page: 1, PageSize: 2, SortBy: "title", SortOrder: "asc",
	})
	if err != nil {
		t.Fatalf("list documents: %v", err)
	}
	if total != 3 || len(page) != 2 {
		t.Errorf("total=%d len=%d, want 3/2", total, len(page))
	}
	if page[0].Title != "Alpha" || page[1].Title != "Beta" {
		t.Errorf("unexpected page order: %q, %q", page[0].Title, page[1].Title)
	}

	page, total, err = env.docs.ListDocuments(ctx, actor, &repositories.DocumentFilter{
		Page: 2, PageSize: 2, SortBy: "title", SortOrder: "asc",
	})
	if err != nil {
		t.Fatalf("list documents page 2: %v", err)
	}
	if total != 3 || len(page) != 1 || page[0].Title != "Gamma" {
		t.Errorf("unexpected second page: total=%d %+v", total, page)
	}

	// Category filter
	_, total, _ = env.docs.ListDocuments(ctx, actor, &repositories.DocumentFilter{Category: "none"})
	if total != 0 {
		t.Errorf("category filter matched %d, want 0", total)
	}
}

func TestSearchRanking(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	actor := adminActor()

	titleHit, _ := env.docs.CreateDocument(ctx, actor, &CreateDocumentRequest{
		Title: "Postgres Tuning", Content: "notes about indexes",
	})
	bodyHit, _ := env.docs.CreateDocument(ctx, actor, &CreateDocumentRequest{
		Title: "Misc Notes", Content: "we migrated to postgres last year and postgres behaved well",
	})
	if _, err := env.docs.CreateDocument(ctx, actor, &CreateDocumentRequest{Title: "Unrelated", Content: "nothing here"}); err != nil {
		t.Fatalf("create document: %v", err)
	}

	results, err := env.docs.Search(ctx, actor, "postgres")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 hits, got %d", len(results))
	}

	// Title matches outrank body matches
	if results[0].Document.ID != titleHit.ID || results[1].Document.ID != bodyHit.ID {
		t.Errorf("ranking wrong: got %q before %q", results[0].Document.Title, results[1].Document.Title)
	}
	if results[0].Score <= results[1].Score {
		t.Errorf("scores not descending: %d then %d", results[0].Score, results[1].Score)
	}

	// Bodies never leave the search path; the snippet carries the context
	for _, r := range results {
		if r.Document.Content != "" {
			t.Error("search result leaked full document content")
		}
	}
	if !strings.Contains(strings.ToLower(results[1].Snippet), "postgres") {
		t.Errorf("snippet %q should contain the match", results[1].Snippet)
	}

	// Empty queries are rejected
	if _, err := env.docs.Search(ctx, actor, "   "); err == nil {
		t.Error("expected validation error for blank query")
	}
}

func TestChunksBudgetClamped(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	actor := adminActor()

	doc, err := env.docs.CreateDocument(ctx, actor, &CreateDocumentRequest{
		Title: "Doc", Content: "# Heading\n\nsome body text\n",
	})
	if err != nil {
		t.Fatalf("create document: %v", err)
	}

	set, err := env.docs.Chunks(ctx, actor, doc.ID, 1)
	if err != nil {
		t.Fatalf("chunks: %v", err)
	}
	if set.MaxTokens != 128 {
		t.Errorf("budget = %d, want clamped to 128", set.MaxTokens)
	}
	if set.Checksum != doc.Checksum {
		t.Error("chunk set checksum should match the document")
	}
	if len(set.Chunks) == 0 {
		t.Error("expected at least one chunk")
	}
}

func TestAgentScopeEnforcement(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	doc, err := env.docs.CreateDocument(ctx, adminActor(), &CreateDocumentRequest{Title: "Doc", Content: "body"})
	if err != nil {
		t.Fatalf("create document: %v", err)
	}

	reader := agentActor(auth.ScopeDocumentsRead)

	// Read works with documents:read
	if _, err := env.docs.GetDocument(ctx, reader, doc.ID, false, false); err != nil {
		t.Errorf("read with documents:read should pass: %v", err)
	}

	// Writes need documents:write
	_, err = env.docs.CreateDocument(ctx, reader, &CreateDocumentRequest{Title: "Nope", Content: "body"})
	if !errors.Is(err, domain.ErrForbidden) {
		t.Errorf("create without documents:write should be forbidden, got %v", err)
	}

	// Version reads need versions:read, which documents:read does not imply
	if _, err := env.docs.ListVersions(ctx, reader, doc.ID); !errors.Is(err, domain.ErrForbidden) {
		t.Errorf("version list without versions:read should be forbidden, got %v", err)
	}
	if _, err := env.docs.ListVersions(ctx, agentActor(auth.ScopeVersionsRead), doc.ID); err != nil {
		t.Errorf("version list with versions:read should pass: %v", err)
	}

	// Search needs its own scope
	if _, err := env.docs.Search(ctx, reader, "doc"); !errors.Is(err, domain.ErrForbidden) {
		t.Errorf("search without search:read should be forbidden, got %v", err)
	}

	// No credential at all is unauthorized, not forbidden
	if _, err := env.docs.GetDocument(ctx, nil, doc.ID, false, false); !errors.Is(err, domain.ErrUnauthorized) {
		t.Errorf("nil actor should be unauthorized, got %v", err)
	}
}
