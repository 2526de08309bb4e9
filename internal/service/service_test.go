package service

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"mdbrowse/internal/auth"
	"mdbrowse/internal/domain/models"
	"mdbrowse/internal/domain/repositories"
	"mdbrowse/internal/metrics"
	"mdbrowse/internal/render"
	"mdbrowse/internal/repository/memory"
)

// testEnv wires the full service stack over the in-memory store, the same
// way the server does at startup.
type testEnv struct {
	store *memory.Store

	docRepo   repositories.DocumentRepository
	auditRepo repositories.AuditRepository
	tokenRepo repositories.AgentTokenRepository

	audit    *AuditService
	idem     *IdempotencyService
	folders  *FolderService
	docs     *DocumentService
	shares   *ShareService
	tokens   *AgentTokenService
	users    *UserService
	settings *SettingsService
	sessions *auth.SessionManager
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	m := metrics.New(prometheus.NewRegistry())

	store := memory.NewStore()
	docRepo := memory.NewDocumentRepository(store)
	versionRepo := memory.NewVersionRepository(store)
	folderRepo := memory.NewFolderRepository(store)
	userRepo := memory.NewUserRepository(store)
	settingsRepo := memory.NewSettingsRepository(store)
	tokenRepo := memory.NewAgentTokenRepository(store)
	auditRepo := memory.NewAuditRepository(store)
	idemRepo := memory.NewIdempotencyRepository(store)
	shareRepo := memory.NewShareRepository(store)

	sessions, err := auth.NewSessionManager("test-secret", time.Hour, logger)
	if err != nil {
		t.Fatalf("session manager: %v", err)
	}

	renderer := render.New()
	audit := NewAuditService(auditRepo, m, logger)
	folders := NewFolderService(folderRepo, docRepo, store, audit, logger)
	docs := NewDocumentService(docRepo, versionRepo, settingsRepo, folders, store, renderer, audit, m, logger)

	return &testEnv{
		store:     store,
		docRepo:   docRepo,
		auditRepo: auditRepo,
		tokenRepo: tokenRepo,
		audit:     audit,
		idem:      NewIdempotencyService(idemRepo, time.Hour, m, logger),
		folders:   folders,
		docs:      docs,
		shares:    NewShareService(shareRepo, docRepo, versionRepo, renderer, audit, logger),
		tokens:    NewAgentTokenService(tokenRepo, audit, logger),
		users:     NewUserService(userRepo, sessions, audit, logger),
		settings:  NewSettingsService(settingsRepo, audit, logger),
		sessions:  sessions,
	}
}

func adminActor() *auth.Actor {
	return &auth.Actor{Type: models.ActorUser, ID: "user-1", Username: "admin", Role: models.RoleAdmin}
}

func editorActor() *auth.Actor {
	return &auth.Actor{Type: models.ActorUser, ID: "user-2", Username: "editor", Role: models.RoleEditor}
}

func agentActor(scopes ...auth.Scope) *auth.Actor {
	return &auth.Actor{Type: models.ActorAgent, ID: "agent-1", Role: "agent", Scopes: scopes}
}

// auditEntries returns all audit entries for one action, newest first.
func (e *testEnv) auditEntries(t *testing.T, action string) []models.AuditLogEntry {
	t.Helper()
	entries, _, err := e.auditRepo.List(context.Background(), &repositories.AuditFilter{
		Action: action, Page: 1, PageSize: 200,
	})
	if err != nil {
		t.Fatalf("list audit entries: %v", err)
	}
	return entries
}
