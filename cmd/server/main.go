package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"io"
	"log"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"mdbrowse/internal/auth"
	"mdbrowse/internal/config"
	"mdbrowse/internal/domain/repositories"
	"mdbrowse/internal/handler"
	"mdbrowse/internal/metrics"
	"mdbrowse/internal/middleware"
	"mdbrowse/internal/render"
	"mdbrowse/internal/repository/memory"
	"mdbrowse/internal/repository/postgres"
	"mdbrowse/internal/service"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
)

func main() {
	// Load .env file (silently ignore if it doesn't exist - for production)
	_ = godotenv.Load()

	// Load configuration
	cfg := config.Load()

	// Setup structured logging
	logLevel := slog.LevelInfo
	if cfg.Environment == "dev" {
		logLevel = slog.LevelDebug
	}

	var logOut io.Writer = os.Stdout
	if cfg.LogDir != "" {
		f, err := config.SetupLogFile(cfg.LogDir, cfg.MaxLogFiles)
		if err != nil {
			log.Fatalf("Failed to setup log file: %v", err)
		}
		defer f.Close()
		logOut = io.MultiWriter(os.Stdout, f)
	}

	logger := slog.New(slog.NewJSONHandler(logOut, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger) // Set as default logger

	logger.Info("server starting",
		"environment", cfg.Environment,
		"port", cfg.Port,
		"table_prefix", cfg.TablePrefix,
	)

	// Session secret is required in production. In dev a random one is
	// generated so sessions do not survive a restart.
	sessionSecret := cfg.SessionSecret
	if sessionSecret == "" {
		if cfg.Environment == "prod" {
			log.Fatalf("SESSION_SECRET must be set in production")
		}
		buf := make([]byte, 32)
		if _, err := rand.Read(buf); err != nil {
			log.Fatalf("Failed to generate session secret: %v", err)
		}
		sessionSecret = hex.EncodeToString(buf)
		logger.Warn("SESSION_SECRET not set, using a random secret; sessions will not survive restarts")
	}

	sessions, err := auth.NewSessionManager(sessionSecret, cfg.SessionTTL, logger)
	if err != nil {
		log.Fatalf("Failed to create session manager: %v", err)
	}

	// Create repositories - Postgres when DATABASE_URL is set, an
	// in-memory store otherwise
	ctx := context.Background()

	var (
		docRepo      repositories.DocumentRepository
		versionRepo  repositories.VersionRepository
		folderRepo   repositories.FolderRepository
		userRepo     repositories.UserRepository
		settingsRepo repositories.SettingsRepository
		tokenRepo    repositories.AgentTokenRepository
		auditRepo    repositories.AuditRepository
		idemRepo     repositories.IdempotencyRepository
		shareRepo    repositories.ShareRepository
		txManager    repositories.TransactionManager
	)

	if cfg.DatabaseURL != "" {
		pool, err := postgres.CreateConnectionPool(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("Failed to create connection pool: %v", err)
		}
		defer pool.Close()

		logger.Info("database connected")

		repoConfig := &postgres.RepositoryConfig{
			Pool:   pool,
			Tables: postgres.NewTableNames(cfg.TablePrefix),
			Logger: logger,
		}
		docRepo = postgres.NewDocumentRepository(repoConfig)
		versionRepo = postgres.NewVersionRepository(repoConfig)
		folderRepo = postgres.NewFolderRepository(repoConfig)
		userRepo = postgres.NewUserRepository(repoConfig)
		settingsRepo = postgres.NewSettingsRepository(repoConfig)
		tokenRepo = postgres.NewAgentTokenRepository(repoConfig)
		auditRepo = postgres.NewAuditRepository(repoConfig)
		idemRepo = postgres.NewIdempotencyRepository(repoConfig)
		shareRepo = postgres.NewShareRepository(repoConfig)
		txManager = postgres.NewTransactionManager(pool, logger)
	} else {
		logger.Warn("DATABASE_URL not set, using in-memory storage")

		store := memory.NewStore()
		docRepo = memory.NewDocumentRepository(store)
		versionRepo = memory.NewVersionRepository(store)
		folderRepo = memory.NewFolderRepository(store)
		userRepo = memory.NewUserRepository(store)
		settingsRepo = memory.NewSettingsRepository(store)
		tokenRepo = memory.NewAgentTokenRepository(store)
		auditRepo = memory.NewAuditRepository(store)
		idemRepo = memory.NewIdempotencyRepository(store)
		shareRepo = memory.NewShareRepository(store)
		txManager = store
	}

	// Metrics registry
	registry := prometheus.NewRegistry()
	m := metrics.New(registry)

	// Create services
	renderer := render.New()
	auditService := service.NewAuditService(auditRepo, m, logger)
	idemService := service.NewIdempotencyService(idemRepo, cfg.IdempotencyTTL, m, logger)
	folderService := service.NewFolderService(folderRepo, docRepo, txManager, auditService, logger)
	docService := service.NewDocumentService(docRepo, versionRepo, settingsRepo, folderService, txManager, renderer, auditService, m, logger)
	shareService := service.NewShareService(shareRepo, docRepo, versionRepo, renderer, auditService, logger)
	tokenService := service.NewAgentTokenService(tokenRepo, auditService, logger)
	userService := service.NewUserService(userRepo, sessions, auditService, logger)
	settingsService := service.NewSettingsService(settingsRepo, auditService, logger)

	// Create the bootstrap admin account when no users exist yet
	if err := userService.Bootstrap(ctx, cfg.AdminUsername, cfg.AdminPassword); err != nil {
		log.Fatalf("Failed to bootstrap admin account: %v", err)
	}

	// Create handlers
	authHandler := handler.NewAuthHandler(userService, logger)
	docHandler := handler.NewDocumentHandler(docService, idemService, settingsRepo, logger)
	folderHandler := handler.NewFolderHandler(folderService, logger)
	searchHandler := handler.NewSearchHandler(docService, logger)
	taxonomyHandler := handler.NewTaxonomyHandler(docService, logger)
	shareHandler := handler.NewShareHandler(shareService, logger)
	tokenHandler := handler.NewAgentTokenHandler(tokenService, logger)
	auditHandler := handler.NewAuditHandler(auditService, logger)
	adminHandler := handler.NewAdminHandler(userService, settingsService, logger)

	logger.Info("services initialized")

	// Create HTTP router (Go 1.22+ enhanced patterns)
	mux := http.NewServeMux()

	// Health check and metrics
	mux.HandleFunc("GET /health", docHandler.HealthCheck)
	mux.Handle("GET /metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	// Session routes
	mux.HandleFunc("POST /api/auth/login", authHandler.Login)
	mux.HandleFunc("GET /api/auth/me", authHandler.Me)

	// Document routes
	mux.HandleFunc("GET /api/v1/documents", docHandler.ListDocuments)
	mux.HandleFunc("POST /api/v1/documents", docHandler.CreateDocument)
	mux.HandleFunc("POST /api/v1/documents/upload", docHandler.UploadDocument)
	mux.HandleFunc("POST /api/v1/documents/batch-delete", docHandler.BatchDelete)
	mux.HandleFunc("POST /api/v1/documents/batch-move", docHandler.BatchMove)
	mux.HandleFunc("GET /api/v1/documents/{id}", docHandler.GetDocument)
	mux.HandleFunc("PUT /api/v1/documents/{id}", docHandler.UpdateDocument)
	mux.HandleFunc("DELETE /api/v1/documents/{id}", docHandler.DeleteDocument)

	// Version ledger routes
	mux.HandleFunc("GET /api/v1/documents/{id}/versions", docHandler.ListVersions)
	mux.HandleFunc("GET /api/v1/documents/{id}/versions/{number}", docHandler.GetVersion)
	mux.HandleFunc("POST /api/v1/documents/{id}/rollback", docHandler.Rollback)
	mux.HandleFunc("GET /api/v1/documents/{id}/chunks", docHandler.Chunks)

	// Folder routes
	mux.HandleFunc("GET /api/v1/folders", folderHandler.ListFolders)
	mux.HandleFunc("POST /api/v1/folders", folderHandler.CreateFolder)
	mux.HandleFunc("GET /api/v1/folders/{id}", folderHandler.GetFolder)
	mux.HandleFunc("PUT /api/v1/folders/{id}", folderHandler.UpdateFolder)
	mux.HandleFunc("DELETE /api/v1/folders/{id}", folderHandler.DeleteFolder)

	// Search and taxonomy routes
	mux.HandleFunc("GET /api/v1/search", searchHandler.Search)
	mux.HandleFunc("GET /api/v1/categories", taxonomyHandler.ListCategories)
	mux.HandleFunc("GET /api/v1/tags", taxonomyHandler.ListTags)

	// Share routes - resolution is unauthenticated by design
	mux.HandleFunc("POST /api/v1/documents/{id}/share", shareHandler.CreateShare)
	mux.HandleFunc("GET /api/v1/share/{token}", shareHandler.ResolveShare)
	mux.HandleFunc("DELETE /api/v1/share/{token}", shareHandler.RevokeShare)

	// Agent token routes
	mux.HandleFunc("POST /api/v1/agents/tokens", tokenHandler.CreateToken)
	mux.HandleFunc("GET /api/v1/agents/tokens", tokenHandler.ListTokens)
	mux.HandleFunc("DELETE /api/v1/agents/tokens/{id}", tokenHandler.DeleteToken)

	// Audit routes
	mux.HandleFunc("GET /api/v1/audit-logs", auditHandler.ListAuditLogs)

	// Admin routes
	mux.HandleFunc("GET /api/v1/admin/users", adminHandler.ListUsers)
	mux.HandleFunc("POST /api/v1/admin/users", adminHandler.CreateUser)
	mux.HandleFunc("PUT /api/v1/admin/users/{username}", adminHandler.UpdateUser)
	mux.HandleFunc("DELETE /api/v1/admin/users/{username}", adminHandler.DeleteUser)
	mux.HandleFunc("GET /api/v1/admin/settings", adminHandler.GetSettings)
	mux.HandleFunc("PUT /api/v1/admin/settings", adminHandler.UpdateSettings)

	// Build middleware chain
	var root http.Handler = mux

	// Apply middleware in reverse order (they wrap each other)
	// Order: CORS → Recovery → RequestID → Metrics → Auth → Routes
	agents := auth.NewAgentResolver(tokenRepo, logger)
	root = middleware.Auth(sessions, agents, logger)(root)
	root = middleware.Metrics(m)(root)
	root = middleware.RequestID(root)
	root = middleware.Recovery(logger)(root)

	// CORS - Must be before auth to handle OPTIONS pre-flight requests
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   strings.Split(cfg.CORSOrigins, ","),
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Agent-Token", "Idempotency-Key"},
		AllowCredentials: true,
	})
	root = corsHandler.Handler(root)

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      root,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server
	logger.Info("server listening", "port", cfg.Port)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("Failed to start server: %v", err)
	}
}
