package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"

	"mdbrowse/internal/auth"
	"mdbrowse/internal/config"
	"mdbrowse/internal/domain/models"
	"mdbrowse/internal/metrics"
	"mdbrowse/internal/render"
	"mdbrowse/internal/repository/postgres"
	"mdbrowse/internal/service"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	// Parse command-line flags
	dropTables := flag.Bool("drop-tables", false, "Drop all tables before seeding (fresh start)")
	schemaOnly := flag.Bool("schema-only", false, "Only set up schema, don't seed documents (for use with shell scripts)")
	clearData := flag.Bool("clear-data", false, "Clear all documents and folders (keep schema)")
	flag.Parse()

	// Load .env file
	_ = godotenv.Load()

	// Load configuration
	cfg := config.Load()

	// SAFETY: Prevent destructive operations in production
	if cfg.Environment == "prod" && (*dropTables || *clearData) {
		log.Fatalf("🚫 BLOCKED: Cannot run destructive operations (--drop-tables or --clear-data) in production environment")
	}

	// Setup logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	if *clearData {
		log.Printf("🧹 Clearing data only (environment: %s, prefix: %s)", cfg.Environment, cfg.TablePrefix)
	} else if *schemaOnly {
		log.Printf("🏗️  Setting up schema only (environment: %s, prefix: %s)", cfg.Environment, cfg.TablePrefix)
	} else {
		log.Printf("🌱 Seeding database (environment: %s, prefix: %s)", cfg.Environment, cfg.TablePrefix)
	}

	// Create database connection pool
	ctx := context.Background()
	pool, err := postgres.CreateConnectionPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	// Create table names
	tables := postgres.NewTableNames(cfg.TablePrefix)

	// Drop tables if requested
	if *dropTables {
		log.Println("🗑️  Dropping all tables...")
		if err := dropAllTables(ctx, pool, tables); err != nil {
			log.Fatalf("Failed to drop tables: %v", err)
		}
		log.Println("✅ Tables dropped")
	}

	// Run schema to ensure tables exist
	log.Println("📋 Ensuring database schema is up to date...")
	if err := runSchema(ctx, pool, tables, cfg.TablePrefix); err != nil {
		log.Fatalf("Failed to run schema: %v", err)
	}
	log.Println("✅ Schema ready")

	// Exit early if schema-only mode
	if *schemaOnly {
		log.Println("✅ Schema setup complete (schema-only mode)")
		return
	}

	// Exit early if clear-data mode (just clear and exit)
	if *clearData {
		log.Println("🧹 Clearing existing documents and folders...")
		if err := clearDocumentData(ctx, pool, tables); err != nil {
			log.Fatalf("Failed to clear data: %v", err)
		}
		log.Println("✅ Data cleared successfully")
		return
	}

	// Create repositories
	repoConfig := &postgres.RepositoryConfig{
		Pool:   pool,
		Tables: tables,
		Logger: logger,
	}
	docRepo := postgres.NewDocumentRepository(repoConfig)
	versionRepo := postgres.NewVersionRepository(repoConfig)
	folderRepo := postgres.NewFolderRepository(repoConfig)
	settingsRepo := postgres.NewSettingsRepository(repoConfig)
	auditRepo := postgres.NewAuditRepository(repoConfig)
	txManager := postgres.NewTransactionManager(pool, logger)

	// Create services. Seed writes flow through the service layer so
	// versions, checksums and audit entries come out the same as API writes.
	m := metrics.New(prometheus.NewRegistry())
	auditService := service.NewAuditService(auditRepo, m, logger)
	folderService := service.NewFolderService(folderRepo, docRepo, txManager, auditService, logger)
	docService := service.NewDocumentService(docRepo, versionRepo, settingsRepo, folderService, txManager, render.New(), auditService, m, logger)

	seeder := &auth.Actor{Type: models.ActorSystem, ID: "seed", Role: models.RoleAdmin}

	// Clear existing data
	log.Println("⚠️  Clearing existing documents and folders...")
	if err := clearDocumentData(ctx, pool, tables); err != nil {
		log.Printf("Warning: Could not clear data: %v", err)
	}

	// Seed folders first so documents can reference them
	log.Println("📁 Seeding folder structure...")
	folders := make(map[string]*string)
	for _, name := range []string{"Guides", "Runbooks", "Architecture"} {
		folder, err := folderService.CreateFolder(ctx, seeder, &service.CreateFolderRequest{Name: name})
		if err != nil {
			log.Fatalf("Failed to create folder '%s': %v", name, err)
		}
		folders[name] = &folder.ID
	}

	// Seed documents
	log.Println("📝 Seeding documents...")
	documents := getSeedDocuments(folders)

	for i, req := range documents {
		doc, err := docService.CreateDocument(ctx, seeder, req)
		if err != nil {
			log.Printf("❌ Failed to create document '%s': %v", req.Title, err)
			continue
		}
		log.Printf("✅ Created document %d/%d: %s (ID: %s, Tokens: %d)",
			i+1, len(documents), doc.FilePath, doc.ID, doc.TokenCount)
	}

	log.Println("🎉 Seeding complete!")
}

// runSchema creates tables if they don't exist
func runSchema(ctx context.Context, pool *pgxpool.Pool, tables *postgres.TableNames, tablePrefix string) error {
	// Enable UUID extension
	_, err := pool.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS \"uuid-ossp\"")
	if err != nil {
		return err
	}

	// Create folders table
	createFolders := `
		CREATE TABLE IF NOT EXISTS ` + tables.Folders + ` (
			id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
			name TEXT NOT NULL,
			directory_name TEXT NOT NULL,
			parent_id UUID REFERENCES ` + tables.Folders + `(id) ON DELETE CASCADE,
			created_by TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ DEFAULT NOW(),
			updated_at TIMESTAMPTZ DEFAULT NOW(),
			UNIQUE(parent_id, directory_name)
		)
	`
	if _, err := pool.Exec(ctx, createFolders); err != nil {
		return err
	}

	// Create documents table
	createDocuments := `
		CREATE TABLE IF NOT EXISTS ` + tables.Documents + ` (
			id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
			title TEXT NOT NULL,
			slug TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			category TEXT NOT NULL DEFAULT '',
			tags TEXT[] NOT NULL DEFAULT '{}',
			project TEXT NOT NULL DEFAULT '',
			visibility TEXT NOT NULL DEFAULT 'team',
			folder_id UUID REFERENCES ` + tables.Folders + `(id) ON DELETE SET NULL,
			file_path TEXT NOT NULL,
			latest_version INTEGER NOT NULL DEFAULT 1,
			checksum TEXT NOT NULL DEFAULT '',
			token_count INTEGER NOT NULL DEFAULT 0,
			word_count INTEGER NOT NULL DEFAULT 0,
			created_by TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ DEFAULT NOW(),
			updated_at TIMESTAMPTZ DEFAULT NOW(),
			deleted_at TIMESTAMPTZ
		)
	`
	if _, err := pool.Exec(ctx, createDocuments); err != nil {
		return err
	}

	// Create version ledger table. The unique pair is what makes
	// concurrent appends of the same number lose cleanly.
	createVersions := `
		CREATE TABLE IF NOT EXISTS ` + tables.Versions + ` (
			id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
			document_id UUID NOT NULL REFERENCES ` + tables.Documents + `(id) ON DELETE CASCADE,
			version_number INTEGER NOT NULL,
			content TEXT NOT NULL,
			change_note TEXT NOT NULL DEFAULT '',
			checksum TEXT NOT NULL,
			created_by TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ DEFAULT NOW(),
			UNIQUE(document_id, version_number)
		)
	`
	if _, err := pool.Exec(ctx, createVersions); err != nil {
		return err
	}

	// Create users table
	createUsers := `
		CREATE TABLE IF NOT EXISTS ` + tables.Users + ` (
			id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
			username TEXT NOT NULL UNIQUE,
			role TEXT NOT NULL DEFAULT 'viewer',
			password_hash TEXT NOT NULL,
			created_at TIMESTAMPTZ DEFAULT NOW(),
			updated_at TIMESTAMPTZ DEFAULT NOW()
		)
	`
	if _, err := pool.Exec(ctx, createUsers); err != nil {
		return err
	}

	// Create agent tokens table
	createAgentTokens := `
		CREATE TABLE IF NOT EXISTS ` + tables.AgentTokens + ` (
			id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
			name TEXT NOT NULL,
			role TEXT NOT NULL DEFAULT 'agent',
			scopes TEXT[] NOT NULL DEFAULT '{}',
			token_prefix TEXT NOT NULL UNIQUE,
			token_hash TEXT NOT NULL,
			created_at TIMESTAMPTZ DEFAULT NOW(),
			expires_at TIMESTAMPTZ,
			last_used_at TIMESTAMPTZ
		)
	`
	if _, err := pool.Exec(ctx, createAgentTokens); err != nil {
		return err
	}

	// Create audit log table
	createAuditLog := `
		CREATE TABLE IF NOT EXISTS ` + tables.AuditLog + ` (
			id TEXT PRIMARY KEY,
			actor_type TEXT NOT NULL,
			actor_id TEXT NOT NULL DEFAULT '',
			action TEXT NOT NULL,
			resource_type TEXT NOT NULL,
			resource_id TEXT NOT NULL,
			metadata JSONB,
			created_at TIMESTAMPTZ DEFAULT NOW()
		)
	`
	if _, err := pool.Exec(ctx, createAuditLog); err != nil {
		return err
	}

	// Create idempotency keys table
	createIdempotencyKeys := `
		CREATE TABLE IF NOT EXISTS ` + tables.IdempotencyKeys + ` (
			key TEXT PRIMARY KEY,
			status INTEGER NOT NULL,
			body BYTEA NOT NULL,
			created_at TIMESTAMPTZ DEFAULT NOW()
		)
	`
	if _, err := pool.Exec(ctx, createIdempotencyKeys); err != nil {
		return err
	}

	// Create shares table
	createShares := `
		CREATE TABLE IF NOT EXISTS ` + tables.Shares + ` (
			id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
			document_id UUID NOT NULL REFERENCES ` + tables.Documents + `(id) ON DELETE CASCADE,
			token TEXT NOT NULL UNIQUE,
			access_code_hash TEXT NOT NULL DEFAULT '',
			created_by TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ DEFAULT NOW()
		)
	`
	if _, err := pool.Exec(ctx, createShares); err != nil {
		return err
	}

	// Create single-row settings table
	createSettings := `
		CREATE TABLE IF NOT EXISTS ` + tables.Settings + ` (
			id INTEGER PRIMARY KEY,
			site_name TEXT NOT NULL,
			default_visibility TEXT NOT NULL,
			max_upload_bytes BIGINT NOT NULL,
			updated_at TIMESTAMPTZ DEFAULT NOW()
		)
	`
	if _, err := pool.Exec(ctx, createSettings); err != nil {
		return err
	}

	// Create indexes
	indexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_` + tablePrefix + `documents_folder_id ON ` + tables.Documents + `(folder_id)`,
		`CREATE INDEX IF NOT EXISTS idx_` + tablePrefix + `documents_category ON ` + tables.Documents + `(category) WHERE deleted_at IS NULL`,
		`CREATE INDEX IF NOT EXISTS idx_` + tablePrefix + `documents_updated_at ON ` + tables.Documents + `(updated_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_` + tablePrefix + `versions_document ON ` + tables.Versions + `(document_id, version_number)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_` + tablePrefix + `folders_root_unique ON ` + tables.Folders + `(directory_name) WHERE parent_id IS NULL`,
		`CREATE INDEX IF NOT EXISTS idx_` + tablePrefix + `audit_resource ON ` + tables.AuditLog + `(resource_type, resource_id)`,
		`CREATE INDEX IF NOT EXISTS idx_` + tablePrefix + `audit_actor ON ` + tables.AuditLog + `(actor_type, actor_id)`,
	}

	for _, indexSQL := range indexes {
		if _, err := pool.Exec(ctx, indexSQL); err != nil {
			return err
		}
	}

	return nil
}

// dropAllTables drops all tables in reverse order (to respect foreign keys)
func dropAllTables(ctx context.Context, pool *pgxpool.Pool, tables *postgres.TableNames) error {
	tableNames := []string{
		tables.Shares,
		tables.IdempotencyKeys,
		tables.AuditLog,
		tables.AgentTokens,
		tables.Versions,
		tables.Documents,
		tables.Folders,
		tables.Users,
		tables.Settings,
	}

	for _, table := range tableNames {
		dropSQL := "DROP TABLE IF EXISTS " + table + " CASCADE"
		if _, err := pool.Exec(ctx, dropSQL); err != nil {
			return err
		}
		log.Printf("  ✓ Dropped %s", table)
	}

	return nil
}

// clearDocumentData clears all documents, versions, shares and folders
func clearDocumentData(ctx context.Context, pool *pgxpool.Pool, tables *postgres.TableNames) error {
	// Versions and shares cascade from documents
	if _, err := pool.Exec(ctx, "DELETE FROM "+tables.Documents); err != nil {
		return err
	}
	if _, err := pool.Exec(ctx, "DELETE FROM "+tables.Folders); err != nil {
		return err
	}
	return nil
}

func getSeedDocuments(folders map[string]*string) []*service.CreateDocumentRequest {
	return []*service.CreateDocumentRequest{
		{
			Title:       "Getting Started",
			Description: "First steps for new team members",
			Category:    "onboarding",
			Tags:        []string{"intro", "setup"},
			FolderID:    folders["Guides"],
			Content: `# Getting Started

Welcome to the team documentation. This guide walks through the local
setup and where to find things.

## Prerequisites

- Go 1.25 or later
- PostgreSQL 15 (or run against the in-memory store)
- A configured .env file

## First run

Copy the example environment file, then start the server:

` + "```bash\ncp .env.example .env\ngo run ./cmd/server\n```" + `

The API listens on port 8080 by default.
`,
		},
		{
			Title:       "Incident Response",
			Description: "What to do when production breaks",
			Category:    "operations",
			Tags:        []string{"oncall", "incidents"},
			FolderID:    folders["Runbooks"],
			Content: `# Incident Response

## Severity levels

Severity is judged by user impact, not by which component failed.

- **SEV1**: full outage, all hands
- **SEV2**: degraded service, page the on-call
- **SEV3**: minor issue, fix during business hours

## First responder checklist

1. Acknowledge the page
2. Open an incident channel
3. Establish impact before touching anything
4. Communicate status every 30 minutes
`,
		},
		{
			Title:       "Database Backups",
			Description: "Backup schedule and restore procedure",
			Category:    "operations",
			Tags:        []string{"database", "backups"},
			FolderID:    folders["Runbooks"],
			Content: `# Database Backups

Nightly full backups run at 03:00 UTC with WAL archiving in between.
Restores are rehearsed monthly against the staging environment.

## Restoring

Point-in-time recovery targets any moment in the last 14 days. Follow
the restore script in the infrastructure repository and verify row
counts before switching traffic.
`,
		},
		{
			Title:       "Service Architecture",
			Description: "How the pieces fit together",
			Category:    "engineering",
			Tags:        []string{"architecture", "design"},
			FolderID:    folders["Architecture"],
			Content: `# Service Architecture

## Overview

The system is a single API server in front of PostgreSQL. Documents are
stored as markdown with an append-only version ledger; every content
write produces a new immutable version.

## Request flow

1. CORS and recovery middleware
2. Request ID assignment and metrics
3. Credential resolution (session token or agent token)
4. Handler, then service, then repository

## Storage

Each environment gets its own table prefix so dev, test and prod can
share a database without touching each other's rows.
`,
		},
		{
			Title:       "Style Guide",
			Description: "Writing conventions for team docs",
			Category:    "onboarding",
			Tags:        []string{"writing"},
			Content: `# Style Guide

Keep documents short and task-focused. Prefer numbered steps for
procedures and tables for reference material. Every document should
answer one question well rather than several questions badly.
`,
		},
	}
}
