package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"mdbrowse/internal/domain"
	"mdbrowse/internal/domain/models"
	"mdbrowse/internal/domain/repositories"
)

// VersionRepository implements repositories.VersionRepository over Postgres.
// The UNIQUE(document_id, version_number) constraint makes concurrent
// appends of the same number surface as conflicts rather than duplicates.
type VersionRepository struct {
	pool   *pgxpool.Pool
	tables *TableNames
	logger *slog.Logger
}

// NewVersionRepository creates a new version repository
func NewVersionRepository(config *RepositoryConfig) repositories.VersionRepository {
	return &VersionRepository{
		pool:   config.Pool,
		tables: config.Tables,
		logger: config.Logger,
	}
}

// Append inserts a version row; version numbers are never rewritten
func (r *VersionRepository) Append(ctx context.Context, version *models.DocumentVersion) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (id, document_id, version_number, content, change_note, checksum, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, r.tables.Versions)

	executor := GetExecutor(ctx, r.pool)
	_, err := executor.Exec(ctx, query,
		version.ID, version.DocumentID, version.VersionNumber,
		version.Content, version.ChangeNote, version.Checksum,
		version.CreatedBy, version.CreatedAt,
	)
	if err != nil {
		if IsPgDuplicateError(err) {
			return &domain.ConflictError{
				Message:      fmt.Sprintf("version %d of document %s already exists", version.VersionNumber, version.DocumentID),
				ResourceType: "document_version",
				ResourceID:   version.DocumentID,
			}
		}
		return fmt.Errorf("append version: %w", err)
	}
	return nil
}

// ListByDocument returns the version chain in ascending order, content
// omitted
func (r *VersionRepository) ListByDocument(ctx context.Context, documentID string) ([]models.DocumentVersion, error) {
	query := fmt.Sprintf(`
		SELECT id, document_id, version_number, change_note, checksum, created_by, created_at
		FROM %s
		WHERE document_id = $1
		ORDER BY version_number ASC
	`, r.tables.Versions)

	executor := GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, documentID)
	if err != nil {
		return nil, fmt.Errorf("list versions: %w", err)
	}
	defer rows.Close()

	var versions []models.DocumentVersion
	for rows.Next() {
		var v models.DocumentVersion
		err := rows.Scan(&v.ID, &v.DocumentID, &v.VersionNumber, &v.ChangeNote, &v.Checksum, &v.CreatedBy, &v.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan version: %w", err)
		}
		versions = append(versions, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list versions: %w", err)
	}
	return versions, nil
}

// GetByNumber retrieves one version of a document, content included
func (r *VersionRepository) GetByNumber(ctx context.Context, documentID string, number int) (*models.DocumentVersion, error) {
	query := fmt.Sprintf(`
		SELECT id, document_id, version_number, content, change_note, checksum, created_by, created_at
		FROM %s
		WHERE document_id = $1 AND version_number = $2
	`, r.tables.Versions)

	executor := GetExecutor(ctx, r.pool)
	var v models.DocumentVersion
	err := executor.QueryRow(ctx, query, documentID, number).Scan(
		&v.ID, &v.DocumentID, &v.VersionNumber, &v.Content, &v.ChangeNote, &v.Checksum, &v.CreatedBy, &v.CreatedAt,
	)
	if err != nil {
		if IsPgNoRowsError(err) {
			return nil, fmt.Errorf("version %d of document %s: %w", number, documentID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get version: %w", err)
	}
	return &v, nil
}
