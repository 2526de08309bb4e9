package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"mdbrowse/internal/domain"
	"mdbrowse/internal/domain/models"
	"mdbrowse/internal/domain/repositories"
)

const documentColumns = `id, title, slug, description, category, tags, project, visibility,
	folder_id, file_path, latest_version, checksum, token_count, word_count,
	created_by, created_at, updated_at, deleted_at`

// DocumentRepository implements repositories.DocumentRepository over Postgres.
type DocumentRepository struct {
	pool   *pgxpool.Pool
	tables *TableNames
	logger *slog.Logger
}

// NewDocumentRepository creates a new document repository
func NewDocumentRepository(config *RepositoryConfig) repositories.DocumentRepository {
	return &DocumentRepository{
		pool:   config.Pool,
		tables: config.Tables,
		logger: config.Logger,
	}
}

func scanDocument(row pgx.Row) (*models.Document, error) {
	var doc models.Document
	err := row.Scan(
		&doc.ID,
		&doc.Title,
		&doc.Slug,
		&doc.Description,
		&doc.Category,
		&doc.Tags,
		&doc.Project,
		&doc.Visibility,
		&doc.FolderID,
		&doc.FilePath,
		&doc.LatestVersion,
		&doc.Checksum,
		&doc.TokenCount,
		&doc.WordCount,
		&doc.CreatedBy,
		&doc.CreatedAt,
		&doc.UpdatedAt,
		&doc.DeletedAt,
	)
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

// Create inserts a new document
func (r *DocumentRepository) Create(ctx context.Context, doc *models.Document) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (%s)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
	`, r.tables.Documents, documentColumns)

	executor := GetExecutor(ctx, r.pool)
	_, err := executor.Exec(ctx, query,
		doc.ID, doc.Title, doc.Slug, doc.Description, doc.Category, doc.Tags,
		doc.Project, doc.Visibility, doc.FolderID, doc.FilePath,
		doc.LatestVersion, doc.Checksum, doc.TokenCount, doc.WordCount,
		doc.CreatedBy, doc.CreatedAt, doc.UpdatedAt, doc.DeletedAt,
	)
	if err != nil {
		if IsPgDuplicateError(err) {
			return &domain.ConflictError{
				Message:      fmt.Sprintf("document %s already exists", doc.ID),
				ResourceType: "document",
				ResourceID:   doc.ID,
			}
		}
		return fmt.Errorf("create document: %w", err)
	}
	return nil
}

// GetByID retrieves a live document by ID
func (r *DocumentRepository) GetByID(ctx context.Context, id string) (*models.Document, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE id = $1 AND deleted_at IS NULL
	`, documentColumns, r.tables.Documents)

	executor := GetExecutor(ctx, r.pool)
	doc, err := scanDocument(executor.QueryRow(ctx, query, id))
	if err != nil {
		if IsPgNoRowsError(err) {
			return nil, fmt.Errorf("document %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get document: %w", err)
	}
	return doc, nil
}

// Update persists changed document fields
func (r *DocumentRepository) Update(ctx context.Context, doc *models.Document) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET title = $2, slug = $3, description = $4, category = $5, tags = $6,
			project = $7, visibility = $8, folder_id = $9, file_path = $10,
			latest_version = $11, checksum = $12, token_count = $13, word_count = $14,
			updated_at = $15
		WHERE id = $1
	`, r.tables.Documents)

	executor := GetExecutor(ctx, r.pool)
	tag, err := executor.Exec(ctx, query,
		doc.ID, doc.Title, doc.Slug, doc.Description, doc.Category, doc.Tags,
		doc.Project, doc.Visibility, doc.FolderID, doc.FilePath,
		doc.LatestVersion, doc.Checksum, doc.TokenCount, doc.WordCount, doc.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update document: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("document %s: %w", doc.ID, domain.ErrNotFound)
	}
	return nil
}

// SoftDelete marks a document deleted; the version chain is retained
func (r *DocumentRepository) SoftDelete(ctx context.Context, id string, at time.Time) error {
	query := fmt.Sprintf(`
		UPDATE %s SET deleted_at = $2, updated_at = $2
		WHERE id = $1 AND deleted_at IS NULL
	`, r.tables.Documents)

	executor := GetExecutor(ctx, r.pool)
	tag, err := executor.Exec(ctx, query, id, at)
	if err != nil {
		return fmt.Errorf("soft delete document: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("document %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

// sortColumns whitelists ORDER BY targets; anything else falls back to
// updated_at.
var sortColumns = map[string]string{
	"title":      "title",
	"created_at": "created_at",
	"updated_at": "updated_at",
}

// List returns one page of live documents plus the total match count
func (r *DocumentRepository) List(ctx context.Context, filter *repositories.DocumentFilter) ([]models.Document, int, error) {
	where := []string{"deleted_at IS NULL"}
	var args []interface{}

	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.Project != "" {
		where = append(where, "project = "+arg(filter.Project))
	}
	if filter.Category != "" {
		where = append(where, "category = "+arg(filter.Category))
	}
	if filter.Tag != "" {
		where = append(where, arg(filter.Tag)+" = ANY(tags)")
	}
	if filter.FolderID != nil {
		if *filter.FolderID == "" {
			where = append(where, "folder_id IS NULL")
		} else {
			where = append(where, "folder_id = "+arg(*filter.FolderID))
		}
	}
	if filter.Query != "" {
		p := arg(filter.Query)
		where = append(where, fmt.Sprintf(
			"(title ILIKE '%%' || %s || '%%' OR description ILIKE '%%' || %s || '%%' OR %s = ANY(tags))",
			p, p, p,
		))
	}

	whereClause := strings.Join(where, " AND ")

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s", r.tables.Documents, whereClause)
	executor := GetExecutor(ctx, r.pool)

	var total int
	if err := executor.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count documents: %w", err)
	}

	column, ok := sortColumns[filter.SortBy]
	if !ok {
		column = "updated_at"
	}
	direction := "DESC"
	if filter.SortOrder == "asc" {
		direction = "ASC"
	}

	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE %s
		ORDER BY %s %s, id ASC
		LIMIT %s OFFSET %s
	`, documentColumns, r.tables.Documents, whereClause,
		column, direction,
		arg(filter.PageSize), arg((filter.Page-1)*filter.PageSize))

	rows, err := executor.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	var docs []models.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan document: %w", err)
		}
		docs = append(docs, *doc)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("list documents: %w", err)
	}
	return docs, total, nil
}

// Search returns all live documents matching the query, current content
// included, joined from the version ledger
func (r *DocumentRepository) Search(ctx context.Context, query string) ([]models.Document, error) {
	sql := fmt.Sprintf(`
		SELECT d.id, d.title, d.slug, d.description, d.category, d.tags, d.project,
			d.visibility, d.folder_id, d.file_path, d.latest_version, d.checksum,
			d.token_count, d.word_count, d.created_by, d.created_at, d.updated_at,
			d.deleted_at, v.content
		FROM %s d
		JOIN %s v ON v.document_id = d.id AND v.version_number = d.latest_version
		WHERE d.deleted_at IS NULL
			AND (d.title ILIKE '%%' || $1 || '%%'
				OR d.description ILIKE '%%' || $1 || '%%'
				OR v.content ILIKE '%%' || $1 || '%%')
		ORDER BY d.updated_at DESC, d.id ASC
	`, r.tables.Documents, r.tables.Versions)

	executor := GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, sql, query)
	if err != nil {
		return nil, fmt.Errorf("search documents: %w", err)
	}
	defer rows.Close()

	var docs []models.Document
	for rows.Next() {
		var doc models.Document
		err := rows.Scan(
			&doc.ID, &doc.Title, &doc.Slug, &doc.Description, &doc.Category,
			&doc.Tags, &doc.Project, &doc.Visibility, &doc.FolderID, &doc.FilePath,
			&doc.LatestVersion, &doc.Checksum, &doc.TokenCount, &doc.WordCount,
			&doc.CreatedBy, &doc.CreatedAt, &doc.UpdatedAt, &doc.DeletedAt,
			&doc.Content,
		)
		if err != nil {
			return nil, fmt.Errorf("scan search result: %w", err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("search documents: %w", err)
	}
	return docs, nil
}

// ListByFolderIDs returns every document placed directly in one of the
// given folders, soft-deleted included
func (r *DocumentRepository) ListByFolderIDs(ctx context.Context, folderIDs []string) ([]models.Document, error) {
	if len(folderIDs) == 0 {
		return nil, nil
	}

	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE folder_id = ANY($1)
		ORDER BY id ASC
	`, documentColumns, r.tables.Documents)

	executor := GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, folderIDs)
	if err != nil {
		return nil, fmt.Errorf("list documents by folder: %w", err)
	}
	defer rows.Close()

	var docs []models.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		docs = append(docs, *doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list documents by folder: %w", err)
	}
	return docs, nil
}

// UpdateLocation rewrites a document's placement after a folder cascade
func (r *DocumentRepository) UpdateLocation(ctx context.Context, id string, folderID *string, filePath string, at time.Time) error {
	query := fmt.Sprintf(`
		UPDATE %s SET folder_id = $2, file_path = $3, updated_at = $4
		WHERE id = $1
	`, r.tables.Documents)

	executor := GetExecutor(ctx, r.pool)
	tag, err := executor.Exec(ctx, query, id, folderID, filePath, at)
	if err != nil {
		return fmt.Errorf("update document location: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("document %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

// ListCategories returns distinct categories with live document counts
func (r *DocumentRepository) ListCategories(ctx context.Context) ([]repositories.TagCount, error) {
	query := fmt.Sprintf(`
		SELECT category, COUNT(*) FROM %s
		WHERE deleted_at IS NULL AND category <> ''
		GROUP BY category ORDER BY category
	`, r.tables.Documents)

	return r.queryCounts(ctx, query)
}

// ListTags returns distinct tags with live document counts
func (r *DocumentRepository) ListTags(ctx context.Context) ([]repositories.TagCount, error) {
	query := fmt.Sprintf(`
		SELECT tag, COUNT(*) FROM %s, unnest(tags) AS tag
		WHERE deleted_at IS NULL
		GROUP BY tag ORDER BY tag
	`, r.tables.Documents)

	return r.queryCounts(ctx, query)
}

func (r *DocumentRepository) queryCounts(ctx context.Context, query string) ([]repositories.TagCount, error) {
	executor := GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query counts: %w", err)
	}
	defer rows.Close()

	var counts []repositories.TagCount
	for rows.Next() {
		var tc repositories.TagCount
		if err := rows.Scan(&tc.Name, &tc.Count); err != nil {
			return nil, fmt.Errorf("scan count: %w", err)
		}
		counts = append(counts, tc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query counts: %w", err)
	}
	return counts, nil
}
