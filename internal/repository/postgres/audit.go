package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"mdbrowse/internal/domain/models"
	"mdbrowse/internal/domain/repositories"
)

// AuditRepository implements repositories.AuditRepository over Postgres.
// The table is append-only; there is no update or delete path.
type AuditRepository struct {
	pool   *pgxpool.Pool
	tables *TableNames
	logger *slog.Logger
}

// NewAuditRepository creates a new audit log repository
func NewAuditRepository(config *RepositoryConfig) repositories.AuditRepository {
	return &AuditRepository{
		pool:   config.Pool,
		tables: config.Tables,
		logger: config.Logger,
	}
}

// Append writes one audit entry; metadata is stored as jsonb
func (r *AuditRepository) Append(ctx context.Context, entry *models.AuditLogEntry) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (id, actor_type, actor_id, action, resource_type, resource_id, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, r.tables.AuditLog)

	executor := GetExecutor(ctx, r.pool)
	_, err := executor.Exec(ctx, query,
		entry.ID, entry.ActorType, entry.ActorID,
		entry.Action, entry.ResourceType, entry.ResourceID,
		entry.Metadata, entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("append audit entry: %w", err)
	}
	return nil
}

// List returns one page of audit entries, newest first, plus the total
// match count
func (r *AuditRepository) List(ctx context.Context, filter *repositories.AuditFilter) ([]models.AuditLogEntry, int, error) {
	where := []string{"TRUE"}
	var args []interface{}

	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.ActorType != "" {
		where = append(where, "actor_type = "+arg(filter.ActorType))
	}
	if filter.ActorID != "" {
		where = append(where, "actor_id = "+arg(filter.ActorID))
	}
	if filter.Action != "" {
		where = append(where, "action = "+arg(filter.Action))
	}
	if filter.ResourceType != "" {
		where = append(where, "resource_type = "+arg(filter.ResourceType))
	}
	if filter.ResourceID != "" {
		where = append(where, "resource_id = "+arg(filter.ResourceID))
	}
	if !filter.Since.IsZero() {
		where = append(where, "created_at >= "+arg(filter.Since))
	}
	if !filter.Until.IsZero() {
		where = append(where, "created_at <= "+arg(filter.Until))
	}

	whereClause := strings.Join(where, " AND ")
	executor := GetExecutor(ctx, r.pool)

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s", r.tables.AuditLog, whereClause)
	var total int
	if err := executor.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count audit entries: %w", err)
	}

	// ULIDs sort by creation time, so id DESC is newest-first.
	query := fmt.Sprintf(`
		SELECT id, actor_type, actor_id, action, resource_type, resource_id, metadata, created_at
		FROM %s
		WHERE %s
		ORDER BY id DESC
		LIMIT %s OFFSET %s
	`, r.tables.AuditLog, whereClause,
		arg(filter.PageSize), arg((filter.Page-1)*filter.PageSize))

	rows, err := executor.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list audit entries: %w", err)
	}
	defer rows.Close()

	var entries []models.AuditLogEntry
	for rows.Next() {
		var e models.AuditLogEntry
		err := rows.Scan(&e.ID, &e.ActorType, &e.ActorID,
			&e.Action, &e.ResourceType, &e.ResourceID, &e.Metadata, &e.CreatedAt)
		if err != nil {
			return nil, 0, fmt.Errorf("scan audit entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("list audit entries: %w", err)
	}
	return entries, total, nil
}
