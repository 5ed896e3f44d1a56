package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/fixora/tracker/internal/domain"
)

// PostgresAuditRepository implements AuditRepository using PostgreSQL.
// The table is append-only: there is no update or delete path.
type PostgresAuditRepository struct {
	db dbtx
}

// Append writes a new audit entry
func (r *PostgresAuditRepository) Append(ctx context.Context, entry *domain.AuditEntry) error {
	query := `
		INSERT INTO audit_entries (id, organization_id, actor_id, action, entity_type, entity_id, details, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	var details interface{}
	if len(entry.Details) > 0 {
		details = []byte(entry.Details)
	}

	_, err := r.db.ExecContext(ctx, query,
		entry.ID,
		entry.OrganizationID,
		entry.ActorID,
		string(entry.Action),
		string(entry.EntityType),
		entry.EntityID,
		details,
		entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to append audit entry: %w", err)
	}
	return nil
}

// List retrieves the newest audit entries of an organization
func (r *PostgresAuditRepository) List(ctx context.Context, organizationID string, entityType domain.EntityType, entityID string, limit int) ([]*domain.AuditEntry, error) {
	query := `
		SELECT id, organization_id, actor_id, action, entity_type, entity_id, details, created_at
		FROM audit_entries
		WHERE organization_id = $1
	`

	var conditions []string
	args := []interface{}{organizationID}
	argIndex := 2

	if entityType != "" {
		conditions = append(conditions, fmt.Sprintf("entity_type = $%d", argIndex))
		args = append(args, string(entityType))
		argIndex++
	}

	if entityID != "" {
		conditions = append(conditions, fmt.Sprintf("entity_id = $%d", argIndex))
		args = append(args, entityID)
		argIndex++
	}

	if len(conditions) > 0 {
		query += " AND " + strings.Join(conditions, " AND ")
	}

	query += " ORDER BY created_at DESC, id DESC"

	if limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIndex)
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit entries: %w", err)
	}
	defer rows.Close()

	var entries []*domain.AuditEntry
	for rows.Next() {
		var entry domain.AuditEntry
		var actorID, entityIDCol sql.NullString
		var details []byte

		err := rows.Scan(
			&entry.ID,
			&entry.OrganizationID,
			&actorID,
			&entry.Action,
			&entry.EntityType,
			&entityIDCol,
			&details,
			&entry.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan audit entry: %w", err)
		}
		entry.ActorID = mapStringPtr(actorID)
		entry.EntityID = mapStringPtr(entityIDCol)
		entry.CreatedAt = entry.CreatedAt.UTC()
		if len(details) > 0 {
			entry.Details = details
		}
		entries = append(entries, &entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating audit entries: %w", err)
	}
	return entries, nil
}
