package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/fixora/tracker/internal/domain"
)

// PostgresCommentRepository implements CommentRepository using PostgreSQL
type PostgresCommentRepository struct {
	db dbtx
}

// Create saves a new comment
func (r *PostgresCommentRepository) Create(ctx context.Context, comment *domain.Comment) error {
	query := `
		INSERT INTO comments (id, organization_id, ticket_id, author_id, body, created_at, updated_at, deleted_at, deleted_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.db.ExecContext(ctx, query,
		comment.ID,
		comment.OrganizationID,
		comment.TicketID,
		comment.AuthorID,
		comment.Body,
		comment.CreatedAt,
		comment.UpdatedAt,
		comment.DeletedAt,
		comment.DeletedBy,
	)
	if err != nil {
		return fmt.Errorf("failed to create comment: %w", err)
	}
	return nil
}

// ListByTicket retrieves all comments for a ticket
func (r *PostgresCommentRepository) ListByTicket(ctx context.Context, organizationID, ticketID string) ([]*domain.Comment, error) {
	query := `
		SELECT id, organization_id, ticket_id, author_id, body, created_at, updated_at, deleted_at, deleted_by
		FROM comments
		WHERE organization_id = $1 AND ticket_id = $2
		ORDER BY created_at ASC
	`

	rows, err := r.db.QueryContext(ctx, query, organizationID, ticketID)
	if err != nil {
		return nil, fmt.Errorf("failed to query comments: %w", err)
	}
	defer rows.Close()

	var comments []*domain.Comment
	for rows.Next() {
		var comment domain.Comment
		var deletedAt sql.NullTime
		var deletedBy sql.NullString

		err := rows.Scan(
			&comment.ID,
			&comment.OrganizationID,
			&comment.TicketID,
			&comment.AuthorID,
			&comment.Body,
			&comment.CreatedAt,
			&comment.UpdatedAt,
			&deletedAt,
			&deletedBy,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan comment: %w", err)
		}
		comment.DeletedAt = mapTimePtr(deletedAt)
		comment.DeletedBy = mapStringPtr(deletedBy)
		comments = append(comments, &comment)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating comments: %w", err)
	}
	return comments, nil
}

// StampDeleted marks the comments of the given tickets as cascade-deleted
func (r *PostgresCommentRepository) StampDeleted(ctx context.Context, organizationID string, ticketIDs []string, at time.Time, by string) (int, error) {
	return stampDependents(ctx, r.db, "comments", organizationID, ticketIDs, at, by)
}

// ClearDeleted removes the cascade stamp written at the given instant
func (r *PostgresCommentRepository) ClearDeleted(ctx context.Context, organizationID string, ticketIDs []string, at time.Time) (int, error) {
	return clearDependents(ctx, r.db, "comments", organizationID, ticketIDs, at)
}

// DeleteByTicket hard-deletes all comments of a ticket
func (r *PostgresCommentRepository) DeleteByTicket(ctx context.Context, organizationID, ticketID string) (int, error) {
	return deleteDependents(ctx, r.db, "comments", organizationID, ticketID)
}

// PostgresAttachmentRepository implements AttachmentRepository using PostgreSQL
type PostgresAttachmentRepository struct {
	db dbtx
}

// Create saves new attachment metadata
func (r *PostgresAttachmentRepository) Create(ctx context.Context, attachment *domain.Attachment) error {
	query := `
		INSERT INTO attachments (id, organization_id, ticket_id, uploaded_by, file_name, content_type, size_bytes,
			object_key, created_at, updated_at, deleted_at, deleted_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err := r.db.ExecContext(ctx, query,
		attachment.ID,
		attachment.OrganizationID,
		attachment.TicketID,
		attachment.UploadedBy,
		attachment.FileName,
		attachment.ContentType,
		attachment.SizeBytes,
		attachment.ObjectKey,
		attachment.CreatedAt,
		attachment.UpdatedAt,
		attachment.DeletedAt,
		attachment.DeletedBy,
	)
	if err != nil {
		return fmt.Errorf("failed to create attachment: %w", err)
	}
	return nil
}

// ListByTicket retrieves all attachments for a ticket
func (r *PostgresAttachmentRepository) ListByTicket(ctx context.Context, organizationID, ticketID string) ([]*domain.Attachment, error) {
	query := `
		SELECT id, organization_id, ticket_id, uploaded_by, file_name, content_type, size_bytes,
			object_key, created_at, updated_at, deleted_at, deleted_by
		FROM attachments
		WHERE organization_id = $1 AND ticket_id = $2
		ORDER BY id
	`

	rows, err := r.db.QueryContext(ctx, query, organizationID, ticketID)
	if err != nil {
		return nil, fmt.Errorf("failed to query attachments: %w", err)
	}
	defer rows.Close()

	var attachments []*domain.Attachment
	for rows.Next() {
		var attachment domain.Attachment
		var deletedAt sql.NullTime
		var deletedBy sql.NullString

		err := rows.Scan(
			&attachment.ID,
			&attachment.OrganizationID,
			&attachment.TicketID,
			&attachment.UploadedBy,
			&attachment.FileName,
			&attachment.ContentType,
			&attachment.SizeBytes,
			&attachment.ObjectKey,
			&attachment.CreatedAt,
			&attachment.UpdatedAt,
			&deletedAt,
			&deletedBy,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan attachment: %w", err)
		}
		attachment.DeletedAt = mapTimePtr(deletedAt)
		attachment.DeletedBy = mapStringPtr(deletedBy)
		attachments = append(attachments, &attachment)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating attachments: %w", err)
	}
	return attachments, nil
}

// StampDeleted marks the attachments of the given tickets as cascade-deleted
func (r *PostgresAttachmentRepository) StampDeleted(ctx context.Context, organizationID string, ticketIDs []string, at time.Time, by string) (int, error) {
	return stampDependents(ctx, r.db, "attachments", organizationID, ticketIDs, at, by)
}

// ClearDeleted removes the cascade stamp written at the given instant
func (r *PostgresAttachmentRepository) ClearDeleted(ctx context.Context, organizationID string, ticketIDs []string, at time.Time) (int, error) {
	return clearDependents(ctx, r.db, "attachments", organizationID, ticketIDs, at)
}

// DeleteByTicket hard-deletes all attachment rows of a ticket
func (r *PostgresAttachmentRepository) DeleteByTicket(ctx context.Context, organizationID, ticketID string) (int, error) {
	return deleteDependents(ctx, r.db, "attachments", organizationID, ticketID)
}

// stampDependents is shared by comments and attachments. table is always a
// constant name, never input.
func stampDependents(ctx context.Context, db dbtx, table, organizationID string, ticketIDs []string, at time.Time, by string) (int, error) {
	if len(ticketIDs) == 0 {
		return 0, nil
	}
	query := fmt.Sprintf(`
		UPDATE %s SET deleted_at = $3, deleted_by = $4
		WHERE organization_id = $1 AND ticket_id = ANY($2) AND deleted_at IS NULL
	`, table)

	result, err := db.ExecContext(ctx, query, organizationID, stringArray(ticketIDs), at, by)
	if err != nil {
		return 0, fmt.Errorf("failed to stamp %s: %w", table, err)
	}
	return rowsAffected(result)
}

func clearDependents(ctx context.Context, db dbtx, table, organizationID string, ticketIDs []string, at time.Time) (int, error) {
	if len(ticketIDs) == 0 {
		return 0, nil
	}
	query := fmt.Sprintf(`
		UPDATE %s SET deleted_at = NULL, deleted_by = NULL
		WHERE organization_id = $1 AND ticket_id = ANY($2) AND deleted_at = $3
	`, table)

	result, err := db.ExecContext(ctx, query, organizationID, stringArray(ticketIDs), at)
	if err != nil {
		return 0, fmt.Errorf("failed to clear %s: %w", table, err)
	}
	return rowsAffected(result)
}

func deleteDependents(ctx context.Context, db dbtx, table, organizationID, ticketID string) (int, error) {
	query := fmt.Sprintf(`DELETE FROM %s WHERE organization_id = $1 AND ticket_id = $2`, table)

	result, err := db.ExecContext(ctx, query, organizationID, ticketID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete %s: %w", table, err)
	}
	return rowsAffected(result)
}
