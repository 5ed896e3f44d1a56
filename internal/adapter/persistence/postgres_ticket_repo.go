package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/fixora/tracker/internal/domain"
)

// PostgresTicketRepository implements TicketRepository using PostgreSQL
type PostgresTicketRepository struct {
	db dbtx
}

const ticketColumns = `id, organization_id, project_id, key, title, description, status, priority,
	assigned_to, created_by, created_at, updated_at, ` + softDeleteColumns

// Create saves a new ticket
func (r *PostgresTicketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	query := `
		INSERT INTO tickets (` + ticketColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
	`

	args := []interface{}{
		ticket.ID,
		ticket.OrganizationID,
		ticket.ProjectID,
		ticket.Key,
		ticket.Title,
		ticket.Description,
		string(ticket.Status),
		string(ticket.Priority),
		ticket.AssignedTo,
		ticket.CreatedBy,
		ticket.CreatedAt,
		ticket.UpdatedAt,
	}
	args = append(args, stampArgs(ticket.SoftDeleteStamp)...)

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to create ticket: %w", err)
	}
	return nil
}

// FindByID retrieves a ticket by its ID within an organization
func (r *PostgresTicketRepository) FindByID(ctx context.Context, organizationID, id string) (*domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE organization_id = $1 AND id = $2`

	ticket, err := scanTicket(r.db.QueryRowContext(ctx, query, organizationID, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrTicketNotFound
		}
		return nil, fmt.Errorf("failed to find ticket: %w", err)
	}
	return ticket, nil
}

// Update updates an existing ticket
func (r *PostgresTicketRepository) Update(ctx context.Context, ticket *domain.Ticket) error {
	query := `
		UPDATE tickets
		SET title = $3, description = $4, status = $5, priority = $6, assigned_to = $7, updated_at = $8,
			deleted_at = $9, deleted_by = $10, deleted_reason = $11, purge_after = $12,
			restored_at = $13, restored_by = $14
		WHERE organization_id = $1 AND id = $2
	`

	args := []interface{}{
		ticket.OrganizationID,
		ticket.ID,
		ticket.Title,
		ticket.Description,
		string(ticket.Status),
		string(ticket.Priority),
		ticket.AssignedTo,
		ticket.UpdatedAt,
	}
	args = append(args, stampArgs(ticket.SoftDeleteStamp)...)

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update ticket: %w", err)
	}
	n, err := rowsAffected(result)
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrTicketNotFound
	}
	return nil
}

// ListIDsByProject returns the IDs of every ticket of a project
func (r *PostgresTicketRepository) ListIDsByProject(ctx context.Context, organizationID, projectID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id FROM tickets WHERE organization_id = $1 AND project_id = $2 ORDER BY id`,
		organizationID, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to query project tickets: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan ticket id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating ticket ids: %w", err)
	}
	return ids, nil
}

// CountBlocking counts live tickets of a project in one of the statuses
func (r *PostgresTicketRepository) CountBlocking(ctx context.Context, organizationID, projectID string, statuses []domain.TicketStatus) (int, error) {
	values := make([]string, len(statuses))
	for i, s := range statuses {
		values[i] = string(s)
	}

	query := `
		SELECT COUNT(*) FROM tickets
		WHERE organization_id = $1 AND project_id = $2 AND deleted_at IS NULL AND status = ANY($3)
	`

	var count int
	if err := r.db.QueryRowContext(ctx, query, organizationID, projectID, stringArray(values)).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count blocking tickets: %w", err)
	}
	return count, nil
}

// ListDeleted retrieves all soft-deleted tickets of an organization
func (r *PostgresTicketRepository) ListDeleted(ctx context.Context, organizationID string) ([]*domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets
		WHERE organization_id = $1 AND deleted_at IS NOT NULL
		ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query, organizationID)
	if err != nil {
		return nil, fmt.Errorf("failed to query deleted tickets: %w", err)
	}
	defer rows.Close()

	var tickets []*domain.Ticket
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ticket: %w", err)
		}
		tickets = append(tickets, ticket)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tickets: %w", err)
	}
	return tickets, nil
}

// ListPurgeCandidates pages through tickets of every organization whose
// purge deadline has passed
func (r *PostgresTicketRepository) ListPurgeCandidates(ctx context.Context, before time.Time, afterID string, limit int) ([]domain.RetainedRef, error) {
	query := `
		SELECT id, organization_id, project_id, purge_after
		FROM tickets
		WHERE deleted_at IS NOT NULL AND purge_after < $1 AND id > $2
		ORDER BY id
		LIMIT $3
	`

	rows, err := r.db.QueryContext(ctx, query, before, afterID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query ticket purge candidates: %w", err)
	}
	defer rows.Close()

	var refs []domain.RetainedRef
	for rows.Next() {
		ref := domain.RetainedRef{EntityType: domain.EntityTypeTicket}
		if err := rows.Scan(&ref.ID, &ref.OrganizationID, &ref.ParentID, &ref.PurgeAfter); err != nil {
			return nil, fmt.Errorf("failed to scan purge candidate: %w", err)
		}
		ref.PurgeAfter = ref.PurgeAfter.UTC()
		refs = append(refs, ref)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating purge candidates: %w", err)
	}
	return refs, nil
}

// LockPurgeCandidate re-reads a candidate with a row lock
func (r *PostgresTicketRepository) LockPurgeCandidate(ctx context.Context, id string, before time.Time) (*domain.RetainedRef, error) {
	query := `
		SELECT id, organization_id, project_id, purge_after
		FROM tickets
		WHERE id = $1 AND deleted_at IS NOT NULL AND purge_after < $2
		FOR UPDATE
	`

	ref := domain.RetainedRef{EntityType: domain.EntityTypeTicket}
	err := r.db.QueryRowContext(ctx, query, id, before).Scan(&ref.ID, &ref.OrganizationID, &ref.ParentID, &ref.PurgeAfter)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrTicketNotFound
		}
		return nil, fmt.Errorf("failed to lock purge candidate: %w", err)
	}
	ref.PurgeAfter = ref.PurgeAfter.UTC()
	return &ref, nil
}

// HardDelete removes a single ticket. Comments and attachments follow through
// ON DELETE CASCADE.
func (r *PostgresTicketRepository) HardDelete(ctx context.Context, organizationID, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM tickets WHERE organization_id = $1 AND id = $2`, organizationID, id)
	if err != nil {
		return fmt.Errorf("failed to delete ticket: %w", err)
	}
	n, err := rowsAffected(result)
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrTicketNotFound
	}
	return nil
}

func scanTicket(row rowScanner) (*domain.Ticket, error) {
	var ticket domain.Ticket
	var assignedTo sql.NullString
	var stamp stampScan

	dest := []interface{}{
		&ticket.ID,
		&ticket.OrganizationID,
		&ticket.ProjectID,
		&ticket.Key,
		&ticket.Title,
		&ticket.Description,
		&ticket.Status,
		&ticket.Priority,
		&assignedTo,
		&ticket.CreatedBy,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
	}
	if err := row.Scan(append(dest, stamp.dest()...)...); err != nil {
		return nil, err
	}

	ticket.CreatedAt = ticket.CreatedAt.UTC()
	ticket.UpdatedAt = ticket.UpdatedAt.UTC()
	ticket.AssignedTo = mapStringPtr(assignedTo)
	stamp.apply(&ticket.SoftDeleteStamp)
	return &ticket, nil
}
