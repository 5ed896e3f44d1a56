package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/fixora/tracker/internal/domain"
)

// PostgresProjectRepository implements ProjectRepository using PostgreSQL
type PostgresProjectRepository struct {
	db dbtx
}

const projectColumns = `id, organization_id, key, name, status, created_by, created_at, updated_at,
	archived_at, archived_by, ` + softDeleteColumns

// Create saves a new project
func (r *PostgresProjectRepository) Create(ctx context.Context, project *domain.Project) error {
	query := `
		INSERT INTO projects (` + projectColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`

	args := []interface{}{
		project.ID,
		project.OrganizationID,
		project.Key,
		project.Name,
		string(project.Status),
		project.CreatedBy,
		project.CreatedAt,
		project.UpdatedAt,
		project.ArchivedAt,
		project.ArchivedBy,
	}
	args = append(args, stampArgs(project.SoftDeleteStamp)...)

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to create project: %w", err)
	}
	return nil
}

// FindByID retrieves a project by its ID within an organization
func (r *PostgresProjectRepository) FindByID(ctx context.Context, organizationID, id string) (*domain.Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects WHERE organization_id = $1 AND id = $2`

	project, err := scanProject(r.db.QueryRowContext(ctx, query, organizationID, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrProjectNotFound
		}
		return nil, fmt.Errorf("failed to find project: %w", err)
	}
	return project, nil
}

// Update persists lifecycle and descriptive fields of an existing project
func (r *PostgresProjectRepository) Update(ctx context.Context, project *domain.Project) error {
	query := `
		UPDATE projects
		SET name = $3, status = $4, updated_at = $5, archived_at = $6, archived_by = $7,
			deleted_at = $8, deleted_by = $9, deleted_reason = $10, purge_after = $11,
			restored_at = $12, restored_by = $13
		WHERE organization_id = $1 AND id = $2
	`

	args := []interface{}{
		project.OrganizationID,
		project.ID,
		project.Name,
		string(project.Status),
		project.UpdatedAt,
		project.ArchivedAt,
		project.ArchivedBy,
	}
	args = append(args, stampArgs(project.SoftDeleteStamp)...)

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update project: %w", err)
	}
	n, err := rowsAffected(result)
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrProjectNotFound
	}
	return nil
}

// ListDeleted retrieves all soft-deleted projects of an organization
func (r *PostgresProjectRepository) ListDeleted(ctx context.Context, organizationID string) ([]*domain.Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects
		WHERE organization_id = $1 AND deleted_at IS NOT NULL
		ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query, organizationID)
	if err != nil {
		return nil, fmt.Errorf("failed to query deleted projects: %w", err)
	}
	defer rows.Close()

	var projects []*domain.Project
	for rows.Next() {
		project, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		projects = append(projects, project)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating projects: %w", err)
	}
	return projects, nil
}

// ListPurgeCandidates pages through projects of every organization whose
// purge deadline has passed
func (r *PostgresProjectRepository) ListPurgeCandidates(ctx context.Context, before time.Time, afterID string, limit int) ([]domain.RetainedRef, error) {
	query := `
		SELECT id, organization_id, purge_after
		FROM projects
		WHERE deleted_at IS NOT NULL AND purge_after < $1 AND id > $2
		ORDER BY id
		LIMIT $3
	`

	rows, err := r.db.QueryContext(ctx, query, before, afterID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query project purge candidates: %w", err)
	}
	defer rows.Close()

	var refs []domain.RetainedRef
	for rows.Next() {
		ref := domain.RetainedRef{EntityType: domain.EntityTypeProject}
		if err := rows.Scan(&ref.ID, &ref.OrganizationID, &ref.PurgeAfter); err != nil {
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

// LockPurgeCandidate re-reads a candidate with a row lock. A project that was
// restored or whose deadline moved since the scan is reported as not found.
func (r *PostgresProjectRepository) LockPurgeCandidate(ctx context.Context, id string, before time.Time) (*domain.RetainedRef, error) {
	query := `
		SELECT id, organization_id, purge_after
		FROM projects
		WHERE id = $1 AND deleted_at IS NOT NULL AND purge_after < $2
		FOR UPDATE
	`

	ref := domain.RetainedRef{EntityType: domain.EntityTypeProject}
	err := r.db.QueryRowContext(ctx, query, id, before).Scan(&ref.ID, &ref.OrganizationID, &ref.PurgeAfter)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrProjectNotFound
		}
		return nil, fmt.Errorf("failed to lock purge candidate: %w", err)
	}
	ref.PurgeAfter = ref.PurgeAfter.UTC()
	return &ref, nil
}

// HardDelete removes a project. Tickets, comments and attachments follow
// through ON DELETE CASCADE.
func (r *PostgresProjectRepository) HardDelete(ctx context.Context, organizationID, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM projects WHERE organization_id = $1 AND id = $2`, organizationID, id)
	if err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}
	n, err := rowsAffected(result)
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrProjectNotFound
	}
	return nil
}

func scanProject(row rowScanner) (*domain.Project, error) {
	var project domain.Project
	var archivedAt sql.NullTime
	var archivedBy sql.NullString
	var stamp stampScan

	dest := []interface{}{
		&project.ID,
		&project.OrganizationID,
		&project.Key,
		&project.Name,
		&project.Status,
		&project.CreatedBy,
		&project.CreatedAt,
		&project.UpdatedAt,
		&archivedAt,
		&archivedBy,
	}
	if err := row.Scan(append(dest, stamp.dest()...)...); err != nil {
		return nil, err
	}

	project.CreatedAt = project.CreatedAt.UTC()
	project.UpdatedAt = project.UpdatedAt.UTC()
	project.ArchivedAt = mapTimePtr(archivedAt)
	project.ArchivedBy = mapStringPtr(archivedBy)
	stamp.apply(&project.SoftDeleteStamp)
	return &project, nil
}
