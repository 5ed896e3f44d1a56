package ports

import (
	"context"
	"time"

	"github.com/fixora/tracker/internal/domain"
)

// ProjectRepository defines the interface for project persistence.
// Every method except the purge scan is scoped to one organization.
type ProjectRepository interface {
	// Create saves a new project
	Create(ctx context.Context, project *domain.Project) error

	// FindByID retrieves a project by its ID within an organization
	FindByID(ctx context.Context, organizationID, id string) (*domain.Project, error)

	// Update persists lifecycle and descriptive fields of an existing project
	Update(ctx context.Context, project *domain.Project) error

	// ListDeleted retrieves all soft-deleted projects of an organization
	ListDeleted(ctx context.Context, organizationID string) ([]*domain.Project, error)

	// ListPurgeCandidates returns up to limit soft-deleted projects of any
	// organization whose purge deadline is before the given time, ordered by
	// ID and starting strictly after afterID.
	ListPurgeCandidates(ctx context.Context, before time.Time, afterID string, limit int) ([]domain.RetainedRef, error)

	// LockPurgeCandidate re-reads a candidate inside a unit of work and
	// returns domain.ErrProjectNotFound if it is gone or no longer eligible.
	LockPurgeCandidate(ctx context.Context, id string, before time.Time) (*domain.RetainedRef, error)

	// HardDelete removes a project and, at the storage layer, its tickets
	HardDelete(ctx context.Context, organizationID, id string) error
}

// TicketRepository defines the interface for ticket persistence
type TicketRepository interface {
	// Create saves a new ticket
	Create(ctx context.Context, ticket *domain.Ticket) error

	// FindByID retrieves a ticket by its ID within an organization
	FindByID(ctx context.Context, organizationID, id string) (*domain.Ticket, error)

	// Update persists an existing ticket
	Update(ctx context.Context, ticket *domain.Ticket) error

	// ListIDsByProject returns the IDs of every ticket of a project,
	// soft-deleted or not
	ListIDsByProject(ctx context.Context, organizationID, projectID string) ([]string, error)

	// CountBlocking counts live tickets of a project in one of the statuses
	CountBlocking(ctx context.Context, organizationID, projectID string, statuses []domain.TicketStatus) (int, error)

	// ListDeleted retrieves all soft-deleted tickets of an organization
	ListDeleted(ctx context.Context, organizationID string) ([]*domain.Ticket, error)

	// ListPurgeCandidates mirrors ProjectRepository.ListPurgeCandidates.
	// RetainedRef.ParentID carries the project ID.
	ListPurgeCandidates(ctx context.Context, before time.Time, afterID string, limit int) ([]domain.RetainedRef, error)

	// LockPurgeCandidate mirrors ProjectRepository.LockPurgeCandidate
	LockPurgeCandidate(ctx context.Context, id string, before time.Time) (*domain.RetainedRef, error)

	// HardDelete removes a single ticket
	HardDelete(ctx context.Context, organizationID, id string) error
}

// CommentRepository defines the interface for comment persistence
type CommentRepository interface {
	// Create saves a new comment
	Create(ctx context.Context, comment *domain.Comment) error

	// ListByTicket retrieves all comments for a ticket
	ListByTicket(ctx context.Context, organizationID, ticketID string) ([]*domain.Comment, error)

	// StampDeleted sets the cascade soft-delete stamp on every comment of the
	// given tickets that is not already stamped
	StampDeleted(ctx context.Context, organizationID string, ticketIDs []string, at time.Time, by string) (int, error)

	// ClearDeleted removes the stamp from comments stamped exactly at
	ClearDeleted(ctx context.Context, organizationID string, ticketIDs []string, at time.Time) (int, error)

	// DeleteByTicket hard-deletes all comments of a ticket
	DeleteByTicket(ctx context.Context, organizationID, ticketID string) (int, error)
}

// AttachmentRepository defines the interface for attachment metadata persistence
type AttachmentRepository interface {
	// Create saves new attachment metadata
	Create(ctx context.Context, attachment *domain.Attachment) error

	// ListByTicket retrieves all attachments for a ticket
	ListByTicket(ctx context.Context, organizationID, ticketID string) ([]*domain.Attachment, error)

	// StampDeleted mirrors CommentRepository.StampDeleted
	StampDeleted(ctx context.Context, organizationID string, ticketIDs []string, at time.Time, by string) (int, error)

	// ClearDeleted mirrors CommentRepository.ClearDeleted
	ClearDeleted(ctx context.Context, organizationID string, ticketIDs []string, at time.Time) (int, error)

	// DeleteByTicket hard-deletes all attachment rows of a ticket
	DeleteByTicket(ctx context.Context, organizationID, ticketID string) (int, error)
}

// AuditRepository defines the interface for audit log persistence
type AuditRepository interface {
	// Append writes a new audit entry. Entries are never updated or deleted.
	Append(ctx context.Context, entry *domain.AuditEntry) error

	// List retrieves the newest audit entries of an organization, optionally
	// narrowed to one entity
	List(ctx context.Context, organizationID string, entityType domain.EntityType, entityID string, limit int) ([]*domain.AuditEntry, error)
}

// Repositories bundles the entity repositories that take part in a unit of work
type Repositories struct {
	Projects    ProjectRepository
	Tickets     TicketRepository
	Comments    CommentRepository
	Attachments AttachmentRepository
}

// UnitOfWork runs fn inside one transaction. Repositories handed to fn are
// bound to that transaction; returning an error rolls everything back.
type UnitOfWork interface {
	Do(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error
}
