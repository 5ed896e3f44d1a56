package retention

import (
	"context"
	"fmt"
	"time"

	"github.com/fixora/tracker/internal/domain"
	"github.com/fixora/tracker/internal/ports"
)

// retainedKind is the capability set the generic purge pipeline needs for
// one kind of retained entity
type retainedKind struct {
	entityType domain.EntityType
	action     domain.AuditAction

	// scan pages through eligible candidates across all organizations
	scan func(ctx context.Context, before time.Time, afterID string, limit int) ([]domain.RetainedRef, error)

	// lock re-reads a candidate inside the unit of work
	lock func(ctx context.Context, repos ports.Repositories, id string, before time.Time) (*domain.RetainedRef, error)

	// loadDependents returns the IDs of the tickets purged with the candidate
	loadDependents func(ctx context.Context, repos ports.Repositories, ref domain.RetainedRef) ([]string, error)

	// deleteSelf hard-deletes the candidate row
	deleteSelf func(ctx context.Context, repos ports.Repositories, ref domain.RetainedRef) error
}

func projectKind(scanner ports.ProjectRepository) retainedKind {
	return retainedKind{
		entityType: domain.EntityTypeProject,
		action:     domain.AuditProjectPurge,
		scan:       scanner.ListPurgeCandidates,
		lock: func(ctx context.Context, repos ports.Repositories, id string, before time.Time) (*domain.RetainedRef, error) {
			return repos.Projects.LockPurgeCandidate(ctx, id, before)
		},
		loadDependents: func(ctx context.Context, repos ports.Repositories, ref domain.RetainedRef) ([]string, error) {
			return repos.Tickets.ListIDsByProject(ctx, ref.OrganizationID, ref.ID)
		},
		deleteSelf: func(ctx context.Context, repos ports.Repositories, ref domain.RetainedRef) error {
			return repos.Projects.HardDelete(ctx, ref.OrganizationID, ref.ID)
		},
	}
}

func ticketKind(scanner ports.TicketRepository) retainedKind {
	return retainedKind{
		entityType: domain.EntityTypeTicket,
		action:     domain.AuditTicketPurge,
		scan:       scanner.ListPurgeCandidates,
		lock: func(ctx context.Context, repos ports.Repositories, id string, before time.Time) (*domain.RetainedRef, error) {
			return repos.Tickets.LockPurgeCandidate(ctx, id, before)
		},
		loadDependents: func(ctx context.Context, repos ports.Repositories, ref domain.RetainedRef) ([]string, error) {
			return []string{ref.ID}, nil
		},
		deleteSelf: func(ctx context.Context, repos ports.Repositories, ref domain.RetainedRef) error {
			return repos.Tickets.HardDelete(ctx, ref.OrganizationID, ref.ID)
		},
	}
}

// cascadeSummary is written to the purge audit entry
type cascadeSummary struct {
	Tickets         int      `json:"tickets"`
	Comments        int      `json:"comments"`
	Attachments     int      `json:"attachments"`
	ObjectKeys      int      `json:"object_keys"`
	OrphanedObjects []string `json:"orphaned_objects,omitempty"`
}

// deleteDependents removes the remote objects, then the comment and
// attachment rows, of every ticket in ticketIDs
func (p *Purger) deleteDependents(ctx context.Context, repos ports.Repositories, organizationID string, ticketIDs []string) (cascadeSummary, error) {
	summary := cascadeSummary{Tickets: len(ticketIDs)}

	for _, ticketID := range ticketIDs {
		attachments, err := repos.Attachments.ListByTicket(ctx, organizationID, ticketID)
		if err != nil {
			return summary, fmt.Errorf("failed to list attachments of ticket %s: %w", ticketID, err)
		}

		keys := make([]string, 0, len(attachments))
		for _, a := range attachments {
			keys = append(keys, a.ObjectKey)
		}
		summary.ObjectKeys += len(keys)
		summary.OrphanedObjects = append(summary.OrphanedObjects, p.objects.deleteAll(ctx, keys)...)

		comments, err := repos.Comments.DeleteByTicket(ctx, organizationID, ticketID)
		if err != nil {
			return summary, fmt.Errorf("failed to delete comments of ticket %s: %w", ticketID, err)
		}
		summary.Comments += comments

		removed, err := repos.Attachments.DeleteByTicket(ctx, organizationID, ticketID)
		if err != nil {
			return summary, fmt.Errorf("failed to delete attachments of ticket %s: %w", ticketID, err)
		}
		summary.Attachments += removed
	}

	return summary, nil
}
