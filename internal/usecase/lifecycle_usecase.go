package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/fixora/tracker/internal/audit"
	"github.com/fixora/tracker/internal/domain"
	"github.com/fixora/tracker/internal/logger"
	"github.com/fixora/tracker/internal/ports"
)

// LifecycleUseCase applies archive, soft-delete and restore transitions to
// projects and tickets. Each transition runs in one unit of work and is
// audited after it commits.
type LifecycleUseCase struct {
	uow       ports.UnitOfWork
	audit     *audit.Recorder
	notifier  ports.Notifier
	clock     ports.Clock
	retention time.Duration
	logger    logger.Logger
}

// NewLifecycleUseCase creates a new lifecycle use case
func NewLifecycleUseCase(
	uow ports.UnitOfWork,
	recorder *audit.Recorder,
	notifier ports.Notifier,
	clock ports.Clock,
	retention time.Duration,
	log logger.Logger,
) *LifecycleUseCase {
	if clock == nil {
		clock = ports.SystemClock{}
	}
	if retention <= 0 {
		retention = domain.DefaultRetentionWindow
	}
	return &LifecycleUseCase{
		uow:       uow,
		audit:     recorder,
		notifier:  notifier,
		clock:     clock,
		retention: retention,
		logger:    log.WithFields(map[string]interface{}{"component": "lifecycle"}),
	}
}

// ArchiveProject moves an active project to ARCHIVED
func (uc *LifecycleUseCase) ArchiveProject(ctx context.Context, actor domain.Actor, projectID string) (*domain.Project, error) {
	if err := validateTarget(actor, projectID); err != nil {
		return nil, err
	}

	now := uc.clock.Now()
	var project *domain.Project
	err := uc.uow.Do(ctx, func(ctx context.Context, repos ports.Repositories) error {
		p, err := repos.Projects.FindByID(ctx, actor.OrganizationID, projectID)
		if err != nil {
			return err
		}
		if err := p.Archive(actor, now); err != nil {
			return err
		}
		if err := repos.Projects.Update(ctx, p); err != nil {
			return fmt.Errorf("failed to update project: %w", err)
		}
		project = p
		return nil
	})
	if err != nil {
		return nil, err
	}

	uc.record(ctx, actor, domain.AuditProjectArchive, domain.EntityTypeProject, project.ID, map[string]interface{}{
		"key": project.Key,
	})
	return project, nil
}

// UnarchiveProject moves an archived project back to ACTIVE
func (uc *LifecycleUseCase) UnarchiveProject(ctx context.Context, actor domain.Actor, projectID string) (*domain.Project, error) {
	if err := validateTarget(actor, projectID); err != nil {
		return nil, err
	}

	now := uc.clock.Now()
	var project *domain.Project
	err := uc.uow.Do(ctx, func(ctx context.Context, repos ports.Repositories) error {
		p, err := repos.Projects.FindByID(ctx, actor.OrganizationID, projectID)
		if err != nil {
			return err
		}
		if err := p.Unarchive(actor, now); err != nil {
			return err
		}
		if err := repos.Projects.Update(ctx, p); err != nil {
			return fmt.Errorf("failed to update project: %w", err)
		}
		project = p
		return nil
	})
	if err != nil {
		return nil, err
	}

	uc.record(ctx, actor, domain.AuditProjectUnarchive, domain.EntityTypeProject, project.ID, map[string]interface{}{
		"key": project.Key,
	})
	return project, nil
}

// SoftDeleteProject moves an archived project without open or in-progress
// tickets to the trash and stamps the comments and attachments of all its
// tickets with the same deletion stamp
func (uc *LifecycleUseCase) SoftDeleteProject(ctx context.Context, actor domain.Actor, projectID, reason string) (*domain.Project, error) {
	if err := validateTarget(actor, projectID); err != nil {
		return nil, err
	}

	now := uc.clock.Now()
	var (
		project *domain.Project
		tickets int
		stamped stampCounts
	)
	err := uc.uow.Do(ctx, func(ctx context.Context, repos ports.Repositories) error {
		p, err := repos.Projects.FindByID(ctx, actor.OrganizationID, projectID)
		if err != nil {
			return err
		}

		blocking, err := repos.Tickets.CountBlocking(ctx, actor.OrganizationID, p.ID, domain.BlockingTicketStatuses)
		if err != nil {
			return fmt.Errorf("failed to count blocking tickets: %w", err)
		}
		if err := p.SoftDelete(actor, reason, blocking, now, uc.retention); err != nil {
			return err
		}
		if err := repos.Projects.Update(ctx, p); err != nil {
			return fmt.Errorf("failed to update project: %w", err)
		}

		ticketIDs, err := repos.Tickets.ListIDsByProject(ctx, actor.OrganizationID, p.ID)
		if err != nil {
			return fmt.Errorf("failed to list project tickets: %w", err)
		}
		stamped, err = stampDependents(ctx, repos, actor, ticketIDs, now)
		if err != nil {
			return err
		}

		project = p
		tickets = len(ticketIDs)
		return nil
	})
	if err != nil {
		return nil, err
	}

	uc.record(ctx, actor, domain.AuditProjectSoftDelete, domain.EntityTypeProject, project.ID, map[string]interface{}{
		"key":         project.Key,
		"reason":      reason,
		"purge_after": project.PurgeAfter,
		"tickets":     tickets,
		"comments":    stamped.comments,
		"attachments": stamped.attachments,
	})
	uc.notify(ctx, ports.Notification{
		Type:           ports.NotificationTypeMovedToTrash,
		OrganizationID: project.OrganizationID,
		Recipient:      project.CreatedBy,
		EntityType:     domain.EntityTypeProject,
		EntityID:       project.ID,
		EntityKey:      project.Key,
		ActorID:        actor.UserID,
		PurgeAfter:     project.PurgeAfter,
		CreatedAt:      now,
	})
	return project, nil
}

// RestoreProject returns a soft-deleted project to ACTIVE and clears the
// cascade stamp from dependents deleted together with it
func (uc *LifecycleUseCase) RestoreProject(ctx context.Context, actor domain.Actor, projectID string) (*domain.Project, error) {
	if err := validateTarget(actor, projectID); err != nil {
		return nil, err
	}

	now := uc.clock.Now()
	var (
		project *domain.Project
		cleared stampCounts
	)
	err := uc.uow.Do(ctx, func(ctx context.Context, repos ports.Repositories) error {
		p, err := repos.Projects.FindByID(ctx, actor.OrganizationID, projectID)
		if err != nil {
			return err
		}

		var deletedAt time.Time
		if p.DeletedAt != nil {
			deletedAt = *p.DeletedAt
		}
		if err := p.Restore(actor, now); err != nil {
			return err
		}
		if err := repos.Projects.Update(ctx, p); err != nil {
			return fmt.Errorf("failed to update project: %w", err)
		}

		ticketIDs, err := repos.Tickets.ListIDsByProject(ctx, actor.OrganizationID, p.ID)
		if err != nil {
			return fmt.Errorf("failed to list project tickets: %w", err)
		}
		cleared, err = clearDependents(ctx, repos, actor, ticketIDs, deletedAt)
		if err != nil {
			return err
		}

		project = p
		return nil
	})
	if err != nil {
		return nil, err
	}

	uc.record(ctx, actor, domain.AuditProjectRestore, domain.EntityTypeProject, project.ID, map[string]interface{}{
		"key":         project.Key,
		"comments":    cleared.comments,
		"attachments": cleared.attachments,
	})
	uc.notify(ctx, ports.Notification{
		Type:           ports.NotificationTypeRestored,
		OrganizationID: project.OrganizationID,
		Recipient:      project.CreatedBy,
		EntityType:     domain.EntityTypeProject,
		EntityID:       project.ID,
		EntityKey:      project.Key,
		ActorID:        actor.UserID,
		CreatedAt:      now,
	})
	return project, nil
}

// SoftDeleteTicket moves a ticket in any workflow status to the trash
func (uc *LifecycleUseCase) SoftDeleteTicket(ctx context.Context, actor domain.Actor, ticketID, reason string) (*domain.Ticket, error) {
	if err := validateTarget(actor, ticketID); err != nil {
		return nil, err
	}

	now := uc.clock.Now()
	var (
		ticket  *domain.Ticket
		stamped stampCounts
	)
	err := uc.uow.Do(ctx, func(ctx context.Context, repos ports.Repositories) error {
		t, err := repos.Tickets.FindByID(ctx, actor.OrganizationID, ticketID)
		if err != nil {
			return err
		}
		if err := t.SoftDelete(actor, reason, now, uc.retention); err != nil {
			return err
		}
		if err := repos.Tickets.Update(ctx, t); err != nil {
			return fmt.Errorf("failed to update ticket: %w", err)
		}

		stamped, err = stampDependents(ctx, repos, actor, []string{t.ID}, now)
		if err != nil {
			return err
		}

		ticket = t
		return nil
	})
	if err != nil {
		return nil, err
	}

	uc.record(ctx, actor, domain.AuditTicketSoftDelete, domain.EntityTypeTicket, ticket.ID, map[string]interface{}{
		"key":         ticket.Key,
		"project_id":  ticket.ProjectID,
		"reason":      reason,
		"purge_after": ticket.PurgeAfter,
		"comments":    stamped.comments,
		"attachments": stamped.attachments,
	})
	uc.notify(ctx, ports.Notification{
		Type:           ports.NotificationTypeMovedToTrash,
		OrganizationID: ticket.OrganizationID,
		Recipient:      ticket.CreatedBy,
		EntityType:     domain.EntityTypeTicket,
		EntityID:       ticket.ID,
		EntityKey:      ticket.Key,
		ActorID:        actor.UserID,
		PurgeAfter:     ticket.PurgeAfter,
		CreatedAt:      now,
	})
	return ticket, nil
}

// RestoreTicket returns a soft-deleted ticket before its purge deadline
func (uc *LifecycleUseCase) RestoreTicket(ctx context.Context, actor domain.Actor, ticketID string) (*domain.Ticket, error) {
	if err := validateTarget(actor, ticketID); err != nil {
		return nil, err
	}

	now := uc.clock.Now()
	var (
		ticket  *domain.Ticket
		cleared stampCounts
	)
	err := uc.uow.Do(ctx, func(ctx context.Context, repos ports.Repositories) error {
		t, err := repos.Tickets.FindByID(ctx, actor.OrganizationID, ticketID)
		if err != nil {
			return err
		}

		var deletedAt time.Time
		if t.DeletedAt != nil {
			deletedAt = *t.DeletedAt
		}
		if err := t.Restore(actor, now); err != nil {
			return err
		}
		if err := repos.Tickets.Update(ctx, t); err != nil {
			return fmt.Errorf("failed to update ticket: %w", err)
		}

		cleared, err = clearDependents(ctx, repos, actor, []string{t.ID}, deletedAt)
		if err != nil {
			return err
		}

		ticket = t
		return nil
	})
	if err != nil {
		return nil, err
	}

	uc.record(ctx, actor, domain.AuditTicketRestore, domain.EntityTypeTicket, ticket.ID, map[string]interface{}{
		"key":         ticket.Key,
		"project_id":  ticket.ProjectID,
		"comments":    cleared.comments,
		"attachments": cleared.attachments,
	})
	uc.notify(ctx, ports.Notification{
		Type:           ports.NotificationTypeRestored,
		OrganizationID: ticket.OrganizationID,
		Recipient:      ticket.CreatedBy,
		EntityType:     domain.EntityTypeTicket,
		EntityID:       ticket.ID,
		EntityKey:      ticket.Key,
		ActorID:        actor.UserID,
		CreatedAt:      now,
	})
	return ticket, nil
}

type stampCounts struct {
	comments    int
	attachments int
}

func stampDependents(ctx context.Context, repos ports.Repositories, actor domain.Actor, ticketIDs []string, at time.Time) (stampCounts, error) {
	var counts stampCounts
	if len(ticketIDs) == 0 {
		return counts, nil
	}

	var err error
	counts.comments, err = repos.Comments.StampDeleted(ctx, actor.OrganizationID, ticketIDs, at, actor.UserID)
	if err != nil {
		return counts, fmt.Errorf("failed to stamp comments: %w", err)
	}
	counts.attachments, err = repos.Attachments.StampDeleted(ctx, actor.OrganizationID, ticketIDs, at, actor.UserID)
	if err != nil {
		return counts, fmt.Errorf("failed to stamp attachments: %w", err)
	}
	return counts, nil
}

func clearDependents(ctx context.Context, repos ports.Repositories, actor domain.Actor, ticketIDs []string, at time.Time) (stampCounts, error) {
	var counts stampCounts
	if len(ticketIDs) == 0 || at.IsZero() {
		return counts, nil
	}

	var err error
	counts.comments, err = repos.Comments.ClearDeleted(ctx, actor.OrganizationID, ticketIDs, at)
	if err != nil {
		return counts, fmt.Errorf("failed to clear comment stamps: %w", err)
	}
	counts.attachments, err = repos.Attachments.ClearDeleted(ctx, actor.OrganizationID, ticketIDs, at)
	if err != nil {
		return counts, fmt.Errorf("failed to clear attachment stamps: %w", err)
	}
	return counts, nil
}

func validateTarget(actor domain.Actor, id string) error {
	if err := actor.Validate(); err != nil {
		return err
	}
	if id == "" {
		return domain.NewDomainError("missing_id", "entity ID is required")
	}
	return nil
}

func (uc *LifecycleUseCase) record(ctx context.Context, actor domain.Actor, action domain.AuditAction, entityType domain.EntityType, entityID string, details map[string]interface{}) {
	if uc.audit == nil {
		return
	}
	uc.audit.Record(ctx, audit.Event{
		OrganizationID: actor.OrganizationID,
		ActorID:        audit.StringPtr(actor.UserID),
		Action:         action,
		EntityType:     entityType,
		EntityID:       audit.StringPtr(entityID),
		Details:        details,
	})
}

// notify delivers a notification and drops any failure
func (uc *LifecycleUseCase) notify(ctx context.Context, n ports.Notification) {
	if uc.notifier == nil || n.Recipient == "" {
		return
	}
	if err := uc.notifier.Notify(ctx, n); err != nil {
		uc.logger.Warn(ctx, "Failed to send lifecycle notification", map[string]interface{}{
			"type":      n.Type,
			"entity_id": n.EntityID,
			"error":     err.Error(),
		})
	}
}
