package usecase

import (
	"context"
	"fmt"

	"github.com/fixora/tracker/internal/domain"
	"github.com/fixora/tracker/internal/ports"
)

// ListTrashResponse represents the unified trash view of one organization
type ListTrashResponse struct {
	Type  domain.TrashType   `json:"type"`
	Items []domain.TrashItem `json:"items"`
	Total int                `json:"total"`
}

// TrashUseCase builds the read-only trash view
type TrashUseCase struct {
	projectRepo ports.ProjectRepository
	ticketRepo  ports.TicketRepository
	clock       ports.Clock
}

// NewTrashUseCase creates a new trash use case
func NewTrashUseCase(projectRepo ports.ProjectRepository, ticketRepo ports.TicketRepository, clock ports.Clock) *TrashUseCase {
	if clock == nil {
		clock = ports.SystemClock{}
	}
	return &TrashUseCase{
		projectRepo: projectRepo,
		ticketRepo:  ticketRepo,
		clock:       clock,
	}
}

// ListTrash returns the soft-deleted projects and tickets of the actor's
// organization ordered by purge deadline
func (uc *TrashUseCase) ListTrash(ctx context.Context, actor domain.Actor, trashType domain.TrashType) (*ListTrashResponse, error) {
	if err := actor.Validate(); err != nil {
		return nil, err
	}
	if !actor.IsAdmin() {
		return nil, domain.ErrNotAuthorized
	}
	if trashType == "" {
		trashType = domain.TrashTypeAll
	}

	now := uc.clock.Now()
	items := make([]domain.TrashItem, 0)

	if trashType.Includes(domain.EntityTypeProject) {
		projects, err := uc.projectRepo.ListDeleted(ctx, actor.OrganizationID)
		if err != nil {
			return nil, fmt.Errorf("failed to list deleted projects: %w", err)
		}
		for _, p := range projects {
			if p.OrganizationID != actor.OrganizationID {
				continue
			}
			if item, ok := domain.ProjectTrashItem(p, now); ok {
				items = append(items, item)
			}
		}
	}

	if trashType.Includes(domain.EntityTypeTicket) {
		tickets, err := uc.ticketRepo.ListDeleted(ctx, actor.OrganizationID)
		if err != nil {
			return nil, fmt.Errorf("failed to list deleted tickets: %w", err)
		}
		for _, t := range tickets {
			if t.OrganizationID != actor.OrganizationID {
				continue
			}
			if item, ok := domain.TicketTrashItem(t, now); ok {
				items = append(items, item)
			}
		}
	}

	domain.SortTrashItems(items)

	return &ListTrashResponse{
		Type:  trashType,
		Items: items,
		Total: len(items),
	}, nil
}
