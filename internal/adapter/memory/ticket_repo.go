package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/fixora/tracker/internal/domain"
)

type ticketRepository struct {
	st *state
	g  guard
}

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	defer r.g.write()()

	if _, exists := r.st.tickets[ticket.ID]; exists {
		return fmt.Errorf("ticket %s already exists", ticket.ID)
	}
	project, ok := r.st.projects[ticket.ProjectID]
	if !ok || project.OrganizationID != ticket.OrganizationID {
		return domain.ErrProjectNotFound
	}
	r.st.tickets[ticket.ID] = *ticket
	return nil
}

func (r *ticketRepository) FindByID(ctx context.Context, organizationID, id string) (*domain.Ticket, error) {
	defer r.g.read()()

	ticket, ok := r.st.tickets[id]
	if !ok || ticket.OrganizationID != organizationID {
		return nil, domain.ErrTicketNotFound
	}
	return &ticket, nil
}

func (r *ticketRepository) Update(ctx context.Context, ticket *domain.Ticket) error {
	defer r.g.write()()

	existing, ok := r.st.tickets[ticket.ID]
	if !ok || existing.OrganizationID != ticket.OrganizationID {
		return domain.ErrTicketNotFound
	}
	r.st.tickets[ticket.ID] = *ticket
	return nil
}

func (r *ticketRepository) ListIDsByProject(ctx context.Context, organizationID, projectID string) ([]string, error) {
	defer r.g.read()()

	var ids []string
	for _, t := range r.st.tickets {
		if t.OrganizationID == organizationID && t.ProjectID == projectID {
			ids = append(ids, t.ID)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (r *ticketRepository) CountBlocking(ctx context.Context, organizationID, projectID string, statuses []domain.TicketStatus) (int, error) {
	defer r.g.read()()

	count := 0
	for _, t := range r.st.tickets {
		if t.OrganizationID != organizationID || t.ProjectID != projectID || t.DeletedAt != nil {
			continue
		}
		for _, s := range statuses {
			if t.Status == s {
				count++
				break
			}
		}
	}
	return count, nil
}

func (r *ticketRepository) ListDeleted(ctx context.Context, organizationID string) ([]*domain.Ticket, error) {
	defer r.g.read()()

	var tickets []*domain.Ticket
	for _, t := range r.st.tickets {
		if t.OrganizationID == organizationID && t.DeletedAt != nil {
			ticket := t
			tickets = append(tickets, &ticket)
		}
	}
	sort.Slice(tickets, func(i, j int) bool { return tickets[i].ID < tickets[j].ID })
	return tickets, nil
}

func (r *ticketRepository) ListPurgeCandidates(ctx context.Context, before time.Time, afterID string, limit int) ([]domain.RetainedRef, error) {
	defer r.g.read()()

	var refs []domain.RetainedRef
	for _, t := range r.st.tickets {
		if t.PurgeEligible(before) {
			refs = append(refs, ticketRef(t))
		}
	}
	return pageRefs(refs, afterID, limit), nil
}

func (r *ticketRepository) LockPurgeCandidate(ctx context.Context, id string, before time.Time) (*domain.RetainedRef, error) {
	defer r.g.read()()

	t, ok := r.st.tickets[id]
	if !ok || !t.PurgeEligible(before) {
		return nil, domain.ErrTicketNotFound
	}
	ref := ticketRef(t)
	return &ref, nil
}

func (r *ticketRepository) HardDelete(ctx context.Context, organizationID, id string) error {
	defer r.g.write()()

	t, ok := r.st.tickets[id]
	if !ok || t.OrganizationID != organizationID {
		return domain.ErrTicketNotFound
	}
	delete(r.st.tickets, id)
	cascadeTicket(r.st, id)
	return nil
}

func ticketRef(t domain.Ticket) domain.RetainedRef {
	return domain.RetainedRef{
		EntityType:     domain.EntityTypeTicket,
		ID:             t.ID,
		OrganizationID: t.OrganizationID,
		ParentID:       t.ProjectID,
		PurgeAfter:     *t.PurgeAfter,
	}
}
