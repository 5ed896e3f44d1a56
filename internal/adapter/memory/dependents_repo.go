package memory

import (
	"context"
	"sort"
	"time"

	"github.com/fixora/tracker/internal/domain"
)

type commentRepository struct {
	st *state
	g  guard
}

func (r *commentRepository) Create(ctx context.Context, comment *domain.Comment) error {
	defer r.g.write()()

	ticket, ok := r.st.tickets[comment.TicketID]
	if !ok || ticket.OrganizationID != comment.OrganizationID {
		return domain.ErrTicketNotFound
	}
	r.st.comments[comment.ID] = *comment
	return nil
}

func (r *commentRepository) ListByTicket(ctx context.Context, organizationID, ticketID string) ([]*domain.Comment, error) {
	defer r.g.read()()

	var comments []*domain.Comment
	for _, c := range r.st.comments {
		if c.OrganizationID == organizationID && c.TicketID == ticketID {
			comment := c
			comments = append(comments, &comment)
		}
	}
	sort.Slice(comments, func(i, j int) bool { return comments[i].CreatedAt.Before(comments[j].CreatedAt) })
	return comments, nil
}

func (r *commentRepository) StampDeleted(ctx context.Context, organizationID string, ticketIDs []string, at time.Time, by string) (int, error) {
	defer r.g.write()()

	stamped := 0
	for id, c := range r.st.comments {
		if c.OrganizationID != organizationID || c.DeletedAt != nil || !containsID(ticketIDs, c.TicketID) {
			continue
		}
		deletedAt, deletedBy := at, by
		c.DeletedAt, c.DeletedBy = &deletedAt, &deletedBy
		r.st.comments[id] = c
		stamped++
	}
	return stamped, nil
}

func (r *commentRepository) ClearDeleted(ctx context.Context, organizationID string, ticketIDs []string, at time.Time) (int, error) {
	defer r.g.write()()

	cleared := 0
	for id, c := range r.st.comments {
		if c.OrganizationID != organizationID || !sameInstant(c.DeletedAt, at) || !containsID(ticketIDs, c.TicketID) {
			continue
		}
		c.DeletedAt, c.DeletedBy = nil, nil
		r.st.comments[id] = c
		cleared++
	}
	return cleared, nil
}

func (r *commentRepository) DeleteByTicket(ctx context.Context, organizationID, ticketID string) (int, error) {
	defer r.g.write()()

	deleted := 0
	for id, c := range r.st.comments {
		if c.OrganizationID == organizationID && c.TicketID == ticketID {
			delete(r.st.comments, id)
			deleted++
		}
	}
	return deleted, nil
}

type attachmentRepository struct {
	st *state
	g  guard
}

func (r *attachmentRepository) Create(ctx context.Context, attachment *domain.Attachment) error {
	defer r.g.write()()

	ticket, ok := r.st.tickets[attachment.TicketID]
	if !ok || ticket.OrganizationID != attachment.OrganizationID {
		return domain.ErrTicketNotFound
	}
	r.st.attachments[attachment.ID] = *attachment
	return nil
}

func (r *attachmentRepository) ListByTicket(ctx context.Context, organizationID, ticketID string) ([]*domain.Attachment, error) {
	defer r.g.read()()

	var attachments []*domain.Attachment
	for _, a := range r.st.attachments {
		if a.OrganizationID == organizationID && a.TicketID == ticketID {
			attachment := a
			attachments = append(attachments, &attachment)
		}
	}
	sort.Slice(attachments, func(i, j int) bool { return attachments[i].ID < attachments[j].ID })
	return attachments, nil
}

func (r *attachmentRepository) StampDeleted(ctx context.Context, organizationID string, ticketIDs []string, at time.Time, by string) (int, error) {
	defer r.g.write()()

	stamped := 0
	for id, a := range r.st.attachments {
		if a.OrganizationID != organizationID || a.DeletedAt != nil || !containsID(ticketIDs, a.TicketID) {
			continue
		}
		deletedAt, deletedBy := at, by
		a.DeletedAt, a.DeletedBy = &deletedAt, &deletedBy
		r.st.attachments[id] = a
		stamped++
	}
	return stamped, nil
}

func (r *attachmentRepository) ClearDeleted(ctx context.Context, organizationID string, ticketIDs []string, at time.Time) (int, error) {
	defer r.g.write()()

	cleared := 0
	for id, a := range r.st.attachments {
		if a.OrganizationID != organizationID || !sameInstant(a.DeletedAt, at) || !containsID(ticketIDs, a.TicketID) {
			continue
		}
		a.DeletedAt, a.DeletedBy = nil, nil
		r.st.attachments[id] = a
		cleared++
	}
	return cleared, nil
}

func (r *attachmentRepository) DeleteByTicket(ctx context.Context, organizationID, ticketID string) (int, error) {
	defer r.g.write()()

	deleted := 0
	for id, a := range r.st.attachments {
		if a.OrganizationID == organizationID && a.TicketID == ticketID {
			delete(r.st.attachments, id)
			deleted++
		}
	}
	return deleted, nil
}
