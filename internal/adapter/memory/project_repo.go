package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/fixora/tracker/internal/domain"
)

type projectRepository struct {
	st *state
	g  guard
}

func (r *projectRepository) Create(ctx context.Context, project *domain.Project) error {
	defer r.g.write()()

	if _, exists := r.st.projects[project.ID]; exists {
		return fmt.Errorf("project %s already exists", project.ID)
	}
	r.st.projects[project.ID] = *project
	return nil
}

func (r *projectRepository) FindByID(ctx context.Context, organizationID, id string) (*domain.Project, error) {
	defer r.g.read()()

	project, ok := r.st.projects[id]
	if !ok || project.OrganizationID != organizationID {
		return nil, domain.ErrProjectNotFound
	}
	return &project, nil
}

func (r *projectRepository) Update(ctx context.Context, project *domain.Project) error {
	defer r.g.write()()

	existing, ok := r.st.projects[project.ID]
	if !ok || existing.OrganizationID != project.OrganizationID {
		return domain.ErrProjectNotFound
	}
	r.st.projects[project.ID] = *project
	return nil
}

func (r *projectRepository) ListDeleted(ctx context.Context, organizationID string) ([]*domain.Project, error) {
	defer r.g.read()()

	var projects []*domain.Project
	for _, p := range r.st.projects {
		if p.OrganizationID == organizationID && p.DeletedAt != nil {
			project := p
			projects = append(projects, &project)
		}
	}
	sort.Slice(projects, func(i, j int) bool { return projects[i].ID < projects[j].ID })
	return projects, nil
}

func (r *projectRepository) ListPurgeCandidates(ctx context.Context, before time.Time, afterID string, limit int) ([]domain.RetainedRef, error) {
	defer r.g.read()()

	var refs []domain.RetainedRef
	for _, p := range r.st.projects {
		if p.PurgeEligible(before) {
			refs = append(refs, projectRef(p))
		}
	}
	return pageRefs(refs, afterID, limit), nil
}

func (r *projectRepository) LockPurgeCandidate(ctx context.Context, id string, before time.Time) (*domain.RetainedRef, error) {
	defer r.g.read()()

	p, ok := r.st.projects[id]
	if !ok || !p.PurgeEligible(before) {
		return nil, domain.ErrProjectNotFound
	}
	ref := projectRef(p)
	return &ref, nil
}

func (r *projectRepository) HardDelete(ctx context.Context, organizationID, id string) error {
	defer r.g.write()()

	p, ok := r.st.projects[id]
	if !ok || p.OrganizationID != organizationID {
		return domain.ErrProjectNotFound
	}
	delete(r.st.projects, id)

	// Mirror the ON DELETE CASCADE foreign keys of the relational schema.
	for ticketID, t := range r.st.tickets {
		if t.ProjectID != id {
			continue
		}
		delete(r.st.tickets, ticketID)
		cascadeTicket(r.st, ticketID)
	}
	return nil
}

func projectRef(p domain.Project) domain.RetainedRef {
	return domain.RetainedRef{
		EntityType:     domain.EntityTypeProject,
		ID:             p.ID,
		OrganizationID: p.OrganizationID,
		PurgeAfter:     *p.PurgeAfter,
	}
}

func cascadeTicket(st *state, ticketID string) {
	for id, c := range st.comments {
		if c.TicketID == ticketID {
			delete(st.comments, id)
		}
	}
	for id, a := range st.attachments {
		if a.TicketID == ticketID {
			delete(st.attachments, id)
		}
	}
}
