// Package memory provides in-memory implementations of the entity store,
// audit log and object store for development and testing.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/fixora/tracker/internal/domain"
	"github.com/fixora/tracker/internal/ports"
)

// state holds every entity table. Values are stored by value so callers can
// never mutate the store through a returned pointer.
type state struct {
	projects    map[string]domain.Project
	tickets     map[string]domain.Ticket
	comments    map[string]domain.Comment
	attachments map[string]domain.Attachment
}

func newState() *state {
	return &state{
		projects:    make(map[string]domain.Project),
		tickets:     make(map[string]domain.Ticket),
		comments:    make(map[string]domain.Comment),
		attachments: make(map[string]domain.Attachment),
	}
}

func (s *state) clone() *state {
	c := &state{
		projects:    make(map[string]domain.Project, len(s.projects)),
		tickets:     make(map[string]domain.Ticket, len(s.tickets)),
		comments:    make(map[string]domain.Comment, len(s.comments)),
		attachments: make(map[string]domain.Attachment, len(s.attachments)),
	}
	for k, v := range s.projects {
		c.projects[k] = v
	}
	for k, v := range s.tickets {
		c.tickets[k] = v
	}
	for k, v := range s.comments {
		c.comments[k] = v
	}
	for k, v := range s.attachments {
		c.attachments[k] = v
	}
	return c
}

// guard locks the store for standalone calls. Inside a unit of work the
// store is already locked and guard is the zero value.
type guard struct {
	mu *sync.RWMutex
}

func (g guard) read() func() {
	if g.mu == nil {
		return func() {}
	}
	g.mu.RLock()
	return g.mu.RUnlock
}

func (g guard) write() func() {
	if g.mu == nil {
		return func() {}
	}
	g.mu.Lock()
	return g.mu.Unlock
}

// Store is an in-memory entity store with snapshot/commit units of work
type Store struct {
	mu    sync.RWMutex
	st    *state
	audit *AuditRepository
}

// NewStore creates an empty in-memory store
func NewStore() *Store {
	return &Store{
		st:    newState(),
		audit: NewAuditRepository(),
	}
}

// Repositories returns repositories that operate outside any unit of work
func (s *Store) Repositories() ports.Repositories {
	return newRepositories(s.st, guard{mu: &s.mu})
}

// Audit returns the audit repository backed by this store
func (s *Store) Audit() *AuditRepository {
	return s.audit
}

// Do runs fn against a private copy of the store and commits it only when fn
// succeeds. Units of work are serialized.
func (s *Store) Do(ctx context.Context, fn func(ctx context.Context, repos ports.Repositories) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx := s.st.clone()
	if err := fn(ctx, newRepositories(tx, guard{})); err != nil {
		return err
	}
	*s.st = *tx
	return nil
}

func newRepositories(st *state, g guard) ports.Repositories {
	return ports.Repositories{
		Projects:    &projectRepository{st: st, g: g},
		Tickets:     &ticketRepository{st: st, g: g},
		Comments:    &commentRepository{st: st, g: g},
		Attachments: &attachmentRepository{st: st, g: g},
	}
}

func pageRefs(refs []domain.RetainedRef, afterID string, limit int) []domain.RetainedRef {
	sort.Slice(refs, func(i, j int) bool { return refs[i].ID < refs[j].ID })
	page := make([]domain.RetainedRef, 0, limit)
	for _, ref := range refs {
		if ref.ID <= afterID {
			continue
		}
		page = append(page, ref)
		if len(page) == limit {
			break
		}
	}
	return page
}

func containsID(ids []string, id string) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}

func sameInstant(a *time.Time, b time.Time) bool {
	return a != nil && a.Equal(b)
}
