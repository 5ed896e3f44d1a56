package memory

import (
	"context"
	"sync"

	"github.com/fixora/tracker/internal/domain"
)

// AuditRepository is an append-only in-memory audit log
type AuditRepository struct {
	mu      sync.RWMutex
	entries []domain.AuditEntry
}

// NewAuditRepository creates an empty audit log
func NewAuditRepository() *AuditRepository {
	return &AuditRepository{}
}

// Append writes a new entry
func (r *AuditRepository) Append(ctx context.Context, entry *domain.AuditEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.entries = append(r.entries, *entry)
	return nil
}

// List returns the newest entries of an organization first
func (r *AuditRepository) List(ctx context.Context, organizationID string, entityType domain.EntityType, entityID string, limit int) ([]*domain.AuditEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*domain.AuditEntry
	for i := len(r.entries) - 1; i >= 0; i-- {
		e := r.entries[i]
		if e.OrganizationID != organizationID {
			continue
		}
		if entityType != "" && e.EntityType != entityType {
			continue
		}
		if entityID != "" && (e.EntityID == nil || *e.EntityID != entityID) {
			continue
		}
		entry := e
		result = append(result, &entry)
		if limit > 0 && len(result) == limit {
			break
		}
	}
	return result, nil
}

// Entries returns every entry in append order
func (r *AuditRepository) Entries() []domain.AuditEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.AuditEntry, len(r.entries))
	copy(out, r.entries)
	return out
}

// CountAction returns how many entries carry the action
func (r *AuditRepository) CountAction(action domain.AuditAction) int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	count := 0
	for _, e := range r.entries {
		if e.Action == action {
			count++
		}
	}
	return count
}
