// Package audit provides the best-effort audit sink used by lifecycle
// operations and the retention purge engine.
package audit

import (
	"context"

	"github.com/fixora/tracker/internal/domain"
	"github.com/fixora/tracker/internal/logger"
	"github.com/fixora/tracker/internal/ports"
)

// Event describes one lifecycle event to append to the audit trail
type Event struct {
	OrganizationID string
	ActorID        *string
	Action         domain.AuditAction
	EntityType     domain.EntityType
	EntityID       *string
	Details        any
}

// Recorder appends audit entries. It never fails the caller: any error from
// the repository is logged and dropped.
type Recorder struct {
	repo   ports.AuditRepository
	clock  ports.Clock
	logger logger.Logger
}

// NewRecorder creates a new audit recorder
func NewRecorder(repo ports.AuditRepository, clock ports.Clock, log logger.Logger) *Recorder {
	if clock == nil {
		clock = ports.SystemClock{}
	}
	return &Recorder{
		repo:   repo,
		clock:  clock,
		logger: log.WithFields(map[string]interface{}{"component": "audit"}),
	}
}

// Record appends the event and reports whether it was stored. A nil
// Recorder stores nothing.
func (r *Recorder) Record(ctx context.Context, event Event) bool {
	if r == nil {
		return false
	}
	fields := map[string]interface{}{
		"organization_id": event.OrganizationID,
		"action":          event.Action,
		"entity_type":     event.EntityType,
	}
	if event.EntityID != nil {
		fields["entity_id"] = *event.EntityID
	}

	entry, err := domain.NewAuditEntry(
		event.OrganizationID,
		event.ActorID,
		event.Action,
		event.EntityType,
		event.EntityID,
		event.Details,
		r.clock.Now(),
	)
	if err != nil {
		r.logger.Warn(ctx, "Failed to build audit entry", withError(fields, err))
		return false
	}

	if err := r.repo.Append(ctx, entry); err != nil {
		r.logger.Warn(ctx, "Failed to append audit entry", withError(fields, err))
		return false
	}

	return true
}

func withError(fields map[string]interface{}, err error) map[string]interface{} {
	fields["error"] = err.Error()
	return fields
}

// StringPtr returns a pointer to s, or nil when s is empty
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
