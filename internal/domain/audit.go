package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// AuditAction names a lifecycle event written to the audit trail
type AuditAction string

const (
	AuditProjectArchive    AuditAction = "PROJECT_ARCHIVE"
	AuditProjectUnarchive  AuditAction = "PROJECT_UNARCHIVE"
	AuditProjectSoftDelete AuditAction = "PROJECT_SOFT_DELETE"
	AuditProjectRestore    AuditAction = "PROJECT_RESTORE"
	AuditProjectPurge      AuditAction = "PROJECT_PURGE"
	AuditTicketSoftDelete  AuditAction = "TICKET_SOFT_DELETE"
	AuditTicketRestore     AuditAction = "TICKET_RESTORE"
	AuditTicketPurge       AuditAction = "TICKET_PURGE"
	AuditCleanupFailed     AuditAction = "CLEANUP_FAILED"
)

// AuditEntry is an append-only record of a lifecycle event
type AuditEntry struct {
	ID             string          `json:"id"`
	OrganizationID string          `json:"organization_id"`
	ActorID        *string         `json:"actor_id,omitempty"`
	Action         AuditAction     `json:"action"`
	EntityType     EntityType      `json:"entity_type"`
	EntityID       *string         `json:"entity_id,omitempty"`
	Details        json.RawMessage `json:"details,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
}

// NewAuditEntry builds an entry; details is serialized to JSON when non-nil
func NewAuditEntry(organizationID string, actorID *string, action AuditAction, entityType EntityType, entityID *string, details any, now time.Time) (*AuditEntry, error) {
	entry := &AuditEntry{
		ID:             uuid.NewString(),
		OrganizationID: organizationID,
		ActorID:        actorID,
		Action:         action,
		EntityType:     entityType,
		EntityID:       entityID,
		CreatedAt:      now,
	}
	if details != nil {
		raw, err := json.Marshal(details)
		if err != nil {
			return nil, err
		}
		entry.Details = raw
	}
	return entry, nil
}
