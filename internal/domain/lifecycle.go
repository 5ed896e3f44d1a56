package domain

import (
	"math"
	"time"
)

// LifecycleState is the retention state of a Project or Ticket.
// PURGED is never stored: a purged record no longer exists.
type LifecycleState string

const (
	LifecycleActive      LifecycleState = "ACTIVE"
	LifecycleArchived    LifecycleState = "ARCHIVED"
	LifecycleSoftDeleted LifecycleState = "SOFT_DELETED"
	LifecyclePurged      LifecycleState = "PURGED"
)

// DefaultRetentionWindow is the time between soft delete and purge eligibility
const DefaultRetentionWindow = 30 * 24 * time.Hour

// EntityType names the kind of record an audit entry or trash item refers to
type EntityType string

const (
	EntityTypeProject    EntityType = "PROJECT"
	EntityTypeTicket     EntityType = "TICKET"
	EntityTypeComment    EntityType = "COMMENT"
	EntityTypeAttachment EntityType = "ATTACHMENT"
)

// SoftDeleteStamp holds the soft-delete lifecycle fields shared by Project and Ticket
type SoftDeleteStamp struct {
	DeletedAt     *time.Time `json:"deleted_at,omitempty"`
	DeletedBy     *string    `json:"deleted_by,omitempty"`
	PurgeAfter    *time.Time `json:"purge_after,omitempty"`
	DeletedReason *string    `json:"deleted_reason,omitempty"`
	RestoredAt    *time.Time `json:"restored_at,omitempty"`
	RestoredBy    *string    `json:"restored_by,omitempty"`
}

// IsDeleted reports whether the stamp marks the record as soft-deleted
func (s *SoftDeleteStamp) IsDeleted() bool {
	return s.DeletedAt != nil
}

// PurgeEligible reports whether the purge deadline has passed at now
func (s *SoftDeleteStamp) PurgeEligible(now time.Time) bool {
	return s.DeletedAt != nil && s.PurgeAfter != nil && s.PurgeAfter.Before(now)
}

func (s *SoftDeleteStamp) markDeleted(actor, reason string, now time.Time, retention time.Duration) {
	at := now
	by := actor
	purgeAfter := now.Add(retention)
	s.DeletedAt = &at
	s.DeletedBy = &by
	s.PurgeAfter = &purgeAfter
	s.DeletedReason = nil
	if reason != "" {
		r := reason
		s.DeletedReason = &r
	}
}

func (s *SoftDeleteStamp) restore(actor string, now time.Time) error {
	if s.DeletedAt == nil {
		return ErrNotDeleted
	}
	if s.PurgeAfter != nil && !now.Before(*s.PurgeAfter) {
		return ErrRetentionElapsed
	}
	at := now
	by := actor
	s.DeletedAt = nil
	s.DeletedBy = nil
	s.PurgeAfter = nil
	s.DeletedReason = nil
	s.RestoredAt = &at
	s.RestoredBy = &by
	return nil
}

// RetainedRef is the minimal view of a purge candidate returned by scans
type RetainedRef struct {
	EntityType     EntityType `json:"entity_type"`
	ID             string     `json:"id"`
	OrganizationID string     `json:"organization_id"`
	ParentID       string     `json:"parent_id,omitempty"`
	PurgeAfter     time.Time  `json:"purge_after"`
}

// DaysRemaining returns ceil(purgeAfter - now) in whole days. The value is
// negative when the deadline has passed but the record is not yet purged.
func DaysRemaining(purgeAfter, now time.Time) int {
	return int(math.Ceil(purgeAfter.Sub(now).Hours() / 24))
}
