package domain

import (
	"time"

	"github.com/google/uuid"
)

// Organization is the tenant boundary every other record belongs to
type Organization struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ProjectStatus represents the stored status of a project
type ProjectStatus string

const (
	ProjectStatusActive   ProjectStatus = "ACTIVE"
	ProjectStatusArchived ProjectStatus = "ARCHIVED"
)

// Project groups tickets under a human key such as "OPS"
type Project struct {
	ID             string        `json:"id"`
	OrganizationID string        `json:"organization_id"`
	Key            string        `json:"key"`
	Name           string        `json:"name"`
	Status         ProjectStatus `json:"status"`
	CreatedBy      string        `json:"created_by"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
	ArchivedAt     *time.Time    `json:"archived_at,omitempty"`
	ArchivedBy     *string       `json:"archived_by,omitempty"`
	SoftDeleteStamp
}

// NewProject creates a new active project
func NewProject(organizationID, key, name, createdBy string, now time.Time) *Project {
	return &Project{
		ID:             uuid.NewString(),
		OrganizationID: organizationID,
		Key:            key,
		Name:           name,
		Status:         ProjectStatusActive,
		CreatedBy:      createdBy,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// State derives the lifecycle state from the stored timestamps
func (p *Project) State() LifecycleState {
	switch {
	case p.DeletedAt != nil:
		return LifecycleSoftDeleted
	case p.ArchivedAt != nil:
		return LifecycleArchived
	default:
		return LifecycleActive
	}
}

// Archive moves an active project to ARCHIVED
func (p *Project) Archive(actor Actor, now time.Time) error {
	if !actor.IsAdmin() {
		return ErrNotAuthorized
	}
	switch p.State() {
	case LifecycleSoftDeleted:
		return ErrAlreadyDeleted
	case LifecycleArchived:
		return ErrAlreadyArchived
	}
	at := now
	by := actor.UserID
	p.ArchivedAt = &at
	p.ArchivedBy = &by
	p.Status = ProjectStatusArchived
	p.UpdatedAt = now
	return nil
}

// Unarchive moves an archived project back to ACTIVE
func (p *Project) Unarchive(actor Actor, now time.Time) error {
	if !actor.IsAdmin() {
		return ErrNotAuthorized
	}
	switch p.State() {
	case LifecycleSoftDeleted:
		return ErrAlreadyDeleted
	case LifecycleActive:
		return ErrProjectNotArchived
	}
	p.ArchivedAt = nil
	p.ArchivedBy = nil
	p.Status = ProjectStatusActive
	p.UpdatedAt = now
	return nil
}

// SoftDelete moves an archived project to the trash. blockingTickets is the
// number of live tickets in OPEN or IN_PROGRESS; any such ticket blocks the
// transition. The project is left untouched when an error is returned.
func (p *Project) SoftDelete(actor Actor, reason string, blockingTickets int, now time.Time, retention time.Duration) error {
	if !actor.CanManage(p.CreatedBy) {
		return ErrNotAuthorized
	}
	if p.DeletedAt != nil {
		return ErrAlreadyDeleted
	}
	if p.ArchivedAt == nil {
		return ErrProjectNotArchived
	}
	if blockingTickets > 0 {
		return ErrProjectHasActiveTickets
	}
	p.markDeleted(actor.UserID, reason, now, retention)
	p.UpdatedAt = now
	return nil
}

// Restore returns a soft-deleted project to ACTIVE before its purge deadline
func (p *Project) Restore(actor Actor, now time.Time) error {
	if !actor.CanManage(p.CreatedBy) {
		return ErrNotAuthorized
	}
	if err := p.restore(actor.UserID, now); err != nil {
		return err
	}
	p.ArchivedAt = nil
	p.ArchivedBy = nil
	p.Status = ProjectStatusActive
	p.UpdatedAt = now
	return nil
}
