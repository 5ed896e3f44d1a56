package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// TicketStatus represents the workflow status of a ticket
type TicketStatus string

const (
	TicketStatusOpen       TicketStatus = "OPEN"
	TicketStatusInProgress TicketStatus = "IN_PROGRESS"
	TicketStatusDone       TicketStatus = "DONE"
	TicketStatusCancelled  TicketStatus = "CANCELLED"
)

// BlocksProjectDeletion reports whether a live ticket in this status
// prevents its project from being soft-deleted.
func (s TicketStatus) BlocksProjectDeletion() bool {
	return s == TicketStatusOpen || s == TicketStatusInProgress
}

// BlockingTicketStatuses lists statuses that block project deletion
var BlockingTicketStatuses = []TicketStatus{TicketStatusOpen, TicketStatusInProgress}

// TicketPriority represents the priority of a ticket
type TicketPriority string

const (
	TicketPriorityLow      TicketPriority = "LOW"
	TicketPriorityMedium   TicketPriority = "MEDIUM"
	TicketPriorityHigh     TicketPriority = "HIGH"
	TicketPriorityCritical TicketPriority = "CRITICAL"
)

// Ticket represents an issue inside a project
type Ticket struct {
	ID             string         `json:"id"`
	OrganizationID string         `json:"organization_id"`
	ProjectID      string         `json:"project_id"`
	Key            string         `json:"key"`
	Title          string         `json:"title"`
	Description    string         `json:"description"`
	Status         TicketStatus   `json:"status"`
	Priority       TicketPriority `json:"priority"`
	AssignedTo     *string        `json:"assigned_to,omitempty"`
	CreatedBy      string         `json:"created_by"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	SoftDeleteStamp
}

// NewTicket creates a new open ticket keyed as <project key>-<sequence>
func NewTicket(project *Project, sequence int, title, description string, priority TicketPriority, createdBy string, now time.Time) *Ticket {
	return &Ticket{
		ID:             uuid.NewString(),
		OrganizationID: project.OrganizationID,
		ProjectID:      project.ID,
		Key:            fmt.Sprintf("%s-%d", project.Key, sequence),
		Title:          title,
		Description:    description,
		Status:         TicketStatusOpen,
		Priority:       priority,
		CreatedBy:      createdBy,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// State derives the lifecycle state. Tickets have no archived state.
func (t *Ticket) State() LifecycleState {
	if t.DeletedAt != nil {
		return LifecycleSoftDeleted
	}
	return LifecycleActive
}

// SoftDelete moves the ticket to the trash regardless of workflow status
func (t *Ticket) SoftDelete(actor Actor, reason string, now time.Time, retention time.Duration) error {
	if !actor.CanManage(t.CreatedBy) {
		return ErrNotAuthorized
	}
	if t.DeletedAt != nil {
		return ErrAlreadyDeleted
	}
	t.markDeleted(actor.UserID, reason, now, retention)
	t.UpdatedAt = now
	return nil
}

// Restore returns a soft-deleted ticket to ACTIVE before its purge deadline
func (t *Ticket) Restore(actor Actor, now time.Time) error {
	if !actor.CanManage(t.CreatedBy) {
		return ErrNotAuthorized
	}
	if err := t.restore(actor.UserID, now); err != nil {
		return err
	}
	t.UpdatedAt = now
	return nil
}
