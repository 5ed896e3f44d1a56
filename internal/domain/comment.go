package domain

import (
	"time"

	"github.com/google/uuid"
)

// Comment represents a comment on a ticket. DeletedAt/DeletedBy are only set
// by the cascade of a parent soft delete.
type Comment struct {
	ID             string     `json:"id"`
	OrganizationID string     `json:"organization_id"`
	TicketID       string     `json:"ticket_id"`
	AuthorID       string     `json:"author_id"`
	Body           string     `json:"body"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
	DeletedAt      *time.Time `json:"-"`
	DeletedBy      *string    `json:"-"`
}

// NewComment creates a new comment
func NewComment(ticket *Ticket, authorID, body string, now time.Time) *Comment {
	return &Comment{
		ID:             uuid.NewString(),
		OrganizationID: ticket.OrganizationID,
		TicketID:       ticket.ID,
		AuthorID:       authorID,
		Body:           body,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// Attachment is a file uploaded to a ticket. The blob lives in the object
// store under ObjectKey.
type Attachment struct {
	ID             string     `json:"id"`
	OrganizationID string     `json:"organization_id"`
	TicketID       string     `json:"ticket_id"`
	UploadedBy     string     `json:"uploaded_by"`
	FileName       string     `json:"file_name"`
	ContentType    string     `json:"content_type"`
	SizeBytes      int64      `json:"size_bytes"`
	ObjectKey      string     `json:"object_key"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
	DeletedAt      *time.Time `json:"-"`
	DeletedBy      *string    `json:"-"`
}

// NewAttachment creates attachment metadata for an uploaded object
func NewAttachment(ticket *Ticket, uploadedBy, fileName, contentType string, size int64, objectKey string, now time.Time) *Attachment {
	return &Attachment{
		ID:             uuid.NewString(),
		OrganizationID: ticket.OrganizationID,
		TicketID:       ticket.ID,
		UploadedBy:     uploadedBy,
		FileName:       fileName,
		ContentType:    contentType,
		SizeBytes:      size,
		ObjectKey:      objectKey,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}
