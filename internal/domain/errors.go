package domain

import "errors"

// ErrorKind classifies a domain error so callers can decide how to surface it
type ErrorKind string

const (
	ErrorKindValidation ErrorKind = "validation"
	ErrorKindForbidden  ErrorKind = "forbidden"
	ErrorKindNotFound   ErrorKind = "not_found"
	ErrorKindConflict   ErrorKind = "conflict"
)

// DomainError represents a domain-specific error
type DomainError struct {
	Kind    ErrorKind
	Code    string
	Message string
}

func (e *DomainError) Error() string {
	return e.Message
}

// NewDomainError creates a validation error with the given code and message
func NewDomainError(code, message string) *DomainError {
	return &DomainError{Kind: ErrorKindValidation, Code: code, Message: message}
}

func newError(kind ErrorKind, code, message string) *DomainError {
	return &DomainError{Kind: kind, Code: code, Message: message}
}

// Lifecycle errors
var (
	ErrMissingActor            = newError(ErrorKindValidation, "missing_actor", "actor is required")
	ErrProjectNotArchived      = newError(ErrorKindValidation, "not_archived", "project must be archived before it can be deleted")
	ErrProjectHasActiveTickets = newError(ErrorKindValidation, "has_active_children", "project has open or in-progress tickets")
	ErrAlreadyArchived         = newError(ErrorKindConflict, "already_archived", "project is already archived")
	ErrAlreadyDeleted          = newError(ErrorKindConflict, "already_deleted", "entity is already in trash")
	ErrNotDeleted              = newError(ErrorKindConflict, "not_deleted", "entity is not in trash")
	ErrRetentionElapsed        = newError(ErrorKindConflict, "retention_elapsed", "retention window has elapsed, entity can no longer be restored")
	ErrNotAuthorized           = newError(ErrorKindForbidden, "not_authorized", "actor is not allowed to perform this action")
	ErrProjectNotFound         = newError(ErrorKindNotFound, "project_not_found", "project not found")
	ErrTicketNotFound          = newError(ErrorKindNotFound, "ticket_not_found", "ticket not found")
	ErrInvalidTrashType        = newError(ErrorKindValidation, "invalid_type", "trash type must be ALL, PROJECT or TICKET")
)

// KindOf returns the kind of a domain error anywhere in err's chain, or "" if
// err is not a domain error.
func KindOf(err error) ErrorKind {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Kind
	}
	return ""
}

// IsNotFound reports whether err is a not-found domain error
func IsNotFound(err error) bool {
	return KindOf(err) == ErrorKindNotFound
}
