package error

import (
	"errors"
	"net/http"

	"github.com/fixora/tracker/internal/domain"
)

type AppError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
}

func (e *AppError) Error() string {
	return e.Message
}

var (
	ErrBadRequest     = &AppError{Code: "bad_request", Message: "Bad request", Status: http.StatusBadRequest}
	ErrUnauthorized   = &AppError{Code: "unauthorized", Message: "Unauthorized", Status: http.StatusUnauthorized}
	ErrForbidden      = &AppError{Code: "forbidden", Message: "Forbidden", Status: http.StatusForbidden}
	ErrNotFound       = &AppError{Code: "not_found", Message: "Not found", Status: http.StatusNotFound}
	ErrInternalServer = &AppError{Code: "internal_error", Message: "Internal server error", Status: http.StatusInternalServerError}
	ErrConflict       = &AppError{Code: "conflict", Message: "Conflict", Status: http.StatusConflict}
)

func NewBadRequest(code, message string) *AppError {
	return &AppError{Code: code, Message: message, Status: http.StatusBadRequest}
}

func NewUnauthorized(message string) *AppError {
	return &AppError{Code: "unauthorized", Message: message, Status: http.StatusUnauthorized}
}

func NewForbidden(code, message string) *AppError {
	return &AppError{Code: code, Message: message, Status: http.StatusForbidden}
}

func NewNotFound(code, message string) *AppError {
	return &AppError{Code: code, Message: message, Status: http.StatusNotFound}
}

func NewInternalServer(message string) *AppError {
	return &AppError{Code: "internal_error", Message: message, Status: http.StatusInternalServerError}
}

func NewConflict(code, message string) *AppError {
	return &AppError{Code: code, Message: message, Status: http.StatusConflict}
}

// MapError converts an error into an AppError. Domain errors keep their code
// so callers can tell which precondition failed.
func MapError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	var domainErr *domain.DomainError
	if errors.As(err, &domainErr) {
		switch domainErr.Kind {
		case domain.ErrorKindValidation:
			return NewBadRequest(domainErr.Code, domainErr.Message)
		case domain.ErrorKindForbidden:
			return NewForbidden(domainErr.Code, domainErr.Message)
		case domain.ErrorKindNotFound:
			return NewNotFound(domainErr.Code, domainErr.Message)
		case domain.ErrorKindConflict:
			return NewConflict(domainErr.Code, domainErr.Message)
		}
	}

	return NewInternalServer("An unexpected error occurred")
}
