package util

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5"
)

// DomainError standardizes application errors.
type DomainError struct {
	Code       string
	Message    string
	HTTPStatus int
	Details    map[string]any
	Err        error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError constructs a DomainError.
func NewDomainError(code, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, HTTPStatus: status, Details: details}
}

func NewValidationError(message string, details map[string]any) error {
	return NewDomainError("VALIDATION_FAILED", message, http.StatusBadRequest, details)
}

func NewNotFound(resource string, details map[string]any) error {
	if details == nil {
		details = map[string]any{}
	}
	return &DomainError{
		Code:       "NOT_FOUND",
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
		Details:    details,
	}
}

// NewTicketNotFound reports a missing ticket by number.
func NewTicketNotFound(ticketNumber string) error {
	return NewDomainError("TICKET_NOT_FOUND",
		fmt.Sprintf("ticket %s not found", ticketNumber),
		http.StatusNotFound,
		map[string]any{"ticket_number": ticketNumber})
}

// NewNoAssigneeFound reports a routing miss: no mapping row matched the
// five-tuple, so ticket creation must abort.
func NewNoAssigneeFound(details map[string]any) error {
	return NewDomainError("NO_ASSIGNEE_FOUND",
		"no assignee found for the provided criteria",
		http.StatusNotFound, details)
}

// NewAssigneeDirectoryMismatch reports a mapping whose assignee is missing
// from the employee directory.
func NewAssigneeDirectoryMismatch(empID string) error {
	return NewDomainError("ASSIGNEE_DIRECTORY_MISMATCH",
		"assignee not found in employee directory",
		http.StatusConflict,
		map[string]any{"assignee_emp_id": empID})
}

// NewUnknownSubDeptPrefix reports a sub-department with no ticket prefix.
func NewUnknownSubDeptPrefix(subDept string) error {
	return NewDomainError("UNKNOWN_SUBDEPT_PREFIX",
		"no ticket number prefix configured for sub-department",
		http.StatusNotFound,
		map[string]any{"sub_dept": subDept})
}

// NewInvalidCompletionDate reports an expected completion date earlier than
// the incident dates.
func NewInvalidCompletionDate(message string) error {
	return NewDomainError("INVALID_COMPLETION_DATE", message, http.StatusBadRequest, nil)
}

// NewIllegalTransition reports a status edge the state machine forbids.
func NewIllegalTransition(from, to string) error {
	return NewDomainError("ILLEGAL_TRANSITION",
		fmt.Sprintf("status cannot move from %s to %s", from, to),
		http.StatusConflict,
		map[string]any{"from": from, "to": to})
}

func NewUnauthorized(message string) error {
	return NewDomainError("UNAUTHORIZED", message, http.StatusUnauthorized, nil)
}

func NewForbidden(message string) error {
	return NewDomainError("FORBIDDEN", message, http.StatusForbidden, nil)
}

func NewConflict(message string, details map[string]any) error {
	return NewDomainError("CONFLICT", message, http.StatusConflict, details)
}

func NewInternalError(err error) error {
	return &DomainError{
		Code:       "INTERNAL_ERROR",
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// ToDomainError converts generic errors to DomainError.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	if errors.Is(err, pgx.ErrNoRows) {
		if de, ok := NewNotFound("resource", nil).(*DomainError); ok {
			return de
		}
	}
	return &DomainError{
		Code:       "INTERNAL_ERROR",
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

func MapError(err error) error {
	if err == nil {
		return nil
	}
	return ToDomainError(err)
}

// IsCode reports whether err is a DomainError carrying the given code.
func IsCode(err error, code string) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code == code
	}
	return false
}
