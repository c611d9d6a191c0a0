package fault

import (
	"errors"
	"fmt"

	"github.com/geocoder89/userhub/internal/domain/user"
)

// Kind is the closed set of domain error kinds the service can return.
type Kind string

const (
	KindValidation   Kind = "validation_failed"
	KindNotFound     Kind = "not_found"
	KindConflict     Kind = "conflict"
	KindUnauthorized Kind = "unauthorized"
	KindInternal     Kind = "internal"
)

// FieldViolation is one field-level validation failure, in rule order.
type FieldViolation struct {
	Field   string `json:"field"`
	Rule    string `json:"rule"`
	Param   string `json:"param,omitempty"`
	Message string `json:"message"`
}

// Error is the single error value every service operation returns on failure.
// Cause is kept for server-side logging only and never rendered to callers
// outside dev mode.
type Error struct {
	Kind    Kind
	Message string
	Fields  []FieldViolation
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func Validation(fields []FieldViolation) *Error {
	return &Error{Kind: KindValidation, Message: "validation failed", Fields: fields}
}

func NotFound(message string) *Error {
	return &Error{Kind: KindNotFound, Message: message}
}

func Conflict(message string) *Error {
	return &Error{Kind: KindConflict, Message: message}
}

func Unauthorized(message string) *Error {
	return &Error{Kind: KindUnauthorized, Message: message}
}

func Internal(message string, cause error) *Error {
	return &Error{Kind: KindInternal, Message: message, Cause: cause}
}

// FromStore maps a storage-level signal onto the taxonomy. Unique-constraint
// signals become Conflict, missing-record signals NotFound, anything else
// Internal with the cause attached for logging.
func FromStore(err error, internalMsg string) *Error {
	switch {
	case errors.Is(err, user.ErrNotFound):
		return NotFound("User not found")
	case errors.Is(err, user.ErrEmailTaken):
		return Conflict("Email already in use")
	case errors.Is(err, user.ErrUsernameTaken):
		return Conflict("Username already in use")
	default:
		return Internal(internalMsg, err)
	}
}

// KindOf extracts the kind from any error returned by the service.
func KindOf(err error) (Kind, bool) {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind, true
	}
	return "", false
}
