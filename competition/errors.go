/*
errors.go - Tagged error kinds shared by every subsystem

PURPOSE:
  One structured error type with an explicit kind discriminator. The
  transport layer maps kind -> HTTP status and NEVER inspects message text;
  messages exist solely for humans correcting their input.

ERROR KINDS:
  KindValidation    -> 400  malformed or missing input (field-level)
  KindNotFound      -> 404  referenced entity absent
  KindConflict      -> 409  valid input violating a state/business invariant
  KindAuthorization -> 401  actor lacks the required role

USAGE:
  return competition.NewValidationf("valorSolicitado", "valor deve ser diferente de zero")

  if competition.IsConflict(err) { ... }

SEE ALSO:
  - api/handlers.go: kind -> status mapping at the transport boundary
*/
package competition

import (
	"errors"
	"fmt"
)

// =============================================================================
// KIND - Error discriminator
// =============================================================================

type ErrorKind string

const (
	KindValidation    ErrorKind = "validation"
	KindNotFound      ErrorKind = "not_found"
	KindConflict      ErrorKind = "conflict"
	KindAuthorization ErrorKind = "authorization"
)

// =============================================================================
// ERROR - Structured domain error
// =============================================================================

// Error carries a kind, a human-readable message, and optionally the input
// field the message refers to. Construct via the New* helpers.
type Error struct {
	Kind    ErrorKind
	Field   string // optional; set for field-level validation failures
	Message string
}

func (e *Error) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return e.Message
}

// =============================================================================
// CONSTRUCTORS
// =============================================================================

func NewValidation(field, message string) *Error {
	return &Error{Kind: KindValidation, Field: field, Message: message}
}

func NewValidationf(field, format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Field: field, Message: fmt.Sprintf(format, args...)}
}

func NewNotFound(message string) *Error {
	return &Error{Kind: KindNotFound, Message: message}
}

func NewNotFoundf(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func NewConflict(message string) *Error {
	return &Error{Kind: KindConflict, Message: message}
}

func NewConflictf(format string, args ...any) *Error {
	return &Error{Kind: KindConflict, Message: fmt.Sprintf(format, args...)}
}

func NewAuthorization(message string) *Error {
	return &Error{Kind: KindAuthorization, Message: message}
}

// =============================================================================
// PREDICATES - Use these at the transport boundary, never message text
// =============================================================================

func kindOf(err error) (ErrorKind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}

func IsValidation(err error) bool    { k, ok := kindOf(err); return ok && k == KindValidation }
func IsNotFound(err error) bool      { k, ok := kindOf(err); return ok && k == KindNotFound }
func IsConflict(err error) bool      { k, ok := kindOf(err); return ok && k == KindConflict }
func IsAuthorization(err error) bool { k, ok := kindOf(err); return ok && k == KindAuthorization }
