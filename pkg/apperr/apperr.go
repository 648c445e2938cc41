// Package apperr defines the error kinds surfaced by the service layer.
// Handlers translate a kind into an HTTP status; everything below the
// handler layer deals in these typed errors only.
package apperr

import (
	"errors"
	"fmt"
	"strings"
)

type Kind int

const (
	KindUnknown Kind = iota
	// KindValidation marks malformed, missing, or wrong-count input.
	KindValidation
	// KindNotFound marks records that are absent or not owned by the
	// caller. The two cases are intentionally indistinguishable.
	KindNotFound
	// KindConflict marks uniqueness violations and referential guards.
	KindConflict
	// KindAuth marks failed credential checks and inactive accounts,
	// without revealing which.
	KindAuth
	// KindStorage marks backing-store failures after a full rollback.
	KindStorage
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindAuth:
		return "auth"
	case KindStorage:
		return "storage"
	default:
		return "unknown"
	}
}

// Error carries a kind, a caller-facing message and, for validation
// failures, the names of the offending fields.
type Error struct {
	Kind   Kind
	Msg    string
	Fields []string
	Err    error
}

func (e *Error) Error() string {
	if len(e.Fields) > 0 {
		return fmt.Sprintf("%s: %s (fields: %s)", e.Kind, e.Msg, strings.Join(e.Fields, ", "))
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

func Validation(msg string, fields ...string) *Error {
	return &Error{Kind: KindValidation, Msg: msg, Fields: fields}
}

func Validationf(format string, args ...interface{}) *Error {
	return &Error{Kind: KindValidation, Msg: fmt.Sprintf(format, args...)}
}

func NotFound(msg string) *Error {
	return &Error{Kind: KindNotFound, Msg: msg}
}

func Conflict(msg string) *Error {
	return &Error{Kind: KindConflict, Msg: msg}
}

func Auth(msg string) *Error {
	return &Error{Kind: KindAuth, Msg: msg}
}

// Storage wraps a backing-store failure; the original error is retained
// for logging but never shown to the caller.
func Storage(op string, err error) *Error {
	return &Error{Kind: KindStorage, Msg: op, Err: err}
}

// KindOf returns the kind of err, or KindUnknown if err does not carry one.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

func IsValidation(err error) bool { return KindOf(err) == KindValidation }
func IsNotFound(err error) bool   { return KindOf(err) == KindNotFound }
func IsConflict(err error) bool   { return KindOf(err) == KindConflict }
func IsAuth(err error) bool       { return KindOf(err) == KindAuth }
func IsStorage(err error) bool    { return KindOf(err) == KindStorage }
