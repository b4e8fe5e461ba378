// Package apperr defines the error kinds workflows report to callers.
//
// Every error a workflow returns deliberately is an *Error whose Kind is
// one of the sentinels below; callers test with errors.Is. Anything else is
// an unexpected failure.
package apperr

import (
	"errors"
	"fmt"
	"sort"
)

var (
	// ErrValidation: malformed input, invalid assignment type, unenrolled users.
	ErrValidation = errors.New("validation failed")
	// ErrConflict: uniqueness or state conflicts (already assigned, existing submissions).
	ErrConflict = errors.New("conflict")
	// ErrNotFound: a referenced entity does not exist.
	ErrNotFound = errors.New("not found")
	// ErrExternal: a hard dependency (cohort gateway) failed.
	ErrExternal = errors.New("external dependency failed")
)

// Error is a classified error with a human-readable message and optional
// itemized lists (for example the emails that are not enrolled).
type Error struct {
	Kind   error
	Msg    string
	Fields map[string][]string
	cause  error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return e.Msg + ": " + e.cause.Error()
	}
	return e.Msg
}

// Unwrap exposes both the kind and the underlying cause to errors.Is/As.
func (e *Error) Unwrap() []error {
	if e.cause != nil {
		return []error{e.Kind, e.cause}
	}
	return []error{e.Kind}
}

// WithField attaches an itemized list. Values are sorted for stable output.
func (e *Error) WithField(key string, values []string) *Error {
	if e.Fields == nil {
		e.Fields = map[string][]string{}
	}
	v := append([]string(nil), values...)
	sort.Strings(v)
	e.Fields[key] = v
	return e
}

// FieldNames returns the attached field keys in sorted order.
func (e *Error) FieldNames() []string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func newf(kind error, cause error, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...), cause: cause}
}

// Validation builds an ErrValidation error.
func Validation(format string, args ...any) *Error {
	return newf(ErrValidation, nil, format, args...)
}

// Conflict builds an ErrConflict error.
func Conflict(format string, args ...any) *Error {
	return newf(ErrConflict, nil, format, args...)
}

// NotFound builds an ErrNotFound error.
func NotFound(format string, args ...any) *Error {
	return newf(ErrNotFound, nil, format, args...)
}

// External wraps a dependency failure as ErrExternal.
func External(cause error, format string, args ...any) *Error {
	return newf(ErrExternal, cause, format, args...)
}

// As returns the *Error in err's chain, if any.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}
