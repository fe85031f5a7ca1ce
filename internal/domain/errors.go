package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies import failures so callers can map them to a status.
type ErrorKind string

const (
	KindUnknown    ErrorKind = "unknown"
	KindNotFound   ErrorKind = "not_found"
	KindConflict   ErrorKind = "conflict"
	KindValidation ErrorKind = "validation"
)

// Error is a typed import failure. Identifiers lists the offending
// caller-supplied identifiers, when there are any.
type Error struct {
	Kind        ErrorKind
	Message     string
	Identifiers []string
}

func (e *Error) Error() string {
	return e.Message
}

// NotFoundError reports referenced entities that do not exist
func NotFoundError(identifiers []string, format string, args ...interface{}) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...), Identifiers: identifiers}
}

// ConflictError reports entities whose parent references disagree
func ConflictError(identifiers []string, format string, args ...interface{}) *Error {
	return &Error{Kind: KindConflict, Message: fmt.Sprintf(format, args...), Identifiers: identifiers}
}

// ValidationError reports input that is insufficient to create a project
func ValidationError(format string, args ...interface{}) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

// KindOf extracts the error kind from any error.
// Returns KindUnknown if err is not a domain error.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// IsKind checks if the error has the specified kind
func IsKind(err error, kind ErrorKind) bool {
	return KindOf(err) == kind
}

// IdentifiersOf returns the identifiers carried by a domain error, or nil
func IdentifiersOf(err error) []string {
	var e *Error
	if errors.As(err, &e) {
		return e.Identifiers
	}
	return nil
}
