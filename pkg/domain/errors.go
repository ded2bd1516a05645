package domain

import (
	"errors"
	"fmt"
)

// Kind classifies errors so callers can decide whether to retry
type Kind string

// error kinds shared by clients, store and pipeline stages
const (
	KindNetwork    Kind = "NETWORK_ERROR"
	KindParse      Kind = "PARSE_ERROR"
	KindRateLimit  Kind = "RATE_LIMIT"
	KindAPI        Kind = "API_ERROR"
	KindValidation Kind = "VALIDATION_ERROR"
	KindNotFound   Kind = "NOT_FOUND"
)

// Error is a classified error with an optional details payload, e.g. the rate limit note
type Error struct {
	Kind    Kind
	Op      string
	Err     error
	Details string
}

// Errorf makes a classified error with a formatted message
func Errorf(kind Kind, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

// Wrap classifies err, returns nil for nil err
func Wrap(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

func (e *Error) Error() string {
	msg := string(e.Kind)
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if e.Details != "" {
		msg += " (" + e.Details + ")"
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the kind of the first classified error in the chain, empty if none
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsKind reports whether err is classified with the given kind
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// IsPermanent reports errors retrying can't fix. Jobs failing with them go to dead-letter right away.
func IsPermanent(err error) bool {
	switch KindOf(err) {
	case KindParse, KindValidation:
		return true
	default:
		return false
	}
}

// NotFound makes a NOT_FOUND error for the given entity
func NotFound(op, entity, id string) *Error {
	return Errorf(KindNotFound, op, "%s %q not found", entity, id)
}
