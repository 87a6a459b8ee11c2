package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies domain failures so transports can map them without
// inspecting messages.
type ErrorKind string

const (
	KindDataUnavailable    ErrorKind = "DATA_UNAVAILABLE"
	KindInvalidWindow      ErrorKind = "INVALID_WINDOW"
	KindInvariantViolation ErrorKind = "INVARIANT_VIOLATION"
	KindInvalidFilter      ErrorKind = "INVALID_FILTER"
)

// DomainError represents a domain-specific error
type DomainError struct {
	Kind    ErrorKind
	Message string
	Cause   error
}

func (e *DomainError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying cause
func (e *DomainError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is a DomainError of the same kind, so that
// errors.Is(err, ErrInvalidWindow) matches every invalid-window error.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

func NewDomainError(kind ErrorKind, message string) *DomainError {
	return &DomainError{Kind: kind, Message: message}
}

// Sentinel errors, one per kind
var (
	ErrDataUnavailable    = NewDomainError(KindDataUnavailable, "metrics data unavailable")
	ErrInvalidWindow      = NewDomainError(KindInvalidWindow, "invalid reporting window")
	ErrInvariantViolation = NewDomainError(KindInvariantViolation, "metrics invariant violated")
	ErrInvalidFilter      = NewDomainError(KindInvalidFilter, "invalid category filter")
)

// DataUnavailable wraps a backing-source failure
func DataUnavailable(cause error) *DomainError {
	return &DomainError{Kind: KindDataUnavailable, Message: "metrics data unavailable", Cause: cause}
}

// InvalidWindow reports a malformed or empty reporting window
func InvalidWindow(format string, args ...interface{}) *DomainError {
	return &DomainError{Kind: KindInvalidWindow, Message: "invalid reporting window: " + fmt.Sprintf(format, args...)}
}

// InvariantViolation reports data that breaks a snapshot invariant
func InvariantViolation(format string, args ...interface{}) *DomainError {
	return &DomainError{Kind: KindInvariantViolation, Message: "invariant violation: " + fmt.Sprintf(format, args...)}
}

// KindOf returns the kind of a DomainError anywhere in err's chain.
func KindOf(err error) (ErrorKind, bool) {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Kind, true
	}
	return "", false
}
