// Package errors provides custom error types for the editor SDK.
package errors

import (
	"errors"
	"fmt"
)

// =============================================================================
// Base Error Type
// =============================================================================

// Error is the base error type for all SDK errors.
type Error struct {
	// Kind indicates the category of error
	Kind Kind

	// Op is the operation being performed (e.g., "invoker.Run")
	Op string

	// Message is a human-readable description
	Message string

	// Err is the underlying error
	Err error
}

// Kind represents the kind/category of error.
type Kind uint8

const (
	KindUnknown Kind = iota

	// KindMalformedReport - scanner output was not valid JSON.
	KindMalformedReport

	// KindMissingRuns - the report parsed but has no runs key.
	KindMissingRuns

	// KindToolFailed - the scanner exited with a non-{0,1} code; its
	// output is unreliable and must not be parsed.
	KindToolFailed

	// KindExecutableNotFound - the scanner binary is not installed or not
	// on PATH.
	KindExecutableNotFound

	// KindTimeout - the scan exceeded its deadline.
	KindTimeout

	// KindInvalidInput - bad arguments or configuration.
	KindInvalidInput

	// KindNetwork - results API or release download unreachable.
	KindNetwork

	// KindInternal - a bug in the SDK itself.
	KindInternal
)

func (k Kind) String() string {
	switch k {
	case KindMalformedReport:
		return "malformed_report"
	case KindMissingRuns:
		return "missing_runs"
	case KindToolFailed:
		return "tool_failed"
	case KindExecutableNotFound:
		return "executable_not_found"
	case KindTimeout:
		return "timeout"
	case KindInvalidInput:
		return "invalid_input"
	case KindNetwork:
		return "network"
	case KindInternal:
		return "internal"
	default:
		return "unknown"
	}
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Op != "" {
		if e.Err != nil {
			return fmt.Sprintf("%s: %s: %v", e.Op, e.Message, e.Err)
		}
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether the error matches the target.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// =============================================================================
// Constructors
// =============================================================================

// E constructs an Error from the given arguments.
// Arguments can be: Kind, string (Op then Message), error.
func E(args ...interface{}) error {
	e := &Error{}
	for _, arg := range args {
		switch a := arg.(type) {
		case Kind:
			e.Kind = a
		case string:
			if e.Op == "" {
				e.Op = a
			} else {
				e.Message = a
			}
		case error:
			e.Err = a
		}
	}
	return e
}

// New creates a new simple error.
func New(message string) error {
	return &Error{Message: message}
}

// Wrap wraps an error with an operation name.
func Wrap(err error, op string) error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, Err: err}
}

// =============================================================================
// Error Checkers
// =============================================================================

// GetKind returns the Kind of the error, or KindUnknown.
func GetKind(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// IsParseError reports whether the error came from SARIF parsing rather
// than scanner invocation.
func IsParseError(err error) bool {
	k := GetKind(err)
	return k == KindMalformedReport || k == KindMissingRuns
}

// IsInvocationError reports whether the error came from running the
// scanner process.
func IsInvocationError(err error) bool {
	k := GetKind(err)
	return k == KindToolFailed || k == KindExecutableNotFound || k == KindTimeout
}

// IsExecutableNotFound checks for a missing scanner binary.
func IsExecutableNotFound(err error) bool {
	return GetKind(err) == KindExecutableNotFound
}

// IsTimeout checks if the error is a timeout.
func IsTimeout(err error) bool {
	return GetKind(err) == KindTimeout
}

// =============================================================================
// Common Errors
// =============================================================================

var (
	// ErrMalformedJSON is returned when scanner output is not valid JSON.
	ErrMalformedJSON = &Error{Kind: KindMalformedReport, Message: "output is not valid JSON"}

	// ErrMissingRuns is returned when a SARIF document has no runs key.
	ErrMissingRuns = &Error{Kind: KindMissingRuns, Message: "SARIF document has no runs"}

	// ErrExecutableNotFound is returned when the scanner CLI is missing.
	ErrExecutableNotFound = &Error{
		Kind:    KindExecutableNotFound,
		Message: "blocksecops CLI not found; install it and ensure it is on your PATH",
	}

	// ErrScanTimeout is returned when a scan exceeds its deadline.
	ErrScanTimeout = &Error{Kind: KindTimeout, Message: "scan timed out"}
)
