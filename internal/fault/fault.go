// Package fault defines the error taxonomy shared by every sigil operation.
//
// Every failure maps to one of four kinds, and each kind maps to a process
// exit code. The convention is uniform across all commands:
//
//	0 - success (including duplicate emission, which is a no-op, not an error)
//	1 - integrity failure (tamper-digest mismatch, malformed record)
//	2 - usage, environment, or causal-order error
//
// No failure is auto-corrected. Callers wrap with %w and match with errors.As.
package fault

import (
	"errors"
	"fmt"
)

// Kind categorizes a failure.
type Kind string

const (
	// KindUsage indicates bad or missing arguments. Always raised before
	// any mutation.
	KindUsage Kind = "USAGE"

	// KindIntegrity indicates a tamper-digest mismatch or malformed record.
	KindIntegrity Kind = "INTEGRITY"

	// KindEnvironment indicates a deployment defect: no digest backend,
	// missing log file or containing directory. Not transient; no retry.
	KindEnvironment Kind = "ENVIRONMENT"

	// KindCausalOrder indicates a dependent emission whose required parent
	// record does not exist in the log. Fatal, never silently skipped.
	KindCausalOrder Kind = "CAUSAL_ORDER"
)

// Exit codes for the CLI surface.
const (
	ExitSuccess   = 0
	ExitIntegrity = 1
	ExitUsage     = 2
)

// Error is a categorized failure.
type Error struct {
	Kind    Kind
	Message string
	Err     error // optional underlying cause
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// ExitCode returns the process exit code for this error's kind.
func (e *Error) ExitCode() int {
	if e.Kind == KindIntegrity {
		return ExitIntegrity
	}
	return ExitUsage
}

// Usagef creates a usage error.
func Usagef(format string, args ...any) *Error {
	return &Error{Kind: KindUsage, Message: fmt.Sprintf(format, args...)}
}

// Integrityf creates an integrity error.
func Integrityf(format string, args ...any) *Error {
	return &Error{Kind: KindIntegrity, Message: fmt.Sprintf(format, args...)}
}

// Environmentf creates an environment error.
func Environmentf(format string, args ...any) *Error {
	return &Error{Kind: KindEnvironment, Message: fmt.Sprintf(format, args...)}
}

// CausalOrderf creates a causal-order error.
func CausalOrderf(format string, args ...any) *Error {
	return &Error{Kind: KindCausalOrder, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches an underlying cause to a categorized failure.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf extracts the fault kind from an error chain.
// Returns KindEnvironment for errors that carry no kind: an uncategorized
// failure is treated as a defect in the surroundings, not a validation result.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return KindEnvironment
}

// ExitCode extracts the exit code from an error chain.
// nil maps to ExitSuccess; uncategorized errors map to ExitUsage.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var fe *Error
	if errors.As(err, &fe) {
		return fe.ExitCode()
	}
	return ExitUsage
}
