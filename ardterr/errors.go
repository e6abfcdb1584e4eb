// Package ardterr defines the error taxonomy shared by the ardt packages.
//
// Every failure the library reports carries a Kind so callers can react to
// the class of problem without matching on message text.
package ardterr

import (
	"errors"
	"fmt"
)

// Kind classifies an error.
type Kind string

const (
	// KindInvalidArgument marks a malformed argument: split fractions that
	// do not sum to one, unknown signal types, out-of-range channel
	// indices, or misuse of working-path parameters.
	KindInvalidArgument Kind = "invalid_argument"

	// KindNotConfigured marks missing configuration: metadata requested
	// for an unregistered signal type, or a dataset constructed without a
	// usable source path.
	KindNotConfigured Kind = "not_configured"

	// KindPreconditionViolated marks data that cannot satisfy an
	// operation: a filter window longer than the signal, or a positive
	// sampling target against an empty class.
	KindPreconditionViolated Kind = "precondition_violated"

	// KindNotImplemented marks a lifecycle obligation a dataset does not
	// provide.
	KindNotImplemented Kind = "not_implemented"
)

// Error is a classified error with an optional wrapped cause.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

// Unwrap returns the wrapped cause, if any.
func (e *Error) Unwrap() error { return e.Err }

// InvalidArgumentf builds a KindInvalidArgument error.
func InvalidArgumentf(format string, args ...any) *Error {
	return &Error{Kind: KindInvalidArgument, Message: fmt.Sprintf(format, args...)}
}

// NotConfiguredf builds a KindNotConfigured error.
func NotConfiguredf(format string, args ...any) *Error {
	return &Error{Kind: KindNotConfigured, Message: fmt.Sprintf(format, args...)}
}

// PreconditionViolatedf builds a KindPreconditionViolated error.
func PreconditionViolatedf(format string, args ...any) *Error {
	return &Error{Kind: KindPreconditionViolated, Message: fmt.Sprintf(format, args...)}
}

// NotImplementedf builds a KindNotImplemented error.
func NotImplementedf(format string, args ...any) *Error {
	return &Error{Kind: KindNotImplemented, Message: fmt.Sprintf(format, args...)}
}

// Wrapf classifies err under kind with added context. Returns nil when err
// is nil.
func Wrapf(kind Kind, err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

// KindOf extracts the Kind carried by err. ok is false when no *Error is in
// the chain.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}

// IsKind reports whether err carries kind.
func IsKind(err error, kind Kind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}
