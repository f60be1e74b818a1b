package interop

import (
	"fmt"
	"strings"
)

// Kind categorizes a bridge error.
type Kind string

const (
	// KindInvalidArgument means a wrong value kind was supplied to a public
	// entry point.
	KindInvalidArgument Kind = "invalid_argument"
	// KindInvalidKey means a property or method key was neither a string nor
	// a numeric value.
	KindInvalidKey Kind = "invalid_key"
	// KindNotCallable means a method or function call targeted a host member
	// that is not a function.
	KindNotCallable Kind = "not_callable"
	// KindIndexOutOfRange means an array index was outside the valid bounds.
	KindIndexOutOfRange Kind = "index_out_of_range"
	// KindInvalidRange means a range given by start/end indices was invalid.
	KindInvalidRange Kind = "invalid_range"
	// KindEmptyRange means an element was requested from an empty array.
	KindEmptyRange Kind = "empty_range"
	// KindInvalidArrayLength means the host array reported a length that is
	// not a non-negative integer. This is an internal-consistency failure,
	// not user-recoverable.
	KindInvalidArrayLength Kind = "invalid_array_length"
)

// Sentinel errors for use with errors.Is.
var (
	ErrInvalidArgument    = &Error{Kind: KindInvalidArgument}
	ErrInvalidKey         = &Error{Kind: KindInvalidKey}
	ErrNotCallable        = &Error{Kind: KindNotCallable}
	ErrIndexOutOfRange    = &Error{Kind: KindIndexOutOfRange}
	ErrInvalidRange       = &Error{Kind: KindInvalidRange}
	ErrEmptyRange         = &Error{Kind: KindEmptyRange}
	ErrInvalidArrayLength = &Error{Kind: KindInvalidArrayLength}
)

// Error is the structured error type surfaced by all bridge operations.
type Error struct {
	Kind   Kind
	Op     string // operation that failed, e.g. "Array.At"
	Detail string
	Cause  error
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Kind))
	if e.Op != "" {
		b.WriteString(" in ")
		b.WriteString(e.Op)
	}
	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

// Unwrap returns the underlying cause, if any.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches against the package sentinels: a target *Error with only a Kind
// set matches any error of that Kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Op == "" && t.Detail == "" && t.Cause == nil
}

func errf(kind Kind, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Detail: fmt.Sprintf(format, args...)}
}
