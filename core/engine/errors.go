package engine

import (
	"errors"
	"fmt"

	"github.com/josephlewis42/pipesh/core/value"
)

// ErrorKind classifies a ShellError.
type ErrorKind int

const (
	Generic ErrorKind = iota
	CommandNotFound
	VariableNotFound
	TypeMismatch
	MissingColumn
	IncomparableValues
	ExternalFailed
	Interrupted
	IncompatibleFlags
	MissingArgument
	ParseFailed
)

func (k ErrorKind) String() string {
	switch k {
	case Generic:
		return "generic"
	case CommandNotFound:
		return "command_not_found"
	case VariableNotFound:
		return "variable_not_found"
	case TypeMismatch:
		return "type_mismatch"
	case MissingColumn:
		return "missing_column"
	case IncomparableValues:
		return "incomparable_values"
	case ExternalFailed:
		return "external_failed"
	case Interrupted:
		return "interrupted"
	case IncompatibleFlags:
		return "incompatible_flags"
	case MissingArgument:
		return "missing_argument"
	case ParseFailed:
		return "parse_failed"
	default:
		return fmt.Sprintf("ErrorKind(%d)", int(k))
	}
}

// ShellError is a structured failure raised while evaluating a block.
type ShellError struct {
	Kind ErrorKind
	Msg  string
	Span value.Span
	// Help is an optional hint shown to the user.
	Help string
	// Err is the underlying cause, if any.
	Err error
}

func (e *ShellError) Error() string {
	if e.Err != nil && e.Msg == "" {
		return e.Err.Error()
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *ShellError) Unwrap() error {
	return e.Err
}

// Errorf creates a ShellError of the given kind.
func Errorf(kind ErrorKind, span value.Span, format string, a ...interface{}) *ShellError {
	return &ShellError{Kind: kind, Span: span, Msg: fmt.Sprintf(format, a...)}
}

// KindOf returns the kind of the first ShellError in err's chain, or Generic.
func KindOf(err error) ErrorKind {
	var shellErr *ShellError
	if errors.As(err, &shellErr) {
		return shellErr.Kind
	}
	return Generic
}

// IsInterrupted reports whether err was caused by the user cancelling the
// pipeline.
func IsInterrupted(err error) bool {
	var shellErr *ShellError
	for err != nil {
		if !errors.As(err, &shellErr) {
			return false
		}
		if shellErr.Kind == Interrupted {
			return true
		}
		err = shellErr.Err
	}
	return false
}

func interruptedError(span value.Span) *ShellError {
	return &ShellError{Kind: Interrupted, Span: span, Msg: "interrupted by user"}
}

// ErrorValue converts a failure to a value that can be carried as data.
func ErrorValue(err error) value.Error {
	var errValue value.Error
	if errors.As(err, &errValue) {
		return errValue
	}
	return value.Error{Err: err}
}
