package shell

import (
	"fmt"
	"strings"

	"github.com/josephlewis42/pipesh/core/engine"
	"github.com/josephlewis42/pipesh/core/value"
)

// ParseError reports malformed input with its position.
type ParseError struct {
	Span value.Span
	Line int
	Col  int
	Msg  string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error at %d:%d: %s", e.Line, e.Col, e.Msg)
}

func newParseError(src string, start, end int, msg string) *ParseError {
	if start > len(src) {
		start = len(src)
	}
	before := src[:start]
	line := strings.Count(before, "\n") + 1
	col := start - strings.LastIndex(before, "\n")
	return &ParseError{
		Span: value.Span{Start: start, End: end},
		Line: line,
		Col:  col,
		Msg:  msg,
	}
}

// asShellError wraps a ParseError so callers can classify it like any
// other evaluation failure.
func asShellError(err *ParseError) error {
	return &engine.ShellError{
		Kind: engine.ParseFailed,
		Span: err.Span,
		Err:  err,
	}
}
