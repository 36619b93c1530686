package engine

import (
	"fmt"
	"strings"

	"github.com/josephlewis42/pipesh/core/pipeline"
	"github.com/josephlewis42/pipesh/core/value"
)

// Command is a builtin that runs inside the engine.
type Command interface {
	// Name is the full command name, possibly several words ("to nuon").
	Name() string
	Signature() *Signature
	// Usage is a one line description.
	Usage() string
	// Examples document the command and are evaluated by tests.
	Examples() []Example
	Run(ctx *Context, call *Call, input pipeline.Data) (pipeline.Data, error)
}

// Example is a runnable usage example. A nil Result is not checked.
type Example struct {
	Description string
	Example     string
	Result      value.Value
}

// Shape tells the parser how to read an argument.
type Shape int

const (
	ShapeAny Shape = iota
	ShapeString
	ShapeInt
	ShapeList
	ShapeRecord
	ShapeBlock
	ShapeClosure
)

func (s Shape) String() string {
	switch s {
	case ShapeAny:
		return "any"
	case ShapeString:
		return "string"
	case ShapeInt:
		return "int"
	case ShapeList:
		return "list"
	case ShapeRecord:
		return "record"
	case ShapeBlock:
		return "block"
	case ShapeClosure:
		return "closure"
	default:
		return fmt.Sprintf("Shape(%d)", int(s))
	}
}

// PositionalArg describes a positional parameter.
type PositionalArg struct {
	Name  string
	Shape Shape
	Desc  string
	// Keyword must precede the argument when set, e.g. "catch".
	Keyword string
}

// Flag describes a named parameter. Switches have no Arg.
type Flag struct {
	Long  string
	Short rune
	Arg   *Shape
	Desc  string
}

// Signature is the declared parameter list of a command.
type Signature struct {
	Required []PositionalArg
	Optional []PositionalArg
	Rest     *PositionalArg
	Flags    []Flag

	// CapturesStderr asks the engine to redirect the stderr of an external
	// process feeding this command.
	CapturesStderr bool
}

// Positional returns the i-th positional parameter.
func (s *Signature) Positional(i int) (PositionalArg, bool) {
	switch {
	case i < len(s.Required):
		return s.Required[i], true
	case i < len(s.Required)+len(s.Optional):
		return s.Optional[i-len(s.Required)], true
	case s.Rest != nil:
		return *s.Rest, true
	default:
		return PositionalArg{}, false
	}
}

// LongFlag finds a flag by long name.
func (s *Signature) LongFlag(name string) (Flag, bool) {
	for _, f := range s.Flags {
		if f.Long == name {
			return f, true
		}
	}
	return Flag{}, false
}

// ShortFlag finds a flag by short name.
func (s *Signature) ShortFlag(short rune) (Flag, bool) {
	for _, f := range s.Flags {
		if f.Short != 0 && f.Short == short {
			return f, true
		}
	}
	return Flag{}, false
}

// ShapeArg is a helper for declaring flags that take an argument.
func ShapeArg(s Shape) *Shape {
	return &s
}

// FormatSignature renders a usage line such as
// "join <right-table> <left-on> [right-on] --inner(-i)".
func FormatSignature(name string, sig *Signature) string {
	parts := []string{name}
	for _, arg := range sig.Required {
		parts = append(parts, fmt.Sprintf("<%s>", arg.Name))
	}
	for _, arg := range sig.Optional {
		if arg.Keyword != "" {
			parts = append(parts, fmt.Sprintf("[%s <%s>]", arg.Keyword, arg.Name))
			continue
		}
		parts = append(parts, fmt.Sprintf("[%s]", arg.Name))
	}
	if sig.Rest != nil {
		parts = append(parts, fmt.Sprintf("...%s", sig.Rest.Name))
	}
	for _, f := range sig.Flags {
		flag := "--" + f.Long
		if f.Short != 0 {
			flag += fmt.Sprintf("(-%c)", f.Short)
		}
		if f.Arg != nil {
			flag += fmt.Sprintf(" <%s>", *f.Arg)
		}
		parts = append(parts, flag)
	}
	return strings.Join(parts, " ")
}
