package engine

import (
	"fmt"

	"github.com/josephlewis42/pipesh/core/value"
)

// Req evaluates the required positional argument at i.
func (c *Call) Req(ctx *Context, i int, name string) (value.Value, error) {
	if i >= len(c.Positional) {
		return nil, &ShellError{
			Kind: MissingArgument,
			Span: c.Span,
			Msg:  fmt.Sprintf("%s: missing required argument %s", c.Name, name),
		}
	}
	return EvalExpr(ctx, c.Positional[i])
}

// Opt evaluates the optional positional argument at i if it was given.
func (c *Call) Opt(ctx *Context, i int) (value.Value, bool, error) {
	if i >= len(c.Positional) {
		return nil, false, nil
	}
	v, err := EvalExpr(ctx, c.Positional[i])
	return v, err == nil, err
}

// Rest evaluates every positional argument starting at i.
func (c *Call) Rest(ctx *Context, i int) ([]value.Value, error) {
	var out []value.Value
	for ; i < len(c.Positional); i++ {
		v, err := EvalExpr(ctx, c.Positional[i])
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// Flag evaluates the argument of a named flag if it was given.
func (c *Call) Flag(ctx *Context, name string) (value.Value, bool, error) {
	expr, ok := c.Named[name]
	if !ok || expr == nil {
		return nil, false, nil
	}
	v, err := EvalExpr(ctx, expr)
	return v, err == nil, err
}

// ReqString evaluates the positional argument at i as a string.
func (c *Call) ReqString(ctx *Context, i int, name string) (string, error) {
	v, err := c.Req(ctx, i, name)
	if err != nil {
		return "", err
	}
	return AsString(v, c.argSpan(i))
}

// ReqBlock evaluates the positional argument at i as a block reference.
func (c *Call) ReqBlock(ctx *Context, i int, name string) (BlockID, error) {
	v, err := c.Req(ctx, i, name)
	if err != nil {
		return 0, err
	}
	switch v := v.(type) {
	case value.Block:
		return v.ID, nil
	case value.Closure:
		return v.BlockID, nil
	default:
		return 0, typeMismatch("block", v, c.argSpan(i))
	}
}

// OptClosure evaluates the positional argument at i as a closure if given.
func (c *Call) OptClosure(ctx *Context, i int) (BlockID, bool, error) {
	v, ok, err := c.Opt(ctx, i)
	if err != nil || !ok {
		return 0, false, err
	}
	switch v := v.(type) {
	case value.Closure:
		return v.BlockID, true, nil
	case value.Block:
		return v.ID, true, nil
	default:
		return 0, false, typeMismatch("closure", v, c.argSpan(i))
	}
}

func (c *Call) argSpan(i int) value.Span {
	if i < len(c.Positional) {
		return c.Positional[i].ExprSpan()
	}
	return c.Span
}

// AsString unwraps a string value.
func AsString(v value.Value, span value.Span) (string, error) {
	if s, ok := v.(value.String); ok {
		return string(s), nil
	}
	return "", typeMismatch("string", v, span)
}

func typeMismatch(expected string, actual value.Value, span value.Span) *ShellError {
	return &ShellError{
		Kind: TypeMismatch,
		Span: span,
		Msg:  fmt.Sprintf("expected %s, got %s", expected, value.TypeName(actual)),
	}
}

// TypeMismatchError reports that a value had the wrong type.
func TypeMismatchError(expected string, actual value.Value, span value.Span) error {
	return typeMismatch(expected, actual, span)
}
