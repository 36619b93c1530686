package builtins

import (
	"github.com/josephlewis42/pipesh/core/engine"
	"github.com/josephlewis42/pipesh/core/pipeline"
	"github.com/josephlewis42/pipesh/core/value"
)

// Each runs a closure on every element of the input, lazily.
type Each struct{}

func (*Each) Name() string  { return "each" }
func (*Each) Usage() string { return "Run a closure on each element of the input." }

func (*Each) Signature() *engine.Signature {
	return &engine.Signature{
		Required: []engine.PositionalArg{
			{Name: "closure", Shape: engine.ShapeClosure, Desc: "the closure to run"},
		},
	}
}

func (*Each) Examples() []engine.Example {
	return []engine.Example{
		{
			Description: "Wrap each number in a record",
			Example:     "[1 2] | each {|i| {n: $i} }",
			Result:      value.List{value.RecordOf("n", value.Int(1)), value.RecordOf("n", value.Int(2))},
		},
	}
}

func (*Each) Run(ctx *engine.Context, call *engine.Call, input pipeline.Data) (pipeline.Data, error) {
	id, err := call.ReqBlock(ctx, 0, "closure")
	if err != nil {
		return nil, err
	}

	in := pipeline.IntoStream(input, ctx.Interrupt)
	out := pipeline.NewListStream(func() (value.Value, bool) {
		item, ok := in.Next()
		if !ok {
			return nil, false
		}
		v, err := engine.CollectClosure(ctx, id, []value.Value{item}, pipeline.FromValue(item))
		if err != nil {
			return engine.ErrorValue(err), true
		}
		return v, true
	}, ctx.Interrupt)

	return pipeline.Stream{Stream: out}, nil
}

// Echo returns its arguments: nothing, the single argument or a list.
type Echo struct{}

func (*Echo) Name() string  { return "echo" }
func (*Echo) Usage() string { return "Return the given values." }

func (*Echo) Signature() *engine.Signature {
	return &engine.Signature{
		Rest: &engine.PositionalArg{Name: "rest", Shape: engine.ShapeAny, Desc: "the values to return"},
	}
}

func (*Echo) Examples() []engine.Example {
	return []engine.Example{
		{Description: "Return a single value", Example: "echo 'missing'", Result: value.String("missing")},
		{Description: "Several values become a list", Example: "echo 1 2", Result: value.List{value.Int(1), value.Int(2)}},
	}
}

func (*Echo) Run(ctx *engine.Context, call *engine.Call, input pipeline.Data) (pipeline.Data, error) {
	args, err := call.Rest(ctx, 0)
	if err != nil {
		return nil, err
	}

	switch len(args) {
	case 0:
		return pipeline.Empty{}, nil
	case 1:
		return pipeline.FromValue(args[0]), nil
	default:
		return pipeline.FromValue(value.List(args)), nil
	}
}

// Length counts the elements of the input.
type Length struct{}

func (*Length) Name() string                 { return "length" }
func (*Length) Usage() string                { return "Count the elements of the input." }
func (*Length) Signature() *engine.Signature { return &engine.Signature{} }

func (*Length) Examples() []engine.Example {
	return []engine.Example{
		{Description: "Count a list", Example: "[a b c] | length", Result: value.Int(3)},
	}
}

func (*Length) Run(ctx *engine.Context, call *engine.Call, input pipeline.Data) (pipeline.Data, error) {
	n := 0
	stream := pipeline.IntoStream(input, ctx.Interrupt)
	for _, ok := stream.Next(); ok; _, ok = stream.Next() {
		n++
	}
	return pipeline.FromValue(value.Int(n)), nil
}

// Describe names the type of the input.
type Describe struct{}

func (*Describe) Name() string                 { return "describe" }
func (*Describe) Usage() string                { return "Describe the type of the input." }
func (*Describe) Signature() *engine.Signature { return &engine.Signature{} }

func (*Describe) Examples() []engine.Example {
	return []engine.Example{
		{Description: "Describe a table", Example: "[{a: 1}] | describe", Result: value.String("table")},
		{Description: "Describe an error", Example: "error make {msg: x} | describe", Result: value.String("error")},
	}
}

func (*Describe) Run(ctx *engine.Context, call *engine.Call, input pipeline.Data) (pipeline.Data, error) {
	return pipeline.FromValue(value.String(value.TypeName(pipeline.IntoValue(input)))), nil
}

// ErrorMake creates an error value from a record with a msg and an optional
// help column.
type ErrorMake struct{}

func (*ErrorMake) Name() string  { return "error make" }
func (*ErrorMake) Usage() string { return "Create an error." }

func (*ErrorMake) Signature() *engine.Signature {
	return &engine.Signature{
		Required: []engine.PositionalArg{
			{Name: "error_struct", Shape: engine.ShapeRecord, Desc: "the error to create, {msg: ..., help: ...}"},
		},
	}
}

func (*ErrorMake) Examples() []engine.Example {
	return []engine.Example{
		{
			Description: "Create and catch an error",
			Example:     "try { error make {msg: 'bad input' help: 'try again'} } catch {|e| $e.help }",
			Result:      value.String("try again"),
		},
	}
}

func (*ErrorMake) Run(ctx *engine.Context, call *engine.Call, input pipeline.Data) (pipeline.Data, error) {
	v, err := call.Req(ctx, 0, "error_struct")
	if err != nil {
		return nil, err
	}
	rec, ok := v.(*value.Record)
	if !ok {
		return nil, engine.TypeMismatchError("record", v, call.Positional[0].ExprSpan())
	}

	msgValue, ok := rec.Get("msg")
	if !ok {
		return nil, engine.Errorf(engine.MissingColumn, call.Positional[0].ExprSpan(), "error make: cannot find column %q", "msg")
	}
	shellErr := &engine.ShellError{
		Kind: engine.Generic,
		Span: call.Span,
		Msg:  engine.ValueText(msgValue),
	}
	if help, ok := rec.Get("help"); ok && !value.IsNothing(help) {
		shellErr.Help = engine.ValueText(help)
	}

	return pipeline.FromValue(value.Error{Err: shellErr}), nil
}
