package builtins

import (
	"bytes"
	"encoding/json"
	"strings"
	"unicode/utf8"

	"github.com/josephlewis42/pipesh/core/engine"
	"github.com/josephlewis42/pipesh/core/pipeline"
	"github.com/josephlewis42/pipesh/core/shell"
	"github.com/josephlewis42/pipesh/core/value"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

func bytesValue(b []byte) value.Value {
	if utf8.Valid(b) {
		return value.String(b)
	}
	return value.Binary(b)
}

// inputValue materializes the input, failing if it is an error.
func inputValue(input pipeline.Data) (value.Value, error) {
	v := pipeline.IntoValue(input)
	if errValue, ok := v.(value.Error); ok {
		return nil, errValue.Err
	}
	return v, nil
}

// inputText materializes the input as text.
func inputText(input pipeline.Data, call *engine.Call) (string, error) {
	v, err := inputValue(input)
	if err != nil {
		return "", err
	}
	switch v := v.(type) {
	case value.String:
		return string(v), nil
	case value.Binary:
		return string(v), nil
	default:
		return "", engine.TypeMismatchError("string", v, call.Span)
	}
}

func conversionError(call *engine.Call, err error) error {
	return &engine.ShellError{
		Kind: engine.TypeMismatch,
		Span: call.Span,
		Msg:  call.Name + " failed",
		Err:  err,
	}
}

// ToNuon renders the input in the shell's object notation.
type ToNuon struct{}

func (*ToNuon) Name() string                 { return "to nuon" }
func (*ToNuon) Usage() string                { return "Convert the input to nuon text." }
func (*ToNuon) Signature() *engine.Signature { return &engine.Signature{} }

func (*ToNuon) Examples() []engine.Example {
	return []engine.Example{
		{Description: "Render a table", Example: "[{a: 1 b: 'x y'}] | to nuon", Result: value.String(`[[a, b]; [1, "x y"]]`)},
		{Description: "Render nothing", Example: "null | to nuon", Result: value.String("null")},
	}
}

func (*ToNuon) Run(ctx *engine.Context, call *engine.Call, input pipeline.Data) (pipeline.Data, error) {
	v, err := inputValue(input)
	if err != nil {
		return nil, err
	}
	out, err := value.ToNuon(v)
	if err != nil {
		// Errors nested in lists surface unchanged.
		if _, ok := err.(*engine.ShellError); ok {
			return nil, err
		}
		return nil, conversionError(call, err)
	}
	return pipeline.FromValue(value.String(out)), nil
}

// FromNuon parses nuon text.
type FromNuon struct{}

func (*FromNuon) Name() string                 { return "from nuon" }
func (*FromNuon) Usage() string                { return "Parse nuon text into structured data." }
func (*FromNuon) Signature() *engine.Signature { return &engine.Signature{} }

func (*FromNuon) Examples() []engine.Example {
	return []engine.Example{
		{Description: "Parse a record", Example: "'{a: 1}' | from nuon", Result: value.RecordOf("a", value.Int(1))},
	}
}

func (*FromNuon) Run(ctx *engine.Context, call *engine.Call, input pipeline.Data) (pipeline.Data, error) {
	text, err := inputText(input, call)
	if err != nil {
		return nil, err
	}
	v, err := shell.ParseNuon(text)
	if err != nil {
		return nil, err
	}
	return pipeline.FromValue(v), nil
}

// ToJSON renders the input as JSON.
type ToJSON struct{}

func (*ToJSON) Name() string  { return "to json" }
func (*ToJSON) Usage() string { return "Convert the input to JSON text." }

func (*ToJSON) Signature() *engine.Signature {
	return &engine.Signature{
		Flags: []engine.Flag{
			{Long: "raw", Short: 'r', Desc: "remove all whitespace"},
			{Long: "indent", Short: 'i', Arg: engine.ShapeArg(engine.ShapeInt), Desc: "spaces to indent with, 2 by default"},
		},
	}
}

func (*ToJSON) Examples() []engine.Example {
	return []engine.Example{
		{Description: "Compact JSON", Example: "{b: [1 2.5] a: null} | to json -r", Result: value.String(`{"a":null,"b":[1,2.5]}`)},
		{Description: "Indented JSON", Example: "[1] | to json --indent 1", Result: value.String("[\n 1\n]")},
	}
}

func (*ToJSON) Run(ctx *engine.Context, call *engine.Call, input pipeline.Data) (pipeline.Data, error) {
	indent := 2
	if v, ok, err := call.Flag(ctx, "indent"); err != nil {
		return nil, err
	} else if ok {
		n, isInt := v.(value.Int)
		if !isInt || n < 0 {
			return nil, engine.TypeMismatchError("non-negative int", v, call.Named["indent"].ExprSpan())
		}
		indent = int(n)
	}

	v, err := inputValue(input)
	if err != nil {
		return nil, err
	}
	pv, err := value.ToProto(v)
	if err != nil {
		if _, ok := err.(*engine.ShellError); ok {
			return nil, err
		}
		return nil, conversionError(call, err)
	}
	text, err := marshalJSON(pv, call.HasFlag("raw"), indent)
	if err != nil {
		return nil, conversionError(call, err)
	}
	return pipeline.FromValue(value.String(text)), nil
}

// marshalJSON encodes pv with stable formatting; protojson output alone may
// vary its whitespace between runs.
func marshalJSON(pv *structpb.Value, raw bool, indent int) (string, error) {
	b, err := protojson.Marshal(pv)
	if err != nil {
		return "", err
	}

	var compact bytes.Buffer
	if err := json.Compact(&compact, b); err != nil {
		return "", err
	}
	if raw {
		return compact.String(), nil
	}

	var out bytes.Buffer
	if err := json.Indent(&out, compact.Bytes(), "", strings.Repeat(" ", indent)); err != nil {
		return "", err
	}
	return out.String(), nil
}

// FromJSON parses JSON text.
type FromJSON struct{}

func (*FromJSON) Name() string                 { return "from json" }
func (*FromJSON) Usage() string                { return "Parse JSON text into structured data." }
func (*FromJSON) Signature() *engine.Signature { return &engine.Signature{} }

func (*FromJSON) Examples() []engine.Example {
	return []engine.Example{
		{
			Description: "Parse an object, keys come out sorted",
			Example:     `'{"b": 1.5, "a": [1]}' | from json`,
			Result:      value.RecordOf("a", value.List{value.Int(1)}, "b", value.Float(1.5)),
		},
	}
}

func (*FromJSON) Run(ctx *engine.Context, call *engine.Call, input pipeline.Data) (pipeline.Data, error) {
	text, err := inputText(input, call)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		return pipeline.FromValue(value.Nothing{}), nil
	}

	var pv structpb.Value
	if err := protojson.Unmarshal([]byte(text), &pv); err != nil {
		return nil, &engine.ShellError{
			Kind: engine.ParseFailed,
			Span: call.Span,
			Msg:  "from json: invalid JSON",
			Err:  err,
		}
	}
	return pipeline.FromValue(value.FromProto(&pv)), nil
}
