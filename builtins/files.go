package builtins

import (
	"errors"
	"os"
	"path"

	"github.com/josephlewis42/pipesh/core/engine"
	"github.com/josephlewis42/pipesh/core/pipeline"
	"github.com/josephlewis42/pipesh/core/shell"
	"github.com/josephlewis42/pipesh/core/value"
	"github.com/spf13/afero"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

func fileError(call *engine.Call, err error) error {
	return &engine.ShellError{
		Kind: engine.Generic,
		Span: call.Span,
		Msg:  call.Name + " failed",
		Err:  err,
	}
}

// Open reads a file from the engine's filesystem, parsing .json and .nuon
// files.
type Open struct{}

func (*Open) Name() string  { return "open" }
func (*Open) Usage() string { return "Load a file, parsing it by extension." }

func (*Open) Signature() *engine.Signature {
	return &engine.Signature{
		Required: []engine.PositionalArg{
			{Name: "filename", Shape: engine.ShapeString, Desc: "the file to open"},
		},
		Flags: []engine.Flag{
			{Long: "raw", Short: 'r', Desc: "return the contents without parsing"},
		},
	}
}

func (*Open) Examples() []engine.Example {
	return []engine.Example{
		{Description: "Save and reload a table", Example: "[{a: 1}] | save t.nuon; open t.nuon", Result: value.List{value.RecordOf("a", value.Int(1))}},
		{Description: "Read the text of a file", Example: "{a: 1} | save -f t.json; open --raw t.json", Result: value.String("{\n  \"a\": 1\n}")},
	}
}

func (*Open) Run(ctx *engine.Context, call *engine.Call, input pipeline.Data) (pipeline.Data, error) {
	name, err := call.ReqString(ctx, 0, "filename")
	if err != nil {
		return nil, err
	}

	b, err := afero.ReadFile(ctx.Engine.Fs, resolvePath(ctx, name))
	if err != nil {
		return nil, fileError(call, err)
	}
	if call.HasFlag("raw") {
		return pipeline.FromValue(bytesValue(b)), nil
	}

	switch path.Ext(name) {
	case ".nuon":
		v, err := shell.ParseNuon(string(b))
		if err != nil {
			return nil, err
		}
		return pipeline.FromValue(v), nil

	case ".json":
		var pv structpb.Value
		if err := protojson.Unmarshal(b, &pv); err != nil {
			return nil, fileError(call, err)
		}
		return pipeline.FromValue(value.FromProto(&pv)), nil

	default:
		return pipeline.FromValue(bytesValue(b)), nil
	}
}

// Save writes the input to a file. Strings and binary are written as is,
// other values are serialized by extension, nuon by default.
type Save struct{}

func (*Save) Name() string  { return "save" }
func (*Save) Usage() string { return "Save the input to a file." }

func (*Save) Signature() *engine.Signature {
	return &engine.Signature{
		Required: []engine.PositionalArg{
			{Name: "filename", Shape: engine.ShapeString, Desc: "the file to write"},
		},
		Flags: []engine.Flag{
			{Long: "force", Short: 'f', Desc: "overwrite an existing file"},
		},
	}
}

func (*Save) Examples() []engine.Example {
	return []engine.Example{
		{Description: "Save a string", Example: "'hello' | save -f hello.txt; open hello.txt", Result: value.String("hello")},
	}
}

func (*Save) Run(ctx *engine.Context, call *engine.Call, input pipeline.Data) (pipeline.Data, error) {
	name, err := call.ReqString(ctx, 0, "filename")
	if err != nil {
		return nil, err
	}
	v, err := inputValue(input)
	if err != nil {
		return nil, err
	}

	var contents []byte
	switch v := v.(type) {
	case value.String:
		contents = []byte(v)
	case value.Binary:
		contents = v
	default:
		text, err := serializeByExtension(v, path.Ext(name))
		if err != nil {
			return nil, fileError(call, err)
		}
		contents = []byte(text)
	}

	flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if !call.HasFlag("force") {
		flags |= os.O_EXCL
	}

	fd, err := ctx.Engine.Fs.OpenFile(resolvePath(ctx, name), flags, 0644)
	if errors.Is(err, os.ErrExist) {
		return nil, &engine.ShellError{
			Kind: engine.Generic,
			Span: call.Span,
			Msg:  "save: file already exists",
			Help: "use --force to overwrite",
			Err:  err,
		}
	}
	if err != nil {
		return nil, fileError(call, err)
	}
	defer fd.Close()

	if _, err := fd.Write(contents); err != nil {
		return nil, fileError(call, err)
	}
	return pipeline.Empty{}, nil
}

func serializeByExtension(v value.Value, ext string) (string, error) {
	if ext == ".json" {
		pv, err := value.ToProto(v)
		if err != nil {
			return "", err
		}
		return marshalJSON(pv, false, 2)
	}
	return value.ToNuon(v)
}
