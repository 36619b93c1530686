package builtins

import (
	"sync"

	"github.com/josephlewis42/pipesh/core/engine"
	"github.com/josephlewis42/pipesh/core/pipeline"
	"github.com/josephlewis42/pipesh/core/value"
)

// Complete waits for an external process and returns its stdout, stderr and
// exit code as a record.
type Complete struct{}

func (*Complete) Name() string  { return "complete" }
func (*Complete) Usage() string { return "Capture the outputs and exit code of an external program." }

func (*Complete) Signature() *engine.Signature {
	return &engine.Signature{CapturesStderr: true}
}

func (*Complete) Examples() []engine.Example {
	return []engine.Example{
		{
			Description: "Run a program and get its exit code",
			Example:     "^false | complete",
			Result:      value.RecordOf("stdout", value.String(""), "stderr", value.String(""), "exit_code", value.Int(1)),
		},
	}
}

func (*Complete) Run(ctx *engine.Context, call *engine.Call, input pipeline.Data) (pipeline.Data, error) {
	ext, ok := input.(pipeline.External)
	if !ok {
		return nil, &engine.ShellError{
			Kind: engine.TypeMismatch,
			Span: call.Span,
			Msg:  "complete only works with the output of external programs",
		}
	}

	var stderr []byte
	var wg sync.WaitGroup
	if ext.Stderr != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			stderr = ext.Stderr.ReadAll()
		}()
	}

	var stdout []byte
	if ext.Stdout != nil {
		stdout = ext.Stdout.ReadAll()
	}
	wg.Wait()

	var exitCode value.Value = value.Nothing{}
	if ext.ExitCode != nil {
		codes, err := ext.ExitCode.CollectBounded(ctx.Engine.Options.MaxExitStatusValues)
		if err != nil {
			return nil, &engine.ShellError{Kind: engine.ExternalFailed, Span: ext.Span, Msg: "unable to determine exit status", Err: err}
		}
		if len(codes) > 0 {
			exitCode = codes[len(codes)-1]
		}
	}

	out := value.NewRecord()
	out.Insert("stdout", bytesValue(stdout))
	out.Insert("stderr", bytesValue(stderr))
	out.Insert("exit_code", exitCode)
	return pipeline.FromValue(out), nil
}
