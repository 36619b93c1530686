package builtins

import (
	"fmt"

	"github.com/josephlewis42/pipesh/core/engine"
	"github.com/josephlewis42/pipesh/core/pipeline"
	"github.com/josephlewis42/pipesh/core/value"
	"go.uber.org/zap"
)

// Try runs a block and, if it fails, an optional catch closure.
//
// A failure is a returned error, an error value or an external process whose
// output went to the terminal and whose last exit status is non-zero. The
// catch closure's first parameter is bound to the error, or to nothing for a
// failed process. Without a catch closure failures are swallowed.
type Try struct{}

var _ engine.Command = (*Try)(nil)

func (*Try) Name() string { return "try" }

func (*Try) Usage() string {
	return "Try to run a block, if it fails optionally run a catch closure."
}

func (*Try) Signature() *engine.Signature {
	return &engine.Signature{
		Required: []engine.PositionalArg{
			{Name: "try_block", Shape: engine.ShapeBlock, Desc: "block to run"},
		},
		Optional: []engine.PositionalArg{
			{Name: "catch_block", Shape: engine.ShapeClosure, Keyword: "catch", Desc: "closure to run if the block fails"},
		},
	}
}

func (*Try) Examples() []engine.Example {
	return []engine.Example{
		{
			Description: "Try to run a missing command",
			Example:     "try { asdfasdf }",
		},
		{
			Description: "Try to run a missing command",
			Example:     "try { asdfasdf } catch { echo 'missing' }",
			Result:      value.String("missing"),
		},
		{
			Description: "Inspect the caught error",
			Example:     "try { error make {msg: boom} } catch {|e| $e.msg }",
			Result:      value.String("boom"),
		},
		{
			Description: "A failing program binds nothing",
			Example:     "try { ^false } catch {|e| $e }",
			Result:      value.Nothing{},
		},
	}
}

func (t *Try) Run(ctx *engine.Context, call *engine.Call, input pipeline.Data) (pipeline.Data, error) {
	tryID, err := call.ReqBlock(ctx, 0, "try_block")
	if err != nil {
		return nil, err
	}
	catchID, hasCatch, err := call.OptClosure(ctx, 1)
	if err != nil {
		return nil, err
	}

	block := ctx.Engine.GetBlock(tryID)
	if block == nil {
		return nil, fmt.Errorf("try: unknown block %d", tryID)
	}

	c := &catcher{ctx: ctx, catchID: catchID, hasCatch: hasCatch}

	out, err := engine.EvalBlock(ctx, block, input, engine.Redirect{})
	if err != nil {
		if engine.IsInterrupted(err) {
			return nil, err
		}
		return c.catch(engine.ErrorValue(err), "error")
	}
	if ctx.Interrupt.Triggered() {
		pipeline.Drain(out)
		return nil, interrupted(call)
	}

	switch data := out.(type) {
	case pipeline.Value:
		if errValue, ok := data.Value.(value.Error); ok && !engine.IsInterrupted(errValue.Err) {
			return c.catch(errValue, "error_value")
		}

	case pipeline.External:
		if data.Stdout != nil || data.ExitCode == nil {
			break
		}

		// The only eager read: exit statuses are few, a stream producing more
		// than the configured bound is treated as broken.
		interrupt := data.ExitCode.Interrupt()
		codes, err := data.ExitCode.CollectBounded(ctx.Engine.Options.MaxExitStatusValues)
		if err != nil {
			return nil, &engine.ShellError{
				Kind: engine.ExternalFailed,
				Span: data.Span,
				Msg:  "unable to determine exit status",
				Err:  err,
			}
		}
		if ctx.Interrupt.Triggered() {
			return nil, interrupted(call)
		}

		if exitedNonZero(codes) {
			return c.catch(value.Nothing{}, "exit_status")
		}

		data.ExitCode = pipeline.FromValues(codes, interrupt)
		return data, nil
	}

	return out, nil
}

func interrupted(call *engine.Call) error {
	return engine.Errorf(engine.Interrupted, call.Span, "interrupted by user")
}

func exitedNonZero(codes value.List) bool {
	if len(codes) == 0 {
		return false
	}
	code, ok := codes[len(codes)-1].(value.Int)
	return ok && code != 0
}

type catcher struct {
	ctx      *engine.Context
	catchID  engine.BlockID
	hasCatch bool
}

// catch runs the catch closure with payload bound to its parameter.
func (c *catcher) catch(payload value.Value, kind string) (pipeline.Data, error) {
	c.ctx.Engine.Metrics.FailureCaught(kind)
	c.ctx.Engine.Logger.Debug("caught failure",
		zap.String("kind", kind),
		zap.Bool("has_catch", c.hasCatch),
	)

	if !c.hasCatch {
		return pipeline.Empty{}, nil
	}

	return engine.EvalClosure(c.ctx, c.catchID, []value.Value{payload}, pipeline.Empty{}, engine.Redirect{})
}
