package engine

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/josephlewis42/pipesh/core/pipeline"
	"github.com/josephlewis42/pipesh/core/value"
	"go.uber.org/zap"
)

// Redirect says whether the output of an external process ending the block
// is captured into the pipeline or written to the engine's terminal.
type Redirect struct {
	Stdout bool
	Stderr bool
}

// EvalBlock runs block against input. Only the first pipeline receives the
// input; the output of every other pipeline but the last is drained.
func EvalBlock(ctx *Context, block *Block, input pipeline.Data, redirect Redirect) (pipeline.Data, error) {
	if len(block.Pipelines) == 0 {
		return pipeline.Empty{}, nil
	}

	for i, p := range block.Pipelines {
		if ctx.Interrupt.Triggered() {
			ctx.Engine.Metrics.Interrupted()
			return nil, interruptedError(p.Span)
		}

		in := pipeline.Data(pipeline.Empty{})
		if i == 0 {
			in = input
		}

		last := i == len(block.Pipelines)-1
		switch {
		case p.Let != "":
			v, err := collect(ctx, func(ctx *Context) (pipeline.Data, error) {
				return evalPipeline(ctx, p, in, Redirect{Stdout: true})
			})
			if err != nil {
				return nil, err
			}
			ctx.Stack.AddVar(p.Let, v)
			if last {
				return pipeline.Empty{}, nil
			}

		case last:
			return evalPipeline(ctx, p, in, redirect)

		default:
			err := scoped(ctx, func(ctx *Context) error {
				out, err := evalPipeline(ctx, p, in, Redirect{})
				if err != nil {
					return err
				}
				if v, ok := out.(pipeline.Value); ok {
					if errValue, ok := v.Value.(value.Error); ok {
						return errValue.Err
					}
				}
				pipeline.Drain(out)
				return nil
			})
			if err != nil {
				return nil, err
			}
		}
	}

	return pipeline.Empty{}, nil
}

// EvalClosure binds args to the closure's parameters in a child scope and
// runs it.
func EvalClosure(ctx *Context, id BlockID, args []value.Value, input pipeline.Data, redirect Redirect) (pipeline.Data, error) {
	block := ctx.Engine.GetBlock(id)
	if block == nil {
		return nil, fmt.Errorf("unknown block %d", id)
	}

	child := ctx.WithStack(ctx.Stack.Push())
	for i, param := range block.Params {
		var arg value.Value = value.Nothing{}
		if i < len(args) {
			arg = args[i]
		}
		child.Stack.AddVar(param, arg)
	}

	return EvalBlock(child, block, input, redirect)
}

// CollectClosure runs a closure with its stdout captured and materializes the
// result.
func CollectClosure(ctx *Context, id BlockID, args []value.Value, input pipeline.Data) (value.Value, error) {
	return collect(ctx, func(ctx *Context) (pipeline.Data, error) {
		return EvalClosure(ctx, id, args, input, Redirect{Stdout: true})
	})
}

// scoped runs f with an interrupt of its own, triggered when f returns. f
// must have consumed everything it started by then.
func scoped(ctx *Context, f func(*Context) error) error {
	scope := ctx.Interrupt.Child()
	defer scope.Trigger()
	return f(ctx.WithInterrupt(scope))
}

// collect materializes the output of eval. Producers eval left running, such
// as a program whose output was only partly read, are stopped afterwards.
func collect(ctx *Context, eval func(*Context) (pipeline.Data, error)) (value.Value, error) {
	var out value.Value
	err := scoped(ctx, func(ctx *Context) error {
		data, err := eval(ctx)
		if err != nil {
			return err
		}
		out = pipeline.IntoValue(data)
		return nil
	})
	return out, err
}

func evalPipeline(ctx *Context, p *Pipeline, input pipeline.Data, redirect Redirect) (pipeline.Data, error) {
	// Processes started by a failed pipeline are cancelled so they don't
	// block forever on output nobody reads. On success the output may still
	// be streaming from them, so the child lives until the caller's scope
	// ends: the enclosing collect or scoped call, or the command line.
	var child *pipeline.Interrupt
	if p.hasExternal() && len(p.Elements) > 1 {
		child = ctx.Interrupt.Child()
		ctx = ctx.WithInterrupt(child)
	}

	data := input
	for i, el := range p.Elements {
		if ctx.Interrupt.Triggered() {
			ctx.Engine.Metrics.Interrupted()
			return nil, interruptedError(el.ExprSpan())
		}

		last := i == len(p.Elements)-1
		elRedirect := Redirect{Stdout: true}
		if last {
			elRedirect = redirect
		} else {
			elRedirect.Stderr = capturesStderr(ctx, p.Elements[i+1])
		}

		out, err := evalElement(ctx, el, data, elRedirect)
		if err != nil {
			child.Trigger()
			return nil, err
		}
		data = out
	}

	return data, nil
}

func capturesStderr(ctx *Context, next Expr) bool {
	call, ok := next.(*Call)
	if !ok {
		return false
	}
	cmd, ok := ctx.Engine.FindDecl(call.Name)
	return ok && cmd.Signature().CapturesStderr
}

func evalElement(ctx *Context, el Expr, input pipeline.Data, redirect Redirect) (pipeline.Data, error) {
	switch el := el.(type) {
	case *Call:
		cmd, ok := ctx.Engine.FindDecl(el.Name)
		if !ok {
			return nil, &ShellError{
				Kind: CommandNotFound,
				Span: el.Head,
				Msg:  fmt.Sprintf("command not found: %s", el.Name),
			}
		}
		ctx.Engine.Metrics.CommandRun(el.Name)
		ctx.Engine.Logger.Debug("run command", zap.String("command", el.Name))
		return cmd.Run(ctx, el, input)

	case *ExternalCall:
		return runExternal(ctx, el, input, redirect)

	default:
		v, err := EvalExpr(ctx, el)
		if err != nil {
			return nil, err
		}
		return pipeline.FromValue(v), nil
	}
}

// EvalExpr evaluates an expression to a single value.
func EvalExpr(ctx *Context, expr Expr) (value.Value, error) {
	switch expr := expr.(type) {
	case *Literal:
		return expr.Value, nil

	case *VarRef:
		v, ok := ctx.Stack.Var(expr.Name)
		if !ok {
			return nil, &ShellError{
				Kind: VariableNotFound,
				Span: expr.Span,
				Msg:  fmt.Sprintf("variable not found: $%s", expr.Name),
			}
		}
		return followPath(v, expr.Path, expr.Span)

	case *BlockRef:
		return value.Block{ID: expr.ID}, nil

	case *ClosureRef:
		return value.Closure{BlockID: expr.ID}, nil

	case *ListExpr:
		out := value.List{}
		for _, item := range expr.Items {
			v, err := EvalExpr(ctx, item)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil

	case *RecordExpr:
		out := value.NewRecord()
		for _, field := range expr.Fields {
			v, err := EvalExpr(ctx, field.Value)
			if err != nil {
				return nil, err
			}
			out.Insert(field.Key, v)
		}
		return out, nil

	case *TableExpr:
		out := value.List{}
		for _, row := range expr.Rows {
			if len(row) != len(expr.Columns) {
				return nil, Errorf(TypeMismatch, expr.Span, "table row has %d values, expected %d", len(row), len(expr.Columns))
			}
			rec := value.NewRecord()
			for i, cell := range row {
				v, err := EvalExpr(ctx, cell)
				if err != nil {
					return nil, err
				}
				rec.Insert(expr.Columns[i], v)
			}
			out = append(out, rec)
		}
		return out, nil

	case *Subexpr:
		return collect(ctx, func(ctx *Context) (pipeline.Data, error) {
			return EvalBlock(ctx, expr.Block, pipeline.Empty{}, Redirect{Stdout: true})
		})

	case *Call, *ExternalCall:
		return collect(ctx, func(ctx *Context) (pipeline.Data, error) {
			return evalElement(ctx, expr, pipeline.Empty{}, Redirect{Stdout: true})
		})

	default:
		panic(fmt.Sprintf("engine: unhandled variant %T", expr))
	}
}

func followPath(v value.Value, path []string, span value.Span) (value.Value, error) {
	for _, member := range path {
		switch current := v.(type) {
		case *value.Record:
			next, ok := current.Get(member)
			if !ok {
				return nil, Errorf(MissingColumn, span, "cannot find column %q", member)
			}
			v = next

		case value.Error:
			next, err := errorMember(current, member, span)
			if err != nil {
				return nil, err
			}
			v = next

		case value.List:
			if idx, err := strconv.Atoi(member); err == nil {
				if idx < 0 || idx >= len(current) {
					return nil, Errorf(TypeMismatch, span, "index %d out of range for list of %d", idx, len(current))
				}
				v = current[idx]
				continue
			}
			column := value.List{}
			for _, item := range current {
				cell, err := followPath(item, []string{member}, span)
				if err != nil {
					return nil, err
				}
				column = append(column, cell)
			}
			v = column

		default:
			return nil, Errorf(TypeMismatch, span, "cannot access %q on %s", member, value.TypeName(v))
		}
	}
	return v, nil
}

// errorMember exposes the message of an error value as $err.msg and its hint
// as $err.help.
func errorMember(e value.Error, member string, span value.Span) (value.Value, error) {
	var shellErr *ShellError
	hasShellErr := errors.As(e.Err, &shellErr)

	switch member {
	case "msg":
		if hasShellErr && shellErr.Msg != "" {
			return value.String(shellErr.Msg), nil
		}
		return value.String(e.Error()), nil
	case "help":
		if hasShellErr && shellErr.Help != "" {
			return value.String(shellErr.Help), nil
		}
		return value.Nothing{}, nil
	case "kind":
		return value.String(KindOf(e.Err).String()), nil
	default:
		return nil, Errorf(MissingColumn, span, "cannot find column %q", member)
	}
}
