package repl

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/josephlewis42/pipesh/core/engine"
	"github.com/josephlewis42/pipesh/core/pipeline"
	"github.com/josephlewis42/pipesh/core/shell"
	"github.com/josephlewis42/pipesh/core/value"
)

// Evaluate parses src and runs it in ctx. Output of an external process
// ending the script goes to the engine's terminal.
func Evaluate(ctx *engine.Context, src string) (pipeline.Data, error) {
	block, err := shell.Parse(ctx.Engine, src)
	if err != nil {
		return nil, err
	}
	return engine.EvalBlock(ctx, block, pipeline.Empty{}, engine.Redirect{})
}

// RunScript evaluates src to completion in a fresh scope and prints the
// result to stdout and any failure to stderr. It returns the exit status: the
// last exit code of an external process ending the script, 1 on failure or
// 130 if ctx was cancelled.
func RunScript(ctx context.Context, state *engine.EngineState, src string, stdout, stderr io.Writer) int {
	interrupt := pipeline.NewInterrupt(ctx)
	defer interrupt.Trigger()

	return run(engine.NewContext(state, interrupt), src, stdout, func(src string, err error) {
		fmt.Fprint(stderr, FormatError(src, err))
	})
}

func run(ctx *engine.Context, src string, stdout io.Writer, printError func(string, error)) int {
	data, err := Evaluate(ctx, src)
	status := 0
	if err == nil {
		status, err = Output(stdout, data)
	}
	if err != nil {
		status = 1
		if engine.IsInterrupted(err) {
			status = interruptedStatus
		}
		printError(src, err)
	}
	return status
}

// Render formats a result for display: strings as they are, nothing as
// nothing and everything else as nuon.
func Render(v value.Value) (string, error) {
	switch v := v.(type) {
	case value.Nothing:
		return "", nil
	case value.String:
		return string(v), nil
	default:
		return value.ToNuon(v)
	}
}

// Output consumes data and writes its rendering to w. The status is the last
// exit code of an external process, 0 for anything else. Error values are
// returned as failures.
func Output(w io.Writer, data pipeline.Data) (int, error) {
	if external, ok := data.(pipeline.External); ok && external.Stdout == nil {
		codes := external.ExitCode
		external.ExitCode = nil
		pipeline.Drain(external)

		status := 0
		if codes == nil {
			return status, nil
		}
		for v, ok := codes.Next(); ok; v, ok = codes.Next() {
			if code, ok := v.(value.Int); ok {
				status = int(code)
			}
		}
		if codes.Interrupt().Triggered() {
			status = interruptedStatus
		}
		return status, nil
	}

	v := pipeline.IntoValue(data)
	if errValue, ok := v.(value.Error); ok {
		return 1, errValue.Err
	}

	out, err := Render(v)
	if err != nil {
		return 1, err
	}
	if out != "" {
		if !strings.HasSuffix(out, "\n") {
			out += "\n"
		}
		if _, err := io.WriteString(w, out); err != nil {
			return 1, err
		}
	}
	return 0, nil
}

// FormatError renders err for the user, pointing at the part of src that
// caused it when it's known.
func FormatError(src string, err error) string {
	var sb strings.Builder

	var shellErr *engine.ShellError
	if !errors.As(err, &shellErr) {
		fmt.Fprintf(&sb, "Error: %v\n", err)
		return sb.String()
	}

	fmt.Fprintf(&sb, "Error: %s: %v\n", shellErr.Kind, shellErr)

	var parseErr *shell.ParseError
	span := shellErr.Span
	if errors.As(err, &parseErr) {
		span = parseErr.Span
	}
	if line, col, width, ok := locate(src, span); ok {
		fmt.Fprintf(&sb, "  %s\n", line)
		fmt.Fprintf(&sb, "  %s%s\n", strings.Repeat(" ", col), strings.Repeat("^", width))
	}

	if shellErr.Help != "" {
		fmt.Fprintf(&sb, "help: %s\n", shellErr.Help)
	}
	return sb.String()
}

// locate finds the line of src holding span and the span's column and width
// within it.
func locate(src string, span value.Span) (line string, col, width int, ok bool) {
	if span.Start < 0 || span.End > len(src) || span.End <= span.Start {
		return "", 0, 0, false
	}

	lineStart := strings.LastIndex(src[:span.Start], "\n") + 1
	lineEnd := strings.Index(src[span.Start:], "\n")
	if lineEnd < 0 {
		lineEnd = len(src)
	} else {
		lineEnd += span.Start
	}

	end := span.End
	if end > lineEnd {
		end = lineEnd
	}
	width = end - span.Start
	if width < 1 {
		width = 1
	}
	return src[lineStart:lineEnd], span.Start - lineStart, width, true
}
