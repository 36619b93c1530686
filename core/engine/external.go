package engine

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/josephlewis42/pipesh/core/logger"
	"github.com/josephlewis42/pipesh/core/pipeline"
	"github.com/josephlewis42/pipesh/core/value"
	"github.com/josephlewis42/pipesh/core/vos"
	"github.com/juju/ratelimit"
	"go.uber.org/zap"
)

// runExternal starts a program and returns its output streams. Stdout and
// stderr are each fed by a goroutine, a third waits for the exit status. All
// of them stop producing once the interrupt is triggered.
func runExternal(ctx *Context, call *ExternalCall, input pipeline.Data, redirect Redirect) (pipeline.Data, error) {
	engine := ctx.Engine
	interrupt := ctx.Interrupt

	argv := []string{call.Name}
	for _, arg := range call.Args {
		v, err := EvalExpr(ctx, arg)
		if err != nil {
			return nil, err
		}
		argv = append(argv, externalArgs(v)...)
	}

	stdin, closeStdin := externalStdin(input, interrupt)

	pipes := &vos.Pipes{}
	pipes.OnClose(closeStdin)
	stdoutW, stdoutR := pipes.Output(engine.Stdout, redirect.Stdout)
	stderrW, stderrR := pipes.Output(engine.Stderr, redirect.Stderr)

	proc, err := engine.Launcher.Start(interrupt.Context(), call.Name, argv, &vos.ProcAttr{
		Dir:   engine.Cwd,
		Env:   engine.Env.Environ(),
		Files: vos.NewVIOAdapter(stdin, stdoutW, stderrW),
	})
	if err != nil {
		pipes.Close()
		if errors.Is(err, vos.ErrNotFound) {
			return nil, &ShellError{
				Kind: CommandNotFound,
				Span: call.Head,
				Msg:  fmt.Sprintf("command not found: %s", call.Name),
				Help: "no builtin or program with this name exists",
				Err:  err,
			}
		}
		return nil, &ShellError{
			Kind: ExternalFailed,
			Span: call.Head,
			Msg:  fmt.Sprintf("failed to start %s", call.Name),
			Err:  err,
		}
	}

	log := engine.Logger.With(zap.Strings(logger.FieldArgv, argv))
	log.Debug(logger.MessageExternalStart)
	engine.Metrics.ExternalStarted()

	exitCodes := make(chan value.Value, 1)
	go func() {
		defer close(exitCodes)

		code, err := proc.Wait()
		pipes.Close()
		if err != nil {
			log.Warn("external exited abnormally", zap.Error(err))
		}
		log.Debug(logger.MessageExternalExited, zap.Int(logger.FieldCode, code))
		engine.Metrics.ExternalExited(code)

		if interrupt.Triggered() {
			return
		}
		exitCodes <- value.Int(code)
	}()

	out := pipeline.External{
		ExitCode:       pipeline.FromChannel(exitCodes, interrupt),
		Span:           call.Span,
		TrimEndNewline: true,
	}
	buffer := engine.Options.StreamBuffer
	if buffer <= 0 {
		buffer = DefaultOptions().StreamBuffer
	}
	if stdoutR != nil {
		out.Stdout = pipeline.Feed(engine.throttle(stdoutR), interrupt, buffer)
	}
	if stderrR != nil {
		out.Stderr = pipeline.Feed(engine.throttle(stderrR), interrupt, buffer)
	}
	return out, nil
}

// throttle limits r to Options.MaxBytesPerSecond.
func (e *EngineState) throttle(r io.ReadCloser) io.ReadCloser {
	rate := e.Options.MaxBytesPerSecond
	if rate <= 0 {
		return r
	}
	bucket := ratelimit.NewBucketWithRate(float64(rate), rate)
	return struct {
		io.Reader
		io.Closer
	}{ratelimit.Reader(r, bucket), r}
}

// externalArgs renders a value as program arguments, lists are spread.
func externalArgs(v value.Value) []string {
	switch v := v.(type) {
	case nil, value.Nothing:
		return nil
	case value.List:
		var out []string
		for _, item := range v {
			out = append(out, externalArgs(item)...)
		}
		return out
	default:
		return []string{ValueText(v)}
	}
}

// ValueText renders a value the way it is written to a program or a file:
// strings as is, everything else as nuon.
func ValueText(v value.Value) string {
	switch v := v.(type) {
	case value.String:
		return string(v)
	case value.Binary:
		return string(v)
	case value.Error:
		return v.Error()
	default:
		out, err := value.ToNuon(v)
		if err != nil {
			return fmt.Sprintf("<%s>", value.TypeName(v))
		}
		return out
	}
}

// externalStdin adapts pipeline input to a program's stdin. The returned func
// releases the reader once the program exits.
func externalStdin(input pipeline.Data, interrupt *pipeline.Interrupt) (io.Reader, func()) {
	nop := func() {}

	switch input := input.(type) {
	case nil, pipeline.Empty:
		return nil, nop

	case pipeline.Value:
		switch v := input.Value.(type) {
		case nil, value.Nothing:
			return nil, nop
		case value.String:
			return strings.NewReader(string(v)), nop
		case value.Binary:
			return bytes.NewReader(v), nop
		case value.List:
			return streamStdin(pipeline.FromValues(v, interrupt))
		default:
			return strings.NewReader(ValueText(v) + "\n"), nop
		}

	case pipeline.Stream:
		return streamStdin(input.Stream)

	case pipeline.External:
		if input.Stderr != nil {
			go input.Stderr.Drain()
		}
		if input.Stdout == nil {
			return nil, nop
		}
		return input.Stdout.Reader(), nop

	default:
		panic(fmt.Sprintf("engine: unhandled variant %T", input))
	}
}

// streamStdin writes one line per value from a producer goroutine.
func streamStdin(stream *pipeline.ListStream) (io.Reader, func()) {
	r, w := io.Pipe()
	go func() {
		defer w.Close()
		for v, ok := stream.Next(); ok; v, ok = stream.Next() {
			if _, err := io.WriteString(w, ValueText(v)+"\n"); err != nil {
				return
			}
		}
	}()
	return r, func() { r.Close() }
}
