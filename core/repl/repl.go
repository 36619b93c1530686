// Package repl is the interactive loop shared by the playground and SSH
// sessions: read a line, evaluate it, print the result.
package repl

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/abiosoft/readline"
	"github.com/fatih/color"
	"github.com/josephlewis42/pipesh/core/config"
	"github.com/josephlewis42/pipesh/core/engine"
	"github.com/josephlewis42/pipesh/core/pipeline"
	"go.uber.org/zap"
)

// EnvLastExitCode holds the status of the last external process run.
const EnvLastExitCode = "LAST_EXIT_CODE"

// Terminal describes where a session reads and writes.
type Terminal struct {
	Stdin  io.ReadCloser
	Stdout io.Writer
	Stderr io.Writer

	// IsTerminal reports whether the other end is a terminal, nil means no.
	IsTerminal func() bool
	// Width of the terminal, nil uses readline's default.
	Width func() int
	// Remote skips putting the local terminal into raw mode.
	Remote bool
}

// Options configure a REPL.
type Options struct {
	Prompt       string
	Color        string
	HistoryFile  string
	HistoryLimit int
}

// OptionsFromConfig pulls the REPL settings out of cfg.
func OptionsFromConfig(cfg *config.Configuration) Options {
	return Options{
		Prompt:       cfg.Prompt,
		Color:        cfg.Color,
		HistoryFile:  cfg.HistoryFile(),
		HistoryLimit: cfg.HistoryLimit,
	}
}

type REPL struct {
	state    *engine.EngineState
	stack    *engine.Stack
	readline *readline.Instance
	terminal Terminal
	colorize bool
	prompt   string

	mu      sync.Mutex
	current *pipeline.Interrupt
}

// New creates a REPL evaluating in state.
func New(state *engine.EngineState, terminal Terminal, opts Options) (*REPL, error) {
	if terminal.IsTerminal == nil {
		terminal.IsTerminal = func() bool { return false }
	}

	cfg := &readline.Config{
		Prompt:          opts.Prompt,
		HistoryFile:     opts.HistoryFile,
		HistoryLimit:    opts.HistoryLimit,
		InterruptPrompt: "^C",
		Stdin:           readline.NewCancelableStdin(terminal.Stdin),
		Stdout:          terminal.Stdout,
		Stderr:          terminal.Stderr,
		FuncGetWidth:    terminal.Width,
		FuncIsTerminal:  terminal.IsTerminal,
	}
	if terminal.Remote {
		cfg.FuncMakeRaw = func() error { return nil }
		cfg.FuncExitRaw = func() error { return nil }
	}
	if err := cfg.Init(); err != nil {
		return nil, err
	}

	rl, err := readline.NewEx(cfg)
	if err != nil {
		return nil, err
	}

	r := &REPL{
		state:    state,
		stack:    engine.NewStack(),
		readline: rl,
		terminal: terminal,
		prompt:   opts.Prompt,
	}
	r.colorize = shouldColor(opts.Color, terminal.IsTerminal())
	rl.SetPrompt(r.colorPrompt())
	return r, nil
}

func shouldColor(mode string, isTerminal bool) bool {
	switch mode {
	case config.ColorAlways:
		return true
	case config.ColorNever:
		return false
	default:
		return isTerminal
	}
}

func (r *REPL) sprint(attrs []color.Attribute, s string) string {
	if !r.colorize {
		return s
	}
	c := color.New(attrs...)
	c.EnableColor()
	return c.Sprint(s)
}

func (r *REPL) colorPrompt() string {
	return r.sprint([]color.Attribute{color.FgGreen, color.Bold}, r.prompt)
}

// Run reads and evaluates lines until the input ends or ctx is done.
func (r *REPL) Run(ctx context.Context) error {
	log := r.state.Logger
	done := r.state.Metrics.SessionStarted()
	defer done()

	stop := context.AfterFunc(ctx, func() {
		r.Interrupt()
		r.readline.Close()
	})
	defer stop()

	for {
		line, err := r.readline.Readline()

		switch {
		case err == io.EOF:
			return nil // Input closed, quit.

		case err == readline.ErrInterrupt:
			continue // Discard the line.

		case err != nil:
			if ctx.Err() != nil {
				return nil
			}
			log.Warn("readline failed", zap.Error(err))
			return err

		case strings.TrimSpace(line) == "":
			continue

		default:
			r.EvalLine(ctx, line)
		}

		if ctx.Err() != nil {
			return nil
		}
	}
}

// EvalLine evaluates one command line, printing its result or error. The
// line can be interrupted with Interrupt.
func (r *REPL) EvalLine(ctx context.Context, line string) {
	interrupt := pipeline.NewInterrupt(ctx)
	r.mu.Lock()
	r.current = interrupt
	r.mu.Unlock()
	defer func() {
		r.mu.Lock()
		r.current = nil
		r.mu.Unlock()
		interrupt.Trigger()
	}()

	r.state.Logger.Debug("evaluating", zap.String("line", line))

	evalCtx := engine.NewContext(r.state, interrupt)
	evalCtx.Stack = r.stack

	status := run(evalCtx, line, r.terminal.Stdout, r.printError)
	r.state.Env.Setenv(EnvLastExitCode, strconv.Itoa(status))
}

func (r *REPL) printError(line string, err error) {
	msg := FormatError(line, err)
	fmt.Fprint(r.terminal.Stderr, r.sprint([]color.Attribute{color.FgRed, color.Bold}, msg))
}

// Interrupt cancels the line being evaluated, if any.
func (r *REPL) Interrupt() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.current.Trigger()
}

// Close releases the terminal.
func (r *REPL) Close() error {
	return r.readline.Close()
}
