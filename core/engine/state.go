package engine

import (
	"io"
	"sort"
	"sync"

	"github.com/josephlewis42/pipesh/core/logger"
	"github.com/josephlewis42/pipesh/core/metrics"
	"github.com/josephlewis42/pipesh/core/pipeline"
	"github.com/josephlewis42/pipesh/core/vos"
	"github.com/spf13/afero"
)

// Options tune external process handling.
type Options struct {
	// MaxExitStatusValues bounds how many exit statuses try buffers when
	// inspecting an external process.
	MaxExitStatusValues int
	// StreamBuffer is the number of output chunks queued per external stream.
	StreamBuffer int
	// MaxBytesPerSecond throttles external output, zero disables it.
	MaxBytesPerSecond int64
}

// DefaultOptions returns the options used when none are configured.
func DefaultOptions() Options {
	return Options{
		MaxExitStatusValues: 64,
		StreamBuffer:        16,
	}
}

// EngineState is shared by every evaluation in a session: the registered
// commands and blocks plus the outside world.
type EngineState struct {
	mu     sync.RWMutex
	decls  map[string]Command
	blocks []*Block

	Launcher vos.Launcher
	Fs       afero.Fs
	Env      *vos.MapEnv
	Cwd      string
	// Stdout and Stderr receive the output of external processes that isn't
	// redirected into the pipeline.
	Stdout  io.Writer
	Stderr  io.Writer
	Logger  *logger.Logger
	Metrics *metrics.Metrics
	Options Options
}

// NewEngineState creates a state with no commands, an in-memory filesystem
// and output discarded.
func NewEngineState() *EngineState {
	return &EngineState{
		decls:    make(map[string]Command),
		Launcher: vos.ChainLauncher{},
		Fs:       afero.NewMemMapFs(),
		Env:      vos.NewMapEnv(),
		Cwd:      "/",
		Stdout:   io.Discard,
		Stderr:   io.Discard,
		Logger:   logger.NewNop(),
		Options:  DefaultOptions(),
	}
}

// AddDecl registers cmd under its name, replacing any previous command.
func (e *EngineState) AddDecl(cmd Command) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.decls[cmd.Name()] = cmd
}

// FindDecl looks up a command by its full name.
func (e *EngineState) FindDecl(name string) (Command, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	cmd, ok := e.decls[name]
	return cmd, ok
}

// Decls returns the registered commands sorted by name.
func (e *EngineState) Decls() []Command {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := make([]Command, 0, len(e.decls))
	for _, cmd := range e.decls {
		out = append(out, cmd)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Name() < out[j].Name()
	})
	return out
}

// AddBlock registers a block and returns its ID.
func (e *EngineState) AddBlock(b *Block) BlockID {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.blocks = append(e.blocks, b)
	return len(e.blocks) - 1
}

// GetBlock returns a registered block, nil if the ID is unknown.
func (e *EngineState) GetBlock(id BlockID) *Block {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if id < 0 || id >= len(e.blocks) {
		return nil
	}
	return e.blocks[id]
}

// Context is passed to every evaluation: the shared engine state, the
// current scope and the interrupt of the running command line.
type Context struct {
	Engine    *EngineState
	Stack     *Stack
	Interrupt *pipeline.Interrupt
}

// NewContext creates a context with a fresh root scope.
func NewContext(engine *EngineState, interrupt *pipeline.Interrupt) *Context {
	return &Context{Engine: engine, Stack: NewStack(), Interrupt: interrupt}
}

// WithStack returns a copy of c evaluating in stack.
func (c *Context) WithStack(stack *Stack) *Context {
	out := *c
	out.Stack = stack
	return &out
}

// WithInterrupt returns a copy of c using interrupt.
func (c *Context) WithInterrupt(interrupt *pipeline.Interrupt) *Context {
	out := *c
	out.Interrupt = interrupt
	return &out
}
