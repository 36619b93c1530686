// Package builtins holds the commands that run inside the engine, as opposed
// to the programs in package commands which run as external processes.
package builtins

import (
	"path"

	"github.com/josephlewis42/pipesh/core/engine"
)

// All returns a fresh instance of every builtin.
func All() []engine.Command {
	return []engine.Command{
		&Try{},
		&Join{},
		&Each{},
		&Echo{},
		&Length{},
		&Describe{},
		&Complete{},
		&ErrorMake{},
		&ToNuon{},
		&FromNuon{},
		&ToJSON{},
		&FromJSON{},
		&Open{},
		&Save{},
	}
}

// Register adds every builtin to state.
func Register(state *engine.EngineState) {
	for _, cmd := range All() {
		state.AddDecl(cmd)
	}
}

// resolvePath makes name absolute relative to the engine's working directory.
func resolvePath(ctx *engine.Context, name string) string {
	if path.IsAbs(name) {
		return path.Clean(name)
	}
	return path.Join(ctx.Engine.Cwd, name)
}
