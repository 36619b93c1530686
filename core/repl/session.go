package repl

import (
	"io"
	"os"

	"github.com/josephlewis42/pipesh/builtins"
	"github.com/josephlewis42/pipesh/commands"
	"github.com/josephlewis42/pipesh/core/config"
	"github.com/josephlewis42/pipesh/core/engine"
	"github.com/josephlewis42/pipesh/core/logger"
	"github.com/josephlewis42/pipesh/core/metrics"
	"github.com/josephlewis42/pipesh/core/vos"
	"github.com/spf13/afero"
)

const (
	interruptedStatus = 130

	virtualHome = "/root"
)

// NewEngineState sets up an engine with every builtin registered, running
// externals the way cfg says. Host mode also exposes the host filesystem and
// environment, virtual mode starts from an empty in-memory filesystem.
func NewEngineState(cfg *config.Configuration, log *logger.Logger, m *metrics.Metrics, stdout, stderr io.Writer) (*engine.EngineState, error) {
	state := engine.NewEngineState()
	state.Stdout = stdout
	state.Stderr = stderr
	state.Logger = log
	state.Metrics = m
	state.Options = cfg.EngineOptions()
	builtins.Register(state)

	switch cfg.External.Mode {
	case config.ExternalModeHost:
		wd, err := os.Getwd()
		if err != nil {
			return nil, err
		}
		state.Fs = afero.NewOsFs()
		state.Cwd = wd
		if err := vos.CopyEnv(state.Env, vos.EnvList(os.Environ())); err != nil {
			return nil, err
		}
		state.Launcher = vos.ChainLauncher{
			&vos.HostLauncher{},
			&vos.VirtualLauncher{Resolver: commands.Resolve, Fs: state.Fs},
		}

	default:
		if err := state.Fs.MkdirAll(virtualHome, 0700); err != nil {
			return nil, err
		}
		if err := state.Fs.MkdirAll("/tmp", 0777); err != nil {
			return nil, err
		}
		state.Cwd = virtualHome
		state.Env.Setenv(commands.EnvHome, virtualHome)
		state.Env.Setenv(commands.EnvPath, vos.DefaultPath)
		state.Launcher = &vos.VirtualLauncher{Resolver: commands.Resolve, Fs: state.Fs}
	}

	if cfg.Color == config.ColorNever {
		state.Env.Setenv("NO_COLOR", "1")
	}

	return state, nil
}
