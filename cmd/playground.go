package cmd

import (
	"errors"
	"io/fs"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/abiosoft/readline"
	"github.com/josephlewis42/pipesh/core/config"
	"github.com/josephlewis42/pipesh/core/repl"
	"github.com/spf13/cobra"
)

// playgroundCmd runs an interactive shell in the current terminal
var playgroundCmd = &cobra.Command{
	Use:   "playground",
	Short: "Run the interactive shell without starting a server.",
	Args:  cobra.ExactArgs(0),
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true

		playgroundLogger := log.New(cmd.ErrOrStderr(), "[playground] ", 0)

		cfg, err := config.Load(cfgPath)
		if errors.Is(err, fs.ErrNotExist) {
			dir, err := os.MkdirTemp("", "playground")
			if err != nil {
				return err
			}
			defer os.RemoveAll(dir)

			playgroundLogger.Printf("No config in %q, using a temporary one\n", cfgPath)
			cfg, err = config.Initialize(dir, playgroundLogger)
			if err != nil {
				return err
			}
			cfgPath = dir
		} else if err != nil {
			return err
		}

		appLogger, closeLog, err := openAppLogger(cfg)
		if err != nil {
			return err
		}
		defer closeLog()

		playgroundLogger.Printf("See logs with: tail -f %s\n", filepath.Join(cfgPath, config.AppLogName))
		playgroundLogger.Println(strings.Repeat("=", 80))

		state, err := repl.NewEngineState(cfg, appLogger.NewSession("playground"), nil, cmd.OutOrStdout(), cmd.ErrOrStderr())
		if err != nil {
			return err
		}

		r, err := repl.New(state, repl.Terminal{
			Stdin:      os.Stdin,
			Stdout:     cmd.OutOrStdout(),
			Stderr:     cmd.ErrOrStderr(),
			IsTerminal: readline.DefaultIsTerminal,
		}, repl.OptionsFromConfig(cfg))
		if err != nil {
			return err
		}
		defer r.Close()

		// Ctrl-C while a line runs cancels it, at the prompt readline
		// handles it.
		sigs := make(chan os.Signal, 1)
		signal.Notify(sigs, os.Interrupt)
		defer signal.Stop(sigs)
		go func() {
			for range sigs {
				r.Interrupt()
			}
		}()

		return r.Run(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(playgroundCmd)
}
