package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/josephlewis42/pipesh/core/repl"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var runScript string

// exitStatus is returned by commands that exit with a status other than 1.
type exitStatus int

func (e exitStatus) Error() string {
	return fmt.Sprintf("exit status %d", int(e))
}

// runCmd evaluates a script non-interactively
var runCmd = &cobra.Command{
	Use:   "run [-c SCRIPT | FILE]",
	Short: "Evaluate a script and print its result.",
	Long: `Evaluate a script from the -c flag, a file or stdin and print the final
value: strings as they are, everything else as nuon. The exit status is
non-zero if the script fails.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true

		script, err := readScript(cmd, args)
		if err != nil {
			return err
		}

		configuration, err := loadConfigOrDefault()
		if err != nil {
			return err
		}
		appLogger, closeLog, err := openAppLogger(configuration)
		if err != nil {
			return err
		}
		defer closeLog()

		sessionLogger := appLogger.NewSession("run")
		sessionLogger.Info("running script", zap.Int("bytes", len(script)))

		state, err := repl.NewEngineState(configuration, sessionLogger, nil, cmd.OutOrStdout(), cmd.ErrOrStderr())
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		if status := repl.RunScript(ctx, state, script, cmd.OutOrStdout(), cmd.ErrOrStderr()); status != 0 {
			cmd.SilenceErrors = true
			return exitStatus(status)
		}
		return nil
	},
}

func readScript(cmd *cobra.Command, args []string) (string, error) {
	switch {
	case runScript != "" && len(args) > 0:
		return "", errors.New("use -c or a file, not both")
	case runScript != "":
		return runScript, nil
	case len(args) == 1:
		script, err := os.ReadFile(args[0])
		return string(script), err
	default:
		script, err := io.ReadAll(cmd.InOrStdin())
		return string(script), err
	}
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().StringVarP(&runScript, "command", "c", "", "script to run")
}
