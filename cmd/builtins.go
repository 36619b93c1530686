package cmd

import (
	"fmt"
	"path"
	"strings"
	"text/tabwriter"

	"github.com/josephlewis42/pipesh/builtins"
	"github.com/josephlewis42/pipesh/commands"
	"github.com/josephlewis42/pipesh/core/engine"
	"github.com/spf13/cobra"
)

// builtinsCmd lists the commands
var builtinsCmd = &cobra.Command{
	Use:   "builtins",
	Short: "Show the builtin commands and programs.",
	Args:  cobra.ExactArgs(0),
	RunE: func(cmd *cobra.Command, args []string) error {
		state := engine.NewEngineState()
		builtins.Register(state)

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 8, 2, ' ', 0)
		for _, decl := range state.Decls() {
			fmt.Fprintf(w, "%s\t%s\n", engine.FormatSignature(decl.Name(), decl.Signature()), decl.Usage())
		}
		for _, program := range commands.ListBuiltinCommands() {
			name := path.Base(program.Names[0])
			fmt.Fprintf(w, "^%s\tprogram installed as %s\n", name, strings.Join(program.Names, ", "))
		}

		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(builtinsCmd)
}
