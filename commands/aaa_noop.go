package commands

import (
	"fmt"

	"github.com/josephlewis42/pipesh/core/vos"
)

// NoOpCommand is a program that ignores its input and exits with a fixed
// status.
type NoOpCommand struct {
	Name     string
	Use      string
	Short    string
	Stdout   string
	ExitCode int
}

// ToCommand converts the no-op command description to a functioning command.
func (c *NoOpCommand) ToCommand() vos.ProcessFunc {
	return func(virtOS vos.VOS) int {
		cmd := &SimpleCommand{
			Use:   c.Use,
			Short: c.Short,
			// Never bail, even if args are bad.
			NeverBail: true,
		}

		return cmd.Run(virtOS, func() int {
			if c.Stdout != "" {
				fmt.Fprintln(virtOS.Stdout(), c.Stdout)
			}

			return c.ExitCode
		})
	}
}

var noOpBinCommands = []NoOpCommand{
	{
		Name:  "true",
		Use:   "true [ignored command line arguments]",
		Short: "Exit with a status code indicating success.",
	},
	{
		Name:     "false",
		Use:      "false [ignored command line arguments]",
		Short:    "Exit with a status code indicating failure.",
		ExitCode: 1,
	},
	{
		Name:  "sync",
		Use:   "sync [FILE]...",
		Short: "Synchronize cached writes to persistent storage.",
	},
}

func init() {
	for _, cmd := range noOpBinCommands {
		cmd := cmd
		addBinCmd(cmd.Name, cmd.ToCommand())
	}
}
