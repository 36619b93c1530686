package commands

import (
	"fmt"
	"sort"
	"strings"

	"github.com/josephlewis42/pipesh/core/vos"
)

// Env implements the POSIX env command: it prints the environment or runs a
// program with a modified one.
//
// https://pubs.opengroup.org/onlinepubs/9699919799.2018edition/utilities/env.html
func Env(virtOS vos.VOS) int {
	cmd := &SimpleCommand{
		Use:   "env [-i] [NAME=VALUE]... [COMMAND [ARG]...]",
		Short: "Set or print the environment for command invocation.",
	}
	ignoreEnv := cmd.Flags().Bool('i', "start with an empty environment")

	return cmd.Run(virtOS, func() int {
		env := vos.NewMapEnv()
		if !*ignoreEnv {
			env = vos.NewMapEnvFrom(virtOS)
		}

		args := cmd.Flags().Args()
		for len(args) > 0 && strings.Contains(args[0], "=") {
			key, value, _ := strings.Cut(args[0], "=")
			env.Setenv(key, value)
			args = args[1:]
		}

		if len(args) == 0 {
			environ := env.Environ()
			sort.Strings(environ)
			for _, envDef := range environ {
				fmt.Fprintln(virtOS.Stdout(), envDef)
			}
			return 0
		}

		proc, err := virtOS.StartProcess(args[0], args, &vos.ProcAttr{
			// Non-nil so -i isn't replaced by the parent's environment.
			Env:   append([]string{}, env.Environ()...),
			Files: virtOS,
		})
		if err != nil {
			cmd.LogProgramError(virtOS, err)
			return 127
		}
		code, err := proc.Wait()
		if err != nil {
			cmd.LogProgramError(virtOS, err)
		}
		return code
	})
}

var _ vos.ProcessFunc = Env

func init() {
	addBinCmd("env", Env)
}
