package commands

import (
	"fmt"
	"path"

	"github.com/josephlewis42/pipesh/core/vos"
)

// Pwd prints the working directory. With -L it prefers $PWD when that names
// the same directory.
func Pwd(virtOS vos.VOS) int {
	cmd := &SimpleCommand{
		Use:   "pwd [-LP]",
		Short: "Print the name of the current working directory.",
	}

	opt := cmd.Flags()
	logical := opt.Bool('L', "use PWD from the environment, even if it contains symlinks")
	opt.Bool('P', "avoid all symlinks (default)")

	return cmd.Run(virtOS, func() int {
		wd := virtOS.Getwd()
		if env := virtOS.Getenv("PWD"); *logical && path.IsAbs(env) && path.Clean(env) == wd {
			wd = env
		}
		fmt.Fprintln(virtOS.Stdout(), wd)
		return 0
	})
}

var _ vos.ProcessFunc = Pwd

func init() {
	addBinCmd("pwd", Pwd)
}
