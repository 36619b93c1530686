package commands

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/josephlewis42/pipesh/core/vos"
)

// Exit exits with the given status, 0 by default. Statuses wrap at 256 like
// they do on POSIX systems.
func Exit(virtOS vos.VOS) int {
	cmd := &SimpleCommand{
		Use:   "exit [N]",
		Short: "Exit with status N.",
	}

	return cmd.Run(virtOS, func() int {
		args := cmd.Flags().Args()
		switch len(args) {
		case 0:
			return 0
		case 1:
			n, err := strconv.Atoi(args[0])
			if err != nil {
				cmd.LogProgramError(virtOS, fmt.Errorf("%s: numeric argument required", args[0]))
				return 2
			}
			return int(uint8(n))
		default:
			cmd.LogProgramError(virtOS, fmt.Errorf("too many arguments"))
			return 1
		}
	})
}

// yesBufferSize is roughly how many bytes Yes writes at once.
const yesBufferSize = 4096

// Yes writes a line forever, stopping when the output is closed or the
// process is cancelled.
func Yes(virtOS vos.VOS) int {
	cmd := &SimpleCommand{
		Use:   "yes [STRING]...",
		Short: "Repeatedly output a line with all specified STRING(s), or 'y'.",
	}

	return cmd.Run(virtOS, func() int {
		line := "y\n"
		if args := cmd.Flags().Args(); len(args) > 0 {
			line = strings.Join(args, " ") + "\n"
		}
		buf := []byte(strings.Repeat(line, yesBufferSize/len(line)+1))

		ctx := virtOS.Context()
		for {
			select {
			case <-ctx.Done():
				return 130
			default:
			}
			if _, err := virtOS.Stdout().Write(buf); err != nil {
				return 1
			}
		}
	})
}

// Sleep pauses for a duration. Plain numbers are seconds, Go durations like
// "1m30s" are accepted too.
func Sleep(virtOS vos.VOS) int {
	cmd := &SimpleCommand{
		Use:   "sleep NUMBER[SUFFIX]",
		Short: "Pause for NUMBER seconds.",
	}

	return cmd.Run(virtOS, func() int {
		args := cmd.Flags().Args()
		if len(args) == 0 {
			cmd.LogProgramError(virtOS, fmt.Errorf("missing operand"))
			return 1
		}

		var total time.Duration
		for _, arg := range args {
			d, err := parseSleep(arg)
			if err != nil {
				cmd.LogProgramError(virtOS, err)
				return 1
			}
			total += d
		}

		timer := time.NewTimer(total)
		defer timer.Stop()
		select {
		case <-timer.C:
			return 0
		case <-virtOS.Context().Done():
			return 130
		}
	})
}

func parseSleep(arg string) (time.Duration, error) {
	if secs, err := strconv.ParseFloat(arg, 64); err == nil && secs >= 0 {
		return time.Duration(secs * float64(time.Second)), nil
	}
	d, err := time.ParseDuration(arg)
	if err != nil || d < 0 {
		return 0, fmt.Errorf("invalid time interval %q", arg)
	}
	return d, nil
}

func init() {
	addBinCmd("exit", Exit)
	addBinCmd("yes", Yes)
	addBinCmd("sleep", Sleep)
}
