package commands

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"regexp"

	"github.com/josephlewis42/pipesh/core/vos"
)

// Grep implements the POSIX grep command. The exit status is 0 if a line was
// selected, 1 if none were and 2 on error.
//
// https://pubs.opengroup.org/onlinepubs/9699919799.2018edition/utilities/grep.html
func Grep(virtOS vos.VOS) int {
	cmd := &SimpleCommand{
		Use:   "grep [-cinvF] PATTERN [FILE]...",
		Short: "Search files for text matching a pattern.",
	}

	opts := cmd.Flags()
	invert := opts.Bool('v', "select lines not matching the pattern")
	ignoreCase := opts.Bool('i', "match without regard to case")
	showLineNumbers := opts.Bool('n', "show line numbers")
	countOnly := opts.Bool('c', "only write a count of selected lines")
	fixed := opts.Bool('F', "match PATTERN as a fixed string")

	return cmd.Run(virtOS, func() int {
		args := opts.Args()
		if len(args) == 0 {
			cmd.LogProgramError(virtOS, errors.New("missing argument PATTERN"))
			return 2
		}

		pattern := args[0]
		if *fixed {
			pattern = regexp.QuoteMeta(pattern)
		}
		if *ignoreCase {
			pattern = "(?i)" + pattern
		}
		regex, err := regexp.Compile(pattern)
		if err != nil {
			cmd.LogProgramError(virtOS, err)
			return 2
		}

		files := args[1:]
		showFileName := len(files) > 1
		selected := 0
		status := cmd.RunEachFileOrStdin(virtOS, files, func(name string, fd io.Reader) error {
			w := virtOS.Stdout()
			prefix := ""
			if showFileName {
				prefix = name + ":"
			}

			count := 0
			scanner := bufio.NewScanner(fd)
			for lineNo := 1; scanner.Scan(); lineNo++ {
				line := scanner.Bytes()
				if regex.Match(line) == *invert {
					continue
				}
				count++
				if *countOnly {
					continue
				}
				if *showLineNumbers {
					fmt.Fprintf(w, "%s%d:%s\n", prefix, lineNo, line)
				} else {
					fmt.Fprintf(w, "%s%s\n", prefix, line)
				}
			}
			if *countOnly {
				fmt.Fprintf(w, "%s%d\n", prefix, count)
			}
			selected += count
			return scanner.Err()
		})

		switch {
		case status != 0:
			return 2
		case selected == 0:
			return 1
		default:
			return 0
		}
	})
}

var _ vos.ProcessFunc = Grep

func init() {
	addBinCmd("grep", Grep)
}
