package commands

import (
	"bufio"
	"fmt"
	"io"

	"github.com/josephlewis42/pipesh/core/vos"
)

// Cat concatenates files to stdout.
func Cat(virtOS vos.VOS) int {
	cmd := &SimpleCommand{
		Use:   "cat [-nE] [FILE]...",
		Short: "Concatenate FILE(s) to standard output, with no FILE read standard input.",
	}

	opt := cmd.Flags()
	number := opt.Bool('n', "number all output lines")
	showEnds := opt.Bool('E', "display $ at end of each line")

	return cmd.Run(virtOS, func() int {
		w := virtOS.Stdout()
		if !*number && !*showEnds {
			return cmd.RunEachFileOrStdin(virtOS, opt.Args(), func(name string, fd io.Reader) error {
				_, err := io.Copy(w, fd)
				return err
			})
		}

		// Numbering continues across files.
		line := 0
		return cmd.RunEachFileOrStdin(virtOS, opt.Args(), func(name string, fd io.Reader) error {
			r := bufio.NewReader(fd)
			for {
				text, err := r.ReadString('\n')
				if text != "" {
					line++
					writeCatLine(w, text, line, *number, *showEnds)
				}
				if err == io.EOF {
					return nil
				}
				if err != nil {
					return err
				}
			}
		})
	})
}

func writeCatLine(w io.Writer, text string, line int, number, showEnds bool) {
	if number {
		fmt.Fprintf(w, "%6d\t", line)
	}
	if showEnds && text[len(text)-1] == '\n' {
		text = text[:len(text)-1] + "$\n"
	}
	io.WriteString(w, text)
}

var _ vos.ProcessFunc = Cat

func init() {
	addBinCmd("cat", Cat)
}
