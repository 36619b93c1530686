package commands

import (
	"fmt"
	"io"
	"strings"
	"unicode"

	"github.com/josephlewis42/pipesh/core/vos"
)

type wcCount struct {
	bytes int
	lines int
	chars int
	words int
	name  string

	inWord bool
}

func (w *wcCount) Write(data []byte) (int, error) {
	for _, c := range data {
		w.bytes++

		// Bytes following the leading byte of a UTF-8 character start with
		// 0b10.
		if c < 0b10000000 || c > 0b10111111 {
			w.chars++
		}

		if c == '\n' {
			w.lines++
		}

		if unicode.IsSpace(rune(c)) {
			w.inWord = false
		} else if !w.inWord {
			w.words++
			w.inWord = true
		}
	}

	return len(data), nil
}

func (w *wcCount) Increment(other *wcCount) {
	w.bytes += other.bytes
	w.chars += other.chars
	w.lines += other.lines
	w.words += other.words
}

// Wc implements the POSIX command by the same name.
// https://pubs.opengroup.org/onlinepubs/009695399/utilities/wc.html
func Wc(virtOS vos.VOS) int {
	cmd := &SimpleCommand{
		Use:   "wc [-c|-m] [-lw] [FILE...]",
		Short: "Write the number of newlines, words, and bytes contained in each input file to the standard output.",
	}

	opts := cmd.Flags()
	writeLines := opts.Bool('l', "write the number of newlines in each file")
	writeWords := opts.Bool('w', "write the number of words in each file")
	writeBytes := opts.Bool('c', "write the number of bytes in each file")
	writeChars := opts.Bool('m', "write the number of characters in each file")

	return cmd.Run(virtOS, func() int {
		nonePicked := !(*writeLines || *writeWords || *writeBytes || *writeChars)

		display := func(count *wcCount) {
			var cols []string
			if *writeLines || nonePicked {
				cols = append(cols, fmt.Sprint(count.lines))
			}
			if *writeWords || nonePicked {
				cols = append(cols, fmt.Sprint(count.words))
			}
			if *writeBytes || nonePicked {
				cols = append(cols, fmt.Sprint(count.bytes))
			}
			if *writeChars {
				cols = append(cols, fmt.Sprint(count.chars))
			}
			if count.name != "" && count.name != "-" {
				cols = append(cols, count.name)
			}
			fmt.Fprintln(virtOS.Stdout(), strings.Join(cols, " "))
		}

		files := opts.Args()
		total := &wcCount{name: "total"}
		status := cmd.RunEachFileOrStdin(virtOS, files, func(name string, fd io.Reader) error {
			count := &wcCount{name: name}
			if _, err := io.Copy(count, fd); err != nil {
				return err
			}
			total.Increment(count)
			display(count)
			return nil
		})

		if len(files) > 1 {
			display(total)
		}
		return status
	})
}

var _ vos.ProcessFunc = Wc

func init() {
	addBinCmd("wc", Wc)
}
