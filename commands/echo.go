package commands

import (
	"io"
	"strconv"
	"strings"

	"github.com/josephlewis42/pipesh/core/vos"
)

var simpleEscapes = map[byte]byte{
	'\\': '\\',
	'a':  '\a',
	'b':  '\b',
	'e':  0x1b,
	'f':  '\f',
	'n':  '\n',
	'r':  '\r',
	't':  '\t',
	'v':  '\v',
}

// unescape interprets the backslash escapes echo -e understands. stop is set
// if s contained \c, which drops the rest of the output.
func unescape(s string) (out string, stop bool) {
	var sb strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] != '\\' || i+1 == len(s) {
			sb.WriteByte(s[i])
			continue
		}

		i++
		if ch, ok := simpleEscapes[s[i]]; ok {
			sb.WriteByte(ch)
			continue
		}

		switch s[i] {
		case 'c':
			return sb.String(), true
		case '0':
			digits := leadingDigits(s[i+1:], 3, "01234567")
			n, _ := strconv.ParseUint("0"+digits, 8, 16)
			sb.WriteRune(rune(n))
			i += len(digits)
		case 'x':
			digits := leadingDigits(s[i+1:], 2, "0123456789abcdefABCDEF")
			if digits == "" {
				sb.WriteString(`\x`)
				continue
			}
			n, _ := strconv.ParseUint(digits, 16, 8)
			sb.WriteRune(rune(n))
			i += len(digits)
		default:
			sb.WriteByte('\\')
			sb.WriteByte(s[i])
		}
	}
	return sb.String(), false
}

func leadingDigits(s string, max int, digits string) string {
	n := 0
	for n < len(s) && n < max && strings.IndexByte(digits, s[n]) >= 0 {
		n++
	}
	return s[:n]
}

// Echo writes its arguments separated by spaces.
func Echo(virtOS vos.VOS) int {
	cmd := &SimpleCommand{
		Use:   "echo [-enE] [ARG] ...",
		Short: "Display a line of text.",
	}

	opt := cmd.Flags()
	escaped := opt.Bool('e', "interpret backslash escapes")
	literal := opt.Bool('E', "don't interpret backslash escapes (default)")
	noNewline := opt.Bool('n', "do not output the trailing newline")

	return cmd.Run(virtOS, func() int {
		line := strings.Join(opt.Args(), " ")
		if *escaped && !*literal {
			var stop bool
			if line, stop = unescape(line); stop {
				*noNewline = true
			}
		}
		if !*noNewline {
			line += "\n"
		}

		io.WriteString(virtOS.Stdout(), line)
		return 0
	})
}

var _ vos.ProcessFunc = Echo

func init() {
	addBinCmd("echo", Echo)
}
