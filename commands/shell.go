package commands

import (
	"errors"
	"fmt"
	"io"
	"path"
	"strconv"
	"strings"
	"sync"

	"github.com/anmitsu/go-shlex"
	"github.com/josephlewis42/pipesh/core/vos"
)

const (
	EnvHome = "HOME"
	EnvPWD  = "PWD"
	EnvPath = "PATH"
)

const (
	opSeq  = ";"
	opAnd  = "&&"
	opOr   = "||"
	opPipe = "|"
)

var errUnterminatedQuote = errors.New("syntax error: unterminated quoted string")

// Shell is a small POSIX-like command interpreter. It runs lists of simple
// commands joined by ";", "&&", "||" and "|", with NAME=VALUE prefixes and
// $VAR expansion. Everything else is left to the programs it starts.
type Shell struct {
	VirtualOS vos.VOS

	env     *vos.MapEnv
	dir     string
	lastRet int

	// Set to true to quit the shell
	Quit bool
}

// RunShell is the sh program, it runs the -c argument, a script file or the
// script read from stdin.
func RunShell(virtualOS vos.VOS) int {
	cmd := &SimpleCommand{
		Use:       "sh [-c COMMAND | FILE]",
		Short:     "Run a list of simple commands.",
		NeverBail: true,
	}
	commandFlag := cmd.Flags().String('c', "", "read commands from the COMMAND string")

	return cmd.Run(virtualOS, func() int {
		s := NewShell(virtualOS)

		script := *commandFlag
		if script == "" {
			var r io.Reader = virtualOS.Stdin()
			if args := cmd.Flags().Args(); len(args) > 0 {
				fd, err := virtualOS.Open(args[0])
				if err != nil {
					cmd.LogProgramError(virtualOS, err)
					return 127
				}
				defer fd.Close()
				r = fd
			}

			b, err := io.ReadAll(r)
			if err != nil {
				cmd.LogProgramError(virtualOS, err)
				return 1
			}
			script = string(b)
		}

		if err := s.RunScript(script); err != nil {
			cmd.LogProgramError(virtualOS, err)
			return 2
		}
		return s.lastRet
	})
}

// NewShell creates a shell inheriting the process's environment and working
// directory.
func NewShell(virtualOS vos.VOS) *Shell {
	s := &Shell{
		VirtualOS: virtualOS,
		env:       vos.NewMapEnvFrom(virtualOS),
		dir:       virtualOS.Getwd(),
	}
	s.env.Setenv(EnvPWD, s.dir)
	return s
}

// LastStatus returns the exit status of the last command run.
func (s *Shell) LastStatus() int {
	return s.lastRet
}

// RunScript parses and runs script. Syntax errors are returned before
// anything runs.
func (s *Shell) RunScript(script string) error {
	words, err := splitOperators(script)
	if err != nil {
		return err
	}

	prevOp := opSeq
	var pipeline []string
	for _, w := range words {
		if w.op == "" {
			pipeline = append(pipeline, w.text)
			continue
		}
		if w.op == opPipe {
			if len(pipeline) == 0 || strings.TrimSpace(pipeline[len(pipeline)-1]) == "" {
				return fmt.Errorf("syntax error near unexpected token %q", w.op)
			}
			continue
		}

		if err := s.runList(pipeline, prevOp); err != nil {
			return err
		}
		if s.Quit || s.cancelled() {
			return nil
		}
		pipeline = nil
		prevOp = w.op
	}

	return s.runList(pipeline, prevOp)
}

// runList runs a pipeline unless the operator before it short circuits.
func (s *Shell) runList(pipeline []string, prevOp string) error {
	switch {
	case prevOp == opAnd && s.lastRet != 0:
		return nil
	case prevOp == opOr && s.lastRet == 0:
		return nil
	}

	var commands [][]string
	for _, segment := range pipeline {
		tokens, err := shlex.Split(segment, true)
		if err != nil {
			return err
		}
		for i, tok := range tokens {
			tokens[i] = s.env.ExpandEnv(tok)
		}
		commands = append(commands, tokens)
	}

	switch {
	case len(commands) == 0:
		return nil
	case len(commands) == 1:
		if len(commands[0]) == 0 {
			return nil
		}
		s.lastRet = s.runSimple(commands[0], s.VirtualOS.Stdin(), s.VirtualOS.Stdout())
	default:
		for _, c := range commands {
			if len(c) == 0 {
				return errors.New("syntax error near unexpected token \"|\"")
			}
		}
		s.lastRet = s.runPipeline(commands)
	}
	return nil
}

// runPipeline starts every command at once, each reading the previous one's
// output. The status is the last command's.
func (s *Shell) runPipeline(commands [][]string) int {
	statuses := make([]int, len(commands))

	var wg sync.WaitGroup
	var prev *io.PipeReader
	for i, argv := range commands {
		var stdin io.Reader = s.VirtualOS.Stdin()
		if prev != nil {
			stdin = prev
		}
		var stdout io.Writer = s.VirtualOS.Stdout()
		var r *io.PipeReader
		var w *io.PipeWriter
		if i < len(commands)-1 {
			r, w = io.Pipe()
			stdout = w
		}

		wg.Add(1)
		go func(i int, argv []string, stdin io.Reader, stdout io.Writer, in *io.PipeReader, out *io.PipeWriter) {
			defer wg.Done()
			// Builtins only affect the shell when run on their own.
			statuses[i] = s.startAndWait(argv, s.env.Environ(), stdin, stdout)
			// Readers see EOF, writers see a closed pipe.
			if out != nil {
				out.Close()
			}
			if in != nil {
				in.Close()
			}
		}(i, argv, stdin, stdout, prev, w)

		prev = r
	}
	wg.Wait()

	return statuses[len(statuses)-1]
}

// runSimple runs a single command, handling assignments and builtins.
func (s *Shell) runSimple(argv []string, stdin io.Reader, stdout io.Writer) int {
	var assignments []string
	for len(argv) > 0 && isAssignment(argv[0]) {
		assignments = append(assignments, argv[0])
		argv = argv[1:]
	}

	if len(argv) == 0 {
		// The whole line was assignments, they apply to the shell.
		for _, a := range assignments {
			key, value, _ := strings.Cut(a, "=")
			s.env.Setenv(key, value)
		}
		return 0
	}

	switch argv[0] {
	case "exit":
		return s.builtinExit(argv)
	case "cd":
		return s.builtinCd(argv)
	case "export":
		return s.builtinExport(argv)
	}

	env := vos.NewMapEnvFrom(s.env)
	for _, a := range assignments {
		key, value, _ := strings.Cut(a, "=")
		env.Setenv(key, value)
	}
	return s.startAndWait(argv, env.Environ(), stdin, stdout)
}

func (s *Shell) startAndWait(argv, env []string, stdin io.Reader, stdout io.Writer) int {
	proc, err := s.VirtualOS.StartProcess(argv[0], argv, &vos.ProcAttr{
		Dir:   s.dir,
		Env:   env,
		Files: vos.NewVIOAdapter(stdin, stdout, s.VirtualOS.Stderr()),
	})
	if errors.Is(err, vos.ErrNotFound) {
		fmt.Fprintf(s.VirtualOS.Stderr(), "sh: %s: command not found\n", argv[0])
		return 127
	}
	if err != nil {
		fmt.Fprintf(s.VirtualOS.Stderr(), "sh: %s: %v\n", argv[0], err)
		return 126
	}

	code, err := proc.Wait()
	if err != nil {
		fmt.Fprintf(s.VirtualOS.Stderr(), "sh: %s: %v\n", argv[0], err)
	}
	return code
}

func (s *Shell) cancelled() bool {
	select {
	case <-s.VirtualOS.Context().Done():
		s.lastRet = 130
		return true
	default:
		return false
	}
}

// builtinExit quits the shell with the given status or the last one.
func (s *Shell) builtinExit(args []string) int {
	s.Quit = true
	if len(args) < 2 {
		return s.lastRet
	}
	n, err := strconv.Atoi(args[1])
	if err != nil {
		fmt.Fprintf(s.VirtualOS.Stderr(), "%s: %s: numeric argument required\n", args[0], args[1])
		return 2
	}
	return int(uint8(n))
}

// builtinCd changes the shell's working directory.
func (s *Shell) builtinCd(args []string) int {
	switch len(args) {
	case 1:
		args = append(args, s.env.Getenv(EnvHome))
		fallthrough
	case 2:
		dir := args[1]
		if !path.IsAbs(dir) {
			dir = path.Join(s.dir, dir)
		}
		if err := s.checkDir(dir); err != nil {
			fmt.Fprintf(s.VirtualOS.Stderr(), "%s: %s: %v\n", args[0], args[1], err)
			return 1
		}
		s.dir = dir
		s.env.Setenv(EnvPWD, dir)
		return 0
	default:
		fmt.Fprintf(s.VirtualOS.Stderr(), "%s: too many arguments\n", args[0])
		return 1
	}
}

func (s *Shell) checkDir(dir string) error {
	fd, err := s.VirtualOS.Open(dir)
	if err != nil {
		return err
	}
	defer fd.Close()

	info, err := fd.Stat()
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return errors.New("not a directory")
	}
	return nil
}

// builtinExport sets variables in the shell's environment.
func (s *Shell) builtinExport(args []string) int {
	for _, a := range args[1:] {
		key, value, ok := strings.Cut(a, "=")
		if !ok {
			value = s.env.Getenv(key)
		}
		s.env.Setenv(key, value)
	}
	return 0
}

func isAssignment(word string) bool {
	key, _, ok := strings.Cut(word, "=")
	if !ok || key == "" {
		return false
	}
	for i, r := range key {
		isAlpha := r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
		if !isAlpha && (i == 0 || r < '0' || r > '9') {
			return false
		}
	}
	return true
}

type shWord struct {
	// text is a command's source, op an operator following it. Exactly one
	// is set.
	text string
	op   string
}

// splitOperators splits script at unquoted operators and newlines, leaving
// word splitting of each command to shlex. Comments run to the end of the
// line.
func splitOperators(script string) ([]shWord, error) {
	var out []shWord
	var current strings.Builder
	flush := func(op string) {
		out = append(out, shWord{text: current.String()}, shWord{op: op})
		current.Reset()
	}

	var quote rune
	atWordStart := true
	runes := []rune(script)
	for i := 0; i < len(runes); i++ {
		r := runes[i]

		switch {
		case quote == '\'':
			if r == '\'' {
				quote = 0
			}
		case quote == '"':
			switch r {
			case '\\':
				if i+1 < len(runes) {
					current.WriteRune(r)
					i++
					r = runes[i]
				}
			case '"':
				quote = 0
			}
		case r == '\\':
			if i+1 < len(runes) {
				current.WriteRune(r)
				i++
				r = runes[i]
			}
		case r == '\'' || r == '"':
			quote = r
		case r == '#' && atWordStart:
			for i < len(runes) && runes[i] != '\n' {
				i++
			}
			i--
			continue
		case r == ';' || r == '\n':
			flush(opSeq)
			atWordStart = true
			continue
		case r == '&' && i+1 < len(runes) && runes[i+1] == '&':
			flush(opAnd)
			i++
			atWordStart = true
			continue
		case r == '|' && i+1 < len(runes) && runes[i+1] == '|':
			flush(opOr)
			i++
			atWordStart = true
			continue
		case r == '|':
			flush(opPipe)
			atWordStart = true
			continue
		}

		current.WriteRune(r)
		atWordStart = quote == 0 && (r == ' ' || r == '\t')
	}

	if quote != 0 {
		return nil, errUnterminatedQuote
	}
	out = append(out, shWord{text: current.String()})
	return out, nil
}

var _ vos.ProcessFunc = RunShell

func init() {
	addBinCmd("sh", RunShell)
}
