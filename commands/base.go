// Package commands holds the virtual programs pipesh can launch as externals
// when it runs without access to the host, or alongside host programs.
package commands

import (
	"errors"
	"fmt"
	"io"
	"path"
	"sort"

	"github.com/fatih/color"
	"github.com/josephlewis42/pipesh/core/vos"
	getopt "github.com/pborman/getopt/v2"
)

// AllCommands holds a list of all registered commands by absolute path.
var AllCommands = make(map[string]vos.ProcessFunc)

// addBinCmd adds a command under /bin and /usr/bin.
func addBinCmd(name string, cmd vos.ProcessFunc) {
	AllCommands[path.Join("/bin", name)] = cmd
	AllCommands[path.Join("/usr/bin", name)] = cmd
}

// Resolve looks up a program by its absolute path. It satisfies
// vos.ProcessResolver.
func Resolve(path string) vos.ProcessFunc {
	return AllCommands[path]
}

var _ vos.ProcessResolver = Resolve

// CommandEntry is a program and every path it's installed under.
type CommandEntry struct {
	Names []string
	Proc  vos.ProcessFunc
}

// ListBuiltinCommands groups the registered paths by program name, sorted.
func ListBuiltinCommands() []CommandEntry {
	byName := make(map[string]*CommandEntry)
	for fullPath, proc := range AllCommands {
		name := path.Base(fullPath)
		entry, ok := byName[name]
		if !ok {
			entry = &CommandEntry{Proc: proc}
			byName[name] = entry
		}
		entry.Names = append(entry.Names, fullPath)
	}

	var out []CommandEntry
	for _, entry := range byName {
		sort.Strings(entry.Names)
		out = append(out, *entry)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Names[0] < out[j].Names[0]
	})
	return out
}

// BytesToHuman renders a byte count with a decimal unit suffix.
func BytesToHuman(bytes int64) string {
	for _, e := range []struct {
		unit  string
		power int64
	}{
		{"P", 1e15},
		{"T", 1e12},
		{"G", 1e9},
		{"M", 1e6},
		{"K", 1e3},
	} {
		quotient := bytes / e.power
		switch {
		case quotient == 0:
			continue
		case quotient > 10:
			return fmt.Sprintf("%d%s", quotient, e.unit)
		default:
			return fmt.Sprintf("%0.1f%s", float64(bytes)/float64(e.power), e.unit)
		}
	}

	return fmt.Sprintf("%d", bytes)
}

type SimpleCommand struct {
	// Use holds a one line usage string
	Use string
	// Short holds a one line description of the command.
	Short string
	// ShowHelp sets whether help is displayed or not.
	// If this is non-nil when Run() is called, then the default help flag isn't
	// added.
	ShowHelp *bool
	// NeverBail skips interacting with stdout/stderr on failure and
	// always runs the callback.
	NeverBail bool

	flags *getopt.Set
	name  string
}

// Flags gets the command's flag set.
func (s *SimpleCommand) Flags() *getopt.Set {
	if s.flags == nil {
		s.flags = getopt.New()
	}

	return s.flags
}

// PrintHelp writes help for the command to the given writer.
func (s *SimpleCommand) PrintHelp(w io.Writer) {
	fmt.Fprint(w, "usage: ")
	fmt.Fprintln(w, s.Use)
	fmt.Fprintln(w, s.Short)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Flags:")
	s.Flags().PrintOptions(w)
}

// Run the command, if flag parsing was successful call the callback.
func (s *SimpleCommand) Run(virtOS vos.VOS, callback func() int) int {
	opts := s.Flags()
	if args := virtOS.Args(); len(args) > 0 {
		s.name = path.Base(args[0])
	}

	// Add help flag if not overridden.
	if s.ShowHelp == nil {
		s.ShowHelp = opts.BoolLong("help", 'h', "show this help and exit")
	}

	err := opts.Getopt(virtOS.Args(), nil)
	if err != nil && !s.NeverBail {
		fmt.Fprintf(virtOS.Stderr(), "error: %s\n\n", err)

		s.PrintHelp(virtOS.Stdout())
		return 1
	}

	if *s.ShowHelp {
		s.PrintHelp(virtOS.Stdout())
		return 0
	}

	return callback()
}

// RunE is Run for callbacks that fail with an error, the error is written to
// stderr and the exit status is 1.
func (s *SimpleCommand) RunE(virtOS vos.VOS, callback func() error) int {
	return s.Run(virtOS, func() int {
		if err := callback(); err != nil {
			s.LogProgramError(virtOS, err)
			return 1
		}
		return 0
	})
}

// LogProgramError writes err to stderr prefixed by the program name.
func (s *SimpleCommand) LogProgramError(virtOS vos.VOS, err error) {
	fmt.Fprintf(virtOS.Stderr(), "%s: %v\n", s.name, err)
}

// RunEachFileOrStdin calls callback for each named file, or once for stdin if
// no files are given or a file is named "-". Files that fail to open are
// reported and skipped, the exit status is 1 if any file failed.
func (s *SimpleCommand) RunEachFileOrStdin(virtOS vos.VOS, files []string, callback func(name string, fd io.Reader) error) int {
	if len(files) == 0 {
		files = []string{"-"}
	}

	status := 0
	for _, name := range files {
		if err := s.runFile(virtOS, name, callback); err != nil {
			s.LogProgramError(virtOS, err)
			status = 1
		}
	}
	return status
}

func (s *SimpleCommand) runFile(virtOS vos.VOS, name string, callback func(string, io.Reader) error) error {
	if name == "-" {
		return callback(name, virtOS.Stdin())
	}

	fd, err := virtOS.Open(name)
	if err != nil {
		return err
	}
	defer fd.Close()

	info, err := fd.Stat()
	if err != nil {
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("%s: %w", name, errIsDirectory)
	}
	return callback(name, fd)
}

var errIsDirectory = errors.New("is a directory")

const (
	colorAlways = "always"
	colorAuto   = "auto"
	colorNever  = "never"
)

// Colors are attribute lists, a fresh color.Color is built for each use.
var (
	ColorBoldBlue  = []color.Attribute{color.FgBlue, color.Bold}
	ColorBoldGreen = []color.Attribute{color.FgGreen, color.Bold}
	ColorBoldCyan  = []color.Attribute{color.FgCyan, color.Bold}
	ColorBoldRed   = []color.Attribute{color.FgRed, color.Bold}
)

type ColorPrinter struct {
	value  *string
	virtOS vos.VOS
}

// Init sets up the flag and virtual OS to determine the color output.
func (c *ColorPrinter) Init(flags *getopt.Set, virtOS vos.VOS) {
	c.virtOS = virtOS
	c.value = flags.EnumLong(
		"color",
		rune(0), // No short flag.
		[]string{colorAlways, colorAuto, colorNever},
		colorAuto,
		"colorize the output (always|auto|never)")
}

// ShouldColor reports whether output is colored. In auto mode programs color
// when the environment names a terminal and NO_COLOR is unset.
func (c *ColorPrinter) ShouldColor() bool {
	switch {
	case *c.value == colorNever:
		return false
	case *c.value == colorAlways:
		return true
	default:
		if _, noColor := c.virtOS.LookupEnv("NO_COLOR"); noColor {
			return false
		}
		term := c.virtOS.Getenv("TERM")
		return term != "" && term != "dumb"
	}
}

func (c *ColorPrinter) Sprintf(attrs []color.Attribute, format string, a ...interface{}) string {
	if !c.ShouldColor() {
		return fmt.Sprintf(format, a...)
	}
	// fatih/color disables itself when the host stdout isn't a terminal.
	clr := color.New(attrs...)
	clr.EnableColor()
	return clr.Sprintf(format, a...)
}
