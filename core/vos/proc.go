package vos

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path"
	"path/filepath"
	"strings"
	"time"
)

// ErrNotFound is the error resulting if a path search failed to find an executable file.
var ErrNotFound = exec.ErrNotFound

// DefaultPath is searched when the environment has no PATH.
const DefaultPath = "/usr/local/bin:/usr/bin:/bin"

// ProcessFunc is a virtual program. It returns the exit status.
type ProcessFunc func(VOS) int

// ProcessResolver looks up a virtual program by path, it returns nil if no
// program was found.
type ProcessResolver func(path string) ProcessFunc

// ProcAttr holds the attributes that will be applied to a new process
// started by a Launcher.
type ProcAttr struct {
	// If Dir is non-empty, the child runs in that directory.
	Dir string
	// Env gives the environment variables for the new process in the form
	// returned by Environ.
	Env []string
	// Files specifies the open files inherited by the new process.
	Files VIO
}

// Process is a started program.
type Process interface {
	// Wait blocks until the program exits and everything it wrote has been
	// delivered, then returns the exit status.
	Wait() (int, error)
}

// Launcher starts external programs.
type Launcher interface {
	// Start runs name with argv. Cancelling ctx asks the program to stop.
	// ErrNotFound is returned if no program exists with that name.
	Start(ctx context.Context, name string, argv []string, attr *ProcAttr) (Process, error)
}

// LookPath searches for a virtual program named file in the directories
// named by searchPath. If file contains a slash, it is tried directly and the
// path isn't consulted.
func LookPath(resolver ProcessResolver, searchPath, file string) (string, ProcessFunc, error) {
	if strings.Contains(file, "/") {
		if proc := resolver(path.Clean(file)); proc != nil {
			return file, proc, nil
		}
		return "", nil, ErrNotFound
	}
	if searchPath == "" {
		searchPath = DefaultPath
	}
	for _, dir := range filepath.SplitList(searchPath) {
		if dir == "" {
			continue
		}
		candidate := path.Join(dir, file)
		if proc := resolver(candidate); proc != nil {
			return candidate, proc, nil
		}
	}
	return "", nil, ErrNotFound
}

// VirtualLauncher runs ProcessFuncs on their own goroutine.
type VirtualLauncher struct {
	Resolver ProcessResolver
	Fs       VFS
}

var _ Launcher = (*VirtualLauncher)(nil)

// Start implements Launcher.Start.
func (l *VirtualLauncher) Start(ctx context.Context, name string, argv []string, attr *ProcAttr) (Process, error) {
	if attr == nil {
		attr = &ProcAttr{}
	}
	if argv == nil {
		argv = []string{name}
	}

	_, proc, err := LookPath(l.Resolver, NewMapEnvFromEnvList(attr.Env).Getenv("PATH"), name)
	if err != nil {
		return nil, &exec.Error{Name: name, Err: err}
	}

	p := &virtualProcess{done: make(chan struct{})}
	procOS := NewProcOS(ctx, l.Fs, argv, attr)
	procOS.launcher = l
	go func() {
		defer close(p.done)
		defer func() {
			if r := recover(); r != nil {
				p.code = 2
				p.err = fmt.Errorf("%s: panic: %v", name, r)
			}
		}()
		p.code = proc(procOS)
	}()
	return p, nil
}

type virtualProcess struct {
	done chan struct{}
	code int
	err  error
}

func (p *virtualProcess) Wait() (int, error) {
	<-p.done
	return p.code, p.err
}

// HostLauncher runs programs on the host with os/exec. Processes are killed
// when their context is cancelled.
type HostLauncher struct {
	// WaitDelay bounds how long Wait blocks on I/O after the process exits.
	WaitDelay time.Duration
}

var _ Launcher = (*HostLauncher)(nil)

// Start implements Launcher.Start.
func (l *HostLauncher) Start(ctx context.Context, name string, argv []string, attr *ProcAttr) (Process, error) {
	if attr == nil {
		attr = &ProcAttr{}
	}
	if argv == nil {
		argv = []string{name}
	}

	resolved, err := exec.LookPath(name)
	if err != nil {
		return nil, err
	}

	cmd := exec.CommandContext(ctx, resolved, argv[1:]...)
	cmd.Args = argv
	cmd.Dir = attr.Dir
	cmd.Env = attr.Env
	cmd.WaitDelay = l.WaitDelay
	if cmd.WaitDelay == 0 {
		cmd.WaitDelay = time.Second
	}
	if files := attr.Files; files != nil {
		if !IsNull(files.Stdin()) {
			cmd.Stdin = files.Stdin()
		}
		cmd.Stdout = files.Stdout()
		cmd.Stderr = files.Stderr()
	}

	if err := cmd.Start(); err != nil {
		return nil, err
	}
	return &hostProcess{cmd: cmd}, nil
}

type hostProcess struct {
	cmd *exec.Cmd
}

func (p *hostProcess) Wait() (int, error) {
	err := p.cmd.Wait()
	var exitErr *exec.ExitError
	switch {
	case err == nil, errors.Is(err, exec.ErrWaitDelay):
		return p.cmd.ProcessState.ExitCode(), nil
	case errors.As(err, &exitErr):
		// Killed by a signal.
		if exitErr.ExitCode() < 0 {
			return 1, nil
		}
		return exitErr.ExitCode(), nil
	default:
		return 1, err
	}
}

// ChainLauncher tries each launcher in order until one finds the program.
type ChainLauncher []Launcher

var _ Launcher = ChainLauncher(nil)

// Start implements Launcher.Start.
func (c ChainLauncher) Start(ctx context.Context, name string, argv []string, attr *ProcAttr) (Process, error) {
	for _, l := range c {
		proc, err := l.Start(ctx, name, argv, attr)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		return proc, err
	}
	return nil, &exec.Error{Name: name, Err: ErrNotFound}
}
