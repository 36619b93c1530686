// Package vostest runs virtual processes in isolation for tests.
package vostest

import (
	"bytes"
	"context"
	"io"

	"github.com/josephlewis42/pipesh/core/vos"
	"github.com/spf13/afero"
)

// SingleProcessResolver resolves every path to process.
func SingleProcessResolver(process vos.ProcessFunc) vos.ProcessResolver {
	return func(path string) vos.ProcessFunc {
		return process
	}
}

// MapResolver resolves "/bin/<name>" to the matching entry of programs.
func MapResolver(programs map[string]vos.ProcessFunc) vos.ProcessResolver {
	return func(path string) vos.ProcessFunc {
		for name, proc := range programs {
			if path == "/bin/"+name {
				return proc
			}
		}
		return nil
	}
}

// Cmd is similar to exec.Cmd.
type Cmd struct {
	// Process function
	Process vos.ProcessFunc
	// Process arguments, the first argument should be the process name.
	Argv []string
	// If Dir is non-empty, the process runs in that directory.
	Dir string
	// Env gives the environment variables for the new process in the form
	// returned by Environ.
	Env []string

	// Fs is the filesystem the process sees.
	Fs afero.Fs

	// Resolver finds the programs, including Argv[0] itself. By default every
	// path resolves to Process.
	Resolver vos.ProcessResolver

	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	ExitStatus int
}

// Command creates a command with an empty in-memory filesystem.
func Command(process vos.ProcessFunc, name string, arg ...string) *Cmd {
	return &Cmd{
		Process: process,
		Argv:    append([]string{name}, arg...),
		Fs:      afero.NewMemMapFs(),
	}
}

// CombinedOutput runs the command and returns stdout and stderr interleaved.
func (c *Cmd) CombinedOutput() ([]byte, error) {
	buf := &bytes.Buffer{}
	c.Stdout = buf
	c.Stderr = buf

	err := c.Run()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Run starts the command and waits for it to complete.
func (c *Cmd) Run() error {
	resolver := c.Resolver
	if resolver == nil {
		resolver = SingleProcessResolver(c.Process)
	}
	launcher := &vos.VirtualLauncher{
		Resolver: resolver,
		Fs:       c.Fs,
	}
	proc, err := launcher.Start(context.Background(), c.Argv[0], c.Argv, &vos.ProcAttr{
		Dir:   c.Dir,
		Env:   c.Env,
		Files: vos.NewVIOAdapter(c.Stdin, c.Stdout, c.Stderr),
	})
	if err != nil {
		return err
	}

	c.ExitStatus, err = proc.Wait()
	return err
}
