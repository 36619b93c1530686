// Package vos is the small operating system surface external commands run
// against. Commands are either virtual, Go functions resolved by path, or
// real host processes.
package vos

import (
	"context"
	"os/exec"
	"path"

	"github.com/spf13/afero"
)

// VFS is the filesystem seen by virtual processes and file builtins.
type VFS = afero.Fs

// VOS provides a virtual OS interface to a single process.
type VOS interface {
	VEnv
	VIO

	// Args returns the process arguments, the first is the program name.
	Args() []string
	// Getwd returns the working directory.
	Getwd() string
	// Open opens a file, relative paths are resolved against Getwd.
	Open(name string) (afero.File, error)
	// Create creates or truncates a file, relative paths are resolved against
	// Getwd.
	Create(name string) (afero.File, error)
	// Context is cancelled when the pipeline running the process is
	// interrupted.
	Context() context.Context
	// StartProcess starts a program through the launcher that started this
	// one. The working directory and environment default to the caller's.
	StartProcess(name string, argv []string, attr *ProcAttr) (Process, error)
}

// ProcOS is the VOS handed to a running ProcessFunc.
type ProcOS struct {
	VEnv
	VIO

	ctx      context.Context
	fs       VFS
	args     []string
	dir      string
	launcher Launcher
}

var _ VOS = (*ProcOS)(nil)

// NewProcOS creates the view of the system for one process.
func NewProcOS(ctx context.Context, fs VFS, argv []string, attr *ProcAttr) *ProcOS {
	if attr == nil {
		attr = &ProcAttr{}
	}
	files := attr.Files
	if files == nil {
		files = NewNullIO()
	}
	dir := attr.Dir
	if dir == "" {
		dir = "/"
	}
	if fs == nil {
		fs = NewNopFs()
	}
	if ctx == nil {
		ctx = context.Background()
	}
	return &ProcOS{
		VEnv: NewMapEnvFromEnvList(attr.Env),
		VIO:  files,
		ctx:  ctx,
		fs:   fs,
		args: argv,
		dir:  dir,
	}
}

func (p *ProcOS) Args() []string {
	return p.args
}

func (p *ProcOS) Getwd() string {
	return p.dir
}

func (p *ProcOS) Context() context.Context {
	return p.ctx
}

func (p *ProcOS) Open(name string) (afero.File, error) {
	return p.fs.Open(p.resolve(name))
}

func (p *ProcOS) Create(name string) (afero.File, error) {
	return p.fs.Create(p.resolve(name))
}

func (p *ProcOS) StartProcess(name string, argv []string, attr *ProcAttr) (Process, error) {
	if p.launcher == nil {
		return nil, &exec.Error{Name: name, Err: ErrNotFound}
	}
	child := ProcAttr{}
	if attr != nil {
		child = *attr
	}
	if child.Dir == "" {
		child.Dir = p.dir
	}
	if child.Env == nil {
		child.Env = p.Environ()
	}
	return p.launcher.Start(p.ctx, name, argv, &child)
}

func (p *ProcOS) resolve(name string) string {
	if path.IsAbs(name) {
		return path.Clean(name)
	}
	return path.Join(p.dir, name)
}

var nopFs = afero.NewReadOnlyFs(afero.NewMemMapFs())

// NewNopFs returns an empty, read-only filesystem.
func NewNopFs() VFS {
	return nopFs
}
