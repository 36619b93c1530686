package vos

import (
	"io"
	"os"
	"sync"
)

// VIO holds the standard streams of a process.
type VIO interface {
	Stdin() io.ReadCloser
	Stdout() io.WriteCloser
	Stderr() io.WriteCloser
}

// VIOAdapter implements VIO over plain readers and writers.
type VIOAdapter struct {
	stdin  io.ReadCloser
	stdout io.WriteCloser
	stderr io.WriteCloser
}

var _ VIO = (*VIOAdapter)(nil)

// NewVIOAdapter creates a VIO. A nil stdin is closed, nil outputs discard
// writes. Closing an output given as an *os.File or a plain io.Writer is a
// no-op.
func NewVIOAdapter(stdin io.Reader, stdout, stderr io.Writer) *VIOAdapter {
	return &VIOAdapter{
		stdin:  readCloser(stdin),
		stdout: writeCloser(stdout),
		stderr: writeCloser(stderr),
	}
}

// NewNullIO creates a VIO with a closed stdin that discards all output.
func NewNullIO() VIO {
	return NewVIOAdapter(nil, nil, nil)
}

func (a *VIOAdapter) Stdin() io.ReadCloser   { return a.stdin }
func (a *VIOAdapter) Stdout() io.WriteCloser { return a.stdout }
func (a *VIOAdapter) Stderr() io.WriteCloser { return a.stderr }

// IsNull reports whether s is the closed stream standing in for a missing
// stdin, stdout or stderr.
func IsNull(s interface{}) bool {
	_, ok := s.(nullStream)
	return ok
}

func readCloser(r io.Reader) io.ReadCloser {
	switch r := r.(type) {
	case nil:
		return nullStream{}
	case io.ReadCloser:
		return r
	default:
		return io.NopCloser(r)
	}
}

func writeCloser(w io.Writer) io.WriteCloser {
	switch w := w.(type) {
	case nil:
		return nullStream{}
	case *os.File:
		return nopWriteCloser{w}
	case io.WriteCloser:
		return w
	default:
		return nopWriteCloser{w}
	}
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }

// nullStream fails reads with os.ErrClosed and discards writes.
type nullStream struct{}

func (nullStream) Read([]byte) (int, error)    { return 0, os.ErrClosed }
func (nullStream) Write(b []byte) (int, error) { return len(b), nil }
func (nullStream) Close() error                { return nil }

// Pipes hands out the output streams of a process that are either written
// straight through or captured for the caller to read. Close ends every
// captured stream and runs the registered cleanups, it's safe to call more
// than once.
type Pipes struct {
	once     sync.Once
	writers  []*io.PipeWriter
	cleanups []func()
}

// Output returns the writer to give the process. When capture is set it's
// the write end of a new pipe and r is its read end, otherwise it's passthrough
// and r is nil.
func (p *Pipes) Output(passthrough io.Writer, capture bool) (w io.Writer, r *io.PipeReader) {
	if !capture {
		return passthrough, nil
	}
	r, pw := io.Pipe()
	p.writers = append(p.writers, pw)
	return pw, r
}

// OnClose registers f to run when the pipes are closed.
func (p *Pipes) OnClose(f func()) {
	p.cleanups = append(p.cleanups, f)
}

// Close implements io.Closer.
func (p *Pipes) Close() error {
	p.once.Do(func() {
		for _, w := range p.writers {
			w.Close()
		}
		for _, f := range p.cleanups {
			f()
		}
	})
	return nil
}
