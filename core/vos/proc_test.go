package vos

import (
	"bytes"
	"context"
	"fmt"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func hello(virtOS VOS) int {
	fmt.Fprintf(virtOS.Stdout(), "hello %v from %s\n", virtOS.Args()[1:], virtOS.Getwd())
	return 3
}

func TestLookPath(t *testing.T) {
	resolver := func(path string) ProcessFunc {
		if path == "/usr/bin/hello" {
			return hello
		}
		return nil
	}

	cases := map[string]struct {
		searchPath string
		file       string
		expected   string
		err        error
	}{
		"default-path": {"", "hello", "/usr/bin/hello", nil},
		"custom-path":  {"/opt:/usr/bin", "hello", "/usr/bin/hello", nil},
		"not-on-path":  {"/opt", "hello", "", ErrNotFound},
		"absolute":     {"/opt", "/usr/bin/hello", "/usr/bin/hello", nil},
		"missing":      {"", "goodbye", "", ErrNotFound},
	}

	for tn, tc := range cases {
		t.Run(tn, func(t *testing.T) {
			actual, _, err := LookPath(resolver, tc.searchPath, tc.file)
			assert.ErrorIs(t, err, tc.err)
			assert.Equal(t, tc.expected, actual)
		})
	}
}

func TestVirtualLauncher(t *testing.T) {
	launcher := &VirtualLauncher{Resolver: func(path string) ProcessFunc {
		if path == "/bin/hello" {
			return hello
		}
		return nil
	}}

	var stdout bytes.Buffer
	proc, err := launcher.Start(context.Background(), "hello", []string{"hello", "a", "b"}, &ProcAttr{
		Dir:   "/tmp",
		Env:   []string{"PATH=/bin"},
		Files: NewVIOAdapter(nil, &stdout, nil),
	})
	require.NoError(t, err)

	code, err := proc.Wait()
	assert.NoError(t, err)
	assert.Equal(t, 3, code)
	assert.Equal(t, "hello [a b] from /tmp\n", stdout.String())

	_, err = launcher.Start(context.Background(), "nope", nil, nil)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestVirtualLauncher_panic(t *testing.T) {
	launcher := &VirtualLauncher{Resolver: func(string) ProcessFunc {
		return func(VOS) int { panic("boom") }
	}}

	proc, err := launcher.Start(context.Background(), "bad", nil, nil)
	require.NoError(t, err)

	code, err := proc.Wait()
	assert.Equal(t, 2, code)
	assert.EqualError(t, err, "bad: panic: boom")
}

func TestChainLauncher(t *testing.T) {
	empty := &VirtualLauncher{Resolver: func(string) ProcessFunc { return nil }}
	full := &VirtualLauncher{Resolver: func(string) ProcessFunc { return hello }}

	proc, err := ChainLauncher{empty, full}.Start(context.Background(), "x", []string{"x"}, nil)
	require.NoError(t, err)
	code, _ := proc.Wait()
	assert.Equal(t, 3, code)

	_, err = ChainLauncher{empty}.Start(context.Background(), "x", nil, nil)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestProcOS_relativePaths(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/home/user/notes.txt", []byte("hi"), 0600))

	procOS := NewProcOS(context.Background(), fs, []string{"cat"}, &ProcAttr{Dir: "/home/user"})

	fd, err := procOS.Open("notes.txt")
	require.NoError(t, err)
	defer fd.Close()

	out, err := afero.ReadAll(fd)
	assert.NoError(t, err)
	assert.Equal(t, "hi", string(out))

	_, err = procOS.Open("/notes.txt")
	assert.Error(t, err)
}

func TestProcOS_StartProcess(t *testing.T) {
	var childDir, childHome string
	programs := map[string]ProcessFunc{
		"/bin/child": func(v VOS) int {
			childDir = v.Getwd()
			childHome = v.Getenv("HOME")
			return 7
		},
		"/bin/parent": func(v VOS) int {
			proc, err := v.StartProcess("child", []string{"child"}, nil)
			if err != nil {
				return 100
			}
			code, _ := proc.Wait()
			return code
		},
	}
	launcher := &VirtualLauncher{Resolver: func(path string) ProcessFunc { return programs[path] }}

	proc, err := launcher.Start(context.Background(), "parent", nil, &ProcAttr{
		Dir: "/tmp",
		Env: []string{"PATH=/bin", "HOME=/root"},
	})
	require.NoError(t, err)

	code, err := proc.Wait()
	require.NoError(t, err)
	assert.Equal(t, 7, code)
	assert.Equal(t, "/tmp", childDir)
	assert.Equal(t, "/root", childHome)
}

func TestProcOS_StartProcessWithoutLauncher(t *testing.T) {
	procOS := NewProcOS(context.Background(), nil, []string{"x"}, nil)

	_, err := procOS.StartProcess("y", nil, nil)
	assert.ErrorIs(t, err, ErrNotFound)
}
