package commands

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/josephlewis42/pipesh/core/vos"
	"github.com/josephlewis42/pipesh/core/vos/vostest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExit(t *testing.T) {
	cases := map[string]struct {
		args   []string
		status int
	}{
		"default":  {nil, 0},
		"status":   {[]string{"3"}, 3},
		"wraps":    {[]string{"300"}, 44},
		"numeric":  {[]string{"abc"}, 2},
		"too-many": {[]string{"1", "2"}, 1},
	}

	for tn, tc := range cases {
		t.Run(tn, func(t *testing.T) {
			cmd := vostest.Command(Exit, "exit", tc.args...)
			require.NoError(t, cmd.Run())
			assert.Equal(t, tc.status, cmd.ExitStatus)
		})
	}
}

func TestTrueFalse(t *testing.T) {
	cmd := vostest.Command(Resolve("/bin/true"), "true", "ignored", "--flags")
	require.NoError(t, cmd.Run())
	assert.Equal(t, 0, cmd.ExitStatus)

	cmd = vostest.Command(Resolve("/bin/false"), "false")
	require.NoError(t, cmd.Run())
	assert.Equal(t, 1, cmd.ExitStatus)
}

// shortWriter fails once more than limit bytes have been written.
type shortWriter struct {
	written []byte
	limit   int
}

func (w *shortWriter) Write(p []byte) (int, error) {
	if len(w.written)+len(p) > w.limit {
		return 0, errors.New("closed")
	}
	w.written = append(w.written, p...)
	return len(p), nil
}

func TestYes(t *testing.T) {
	out := &shortWriter{limit: 3 * yesBufferSize}
	cmd := vostest.Command(Yes, "yes", "ok")
	cmd.Stdout = out
	require.NoError(t, cmd.Run())

	assert.Equal(t, 1, cmd.ExitStatus)
	require.NotEmpty(t, out.written)
	assert.Equal(t, "ok\nok\n", string(out.written[:6]))
}

func TestYes_cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	launcher := &vos.VirtualLauncher{Resolver: Resolve}

	proc, err := launcher.Start(ctx, "yes", nil, nil)
	require.NoError(t, err)
	time.AfterFunc(10*time.Millisecond, cancel)

	code, err := proc.Wait()
	require.NoError(t, err)
	assert.Equal(t, 130, code)
}

func TestSleep(t *testing.T) {
	cases := map[string]struct {
		args   []string
		status int
	}{
		"seconds":  {[]string{"0.01"}, 0},
		"duration": {[]string{"5ms", "5ms"}, 0},
		"invalid":  {[]string{"soon"}, 1},
		"missing":  {nil, 1},
	}

	for tn, tc := range cases {
		t.Run(tn, func(t *testing.T) {
			cmd := vostest.Command(Sleep, "sleep", tc.args...)
			require.NoError(t, cmd.Run())
			assert.Equal(t, tc.status, cmd.ExitStatus)
		})
	}
}
