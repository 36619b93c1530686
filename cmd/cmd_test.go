package cmd

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/josephlewis42/pipesh/core/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	runScript = ""
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestRun(t *testing.T) {
	dir := t.TempDir()
	script := filepath.Join(dir, "script.nu")
	require.NoError(t, os.WriteFile(script, []byte("[{a: 1}] | join [{a: 1 b: x}] a\n"), 0600))

	cases := map[string]struct {
		stdin    string
		args     []string
		expected string
	}{
		"command": {args: []string{"-c", "[1 2] | length"}, expected: "2\n"},
		"string":  {args: []string{"-c", "'a b'"}, expected: "a b\n"},
		"file":    {args: []string{script}, expected: "[[a, b]; [1, x]]\n"},
		"stdin":   {stdin: "{a: [1]}", expected: "{a: [1]}\n"},
		"program": {args: []string{"-c", "^echo hi"}, expected: "hi\n"},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			args := append([]string{"run", "--config", dir}, tc.args...)
			out, err := execute(t, tc.stdin, args...)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, out)
		})
	}
}

func TestRun_failures(t *testing.T) {
	dir := t.TempDir()

	_, err := execute(t, "", "run", "--config", dir, "-c", "^exit 3")
	var status exitStatus
	require.True(t, errors.As(err, &status), "got %v", err)
	assert.Equal(t, exitStatus(3), status)

	out, err := execute(t, "", "run", "--config", dir, "-c", "asdfasdf")
	require.True(t, errors.As(err, &status), "got %v", err)
	assert.Equal(t, exitStatus(1), status)
	assert.Contains(t, out, "command_not_found")

	_, err = execute(t, "", "run", "--config", dir, "-c", "1", "file.nu")
	assert.EqualError(t, err, "use -c or a file, not both")
}

func TestBuiltins(t *testing.T) {
	out, err := execute(t, "", "builtins")
	require.NoError(t, err)

	assert.Contains(t, out, "join <right-table>")
	assert.Contains(t, out, "try <try_block>")
	assert.Contains(t, out, "^sh")
	assert.Contains(t, out, "/usr/bin/sh")
}

func TestInitAndReport(t *testing.T) {
	dir := t.TempDir()

	out, err := execute(t, "", "init", "--config", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "Writing config.yaml")
	assert.Contains(t, out, "External programs run in virtual mode.")
	assert.Contains(t, out, "Add ssh.passwords")
	assert.FileExists(t, filepath.Join(dir, config.ConfigurationName))
	assert.FileExists(t, filepath.Join(dir, config.PrivateKeyName))

	_, err = execute(t, "", "run", "--config", dir, "-c", "^echo hi")
	require.NoError(t, err)

	out, err = execute(t, "", "events", "report", "--config", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "session_kinds:\n  run: 1\n")

	out, err = execute(t, "", "events", "report", "--config", dir, "--kind", "ssh")
	require.NoError(t, err)
	assert.Contains(t, out, "log_entries: 0\n")

	out, err = execute(t, "", "events", "report", "--config", dir, "--kind", "run", "--json")
	require.NoError(t, err)
	assert.Contains(t, out, `"session_kinds": {`)
	assert.Contains(t, out, `"run": 1`)
}
