package commands

import (
	"testing"

	"github.com/josephlewis42/pipesh/core/vos/vostest"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
)

const fruits = "apple\nbanana\ncherry\n"

func TestGrep(t *testing.T) {
	cases := goldenTestSuite{
		"match":        {Args: []string{"grep", "an"}, Stdin: fruits},
		"invert-count": {Args: []string{"grep", "-vc", "an"}, Stdin: fruits},
		"line-numbers": {Args: []string{"grep", "-n", "-i", "CH"}, Stdin: fruits},
		"fixed":        {Args: []string{"grep", "-F", "a.p"}, Stdin: "a.p\nalp\n"},
		"no-match":     {Args: []string{"grep", "zzz"}, Stdin: fruits, Status: 1},
		"bad-pattern":  {Args: []string{"grep", "("}, Stdin: fruits, Status: 2},
		"no-pattern":   {Args: []string{"grep"}, Status: 2},
	}

	cases.Run(t, Grep)
}

func TestGrep_files(t *testing.T) {
	cmd := vostest.Command(Grep, "grep", "b", "/one", "/two")
	assert.Nil(t, afero.WriteFile(cmd.Fs, "/one", []byte("abc\nxyz\n"), 0600))
	assert.Nil(t, afero.WriteFile(cmd.Fs, "/two", []byte("bcd\n"), 0600))

	out, err := cmd.CombinedOutput()
	assert.Nil(t, err)
	assert.Equal(t, 0, cmd.ExitStatus)
	assert.Equal(t, "/one:abc\n/two:bcd\n", string(out))
}
