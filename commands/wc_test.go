package commands

import (
	"testing"

	"github.com/josephlewis42/pipesh/core/vos/vostest"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
)

func TestWc(t *testing.T) {
	cases := goldenTestSuite{
		"stdin":       {Args: []string{"wc"}, Stdin: "Hello,\nworld !"},
		"lines-only":  {Args: []string{"wc", "-l"}, Stdin: "a\nb\nc\n"},
		"multi-space": {Args: []string{"wc", "-w"}, Stdin: "  one   two\n\tthree  "},
		"chars":       {Args: []string{"wc", "-cm"}, Stdin: "héllo"},
	}

	cases.Run(t, Wc)
}

func TestWc_single_file(t *testing.T) {
	cmd := vostest.Command(Wc, "wc", "/foo.txt")

	// Test with missing file
	{
		assert.Nil(t, cmd.Run())

		assert.NotEqual(t, 0, cmd.ExitStatus, "exit code")
	}
	{
		helloWorld := []byte("Hello,\nworld !")
		assert.Nil(t, afero.WriteFile(cmd.Fs, "/foo.txt", helloWorld, 0600))

		out, err := cmd.CombinedOutput()

		assert.Equal(t, 0, cmd.ExitStatus, "exit code")
		assert.Nil(t, err)
		assert.Equal(t, "1 3 14 /foo.txt\n", string(out))
	}
}

func TestWc_total(t *testing.T) {
	cmd := vostest.Command(Wc, "wc", "-l", "/a", "/b")
	assert.Nil(t, afero.WriteFile(cmd.Fs, "/a", []byte("1\n2\n"), 0600))
	assert.Nil(t, afero.WriteFile(cmd.Fs, "/b", []byte("3\n"), 0600))

	out, err := cmd.CombinedOutput()
	assert.Nil(t, err)
	assert.Equal(t, "2 /a\n1 /b\n3 total\n", string(out))
}
