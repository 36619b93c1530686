package vos

import (
	"bytes"
	"io"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewNullIO(t *testing.T) {
	null := NewNullIO()

	_, err := null.Stdin().Read(make([]byte, 1))
	assert.ErrorIs(t, err, os.ErrClosed)
	assert.True(t, IsNull(null.Stdin()))

	n, err := null.Stdout().Write([]byte("gone"))
	assert.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.NoError(t, null.Stderr().Close())
}

func TestNewVIOAdapter_closingKeepsWriters(t *testing.T) {
	var out bytes.Buffer
	vio := NewVIOAdapter(bytes.NewReader([]byte("in")), &out, os.Stderr)

	assert.False(t, IsNull(vio.Stdin()))
	require.NoError(t, vio.Stdout().Close())
	require.NoError(t, vio.Stderr().Close())

	// Still usable after the process closed them.
	_, err := vio.Stdout().Write([]byte("ok"))
	require.NoError(t, err)
	assert.Equal(t, "ok", out.String())
}

func TestPipes(t *testing.T) {
	var terminal bytes.Buffer
	pipes := &Pipes{}
	cleaned := 0
	pipes.OnClose(func() { cleaned++ })

	w, r := pipes.Output(&terminal, false)
	assert.Nil(t, r)
	assert.Equal(t, &terminal, w)

	w, r = pipes.Output(&terminal, true)
	require.NotNil(t, r)

	go func() {
		io.WriteString(w, "captured")
		pipes.Close()
	}()

	got, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "captured", string(got))
	assert.Empty(t, terminal.String())

	require.NoError(t, pipes.Close())
	assert.Equal(t, 1, cleaned)
}
