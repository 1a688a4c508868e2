package pipe_test

import (
	"bytes"
	"io"
	"testing"
	"time"

	"github.com/guseggert/subproc/pipe"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundTrip(t *testing.T) {
	p, err := pipe.New(false)
	require.NoError(t, err)
	defer p.Close()

	_, err = p.W.Write([]byte("hello"))
	require.NoError(t, err)

	buf := make([]byte, 16)
	n, err := p.R.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(buf[:n]))
}

func TestReadAll(t *testing.T) {
	p, err := pipe.New(false)
	require.NoError(t, err)
	defer p.Close()

	payload := bytes.Repeat([]byte{0x00, 0xff, 'a'}, 1000)
	go func() {
		_, _ = p.W.Write(payload)
		_ = p.CloseWrite()
	}()

	got, err := pipe.ReadAll(p.R)
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}

func TestReadAfterWriterCloseIsEOF(t *testing.T) {
	p, err := pipe.New(false)
	require.NoError(t, err)
	defer p.Close()

	require.NoError(t, p.CloseWrite())

	n, err := p.R.Read(make([]byte, 8))
	assert.Equal(t, 0, n)
	assert.Equal(t, io.EOF, err)
}

func TestCloseIdempotent(t *testing.T) {
	p, err := pipe.New(false)
	require.NoError(t, err)

	require.NoError(t, p.Close())
	require.NoError(t, p.Close())
	assert.False(t, p.Ok())
}

func TestDisown(t *testing.T) {
	p, err := pipe.New(false)
	require.NoError(t, err)

	r, w := p.R, p.W
	p.Disown()
	assert.False(t, p.Ok())
	require.NoError(t, p.Close())

	// The handles must still be usable after the pair let go of them.
	_, err = w.Write([]byte("x"))
	require.NoError(t, err)
	buf := make([]byte, 1)
	_, err = r.Read(buf)
	require.NoError(t, err)
	require.NoError(t, r.Close())
	require.NoError(t, w.Close())
}

func TestSetInheritable(t *testing.T) {
	p, err := pipe.New(true)
	require.NoError(t, err)
	defer p.Close()

	require.NoError(t, pipe.SetInheritable(p.R, false))
	require.NoError(t, pipe.SetInheritable(p.R, true))
}

func TestIgnoreAndCloseUnblocksWriter(t *testing.T) {
	p, err := pipe.New(false)
	require.NoError(t, err)

	pipe.IgnoreAndClose(p.R)
	p.R = nil

	// Well beyond any OS pipe buffer; the writer would wedge without the
	// discard worker on the other end.
	payload := bytes.Repeat([]byte("discard me "), 64*1024)
	done := make(chan error, 1)
	go func() {
		_, werr := p.W.Write(payload)
		done <- werr
	}()

	select {
	case werr := <-done:
		require.NoError(t, werr)
	case <-time.After(10 * time.Second):
		t.Fatal("writer blocked: discard worker did not drain the pipe")
	}
	require.NoError(t, p.Close())
}
