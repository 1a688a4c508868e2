/*
Package pipe provides OS pipe endpoint pairs and the raw transfer primitives
the process machinery is built on.

The transfer convention is fixed: a Read on an endpoint that returns 0 bytes
with io.EOF means end-of-stream, never "no data yet", and errors are always
reported distinctly from short transfers. Endpoints are plain *os.File values
so they compose with the rest of the standard library.
*/
package pipe

import (
	"fmt"
	"io"
	"os"

	"go.uber.org/multierr"
)

// Pair is a connected pair of pipe endpoints: R is the read end, W the write
// end. Either end may be closed independently. A Pair that has been disowned
// no longer closes anything but leaves the underlying handles untouched.
type Pair struct {
	R *os.File
	W *os.File
}

// New creates a connected endpoint pair. When inheritable is true both ends
// are visible to child processes created afterward. On failure no
// half-created pipe is left behind.
func New(inheritable bool) (*Pair, error) {
	r, w, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("creating pipe: %w", err)
	}
	p := &Pair{R: r, W: w}
	if inheritable {
		if err := SetInheritable(r, true); err != nil {
			_ = p.Close()
			return nil, err
		}
		if err := SetInheritable(w, true); err != nil {
			_ = p.Close()
			return nil, err
		}
	}
	return p, nil
}

// Ok reports whether the pair still owns at least one live end.
func (p *Pair) Ok() bool {
	return p.R != nil || p.W != nil
}

// Close closes both owned ends. Safe to call repeatedly.
func (p *Pair) Close() error {
	var err error
	if p.R != nil {
		err = multierr.Append(err, p.R.Close())
		p.R = nil
	}
	if p.W != nil {
		err = multierr.Append(err, p.W.Close())
		p.W = nil
	}
	return err
}

// CloseRead closes the read end if still owned.
func (p *Pair) CloseRead() error {
	if p.R == nil {
		return nil
	}
	err := p.R.Close()
	p.R = nil
	return err
}

// CloseWrite closes the write end if still owned.
func (p *Pair) CloseWrite() error {
	if p.W == nil {
		return nil
	}
	err := p.W.Close()
	p.W = nil
	return err
}

// Disown releases ownership of both ends without closing them. The caller is
// responsible for the handles afterward.
func (p *Pair) Disown() {
	p.R = nil
	p.W = nil
}

// ReadAll drains f until end-of-stream and returns everything read. The
// result is binary-safe. The handle is not closed.
func ReadAll(f *os.File) ([]byte, error) {
	var out []byte
	buf := make([]byte, 2048)
	for {
		n, err := f.Read(buf)
		if n > 0 {
			out = append(out, buf[:n]...)
		}
		if err != nil {
			if err == io.EOF {
				return out, nil
			}
			return out, fmt.Errorf("draining pipe: %w", err)
		}
	}
}

// IgnoreAndClose starts a background worker that reads and drops everything
// from f until end-of-stream, then closes the handle. Use it when a stream's
// contents are irrelevant but the child must not block writing to it. The
// worker is fire-and-forget by contract.
func IgnoreAndClose(f *os.File) {
	if f == nil {
		return
	}
	go func() {
		_, _ = io.Copy(io.Discard, f)
		_ = f.Close()
	}()
}
