package subproc

import (
	"bytes"
	"io"
	"os"
	"strings"
)

type redirectKind int

const (
	redirectInherit redirectKind = iota
	redirectCapture
	redirectDiscard
	redirectNone
	redirectHandle
	redirectToStdout
	redirectToStderr
	redirectSource
	redirectSink
)

// Redirect describes where one of the child's three standard streams is
// wired. The zero value inherits the parent's stream. Values are built with
// the package-level constructors; exactly one variant applies per stream,
// and the spawn wiring and pump dispatch switch over the variants
// exhaustively.
type Redirect struct {
	kind   redirectKind
	handle *os.File
	src    io.Reader
	sink   io.Writer
}

// Inherit wires the stream to the parent's own standard stream. This is the
// zero value.
func Inherit() Redirect {
	return Redirect{kind: redirectInherit}
}

// Capture connects the stream to a new pipe. The parent end is retained on
// the Process (Stdin's write end, or the read end for stdout/stderr) and is
// what Run drains into the completed snapshot.
func Capture() Redirect {
	return Redirect{kind: redirectCapture}
}

// Discard connects the stream to a pipe whose far end is closed immediately
// after spawn, so the child observes end-of-input on stdin or a broken pipe
// when it writes.
func Discard() Redirect {
	return Redirect{kind: redirectDiscard}
}

// Null leaves the stream without any file: the child starts with that
// descriptor closed, connected to neither the parent nor a console.
func Null() Redirect {
	return Redirect{kind: redirectNone}
}

// Handle wires the stream to a caller-supplied file, which is marked
// inheritable automatically. Ownership of the handle stays with the caller;
// the library never closes it.
func Handle(f *os.File) Redirect {
	return Redirect{kind: redirectHandle, handle: f}
}

// ToStdout aliases the stream onto the child's stdout. Only valid for
// stderr, and not in combination with stdout aliased to stderr.
func ToStdout() Redirect {
	return Redirect{kind: redirectToStdout}
}

// ToStderr aliases the stream onto the child's stderr. Only valid for
// stdout, and not in combination with stderr aliased to stdout.
func ToStderr() Redirect {
	return Redirect{kind: redirectToStderr}
}

// InputString feeds s to the child's stdin from a background pump, closing
// stdin when the data runs out. Only valid for stdin.
func InputString(s string) Redirect {
	return InputReader(strings.NewReader(s))
}

// InputBytes feeds b to the child's stdin from a background pump, closing
// stdin when the data runs out. Only valid for stdin.
func InputBytes(b []byte) Redirect {
	return InputReader(bytes.NewReader(b))
}

// InputReader feeds the child's stdin from r on a background pump. The pump
// stops at the source's end-of-data or the first pipe error, then closes the
// child's stdin so it observes end-of-input. Only valid for stdin.
func InputReader(r io.Reader) Redirect {
	return Redirect{kind: redirectSource, src: r}
}

// InputFile feeds the child's stdin from f via a background pump. The file
// is read by the pump rather than handed to the child; use Handle to pass
// the descriptor itself.
func InputFile(f *os.File) Redirect {
	return Redirect{kind: redirectSource, src: f}
}

// OutputWriter drains the stream into w from a background pump owned by the
// Process and joined during Close. Only valid for stdout and stderr.
func OutputWriter(w io.Writer) Redirect {
	return Redirect{kind: redirectSink, sink: w}
}

// OutputFile drains the stream into f via a background pump. The file stays
// owned by the caller. Only valid for stdout and stderr.
func OutputFile(f *os.File) Redirect {
	return Redirect{kind: redirectSink, sink: f}
}
