package subproc

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrAlreadyExited is returned by Signal, Terminate and Kill once the child's
// exit status has been observed; no signal is sent in that case.
var ErrAlreadyExited = errors.New("process already exited")

// NotFoundError reports that the executable could not be resolved. It is
// returned before any native resource is allocated.
type NotFoundError struct {
	Command string
	Err     error
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("command %q not found: %s", e.Command, e.Err)
}

func (e *NotFoundError) Unwrap() error { return e.Err }

// SpawnError reports that the native process-creation call failed. Every
// provisional pipe handle is released before it is returned.
type SpawnError struct {
	Args []string
	Err  error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("spawning %s: %s", strings.Join(e.Args, " "), e.Err)
}

func (e *SpawnError) Unwrap() error { return e.Err }

// OSError reports a failed native call other than process creation: waiting,
// signal delivery or pipe setup. It carries the native error text and is
// never retried.
type OSError struct {
	Op  string
	Err error
}

func (e *OSError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Err)
}

func (e *OSError) Unwrap() error { return e.Err }

// TimeoutError reports that a wait deadline expired. When returned by Run it
// carries whatever output was captured before the cutoff, and the child has
// already been terminated and reaped.
type TimeoutError struct {
	Args    []string
	Timeout time.Duration
	Stdout  []byte
	Stderr  []byte
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("timeout of %s expired waiting for %s", e.Timeout, strings.Join(e.Args, " "))
}

// ExitError reports a nonzero exit code together with the captured output.
// It is produced only when a caller opts in via Options.Check or the check
// argument of Complete.
type ExitError struct {
	Args     []string
	ExitCode int
	Stdout   []byte
	Stderr   []byte
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("%s exited with code %d", strings.Join(e.Args, " "), e.ExitCode)
}
