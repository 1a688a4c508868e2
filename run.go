package subproc

import (
	"errors"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/guseggert/subproc/pipe"
)

// CompletedProcess is the snapshot Run produces once the child has exited
// and its captured output has been fully collected.
type CompletedProcess struct {
	// Args is the command line minus the executable.
	Args []string
	// ExitCode is the child's exit code; -N means terminated by signal N.
	ExitCode int
	// Stdout and Stderr hold the captured output of streams configured with
	// Capture, and are nil otherwise.
	Stdout []byte
	Stderr []byte
}

// Success reports whether the child exited with code zero.
func (c *CompletedProcess) Success() bool {
	return c.ExitCode == 0
}

// Run spawns command, collects any captured output concurrently, waits for
// completion bounded by opts.Timeout, and returns the completed snapshot.
//
// On timeout the child is terminated and reaped before the *TimeoutError is
// returned, so nothing keeps running past the call. With opts.Check set, a
// nonzero exit becomes an *ExitError. Both errors carry whatever output was
// captured. Spawn failures propagate unchanged.
func Run(command []string, opts Options) (*CompletedProcess, error) {
	p, err := Start(command, opts)
	if err != nil {
		return nil, err
	}
	timeout := opts.Timeout
	if timeout == 0 {
		timeout = -1
	}
	return finish(p, timeout, opts.Check)
}

// Complete drains and waits on an already-spawned process, producing the
// same snapshot Run would. The wait is unbounded. With check set, a nonzero
// exit becomes an *ExitError.
func Complete(p *Process, check bool) (*CompletedProcess, error) {
	return finish(p, -1, check)
}

func finish(p *Process, timeout time.Duration, check bool) (*CompletedProcess, error) {
	var stdout, stderr []byte

	// Both captured streams drain on their own goroutines, concurrent with
	// the bounded wait below: a serial drain would deadlock on a child
	// filling one pipe while we read the other, and would let a child that
	// holds its stdout open stall past the deadline. Joining the group is
	// the barrier that makes the buffers complete before the exit status is
	// reported alongside them. Pumped ends belong to their sink pump and are
	// left alone; a second reader on the same pipe would steal its bytes.
	var group errgroup.Group
	if p.Stdout != nil && !p.pumpedOut {
		f := p.Stdout
		p.Stdout = nil
		group.Go(func() error {
			b, err := pipe.ReadAll(f)
			stdout = b
			_ = f.Close()
			return err
		})
	}
	if p.Stderr != nil && !p.pumpedErr {
		f := p.Stderr
		p.Stderr = nil
		group.Go(func() error {
			b, err := pipe.ReadAll(f)
			stderr = b
			_ = f.Close()
			return err
		})
	}
	code, err := p.Wait(timeout)
	var te *TimeoutError
	if errors.As(err, &te) {
		// Escalate: ask the child to stop, then reap unconditionally so the
		// timeout never leaves a zombie behind. With the child gone the
		// drains hit end-of-stream, so joining them cannot hang and the
		// error carries everything captured up to the cutoff.
		_ = p.Terminate()
		_, _ = p.Wait(-1)
		_ = group.Wait()
		_ = p.Close()
		return nil, &TimeoutError{
			Args:    p.Args,
			Timeout: te.Timeout,
			Stdout:  stdout,
			Stderr:  stderr,
		}
	}
	if err != nil {
		_ = group.Wait()
		_ = p.Close()
		return nil, err
	}
	if derr := group.Wait(); derr != nil {
		_ = p.Close()
		return nil, derr
	}
	if cerr := p.Close(); cerr != nil {
		return nil, cerr
	}

	completed := &CompletedProcess{
		Args:     p.Args[1:],
		ExitCode: code,
		Stdout:   stdout,
		Stderr:   stderr,
	}
	if check && code != 0 {
		return completed, &ExitError{
			Args:     p.Args,
			ExitCode: code,
			Stdout:   stdout,
			Stderr:   stderr,
		}
	}
	return completed, nil
}
