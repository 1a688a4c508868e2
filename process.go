package subproc

import (
	"os"
	"sync"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/guseggert/subproc/pipe"
)

// Process is a live handle on a spawned child. It owns the parent-side
// stream handles and the native process reference. A Process must not be
// copied: the underlying resources have single ownership.
//
// The lifecycle is Created → Running → Exited → Closed. The exit status is
// observed exactly once, by a reaper goroutine started at spawn; Wait and
// Poll are pure reads against that cached status and never touch the OS
// again. Close reaps the child if it has not exited yet, which is what keeps
// zombies out of the process table.
type Process struct {
	// Args is the command line the process was spawned with.
	Args []string
	// Pid is the OS process identifier.
	Pid int

	// Stdin is the write end of the child's stdin pipe when stdin was
	// configured with Capture. Nil when stdin was inherited, discarded, or
	// is being fed by an input pump.
	Stdin *os.File
	// Stdout and Stderr are the read ends of the respective capture pipes,
	// nil unless the stream was configured with Capture or a sink.
	Stdout *os.File
	Stderr *os.File

	handle *procHandle
	group  bool
	log    *zap.SugaredLogger

	done   chan struct{} // closed by the reaper once status is recorded
	status procStatus

	pumps     errgroup.Group
	pumpedOut bool
	pumpedErr bool

	softKill bool

	stdinMu   sync.Mutex
	closeOnce sync.Once
	closeErr  error
}

type procStatus struct {
	code int
	err  error // *OSError when the status query itself failed
}

// reap blocks until the child exits, records the status exactly once and
// wakes every waiter.
func (p *Process) reap() {
	code, err := p.handle.wait()
	if err != nil {
		p.status = procStatus{err: &OSError{Op: "waiting for process", Err: err}}
	} else {
		p.status = procStatus{code: code}
	}
	close(p.done)
	if p.status.err != nil {
		p.log.Debugf("pid %d wait failed: %s", p.Pid, p.status.err)
	} else {
		p.log.Debugf("pid %d exited with status %d", p.Pid, p.status.code)
	}
}

func (p *Process) exited() bool {
	select {
	case <-p.done:
		return true
	default:
		return false
	}
}

// Poll reports whether the exit status is known. It never blocks, and a
// still-running child is not an error: an error is returned only when the
// underlying status query itself failed.
func (p *Process) Poll() (bool, error) {
	select {
	case <-p.done:
		if p.status.err != nil {
			return false, p.status.err
		}
		return true, nil
	default:
		return false, nil
	}
}

// Wait blocks until the child exits or timeout elapses, and returns the exit
// code. A negative timeout waits forever. Non-negative codes are the child's
// own; -N means the child was terminated by signal N.
//
// The first observed status is cached, so repeated calls return identical
// results without further native queries. Expiry returns a *TimeoutError and
// leaves the child running.
func (p *Process) Wait(timeout time.Duration) (int, error) {
	// A known status wins outright; a timed select below could otherwise
	// pick an already-fired timer over the closed channel.
	if p.exited() {
		return p.status.code, p.status.err
	}
	if timeout >= 0 {
		t := time.NewTimer(timeout)
		defer t.Stop()
		select {
		case <-p.done:
		case <-t.C:
			return 0, &TimeoutError{Args: p.Args, Timeout: timeout}
		}
	} else {
		<-p.done
	}
	return p.status.code, p.status.err
}

// Signal delivers sig to the child, or to its whole process group when it
// was started with NewProcessGroup.
//
// On Unix the signal number is delivered directly. Windows has no native
// signal delivery, so the backend emulates it: SIGKILL hard-terminates the
// target and, best effort, any children found in a process snapshot taken at
// call time; SIGINT broadcasts a console interrupt to the whole console
// session, which can reach the calling process too; every other signal,
// SIGTERM included, broadcasts a console break scoped to the target's
// process group. This is a documented deviation, not an omission.
//
// Once the exit status is known, Signal returns ErrAlreadyExited and changes
// nothing.
func (p *Process) Signal(sig Signal) error {
	if p.exited() {
		return ErrAlreadyExited
	}
	return p.handle.signal(sig, p.group)
}

// Terminate asks the child to shut down: SIGTERM on Unix, a console break on
// Windows.
func (p *Process) Terminate() error {
	return p.Signal(SIGTERM)
}

// Kill forcefully ends the child with SIGKILL, unless soft kill was selected
// with SetSoftKill, in which case it degrades to Terminate.
func (p *Process) Kill() error {
	if p.softKill {
		return p.Terminate()
	}
	return p.Signal(SIGKILL)
}

// SetSoftKill makes Kill deliver a termination request instead of a hard
// kill.
func (p *Process) SetSoftKill(soft bool) {
	p.softKill = soft
}

// CloseStdin closes the write end of the child's stdin pipe, signalling
// end-of-input. It is a no-op when stdin is not held, and safe to call more
// than once.
func (p *Process) CloseStdin() error {
	p.stdinMu.Lock()
	defer p.stdinMu.Unlock()
	if p.Stdin == nil {
		return nil
	}
	err := p.Stdin.Close()
	p.Stdin = nil
	return err
}

// DiscardStdout stops caring about the child's stdout: a background worker
// drains and closes the capture end so the child can never block on a full
// pipe.
func (p *Process) DiscardStdout() {
	if p.Stdout != nil && !p.pumpedOut {
		pipe.IgnoreAndClose(p.Stdout)
		p.Stdout = nil
	}
}

// DiscardStderr is DiscardStdout for the stderr capture end.
func (p *Process) DiscardStderr() {
	if p.Stderr != nil && !p.pumpedErr {
		pipe.IgnoreAndClose(p.Stderr)
		p.Stderr = nil
	}
}

// DiscardOutput discards both captured output streams.
func (p *Process) DiscardOutput() {
	p.DiscardStdout()
	p.DiscardStderr()
}

// Close releases everything the Process owns: stream handles, pumps and the
// native process reference. If the exit status has not been observed yet it
// blocks until the child exits first; a Process is never torn down while the
// native reference is unreaped. Subsequent calls return the first result.
func (p *Process) Close() error {
	p.closeOnce.Do(func() {
		var errs error
		errs = multierr.Append(errs, p.CloseStdin())

		// Unpumped capture ends close before the wait so a child wedged on
		// a full pipe buffer errors out instead of stalling the reap.
		if !p.pumpedOut && p.Stdout != nil {
			errs = multierr.Append(errs, p.Stdout.Close())
			p.Stdout = nil
		}
		if !p.pumpedErr && p.Stderr != nil {
			errs = multierr.Append(errs, p.Stderr.Close())
			p.Stderr = nil
		}

		<-p.done
		if p.status.err != nil {
			errs = multierr.Append(errs, p.status.err)
		}

		// Sink pumps finish at EOF once the child is gone; join them before
		// closing the ends they read.
		errs = multierr.Append(errs, p.pumps.Wait())
		if p.Stdout != nil {
			errs = multierr.Append(errs, p.Stdout.Close())
			p.Stdout = nil
		}
		if p.Stderr != nil {
			errs = multierr.Append(errs, p.Stderr.Close())
			p.Stderr = nil
		}

		errs = multierr.Append(errs, p.handle.release())
		p.closeErr = errs
	})
	return p.closeErr
}
