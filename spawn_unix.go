//go:build !windows

package subproc

import (
	"fmt"
	"os"
	"syscall"

	"golang.org/x/sys/unix"
)

// procHandle is the fork/exec backend: a reference to the child plus the
// POSIX signal plumbing that goes with it.
type procHandle struct {
	proc *os.Process
}

func startProcess(spec *spawnSpec) (*procHandle, int, error) {
	attr := &os.ProcAttr{
		Dir: spec.Dir,
		Env: spec.Env, // nil inherits the parent environment
		Files: []*os.File{
			spec.Stdin,
			spec.Stdout,
			spec.Stderr,
		},
	}
	if spec.NewProcessGroup {
		attr.Sys = &syscall.SysProcAttr{Setpgid: true}
	}

	proc, err := os.StartProcess(spec.Path, spec.Args, attr)
	if err != nil {
		return nil, 0, err
	}
	return &procHandle{proc: proc}, proc.Pid, nil
}

// wait reaps the child and translates its wait status: the raw exit code for
// a normal exit, -N for termination by signal N.
func (h *procHandle) wait() (int, error) {
	state, err := h.proc.Wait()
	if err != nil {
		return 0, err
	}
	if ws, ok := state.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
		return -int(ws.Signal()), nil
	}
	return state.ExitCode(), nil
}

// signal delivers sig directly to the child, or to its whole process group
// when the child was spawned as a group leader.
func (h *procHandle) signal(sig Signal, group bool) error {
	target := h.proc.Pid
	if group {
		target = -target
	}
	if err := unix.Kill(target, unix.Signal(sig)); err != nil {
		return &OSError{Op: fmt.Sprintf("delivering %s to pid %d", sig, h.proc.Pid), Err: err}
	}
	return nil
}

// release is a no-op on Unix: reaping the child via wait already freed the
// native reference.
func (h *procHandle) release() error {
	return nil
}
