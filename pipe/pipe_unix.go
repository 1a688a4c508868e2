//go:build !windows

package pipe

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// SetInheritable toggles whether f is passed to child processes created
// afterward. On Unix this clears or sets FD_CLOEXEC on the descriptor.
func SetInheritable(f *os.File, inheritable bool) error {
	fd := f.Fd()
	flags, err := unix.FcntlInt(fd, unix.F_GETFD, 0)
	if err != nil {
		return fmt.Errorf("fcntl(F_GETFD): %w", err)
	}
	if inheritable {
		flags &^= unix.FD_CLOEXEC
	} else {
		flags |= unix.FD_CLOEXEC
	}
	if _, err := unix.FcntlInt(fd, unix.F_SETFD, flags); err != nil {
		return fmt.Errorf("fcntl(F_SETFD): %w", err)
	}
	return nil
}
