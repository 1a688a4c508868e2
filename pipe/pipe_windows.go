//go:build windows

package pipe

import (
	"fmt"
	"os"

	"golang.org/x/sys/windows"
)

// SetInheritable toggles whether f is passed to child processes created
// afterward. On Windows this flips HANDLE_FLAG_INHERIT on the handle.
func SetInheritable(f *os.File, inheritable bool) error {
	var flag uint32
	if inheritable {
		flag = windows.HANDLE_FLAG_INHERIT
	}
	err := windows.SetHandleInformation(windows.Handle(f.Fd()), windows.HANDLE_FLAG_INHERIT, flag)
	if err != nil {
		return fmt.Errorf("SetHandleInformation: %w", err)
	}
	return nil
}
