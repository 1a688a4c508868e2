//go:build windows

package subproc

import (
	"fmt"
	"os"
	"sync/atomic"
	"unsafe"

	"go.uber.org/multierr"
	"golang.org/x/sys/windows"
)

// procHandle is the handle/console-event backend. Windows has no signal
// delivery, so kill-class signals terminate the process (and, best effort,
// its children), SIGINT broadcasts a console interrupt, and everything else
// broadcasts a console break to the target's process group.
type procHandle struct {
	info windows.ProcessInformation

	// killedWith records the signal a kill-class termination was issued
	// for, so wait can preserve the -N exit-code convention. Only codes the
	// backend produced itself are ever translated.
	killedWith int32
}

func startProcess(spec *spawnSpec) (*procHandle, int, error) {
	appName, err := windows.UTF16PtrFromString(spec.Path)
	if err != nil {
		return nil, 0, err
	}
	cmdLine, err := windows.UTF16PtrFromString(windows.ComposeCommandLine(spec.Args))
	if err != nil {
		return nil, 0, err
	}

	var dir *uint16
	if spec.Dir != "" {
		if dir, err = windows.UTF16PtrFromString(spec.Dir); err != nil {
			return nil, 0, err
		}
	}

	var envBlock *uint16
	if len(spec.Env) > 0 {
		block, err := createEnvBlock(spec.Env)
		if err != nil {
			return nil, 0, err
		}
		envBlock = &block[0]
	}

	flags := uint32(windows.CREATE_UNICODE_ENVIRONMENT)
	if spec.NewProcessGroup {
		flags |= windows.CREATE_NEW_PROCESS_GROUP
	}

	si := &windows.StartupInfo{
		Flags:     windows.STARTF_USESTDHANDLES,
		StdInput:  stdHandle(spec.Stdin),
		StdOutput: stdHandle(spec.Stdout),
		StdErr:    stdHandle(spec.Stderr),
	}
	si.Cb = uint32(unsafe.Sizeof(*si))

	var pi windows.ProcessInformation
	err = windows.CreateProcess(appName, cmdLine, nil, nil, true, flags, envBlock, dir, si, &pi)
	if err != nil {
		return nil, 0, err
	}
	return &procHandle{info: pi}, int(pi.ProcessId), nil
}

func stdHandle(f *os.File) windows.Handle {
	if f == nil {
		return 0
	}
	return windows.Handle(f.Fd())
}

// createEnvBlock lays out key=value pairs in the UTF-16,
// double-NUL-terminated form CreateProcess expects.
func createEnvBlock(env []string) ([]uint16, error) {
	var block []uint16
	for _, kv := range env {
		u, err := windows.UTF16FromString(kv)
		if err != nil {
			return nil, fmt.Errorf("environment entry %q: %w", kv, err)
		}
		block = append(block, u...) // includes the terminating NUL
	}
	block = append(block, 0)
	return block, nil
}

func (h *procHandle) wait() (int, error) {
	ev, err := windows.WaitForSingleObject(h.info.Process, windows.INFINITE)
	if err != nil {
		return 0, fmt.Errorf("WaitForSingleObject: %w", err)
	}
	if ev != windows.WAIT_OBJECT_0 {
		return 0, fmt.Errorf("WaitForSingleObject: unexpected wait result %#x", ev)
	}
	var code uint32
	if err := windows.GetExitCodeProcess(h.info.Process, &code); err != nil {
		return 0, fmt.Errorf("GetExitCodeProcess: %w", err)
	}
	if sig := atomic.LoadInt32(&h.killedWith); sig != 0 && code == uint32(128+sig) {
		return -int(sig), nil
	}
	return int(code), nil
}

func (h *procHandle) signal(sig Signal, _ bool) error {
	switch sig {
	case SIGKILL:
		atomic.StoreInt32(&h.killedWith, int32(sig))
		// Snapshot the children before the parent goes away; the snapshot
		// is racy against concurrent spawns and is best effort by design.
		children := childProcessIDs(h.info.ProcessId)
		if err := windows.TerminateProcess(h.info.Process, uint32(128+int(sig))); err != nil {
			return &OSError{Op: "TerminateProcess", Err: err}
		}
		for _, pid := range children {
			terminateProcessByID(pid, uint32(128+int(sig)))
		}
		return nil
	case SIGINT:
		// Reaches the entire console session, the calling process included
		// when it shares the console; there is no narrower CTRL_C scope.
		if err := windows.GenerateConsoleCtrlEvent(windows.CTRL_C_EVENT, 0); err != nil {
			return &OSError{Op: "GenerateConsoleCtrlEvent(CTRL_C)", Err: err}
		}
		return nil
	default:
		if err := windows.GenerateConsoleCtrlEvent(windows.CTRL_BREAK_EVENT, h.info.ProcessId); err != nil {
			return &OSError{Op: "GenerateConsoleCtrlEvent(CTRL_BREAK)", Err: err}
		}
		return nil
	}
}

// childProcessIDs enumerates direct children of ppid from a Toolhelp
// snapshot taken now. The process list is shared mutable state owned by the
// OS; the result is inherently stale and treated as best effort.
func childProcessIDs(ppid uint32) []uint32 {
	snap, err := windows.CreateToolhelp32Snapshot(windows.TH32CS_SNAPPROCESS, 0)
	if err != nil {
		return nil
	}
	defer windows.CloseHandle(snap)

	var pe windows.ProcessEntry32
	pe.Size = uint32(unsafe.Sizeof(pe))
	var ids []uint32
	for err = windows.Process32First(snap, &pe); err == nil; err = windows.Process32Next(snap, &pe) {
		if pe.ParentProcessID == ppid {
			ids = append(ids, pe.ProcessID)
		}
	}
	return ids
}

func terminateProcessByID(pid uint32, code uint32) {
	h, err := windows.OpenProcess(windows.PROCESS_TERMINATE, false, pid)
	if err != nil {
		return
	}
	_ = windows.TerminateProcess(h, code)
	_ = windows.CloseHandle(h)
}

// release closes the process and thread handles. Idempotent.
func (h *procHandle) release() error {
	var err error
	if h.info.Process != 0 {
		err = multierr.Append(err, windows.CloseHandle(h.info.Process))
		h.info.Process = 0
	}
	if h.info.Thread != 0 {
		err = multierr.Append(err, windows.CloseHandle(h.info.Thread))
		h.info.Thread = 0
	}
	return err
}
