package subproc

import "fmt"

// Signal identifies a signal to deliver to a child process. The numeric
// values follow the POSIX convention on every platform, so the vocabulary is
// portable; Process.Signal documents how delivery is emulated on Windows.
type Signal int

const (
	SIGHUP  Signal = 1  // hangup on controlling terminal
	SIGINT  Signal = 2  // keyboard interrupt
	SIGQUIT Signal = 3  // keyboard quit
	SIGABRT Signal = 6  // abort
	SIGKILL Signal = 9  // hard kill, cannot be handled by the child
	SIGUSR1 Signal = 10 // user-defined signal 1
	SIGUSR2 Signal = 12 // user-defined signal 2
	SIGALRM Signal = 14 // timer expiry
	SIGTERM Signal = 15 // termination request
)

func (s Signal) String() string {
	switch s {
	case SIGHUP:
		return "hangup"
	case SIGINT:
		return "interrupt"
	case SIGQUIT:
		return "quit"
	case SIGABRT:
		return "abort"
	case SIGKILL:
		return "kill"
	case SIGUSR1:
		return "user-defined signal 1"
	case SIGUSR2:
		return "user-defined signal 2"
	case SIGALRM:
		return "alarm"
	case SIGTERM:
		return "terminate"
	}
	return fmt.Sprintf("signal %d", int(s))
}
