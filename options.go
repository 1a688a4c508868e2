package subproc

import (
	"sort"
	"time"

	"go.uber.org/zap"
)

// Options configures how a child process is spawned and, for Run, how its
// completion is handled. The zero value inherits all three streams, the
// current environment and working directory, and waits forever.
type Options struct {
	// Stdin, Stdout and Stderr select the redirect policy for the three
	// standard streams.
	Stdin  Redirect
	Stdout Redirect
	Stderr Redirect

	// NewProcessGroup starts the child in its own process group so that
	// signals can be delivered to the whole group.
	NewProcessGroup bool

	// Dir is the child's working directory. Empty inherits the parent's.
	Dir string

	// Env is the child's environment. Nil or empty inherits the parent's
	// environment; otherwise it is a complete replacement, not a merge.
	Env map[string]string

	// Timeout bounds Run's wait for the child. Zero or negative waits
	// forever. Ignored by Start; use Process.Wait's timeout there.
	Timeout time.Duration

	// Check makes Run return an *ExitError when the child exits nonzero.
	// Ignored by Start.
	Check bool

	// Logger receives debug-level diagnostics from the spawn wiring, the
	// pumps and the reaper. Nil disables logging.
	Logger *zap.SugaredLogger
}

func (o *Options) logger() *zap.SugaredLogger {
	if o.Logger != nil {
		return o.Logger
	}
	return zap.NewNop().Sugar()
}

// envList flattens an environment map into the key=value form the native
// spawn calls expect, sorted for determinism. Nil means "inherit".
func envList(m map[string]string) []string {
	if len(m) == 0 {
		return nil
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	env := make([]string, 0, len(m))
	for _, k := range keys {
		env = append(env, k+"="+m[k])
	}
	return env
}
