package subproc

import (
	"errors"
	"fmt"
	"os"
	"os/exec"

	"go.uber.org/zap"

	"github.com/guseggert/subproc/pipe"
)

// spawnSpec is the resolved, platform-neutral description handed to the
// native backend: executable path, argv, environment, working directory and
// the three files the child receives. A nil file leaves that descriptor
// closed in the child.
type spawnSpec struct {
	Path            string
	Args            []string
	Env             []string // nil inherits the parent environment
	Dir             string
	NewProcessGroup bool
	Stdin           *os.File
	Stdout          *os.File
	Stderr          *os.File
}

// streamWiring is the realized redirect for one standard stream: the file
// the child receives and the end, if any, the parent keeps. pair is set only
// for pipes the builder created itself, which are the only handles it is
// allowed to close.
type streamWiring struct {
	child   *os.File
	parent  *os.File
	pair    *pipe.Pair
	discard bool // close the whole pair once the child holds its copy
}

// builder resolves redirect policy into concrete handle pairs and issues the
// platform spawn call. One builder serves one spawn; every pipe it creates
// and does not hand off is closed before Start returns, on the success and
// failure paths alike.
type builder struct {
	args []string
	opts *Options
	log  *zap.SugaredLogger

	stdin  streamWiring
	stdout streamWiring
	stderr streamWiring
}

// Start spawns command according to opts and returns a live Process. The
// executable is resolved through the system search path before any native
// resource is allocated; a resolution failure is a *NotFoundError and a
// native creation failure is a *SpawnError.
func Start(command []string, opts Options) (*Process, error) {
	b := &builder{
		args: command,
		opts: &opts,
		log:  opts.logger().Named("spawn"),
	}
	return b.start()
}

func (b *builder) start() (*Process, error) {
	if err := b.validate(); err != nil {
		return nil, err
	}

	path, err := exec.LookPath(b.args[0])
	if err != nil {
		return nil, &NotFoundError{Command: b.args[0], Err: err}
	}

	if err := b.wire(); err != nil {
		b.cleanup()
		return nil, err
	}

	h, pid, err := startProcess(&spawnSpec{
		Path:            path,
		Args:            b.args,
		Env:             envList(b.opts.Env),
		Dir:             b.opts.Dir,
		NewProcessGroup: b.opts.NewProcessGroup,
		Stdin:           b.stdin.child,
		Stdout:          b.stdout.child,
		Stderr:          b.stderr.child,
	})
	if err != nil {
		b.cleanup()
		return nil, &SpawnError{Args: b.args, Err: err}
	}
	b.log.Debugf("spawned %q as pid %d", path, pid)

	p := &Process{
		Args:   b.args,
		Pid:    pid,
		Stdin:  b.stdin.parent,
		Stdout: b.stdout.parent,
		Stderr: b.stderr.parent,
		handle: h,
		group:  b.opts.NewProcessGroup,
		done:   make(chan struct{}),
		log:    b.opts.logger().Named("process"),
	}

	b.releaseChildEnds()
	b.startPumps(p)
	go p.reap()
	return p, nil
}

// validate rejects configurations before any resource is allocated. The
// mutual stdout/stderr alias is undefined in any sensible semantics and is
// refused rather than wired arbitrarily.
func (b *builder) validate() error {
	if len(b.args) == 0 {
		return errors.New("empty command line")
	}
	if b.opts.Stdout.kind == redirectToStderr && b.opts.Stderr.kind == redirectToStdout {
		return errors.New("stdout and stderr cannot both alias each other")
	}
	switch b.opts.Stdin.kind {
	case redirectSink:
		return errors.New("stdin cannot be wired to an output sink")
	case redirectToStdout, redirectToStderr:
		return errors.New("stdin cannot alias another stream")
	}
	if b.opts.Stdout.kind == redirectSource {
		return errors.New("stdout cannot be fed from an input source")
	}
	if b.opts.Stdout.kind == redirectToStdout {
		return errors.New("stdout cannot alias itself")
	}
	if b.opts.Stderr.kind == redirectSource {
		return errors.New("stderr cannot be fed from an input source")
	}
	if b.opts.Stderr.kind == redirectToStderr {
		return errors.New("stderr cannot alias itself")
	}
	for _, s := range []struct {
		name string
		r    Redirect
	}{
		{"stdin", b.opts.Stdin},
		{"stdout", b.opts.Stdout},
		{"stderr", b.opts.Stderr},
	} {
		if s.r.kind == redirectHandle && s.r.handle == nil {
			return fmt.Errorf("%s: nil handle", s.name)
		}
	}
	return nil
}

// wire realizes each stream's redirect into concrete handles. Aliases
// resolve last so they can reuse the sibling's already-wired child handle;
// the mutual case was rejected up front.
func (b *builder) wire() error {
	var err error
	if b.stdin, err = b.wireStdin(); err != nil {
		return err
	}
	if b.stdout, err = b.wireOutput(b.opts.Stdout, os.Stdout, "stdout"); err != nil {
		return err
	}
	if b.stderr, err = b.wireOutput(b.opts.Stderr, os.Stderr, "stderr"); err != nil {
		return err
	}
	if b.opts.Stderr.kind == redirectToStdout {
		b.stderr.child = b.stdout.child
	}
	if b.opts.Stdout.kind == redirectToStderr {
		b.stdout.child = b.stderr.child
	}
	return nil
}

func (b *builder) wireStdin() (streamWiring, error) {
	r := b.opts.Stdin
	switch r.kind {
	case redirectInherit:
		return streamWiring{child: os.Stdin}, nil
	case redirectNone:
		return streamWiring{}, nil
	case redirectHandle:
		if err := pipe.SetInheritable(r.handle, true); err != nil {
			return streamWiring{}, &OSError{Op: "marking stdin handle inheritable", Err: err}
		}
		return streamWiring{child: r.handle}, nil
	case redirectCapture, redirectSource:
		pr, err := pipe.New(true)
		if err != nil {
			return streamWiring{}, &OSError{Op: "creating stdin pipe", Err: err}
		}
		// The write end stays in this process; keep it out of the child.
		if err := pipe.SetInheritable(pr.W, false); err != nil {
			_ = pr.Close()
			return streamWiring{}, &OSError{Op: "protecting stdin pipe", Err: err}
		}
		return streamWiring{child: pr.R, parent: pr.W, pair: pr}, nil
	case redirectDiscard:
		pr, err := pipe.New(true)
		if err != nil {
			return streamWiring{}, &OSError{Op: "creating stdin pipe", Err: err}
		}
		return streamWiring{child: pr.R, pair: pr, discard: true}, nil
	}
	return streamWiring{}, fmt.Errorf("stdin: unsupported redirect")
}

func (b *builder) wireOutput(r Redirect, inherited *os.File, name string) (streamWiring, error) {
	switch r.kind {
	case redirectInherit:
		return streamWiring{child: inherited}, nil
	case redirectNone:
		return streamWiring{}, nil
	case redirectToStdout, redirectToStderr:
		// Filled in by wire once the sibling is resolved.
		return streamWiring{}, nil
	case redirectHandle:
		if err := pipe.SetInheritable(r.handle, true); err != nil {
			return streamWiring{}, &OSError{Op: "marking " + name + " handle inheritable", Err: err}
		}
		return streamWiring{child: r.handle}, nil
	case redirectCapture, redirectSink:
		pr, err := pipe.New(true)
		if err != nil {
			return streamWiring{}, &OSError{Op: "creating " + name + " pipe", Err: err}
		}
		if err := pipe.SetInheritable(pr.R, false); err != nil {
			_ = pr.Close()
			return streamWiring{}, &OSError{Op: "protecting " + name + " pipe", Err: err}
		}
		return streamWiring{child: pr.W, parent: pr.R, pair: pr}, nil
	case redirectDiscard:
		pr, err := pipe.New(true)
		if err != nil {
			return streamWiring{}, &OSError{Op: "creating " + name + " pipe", Err: err}
		}
		return streamWiring{child: pr.W, pair: pr, discard: true}, nil
	}
	return streamWiring{}, fmt.Errorf("%s: unsupported redirect", name)
}

// cleanup closes every pipe the builder created. Caller-supplied handles and
// inherited standard streams are never touched.
func (b *builder) cleanup() {
	for _, w := range []*streamWiring{&b.stdin, &b.stdout, &b.stderr} {
		if w.pair != nil {
			_ = w.pair.Close()
			w.pair = nil
		}
	}
}

// releaseChildEnds closes the child-side pipe ends now that the child owns
// its copies; a retained child end would keep EOF from ever reaching the
// parent. Discard pairs are closed entirely, which is what makes the child
// see a dead stream.
func (b *builder) releaseChildEnds() {
	for _, w := range []*streamWiring{&b.stdin, &b.stdout, &b.stderr} {
		if w.pair == nil {
			continue
		}
		if w.discard {
			_ = w.pair.Close()
		} else {
			if w.child == w.pair.R {
				_ = w.pair.CloseRead()
			} else {
				_ = w.pair.CloseWrite()
			}
			// The parent end now belongs to the Process (or its pump).
			w.pair.Disown()
		}
		w.pair = nil
	}
}

// startPumps attaches the background transfers implied by source and sink
// redirects. A source pump takes over the stdin write end entirely; sink
// pumps read a retained end that Close tears down after joining them.
func (b *builder) startPumps(p *Process) {
	if b.opts.Stdin.kind == redirectSource && p.Stdin != nil {
		f := p.Stdin
		p.Stdin = nil
		p.startSourcePump(b.opts.Stdin.src, f)
	}
	if b.opts.Stdout.kind == redirectSink && p.Stdout != nil {
		p.pumpedOut = true
		p.startSinkPump(p.Stdout, b.opts.Stdout.sink, "stdout")
	}
	if b.opts.Stderr.kind == redirectSink && p.Stderr != nil {
		p.pumpedErr = true
		p.startSinkPump(p.Stderr, b.opts.Stderr.sink, "stderr")
	}
}
