package subproc_test

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/guseggert/subproc"
	"github.com/guseggert/subproc/internal/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunCapturesStdout(t *testing.T) {
	test.RequirePOSIXTools(t)

	res, err := subproc.Run([]string{"echo", "hello"}, subproc.Options{
		Stdout: subproc.Capture(),
		Stderr: subproc.Capture(),
	})
	require.NoError(t, err)
	assert.Equal(t, 0, res.ExitCode)
	assert.True(t, res.Success())
	assert.Equal(t, "hello\n", string(res.Stdout))
	assert.Empty(t, res.Stderr)
	assert.Equal(t, []string{"hello"}, res.Args)
}

func TestRunRedirectMatrix(t *testing.T) {
	test.RequirePOSIXTools(t)

	// A program that writes fixed text to stdout and nothing to stderr must
	// behave identically under every stdin/stderr policy.
	for i, tc := range []struct {
		stdin  subproc.Redirect
		stderr subproc.Redirect
	}{
		{subproc.Null(), subproc.Capture()},
		{subproc.Null(), subproc.Discard()},
		{subproc.Null(), subproc.Null()},
		{subproc.Discard(), subproc.Capture()},
		{subproc.InputString(""), subproc.Capture()},
		{subproc.Inherit(), subproc.Capture()},
	} {
		tc := tc
		t.Run(fmt.Sprintf("case_%d", i), func(t *testing.T) {
			t.Parallel()
			res, err := subproc.Run([]string{"echo", "fixed"}, subproc.Options{
				Stdin:  tc.stdin,
				Stdout: subproc.Capture(),
				Stderr: tc.stderr,
			})
			require.NoError(t, err)
			assert.Equal(t, 0, res.ExitCode)
			assert.Equal(t, "fixed\n", string(res.Stdout))
			assert.Empty(t, res.Stderr)
		})
	}
}

func TestRunFullDuplexLargePayload(t *testing.T) {
	test.RequirePOSIXTools(t)

	// Well past the OS pipe buffer: a serial write-then-read would deadlock.
	payload := bytes.Repeat([]byte("0123456789abcdef"), 8192) // 128 KiB
	res, err := subproc.Run([]string{"cat"}, subproc.Options{
		Stdin:  subproc.InputBytes(payload),
		Stdout: subproc.Capture(),
	})
	require.NoError(t, err)
	assert.Equal(t, 0, res.ExitCode)
	assert.Equal(t, payload, res.Stdout)
}

func TestRunTimeoutTerminates(t *testing.T) {
	test.RequirePOSIXTools(t)

	start := time.Now()
	_, err := subproc.Run([]string{"sleep", "3"}, subproc.Options{
		Timeout: time.Second,
	})
	var te *subproc.TimeoutError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, time.Second, te.Timeout)
	assert.Equal(t, []string{"sleep", "3"}, te.Args)
	// The child must have been terminated, not slept out.
	assert.Less(t, time.Since(start), 2500*time.Millisecond)
}

func TestRunTimeoutCarriesPartialOutput(t *testing.T) {
	test.RequirePOSIXTools(t)

	_, err := subproc.Run([]string{"sh", "-c", "echo partial; sleep 3"}, subproc.Options{
		Stdout:  subproc.Capture(),
		Timeout: time.Second,
	})
	var te *subproc.TimeoutError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "partial\n", string(te.Stdout))
}

func TestRunCheckNonzeroExit(t *testing.T) {
	test.RequirePOSIXTools(t)

	res, err := subproc.Run([]string{"sh", "-c", "echo out; exit 3"}, subproc.Options{
		Stdout: subproc.Capture(),
		Check:  true,
	})
	var ee *subproc.ExitError
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, 3, ee.ExitCode)
	assert.Equal(t, "out\n", string(ee.Stdout))
	// The snapshot is still produced alongside the error.
	require.NotNil(t, res)
	assert.Equal(t, 3, res.ExitCode)
	assert.False(t, res.Success())
}

func TestRunNoCheckNonzeroExit(t *testing.T) {
	test.RequirePOSIXTools(t)

	res, err := subproc.Run([]string{"sh", "-c", "exit 7"}, subproc.Options{})
	require.NoError(t, err)
	assert.Equal(t, 7, res.ExitCode)
	assert.False(t, res.Success())
}

func TestRunCommandNotFound(t *testing.T) {
	_, err := subproc.Run([]string{"subproc-no-such-command-xyz"}, subproc.Options{})
	var nf *subproc.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "subproc-no-such-command-xyz", nf.Command)
}

func TestRunAliasStderrToStdout(t *testing.T) {
	test.RequirePOSIXTools(t)

	res, err := subproc.Run([]string{"sh", "-c", "echo oops >&2"}, subproc.Options{
		Stdout: subproc.Capture(),
		Stderr: subproc.ToStdout(),
	})
	require.NoError(t, err)
	assert.Equal(t, "oops\n", string(res.Stdout))
	assert.Empty(t, res.Stderr)
}

func TestRunAliasStdoutToStderr(t *testing.T) {
	test.RequirePOSIXTools(t)

	res, err := subproc.Run([]string{"echo", "routed"}, subproc.Options{
		Stdout: subproc.ToStderr(),
		Stderr: subproc.Capture(),
	})
	require.NoError(t, err)
	assert.Equal(t, "routed\n", string(res.Stderr))
	assert.Empty(t, res.Stdout)
}

func TestRunExplicitEnvironmentReplaces(t *testing.T) {
	test.RequirePOSIXTools(t)

	// HOME is set in the parent but must not leak through an explicit map.
	res, err := subproc.Run([]string{"sh", "-c", `printf '%s:%s' "$KEY" "$HOME"`}, subproc.Options{
		Stdout: subproc.Capture(),
		Env:    map[string]string{"KEY": "value"},
	})
	require.NoError(t, err)
	assert.Equal(t, "value:", string(res.Stdout))
}

func TestRunInheritsEnvironmentByDefault(t *testing.T) {
	test.RequirePOSIXTools(t)

	t.Setenv("SUBPROC_TEST_MARKER", "present")
	res, err := subproc.Run([]string{"sh", "-c", `printf '%s' "$SUBPROC_TEST_MARKER"`}, subproc.Options{
		Stdout: subproc.Capture(),
	})
	require.NoError(t, err)
	assert.Equal(t, "present", string(res.Stdout))
}

func TestRunWorkingDirectory(t *testing.T) {
	test.RequirePOSIXTools(t)

	dir := t.TempDir()
	res, err := subproc.Run([]string{"sh", "-c", "pwd"}, subproc.Options{
		Stdout: subproc.Capture(),
		Dir:    dir,
	})
	require.NoError(t, err)

	want, err := filepath.EvalSymlinks(dir)
	require.NoError(t, err)
	got, err := filepath.EvalSymlinks(strings.TrimSpace(string(res.Stdout)))
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestRunExplicitHandleRedirect(t *testing.T) {
	test.RequirePOSIXTools(t)

	path := filepath.Join(t.TempDir(), "stdout")
	f, err := os.Create(path)
	require.NoError(t, err)

	res, err := subproc.Run([]string{"echo", "to file"}, subproc.Options{
		Stdout: subproc.Handle(f),
	})
	require.NoError(t, err)
	assert.Equal(t, 0, res.ExitCode)
	require.NoError(t, f.Close())

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "to file\n", string(b))
}

func TestRunInputFile(t *testing.T) {
	test.RequirePOSIXTools(t)

	path := filepath.Join(t.TempDir(), "input")
	require.NoError(t, os.WriteFile(path, []byte("file contents"), 0o644))
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	res, err := subproc.Run([]string{"cat"}, subproc.Options{
		Stdin:  subproc.InputFile(f),
		Stdout: subproc.Capture(),
	})
	require.NoError(t, err)
	assert.Equal(t, "file contents", string(res.Stdout))
}

func TestRunWithSinkDeliversToWriterOnly(t *testing.T) {
	test.RequirePOSIXTools(t)

	// A sink-pumped stream must not also be drained into the snapshot; the
	// pump owns the pipe and every byte belongs to the writer.
	var sink bytes.Buffer
	script := `i=0; while [ $i -lt 128 ]; do printf '%01024d' 0; i=$((i+1)); done`
	res, err := subproc.Run([]string{"sh", "-c", script}, subproc.Options{
		Stdout: subproc.OutputWriter(&sink),
		Stderr: subproc.Capture(),
	})
	require.NoError(t, err)
	assert.Equal(t, 0, res.ExitCode)
	assert.Nil(t, res.Stdout)
	assert.Empty(t, res.Stderr)
	assert.Equal(t, 128*1024, sink.Len())
}

func TestCompleteOnSpawnedProcess(t *testing.T) {
	test.RequirePOSIXTools(t)

	p, err := subproc.Start([]string{"sh", "-c", "echo late; exit 5"}, subproc.Options{
		Stdout: subproc.Capture(),
	})
	require.NoError(t, err)

	res, err := subproc.Complete(p, false)
	require.NoError(t, err)
	assert.Equal(t, 5, res.ExitCode)
	assert.Equal(t, "late\n", string(res.Stdout))

	_, err = subproc.Complete(p, true)
	var ee *subproc.ExitError
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, 5, ee.ExitCode)
}
