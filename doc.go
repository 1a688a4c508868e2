/*
Package subproc spawns child processes, wires their standard streams to
pipes, files or in-memory buffers, and manages waiting, polling, signalling
and termination behind one portable API.

Two native process models back the package: fork/exec with POSIX signals on
Unix-like systems, and process handles with console control events on
Windows. The build selects exactly one backend; callers see a single signal
and timeout vocabulary either way. Signal numbers follow POSIX, and the
Windows backend emulates delivery as documented on Process.Signal.

Start returns a live Process for callers that need streaming or signalling.
Run is the synchronous convenience path: it captures the configured output
streams concurrently, joins the capture before reporting status, and applies
a timeout with terminate-then-reap escalation so nothing outlives the call.

Feeding a child input while draining its output must happen on independent
goroutines, or both processes deadlock once the data in flight exceeds the OS
pipe buffer. The Redirect source and sink variants and Run's capture path
arrange that automatically.

A Process is never torn down while the native reference is unreaped: Close
waits for the child first, which is what keeps zombies out of the process
table. Exit codes are reported non-negative for normal exits and as -N when
the child was terminated by signal N, on both backends.
*/
package subproc
