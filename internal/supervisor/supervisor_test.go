package supervisor

import (
	"bytes"
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/agent-yes/agent-yes/internal/catalog"
	"github.com/agent-yes/agent-yes/internal/pattern"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakePTY is an in-memory stand-in for ptychannel.Channel, following mush's
// injectable-PTY testing practice: output chunks are queued up front (or
// pushed later from a test goroutine) and every Write call is recorded so
// assertions can check exactly what the supervisor sent back.
type fakePTY struct {
	mu       sync.Mutex
	queue    [][]byte
	written  [][]byte
	exited   bool
	exitCode int
}

func (f *fakePTY) push(chunk []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.queue = append(f.queue, chunk)
}

func (f *fakePTY) setExited(code int) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.exited = true
	f.exitCode = code
}

func (f *fakePTY) TryRecv() []byte {
	f.mu.Lock()
	defer f.mu.Unlock()

	if len(f.queue) == 0 {
		return nil
	}

	chunk := f.queue[0]
	f.queue = f.queue[1:]

	return chunk
}

func (f *fakePTY) Write(p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	cp := append([]byte{}, p...)
	f.written = append(f.written, cp)

	return len(p), nil
}

func (f *fakePTY) writtenJoined() []byte {
	f.mu.Lock()
	defer f.mu.Unlock()

	return bytes.Join(f.written, nil)
}

func (f *fakePTY) TryWait() (bool, int) {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.exited, f.exitCode
}

func (f *fakePTY) Kill(time.Duration) {
	f.setExited(1)
}

func claudePatterns(t *testing.T) *pattern.Set {
	t.Helper()

	spec, ok := catalog.Get("claude")
	require.True(t, ok)

	set, err := pattern.Compile(spec.Patterns)
	require.NoError(t, err)

	return set
}

// S1: a ready pattern in PTY output unlocks stdin passthrough.
func TestScenarioReadyUnlocksStdin(t *testing.T) {
	pty := &fakePTY{}
	pty.push([]byte("? for shortcuts\n"))

	stdinR, stdinW := io.Pipe()

	var stdout bytes.Buffer

	sup := New(Options{
		Patterns:       claudePatterns(t),
		AutoYesEnabled: true,
		Stdin:          stdinR,
		Stdout:         &stdout,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan Result, 1)
	go func() { done <- sup.Run(ctx, pty) }()

	time.Sleep(100 * time.Millisecond)

	go func() {
		_, _ = stdinW.Write([]byte("hello"))
	}()

	time.Sleep(100 * time.Millisecond)
	pty.setExited(0)

	res := <-done
	assert.Equal(t, 0, res.ExitCode)
	assert.Contains(t, stdout.String(), "for shortcuts")
	assert.Contains(t, string(pty.writtenJoined()), "hello", "keystrokes typed after ready must reach the PTY")
}

// S2: an enter pattern schedules a synthesized Enter once output goes idle.
func TestScenarioEnterPatternSendsSynthesizedEnter(t *testing.T) {
	pty := &fakePTY{}
	pty.push([]byte("❯ 1. Yes\n"))

	sup := New(Options{
		Patterns:       claudePatterns(t),
		AutoYesEnabled: true,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan Result, 1)
	go func() { done <- sup.Run(ctx, pty) }()

	time.Sleep(300 * time.Millisecond)
	pty.setExited(0)

	<-done

	assert.Contains(t, string(pty.writtenJoined()), "\r")
}

// S3: a typing-respond pattern elicits the configured literal response,
// not a synthesized Enter.
func TestScenarioTypingRespondSendsConfiguredText(t *testing.T) {
	pty := &fakePTY{}
	pty.push([]byte("Do you want to use this API key?\n"))

	sup := New(Options{
		Patterns:       claudePatterns(t),
		AutoYesEnabled: true,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan Result, 1)
	go func() { done <- sup.Run(ctx, pty) }()

	time.Sleep(100 * time.Millisecond)
	pty.setExited(0)

	<-done

	assert.Contains(t, string(pty.writtenJoined()), "1\n")
}

// S4: a fatal pattern flags the run but does not end it on its own — the
// loop keeps draining output and answering heartbeats until the child
// process actually exits, at which point Fatal is reported alongside the
// exit code for the caller's restart policy to act on.
func TestScenarioFatalPatternFlagsButWaitsForExit(t *testing.T) {
	pty := &fakePTY{}
	pty.push([]byte("Claude usage limit reached\n"))

	sup := New(Options{Patterns: claudePatterns(t)})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan Result, 1)
	go func() { done <- sup.Run(ctx, pty) }()

	// The run must still be alive well after the fatal pattern was seen —
	// it does not return until the child exits.
	select {
	case <-done:
		t.Fatal("run ended before the child process exited")
	case <-time.After(200 * time.Millisecond):
	}

	pty.setExited(1)

	select {
	case res := <-done:
		assert.True(t, res.Fatal)
		assert.Equal(t, 1, res.ExitCode)
		assert.Equal(t, Stop, DecideRestart(res.ExitCode, res.Fatal, res.UserAbort, true))
	case <-time.After(2 * time.Second):
		t.Fatal("fatal pattern run did not end after child exit")
	}
}

// S5: a restart-without-continue pattern sets the flag without ending the
// run on its own — the caller (robust-mode restart policy) reacts to it
// once the process actually exits non-zero.
func TestScenarioRestartWithoutContinueFlagsWithoutStoppingRun(t *testing.T) {
	pty := &fakePTY{}
	pty.push([]byte("No conversation found to continue\n"))

	sup := New(Options{Patterns: claudePatterns(t)})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan Result, 1)
	go func() { done <- sup.Run(ctx, pty) }()

	time.Sleep(100 * time.Millisecond)
	pty.setExited(1)

	res := <-done
	assert.True(t, res.RestartWithoutContinue)
	assert.Equal(t, 1, res.ExitCode)
	assert.Equal(t, Restart, DecideRestart(res.ExitCode, res.Fatal, res.UserAbort, true))
}

// S6: when the assistant goes idle past the configured timeout and no
// working pattern excuses the silence, the supervisor sends the exit
// command and returns a clean exit code.
func TestScenarioIdleTimeoutSendsExitCommand(t *testing.T) {
	pty := &fakePTY{}
	pty.push([]byte("? for shortcuts\n"))

	sup := New(Options{
		Patterns:    claudePatterns(t),
		IdleTimeout: 50 * time.Millisecond,
		ExitCommand: []string{"/exit"},
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan Result, 1)
	go func() {
		res := sup.Run(ctx, pty)
		done <- res
	}()

	// The supervisor itself sends the exit command and reports a clean
	// exit; it does not wait for the (fake) child to actually exit, since
	// real assistants would only exit after receiving that command.
	select {
	case res := <-done:
		assert.Equal(t, 0, res.ExitCode)
	case <-time.After(2 * time.Second):
		t.Fatal("idle timeout did not end the run")
	}

	assert.Contains(t, string(pty.writtenJoined()), "/exit\n")
}

// Ctrl-C before the assistant is ready aborts the run with exit code 130
// and marks UserAbort, which DecideRestart must never restart from even
// in robust mode.
func TestCtrlCBeforeReadyAborts(t *testing.T) {
	pty := &fakePTY{}

	stdinR, stdinW := io.Pipe()

	sup := New(Options{
		Patterns: claudePatterns(t),
		Stdin:    stdinR,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan Result, 1)
	go func() { done <- sup.Run(ctx, pty) }()

	go func() {
		_, _ = stdinW.Write([]byte{0x03})
	}()

	select {
	case res := <-done:
		assert.True(t, res.UserAbort)
		assert.Equal(t, 130, res.ExitCode)
		assert.Equal(t, Stop, DecideRestart(res.ExitCode, res.Fatal, res.UserAbort, true))
	case <-time.After(2 * time.Second):
		t.Fatal("ctrl-c did not abort the run")
	}
}

func TestDecideRestartNonRobustNeverRestarts(t *testing.T) {
	assert.Equal(t, Stop, DecideRestart(1, false, false, false))
}

func TestDecideRestartCleanExitNeverRestarts(t *testing.T) {
	assert.Equal(t, Stop, DecideRestart(0, false, false, true))
}

func TestDecideRestartFatalNeverRestartsEvenRobust(t *testing.T) {
	assert.Equal(t, Stop, DecideRestart(1, true, false, true))
}

func TestDecideRestartTransientFailureRestartsInRobustMode(t *testing.T) {
	assert.Equal(t, Restart, DecideRestart(1, false, false, true))
}

func TestApplyRestoreArgsAppendsWhenAbsent(t *testing.T) {
	got := ApplyRestoreArgs([]string{"--search"}, []string{"--continue"}, false)
	assert.Equal(t, []string{"--search", "--continue"}, got)
}

func TestApplyRestoreArgsSkipsWhenAlreadyPresent(t *testing.T) {
	got := ApplyRestoreArgs([]string{"--continue"}, []string{"--continue"}, false)
	assert.Equal(t, []string{"--continue"}, got)
}

func TestApplyRestoreArgsStripsWhenRestartWithoutContinue(t *testing.T) {
	got := ApplyRestoreArgs([]string{"--search", "--continue"}, []string{"--continue"}, true)
	assert.Equal(t, []string{"--search"}, got)
}
