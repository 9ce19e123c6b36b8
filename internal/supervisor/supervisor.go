// Package supervisor drives the single-process event loop that owns one
// assistant run: it multiplexes PTY output, user keystrokes, and a
// heartbeat ticker, classifies PTY output through a pattern.Set, and
// synthesizes Enter / typed responses on the assistant's behalf when
// auto-yes is enabled.
package supervisor

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/agent-yes/agent-yes/internal/ansi"
	"github.com/agent-yes/agent-yes/internal/idle"
	"github.com/agent-yes/agent-yes/internal/pattern"
	"github.com/agent-yes/agent-yes/internal/readysignal"
)

// PTYChannel is the narrow surface Run needs from a child process attached
// to a PTY. internal/ptychannel.Channel satisfies it; tests supply a fake.
type PTYChannel interface {
	TryRecv() []byte
	Write(p []byte) (int, error)
	TryWait() (exited bool, code int)
	Kill(deadline time.Duration)
}

// Result reports how one Run call ended.
type Result struct {
	ExitCode               int
	Fatal                  bool
	UserAbort              bool
	RestartWithoutContinue bool
}

// Options configures a single supervised run.
type Options struct {
	Patterns       *pattern.Set
	NoEOL          bool
	ExitCommand    []string
	AutoYesEnabled bool
	IdleTimeout    time.Duration // 0 disables the idle-timeout exit
	Stdin          io.Reader
	Stdout         io.Writer
	Logger         *slog.Logger
}

// Supervisor runs one assistant session end to end.
type Supervisor struct {
	opts Options
}

// New builds a Supervisor from opts, defaulting Logger to slog.Default()
// when unset.
func New(opts Options) *Supervisor {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	return &Supervisor{opts: opts}
}

// session holds the mutable state of one Run call. Kept separate from
// Supervisor so a single Supervisor configuration could drive sequential
// runs (e.g. across a robust-mode restart) without carrying over state.
type session struct {
	opts Options
	pty  PTYChannel

	stripper *ansi.Stripper
	rawBuf   []byte
	rendered []byte

	idle            *idle.Tracker
	stdinReady      *readysignal.Signal
	stdinFirstReady *readysignal.Signal
	nextStdout      *readysignal.Signal

	autoYesEnabled         bool
	isFatal                bool
	isUserAbort            bool
	restartWithoutContinue bool

	startTime time.Time

	pendingEnter           bool
	pendingEnterDetectedAt time.Time
	enterSentAt            time.Time
	enterSent              bool
	enterRetryCount        int
}

// Run spawns no processes itself — pty is assumed already started — and
// drives the event loop until the child exits, the idle timeout fires, the
// user presses Ctrl-C before the assistant is ready, or ctx is canceled. A fatal
// pattern match only sets Result.Fatal for the caller's restart policy; it
// does not end the loop on its own — the assistant process is still the
// one deciding when to exit.
func (s *Supervisor) Run(ctx context.Context, pty PTYChannel) Result {
	sess := &session{
		opts:            s.opts,
		pty:             pty,
		stripper:        ansi.NewStripper(),
		idle:            idle.New(),
		stdinReady:      readysignal.New(),
		stdinFirstReady: readysignal.New(),
		nextStdout:      readysignal.New(),
		autoYesEnabled:  s.opts.AutoYesEnabled,
		startTime:       time.Now(),
	}

	return sess.run(ctx)
}

func (sess *session) run(ctx context.Context) Result {
	stdinCh := make(chan []byte, 100)
	stdinDone := make(chan struct{})

	if sess.opts.Stdin != nil {
		go sess.readStdin(stdinCh, stdinDone)
	} else {
		close(stdinDone)
	}

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	poll := time.NewTicker(pollInterval)
	defer poll.Stop()

	forceReadySent := false

	for {
		select {
		case <-ctx.Done():
			sess.pty.Kill(0)
			return sess.finish(0)

		case <-heartbeat.C:
			sess.heartbeatCheck()

			if !forceReadySent && time.Since(sess.startTime) > forceReadyTimeout {
				if !sess.stdinReady.IsReady() {
					sess.stdinReady.Ready()
					sess.stdinFirstReady.Ready()
					forceReadySent = true
				}
			}

		case data, ok := <-stdinCh:
			if !ok {
				continue
			}

			if exitCode, done := sess.handleStdin(data); done {
				return sess.finish(exitCode)
			}

		case <-poll.C:
			for {
				chunk := sess.pty.TryRecv()
				if len(chunk) == 0 {
					break
				}

				sess.handleOutput(chunk)
			}

			if exited, code := sess.pty.TryWait(); exited {
				if sess.isUserAbort {
					return sess.finish(130)
				}

				return sess.finish(code)
			}

			if exitCode, done := sess.checkIdleTimeout(); done {
				return sess.finish(exitCode)
			}
		}
	}
}

func (sess *session) finish(exitCode int) Result {
	return Result{
		ExitCode:               exitCode,
		Fatal:                  sess.isFatal,
		UserAbort:              sess.isUserAbort,
		RestartWithoutContinue: sess.restartWithoutContinue,
	}
}

func (sess *session) readStdin(out chan<- []byte, done chan<- struct{}) {
	defer close(done)

	buf := make([]byte, stdinReadChunk)

	for {
		n, err := sess.opts.Stdin.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			out <- chunk
		}

		if err != nil {
			return
		}
	}
}

// handleStdin processes one chunk of raw keystrokes, mirroring the
// original's Ctrl-C / Ctrl-Y / "/auto" handling. Returns (exitCode, true)
// when the run should end immediately (a pre-ready Ctrl-C abort).
func (sess *session) handleStdin(data []byte) (int, bool) {
	if bytes.IndexByte(data, 0x03) >= 0 {
		if !sess.stdinReady.IsReady() {
			sess.isUserAbort = true
			_, _ = sess.pty.Write([]byte{0x03})
			return 130, true
		}

		_, _ = sess.pty.Write([]byte{0x03})
		return 0, false
	}

	if bytes.IndexByte(data, 0x19) >= 0 {
		sess.autoYesEnabled = !sess.autoYesEnabled
		sess.logToggle()

		if !sess.autoYesEnabled {
			sess.stdinReady.Ready()
		}

		return 0, false
	}

	if strings.TrimSpace(string(data)) == "/auto" {
		sess.autoYesEnabled = !sess.autoYesEnabled
		sess.logToggle()

		return 0, false
	}

	if sess.stdinReady.IsReady() || !sess.autoYesEnabled {
		_, _ = sess.pty.Write(data)
		sess.idle.Ping()
	}

	return 0, false
}

func (sess *session) logToggle() {
	if sess.autoYesEnabled {
		sess.opts.Logger.Info("auto-yes toggled", slog.String("state", "on"))
	} else {
		sess.opts.Logger.Info("auto-yes toggled", slog.String("state", "off"))
	}
}

// handleOutput appends a PTY output chunk to the raw and rendered buffers,
// writes it verbatim to stdout, pings the idle tracker when the stripped
// chunk holds non-whitespace text, and runs pattern classification.
func (sess *session) handleOutput(chunk []byte) {
	if sess.opts.Stdout != nil {
		_, _ = sess.opts.Stdout.Write(chunk)
	}

	sess.rawBuf = append(sess.rawBuf, chunk...)

	stripped := sess.stripper.FeedBytes(chunk)
	sess.rendered = append(sess.rendered, stripped...)

	sess.truncateBuffers()

	sess.nextStdout.Ready()

	if len(bytes.TrimSpace(stripped)) > 0 {
		sess.idle.Ping()
	}

	sess.checkPatterns()
}

func (sess *session) truncateBuffers() {
	if len(sess.rawBuf) > maxBufferBytes {
		sess.rawBuf = append([]byte{}, sess.rawBuf[truncateKeepBytes:]...)
	}

	if len(sess.rendered) > maxBufferBytes {
		keep := truncateKeepBytes
		if keep > len(sess.rendered) {
			keep = len(sess.rendered)
		}

		sess.rendered = append([]byte{}, sess.rendered[keep:]...)
	}
}

// checkPatterns runs the rendered buffer through the pattern set in the
// supervisor's required priority: fatal, then restart-without-continue
// and ready (both non-exclusive), then — only with auto-yes enabled —
// typing-respond and enter, whichever matches first.
func (sess *session) checkPatterns() {
	if sess.opts.Patterns == nil {
		return
	}

	r := sess.opts.Patterns.Check(string(sess.rendered), sess.autoYesEnabled)

	if r.Fatal {
		sess.isFatal = true
		return
	}

	if r.RestartWithoutContinue {
		sess.restartWithoutContinue = true
	}

	if r.Ready && !sess.stdinReady.IsReady() {
		sess.stdinReady.Ready()
		sess.stdinFirstReady.Ready()
	}

	if !sess.autoYesEnabled {
		return
	}

	if r.TypingRespond != "" {
		_, _ = sess.pty.Write([]byte(r.TypingRespond))
		sess.clearBuffers()

		return
	}

	if r.Enter && !sess.pendingEnter {
		sess.pendingEnter = true
		sess.pendingEnterDetectedAt = time.Now()
		sess.enterSent = false
		sess.enterRetryCount = 0
		sess.clearBuffers()
	}
}

func (sess *session) clearBuffers() {
	sess.rawBuf = sess.rawBuf[:0]
	sess.rendered = sess.rendered[:0]
}

// heartbeatCheck answers VT100 terminal queries, re-runs pattern
// classification for no-EOL assistants whose prompt never emits a
// newline, and drives the pending-Enter retry state machine.
func (sess *session) heartbeatCheck() {
	if bytes.Contains(sess.rawBuf, []byte("\x1b[c")) || bytes.Contains(sess.rawBuf, []byte("\x1b[0c")) {
		_, _ = sess.pty.Write([]byte("\x1b[?1;2c"))
	}

	if bytes.Contains(sess.rawBuf, []byte("\x1b[6n")) {
		_, _ = sess.pty.Write([]byte("\x1b[1;1R"))
	}

	if sess.opts.NoEOL {
		sess.checkPatterns()

		if sess.isFatal {
			return
		}
	}

	if !sess.pendingEnter {
		return
	}

	idleTime := sess.idle.IdleDuration()
	now := time.Now()

	if !sess.enterSent {
		if idleTime >= enterIdleWait {
			sess.doSendEnter()
			sess.enterSent = true
			sess.enterSentAt = now
			sess.nextStdout.Unready()
		}

		return
	}

	if sess.nextStdout.IsReady() {
		sess.pendingEnter = false
		sess.enterSent = false
		sess.enterRetryCount = 0

		return
	}

	elapsed := now.Sub(sess.enterSentAt)

	switch {
	case sess.enterRetryCount == 0 && elapsed >= enterRetry1:
		sess.doSendEnter()
		sess.enterRetryCount = 1
		sess.enterSentAt = now

	case sess.enterRetryCount == 1 && elapsed >= enterRetry2:
		sess.doSendEnter()
		sess.enterRetryCount = 2
		sess.pendingEnter = false
		sess.enterSent = false
		sess.enterSentAt = time.Time{}
		sess.enterRetryCount = 0
	}
}

func (sess *session) doSendEnter() {
	_, _ = sess.pty.Write([]byte("\r"))
	sess.idle.Ping()
}

// checkIdleTimeout returns (exitCode, true) when the assistant has been
// idle past opts.IdleTimeout and no "working" pattern excuses the silence,
// sending the assistant's configured exit command(s) first.
func (sess *session) checkIdleTimeout() (int, bool) {
	if sess.opts.IdleTimeout <= 0 {
		return 0, false
	}

	if sess.idle.IdleDuration() <= sess.opts.IdleTimeout {
		return 0, false
	}

	if sess.opts.Patterns != nil && pattern.MatchAny(sess.opts.Patterns.Working, string(sess.rendered)) {
		return 0, false
	}

	for _, cmd := range sess.opts.ExitCommand {
		_, _ = sess.pty.Write([]byte(cmd))
		_, _ = sess.pty.Write([]byte("\n"))
	}

	return 0, true
}
