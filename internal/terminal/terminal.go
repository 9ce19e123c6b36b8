//go:build unix

// Package terminal provides terminal detection, raw-mode control, and
// resize propagation for the host terminal the wrapper runs in.
//
// This package handles:
//   - TTY detection for stdout/stderr
//   - NO_COLOR environment variable support
//   - Terminal dimensions
//   - Putting stdin in raw mode so every keystroke reaches the supervised
//     assistant unprocessed, and restoring it on exit
//   - Watching for SIGWINCH and propagating size changes to the PTY
package terminal

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"golang.org/x/term"
)

// Info holds terminal capability information.
type Info struct {
	IsTTY     bool
	NoColor   bool
	Width     int
	Height    int
	ForceFlag bool // When set, forces color off regardless of IsTTY/NoColor
}

// Detect returns terminal information for the current environment.
func Detect() *Info {
	fd := int(os.Stdout.Fd())
	isTTY := term.IsTerminal(fd)

	width, height := 80, 24 // sensible defaults
	if isTTY {
		if w, h, err := term.GetSize(fd); err == nil {
			width, height = w, h
		}
	}

	// Check NO_COLOR environment variable (https://no-color.org/)
	_, noColor := os.LookupEnv("NO_COLOR")

	return &Info{
		IsTTY:   isTTY,
		NoColor: noColor,
		Width:   width,
		Height:  height,
	}
}

// ColorEnabled returns true if colored output should be used.
func (t *Info) ColorEnabled() bool {
	if t.ForceFlag {
		return false
	}
	return t.IsTTY && !t.NoColor
}

// InteractiveEnabled returns true if interactive prompts are allowed.
func (t *Info) InteractiveEnabled() bool {
	return t.IsTTY
}

// SpinnersEnabled returns true if spinners should be used.
func (t *Info) SpinnersEnabled() bool {
	return t.IsTTY && !t.NoColor
}

// RawMode puts stdin into raw mode (no line buffering, no local echo, no
// signal translation) so every keystroke — including Ctrl-C — reaches the
// supervisor as raw bytes instead of being intercepted by the host tty
// driver. Restore is idempotent and safe to call from both a defer and a
// signal handler.
type RawMode struct {
	fd       int
	oldState *term.State
	once     sync.Once
}

// EnterRawMode switches stdin to raw mode. If stdin isn't a TTY (e.g. piped
// input in a test or a non-interactive CI run), it returns a RawMode whose
// Restore is a no-op.
func EnterRawMode() (*RawMode, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return &RawMode{fd: fd}, nil
	}

	oldState, err := term.MakeRaw(fd)
	if err != nil {
		return nil, err
	}

	return &RawMode{fd: fd, oldState: oldState}, nil
}

// Restore puts stdin back the way it was before EnterRawMode.
func (r *RawMode) Restore() {
	r.once.Do(func() {
		if r.oldState != nil {
			_ = term.Restore(r.fd, r.oldState)
		}
	})
}

// Resizer receives the host terminal's current size whenever it changes.
type Resizer interface {
	Resize(rows, cols int) error
}

// WatchResize calls r.Resize once immediately and again every time stdout's
// terminal size changes (SIGWINCH), until ctx is canceled. It runs in the
// calling goroutine's caller's background — start it with `go`.
func WatchResize(ctx context.Context, r Resizer) {
	fd := int(os.Stdout.Fd())
	if !term.IsTerminal(fd) {
		return
	}

	apply := func() {
		width, height, err := term.GetSize(fd)
		if err != nil {
			return
		}

		_ = r.Resize(height, width)
	}

	apply()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGWINCH)
	defer signal.Stop(sigCh)

	for {
		select {
		case <-ctx.Done():
			return
		case <-sigCh:
			apply()
		}
	}
}
