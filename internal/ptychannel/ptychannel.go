//go:build unix

// Package ptychannel spawns a child process attached to a pseudo-terminal
// and exposes the narrow read/write/resize/kill surface the supervisor's
// event loop needs, without ever touching os.Stdin/os.Stdout itself.
package ptychannel

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"github.com/creack/pty"
)

const (
	// DefaultRows and DefaultCols match the terminal size the spec's test
	// assistants are written against; assistants redraw full-width boxes
	// keyed to 80 columns.
	DefaultRows = 24
	DefaultCols = 80

	defaultShutdownDeadline = 3 * time.Second

	readChunkSize = 8192

	outputQueueChunks = 1000
)

// Channel supervises one child process running inside a PTY. The zero
// value is not usable; construct with Spawn. Safe for concurrent use.
type Channel struct {
	mu   sync.Mutex
	ptmx *os.File
	cmd  *exec.Cmd
	pgid int

	output chan []byte
	exited chan struct{}
	exitErr error

	closeOnce sync.Once
	done      chan struct{}
}

// Spawn starts binary with args attached to a new PTY sized rows x cols,
// with the environment overrides interactive CLI assistants expect to see
// a color-capable terminal.
func Spawn(ctx context.Context, binary string, args []string, rows, cols int) (*Channel, error) {
	if rows <= 0 {
		rows = DefaultRows
	}

	if cols <= 0 {
		cols = DefaultCols
	}

	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec // binary/args are resolved by our own catalog, not arbitrary user input

	cmd.Env = append(os.Environ(),
		"TERM=xterm-256color",
		"FORCE_COLOR=1",
		"COLORTERM=truecolor",
	)

	ptmx, err := pty.StartWithSize(cmd, &pty.Winsize{
		Rows: uint16(rows),
		Cols: uint16(cols),
	})
	if err != nil {
		return nil, annotateSpawnError(err, binary)
	}

	pgid, err := syscall.Getpgid(cmd.Process.Pid)
	if err != nil {
		pgid = 0
	}

	c := &Channel{
		ptmx:   ptmx,
		cmd:    cmd,
		pgid:   pgid,
		output: make(chan []byte, outputQueueChunks),
		exited: make(chan struct{}),
		done:   make(chan struct{}),
	}

	go c.readLoop()
	go c.waitLoop()

	return c, nil
}

// annotateSpawnError wraps the low-level exec error, marking it with
// "command not found" when the binary itself could not be found.
func annotateSpawnError(err error, binary string) error {
	if errors.Is(err, exec.ErrNotFound) || os.IsNotExist(err) {
		return fmt.Errorf("%s: command not found: %w", binary, err)
	}

	return fmt.Errorf("spawn %s: %w", binary, err)
}

func (c *Channel) readLoop() {
	defer close(c.output)

	buf := make([]byte, readChunkSize)

	for {
		n, err := c.ptmx.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])

			select {
			case c.output <- chunk:
			case <-c.done:
				return
			}
		}

		if err != nil {
			return
		}
	}
}

func (c *Channel) waitLoop() {
	err := c.cmd.Wait()

	c.mu.Lock()
	c.exitErr = err
	c.mu.Unlock()

	close(c.exited)
}

// Output returns the channel of raw bytes read from the PTY master. It is
// closed once the PTY side is no longer readable (normally right after the
// child exits).
func (c *Channel) Output() <-chan []byte {
	return c.output
}

// TryRecv drains whatever output chunks are already queued without
// blocking, concatenating them into a single slice. It returns a nil slice
// if nothing is currently available.
func (c *Channel) TryRecv() []byte {
	var out []byte

	for {
		select {
		case chunk, ok := <-c.output:
			if !ok {
				return out
			}

			out = append(out, chunk...)
		default:
			return out
		}
	}
}

// Write sends bytes to the child's PTY stdin (e.g. the user's keystrokes,
// or a synthesized Enter/response).
func (c *Channel) Write(p []byte) (int, error) {
	c.mu.Lock()
	ptmx := c.ptmx
	c.mu.Unlock()

	if ptmx == nil {
		return 0, errors.New("ptychannel: write after close")
	}

	n, err := ptmx.Write(p)
	if err != nil {
		return n, fmt.Errorf("write to pty: %w", err)
	}

	return n, nil
}

// Resize updates the child's PTY window size, e.g. in response to the
// wrapper's own controlling terminal being resized.
func (c *Channel) Resize(rows, cols int) error {
	c.mu.Lock()
	ptmx := c.ptmx
	c.mu.Unlock()

	if ptmx == nil {
		return errors.New("ptychannel: resize after close")
	}

	return pty.Setsize(ptmx, &pty.Winsize{
		Rows: uint16(rows),
		Cols: uint16(cols),
	})
}

// TryWait reports whether the child has exited, and if so its exit code.
// It never blocks.
func (c *Channel) TryWait() (exited bool, code int) {
	select {
	case <-c.exited:
	default:
		return false, 0
	}

	c.mu.Lock()
	err := c.exitErr
	c.mu.Unlock()

	return true, exitCodeFromError(err)
}

// Wait blocks until the child exits and returns its exit code.
func (c *Channel) Wait() int {
	<-c.exited

	c.mu.Lock()
	err := c.exitErr
	c.mu.Unlock()

	return exitCodeFromError(err)
}

func exitCodeFromError(err error) int {
	if err == nil {
		return 0
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}

	return 1
}

// Kill terminates the child, sending SIGTERM to its process group first
// and escalating to SIGKILL if it has not exited within deadline. A
// deadline of zero uses a 3s default. Kill is idempotent and safe to call
// more than once.
func (c *Channel) Kill(deadline time.Duration) {
	c.closeOnce.Do(func() {
		close(c.done)
	})

	c.mu.Lock()
	ptmx := c.ptmx
	cmd := c.cmd
	pgid := c.pgid
	c.mu.Unlock()

	if ptmx != nil {
		_ = ptmx.Close()
	}

	if cmd == nil || cmd.Process == nil {
		return
	}

	if deadline <= 0 {
		deadline = defaultShutdownDeadline
	}

	sendSignal(cmd.Process.Pid, pgid, syscall.SIGTERM)

	select {
	case <-c.exited:
		return
	case <-time.After(deadline):
		sendSignal(cmd.Process.Pid, pgid, syscall.SIGKILL)
		select {
		case <-c.exited:
		case <-time.After(deadline):
		}
	}
}

func sendSignal(pid, pgid int, sig syscall.Signal) {
	if pgid > 0 {
		if err := syscall.Kill(-pgid, sig); err == nil || errors.Is(err, syscall.ESRCH) {
			return
		}
	}

	if pid <= 0 {
		return
	}

	_ = syscall.Kill(pid, sig)
}
