// Package output renders agent-yes's own startup and diagnostic messages —
// errors, the doctor report, the version banner. It never touches the
// assistant's session output: the supervisor writes the child's PTY bytes
// straight to os.Stdout (see cmd/agent-yes/runner.go) so they reach the
// terminal byte-exact, without passing through this package's formatting or
// color handling.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"

	"github.com/agent-yes/agent-yes/internal/terminal"
)

// Writer formats agent-yes's wrapper-level messages: doctor results, the
// version banner, and CLI errors surfaced by main.handleError.
type Writer struct {
	Out  io.Writer
	Err  io.Writer
	JSON bool

	terminal *terminal.Info

	successColor *color.Color
	errorColor   *color.Color
	warningColor *color.Color
	infoColor    *color.Color
	mutedColor   *color.Color
}

// Default returns a Writer bound to the process's stdout/stderr.
func Default() *Writer {
	return newWriter(os.Stdout, os.Stderr, terminal.Detect())
}

// NewWriter builds a Writer over custom writers and terminal info, for
// tests that need to capture output without a real TTY.
func NewWriter(out, err io.Writer, term *terminal.Info) *Writer {
	return newWriter(out, err, term)
}

func newWriter(out, err io.Writer, term *terminal.Info) *Writer {
	w := &Writer{
		Out:      out,
		Err:      err,
		terminal: term,

		successColor: color.New(color.FgGreen),
		errorColor:   color.New(color.FgRed),
		warningColor: color.New(color.FgYellow),
		infoColor:    color.New(color.FgCyan),
		mutedColor:   color.New(color.FgHiBlack),
	}

	if !term.ColorEnabled() {
		color.NoColor = true
	}

	return w
}

// Terminal returns the terminal info this Writer was built with.
func (w *Writer) Terminal() *terminal.Info {
	return w.terminal
}

// Print writes to stdout, unformatted.
func (w *Writer) Print(format string, args ...any) {
	fmt.Fprintf(w.Out, format, args...)
}

// PrintJSON writes v to stdout as indented JSON, for --json output.
func (w *Writer) PrintJSON(v any) error {
	enc := json.NewEncoder(w.Out)
	enc.SetIndent("", "  ")

	return enc.Encode(v)
}

func (w *Writer) writeStatus(writer io.Writer, tone *color.Color, prefix, message string) {
	if w.terminal.ColorEnabled() {
		tone.Fprint(writer, prefix+" ")
		fmt.Fprintln(writer, message)
	} else {
		fmt.Fprintln(writer, prefix+" "+message)
	}
}

// Success writes a success line to stdout with a checkmark.
func (w *Writer) Success(format string, args ...any) {
	w.writeStatus(w.Out, w.successColor, CheckMark, fmt.Sprintf(format, args...))
}

// Failure writes an error line to stderr with an X mark. Used for the CLI
// errors main.handleError surfaces before exiting.
func (w *Writer) Failure(format string, args ...any) {
	w.writeStatus(w.Err, w.errorColor, XMark, fmt.Sprintf(format, args...))
}

// Warning writes a warning line to stdout.
func (w *Writer) Warning(format string, args ...any) {
	w.writeStatus(w.Out, w.warningColor, WarningMark, fmt.Sprintf(format, args...))
}

// Info writes an informational line to stdout. Used for the hint that
// follows a failure (e.g. an install command, or "run --help").
func (w *Writer) Info(format string, args ...any) {
	w.writeStatus(w.Out, w.infoColor, InfoMark, fmt.Sprintf(format, args...))
}

// Muted writes dimmed text to stdout, for the indented detail line under a
// doctor result.
func (w *Writer) Muted(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if w.terminal.ColorEnabled() {
		w.mutedColor.Fprintln(w.Out, msg)
	} else {
		fmt.Fprintln(w.Out, msg)
	}
}

// Status symbols shared by the success/failure/warning/info lines above.
const (
	CheckMark   = "✓" // ✓
	XMark       = "✗" // ✗
	WarningMark = "⚠" // ⚠
	InfoMark    = "ℹ" // ℹ
)
