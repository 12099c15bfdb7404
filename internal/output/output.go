// Package output provides formatted output utilities for the CLI.
package output

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-runewidth"
	"golang.org/x/term"
)

// Writer handles CLI output formatting.
type Writer struct {
	out     io.Writer
	err     io.Writer
	color   bool
	quiet   bool
	verbose bool
}

// New creates a new Writer with default settings.
func New() *Writer {
	return &Writer{
		out:   os.Stdout,
		err:   os.Stderr,
		color: isTerminal(os.Stdout),
	}
}

// NewWithWriters creates a Writer with custom io.Writers (for testing).
func NewWithWriters(out, err io.Writer, color bool) *Writer {
	return &Writer{
		out:   out,
		err:   err,
		color: color,
	}
}

// SetQuiet enables or disables quiet mode.
func (w *Writer) SetQuiet(quiet bool) {
	w.quiet = quiet
}

// SetVerbose enables or disables verbose mode.
func (w *Writer) SetVerbose(verbose bool) {
	w.verbose = verbose
}

// Out returns the stdout writer, for machine-readable output.
func (w *Writer) Out() io.Writer {
	return w.out
}

// Print writes to stdout.
func (w *Writer) Print(format string, args ...interface{}) {
	fmt.Fprintf(w.out, format, args...)
}

// Println writes a line to stdout.
func (w *Writer) Println(format string, args ...interface{}) {
	fmt.Fprintf(w.out, format+"\n", args...)
}

// Error writes to stderr.
func (w *Writer) Error(format string, args ...interface{}) {
	fmt.Fprintf(w.err, format, args...)
}

// Errorln writes a line to stderr.
func (w *Writer) Errorln(format string, args ...interface{}) {
	fmt.Fprintf(w.err, format+"\n", args...)
}

// Info prints an info message (skipped in quiet mode).
func (w *Writer) Info(format string, args ...interface{}) {
	if w.quiet {
		return
	}
	w.Println(format, args...)
}

// Debug prints a message only in verbose mode.
func (w *Writer) Debug(format string, args ...interface{}) {
	if !w.verbose {
		return
	}
	w.paint(w.err, dim, format, args...)
}

// Success prints a success message.
func (w *Writer) Success(format string, args ...interface{}) {
	w.paint(w.out, green, format, args...)
}

// Warning prints a warning message.
func (w *Writer) Warning(format string, args ...interface{}) {
	w.paint(w.err, yellow, "warning: "+format, args...)
}

// WarningSimple prints a warning with only the prefix colored.
func (w *Writer) WarningSimple(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if w.color {
		w.Errorln("%swarning:%s %s", yellow, reset, msg)
	} else {
		w.Errorln("warning: %s", msg)
	}
}

// ErrorPrefix prints an error message with vdiff prefix to stderr.
func (w *Writer) ErrorPrefix(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if w.color {
		w.Errorln("%svdiff:%s %s", red, reset, msg)
	} else {
		w.Errorln("vdiff: %s", msg)
	}
}

// Hint prints a dimmed hint for the user.
func (w *Writer) Hint(format string, args ...interface{}) {
	w.paint(w.out, dim, format, args...)
}

// Section prints a section header.
func (w *Writer) Section(title string) {
	if w.quiet {
		return
	}
	w.Println("")
	if w.color {
		w.Println("%s=== %s ===%s", bold, title, reset)
	} else {
		w.Println("=== %s ===", title)
	}
}

// List prints a list of items.
func (w *Writer) List(items []string) {
	for _, item := range items {
		w.Println("  - %s", item)
	}
}

// Table prints a simple left-aligned table. Rows shorter than headers are padded.
// Column widths are measured in terminal cells, so wide and combining characters align.
func (w *Writer) Table(headers []string, rows [][]string) {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = runewidth.StringWidth(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) {
				widths[i] = max(widths[i], runewidth.StringWidth(cell))
			}
		}
	}

	line := func(cells []string) string {
		parts := make([]string, len(widths))
		for i := range widths {
			var cell string
			if i < len(cells) {
				cell = cells[i]
			}
			parts[i] = runewidth.FillRight(cell, widths[i])
		}
		return strings.TrimRight(strings.Join(parts, "  "), " ")
	}

	w.Println("%s", line(headers))
	seps := make([]string, len(widths))
	for i, width := range widths {
		seps[i] = strings.Repeat("-", width)
	}
	w.Println("%s", line(seps))
	for _, row := range rows {
		w.Println("%s", line(row))
	}
}

// BackendImage reports a rendered image.
func (w *Writer) BackendImage(backend string, width, height int, path string) {
	if w.quiet {
		return
	}
	msg := fmt.Sprintf("image %dx%d", width, height)
	if path != "" {
		msg += " -> " + path
	}
	w.backendLine(w.out, cyan, backend, msg)
}

// BackendDiff reports a comparison against the reference.
func (w *Writer) BackendDiff(backend string, percent float64, passed bool, path string) {
	if w.quiet {
		return
	}
	msg := fmt.Sprintf("diff %.2f%%", percent)
	if path != "" {
		msg += " -> " + path
	}
	c := red
	if passed {
		c = green
	}
	w.backendLine(w.out, c, backend, msg)
}

// BackendFailed reports a per-backend failure on stderr. err is expected to
// carry its own backend prefix.
func (w *Writer) BackendFailed(err error) {
	w.paint(w.err, red, "%v", err)
}

// BackendInfo prints a backend summary line.
func (w *Writer) BackendInfo(name, status, tool string) {
	if w.color {
		w.Println("%s%-10s%s %s  %s%s%s", cyan+bold, name, reset, status, dim, tool, reset)
	} else {
		w.Println("%-10s %s  %s", name, status, tool)
	}
}

// BackendDetail prints an indented backend detail.
func (w *Writer) BackendDetail(label, value string) {
	if w.color {
		w.Println("  %s%s:%s %s", dim, label, reset, value)
	} else {
		w.Println("  %s: %s", label, value)
	}
}

func (w *Writer) backendLine(dst io.Writer, c, backend, msg string) {
	if w.color {
		fmt.Fprintf(dst, "%s[%s]%s %s\n", c, backend, reset, msg)
	} else {
		fmt.Fprintf(dst, "[%s] %s\n", backend, msg)
	}
}

func (w *Writer) paint(dst io.Writer, c, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if w.color {
		fmt.Fprintf(dst, "%s%s%s\n", c, msg, reset)
	} else {
		fmt.Fprintln(dst, msg)
	}
}

// isTerminal reports whether f is a terminal and NO_COLOR is unset.
func isTerminal(f *os.File) bool {
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}

// ANSI color codes.
const (
	reset  = "\033[0m"
	bold   = "\033[1m"
	dim    = "\033[2m"
	red    = "\033[31m"
	green  = "\033[32m"
	yellow = "\033[33m"
	cyan   = "\033[36m"
)
