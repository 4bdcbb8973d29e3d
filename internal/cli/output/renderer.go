// Package output renders command results for terminals, pipelines, and
// JSON consumers.
//
// Every command creates a Renderer over its stdout/stderr and asks for
// the effective mode: "auto" resolves to styled text on a terminal and
// to markdown when output is piped, so scripts and agents get a stable
// structured format without flags. "json" bypasses rendering entirely
// and emits the typed output structs defined in this package.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
)

// Mode selects how command results are rendered.
type Mode string

// Rendering modes. ModeAuto picks text or markdown based on whether
// stdout is a terminal.
const (
	ModeAuto     Mode = "auto"
	ModeText     Mode = "text"
	ModeMarkdown Mode = "markdown"
	ModeJSON     Mode = "json"
)

// Renderer writes command output in the selected mode.
type Renderer struct {
	stdout io.Writer
	stderr io.Writer
	mode   Mode
	isTTY  bool
	styles Styles
}

// NewRenderer creates a renderer for the given writers and mode.
// An empty mode behaves like ModeAuto.
func NewRenderer(stdout, stderr io.Writer, mode Mode) *Renderer {
	if mode == "" {
		mode = ModeAuto
	}
	return &Renderer{
		stdout: stdout,
		stderr: stderr,
		mode:   mode,
		isTTY:  isTerminal(stdout),
		styles: NewStyles(lipgloss.NewRenderer(stdout)),
	}
}

// isTerminal reports whether the writer is an interactive terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// Mode returns the requested mode, ModeAuto included.
func (r *Renderer) Mode() Mode {
	return r.mode
}

// EffectiveMode resolves ModeAuto: text on a terminal, markdown when
// piped. Explicit modes pass through unchanged.
func (r *Renderer) EffectiveMode() Mode {
	if r.mode != ModeAuto {
		return r.mode
	}
	if r.isTTY {
		return ModeText
	}
	return ModeMarkdown
}

// IsTTY reports whether stdout is an interactive terminal.
func (r *Renderer) IsTTY() bool {
	return r.isTTY
}

// Writer returns the stdout writer, for encoders and table writers
// that render directly.
func (r *Renderer) Writer() io.Writer {
	return r.stdout
}

// ErrWriter returns the stderr writer.
func (r *Renderer) ErrWriter() io.Writer {
	return r.stderr
}

// Styles returns the style set bound to stdout's color profile.
// Styles render as plain text when stdout is not a terminal.
func (r *Renderer) Styles() Styles {
	return r.styles
}

// Println writes a line to stdout.
func (r *Renderer) Println(a ...interface{}) {
	fmt.Fprintln(r.stdout, a...)
}

// Printf writes formatted output to stdout.
func (r *Renderer) Printf(format string, a ...interface{}) {
	fmt.Fprintf(r.stdout, format, a...)
}

// JSON writes v to stdout as indented JSON.
func (r *Renderer) JSON(v interface{}) error {
	enc := json.NewEncoder(r.stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// Success writes a checkmarked message to stdout.
func (r *Renderer) Success(msg string) {
	fmt.Fprintln(r.stdout, r.styles.Success.Render("✓")+" "+msg)
}

// Warning writes a flagged message to stderr.
func (r *Renderer) Warning(msg string) {
	fmt.Fprintln(r.stderr, r.styles.Warning.Render("!")+" "+msg)
}

// Error writes a failure message to stderr.
func (r *Renderer) Error(msg string) {
	fmt.Fprintln(r.stderr, r.styles.Error.Render("✗")+" "+msg)
}

// Muted writes a dimmed message to stdout.
func (r *Renderer) Muted(msg string) {
	fmt.Fprintln(r.stdout, r.styles.Muted.Render(msg))
}

// Header writes a section heading. Text mode styles it; markdown mode
// emits the equivalent ATX heading so piped output stays parseable.
func (r *Renderer) Header(level int, text string) {
	if r.EffectiveMode() == ModeMarkdown {
		r.Println(FormatHeader(level, text))
		r.Println("")
		return
	}
	switch level {
	case 1:
		r.Println(r.styles.Header1.Render(text))
	default:
		r.Println(r.styles.Header2.Render(text))
	}
}

// StatusLine writes one name with a status icon. Recognized statuses
// are "success", "error", "warning", and "skipped"; anything else gets
// a neutral bullet. The detail, when present, trails in parentheses.
func (r *Renderer) StatusLine(name, status, detail string) {
	if r.EffectiveMode() == ModeMarkdown {
		line := fmt.Sprintf("- %s: %s", name, status)
		if detail != "" {
			line += fmt.Sprintf(" (%s)", detail)
		}
		r.Println(line)
		return
	}

	var icon string
	switch status {
	case "success":
		icon = r.styles.Success.Render("✓")
	case "error":
		icon = r.styles.Error.Render("✗")
	case "warning":
		icon = r.styles.Warning.Render("!")
	case "skipped":
		icon = r.styles.Muted.Render("-")
	default:
		icon = r.styles.Muted.Render("•")
	}

	line := icon + " " + name
	if detail != "" {
		line += " " + r.styles.Muted.Render("("+detail+")")
	}
	r.Println(line)
}
