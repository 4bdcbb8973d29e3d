package output

import (
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

const spinnerInterval = 80 * time.Millisecond

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// Spinner shows progress for long-running work like archive downloads.
// It draws on stderr so stdout stays clean for piped consumers, and
// degrades to a single static line when stderr is not a terminal.
type Spinner struct {
	out     *termenv.Output
	styles  Styles
	msg     string
	enabled bool

	stop chan struct{}
	done chan struct{}
}

// NewSpinner creates a spinner with the given message. Callers decide
// when to Start it, typically only after checking IsTTY.
func (r *Renderer) NewSpinner(msg string) *Spinner {
	return &Spinner{
		out:     termenv.NewOutput(r.stderr),
		styles:  NewStyles(lipgloss.NewRenderer(r.stderr)),
		msg:     msg,
		enabled: r.isTTY,
	}
}

// Start begins the animation. On non-terminals it prints the message
// once and returns.
func (s *Spinner) Start() {
	if !s.enabled || s.stop != nil {
		if s.stop == nil {
			_, _ = s.out.WriteString(s.msg + "\n")
		}
		return
	}
	s.stop = make(chan struct{})
	s.done = make(chan struct{})
	s.out.HideCursor()
	go s.spin()
}

func (s *Spinner) spin() {
	defer close(s.done)
	ticker := time.NewTicker(spinnerInterval)
	defer ticker.Stop()

	frame := 0
	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			_, _ = s.out.WriteString("\r")
			s.out.ClearLine()
			_, _ = s.out.WriteString(spinnerFrames[frame%len(spinnerFrames)] + " " + s.msg)
			frame++
		}
	}
}

// halt stops the animation and clears the spinner line.
func (s *Spinner) halt() {
	if s.stop == nil {
		return
	}
	close(s.stop)
	<-s.done
	_, _ = s.out.WriteString("\r")
	s.out.ClearLine()
	s.out.ShowCursor()
	s.stop = nil
	s.done = nil
}

// Stop ends the spinner without a final message.
func (s *Spinner) Stop() {
	s.halt()
}

// Success ends the spinner with a checkmarked message.
func (s *Spinner) Success(msg string) {
	s.halt()
	_, _ = s.out.WriteString(s.styles.Success.Render("✓") + " " + msg + "\n")
}

// Fail ends the spinner with a failure message.
func (s *Spinner) Fail(msg string) {
	s.halt()
	_, _ = s.out.WriteString(s.styles.Error.Render("✗") + " " + msg + "\n")
}
