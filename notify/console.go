package notify

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/mattn/go-isatty"
)

const (
	colorReset  = "\033[0m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorRed    = "\033[31m"
)

// ConsoleNotifier writes alerts as single lines. Colour is only used when the
// output is a terminal.
type ConsoleNotifier struct {
	out   io.Writer
	color bool
	mu    sync.Mutex
}

// NewConsoleNotifier creates a notifier writing to out
func NewConsoleNotifier(out io.Writer) *ConsoleNotifier {
	return &ConsoleNotifier{
		out:   out,
		color: isTerminal(out),
	}
}

// SetColor overrides terminal detection
func (c *ConsoleNotifier) SetColor(enabled bool) {
	c.mu.Lock()
	c.color = enabled
	c.mu.Unlock()
}

// Notify implements Notifier
func (c *ConsoleNotifier) Notify(alert Alert) {
	line := alert.Title
	if alert.Message != "" {
		if line != "" {
			line += ": "
		}
		line += alert.Message
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.color {
		fmt.Fprintf(c.out, "%s%s %s%s\n", colorFor(alert.Severity), symbolFor(alert.Severity), line, colorReset)
		return
	}
	fmt.Fprintf(c.out, "[%s] %s\n", alert.Severity, line)
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func colorFor(s Severity) string {
	switch s {
	case SeveritySuccess:
		return colorGreen
	case SeverityWarning:
		return colorYellow
	default:
		return colorRed
	}
}

func symbolFor(s Severity) string {
	switch s {
	case SeveritySuccess:
		return "✓"
	case SeverityWarning:
		return "⚠"
	default:
		return "✗"
	}
}
