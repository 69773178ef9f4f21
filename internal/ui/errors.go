package ui

import (
	"fmt"
	"os"
	"strings"
)

// ErrorMessage is an operator-facing failure report: what went wrong,
// what might have caused it, and what to try next.
type ErrorMessage struct {
	Problem string
	Causes  []string
	Actions []string
	// Hints carry advisory context the manager cannot verify, such as a
	// guess at why the chain rejected a transaction.
	Hints []string
}

// Format renders the message with the given styling. Plain text when
// styling is disabled.
func (e ErrorMessage) Format(c *ColorConfig) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s\n", c.Error("✗"), c.Header(e.Problem))
	writeErrorList(&b, c, "Possible causes", "•", e.Causes, false)
	writeErrorList(&b, c, "Try", "→", e.Actions, false)
	writeErrorList(&b, c, "Note", "·", e.Hints, true)
	return b.String()
}

func writeErrorList(b *strings.Builder, c *ColorConfig, label, bullet string, items []string, dim bool) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(b, "  %s:\n", c.Label(label))
	for _, it := range items {
		if dim {
			it = c.Description(it)
		}
		fmt.Fprintf(b, "   %s %s\n", bullet, it)
	}
}

// PrintError writes the message to stderr, honoring --no-color.
func PrintError(e ErrorMessage) {
	fmt.Fprintln(os.Stderr, e.Format(NewColorConfigFromGlobal()))
}
