package main

import (
	"os"

	ui "github.com/rsquared-project/witness-manager/internal/ui"
)

// silentErr wraps an error whose message was already printed by the
// handler; Execute only maps it to an exit code.
type silentErr struct{ error }

func (s silentErr) Unwrap() error { return s.error }

// getenvDefault returns the environment value for k, or default d
// when k is not set.
func getenvDefault(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

// getPrinter returns a UI printer bound to the current --output flag.
func getPrinter() ui.Printer { return ui.NewPrinterFromGlobal(flagOutput) }

// confirm asks a y/N question, honoring --yes and --non-interactive.
func confirm(p Prompter, question string) bool {
	if flagYes {
		return true
	}
	if !p.IsInteractive() {
		return false
	}
	answer, err := p.ReadLine(question + " (y/N) ")
	if err != nil {
		return false
	}
	return answer == "y" || answer == "Y" || answer == "yes"
}

// orDash renders an optional value for status lines.
func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
