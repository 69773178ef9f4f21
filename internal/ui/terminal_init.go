package ui

import (
	"fmt"
	"os"
	"syscall"
	"time"

	"golang.org/x/term"
)

var terminalInitialized bool

// InitTerminal must run before any lipgloss or bubbletea code touches
// the terminal. termenv probes the background color with an OSC 11
// query whose async reply otherwise lands in our stdout; presetting
// COLORFGBG skips the probe entirely.
func InitTerminal() {
	if terminalInitialized {
		return
	}
	terminalInitialized = true

	if os.Getenv("COLORFGBG") == "" {
		os.Setenv("COLORFGBG", "0;15")
	}
	if term.IsTerminal(int(os.Stdout.Fd())) {
		// Turn off focus reporting and swallow any replies in flight.
		fmt.Fprint(os.Stdout, "\033[?1004l")
		time.Sleep(20 * time.Millisecond)
		FlushStdinWithTimeout(150 * time.Millisecond)
	}
}

// ResetTerminalAfterTUI restores sane terminal state after a bubbletea
// program exits: disable the reporting modes a TUI may have enabled,
// re-show the cursor, and drain late async replies (cursor position
// reports, OSC responses, focus events) before normal printing resumes.
func ResetTerminalAfterTUI() {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return
	}
	for _, seq := range []string{
		"\033[?1004l", // focus reporting
		"\033[?1003l", // any-event mouse tracking
		"\033[?1000l", // X10 mouse tracking
		"\033[?1006l", // SGR mouse mode
		"\033[?25h",   // cursor visible
		"\r",
	} {
		fmt.Fprint(os.Stdout, seq)
	}
	time.Sleep(30 * time.Millisecond)
	FlushStdinWithTimeout(150 * time.Millisecond)
}

// FlushStdinWithTimeout discards pending stdin bytes for the given
// duration. It only ever reads from a real terminal; reading from a pipe
// here would eat input meant for the command (e.g. rotate --wif-stdin).
func FlushStdinWithTimeout(timeout time.Duration) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return
	}
	if err := syscall.SetNonblock(fd, true); err != nil {
		return
	}
	defer syscall.SetNonblock(fd, false)

	buf := make([]byte, 256)
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if n, _ := os.Stdin.Read(buf); n <= 0 {
			time.Sleep(5 * time.Millisecond)
		}
	}
}
