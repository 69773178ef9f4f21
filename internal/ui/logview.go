package ui

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/nxadm/tail"
	"golang.org/x/term"
)

// LogViewOptions configures the log viewer.
type LogViewOptions struct {
	LogPath    string // path to witness_node.log
	ShowFooter bool   // enable footer (default: true)
	NoColor    bool   // respect --no-color
	Backlog    int    // lines of history to show on start
}

// RunLogView follows the node log with a sticky controls footer on a
// TTY, falling back to a plain follow otherwise.
func RunLogView(ctx context.Context, opts LogViewOptions) error {
	if opts.Backlog <= 0 {
		opts.Backlog = 20
	}

	stdin := int(os.Stdin.Fd())
	stdout := int(os.Stdout.Fd())
	if !term.IsTerminal(stdin) || !term.IsTerminal(stdout) || !opts.ShowFooter {
		return followPlain(ctx, opts)
	}

	rows, cols, err := term.GetSize(stdout)
	if err != nil {
		return followPlain(ctx, opts)
	}

	oldState, err := term.MakeRaw(stdin)
	if err != nil {
		return followPlain(ctx, opts)
	}
	defer func() { _ = term.Restore(stdin, oldState) }()

	// Allow terminal state to stabilize after entering raw mode.
	time.Sleep(10 * time.Millisecond)

	footerRaw := "Controls: Ctrl+C to exit logs"
	if cols > 0 && len(footerRaw) > cols {
		footerRaw = footerRaw[:cols]
	}
	footerStyled := footerRaw
	if !opts.NoColor {
		footerStyled = "\x1b[1m" + footerRaw + "\x1b[0m"
	}

	renderFooter := func() {}
	if rows > 2 {
		renderFooter = func() {
			fmt.Fprint(os.Stdout, "\x1b7")
			fmt.Fprintf(os.Stdout, "\x1b[%d;1H\x1b[2K", rows-1)
			fmt.Fprintf(os.Stdout, "\x1b[%d;1H\x1b[2K%s", rows, footerStyled)
			fmt.Fprint(os.Stdout, "\x1b8")
		}
		renderFooter()
	}
	defer renderFooter()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	logDone := make(chan error, 1)
	go func() {
		logDone <- streamLines(ctx, opts, true, renderFooter)
	}()

	keyDone := make(chan byte, 1)
	go func() {
		buf := make([]byte, 1)
		for {
			n, err := os.Stdin.Read(buf)
			if err != nil || n == 0 {
				return
			}
			keyDone <- buf[0]
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-logDone:
			return err
		case key := <-keyDone:
			if key == 3 { // Ctrl+C
				return nil
			}
		}
	}
}

func followPlain(ctx context.Context, opts LogViewOptions) error {
	return streamLines(ctx, opts, false, nil)
}

// streamLines tails the log file, following rotations, printing each
// line with level-based colorization.
func streamLines(ctx context.Context, opts LogViewOptions, rawMode bool, onPrint func()) error {
	t, err := tail.TailFile(opts.LogPath, tail.Config{
		Follow:    true,
		ReOpen:    true,
		MustExist: false,
		Logger:    tail.DiscardingLogger,
	})
	if err != nil {
		return err
	}
	defer t.Cleanup()
	defer t.Stop()

	eol := "\n"
	if rawMode {
		eol = "\r\n"
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-t.Lines:
			if !ok {
				return nil
			}
			if line.Err != nil {
				return line.Err
			}
			text := line.Text
			if !opts.NoColor {
				text = colorizeLogLine(text)
			}
			fmt.Fprint(os.Stdout, text+eol)
			if onPrint != nil {
				onPrint()
			}
		}
	}
}

// colorizeLogLine applies ANSI color based on log level
func colorizeLogLine(line string) string {
	lower := strings.ToLower(line)
	switch {
	case strings.Contains(lower, "error") || strings.Contains(lower, "fatal") || strings.Contains(lower, "panic") || strings.Contains(lower, " err "):
		return "\033[31m" + line + "\033[0m" // Red
	case strings.Contains(lower, "warn") || strings.Contains(lower, "warning") || strings.Contains(lower, " wrn "):
		return "\033[33m" + line + "\033[0m" // Yellow
	case strings.Contains(lower, "info") || strings.Contains(lower, " inf "):
		return "\033[32m" + line + "\033[0m" // Green
	case strings.Contains(lower, "debug") || strings.Contains(lower, "trace") || strings.Contains(lower, " dbg "):
		return "\033[90m" + line + "\033[0m" // Gray
	}
	return line
}
