package ui

import (
	"fmt"
	"os"
	"strings"
)

// ANSI sequences used by the palette below. Anything fancier (spinners,
// live views) goes through lipgloss instead.
const (
	Reset     = "\033[0m"
	Bold      = "\033[1m"
	Underline = "\033[4m"

	Cyan         = "\033[36m"
	BrightRed    = "\033[91m"
	BrightGreen  = "\033[92m"
	BrightYellow = "\033[93m"
	BrightCyan   = "\033[96m"
	Gray         = "\033[90m"
)

// Palette maps the manager's output roles to ANSI sequences. An empty
// sequence means the terminal default.
type Palette struct {
	Success string
	Warning string
	Error   string
	Info    string

	Header      string
	SubHeader   string
	Label       string
	Value       string
	Command     string
	Flag        string
	Description string
	Separator   string
}

func defaultPalette() Palette {
	return Palette{
		Success: BrightGreen,
		Warning: BrightYellow,
		Error:   BrightRed,
		Info:    BrightCyan,

		Header:      Bold + BrightCyan,
		SubHeader:   Bold + Cyan,
		Label:       Bold,
		Value:       "",
		Command:     BrightGreen,
		Flag:        BrightYellow,
		Description: Gray,
		Separator:   Gray,
	}
}

// ColorConfig decides whether and how terminal output is styled.
type ColorConfig struct {
	Enabled      bool
	EmojiEnabled bool
	Palette      Palette
}

// NewColorConfig honors NO_COLOR and dumb terminals; --no-color and
// --no-emoji are layered on top by NewColorConfigFromGlobal.
func NewColorConfig() *ColorConfig {
	term := os.Getenv("TERM")
	enabled := os.Getenv("NO_COLOR") == "" && term != "dumb" && term != ""
	return &ColorConfig{
		Enabled:      enabled,
		EmojiEnabled: true,
		Palette:      defaultPalette(),
	}
}

// Apply wraps text in the given sequence when styling is enabled.
func (c *ColorConfig) Apply(color, text string) string {
	if !c.Enabled {
		return text
	}
	return color + text + Reset
}

func (c *ColorConfig) Success(text string) string { return c.Apply(c.Palette.Success, text) }
func (c *ColorConfig) Warning(text string) string { return c.Apply(c.Palette.Warning, text) }
func (c *ColorConfig) Error(text string) string   { return c.Apply(c.Palette.Error, text) }
func (c *ColorConfig) Info(text string) string    { return c.Apply(c.Palette.Info, text) }

func (c *ColorConfig) Header(text string) string    { return c.Apply(c.Palette.Header, text) }
func (c *ColorConfig) SubHeader(text string) string { return c.Apply(c.Palette.SubHeader, text) }
func (c *ColorConfig) Label(text string) string     { return c.Apply(c.Palette.Label, text) }
func (c *ColorConfig) Value(text string) string     { return c.Apply(c.Palette.Value, text) }
func (c *ColorConfig) Command(text string) string   { return c.Apply(c.Palette.Command, text) }
func (c *ColorConfig) Flag(text string) string      { return c.Apply(c.Palette.Flag, text) }

// Description styles secondary text such as help blurbs and hints.
func (c *ColorConfig) Description(text string) string {
	return c.Apply(c.Palette.Description, text)
}

// FormatCommand renders one help line: the command, then its blurb.
func (c *ColorConfig) FormatCommand(cmd, desc string) string {
	return fmt.Sprintf("  %s  %s", c.Command(cmd), c.Description(desc))
}

// Separator returns a horizontal rule of the given width.
func (c *ColorConfig) Separator(width int) string {
	return c.Apply(c.Palette.Separator, strings.Repeat("─", width))
}
