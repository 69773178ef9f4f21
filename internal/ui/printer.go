package ui

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Printer centralizes output formatting for commands.
// - Respects --output (text|json)
// - Uses ColorConfig for styling when printing text
// - Provides helpers for common message types
type Printer struct{
    format string
    Colors *ColorConfig
}

func NewPrinter(format string) Printer {
    return Printer{format: format, Colors: NewColorConfig()}
}

// Textf prints formatted text to stdout (always text path).
func (p Printer) Textf(format string, a ...any) { fmt.Printf(format, a...) }

// JSON pretty-prints a JSON value to stdout.
func (p Printer) JSON(v any) {
    enc := json.NewEncoder(os.Stdout)
    enc.SetIndent("", "  ")
    _ = enc.Encode(v)
}

// YAML prints a value as YAML to stdout.
func (p Printer) YAML(v any) {
    enc := yaml.NewEncoder(os.Stdout)
    enc.SetIndent(2)
    _ = enc.Encode(v)
    _ = enc.Close()
}

// Structured emits v in the printer's configured format and reports
// whether it did; text-format callers render their own output.
func (p Printer) Structured(v any) bool {
    switch p.format {
    case "json":
        p.JSON(v)
        return true
    case "yaml":
        p.YAML(v)
        return true
    }
    return false
}

// Success prints a success line with themed prefix.
func (p Printer) Success(msg string) {
	c := p.Colors
	// Don't add extra space if message already starts with whitespace
	space := " "
	if len(msg) > 0 && (msg[0] == ' ' || msg[0] == '\t') {
		space = ""
	}
	if c.EmojiEnabled {
		fmt.Printf("%s%s%s\n", c.Success("✓"), space, msg)
	} else {
		fmt.Printf("%s%s%s\n", c.Success("[OK]"), space, msg)
	}
}

// Info prints an informational line.
func (p Printer) Info(msg string) {
    c := p.Colors
    if c.EmojiEnabled {
        fmt.Println(c.Info("ℹ"), msg)
    } else {
        fmt.Println(c.Info("[INFO]"), msg)
    }
}

// Warn prints a warning line.
func (p Printer) Warn(msg string) {
    c := p.Colors
    if c.EmojiEnabled {
        fmt.Println(c.Warning("!"), msg)
    } else {
        fmt.Println(c.Warning("[WARN]"), msg)
    }
}

// Error prints an error line.
func (p Printer) Error(msg string) {
    c := p.Colors
    if c.EmojiEnabled {
        fmt.Println(c.Error("✗"), msg)
    } else {
        fmt.Println(c.Error("[ERR]"), msg)
    }
}

// Header prints a section header.
func (p Printer) Header(title string) {
    fmt.Println(p.Colors.Header(" " + title + " "))
}

// Separator prints a themed separator line of n characters.
func (p Printer) Separator(n int) { fmt.Println(p.Colors.Separator(n)) }

// Section prints a section header with separator
func (p Printer) Section(title string) {
    fmt.Println()
    fmt.Println(p.Colors.SubHeader(title))
    fmt.Println(p.Colors.Separator(40))
}

// KeypairBox prints a freshly generated signing keypair with a warning
// banner. This is the only place the private WIF is ever printed, and
// only after an explicit operator request.
func (p Printer) KeypairBox(publicKey, privateWIF string) {
    fmt.Println()

    title := "New Witness Signing Keys"
    fmt.Println(p.Colors.Apply(Bold+Underline+p.Colors.Palette.Warning, title))
    fmt.Println(p.Colors.Separator(len(title)))
    fmt.Println()

    fmt.Printf("%s %s\n", p.Colors.Label("Public key: "), p.Colors.Success(publicKey))
    fmt.Printf("%s %s\n", p.Colors.Label("Private WIF:"), p.Colors.Warning(privateWIF))
    fmt.Println()
    fmt.Println(p.Colors.Description(strings.TrimSpace(
        "Store the private key somewhere safe. The old key no longer signs blocks.")))
    fmt.Println()
}

// KeyValueLine prints a key-value pair with proper formatting
func (p Printer) KeyValueLine(key, value, colorType string) {
    var coloredValue string
    switch colorType {
    case "blue":
        coloredValue = p.Colors.Info(value)
    case "yellow":
        coloredValue = p.Colors.Warning(value)
    case "green":
        coloredValue = p.Colors.Success(value)
    case "dim":
        coloredValue = p.Colors.Description(value)
    default:
        coloredValue = p.Colors.Value(value)
    }
    fmt.Printf("%s %s\n", p.Colors.Label(key+":"), coloredValue)
}

