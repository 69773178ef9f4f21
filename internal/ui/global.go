package ui

// Config carries the output-shaping persistent flags. Set once from the
// root command before any command runs.
type Config struct {
	NoColor        bool
	NoEmoji        bool
	Yes            bool
	NonInteractive bool
	Verbose        bool
	Quiet          bool
	Debug          bool
}

var globalConfig Config

// InitGlobal records the flag values for the rest of the process.
func InitGlobal(cfg Config) { globalConfig = cfg }

// GetGlobal returns the recorded flag values.
func GetGlobal() Config { return globalConfig }

// NewColorConfigFromGlobal layers --no-color and --no-emoji on top of
// the environment-driven defaults.
func NewColorConfigFromGlobal() *ColorConfig {
	cfg := GetGlobal()
	c := NewColorConfig()
	c.Enabled = c.Enabled && !cfg.NoColor
	c.EmojiEnabled = c.EmojiEnabled && !cfg.NoEmoji
	return c
}

// NewPrinterFromGlobal builds a printer for --output with the global
// styling settings applied.
func NewPrinterFromGlobal(format string) Printer {
	return Printer{format: format, Colors: NewColorConfigFromGlobal()}
}
