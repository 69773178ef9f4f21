package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rsquared-project/witness-manager/internal/config"
	"github.com/rsquared-project/witness-manager/internal/exitcodes"
	ui "github.com/rsquared-project/witness-manager/internal/ui"
)

// Version information - set via -ldflags during build
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildDate = "unknown"
)

// rootCmd wires the CLI surface using Cobra. Persistent flags are
// applied in loadHome()/loadProfile(). Subcommands implement the actual
// operations (setup, rotate, serve, node, sync, etc.).
var rootCmd = &cobra.Command{
	Use:           "witness-manager",
	Short:         "R-Squared Witness Manager",
	Long:          "Manage an R-Squared witness node: key rotation, node lifecycle, sync monitoring and maintenance.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// Initialize global UI config from flags after parsing but before command execution
		ui.InitGlobal(ui.Config{
			NoColor:        flagNoColor,
			NoEmoji:        flagNoEmoji,
			Yes:            flagYes,
			NonInteractive: flagNonInteractive,
			Verbose:        flagVerbose,
			Quiet:          flagQuiet,
			Debug:          flagDebug,
		})

		// Set NO_COLOR env so lipgloss and other libraries respect the flag
		if flagNoColor {
			os.Setenv("NO_COLOR", "1")
		}
	},
}

var (
	flagHome           string
	flagOutput         string
	flagVerbose        bool
	flagQuiet          bool
	flagDebug          bool
	flagNoColor        bool
	flagNoEmoji        bool
	flagYes            bool
	flagNonInteractive bool
)

func init() {
	// Persistent flags to override defaults
	rootCmd.PersistentFlags().StringVar(&flagHome, "home", "", "Manager home directory (overrides env)")
	rootCmd.PersistentFlags().StringVarP(&flagOutput, "output", "o", "text", "Output format: json|yaml|text")
	rootCmd.PersistentFlags().BoolVar(&flagVerbose, "verbose", false, "Verbose output")
	rootCmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "Quiet mode: minimal output (suppresses extras)")
	rootCmd.PersistentFlags().BoolVarP(&flagDebug, "debug", "d", false, "Debug output: extra diagnostic logs")
	rootCmd.PersistentFlags().BoolVar(&flagNoColor, "no-color", false, "Disable ANSI colors")
	rootCmd.PersistentFlags().BoolVar(&flagNoEmoji, "no-emoji", false, "Disable emoji output")
	rootCmd.PersistentFlags().BoolVarP(&flagYes, "yes", "y", false, "Assume yes for all prompts")
	rootCmd.PersistentFlags().BoolVar(&flagNonInteractive, "non-interactive", false, "Fail instead of prompting")

	// Replace root help to present grouped, example-rich output.
	// Only apply custom help to the root command; subcommands use cobra's default help.
	rootCmd.SetHelpFunc(func(cmd *cobra.Command, args []string) {
		if cmd != rootCmd {
			// For subcommands, print cobra's default usage (includes flags and descriptions)
			fmt.Fprintln(os.Stdout, cmd.UsageString())
			return
		}
		// Help runs before PersistentPreRun, so manually configure colors
		c := ui.NewColorConfig()
		c.Enabled = c.Enabled && !flagNoColor
		c.EmojiEnabled = c.EmojiEnabled && !flagNoEmoji
		w := os.Stdout

		// Header
		fmt.Fprintln(w, c.Header(" R-Squared Witness Manager "))
		fmt.Fprintln(w, c.Description("Manage an R-Squared witness node: key rotation, node lifecycle, sync monitoring and maintenance."))
		fmt.Fprintln(w, c.Separator(50))
		fmt.Fprintln(w)

		// Usage
		fmt.Fprintln(w, c.SubHeader("USAGE"))
		fmt.Fprintf(w, "  %s <command> [flags]\n", "witness-manager")
		fmt.Fprintln(w)

		// Quick Start
		fmt.Fprintln(w, c.SubHeader("Quick Start"))
		fmt.Fprintln(w, c.FormatCommand("setup", "Create the execution profile"))
		fmt.Fprintln(w, c.FormatCommand("keys store", "Store the rotation configuration (encrypted)"))
		fmt.Fprintln(w, c.FormatCommand("rotate", "Rotate the witness signing key"))
		fmt.Fprintln(w)

		// Node
		fmt.Fprintln(w, c.SubHeader("Node"))
		fmt.Fprintln(w, c.FormatCommand("node start", "Start the witness node"))
		fmt.Fprintln(w, c.FormatCommand("node stop", "Stop the witness node"))
		fmt.Fprintln(w, c.FormatCommand("node status", "Show node process status"))
		fmt.Fprintln(w, c.FormatCommand("sync", "Wait for the node to sync with the chain"))
		fmt.Fprintln(w, c.FormatCommand("logs", "Tail node logs"))
		fmt.Fprintln(w)

		// Rotation
		fmt.Fprintln(w, c.SubHeader("Rotation"))
		fmt.Fprintln(w, c.FormatCommand("rotate", "Run the key rotation workflow"))
		fmt.Fprintln(w, c.FormatCommand("serve", "Web UI for starting and watching rotations"))
		fmt.Fprintln(w, c.FormatCommand("keys", "Inspect or update the stored rotation config"))
		fmt.Fprintln(w, c.FormatCommand("systemd generate", "Generate units for scheduled rotation"))
		fmt.Fprintln(w)

		// Maintenance
		fmt.Fprintln(w, c.SubHeader("Maintenance"))
		fmt.Fprintln(w, c.FormatCommand("backup", "Archive profile, launch config and key material"))
		fmt.Fprintln(w, c.FormatCommand("doctor", "Run preflight diagnostic checks"))
		fmt.Fprintln(w, c.FormatCommand("config show", "Show the execution profile"))
		fmt.Fprintln(w, c.FormatCommand("launch-config show", "Show the node launch configuration"))
		fmt.Fprintln(w)
	})
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		var se silentErr
		if !errors.As(err, &se) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(exitcodes.CodeForError(err))
	}
}

// loadHome resolves the manager home directory from the --home flag or
// the HOME_DIR environment fallback.
func loadHome() string {
	if flagHome != "" {
		return flagHome
	}
	return config.DefaultHome()
}

// loadProfile reads the execution profile for the resolved home. A
// missing profile is a precondition failure pointing at setup.
func loadProfile() (config.Profile, error) {
	home := loadHome()
	prof, err := config.Load(home)
	if errors.Is(err, os.ErrNotExist) {
		return config.Profile{}, exitcodes.PreconditionError(
			"no execution profile found; run: witness-manager setup")
	}
	if err != nil {
		return config.Profile{}, exitcodes.WrapError(exitcodes.ValidationError, "load execution profile", err)
	}
	return prof, nil
}
