package main

import (
	"errors"
	"os"

	"github.com/spf13/cobra"

	"github.com/rsquared-project/witness-manager/internal/config"
	"github.com/rsquared-project/witness-manager/internal/exitcodes"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect the execution profile",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the execution profile",
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := newDeps()
		if err != nil {
			return err
		}
		p := d.Printer
		if p.Structured(d.Prof) {
			return nil
		}
		p.Section("Execution Profile")
		p.KeyValueLine("Home", d.Home, "")
		p.KeyValueLine("Backend", string(d.Prof.Backend), "blue")
		p.KeyValueLine("RPC endpoint", d.Prof.RPCEndpoint, "")
		local := "no"
		if d.Prof.LocalNode {
			local = "yes"
		}
		p.KeyValueLine("Local node", local, "")
		if d.Prof.CLIWalletPath != "" {
			p.KeyValueLine("cli_wallet", d.Prof.CLIWalletPath, "dim")
		}
		if d.Prof.WitnessNodePath != "" {
			p.KeyValueLine("witness_node", d.Prof.WitnessNodePath, "dim")
		}
		return nil
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default execution profile",
	Long:  "Write a docker-backend execution profile with defaults. Use setup for the guided flow.",
	RunE: func(cmd *cobra.Command, args []string) error {
		d := newBareDeps()
		if _, err := config.Load(d.Home); err == nil {
			if !confirm(d.Prompter, "An execution profile already exists. Overwrite it?") {
				return exitcodes.PreconditionError("profile exists; not overwritten")
			}
		} else if !errors.Is(err, os.ErrNotExist) {
			return exitcodes.WrapError(exitcodes.ValidationError, "read existing profile", err)
		}

		prof := config.Defaults()
		prof.HomeDir = d.Home
		if err := config.Save(prof); err != nil {
			return err
		}
		if err := config.SaveLaunchConfig(prof, config.DefaultLaunchConfig(prof)); err != nil {
			return err
		}
		d.Printer.Success("Default execution profile written to " + prof.HomeDir)
		return nil
	},
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the manager home directory",
	Run: func(cmd *cobra.Command, args []string) {
		d := newBareDeps()
		d.Printer.Textf("%s\n", d.Home)
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configPathCmd)
	rootCmd.AddCommand(configCmd)
}
