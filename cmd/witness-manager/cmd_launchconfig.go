package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/rsquared-project/witness-manager/internal/config"
	"github.com/rsquared-project/witness-manager/internal/exitcodes"
)

var launchConfigCmd = &cobra.Command{
	Use:   "launch-config",
	Short: "Manage the node launch configuration",
}

var launchConfigShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the launch configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := newDeps()
		if err != nil {
			return err
		}
		p := d.Printer
		if flagOutput == "json" {
			p.JSON(d.Launch)
			return nil
		}
		// YAML is the file's native format; show it for text output too.
		p.YAML(d.Launch)
		return nil
	},
}

var launchConfigInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default launch configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := newDeps()
		if err != nil {
			return err
		}
		if _, err := os.Stat(d.Prof.LaunchConfigPath()); err == nil {
			if !confirm(d.Prompter, "Overwrite "+d.Prof.LaunchConfigPath()+"?") {
				return exitcodes.PreconditionError("init cancelled")
			}
		}
		if err := config.SaveLaunchConfig(d.Prof, config.DefaultLaunchConfig(d.Prof)); err != nil {
			return err
		}
		d.Printer.Success("Launch configuration written to " + d.Prof.LaunchConfigPath())
		return nil
	},
}

func init() {
	launchConfigCmd.AddCommand(launchConfigShowCmd)
	launchConfigCmd.AddCommand(launchConfigInitCmd)
	rootCmd.AddCommand(launchConfigCmd)
}
