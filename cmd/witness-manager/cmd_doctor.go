package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rsquared-project/witness-manager/internal/doctor"
	"github.com/rsquared-project/witness-manager/internal/exitcodes"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Run preflight diagnostic checks",
	Long:  "Check disk, memory, the execution profile and the node backend so a rotation is unlikely to fail halfway.",
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := newDeps()
		if err != nil {
			return err
		}
		checks := doctor.New(d.Run, d.Prof, d.Launch).Run(cmd.Context())
		healthy := doctor.Healthy(checks)

		p := d.Printer
		if p.Structured(map[string]any{"ok": healthy, "checks": checks}) {
			if !healthy {
				return silentErr{exitcodes.ValidationErr("environment checks failed")}
			}
			return nil
		}

		p.Section("Environment Checks")
		for _, c := range checks {
			line := fmt.Sprintf("%s: %s", c.Name, c.Detail)
			switch c.Verdict {
			case doctor.OK:
				p.Success(line)
			case doctor.Warn:
				p.Warn(line)
			default:
				p.Error(line)
			}
		}
		fmt.Fprintln(d.Out)
		if !healthy {
			p.Error("Fix the failed checks before rotating.")
			return silentErr{exitcodes.ValidationErr("environment checks failed")}
		}
		p.Success("Environment looks good.")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}
