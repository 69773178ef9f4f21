package main

import (
	"fmt"
	"os"
	"os/user"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/rsquared-project/witness-manager/internal/exitcodes"
	"github.com/rsquared-project/witness-manager/internal/systemd"
)

var (
	systemdOnCalendar string
	systemdUser       string
	systemdOutDir     string
	systemdBinPath    string
)

var systemdCmd = &cobra.Command{
	Use:   "systemd",
	Short: "Scheduled unattended rotation",
}

var systemdGenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate service and timer units for scheduled rotation",
	Long: "Render witness-rotate.service and witness-rotate.timer, and write the " +
		"service password file so unattended runs can unlock the stored " +
		"configuration. The units are written locally; installing them needs root.",
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := newDeps()
		if err != nil {
			return err
		}
		if !d.Store.Exists() {
			return exitcodes.PreconditionError("store the rotation configuration first: witness-manager keys store")
		}

		params, err := resolveSystemdParams(d)
		if err != nil {
			return err
		}
		outDir := systemdOutDir
		if outDir == "" {
			outDir = filepath.Join(d.Home, "systemd")
		}

		// The timer runs rotate --non-interactive, which reads the store
		// password from the sidecar file.
		if !d.Prompter.IsInteractive() {
			if _, err := systemd.ReadPasswordFile(d.Home); err != nil {
				return exitcodes.PreconditionError("no service password file; run systemd generate interactively once")
			}
		} else {
			password, err := d.Prompter.ReadSecret("Configuration password (stored for unattended runs): ")
			if err != nil {
				return err
			}
			if _, err := d.Store.Load(password); err != nil {
				return exitcodes.WrapError(exitcodes.ValidationError, "password does not unlock the stored configuration", err)
			}
			if _, err := systemd.WritePasswordFile(d.Home, password); err != nil {
				return err
			}
		}

		service, timer, err := systemd.Generate(outDir, params)
		if err != nil {
			return err
		}

		p := d.Printer
		if p.Structured(map[string]any{"ok": true, "service": service, "timer": timer}) {
			return nil
		}
		p.Success("Units written:")
		p.Textf("  %s\n  %s\n\n", service, timer)
		p.Info("Install them with:")
		for _, line := range systemd.InstallInstructions(service, timer) {
			fmt.Fprintf(d.Out, "  %s\n", line)
		}
		return nil
	},
}

func resolveSystemdParams(d *Deps) (systemd.Params, error) {
	username := systemdUser
	if username == "" {
		u, err := user.Current()
		if err != nil {
			return systemd.Params{}, err
		}
		username = u.Username
	}
	bin := systemdBinPath
	if bin == "" {
		exe, err := os.Executable()
		if err != nil {
			return systemd.Params{}, err
		}
		bin = exe
	}
	return systemd.Params{
		User:       username,
		BinPath:    bin,
		HomeDir:    d.Home,
		WorkDir:    d.Home,
		OnCalendar: systemdOnCalendar,
	}, nil
}

func init() {
	systemdGenerateCmd.Flags().StringVar(&systemdOnCalendar, "on-calendar", "monthly", "systemd OnCalendar schedule expression")
	systemdGenerateCmd.Flags().StringVar(&systemdUser, "user", "", "Unix user the service runs as (default current user)")
	systemdGenerateCmd.Flags().StringVar(&systemdOutDir, "out", "", "Output directory for the units (default <home>/systemd)")
	systemdGenerateCmd.Flags().StringVar(&systemdBinPath, "bin", "", "witness-manager binary path (default this executable)")
	systemdCmd.AddCommand(systemdGenerateCmd)
	rootCmd.AddCommand(systemdCmd)
}
