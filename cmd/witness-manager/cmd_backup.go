package main

import (
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/rsquared-project/witness-manager/internal/backup"
	"github.com/rsquared-project/witness-manager/internal/exitcodes"
)

var (
	backupDest    string
	restoreTarget string
)

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Archive profile, launch config and key material",
	Long: "Create an lz4-compressed tar archive of the execution profile, launch " +
		"configuration, encrypted rotation config and web credentials, with a " +
		"checksum manifest alongside. The encrypted store stays encrypted.",
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := newDeps()
		if err != nil {
			return err
		}
		dest := backupDest
		if dest == "" {
			dest = filepath.Join(d.Home, "backups")
		}
		archive, err := backup.Create(dest, backupPaths(d))
		if err != nil {
			return exitcodes.WrapError(exitcodes.GeneralError, "create backup", err)
		}
		p := d.Printer
		if p.Structured(map[string]any{"ok": true, "archive": archive}) {
			return nil
		}
		p.Success("Backup written to " + archive)
		return nil
	},
}

// backupPaths lists everything worth archiving for one home. Missing
// entries are skipped by the archiver.
func backupPaths(d *Deps) []string {
	return []string{
		filepath.Join(d.Home, "execution_profile.json"),
		d.Prof.LaunchConfigPath(),
		d.Store.Path(),
		filepath.Join(d.Home, "web_credentials.json"),
	}
}

var backupVerifyCmd = &cobra.Command{
	Use:   "verify <archive>",
	Short: "Verify a backup archive against its manifest",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p := getPrinter()
		if err := backup.Verify(args[0]); err != nil {
			return exitcodes.WrapError(exitcodes.ValidationError, "verify backup", err)
		}
		if p.Structured(map[string]any{"ok": true, "archive": args[0]}) {
			return nil
		}
		p.Success("Archive checksum matches.")
		return nil
	},
}

var backupRestoreCmd = &cobra.Command{
	Use:   "restore <archive>",
	Short: "Restore a backup archive into the manager home",
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) != 1 {
			return exitcodes.InvalidArgsError("restore needs exactly one archive path")
		}
		d := newBareDeps()
		target := restoreTarget
		if target == "" {
			target = d.Home
		}
		if !confirm(d.Prompter, "Restore "+args[0]+" into "+target+"? Existing files are overwritten.") {
			return exitcodes.PreconditionError("restore cancelled")
		}
		if err := backup.Restore(args[0], target); err != nil {
			return exitcodes.WrapError(exitcodes.ValidationError, "restore backup", err)
		}
		p := d.Printer
		if p.Structured(map[string]any{"ok": true, "restored_to": target}) {
			return nil
		}
		p.Success("Backup restored into " + target)
		return nil
	},
}

func init() {
	backupCmd.Flags().StringVar(&backupDest, "dest", "", "Destination directory (default <home>/backups)")
	backupRestoreCmd.Flags().StringVar(&restoreTarget, "to", "", "Restore target directory (default the manager home)")
	backupCmd.AddCommand(backupVerifyCmd)
	backupCmd.AddCommand(backupRestoreCmd)
	rootCmd.AddCommand(backupCmd)
}
