package main

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/rsquared-project/witness-manager/internal/exitcodes"
	"github.com/rsquared-project/witness-manager/internal/secrets"
)

var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Inspect or update the stored rotation configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		return handleKeysShow()
	},
}

var keysShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the stored account and public key",
	RunE: func(cmd *cobra.Command, args []string) error {
		return handleKeysShow()
	},
}

// handleKeysShow prints the non-secret parts of the stored config. The
// WIF stays encrypted; use reveal for that.
func handleKeysShow() error {
	d, err := newDeps()
	if err != nil {
		return err
	}
	if !d.Store.Exists() {
		return exitcodes.PreconditionError("no stored rotation configuration; run: witness-manager keys store")
	}
	password, err := storePassword(d)
	if err != nil {
		return err
	}
	stored, err := loadStored(d, password)
	if err != nil {
		return err
	}
	p := d.Printer
	if p.Structured(map[string]any{
		"account":    stored.AccountName,
		"url":        stored.URL,
		"public_key": stored.PublicKey,
	}) {
		return nil
	}
	p.Section("Stored Rotation Configuration")
	p.KeyValueLine("Account", stored.AccountName, "blue")
	p.KeyValueLine("URL", orDash(stored.URL), "")
	p.KeyValueLine("Public key", orDash(stored.PublicKey), "green")
	p.Info("The private key stays encrypted; use: witness-manager keys reveal")
	return nil
}

var keysStoreCmd = &cobra.Command{
	Use:   "store",
	Short: "Store the rotation configuration (encrypted)",
	Long: "Collect the witness account, URL and active WIF key and encrypt them at " +
		"rest. The password entered here unlocks future rotations.",
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := newDeps()
		if err != nil {
			return err
		}
		if !d.Prompter.IsInteractive() {
			return exitcodes.PreconditionError("keys store needs an interactive terminal")
		}

		account, err := d.Prompter.ReadLine("Witness account name: ")
		if err != nil {
			return err
		}
		if account == "" {
			return exitcodes.InvalidArgsError("account name is required")
		}
		url, err := d.Prompter.ReadLine("Witness URL (optional): ")
		if err != nil {
			return err
		}
		wif, err := d.Prompter.ReadSecret("Active signing key (WIF): ")
		if err != nil {
			return err
		}
		if wif == "" {
			return exitcodes.InvalidArgsError("WIF is required")
		}
		password, err := d.Prompter.ReadSecret("Configuration password: ")
		if err != nil {
			return err
		}
		again, err := d.Prompter.ReadSecret("Repeat password: ")
		if err != nil {
			return err
		}
		if password != again {
			return exitcodes.ValidationErr("passwords do not match")
		}

		req := secrets.Request{AccountName: account, URL: url, PrivateKeyWIF: wif}
		if err := d.Store.Save(req, password); err != nil {
			return err
		}
		d.Printer.Success("Rotation configuration stored at " + d.Store.Path())
		return nil
	},
}

var keysRevealCmd = &cobra.Command{
	Use:   "reveal",
	Short: "Print the stored signing keypair",
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := newDeps()
		if err != nil {
			return err
		}
		if !d.Prompter.IsInteractive() {
			return exitcodes.PreconditionError("keys reveal needs an interactive terminal")
		}
		password, err := d.Prompter.ReadSecret("Configuration password: ")
		if err != nil {
			return err
		}
		stored, err := loadStored(d, password)
		if err != nil {
			return err
		}
		d.Printer.KeypairBox(stored.PublicKey, stored.PrivateKeyWIF)
		return nil
	},
}

var keysDeleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Delete the stored rotation configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := newDeps()
		if err != nil {
			return err
		}
		if !d.Store.Exists() {
			d.Printer.Info("Nothing stored.")
			return nil
		}
		if !confirm(d.Prompter, "Delete the stored rotation configuration?") {
			return exitcodes.PreconditionError("delete cancelled")
		}
		if err := d.Store.Delete(); err != nil {
			return err
		}
		d.Printer.Success("Stored configuration deleted.")
		return nil
	},
}

func loadStored(d *Deps, password string) (secrets.Request, error) {
	stored, err := d.Store.Load(password)
	if errors.Is(err, secrets.ErrDecrypt) {
		return secrets.Request{}, exitcodes.WrapError(exitcodes.ValidationError, "unlock stored configuration", err)
	}
	if err != nil {
		return secrets.Request{}, err
	}
	return stored, nil
}

func init() {
	keysCmd.AddCommand(keysShowCmd)
	keysCmd.AddCommand(keysStoreCmd)
	keysCmd.AddCommand(keysRevealCmd)
	keysCmd.AddCommand(keysDeleteCmd)
	rootCmd.AddCommand(keysCmd)
}
