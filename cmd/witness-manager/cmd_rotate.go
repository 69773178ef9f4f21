package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/rsquared-project/witness-manager/internal/backup"
	"github.com/rsquared-project/witness-manager/internal/exitcodes"
	"github.com/rsquared-project/witness-manager/internal/progress"
	"github.com/rsquared-project/witness-manager/internal/rotation"
	"github.com/rsquared-project/witness-manager/internal/secrets"
	"github.com/rsquared-project/witness-manager/internal/systemd"
	ui "github.com/rsquared-project/witness-manager/internal/ui"
)

var (
	rotateAccount    string
	rotateURL        string
	rotateWIFStdin   bool
	rotateLaunchNode bool
	rotateNoTUI      bool
	rotateBackup     bool
)

var rotateCmd = &cobra.Command{
	Use:   "rotate",
	Short: "Rotate the witness signing key",
	Long: "Verify the active signing key, generate a new keypair, authorize it on chain " +
		"and relaunch the local node with it. Without flags the stored rotation " +
		"configuration is used; --account switches to one-off manual input.",
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := newDeps()
		if err != nil {
			return err
		}
		return handleRotate(cmd.Context(), d, rotateOptions{
			Account:    rotateAccount,
			URL:        rotateURL,
			WIFStdin:   rotateWIFStdin,
			LaunchNode: rotateLaunchNode,
			NoTUI:      rotateNoTUI,
			Backup:     rotateBackup,
			Stdin:      os.Stdin,
		})
	},
}

// rotateOptions carries the flag values into the testable handler.
type rotateOptions struct {
	Account    string
	URL        string
	WIFStdin   bool
	LaunchNode bool
	NoTUI      bool
	Backup     bool
	Stdin      io.Reader
}

// rotateSource describes where the request came from, so the stored
// config can be refreshed after a successful rotation.
type rotateSource struct {
	FromStore bool
	Stored    secrets.Request
	Password  string
}

func handleRotate(ctx context.Context, d *Deps, opts rotateOptions) error {
	req, src, err := resolveRotateRequest(d, opts)
	if err != nil {
		return err
	}

	if opts.Backup {
		archive, err := backup.Create(filepath.Join(d.Home, "backups"), backupPaths(d))
		if err != nil {
			return exitcodes.WrapError(exitcodes.GeneralError, "pre-rotation backup", err)
		}
		if !flagQuiet {
			d.Printer.Info("Backup written to " + archive)
		}
	}

	svc := d.newRotationService(opts.LaunchNode)
	feed, err := svc.Start(ctx, req)
	if err != nil {
		return exitcodes.WrapError(exitcodes.PreconditionFailed, "start rotation", err)
	}

	if useRotateTUI(d, opts) {
		if _, err := ui.RunFeedTUI(feed); err != nil {
			// TUI failure is cosmetic; the run continues below.
			drainFeed(feed, io.Discard)
		}
	} else {
		drainFeed(feed, d.Out)
	}

	res := awaitResult(svc)
	return reportRotateResult(d, res, src)
}

// useRotateTUI decides between the live TUI and plain line output.
func useRotateTUI(d *Deps, opts rotateOptions) bool {
	return !opts.NoTUI && flagOutput == "text" && !flagQuiet && d.Prompter.IsInteractive()
}

// drainFeed prints every feed event except the terminal sentinels.
func drainFeed(feed *progress.Feed, out io.Writer) {
	for ev := range feed.Subscribe() {
		if ev.Message == progress.SentinelSuccess || ev.Message == progress.SentinelFailure {
			continue
		}
		if !flagQuiet {
			fmt.Fprintf(out, "[%s] %s\n", ev.Time.Format("15:04:05"), ev.Message)
		}
	}
}

// awaitResult blocks until the service records the run's result. The
// feed's sentinel arrives marginally before the result is stored.
func awaitResult(svc *rotation.Service) rotation.Result {
	for {
		if !svc.Active() {
			if last := svc.Last(); last != nil {
				return *last
			}
		}
		time.Sleep(20 * time.Millisecond)
	}
}

// resolveRotateRequest builds the rotation request from flags, the
// encrypted store, or interactive prompts.
func resolveRotateRequest(d *Deps, opts rotateOptions) (rotation.Request, rotateSource, error) {
	if opts.Account != "" {
		wif, err := readManualWIF(d, opts)
		if err != nil {
			return rotation.Request{}, rotateSource{}, err
		}
		return rotation.Request{AccountName: opts.Account, URL: opts.URL, WIF: wif}, rotateSource{}, nil
	}

	if !d.Store.Exists() {
		return rotation.Request{}, rotateSource{}, exitcodes.PreconditionError(
			"no stored rotation configuration; run: witness-manager keys store (or pass --account)")
	}
	password, err := storePassword(d)
	if err != nil {
		return rotation.Request{}, rotateSource{}, err
	}
	stored, err := d.Store.Load(password)
	if errors.Is(err, secrets.ErrDecrypt) {
		return rotation.Request{}, rotateSource{}, exitcodes.WrapError(exitcodes.ValidationError, "unlock stored configuration", err)
	}
	if err != nil {
		return rotation.Request{}, rotateSource{}, err
	}

	url := opts.URL
	if url == "" {
		url = stored.URL
	}
	req := rotation.Request{AccountName: stored.AccountName, URL: url, WIF: stored.PrivateKeyWIF}
	return req, rotateSource{FromStore: true, Stored: stored, Password: password}, nil
}

// readManualWIF obtains the active WIF for a one-off rotation: from
// stdin when --wif-stdin is set, otherwise via a hidden prompt. The key
// never appears on the command line.
func readManualWIF(d *Deps, opts rotateOptions) (string, error) {
	if opts.WIFStdin {
		b, err := io.ReadAll(opts.Stdin)
		if err != nil {
			return "", err
		}
		wif := strings.TrimSpace(string(b))
		if wif == "" {
			return "", exitcodes.InvalidArgsError("empty WIF on stdin")
		}
		return wif, nil
	}
	if !d.Prompter.IsInteractive() {
		return "", exitcodes.PreconditionError("--account requires --wif-stdin in non-interactive mode")
	}
	wif, err := d.Prompter.ReadSecret("Active signing key (WIF): ")
	if err != nil {
		return "", err
	}
	if wif == "" {
		return "", exitcodes.InvalidArgsError("empty WIF")
	}
	return wif, nil
}

// storePassword resolves the store password: the systemd sidecar file in
// non-interactive runs, a hidden prompt otherwise.
func storePassword(d *Deps) (string, error) {
	if !d.Prompter.IsInteractive() {
		pw, err := systemd.ReadPasswordFile(d.Home)
		if err != nil {
			return "", exitcodes.WrapError(exitcodes.PreconditionFailed,
				"non-interactive rotation needs the service password file; run: witness-manager systemd generate", err)
		}
		return pw, nil
	}
	return d.Prompter.ReadSecret("Configuration password: ")
}

// reportRotateResult renders the outcome and refreshes the stored
// configuration with the new key after a successful rotation.
func reportRotateResult(d *Deps, res rotation.Result, src rotateSource) error {
	p := d.Printer

	// The new key is active on chain the moment it was authorized; once
	// issued it must be persisted and shown even if the run failed later.
	if src.FromStore && res.KeysIssued() {
		stored := src.Stored
		stored.PublicKey = res.Keys.PublicKey
		stored.PrivateKeyWIF = res.Keys.PrivateKeyWIF
		if err := d.Store.Save(stored, src.Password); err != nil {
			p.Warn("Could not update the stored configuration: " + err.Error())
		}
	}

	if p.Structured(rotateReport(res)) {
		if !res.Succeeded() {
			return silentErr{exitcodes.RotationErrf("rotation failed: %s", res.Reason)}
		}
		return nil
	}

	if res.Succeeded() {
		p.Success("Key rotation complete. The witness node is signing with the new key.")
		p.KeypairBox(res.Keys.PublicKey, res.Keys.PrivateKeyWIF)
		if src.FromStore {
			p.Info("Stored configuration updated with the new key.")
		}
		return nil
	}

	ui.PrintError(rotateErrorMessage(res))
	if res.KeysIssued() {
		p.Warn("The new key was already authorized on chain. Save it now:")
		p.KeypairBox(res.Keys.PublicKey, res.Keys.PrivateKeyWIF)
	}
	return silentErr{exitcodes.RotationErrf("rotation failed: %s", res.Reason)}
}

// rotateReport is the structured-output shape of a finished run.
func rotateReport(res rotation.Result) map[string]any {
	out := map[string]any{
		"ok":     res.Succeeded(),
		"state":  res.State,
		"reason": res.Reason,
	}
	if res.WitnessID != "" {
		out["witness_id"] = res.WitnessID
	}
	if res.KeysIssued() {
		out["keys"] = map[string]string{
			"public_key":  res.Keys.PublicKey,
			"private_wif": res.Keys.PrivateKeyWIF,
		}
	}
	if res.Err != nil {
		out["error"] = res.Err.Error()
	}
	return out
}

// rotateErrorMessage maps failure reasons onto operator guidance.
func rotateErrorMessage(res rotation.Result) ui.ErrorMessage {
	switch res.Reason {
	case rotation.ReasonNodeNotReady:
		return ui.ErrorMessage{
			Problem: "The node's RPC endpoint never became responsive",
			Causes: []string{
				"The witness node is not running",
				"The node is still replaying the chain",
				"Wrong RPC endpoint in the execution profile",
			},
			Actions: []string{
				"Check the node: witness-manager node status",
				"Wait for sync: witness-manager sync",
				"Review the profile: witness-manager config show",
			},
		}
	case rotation.ReasonInvalidKey:
		return ui.ErrorMessage{
			Problem: "The wallet rejected the provided WIF key",
			Causes: []string{
				"Typo in the key",
				"The key belongs to a different account",
			},
			Actions: []string{
				"Re-enter the key and try again",
				"Verify the account name matches the key",
			},
		}
	case rotation.ReasonWitnessNotFound:
		return ui.ErrorMessage{
			Problem: "No witness is registered for this account",
			Causes: []string{
				"The account is not a witness",
				"The node is connected to the wrong chain",
			},
			Actions: []string{
				"Confirm the witness account name",
				"Check the RPC endpoint in the profile",
			},
		}
	case rotation.ReasonTxRejected:
		return ui.ErrorMessage{
			Problem: "The blockchain rejected the key update transaction",
			Causes: []string{
				"The WIF is not the currently active signing key",
				"The account lacks funds for the operation fee",
			},
			Actions: []string{
				"Rotate with the key the witness currently signs with",
				"Check the account balance",
			},
			Hints: []string{
				"If a previous rotation partially completed, the chain may already be on a newer key",
			},
		}
	case rotation.ReasonRelaunch:
		return ui.ErrorMessage{
			Problem: "The node could not be relaunched with the new key",
			Causes: []string{
				"Docker daemon unreachable or the binary failed to start",
				"Stale container or PID file",
			},
			Actions: []string{
				"Relaunch manually: witness-manager node start",
				"Inspect logs: witness-manager logs",
			},
		}
	default:
		problem := "Key rotation failed"
		if res.Err != nil {
			problem = res.Err.Error()
		}
		return ui.ErrorMessage{
			Problem: problem,
			Actions: []string{"Run: witness-manager doctor"},
		}
	}
}

func init() {
	rotateCmd.Flags().StringVar(&rotateAccount, "account", "", "Witness account name (manual mode, skips the stored config)")
	rotateCmd.Flags().StringVar(&rotateURL, "url", "", "Witness URL published with the update")
	rotateCmd.Flags().BoolVar(&rotateWIFStdin, "wif-stdin", false, "Read the active WIF key from stdin (manual mode)")
	rotateCmd.Flags().BoolVar(&rotateLaunchNode, "launch-node", false, "Start the local node and wait for sync before rotating")
	rotateCmd.Flags().BoolVar(&rotateNoTUI, "no-tui", false, "Plain line output instead of the live view")
	rotateCmd.Flags().BoolVar(&rotateBackup, "backup", false, "Archive profile and key material before rotating")
	rootCmd.AddCommand(rotateCmd)
}
