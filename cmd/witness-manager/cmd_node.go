package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/rsquared-project/witness-manager/internal/config"
	"github.com/rsquared-project/witness-manager/internal/exitcodes"
	"github.com/rsquared-project/witness-manager/internal/node"
)

var (
	nodeStartMode      string
	nodeStartWitnessID string
	nodeStartPublicKey string
)

var nodeCmd = &cobra.Command{
	Use:   "node",
	Short: "Manage the witness node process",
}

var nodeStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the witness node",
	Long: "Start the node in sync mode (chain replay, no block production) or witness " +
		"mode. Witness mode needs the witness id, the public key and the matching WIF, " +
		"which is read from a hidden prompt so it never appears in shell history.",
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := newDeps()
		if err != nil {
			return err
		}
		opts, err := resolveNodeStart(d)
		if err != nil {
			return err
		}

		ctrl := d.newController()
		if err := ctrl.Start(cmd.Context(), opts); err != nil {
			return exitcodes.WrapError(exitcodes.ProcessError, "start node", err)
		}
		p := d.Printer
		if p.Structured(map[string]any{"ok": true, "action": "start", "mode": opts.Mode}) {
			return nil
		}
		p.Success(fmt.Sprintf("Node started in %s mode", opts.Mode))
		if opts.Mode == config.ModeSync {
			p.Info("Follow the replay with: witness-manager sync")
		}
		return nil
	},
}

// resolveNodeStart validates the mode flags and collects the signing key
// for witness mode.
func resolveNodeStart(d *Deps) (node.StartOpts, error) {
	switch nodeStartMode {
	case "", string(config.ModeSync):
		return node.StartOpts{Mode: config.ModeSync}, nil
	case string(config.ModeWitness):
	default:
		return node.StartOpts{}, exitcodes.InvalidArgsErrorf("unknown mode %q (use sync or witness)", nodeStartMode)
	}

	if nodeStartWitnessID == "" || nodeStartPublicKey == "" {
		return node.StartOpts{}, exitcodes.InvalidArgsError("witness mode needs --witness-id and --public-key")
	}
	if !d.Prompter.IsInteractive() {
		return node.StartOpts{}, exitcodes.PreconditionError("witness mode needs an interactive terminal for the WIF prompt")
	}
	wif, err := d.Prompter.ReadSecret("Signing key (WIF): ")
	if err != nil {
		return node.StartOpts{}, err
	}
	if wif == "" {
		return node.StartOpts{}, exitcodes.InvalidArgsError("empty WIF")
	}
	return node.StartOpts{
		Mode:          config.ModeWitness,
		WitnessID:     nodeStartWitnessID,
		PublicKey:     nodeStartPublicKey,
		PrivateKeyWIF: wif,
	}, nil
}

var nodeStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the witness node",
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := newDeps()
		if err != nil {
			return err
		}
		if err := d.newController().Stop(cmd.Context()); err != nil {
			return exitcodes.WrapError(exitcodes.ProcessError, "stop node", err)
		}
		p := d.Printer
		if p.Structured(map[string]any{"ok": true, "action": "stop"}) {
			return nil
		}
		p.Success("Node stopped")
		return nil
	},
}

var nodeStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show node process status",
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := newDeps()
		if err != nil {
			return err
		}
		st, err := d.newController().Status(cmd.Context())
		if err != nil {
			return exitcodes.WrapError(exitcodes.ProcessError, "node status", err)
		}
		p := d.Printer
		if p.Structured(st) {
			return nil
		}
		printNodeStatus(d, st)
		return nil
	},
}

func printNodeStatus(d *Deps, st node.Status) {
	p := d.Printer
	if flagQuiet {
		fmt.Fprintf(d.Out, "running=%v backend=%s mode=%s\n", st.Running, st.Backend, orDash(st.Mode))
		return
	}
	p.Section("Witness Node")
	state := "stopped"
	color := "yellow"
	if st.Running {
		state = "running"
		color = "green"
	}
	p.KeyValueLine("State", state, color)
	p.KeyValueLine("Backend", st.Backend, "blue")
	if st.Container != "" {
		p.KeyValueLine("Container", st.Container, "")
	}
	if st.PID != 0 {
		p.KeyValueLine("PID", fmt.Sprintf("%d", st.PID), "")
	}
	if st.Mode != "" {
		p.KeyValueLine("Mode", st.Mode, "blue")
	}
	if st.Uptime > 0 {
		p.KeyValueLine("Uptime", st.Uptime.Round(time.Second).String(), "")
	}
}

func init() {
	nodeStartCmd.Flags().StringVar(&nodeStartMode, "mode", "sync", "Launch mode: sync|witness")
	nodeStartCmd.Flags().StringVar(&nodeStartWitnessID, "witness-id", "", "Witness object id, e.g. 1.6.42 (witness mode)")
	nodeStartCmd.Flags().StringVar(&nodeStartPublicKey, "public-key", "", "Signing public key (witness mode)")
	nodeCmd.AddCommand(nodeStartCmd)
	nodeCmd.AddCommand(nodeStopCmd)
	nodeCmd.AddCommand(nodeStatusCmd)
	rootCmd.AddCommand(nodeCmd)
}
