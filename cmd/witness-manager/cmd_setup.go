package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rsquared-project/witness-manager/internal/config"
	"github.com/rsquared-project/witness-manager/internal/exitcodes"
)

var (
	setupBackend     string
	setupRPC         string
	setupRemoteNode  bool
	setupCLIWallet   string
	setupWitnessNode string
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Create the execution profile",
	Long:  "Create the execution profile and a default launch configuration. Flags skip the corresponding prompts.",
	RunE: func(cmd *cobra.Command, args []string) error {
		d := newBareDeps()
		prof, err := resolveSetupProfile(d)
		if err != nil {
			return err
		}
		if err := prof.Validate(); err != nil {
			return exitcodes.WrapError(exitcodes.ValidationError, "profile validation failed", err)
		}
		if err := config.Save(prof); err != nil {
			return err
		}
		if err := config.SaveLaunchConfig(prof, config.DefaultLaunchConfig(prof)); err != nil {
			return err
		}

		p := d.Printer
		if p.Structured(map[string]any{
			"ok":      true,
			"home":    prof.HomeDir,
			"backend": prof.Backend,
			"rpc":     prof.RPCEndpoint,
		}) {
			return nil
		}
		p.Success("Execution profile written to " + prof.HomeDir)
		p.Info("Launch configuration written to " + prof.LaunchConfigPath())
		fmt.Println()
		fmt.Println("Next steps:")
		fmt.Println("  1. Store the rotation configuration: witness-manager keys store")
		fmt.Println("  2. Check the environment:            witness-manager doctor")
		fmt.Println("  3. Rotate the signing key:           witness-manager rotate")
		return nil
	},
}

// resolveSetupProfile combines flags, defaults and prompts into a
// profile. Prompts are skipped when the flag is set or the session is
// non-interactive.
func resolveSetupProfile(d *Deps) (config.Profile, error) {
	prof := config.Defaults()
	prof.HomeDir = d.Home

	backend := setupBackend
	if backend == "" && d.Prompter.IsInteractive() {
		answer, err := d.Prompter.ReadLine("Execution backend, docker or native [docker]: ")
		if err != nil {
			return config.Profile{}, err
		}
		backend = answer
	}
	switch backend {
	case "", string(config.BackendDocker):
		prof.Backend = config.BackendDocker
	case string(config.BackendNative):
		prof.Backend = config.BackendNative
	default:
		return config.Profile{}, exitcodes.InvalidArgsErrorf("unknown backend %q (use docker or native)", backend)
	}

	prof.LocalNode = !setupRemoteNode
	if prof.Backend == config.BackendNative {
		prof.RPCEndpoint = config.DefaultLocalRPC
		prof.CLIWalletPath = setupCLIWallet
		prof.WitnessNodePath = setupWitnessNode
		if d.Prompter.IsInteractive() {
			var err error
			if prof.CLIWalletPath == "" {
				if prof.CLIWalletPath, err = d.Prompter.ReadLine("Path to cli_wallet: "); err != nil {
					return config.Profile{}, err
				}
			}
			if prof.WitnessNodePath == "" {
				if prof.WitnessNodePath, err = d.Prompter.ReadLine("Path to witness_node: "); err != nil {
					return config.Profile{}, err
				}
			}
		}
	}
	if setupRPC != "" {
		prof.RPCEndpoint = setupRPC
	}
	return prof, nil
}

func init() {
	setupCmd.Flags().StringVar(&setupBackend, "backend", "", "Execution backend: docker|native")
	setupCmd.Flags().StringVar(&setupRPC, "rpc", "", "Node RPC endpoint (ws://host:port)")
	setupCmd.Flags().BoolVar(&setupRemoteNode, "remote-node", false, "The node is not managed by this machine")
	setupCmd.Flags().StringVar(&setupCLIWallet, "cli-wallet", "", "Path to the cli_wallet binary (native backend)")
	setupCmd.Flags().StringVar(&setupWitnessNode, "witness-node", "", "Path to the witness_node binary (native backend)")
	rootCmd.AddCommand(setupCmd)
}
