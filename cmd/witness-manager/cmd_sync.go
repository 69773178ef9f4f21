package main

import (
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/rsquared-project/witness-manager/internal/config"
	"github.com/rsquared-project/witness-manager/internal/exitcodes"
	"github.com/rsquared-project/witness-manager/internal/syncmon"
)

var syncPoll bool

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Wait for the node to sync with the chain",
	Long: "Watch the node catch up: stream its log output until a fresh block is " +
		"handled, or poll head_block_time over RPC with --poll. A poll timeout is " +
		"advisory, not fatal; the node may simply need more time.",
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := newDeps()
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		notify := func(msg string) {
			if !flagQuiet {
				fmt.Fprintln(d.Out, msg)
			}
		}
		mon := syncmon.New(notify)

		if syncPoll {
			err = mon.Poll(ctx, d.newWallet())
		} else if d.Prof.Backend == config.BackendDocker {
			rc, ferr := syncmon.FollowDockerLogs(ctx, d.Launch.NodeName)
			if ferr != nil {
				return exitcodes.WrapError(exitcodes.ProcessError, "attach to node logs", ferr)
			}
			defer rc.Close()
			err = mon.WatchStream(ctx, rc)
		} else {
			err = mon.WatchFile(ctx, d.Prof.LogFile())
		}

		p := d.Printer
		switch {
		case err == nil:
			if p.Structured(map[string]any{"ok": true, "synced": true}) {
				return nil
			}
			p.Success("Node is in sync with the chain.")
			return nil
		case errors.Is(err, syncmon.ErrSyncTimeout):
			if p.Structured(map[string]any{"ok": true, "synced": false, "timeout": true}) {
				return nil
			}
			p.Warn("Gave up waiting; the node may still be replaying. Re-run later.")
			return nil
		case errors.Is(err, syncmon.ErrStreamEnded):
			return exitcodes.ProcessErr("log stream ended before the node was in sync")
		case ctx.Err() != nil:
			return nil // interrupted by the operator
		default:
			return exitcodes.WrapError(exitcodes.NetworkError, "sync monitoring", err)
		}
	},
}

func init() {
	syncCmd.Flags().BoolVar(&syncPoll, "poll", false, "Poll head_block_time over RPC instead of streaming logs")
	rootCmd.AddCommand(syncCmd)
}
