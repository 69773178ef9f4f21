package main

import (
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/rsquared-project/witness-manager/internal/config"
	"github.com/rsquared-project/witness-manager/internal/exitcodes"
	"github.com/rsquared-project/witness-manager/internal/syncmon"
	ui "github.com/rsquared-project/witness-manager/internal/ui"
)

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Tail node logs",
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := newDeps()
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		// Docker keeps the log stream; the native backend writes a file
		// the viewer can tail with rotation handling.
		if d.Prof.Backend == config.BackendDocker {
			rc, err := syncmon.FollowDockerLogs(ctx, d.Launch.NodeName)
			if err != nil {
				return exitcodes.WrapError(exitcodes.ProcessError, "attach to container logs", err)
			}
			defer rc.Close()
			_, err = io.Copy(os.Stdout, rc)
			if ctx.Err() != nil {
				return nil
			}
			return err
		}

		return ui.RunLogView(ctx, ui.LogViewOptions{
			LogPath:    d.Prof.LogFile(),
			ShowFooter: d.Prompter.IsInteractive(),
			NoColor:    flagNoColor,
		})
	},
}

func init() {
	rootCmd.AddCommand(logsCmd)
}
