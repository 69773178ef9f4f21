package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/rsquared-project/witness-manager/internal/exitcodes"
	"github.com/rsquared-project/witness-manager/internal/server"
)

var (
	serveListen   string
	serveInitAuth bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the rotation web UI",
	Long: "Serve the authenticated web UI for starting rotations and streaming their " +
		"progress. Before each run the local node is started and brought in sync. " +
		"Use --init-auth once to create the web account.",
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := newDeps()
		if err != nil {
			return err
		}

		if serveInitAuth {
			return handleServeInitAuth(d)
		}

		creds, err := server.LoadCredentials(d.Home)
		if errors.Is(err, os.ErrNotExist) {
			return exitcodes.PreconditionError(
				"no web credentials found; run: witness-manager serve --init-auth")
		}
		if err != nil {
			return err
		}

		svc := d.newRotationService(true)
		srv := server.New(svc, d.Prof, creds)

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		d.Printer.Info("Web UI listening on http://" + serveListen)
		err = srv.ListenAndServe(ctx, serveListen)
		if errors.Is(err, context.Canceled) {
			d.Printer.Info("Shutting down.")
			return nil
		}
		if err != nil {
			return exitcodes.NetworkErrf("web server: %v", err)
		}
		return nil
	},
}

// handleServeInitAuth prompts for and stores the web UI account.
func handleServeInitAuth(d *Deps) error {
	if !d.Prompter.IsInteractive() {
		return exitcodes.PreconditionError("--init-auth needs an interactive terminal")
	}
	username, err := d.Prompter.ReadLine("Web username: ")
	if err != nil {
		return err
	}
	password, err := d.Prompter.ReadSecret("Web password: ")
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
	if err := server.SaveCredentials(d.Home, username, password); err != nil {
		return err
	}
	d.Printer.Success("Web credentials saved.")
	return nil
}

func init() {
	serveCmd.Flags().StringVar(&serveListen, "listen", "127.0.0.1:5000", "Listen address for the web UI")
	serveCmd.Flags().BoolVar(&serveInitAuth, "init-auth", false, "Create or replace the web account and exit")
	rootCmd.AddCommand(serveCmd)
}
