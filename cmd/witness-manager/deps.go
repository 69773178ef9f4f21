package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/rsquared-project/witness-manager/internal/config"
	"github.com/rsquared-project/witness-manager/internal/node"
	"github.com/rsquared-project/witness-manager/internal/progress"
	"github.com/rsquared-project/witness-manager/internal/rotation"
	"github.com/rsquared-project/witness-manager/internal/runner"
	"github.com/rsquared-project/witness-manager/internal/secrets"
	"github.com/rsquared-project/witness-manager/internal/syncmon"
	ui "github.com/rsquared-project/witness-manager/internal/ui"
	"github.com/rsquared-project/witness-manager/internal/wallet"
)

// Prompter abstracts interactive terminal I/O for testability.
type Prompter interface {
	// ReadLine displays the prompt and reads a line of input.
	ReadLine(prompt string) (string, error)
	// ReadSecret reads a line without echoing it; used for WIFs and
	// store passwords.
	ReadSecret(prompt string) (string, error)
	// IsInteractive returns whether the terminal supports interactive input.
	IsInteractive() bool
}

// Deps holds all injectable dependencies for command handlers.
type Deps struct {
	Home     string
	Prof     config.Profile
	Launch   config.LaunchConfig
	Run      runner.Runner
	Store    *secrets.Store
	Printer  ui.Printer
	Prompter Prompter
	Out      io.Writer
}

// ttyPrompter is the production implementation of Prompter.
// It uses /dev/tty when stdin is not a terminal (e.g., piped input).
type ttyPrompter struct{}

func (p *ttyPrompter) ReadLine(prompt string) (string, error) {
	fmt.Print(prompt)

	var reader *bufio.Reader
	if term.IsTerminal(int(os.Stdin.Fd())) {
		reader = bufio.NewReader(os.Stdin)
	} else {
		tty, err := os.OpenFile("/dev/tty", os.O_RDONLY, 0)
		if err != nil {
			return "", fmt.Errorf("no interactive terminal available: %w", err)
		}
		defer tty.Close()
		reader = bufio.NewReader(tty)
	}

	line, err := reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func (p *ttyPrompter) ReadSecret(prompt string) (string, error) {
	fmt.Print(prompt)

	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		tty, err := os.OpenFile("/dev/tty", os.O_RDWR, 0)
		if err != nil {
			return "", fmt.Errorf("no interactive terminal available: %w", err)
		}
		defer tty.Close()
		fd = int(tty.Fd())
	}
	b, err := term.ReadPassword(fd)
	fmt.Println()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(b)), nil
}

func (p *ttyPrompter) IsInteractive() bool {
	if flagNonInteractive {
		return false
	}
	if term.IsTerminal(int(os.Stdin.Fd())) {
		return true
	}
	// Check if /dev/tty is accessible
	tty, err := os.OpenFile("/dev/tty", os.O_RDONLY, 0)
	if err == nil {
		tty.Close()
		return true
	}
	return false
}

// newDeps creates production dependencies from the current flags and
// profile. Commands that work without a profile use newBareDeps.
func newDeps() (*Deps, error) {
	prof, err := loadProfile()
	if err != nil {
		return nil, err
	}
	launch, err := config.LoadLaunchConfig(prof)
	if err != nil {
		return nil, err
	}
	return &Deps{
		Home:     prof.HomeDir,
		Prof:     prof,
		Launch:   launch,
		Run:      runner.New(),
		Store:    secrets.NewStore(prof.HomeDir),
		Printer:  getPrinter(),
		Prompter: &ttyPrompter{},
		Out:      os.Stdout,
	}, nil
}

// newBareDeps builds deps without requiring an execution profile.
func newBareDeps() *Deps {
	home := loadHome()
	return &Deps{
		Home:     home,
		Run:      runner.New(),
		Store:    secrets.NewStore(home),
		Printer:  getPrinter(),
		Prompter: &ttyPrompter{},
		Out:      os.Stdout,
	}
}

// newWallet returns a fresh wallet client for the profile.
func (d *Deps) newWallet() *wallet.Client {
	return wallet.New(d.Run, d.Prof, d.Launch, 0)
}

// newController builds the node controller with the wallet as RPC prober.
func (d *Deps) newController() node.Controller {
	return node.NewController(d.Run, d.Prof, d.Launch, d.newWallet())
}

// newRotationService wires the single-run rotation service. When
// launchNode is set the service launches the local node in sync mode and
// waits for it to catch up before each run, mirroring the unattended
// workflow.
func (d *Deps) newRotationService(launchNode bool) *rotation.Service {
	ctrl := d.newController()
	svc := rotation.NewService(func() rotation.WalletOps { return d.newWallet() }, ctrl)
	if launchNode && d.Prof.LocalNode {
		svc.PreFlight = d.nodePreFlight(ctrl)
	}
	return svc
}

// nodePreFlight starts the local node (sync mode) if it is not running
// and blocks until it reports being in sync. Log streaming is preferred;
// head_block_time polling is the fallback when no stream is available.
func (d *Deps) nodePreFlight(ctrl node.Controller) func(ctx context.Context, feed *progress.Feed) error {
	return func(ctx context.Context, feed *progress.Feed) error {
		st, err := ctrl.Status(ctx)
		if err == nil && !st.Running {
			feed.Publish("Local node is not running; starting it in sync mode...")
			if err := ctrl.Start(ctx, node.StartOpts{Mode: config.ModeSync}); err != nil {
				return fmt.Errorf("start node: %w", err)
			}
		}

		feed.Publish("Waiting for the node to sync with the chain...")
		mon := syncmon.New(feed.Publish)
		if d.Prof.Backend == config.BackendDocker {
			rc, err := syncmon.FollowDockerLogs(ctx, d.Launch.NodeName)
			if err == nil {
				defer rc.Close()
				if err := mon.WatchStream(ctx, rc); err == nil {
					return nil
				}
			}
		} else {
			if err := mon.WatchFile(ctx, d.Prof.LogFile()); err == nil {
				return nil
			}
		}

		// Stream unavailable or ended early; fall back to RPC polling.
		if err := mon.Poll(ctx, d.newWallet()); err != nil && !errors.Is(err, syncmon.ErrSyncTimeout) {
			return err
		}
		return nil
	}
}
