// Package wallet drives cli_wallet to verify keys, mint new keypairs and
// broadcast witness updates. The wallet binary is always short-lived: each
// operation spawns a fresh process, scripts it over stdin and scans the
// captured output, so no wallet state survives between calls.
package wallet

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/rsquared-project/witness-manager/internal/config"
	"github.com/rsquared-project/witness-manager/internal/runner"
)

// Errors the rotation orchestrator maps onto its failure taxonomy.
var (
	ErrInvalidKey      = errors.New("wallet rejected the private key")
	ErrWitnessNotFound = errors.New("no witness id found in wallet output")
	ErrRejected        = errors.New("transaction rejected by the blockchain")
	ErrKeyParse        = errors.New("cannot parse generated keypair")
)

// Keypair is a freshly generated signing key. The WIF must never be
// written to logs or the progress feed.
type Keypair struct {
	PublicKey     string
	PrivateKeyWIF string
}

const (
	// cli_wallet needs a moment after start before it reads stdin
	// reliably; input written earlier can be dropped.
	defaultSettle = 5 * time.Second

	headBlockTimeLayout = "2006-01-02T15:04:05"
)

var headBlockTimeRe = regexp.MustCompile(`"head_block_time":\s*"([^"]+)"`)

// Client runs wallet operations for one deployment.
type Client struct {
	run    runner.Runner
	prof   config.Profile
	launch config.LaunchConfig
	settle time.Duration
}

// New returns a wallet client. settle <= 0 uses the default delay.
func New(run runner.Runner, prof config.Profile, launch config.LaunchConfig, settle time.Duration) *Client {
	if settle <= 0 {
		settle = defaultSettle
	}
	return &Client{run: run, prof: prof, launch: launch, settle: settle}
}

// command builds the cli_wallet invocation. Docker runs a throwaway
// container on the node's network with the wallet file on tmpfs so
// nothing touches disk.
func (c *Client) command(extraArgs ...string) (name string, args []string) {
	if c.prof.Backend == config.BackendDocker {
		args = []string{
			"run", "-i", "--rm", "--network", c.launch.Network,
			"--mount", "type=tmpfs,destination=/wallet_data",
			c.launch.Image, "/usr/local/bin/cli_wallet",
			"--wallet-file=/wallet_data/wallet.json",
			"-s", c.prof.RPCEndpoint,
		}
		return "docker", append(args, extraArgs...)
	}
	return c.prof.CLIWalletPath, append([]string{"-s", c.prof.RPCEndpoint}, extraArgs...)
}

// script composes the stdin transcript for an unlocked session. The
// wallet password is ephemeral; the wallet file lives on tmpfs (docker)
// or is discarded with the process (native).
func script(password, account, wif string, cmds ...string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "set_password \"%s\"\n", password)
	fmt.Fprintf(&b, "unlock \"%s\"\n", password)
	fmt.Fprintf(&b, "import_key \"%s\" \"%s\"\n", account, wif)
	for _, cmd := range cmds {
		b.WriteString(cmd)
		b.WriteString("\n")
	}
	b.WriteString("quit\n")
	return b.String()
}

func tempPassword() string {
	b := make([]byte, 16)
	rand.Read(b)
	return hex.EncodeToString(b)
}

// VerifyKey imports the WIF, looks the witness up and returns its id.
// An "Invalid private key" or exception in stdout means the key is bad
// even when an id is extractable from surrounding noise.
func (c *Client) VerifyKey(ctx context.Context, account, wif string) (string, error) {
	name, args := c.command()
	in := script(tempPassword(), account, wif, fmt.Sprintf("get_witness \"%s\"", account))
	res, err := c.run.RunInteractive(ctx, in, c.settle, name, args...)
	if err != nil {
		return "", fmt.Errorf("run cli_wallet: %w", err)
	}
	if strings.Contains(res.Stdout, "Invalid private key") || strings.Contains(res.Stdout, "exception") {
		return "", ErrInvalidKey
	}
	id := ExtractWitnessID(res.Stdout)
	if id == "" {
		return "", ErrWitnessNotFound
	}
	return id, nil
}

// GenerateKeypair asks cli_wallet for a brain key suggestion and returns
// the derived public/WIF pair. No node connection is needed.
func (c *Client) GenerateKeypair(ctx context.Context) (Keypair, error) {
	var name string
	var args []string
	if c.prof.Backend == config.BackendDocker {
		name = "docker"
		args = []string{
			"run", "--platform", "linux/amd64", "--rm",
			"--mount", "type=tmpfs,destination=/wallet_data",
			c.launch.Image, "/usr/local/bin/cli_wallet", "--suggest-brain-key",
		}
	} else {
		name = c.prof.CLIWalletPath
		args = []string{"--suggest-brain-key"}
	}
	res, err := c.run.Run(ctx, name, args...)
	if err != nil {
		return Keypair{}, fmt.Errorf("run cli_wallet: %w", err)
	}
	var out struct {
		PubKey     string `json:"pub_key"`
		WifPrivKey string `json:"wif_priv_key"`
	}
	if err := json.Unmarshal([]byte(strings.TrimSpace(res.Stdout)), &out); err != nil {
		return Keypair{}, fmt.Errorf("%w: %v", ErrKeyParse, err)
	}
	if out.PubKey == "" || out.WifPrivKey == "" {
		return Keypair{}, ErrKeyParse
	}
	return Keypair{PublicKey: out.PubKey, PrivateKeyWIF: out.WifPrivKey}, nil
}

// Authorize broadcasts update_witness switching the signing key to
// newPublicKey. Failure detection is by output scan: any exception in
// stdout (case sensitive) or "error" anywhere (case insensitive) counts
// as a rejection, since cli_wallet exits zero either way.
func (c *Client) Authorize(ctx context.Context, account, url, wif, newPublicKey string) error {
	var extra []string
	if c.prof.Backend == config.BackendDocker {
		extra = append(extra, "-H")
	}
	name, args := c.command(extra...)
	in := script(tempPassword(), account, wif,
		fmt.Sprintf("update_witness \"%s\" \"%s\" \"%s\" true", account, url, newPublicKey))
	res, err := c.run.RunInteractive(ctx, in, c.settle, name, args...)
	if err != nil {
		return fmt.Errorf("run cli_wallet: %w", err)
	}
	if strings.Contains(res.Stdout, "exception") ||
		strings.Contains(strings.ToLower(res.Stdout), "error") ||
		strings.Contains(strings.ToLower(res.Stderr), "error") {
		return ErrRejected
	}
	return nil
}

// Ready probes the node's RPC with a single get_info call.
func (c *Client) Ready(ctx context.Context) bool {
	res, err := c.info(ctx)
	if err != nil {
		return false
	}
	return !strings.Contains(res.Stderr, "Underlying Transport Error") &&
		strings.Contains(res.Stdout, "get_info")
}

// HeadBlockTime extracts the chain head timestamp from get_info output.
func (c *Client) HeadBlockTime(ctx context.Context) (time.Time, error) {
	res, err := c.info(ctx)
	if err != nil {
		return time.Time{}, err
	}
	m := headBlockTimeRe.FindStringSubmatch(res.Stdout)
	if m == nil {
		return time.Time{}, fmt.Errorf("no head_block_time in wallet output")
	}
	t, err := time.Parse(headBlockTimeLayout, m[1])
	if err != nil {
		return time.Time{}, fmt.Errorf("parse head_block_time %q: %w", m[1], err)
	}
	return t.UTC(), nil
}

func (c *Client) info(ctx context.Context) (runner.Result, error) {
	name, args := c.command()
	return c.run.RunInteractive(ctx, "get_info\nquit\n", c.settle, name, args...)
}
