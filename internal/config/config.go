package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Backend selects how the witness node and cli_wallet are executed.
type Backend string

const (
	BackendDocker Backend = "docker"
	BackendNative Backend = "native"
)

// Profile describes how to reach the node and wallet for one deployment.
// Loaded once per invocation and treated as immutable afterwards.
type Profile struct {
	Backend     Backend `json:"backend"`
	RPCEndpoint string  `json:"rpc_endpoint"`
	LocalNode   bool    `json:"local_node"`

	// Native backend only.
	CLIWalletPath   string `json:"cli_wallet_path,omitempty"`
	WitnessNodePath string `json:"witness_node_path,omitempty"`

	// Home directory for the profile, launch config, data dir and
	// sidecar files. Not persisted; set by Load/Defaults.
	HomeDir string `json:"-"`
}

const (
	profileFile = "execution_profile.json"

	DefaultNodeName     = "rsquared-node"
	DefaultImage        = "ghcr.io/r-squared-project/r-squared-core:1.0.0"
	DefaultNetwork      = "rsquared-net"
	DefaultLocalRPC     = "ws://127.0.0.1:8090"
	DefaultContainerRPC = "ws://" + DefaultNodeName + ":8090"
)

// DefaultSeedNodes are the public P2P endpoints baked into fresh launch configs.
var DefaultSeedNodes = []string{
	"node01.rsquared.digital:2771",
	"node02.rsquared.digital:2771",
}

// DefaultHome returns the manager home directory, honoring HOME_DIR.
func DefaultHome() string {
	if v := os.Getenv("HOME_DIR"); v != "" {
		return v
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".witness-manager")
}

// Defaults returns a docker profile talking to a locally managed node.
func Defaults() Profile {
	return Profile{
		Backend:     BackendDocker,
		RPCEndpoint: DefaultContainerRPC,
		LocalNode:   true,
		HomeDir:     DefaultHome(),
	}
}

func profilePath(home string) string { return filepath.Join(home, profileFile) }

// DataDir is where the witness node keeps chain state for this profile.
func (p Profile) DataDir() string { return filepath.Join(p.HomeDir, "witness_node_data_dir") }

// PIDFile is the sidecar the native controller persists its process id to.
func (p Profile) PIDFile() string { return filepath.Join(p.HomeDir, "witness_node.pid") }

// LogFile is where the native controller redirects node output.
func (p Profile) LogFile() string { return filepath.Join(p.HomeDir, "logs", "witness_node.log") }

// LaunchConfigPath is the YAML node-launch configuration location.
func (p Profile) LaunchConfigPath() string { return filepath.Join(p.HomeDir, "launch.yaml") }

// Load reads the execution profile from home. A missing file surfaces as
// os.ErrNotExist so callers can tell "not set up" from corruption.
func Load(home string) (Profile, error) {
	b, err := os.ReadFile(profilePath(home))
	if err != nil {
		return Profile{}, err
	}
	var p Profile
	if err := json.Unmarshal(b, &p); err != nil {
		return Profile{}, fmt.Errorf("parse %s: %w", profileFile, err)
	}
	if p.Backend == "" {
		p.Backend = BackendDocker
	}
	p.HomeDir = home
	return p, nil
}

// Save writes the profile with owner-only permissions.
func Save(p Profile) error {
	if err := os.MkdirAll(p.HomeDir, 0o755); err != nil {
		return err
	}
	b, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(profilePath(p.HomeDir), b, 0o600)
}

// Validate checks the profile is usable: a known backend, and for native
// deployments both binaries present and executable.
func (p Profile) Validate() error {
	switch p.Backend {
	case BackendDocker:
		return nil
	case BackendNative:
		if p.CLIWalletPath == "" {
			return fmt.Errorf("native backend: cli_wallet path not configured")
		}
		if p.WitnessNodePath == "" {
			return fmt.Errorf("native backend: witness_node path not configured")
		}
		for name, path := range map[string]string{
			"cli_wallet":   p.CLIWalletPath,
			"witness_node": p.WitnessNodePath,
		} {
			info, err := os.Stat(path)
			if err != nil {
				return fmt.Errorf("native backend: %s: %w", name, err)
			}
			if info.IsDir() || info.Mode()&0o111 == 0 {
				return fmt.Errorf("native backend: %s %q is not executable", name, path)
			}
		}
		return nil
	default:
		return fmt.Errorf("unknown backend %q", p.Backend)
	}
}
