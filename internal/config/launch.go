package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// NodeMode selects the argument set the node is (re)launched with.
type NodeMode string

const (
	// ModeWitness runs the node with witness plugins and signing keys.
	ModeWitness NodeMode = "witness"
	// ModeSync replays the chain without producing blocks.
	ModeSync NodeMode = "sync"
)

// PortMapping is a host:container port pair published by the docker backend.
type PortMapping struct {
	Host      int `yaml:"host"`
	Container int `yaml:"container"`
}

// LaunchConfig describes how the witness node process is started. It is
// stored as YAML next to the execution profile so operators can tune the
// relaunch arguments without touching the manager itself.
type LaunchConfig struct {
	Image     string        `yaml:"image"`
	Network   string        `yaml:"network"`
	NodeName  string        `yaml:"node_name"`
	Restart   string        `yaml:"restart"`
	Ports     []PortMapping `yaml:"ports"`
	DataDir   string        `yaml:"data_dir"`
	SeedNodes []string      `yaml:"seed_nodes"`

	// Args common to every mode, e.g. endpoint bindings.
	BaseArgs []string `yaml:"base_args,omitempty"`
	// Args appended in sync mode only.
	SyncArgs []string `yaml:"sync_args,omitempty"`
	// Args appended in witness mode before the id/key pair.
	WitnessArgs []string `yaml:"witness_args,omitempty"`

	// Extra flags passed to docker run verbatim.
	DockerArgs []string          `yaml:"docker_args,omitempty"`
	Env        map[string]string `yaml:"env,omitempty"`
}

// DefaultLaunchConfig mirrors the published r-squared compose setup.
func DefaultLaunchConfig(p Profile) LaunchConfig {
	return LaunchConfig{
		Image:    DefaultImage,
		Network:  DefaultNetwork,
		NodeName: DefaultNodeName,
		Restart:  "unless-stopped",
		Ports: []PortMapping{
			{Host: 8090, Container: 8090},
			{Host: 2771, Container: 2771},
		},
		DataDir:   p.DataDir(),
		SeedNodes: append([]string(nil), DefaultSeedNodes...),
		BaseArgs: []string{
			"--rpc-endpoint=0.0.0.0:8090",
			"--p2p-endpoint=0.0.0.0:2771",
		},
		SyncArgs:    []string{"--replay-blockchain"},
		WitnessArgs: []string{"--enable-stale-production"},
	}
}

// LoadLaunchConfig reads the launch config, falling back to defaults when
// the file does not exist yet.
func LoadLaunchConfig(p Profile) (LaunchConfig, error) {
	b, err := os.ReadFile(p.LaunchConfigPath())
	if os.IsNotExist(err) {
		return DefaultLaunchConfig(p), nil
	}
	if err != nil {
		return LaunchConfig{}, err
	}
	var lc LaunchConfig
	if err := yaml.Unmarshal(b, &lc); err != nil {
		return LaunchConfig{}, fmt.Errorf("parse launch config: %w", err)
	}
	if lc.NodeName == "" {
		lc.NodeName = DefaultNodeName
	}
	if lc.Image == "" {
		lc.Image = DefaultImage
	}
	if lc.DataDir == "" {
		lc.DataDir = p.DataDir()
	}
	return lc, nil
}

// SaveLaunchConfig persists the launch config as YAML.
func SaveLaunchConfig(p Profile, lc LaunchConfig) error {
	if err := os.MkdirAll(p.HomeDir, 0o755); err != nil {
		return err
	}
	b, err := yaml.Marshal(lc)
	if err != nil {
		return err
	}
	return os.WriteFile(p.LaunchConfigPath(), b, 0o644)
}

// NodeArgs renders the witness_node argument list for the given mode.
// Seed nodes go into one --seed-nodes=["host:port",...] argument, and in
// witness mode the id and key pair are passed as the JSON-ish literals
// the node expects: --witness-id "1.6.N" and --private-key ["pub","wif"].
func (lc LaunchConfig) NodeArgs(mode NodeMode, witnessID, publicKey, privateKeyWIF string) []string {
	args := []string{"--data-dir=" + lc.DataDir}
	args = append(args, lc.BaseArgs...)
	if len(lc.SeedNodes) > 0 {
		quoted := make([]string, len(lc.SeedNodes))
		for i, seed := range lc.SeedNodes {
			quoted[i] = fmt.Sprintf("%q", seed)
		}
		args = append(args, "--seed-nodes=["+strings.Join(quoted, ",")+"]")
	}
	switch mode {
	case ModeSync:
		args = append(args, lc.SyncArgs...)
	case ModeWitness:
		args = append(args, lc.WitnessArgs...)
		args = append(args,
			"--witness-id", fmt.Sprintf("%q", witnessID),
			"--private-key", fmt.Sprintf(`["%s","%s"]`, publicKey, privateKeyWIF),
		)
	}
	return args
}
