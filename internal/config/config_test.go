package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestProfileRoundTrip(t *testing.T) {
	home := t.TempDir()
	p := Defaults()
	p.HomeDir = home
	p.RPCEndpoint = "ws://10.0.0.5:8090"
	if err := Save(p); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := Load(home)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.RPCEndpoint != "ws://10.0.0.5:8090" || got.Backend != BackendDocker {
		t.Fatalf("unexpected profile: %+v", got)
	}
	info, err := os.Stat(filepath.Join(home, profileFile))
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Fatalf("profile mode = %v, want 0600", info.Mode().Perm())
	}
}

func TestLoadMissingProfile(t *testing.T) {
	_, err := Load(t.TempDir())
	if !os.IsNotExist(err) {
		t.Fatalf("want not-exist error, got %v", err)
	}
}

func TestValidateNative(t *testing.T) {
	dir := t.TempDir()
	wallet := filepath.Join(dir, "cli_wallet")
	node := filepath.Join(dir, "witness_node")
	for _, f := range []string{wallet, node} {
		if err := os.WriteFile(f, []byte("#!/bin/sh\n"), 0o755); err != nil {
			t.Fatal(err)
		}
	}
	p := Profile{Backend: BackendNative, CLIWalletPath: wallet, WitnessNodePath: node}
	if err := p.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}

	p.WitnessNodePath = filepath.Join(dir, "missing")
	if err := p.Validate(); err == nil {
		t.Fatal("want error for missing witness_node")
	}

	p = Profile{Backend: Backend("podman")}
	if err := p.Validate(); err == nil || !strings.Contains(err.Error(), "unknown backend") {
		t.Fatalf("want unknown backend error, got %v", err)
	}
}

func TestNodeArgsWitnessMode(t *testing.T) {
	lc := DefaultLaunchConfig(Profile{HomeDir: "/var/lib/wm"})
	args := lc.NodeArgs(ModeWitness, "1.6.42", "RQRX1pub", "5Jwif")
	joined := strings.Join(args, " ")
	if !strings.Contains(joined, `--witness-id "1.6.42"`) {
		t.Fatalf("missing witness id literal: %s", joined)
	}
	if !strings.Contains(joined, `--private-key ["RQRX1pub","5Jwif"]`) {
		t.Fatalf("missing private key literal: %s", joined)
	}
	if strings.Contains(joined, "--replay-blockchain") {
		t.Fatalf("sync args leaked into witness mode: %s", joined)
	}
}

func TestNodeArgsSyncMode(t *testing.T) {
	lc := DefaultLaunchConfig(Profile{HomeDir: "/var/lib/wm"})
	args := lc.NodeArgs(ModeSync, "", "", "")
	joined := strings.Join(args, " ")
	if !strings.Contains(joined, "--replay-blockchain") {
		t.Fatalf("missing replay flag: %s", joined)
	}
	if strings.Contains(joined, "--witness-id") || strings.Contains(joined, "--private-key") {
		t.Fatalf("witness args leaked into sync mode: %s", joined)
	}
	if !strings.Contains(joined, "--seed-nodes=[") {
		t.Fatalf("missing seed node list: %s", joined)
	}
}

func TestNodeArgsSeedNodesAreOneJSONArrayArgument(t *testing.T) {
	lc := DefaultLaunchConfig(Profile{HomeDir: "/var/lib/wm"})
	lc.SeedNodes = []string{"node01.example:2771", "node02.example:2771"}
	args := lc.NodeArgs(ModeSync, "", "", "")

	var seedArgs []string
	for _, a := range args {
		if strings.Contains(a, "seed") {
			seedArgs = append(seedArgs, a)
		}
	}
	if len(seedArgs) != 1 {
		t.Fatalf("seed nodes must render as a single argument, got %v", seedArgs)
	}
	want := `--seed-nodes=["node01.example:2771","node02.example:2771"]`
	if seedArgs[0] != want {
		t.Fatalf("seed argument = %s, want %s", seedArgs[0], want)
	}

	lc.SeedNodes = nil
	for _, a := range lc.NodeArgs(ModeSync, "", "", "") {
		if strings.Contains(a, "seed") {
			t.Fatalf("empty seed list still rendered: %s", a)
		}
	}
}

func TestLaunchConfigRoundTrip(t *testing.T) {
	p := Profile{HomeDir: t.TempDir()}
	lc := DefaultLaunchConfig(p)
	lc.Image = "ghcr.io/r-squared-project/r-squared-core:1.1.0"
	if err := SaveLaunchConfig(p, lc); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := LoadLaunchConfig(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.Image != lc.Image || got.NodeName != DefaultNodeName {
		t.Fatalf("unexpected launch config: %+v", got)
	}
}

func TestLoadLaunchConfigDefaults(t *testing.T) {
	p := Profile{HomeDir: t.TempDir()}
	lc, err := LoadLaunchConfig(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if lc.Image != DefaultImage || len(lc.Ports) != 2 {
		t.Fatalf("defaults not applied: %+v", lc)
	}
}
