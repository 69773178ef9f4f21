package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rsquared-project/witness-manager/internal/config"
	"github.com/rsquared-project/witness-manager/internal/exitcodes"
)

func TestAllSubcommandsRegistered(t *testing.T) {
	expectedCmds := []string{
		"setup",
		"rotate",
		"serve",
		"node",
		"sync",
		"logs",
		"doctor",
		"backup",
		"keys",
		"config",
		"launch-config",
		"systemd",
		"version",
		"completion",
	}

	registered := map[string]bool{}
	for _, cmd := range rootCmd.Commands() {
		registered[cmd.Name()] = true
	}

	for _, name := range expectedCmds {
		if !registered[name] {
			t.Errorf("expected subcommand %q not registered on rootCmd", name)
		}
	}
}

func TestLoadHome_FlagWins(t *testing.T) {
	origHome := flagHome
	defer func() { flagHome = origHome }()

	flagHome = "/tmp/custom-home"
	if got := loadHome(); got != "/tmp/custom-home" {
		t.Errorf("loadHome() = %q, want /tmp/custom-home", got)
	}

	flagHome = ""
	t.Setenv("HOME_DIR", "/tmp/env-home")
	if got := loadHome(); got != "/tmp/env-home" {
		t.Errorf("loadHome() = %q, want /tmp/env-home", got)
	}
}

func TestLoadProfile_MissingIsPrecondition(t *testing.T) {
	origHome := flagHome
	defer func() { flagHome = origHome }()
	flagHome = t.TempDir()

	_, err := loadProfile()
	if err == nil {
		t.Fatal("expected error for missing profile")
	}
	if code := exitcodes.CodeForError(err); code != exitcodes.PreconditionFailed {
		t.Errorf("exit code = %d, want %d", code, exitcodes.PreconditionFailed)
	}
}

func TestLoadProfile_RoundTrip(t *testing.T) {
	origHome := flagHome
	defer func() { flagHome = origHome }()
	home := t.TempDir()
	flagHome = home

	want := config.Defaults()
	want.HomeDir = home
	want.RPCEndpoint = "ws://10.0.0.1:8090"
	if err := config.Save(want); err != nil {
		t.Fatal(err)
	}

	got, err := loadProfile()
	if err != nil {
		t.Fatalf("loadProfile: %v", err)
	}
	if got.RPCEndpoint != want.RPCEndpoint {
		t.Errorf("RPCEndpoint = %q, want %q", got.RPCEndpoint, want.RPCEndpoint)
	}
	if got.HomeDir != home {
		t.Errorf("HomeDir = %q, want %q", got.HomeDir, home)
	}
}

func TestLoadProfile_CorruptIsValidationError(t *testing.T) {
	origHome := flagHome
	defer func() { flagHome = origHome }()
	home := t.TempDir()
	flagHome = home

	if err := os.WriteFile(filepath.Join(home, "execution_profile.json"), []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}
	_, err := loadProfile()
	if err == nil {
		t.Fatal("expected error for corrupt profile")
	}
	if code := exitcodes.CodeForError(err); code != exitcodes.ValidationError {
		t.Errorf("exit code = %d, want %d", code, exitcodes.ValidationError)
	}
}
