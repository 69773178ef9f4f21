package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/rsquared-project/witness-manager/internal/node"
	"github.com/rsquared-project/witness-manager/internal/progress"
)

func TestConfirm(t *testing.T) {
	origYes := flagYes
	defer func() { flagYes = origYes }()

	flagYes = true
	if !confirm(&mockPrompter{}, "proceed?") {
		t.Error("--yes should auto-confirm")
	}

	flagYes = false
	if confirm(&mockPrompter{interactive: false}, "proceed?") {
		t.Error("non-interactive without --yes should refuse")
	}
	if !confirm(&mockPrompter{interactive: true, lines: []string{"y"}}, "proceed?") {
		t.Error("answering y should confirm")
	}
	if confirm(&mockPrompter{interactive: true, lines: []string{"n"}}, "proceed?") {
		t.Error("answering n should refuse")
	}
}

func TestOrDash(t *testing.T) {
	if orDash("") != "-" {
		t.Error(`orDash("") should be "-"`)
	}
	if orDash("x") != "x" {
		t.Error("orDash should pass values through")
	}
}

func TestGetenvDefault(t *testing.T) {
	t.Setenv("WM_TEST_KEY", "set")
	if getenvDefault("WM_TEST_KEY", "fallback") != "set" {
		t.Error("set env should win")
	}
	if getenvDefault("WM_TEST_KEY_MISSING", "fallback") != "fallback" {
		t.Error("missing env should use default")
	}
}

func TestDrainFeed_SkipsSentinels(t *testing.T) {
	origQuiet := flagQuiet
	defer func() { flagQuiet = origQuiet }()
	flagQuiet = false

	feed := progress.NewFeed()
	feed.Publish("step one")
	feed.Publish("step two")
	feed.Close(true)

	var buf bytes.Buffer
	drainFeed(feed, &buf)
	out := buf.String()
	if !strings.Contains(out, "step one") || !strings.Contains(out, "step two") {
		t.Errorf("progress lines missing: %q", out)
	}
	if strings.Contains(out, progress.SentinelSuccess) {
		t.Errorf("sentinel leaked into output: %q", out)
	}
}

func TestPrintNodeStatus_Quiet(t *testing.T) {
	origQuiet := flagQuiet
	defer func() { flagQuiet = origQuiet }()
	flagQuiet = true

	d, _ := testDeps(t, &mockPrompter{})
	var buf bytes.Buffer
	d.Out = &buf
	printNodeStatus(d, node.Status{Running: true, Backend: "docker", Mode: "witness", Uptime: time.Minute})

	out := buf.String()
	if !strings.Contains(out, "running=true") || !strings.Contains(out, "mode=witness") {
		t.Errorf("quiet status line = %q", out)
	}
}

func TestBackupPaths_CoverKeyMaterial(t *testing.T) {
	d, _ := testDeps(t, &mockPrompter{})
	paths := backupPaths(d)

	var hasProfile, hasStore bool
	for _, p := range paths {
		if strings.HasSuffix(p, "execution_profile.json") {
			hasProfile = true
		}
		if p == d.Store.Path() {
			hasStore = true
		}
	}
	if !hasProfile || !hasStore {
		t.Errorf("backup paths incomplete: %v", paths)
	}
}
