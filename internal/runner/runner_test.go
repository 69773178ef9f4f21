package runner

import (
	"context"
	"runtime"
	"strings"
	"testing"
	"time"
)

func TestRunCapturesOutput(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires sh")
	}
	res, err := New().Run(context.Background(), "sh", "-c", "echo out; echo err >&2")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if strings.TrimSpace(res.Stdout) != "out" || strings.TrimSpace(res.Stderr) != "err" {
		t.Fatalf("unexpected output: %+v", res)
	}
	if res.ExitCode != 0 {
		t.Fatalf("exit code = %d", res.ExitCode)
	}
}

func TestRunNonZeroExitIsNotError(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires sh")
	}
	res, err := New().Run(context.Background(), "sh", "-c", "echo boom; exit 3")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.ExitCode != 3 {
		t.Fatalf("exit code = %d, want 3", res.ExitCode)
	}
	if !strings.Contains(res.Stdout, "boom") {
		t.Fatalf("stdout lost on failure: %q", res.Stdout)
	}
}

func TestRunMissingBinary(t *testing.T) {
	_, err := New().Run(context.Background(), "/nonexistent/binary-xyz")
	if err == nil {
		t.Fatal("want error for missing binary")
	}
}

func TestRunInteractiveWritesStdin(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires cat")
	}
	res, err := New().RunInteractive(context.Background(), "hello\n", 10*time.Millisecond, "cat")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.Stdout != "hello\n" {
		t.Fatalf("stdout = %q", res.Stdout)
	}
}

func TestRunContextCancel(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires sleep")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := New().Run(ctx, "sleep", "10")
	if err == nil {
		t.Fatal("want error on cancellation")
	}
}

func TestFakeDispatch(t *testing.T) {
	f := &Fake{}
	f.Stub("docker", "exec", Result{Stdout: "ok"}, nil)
	res, err := f.Run(context.Background(), "docker", "exec", "node", "ls")
	if err != nil || res.Stdout != "ok" {
		t.Fatalf("res=%+v err=%v", res, err)
	}
	if _, err := f.Run(context.Background(), "docker", "rm"); err == nil {
		t.Fatal("want error for unstubbed call")
	}
	if len(f.Calls) != 2 {
		t.Fatalf("calls = %d", len(f.Calls))
	}
}
