package node

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	gopsproc "github.com/shirou/gopsutil/v3/process"

	"github.com/rsquared-project/witness-manager/internal/config"
	"github.com/rsquared-project/witness-manager/internal/runner"
)

// nativeController runs witness_node as a detached process tracked by a
// PID sidecar file. Stop escalates SIGTERM to SIGKILL.
type nativeController struct {
	prof   config.Profile
	launch config.LaunchConfig
	probe  Prober
	run    runner.Runner
	mu     sync.Mutex
}

func newNativeController(run runner.Runner, prof config.Profile, launch config.LaunchConfig, probe Prober) *nativeController {
	return &nativeController{prof: prof, launch: launch, probe: probe, run: run}
}

func (n *nativeController) pid() (int, bool) {
	b, err := os.ReadFile(n.prof.PIDFile())
	if err != nil {
		return 0, false
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(b)))
	if err != nil {
		return 0, false
	}
	if processAlive(pid) {
		return pid, true
	}
	// stale sidecar
	os.Remove(n.prof.PIDFile())
	return 0, false
}

func (n *nativeController) Start(ctx context.Context, opts StartOpts) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if _, running := n.pid(); running {
		if err := n.stopLocked(); err != nil {
			return err
		}
	}
	if err := os.MkdirAll(n.launch.DataDir, 0o755); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(n.prof.LogFile()), 0o755); err != nil {
		return err
	}

	lf, err := os.OpenFile(n.prof.LogFile(), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}

	args := n.launch.NodeArgs(opts.Mode, opts.WitnessID, opts.PublicKey, opts.PrivateKeyWIF)
	pid, err := startDetached(n.prof.WitnessNodePath, args, lf)
	if err != nil {
		lf.Close()
		return fmt.Errorf("start witness_node: %w", err)
	}

	if err := os.WriteFile(n.prof.PIDFile(), []byte(strconv.Itoa(pid)), 0o644); err != nil {
		syscall.Kill(pid, syscall.SIGTERM)
		lf.Close()
		return err
	}
	go func(f *os.File) {
		time.Sleep(500 * time.Millisecond)
		f.Sync()
		f.Close()
	}(lf)

	// Give the process a moment; an immediate exit means bad args or a
	// locked data dir.
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(3 * time.Second):
	}
	if !processAlive(pid) {
		os.Remove(n.prof.PIDFile())
		return errors.New("witness_node exited immediately after start")
	}
	return nil
}

func (n *nativeController) Stop(context.Context) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.stopLocked()
}

func (n *nativeController) stopLocked() error {
	pid, ok := n.pid()
	if !ok {
		return nil
	}
	if err := syscall.Kill(-pid, syscall.SIGTERM); err != nil {
		syscall.Kill(pid, syscall.SIGTERM)
	}
	deadline := time.Now().Add(15 * time.Second)
	for time.Now().Before(deadline) {
		if !processAlive(pid) {
			os.Remove(n.prof.PIDFile())
			return nil
		}
		time.Sleep(300 * time.Millisecond)
	}
	if err := syscall.Kill(-pid, syscall.SIGKILL); err != nil {
		syscall.Kill(pid, syscall.SIGKILL)
	}
	killDeadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(killDeadline) {
		if !processAlive(pid) {
			os.Remove(n.prof.PIDFile())
			return nil
		}
		time.Sleep(200 * time.Millisecond)
	}
	os.Remove(n.prof.PIDFile())
	if processAlive(pid) {
		return errors.New("failed to stop witness_node")
	}
	return nil
}

func (n *nativeController) Status(context.Context) (Status, error) {
	st := Status{Backend: string(config.BackendNative)}
	pid, ok := n.pid()
	if !ok {
		// A node started outside the manager has no sidecar; find it by
		// executable name so status does not lie.
		if stray := findWitnessProcess(n.prof.WitnessNodePath); stray != 0 {
			st.Running = true
			st.PID = stray
			st.Mode = "unmanaged"
		}
		return st, nil
	}
	st.Running = true
	st.PID = pid
	if p, err := gopsproc.NewProcess(int32(pid)); err == nil {
		if created, err := p.CreateTime(); err == nil {
			st.Uptime = time.Since(time.UnixMilli(created)).Round(time.Second)
		}
		if cmdline, err := p.Cmdline(); err == nil {
			if strings.Contains(cmdline, "--witness-id") {
				st.Mode = string(config.ModeWitness)
			} else if strings.Contains(cmdline, "--replay-blockchain") {
				st.Mode = string(config.ModeSync)
			}
		}
	}
	return st, nil
}

func (n *nativeController) IsReady(ctx context.Context, maxRetries int, delay time.Duration) bool {
	return waitReady(ctx, n.probe, maxRetries, delay)
}

// findWitnessProcess scans the process table for the configured binary.
func findWitnessProcess(binPath string) int {
	procs, err := gopsproc.Processes()
	if err != nil {
		return 0
	}
	base := filepath.Base(binPath)
	for _, p := range procs {
		name, err := p.Name()
		if err != nil {
			continue
		}
		if name == base {
			return int(p.Pid)
		}
	}
	return 0
}

func processAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	// signal 0 tests existence without delivering anything
	return syscall.Kill(pid, 0) == nil
}
