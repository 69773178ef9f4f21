// Package node starts, stops and inspects the witness node process, in a
// docker container or as a detached native binary depending on the
// execution profile.
package node

import (
	"context"
	"time"

	"github.com/rsquared-project/witness-manager/internal/config"
	"github.com/rsquared-project/witness-manager/internal/runner"
)

// Prober checks whether the node's RPC endpoint answers. The wallet
// client satisfies this.
type Prober interface {
	Ready(ctx context.Context) bool
}

// StartOpts selects the relaunch mode and, for witness mode, the
// identity and signing key the node runs with.
type StartOpts struct {
	Mode      config.NodeMode
	WitnessID string
	PublicKey string
	// PrivateKeyWIF appears on the node command line; it must never be
	// echoed back in logs or progress events.
	PrivateKeyWIF string
}

// Controller manages the node process lifecycle. Stop is idempotent and
// tolerant of an already-stopped node.
type Controller interface {
	Start(ctx context.Context, opts StartOpts) error
	Stop(ctx context.Context) error
	Status(ctx context.Context) (Status, error)
	IsReady(ctx context.Context, maxRetries int, delay time.Duration) bool
}

// Status is a backend-neutral view of the node process.
type Status struct {
	Running   bool          `json:"running"`
	Backend   string        `json:"backend"`
	PID       int           `json:"pid,omitempty"`
	Container string        `json:"container,omitempty"`
	Uptime    time.Duration `json:"uptime,omitempty"`
	Mode      string        `json:"mode,omitempty"`
}

// NewController picks the backend implementation from the profile.
func NewController(run runner.Runner, prof config.Profile, launch config.LaunchConfig, probe Prober) Controller {
	if prof.Backend == config.BackendNative {
		return newNativeController(run, prof, launch, probe)
	}
	return newDockerController(run, launch, probe)
}

// waitReady polls the prober with fixed retries. The loop never hangs on
// an unready node; callers decide what a false return means.
func waitReady(ctx context.Context, probe Prober, maxRetries int, delay time.Duration) bool {
	if probe == nil {
		return false
	}
	for attempt := 0; attempt < maxRetries; attempt++ {
		if probe.Ready(ctx) {
			return true
		}
		if attempt == maxRetries-1 {
			break
		}
		select {
		case <-ctx.Done():
			return false
		case <-time.After(delay):
		}
	}
	return false
}
