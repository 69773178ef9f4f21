package node

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rsquared-project/witness-manager/internal/config"
	"github.com/rsquared-project/witness-manager/internal/runner"
)

type dockerController struct {
	run    runner.Runner
	launch config.LaunchConfig
	probe  Prober
}

func newDockerController(run runner.Runner, launch config.LaunchConfig, probe Prober) *dockerController {
	return &dockerController{run: run, launch: launch, probe: probe}
}

// Start replaces any existing container: stop and rm are issued first and
// their failures ignored, so a relaunch over a running node and a fresh
// launch look the same.
func (d *dockerController) Start(ctx context.Context, opts StartOpts) error {
	d.run.Run(ctx, "docker", "stop", d.launch.NodeName)
	d.run.Run(ctx, "docker", "rm", d.launch.NodeName)
	d.run.Run(ctx, "docker", "network", "create", d.launch.Network)

	args := d.runArgs(opts)
	res, err := d.run.Run(ctx, "docker", args...)
	if err != nil {
		return fmt.Errorf("docker run: %w", err)
	}
	if res.Stderr != "" && strings.Contains(strings.ToLower(res.Stderr), "error") {
		return fmt.Errorf("docker launch failed: %s", strings.TrimSpace(res.Stderr))
	}
	return nil
}

func (d *dockerController) runArgs(opts StartOpts) []string {
	args := []string{"run", "-d", "--name", d.launch.NodeName}
	if d.launch.Restart != "" && d.launch.Restart != "no" {
		args = append(args, "--restart", d.launch.Restart)
	}
	args = append(args, "--network", d.launch.Network)
	for _, p := range d.launch.Ports {
		args = append(args, "-p", fmt.Sprintf("%d:%d", p.Host, p.Container))
	}
	args = append(args, "-v", d.launch.DataDir+":/var/lib/rsquared/data")
	for k, v := range d.launch.Env {
		args = append(args, "-e", k+"="+v)
	}
	args = append(args, d.launch.DockerArgs...)
	args = append(args, d.launch.Image, "witness_node")

	lc := d.launch
	lc.DataDir = "/var/lib/rsquared/data"
	return append(args, lc.NodeArgs(opts.Mode, opts.WitnessID, opts.PublicKey, opts.PrivateKeyWIF)...)
}

// Stop tears the container down. Neither command failing is an error;
// the container may simply not exist.
func (d *dockerController) Stop(ctx context.Context) error {
	d.run.Run(ctx, "docker", "stop", d.launch.NodeName)
	d.run.Run(ctx, "docker", "rm", d.launch.NodeName)
	return nil
}

func (d *dockerController) Status(ctx context.Context) (Status, error) {
	st := Status{Backend: string(config.BackendDocker), Container: d.launch.NodeName}
	insp, err := d.Inspect(ctx)
	if err != nil {
		return st, nil
	}
	st.Running = insp.Running
	st.Mode = insp.Mode
	if insp.Running && !insp.StartedAt.IsZero() {
		st.Uptime = time.Since(insp.StartedAt).Round(time.Second)
	}
	return st, nil
}

func (d *dockerController) IsReady(ctx context.Context, maxRetries int, delay time.Duration) bool {
	return waitReady(ctx, d.probe, maxRetries, delay)
}
