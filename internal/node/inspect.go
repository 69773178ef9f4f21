package node

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rsquared-project/witness-manager/internal/config"
)

// InspectInfo is the subset of docker inspect output the manager cares
// about. Args are redacted before they leave this package.
type InspectInfo struct {
	Running   bool      `json:"running"`
	StartedAt time.Time `json:"started_at,omitempty"`
	Image     string    `json:"image"`
	Mode      string    `json:"mode,omitempty"`
	Args      []string  `json:"args"`
}

// Inspect runs docker inspect on the managed container and parses the
// pieces needed for status display and relaunch diagnostics.
func (d *dockerController) Inspect(ctx context.Context) (InspectInfo, error) {
	res, err := d.run.Run(ctx, "docker", "inspect", d.launch.NodeName)
	if err != nil {
		return InspectInfo{}, fmt.Errorf("docker inspect: %w", err)
	}
	if res.ExitCode != 0 {
		return InspectInfo{}, fmt.Errorf("container %s not found", d.launch.NodeName)
	}

	var raw []struct {
		State struct {
			Running   bool   `json:"Running"`
			StartedAt string `json:"StartedAt"`
		} `json:"State"`
		Config struct {
			Image string   `json:"Image"`
			Cmd   []string `json:"Cmd"`
		} `json:"Config"`
		Args []string `json:"Args"`
	}
	if err := json.Unmarshal([]byte(res.Stdout), &raw); err != nil {
		return InspectInfo{}, fmt.Errorf("parse docker inspect: %w", err)
	}
	if len(raw) == 0 {
		return InspectInfo{}, fmt.Errorf("container %s not found", d.launch.NodeName)
	}

	entry := raw[0]
	args := entry.Config.Cmd
	if len(args) == 0 {
		args = entry.Args
	}
	info := InspectInfo{
		Running: entry.State.Running,
		Image:   entry.Config.Image,
		Args:    RedactArgs(args),
		Mode:    modeFromArgs(args),
	}
	if t, err := time.Parse(time.RFC3339Nano, entry.State.StartedAt); err == nil {
		info.StartedAt = t
	}
	return info, nil
}

func modeFromArgs(args []string) string {
	for _, a := range args {
		if strings.HasPrefix(a, "--witness-id") {
			return string(config.ModeWitness)
		}
		if a == "--replay-blockchain" {
			return string(config.ModeSync)
		}
	}
	return ""
}

// RedactArgs masks the values of sensitive node flags so a command line
// can be shown to operators without exposing the signing key.
func RedactArgs(args []string) []string {
	out := make([]string, len(args))
	hideNext := ""
	for i, a := range args {
		switch {
		case hideNext != "":
			out[i] = hideNext
			hideNext = ""
		case a == "--private-key":
			out[i] = a
			hideNext = "[REDACTED]"
		case a == "--witness-id":
			out[i] = a
			hideNext = "[REDACTED]"
		case strings.HasPrefix(a, "--private-key="):
			out[i] = "--private-key=[REDACTED]"
		case strings.HasPrefix(a, "--witness-id="):
			out[i] = "--witness-id=[REDACTED]"
		default:
			out[i] = a
		}
	}
	return out
}
