// Package doctor runs local preflight checks so operators can see why a
// rotation is likely to fail before starting one.
package doctor

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"
	"golang.org/x/mod/semver"

	"github.com/rsquared-project/witness-manager/internal/config"
	"github.com/rsquared-project/witness-manager/internal/runner"
)

// Verdict grades one check.
type Verdict string

const (
	OK   Verdict = "ok"
	Warn Verdict = "warn"
	Fail Verdict = "fail"
)

// Check is one preflight result.
type Check struct {
	Name    string  `json:"name"`
	Verdict Verdict `json:"verdict"`
	Detail  string  `json:"detail"`
}

// Thresholds below which resources get flagged. A replaying node is
// disk and memory hungry.
const (
	minDiskFreeBytes = 50 << 30
	minMemTotalBytes = 4 << 30

	// MinimumCoreVersion is the oldest node image known to support the
	// wallet commands the rotation workflow depends on.
	MinimumCoreVersion = "v1.0.0"
)

var imageTagRe = regexp.MustCompile(`:([0-9]+\.[0-9]+\.[0-9]+)$`)

// Doctor runs the checks against one profile.
type Doctor struct {
	run    runner.Runner
	prof   config.Profile
	launch config.LaunchConfig
}

// New returns a doctor for the profile.
func New(run runner.Runner, prof config.Profile, launch config.LaunchConfig) *Doctor {
	return &Doctor{run: run, prof: prof, launch: launch}
}

// Run executes every check. It never returns an error; problems are
// reported as failed checks.
func (d *Doctor) Run(ctx context.Context) []Check {
	checks := []Check{
		d.checkDisk(),
		d.checkMemory(),
		d.checkCPU(),
		d.checkProfile(),
	}
	if d.prof.Backend == config.BackendDocker {
		checks = append(checks, d.checkDocker(ctx), d.checkImageVersion())
	} else {
		checks = append(checks, d.checkBinaries())
	}
	return checks
}

// Healthy reports whether no check failed outright.
func Healthy(checks []Check) bool {
	for _, c := range checks {
		if c.Verdict == Fail {
			return false
		}
	}
	return true
}

func (d *Doctor) checkDisk() Check {
	usage, err := disk.Usage(d.prof.HomeDir)
	if err != nil {
		usage, err = disk.Usage("/")
	}
	if err != nil {
		return Check{Name: "disk space", Verdict: Warn, Detail: err.Error()}
	}
	detail := fmt.Sprintf("%.1f GiB free of %.1f GiB", float64(usage.Free)/(1<<30), float64(usage.Total)/(1<<30))
	if usage.Free < minDiskFreeBytes {
		return Check{Name: "disk space", Verdict: Warn, Detail: detail + " (a full replay may not fit)"}
	}
	return Check{Name: "disk space", Verdict: OK, Detail: detail}
}

func (d *Doctor) checkMemory() Check {
	vm, err := mem.VirtualMemory()
	if err != nil {
		return Check{Name: "memory", Verdict: Warn, Detail: err.Error()}
	}
	detail := fmt.Sprintf("%.1f GiB total", float64(vm.Total)/(1<<30))
	if vm.Total < minMemTotalBytes {
		return Check{Name: "memory", Verdict: Warn, Detail: detail + " (witness_node recommends 4 GiB+)"}
	}
	return Check{Name: "memory", Verdict: OK, Detail: detail}
}

func (d *Doctor) checkCPU() Check {
	counts, err := cpu.Counts(true)
	if err != nil {
		return Check{Name: "cpu", Verdict: Warn, Detail: err.Error()}
	}
	return Check{Name: "cpu", Verdict: OK, Detail: fmt.Sprintf("%d logical cores", counts)}
}

func (d *Doctor) checkProfile() Check {
	if err := d.prof.Validate(); err != nil {
		return Check{Name: "execution profile", Verdict: Fail, Detail: err.Error()}
	}
	return Check{Name: "execution profile", Verdict: OK, Detail: string(d.prof.Backend) + " backend"}
}

func (d *Doctor) checkDocker(ctx context.Context) Check {
	res, err := d.run.Run(ctx, "docker", "version", "--format", "{{.Server.Version}}")
	if err != nil {
		return Check{Name: "docker", Verdict: Fail, Detail: "docker binary not found"}
	}
	if res.ExitCode != 0 {
		return Check{Name: "docker", Verdict: Fail, Detail: "docker daemon not reachable: " + strings.TrimSpace(res.Stderr)}
	}
	return Check{Name: "docker", Verdict: OK, Detail: "server " + strings.TrimSpace(res.Stdout)}
}

func (d *Doctor) checkImageVersion() Check {
	m := imageTagRe.FindStringSubmatch(d.launch.Image)
	if m == nil {
		return Check{Name: "node image", Verdict: Warn, Detail: d.launch.Image + " (tag is not a release version)"}
	}
	tag := "v" + m[1]
	if semver.Compare(tag, MinimumCoreVersion) < 0 {
		return Check{
			Name:    "node image",
			Verdict: Fail,
			Detail:  fmt.Sprintf("%s is older than the minimum supported %s", tag, MinimumCoreVersion),
		}
	}
	return Check{Name: "node image", Verdict: OK, Detail: d.launch.Image}
}

func (d *Doctor) checkBinaries() Check {
	for name, path := range map[string]string{
		"cli_wallet":   d.prof.CLIWalletPath,
		"witness_node": d.prof.WitnessNodePath,
	} {
		if path == "" {
			return Check{Name: "node binaries", Verdict: Fail, Detail: name + " path not configured"}
		}
	}
	return Check{Name: "node binaries", Verdict: OK, Detail: d.prof.WitnessNodePath}
}
