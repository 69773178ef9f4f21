// Package systemd generates the service and timer units for scheduled
// unattended key rotation.
package systemd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"
)

const (
	ServiceFile = "witness-rotate.service"
	TimerFile   = "witness-rotate.timer"
)

var serviceTmpl = template.Must(template.New("service").Parse(`[Unit]
Description=R-Squared Witness Key Rotation Service
Wants=docker.service
After=docker.service network-online.target

[Service]
Type=oneshot
User={{.User}}
Group={{.User}}
WorkingDirectory={{.WorkDir}}
ExecStart={{.BinPath}} rotate --non-interactive --home {{.HomeDir}}
`))

var timerTmpl = template.Must(template.New("timer").Parse(`[Unit]
Description=Run R-Squared Witness Key Rotation periodically

[Timer]
OnCalendar={{.OnCalendar}}
Persistent=true
RandomizedDelaySec=1h

[Install]
WantedBy=timers.target
`))

// Params drive unit generation.
type Params struct {
	User       string
	BinPath    string
	HomeDir    string
	WorkDir    string
	OnCalendar string
}

// Generate renders both unit files into outDir and returns their paths.
func Generate(outDir string, p Params) (service, timer string, err error) {
	if p.OnCalendar == "" {
		p.OnCalendar = "daily"
	}
	if p.WorkDir == "" {
		p.WorkDir = p.HomeDir
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return "", "", err
	}

	service = filepath.Join(outDir, ServiceFile)
	timer = filepath.Join(outDir, TimerFile)

	var sb, tb strings.Builder
	if err := serviceTmpl.Execute(&sb, p); err != nil {
		return "", "", fmt.Errorf("render service unit: %w", err)
	}
	if err := timerTmpl.Execute(&tb, p); err != nil {
		return "", "", fmt.Errorf("render timer unit: %w", err)
	}
	if err := os.WriteFile(service, []byte(sb.String()), 0o644); err != nil {
		return "", "", err
	}
	if err := os.WriteFile(timer, []byte(tb.String()), 0o644); err != nil {
		return "", "", err
	}
	return service, timer, nil
}

// InstallInstructions returns the operator commands for activating the
// generated units.
func InstallInstructions(service, timer string) []string {
	return []string{
		fmt.Sprintf("sudo mv %s /etc/systemd/system/", service),
		fmt.Sprintf("sudo mv %s /etc/systemd/system/", timer),
		"sudo systemctl daemon-reload",
		fmt.Sprintf("sudo systemctl enable %s", TimerFile),
		fmt.Sprintf("sudo systemctl start %s", TimerFile),
	}
}
