//go:build !windows

package node

import (
	"os"
	"os/exec"
	"syscall"
)

// startDetached launches bin in its own session so it outlives the
// manager, with stdout and stderr redirected to logFile.
func startDetached(bin string, args []string, logFile *os.File) (int, error) {
	cmd := exec.Command(bin, args...)
	cmd.Stdout = logFile
	cmd.Stderr = logFile
	cmd.Stdin = nil
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
	if err := cmd.Start(); err != nil {
		return 0, err
	}
	pid := cmd.Process.Pid
	// Reap the child when it exits so it never lingers as a zombie.
	go cmd.Wait()
	return pid, nil
}
