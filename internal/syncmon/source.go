package syncmon

import (
	"context"
	"io"
	"os/exec"

	"github.com/nxadm/tail"
)

// FollowDockerLogs attaches to a container's log stream. The node writes
// to both stdout and stderr, so the two are merged into one reader.
// Closing the returned reader detaches.
func FollowDockerLogs(ctx context.Context, container string) (io.ReadCloser, error) {
	cmd := exec.CommandContext(ctx, "docker", "logs", "-f", "--tail", "200", container)
	pr, pw := io.Pipe()
	cmd.Stdout = pw
	cmd.Stderr = pw
	if err := cmd.Start(); err != nil {
		pw.Close()
		return nil, err
	}
	go func() {
		err := cmd.Wait()
		pw.CloseWithError(err)
	}()
	return pr, nil
}

// WatchFile tails a native node log file, following rotations, and runs
// the same line handling as WatchStream until the node is synced.
func (m *Monitor) WatchFile(ctx context.Context, path string) error {
	t, err := tail.TailFile(path, tail.Config{
		Follow:    true,
		ReOpen:    true,
		MustExist: false,
		Logger:    tail.DiscardingLogger,
	})
	if err != nil {
		return err
	}
	defer t.Cleanup()
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-t.Lines:
			if !ok {
				return ErrStreamEnded
			}
			if line.Err != nil {
				return line.Err
			}
			if synced := m.handleLine(line.Text); synced {
				return nil
			}
		}
	}
}
