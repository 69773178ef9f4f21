// Package runner executes external commands for the manager. Every wallet
// probe and docker invocation goes through the Runner interface so tests
// can substitute canned transcripts.
package runner

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os/exec"
	"time"
)

// Result captures one finished command. A non-zero exit status is not an
// error at this layer; callers decide what the output means.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
	Duration time.Duration
}

// Runner executes commands and returns their captured output.
// Run feeds nothing on stdin. RunInteractive writes input to the child's
// stdin after a settle delay, then closes it; some interactive binaries
// drop input written before their prompt loop is up.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (Result, error)
	RunInteractive(ctx context.Context, input string, settle time.Duration, name string, args ...string) (Result, error)
}

// New returns an exec-backed Runner.
func New() Runner { return execRunner{} }

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) (Result, error) {
	return run(ctx, nil, 0, name, args...)
}

func (execRunner) RunInteractive(ctx context.Context, input string, settle time.Duration, name string, args ...string) (Result, error) {
	return run(ctx, []byte(input), settle, name, args...)
}

func run(ctx context.Context, input []byte, settle time.Duration, name string, args ...string) (Result, error) {
	start := time.Now()
	cmd := exec.CommandContext(ctx, name, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	var stdin io.WriteCloser
	if input != nil {
		var err error
		stdin, err = cmd.StdinPipe()
		if err != nil {
			return Result{}, err
		}
	}

	if err := cmd.Start(); err != nil {
		// Missing or non-executable binary is a real error, not output.
		return Result{}, err
	}

	if input != nil {
		go func() {
			defer stdin.Close()
			if settle > 0 {
				select {
				case <-time.After(settle):
				case <-ctx.Done():
					return
				}
			}
			stdin.Write(input)
		}()
	}

	err := cmd.Wait()
	res := Result{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: time.Since(start),
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			res.ExitCode = exitErr.ExitCode()
			return res, nil
		}
		if ctx.Err() != nil {
			return res, ctx.Err()
		}
		return res, err
	}
	return res, nil
}
