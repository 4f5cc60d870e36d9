package channel

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/Bind-Forward/port/domain/ports"
)

// Process is a worker running as a child process, speaking newline-delimited
// frames on its stdin and stdout. Its stderr is passed through.
type Process struct {
	*Stream

	cmd   *exec.Cmd
	grace time.Duration
	done  chan struct{}
	err   error

	closeOnce sync.Once
	closeErr  error
}

var _ ports.Channel = (*Process)(nil)

// Spawn starts name with args and connects to it.
func Spawn(ctx context.Context, name string, args []string, opts ...Option) (*Process, error) {
	cfg := buildConfig(opts)

	//nolint:gosec // G204: starting the configured worker binary is the purpose
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = cfg.dir
	if len(cfg.env) > 0 {
		cmd.Env = cfg.env
	}
	cmd.Stderr = cfg.stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("worker stdin: %w", err)
	}
	// An explicit pipe keeps Wait from closing stdout before the last
	// frames are read.
	stdout, stdoutW, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("worker stdout: %w", err)
	}
	cmd.Stdout = stdoutW
	if err := cmd.Start(); err != nil {
		_ = stdout.Close()
		_ = stdoutW.Close()
		return nil, fmt.Errorf("start worker %s: %w", name, err)
	}
	_ = stdoutW.Close()
	cfg.logger.DebugContext(ctx, "channel: worker process started", "command", name, "pid", cmd.Process.Pid)

	p := &Process{
		Stream: NewStream(stdout, stdin, opts...),
		cmd:    cmd,
		grace:  cfg.grace,
		done:   make(chan struct{}),
	}
	go func() {
		p.err = cmd.Wait()
		close(p.done)
	}()
	return p, nil
}

// Pid returns the worker's process id.
func (p *Process) Pid() int {
	return p.cmd.Process.Pid
}

// Exited is closed when the worker process has exited.
func (p *Process) Exited() <-chan struct{} {
	return p.done
}

// Close closes the worker's stdin and waits for it to exit, killing it after
// the grace period.
func (p *Process) Close() error {
	p.closeOnce.Do(func() {
		_ = p.Stream.Close()

		select {
		case <-p.done:
		case <-time.After(p.grace):
			_ = p.cmd.Process.Kill()
			<-p.done
		}

		var exitErr *exec.ExitError
		if p.err != nil && !errors.As(p.err, &exitErr) {
			p.closeErr = p.err
		}
	})
	return p.closeErr
}
