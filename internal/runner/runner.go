// Package runner executes the external programs provisioning depends on, such
// as systemctl and etcdctl, streaming their output into the structured log.
package runner

import (
	"bytes"
	"context"
	"time"

	"github.com/kballard/go-shellquote"
	"github.com/rs/zerolog"
	consolestream "github.com/wolfeidau/console-stream"
	"github.com/wolfeidau/sailor/internal/fault"
)

// Runner runs a command to completion. A non-zero exit is an error.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) error
}

// Process runs commands as child processes using console-stream.
type Process struct {
	logger        zerolog.Logger
	env           map[string]string
	flushInterval time.Duration
}

// Option configures a Process.
type Option func(*Process)

// WithEnv adds environment variables to every command.
func WithEnv(env map[string]string) Option {
	return func(p *Process) {
		for k, v := range env {
			p.env[k] = v
		}
	}
}

// WithFlushInterval sets how often buffered output is flushed to the log.
func WithFlushInterval(d time.Duration) Option {
	return func(p *Process) {
		p.flushInterval = d
	}
}

// NewProcess returns a Runner logging through logger.
func NewProcess(logger zerolog.Logger, opts ...Option) *Process {
	p := &Process{
		logger:        logger,
		env:           map[string]string{},
		flushInterval: 100 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

var _ Runner = (*Process)(nil)

// Run executes name with args and blocks until it exits.
func (p *Process) Run(ctx context.Context, name string, args ...string) error {
	cmdline := shellquote.Join(append([]string{name}, args...)...)
	logger := p.logger.With().Str("cmd", cmdline).Logger()

	logger.Debug().Msg("running command")

	processOpts := []consolestream.ProcessOption{
		consolestream.WithPipeMode(),
		consolestream.WithFlushInterval(p.flushInterval),
	}
	if len(p.env) > 0 {
		processOpts = append(processOpts, consolestream.WithEnvMap(p.env))
	}

	process := consolestream.NewProcess(name, args, processOpts...)

	var lastError error
	for event, err := range process.ExecuteAndStream(ctx) {
		if err != nil {
			lastError = err
			break
		}

		switch e := event.Event.(type) {
		case *consolestream.OutputData:
			for _, line := range bytes.Split(bytes.TrimRight(e.Data, "\n"), []byte("\n")) {
				if len(line) > 0 {
					logger.Debug().Bytes("output", line).Msg("command output")
				}
			}
		case *consolestream.ProcessEnd:
			if e.ExitCode != 0 {
				return fault.Newf(fault.ServiceManager, "%s exited with code %d", cmdline, e.ExitCode)
			}
			logger.Info().Dur("duration", e.Duration).Msg("command completed")
		}
	}

	if lastError != nil {
		return fault.Wrap(fault.ServiceManager, lastError, "failed to run "+cmdline)
	}

	return nil
}
