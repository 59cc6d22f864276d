// Package install runs the ordered provisioning steps that turn a host into a
// cluster node: settings validation, CA resolution and service installation.
package install

import (
	"context"
	"io/fs"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/wolfeidau/sailor/internal/fault"
	"github.com/wolfeidau/sailor/internal/runner"
	"github.com/wolfeidau/sailor/internal/templates"
)

// Installer turns step descriptions into StepFuncs and runs them.
type Installer struct {
	logger   zerolog.Logger
	runner   runner.Runner
	renderer templates.Renderer
	archives fs.FS
	backOff  func() backoff.BackOff
}

// Option configures an Installer.
type Option func(*Installer)

// WithBackOff sets the retry policy for cluster joins.
func WithBackOff(newBackOff func() backoff.BackOff) Option {
	return func(i *Installer) {
		i.backOff = newBackOff
	}
}

// New returns an Installer using the given collaborators. archives holds the
// vendored component archives.
func New(logger zerolog.Logger, r runner.Runner, renderer templates.Renderer, archives fs.FS, opts ...Option) *Installer {
	i := &Installer{
		logger:   logger,
		runner:   r,
		renderer: renderer,
		archives: archives,
		backOff: func() backoff.BackOff {
			return backoff.NewExponentialBackOff()
		},
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Run executes steps in order against initial and stops at the first error.
func (i *Installer) Run(ctx context.Context, initial Context, steps ...Step) (Context, error) {
	logger := i.logger.With().Str("run_id", uuid.NewString()).Logger()
	started := time.Now()

	funcs := make([]StepFunc, 0, len(steps))
	for _, step := range steps {
		funcs = append(funcs, i.logged(logger, step, i.compile(ctx, logger, step)))
	}

	logger.Info().Int("steps", len(steps)).Msg("installation started")

	result, err := Fold(initial, nil, funcs...)
	if err != nil {
		logger.Error().
			Err(err).
			Str("kind", fault.KindOf(err).String()).
			Dur("duration", time.Since(started)).
			Msg("installation failed")
		return result, err
	}

	logger.Info().Dur("duration", time.Since(started)).Msg("installation completed")
	return result, nil
}

func (i *Installer) compile(ctx context.Context, logger zerolog.Logger, step Step) StepFunc {
	switch s := step.(type) {
	case Validate:
		return validateStep
	case ResolveCA:
		return func(c Context) (Context, error) {
			return resolveCA(logger, c, s.KeyPath, s.CertPath)
		}
	case IssueAndInstall:
		switch s.Service {
		case ServiceEtcd:
			return func(c Context) (Context, error) {
				return i.installEtcd(ctx, logger, c)
			}
		default:
			return failStep(fault.Newf(fault.Config, "unknown service %q", s.Service))
		}
	default:
		return failStep(fault.Newf(fault.Other, "unknown step %T", step))
	}
}

func (i *Installer) logged(logger zerolog.Logger, step Step, fn StepFunc) StepFunc {
	return func(c Context) (Context, error) {
		started := time.Now()
		logger.Info().Str("step", step.String()).Msg("running step")

		next, err := fn(c)
		if err != nil {
			logger.Debug().Str("step", step.String()).Err(err).Msg("step failed")
			return next, err
		}

		logger.Info().
			Str("step", step.String()).
			Dur("duration", time.Since(started)).
			Msg("step completed")
		return next, nil
	}
}

func failStep(err error) StepFunc {
	return func(Context) (Context, error) {
		return Context{}, err
	}
}
