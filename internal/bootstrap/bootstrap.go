// Package bootstrap makes sure the inference service answers before the
// pipeline issues any generation call, starting it in the background when
// it does not.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// ErrServiceUnreachable is returned when the service could not be reached,
// either because it could not be launched or because it never answered.
var ErrServiceUnreachable = errors.New("inference service unreachable")

const (
	DefaultMaxAttempts  = 5
	DefaultPollInterval = 2 * time.Second
)

// Prober checks reachability. It must not block longer than its own timeout.
type Prober interface {
	Probe(ctx context.Context) bool
}

// Launcher starts the service out of process without waiting for it.
type Launcher interface {
	Launch() error
}

type Options struct {
	MaxAttempts  int
	PollInterval time.Duration
}

type Bootstrapper struct {
	prober   Prober
	launcher Launcher
	opts     Options
	log      zerolog.Logger
	sleep    func(ctx context.Context, d time.Duration) error
}

// New fills zero Options with the defaults (5 attempts, 2s apart).
func New(prober Prober, launcher Launcher, opts Options, log zerolog.Logger) *Bootstrapper {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = DefaultMaxAttempts
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	return &Bootstrapper{
		prober:   prober,
		launcher: launcher,
		opts:     opts,
		log:      log,
		sleep:    sleepContext,
	}
}

// EnsureRunning returns nil once the service answers. After a failed first
// probe it launches the service and probes exactly MaxAttempts more times,
// PollInterval apart.
func (b *Bootstrapper) EnsureRunning(ctx context.Context) error {
	if b.prober.Probe(ctx) {
		b.log.Debug().Msg("inference service already running")
		return nil
	}

	b.log.Info().Msg("trying to start the inference service")
	if err := b.launcher.Launch(); err != nil {
		return fmt.Errorf("%w: launch failed: %w", ErrServiceUnreachable, err)
	}

	for attempt := 1; attempt <= b.opts.MaxAttempts; attempt++ {
		if err := b.sleep(ctx, b.opts.PollInterval); err != nil {
			return err
		}
		if b.prober.Probe(ctx) {
			b.log.Info().Int("attempt", attempt).Msg("inference service started")
			return nil
		}
		b.log.Info().Msgf("waiting for the inference service (%d/%d)", attempt, b.opts.MaxAttempts)
	}
	return fmt.Errorf("%w: no answer after %d attempts", ErrServiceUnreachable, b.opts.MaxAttempts)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
