// Package scheduler runs periodic jobs under a suture supervisor.
//
// A job is prepared once per service start and then ticks at a fixed
// interval. Task failures are logged and never shift the cadence; a failing
// Prepare hands the service back to the supervisor, whose failure backoff
// decides when setup is attempted again.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/thejerf/suture/v4"
)

const defaultInterval = 5 * time.Minute

// Task is one unit of periodic work
type Task func(ctx context.Context) error

// Job describes a periodic service
type Job struct {
	// Prepare runs before the first tick of each service start. Optional.
	Prepare func(ctx context.Context) error

	// Task runs immediately after Prepare and then once per interval.
	Task Task

	// RetryDelay paces restarts after a failed Prepare.
	RetryDelay time.Duration
}

// Scheduler schedules jobs at a fixed interval
type Scheduler interface {
	Schedule(name string, interval time.Duration, job Job) suture.ServiceToken
}

// Config holds supervisor tuning
type Config struct {
	FailureThreshold float64
	FailureDecay     float64
	FailureBackoff   time.Duration
	ShutdownTimeout  time.Duration
}

// DefaultConfig returns suture's stock failure policy
func DefaultConfig() Config {
	return Config{
		FailureThreshold: 5.0,
		FailureDecay:     30.0,
		FailureBackoff:   15 * time.Second,
		ShutdownTimeout:  10 * time.Second,
	}
}

// Supervisor is a Scheduler backed by a suture supervisor
type Supervisor struct {
	root   *suture.Supervisor
	logger zerolog.Logger
}

var _ Scheduler = (*Supervisor)(nil)

// New creates a supervisor. Zero fields in cfg fall back to DefaultConfig.
func New(name string, logger zerolog.Logger, cfg Config) *Supervisor {
	defaults := DefaultConfig()
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = defaults.FailureThreshold
	}
	if cfg.FailureDecay == 0 {
		cfg.FailureDecay = defaults.FailureDecay
	}
	if cfg.FailureBackoff == 0 {
		cfg.FailureBackoff = defaults.FailureBackoff
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = defaults.ShutdownTimeout
	}

	spec := suture.Spec{
		EventHook: func(e suture.Event) {
			logger.Warn().Fields(e.Map()).Msg(e.String())
		},
		FailureThreshold: cfg.FailureThreshold,
		FailureDecay:     cfg.FailureDecay,
		FailureBackoff:   cfg.FailureBackoff,
		Timeout:          cfg.ShutdownTimeout,
	}

	return &Supervisor{
		root:   suture.New(name, spec),
		logger: logger,
	}
}

// Schedule adds a periodic service running job every interval
func (s *Supervisor) Schedule(name string, interval time.Duration, job Job) suture.ServiceToken {
	if interval <= 0 {
		interval = defaultInterval
	}
	return s.root.Add(&periodic{
		name:     name,
		interval: interval,
		job:      job,
		logger:   s.logger.With().Str("job", name).Logger(),
	})
}

// Add supervises an arbitrary service
func (s *Supervisor) Add(svc suture.Service) suture.ServiceToken {
	return s.root.Add(svc)
}

// Serve runs the supervisor until ctx is cancelled
func (s *Supervisor) Serve(ctx context.Context) error {
	return s.root.Serve(ctx)
}

// ServeBackground runs the supervisor in a goroutine
func (s *Supervisor) ServeBackground(ctx context.Context) <-chan error {
	return s.root.ServeBackground(ctx)
}

// periodic adapts a Job to suture.Service
type periodic struct {
	name     string
	interval time.Duration
	job      Job
	logger   zerolog.Logger
}

func (p *periodic) String() string {
	return p.name
}

// Serve implements suture.Service
func (p *periodic) Serve(ctx context.Context) error {
	if p.job.Prepare != nil {
		if err := p.job.Prepare(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			p.logger.Warn().Err(err).Dur("retry_in", p.job.RetryDelay).Msg("Setup failed, retrying later")
			if p.job.RetryDelay > 0 {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(p.job.RetryDelay):
				}
			}
			return fmt.Errorf("prepare %s: %w", p.name, err)
		}
	}

	p.logger.Info().Dur("interval", p.interval).Msg("Starting periodic job")

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		p.tick(ctx)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (p *periodic) tick(ctx context.Context) {
	if p.job.Task == nil {
		return
	}
	if err := p.job.Task(ctx); err != nil && ctx.Err() == nil {
		p.logger.Debug().Err(err).Msg("Periodic task failed")
	}
}
