package coordinator

import (
	"time"

	"github.com/s0up4200/bazarrwatch/bazarr"
)

// Observer receives diagnostics about credential checks and refresh cycles
type Observer interface {
	ValidationFinished(outcome bazarr.Outcome)
	RefreshSucceeded(elapsed time.Duration, snap bazarr.Snapshot)
	RefreshFailed(elapsed time.Duration, err error)
}

type nopObserver struct{}

func (nopObserver) ValidationFinished(bazarr.Outcome)                {}
func (nopObserver) RefreshSucceeded(time.Duration, bazarr.Snapshot) {}
func (nopObserver) RefreshFailed(time.Duration, error)               {}

// Option configures a Coordinator
type Option func(*Coordinator)

// WithObserver installs a diagnostics observer
func WithObserver(o Observer) Option {
	return func(c *Coordinator) {
		if o != nil {
			c.observer = o
		}
	}
}

// WithClock overrides the time source used for status timestamps
func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) {
		if now != nil {
			c.now = now
		}
	}
}
