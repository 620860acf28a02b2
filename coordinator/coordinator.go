// Package coordinator owns the refresh state of a monitored Bazarr instance.
//
// A Coordinator runs the startup credential check, executes refresh ticks,
// keeps the last good Snapshot visible across failures and notifies
// subscribers after every stored result.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/s0up4200/bazarrwatch/bazarr"
)

// State names the position of the coordinator in its lifecycle
type State string

const (
	StateUninitialized State = "uninitialized"
	StateHealthy       State = "healthy"
	StateDegraded      State = "degraded"
	StateAuthFailed    State = "auth_failed"
)

// Update is delivered to listeners after a refresh result has been stored
type Update struct {
	Snapshot    bazarr.Snapshot
	HasSnapshot bool
	Err         error
}

// Listener is called synchronously after each stored refresh. Listeners may
// read the coordinator but must not call Refresh or ReplaceAPIKey.
type Listener func(Update)

// Subscription identifies a registered listener
type Subscription uint64

// Status is a point-in-time view of the refresh state
type Status struct {
	State       State     `json:"state"`
	BaseURL     string    `json:"base_url"`
	Ready       bool      `json:"ready"`
	LastError   string    `json:"last_error,omitempty"`
	LastAttempt time.Time `json:"last_attempt"`
	LastSuccess time.Time `json:"last_success"`
}

// Coordinator drives refreshes against one Bazarr instance
type Coordinator struct {
	api      bazarr.API
	logger   zerolog.Logger
	observer Observer
	now      func() time.Time

	// refreshMu serializes startup checks, ticks and key replacement
	refreshMu sync.Mutex

	mu          sync.RWMutex
	cfg         bazarr.ConnectionConfig
	snapshot    *bazarr.Snapshot
	lastErr     error
	state       State
	ready       bool
	closed      bool
	lastAttempt time.Time
	lastSuccess time.Time
	listeners   map[Subscription]Listener
	nextSub     Subscription

	// keyChanged is closed and swapped by each ReplaceAPIKey
	keyChanged chan struct{}
}

// New creates a coordinator for cfg. Nothing is fetched until Startup succeeds.
func New(api bazarr.API, cfg bazarr.ConnectionConfig, logger zerolog.Logger, opts ...Option) *Coordinator {
	c := &Coordinator{
		api:        api,
		logger:     logger,
		observer:   nopObserver{},
		now:        time.Now,
		cfg:        cfg,
		state:      StateUninitialized,
		listeners:  make(map[Subscription]Listener),
		keyChanged: make(chan struct{}),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Startup validates the current credentials. It returns an error wrapping
// ErrAuthFailed for a rejected key and ErrNotReady when Bazarr is unreachable.
func (c *Coordinator) Startup(ctx context.Context) error {
	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()

	return c.startupLocked(ctx)
}

func (c *Coordinator) startupLocked(ctx context.Context) error {
	c.mu.RLock()
	cfg, closed := c.cfg, c.closed
	c.mu.RUnlock()

	if closed {
		return ErrClosed
	}

	outcome := c.api.Validate(ctx, cfg)
	c.observer.ValidationFinished(outcome)

	c.mu.Lock()
	defer c.mu.Unlock()

	switch outcome {
	case bazarr.OutcomeOK:
		c.ready = true
		if c.state == StateAuthFailed {
			c.lastErr = nil
			c.state = StateUninitialized
			if c.snapshot != nil {
				c.state = StateHealthy
			}
		}
		c.logger.Info().Str("url", cfg.BaseURL).Msg("Bazarr credentials verified")
		return nil

	case bazarr.OutcomeInvalidAPIKey:
		err := fmt.Errorf("%w: %s rejected the API key", ErrAuthFailed, cfg.BaseURL)
		c.ready = false
		c.state = StateAuthFailed
		c.lastErr = err
		return err

	default:
		err := fmt.Errorf("%w: cannot connect to %s", ErrNotReady, cfg.BaseURL)
		c.ready = false
		c.lastErr = err
		return err
	}
}

// Refresh runs one tick. A failed fetch keeps the previous snapshot and is
// returned as *UpdateFailedError. While the key is rejected it returns an
// error wrapping ErrAuthFailed. If ctx is cancelled or the coordinator is
// shut down while the fetch is in flight, the result is dropped.
func (c *Coordinator) Refresh(ctx context.Context) error {
	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()

	c.mu.RLock()
	cfg, ready, closed, state := c.cfg, c.ready, c.closed, c.state
	c.mu.RUnlock()

	switch {
	case closed:
		return ErrClosed
	case !ready && state == StateAuthFailed:
		return fmt.Errorf("%w: polling paused until the API key for %s is replaced", ErrAuthFailed, cfg.BaseURL)
	case !ready:
		return ErrNotReady
	}

	start := c.now()
	snap, fetchErr := c.api.Fetch(ctx, cfg)
	elapsed := c.now().Sub(start)

	if err := ctx.Err(); err != nil {
		c.logger.Debug().Err(err).Msg("Discarding refresh result after cancellation")
		return err
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}

	c.lastAttempt = start
	var update Update
	var result error

	if fetchErr != nil {
		result = &UpdateFailedError{Err: fetchErr}
		c.lastErr = result
		c.state = StateDegraded
	} else {
		stored := snap.Clone()
		c.snapshot = &stored
		c.lastErr = nil
		c.state = StateHealthy
		c.lastSuccess = start
	}

	update.Err = result
	if c.snapshot != nil {
		update.Snapshot = *c.snapshot
		update.HasSnapshot = true
	}
	listeners := c.listenersLocked()
	c.mu.Unlock()

	if fetchErr != nil {
		c.observer.RefreshFailed(elapsed, fetchErr)
		c.logger.Error().Err(result).Dur("elapsed", elapsed).Msg("Bazarr refresh failed")
	} else {
		c.observer.RefreshSucceeded(elapsed, snap)
		c.logger.Debug().
			Int("wanted_movies", snap.WantedMovies).
			Int("wanted_episodes", snap.WantedEpisodes).
			Int("health_issues", len(snap.HealthIssues)).
			Dur("elapsed", elapsed).
			Msg("Bazarr refresh succeeded")
	}

	for _, listener := range listeners {
		u := update
		if u.HasSnapshot {
			u.Snapshot = u.Snapshot.Clone()
		}
		listener(u)
	}

	return result
}

// AwaitReady runs the startup check. On a rejected key it waits for
// ReplaceAPIKey instead of failing, so polling resumes once credentials are
// fixed. Unreachable errors are returned for the caller to retry later.
func (c *Coordinator) AwaitReady(ctx context.Context) error {
	for {
		replaced := c.CredentialsReplaced()

		err := c.Startup(ctx)
		if err == nil || !errors.Is(err, ErrAuthFailed) {
			return err
		}

		c.logger.Error().Err(err).Msg("Reauthentication required before polling can resume")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-replaced:
		}

		if c.Ready() {
			return nil
		}
	}
}

// ReplaceAPIKey swaps in a new key and performs a fresh startup check with it.
// Polling stays paused until that check succeeds.
func (c *Coordinator) ReplaceAPIKey(ctx context.Context, key string) error {
	if key == "" {
		return fmt.Errorf("%w: API key is required", bazarr.ErrInvalidConfig)
	}

	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()

	c.mu.Lock()
	c.cfg = c.cfg.WithAPIKey(key)
	c.ready = false
	c.mu.Unlock()

	err := c.startupLocked(ctx)

	c.mu.Lock()
	close(c.keyChanged)
	c.keyChanged = make(chan struct{})
	c.mu.Unlock()

	return err
}

// CredentialsReplaced returns a channel that is closed once the next
// ReplaceAPIKey call has finished its startup check
func (c *Coordinator) CredentialsReplaced() <-chan struct{} {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.keyChanged
}

// ValidateCredentials checks a base URL and key without touching coordinator state
func (c *Coordinator) ValidateCredentials(ctx context.Context, baseURL, apiKey string) bazarr.Outcome {
	outcome := c.api.Validate(ctx, bazarr.NewConnectionConfig(baseURL, apiKey))
	c.observer.ValidationFinished(outcome)
	return outcome
}

// Snapshot returns a copy of the latest successful snapshot
func (c *Coordinator) Snapshot() (bazarr.Snapshot, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.snapshot == nil {
		return bazarr.Snapshot{}, false
	}
	return c.snapshot.Clone(), true
}

// LastError returns the error of the latest startup check or tick, if any
func (c *Coordinator) LastError() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastErr
}

// Ready reports whether the last startup check succeeded
func (c *Coordinator) Ready() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ready
}

// Config returns the connection config currently in use
func (c *Coordinator) Config() bazarr.ConnectionConfig {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cfg
}

// Status returns the current refresh state
func (c *Coordinator) Status() Status {
	c.mu.RLock()
	defer c.mu.RUnlock()

	status := Status{
		State:       c.state,
		BaseURL:     c.cfg.BaseURL,
		Ready:       c.ready,
		LastAttempt: c.lastAttempt,
		LastSuccess: c.lastSuccess,
	}
	if c.lastErr != nil {
		status.LastError = c.lastErr.Error()
	}
	return status
}

// Subscribe registers a listener for refresh updates
func (c *Coordinator) Subscribe(listener Listener) Subscription {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.nextSub++
	c.listeners[c.nextSub] = listener
	return c.nextSub
}

// Unsubscribe removes a listener. Unknown subscriptions are ignored.
func (c *Coordinator) Unsubscribe(sub Subscription) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.listeners, sub)
}

// Shutdown stops the coordinator. Results of fetches still in flight are
// discarded and later calls return ErrClosed.
func (c *Coordinator) Shutdown() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.closed = true
	c.ready = false
	clear(c.listeners)
}

// listenersLocked returns listeners in subscription order; c.mu must be held
func (c *Coordinator) listenersLocked() []Listener {
	subs := slices.Sorted(maps.Keys(c.listeners))
	listeners := make([]Listener, 0, len(subs))
	for _, sub := range subs {
		listeners = append(listeners, c.listeners[sub])
	}
	return listeners
}
