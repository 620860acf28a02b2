package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAppliesDefaults(t *testing.T) {
	s := New("test", zerolog.Nop(), Config{FailureBackoff: time.Second})
	require.NotNil(t, s.root)
}

func TestScheduleRunsTaskImmediatelyAndPeriodically(t *testing.T) {
	var runs atomic.Int32
	s := New("test", zerolog.Nop(), Config{})
	s.Schedule("counter", 10*time.Millisecond, Job{
		Task: func(context.Context) error {
			runs.Add(1)
			return nil
		},
	})

	ctx, cancel := context.WithCancel(context.Background())
	errCh := s.ServeBackground(ctx)

	require.Eventually(t, func() bool { return runs.Load() >= 3 }, 2*time.Second, 5*time.Millisecond)
	cancel()
	<-errCh
}

func TestTaskErrorsDoNotStopCadence(t *testing.T) {
	var runs atomic.Int32
	s := New("test", zerolog.Nop(), Config{})
	s.Schedule("failing", 10*time.Millisecond, Job{
		Task: func(context.Context) error {
			runs.Add(1)
			return errors.New("update failed")
		},
	})

	ctx, cancel := context.WithCancel(context.Background())
	errCh := s.ServeBackground(ctx)

	require.Eventually(t, func() bool { return runs.Load() >= 3 }, 2*time.Second, 5*time.Millisecond)
	cancel()
	<-errCh
}

func TestPrepareFailureIsRetried(t *testing.T) {
	var prepares, runs atomic.Int32
	s := New("test", zerolog.Nop(), Config{})
	s.Schedule("setup", time.Hour, Job{
		Prepare: func(context.Context) error {
			if prepares.Add(1) < 3 {
				return errors.New("not ready")
			}
			return nil
		},
		Task: func(context.Context) error {
			runs.Add(1)
			return nil
		},
		RetryDelay: time.Millisecond,
	})

	ctx, cancel := context.WithCancel(context.Background())
	errCh := s.ServeBackground(ctx)

	require.Eventually(t, func() bool { return runs.Load() == 1 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, int32(3), prepares.Load())
	cancel()
	<-errCh
}

func TestPeriodicStopsOnCancel(t *testing.T) {
	p := &periodic{
		name:     "stop",
		interval: time.Hour,
		job:      Job{Task: func(context.Context) error { return nil }},
		logger:   zerolog.Nop(),
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Serve(ctx) }()

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("periodic service ignored cancellation")
	}
	assert.Equal(t, "stop", p.String())
}

func TestPrepareErrorIsReturned(t *testing.T) {
	p := &periodic{
		name:     "prep",
		interval: time.Hour,
		job: Job{
			Prepare: func(context.Context) error { return errors.New("boom") },
		},
		logger: zerolog.Nop(),
	}

	err := p.Serve(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "prepare prep: boom")
}
