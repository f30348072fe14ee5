package scheduler_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/index-checker/internal/logger"
	"github.com/jonesrussell/index-checker/internal/scheduler"
)

func TestScheduler_AddRejectsBadSpec(t *testing.T) {
	s := scheduler.New(logger.NewNop())

	err := s.Add("cleanup", "every now and then", func(context.Context) error { return nil })
	require.Error(t, err)
	assert.Empty(t, s.Jobs())
}

func TestScheduler_RunRecoversPanics(t *testing.T) {
	s := scheduler.New(logger.NewNop())

	require.NoError(t, s.Add("boom", "@hourly", func(context.Context) error {
		panic("kaboom")
	}))

	assert.NotPanics(t, func() { require.NoError(t, s.Run("boom")) })
}

func TestScheduler_RunUnknownJob(t *testing.T) {
	s := scheduler.New(logger.NewNop())

	err := s.Run("missing")
	assert.ErrorIs(t, err, scheduler.ErrUnknownJob)
}

func TestScheduler_RunPassesErrorsToLog(t *testing.T) {
	s := scheduler.New(logger.NewNop())

	var calls atomic.Int32
	require.NoError(t, s.Add("failing", "@daily", func(context.Context) error {
		calls.Add(1)
		return errors.New("database is locked")
	}))

	require.NoError(t, s.Run("failing"))
	assert.Equal(t, int32(1), calls.Load())
}

func TestScheduler_StartRunsJobs(t *testing.T) {
	s := scheduler.New(logger.NewNop())

	var calls atomic.Int32
	require.NoError(t, s.Add("tick", "@every 1s", func(context.Context) error {
		calls.Add(1)
		return nil
	}))

	ctx, cancel := context.WithCancel(context.Background())
	s.Start(ctx)
	t.Cleanup(func() {
		cancel()
		s.Stop()
	})

	assert.Eventually(t, func() bool { return calls.Load() > 0 }, 3*time.Second, 50*time.Millisecond)
}

func TestScheduler_AddReplacesExisting(t *testing.T) {
	s := scheduler.New(logger.NewNop())

	job := func(context.Context) error { return nil }
	require.NoError(t, s.Add("cleanup", "@hourly", job))
	require.NoError(t, s.Add("cleanup", "@daily", job))

	assert.Len(t, s.Jobs(), 1)
}
