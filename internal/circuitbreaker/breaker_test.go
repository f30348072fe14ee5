package circuitbreaker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errUpstream = errors.New("upstream failed")

func failing(context.Context) error { return errUpstream }
func passing(context.Context) error { return nil }

func TestBreaker_OpensAfterThreshold(t *testing.T) {
	t.Parallel()

	var transitions []string
	b := New(Config{
		FailureThreshold: 2,
		Timeout:          time.Minute,
		OnStateChange: func(from, to State) {
			transitions = append(transitions, from.String()+"->"+to.String())
		},
	})
	ctx := context.Background()

	require.ErrorIs(t, b.Execute(ctx, failing), errUpstream)
	require.ErrorIs(t, b.Execute(ctx, failing), errUpstream)
	assert.Equal(t, StateOpen, b.State())

	called := false
	err := b.Execute(ctx, func(context.Context) error {
		called = true
		return nil
	})
	require.ErrorIs(t, err, ErrCircuitOpen)
	assert.False(t, called)
	assert.Equal(t, []string{"closed->open"}, transitions)
}

func TestBreaker_HalfOpenRecovers(t *testing.T) {
	t.Parallel()

	now := time.Now()
	b := New(Config{FailureThreshold: 1, SuccessThreshold: 2, Timeout: time.Second})
	b.now = func() time.Time { return now }
	ctx := context.Background()

	_ = b.Execute(ctx, failing)
	require.Equal(t, StateOpen, b.State())

	now = now.Add(2 * time.Second)
	require.NoError(t, b.Execute(ctx, passing))
	assert.Equal(t, StateHalfOpen, b.State())

	require.NoError(t, b.Execute(ctx, passing))
	assert.Equal(t, StateClosed, b.State())
}

func TestBreaker_HalfOpenFailureReopens(t *testing.T) {
	t.Parallel()

	now := time.Now()
	b := New(Config{FailureThreshold: 1, Timeout: time.Second})
	b.now = func() time.Time { return now }
	ctx := context.Background()

	_ = b.Execute(ctx, failing)
	now = now.Add(2 * time.Second)
	_ = b.Execute(ctx, failing)

	assert.Equal(t, StateOpen, b.State())
}

func TestBreaker_IsFailureFilter(t *testing.T) {
	t.Parallel()

	b := New(Config{
		FailureThreshold: 1,
		IsFailure:        func(err error) bool { return errors.Is(err, errUpstream) },
	})

	_ = b.Execute(context.Background(), func(context.Context) error { return errors.New("client side") })
	assert.Equal(t, StateClosed, b.State())
}
