package supervisor

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) { goleak.VerifyTestMain(m) }

func waitCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestGoRecordsFirstError(t *testing.T) {
	s := New(context.Background())
	boom := errors.New("boom")
	s.Go("a", func(context.Context) error { return boom })
	s.Go("b", func(context.Context) error { return nil })

	err := s.Wait(waitCtx(t))
	require.ErrorIs(t, err, boom)
	assert.ErrorContains(t, err, "a: boom")
	assert.Equal(t, uint64(2), s.Counters().Started)
	assert.Zero(t, s.Counters().Active)
}

func TestGoRecoversPanic(t *testing.T) {
	s := New(context.Background(), WithCancelOnError(true))
	s.Go0("panics", func(context.Context) { panic("oops") })
	s.Go0("waits", func(ctx context.Context) { <-ctx.Done() })

	err := s.Wait(waitCtx(t))
	assert.ErrorContains(t, err, "panic: oops")
	assert.Error(t, s.Context().Err())
}

func TestCanceledIsNotAnError(t *testing.T) {
	s := New(context.Background())
	s.Go("loop", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	assert.NoError(t, s.Stop(waitCtx(t)))
}

func TestGoRestartRetriesUntilClean(t *testing.T) {
	s := New(context.Background())
	var runs atomic.Int32
	s.GoRestart("flaky", func(context.Context) error {
		if runs.Add(1) < 3 {
			return errors.New("transient")
		}
		return nil
	}, WithRestartBackoff(time.Millisecond, 2*time.Millisecond))

	require.NoError(t, s.Wait(waitCtx(t)))
	assert.Equal(t, int32(3), runs.Load())
}

func TestGoRestartGivesUp(t *testing.T) {
	s := New(context.Background())
	var runs atomic.Int32
	s.GoRestart0("dies", func(context.Context) {
		runs.Add(1)
		panic("always")
	},
		WithRestartBackoff(time.Millisecond, time.Millisecond),
		WithMaxRestarts(2),
		WithFatalOnFinalError(true),
	)

	err := s.Wait(waitCtx(t))
	assert.ErrorContains(t, err, "dies: panic: always")
	assert.Equal(t, int32(3), runs.Load())
}

func TestGoRestartRestartsCleanExitWhenAsked(t *testing.T) {
	s := New(context.Background())
	var runs atomic.Int32
	s.GoRestart("poll", func(context.Context) error {
		if runs.Add(1) == 2 {
			s.Cancel()
		}
		return nil
	}, WithStopOnCleanExit(false), WithRestartBackoff(time.Millisecond, time.Millisecond))

	require.NoError(t, s.Wait(waitCtx(t)))
	assert.Equal(t, int32(2), runs.Load())
}

func TestWaitHonoursContext(t *testing.T) {
	s := New(context.Background())
	s.Go0("stuck", func(ctx context.Context) { <-ctx.Done() })

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, s.Wait(ctx), context.DeadlineExceeded)
	require.NoError(t, s.Stop(waitCtx(t)))
}
