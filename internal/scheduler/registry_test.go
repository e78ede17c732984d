package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"calbot/internal/transport"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	return New(Config{Timezone: "Asia/Seoul"}, newFakeResolver(true), logxTest(t), nil)
}

func TestListEmpty(t *testing.T) {
	t.Parallel()
	s := newTestService(t)
	assert.Empty(t, s.List())
	assert.Empty(t, s.Names())
}

func TestAddListsZeroPaddedTime(t *testing.T) {
	t.Parallel()
	s := newTestService(t)
	for h := 0; h <= 23; h++ {
		for m := 0; m <= 59; m++ {
			_, err := s.Add("t", noop, h, m, true)
			require.NoError(t, err)
			got := s.List()
			require.Len(t, got, 1)
			want := string([]byte{byte('0' + h/10), byte('0' + h%10), ':', byte('0' + m/10), byte('0' + m%10)})
			require.Equal(t, want, got[0].Time)
		}
	}
}

func TestAddRejectsBadInput(t *testing.T) {
	t.Parallel()
	s := newTestService(t)
	tests := []struct {
		name    string
		task    string
		payload Payload
		h, m    int
		want    error
	}{
		{"hour high", "a", noop, 24, 0, ErrInvalidTime},
		{"minute high", "a", noop, 8, 60, ErrInvalidTime},
		{"negative", "a", noop, -1, 0, ErrInvalidTime},
		{"blank name", "  ", noop, 8, 0, ErrNameRequired},
		{"nil payload", "a", nil, 8, 0, ErrNoPayload},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Add(tt.task, tt.payload, tt.h, tt.m, true)
			assert.ErrorIs(t, err, tt.want)
		})
	}
	assert.Empty(t, s.List())
}

func TestDailyCalendarScenario(t *testing.T) {
	t.Parallel()
	s := newTestService(t)
	_, err := s.Add("daily_calendar", noop, 8, 0, true)
	require.NoError(t, err)

	got := s.List()
	require.Len(t, got, 1)
	assert.Equal(t, "daily_calendar", got[0].Name)
	assert.Equal(t, "08:00", got[0].Time)
	assert.True(t, got[0].Enabled)
	assert.False(t, got[0].Running)
	assert.Nil(t, got[0].ChannelID)
	assert.True(t, got[0].Next.IsZero())

	assert.Equal(t, 1, s.StartAll())
	got = s.List()
	assert.True(t, got[0].Running)
	assert.False(t, got[0].Next.IsZero())
	assert.Equal(t, 8, got[0].Next.In(s.Location()).Hour())
}

func TestChannelBindingVisibleRegardlessOfState(t *testing.T) {
	t.Parallel()
	s := newTestService(t)
	s.SetTarget("daily_calendar", transport.ChatTarget{ChatID: 123})
	_, err := s.Add("daily_calendar", noop, 8, 0, true)
	require.NoError(t, err)

	info := s.List()[0]
	require.NotNil(t, info.ChannelID)
	assert.Equal(t, int64(123), *info.ChannelID)

	s.StartTask("daily_calendar")
	info = s.List()[0]
	require.NotNil(t, info.ChannelID)
	assert.Equal(t, int64(123), *info.ChannelID)

	s.SetTarget("daily_calendar", transport.ChatTarget{ChatID: 456})
	to, ok := s.Target("daily_calendar")
	assert.True(t, ok)
	assert.Equal(t, int64(456), to.ChatID)

	s.SetTarget("daily_calendar", transport.ChatTarget{ChatID: 456, ThreadID: 9})
	assert.Equal(t, 9, s.List()[0].ThreadID)

	// bindings for tasks that do not exist yet are kept too
	s.SetTarget("later", transport.ChatTarget{ChatID: 789})
	assert.Equal(t, map[string]transport.ChatTarget{
		"daily_calendar": {ChatID: 456, ThreadID: 9},
		"later":          {ChatID: 789},
	}, s.Bindings())
}

func TestStartAllArmsOnlyEnabled(t *testing.T) {
	t.Parallel()
	s := newTestService(t)
	_, _ = s.Add("on", noop, 8, 0, true)
	_, _ = s.Add("off", noop, 9, 0, false)
	assert.Equal(t, 1, s.StartAll())

	byName := map[string]TaskInfo{}
	for _, it := range s.List() {
		byName[it.Name] = it
	}
	assert.True(t, byName["on"].Running)
	assert.False(t, byName["off"].Running)
	assert.Equal(t, []string{"on", "off"}, s.Names())
}

func TestDoubleStartIsIdempotent(t *testing.T) {
	t.Parallel()
	s := newTestService(t)
	_, _ = s.Add("a", noop, 8, 0, false)
	require.True(t, s.StartTask("a"))
	require.True(t, s.StartTask("a"))

	info, ok := s.Get("a")
	require.True(t, ok)
	assert.True(t, info.Running)
	assert.True(t, info.Enabled)
	assert.Len(t, s.c.Entries(), 1)

	require.True(t, s.StopTask("a"))
	require.True(t, s.StopTask("a"))
	assert.Empty(t, s.c.Entries())
	assert.False(t, s.StartTask("missing"))
	assert.False(t, s.StopTask("missing"))
}

func TestReplaceDisarmsOldHandle(t *testing.T) {
	t.Parallel()
	s := newTestService(t)
	_, _ = s.Add("first", noop, 7, 0, true)
	old, err := s.Add("daily", noop, 8, 0, true)
	require.NoError(t, err)
	s.StartAll()
	require.True(t, old.Running())

	fresh, err := s.Add("daily", noop, 9, 30, true)
	require.NoError(t, err)
	assert.False(t, old.Running())
	assert.False(t, fresh.Running())
	assert.Len(t, s.c.Entries(), 1) // only "first"

	s.StartTask("daily")
	assert.False(t, old.Running())
	assert.True(t, fresh.Running())
	assert.Len(t, s.c.Entries(), 2)

	// Replacement keeps the listing position.
	assert.Equal(t, []string{"first", "daily"}, s.Names())
	info, _ := s.Get("daily")
	assert.Equal(t, "09:30", info.Time)
}

func TestUpdateTime(t *testing.T) {
	t.Parallel()

	t.Run("missing task", func(t *testing.T) {
		s := newTestService(t)
		_, _ = s.Add("a", noop, 8, 0, true)
		before := s.List()
		assert.False(t, s.UpdateTime("nope", 9, 0))
		assert.Equal(t, before, s.List())
	})

	t.Run("running stays running", func(t *testing.T) {
		s := newTestService(t)
		h, _ := s.Add("a", noop, 8, 0, true)
		s.StartTask("a")
		require.True(t, s.UpdateTime("a", 21, 5))
		info, _ := s.Get("a")
		assert.True(t, info.Running)
		assert.True(t, info.Enabled)
		assert.Equal(t, "21:05", info.Time)
		assert.Len(t, s.c.Entries(), 1)
		assert.True(t, h.Running())
	})

	t.Run("stopped stays stopped", func(t *testing.T) {
		s := newTestService(t)
		_, _ = s.Add("a", noop, 8, 0, true)
		require.True(t, s.UpdateTime("a", 6, 45))
		info, _ := s.Get("a")
		assert.False(t, info.Running)
		assert.True(t, info.Enabled)
		assert.Equal(t, "06:45", info.Time)
		assert.Empty(t, s.c.Entries())
	})

	t.Run("failed rebuild keeps old trigger", func(t *testing.T) {
		s := newTestService(t)
		_, _ = s.Add("a", noop, 8, 0, true)
		s.StartTask("a")
		assert.False(t, s.UpdateTime("a", 25, 0))
		assert.False(t, s.UpdateTime("a", 8, -1))
		info, ok := s.Get("a")
		require.True(t, ok)
		assert.True(t, info.Running)
		assert.Equal(t, "08:00", info.Time)
		assert.Len(t, s.c.Entries(), 1)
	})
}

func TestRemove(t *testing.T) {
	t.Parallel()
	s := newTestService(t)
	h, _ := s.Add("a", noop, 8, 0, true)
	s.SetTarget("a", transport.ChatTarget{ChatID: 9})
	s.StartAll()
	assert.True(t, s.Remove("a"))
	assert.False(t, h.Running())
	assert.Empty(t, s.List())
	assert.Empty(t, s.c.Entries())
	assert.False(t, s.Remove("a"))

	// Binding outlives the task.
	to, ok := s.Target("a")
	assert.True(t, ok)
	assert.Equal(t, int64(9), to.ChatID)
}

func TestStopAllDisablesEverything(t *testing.T) {
	t.Parallel()
	s := newTestService(t)
	_, _ = s.Add("a", noop, 8, 0, true)
	_, _ = s.Add("b", noop, 9, 0, true)
	s.StartAll()
	s.StopAll()
	for _, it := range s.List() {
		assert.False(t, it.Running, it.Name)
		assert.False(t, it.Enabled, it.Name)
	}
	assert.Zero(t, s.StartAll())
}

func TestTimezoneChangeRearms(t *testing.T) {
	t.Parallel()
	s := New(Config{Timezone: "UTC"}, nil, logxTest(t), nil)
	_, _ = s.Add("a", noop, 8, 0, true)
	_, _ = s.Add("b", noop, 9, 0, false)
	s.StartAll()
	s.Start(context.Background())

	s.Apply(Config{Timezone: "Asia/Seoul"})
	assert.Equal(t, "Asia/Seoul", s.Location().String())
	a, _ := s.Get("a")
	b, _ := s.Get("b")
	assert.True(t, a.Running)
	assert.False(t, b.Running)
	assert.Equal(t, 8, a.Next.In(s.Location()).Hour())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	s.Stop(ctx)
}

func TestStartStopClock(t *testing.T) {
	s := New(Config{}, nil, logxTest(t), nil)
	_, _ = s.Add("a", noop, 8, 0, true)
	s.StartAll()
	s.Start(context.Background())
	s.Start(context.Background())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	s.Stop(ctx)
	s.Stop(ctx)

	info, _ := s.Get("a")
	assert.True(t, info.Running, "entries survive a clock stop")
}
