package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"calbot/pkg/logx"
)

func TestOpen_DisabledReturnsNil(t *testing.T) {
	for _, d := range []string{"", "none", " NONE "} {
		st, err := Open(Config{Driver: d}, logx.Nop())
		require.NoError(t, err)
		assert.Nil(t, st)
	}
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open(Config{Driver: "redis", Path: "x"}, logx.Nop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis")
}

func TestOpen_PathRequired(t *testing.T) {
	_, err := Open(Config{Driver: "file"}, logx.Nop())
	require.Error(t, err)
	_, err = Open(Config{Driver: "sqlite"}, logx.Nop())
	require.Error(t, err)
}

func exerciseStore(t *testing.T, st Store) {
	t.Helper()
	ctx := context.Background()
	base := time.Date(2024, 3, 10, 8, 0, 0, 0, time.UTC)

	require.NoError(t, st.AppendAudit(ctx, AuditEntry{
		At: base, ActorID: 42, ActorUsername: "alice", ChatID: -100, Command: "schedule_enable", Target: "daily_calendar", OK: true,
	}))

	for i := 0; i < 5; i++ {
		task := "daily_calendar"
		if i%2 == 1 {
			task = "weekly"
		}
		r := RunRecord{
			At:      base.Add(time.Duration(i) * time.Minute),
			Task:    task,
			Trigger: "schedule",
			Invoked: true,
			TookMS:  int64(i),
		}
		if i == 4 {
			r.Error = "boom"
		}
		require.NoError(t, st.AppendRun(ctx, r))
	}

	all, err := st.RecentRuns(ctx, "", 10)
	require.NoError(t, err)
	require.Len(t, all, 5)
	assert.Equal(t, int64(4), all[0].TookMS, "newest first")
	assert.Equal(t, "boom", all[0].Error)
	assert.False(t, all[0].OK())
	assert.True(t, all[1].OK())

	daily, err := st.RecentRuns(ctx, "daily_calendar", 2)
	require.NoError(t, err)
	require.Len(t, daily, 2)
	for _, r := range daily {
		assert.Equal(t, "daily_calendar", r.Task)
	}
	assert.True(t, daily[0].At.After(daily[1].At))

	none, err := st.RecentRuns(ctx, "daily_calendar", 0)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestFileStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "calbot.db")
	st, err := Open(Config{Driver: "file", Path: path}, logx.Nop())
	require.NoError(t, err)
	exerciseStore(t, st)
	require.NoError(t, st.Close())

	b, err := os.ReadFile(filepath.Join(filepath.Dir(path), "calbot.audit.jsonl"))
	require.NoError(t, err)
	assert.Contains(t, string(b), `"command":"schedule_enable"`)
	assert.Equal(t, 1, strings.Count(string(b), "\n"))
}

func TestFileStore_ReplaysRunsOnOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "calbot.json")
	st, err := Open(Config{Driver: "file", Path: path}, logx.Nop())
	require.NoError(t, err)
	require.NoError(t, st.AppendRun(context.Background(), RunRecord{Task: "a", Trigger: "manual", Invoked: true}))
	require.NoError(t, st.Close())

	// A torn trailing line must not break replay.
	f, err := os.OpenFile(filepath.Join(filepath.Dir(path), "calbot.runs.jsonl"), os.O_APPEND|os.O_WRONLY, 0o600)
	require.NoError(t, err)
	_, _ = f.WriteString(`{"task":"b",`)
	require.NoError(t, f.Close())

	st, err = Open(Config{Driver: "file", Path: path}, logx.Nop())
	require.NoError(t, err)
	defer st.Close()
	runs, err := st.RecentRuns(context.Background(), "", 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "a", runs[0].Task)
	assert.Equal(t, "manual", runs[0].Trigger)
}

func TestFileStore_ClosedRejectsWrites(t *testing.T) {
	st, err := Open(Config{Driver: "file", Path: filepath.Join(t.TempDir(), "x")}, logx.Nop())
	require.NoError(t, err)
	require.NoError(t, st.Close())
	assert.Error(t, st.AppendAudit(context.Background(), AuditEntry{}))
	assert.Error(t, st.AppendRun(context.Background(), RunRecord{Task: "a"}))
}

func TestAppendCapped(t *testing.T) {
	var runs []RunRecord
	for i := 0; i < fileRunsCap+10; i++ {
		runs = appendCapped(runs, RunRecord{Task: "t", TookMS: int64(i)})
	}
	require.Len(t, runs, fileRunsCap)
	assert.Equal(t, int64(10), runs[0].TookMS)
}

func TestSQLiteStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "calbot.sqlite")
	st, err := Open(Config{Driver: "sqlite", Path: path, BusyTimeout: time.Second}, logx.Nop())
	require.NoError(t, err)
	defer st.Close()
	exerciseStore(t, st)
}

func TestSQLiteStore_ReopenKeepsHistory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "calbot.sqlite")
	st, err := Open(Config{Driver: "sqlite3", Path: path}, logx.Nop())
	require.NoError(t, err)
	require.NoError(t, st.AppendRun(context.Background(), RunRecord{Task: "a", Trigger: "schedule", Skipped: "disabled"}))
	require.NoError(t, st.Close())

	st, err = Open(Config{Driver: "sqlite", Path: path}, logx.Nop())
	require.NoError(t, err)
	defer st.Close()
	runs, err := st.RecentRuns(context.Background(), "a", 5)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "disabled", runs[0].Skipped)
	assert.False(t, runs[0].Invoked)
}
