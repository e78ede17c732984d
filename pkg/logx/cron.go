package logx

import (
	"fmt"

	"github.com/robfig/cron/v3"
)

// CronLogger routes robfig/cron's internal logging through l.
// Scheduling chatter goes to debug; job panics and errors go to error.
func CronLogger(l Logger) cron.Logger { return cronLogger{l: l} }

type cronLogger struct{ l Logger }

func (c cronLogger) Info(msg string, keysAndValues ...any) {
	c.l.Debug("cron: "+msg, kvFields(keysAndValues)...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...any) {
	c.l.Error("cron: "+msg, append(kvFields(keysAndValues), Err(err))...)
}

func kvFields(kv []any) []Field {
	out := make([]Field, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		out = append(out, Any(fmt.Sprint(kv[i]), kv[i+1]))
	}
	return out
}
