package app

import (
	"context"
	"time"

	"calbot/internal/eventbus"
	"calbot/internal/scheduler"
	"calbot/internal/storage"
	"calbot/pkg/logx"
)

// recordRuns drains scheduler run events into the run history until ctx is
// done or events is closed. store may be nil; events are then only logged.
func recordRuns(ctx context.Context, events <-chan eventbus.Event, store storage.Store, log logx.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-events:
			if !ok {
				return
			}
			rep, ok := e.Data.(scheduler.FireReport)
			if !ok {
				log.Debug("event", logx.String("type", e.Type), logx.Time("time", e.Time))
				continue
			}
			log.Debug("run event",
				logx.String("task", rep.Task),
				logx.String("trigger", string(rep.Trigger)),
				logx.Bool("invoked", rep.Invoked),
				logx.Duration("took", rep.Took),
			)
			if store == nil {
				continue
			}
			wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
			if err := store.AppendRun(wctx, runRecord(rep)); err != nil {
				log.Warn("run history append failed", logx.String("task", rep.Task), logx.Err(err))
			}
			cancel()
		}
	}
}

func runRecord(rep scheduler.FireReport) storage.RunRecord {
	r := storage.RunRecord{
		At:      rep.Started,
		Task:    rep.Task,
		Trigger: string(rep.Trigger),
		Invoked: rep.Invoked,
		Skipped: rep.Skipped,
		TookMS:  rep.Took.Milliseconds(),
	}
	if rep.ChannelID != nil {
		r.ChannelID = *rep.ChannelID
	}
	if rep.Err != nil {
		r.Error = rep.Err.Error()
	}
	return r
}
