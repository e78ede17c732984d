package commands

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"calbot/internal/scheduler"
	"calbot/internal/storage"
	"calbot/internal/transport/router"
	"calbot/pkg/chatui"
)

var errUpdateFailed = errors.New("update failed")

const (
	defaultHistory = 5
	maxHistory     = 25

	// runTimeout bounds a manual run; the payload pages the calendar and sends.
	runTimeout = 90 * time.Second
)

func (s *Set) scheduler() []router.Command {
	manage := []router.Guard{s.Authorized(), s.SchedulerAvailable()}
	return []router.Command{
		{
			Name:        "schedule_list",
			Category:    CategoryScheduler,
			Description: "List all scheduled tasks and their status",
			Guards:      []router.Guard{s.SchedulerAvailable()},
			Handle:      s.cmdList,
		},
		{
			Name:        "schedule_enable",
			Category:    CategoryScheduler,
			Description: "Enable a specific scheduled task",
			Usage:       "<task>",
			MinArgs:     1,
			Guards:      manage,
			Handle:      s.cmdEnable,
		},
		{
			Name:        "schedule_disable",
			Category:    CategoryScheduler,
			Description: "Disable a specific scheduled task",
			Usage:       "<task>",
			MinArgs:     1,
			Guards:      manage,
			Handle:      s.cmdDisable,
		},
		{
			Name:        "schedule_set_channel",
			Category:    CategoryScheduler,
			Description: "Set notification channel for a specific task",
			Usage:       "<task> [chat_id]",
			MinArgs:     1,
			Guards:      manage,
			Handle:      s.cmdSetChannel,
		},
		{
			Name:        "schedule_set_time",
			Category:    CategoryScheduler,
			Description: "Set execution time for a specific task (24-hour format)",
			Usage:       "<task> <hour> [minute]",
			MinArgs:     2,
			Guards:      manage,
			Handle:      s.cmdSetTime,
		},
		{
			Name:        "schedule_run",
			Category:    CategoryScheduler,
			Description: "Run a task now",
			Usage:       "<task>",
			MinArgs:     1,
			Guards:      manage,
			Timeout:     runTimeout,
			Handle:      s.cmdRun,
		},
		{
			Name:        "schedule_history",
			Category:    CategoryScheduler,
			Description: "Show recent runs of a task",
			Usage:       "<task> [count]",
			MinArgs:     1,
			Guards:      manage,
			Handle:      s.cmdHistory,
		},
	}
}

func (s *Set) cmdList(ctx context.Context, req *router.Request) error {
	tasks := s.d.Scheduler.List()
	if len(tasks) == 0 {
		_, err := req.ReplyCard(ctx, chatui.New().
			Color(chatui.ColorOrange).
			Title("📋", "Scheduled Tasks").
			Line("No scheduled tasks configured").
			Build())
		return err
	}

	loc := s.d.Scheduler.Location()
	b := chatui.New().Color(chatui.ColorBlue).Title("📋", "Scheduled Tasks")
	for _, t := range tasks {
		status, running := "🔴 Disabled", "⏸️ No"
		if t.Enabled {
			status = "🟢 Enabled"
		}
		if t.Running {
			running = "▶️ Yes"
		}
		lines := []chatui.H{
			kv("Time", t.Time),
			kv("Status", status),
			kv("Running", running),
			chatui.B("Channel:") + " " + channelLabel(t.ChannelID, t.ThreadID),
		}
		if !t.Next.IsZero() {
			lines = append(lines, kv("Next", t.Next.In(loc).Format("2006-01-02 15:04")))
		}
		if t.Description != "" {
			lines = append(lines, chatui.I(t.Description))
		}
		b.Field("📅 "+t.Name, lines...)
	}
	_, err := req.ReplyCard(ctx, b.Build())
	return err
}

func (s *Set) cmdEnable(ctx context.Context, req *router.Request) error {
	name := req.Args[0]
	if !s.d.Scheduler.StartTask(name) {
		return s.replyNotFound(ctx, req, name)
	}
	s.audit(ctx, req, name, "enabled", nil)
	_, err := req.ReplyCard(ctx, chatui.New().
		Color(chatui.ColorGreen).
		Title("✅", "Task Enabled").
		Line(fmt.Sprintf("Task '%s' has been enabled", name)).
		Build())
	return err
}

func (s *Set) cmdDisable(ctx context.Context, req *router.Request) error {
	name := req.Args[0]
	if !s.d.Scheduler.StopTask(name) {
		return s.replyNotFound(ctx, req, name)
	}
	s.audit(ctx, req, name, "disabled", nil)
	_, err := req.ReplyCard(ctx, chatui.New().
		Color(chatui.ColorOrange).
		Title("⏸️", "Task Disabled").
		Line(fmt.Sprintf("Task '%s' has been disabled", name)).
		Build())
	return err
}

func (s *Set) cmdSetChannel(ctx context.Context, req *router.Request) error {
	name := req.Args[0]
	if _, ok := s.d.Scheduler.Get(name); !ok {
		return s.replyNotFound(ctx, req, name)
	}
	ch, ok, err := s.targetChannel(ctx, req, req.Args[1:])
	if !ok {
		return err
	}
	s.d.Scheduler.SetTarget(name, ch.target())
	s.audit(ctx, req, name, ch.auditDetail(), nil)

	_, err = req.ReplyCard(ctx, chatui.New().
		Color(chatui.ColorGreen).
		Title("📍", "Channel Set").
		RawLine(chatui.Esc(fmt.Sprintf("Task '%s' will now send notifications to ", name))+ch.label()).
		Build())
	return err
}

func (s *Set) cmdSetTime(ctx context.Context, req *router.Request) error {
	name := req.Args[0]
	hour, minute, ok := parseClock(req.Args[1:])
	if !ok {
		_, err := req.Reply(ctx, msgBadTime)
		return err
	}
	if _, ok := s.d.Scheduler.Get(name); !ok {
		return s.replyNotFound(ctx, req, name)
	}
	return s.updateTime(ctx, req, name, hour, minute,
		"🕐", "Time Updated", fmt.Sprintf("Task '%s' will now run at %02d:%02d", name, hour, minute),
		"Update Failed", fmt.Sprintf("Could not update time for task '%s'", name))
}

func (s *Set) cmdRun(ctx context.Context, req *router.Request) error {
	name := req.Args[0]
	rep, ok := s.d.Scheduler.RunNow(ctx, name)
	if !ok {
		return s.replyNotFound(ctx, req, name)
	}
	s.audit(ctx, req, name, "run", rep.Err)

	b := chatui.New()
	switch {
	case !rep.Invoked:
		b.Color(chatui.ColorOrange).Title("⏭️", "Run Skipped").
			Line(fmt.Sprintf("Task '%s' was not run: %s", name, rep.Skipped))
	case rep.Err != nil:
		b.Color(chatui.ColorRed).Title("❌", "Run Failed").
			Line(fmt.Sprintf("Task '%s' failed after %s", name, rep.Took.Round(time.Millisecond))).
			RawLine(chatui.Code(chatui.Truncate(rep.Err.Error(), 500, "...")))
	default:
		b.Color(chatui.ColorGreen).Title("▶️", "Task Run").
			Line(fmt.Sprintf("Task '%s' finished in %s", name, rep.Took.Round(time.Millisecond)))
	}
	switch {
	case !rep.Invoked:
	case rep.ChannelID == nil:
		b.Line("No channel is bound, nothing was sent.")
	case !rep.Resolved:
		b.Line(fmt.Sprintf("Channel %d could not be resolved, nothing was sent.", *rep.ChannelID))
	}
	_, err := req.ReplyCard(ctx, b.Build())
	return err
}

func (s *Set) cmdHistory(ctx context.Context, req *router.Request) error {
	if s.d.Store == nil {
		_, err := req.Reply(ctx, "❌ Run history is not available (storage disabled)")
		return err
	}
	name := req.Args[0]
	n := defaultHistory
	if len(req.Args) > 1 {
		v, err := strconv.Atoi(req.Args[1])
		if err != nil || v < 1 || v > maxHistory {
			_, err := req.Reply(ctx, fmt.Sprintf("❌ Count must be between 1 and %d", maxHistory))
			return err
		}
		n = v
	}

	runs, err := s.d.Store.RecentRuns(ctx, name, n)
	if err != nil {
		_, _ = req.Reply(ctx, "❌ Could not read run history")
		return fmt.Errorf("recent runs: %w", err)
	}
	if len(runs) == 0 {
		if _, ok := s.d.Scheduler.Get(name); !ok {
			return s.replyNotFound(ctx, req, name)
		}
		_, err := req.Reply(ctx, fmt.Sprintf("No runs recorded for '%s' yet", name))
		return err
	}

	loc := s.d.Scheduler.Location()
	b := chatui.New().Color(chatui.ColorBlue).Title("🗂️", "Run History: "+name)
	for _, r := range runs {
		b.RawLine(historyLine(r, loc))
	}
	_, err = req.ReplyCard(ctx, b.Build())
	return err
}

func historyLine(r storage.RunRecord, loc *time.Location) chatui.H {
	icon := "✅"
	var tail string
	switch {
	case !r.Invoked:
		icon, tail = "⏭️", "skipped: "+r.Skipped
	case r.Error != "":
		icon, tail = "❌", chatui.Truncate(r.Error, 120, "...")
	default:
		tail = fmt.Sprintf("%dms", r.TookMS)
	}
	parts := []string{r.At.In(loc).Format("2006-01-02 15:04"), r.Trigger, tail}
	return chatui.Raw(icon+" ") + chatui.Esc(strings.Join(parts, " · "))
}

func (s *Set) updateTime(ctx context.Context, req *router.Request, name string, hour, minute int,
	okEmoji, okTitle, okText, failTitle, failText string) error {
	ok := s.d.Scheduler.UpdateTime(name, hour, minute)
	var auditErr error
	if !ok {
		auditErr = errUpdateFailed
	}
	s.audit(ctx, req, name, "time="+scheduler.FormatHHMM(hour, minute), auditErr)

	b := chatui.New()
	if ok {
		b.Color(chatui.ColorGreen).Title(okEmoji, okTitle).Line(okText)
	} else {
		b.Color(chatui.ColorRed).Title("❌", failTitle).Line(failText)
	}
	_, err := req.ReplyCard(ctx, b.Build())
	return err
}

func (s *Set) replyNotFound(ctx context.Context, req *router.Request, name string) error {
	_, err := req.Reply(ctx, fmt.Sprintf("❌ Task '%s' not found. Available tasks: %s",
		name, strings.Join(s.d.Scheduler.Names(), ", ")))
	return err
}
