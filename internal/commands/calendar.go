package commands

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"calbot/internal/transport"
	"calbot/internal/transport/router"
	"calbot/pkg/chatui"
	"calbot/pkg/logx"
)

const (
	defaultUpcomingDays = 3
	maxUpcomingDays     = 30

	msgBadDays = "❌ Days must be between 1 and 30"
	msgBadTime = "❌ Invalid time format. Hour: 0-23, Minute: 0-59"
)

// calendarTimeout bounds a calendar view, which may page through the API.
const calendarTimeout = 45 * time.Second

func (s *Set) calendar() []router.Command {
	manage := []router.Guard{s.Authorized(), s.SchedulerAvailable()}
	return []router.Command{
		{
			Name:        "today",
			Category:    CategoryCalendar,
			Description: "Show today's schedule",
			Timeout:     calendarTimeout,
			Handle: func(ctx context.Context, req *router.Request) error {
				return s.showSchedule(ctx, req, 0)
			},
		},
		{
			Name:        "week",
			Category:    CategoryCalendar,
			Description: "Show this week's schedule",
			Timeout:     calendarTimeout,
			Handle: func(ctx context.Context, req *router.Request) error {
				return s.showSchedule(ctx, req, 7)
			},
		},
		{
			Name:        "upcoming",
			Category:    CategoryCalendar,
			Description: "Show upcoming events for specified days (default: 3)",
			Usage:       "[days]",
			Timeout:     calendarTimeout,
			Handle:      s.cmdUpcoming,
		},
		{
			Name:        "schedule_channel",
			Category:    CategoryCalendar,
			Description: "Set the channel for daily schedule notifications",
			Usage:       "[chat_id]",
			Guards:      manage,
			Handle:      s.cmdScheduleChannel,
		},
		{
			Name:        "schedule_time",
			Category:    CategoryCalendar,
			Description: "Set the time for daily schedule notifications (24-hour format)",
			Usage:       "<hour> [minute]",
			MinArgs:     1,
			Guards:      manage,
			Handle:      s.cmdScheduleTime,
		},
		{
			Name:        "schedule_status",
			Category:    CategoryCalendar,
			Description: "Show current schedule settings and status",
			Guards:      []router.Guard{s.SchedulerAvailable()},
			Handle:      s.cmdScheduleStatus,
		},
		{
			Name:        "enable_schedule",
			Category:    CategoryCalendar,
			Description: "Enable daily schedule notifications",
			Guards:      []router.Guard{s.ChatAdmin(), s.SchedulerAvailable()},
			Handle:      s.cmdEnableSchedule,
		},
		{
			Name:        "disable_schedule",
			Category:    CategoryCalendar,
			Description: "Disable daily schedule notifications",
			Guards:      []router.Guard{s.ChatAdmin(), s.SchedulerAvailable()},
			Handle:      s.cmdDisableSchedule,
		},
	}
}

func (s *Set) showSchedule(ctx context.Context, req *router.Request, days int) error {
	if s.d.Agenda == nil {
		_, err := req.Reply(ctx, "❌ Calendar service not available")
		return err
	}
	return s.d.Agenda.Schedule(ctx, req.Channel(), days)
}

func (s *Set) cmdUpcoming(ctx context.Context, req *router.Request) error {
	days := defaultUpcomingDays
	if len(req.Args) > 0 {
		n, err := strconv.Atoi(req.Args[0])
		if err != nil || n < 1 || n > maxUpcomingDays {
			_, err := req.Reply(ctx, msgBadDays)
			return err
		}
		days = n
	}
	return s.showSchedule(ctx, req, days)
}

func (s *Set) cmdScheduleChannel(ctx context.Context, req *router.Request) error {
	ch, ok, err := s.targetChannel(ctx, req, req.Args)
	if !ok {
		return err
	}
	s.d.Scheduler.SetTarget(s.d.DefaultTask, ch.target())
	s.audit(ctx, req, s.d.DefaultTask, ch.auditDetail(), nil)

	_, err = req.ReplyCard(ctx, chatui.New().
		Color(chatui.ColorGreen).
		Title("✅", "Schedule Channel Set").
		RawLine("Daily schedule notifications will be sent to "+ch.label()).
		Build())
	return err
}

func (s *Set) cmdScheduleTime(ctx context.Context, req *router.Request) error {
	hour, minute, ok := parseClock(req.Args)
	if !ok {
		_, err := req.Reply(ctx, msgBadTime)
		return err
	}
	return s.updateTime(ctx, req, s.d.DefaultTask, hour, minute,
		"✅", "Schedule Time Updated", fmt.Sprintf("Daily schedule will be sent at %02d:%02d", hour, minute),
		"Failed to Update", "Could not update schedule time")
}

func (s *Set) cmdScheduleStatus(ctx context.Context, req *router.Request) error {
	b := chatui.New().Color(chatui.ColorBlue).Title("📊", "Schedule Status")

	if t, ok := s.d.Scheduler.Get(s.d.DefaultTask); ok {
		status := "🟢 Enabled"
		if !t.Enabled {
			status = "🔴 Disabled"
		}
		running := "▶️ Running"
		if !t.Running {
			running = "⏸️ Stopped"
		}
		lines := []chatui.H{
			kv("Status", fmt.Sprintf("%s (%s)", status, running)),
			kv("Time", t.Time),
			chatui.B("Channel:") + " " + channelLabel(t.ChannelID, t.ThreadID),
		}
		if !t.Next.IsZero() {
			lines = append(lines, kv("Next run", t.Next.In(s.d.Scheduler.Location()).Format("2006-01-02 15:04 MST")))
		}
		b.Field("Daily Calendar Notification", lines...)
	} else {
		b.Field("Daily Calendar Notification", chatui.Esc("❌ Not configured"))
	}

	set := s.d.Settings()
	b.Field("Environment Settings",
		kv("Default Time", fmt.Sprintf("%02d:%02d", set.DailyHour, set.DailyMinute)),
		kv("Timezone", set.Timezone),
	)
	_, err := req.ReplyCard(ctx, b.Build())
	return err
}

func (s *Set) cmdEnableSchedule(ctx context.Context, req *router.Request) error {
	if !s.d.Scheduler.StartTask(s.d.DefaultTask) {
		return s.replyNotFound(ctx, req, s.d.DefaultTask)
	}
	s.audit(ctx, req, s.d.DefaultTask, "enabled", nil)
	_, err := req.ReplyCard(ctx, chatui.New().
		Color(chatui.ColorGreen).
		Title("✅", "Schedule Enabled").
		Line("Daily calendar notifications are now enabled").
		Build())
	return err
}

func (s *Set) cmdDisableSchedule(ctx context.Context, req *router.Request) error {
	if !s.d.Scheduler.StopTask(s.d.DefaultTask) {
		return s.replyNotFound(ctx, req, s.d.DefaultTask)
	}
	s.audit(ctx, req, s.d.DefaultTask, "disabled", nil)
	_, err := req.ReplyCard(ctx, chatui.New().
		Color(chatui.ColorOrange).
		Title("⏸️", "Schedule Disabled").
		Line("Daily calendar notifications are now disabled").
		Build())
	return err
}

// parseClock reads "<hour> [minute]" and checks the ranges.
func parseClock(args []string) (hour, minute int, ok bool) {
	if len(args) == 0 {
		return 0, 0, false
	}
	h, err := strconv.Atoi(args[0])
	if err != nil {
		return 0, 0, false
	}
	m := 0
	if len(args) > 1 {
		if m, err = strconv.Atoi(args[1]); err != nil {
			return 0, 0, false
		}
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, 0, false
	}
	return h, m, true
}

type chatRef struct {
	ChatID   int64
	ThreadID int
	Title    string
}

func (c chatRef) target() transport.ChatTarget {
	return transport.ChatTarget{ChatID: c.ChatID, ThreadID: c.ThreadID}
}

func (c chatRef) auditDetail() string {
	d := "channel=" + strconv.FormatInt(c.ChatID, 10)
	if c.ThreadID != 0 {
		d += " thread=" + strconv.Itoa(c.ThreadID)
	}
	return d
}

func (c chatRef) label() chatui.H {
	id := chatui.Code(strconv.FormatInt(c.ChatID, 10))
	if c.ThreadID != 0 {
		id += chatui.Esc(" topic ") + chatui.Code(strconv.Itoa(c.ThreadID))
	}
	if c.Title == "" {
		return id
	}
	return chatui.B(c.Title) + " (" + id + ")"
}

// targetChannel picks the chat named by args[0], or the requesting chat and
// its forum topic. An explicit id is resolved when a resolver is present. ok
// is false when a reply has already been sent.
func (s *Set) targetChannel(ctx context.Context, req *router.Request, args []string) (chatRef, bool, error) {
	if len(args) == 0 {
		return chatRef{ChatID: req.Chat.ChatID, ThreadID: req.Chat.ThreadID}, true, nil
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || id == 0 {
		_, err := req.Reply(ctx, "❌ Invalid chat id: "+args[0])
		return chatRef{}, false, err
	}
	if id == req.Chat.ChatID {
		return chatRef{ChatID: id, ThreadID: req.Chat.ThreadID}, true, nil
	}
	if s.d.Resolver == nil {
		return chatRef{ChatID: id}, true, nil
	}
	ch, err := s.d.Resolver.ResolveChannel(ctx, id)
	if err != nil {
		req.Logger.Debug("chat lookup failed", logx.Int64("chat_id", id), logx.Err(err))
		_, err := req.Reply(ctx, fmt.Sprintf("❌ Chat %d not found or not reachable by the bot", id))
		return chatRef{}, false, err
	}
	return chatRef{ChatID: id, Title: chatTitle(ch)}, true, nil
}

func chatTitle(ch transport.Channel) string {
	if ch == nil {
		return ""
	}
	return ch.Title()
}

func kv(key, value string) chatui.H {
	return chatui.B(key+":") + " " + chatui.Esc(value)
}

func channelLabel(id *int64, threadID int) chatui.H {
	if id == nil {
		return chatui.Esc("Not set")
	}
	return chatRef{ChatID: *id, ThreadID: threadID}.label()
}
