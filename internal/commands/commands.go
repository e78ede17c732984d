// Package commands implements the chat command surface: basic utilities,
// calendar views and scheduler management.
package commands

import (
	"context"
	"time"

	"calbot/internal/scheduler"
	"calbot/internal/storage"
	"calbot/internal/transport"
	"calbot/internal/transport/router"
	"calbot/pkg/logx"
)

const (
	CategoryBasic     = "Basic"
	CategoryCalendar  = "Calendar"
	CategoryScheduler = "Scheduler"
)

// Scheduler is the part of the task registry the commands drive.
type Scheduler interface {
	List() []scheduler.TaskInfo
	Get(name string) (scheduler.TaskInfo, bool)
	Names() []string
	StartTask(name string) bool
	StopTask(name string) bool
	SetTarget(name string, to transport.ChatTarget)
	UpdateTime(name string, hour, minute int) bool
	RunNow(ctx context.Context, name string) (scheduler.FireReport, bool)
	Location() *time.Location
}

// Agenda renders calendar views into a channel.
type Agenda interface {
	Schedule(ctx context.Context, ch transport.Channel, days int) error
}

// Settings are the configured defaults shown by schedule_status.
type Settings struct {
	DailyHour   int
	DailyMinute int
	Timezone    string
}

type Deps struct {
	Scheduler Scheduler // nil: scheduler commands reply "not available"
	Agenda    Agenda
	Store     storage.Store // nil: no audit, no history

	// Resolver validates explicit chat ids. Optional.
	Resolver transport.Resolver
	// Admins backs the chat-admin guard. Optional; without it only
	// authorized users pass in group chats.
	Admins transport.AdminChecker

	Authorized  func(userID int64) bool
	Settings    func() Settings
	DefaultTask string

	Log logx.Logger
}

// Set owns the command handlers.
type Set struct {
	d   Deps
	now func() time.Time
}

func New(d Deps) *Set {
	if d.Authorized == nil {
		d.Authorized = func(int64) bool { return false }
	}
	if d.Settings == nil {
		d.Settings = func() Settings { return Settings{} }
	}
	if d.DefaultTask == "" {
		d.DefaultTask = "daily_calendar"
	}
	d.Log = d.Log.With(logx.String("comp", "commands"))
	return &Set{d: d, now: time.Now}
}

// Commands returns every command, ready for router.SetRegistry.
func (s *Set) Commands() []router.Command {
	out := make([]router.Command, 0, 20)
	out = append(out, s.basic()...)
	out = append(out, s.calendar()...)
	out = append(out, s.scheduler()...)
	return out
}
