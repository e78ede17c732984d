package config

import (
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"calbot/internal/scheduler"
)

var validLevels = map[string]bool{"debug": true, "info": true, "warn": true, "warning": true, "error": true}

// Validate reports every problem found in cfg joined into one error.
// Missing credentials are fatal: the bot cannot run without them.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New("config is nil")
	}
	var errs []error
	add := func(format string, args ...any) { errs = append(errs, fmt.Errorf(format, args...)) }

	if strings.TrimSpace(cfg.Telegram.Token) == "" {
		add("telegram.token is required (%s)", EnvTelegramToken)
	}
	if strings.TrimSpace(cfg.Google.APIKey) == "" {
		add("google.api_key is required (%s)", EnvGoogleAPIKey)
	}
	if strings.TrimSpace(cfg.Google.CalendarID) == "" {
		add("google.calendar_id is required (%s)", EnvGoogleCalendarID)
	}
	if _, err := ParseDurationField("telegram.poll_timeout", cfg.Telegram.PollTimeout); err != nil {
		errs = append(errs, err)
	}
	if _, err := ParseDurationField("google.timeout", cfg.Google.Timeout); err != nil {
		errs = append(errs, err)
	}
	if _, err := ParseDurationField("commands.timeout", cfg.Commands.Timeout); err != nil {
		errs = append(errs, err)
	}

	if tz := strings.TrimSpace(cfg.Scheduler.Timezone); tz != "" {
		if _, err := time.LoadLocation(tz); err != nil {
			add("scheduler.timezone: unknown zone %q", tz)
		}
	}
	if h := cfg.Scheduler.Daily.Hour; h != nil && (*h < 0 || *h > 23) {
		add("scheduler.daily.hour: %d out of range 0-23", *h)
	}
	if m := cfg.Scheduler.Daily.Minute; m != nil && (*m < 0 || *m > 59) {
		add("scheduler.daily.minute: %d out of range 0-59", *m)
	}
	if p := cfg.Commands.Prefix; p != "" && strings.ContainsAny(p, " \t\n") {
		add("commands.prefix must not contain whitespace")
	}

	seen := map[string]bool{}
	for i, t := range cfg.Scheduler.Tasks {
		at := fmt.Sprintf("scheduler.tasks[%d]", i)
		name := strings.TrimSpace(t.Name)
		switch {
		case name == "":
			add("%s.name is required", at)
		case seen[name]:
			add("%s.name %q is duplicated", at, name)
		}
		seen[name] = true
		switch t.Kind {
		case TaskKindToday:
		case TaskKindUpcoming:
			if t.Days != 0 && (t.Days < 1 || t.Days > 30) {
				add("%s.days: %d out of range 1-30", at, t.Days)
			}
		default:
			add("%s.kind %q must be %q or %q", at, t.Kind, TaskKindToday, TaskKindUpcoming)
		}
		if t.ThreadID != 0 && t.ChannelID == 0 {
			add("%s.thread_id needs channel_id", at)
		}
		if !validClock(t.Time) {
			add("%s.time %q must be HH:MM", at, t.Time)
		}
	}

	if lv := strings.ToLower(strings.TrimSpace(cfg.Logging.Level)); lv != "" && !validLevels[lv] {
		add("logging.level: unknown level %q", cfg.Logging.Level)
	}
	if lv := strings.ToLower(strings.TrimSpace(cfg.Logging.Chat.MinLevel)); lv != "" && !validLevels[lv] {
		add("logging.chat.min_level: unknown level %q", cfg.Logging.Chat.MinLevel)
	}
	if cfg.Logging.File.Enabled && strings.TrimSpace(cfg.Logging.File.Path) == "" {
		add("logging.file.path is required when file logging is enabled")
	}

	if st := cfg.Storage; st != nil {
		switch strings.ToLower(strings.TrimSpace(st.Driver)) {
		case "", "none":
		case "file", "sqlite", "sqlite3":
			if strings.TrimSpace(st.Path) == "" {
				add("storage.path is required for driver %q", st.Driver)
			}
		default:
			add("storage.driver %q must be none, file or sqlite", st.Driver)
		}
		if _, err := ParseDurationField("storage.busy_timeout", st.BusyTimeout); err != nil {
			errs = append(errs, err)
		}
	}
	if addr := strings.TrimSpace(cfg.Debug.Address); addr != "" {
		if _, _, err := net.SplitHostPort(addr); err != nil {
			add("debug.address %q must be host:port: %v", addr, err)
		}
	}
	return errors.Join(errs...)
}

// validClock accepts exactly what the scheduler will parse at seed time.
func validClock(s string) bool {
	_, _, err := scheduler.ParseHHMM(s)
	return err == nil
}
