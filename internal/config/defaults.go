package config

import (
	"fmt"
	"strings"
)

const (
	DefaultTimezone   = "Asia/Seoul"
	DefaultDailyHour  = 8
	DefaultPrefix     = "/"
	DefaultTaskName   = "daily_calendar"
	DefaultDailyTitle = "Daily calendar digest"
)

// Default returns a config with every optional field filled in.
func Default() *Config {
	cfg := &Config{}
	cfg.Logging.Console = true
	applyDefaults(cfg)
	return cfg
}

func applyDefaults(cfg *Config) {
	if strings.TrimSpace(cfg.Scheduler.Timezone) == "" {
		cfg.Scheduler.Timezone = DefaultTimezone
	}
	if cfg.Scheduler.Daily.Hour == nil {
		h := DefaultDailyHour
		cfg.Scheduler.Daily.Hour = &h
	}
	if cfg.Scheduler.Daily.Minute == nil {
		m := 0
		cfg.Scheduler.Daily.Minute = &m
	}
	if strings.TrimSpace(cfg.Commands.Prefix) == "" {
		cfg.Commands.Prefix = DefaultPrefix
	}
	if strings.TrimSpace(cfg.Logging.Level) == "" {
		cfg.Logging.Level = "info"
	}
}

// EffectiveTasks returns the configured tasks, or the single daily task when
// none are listed.
func (c *Config) EffectiveTasks() []TaskConfig {
	if len(c.Scheduler.Tasks) > 0 {
		return append([]TaskConfig(nil), c.Scheduler.Tasks...)
	}
	h, m := DefaultDailyHour, 0
	if c.Scheduler.Daily.Hour != nil {
		h = *c.Scheduler.Daily.Hour
	}
	if c.Scheduler.Daily.Minute != nil {
		m = *c.Scheduler.Daily.Minute
	}
	return []TaskConfig{{
		Name:        DefaultTaskName,
		Kind:        TaskKindToday,
		Time:        fmt.Sprintf("%02d:%02d", h, m),
		Enabled:     c.Scheduler.Daily.Enabled,
		ChannelID:   c.Scheduler.Daily.ChannelID,
		Description: DefaultDailyTitle,
	}}
}

// IsAuthorized reports whether id is listed in telegram.authorized_users.
func (c *Config) IsAuthorized(id int64) bool {
	for _, u := range c.Telegram.AuthorizedUsers {
		if u == id {
			return true
		}
	}
	return false
}
