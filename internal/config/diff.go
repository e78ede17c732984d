package config

import (
	"reflect"
	"strings"

	"calbot/pkg/logx"
)

// SummarizeConfigChange lists the sections that differ between two configs
// plus log fields describing them. Secrets are never included.
func SummarizeConfigChange(oldCfg, newCfg *Config) ([]string, []logx.Field) {
	if oldCfg == nil {
		oldCfg = &Config{}
	}
	if newCfg == nil {
		newCfg = &Config{}
	}
	var (
		changed []string
		fields  []logx.Field
	)

	if oldCfg.Telegram.Token != newCfg.Telegram.Token ||
		oldCfg.Telegram.PollTimeout != newCfg.Telegram.PollTimeout ||
		oldCfg.Telegram.LogChatID != newCfg.Telegram.LogChatID ||
		!reflect.DeepEqual(oldCfg.Telegram.AuthorizedUsers, newCfg.Telegram.AuthorizedUsers) {
		changed = append(changed, "telegram")
		fields = append(fields,
			logx.Int("telegram.authorized_count", len(newCfg.Telegram.AuthorizedUsers)),
			logx.Bool("telegram.token_changed", oldCfg.Telegram.Token != newCfg.Telegram.Token),
		)
	}
	if oldCfg.Google != newCfg.Google {
		changed = append(changed, "google")
		fields = append(fields, logx.String("google.calendar_id", newCfg.Google.CalendarID))
	}
	if !reflect.DeepEqual(oldCfg.Scheduler, newCfg.Scheduler) {
		changed = append(changed, "scheduler")
		fields = append(fields,
			logx.String("scheduler.timezone", newCfg.Scheduler.Timezone),
			logx.Int("scheduler.tasks", len(newCfg.EffectiveTasks())),
		)
	}
	if oldCfg.Commands != newCfg.Commands {
		changed = append(changed, "commands")
		fields = append(fields, logx.String("commands.prefix", newCfg.Commands.Prefix))
	}
	if oldCfg.Logging != newCfg.Logging {
		changed = append(changed, "logging")
		fields = append(fields,
			logx.String("logging.level", newCfg.Logging.Level),
			logx.Bool("logging.chat", newCfg.Logging.Chat.Enabled),
		)
	}
	if !reflect.DeepEqual(oldCfg.Storage, newCfg.Storage) {
		changed = append(changed, "storage")
		drv := ""
		if newCfg.Storage != nil {
			drv = strings.TrimSpace(newCfg.Storage.Driver)
		}
		fields = append(fields, logx.String("storage.driver", drv))
	}
	if oldCfg.Debug != newCfg.Debug {
		changed = append(changed, "debug")
		fields = append(fields,
			logx.Bool("debug.enabled", newCfg.Debug.Enabled),
			logx.String("debug.address", newCfg.Debug.Address),
		)
	}
	return changed, fields
}

// RequiresRestart reports whether newCfg changes something that is only read
// at startup: the bot token, the poll timeout, the calendar client or storage.
func RequiresRestart(oldCfg, newCfg *Config) bool {
	if oldCfg == nil || newCfg == nil {
		return false
	}
	return oldCfg.Telegram.Token != newCfg.Telegram.Token ||
		oldCfg.Telegram.PollTimeout != newCfg.Telegram.PollTimeout ||
		oldCfg.Google != newCfg.Google ||
		!reflect.DeepEqual(oldCfg.Storage, newCfg.Storage)
}
