package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Environment keys understood by the bot. Values found here win over the
// config file.
const (
	EnvTelegramToken    = "TELEGRAM_TOKEN"
	EnvGoogleAPIKey     = "GOOGLE_API_KEY"
	EnvGoogleCalendarID = "GOOGLE_CALENDAR_ID"
	EnvTimezone         = "TIMEZONE"
	EnvDailyHour        = "DAILY_SCHEDULE_HOUR"
	EnvDailyMinute      = "DAILY_SCHEDULE_MINUTE"
	EnvDailyChannelID   = "DAILY_SCHEDULE_CHANNEL_ID"
	EnvAuthorizedUsers  = "AUTHORIZED_USERS"
	EnvCommandPrefix    = "COMMAND_PREFIX"
	EnvLogLevel         = "LOG_LEVEL"
	EnvLogChatID        = "LOG_CHAT_ID"
	EnvStorageDriver    = "STORAGE_DRIVER"
	EnvStoragePath      = "STORAGE_PATH"
	EnvDebugAddr        = "DEBUG_ADDR"
)

// LoadEnvFile loads a dotenv file into the process environment without
// overriding variables that are already set. A missing file is not an error.
func LoadEnvFile(path string) error {
	if strings.TrimSpace(path) == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overlays environment values onto cfg. lookup is usually
// os.LookupEnv.
func ApplyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	get := func(k string) (string, bool) {
		v, ok := lookup(k)
		if !ok {
			return "", false
		}
		v = strings.TrimSpace(v)
		return v, v != ""
	}

	if v, ok := get(EnvTelegramToken); ok {
		cfg.Telegram.Token = v
	}
	if v, ok := get(EnvGoogleAPIKey); ok {
		cfg.Google.APIKey = v
	}
	if v, ok := get(EnvGoogleCalendarID); ok {
		cfg.Google.CalendarID = v
	}
	if v, ok := get(EnvTimezone); ok {
		cfg.Scheduler.Timezone = v
	}
	if v, ok := get(EnvDailyHour); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvDailyHour, err)
		}
		cfg.Scheduler.Daily.Hour = &n
	}
	if v, ok := get(EnvDailyMinute); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvDailyMinute, err)
		}
		cfg.Scheduler.Daily.Minute = &n
	}
	if v, ok := get(EnvDailyChannelID); ok {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvDailyChannelID, err)
		}
		cfg.Scheduler.Daily.ChannelID = n
	}
	if v, ok := get(EnvAuthorizedUsers); ok {
		cfg.Telegram.AuthorizedUsers = ParseUserList(v)
	}
	if v, ok := get(EnvCommandPrefix); ok {
		cfg.Commands.Prefix = v
	}
	if v, ok := get(EnvLogLevel); ok {
		cfg.Logging.Level = strings.ToLower(v)
	}
	if v, ok := get(EnvLogChatID); ok {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvLogChatID, err)
		}
		cfg.Telegram.LogChatID = n
		cfg.Logging.Chat.Enabled = true
	}
	drv, hasDrv := get(EnvStorageDriver)
	path, hasPath := get(EnvStoragePath)
	if hasDrv || hasPath {
		if cfg.Storage == nil {
			cfg.Storage = &StorageConfig{}
		}
		if hasDrv {
			cfg.Storage.Driver = strings.ToLower(drv)
		}
		if hasPath {
			cfg.Storage.Path = path
		}
	}
	if v, ok := get(EnvDebugAddr); ok {
		cfg.Debug.Enabled = true
		cfg.Debug.Address = v
	}
	return nil
}

// ParseUserList reads a comma separated list of numeric user ids. Entries that
// are not made of digits only are ignored.
func ParseUserList(s string) []int64 {
	var out []int64
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" || strings.IndexFunc(part, func(r rune) bool { return r < '0' || r > '9' }) >= 0 {
			continue
		}
		n, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			continue
		}
		out = append(out, n)
	}
	return out
}
