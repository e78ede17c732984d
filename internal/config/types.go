package config

// Config is the full bot configuration. File values are overlaid by the
// environment (see env.go).
type Config struct {
	Telegram  TelegramConfig  `json:"telegram"`
	Google    GoogleConfig    `json:"google"`
	Scheduler SchedulerConfig `json:"scheduler"`
	Commands  CommandsConfig  `json:"commands"`
	Logging   LoggingConfig   `json:"logging"`
	Storage   *StorageConfig  `json:"storage,omitempty"`
	Debug     DebugConfig     `json:"debug"`
}

type TelegramConfig struct {
	Token           string  `json:"token"`
	AuthorizedUsers []int64 `json:"authorized_users"`
	// PollTimeout is a Go duration string (e.g. "10s").
	PollTimeout string `json:"poll_timeout,omitempty"`
	LogChatID   int64  `json:"log_chat_id,omitempty"`
}

type GoogleConfig struct {
	APIKey     string `json:"api_key"`
	CalendarID string `json:"calendar_id"`
	// Timeout bounds one calendar request (Go duration string).
	Timeout string `json:"timeout,omitempty"`
}

type SchedulerConfig struct {
	// Timezone is an IANA zone name; every task time is read in it.
	Timezone string      `json:"timezone"`
	Daily    DailyConfig `json:"daily"`
	// Tasks overrides the single daily task derived from Daily.
	Tasks []TaskConfig `json:"tasks,omitempty"`
}

// DailyConfig describes the default daily_calendar task.
type DailyConfig struct {
	Hour      *int  `json:"hour,omitempty"`
	Minute    *int  `json:"minute,omitempty"`
	ChannelID int64 `json:"channel_id,omitempty"`
	Enabled   *bool `json:"enabled,omitempty"`
}

const (
	TaskKindToday    = "today"
	TaskKindUpcoming = "upcoming"
)

type TaskConfig struct {
	Name        string `json:"name"`
	Kind        string `json:"kind"`
	Days        int    `json:"days,omitempty"`
	Time        string `json:"time"`
	Enabled     *bool  `json:"enabled,omitempty"`
	ChannelID   int64  `json:"channel_id,omitempty"`
	ThreadID    int    `json:"thread_id,omitempty"` // forum topic in channel_id
	Description string `json:"description,omitempty"`
}

// IsEnabled treats an omitted flag as enabled.
func (t TaskConfig) IsEnabled() bool { return t.Enabled == nil || *t.Enabled }

type CommandsConfig struct {
	Prefix string `json:"prefix,omitempty"`
	// Timeout bounds one command handler (Go duration string).
	Timeout string `json:"timeout,omitempty"`
}

type LoggingConfig struct {
	Level   string      `json:"level"`
	Console bool        `json:"console"`
	File    LoggingFile `json:"file"`
	Chat    LoggingChat `json:"chat"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

type LoggingChat struct {
	Enabled    bool   `json:"enabled"`
	MinLevel   string `json:"min_level"`
	RatePerSec int    `json:"rate_per_sec"`
}

// DebugConfig controls the loopback HTTP listener serving /healthz, /tasks
// and pprof.
type DebugConfig struct {
	Enabled              bool   `json:"enabled"`
	Address              string `json:"address,omitempty"`
	BlockProfileRate     int    `json:"block_profile_rate,omitempty"`
	MutexProfileFraction int    `json:"mutex_profile_fraction,omitempty"`
}

// StorageConfig controls audit and run history persistence.
//
//	"storage": { "driver": "sqlite", "path": "./data/calbot.db" }
type StorageConfig struct {
	Driver      string `json:"driver"`
	Path        string `json:"path"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // sqlite only
}
