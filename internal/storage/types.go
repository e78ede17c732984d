package storage

import (
	"errors"
	"time"
)

var ErrDisabled = errors.New("storage disabled")

// Config configures storage.
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default
}

// AuditEntry records an operator action.
// Keep it compact and schema-stable.
type AuditEntry struct {
	At            time.Time `json:"at"`
	ActorID       int64     `json:"actor_id"`
	ActorUsername string    `json:"actor_username,omitempty"`
	ChatID        int64     `json:"chat_id"`
	ThreadID      int       `json:"thread_id,omitempty"`
	Command       string    `json:"command"`
	Target        string    `json:"target,omitempty"`
	Detail        string    `json:"detail,omitempty"`
	OK            bool      `json:"ok"`
	Error         string    `json:"error,omitempty"`
}

// RunRecord is one scheduler dispatch.
type RunRecord struct {
	At        time.Time `json:"at"`
	Task      string    `json:"task"`
	Trigger   string    `json:"trigger"`
	ChannelID int64     `json:"channel_id,omitempty"` // 0 when unbound
	Invoked   bool      `json:"invoked"`
	Skipped   string    `json:"skipped,omitempty"`
	Error     string    `json:"error,omitempty"`
	TookMS    int64     `json:"took_ms"`
}

// OK reports whether the payload ran and returned no error.
func (r RunRecord) OK() bool { return r.Invoked && r.Error == "" }
