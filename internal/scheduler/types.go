package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"calbot/internal/eventbus"
	"calbot/internal/transport"
	"calbot/pkg/logx"
)

var (
	ErrTaskNotFound = errors.New("task not found")
	ErrInvalidTime  = errors.New("invalid time of day")
	ErrNameRequired = errors.New("task name required")
	ErrNoPayload    = errors.New("task payload required")
)

// Payload is the work a task performs. ch is nil when the task has no
// channel or the channel could not be resolved.
type Payload func(ctx context.Context, ch transport.Channel) error

// Config controls the trigger clock.
type Config struct {
	Timezone string // IANA name; empty means the process local zone
}

// EventRun is published on the bus after every dispatch.
const EventRun = "scheduler.run"

type Trigger string

const (
	TriggerSchedule Trigger = "schedule"
	TriggerManual   Trigger = "manual"
)

// FireReport describes one dispatch.
type FireReport struct {
	Task      string
	Trigger   Trigger
	Invoked   bool
	Skipped   string // reason when Invoked is false
	ChannelID *int64
	Resolved  bool // a live channel was passed to the payload
	Started   time.Time
	Took      time.Duration
	Err       error
}

// TaskInfo is a point-in-time view of one task.
type TaskInfo struct {
	Name        string
	Time        string // HH:MM
	Hour        int
	Minute      int
	Enabled     bool
	Running     bool
	ChannelID   *int64
	ThreadID    int // forum topic, 0 for the main chat
	Description string
	Next        time.Time // zero unless running
	LastRun     time.Time
	LastError   string
}

type task struct {
	name        string
	description string
	payload     Payload
	hour        int
	minute      int
	enabled     bool

	sched   cron.Schedule
	entryID cron.EntryID // non-zero while armed
	gen     uint64

	lastRun time.Time
	lastErr string

	// gate admits one in-flight invocation at a time.
	gate sync.Mutex
}

// Service is the task registry plus its trigger clock.
type Service struct {
	mu sync.Mutex

	log      logx.Logger
	bus      eventbus.Bus
	resolver transport.Resolver
	dir      *Directory

	cfg     Config
	loc     *time.Location
	parser  cron.Parser
	c       *cron.Cron
	started bool
	ctx     context.Context

	tasks   map[string]*task
	order   []string
	nextGen uint64
}

// Handle refers to the task instance created by one Add call.
type Handle struct {
	s    *Service
	name string
	gen  uint64
}

func (h *Handle) Name() string { return h.name }

// Running reports whether this instance is armed. It turns false for good once
// the task is replaced or removed.
func (h *Handle) Running() bool {
	if h == nil || h.s == nil {
		return false
	}
	h.s.mu.Lock()
	defer h.s.mu.Unlock()
	t, ok := h.s.tasks[h.name]
	return ok && t.gen == h.gen && t.entryID != 0
}
