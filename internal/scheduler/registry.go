package scheduler

import (
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"calbot/internal/transport"
	"calbot/pkg/logx"
)

// Option tunes a task at Add time.
type Option func(*task)

// WithDescription sets the text shown by list and status commands.
func WithDescription(desc string) Option {
	return func(t *task) { t.description = strings.TrimSpace(desc) }
}

// Add registers a daily task at hour:minute in the clock's zone. An existing
// task with the same name is disarmed and replaced under one lock, keeping its
// position in the listing. New tasks start disarmed.
func (s *Service) Add(name string, payload Payload, hour, minute int, enabled bool, opts ...Option) (*Handle, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrNameRequired
	}
	if payload == nil {
		return nil, ErrNoPayload
	}
	sched, err := s.buildTrigger(hour, minute)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	old, replaced := s.tasks[name]
	if replaced {
		s.disarmLocked(old)
	} else {
		s.order = append(s.order, name)
	}
	s.nextGen++
	t := &task{
		name:    name,
		payload: payload,
		hour:    hour,
		minute:  minute,
		enabled: enabled,
		sched:   sched,
		gen:     s.nextGen,
	}
	for _, o := range opts {
		o(t)
	}
	s.tasks[name] = t

	s.log.Debug("task added",
		logx.String("task", name),
		logx.String("time", FormatHHMM(hour, minute)),
		logx.Bool("enabled", enabled),
		logx.Bool("replaced", replaced),
	)
	return &Handle{s: s, name: name, gen: t.gen}, nil
}

// Remove disarms and deletes a task. The channel binding is kept.
func (s *Service) Remove(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[name]
	if !ok {
		s.log.Warn("remove: no such task", logx.String("task", name))
		return false
	}
	s.disarmLocked(t)
	delete(s.tasks, name)
	for i, n := range s.order {
		if n == name {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	s.log.Debug("task removed", logx.String("task", name))
	return true
}

// StartTask enables and arms a task. Starting an armed task changes nothing.
func (s *Service) StartTask(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[name]
	if !ok {
		return false
	}
	t.enabled = true
	if t.entryID == 0 {
		s.armLocked(t)
		s.log.Info("task started", logx.String("task", name), logx.String("time", FormatHHMM(t.hour, t.minute)))
	}
	return true
}

// StopTask disables and disarms a task. An in-flight payload is left to finish.
func (s *Service) StopTask(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[name]
	if !ok {
		return false
	}
	t.enabled = false
	if t.entryID != 0 {
		s.disarmLocked(t)
		s.log.Info("task stopped", logx.String("task", name))
	}
	return true
}

// UpdateTime moves a task to hour:minute. The new trigger is built before the
// old one is torn down, so a failure leaves the task exactly as it was.
// enabled is preserved and the task is re-armed only if it was armed before.
func (s *Service) UpdateTime(name string, hour, minute int) bool {
	sched, err := s.buildTrigger(hour, minute)
	if err != nil {
		s.log.Warn("update time rejected", logx.String("task", name), logx.Err(err))
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[name]
	if !ok {
		return false
	}
	wasArmed := t.entryID != 0
	s.disarmLocked(t)
	t.hour, t.minute, t.sched = hour, minute, sched
	if wasArmed {
		s.armLocked(t)
	}
	s.log.Info("task time updated",
		logx.String("task", name),
		logx.String("time", FormatHHMM(hour, minute)),
		logx.Bool("running", wasArmed),
	)
	return true
}

// StartAll arms every enabled task and returns how many are armed afterwards.
func (s *Service) StartAll() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, name := range s.order {
		t := s.tasks[name]
		if !t.enabled {
			continue
		}
		if t.entryID == 0 {
			s.armLocked(t)
		}
		n++
	}
	s.log.Info("tasks armed", logx.Int("armed", n), logx.Int("total", len(s.order)))
	return n
}

// StopAll applies StopTask to every task.
func (s *Service) StopAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, name := range s.order {
		t := s.tasks[name]
		t.enabled = false
		s.disarmLocked(t)
	}
	s.log.Info("all tasks stopped", logx.Int("total", len(s.order)))
}

// SetTarget binds name to a chat and optional forum topic, whether or not
// the task exists.
func (s *Service) SetTarget(name string, to transport.ChatTarget) {
	s.dir.Set(name, to)
	s.log.Debug("channel bound", logx.String("task", name), logx.Int64("channel_id", to.ChatID), logx.Int("thread_id", to.ThreadID))
}

func (s *Service) Target(name string) (transport.ChatTarget, bool) { return s.dir.Get(name) }

// Bindings snapshots the channel directory.
func (s *Service) Bindings() map[string]transport.ChatTarget { return s.dir.Snapshot() }

// Names lists task names in insertion order.
func (s *Service) Names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.order...)
}

// List snapshots every task in insertion order.
func (s *Service) List() []TaskInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]TaskInfo, 0, len(s.order))
	now := time.Now().In(s.loc)
	for _, name := range s.order {
		out = append(out, s.infoLocked(s.tasks[name], now))
	}
	return out
}

// Get snapshots one task.
func (s *Service) Get(name string) (TaskInfo, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[name]
	if !ok {
		return TaskInfo{}, false
	}
	return s.infoLocked(t, time.Now().In(s.loc)), true
}

func (s *Service) infoLocked(t *task, now time.Time) TaskInfo {
	info := TaskInfo{
		Name:        t.name,
		Time:        FormatHHMM(t.hour, t.minute),
		Hour:        t.hour,
		Minute:      t.minute,
		Enabled:     t.enabled,
		Running:     t.entryID != 0,
		Description: t.description,
		LastRun:     t.lastRun,
		LastError:   t.lastErr,
	}
	if to, ok := s.dir.Get(t.name); ok {
		id := to.ChatID
		info.ChannelID = &id
		info.ThreadID = to.ThreadID
	}
	if info.Running {
		info.Next = t.sched.Next(now)
	}
	return info
}

func (s *Service) buildTrigger(hour, minute int) (cron.Schedule, error) {
	if !ValidTime(hour, minute) {
		return nil, fmt.Errorf("%w: %d:%d", ErrInvalidTime, hour, minute)
	}
	sched, err := s.parser.Parse(dailySpec(hour, minute))
	if err != nil {
		return nil, fmt.Errorf("build trigger: %w", err)
	}
	return sched, nil
}

func (s *Service) armLocked(t *task) {
	if t.entryID != 0 {
		return
	}
	name, gen := t.name, t.gen
	t.entryID = s.c.Schedule(t.sched, cron.FuncJob(func() {
		s.dispatch(s.runContext(), name, gen, TriggerSchedule, false)
	}))
}

func (s *Service) disarmLocked(t *task) {
	if t.entryID == 0 {
		return
	}
	s.c.Remove(t.entryID)
	t.entryID = 0
}
