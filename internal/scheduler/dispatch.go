package scheduler

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"calbot/internal/eventbus"
	"calbot/internal/transport"
	"calbot/pkg/logx"
)

// Fire runs the dispatcher for name exactly as a clock tick would, including
// the enabled check. The payload error is captured in the report, not returned.
func (s *Service) Fire(ctx context.Context, name string) (FireReport, bool) {
	gen, ok := s.generation(name)
	if !ok {
		return FireReport{}, false
	}
	return s.dispatch(ctx, name, gen, TriggerSchedule, false), true
}

// RunNow invokes a task's payload on request, regardless of its enabled flag.
func (s *Service) RunNow(ctx context.Context, name string) (FireReport, bool) {
	gen, ok := s.generation(name)
	if !ok {
		return FireReport{}, false
	}
	return s.dispatch(ctx, name, gen, TriggerManual, true), true
}

func (s *Service) generation(name string) (uint64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[name]
	if !ok {
		return 0, false
	}
	return t.gen, true
}

func (s *Service) runContext() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ctx
}

func (s *Service) dispatch(ctx context.Context, name string, gen uint64, trig Trigger, force bool) FireReport {
	rep := FireReport{Task: name, Trigger: trig, Started: time.Now()}
	log := s.log.With(logx.String("task", name), logx.String("trigger", string(trig)))

	s.mu.Lock()
	t, ok := s.tasks[name]
	switch {
	case !ok || t.gen != gen:
		rep.Skipped = "replaced"
	case !t.enabled && !force:
		rep.Skipped = "disabled"
	}
	if rep.Skipped != "" {
		s.mu.Unlock()
		log.Debug("fire skipped", logx.String("reason", rep.Skipped))
		return rep
	}
	payload := t.payload
	s.mu.Unlock()

	if !t.gate.TryLock() {
		rep.Skipped = "in flight"
		log.Warn("fire skipped: previous run still in flight")
		s.publish(rep)
		return rep
	}
	defer t.gate.Unlock()

	if err := s.waitReady(ctx); err != nil {
		rep.Skipped = "not ready"
		rep.Err = err
		log.Warn("fire skipped: chat connection not ready", logx.Err(err))
		s.publish(rep)
		return rep
	}

	ch := s.resolveChannel(ctx, name, &rep, log)
	rep.Invoked = true
	rep.Err = invoke(ctx, payload, ch)
	rep.Took = time.Since(rep.Started)

	s.mu.Lock()
	if cur, ok := s.tasks[name]; ok && cur.gen == gen {
		cur.lastRun = rep.Started
		cur.lastErr = ""
		if rep.Err != nil {
			cur.lastErr = rep.Err.Error()
		}
	}
	s.mu.Unlock()

	if rep.Err != nil {
		log.Error("payload failed", logx.Err(rep.Err), logx.Duration("took", rep.Took))
	} else {
		log.Info("payload done", logx.Bool("channel", rep.Resolved), logx.Duration("took", rep.Took))
	}
	s.publish(rep)
	return rep
}

// waitReady blocks until the chat connection can resolve channels. Once the
// gate opens this returns immediately.
func (s *Service) waitReady(ctx context.Context) error {
	if s.resolver == nil {
		return nil
	}
	select {
	case <-s.resolver.Ready():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Service) resolveChannel(ctx context.Context, name string, rep *FireReport, log logx.Logger) transport.Channel {
	to, ok := s.Target(name)
	if !ok {
		log.Debug("no channel bound")
		return nil
	}
	id := to.ChatID
	rep.ChannelID = &id
	if s.resolver == nil {
		return nil
	}
	ch, err := s.resolver.ResolveChannel(ctx, id)
	if err != nil || ch == nil {
		log.Warn("channel unavailable; running without one", logx.Int64("channel_id", id), logx.Err(err))
		return nil
	}
	rep.Resolved = true
	return transport.InThread(ch, to.ThreadID)
}

func invoke(ctx context.Context, p Payload, ch transport.Channel) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("payload panic: %v\n%s", r, debug.Stack())
		}
	}()
	return p(ctx, ch)
}

func (s *Service) publish(rep FireReport) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(eventbus.Event{Type: EventRun, Time: rep.Started, Data: rep})
}
