package scheduler

import (
	"context"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"calbot/internal/eventbus"
	"calbot/internal/transport"
	"calbot/pkg/logx"
)

// New builds an idle registry. The clock does not tick until Start.
// resolver and bus may be nil.
func New(cfg Config, resolver transport.Resolver, log logx.Logger, bus eventbus.Bus) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	s := &Service{
		cfg:      cfg,
		log:      log,
		bus:      bus,
		resolver: resolver,
		dir:      NewDirectory(),
		parser:   cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow),
		ctx:      context.Background(),
		tasks:    map[string]*task{},
	}
	s.loc = s.loadLocationLocked()
	s.c = s.newCronLocked()
	return s
}

// Location returns the zone triggers are evaluated in.
func (s *Service) Location() *time.Location {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loc
}

// Start begins ticking. Scheduled payloads run with ctx.
func (s *Service) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return
	}
	if ctx != nil {
		s.ctx = ctx
	}
	s.c.Start()
	s.started = true
	s.log.Info("clock started", logx.String("tz", s.loc.String()), logx.Int("tasks", len(s.order)), logx.Int("armed", s.armedLocked()))
}

// Stop halts the clock and waits for in-flight jobs until ctx expires.
// Armed entries survive and resume on the next Start.
func (s *Service) Stop(ctx context.Context) {
	start := time.Now()
	s.mu.Lock()
	c := s.c
	wasStarted := s.started
	s.started = false
	s.mu.Unlock()
	if !wasStarted {
		return
	}

	select {
	case <-c.Stop().Done():
	case <-ctx.Done():
		s.log.Warn("clock stop: payloads still in flight", logx.Err(ctx.Err()))
	}
	s.log.Info("clock stopped", logx.Duration("took", time.Since(start)))
}

// Apply updates the clock config. A timezone change rebuilds the clock and
// re-arms every armed task in the new zone.
func (s *Service) Apply(cfg Config) {
	s.mu.Lock()
	oldTZ := strings.TrimSpace(s.cfg.Timezone)
	s.cfg = cfg
	if oldTZ == strings.TrimSpace(cfg.Timezone) {
		s.mu.Unlock()
		return
	}

	old := s.c
	s.loc = s.loadLocationLocked()
	s.c = s.newCronLocked()
	for _, name := range s.order {
		t := s.tasks[name]
		if t.entryID == 0 {
			continue
		}
		t.entryID = 0
		s.armLocked(t)
	}
	if s.started {
		s.c.Start()
	}
	loc := s.loc
	armed := s.armedLocked()
	s.mu.Unlock()

	// In-flight payloads on the old clock finish on their own.
	old.Stop()
	s.log.Info("clock rebuilt", logx.String("tz", loc.String()), logx.Int("armed", armed))
}

func (s *Service) newCronLocked() *cron.Cron {
	cl := logx.CronLogger(s.log)
	return cron.New(
		cron.WithParser(s.parser),
		cron.WithLocation(s.loc),
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl)),
	)
}

func (s *Service) loadLocationLocked() *time.Location {
	loc, err := LoadLocation(s.cfg.Timezone)
	if err != nil {
		s.log.Warn("invalid timezone; falling back to Local", logx.String("tz", s.cfg.Timezone), logx.Err(err))
		return time.Local
	}
	return loc
}

func (s *Service) armedLocked() int {
	n := 0
	for _, t := range s.tasks {
		if t.entryID != 0 {
			n++
		}
	}
	return n
}
