package app

import (
	"context"
	"reflect"
	"strings"
	"time"

	"calbot/internal/config"
	"calbot/internal/scheduler"
	"calbot/pkg/logx"
)

// reloadLoop applies published configs until ctx is done.
func (a *App) reloadLoop(ctx context.Context, sub <-chan *config.Config) {
	last := a.cfgm.Get()
	for {
		select {
		case <-ctx.Done():
			return
		case cfg, ok := <-sub:
			if !ok {
				return
			}
			// Coalesce bursts: keep only the latest config in the channel.
		drain:
			for {
				select {
				case newer := <-sub:
					if newer != nil {
						cfg = newer
					}
				default:
					break drain
				}
			}
			if cfg == nil {
				continue
			}
			a.applyConfig(last, cfg)
			last = cfg
		}
	}
}

// applyConfig pushes the live-reloadable parts of cfg into the running
// components. Authorized users are read from the manager on every command and
// need nothing here.
func (a *App) applyConfig(old, cfg *config.Config) {
	sections, fields := config.SummarizeConfigChange(old, cfg)
	if len(sections) == 0 {
		a.log.Info("config reloaded (no changes)")
		return
	}
	a.log.Debug("config change summary", append([]logx.Field{logx.String("changed", strings.Join(sections, ","))}, fields...)...)

	a.logs.Apply(mapLogConfig(cfg))
	a.cmdm.SetPrefix(cfg.Commands.Prefix)
	a.cmdm.SetDefaultTimeout(commandTimeout(cfg))
	if old == nil || old.Debug != cfg.Debug {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		a.dbg.Apply(ctx, mapDebugConfig(cfg))
		cancel()
	}

	if old == nil || old.Scheduler.Timezone != cfg.Scheduler.Timezone {
		a.sched.Apply(scheduler.Config{Timezone: cfg.Scheduler.Timezone})
		a.cal.SetLocation(a.sched.Location())
		a.log.Info("timezone changed", logx.String("tz", a.sched.Location().String()))
	}
	if old != nil && !reflect.DeepEqual(old.EffectiveTasks(), cfg.EffectiveTasks()) {
		a.log.Warn("scheduler task definitions changed; restart required for changes to take effect")
	}
	if config.RequiresRestart(old, cfg) {
		a.log.Warn("telegram, google or storage config changed; restart required for changes to take effect")
	}

	a.log.Info("config reloaded", append([]logx.Field{logx.String("changed", strings.Join(sections, ","))}, fields...)...)
}
