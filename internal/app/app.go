// Package app wires the bot together and owns its lifecycle.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"calbot/internal/agenda"
	"calbot/internal/calendar"
	"calbot/internal/commands"
	"calbot/internal/config"
	"calbot/internal/eventbus"
	"calbot/internal/observability/debug"
	"calbot/internal/runtime/supervisor"
	"calbot/internal/scheduler"
	"calbot/internal/storage"
	"calbot/internal/transport"
	"calbot/internal/transport/router"
	"calbot/internal/transport/telegram"
	"calbot/pkg/logx"
)

type App struct {
	cfgm *config.ConfigManager
	sup  *supervisor.Supervisor

	log   logx.Logger
	logs  *logx.Service
	bus   *eventbus.MemBus
	store storage.Store

	adapter *telegram.Adapter
	sched   *scheduler.Service
	cal     *calendar.Client
	agenda  *agenda.Notifier
	cmdm    *router.CommandManager
	dbg     *debug.Server

	updates chan transport.Update
}

// New loads and validates the configuration through cfgm and builds every
// component. Nothing runs until Start.
func New(ctx context.Context, cfgm *config.ConfigManager) (*App, error) {
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	logSvc, root := logx.NewService(mapLogConfig(cfg), nil)
	log := root.With(logx.String("comp", "app"))

	pollTimeout, err := config.ParseDurationOrDefault("telegram.poll_timeout", cfg.Telegram.PollTimeout, defaultPollTimeout)
	if err != nil {
		return nil, err
	}
	ad, err := telegram.New(telegram.Config{
		Token:       cfg.Telegram.Token,
		PollTimeout: pollTimeout,
	}, root.With(logx.String("comp", "telegram")))
	if err != nil {
		return nil, err
	}
	logSvc.SetSender(ad)

	var store storage.Store
	if sc, enabled, err := mapStorageConfig(cfg); err != nil {
		return nil, err
	} else if enabled {
		st, err := storage.Open(sc, root.With(logx.String("comp", "storage")))
		if err != nil {
			return nil, fmt.Errorf("storage: %w", err)
		}
		store = st
		log.Info("storage enabled", logx.String("driver", sc.Driver), logx.String("path", sc.Path))
	}

	bus := eventbus.New()
	sched := scheduler.New(scheduler.Config{Timezone: cfg.Scheduler.Timezone}, ad,
		root.With(logx.String("comp", "scheduler")), bus)

	calTimeout, err := config.ParseDurationOrDefault("google.timeout", cfg.Google.Timeout, defaultCalendarTimeout)
	if err != nil {
		return nil, closeOnErr(store, err)
	}
	cal, err := calendar.NewClient(ctx, calendar.Config{
		APIKey:     cfg.Google.APIKey,
		CalendarID: cfg.Google.CalendarID,
		Location:   sched.Location(),
		Timeout:    calTimeout,
	}, root.With(logx.String("comp", "calendar")))
	if err != nil {
		return nil, closeOnErr(store, err)
	}
	ag := agenda.New(cal, root.With(logx.String("comp", "agenda")))

	if err := seedTasks(sched, ag.Payload, cfg.EffectiveTasks(), log); err != nil {
		return nil, closeOnErr(store, err)
	}

	a := &App{
		cfgm:    cfgm,
		log:     log,
		logs:    logSvc,
		bus:     bus,
		store:   store,
		adapter: ad,
		sched:   sched,
		cal:     cal,
		agenda:  ag,
		dbg:     debug.New(sched, root.With(logx.String("comp", "debug"))),
		updates: make(chan transport.Update, 256),
	}

	set := commands.New(commands.Deps{
		Scheduler:   sched,
		Agenda:      ag,
		Store:       store,
		Resolver:    ad,
		Admins:      ad,
		Authorized:  a.isAuthorized,
		Settings:    a.settings,
		DefaultTask: config.DefaultTaskName,
		Log:         root,
	})
	a.cmdm = router.NewCommandManager(root.With(logx.String("comp", "router")), ad, cfg.Commands.Prefix)
	a.cmdm.SetDefaultTimeout(commandTimeout(cfg))
	a.cmdm.SetRegistry(set.Commands())

	return a, nil
}

func closeOnErr(store storage.Store, err error) error {
	if store != nil {
		return errors.Join(err, store.Close())
	}
	return err
}

func commandTimeout(cfg *config.Config) time.Duration {
	d, err := config.ParseDurationOrDefault("commands.timeout", cfg.Commands.Timeout, defaultCommandTimeout)
	if err != nil {
		return defaultCommandTimeout
	}
	return d
}

// isAuthorized reads the live config so reloads apply to the next command.
func (a *App) isAuthorized(userID int64) bool {
	cfg := a.cfgm.Get()
	return cfg != nil && cfg.IsAuthorized(userID)
}

func (a *App) settings() commands.Settings {
	cfg := a.cfgm.Get()
	if cfg == nil {
		return commands.Settings{}
	}
	set := commands.Settings{
		DailyHour: config.DefaultDailyHour,
		Timezone:  cfg.Scheduler.Timezone,
	}
	if cfg.Scheduler.Daily.Hour != nil {
		set.DailyHour = *cfg.Scheduler.Daily.Hour
	}
	if cfg.Scheduler.Daily.Minute != nil {
		set.DailyMinute = *cfg.Scheduler.Daily.Minute
	}
	return set
}

// Done is closed when the app supervisor context is canceled (fatal error or Stop()).
func (a *App) Done() <-chan struct{} {
	if a.sup == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return a.sup.Context().Done()
}

// Err returns the first fatal error observed by the supervisor (if any).
func (a *App) Err() error {
	if a.sup == nil {
		return nil
	}
	return a.sup.Err()
}

func (a *App) Start(ctx context.Context) error {
	a.sup = supervisor.New(ctx, supervisor.WithLogger(a.log), supervisor.WithCancelOnError(true))
	a.cfgm.SetLogger(a.log.With(logx.String("comp", "config")))

	if err := a.adapter.Start(a.sup.Context(), a.updates); err != nil {
		return err
	}
	a.cmdm.SetBotUsername(a.adapter.Username())

	// Subscribe before the clock starts so no run is missed.
	runs, unsub := a.bus.Subscribe(64, scheduler.EventRun)
	a.sup.Go0("runs.record", func(c context.Context) {
		defer unsub()
		recordRuns(c, runs, a.store, a.log.With(logx.String("comp", "runs")))
	})

	armed := a.sched.StartAll()
	a.sched.Start(a.sup.Context())
	a.log.Info("scheduler started", logx.Int("armed", armed), logx.String("tz", a.sched.Location().String()))

	a.sup.Go("commands.dispatch", func(c context.Context) error {
		return a.cmdm.DispatchLoop(c, a.updates)
	})
	a.sup.Go0("commands.menu", func(c context.Context) {
		mctx, cancel := context.WithTimeout(c, 15*time.Second)
		defer cancel()
		if err := a.cmdm.PublishMenu(mctx); err != nil {
			a.log.Warn("command menu publish failed", logx.Err(err))
		}
	})

	a.dbg.Apply(a.sup.Context(), mapDebugConfig(a.cfgm.Get()))

	sub := a.cfgm.Subscribe(8)
	a.sup.Go0("config.reload", func(c context.Context) {
		defer a.cfgm.Unsubscribe(sub)
		a.reloadLoop(c, sub)
	})
	if a.cfgm.Path() != "" {
		a.sup.Go("config.watch", func(c context.Context) error {
			return a.cfgm.Watch(c)
		})
	}

	a.log.Info("app started", logx.String("prefix", a.cmdm.Prefix()), logx.Bool("storage", a.store != nil))
	return nil
}

func (a *App) Stop(ctx context.Context, reason StopReason) error {
	if a.sup == nil {
		return nil
	}
	a.log.Info("stopping", logx.String("reason", string(reason)))

	// Cancel the run context first so background loops start unwinding.
	a.sup.Cancel()

	a.step(ctx, "scheduler", 3*time.Second, func(c context.Context) error { a.sched.Stop(c); return nil })
	a.step(ctx, "debug", 2*time.Second, a.dbg.Stop)
	a.step(ctx, "adapter", 2*time.Second, func(c context.Context) error { return a.adapter.Stop(c) })
	a.step(ctx, "supervisor", 2*time.Second, func(c context.Context) error { return a.sup.Wait(c) })
	a.step(ctx, "storage", 1*time.Second, func(c context.Context) error {
		if a.store != nil {
			return a.store.Close()
		}
		return nil
	})

	a.log.Info("stopped")
	if a.logs != nil {
		_ = a.logs.Close()
	}
	return nil
}
