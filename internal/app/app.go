// Package app wires config, storage, clients, sinks, the notifier and the
// scheduler into one runnable unit with hot config reload.
package app

import (
	"context"
	"fmt"
	"reflect"
	"time"

	"menubot/internal/config"
	"menubot/internal/dining"
	"menubot/internal/notifier"
	"menubot/internal/radio"
	"menubot/internal/runtime/supervisor"
	"menubot/internal/scheduler"
	"menubot/internal/sink"
	"menubot/internal/sink/groupme"
	"menubot/internal/sink/telegram"
	"menubot/internal/storage"
	logx "menubot/pkg/logx"
)

type App struct {
	cfgm *config.Manager
	sup  *supervisor.Supervisor

	log  logx.Logger
	logs *logx.Service

	store storage.Store
	notif *notifier.Service
	sched *scheduler.Service
}

func New(cfgPath string) (*App, error) {
	cfgm := config.NewManager(cfgPath)
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", cfgPath, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logSvc, log := logx.New(logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	})
	log = log.With(logx.String("comp", "app"))

	store, err := storage.Open(storageConfig(cfg), log.With(logx.String("comp", "storage")))
	if err != nil {
		logSvc.Close()
		return nil, err
	}

	menuTimeout, err := config.ParseDurationField("menu.timeout", cfg.Menu.Timeout)
	if err != nil {
		_ = storeClose(store)
		logSvc.Close()
		return nil, err
	}
	menus := dining.NewClient(dining.ClientConfig{
		APIURL:  cfg.Menu.APIURL,
		Timeout: menuTimeout,
	}, log.With(logx.String("comp", "menu")))

	radioTimeout, err := config.ParseDurationField("radio.timeout", cfg.Radio.Timeout)
	if err != nil {
		_ = storeClose(store)
		logSvc.Close()
		return nil, err
	}
	maxAge, err := config.ParseDurationField("radio.max_song_age", cfg.Radio.MaxSongAge)
	if err != nil {
		_ = storeClose(store)
		logSvc.Close()
		return nil, err
	}
	radioLog := log.With(logx.String("comp", "radio"))
	np := radio.NewSource(radio.SourceConfig{
		Enabled:    cfg.Radio.Enabled,
		MaxSongAge: maxAge,
	}, radio.NewClient(radio.ClientConfig{
		BaseURL: cfg.Radio.BaseURL,
		Timeout: radioTimeout,
	}, radioLog), radioLog)

	notifSvc := notifier.New(notifierConfig(cfg), menus, np, store,
		log.With(logx.String("comp", "notifier")))
	sinks, err := buildSinks(cfg, log)
	if err != nil {
		_ = storeClose(store)
		logSvc.Close()
		return nil, err
	}
	notifSvc.SetSinks(sinks)

	schedSvc := scheduler.New(schedulerConfig(cfg), func(ctx context.Context, now time.Time) error {
		_, err := notifSvc.RunCycle(ctx, now)
		return err
	}, log.With(logx.String("comp", "scheduler")))

	return &App{
		cfgm:  cfgm,
		log:   log,
		logs:  logSvc,
		store: store,
		notif: notifSvc,
		sched: schedSvc,
	}, nil
}

func (a *App) Logger() logx.Logger { return a.log }
func (a *App) Notifier() *notifier.Service { return a.notif }

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

	// transactional config reload: validate before commit/publish
	a.cfgm.SetLogger(a.log.With(logx.String("comp", "config")))
	a.cfgm.SetValidator(func(_ context.Context, cfg *config.Config) error {
		if err := cfg.Validate(); err != nil {
			return err
		}
		return a.sched.ValidateTriggers(cfg.Scheduler.Triggers)
	})

	if a.sched.Enabled() {
		a.sched.Start(a.sup.Context())
	}

	// hot reload config fan-out
	sub := a.cfgm.Subscribe(8)
	a.sup.Go0("config.reload", func(c context.Context) {
		defer a.cfgm.Unsubscribe(sub)
		lastApplied := a.cfgm.Get()
		for {
			select {
			case <-c.Done():
				return
			case newCfg, ok := <-sub:
				if !ok {
					return
				}
				// Coalesce bursts: keep only the latest config in the channel.
				for {
					select {
					case newer := <-sub:
						if newer != nil {
							newCfg = newer
						}
					default:
						goto APPLY
					}
				}
			APPLY:
				a.applyConfig(c, lastApplied, newCfg)
				lastApplied = newCfg
			}
		}
	})

	a.sup.Go("config.watch", func(c context.Context) error {
		return a.cfgm.Watch(c)
	})

	a.log.Info("app started")
	return nil
}

// applyConfig pushes a validated config update into the running services.
// Sections that are bound at construction time (menu/radio endpoints,
// storage driver) only log a restart hint.
func (a *App) applyConfig(ctx context.Context, old, cfg *config.Config) {
	a.logs.Apply(logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	})

	a.notif.Apply(notifierConfig(cfg))

	if sinksChanged(old, cfg) {
		sinks, err := buildSinks(cfg, a.log)
		if err != nil {
			a.log.Warn("sink rebuild failed; keeping previous sinks", logx.Err(err))
		} else {
			a.notif.SetSinks(sinks)
		}
	}

	prevEnabled := a.sched.Enabled()
	a.sched.Apply(schedulerConfig(cfg))
	if prevEnabled && !cfg.Scheduler.Enabled {
		a.log.Info("scheduler disabled via config")
		stopCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		a.sched.Stop(stopCtx)
		cancel()
	} else if !prevEnabled && cfg.Scheduler.Enabled {
		a.log.Info("scheduler enabled via config")
		a.sched.Start(ctx)
	}

	if old != nil {
		if !reflect.DeepEqual(old.Menu, cfg.Menu) || !reflect.DeepEqual(old.Radio, cfg.Radio) {
			a.log.Warn("menu/radio client changes take effect after restart")
		}
		if !reflect.DeepEqual(old.Storage, cfg.Storage) {
			a.log.Warn("storage changes take effect after restart")
		}
	}

	a.log.Info("config reloaded")
}

// Stop shuts the app down. Safe to call even if Start never ran (the -once
// path); storage and logging are closed either way.
func (a *App) Stop(ctx context.Context) error {
	a.log.Info("stopping")

	// Cancel the run context first so background loops start unwinding.
	if a.sup != nil {
		a.sup.Cancel()
	}

	// Run each shutdown step with an upper bound so one component can't
	// stall the whole stop.
	step := func(name string, max time.Duration, fn func(context.Context) error) {
		stepCtx, cancel := context.WithTimeout(ctx, max)
		defer cancel()

		done := make(chan error, 1)
		go func() {
			defer func() {
				if r := recover(); r != nil {
					done <- fmt.Errorf("panic in stop step %s: %v", name, r)
				}
			}()
			done <- fn(stepCtx)
		}()

		select {
		case err := <-done:
			if err != nil {
				a.log.Warn("stop step error", logx.String("name", name), logx.Err(err))
			}
		case <-stepCtx.Done():
			a.log.Warn("stop step deadline reached (continuing)",
				logx.String("name", name), logx.Err(stepCtx.Err()))
		}
	}

	if a.sup != nil {
		step("scheduler", 2*time.Second, func(c context.Context) error { a.sched.Stop(c); return nil })
		step("supervisor", 2*time.Second, func(c context.Context) error { return a.sup.Wait(c) })
	}
	step("storage", 1*time.Second, func(context.Context) error { return storeClose(a.store) })

	a.log.Info("stopped")
	return a.logs.Close()
}

func storeClose(s storage.Store) error {
	if s == nil {
		return nil
	}
	return s.Close()
}

func storageConfig(cfg *config.Config) storage.Config {
	if cfg.Storage == nil {
		return storage.Config{}
	}
	busy, _ := config.ParseDurationField("storage.busy_timeout", cfg.Storage.BusyTimeout)
	return storage.Config{
		Driver:      cfg.Storage.Driver,
		Path:        cfg.Storage.Path,
		BusyTimeout: busy,
	}
}

func notifierConfig(cfg *config.Config) notifier.Config {
	halls := make([]dining.Hall, 0, len(cfg.Menu.Halls))
	for _, h := range cfg.Menu.Halls {
		halls = append(halls, dining.Hall{ID: h.ID, Name: h.Name, Icon: h.Icon})
	}
	out := notifier.Config{Halls: halls}
	if n := cfg.Notifier; n != nil {
		out.RatePerSec = n.RatePerSec
		out.RetryMax = n.RetryMax
		out.MaxMessageLen = n.MaxMessageLen
		out.RetryBase, _ = config.ParseDurationField("notifier.retry_base", n.RetryBase)
		out.RetryMaxDelay, _ = config.ParseDurationField("notifier.retry_max_delay", n.RetryMaxDelay)
	}
	return out
}

func schedulerConfig(cfg *config.Config) scheduler.Config {
	return scheduler.Config{
		Enabled:  cfg.Scheduler.Enabled,
		Timezone: cfg.Scheduler.Timezone,
		Triggers: cfg.Scheduler.Triggers,
	}
}

func sinksChanged(old, cfg *config.Config) bool {
	if old == nil {
		return true
	}
	return !reflect.DeepEqual(old.GroupMe, cfg.GroupMe) || !reflect.DeepEqual(old.Telegram, cfg.Telegram)
}

func buildSinks(cfg *config.Config, log logx.Logger) ([]sink.Sink, error) {
	timeout, err := config.ParseDurationField("groupme.timeout", cfg.GroupMe.Timeout)
	if err != nil {
		return nil, err
	}
	gm, err := groupme.New(groupme.Config{
		BotID:   cfg.GroupMe.BotID,
		APIURL:  cfg.GroupMe.APIURL,
		Timeout: timeout,
	}, log.With(logx.String("comp", "groupme")))
	if err != nil {
		return nil, err
	}
	// GroupMe first: the primary sink decides whether a cycle counts as sent.
	sinks := []sink.Sink{gm}

	if t := cfg.Telegram; t != nil && t.Enabled {
		tg, err := telegram.New(telegram.Config{
			Token:  t.Token,
			ChatID: t.ChatID,
		}, log.With(logx.String("comp", "telegram")))
		if err != nil {
			return nil, fmt.Errorf("telegram sink: %w", err)
		}
		sinks = append(sinks, tg)
	}
	return sinks, nil
}
