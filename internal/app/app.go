package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"

	"deadlinebot/internal/config"
	"deadlinebot/internal/eventbus"
	"deadlinebot/internal/notifier"
	"deadlinebot/internal/runtime/supervisor"
	"deadlinebot/internal/scheduler"
	"deadlinebot/internal/storage"
	"deadlinebot/internal/timeutil"
	"deadlinebot/internal/transport/telegram"
	logx "deadlinebot/pkg/logx"
)

type App struct {
	cfgm *config.Manager
	sup  *supervisor.Supervisor

	log   logx.Logger
	logs  *logx.Service
	bus   eventbus.Bus
	store storage.Store
	norm  *timeutil.Normalizer

	disp   *notifier.Dispatcher
	loop   *scheduler.Loop
	driver *scheduler.Driver

	mu      sync.Mutex
	applied *config.Config
}

type options struct {
	sender notifier.Sender
}

type Option func(*options)

// WithSender replaces the Telegram sender.
func WithSender(s notifier.Sender) Option {
	return func(o *options) { o.sender = s }
}

// New loads the config and wires every component. Nothing runs until Start.
func New(ctx context.Context, cfgPath string, opts ...Option) (*App, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	bootLog := logx.NewConsole("INFO").With(logx.String("comp", "app"))
	cfgm := config.NewManager(cfgPath, bootLog)
	cfgm.SetValidator(config.Validate)
	cfg, err := cfgm.Load(ctx)
	if err != nil {
		return nil, err
	}
	s, err := mapSettings(cfg)
	if err != nil {
		return nil, err
	}

	logSvc, root := logx.New(s.logging)
	log := root.With(logx.String("comp", "app"))
	cfgm.SetLogger(root)
	for _, w := range s.resolved.Warnings() {
		log.Warn("config warning", logx.String("warning", w))
	}

	sender := o.sender
	if sender == nil {
		tg, err := telegram.New(telegram.Config{
			Token:          cfg.Telegram.Token,
			RequestTimeout: s.resolved.RequestTimeout,
		}, root)
		if err != nil {
			_ = logSvc.Close()
			return nil, fmt.Errorf("telegram: %w", err)
		}
		sender = tg
	}

	store, err := storage.Open(storage.Config{
		Driver:      s.resolved.StorageDriver,
		Path:        s.resolved.StoragePath,
		BusyTimeout: s.resolved.BusyTimeout,
	}, root)
	if err != nil {
		_ = logSvc.Close()
		if errors.Is(err, storage.ErrDisabled) {
			return nil, errors.New("storage.driver none: reminder state needs a store")
		}
		return nil, err
	}
	log.Info("storage ready", logx.String("driver", s.resolved.StorageDriver), logx.String("path", s.resolved.StoragePath))

	bus := eventbus.New()
	norm := timeutil.NewInLocation(s.resolved.Location)
	disp := notifier.New(s.notifier, sender, norm, root, bus)
	loop := scheduler.NewLoop(s.loop, store, norm, disp, root, bus)
	driver := scheduler.NewDriver(loop, s.driver, root)

	return &App{
		cfgm:    cfgm,
		log:     log,
		logs:    logSvc,
		bus:     bus,
		store:   store,
		norm:    norm,
		disp:    disp,
		loop:    loop,
		driver:  driver,
		applied: cfg,
	}, nil
}

// Store exposes the application store to operator tooling.
func (a *App) Store() storage.Store { return a.store }

func (a *App) Normalizer() *timeutil.Normalizer { return a.norm }

func (a *App) Logger() logx.Logger { return a.log }

// RunOnce runs one evaluation pass immediately.
func (a *App) RunOnce(ctx context.Context) scheduler.PassReport {
	return a.loop.RunOnce(ctx)
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

	events, unsub := a.bus.Subscribe(256)
	auditLog := a.log.With(logx.String("comp", "audit"))
	a.sup.Go("delivery.audit", func(c context.Context) error {
		defer unsub()
		runAudit(c, a.store, events, auditLog)
		return nil
	})

	sub := a.cfgm.Subscribe(8)
	a.sup.Go("config.reload", func(c context.Context) error {
		defer a.cfgm.Unsubscribe(sub)
		for {
			select {
			case <-c.Done():
				return nil
			case newCfg, ok := <-sub:
				if !ok {
					return nil
				}
				// Coalesce bursts: keep only the latest config in the channel.
				for drained := false; !drained; {
					select {
					case newer := <-sub:
						if newer != nil {
							newCfg = newer
						}
					default:
						drained = true
					}
				}
				a.applyConfig(newCfg)
			}
		}
	})

	a.sup.Go("config.watch", func(c context.Context) error {
		return a.cfgm.Watch(c)
	})

	if err := a.driver.WithGuard(a.sup.Protect).Start(a.sup.Context()); err != nil {
		a.sup.Cancel()
		return err
	}

	notifySystemd(a.log, daemon.SdNotifyReady)
	a.log.Info("app started")
	return nil
}

// applyConfig pushes a validated config into the running components.
func (a *App) applyConfig(newCfg *config.Config) {
	a.mu.Lock()
	defer a.mu.Unlock()

	sections, attrs := config.SummarizeChange(a.applied, newCfg)
	if len(sections) == 0 {
		a.log.Debug("config reload received, but no effective changes detected")
		return
	}
	s, err := mapSettings(newCfg)
	if err != nil {
		a.log.Warn("invalid config; keeping previous", logx.Err(err))
		return
	}
	a.applied = newCfg

	if restart := config.RequiresRestart(sections); len(restart) > 0 {
		a.log.Warn("config changes need a restart to take effect", logx.String("sections", strings.Join(restart, ",")))
	}

	a.logs.Apply(s.logging)
	a.loop.Apply(s.loop)
	a.disp.Apply(s.notifier)
	if err := a.driver.Reschedule(s.driver.Tick); err != nil {
		a.log.Warn("reschedule failed; keeping previous tick", logx.Err(err))
	}
	for _, w := range s.resolved.Warnings() {
		a.log.Warn("config warning", logx.String("warning", w))
	}

	fields := append([]logx.Field{logx.String("changed", strings.Join(sections, ","))}, attrs...)
	a.log.Info("config reloaded", fields...)
}

func (a *App) Stop(ctx context.Context, reason StopReason) error {
	if a.sup == nil {
		return a.closeStore()
	}
	a.log.Info("stopping", logx.String("reason", string(reason)))
	notifySystemd(a.log, daemon.SdNotifyStopping)

	// Run a shutdown step with an upper bound that never extends the caller's deadline.
	step := func(name string, max time.Duration, fn func(context.Context) error) {
		start := time.Now()
		stepCtx, cancel := context.WithTimeout(ctx, max)
		defer cancel()
		if err := fn(stepCtx); err != nil {
			a.log.Warn("stop step error", logx.String("name", name), logx.Err(err))
		}
		took := time.Since(start)
		if took >= 500*time.Millisecond {
			a.log.Info("stop step end", logx.String("name", name), logx.Duration("took", took))
		} else {
			a.log.Debug("stop step end", logx.String("name", name), logx.Duration("took", took))
		}
	}

	// The driver goes first so an in-flight pass can finish its deliveries.
	step("driver", 5*time.Second, a.driver.Stop)
	step("supervisor", 2*time.Second, a.sup.Stop)
	step("storage", 1*time.Second, func(context.Context) error { return a.closeStore() })

	a.log.Info("stopped")
	if a.logs != nil {
		_ = a.logs.Close()
	}
	return nil
}

func (a *App) closeStore() error {
	if a.store == nil {
		return nil
	}
	err := a.store.Close()
	a.store = nil
	return err
}
