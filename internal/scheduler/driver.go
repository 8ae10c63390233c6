package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	logx "deadlinebot/pkg/logx"
)

const DefaultTick = 6 * time.Hour

type DriverConfig struct {
	Tick          time.Duration
	FirstRunDelay time.Duration
	Location      *time.Location
}

// Driver triggers Loop.RunOnce on a fixed interval. A tick that fires while
// the previous pass is still running is skipped.
type Driver struct {
	loop *Loop
	log  logx.Logger

	mu      sync.Mutex
	cfg     DriverConfig
	c       *cron.Cron
	entryID cron.EntryID
	first   *time.Timer
	firstWG sync.WaitGroup
	runCtx  context.Context
	cancel  context.CancelFunc
	// guard runs a pass with panic recovery; set by the owner.
	guard func(name string, fn func() error) error
}

func NewDriver(loop *Loop, cfg DriverConfig, log logx.Logger) *Driver {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Driver{
		loop: loop,
		log:  log.With(logx.String("comp", "driver")),
		cfg:  normalizeDriver(cfg),
		guard: func(_ string, fn func() error) error {
			return fn()
		},
	}
}

// WithGuard wraps each pass, typically with a supervisor's panic recovery.
func (d *Driver) WithGuard(guard func(name string, fn func() error) error) *Driver {
	if guard != nil {
		d.guard = guard
	}
	return d
}

func normalizeDriver(cfg DriverConfig) DriverConfig {
	if cfg.Tick <= 0 {
		cfg.Tick = DefaultTick
	}
	if cfg.FirstRunDelay < 0 {
		cfg.FirstRunDelay = 0
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return cfg
}

func (d *Driver) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.c != nil {
		return errors.New("driver already started")
	}

	d.runCtx, d.cancel = context.WithCancel(ctx)
	cl := cronLogger{log: d.log}
	d.c = cron.New(
		cron.WithLocation(d.cfg.Location),
		cron.WithLogger(cl),
		cron.WithChain(cron.SkipIfStillRunning(cl)),
	)
	if err := d.scheduleLocked(); err != nil {
		d.cancel()
		d.c = nil
		return err
	}
	d.c.Start()

	if d.cfg.FirstRunDelay > 0 {
		runCtx := d.runCtx
		d.firstWG.Add(1)
		d.first = time.AfterFunc(d.cfg.FirstRunDelay, func() {
			defer d.firstWG.Done()
			d.run(runCtx)
		})
	}
	d.log.Info("reminder driver started",
		logx.Duration("tick", d.cfg.Tick),
		logx.Duration("first_run_delay", d.cfg.FirstRunDelay),
		logx.String("tz", d.cfg.Location.String()))
	return nil
}

func (d *Driver) scheduleLocked() error {
	runCtx := d.runCtx
	id, err := d.c.AddFunc(fmt.Sprintf("@every %s", d.cfg.Tick), func() { d.run(runCtx) })
	if err != nil {
		return fmt.Errorf("scheduling reminder pass: %w", err)
	}
	d.entryID = id
	return nil
}

// Reschedule swaps the tick interval of a running driver.
func (d *Driver) Reschedule(tick time.Duration) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	cfg := d.cfg
	cfg.Tick = tick
	cfg = normalizeDriver(cfg)
	if cfg.Tick == d.cfg.Tick {
		return nil
	}
	d.cfg = cfg
	if d.c == nil {
		return nil
	}
	d.c.Remove(d.entryID)
	if err := d.scheduleLocked(); err != nil {
		return err
	}
	d.log.Info("reminder tick changed", logx.Duration("tick", cfg.Tick))
	return nil
}

// Next reports the next scheduled pass, zero if stopped.
func (d *Driver) Next() time.Time {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.c == nil {
		return time.Time{}
	}
	return d.c.Entry(d.entryID).Next
}

func (d *Driver) run(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	_ = d.guard("reminder.pass", func() error {
		d.loop.RunOnce(ctx)
		return nil
	})
}

// Stop halts scheduling and waits for a running pass, scheduled or the
// delayed first one, until ctx is done.
func (d *Driver) Stop(ctx context.Context) error {
	d.mu.Lock()
	c := d.c
	d.c = nil
	if d.first != nil {
		if d.first.Stop() {
			d.firstWG.Done()
		}
		d.first = nil
	}
	cancel := d.cancel
	d.mu.Unlock()
	if c == nil {
		return nil
	}

	stopped := c.Stop()
	idle := make(chan struct{})
	go func() {
		<-stopped.Done()
		d.firstWG.Wait()
		close(idle)
	}()
	select {
	case <-idle:
	case <-ctx.Done():
		// Abort the in-flight pass.
		if cancel != nil {
			cancel()
		}
		return ctx.Err()
	}
	if cancel != nil {
		cancel()
	}
	d.log.Info("reminder driver stopped")
	return nil
}

// cronLogger adapts logx to cron.Logger.
type cronLogger struct {
	log logx.Logger
}

func (c cronLogger) Info(msg string, kv ...interface{}) {
	c.log.Debug("cron: "+msg, kvFields(kv)...)
}

func (c cronLogger) Error(err error, msg string, kv ...interface{}) {
	c.log.Error("cron: "+msg, append(kvFields(kv), logx.Err(err))...)
}

func kvFields(kv []interface{}) []logx.Field {
	out := make([]logx.Field, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		out = append(out, logx.Any(fmt.Sprint(kv[i]), kv[i+1]))
	}
	return out
}
