package notifier

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"deadlinebot/internal/eventbus"
	"deadlinebot/internal/timeutil"
	"deadlinebot/internal/transport"
	logx "deadlinebot/pkg/logx"
)

var ErrNoSender = errors.New("notifier has no sender")

const (
	defaultTimeout    = 10 * time.Second
	defaultRatePerSec = 20
)

// Dispatcher is safe for concurrent use. The messaging client is injected.
type Dispatcher struct {
	sender Sender
	norm   *timeutil.Normalizer
	log    logx.Logger
	bus    eventbus.Bus

	mu      sync.Mutex
	cfg     Config
	limiter *rate.Limiter

	now func() time.Time
}

func New(cfg Config, sender Sender, norm *timeutil.Normalizer, log logx.Logger, bus eventbus.Bus) *Dispatcher {
	if log.IsZero() {
		log = logx.Nop()
	}
	if norm == nil {
		norm = timeutil.NewInLocation(time.UTC)
	}
	d := &Dispatcher{
		sender: sender,
		norm:   norm,
		log:    log.With(logx.String("comp", "notifier")),
		bus:    bus,
		now:    time.Now,
	}
	d.applyLocked(cfg)
	return d
}

// Apply swaps delivery settings; in-flight deliveries keep the old ones.
func (d *Dispatcher) Apply(cfg Config) {
	d.mu.Lock()
	d.applyLocked(cfg)
	d.mu.Unlock()
}

func (d *Dispatcher) applyLocked(cfg Config) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.RatePerSec <= 0 {
		cfg.RatePerSec = defaultRatePerSec
	}
	d.cfg = cfg
	// Burst equals the per-second rate so a short fan-out is not throttled.
	d.limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSec), cfg.RatePerSec)
}

func (d *Dispatcher) snapshot() (Config, *rate.Limiter) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.cfg, d.limiter
}

func (d *Dispatcher) sendOptions() transport.SendOptions {
	cfg, _ := d.snapshot()
	return transport.SendOptions{ParseMode: cfg.ParseMode, DisablePreview: cfg.DisablePreview}
}

// Deliver makes one attempt to send msg to recipient. It never retries.
func (d *Dispatcher) Deliver(ctx context.Context, recipient int64, msg Message) Outcome {
	cfg, lim := d.snapshot()
	start := d.now()
	out := Outcome{Recipient: recipient}

	err := d.deliver(ctx, cfg, lim, recipient, msg)
	out.Took = d.now().Sub(start)
	out.OK = err == nil
	out.Err = err

	fields := []logx.Field{
		logx.String("ref", msg.Ref.String()),
		logx.String("horizon", msg.Horizon.String()),
		logx.Int64("recipient", recipient),
		logx.Duration("took", out.Took),
	}
	if err != nil {
		d.log.Warn("reminder delivery failed", append(fields, logx.Err(err))...)
	} else {
		d.log.Info("reminder delivered", fields...)
	}
	d.publish(msg, out)
	return out
}

func (d *Dispatcher) deliver(ctx context.Context, cfg Config, lim *rate.Limiter, recipient int64, msg Message) error {
	if d.sender == nil {
		return ErrNoSender
	}
	cctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()
	if lim != nil {
		if err := lim.Wait(cctx); err != nil {
			return err
		}
	}
	opts := msg.Options
	return d.sender.SendText(cctx, recipient, msg.Text, &opts)
}

// FanOut attempts every recipient in order, independently of earlier failures.
func (d *Dispatcher) FanOut(ctx context.Context, recipients []int64, msg Message) Report {
	rep := Report{Ref: msg.Ref, Horizon: msg.Horizon, Outcomes: make([]Outcome, 0, len(recipients))}
	for _, r := range recipients {
		rep.Outcomes = append(rep.Outcomes, d.Deliver(ctx, r, msg))
	}
	return rep
}

func (d *Dispatcher) publish(msg Message, out Outcome) {
	if d.bus == nil {
		return
	}
	typ := eventbus.TypeDelivered
	ev := DeliveryEvent{
		PassID:    msg.PassID,
		Ref:       msg.Ref,
		Horizon:   msg.Horizon,
		Recipient: out.Recipient,
		OK:        out.OK,
		Took:      out.Took,
		At:        d.now(),
	}
	if out.Err != nil {
		typ = eventbus.TypeFailed
		ev.Error = out.Err.Error()
	}
	d.bus.Publish(eventbus.Event{Type: typ, Time: ev.At, Data: ev})
}
