package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"deadlinebot/internal/deadline"
	"deadlinebot/internal/eventbus"
	"deadlinebot/internal/notifier"
	"deadlinebot/internal/reminder"
	"deadlinebot/internal/timeutil"
	logx "deadlinebot/pkg/logx"
)

// Loop owns one evaluation pass. Passes are serialized.
type Loop struct {
	store reminder.StateStore
	norm  *timeutil.Normalizer
	disp  Dispatcher
	log   logx.Logger
	bus   eventbus.Bus

	passMu sync.Mutex

	cfgMu          sync.RWMutex
	eval           *reminder.Evaluator
	personalPolicy reminder.Policy
	groupPolicy    reminder.Policy

	now func() time.Time
}

func NewLoop(cfg Config, store reminder.StateStore, norm *timeutil.Normalizer, disp Dispatcher, log logx.Logger, bus eventbus.Bus) *Loop {
	if log.IsZero() {
		log = logx.Nop()
	}
	l := &Loop{
		store: store,
		norm:  norm,
		disp:  disp,
		log:   log.With(logx.String("comp", "scheduler")),
		bus:   bus,
		now:   time.Now,
	}
	l.Apply(cfg)
	return l
}

// Apply takes effect from the next pass.
func (l *Loop) Apply(cfg Config) {
	if len(cfg.Windows) == 0 {
		cfg.Windows = DefaultConfig().Windows
	}
	l.cfgMu.Lock()
	l.eval = reminder.NewEvaluator(cfg.Windows...)
	l.personalPolicy = cfg.PersonalPolicy
	l.groupPolicy = cfg.GroupPolicy
	l.cfgMu.Unlock()
}

// SetClock overrides the wall clock; tests only.
func (l *Loop) SetClock(now func() time.Time) { l.now = now }

func (l *Loop) settings() (*reminder.Evaluator, reminder.Policy, reminder.Policy) {
	l.cfgMu.RLock()
	defer l.cfgMu.RUnlock()
	return l.eval, l.personalPolicy, l.groupPolicy
}

// RunOnce evaluates every active deadline against the current time. Errors are
// per deadline: they are logged, recorded and the pass moves on.
func (l *Loop) RunOnce(ctx context.Context) PassReport {
	l.passMu.Lock()
	defer l.passMu.Unlock()

	eval, personalPolicy, groupPolicy := l.settings()
	rep := PassReport{ID: uuid.NewString(), Started: l.now()}
	log := l.log.With(logx.String("pass", rep.ID))
	now := l.norm.ToLocal(rep.Started)

	personal, err := l.store.ActivePersonal(ctx)
	if err != nil {
		log.Error("loading personal deadlines failed", logx.Err(err))
		rep.Errors = append(rep.Errors, err)
	}
	for _, p := range personal {
		if ctx.Err() != nil {
			break
		}
		res := l.processPersonal(ctx, rep.ID, eval, personalPolicy, p, now)
		l.logResult(log, res)
		rep.add(res)
	}

	groups, err := l.store.ActiveGroup(ctx)
	if err != nil {
		log.Error("loading group deadlines failed", logx.Err(err))
		rep.Errors = append(rep.Errors, err)
	}
	for _, g := range groups {
		if ctx.Err() != nil {
			break
		}
		res := l.processGroup(ctx, rep.ID, eval, groupPolicy, g, now)
		l.logResult(log, res)
		rep.add(res)
	}

	rep.Finished = l.now()
	log.Info("reminder pass finished",
		logx.Int("evaluated", rep.Evaluated),
		logx.Int("fired", rep.Fired),
		logx.Int("delivered", rep.Delivered),
		logx.Int("failed", rep.Failed),
		logx.Int("errors", len(rep.Errors)),
		logx.Duration("took", rep.Finished.Sub(rep.Started)))
	if l.bus != nil {
		l.bus.Publish(eventbus.Event{Type: eventbus.TypePassDone, Time: rep.Finished, Data: PassSummary{
			ID:        rep.ID,
			Evaluated: rep.Evaluated,
			Fired:     rep.Fired,
			Delivered: rep.Delivered,
			Failed:    rep.Failed,
			Errors:    len(rep.Errors),
			Took:      rep.Finished.Sub(rep.Started),
		}})
	}
	return rep
}

// selectWindow applies policy with fresh flag state from the store.
func (l *Loop) selectWindow(ctx context.Context, eval *reminder.Evaluator, policy reminder.Policy, ref deadline.Ref, remaining time.Duration) (reminder.Window, Status, error) {
	w, ok, err := eval.Select(remaining, policy, func(h deadline.Horizon) (bool, error) {
		sent, err := l.store.HorizonSent(ctx, ref, h)
		return !sent, err
	})
	switch {
	case err != nil:
		return reminder.Window{}, StatusError, err
	case ok:
		return w, StatusFired, nil
	case len(eval.Matching(remaining)) > 0:
		return reminder.Window{}, StatusAlreadySent, nil
	default:
		return reminder.Window{}, StatusNoWindow, nil
	}
}

func (l *Loop) processPersonal(ctx context.Context, passID string, eval *reminder.Evaluator, policy reminder.Policy, p deadline.Personal, now time.Time) DeadlineResult {
	ref := p.Ref()
	remaining := l.norm.Remaining(l.norm.ToLocal(p.Due), now)
	res := DeadlineResult{Ref: ref, Remaining: remaining}
	if p.Completed {
		res.Status = StatusNoWindow
		return res
	}

	w, status, err := l.selectWindow(ctx, eval, policy, ref, remaining)
	if status != StatusFired {
		res.Status, res.Err = status, err
		return res
	}
	res.Horizon = w.Horizon

	on, err := l.store.Preference(ctx, p.OwnerID, w.Horizon)
	if err != nil {
		return failed(res, fmt.Errorf("preference of %d: %w", p.OwnerID, err))
	}
	if !on {
		// Disabled owners leave the flag untouched.
		res.Status = StatusDisabled
		return res
	}

	claimed, err := l.store.MarkSent(ctx, ref, w.Horizon)
	if err != nil {
		return failed(res, err)
	}
	if !claimed {
		res.Status = StatusClaimLost
		return res
	}

	msg := l.disp.Render(notifier.PersonalReminder(p), w.Horizon, remaining)
	msg.PassID = passID
	out := l.disp.Deliver(ctx, p.OwnerID, msg)
	res.Status = StatusFired
	res.Report = &notifier.Report{Ref: ref, Horizon: w.Horizon, Outcomes: []notifier.Outcome{out}}
	return res
}

func (l *Loop) processGroup(ctx context.Context, passID string, eval *reminder.Evaluator, policy reminder.Policy, g deadline.Group, now time.Time) DeadlineResult {
	ref := g.Ref()
	remaining := l.norm.Remaining(l.norm.ToLocal(g.Due), now)
	res := DeadlineResult{Ref: ref, Remaining: remaining}

	w, status, err := l.selectWindow(ctx, eval, policy, ref, remaining)
	if status != StatusFired {
		res.Status, res.Err = status, err
		return res
	}
	res.Horizon = w.Horizon

	// Everything the fan-out needs is read before the claim, so a read error
	// leaves the flag pending for the next tick inside the window.
	subscribers, err := l.store.Subscribers(ctx, g)
	if err != nil {
		return failed(res, err)
	}
	if len(subscribers) == 0 {
		// Nobody to remind yet: keep the horizon for members who join later.
		res.Status = StatusNoRecipients
		return res
	}
	g.Subscribers = subscribers

	var recipients []int64
	for _, uid := range subscribers {
		on, err := l.store.Preference(ctx, uid, w.Horizon)
		if err != nil {
			return failed(res, fmt.Errorf("preference of %d for %s: %w", uid, ref, err))
		}
		if on {
			recipients = append(recipients, uid)
		}
	}

	// The flag is claimed once for the whole group, whatever each delivery does.
	claimed, err := l.store.MarkSent(ctx, ref, w.Horizon)
	if err != nil {
		return failed(res, err)
	}
	if !claimed {
		res.Status = StatusClaimLost
		return res
	}
	if len(recipients) == 0 {
		res.Status = StatusDisabled
		return res
	}

	msg := l.disp.Render(notifier.GroupReminder(g), w.Horizon, remaining)
	msg.PassID = passID
	rep := l.disp.FanOut(ctx, recipients, msg)
	res.Status = StatusFired
	res.Report = &rep
	return res
}

func failed(res DeadlineResult, err error) DeadlineResult {
	res.Status = StatusError
	res.Err = err
	return res
}

func (l *Loop) logResult(log logx.Logger, res DeadlineResult) {
	switch res.Status {
	case StatusNoWindow:
		return
	case StatusError:
		log.Error("deadline evaluation failed",
			logx.String("ref", res.Ref.String()), logx.Err(res.Err))
	default:
		fields := []logx.Field{
			logx.String("ref", res.Ref.String()),
			logx.String("status", string(res.Status)),
			logx.Duration("remaining", res.Remaining),
		}
		if res.Horizon.Valid() {
			fields = append(fields, logx.String("horizon", res.Horizon.String()))
		}
		if res.Report != nil {
			fields = append(fields, logx.Int("delivered", res.Report.Delivered()), logx.Int("failed", res.Report.Failed()))
		}
		log.Debug("deadline evaluated", fields...)
	}
}
