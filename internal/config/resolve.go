package config

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"deadlinebot/internal/deadline"
	"deadlinebot/internal/reminder"
	"deadlinebot/internal/transport"
)

const (
	DefaultTimezone      = "Europe/Moscow"
	DefaultTickInterval  = 6 * time.Hour
	DefaultFirstRunDelay = 10 * time.Second
	DefaultDeliveryLimit = 10 * time.Second
	DefaultRatePerSec    = 20
	DefaultStoragePath   = "./data/deadlinebot.db"
)

// Resolved is the typed, defaulted view of a Config.
type Resolved struct {
	Location        *time.Location
	Tick            time.Duration
	FirstRunDelay   time.Duration
	Tolerance       time.Duration
	Windows         []reminder.Window
	PersonalPolicy  reminder.Policy
	GroupPolicy     reminder.Policy
	DeliveryTimeout time.Duration
	RatePerSec      int
	ParseMode       string
	BusyTimeout     time.Duration
	RequestTimeout  time.Duration
	StorageDriver   string
	StoragePath     string
}

// Resolve parses durations and names and fills defaults. Every problem is
// reported, not only the first.
func Resolve(cfg *Config) (*Resolved, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	var errs []error
	collect := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}
	r := &Resolved{}

	tz := strings.TrimSpace(cfg.Timezone)
	if tz == "" {
		tz = DefaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		collect(fmt.Errorf("timezone: %w", err))
		loc = time.UTC
	}
	r.Location = loc

	rc := cfg.Reminders
	r.Tick, err = parseDuration("reminders.tick_interval", rc.TickInterval, DefaultTickInterval)
	collect(err)
	if err == nil && r.Tick == 0 {
		collect(errors.New("reminders.tick_interval must be > 0"))
	}
	r.FirstRunDelay, err = parseDuration("reminders.first_run_delay", rc.FirstRunDelay, DefaultFirstRunDelay)
	collect(err)
	r.Tolerance, err = parseDuration("reminders.tolerance", rc.Tolerance, reminder.DefaultTolerance)
	collect(err)

	r.Windows, err = resolveWindows(rc.Horizons, r.Tolerance)
	collect(err)

	r.PersonalPolicy, err = policyOr("reminders.personal_policy", rc.PersonalPolicy, reminder.PolicyFirstMatch)
	collect(err)
	r.GroupPolicy, err = policyOr("reminders.group_policy", rc.GroupPolicy, reminder.PolicyFirstPending)
	collect(err)

	r.DeliveryTimeout, err = parseDuration("delivery.timeout", cfg.Delivery.Timeout, DefaultDeliveryLimit)
	collect(err)
	r.RatePerSec = cfg.Delivery.RatePerSec
	if r.RatePerSec < 0 {
		collect(errors.New("delivery.rate_per_sec must be >= 0"))
	}
	if r.RatePerSec == 0 {
		r.RatePerSec = DefaultRatePerSec
	}

	switch pm := strings.TrimSpace(cfg.Telegram.ParseMode); {
	case pm == "":
		r.ParseMode = transport.ParseModeHTML
	case strings.EqualFold(pm, "none"):
		r.ParseMode = transport.ParseModeNone
	case strings.EqualFold(pm, transport.ParseModeHTML):
		r.ParseMode = transport.ParseModeHTML
	default:
		collect(fmt.Errorf("telegram.parse_mode: unsupported %q (use HTML or none)", pm))
	}
	// The Bot API client does not honor the delivery context, so its own
	// timeout is what actually bounds a send.
	r.RequestTimeout, err = parseDuration("telegram.request_timeout", cfg.Telegram.RequestTimeout, r.DeliveryTimeout)
	collect(err)

	r.StorageDriver = strings.ToLower(strings.TrimSpace(cfg.Storage.Driver))
	if r.StorageDriver == "" {
		r.StorageDriver = "sqlite"
	}
	r.StoragePath = strings.TrimSpace(cfg.Storage.Path)
	if r.StoragePath == "" {
		r.StoragePath = DefaultStoragePath
	}
	r.BusyTimeout, err = parseDuration("storage.busy_timeout", cfg.Storage.BusyTimeout, 0)
	collect(err)

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return r, nil
}

func resolveWindows(hs []HorizonConfig, tolerance time.Duration) ([]reminder.Window, error) {
	stock := map[deadline.Horizon]time.Duration{}
	for _, w := range reminder.DefaultWindows(tolerance) {
		stock[w.Horizon] = w.Target
	}
	if len(hs) == 0 {
		return []reminder.Window{
			{Horizon: deadline.HorizonWeek, Target: stock[deadline.HorizonWeek], Tolerance: tolerance},
			{Horizon: deadline.HorizonDay, Target: stock[deadline.HorizonDay], Tolerance: tolerance},
		}, nil
	}

	var errs []error
	seen := map[deadline.Horizon]bool{}
	out := make([]reminder.Window, 0, len(hs))
	for i, hc := range hs {
		field := fmt.Sprintf("reminders.horizons[%d]", i)
		h, err := deadline.ParseHorizon(hc.Name)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s.name: %w", field, err))
			continue
		}
		if seen[h] {
			errs = append(errs, fmt.Errorf("%s: duplicate horizon %s", field, h))
			continue
		}
		seen[h] = true

		target, err := parseDuration(field+".target", hc.Target, stock[h])
		if err != nil {
			errs = append(errs, err)
			continue
		}
		tol, err := parseDuration(field+".tolerance", hc.Tolerance, tolerance)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if tol >= target {
			errs = append(errs, fmt.Errorf("%s: tolerance %s must be smaller than target %s", field, tol, target))
			continue
		}
		out = append(out, reminder.Window{Horizon: h, Target: target, Tolerance: tol})
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return out, nil
}

func policyOr(field, raw string, def reminder.Policy) (reminder.Policy, error) {
	if strings.TrimSpace(raw) == "" {
		return def, nil
	}
	p, err := reminder.ParsePolicy(raw)
	if err != nil {
		return def, fmt.Errorf("%s: %w", field, err)
	}
	return p, nil
}

// Warnings lists settings that are valid but likely wrong.
func (r *Resolved) Warnings() []string {
	var out []string
	for _, w := range reminder.NewEvaluator(r.Windows...).CoverageGap(r.Tick) {
		out = append(out, fmt.Sprintf(
			"reminders.tick_interval %s is longer than twice the %s tolerance (%s): most %s reminders will be skipped",
			r.Tick, w.Horizon, w.Tolerance, w.Horizon))
	}
	if r.RequestTimeout > r.DeliveryTimeout {
		out = append(out, fmt.Sprintf(
			"telegram.request_timeout %s exceeds delivery.timeout %s: a slow send can outlive its delivery deadline",
			r.RequestTimeout, r.DeliveryTimeout))
	}
	return out
}

// Validate is the Manager hook: it accepts a config only if it resolves and
// carries a telegram token.
func Validate(_ context.Context, cfg *Config) error {
	if _, err := Resolve(cfg); err != nil {
		return err
	}
	if strings.TrimSpace(cfg.Telegram.Token) == "" {
		return errors.New("telegram.token is required")
	}
	return nil
}
