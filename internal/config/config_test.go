package config

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"deadlinebot/internal/deadline"
	"deadlinebot/internal/reminder"
	logx "deadlinebot/pkg/logx"
)

const sampleYAML = `
telegram:
  token: "123:abc"
logging:
  level: debug
  console: true
timezone: Europe/Moscow
reminders:
  tick_interval: 1m
  tolerance: 5m
  horizons:
    - name: week
    - name: day
    - name: hour
      target: 90m
      tolerance: 2m
  personal_policy: first_match
  group_policy: first-pending
delivery:
  timeout: 3s
  rate_per_sec: 5
`

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, []byte(body), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	return p
}

func TestDecodeYAMLAndResolve(t *testing.T) {
	t.Parallel()
	m := NewManager(writeFile(t, "config.yaml", sampleYAML), logx.Nop())
	m.SetValidator(Validate)
	cfg, err := m.Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if m.Get() != cfg {
		t.Fatalf("Load must commit")
	}

	r, err := Resolve(cfg)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if r.Tick != time.Minute || r.DeliveryTimeout != 3*time.Second || r.RatePerSec != 5 {
		t.Fatalf("unexpected durations: %+v", r)
	}
	if r.PersonalPolicy != reminder.PolicyFirstMatch || r.GroupPolicy != reminder.PolicyFirstPending {
		t.Fatalf("policies: %v %v", r.PersonalPolicy, r.GroupPolicy)
	}
	if len(r.Windows) != 3 {
		t.Fatalf("windows: %+v", r.Windows)
	}
	hour := r.Windows[2]
	if hour.Horizon != deadline.HorizonHour || hour.Target != 90*time.Minute || hour.Tolerance != 2*time.Minute {
		t.Fatalf("hour window: %+v", hour)
	}
	if r.Windows[0].Target != 7*24*time.Hour || r.Windows[0].Tolerance != 5*time.Minute {
		t.Fatalf("week window: %+v", r.Windows[0])
	}
	if w := r.Warnings(); len(w) != 0 {
		t.Fatalf("unexpected warnings: %v", w)
	}
}

func TestResolveDefaults(t *testing.T) {
	t.Parallel()
	r, err := Resolve(&Config{})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if r.Tick != DefaultTickInterval || r.FirstRunDelay != DefaultFirstRunDelay || r.Tolerance != reminder.DefaultTolerance {
		t.Fatalf("defaults: %+v", r)
	}
	if r.Location.String() != DefaultTimezone || r.StorageDriver != "sqlite" || r.StoragePath != DefaultStoragePath {
		t.Fatalf("defaults: %+v", r)
	}
	if len(r.Windows) != 2 || r.Windows[0].Horizon != deadline.HorizonWeek || r.Windows[1].Horizon != deadline.HorizonDay {
		t.Fatalf("default windows: %+v", r.Windows)
	}
	if r.RequestTimeout != r.DeliveryTimeout || r.DeliveryTimeout != DefaultDeliveryLimit {
		t.Fatalf("request timeout %s, delivery timeout %s", r.RequestTimeout, r.DeliveryTimeout)
	}
	// 6h tick against a 5m tolerance: both windows are reported.
	if w := r.Warnings(); len(w) != 2 || !strings.Contains(w[0], "tick_interval") {
		t.Fatalf("warnings: %v", w)
	}
}

func TestRequestTimeoutFollowsDelivery(t *testing.T) {
	t.Parallel()
	tick := RemindersConfig{TickInterval: "1m"}
	r, err := Resolve(&Config{Reminders: tick, Delivery: DeliveryConfig{Timeout: "3s"}})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if r.RequestTimeout != 3*time.Second || len(r.Warnings()) != 0 {
		t.Fatalf("request timeout %s, warnings %v", r.RequestTimeout, r.Warnings())
	}

	r, err = Resolve(&Config{Reminders: tick, Delivery: DeliveryConfig{Timeout: "3s"}, Telegram: TelegramConfig{RequestTimeout: "30s"}})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if w := r.Warnings(); len(w) != 1 || !strings.Contains(w[0], "request_timeout") {
		t.Fatalf("warnings: %v", w)
	}
}

func TestResolveCollectsErrors(t *testing.T) {
	t.Parallel()
	cfg := &Config{
		Timezone: "Nowhere/City",
		Reminders: RemindersConfig{
			TickInterval: "often",
			Horizons: []HorizonConfig{
				{Name: "month"},
				{Name: "day"},
				{Name: "d"},
				{Name: "hour", Target: "5m", Tolerance: "10m"},
			},
			GroupPolicy: "random",
		},
		Delivery: DeliveryConfig{RatePerSec: -1},
		Telegram: TelegramConfig{ParseMode: "Markdown"},
	}
	_, err := Resolve(cfg)
	if err == nil {
		t.Fatalf("expected error")
	}
	for _, want := range []string{"timezone", "tick_interval", "horizons[0].name", "duplicate horizon", "must be smaller", "group_policy", "rate_per_sec", "parse_mode"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("error %q does not mention %q", err, want)
		}
	}
}

func TestDecodeRejectsUnknownFields(t *testing.T) {
	t.Parallel()
	if _, err := Decode("c.json", []byte(`{"telegram":{"token":"x"},"plugins":{}}`)); err == nil {
		t.Fatalf("expected unknown field error")
	}
	if _, err := Decode("c.json", []byte(`{"telegram":{"token":"x"}} {}`)); err == nil {
		t.Fatalf("expected trailing data error")
	}
	if _, err := Decode("c.yml", []byte("telegram: [unclosed")); err == nil {
		t.Fatalf("expected yaml error")
	}
}

func TestValidateRequiresToken(t *testing.T) {
	t.Parallel()
	if err := Validate(context.Background(), &Config{}); err == nil {
		t.Fatalf("expected missing token error")
	}
	m := NewManager(writeFile(t, "c.json", `{"telegram":{"token":""}}`), logx.Nop())
	m.SetValidator(Validate)
	if _, err := m.Load(context.Background()); err == nil {
		t.Fatalf("Load must run the validator")
	}
}

func TestWatchPublishesChanges(t *testing.T) {
	t.Parallel()
	path := writeFile(t, "config.json", `{"telegram":{"token":"a"},"logging":{"level":"info"}}`)
	m := NewManager(path, logx.Nop())
	m.SetValidator(Validate)
	if _, err := m.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}
	ch := m.Subscribe(1)
	defer m.Unsubscribe(ch)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Watch(ctx) }()
	defer func() {
		cancel()
		<-done
	}()

	// Give the watcher a moment to register the directory.
	time.Sleep(200 * time.Millisecond)

	// Invalid config: rejected, nothing published.
	if err := os.WriteFile(path, []byte(`{"telegram":{"token":""}}`), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	select {
	case cfg := <-ch:
		t.Fatalf("invalid config published: %+v", cfg)
	case <-time.After(time.Second):
	}

	if err := os.WriteFile(path, []byte(`{"telegram":{"token":"a"},"logging":{"level":"debug"}}`), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	select {
	case cfg := <-ch:
		if cfg.Logging.Level != "debug" {
			t.Fatalf("unexpected config: %+v", cfg)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("config change not published")
	}
	if m.Get().Logging.Level != "debug" {
		t.Fatalf("reload not committed")
	}
}

func TestSummarizeChange(t *testing.T) {
	t.Parallel()
	a := &Config{Telegram: TelegramConfig{Token: "secret"}, Reminders: RemindersConfig{Tolerance: "5m"}}
	b := &Config{Telegram: TelegramConfig{Token: "secret"}, Reminders: RemindersConfig{Tolerance: "10m"}, Timezone: "UTC"}

	changed, fields := SummarizeChange(a, b)
	if strings.Join(changed, ",") != "timezone,reminders" || len(fields) == 0 {
		t.Fatalf("changed=%v", changed)
	}
	if got := RequiresRestart(changed); len(got) != 1 || got[0] != "timezone" {
		t.Fatalf("restart=%v", got)
	}
	if changed, _ := SummarizeChange(a, a); len(changed) != 0 {
		t.Fatalf("no-op change reported: %v", changed)
	}
}

func TestParseDuration(t *testing.T) {
	t.Parallel()
	if d, err := parseDuration("x", "", time.Second); err != nil || d != time.Second {
		t.Fatalf("default: %v %v", d, err)
	}
	if _, err := parseDuration("x", "-1s", 0); err == nil {
		t.Fatalf("negative accepted")
	}
}
