package app

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"deadlinebot/internal/config"
	"deadlinebot/internal/deadline"
	"deadlinebot/internal/eventbus"
	"deadlinebot/internal/notifier"
	"deadlinebot/internal/reminder"
	"deadlinebot/internal/storage/storagetest"
	"deadlinebot/internal/transport"
	logx "deadlinebot/pkg/logx"
)

type fakeSender struct {
	mu sync.Mutex
	to []int64
}

func (s *fakeSender) SendText(_ context.Context, chatID int64, _ string, _ *transport.SendOptions) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.to = append(s.to, chatID)
	return nil
}

func (s *fakeSender) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.to)
}

func TestRunAuditRecordsDeliveries(t *testing.T) {
	t.Parallel()
	store := storagetest.NewTestStore(t)
	bus := eventbus.New()
	events, unsub := bus.Subscribe(16)
	defer unsub()

	ref := deadline.Ref{Kind: deadline.KindGroup, ID: 7}
	at := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	bus.Publish(eventbus.Event{Type: eventbus.TypeDelivered, Data: notifier.DeliveryEvent{
		PassID: "p1", Ref: ref, Horizon: deadline.HorizonDay, Recipient: 100, OK: true, Took: 40 * time.Millisecond, At: at,
	}})
	bus.Publish(eventbus.Event{Type: eventbus.TypeFailed, Data: notifier.DeliveryEvent{
		PassID: "p1", Ref: ref, Horizon: deadline.HorizonDay, Recipient: 200, Error: "chat not found", At: at.Add(time.Second),
	}})
	bus.Publish(eventbus.Event{Type: eventbus.TypePassDone, Data: "ignored"})

	// Already-canceled context: everything buffered is drained before return.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	runAudit(ctx, store, events, logx.Nop())

	got, err := store.RecentDeliveries(context.Background(), 10)
	if err != nil {
		t.Fatalf("RecentDeliveries: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("entries = %d, want 2", len(got))
	}
	failed, ok := got[0], got[1]
	if failed.Recipient != 200 || failed.OK || failed.Error != "chat not found" {
		t.Fatalf("newest entry = %+v", failed)
	}
	if ok.Recipient != 100 || !ok.OK || ok.TookMS != 40 || ok.PassID != "p1" || ok.Ref != ref {
		t.Fatalf("oldest entry = %+v", ok)
	}
}

func TestMapSettings(t *testing.T) {
	t.Parallel()
	cfg := &config.Config{
		Telegram: config.TelegramConfig{Token: "x", ParseMode: "none", DisablePreview: true},
		Logging:  config.LoggingConfig{Level: "debug", Console: true},
		Timezone: "UTC",
		Reminders: config.RemindersConfig{
			TickInterval:   "5m",
			FirstRunDelay:  "1s",
			Horizons:       []config.HorizonConfig{{Name: "hour"}},
			PersonalPolicy: "first-pending",
		},
		Delivery: config.DeliveryConfig{Timeout: "3s", RatePerSec: 5},
	}
	s, err := mapSettings(cfg)
	if err != nil {
		t.Fatalf("mapSettings: %v", err)
	}
	if s.driver.Tick != 5*time.Minute || s.driver.FirstRunDelay != time.Second || s.driver.Location != time.UTC {
		t.Fatalf("driver = %+v", s.driver)
	}
	if len(s.loop.Windows) != 1 || s.loop.Windows[0].Horizon != deadline.HorizonHour {
		t.Fatalf("windows = %+v", s.loop.Windows)
	}
	if s.loop.PersonalPolicy != reminder.PolicyFirstPending || s.loop.GroupPolicy != reminder.PolicyFirstPending {
		t.Fatalf("policies = %v/%v", s.loop.PersonalPolicy, s.loop.GroupPolicy)
	}
	if s.notifier.Timeout != 3*time.Second || s.notifier.RatePerSec != 5 || s.notifier.ParseMode != transport.ParseModeNone || !s.notifier.DisablePreview {
		t.Fatalf("notifier = %+v", s.notifier)
	}
	if s.logging.Level != "debug" || !s.logging.Console {
		t.Fatalf("logging = %+v", s.logging)
	}
}

func TestMapSettingsRejectsBadValues(t *testing.T) {
	t.Parallel()
	cfg := &config.Config{Reminders: config.RemindersConfig{TickInterval: "soon"}}
	if _, err := mapSettings(cfg); err == nil {
		t.Fatal("expected error")
	}
}

func writeConfig(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestNewRequiresToken(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := writeConfig(t, dir, "storage:\n  path: "+filepath.Join(dir, "bot.db")+"\n")
	if _, err := New(context.Background(), path, WithSender(&fakeSender{})); err == nil {
		t.Fatal("expected missing token error")
	}
}

func TestNewRejectsDisabledStorage(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := writeConfig(t, dir, "telegram:\n  token: test\nstorage:\n  driver: none\n")
	_, err := New(context.Background(), path, WithSender(&fakeSender{}))
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestAppPassDeliversAndAudits(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := writeConfig(t, dir, `telegram:
  token: test
logging:
  level: error
storage:
  path: `+filepath.Join(dir, "bot.db")+`
timezone: UTC
reminders:
  tick_interval: 1h
  first_run_delay: 1h
`)
	sender := &fakeSender{}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := New(ctx, path, WithSender(sender))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	store := a.Store()
	if _, err := store.AddPersonal(ctx, deadline.Personal{
		OwnerID: 42, Subject: "Math", Task: "Homework", Due: time.Now().Add(7 * 24 * time.Hour),
	}); err != nil {
		t.Fatalf("AddPersonal: %v", err)
	}

	if err := a.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	rep := a.RunOnce(ctx)
	if rep.Fired != 1 || rep.Delivered != 1 {
		t.Fatalf("report = %+v", rep)
	}
	if again := a.RunOnce(ctx); again.Fired != 0 {
		t.Fatalf("second pass fired %d", again.Fired)
	}
	if sender.count() != 1 {
		t.Fatalf("sent = %d, want 1", sender.count())
	}

	deadlineAt := time.Now().Add(2 * time.Second)
	for {
		got, err := store.RecentDeliveries(ctx, 10)
		if err != nil {
			t.Fatalf("RecentDeliveries: %v", err)
		}
		if len(got) == 1 && got[0].Recipient == 42 && got[0].OK {
			break
		}
		if time.Now().After(deadlineAt) {
			t.Fatalf("audit entries = %+v", got)
		}
		time.Sleep(10 * time.Millisecond)
	}

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer stopCancel()
	if err := a.Stop(stopCtx, StopAppStop); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if err := a.Err(); err != nil && !errors.Is(err, context.Canceled) {
		t.Fatalf("supervisor error: %v", err)
	}
}
