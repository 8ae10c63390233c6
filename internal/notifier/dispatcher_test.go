package notifier

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"deadlinebot/internal/deadline"
	"deadlinebot/internal/eventbus"
	"deadlinebot/internal/timeutil"
	"deadlinebot/internal/transport"
	logx "deadlinebot/pkg/logx"
)

type sent struct {
	chatID int64
	text   string
	opts   transport.SendOptions
}

type fakeSender struct {
	mu    sync.Mutex
	fail  map[int64]error
	block map[int64]bool
	sent  []sent
}

func (f *fakeSender) SendText(ctx context.Context, chatID int64, text string, opt *transport.SendOptions) error {
	if f.block[chatID] {
		<-ctx.Done()
		return ctx.Err()
	}
	if err := f.fail[chatID]; err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sent{chatID: chatID, text: text, opts: *opt})
	return nil
}

func newTestDispatcher(t *testing.T, cfg Config, s Sender, bus eventbus.Bus) *Dispatcher {
	t.Helper()
	norm, err := timeutil.New("Europe/Moscow")
	if err != nil {
		t.Fatalf("normalizer: %v", err)
	}
	return New(cfg, s, norm, logx.Nop(), bus)
}

func TestFanOutIsolatesFailures(t *testing.T) {
	t.Parallel()
	s := &fakeSender{fail: map[int64]error{2: errors.New("bot was blocked by the user")}}
	bus := eventbus.New()
	events, unsub := bus.Subscribe(16)
	defer unsub()
	d := newTestDispatcher(t, Config{RatePerSec: 100}, s, bus)

	msg := Message{PassID: "p", Ref: deadline.Ref{Kind: deadline.KindGroup, ID: 9}, Horizon: deadline.HorizonDay, Text: "hi"}
	rep := d.FanOut(context.Background(), []int64{1, 2, 3}, msg)

	if rep.Delivered() != 2 || rep.Failed() != 1 {
		t.Fatalf("delivered=%d failed=%d", rep.Delivered(), rep.Failed())
	}
	if rep.Outcomes[1].Recipient != 2 || rep.Outcomes[1].OK || rep.Outcomes[1].Err == nil {
		t.Fatalf("unexpected outcome: %+v", rep.Outcomes[1])
	}
	if len(s.sent) != 2 || s.sent[0].chatID != 1 || s.sent[1].chatID != 3 {
		t.Fatalf("unexpected sends: %+v", s.sent)
	}

	var delivered, failed int
	for i := 0; i < 3; i++ {
		select {
		case e := <-events:
			ev := e.Data.(DeliveryEvent)
			if ev.PassID != "p" || ev.Ref != msg.Ref {
				t.Fatalf("unexpected event: %+v", ev)
			}
			switch e.Type {
			case eventbus.TypeDelivered:
				delivered++
			case eventbus.TypeFailed:
				failed++
				if ev.Error == "" {
					t.Fatalf("failed event without error")
				}
			}
		case <-time.After(time.Second):
			t.Fatalf("missing event %d", i)
		}
	}
	if delivered != 2 || failed != 1 {
		t.Fatalf("events delivered=%d failed=%d", delivered, failed)
	}
}

func TestDeliverTimesOut(t *testing.T) {
	t.Parallel()
	s := &fakeSender{block: map[int64]bool{1: true}}
	d := newTestDispatcher(t, Config{Timeout: 20 * time.Millisecond}, s, nil)

	out := d.Deliver(context.Background(), 1, Message{Text: "x"})
	if out.OK || !errors.Is(out.Err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %+v", out)
	}
}

func TestDeliverWithoutSender(t *testing.T) {
	t.Parallel()
	d := newTestDispatcher(t, Config{}, nil, nil)
	if out := d.Deliver(context.Background(), 1, Message{}); !errors.Is(out.Err, ErrNoSender) {
		t.Fatalf("got %+v", out)
	}
}

func TestDeliverPassesOptions(t *testing.T) {
	t.Parallel()
	s := &fakeSender{}
	d := newTestDispatcher(t, Config{ParseMode: transport.ParseModeHTML, DisablePreview: true}, s, nil)

	msg := d.Render(Reminder{Ref: deadline.Ref{Kind: deadline.KindPersonal, ID: 1}, Subject: "S", Task: "T", Due: time.Now()}, deadline.HorizonDay, time.Hour)
	if out := d.Deliver(context.Background(), 5, msg); !out.OK {
		t.Fatalf("deliver: %v", out.Err)
	}
	if got := s.sent[0].opts; got.ParseMode != transport.ParseModeHTML || !got.DisablePreview {
		t.Fatalf("options not forwarded: %+v", got)
	}
}

func TestRenderPersonal(t *testing.T) {
	t.Parallel()
	d := newTestDispatcher(t, Config{ParseMode: transport.ParseModeHTML}, &fakeSender{}, nil)

	due := time.Date(2024, 12, 31, 20, 59, 0, 0, time.UTC)
	r := PersonalReminder(deadline.Personal{ID: 3, OwnerID: 1, Subject: "Math <101>", Task: "Sheet & notes", Priority: "high", Due: due})
	msg := d.Render(r, deadline.HorizonDay, 24*time.Hour+2*time.Minute)

	for _, want := range []string{
		"<b>Deadline tomorrow!</b>",
		"<b>1 day 2 minutes</b>",
		"Personal deadline",
		"Math &lt;101&gt;",
		"Sheet &amp; notes",
		"Priority: high",
		"Due: 31.12.2024 23:59",
	} {
		if !strings.Contains(msg.Text, want) {
			t.Fatalf("missing %q in:\n%s", want, msg.Text)
		}
	}
	if msg.Ref != r.Ref || msg.Horizon != deadline.HorizonDay {
		t.Fatalf("message identity: %+v", msg)
	}
}

func TestRenderGroup(t *testing.T) {
	t.Parallel()
	d := newTestDispatcher(t, Config{}, &fakeSender{}, nil)

	r := GroupReminder(deadline.Group{ID: 4, GroupName: "CS-101", Subject: "DB", Task: "ERD", Category: "project", Important: true, Due: time.Now()})
	msg := d.Render(r, deadline.HorizonWeek, 7*24*time.Hour)

	for _, want := range []string{"Reminder", "IMPORTANT FOR THE WHOLE GROUP", "Group deadline", "Category: project", "Group: CS-101", "7 days"} {
		if !strings.Contains(msg.Text, want) {
			t.Fatalf("missing %q in:\n%s", want, msg.Text)
		}
	}
	if strings.Contains(msg.Text, "<b>") {
		t.Fatalf("plain text must not carry markup:\n%s", msg.Text)
	}

	r.Important = false
	if strings.Contains(d.Render(r, deadline.HorizonWeek, time.Hour).Text, "IMPORTANT") {
		t.Fatalf("important marker on regular deadline")
	}
}

func TestRenderCapsLongTask(t *testing.T) {
	t.Parallel()
	d := newTestDispatcher(t, Config{ParseMode: transport.ParseModeHTML}, &fakeSender{}, nil)

	task := strings.Repeat("я", maxFieldRunes+50)
	msg := d.Render(Reminder{Ref: deadline.Ref{Kind: deadline.KindPersonal, ID: 1}, Subject: "S", Task: task, Due: time.Now()}, deadline.HorizonWeek, time.Hour)
	if strings.Contains(msg.Text, task) || !strings.Contains(msg.Text, strings.Repeat("я", maxFieldRunes)+"…") {
		t.Fatalf("task not capped at %d runes", maxFieldRunes)
	}
	if !strings.Contains(msg.Text, "\n\nTime left until your deadline: <b>1 hour</b>\n\n") {
		t.Fatalf("layout lost blank lines:\n%s", msg.Text)
	}
}
