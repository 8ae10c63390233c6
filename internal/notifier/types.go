package notifier

import (
	"context"
	"time"

	"deadlinebot/internal/deadline"
	"deadlinebot/internal/transport"
)

// Config controls delivery.
type Config struct {
	Timeout        time.Duration
	RatePerSec     int
	ParseMode      string
	DisablePreview bool
}

// Sender is the outbound messaging client.
type Sender interface {
	SendText(ctx context.Context, chatID int64, text string, opt *transport.SendOptions) error
}

// Reminder is the renderable view of a personal or group deadline.
type Reminder struct {
	Ref     deadline.Ref
	Subject string
	Task    string
	Due     time.Time

	Priority string // personal only

	GroupName string // group only
	Category  string
	Important bool
}

func PersonalReminder(p deadline.Personal) Reminder {
	return Reminder{Ref: p.Ref(), Subject: p.Subject, Task: p.Task, Due: p.Due, Priority: p.Priority}
}

func GroupReminder(g deadline.Group) Reminder {
	return Reminder{
		Ref: g.Ref(), Subject: g.Subject, Task: g.Task, Due: g.Due,
		GroupName: g.GroupName, Category: g.Category, Important: g.Important,
	}
}

// Message is a rendered reminder ready for delivery.
type Message struct {
	PassID  string
	Ref     deadline.Ref
	Horizon deadline.Horizon
	Text    string
	Options transport.SendOptions
}

// Outcome is the result of one delivery attempt.
type Outcome struct {
	Recipient int64
	OK        bool
	Err       error
	Took      time.Duration
}

// Report aggregates the outcomes of one fan-out.
type Report struct {
	Ref      deadline.Ref
	Horizon  deadline.Horizon
	Outcomes []Outcome
}

func (r Report) Delivered() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.OK {
			n++
		}
	}
	return n
}

func (r Report) Failed() int { return len(r.Outcomes) - r.Delivered() }

// DeliveryEvent is published for every outcome.
type DeliveryEvent struct {
	PassID    string           `json:"pass_id,omitempty"`
	Ref       deadline.Ref     `json:"ref"`
	Horizon   deadline.Horizon `json:"horizon"`
	Recipient int64            `json:"recipient"`
	OK        bool             `json:"ok"`
	Error     string           `json:"error,omitempty"`
	Took      time.Duration    `json:"took"`
	At        time.Time        `json:"at"`
}
