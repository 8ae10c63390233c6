// Package scheduler runs the reminder evaluation pass and triggers it
// periodically.
//
// A pass reads every active deadline, picks the horizon window that matches the
// time left, claims the horizon flag and hands the rendered message to the
// dispatcher. Missed windows are never retried; a crash resumes from the
// persisted flags.
package scheduler

import (
	"context"
	"time"

	"deadlinebot/internal/deadline"
	"deadlinebot/internal/notifier"
	"deadlinebot/internal/reminder"
)

// Dispatcher renders and delivers reminders.
type Dispatcher interface {
	Render(r notifier.Reminder, h deadline.Horizon, remaining time.Duration) notifier.Message
	Deliver(ctx context.Context, recipient int64, msg notifier.Message) notifier.Outcome
	FanOut(ctx context.Context, recipients []int64, msg notifier.Message) notifier.Report
}

// Config selects the windows and tie-break policies of a pass.
type Config struct {
	Windows        []reminder.Window
	PersonalPolicy reminder.Policy
	GroupPolicy    reminder.Policy
}

func DefaultConfig() Config {
	return Config{
		Windows:        reminder.DefaultWindows(reminder.DefaultTolerance)[:2],
		PersonalPolicy: reminder.PolicyFirstMatch,
		GroupPolicy:    reminder.PolicyFirstPending,
	}
}

// Status is the outcome of evaluating one deadline in a pass.
type Status string

const (
	StatusFired        Status = "fired"
	StatusNoWindow     Status = "no_window"
	StatusAlreadySent  Status = "already_sent"
	StatusDisabled     Status = "disabled"
	StatusClaimLost    Status = "claim_lost"
	StatusNoRecipients Status = "no_recipients"
	StatusError        Status = "error"
)

type DeadlineResult struct {
	Ref       deadline.Ref
	Horizon   deadline.Horizon
	Remaining time.Duration
	Status    Status
	Report    *notifier.Report
	Err       error
}

// PassReport summarizes one RunOnce call.
type PassReport struct {
	ID        string
	Started   time.Time
	Finished  time.Time
	Evaluated int
	Fired     int
	Skipped   int
	Delivered int
	Failed    int
	Errors    []error
	Results   []DeadlineResult
}

func (r *PassReport) add(res DeadlineResult) {
	r.Evaluated++
	r.Results = append(r.Results, res)
	switch res.Status {
	case StatusFired:
		r.Fired++
	case StatusError:
		r.Errors = append(r.Errors, res.Err)
	default:
		r.Skipped++
	}
	if res.Report != nil {
		r.Delivered += res.Report.Delivered()
		r.Failed += res.Report.Failed()
	}
}

// PassSummary is published on the event bus after every pass.
type PassSummary struct {
	ID        string        `json:"id"`
	Evaluated int           `json:"evaluated"`
	Fired     int           `json:"fired"`
	Delivered int           `json:"delivered"`
	Failed    int           `json:"failed"`
	Errors    int           `json:"errors"`
	Took      time.Duration `json:"took"`
}
