package app

import (
	"context"

	"deadlinebot/internal/eventbus"
	"deadlinebot/internal/notifier"
	"deadlinebot/internal/scheduler"
	"deadlinebot/internal/storage"
	logx "deadlinebot/pkg/logx"
)

// runAudit records delivery events in the store until ctx is done or the
// subscription closes. Events already buffered at shutdown are still written.
// A failed write is logged and never stops the loop.
func runAudit(ctx context.Context, store storage.Store, events <-chan eventbus.Event, log logx.Logger) {
	for {
		select {
		case <-ctx.Done():
			drainAudit(context.WithoutCancel(ctx), store, events, log)
			return
		case e, ok := <-events:
			if !ok {
				return
			}
			auditEvent(ctx, store, e, log)
		}
	}
}

func drainAudit(ctx context.Context, store storage.Store, events <-chan eventbus.Event, log logx.Logger) {
	for {
		select {
		case e, ok := <-events:
			if !ok {
				return
			}
			auditEvent(ctx, store, e, log)
		default:
			return
		}
	}
}

func auditEvent(ctx context.Context, store storage.Store, e eventbus.Event, log logx.Logger) {
	switch e.Type {
	case eventbus.TypeDelivered, eventbus.TypeFailed:
		ev, ok := e.Data.(notifier.DeliveryEvent)
		if !ok {
			return
		}
		if err := store.AppendDelivery(ctx, deliveryEntry(ev)); err != nil {
			log.Warn("delivery audit write failed",
				logx.String("ref", ev.Ref.String()), logx.Int64("recipient", ev.Recipient), logx.Err(err))
		}
	case eventbus.TypePassDone:
		if s, ok := e.Data.(scheduler.PassSummary); ok {
			log.Debug("pass done", logx.String("pass", s.ID), logx.Int("fired", s.Fired), logx.Int("failed", s.Failed))
		}
	}
}

func deliveryEntry(ev notifier.DeliveryEvent) storage.DeliveryEntry {
	return storage.DeliveryEntry{
		At:        ev.At,
		PassID:    ev.PassID,
		Ref:       ev.Ref,
		Horizon:   ev.Horizon,
		Recipient: ev.Recipient,
		OK:        ev.OK,
		Error:     ev.Error,
		TookMS:    ev.Took.Milliseconds(),
	}
}
