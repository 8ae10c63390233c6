package reminder

import (
	"context"

	"deadlinebot/internal/deadline"
)

// StateStore is the persistence contract the scheduler needs.
type StateStore interface {
	ActivePersonal(ctx context.Context) ([]deadline.Personal, error)
	ActiveGroup(ctx context.Context) ([]deadline.Group, error)
	// Subscribers resolves the recipients of one group deadline: members of its
	// group plus explicit subscriptions.
	Subscribers(ctx context.Context, g deadline.Group) ([]int64, error)
	HorizonSent(ctx context.Context, ref deadline.Ref, h deadline.Horizon) (bool, error)
	// MarkSent atomically moves the flag from pending to sent. claimed is false when the
	// flag was already set or the deadline is completed or gone.
	MarkSent(ctx context.Context, ref deadline.Ref, h deadline.Horizon) (claimed bool, err error)
	// Preference defaults to true for unknown users.
	Preference(ctx context.Context, userID int64, h deadline.Horizon) (bool, error)
}
