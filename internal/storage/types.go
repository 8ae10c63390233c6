package storage

import (
	"context"
	"errors"
	"time"

	"deadlinebot/internal/deadline"
	"deadlinebot/internal/reminder"
)

var (
	ErrDisabled = errors.New("storage disabled")
	ErrNotFound = errors.New("not found")
	ErrInvalid  = errors.New("invalid record")
)

// Config configures storage.
//
// Driver values:
//   - "sqlite" (default): SQLite database file, ":memory:" for an ephemeral store
//   - "none": storage disabled, Open returns ErrDisabled
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // 0 means default
}

// DeliveryEntry is one delivery attempt in the audit trail.
type DeliveryEntry struct {
	ID        string
	At        time.Time
	PassID    string
	Ref       deadline.Ref
	Horizon   deadline.Horizon
	Recipient int64
	OK        bool
	Error     string
	TookMS    int64
}

// Store is the full persistence API: the scheduler contract plus the
// operations owned by the application (create/complete/delete, subscriptions,
// user preferences).
type Store interface {
	reminder.StateStore

	UpsertUser(ctx context.Context, u deadline.User) error
	GetUser(ctx context.Context, chatID int64) (deadline.User, error)
	SetUserGroup(ctx context.Context, chatID int64, group string) error
	SetPreference(ctx context.Context, chatID int64, h deadline.Horizon, on bool) error
	DisableAll(ctx context.Context, chatID int64) error

	AddPersonal(ctx context.Context, p deadline.Personal) (int64, error)
	CompletePersonal(ctx context.Context, ownerID, id int64) error
	DeletePersonal(ctx context.Context, ownerID, id int64) error
	ListPersonal(ctx context.Context, ownerID int64, includeCompleted bool) ([]deadline.Personal, error)
	Upcoming(ctx context.Context, ownerID int64, now time.Time, within time.Duration) ([]deadline.Personal, error)

	AddGroup(ctx context.Context, g deadline.Group) (int64, error)
	DeleteGroup(ctx context.Context, creatorID, id int64) error
	Subscribe(ctx context.Context, userID, deadlineID int64) error
	ListGroup(ctx context.Context, groupName string) ([]deadline.Group, error)

	AppendDelivery(ctx context.Context, e DeliveryEntry) error
	RecentDeliveries(ctx context.Context, limit int) ([]DeliveryEntry, error)

	Close() error
}
