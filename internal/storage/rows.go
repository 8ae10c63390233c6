package storage

import (
	"database/sql"

	"deadlinebot/internal/deadline"
)

type userRow struct {
	ChatID     int64          `db:"chat_id"`
	Username   sql.NullString `db:"username"`
	GroupName  string         `db:"group_name"`
	NotifyWeek bool           `db:"notify_week"`
	NotifyDay  bool           `db:"notify_day"`
	NotifyHour bool           `db:"notify_hour"`
	CreatedAt  int64          `db:"created_at"`
}

func (r userRow) model() deadline.User {
	return deadline.User{
		ChatID:    r.ChatID,
		Username:  r.Username.String,
		GroupName: r.GroupName,
		Preferences: deadline.Preferences{
			Week: r.NotifyWeek,
			Day:  r.NotifyDay,
			Hour: r.NotifyHour,
		},
		CreatedAt: fromMillis(r.CreatedAt),
	}
}

type personalRow struct {
	ID           int64  `db:"id"`
	OwnerID      int64  `db:"owner_id"`
	Subject      string `db:"subject"`
	Task         string `db:"task"`
	Priority     string `db:"priority"`
	DueAt        int64  `db:"due_at"`
	Completed    bool   `db:"is_completed"`
	RemindedWeek bool   `db:"reminded_week"`
	RemindedDay  bool   `db:"reminded_day"`
	RemindedHour bool   `db:"reminded_hour"`
	CreatedAt    int64  `db:"created_at"`
}

func (r personalRow) model() deadline.Personal {
	return deadline.Personal{
		ID:        r.ID,
		OwnerID:   r.OwnerID,
		Subject:   r.Subject,
		Task:      r.Task,
		Priority:  r.Priority,
		Due:       fromMillis(r.DueAt),
		Completed: r.Completed,
		Flags:     deadline.Flags{Week: r.RemindedWeek, Day: r.RemindedDay, Hour: r.RemindedHour},
		CreatedAt: fromMillis(r.CreatedAt),
	}
}

type groupRow struct {
	ID           int64  `db:"id"`
	CreatorID    int64  `db:"creator_id"`
	GroupName    string `db:"group_name"`
	Subject      string `db:"subject"`
	Task         string `db:"task"`
	Category     string `db:"category"`
	Important    bool   `db:"important"`
	DueAt        int64  `db:"due_at"`
	RemindedWeek bool   `db:"reminded_week"`
	RemindedDay  bool   `db:"reminded_day"`
	RemindedHour bool   `db:"reminded_hour"`
	CreatedAt    int64  `db:"created_at"`
}

func (r groupRow) model() deadline.Group {
	return deadline.Group{
		ID:        r.ID,
		CreatorID: r.CreatorID,
		GroupName: r.GroupName,
		Subject:   r.Subject,
		Task:      r.Task,
		Category:  r.Category,
		Important: r.Important,
		Due:       fromMillis(r.DueAt),
		Flags:     deadline.Flags{Week: r.RemindedWeek, Day: r.RemindedDay, Hour: r.RemindedHour},
		CreatedAt: fromMillis(r.CreatedAt),
	}
}

type deliveryRow struct {
	ID         string         `db:"id"`
	At         int64          `db:"at"`
	PassID     sql.NullString `db:"pass_id"`
	Kind       string         `db:"kind"`
	DeadlineID int64          `db:"deadline_id"`
	Horizon    string         `db:"horizon"`
	Recipient  int64          `db:"recipient"`
	OK         bool           `db:"ok"`
	Err        sql.NullString `db:"err"`
	TookMS     int64          `db:"took_ms"`
}

func (r deliveryRow) model() DeliveryEntry {
	h, _ := deadline.ParseHorizon(r.Horizon)
	return DeliveryEntry{
		ID:        r.ID,
		At:        fromMillis(r.At),
		PassID:    r.PassID.String,
		Ref:       deadline.Ref{Kind: deadline.Kind(r.Kind), ID: r.DeadlineID},
		Horizon:   h,
		Recipient: r.Recipient,
		OK:        r.OK,
		Error:     r.Err.String,
		TookMS:    r.TookMS,
	}
}

const (
	personalColumns = `id, owner_id, subject, task, priority, due_at, is_completed,
		reminded_week, reminded_day, reminded_hour, created_at`
	groupColumns = `id, creator_id, group_name, subject, task, category, important, due_at,
		reminded_week, reminded_day, reminded_hour, created_at`
	userColumns = `chat_id, username, group_name, notify_week, notify_day, notify_hour, created_at`
)
