// Package deadline holds the reminder engine's data model: personal and group
// deadlines, per-horizon sent flags and per-user preferences.
//
// Records reference each other by identifier only (chat IDs, group names);
// resolving them is the storage layer's job.
package deadline

import (
	"strconv"
	"time"
)

// Kind distinguishes personal from group deadlines.
type Kind string

const (
	KindPersonal Kind = "personal"
	KindGroup    Kind = "group"
)

const (
	DefaultPriority  = "medium"
	DefaultGroupName = "General"
	DefaultCategory  = "study"
)

// Ref identifies one deadline record.
type Ref struct {
	Kind Kind
	ID   int64
}

func (r Ref) String() string { return string(r.Kind) + ":" + strconv.FormatInt(r.ID, 10) }

// Personal is a deadline owned by a single user.
type Personal struct {
	ID        int64
	OwnerID   int64 // chat id of the owner
	Subject   string
	Task      string
	Priority  string
	Due       time.Time // canonical (UTC)
	Completed bool
	Flags     Flags
	CreatedAt time.Time
}

func (d Personal) Ref() Ref { return Ref{Kind: KindPersonal, ID: d.ID} }

// Group is a deadline shared by every member of a group.
type Group struct {
	ID        int64
	CreatorID int64
	GroupName string
	Subject   string
	Task      string
	Category  string
	Important bool
	Due       time.Time // canonical (UTC)
	Flags     Flags
	CreatedAt time.Time

	// Subscribers are chat ids resolved by the store (group members plus explicit
	// subscriptions). ActiveGroup leaves them empty.
	Subscribers []int64
}

func (d Group) Ref() Ref { return Ref{Kind: KindGroup, ID: d.ID} }

// User is a recipient with its reminder preferences.
type User struct {
	ChatID      int64
	Username    string
	GroupName   string
	Preferences Preferences
	CreatedAt   time.Time
}
