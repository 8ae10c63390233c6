package deadline

import (
	"fmt"
	"strings"
)

// Horizon is a configured lead time before a deadline at which a reminder fires.
type Horizon int

const (
	HorizonWeek Horizon = iota + 1
	HorizonDay
	HorizonHour
)

// Horizons lists every known horizon, longest lead time first.
var Horizons = []Horizon{HorizonWeek, HorizonDay, HorizonHour}

func (h Horizon) String() string {
	switch h {
	case HorizonWeek:
		return "week"
	case HorizonDay:
		return "day"
	case HorizonHour:
		return "hour"
	default:
		return fmt.Sprintf("horizon(%d)", int(h))
	}
}

// Valid reports whether h is one of the known horizons.
func (h Horizon) Valid() bool {
	return h >= HorizonWeek && h <= HorizonHour
}

// ParseHorizon maps a config/storage name ("week", "day", "hour") to a Horizon.
func ParseHorizon(s string) (Horizon, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "week", "w":
		return HorizonWeek, nil
	case "day", "d":
		return HorizonDay, nil
	case "hour", "h":
		return HorizonHour, nil
	default:
		return 0, fmt.Errorf("unknown horizon %q (use week, day or hour)", s)
	}
}

// Flags records, per horizon, whether the reminder was already sent.
// A flag only ever moves from pending to sent.
type Flags struct {
	Week bool
	Day  bool
	Hour bool
}

// Sent reports the flag for h. Unknown horizons are reported as sent so they never fire.
func (f Flags) Sent(h Horizon) bool {
	switch h {
	case HorizonWeek:
		return f.Week
	case HorizonDay:
		return f.Day
	case HorizonHour:
		return f.Hour
	default:
		return true
	}
}

// Mark sets the flag for h. There is intentionally no way to clear it.
func (f *Flags) Mark(h Horizon) {
	switch h {
	case HorizonWeek:
		f.Week = true
	case HorizonDay:
		f.Day = true
	case HorizonHour:
		f.Hour = true
	}
}

// Preferences holds a user's per-horizon opt-in. The zero value is not the default;
// use DefaultPreferences.
type Preferences struct {
	Week bool
	Day  bool
	Hour bool
}

// DefaultPreferences enables every horizon.
func DefaultPreferences() Preferences {
	return Preferences{Week: true, Day: true, Hour: true}
}

func (p Preferences) Enabled(h Horizon) bool {
	switch h {
	case HorizonWeek:
		return p.Week
	case HorizonDay:
		return p.Day
	case HorizonHour:
		return p.Hour
	default:
		return false
	}
}

func (p *Preferences) Set(h Horizon, on bool) {
	switch h {
	case HorizonWeek:
		p.Week = on
	case HorizonDay:
		p.Day = on
	case HorizonHour:
		p.Hour = on
	}
}
