package timeutil

import (
	"strconv"
	"strings"
	"time"
)

// Overdue is rendered instead of a negative duration.
const Overdue = "OVERDUE"

type unit struct {
	one, many string
	size      time.Duration
}

var units = []unit{
	{one: "day", many: "days", size: 24 * time.Hour},
	{one: "hour", many: "hours", size: time.Hour},
	{one: "minute", many: "minutes", size: time.Minute},
}

// FormatDuration floor-divides d into days/hours/minutes and emits the two largest
// non-zero units: "3 days 4 hours", "2 hours 5 minutes", "12 minutes".
func FormatDuration(d time.Duration) string {
	if d < 0 {
		return Overdue
	}

	parts := make([]string, 0, 2)
	rest := d
	for _, u := range units {
		v := int64(rest / u.size)
		rest -= time.Duration(v) * u.size
		if v == 0 || len(parts) == 2 {
			continue
		}
		name := u.many
		if v == 1 {
			name = u.one
		}
		parts = append(parts, strconv.FormatInt(v, 10)+" "+name)
	}
	if len(parts) == 0 {
		return "0 minutes"
	}
	return strings.Join(parts, " ")
}
