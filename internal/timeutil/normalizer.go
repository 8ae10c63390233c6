// Package timeutil converts between the user-facing local wall clock and the
// canonical UTC instant used for storage and comparison.
//
// Local instants are always derived from canonical ones; only canonical
// instants are persisted.
package timeutil

import (
	"errors"
	"fmt"
	"strings"
	"time"
	_ "time/tzdata"
)

const (
	// DefaultTimeOfDay is used when the user omits the time: end of day.
	DefaultTimeOfDay = "23:59"

	DisplayLayout = "02.01.2006 15:04"
	timeLayout    = "15:04"
)

// dateLayouts are tried in this order.
var dateLayouts = []string{
	"2006-01-02",
	"02.01.2006",
	"02.01.06",
}

// ErrFormat matches every *FormatError via errors.Is.
var ErrFormat = errors.New("invalid date/time format")

// FormatError is returned when user input matches none of the accepted layouts.
type FormatError struct {
	Input    string
	Expected string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("invalid date/time %q: expected %s", e.Input, e.Expected)
}

func (e *FormatError) Is(target error) bool { return target == ErrFormat }

// Normalizer is bound to one local frame (IANA zone).
type Normalizer struct {
	loc *time.Location
}

// New loads tz. An empty tz means UTC.
func New(tz string) (*Normalizer, error) {
	tz = strings.TrimSpace(tz)
	if tz == "" {
		return &Normalizer{loc: time.UTC}, nil
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", tz, err)
	}
	return &Normalizer{loc: loc}, nil
}

// NewInLocation is like New for an already loaded location.
func NewInLocation(loc *time.Location) *Normalizer {
	if loc == nil {
		loc = time.UTC
	}
	return &Normalizer{loc: loc}
}

func (n *Normalizer) Location() *time.Location { return n.loc }

// Now returns the current instant in the local frame.
func (n *Normalizer) Now() time.Time { return time.Now().In(n.loc) }

// ParseUserInput parses a date in one of the accepted layouts plus an optional HH:MM
// time (default 23:59) and returns the instant in the local frame.
func (n *Normalizer) ParseUserInput(dateText, timeText string) (time.Time, error) {
	dateText = strings.TrimSpace(dateText)
	timeText = strings.TrimSpace(timeText)
	if timeText == "" {
		timeText = DefaultTimeOfDay
	}

	var (
		date time.Time
		ok   bool
	)
	for _, layout := range dateLayouts {
		d, err := time.Parse(layout, dateText)
		if err == nil {
			date, ok = d, true
			break
		}
	}
	if !ok {
		return time.Time{}, &FormatError{Input: dateText, Expected: "YYYY-MM-DD, DD.MM.YYYY or DD.MM.YY"}
	}

	tod, err := time.Parse(timeLayout, timeText)
	if err != nil {
		return time.Time{}, &FormatError{Input: timeText, Expected: "HH:MM"}
	}

	return time.Date(date.Year(), date.Month(), date.Day(), tod.Hour(), tod.Minute(), 0, 0, n.loc), nil
}

// ToCanonical fixes the reference frame (UTC).
func (n *Normalizer) ToCanonical(local time.Time) time.Time {
	return local.UTC()
}

// Assume reinterprets the wall clock of a value that carries no meaningful zone
// (e.g. a naive timestamp from an external source) as local time.
func (n *Normalizer) Assume(naive time.Time) time.Time {
	return time.Date(naive.Year(), naive.Month(), naive.Day(),
		naive.Hour(), naive.Minute(), naive.Second(), naive.Nanosecond(), n.loc)
}

// ToLocal converts a canonical instant into the local frame. The input is always
// treated as UTC regardless of the location it carries.
func (n *Normalizer) ToLocal(canonical time.Time) time.Time {
	return canonical.UTC().In(n.loc)
}

// Remaining is signed; negative means overdue.
func (n *Normalizer) Remaining(local, now time.Time) time.Duration {
	return local.Sub(now)
}

// FormatForDisplay renders a canonical or local instant as "dd.mm.yyyy hh:mm" local time.
func (n *Normalizer) FormatForDisplay(t time.Time) string {
	return t.In(n.loc).Format(DisplayLayout)
}
