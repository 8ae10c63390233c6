// Package reminder decides which horizon, if any, a deadline is due for.
package reminder

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"deadlinebot/internal/deadline"
)

// DefaultTolerance is the half-width of a match window.
const DefaultTolerance = 5 * time.Minute

// Window matches when the remaining time is within Tolerance of Target.
type Window struct {
	Horizon   deadline.Horizon
	Target    time.Duration
	Tolerance time.Duration
}

// Matches reports Target-Tolerance <= remaining <= Target+Tolerance.
func (w Window) Matches(remaining time.Duration) bool {
	return remaining >= w.Target-w.Tolerance && remaining <= w.Target+w.Tolerance
}

func (w Window) String() string {
	return fmt.Sprintf("%s(%s±%s)", w.Horizon, w.Target, w.Tolerance)
}

// DefaultWindows are the stock week/day/hour lead times.
func DefaultWindows(tolerance time.Duration) []Window {
	return []Window{
		{Horizon: deadline.HorizonWeek, Target: 7 * 24 * time.Hour, Tolerance: tolerance},
		{Horizon: deadline.HorizonDay, Target: 24 * time.Hour, Tolerance: tolerance},
		{Horizon: deadline.HorizonHour, Target: time.Hour, Tolerance: tolerance},
	}
}

// Policy selects among several matching windows.
type Policy int

const (
	// PolicyFirstMatch considers only the first matching window in priority order.
	// If it was already sent (or is disabled) nothing fires this tick.
	PolicyFirstMatch Policy = iota
	// PolicyFirstPending acts on the first matching window whose flag is still pending.
	PolicyFirstPending
)

func (p Policy) String() string {
	switch p {
	case PolicyFirstMatch:
		return "first_match"
	case PolicyFirstPending:
		return "first_pending"
	default:
		return fmt.Sprintf("policy(%d)", int(p))
	}
}

// ParsePolicy accepts "first_match" and "first_pending" (dashes allowed).
func ParsePolicy(s string) (Policy, error) {
	switch strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_") {
	case "first_match":
		return PolicyFirstMatch, nil
	case "first_pending":
		return PolicyFirstPending, nil
	default:
		return 0, fmt.Errorf("unknown reminder policy %q", s)
	}
}

// Evaluator holds windows ordered longest lead first.
type Evaluator struct {
	windows []Window
}

func NewEvaluator(windows ...Window) *Evaluator {
	ws := append([]Window(nil), windows...)
	sort.SliceStable(ws, func(i, j int) bool { return ws[i].Target > ws[j].Target })
	return &Evaluator{windows: ws}
}

// Windows returns a copy in priority order.
func (e *Evaluator) Windows() []Window {
	return append([]Window(nil), e.windows...)
}

// Matching returns every window matching remaining, in priority order.
func (e *Evaluator) Matching(remaining time.Duration) []Window {
	var out []Window
	for _, w := range e.windows {
		if w.Matches(remaining) {
			out = append(out, w)
		}
	}
	return out
}

// FirstMatch returns the highest priority matching window.
func (e *Evaluator) FirstMatch(remaining time.Duration) (Window, bool) {
	for _, w := range e.windows {
		if w.Matches(remaining) {
			return w, true
		}
	}
	return Window{}, false
}

// Select applies policy. pending reports whether a horizon's flag is still unset;
// it is only consulted for matching windows.
func (e *Evaluator) Select(remaining time.Duration, policy Policy, pending func(deadline.Horizon) (bool, error)) (Window, bool, error) {
	switch policy {
	case PolicyFirstPending:
		for _, w := range e.Matching(remaining) {
			ok, err := pending(w.Horizon)
			if err != nil {
				return Window{}, false, err
			}
			if ok {
				return w, true, nil
			}
		}
		return Window{}, false, nil
	default:
		w, ok := e.FirstMatch(remaining)
		if !ok {
			return Window{}, false, nil
		}
		p, err := pending(w.Horizon)
		if err != nil || !p {
			return Window{}, false, err
		}
		return w, true, nil
	}
}

// CoverageGap reports windows that a tick of the given interval can step over
// entirely (tick > 2*tolerance). Any deadline may then skip that horizon.
func (e *Evaluator) CoverageGap(tick time.Duration) []Window {
	var out []Window
	for _, w := range e.windows {
		if tick > 2*w.Tolerance {
			out = append(out, w)
		}
	}
	return out
}
