package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"deadlinebot/internal/app"
	"deadlinebot/internal/deadline"
	"deadlinebot/internal/reminder"
)

// cmdCheck previews a pass without claiming flags or sending anything.
func cmdCheck(ctx context.Context, cfgPath string, args []string, out io.Writer) error {
	fs := newFlags("check")
	date := fs.String("date", "", "evaluate at this date instead of now")
	clock := fs.String("time", "", "evaluate at this time (with -date)")
	if err := parse(fs, args); err != nil {
		return err
	}
	return withEnv(cfgPath, func(e *env) error {
		now := e.norm.Now()
		if *date != "" {
			at, err := e.norm.ParseUserInput(*date, *clock)
			if err != nil {
				return err
			}
			now = at
		}
		eval := reminder.NewEvaluator(e.res.Windows...)
		fmt.Fprintf(out, "evaluating at %s (%s)\n", e.norm.FormatForDisplay(now), e.norm.Location())
		for _, w := range e.res.Windows {
			fmt.Fprintf(out, "window %s: %s ± %s\n", w.Horizon, w.Target, w.Tolerance)
		}
		for _, w := range eval.CoverageGap(e.res.Tick) {
			fmt.Fprintf(out, "warning: tick %s can skip the %s window\n", e.res.Tick, w.Horizon)
		}

		personal, err := e.store.ActivePersonal(ctx)
		if err != nil {
			return err
		}
		groups, err := e.store.ActiveGroup(ctx)
		if err != nil {
			return err
		}

		tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "REF\tDUE\tLEFT\tMATCHING\tSENT\tACTION")
		for _, p := range personal {
			remaining := e.norm.Remaining(e.norm.ToLocal(p.Due), now)
			action, err := previewAction(eval, e.res.PersonalPolicy, p.Flags, remaining, func(h deadline.Horizon) (bool, error) {
				return e.store.Preference(ctx, p.OwnerID, h)
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", p.Ref(), e.norm.FormatForDisplay(p.Due),
				remaining.Truncate(time.Minute), horizons(eval.Matching(remaining)), sentFlags(p.Flags), action)
		}
		for _, g := range groups {
			remaining := e.norm.Remaining(e.norm.ToLocal(g.Due), now)
			action, err := previewAction(eval, e.res.GroupPolicy, g.Flags, remaining, nil)
			if err != nil {
				return err
			}
			if strings.HasPrefix(action, "send") {
				subs, err := e.store.Subscribers(ctx, g)
				if err != nil {
					return err
				}
				if len(subs) == 0 {
					action = "skip (no subscribers)"
				} else {
					action = fmt.Sprintf("%s to %d subscriber(s)", action, len(subs))
				}
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", g.Ref(), e.norm.FormatForDisplay(g.Due),
				remaining.Truncate(time.Minute), horizons(eval.Matching(remaining)), sentFlags(g.Flags), action)
		}
		return tw.Flush()
	})
}

// previewAction mirrors the pass decision using the loaded flags. enabled may be
// nil when preferences are checked per recipient later.
func previewAction(eval *reminder.Evaluator, policy reminder.Policy, flags deadline.Flags, remaining time.Duration, enabled func(deadline.Horizon) (bool, error)) (string, error) {
	w, ok, err := eval.Select(remaining, policy, func(h deadline.Horizon) (bool, error) {
		return !flags.Sent(h), nil
	})
	if err != nil {
		return "", err
	}
	if !ok {
		if len(eval.Matching(remaining)) > 0 {
			return "skip (already sent)", nil
		}
		return "-", nil
	}
	if enabled != nil {
		on, err := enabled(w.Horizon)
		if err != nil {
			return "", err
		}
		if !on {
			return fmt.Sprintf("skip (%s disabled)", w.Horizon), nil
		}
	}
	return "send " + w.Horizon.String(), nil
}

func horizons(ws []reminder.Window) string {
	if len(ws) == 0 {
		return "-"
	}
	names := make([]string, 0, len(ws))
	for _, w := range ws {
		names = append(names, w.Horizon.String())
	}
	return strings.Join(names, ",")
}

func sentFlags(f deadline.Flags) string {
	var names []string
	for _, h := range deadline.Horizons {
		if f.Sent(h) {
			names = append(names, h.String())
		}
	}
	if len(names) == 0 {
		return "-"
	}
	return strings.Join(names, ",")
}

// cmdRunOnce runs one real pass with the configured sender and audit trail.
func cmdRunOnce(ctx context.Context, cfgPath string, args []string, out io.Writer) error {
	if err := parse(newFlags("run-once"), args); err != nil {
		return err
	}
	a, err := app.New(ctx, cfgPath)
	if err != nil {
		return err
	}
	if err := a.Start(ctx); err != nil {
		_ = a.Stop(context.Background(), app.StopFatalError)
		return err
	}
	rep := a.RunOnce(ctx)

	stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := a.Stop(stopCtx, app.StopAppStop); err != nil {
		return err
	}

	fmt.Fprintf(out, "pass %s: evaluated=%d fired=%d skipped=%d delivered=%d failed=%d errors=%d took=%s\n",
		rep.ID, rep.Evaluated, rep.Fired, rep.Skipped, rep.Delivered, rep.Failed, len(rep.Errors),
		rep.Finished.Sub(rep.Started).Round(time.Millisecond))
	for _, err := range rep.Errors {
		fmt.Fprintln(out, "  error:", err)
	}
	return nil
}
