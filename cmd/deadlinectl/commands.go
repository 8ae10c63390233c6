package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"
	"time"

	"deadlinebot/internal/deadline"
	"deadlinebot/internal/timeutil"
)

func newFlags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

func parse(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	return nil
}

func required(pairs ...any) error {
	for i := 0; i+1 < len(pairs); i += 2 {
		name := pairs[i].(string)
		switch v := pairs[i+1].(type) {
		case int64:
			if v == 0 {
				return fmt.Errorf("%w: -%s is required", errUsage, name)
			}
		case string:
			if v == "" {
				return fmt.Errorf("%w: -%s is required", errUsage, name)
			}
		}
	}
	return nil
}

// withEnv opens the store for the duration of fn.
func withEnv(cfgPath string, fn func(e *env) error) (err error) {
	e, err := openEnv(cfgPath)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := e.Close(); err == nil {
			err = cerr
		}
	}()
	return fn(e)
}

func cmdAdd(ctx context.Context, cfgPath string, args []string, out io.Writer) error {
	fs := newFlags("add")
	owner := fs.Int64("owner", 0, "owner chat id")
	subject := fs.String("subject", "", "subject")
	task := fs.String("task", "", "task")
	date := fs.String("date", "", "due date")
	clock := fs.String("time", "", "due time (HH:MM, default 23:59)")
	priority := fs.String("priority", deadline.DefaultPriority, "priority")
	if err := parse(fs, args); err != nil {
		return err
	}
	if err := required("owner", *owner, "subject", *subject, "task", *task); err != nil {
		return err
	}
	return withEnv(cfgPath, func(e *env) error {
		due, err := e.due(*date, *clock)
		if err != nil {
			return err
		}
		id, err := e.store.AddPersonal(ctx, deadline.Personal{
			OwnerID: *owner, Subject: *subject, Task: *task, Priority: *priority, Due: due,
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "added personal deadline %d due %s\n", id, e.norm.FormatForDisplay(due))
		return nil
	})
}

func cmdAddGroup(ctx context.Context, cfgPath string, args []string, out io.Writer) error {
	fs := newFlags("add-group")
	creator := fs.Int64("creator", 0, "creator chat id")
	group := fs.String("group", deadline.DefaultGroupName, "group name")
	subject := fs.String("subject", "", "subject")
	task := fs.String("task", "", "task")
	category := fs.String("category", deadline.DefaultCategory, "category")
	important := fs.Bool("important", false, "mark as important")
	date := fs.String("date", "", "due date")
	clock := fs.String("time", "", "due time (HH:MM, default 23:59)")
	if err := parse(fs, args); err != nil {
		return err
	}
	if err := required("creator", *creator, "subject", *subject, "task", *task); err != nil {
		return err
	}
	return withEnv(cfgPath, func(e *env) error {
		due, err := e.due(*date, *clock)
		if err != nil {
			return err
		}
		id, err := e.store.AddGroup(ctx, deadline.Group{
			CreatorID: *creator, GroupName: *group, Subject: *subject, Task: *task,
			Category: *category, Important: *important, Due: due,
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "added group deadline %d for %s due %s\n", id, *group, e.norm.FormatForDisplay(due))
		return nil
	})
}

func cmdComplete(ctx context.Context, cfgPath string, args []string, out io.Writer) error {
	fs := newFlags("complete")
	owner := fs.Int64("owner", 0, "owner chat id")
	id := fs.Int64("id", 0, "deadline id")
	if err := parse(fs, args); err != nil {
		return err
	}
	if err := required("owner", *owner, "id", *id); err != nil {
		return err
	}
	return withEnv(cfgPath, func(e *env) error {
		if err := e.store.CompletePersonal(ctx, *owner, *id); err != nil {
			return err
		}
		fmt.Fprintf(out, "completed personal deadline %d\n", *id)
		return nil
	})
}

func cmdDelete(ctx context.Context, cfgPath string, args []string, out io.Writer) error {
	fs := newFlags("delete")
	kind := fs.String("kind", string(deadline.KindPersonal), "personal or group")
	user := fs.Int64("user", 0, "owner (personal) or creator (group) chat id")
	id := fs.Int64("id", 0, "deadline id")
	if err := parse(fs, args); err != nil {
		return err
	}
	if err := required("user", *user, "id", *id); err != nil {
		return err
	}
	return withEnv(cfgPath, func(e *env) error {
		var err error
		switch deadline.Kind(*kind) {
		case deadline.KindPersonal:
			err = e.store.DeletePersonal(ctx, *user, *id)
		case deadline.KindGroup:
			err = e.store.DeleteGroup(ctx, *user, *id)
		default:
			return fmt.Errorf("%w: unknown -kind %q", errUsage, *kind)
		}
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "deleted %s deadline %d\n", *kind, *id)
		return nil
	})
}

func cmdSubscribe(ctx context.Context, cfgPath string, args []string, out io.Writer) error {
	fs := newFlags("subscribe")
	user := fs.Int64("user", 0, "subscriber chat id")
	id := fs.Int64("id", 0, "group deadline id")
	if err := parse(fs, args); err != nil {
		return err
	}
	if err := required("user", *user, "id", *id); err != nil {
		return err
	}
	return withEnv(cfgPath, func(e *env) error {
		if err := e.store.Subscribe(ctx, *user, *id); err != nil {
			return err
		}
		fmt.Fprintf(out, "user %d subscribed to group deadline %d\n", *user, *id)
		return nil
	})
}

func cmdUser(ctx context.Context, cfgPath string, args []string, out io.Writer) error {
	fs := newFlags("user")
	chat := fs.Int64("chat", 0, "chat id")
	name := fs.String("name", "", "username")
	group := fs.String("group", "", "group name")
	if err := parse(fs, args); err != nil {
		return err
	}
	if err := required("chat", *chat); err != nil {
		return err
	}
	return withEnv(cfgPath, func(e *env) error {
		if err := e.store.UpsertUser(ctx, deadline.User{ChatID: *chat, Username: *name, GroupName: *group}); err != nil {
			return err
		}
		u, err := e.store.GetUser(ctx, *chat)
		if err != nil {
			return err
		}
		printUser(out, u)
		return nil
	})
}

func cmdPrefs(ctx context.Context, cfgPath string, args []string, out io.Writer) error {
	fs := newFlags("prefs")
	user := fs.Int64("user", 0, "chat id")
	off := fs.Bool("off", false, "disable every reminder")
	values := map[deadline.Horizon]*string{}
	for _, h := range deadline.Horizons {
		values[h] = fs.String(h.String(), "", h.String()+" reminders: on or off")
	}
	if err := parse(fs, args); err != nil {
		return err
	}
	if err := required("user", *user); err != nil {
		return err
	}
	return withEnv(cfgPath, func(e *env) error {
		if *off {
			if err := e.store.DisableAll(ctx, *user); err != nil {
				return err
			}
		}
		for _, h := range deadline.Horizons {
			raw := *values[h]
			if raw == "" {
				continue
			}
			on, err := onOff(raw)
			if err != nil {
				return fmt.Errorf("-%s: %w", h, err)
			}
			if err := e.store.SetPreference(ctx, *user, h, on); err != nil {
				return err
			}
		}
		u, err := e.store.GetUser(ctx, *user)
		if err != nil {
			return err
		}
		printUser(out, u)
		return nil
	})
}

func printUser(out io.Writer, u deadline.User) {
	fmt.Fprintf(out, "user %d (%s) group=%s", u.ChatID, u.Username, u.GroupName)
	for _, h := range deadline.Horizons {
		state := "off"
		if u.Preferences.Enabled(h) {
			state = "on"
		}
		fmt.Fprintf(out, " %s=%s", h, state)
	}
	fmt.Fprintln(out)
}

func cmdList(ctx context.Context, cfgPath string, args []string, out io.Writer) error {
	fs := newFlags("list")
	owner := fs.Int64("owner", 0, "owner chat id")
	all := fs.Bool("all", false, "include completed")
	group := fs.String("group", "", "group name")
	if err := parse(fs, args); err != nil {
		return err
	}
	if *owner == 0 && *group == "" {
		return fmt.Errorf("%w: -owner or -group is required", errUsage)
	}
	return withEnv(cfgPath, func(e *env) error {
		if *group != "" {
			gs, err := e.store.ListGroup(ctx, *group)
			if err != nil {
				return err
			}
			printGroups(out, e.norm, gs)
			return nil
		}
		ps, err := e.store.ListPersonal(ctx, *owner, *all)
		if err != nil {
			return err
		}
		printPersonal(out, e.norm, ps)
		return nil
	})
}

func cmdUpcoming(ctx context.Context, cfgPath string, args []string, out io.Writer) error {
	fs := newFlags("upcoming")
	owner := fs.Int64("owner", 0, "owner chat id")
	within := fs.Duration("within", 72*time.Hour, "look-ahead")
	if err := parse(fs, args); err != nil {
		return err
	}
	if err := required("owner", *owner); err != nil {
		return err
	}
	return withEnv(cfgPath, func(e *env) error {
		ps, err := e.store.Upcoming(ctx, *owner, time.Now(), *within)
		if err != nil {
			return err
		}
		printPersonal(out, e.norm, ps)
		return nil
	})
}

func printPersonal(out io.Writer, norm *timeutil.Normalizer, ps []deadline.Personal) {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDUE\tLEFT\tPRIORITY\tSUBJECT\tTASK\tDONE")
	now := norm.Now()
	for _, p := range ps {
		left := timeutil.FormatDuration(norm.Remaining(norm.ToLocal(p.Due), now))
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%t\n",
			p.ID, norm.FormatForDisplay(p.Due), left, p.Priority, p.Subject, p.Task, p.Completed)
	}
	_ = tw.Flush()
}

func printGroups(out io.Writer, norm *timeutil.Normalizer, gs []deadline.Group) {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDUE\tLEFT\tGROUP\tCATEGORY\tSUBJECT\tTASK\tSUBSCRIBERS")
	now := norm.Now()
	for _, g := range gs {
		left := timeutil.FormatDuration(norm.Remaining(norm.ToLocal(g.Due), now))
		subject := g.Subject
		if g.Important {
			subject = "! " + subject
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%s\t%d\n",
			g.ID, norm.FormatForDisplay(g.Due), left, g.GroupName, g.Category, subject, g.Task, len(g.Subscribers))
	}
	_ = tw.Flush()
}

func cmdDeliveries(ctx context.Context, cfgPath string, args []string, out io.Writer) error {
	fs := newFlags("deliveries")
	limit := fs.Int("limit", 20, "number of entries")
	if err := parse(fs, args); err != nil {
		return err
	}
	return withEnv(cfgPath, func(e *env) error {
		entries, err := e.store.RecentDeliveries(ctx, *limit)
		if err != nil {
			return err
		}
		tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "AT\tREF\tHORIZON\tRECIPIENT\tOK\tTOOK\tERROR")
		for _, d := range entries {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%t\t%sms\t%s\n",
				e.norm.FormatForDisplay(d.At), d.Ref, d.Horizon, d.Recipient, d.OK,
				strconv.FormatInt(d.TookMS, 10), d.Error)
		}
		return tw.Flush()
	})
}
