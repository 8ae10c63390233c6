// Command deadlinectl manages deadlines, subscriptions and preferences in the
// reminder store, and runs or previews reminder passes.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"syscall"
)

type command struct {
	usage string
	run   func(ctx context.Context, cfgPath string, args []string, out io.Writer) error
}

var commands = map[string]command{
	"add":        {"add -owner ID -subject S -task T -date D [-time HH:MM] [-priority P]", cmdAdd},
	"add-group":  {"add-group -creator ID -subject S -task T -date D [-time HH:MM] [-group G] [-category C] [-important]", cmdAddGroup},
	"complete":   {"complete -owner ID -id N", cmdComplete},
	"delete":     {"delete -kind personal|group -user ID -id N", cmdDelete},
	"subscribe":  {"subscribe -user ID -id N", cmdSubscribe},
	"user":       {"user -chat ID [-name U] [-group G]", cmdUser},
	"prefs":      {"prefs -user ID [-week on|off] [-day on|off] [-hour on|off] [-off]", cmdPrefs},
	"list":       {"list (-owner ID [-all] | -group G)", cmdList},
	"upcoming":   {"upcoming -owner ID [-within 72h]", cmdUpcoming},
	"deliveries": {"deliveries [-limit N]", cmdDeliveries},
	"check":      {"check [-date D -time HH:MM]", cmdCheck},
	"run-once":   {"run-once", cmdRunOnce},
}

var errUsage = errors.New("usage")

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if !errors.Is(err, errUsage) {
			fmt.Fprintln(os.Stderr, "error:", err)
		}
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, out, errOut io.Writer) error {
	fs := flag.NewFlagSet("deadlinectl", flag.ContinueOnError)
	fs.SetOutput(errOut)
	cfgPath := fs.String("config", "./config.yaml", "path to config (yaml or json)")
	fs.Usage = func() { usage(errOut) }
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if fs.NArg() == 0 {
		usage(errOut)
		return errUsage
	}
	cmd, ok := commands[fs.Arg(0)]
	if !ok {
		fmt.Fprintf(errOut, "unknown command %q\n", fs.Arg(0))
		usage(errOut)
		return errUsage
	}
	err := cmd.run(ctx, *cfgPath, fs.Args()[1:], out)
	if errors.Is(err, errUsage) {
		fmt.Fprintln(errOut, "usage: deadlinectl [-config path]", cmd.usage)
	}
	return err
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "usage: deadlinectl [-config path] <command> [flags]")
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintln(w, "  "+commands[name].usage)
	}
}
