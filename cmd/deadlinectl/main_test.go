package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func testConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := "storage:\n  path: " + filepath.Join(dir, "bot.db") + "\ntimezone: UTC\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func runCmd(t *testing.T, cfg string, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	err := run(context.Background(), append([]string{"-config", cfg}, args...), &out, &errOut)
	return out.String(), err
}

func TestAddListAndCheck(t *testing.T) {
	t.Parallel()
	cfg := testConfig(t)

	out, err := runCmd(t, cfg, "add", "-owner", "42", "-subject", "Math", "-task", "Homework", "-date", "2030-01-08", "-time", "12:00")
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if !strings.Contains(out, "added personal deadline 1 due 08.01.2030 12:00") {
		t.Fatalf("add output = %q", out)
	}

	out, err = runCmd(t, cfg, "list", "-owner", "42")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if !strings.Contains(out, "Homework") || !strings.Contains(out, "medium") {
		t.Fatalf("list output = %q", out)
	}

	// One week before the deadline the week window matches.
	out, err = runCmd(t, cfg, "check", "-date", "2030-01-01", "-time", "12:00")
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if !strings.Contains(out, "personal:1") || !strings.Contains(out, "send week") {
		t.Fatalf("check output = %q", out)
	}
}

func TestPrefsDisableBlocksPreview(t *testing.T) {
	t.Parallel()
	cfg := testConfig(t)

	if _, err := runCmd(t, cfg, "user", "-chat", "7", "-name", "ann", "-group", "A1"); err != nil {
		t.Fatalf("user: %v", err)
	}
	out, err := runCmd(t, cfg, "prefs", "-user", "7", "-week", "off")
	if err != nil {
		t.Fatalf("prefs: %v", err)
	}
	if !strings.Contains(out, "week=off") || !strings.Contains(out, "day=on") {
		t.Fatalf("prefs output = %q", out)
	}

	if _, err := runCmd(t, cfg, "add", "-owner", "7", "-subject", "Physics", "-task", "Lab", "-date", "2030-01-08", "-time", "12:00"); err != nil {
		t.Fatalf("add: %v", err)
	}
	out, err = runCmd(t, cfg, "check", "-date", "2030-01-01", "-time", "12:00")
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if !strings.Contains(out, "skip (week disabled)") {
		t.Fatalf("check output = %q", out)
	}
}

func TestGroupSubscribeAndList(t *testing.T) {
	t.Parallel()
	cfg := testConfig(t)

	if _, err := runCmd(t, cfg, "add-group", "-creator", "1", "-group", "A1", "-subject", "Chem", "-task", "Exam", "-date", "2030-02-01", "-important"); err != nil {
		t.Fatalf("add-group: %v", err)
	}
	if _, err := runCmd(t, cfg, "subscribe", "-user", "99", "-id", "1"); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	out, err := runCmd(t, cfg, "list", "-group", "A1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if !strings.Contains(out, "! Chem") || !strings.Contains(out, "study") {
		t.Fatalf("list output = %q", out)
	}

	if _, err := runCmd(t, cfg, "delete", "-kind", "group", "-user", "2", "-id", "1"); err == nil {
		t.Fatal("delete by a non-creator should fail")
	}
	if _, err := runCmd(t, cfg, "delete", "-kind", "group", "-user", "1", "-id", "1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
}

func TestCheckGroupRecipients(t *testing.T) {
	t.Parallel()
	cfg := testConfig(t)

	if _, err := runCmd(t, cfg, "add-group", "-creator", "1", "-group", "B2", "-subject", "Bio", "-task", "Essay", "-date", "2030-01-08", "-time", "12:00"); err != nil {
		t.Fatalf("add-group: %v", err)
	}
	out, err := runCmd(t, cfg, "check", "-date", "2030-01-01", "-time", "12:00")
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if !strings.Contains(out, "group:1") || !strings.Contains(out, "skip (no subscribers)") {
		t.Fatalf("check output = %q", out)
	}

	if _, err := runCmd(t, cfg, "user", "-chat", "5", "-name", "bo", "-group", "B2"); err != nil {
		t.Fatalf("user: %v", err)
	}
	out, err = runCmd(t, cfg, "check", "-date", "2030-01-01", "-time", "12:00")
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if !strings.Contains(out, "send week to 1 subscriber(s)") {
		t.Fatalf("check output = %q", out)
	}
}

func TestUsageErrors(t *testing.T) {
	t.Parallel()
	cfg := testConfig(t)
	tests := []struct {
		name string
		args []string
	}{
		{"no command", nil},
		{"unknown command", []string{"frobnicate"}},
		{"missing owner", []string{"add", "-subject", "s", "-task", "t", "-date", "2030-01-01"}},
		{"missing date", []string{"add", "-owner", "1", "-subject", "s", "-task", "t"}},
		{"bad flag", []string{"list", "-nope"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := runCmd(t, cfg, tt.args...)
			if !errors.Is(err, errUsage) {
				t.Fatalf("err = %v, want usage error", err)
			}
		})
	}
}
