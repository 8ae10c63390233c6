package logx

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestServiceFileSinkAndApply(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "bot.log")
	svc, log := New(Config{Level: "warn", File: FileConfig{Enabled: true, Path: path}})

	log = log.With(String("comp", "scheduler"))
	log.Info("dropped below warn")
	log.Warn("pass failed", Int("evaluated", 3), Err(errors.New("disk full")), Err(nil))

	svc.Apply(Config{Level: "debug", File: FileConfig{Enabled: true, Path: path}})
	log.Debug("kept after apply")
	if err := svc.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	out := string(raw)
	if strings.Contains(out, "dropped below warn") {
		t.Fatalf("info line written at warn level:\n%s", out)
	}
	for _, want := range []string{`"comp":"scheduler"`, `"evaluated":3`, `"err":"disk full"`, `"caller":"logging_test.go:`, "kept after apply"} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %s in:\n%s", want, out)
		}
	}
}

func TestZeroAndNopLoggers(t *testing.T) {
	t.Parallel()
	var zero Logger
	if !zero.IsZero() || Nop().IsZero() {
		t.Fatal("IsZero")
	}
	zero.Error("discarded")
	Nop().With(Bool("k", true)).Info("discarded")
}

func TestParseLevel(t *testing.T) {
	t.Parallel()
	for in, want := range map[string]string{"": "info", " DEBUG ": "debug", "warning": "warn", "error": "error", "trace": "info"} {
		if got := parseLevel(in).String(); got != want {
			t.Fatalf("parseLevel(%q) = %s, want %s", in, got, want)
		}
	}
}
