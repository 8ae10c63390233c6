package main

import (
	"fmt"
	"strings"
	"time"

	"deadlinebot/internal/config"
	"deadlinebot/internal/storage"
	"deadlinebot/internal/timeutil"
	logx "deadlinebot/pkg/logx"
)

// env is the store-only view used by commands that never send.
type env struct {
	res   *config.Resolved
	store storage.Store
	norm  *timeutil.Normalizer
}

func openEnv(cfgPath string) (*env, error) {
	log := logx.NewConsole("WARN")
	cfg, err := config.NewManager(cfgPath, log).Parse()
	if err != nil {
		return nil, err
	}
	res, err := config.Resolve(cfg)
	if err != nil {
		return nil, err
	}
	store, err := storage.Open(storage.Config{
		Driver:      res.StorageDriver,
		Path:        res.StoragePath,
		BusyTimeout: res.BusyTimeout,
	}, log)
	if err != nil {
		return nil, err
	}
	return &env{res: res, store: store, norm: timeutil.NewInLocation(res.Location)}, nil
}

func (e *env) Close() error { return e.store.Close() }

// due parses user input in the configured zone and returns the canonical instant.
func (e *env) due(date, clock string) (time.Time, error) {
	if strings.TrimSpace(date) == "" {
		return time.Time{}, fmt.Errorf("%w: -date is required", errUsage)
	}
	local, err := e.norm.ParseUserInput(date, clock)
	if err != nil {
		return time.Time{}, err
	}
	return e.norm.ToCanonical(local), nil
}

func onOff(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "on", "true", "1", "yes":
		return true, nil
	case "off", "false", "0", "no":
		return false, nil
	default:
		return false, fmt.Errorf("expected on or off, got %q", s)
	}
}
