package app

import (
	"deadlinebot/internal/config"
	"deadlinebot/internal/notifier"
	"deadlinebot/internal/scheduler"
	logx "deadlinebot/pkg/logx"
)

// settings is everything derived from one config snapshot.
type settings struct {
	resolved *config.Resolved
	logging  logx.Config
	loop     scheduler.Config
	driver   scheduler.DriverConfig
	notifier notifier.Config
}

func mapSettings(cfg *config.Config) (settings, error) {
	r, err := config.Resolve(cfg)
	if err != nil {
		return settings{}, err
	}
	return settings{
		resolved: r,
		logging:  mapLogging(cfg),
		loop: scheduler.Config{
			Windows:        r.Windows,
			PersonalPolicy: r.PersonalPolicy,
			GroupPolicy:    r.GroupPolicy,
		},
		driver: scheduler.DriverConfig{
			Tick:          r.Tick,
			FirstRunDelay: r.FirstRunDelay,
			Location:      r.Location,
		},
		notifier: notifier.Config{
			Timeout:        r.DeliveryTimeout,
			RatePerSec:     r.RatePerSec,
			ParseMode:      r.ParseMode,
			DisablePreview: cfg.Telegram.DisablePreview,
		},
	}, nil
}

func mapLogging(cfg *config.Config) logx.Config {
	return logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	}
}
