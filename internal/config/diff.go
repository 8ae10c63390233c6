package config

import (
	"reflect"
	"strings"

	logx "deadlinebot/pkg/logx"
)

// SummarizeChange lists the changed top-level sections and safe log fields
// describing the new values. The telegram token is never logged.
func SummarizeChange(oldCfg, newCfg *Config) ([]string, []logx.Field) {
	if oldCfg == nil {
		oldCfg = &Config{}
	}
	if newCfg == nil {
		newCfg = &Config{}
	}
	var (
		changed []string
		fields  []logx.Field
	)

	if oldCfg.Telegram != newCfg.Telegram {
		changed = append(changed, "telegram")
		fields = append(fields,
			logx.Bool("telegram.token_changed", oldCfg.Telegram.Token != newCfg.Telegram.Token),
			logx.String("telegram.parse_mode", newCfg.Telegram.ParseMode),
		)
	}
	if oldCfg.Logging != newCfg.Logging {
		changed = append(changed, "logging")
		fields = append(fields,
			logx.String("logging.level", newCfg.Logging.Level),
			logx.Bool("logging.console", newCfg.Logging.Console),
			logx.Bool("logging.file_enabled", newCfg.Logging.File.Enabled),
		)
	}
	if oldCfg.Storage != newCfg.Storage {
		changed = append(changed, "storage")
		fields = append(fields, logx.String("storage.driver", newCfg.Storage.Driver))
	}
	if strings.TrimSpace(oldCfg.Timezone) != strings.TrimSpace(newCfg.Timezone) {
		changed = append(changed, "timezone")
		fields = append(fields, logx.String("timezone", newCfg.Timezone))
	}
	if !reflect.DeepEqual(oldCfg.Reminders, newCfg.Reminders) {
		changed = append(changed, "reminders")
		fields = append(fields,
			logx.String("reminders.tick_interval", newCfg.Reminders.TickInterval),
			logx.String("reminders.tolerance", newCfg.Reminders.Tolerance),
			logx.Int("reminders.horizons", len(newCfg.Reminders.Horizons)),
		)
	}
	if oldCfg.Delivery != newCfg.Delivery {
		changed = append(changed, "delivery")
		fields = append(fields,
			logx.String("delivery.timeout", newCfg.Delivery.Timeout),
			logx.Int("delivery.rate_per_sec", newCfg.Delivery.RatePerSec),
		)
	}
	return changed, fields
}

// RequiresRestart reports changes that a running process cannot apply.
func RequiresRestart(changed []string) []string {
	var out []string
	for _, s := range changed {
		switch s {
		case "telegram", "storage", "timezone":
			out = append(out, s)
		}
	}
	return out
}
