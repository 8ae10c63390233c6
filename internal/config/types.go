// Package config loads, validates and hot-reloads the bot configuration.
//
// Files are JSON or YAML (by extension). YAML is converted to JSON first so both
// go through the same strict decoder, which rejects unknown keys. Durations are
// Go duration strings ("10s", "6h", "168h").
package config

type Config struct {
	Telegram  TelegramConfig  `json:"telegram"`
	Logging   LoggingConfig   `json:"logging"`
	Storage   StorageConfig   `json:"storage"`
	Timezone  string          `json:"timezone,omitempty"`
	Reminders RemindersConfig `json:"reminders"`
	Delivery  DeliveryConfig  `json:"delivery"`
}

type TelegramConfig struct {
	Token          string `json:"token"`
	ParseMode      string `json:"parse_mode,omitempty"`
	DisablePreview bool   `json:"disable_preview,omitempty"`
	RequestTimeout string `json:"request_timeout,omitempty"`
}

type LoggingConfig struct {
	Level   string      `json:"level"`
	Console bool        `json:"console"`
	File    LoggingFile `json:"file"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

// StorageConfig selects the persistence backend.
//
//	"storage": { "driver": "sqlite", "path": "./data/deadlinebot.db" }
type StorageConfig struct {
	Driver      string `json:"driver"`
	Path        string `json:"path"`
	BusyTimeout string `json:"busy_timeout,omitempty"`
}

// RemindersConfig controls when reminders fire.
//
// tick_interval and tolerance are independent. A tick longer than twice the
// tolerance can step over a window entirely; that is reported as a warning,
// not corrected.
type RemindersConfig struct {
	TickInterval   string          `json:"tick_interval,omitempty"`
	FirstRunDelay  string          `json:"first_run_delay,omitempty"`
	Tolerance      string          `json:"tolerance,omitempty"`
	Horizons       []HorizonConfig `json:"horizons,omitempty"`
	PersonalPolicy string          `json:"personal_policy,omitempty"`
	GroupPolicy    string          `json:"group_policy,omitempty"`
}

// HorizonConfig is one lead time. Target defaults to the stock value for the
// name; tolerance defaults to reminders.tolerance.
type HorizonConfig struct {
	Name      string `json:"name"`
	Target    string `json:"target,omitempty"`
	Tolerance string `json:"tolerance,omitempty"`
}

type DeliveryConfig struct {
	Timeout    string `json:"timeout,omitempty"`
	RatePerSec int    `json:"rate_per_sec,omitempty"`
}
