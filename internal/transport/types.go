// Package transport holds the platform-neutral types shared by messaging
// backends.
package transport

// SendOptions are hints for the messaging backend.
type SendOptions struct {
	ParseMode      string
	DisablePreview bool
}

// Parse modes understood by the Telegram backend.
const (
	ParseModeNone = ""
	ParseModeHTML = "HTML"
)
