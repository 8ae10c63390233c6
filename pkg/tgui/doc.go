// Package tgui provides small helpers for building Telegram message text:
//   - HTML fragments that are escaped by construction
//   - rune-safe truncation of user supplied text
package tgui
