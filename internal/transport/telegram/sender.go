// Package telegram delivers reminder texts through the Telegram Bot API.
package telegram

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	tele "gopkg.in/telebot.v4"

	"deadlinebot/internal/transport"
	logx "deadlinebot/pkg/logx"
)

type Config struct {
	Token string
	// RequestTimeout bounds each Bot API call. telebot does not take a
	// context, so this is the effective deadline of a single send.
	RequestTimeout time.Duration
	// Offline skips the getMe handshake; used by tools that never send.
	Offline bool
}

// Sender is a send-only Telegram client. Reminder delivery never reads updates.
type Sender struct {
	bot *tele.Bot
	log logx.Logger
}

func New(cfg Config, log logx.Logger) (*Sender, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, errors.New("telegram token is empty")
	}
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	b, err := tele.NewBot(tele.Settings{
		Token:   cfg.Token,
		Client:  &http.Client{Timeout: timeout},
		Offline: cfg.Offline,
	})
	if err != nil {
		return nil, err
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Sender{bot: b, log: log.With(logx.String("comp", "telegram"))}, nil
}

// SendText sends text to a chat, split into several messages when too long.
func (s *Sender) SendText(ctx context.Context, chatID int64, text string, opt *transport.SendOptions) error {
	if opt == nil {
		opt = &transport.SendOptions{}
	}
	chat := &tele.Chat{ID: chatID}
	chunks := splitText(text, TextLimit, opt.ParseMode)
	for i, chunk := range chunks {
		if err := ctx.Err(); err != nil {
			return err
		}
		_, err := s.bot.Send(chat, chunk, &tele.SendOptions{
			ParseMode:             tele.ParseMode(opt.ParseMode),
			DisableWebPagePreview: opt.DisablePreview,
		})
		if err != nil {
			if i > 0 {
				s.log.Warn("partial telegram send", logx.Int64("chat_id", chatID), logx.Int("sent_chunks", i), logx.Int("chunks", len(chunks)))
			}
			return err
		}
	}
	return nil
}
