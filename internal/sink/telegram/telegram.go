// Package telegram mirrors menu messages to a Telegram chat.
//
// This is a send-only bot: no poller, no command handling. Mirror failures
// are reported to the notifier, which logs and keeps going.
package telegram

import (
	"context"
	"errors"
	"strings"

	tele "gopkg.in/telebot.v4"

	"menubot/internal/sink"
	logx "menubot/pkg/logx"
)

type Config struct {
	Token  string
	ChatID int64
	APIURL string // empty means api.telegram.org
}

type Sink struct {
	cfg Config
	bot *tele.Bot
	log logx.Logger
}

func New(cfg Config, log logx.Logger) (*Sink, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, errors.New("telegram token is empty")
	}
	if cfg.ChatID == 0 {
		return nil, errors.New("telegram chat id is empty")
	}
	// Offline skips the getMe call at construction. The mirror is
	// best-effort, so an unreachable API must not abort startup; errors
	// surface per send instead.
	b, err := tele.NewBot(tele.Settings{
		Token:   cfg.Token,
		URL:     cfg.APIURL,
		Offline: true,
	})
	if err != nil {
		return nil, err
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Sink{cfg: cfg, bot: b, log: log}, nil
}

func (s *Sink) Name() string { return "telegram" }

func (s *Sink) Send(ctx context.Context, msg sink.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := s.bot.Send(tele.ChatID(s.cfg.ChatID), msg.Text, &tele.SendOptions{DisableWebPagePreview: true})
	return err
}
