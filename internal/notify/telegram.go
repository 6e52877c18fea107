package notify

import (
	"context"
	"errors"

	"github.com/go-telegram/bot"
)

// TelegramChannel sends escalations to a Telegram chat.

type TelegramChannel struct {
	bot    *bot.Bot
	chatID string
}

func NewTelegramChannel(token, chatID string) (*TelegramChannel, error) {
	if token == "" || chatID == "" {
		return nil, errors.New("notify: telegram token and chat id required")
	}
	b, err := bot.New(token)
	if err != nil {
		return nil, err
	}
	return &TelegramChannel{bot: b, chatID: chatID}, nil
}

func (t *TelegramChannel) Name() string { return "telegram" }

func (t *TelegramChannel) Send(ctx context.Context, e Escalation) error {
	_, err := t.bot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: t.chatID,
		Text:   e.Message(),
	})
	return err
}
