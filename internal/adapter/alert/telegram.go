// Package alert forwards deposit alerts to operator chat channels.
package alert

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/rs/zerolog"

	"github.com/iho/godeposit/internal/usecase"
)

var errEmptyChatID = errors.New("telegram chat id is empty")

type messageSender interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
}

// Telegram sends each alert as a plain message to one chat.
type Telegram struct {
	sender messageSender
	chatID string
	logger zerolog.Logger
}

var _ usecase.AlertSink = (*Telegram)(nil)

// NewTelegram creates the bot client. The bot is only used for sending, so no
// update polling is started.
func NewTelegram(token, chatID string, logger zerolog.Logger) (*Telegram, error) {
	if chatID == "" {
		return nil, errEmptyChatID
	}

	b, err := bot.New(token)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}

	return newTelegram(b, chatID, logger), nil
}

func newTelegram(sender messageSender, chatID string, logger zerolog.Logger) *Telegram {
	return &Telegram{
		sender: sender,
		chatID: chatID,
		logger: logger.With().Str("component", "telegram_alert").Logger(),
	}
}

func (t *Telegram) Send(ctx context.Context, text string) error {
	_, err := t.sender.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: t.chatID,
		Text:   text,
	})
	if err != nil {
		t.logger.Error().Err(err).Msg("failed to send alert")
		return fmt.Errorf("send telegram message: %w", err)
	}
	return nil
}
