// Package notify delivers terminal job events to external channels.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Telegram sends one-line job notices to a fixed chat.
type Telegram struct {
	bot    *tgbotapi.BotAPI
	chatID int64
	logger *slog.Logger
}

type TelegramConfig struct {
	Token  string
	ChatID string
	Logger *slog.Logger
}

func NewTelegram(cfg TelegramConfig) (*Telegram, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	chatID, err := strconv.ParseInt(cfg.ChatID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid telegram chat id %q: %w", cfg.ChatID, err)
	}

	bot, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("telegram bot init: %w", err)
	}

	cfg.Logger.Info("telegram notifier connected", "username", bot.Self.UserName)
	return &Telegram{bot: bot, chatID: chatID, logger: cfg.Logger}, nil
}

// Notify sends text to the configured chat.
func (t *Telegram) Notify(_ context.Context, text string) error {
	msg := tgbotapi.NewMessage(t.chatID, text)
	if _, err := t.bot.Send(msg); err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	return nil
}
