package storage

import (
	"context"
	"fmt"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/semmidev/omran/internal/config"
	"github.com/semmidev/omran/internal/domain"
)

// Bot API upload limit for documents.
const telegramMaxFileSize = 50 * 1024 * 1024

type TelegramStorage struct {
	bot         *tgbotapi.BotAPI
	chatID      int64
	destination string
}

func NewTelegram(cfg *config.Channel) (*TelegramStorage, error) {
	chatID, err := strconv.ParseInt(cfg.ChatID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid telegram chat_id %q: %w", cfg.ChatID, err)
	}

	bot, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}

	return &TelegramStorage{
		bot:         bot,
		chatID:      chatID,
		destination: cfg.Destination,
	}, nil
}

func (t *TelegramStorage) Name() string {
	return "telegram"
}

func (t *TelegramStorage) Destination() string {
	return t.destination
}

// Deliver posts the summary as a message followed by the file itself.
func (t *TelegramStorage) Deliver(ctx context.Context, d domain.Delivery) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	fileSizeMB := float64(len(d.Payload)) / (1024 * 1024)
	if len(d.Payload) > telegramMaxFileSize {
		return "", fmt.Errorf("file is %.2f MB, telegram accepts at most 50 MB", fileSizeMB)
	}

	if d.Summary != "" {
		if _, err := t.bot.Send(tgbotapi.NewMessage(t.chatID, d.Summary)); err != nil {
			return "", fmt.Errorf("failed to send telegram message: %w", err)
		}
	}

	doc := tgbotapi.NewDocument(t.chatID, tgbotapi.FileBytes{Name: d.Filename, Bytes: d.Payload})
	doc.Caption = fmt.Sprintf("📦 %s (%.2f MB)", d.Filename, fileSizeMB)

	msg, err := t.bot.Send(doc)
	if err != nil {
		return "", fmt.Errorf("failed to send telegram file: %w", err)
	}

	return fmt.Sprintf("telegram://%d/%d", t.chatID, msg.MessageID), nil
}
