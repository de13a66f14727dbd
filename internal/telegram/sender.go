package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/set-night/chatbot/internal/config"
)

const typingInterval = 4 * time.Second

// SendLongMessage sends text split into Telegram-sized parts. A part that
// Telegram rejects as Markdown is resent as plain text. The reply markup,
// if any, is attached to the last part.
func SendLongMessage(ctx context.Context, b *bot.Bot, chatID int64, text string, replyToID *int, markup models.ReplyMarkup) error {
	parts := SplitMessage(FixMarkdown(text), config.MaxTelegramMessageLen)

	for i, part := range parts {
		params := &bot.SendMessageParams{
			ChatID:    chatID,
			Text:      part,
			ParseMode: models.ParseModeMarkdownV1,
		}
		if replyToID != nil {
			params.ReplyParameters = &models.ReplyParameters{MessageID: *replyToID}
			replyToID = nil // only the first part
		}
		if i == len(parts)-1 && markup != nil {
			params.ReplyMarkup = markup
		}

		if _, err := b.SendMessage(ctx, params); err != nil {
			slog.Warn("markdown send failed, falling back to plain text", "error", err)
			params.ParseMode = ""
			if _, err := b.SendMessage(ctx, params); err != nil {
				return fmt.Errorf("send message: %w", err)
			}
		}
	}

	return nil
}

// SendMarkdown sends params and, when Telegram rejects the markup, resends
// plain as unformatted text.
func SendMarkdown(ctx context.Context, b *bot.Bot, params *bot.SendMessageParams, plain string) (*models.Message, error) {
	msg, err := b.SendMessage(ctx, params)
	if err == nil || params.ParseMode == "" {
		return msg, err
	}

	slog.Warn("markdown send failed, falling back to plain text", "error", err)
	fallback := *params
	fallback.ParseMode = ""
	fallback.Text = plain
	msg, err = b.SendMessage(ctx, &fallback)
	if err != nil {
		return nil, fmt.Errorf("send message: %w", err)
	}
	return msg, nil
}

// StartTyping sends the "typing..." action until the returned function is
// called.
func StartTyping(ctx context.Context, b *bot.Bot, chatID int64) context.CancelFunc {
	ctx, cancel := context.WithCancel(ctx)
	go func() {
		ticker := time.NewTicker(typingInterval)
		defer ticker.Stop()
		for {
			b.SendChatAction(ctx, &bot.SendChatActionParams{
				ChatID: chatID,
				Action: models.ChatActionTyping,
			})
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()
	return cancel
}

// DropPendingUpdates discards updates that arrived while the bot was down.
func DropPendingUpdates(ctx context.Context, b *bot.Bot) error {
	if _, err := b.DeleteWebhook(ctx, &bot.DeleteWebhookParams{DropPendingUpdates: true}); err != nil {
		return fmt.Errorf("drop pending updates: %w", err)
	}
	return nil
}
