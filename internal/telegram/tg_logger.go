package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-telegram/bot"
	"github.com/set-night/chatbot/internal/config"
)

// TelegramLogger mirrors notable events into the LOG_TELEGRAM_CHAT_ID chat.
// It does nothing when no chat is configured.
type TelegramLogger struct {
	bot    *bot.Bot
	chatID int64
}

func NewTelegramLogger(b *bot.Bot, chatID int64) *TelegramLogger {
	return &TelegramLogger{bot: b, chatID: chatID}
}

func (l *TelegramLogger) Log(message string) {
	if l == nil || l.chatID == 0 {
		return
	}

	if len([]rune(message)) > config.MaxTelegramMessageLen {
		message = string([]rune(message)[:config.MaxTelegramMessageLen-20]) + "\n\n... (truncated)"
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := l.bot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: l.chatID,
		Text:   message,
	})
	if err != nil {
		slog.Error("failed to send telegram log", "error", err)
	}
}

func (l *TelegramLogger) LogError(err error, where string) {
	l.Log(fmt.Sprintf("❌ Error\n\nContext: %s\nError: %s\nTime: %s",
		where, err.Error(), time.Now().Format("2006-01-02 15:04:05")))
}

func (l *TelegramLogger) LogIndexed(source string, chunks int) {
	l.Log(fmt.Sprintf("📚 Indexed %s (%d chunks)", source, chunks))
}
