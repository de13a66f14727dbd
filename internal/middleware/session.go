package middleware

import (
	"context"
	"fmt"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

type ctxKey string

const SessionKey ctxKey = "session"

// SessionID is the history key of a Telegram chat.
func SessionID(chatID int64) string {
	return fmt.Sprintf("tg:%d", chatID)
}

// GetSession extracts the session ID from context.
func GetSession(ctx context.Context) string {
	s, _ := ctx.Value(SessionKey).(string)
	return s
}

// SessionLoader returns middleware that puts the chat's session ID into
// the context. Updates without a chat pass through unchanged.
func SessionLoader() bot.Middleware {
	return func(next bot.HandlerFunc) bot.HandlerFunc {
		return func(ctx context.Context, b *bot.Bot, update *models.Update) {
			if chatID, ok := ChatID(update); ok {
				ctx = context.WithValue(ctx, SessionKey, SessionID(chatID))
			}
			next(ctx, b, update)
		}
	}
}

// ChatID returns the chat an update belongs to.
func ChatID(update *models.Update) (int64, bool) {
	switch {
	case update.Message != nil:
		return update.Message.Chat.ID, true
	case update.CallbackQuery != nil && update.CallbackQuery.Message.Message != nil:
		return update.CallbackQuery.Message.Message.Chat.ID, true
	default:
		return 0, false
	}
}
