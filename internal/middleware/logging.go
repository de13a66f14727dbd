package middleware

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// Logging returns middleware that logs every update with its session key,
// how it is routed and how long handling took.
func Logging() bot.Middleware {
	return func(next bot.HandlerFunc) bot.HandlerFunc {
		return func(ctx context.Context, b *bot.Bot, update *models.Update) {
			start := time.Now()
			next(ctx, b, update)

			attrs := []any{
				"update_id", update.ID,
				"kind", UpdateKind(update),
				"duration", time.Since(start),
			}
			if chatID, ok := ChatID(update); ok {
				attrs = append(attrs, "session", SessionID(chatID))
			}
			slog.Debug("update processed", attrs...)
		}
	}
}

// UpdateKind names an update the way the handlers route it: "command:/x",
// "callback:<data>", "document", "text" or "other".
func UpdateKind(update *models.Update) string {
	switch {
	case update.CallbackQuery != nil:
		return "callback:" + update.CallbackQuery.Data
	case update.Message == nil:
		return "other"
	case update.Message.Document != nil:
		return "document"
	case strings.HasPrefix(update.Message.Text, "/"):
		return "command:" + strings.Fields(update.Message.Text)[0]
	default:
		return "text"
	}
}
