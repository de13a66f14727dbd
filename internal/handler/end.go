package handler

import (
	"context"
	"log/slog"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/set-night/chatbot/internal/middleware"
)

func (h *Handler) handleEnd(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}
	h.resetDialog(ctx, b, update.Message.Chat.ID)
}

func (h *Handler) handleNewDialog(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.CallbackQuery == nil {
		return
	}
	b.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{CallbackQueryID: update.CallbackQuery.ID})

	if chatID := callbackChatID(update); chatID != 0 {
		h.resetDialog(ctx, b, chatID)
	}
}

func (h *Handler) resetDialog(ctx context.Context, b *bot.Bot, chatID int64) {
	if err := h.chatbot.Reset(ctx, sessionFor(ctx, chatID)); err != nil {
		slog.Error("reset session", "error", err, "chat_id", chatID)
		h.tgLogger.LogError(err, "reset session")
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: chatID,
			Text:   "❌ Failed to reset the dialog.",
		})
		return
	}
	b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   "🔄 Context cleared. A new dialog has started.",
	})
}

// sessionFor prefers the session put in ctx by middleware.SessionLoader.
func sessionFor(ctx context.Context, chatID int64) string {
	if s := middleware.GetSession(ctx); s != "" {
		return s
	}
	return middleware.SessionID(chatID)
}
