package handler

import (
	"context"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	tg "github.com/set-night/chatbot/internal/telegram"
)

// Register registers all command and callback handlers on the bot instance.
func (h *Handler) Register() {
	// Commands
	h.bot.RegisterHandler(bot.HandlerTypeMessageText, "/start", bot.MatchTypePrefix, h.handleStart)
	h.bot.RegisterHandler(bot.HandlerTypeMessageText, "/end", bot.MatchTypePrefix, h.handleEnd)
	h.bot.RegisterHandler(bot.HandlerTypeMessageText, "/prompt", bot.MatchTypePrefix, h.handlePrompt)
	h.bot.RegisterHandler(bot.HandlerTypeMessageText, "/settings", bot.MatchTypePrefix, h.handleSettings)

	// Callbacks
	h.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, tg.CallbackNewDialog, bot.MatchTypeExact, h.handleNewDialog)
	h.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, "toggle_cost", bot.MatchTypeExact, h.handleToggleCost)
	h.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, "toggle_sources", bot.MatchTypeExact, h.handleToggleSources)
}

// HandleDefault routes updates no command matched: documents are indexed,
// everything else is a chat turn.
func (h *Handler) HandleDefault(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}
	if update.Message.Document != nil {
		h.HandleDocument(ctx, b, update)
		return
	}
	h.HandleText(ctx, b, update)
}

func callbackChatID(update *models.Update) int64 {
	if msg := update.CallbackQuery.Message.Message; msg != nil {
		return msg.Chat.ID
	}
	return 0
}
