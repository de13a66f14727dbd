package handler

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	tg "github.com/set-night/chatbot/internal/telegram"
)

func (h *Handler) handleSettings(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}
	h.sendSettings(ctx, b, update.Message.Chat.ID)
}

func (h *Handler) sendSettings(ctx context.Context, b *bot.Bot, chatID int64) {
	s := h.chatSettings(chatID)

	retrieval := "❌ Off"
	if h.chatbot.HasRetriever() {
		retrieval = "✅ On"
	}

	text := fmt.Sprintf(
		"⚙️ *Settings*\n\n"+
			"🤖 Model: `%s`\n"+
			"📚 Document search: *%s*\n",
		escapeCode(h.chatbot.ModelName()),
		bot.EscapeMarkdown(retrieval),
	)
	plain := fmt.Sprintf("⚙️ Settings\n\n🤖 Model: %s\n📚 Document search: %s\n", h.chatbot.ModelName(), retrieval)

	var rows [][]models.InlineKeyboardButton
	rows = append(rows, tg.ButtonRow(
		tg.InlineButton(fmt.Sprintf("💰 Show cost: %s", onOff(s.ShowCost)), "toggle_cost"),
	))
	if h.chatbot.HasRetriever() {
		rows = append(rows, tg.ButtonRow(
			tg.InlineButton(fmt.Sprintf("📎 Show sources: %s", onOff(s.ShowSources)), "toggle_sources"),
		))
	}

	_, err := tg.SendMarkdown(ctx, b, &bot.SendMessageParams{
		ChatID:      chatID,
		Text:        text,
		ParseMode:   models.ParseModeMarkdown,
		ReplyMarkup: tg.InlineKeyboard(rows...),
	}, plain)
	if err != nil {
		slog.Error("send settings", "error", err, "chat_id", chatID)
	}
}

func (h *Handler) handleToggleCost(ctx context.Context, b *bot.Bot, update *models.Update) {
	h.toggle(ctx, b, update, func(s *chatSettings) { s.ShowCost = !s.ShowCost })
}

func (h *Handler) handleToggleSources(ctx context.Context, b *bot.Bot, update *models.Update) {
	h.toggle(ctx, b, update, func(s *chatSettings) { s.ShowSources = !s.ShowSources })
}

func (h *Handler) toggle(ctx context.Context, b *bot.Bot, update *models.Update, fn func(*chatSettings)) {
	if update.CallbackQuery == nil {
		return
	}
	b.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{CallbackQueryID: update.CallbackQuery.ID})

	chatID := callbackChatID(update)
	if chatID == 0 {
		return
	}
	h.updateSettings(chatID, fn)
	h.sendSettings(ctx, b, chatID)
}

// escapeCode escapes text placed inside a MarkdownV2 code span.
func escapeCode(s string) string {
	return strings.NewReplacer("\\", "\\\\", "`", "\\`").Replace(s)
}

func onOff(v bool) string {
	if v {
		return "✅ On"
	}
	return "❌ Off"
}
