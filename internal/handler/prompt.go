package handler

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// handlePrompt shows the system prompt, or replaces it with the text after
// the command. "/prompt reset" restores the default.
func (h *Handler) handlePrompt(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}

	chatID := update.Message.Chat.ID
	session := sessionFor(ctx, chatID)

	text := ""
	if parts := strings.SplitN(update.Message.Text, " ", 2); len(parts) > 1 {
		text = strings.TrimSpace(parts[1])
	}

	switch strings.ToLower(text) {
	case "":
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: chatID,
			Text: fmt.Sprintf("📝 Current system prompt:\n\n%s\n\nUse /prompt <text> to change it or /prompt reset to restore the default.",
				h.chatbot.SystemPrompt(session)),
		})
	case "reset":
		h.chatbot.SetSystemPrompt(session, "")
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: chatID,
			Text:   "✅ Default system prompt restored.",
		})
	default:
		h.chatbot.SetSystemPrompt(session, text)
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: chatID,
			Text:   "✅ System prompt updated.",
		})
	}
}
