package handler

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	tg "github.com/set-night/chatbot/internal/telegram"
)

func (h *Handler) handleStart(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}

	name := "there"
	if update.Message.From != nil && update.Message.From.FirstName != "" {
		name = update.Message.From.FirstName
	}

	markdown, plain := welcomeMessage(name, h.chatbot.HasRetriever())
	_, err := tg.SendMarkdown(ctx, b, &bot.SendMessageParams{
		ChatID:      update.Message.Chat.ID,
		Text:        markdown,
		ParseMode:   models.ParseModeMarkdown,
		ReplyMarkup: tg.NewDialogKeyboard(),
	}, plain)
	if err != nil {
		slog.Error("send welcome", "error", err, "chat_id", update.Message.Chat.ID)
	}
}

// welcomeMessage returns the greeting as MarkdownV2 and as plain text.
func welcomeMessage(name string, documents bool) (string, string) {
	intro := "I'm an AI assistant and I remember our conversation.\n\n"
	commands := "/prompt — Show or change the system prompt\n" +
		"/settings — Display settings\n" +
		"/end — Start a new dialog\n"
	tail := ""
	if documents {
		tail += "\n📚 Send me a .txt or .md file and I will use it to answer."
	}
	tail += "\n\nJust send a message to start!"

	markdown := fmt.Sprintf("👋 Hi, *%s*\\!\n\n%s📋 *Commands:*\n%s%s",
		bot.EscapeMarkdown(name),
		bot.EscapeMarkdown(intro),
		bot.EscapeMarkdown(commands),
		bot.EscapeMarkdown(tail),
	)
	plain := fmt.Sprintf("👋 Hi, %s!\n\n%s📋 Commands:\n%s%s", name, intro, commands, tail)
	return markdown, plain
}
