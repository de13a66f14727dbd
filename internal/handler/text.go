package handler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/set-night/chatbot/internal/config"
	"github.com/set-night/chatbot/internal/domain"
	"github.com/set-night/chatbot/internal/service"
	tg "github.com/set-night/chatbot/internal/telegram"
)

// HandleText answers text messages. In groups the bot only answers when
// mentioned or replied to.
func (h *Handler) HandleText(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}

	msg := update.Message

	// Skip commands
	if strings.HasPrefix(msg.Text, "/") {
		return
	}

	chatID := msg.Chat.ID

	// 1. Extract the question
	input, ok := h.questionFrom(msg)
	if !ok {
		return
	}
	if strings.TrimSpace(input) == "" {
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: chatID,
			Text:   "✍️ Send me a text message.",
		})
		return
	}

	// 2. Send typing indicator (repeats every 4s until stopped)
	stopTyping := tg.StartTyping(ctx, b, chatID)
	defer stopTyping()

	statusMsg, _ := b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   "⏳ Thinking...",
	})

	// 3. Run the turn
	reqCtx, cancel := context.WithTimeout(ctx, config.RequestTimeout)
	defer cancel()

	reply, err := h.chatbot.Reply(reqCtx, sessionFor(ctx, chatID), input)
	stopTyping()
	if err != nil {
		slog.Error("chat reply", "error", err, "chat_id", chatID)
		errText := "❌ Failed to process the request."
		switch {
		case errors.Is(err, domain.ErrEmptyInput):
			errText = "✍️ Send me a text message."
		case errors.Is(err, domain.ErrEmptyResponse):
			errText = "❌ The model returned an empty answer."
		case reqCtx.Err() != nil:
			errText = "⏳ The model took too long to answer."
		default:
			h.tgLogger.LogError(err, fmt.Sprintf("reply in chat %d", chatID))
		}
		if statusMsg != nil {
			b.EditMessageText(ctx, &bot.EditMessageTextParams{
				ChatID:    chatID,
				MessageID: statusMsg.ID,
				Text:      errText,
			})
		} else {
			b.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: errText})
		}
		return
	}

	// 4. Delete status message
	if statusMsg != nil {
		b.DeleteMessage(ctx, &bot.DeleteMessageParams{
			ChatID:    chatID,
			MessageID: statusMsg.ID,
		})
	}

	// 5. Send response
	var replyTo *int
	if msg.Chat.Type != "private" {
		replyTo = &msg.ID
	}
	if err := tg.SendLongMessage(ctx, b, chatID, reply.Message.Content, replyTo, nil); err != nil {
		slog.Error("send reply", "error", err, "chat_id", chatID)
		return
	}

	// 6. Footers
	settings := h.chatSettings(chatID)
	if settings.ShowSources && len(reply.Sources) > 0 {
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: chatID,
			Text:   formatSources(reply.Sources),
		})
	}
	if settings.ShowCost {
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: chatID,
			Text:   service.FormatCost(reply.Cost, reply.Usage),
		})
	}
}

// questionFrom returns the text to answer and whether the bot should
// answer at all.
func (h *Handler) questionFrom(msg *models.Message) (string, bool) {
	text := msg.Text
	if text == "" {
		text = msg.Caption
	}
	if msg.Chat.Type == "private" {
		return text, true
	}

	if msg.ReplyToMessage != nil && msg.ReplyToMessage.From != nil &&
		msg.ReplyToMessage.From.IsBot && msg.ReplyToMessage.From.Username == h.botUsername {
		return text, true
	}
	if h.mention == nil {
		return "", false
	}
	loc := h.mention.FindStringIndex(text)
	if loc == nil {
		return "", false
	}
	return strings.TrimSpace(text[:loc[0]] + text[loc[1]:]), true
}

func formatSources(docs []domain.Document) string {
	var sb strings.Builder
	sb.WriteString("📎 Sources:")
	for i, doc := range docs {
		name := doc.Metadata[domain.MetaTitle]
		if name == "" {
			name = doc.Source()
		}
		fmt.Fprintf(&sb, "\n%d. %s (%.2f)", i+1, name, doc.Score)
	}
	return sb.String()
}
