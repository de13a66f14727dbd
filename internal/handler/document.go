package handler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/set-night/chatbot/internal/domain"
	tg "github.com/set-night/chatbot/internal/telegram"
)

var documentExts = map[string]bool{".txt": true, ".md": true, ".markdown": true}

var fileTooLargeText = fmt.Sprintf("❌ The file is too large. The limit is %d MB.", tg.MaxDocumentSize>>20)

// HandleDocument indexes an uploaded text document for document search.
func (h *Handler) HandleDocument(ctx context.Context, b *bot.Bot, update *models.Update) {
	msg := update.Message
	chatID := msg.Chat.ID
	doc := msg.Document

	if msg.Chat.Type != "private" {
		return
	}

	if !h.chatbot.HasRetriever() {
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: chatID,
			Text:   "📚 Document search is not enabled.",
		})
		return
	}

	if !documentExts[strings.ToLower(filepath.Ext(doc.FileName))] {
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: chatID,
			Text:   "❌ Only .txt and .md files are supported.",
		})
		return
	}

	if doc.FileSize > tg.MaxDocumentSize {
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: chatID,
			Text:   fileTooLargeText,
		})
		return
	}

	data, _, err := tg.DownloadFile(ctx, b, doc.FileID)
	if err != nil {
		slog.Error("download document", "error", err, "file", doc.FileName)
		text := "❌ Failed to download the file."
		if errors.Is(err, tg.ErrFileTooLarge) {
			text = fileTooLargeText
		}
		b.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: text})
		return
	}
	if !utf8.Valid(data) {
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: chatID,
			Text:   "❌ The file is not UTF-8 text.",
		})
		return
	}

	n, err := h.chatbot.AddText(ctx, doc.FileName, string(data))
	if err != nil {
		slog.Error("index document", "error", err, "file", doc.FileName)
		text := "❌ Failed to index the file."
		if errors.Is(err, domain.ErrEmptyDocument) {
			text = "❌ The file is empty."
		}
		b.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: text})
		return
	}

	h.tgLogger.LogIndexed(doc.FileName, n)
	b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   fmt.Sprintf("✅ %s indexed (%d chunks).", doc.FileName, n),
	})
}
