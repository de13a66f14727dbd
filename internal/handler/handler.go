package handler

import (
	"regexp"
	"sync"

	"github.com/go-telegram/bot"
	"github.com/set-night/chatbot/internal/config"
	"github.com/set-night/chatbot/internal/service"
	"github.com/set-night/chatbot/internal/telegram"
)

// Handler holds all dependencies needed by command and callback handlers.
type Handler struct {
	bot         *bot.Bot
	cfg         *config.Config
	chatbot     *service.Chatbot
	tgLogger    *telegram.TelegramLogger
	botUsername string
	// mention matches "@<bot username>" in any letter case; nil without a username.
	mention *regexp.Regexp

	mu       sync.Mutex
	settings map[int64]*chatSettings
}

// chatSettings are per-chat display toggles. They live in memory only.
type chatSettings struct {
	ShowCost    bool
	ShowSources bool
}

// Deps contains all dependencies required to construct a Handler.
type Deps struct {
	Bot         *bot.Bot
	Cfg         *config.Config
	Chatbot     *service.Chatbot
	TgLogger    *telegram.TelegramLogger
	BotUsername string
}

// New creates a new Handler from the provided dependencies.
func New(deps Deps) *Handler {
	var mention *regexp.Regexp
	if deps.BotUsername != "" {
		mention = regexp.MustCompile(`(?i)@` + regexp.QuoteMeta(deps.BotUsername) + `\b`)
	}
	return &Handler{
		bot:         deps.Bot,
		cfg:         deps.Cfg,
		chatbot:     deps.Chatbot,
		tgLogger:    deps.TgLogger,
		botUsername: deps.BotUsername,
		mention:     mention,
		settings:    make(map[int64]*chatSettings),
	}
}

// chatSettings returns a copy of the chat's toggles.
func (h *Handler) chatSettings(chatID int64) chatSettings {
	h.mu.Lock()
	defer h.mu.Unlock()
	if s, ok := h.settings[chatID]; ok {
		return *s
	}
	return chatSettings{ShowCost: h.cfg.ShowCost}
}

func (h *Handler) updateSettings(chatID int64, fn func(*chatSettings)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	s, ok := h.settings[chatID]
	if !ok {
		s = &chatSettings{ShowCost: h.cfg.ShowCost}
		h.settings[chatID] = s
	}
	fn(s)
}
