package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path"
	"strings"
	"sync"
	"testing"
	"unicode/utf8"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/set-night/chatbot/internal/config"
	"github.com/set-night/chatbot/internal/domain"
	"github.com/set-night/chatbot/internal/history"
	"github.com/set-night/chatbot/internal/llm"
	"github.com/set-night/chatbot/internal/llm/llmtest"
	"github.com/set-night/chatbot/internal/service"
	"github.com/set-night/chatbot/internal/telegram"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type apiCall struct {
	Method    string
	ChatID    string
	Text      string
	ParseMode string
	Markup    string
}

// fakeTelegram records Bot API calls and answers them successfully. Files
// are served by file ID; rejectMarkup fails every formatted sendMessage.
type fakeTelegram struct {
	mu           sync.Mutex
	calls        []apiCall
	files        map[string][]byte
	fileSizes    map[string]int64
	rejectMarkup bool
}

func (f *fakeTelegram) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if strings.HasPrefix(r.URL.Path, "/file/") {
		f.mu.Lock()
		data, ok := f.files[path.Base(r.URL.Path)]
		f.mu.Unlock()
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write(data)
		return
	}

	call := apiCall{
		Method:    path.Base(r.URL.Path),
		ChatID:    r.FormValue("chat_id"),
		Text:      r.FormValue("text"),
		ParseMode: r.FormValue("parse_mode"),
		Markup:    r.FormValue("reply_markup"),
	}
	f.mu.Lock()
	f.calls = append(f.calls, call)
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	switch call.Method {
	case "sendMessage", "editMessageText":
		if f.rejectMarkup && call.ParseMode != "" {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"ok":false,"error_code":400,"description":"Bad Request: can't parse entities: Character '!' is reserved"}`))
			return
		}
		w.Write([]byte(`{"ok":true,"result":{"message_id":7,"date":0,"chat":{"id":1,"type":"private"}}}`))
	case "getFile":
		id := r.FormValue("file_id")
		f.mu.Lock()
		size, ok := f.fileSizes[id]
		if !ok {
			size = int64(len(f.files[id]))
		}
		f.mu.Unlock()
		result, _ := json.Marshal(map[string]any{
			"ok":     true,
			"result": map[string]any{"file_id": id, "file_unique_id": id, "file_size": size, "file_path": "documents/" + id},
		})
		w.Write(result)
	default:
		w.Write([]byte(`{"ok":true,"result":true}`))
	}
}

func (f *fakeTelegram) sent(method string) []apiCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []apiCall
	for _, c := range f.calls {
		if c.Method == method {
			out = append(out, c)
		}
	}
	return out
}

func (f *fakeTelegram) texts(method string) []string {
	var out []string
	for _, c := range f.sent(method) {
		out = append(out, c.Text)
	}
	return out
}

func (f *fakeTelegram) lastText() string {
	sent := f.texts("sendMessage")
	if len(sent) == 0 {
		return ""
	}
	return sent[len(sent)-1]
}

func (f *fakeTelegram) markups() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, c := range f.calls {
		if c.Markup != "" {
			out = append(out, c.Markup)
		}
	}
	return out
}

// stubIndex is a retriever that always finds one document and remembers
// indexed texts.
type stubIndex struct {
	mu    sync.Mutex
	texts map[string]string
}

func (s *stubIndex) GetRelevantDocuments(_ context.Context, _ string) ([]domain.Document, error) {
	return []domain.Document{{
		PageContent: "Go is a programming language.",
		Metadata:    map[string]string{domain.MetaSource: "notes.md"},
		Score:       0.87,
	}}, nil
}

func (s *stubIndex) AddText(_ context.Context, name, text string) (int, error) {
	if strings.TrimSpace(text) == "" {
		return 0, domain.ErrEmptyDocument
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.texts == nil {
		s.texts = make(map[string]string)
	}
	s.texts[name] = text
	return 3, nil
}

type fixture struct {
	h     *Handler
	b     *bot.Bot
	api   *fakeTelegram
	model *llmtest.Model
	bot   *service.Chatbot
}

func newFixture(t *testing.T, cfg *config.Config, responses ...string) *fixture {
	return newFixtureWith(t, cfg, nil, responses...)
}

func newFixtureWith(t *testing.T, cfg *config.Config, opts []service.Option, responses ...string) *fixture {
	t.Helper()
	api := &fakeTelegram{files: map[string][]byte{}, fileSizes: map[string]int64{}}
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)

	b, err := bot.New("test-token", bot.WithServerURL(srv.URL), bot.WithSkipGetMe())
	require.NoError(t, err)

	model := llmtest.New(responses...)
	opts = append([]service.Option{service.WithSystemPrompt("You are a helpful assistant.")}, opts...)
	chatbot := service.NewChatbot(llm.NewChatModel(model, "test-model", 0, 0), history.NewMemoryStore(), opts...)

	h := New(Deps{
		Bot:         b,
		Cfg:         cfg,
		Chatbot:     chatbot,
		TgLogger:    telegram.NewTelegramLogger(b, 0),
		BotUsername: "test_bot",
	})
	return &fixture{h: h, b: b, api: api, model: model, bot: chatbot}
}

func message(chatType, text string) *models.Update {
	return &models.Update{Message: &models.Message{
		ID:   5,
		Chat: models.Chat{ID: 1, Type: models.ChatType(chatType)},
		From: &models.User{ID: 9, FirstName: "Bob"},
		Text: text,
	}}
}

func callback(data string) *models.Update {
	return &models.Update{CallbackQuery: &models.CallbackQuery{
		ID:   "cb",
		From: models.User{ID: 9},
		Data: data,
		Message: models.MaybeInaccessibleMessage{Message: &models.Message{
			ID:   7,
			Chat: models.Chat{ID: 1, Type: "private"},
		}},
	}}
}

func document(chatType, fileName string, size int64) *models.Update {
	update := message(chatType, "")
	update.Message.Document = &models.Document{FileID: fileName, FileName: fileName, FileSize: size}
	return update
}

// unescapedReserved lists MarkdownV2 reserved characters outside code spans
// that are neither escaped nor bold markers.
func unescapedReserved(text string) []rune {
	var out []rune
	escaped, code := false, false
	for _, r := range text {
		switch {
		case escaped:
			escaped = false
		case r == '\\':
			escaped = true
		case r == '`':
			code = !code
		case code, r == '*':
		case strings.ContainsRune("_[]()~>#+-=|{}.!", r):
			out = append(out, r)
		}
	}
	return out
}

func TestHandleStart(t *testing.T) {
	ctx := context.Background()

	t.Run("Should greet with the new dialog button", func(t *testing.T) {
		f := newFixture(t, &config.Config{})
		f.h.handleStart(ctx, f.b, message("private", "/start"))

		sent := f.api.texts("sendMessage")
		require.Len(t, sent, 1)
		assert.Contains(t, sent[0], "Bob")
		require.Len(t, f.api.markups(), 1)
		assert.Contains(t, f.api.markups()[0], telegram.CallbackNewDialog)
	})

	t.Run("Should escape MarkdownV2 reserved characters", func(t *testing.T) {
		f := newFixtureWith(t, &config.Config{}, []service.Option{service.WithRetriever(&stubIndex{})})
		update := message("private", "/start")
		update.Message.From.FirstName = "Dr. Who_(!)"

		f.h.handleStart(ctx, f.b, update)

		sent := f.api.sent("sendMessage")
		require.Len(t, sent, 1)
		assert.Equal(t, "MarkdownV2", sent[0].ParseMode)
		assert.Empty(t, unescapedReserved(sent[0].Text), sent[0].Text)
		assert.Contains(t, sent[0].Text, `Dr\. Who\_\(\!\)`)
	})

	t.Run("Should fall back to plain text when markup is rejected", func(t *testing.T) {
		f := newFixture(t, &config.Config{})
		f.api.rejectMarkup = true
		update := message("private", "/start")
		update.Message.From.FirstName = "Ann!"

		f.h.handleStart(ctx, f.b, update)

		sent := f.api.sent("sendMessage")
		require.Len(t, sent, 2)
		assert.Empty(t, sent[1].ParseMode)
		assert.Contains(t, sent[1].Text, "Hi, Ann!!")
		assert.Contains(t, sent[1].Markup, telegram.CallbackNewDialog)
	})
}

func TestHandleText(t *testing.T) {
	ctx := context.Background()

	t.Run("Should answer and remember private messages", func(t *testing.T) {
		f := newFixture(t, &config.Config{}, "Hello Bob!", "Your name is Bob.")

		f.h.HandleDefault(ctx, f.b, message("private", "Hi! I'm Bob"))
		f.h.HandleDefault(ctx, f.b, message("private", "What's my name?"))

		sent := f.api.texts("sendMessage")
		assert.Contains(t, sent, "Hello Bob!")
		assert.Contains(t, sent, "Your name is Bob.")
		assert.Len(t, f.api.texts("deleteMessage"), 2)

		msgs, err := f.bot.History(ctx, "tg:1")
		require.NoError(t, err)
		assert.Len(t, msgs, 4)
	})

	t.Run("Should ignore group messages without a mention", func(t *testing.T) {
		f := newFixture(t, &config.Config{}, "unused")
		f.h.HandleText(ctx, f.b, message("supergroup", "just chatting"))
		f.h.HandleText(ctx, f.b, message("supergroup", "ask @test_botty instead"))

		assert.Equal(t, 0, f.model.CallCount())
		assert.Empty(t, f.api.texts("sendMessage"))
	})

	t.Run("Should answer mentions in groups without the mention", func(t *testing.T) {
		f := newFixture(t, &config.Config{}, "Go is a language.")
		f.h.HandleText(ctx, f.b, message("supergroup", "@Test_Bot what is Go?"))

		require.Equal(t, 1, f.model.CallCount())
		last := f.model.Calls[0][len(f.model.Calls[0])-1]
		assert.Equal(t, "what is Go?", llmtest.Text(last))
		assert.Contains(t, f.api.texts("sendMessage"), "Go is a language.")
	})

	t.Run("Should strip mentions after letters that change length when lowercased", func(t *testing.T) {
		f := newFixture(t, &config.Config{}, "ok", "ok")

		f.h.HandleText(ctx, f.b, message("supergroup", "İİİİ @test_bot what is Go?"))
		f.h.HandleText(ctx, f.b, message("supergroup", "İİİİİİİİİİİİİİ @TEST_BOT"))

		require.Equal(t, 2, f.model.CallCount())
		first := llmtest.Text(f.model.Calls[0][len(f.model.Calls[0])-1])
		assert.Equal(t, "İİİİ  what is Go?", first)
		assert.True(t, utf8.ValidString(first))

		second := llmtest.Text(f.model.Calls[1][len(f.model.Calls[1])-1])
		assert.Equal(t, "İİİİİİİİİİİİİİ", second)
	})

	t.Run("Should answer replies to the bot in groups", func(t *testing.T) {
		f := newFixture(t, &config.Config{}, "Sure.")
		update := message("group", "and then?")
		update.Message.ReplyToMessage = &models.Message{From: &models.User{IsBot: true, Username: "test_bot"}}

		f.h.HandleText(ctx, f.b, update)

		assert.Equal(t, 1, f.model.CallCount())
		assert.Contains(t, f.api.texts("sendMessage"), "Sure.")
	})

	t.Run("Should report model failures", func(t *testing.T) {
		f := newFixture(t, &config.Config{})
		f.model.Err = errors.New("upstream down")

		f.h.HandleText(ctx, f.b, message("private", "hello"))

		edits := f.api.texts("editMessageText")
		require.Len(t, edits, 1)
		assert.Contains(t, edits[0], "Failed")

		msgs, err := f.bot.History(ctx, "tg:1")
		require.NoError(t, err)
		assert.Empty(t, msgs)
	})

	t.Run("Should add a cost footer when enabled", func(t *testing.T) {
		f := newFixture(t, &config.Config{ShowCost: true}, "ok")
		f.h.HandleText(ctx, f.b, message("private", "hello"))

		assert.True(t, strings.HasPrefix(f.api.lastText(), "💰 Cost:"), f.api.lastText())
	})
}

func TestHandleEnd(t *testing.T) {
	ctx := context.Background()

	t.Run("Should clear history on /end", func(t *testing.T) {
		f := newFixture(t, &config.Config{}, "hi")

		f.h.HandleText(ctx, f.b, message("private", "hello"))
		f.h.handleEnd(ctx, f.b, message("private", "/end"))

		msgs, err := f.bot.History(ctx, "tg:1")
		require.NoError(t, err)
		assert.Empty(t, msgs)
		assert.Contains(t, f.api.lastText(), "new dialog")
	})

	t.Run("Should clear history and prompt from the new dialog button", func(t *testing.T) {
		f := newFixture(t, &config.Config{}, "hi")

		f.h.HandleText(ctx, f.b, message("private", "hello"))
		f.bot.SetSystemPrompt("tg:1", "Talk like a pirate.")
		f.h.handleNewDialog(ctx, f.b, callback(telegram.CallbackNewDialog))

		msgs, err := f.bot.History(ctx, "tg:1")
		require.NoError(t, err)
		assert.Empty(t, msgs)
		assert.Equal(t, "You are a helpful assistant.", f.bot.SystemPrompt("tg:1"))
		assert.Len(t, f.api.sent("answerCallbackQuery"), 1)
		assert.Contains(t, f.api.lastText(), "new dialog")
	})
}

func TestHandlePrompt(t *testing.T) {
	ctx := context.Background()

	t.Run("Should show the default prompt", func(t *testing.T) {
		f := newFixture(t, &config.Config{})
		f.h.handlePrompt(ctx, f.b, message("private", "/prompt"))
		assert.Contains(t, f.api.lastText(), "You are a helpful assistant.")
	})

	t.Run("Should set, show and reset the session prompt", func(t *testing.T) {
		f := newFixture(t, &config.Config{})

		f.h.handlePrompt(ctx, f.b, message("private", "/prompt Talk like a pirate."))
		assert.Equal(t, "Talk like a pirate.", f.bot.SystemPrompt("tg:1"))
		assert.Contains(t, f.api.lastText(), "updated")

		f.h.handlePrompt(ctx, f.b, message("private", "/prompt"))
		assert.Contains(t, f.api.lastText(), "Talk like a pirate.")

		f.h.handlePrompt(ctx, f.b, message("private", "/prompt RESET"))
		assert.Equal(t, "You are a helpful assistant.", f.bot.SystemPrompt("tg:1"))
		assert.Contains(t, f.api.lastText(), "restored")
	})

	t.Run("Should use the session prompt in the next turn", func(t *testing.T) {
		f := newFixture(t, &config.Config{}, "Arr!")

		f.h.handlePrompt(ctx, f.b, message("private", "/prompt Talk like a pirate."))
		f.h.HandleText(ctx, f.b, message("private", "hello"))

		require.Equal(t, 1, f.model.CallCount())
		assert.Equal(t, "Talk like a pirate.", llmtest.Text(f.model.Calls[0][0]))
	})
}

func TestHandleDocument(t *testing.T) {
	ctx := context.Background()
	withIndex := func(t *testing.T) (*fixture, *stubIndex) {
		idx := &stubIndex{}
		return newFixtureWith(t, &config.Config{}, []service.Option{service.WithRetriever(idx)}), idx
	}

	t.Run("Should explain that search is disabled", func(t *testing.T) {
		f := newFixture(t, &config.Config{})
		f.h.HandleDefault(ctx, f.b, document("private", "notes.md", 10))

		sent := f.api.texts("sendMessage")
		require.Len(t, sent, 1)
		assert.Contains(t, sent[0], "not enabled")
	})

	t.Run("Should ignore documents in groups", func(t *testing.T) {
		f, idx := withIndex(t)
		f.api.files["notes.md"] = []byte("Go is fun.")

		f.h.HandleDefault(ctx, f.b, document("supergroup", "notes.md", 10))

		assert.Empty(t, f.api.calls)
		assert.Empty(t, idx.texts)
	})

	t.Run("Should index text files and report chunks", func(t *testing.T) {
		f, idx := withIndex(t)
		f.api.files["notes.md"] = []byte("# Notes\n\nGo is fun.")

		f.h.HandleDefault(ctx, f.b, document("private", "notes.md", 19))

		assert.Equal(t, "# Notes\n\nGo is fun.", idx.texts["notes.md"])
		assert.Equal(t, "✅ notes.md indexed (3 chunks).", f.api.lastText())
	})

	t.Run("Should reject unsupported extensions", func(t *testing.T) {
		f, idx := withIndex(t)
		f.h.HandleDefault(ctx, f.b, document("private", "report.pdf", 100))

		assert.Contains(t, f.api.lastText(), "Only .txt and .md")
		assert.Empty(t, f.api.sent("getFile"))
		assert.Empty(t, idx.texts)
	})

	t.Run("Should refuse large files before downloading", func(t *testing.T) {
		f, idx := withIndex(t)
		f.h.HandleDefault(ctx, f.b, document("private", "big.txt", telegram.MaxDocumentSize+1))

		assert.Contains(t, f.api.lastText(), "too large")
		assert.Contains(t, f.api.lastText(), "2 MB")
		assert.Empty(t, f.api.sent("getFile"))
		assert.Empty(t, idx.texts)
	})

	t.Run("Should refuse files Telegram reports as large", func(t *testing.T) {
		f, idx := withIndex(t)
		f.api.files["big.txt"] = []byte("x")
		f.api.fileSizes["big.txt"] = telegram.MaxDocumentSize + 1

		f.h.HandleDefault(ctx, f.b, document("private", "big.txt", 0))

		assert.Contains(t, f.api.lastText(), "too large")
		assert.Empty(t, idx.texts)
	})

	t.Run("Should reject files that are not UTF-8", func(t *testing.T) {
		f, idx := withIndex(t)
		f.api.files["latin1.txt"] = []byte{0x63, 0x61, 0x66, 0xe9}

		f.h.HandleDefault(ctx, f.b, document("private", "latin1.txt", 4))

		assert.Contains(t, f.api.lastText(), "not UTF-8")
		assert.Empty(t, idx.texts)
	})

	t.Run("Should report empty files", func(t *testing.T) {
		f, _ := withIndex(t)
		f.api.files["empty.txt"] = []byte("  \n")

		f.h.HandleDefault(ctx, f.b, document("private", "empty.txt", 3))

		assert.Contains(t, f.api.lastText(), "empty")
	})
}

func TestSettings(t *testing.T) {
	ctx := context.Background()

	t.Run("Should keep toggles per chat", func(t *testing.T) {
		f := newFixture(t, &config.Config{})
		assert.False(t, f.h.chatSettings(1).ShowCost)

		f.h.updateSettings(1, func(s *chatSettings) { s.ShowCost = true })
		assert.True(t, f.h.chatSettings(1).ShowCost)
		assert.False(t, f.h.chatSettings(2).ShowCost)
	})

	t.Run("Should show the sources toggle only with a retriever", func(t *testing.T) {
		f := newFixture(t, &config.Config{})
		f.h.handleSettings(ctx, f.b, message("private", "/settings"))
		require.Len(t, f.api.markups(), 1)
		assert.Contains(t, f.api.markups()[0], "toggle_cost")
		assert.NotContains(t, f.api.markups()[0], "toggle_sources")

		g := newFixtureWith(t, &config.Config{}, []service.Option{service.WithRetriever(&stubIndex{})})
		g.h.handleSettings(ctx, g.b, message("private", "/settings"))
		require.Len(t, g.api.markups(), 1)
		assert.Contains(t, g.api.markups()[0], "toggle_sources")
		assert.Empty(t, unescapedReserved(g.api.lastText()), g.api.lastText())
	})

	t.Run("Should switch the cost footer on and off", func(t *testing.T) {
		f := newFixture(t, &config.Config{}, "one", "two")

		f.h.handleToggleCost(ctx, f.b, callback("toggle_cost"))
		assert.Contains(t, f.api.markups()[len(f.api.markups())-1], "Show cost: ✅ On")

		f.h.HandleText(ctx, f.b, message("private", "hello"))
		assert.True(t, strings.HasPrefix(f.api.lastText(), "💰 Cost:"), f.api.lastText())

		f.h.handleToggleCost(ctx, f.b, callback("toggle_cost"))
		f.h.HandleText(ctx, f.b, message("private", "again"))
		assert.Equal(t, "two", f.api.lastText())
	})

	t.Run("Should add a sources footer when switched on", func(t *testing.T) {
		f := newFixtureWith(t, &config.Config{}, []service.Option{service.WithRetriever(&stubIndex{})}, "Go is a language.")

		f.h.handleToggleSources(ctx, f.b, callback("toggle_sources"))
		f.h.HandleText(ctx, f.b, message("private", "what is Go?"))

		footer := f.api.lastText()
		assert.True(t, strings.HasPrefix(footer, "📎 Sources:"), footer)
		assert.Contains(t, footer, "notes.md (0.87)")
	})
}
