package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/set-night/chatbot/internal/config"
	"github.com/set-night/chatbot/internal/handler"
	"github.com/set-night/chatbot/internal/middleware"
	"github.com/set-night/chatbot/internal/service"
	"github.com/set-night/chatbot/internal/telegram"
)

// errorReporter forwards to the Telegram logger once the bot exists.
type errorReporter struct {
	logger *telegram.TelegramLogger
}

func (r *errorReporter) LogError(err error, where string) {
	r.logger.LogError(err, where)
}

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Setup structured logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))
	slog.SetDefault(logger)

	if cfg.BotToken == "" {
		slog.Error("BOT_TOKEN is required")
		os.Exit(1)
	}

	// Setup context with graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Build chatbot: history store, model, retriever
	chatbot, closeFn, err := service.Build(ctx, cfg)
	if err != nil {
		slog.Error("failed to build chatbot", "error", err)
		os.Exit(1)
	}
	defer closeFn()

	// Handler pointer for use in default handler closure
	var h *handler.Handler
	reporter := &errorReporter{}

	// Create bot
	opts := []bot.Option{
		bot.WithMiddlewares(
			middleware.Recover(reporter),
			middleware.Logging(),
			middleware.RateLimit(middleware.NewChatLimiter(config.RateLimitPerMinute, config.RateLimitBurst)),
			middleware.SessionLoader(),
		),
		bot.WithDefaultHandler(func(ctx context.Context, b *bot.Bot, update *models.Update) {
			if h == nil {
				return
			}
			h.HandleDefault(ctx, b, update)
		}),
	}
	b, err := bot.New(cfg.BotToken, opts...)
	if err != nil {
		slog.Error("failed to create bot", "error", err)
		os.Exit(1)
	}

	// Get bot info
	me, err := b.GetMe(ctx)
	if err != nil {
		slog.Error("failed to get bot info", "error", err)
		os.Exit(1)
	}

	slog.Info("bot info retrieved", "id", me.ID, "username", me.Username)

	if cfg.DropPendingUpdates {
		if err := telegram.DropPendingUpdates(ctx, b); err != nil {
			slog.Error("failed to drop pending updates", "error", err)
		}
	}

	// Initialize telegram logger
	tgLogger := telegram.NewTelegramLogger(b, cfg.LogTelegramChatID)
	reporter.logger = tgLogger

	// Initialize handler
	h = handler.New(handler.Deps{
		Bot:         b,
		Cfg:         cfg,
		Chatbot:     chatbot,
		TgLogger:    tgLogger,
		BotUsername: me.Username,
	})

	// Register all handlers
	h.Register()

	// Start bot
	slog.Info("starting bot",
		"username", me.Username,
		"model", chatbot.ModelName(),
		"retriever", chatbot.HasRetriever(),
	)
	b.Start(ctx)

	// Graceful shutdown
	slog.Info("bot stopped gracefully")
}
