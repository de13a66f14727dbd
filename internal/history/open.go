package history

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/redis/go-redis/v9"
	chatbot "github.com/set-night/chatbot"
	"github.com/set-night/chatbot/internal/config"
	"github.com/set-night/chatbot/internal/domain"
	"github.com/set-night/chatbot/internal/repository"
)

// Open builds the store selected by HISTORY_BACKEND. The returned close
// function releases connections and is never nil.
func Open(ctx context.Context, cfg *config.Config) (Store, func(), error) {
	switch strings.ToLower(cfg.HistoryBackend) {
	case "", "memory":
		return NewMemoryStore(), func() {}, nil

	case "postgres":
		if cfg.DatabaseURL == "" {
			return nil, nil, fmt.Errorf("postgres history: DATABASE_URL is required")
		}
		pool, err := repository.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("postgres history: %w", err)
		}
		if err := repository.RunMigrations(cfg.DatabaseURL, chatbot.MigrationsFS, "migrations"); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("postgres history: %w", err)
		}
		return NewPostgresStore(pool), pool.Close, nil

	case "redis":
		if cfg.RedisURL == "" {
			return nil, nil, fmt.Errorf("redis history: REDIS_URL is required")
		}
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, nil, fmt.Errorf("redis history: parse url: %w", err)
		}
		client := redis.NewClient(opts)
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, nil, fmt.Errorf("redis history: ping: %w", err)
		}
		return NewRedisStore(client, cfg.HistoryTTL), func() { client.Close() }, nil

	default:
		return nil, nil, fmt.Errorf("%w: %q", domain.ErrUnknownHistoryBackend, cfg.HistoryBackend)
	}
}

// NewCounter returns a tiktoken counter for model, or a word counter when
// the encoding cannot be loaded.
func NewCounter(model string) TokenCounter {
	c, err := NewTiktokenCounter(model)
	if err != nil {
		slog.Warn("tiktoken unavailable, counting words instead", "model", model, "error", err)
		return WordCounter{}
	}
	return c
}
