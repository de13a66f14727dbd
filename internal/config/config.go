package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	// Chat model
	LLMProvider    string  `env:"LLM_PROVIDER" envDefault:"openai"`
	LLMModel       string  `env:"LLM_MODEL" envDefault:"gpt-4o-mini"`
	LLMBaseURL     string  `env:"LLM_BASE_URL"`
	LLMAPIKey      string  `env:"LLM_API_KEY"`
	LLMTemperature float64 `env:"LLM_TEMPERATURE" envDefault:"0.7"`
	LLMMaxTokens   int     `env:"LLM_MAX_TOKENS" envDefault:"0"`

	// Embeddings (retriever only)
	EmbeddingProvider string `env:"EMBEDDING_PROVIDER"`
	EmbeddingModel    string `env:"EMBEDDING_MODEL" envDefault:"text-embedding-3-small"`
	EmbeddingBaseURL  string `env:"EMBEDDING_BASE_URL"`
	EmbeddingAPIKey   string `env:"EMBEDDING_API_KEY"`

	// Prompt
	SystemPrompt string `env:"SYSTEM_PROMPT" envDefault:"You are a helpful assistant. Answer all questions to the best of your ability."`
	Language     string `env:"CHAT_LANGUAGE"`

	// History
	HistoryBackend   string        `env:"HISTORY_BACKEND" envDefault:"memory"`
	HistoryMaxTokens int           `env:"HISTORY_MAX_TOKENS" envDefault:"2000"`
	HistoryTTL       time.Duration `env:"HISTORY_TTL" envDefault:"0s"`
	DatabaseURL      string        `env:"DATABASE_URL"`
	RedisURL         string        `env:"REDIS_URL"`

	// Retriever
	RetrieverEnabled  bool     `env:"RETRIEVER_ENABLED" envDefault:"false"`
	RetrieverSources  []string `env:"RETRIEVER_SOURCES" envSeparator:","`
	RetrieverTopK     int      `env:"RETRIEVER_TOP_K" envDefault:"4"`
	RetrieverMinScore float64  `env:"RETRIEVER_MIN_SCORE" envDefault:"-1"`
	ChunkSize         int      `env:"CHUNK_SIZE" envDefault:"1000"`
	ChunkOverlap      int      `env:"CHUNK_OVERLAP" envDefault:"200"`
	QueryRewrite      bool     `env:"QUERY_REWRITE" envDefault:"true"`

	// Pricing, USD per 1M tokens
	PricePrompt     float64 `env:"PRICE_PROMPT" envDefault:"0"`
	PriceCompletion float64 `env:"PRICE_COMPLETION" envDefault:"0"`
	// PricesURL is an OpenRouter-style /models catalog used when no price is set.
	PricesURL string `env:"PRICES_URL"`

	// Telegram front-end
	BotToken           string `env:"BOT_TOKEN"`
	ShowCost           bool   `env:"SHOW_COST" envDefault:"false"`
	DropPendingUpdates bool   `env:"BOT_DROP_PENDING_UPDATES" envDefault:"false"`
	LogTelegramChatID  int64  `env:"LOG_TELEGRAM_CHAT_ID"`

	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
}

func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if cfg.EmbeddingProvider == "" {
		cfg.EmbeddingProvider = cfg.LLMProvider
	}
	if cfg.EmbeddingAPIKey == "" {
		cfg.EmbeddingAPIKey = cfg.LLMAPIKey
	}
	if cfg.ChunkOverlap >= cfg.ChunkSize {
		return nil, fmt.Errorf("chunk overlap %d must be smaller than chunk size %d", cfg.ChunkOverlap, cfg.ChunkSize)
	}
	return cfg, nil
}

// RetrievalEnabled reports whether the document retriever should be built.
func (c *Config) RetrievalEnabled() bool {
	return c.RetrieverEnabled || len(c.RetrieverSources) > 0
}

func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
