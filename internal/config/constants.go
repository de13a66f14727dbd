package config

import "time"

const (
	// AI request timeout
	RequestTimeout = 90 * time.Second

	// Search query rewrites are short
	RewriteMaxTokens = 64

	// Web loader timeout
	FetchTimeout = 30 * time.Second

	// Telegram limits
	MaxTelegramMessageLen = 4096

	// Rate limits (per minute, per chat)
	RateLimitPerMinute = 6
	RateLimitBurst     = 3
	// Chats whose buckets are remembered
	RateLimitChats = 10_000

	// Price catalog cache duration
	PriceCacheDuration = 1 * time.Hour

	// Price lookup budget within one turn
	PriceLookupTimeout = 5 * time.Second

	// Cached query embeddings
	EmbeddingCacheSize = 512

	// Concurrent embedding requests while indexing
	IndexConcurrency = 4

	// Default token encoding for history trimming
	DefaultEncoding = "cl100k_base"

	// Redis key prefix for session histories
	RedisHistoryPrefix = "chatbot:history:"
)

// ExitCommands end the console chat loop.
var ExitCommands = []string{"quit", "exit"}
