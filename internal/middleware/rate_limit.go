package middleware

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/set-night/chatbot/internal/config"
	"golang.org/x/time/rate"
)

// ChatLimiter keeps one token bucket per chat for the most recently active
// chats. An evicted chat starts over with a full bucket.
type ChatLimiter struct {
	mu       sync.Mutex
	limiters *lru.Cache[int64, *rate.Limiter]
	every    rate.Limit
	burst    int
}

// NewChatLimiter allows perMinute messages per chat with the given burst.
// A non-positive perMinute disables the limit.
func NewChatLimiter(perMinute, burst int) *ChatLimiter {
	return newChatLimiter(perMinute, burst, config.RateLimitChats)
}

func newChatLimiter(perMinute, burst, chats int) *ChatLimiter {
	every := rate.Inf
	if perMinute > 0 {
		every = rate.Every(time.Minute / time.Duration(perMinute))
	}
	// lru.New only fails for a non-positive size
	limiters, err := lru.New[int64, *rate.Limiter](max(chats, 1))
	if err != nil {
		panic(err)
	}
	return &ChatLimiter{
		limiters: limiters,
		every:    every,
		burst:    burst,
	}
}

func (l *ChatLimiter) Allow(chatID int64) bool {
	l.mu.Lock()
	lim, ok := l.limiters.Get(chatID)
	if !ok {
		lim = rate.NewLimiter(l.every, l.burst)
		l.limiters.Add(chatID, lim)
	}
	l.mu.Unlock()
	return lim.Allow()
}

// RateLimit returns middleware that drops messages over the chat's limit
// and tells the sender to slow down.
func RateLimit(limiter *ChatLimiter) bot.Middleware {
	return func(next bot.HandlerFunc) bot.HandlerFunc {
		return func(ctx context.Context, b *bot.Bot, update *models.Update) {
			// Only rate limit messages (not callbacks or other updates)
			if update.Message == nil {
				next(ctx, b, update)
				return
			}

			chatID := update.Message.Chat.ID
			if !limiter.Allow(chatID) {
				slog.Debug("rate limited", "chat_id", chatID)
				b.SendMessage(ctx, &bot.SendMessageParams{
					ChatID: chatID,
					Text:   "⏳ Too many requests. Please wait a moment.",
				})
				return
			}

			next(ctx, b, update)
		}
	}
}
