package history

import (
	"context"

	"github.com/set-night/chatbot/internal/domain"
)

// Store is an append-only, per-session record of conversation turns.
// Messages returns the appended messages oldest first.
type Store interface {
	Append(ctx context.Context, sessionID string, msgs ...domain.Message) error
	Messages(ctx context.Context, sessionID string) ([]domain.Message, error)
	Clear(ctx context.Context, sessionID string) error
}
