package history

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/set-night/chatbot/internal/domain"
	"github.com/set-night/chatbot/internal/llm"
	"github.com/tmc/langchaingo/memory"
)

// MemoryStore keeps one langchaingo ChatMessageHistory per session. The
// history type only stores role and text, so creation times are tracked
// alongside it.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]*memorySession
}

type memorySession struct {
	history *memory.ChatMessageHistory
	times   []time.Time
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]*memorySession)}
}

func (s *MemoryStore) Append(ctx context.Context, sessionID string, msgs ...domain.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		sess = &memorySession{history: memory.NewChatMessageHistory()}
		s.sessions[sessionID] = sess
	}
	for _, msg := range msgs {
		if err := sess.history.AddMessage(ctx, llm.ToChatMessage(msg)); err != nil {
			return fmt.Errorf("add message: %w", err)
		}
		sess.times = append(sess.times, msg.CreatedAt)
	}
	return nil
}

func (s *MemoryStore) Messages(ctx context.Context, sessionID string) ([]domain.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return nil, nil
	}
	stored, err := sess.history.Messages(ctx)
	if err != nil {
		return nil, fmt.Errorf("get messages: %w", err)
	}

	out := make([]domain.Message, len(stored))
	for i, m := range stored {
		out[i] = llm.FromChatMessage(m)
		if i < len(sess.times) {
			out[i].CreatedAt = sess.times[i]
		}
	}
	return out, nil
}

func (s *MemoryStore) Clear(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return nil
	}
	if err := sess.history.Clear(ctx); err != nil {
		return fmt.Errorf("clear history: %w", err)
	}
	delete(s.sessions, sessionID)
	return nil
}
