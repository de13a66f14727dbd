package history

import (
	"testing"

	"github.com/set-night/chatbot/internal/domain"
	"github.com/stretchr/testify/assert"
)

func contents(msgs []domain.Message) []string {
	out := make([]string, len(msgs))
	for i, m := range msgs {
		out[i] = m.Content
	}
	return out
}

func TestTrimmer_Trim(t *testing.T) {
	// Every message below costs 1 word + 3 overhead = 4 tokens.
	conversation := []domain.Message{
		domain.SystemMessage("system"),
		domain.HumanMessage("h1"),
		domain.AIMessage("a1"),
		domain.HumanMessage("h2"),
		domain.AIMessage("a2"),
		domain.HumanMessage("h3"),
		domain.AIMessage("a3"),
	}

	t.Run("Should keep everything without a budget", func(t *testing.T) {
		out := NewTrimmer(0, nil).Trim(conversation)
		assert.Equal(t, contents(conversation), contents(out))
	})

	t.Run("Should keep the system message and the latest turns", func(t *testing.T) {
		out := NewTrimmer(4+4*4, WordCounter{}).Trim(conversation)
		assert.Equal(t, []string{"system", "h2", "a2", "h3", "a3"}, contents(out))
	})

	t.Run("Should start the window on a human message", func(t *testing.T) {
		out := NewTrimmer(4+3*4, WordCounter{}).Trim(conversation)
		assert.Equal(t, []string{"system", "h3", "a3"}, contents(out))
	})

	t.Run("Should drop everything but the system message when nothing fits", func(t *testing.T) {
		out := NewTrimmer(5, WordCounter{}).Trim(conversation)
		assert.Equal(t, []string{"system"}, contents(out))
	})

	t.Run("Should not modify the input", func(t *testing.T) {
		in := append([]domain.Message(nil), conversation...)
		_ = NewTrimmer(8, WordCounter{}).Trim(in)
		assert.Equal(t, conversation, in)
	})

	t.Run("Should work without a system message", func(t *testing.T) {
		out := NewTrimmer(8, WordCounter{}).Trim(conversation[1:])
		assert.Equal(t, []string{"h3", "a3"}, contents(out))
	})
}
