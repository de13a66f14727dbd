package history

import (
	"github.com/set-night/chatbot/internal/domain"
)

// perMessageOverhead approximates the role/separator tokens chat APIs add
// around every message.
const perMessageOverhead = 3

// Trimmer selects the most recent messages that fit a token budget. The
// stored history is never modified; only the window sent to the model
// shrinks.
type Trimmer struct {
	MaxTokens int
	Counter   TokenCounter
}

func NewTrimmer(maxTokens int, counter TokenCounter) *Trimmer {
	if counter == nil {
		counter = WordCounter{}
	}
	return &Trimmer{MaxTokens: maxTokens, Counter: counter}
}

// Trim keeps a leading system message, then the longest suffix of the
// remaining messages that fits, dropping messages from the front until the
// window starts with a human turn.
func (t *Trimmer) Trim(msgs []domain.Message) []domain.Message {
	if t == nil || t.MaxTokens <= 0 || len(msgs) == 0 {
		return append([]domain.Message(nil), msgs...)
	}

	budget := t.MaxTokens
	var system []domain.Message
	rest := msgs
	if msgs[0].Role == domain.RoleSystem {
		system = msgs[:1]
		budget -= t.cost(msgs[0])
		rest = msgs[1:]
	}

	start := len(rest)
	for i := len(rest) - 1; i >= 0; i-- {
		c := t.cost(rest[i])
		if c > budget {
			break
		}
		budget -= c
		start = i
	}
	for start < len(rest) && rest[start].Role != domain.RoleHuman {
		start++
	}

	out := make([]domain.Message, 0, len(system)+len(rest)-start)
	out = append(out, system...)
	out = append(out, rest[start:]...)
	return out
}

func (t *Trimmer) cost(m domain.Message) int {
	return t.Counter.Count(m.Content) + perMessageOverhead
}
