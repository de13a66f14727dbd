// Package llmtest provides a scripted langchaingo model for tests.
package llmtest

import (
	"context"
	"errors"
	"sync"

	"github.com/tmc/langchaingo/llms"
)

// Model replays Responses in order and records every request.
type Model struct {
	mu        sync.Mutex
	Responses []string
	Err       error
	// Info is attached to every choice as GenerationInfo.
	Info  map[string]any
	Calls [][]llms.MessageContent
	// Options holds the resolved call options of every request.
	Options []llms.CallOptions
}

var _ llms.Model = (*Model)(nil)

func New(responses ...string) *Model {
	return &Model{Responses: responses}
}

func (m *Model) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	opts := llms.CallOptions{}
	for _, opt := range options {
		opt(&opts)
	}

	m.Calls = append(m.Calls, messages)
	m.Options = append(m.Options, opts)
	if m.Err != nil {
		return nil, m.Err
	}
	if len(m.Responses) == 0 {
		return nil, errors.New("llmtest: no scripted response left")
	}
	text := m.Responses[0]
	m.Responses = m.Responses[1:]
	if opts.StreamingFunc != nil {
		for _, r := range text {
			if err := opts.StreamingFunc(ctx, []byte(string(r))); err != nil {
				return nil, err
			}
		}
	}

	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{Content: text, GenerationInfo: m.Info}},
	}, nil
}

func (m *Model) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, m, prompt, options...)
}

// CallCount is safe to use while other goroutines use the model.
func (m *Model) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}

// Text flattens the text parts of one recorded message.
func Text(msg llms.MessageContent) string {
	var out string
	for _, part := range msg.Parts {
		if t, ok := part.(llms.TextContent); ok {
			out += t.Text
		}
	}
	return out
}
