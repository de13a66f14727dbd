package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/set-night/chatbot/internal/domain"
	"github.com/tmc/langchaingo/llms"
)

// ChatModel sends an ordered list of messages to a hosted chat model and
// returns its reply.
type ChatModel struct {
	model       llms.Model
	name        string
	temperature float64
	maxTokens   int
}

type Option func(*callOptions)

type callOptions struct {
	temperature *float64
	maxTokens   int
	stream      func(ctx context.Context, chunk []byte) error
}

// WithTemperature overrides the model's default temperature for one call.
func WithTemperature(t float64) Option {
	return func(o *callOptions) { o.temperature = &t }
}

func WithMaxTokens(n int) Option {
	return func(o *callOptions) { o.maxTokens = n }
}

// WithStream passes every generated chunk to fn as it arrives.
func WithStream(fn func(ctx context.Context, chunk []byte) error) Option {
	return func(o *callOptions) { o.stream = fn }
}

func NewChatModel(model llms.Model, name string, temperature float64, maxTokens int) *ChatModel {
	return &ChatModel{
		model:       model,
		name:        name,
		temperature: temperature,
		maxTokens:   maxTokens,
	}
}

func (m *ChatModel) Name() string {
	return m.name
}

func (m *ChatModel) Generate(ctx context.Context, messages []domain.Message, opts ...Option) (domain.Message, domain.Usage, error) {
	o := callOptions{temperature: &m.temperature, maxTokens: m.maxTokens}
	for _, opt := range opts {
		opt(&o)
	}

	resp, err := m.model.GenerateContent(ctx, ToMessageContent(messages), o.llmOptions(m.name)...)
	if err != nil {
		return domain.Message{}, domain.Usage{}, fmt.Errorf("generate content: %w", err)
	}
	if resp == nil || len(resp.Choices) == 0 || resp.Choices[0] == nil {
		return domain.Message{}, domain.Usage{}, domain.ErrEmptyResponse
	}

	choice := resp.Choices[0]
	content := strings.TrimSpace(choice.Content)
	if content == "" {
		return domain.Message{}, domain.Usage{}, domain.ErrEmptyResponse
	}

	return domain.AIMessage(content), usageFromInfo(choice.GenerationInfo), nil
}

func (o callOptions) llmOptions(model string) []llms.CallOption {
	var opts []llms.CallOption
	if model != "" {
		opts = append(opts, llms.WithModel(model))
	}
	if o.temperature != nil {
		opts = append(opts, llms.WithTemperature(*o.temperature))
	}
	if o.maxTokens > 0 {
		opts = append(opts, llms.WithMaxTokens(o.maxTokens))
	}
	if o.stream != nil {
		opts = append(opts, llms.WithStreamingFunc(o.stream))
	}
	return opts
}

// ToMessageContent converts history messages into the request format of
// langchaingo models.
func ToMessageContent(messages []domain.Message) []llms.MessageContent {
	out := make([]llms.MessageContent, 0, len(messages))
	for _, msg := range messages {
		out = append(out, llms.TextParts(ToChatMessageType(msg.Role), msg.Content))
	}
	return out
}

func ToChatMessageType(role domain.Role) llms.ChatMessageType {
	switch role {
	case domain.RoleSystem:
		return llms.ChatMessageTypeSystem
	case domain.RoleAI:
		return llms.ChatMessageTypeAI
	default:
		return llms.ChatMessageTypeHuman
	}
}

func FromChatMessage(msg llms.ChatMessage) domain.Message {
	switch msg.GetType() {
	case llms.ChatMessageTypeSystem:
		return domain.SystemMessage(msg.GetContent())
	case llms.ChatMessageTypeAI:
		return domain.AIMessage(msg.GetContent())
	default:
		return domain.HumanMessage(msg.GetContent())
	}
}

func ToChatMessage(msg domain.Message) llms.ChatMessage {
	switch msg.Role {
	case domain.RoleSystem:
		return llms.SystemChatMessage{Content: msg.Content}
	case domain.RoleAI:
		return llms.AIChatMessage{Content: msg.Content}
	default:
		return llms.HumanChatMessage{Content: msg.Content}
	}
}

func ToChatMessages(messages []domain.Message) []llms.ChatMessage {
	out := make([]llms.ChatMessage, 0, len(messages))
	for _, msg := range messages {
		out = append(out, ToChatMessage(msg))
	}
	return out
}

// usageFromInfo reads token counts from provider-specific generation info.
// OpenAI and Ollama report PromptTokens/CompletionTokens, Anthropic reports
// InputTokens/OutputTokens.
func usageFromInfo(info map[string]any) domain.Usage {
	var u domain.Usage
	u.PromptTokens = firstInt(info, "PromptTokens", "InputTokens")
	u.CompletionTokens = firstInt(info, "CompletionTokens", "OutputTokens")
	return u
}

func firstInt(info map[string]any, keys ...string) int {
	for _, k := range keys {
		switch v := info[k].(type) {
		case int:
			return v
		case int32:
			return int(v)
		case int64:
			return int(v)
		case float64:
			return int(v)
		}
	}
	return 0
}
