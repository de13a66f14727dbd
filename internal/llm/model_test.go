package llm

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/set-night/chatbot/internal/config"
	"github.com/set-night/chatbot/internal/domain"
	"github.com/set-night/chatbot/internal/llm/llmtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
)

func TestChatModel_Generate(t *testing.T) {
	t.Run("Should map roles in order and return the reply", func(t *testing.T) {
		fake := llmtest.New("  Hello Bob!  ")
		model := NewChatModel(fake, "test-model", 0.2, 0)

		history := []domain.Message{
			domain.SystemMessage("be nice"),
			domain.HumanMessage("hi, I'm Bob"),
			domain.AIMessage("hello"),
			domain.HumanMessage("what's my name?"),
		}
		reply, _, err := model.Generate(context.Background(), history)
		require.NoError(t, err)

		assert.Equal(t, domain.RoleAI, reply.Role)
		assert.Equal(t, "Hello Bob!", reply.Content)

		require.Len(t, fake.Calls, 1)
		sent := fake.Calls[0]
		require.Len(t, sent, 4)
		assert.Equal(t, llms.ChatMessageTypeSystem, sent[0].Role)
		assert.Equal(t, llms.ChatMessageTypeHuman, sent[1].Role)
		assert.Equal(t, llms.ChatMessageTypeAI, sent[2].Role)
		assert.Equal(t, "what's my name?", llmtest.Text(sent[3]))
	})

	t.Run("Should read OpenAI style usage", func(t *testing.T) {
		fake := llmtest.New("ok")
		fake.Info = map[string]any{"PromptTokens": 42, "CompletionTokens": 7}
		model := NewChatModel(fake, "m", 0, 0)

		_, usage, err := model.Generate(context.Background(), []domain.Message{domain.HumanMessage("hi")})
		require.NoError(t, err)
		assert.Equal(t, 42, usage.PromptTokens)
		assert.Equal(t, 7, usage.CompletionTokens)
		assert.Equal(t, 49, usage.Total())
	})

	t.Run("Should read Anthropic style usage", func(t *testing.T) {
		fake := llmtest.New("ok")
		fake.Info = map[string]any{"InputTokens": 10, "OutputTokens": float64(3)}
		model := NewChatModel(fake, "m", 0, 0)

		_, usage, err := model.Generate(context.Background(), []domain.Message{domain.HumanMessage("hi")})
		require.NoError(t, err)
		assert.Equal(t, domain.Usage{PromptTokens: 10, CompletionTokens: 3}, usage)
	})

	t.Run("Should fail on blank content", func(t *testing.T) {
		model := NewChatModel(llmtest.New("   "), "m", 0, 0)
		_, _, err := model.Generate(context.Background(), []domain.Message{domain.HumanMessage("hi")})
		assert.ErrorIs(t, err, domain.ErrEmptyResponse)
	})

	t.Run("Should wrap provider errors", func(t *testing.T) {
		fake := llmtest.New()
		fake.Err = errors.New("boom")
		model := NewChatModel(fake, "m", 0, 0)

		_, _, err := model.Generate(context.Background(), []domain.Message{domain.HumanMessage("hi")})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "generate content")
		assert.ErrorIs(t, err, fake.Err)
	})

	t.Run("Should apply model defaults and per call overrides", func(t *testing.T) {
		fake := llmtest.New("a", "b")
		model := NewChatModel(fake, "m", 0.7, 256)
		msgs := []domain.Message{domain.HumanMessage("hi")}

		_, _, err := model.Generate(context.Background(), msgs)
		require.NoError(t, err)
		_, _, err = model.Generate(context.Background(), msgs, WithTemperature(0), WithMaxTokens(16))
		require.NoError(t, err)

		require.Len(t, fake.Options, 2)
		assert.Equal(t, "m", fake.Options[0].Model)
		assert.Equal(t, 0.7, fake.Options[0].Temperature)
		assert.Equal(t, 256, fake.Options[0].MaxTokens)
		assert.Equal(t, 0.0, fake.Options[1].Temperature)
		assert.Equal(t, 16, fake.Options[1].MaxTokens)
	})

	t.Run("Should stream chunks", func(t *testing.T) {
		model := NewChatModel(llmtest.New("abc"), "m", 0, 0)
		var sb strings.Builder
		_, _, err := model.Generate(context.Background(), []domain.Message{domain.HumanMessage("hi")},
			WithStream(func(_ context.Context, chunk []byte) error {
				sb.Write(chunk)
				return nil
			}))
		require.NoError(t, err)
		assert.Equal(t, "abc", sb.String())
	})
}

func TestChatMessageConversion(t *testing.T) {
	t.Run("Should round trip roles", func(t *testing.T) {
		for _, msg := range []domain.Message{
			domain.SystemMessage("s"),
			domain.HumanMessage("h"),
			domain.AIMessage("a"),
		} {
			back := FromChatMessage(ToChatMessage(msg))
			assert.Equal(t, msg.Role, back.Role)
			assert.Equal(t, msg.Content, back.Content)
		}
	})
}

func TestNewModel(t *testing.T) {
	t.Run("Should reject unknown providers", func(t *testing.T) {
		_, err := NewModel(&config.Config{LLMProvider: "carrier-pigeon"})
		assert.ErrorIs(t, err, domain.ErrUnknownProvider)
	})

	t.Run("Should build an ollama model without network access", func(t *testing.T) {
		model, err := NewModel(&config.Config{LLMProvider: "ollama", LLMModel: "llama3", LLMBaseURL: "http://127.0.0.1:11434"})
		require.NoError(t, err)
		assert.Equal(t, "llama3", model.Name())
	})

	t.Run("Should refuse embeddings for anthropic", func(t *testing.T) {
		_, err := NewEmbedder(&config.Config{EmbeddingProvider: "anthropic"})
		assert.ErrorIs(t, err, domain.ErrNoEmbedder)
	})
}
