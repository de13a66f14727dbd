package llm

import (
	"fmt"
	"strings"

	"github.com/set-night/chatbot/internal/config"
	"github.com/set-night/chatbot/internal/domain"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
)

const (
	ProviderOpenAI    = "openai"
	ProviderOllama    = "ollama"
	ProviderAnthropic = "anthropic"
)

// NewModel builds the chat model configured by LLM_PROVIDER. Any
// OpenAI-compatible endpoint (OpenRouter, vLLM, ...) is reachable through
// the openai provider with LLM_BASE_URL.
func NewModel(cfg *config.Config) (*ChatModel, error) {
	provider := strings.ToLower(strings.TrimSpace(cfg.LLMProvider))

	var (
		model llms.Model
		err   error
	)
	switch provider {
	case ProviderOpenAI:
		opts := []openai.Option{openai.WithModel(cfg.LLMModel)}
		if cfg.LLMAPIKey != "" {
			opts = append(opts, openai.WithToken(cfg.LLMAPIKey))
		}
		if cfg.LLMBaseURL != "" {
			opts = append(opts, openai.WithBaseURL(cfg.LLMBaseURL))
		}
		model, err = openai.New(opts...)
	case ProviderOllama:
		opts := []ollama.Option{ollama.WithModel(cfg.LLMModel)}
		if cfg.LLMBaseURL != "" {
			opts = append(opts, ollama.WithServerURL(cfg.LLMBaseURL))
		}
		model, err = ollama.New(opts...)
	case ProviderAnthropic:
		opts := []anthropic.Option{anthropic.WithModel(cfg.LLMModel)}
		if cfg.LLMAPIKey != "" {
			opts = append(opts, anthropic.WithToken(cfg.LLMAPIKey))
		}
		if cfg.LLMBaseURL != "" {
			opts = append(opts, anthropic.WithBaseURL(cfg.LLMBaseURL))
		}
		model, err = anthropic.New(opts...)
	default:
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownProvider, cfg.LLMProvider)
	}
	if err != nil {
		return nil, fmt.Errorf("create %s model: %w", provider, err)
	}

	return NewChatModel(model, cfg.LLMModel, cfg.LLMTemperature, cfg.LLMMaxTokens), nil
}

// NewEmbedder builds the embedding client used to index and query documents.
func NewEmbedder(cfg *config.Config) (embeddings.Embedder, error) {
	provider := strings.ToLower(strings.TrimSpace(cfg.EmbeddingProvider))

	var (
		client embeddings.EmbedderClient
		err    error
	)
	switch provider {
	case ProviderOpenAI:
		opts := []openai.Option{openai.WithEmbeddingModel(cfg.EmbeddingModel)}
		if cfg.EmbeddingAPIKey != "" {
			opts = append(opts, openai.WithToken(cfg.EmbeddingAPIKey))
		}
		if cfg.EmbeddingBaseURL != "" {
			opts = append(opts, openai.WithBaseURL(cfg.EmbeddingBaseURL))
		}
		client, err = openai.New(opts...)
	case ProviderOllama:
		opts := []ollama.Option{ollama.WithModel(cfg.EmbeddingModel)}
		if cfg.EmbeddingBaseURL != "" {
			opts = append(opts, ollama.WithServerURL(cfg.EmbeddingBaseURL))
		}
		client, err = ollama.New(opts...)
	case ProviderAnthropic:
		return nil, fmt.Errorf("%w: %s", domain.ErrNoEmbedder, provider)
	default:
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownProvider, cfg.EmbeddingProvider)
	}
	if err != nil {
		return nil, fmt.Errorf("create %s embedding client: %w", provider, err)
	}

	embedder, err := embeddings.NewEmbedder(client)
	if err != nil {
		return nil, fmt.Errorf("create embedder: %w", err)
	}
	return embedder, nil
}
