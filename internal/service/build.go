package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/set-night/chatbot/internal/config"
	"github.com/set-night/chatbot/internal/history"
	"github.com/set-night/chatbot/internal/llm"
	"github.com/set-night/chatbot/internal/retriever"
)

// Build assembles a Chatbot from configuration: history store, chat model,
// optional retriever with RETRIEVER_SOURCES indexed, and prices. The
// returned function releases the history store.
func Build(ctx context.Context, cfg *config.Config) (*Chatbot, func(), error) {
	store, closeStore, err := history.Open(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	model, err := llm.NewModel(cfg)
	if err != nil {
		closeStore()
		return nil, nil, err
	}

	var kb *retriever.KnowledgeBase
	if cfg.RetrievalEnabled() {
		embedder, err := llm.NewEmbedder(cfg)
		if err != nil {
			closeStore()
			return nil, nil, err
		}
		kb, err = retriever.New(cfg, embedder)
		if err != nil {
			closeStore()
			return nil, nil, err
		}
		if len(cfg.RetrieverSources) > 0 {
			n, err := kb.Ingest(ctx, cfg.RetrieverSources...)
			if err != nil {
				closeStore()
				return nil, nil, fmt.Errorf("ingest sources: %w", err)
			}
			slog.Info("retriever ready", "sources", len(cfg.RetrieverSources), "chunks", n)
		}
	}

	var ret retriever.Retriever
	if kb != nil {
		ret = kb
	}
	bot := NewChatbotFromConfig(cfg, model, store, ret)

	// Warm the price catalog so a broken PRICES_URL shows up at startup
	if cfg.PricesURL != "" {
		prompt, completion := bot.Prices(ctx)
		slog.Info("model prices", "model", model.Name(), "prompt", prompt, "completion", completion)
	}

	return bot, closeStore, nil
}
