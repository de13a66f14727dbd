package retriever

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/set-night/chatbot/internal/config"
	"github.com/set-night/chatbot/internal/domain"
	"github.com/tmc/langchaingo/embeddings"
)

// KnowledgeBase loads sources, splits them into chunks and serves them
// back through its index.
type KnowledgeBase struct {
	loader   Loader
	splitter *Splitter
	index    *Index
}

var _ Retriever = (*KnowledgeBase)(nil)

func NewKnowledgeBase(loader Loader, splitter *Splitter, index *Index) *KnowledgeBase {
	return &KnowledgeBase{loader: loader, splitter: splitter, index: index}
}

// New builds a knowledge base from RETRIEVER_* and CHUNK_* settings.
func New(cfg *config.Config, embedder embeddings.Embedder) (*KnowledgeBase, error) {
	index, err := NewIndex("documents", embedder,
		WithTopK(cfg.RetrieverTopK),
		WithMinScore(cfg.RetrieverMinScore),
	)
	if err != nil {
		return nil, err
	}
	return NewKnowledgeBase(NewSourceLoader(), NewSplitter(cfg.ChunkSize, cfg.ChunkOverlap), index), nil
}

// Ingest loads every source and indexes its chunks. It stops at the first
// failing source and returns the number of chunks indexed so far.
func (kb *KnowledgeBase) Ingest(ctx context.Context, sources ...string) (int, error) {
	total := 0
	for _, source := range sources {
		docs, err := kb.loader.Load(ctx, source)
		if err != nil {
			return total, fmt.Errorf("load %s: %w", source, err)
		}
		n, err := kb.add(ctx, docs)
		if err != nil {
			return total, fmt.Errorf("index %s: %w", source, err)
		}
		slog.Info("source indexed", "source", source, "chunks", n)
		total += n
	}
	return total, nil
}

// AddText indexes inline text under name.
func (kb *KnowledgeBase) AddText(ctx context.Context, name, text string) (int, error) {
	docs, err := TextLoader(name, text)
	if err != nil {
		return 0, err
	}
	return kb.add(ctx, docs)
}

func (kb *KnowledgeBase) add(ctx context.Context, docs []domain.Document) (int, error) {
	chunks, err := kb.splitter.Split(docs)
	if err != nil {
		return 0, err
	}
	return kb.index.AddDocuments(ctx, chunks)
}

func (kb *KnowledgeBase) Count() int {
	return kb.index.Count()
}

func (kb *KnowledgeBase) GetRelevantDocuments(ctx context.Context, query string) ([]domain.Document, error) {
	return kb.index.GetRelevantDocuments(ctx, query)
}
