package retriever

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/philippgille/chromem-go"
	"github.com/tmc/langchaingo/embeddings"
)

// cachedQueryEmbedding adapts a langchaingo embedder to chromem and keeps
// recent query vectors so repeated questions skip the embedding call.
func cachedQueryEmbedding(embedder embeddings.Embedder, size int) (chromem.EmbeddingFunc, error) {
	cache, err := lru.New[string, []float32](size)
	if err != nil {
		return nil, fmt.Errorf("create embedding cache: %w", err)
	}

	return func(ctx context.Context, text string) ([]float32, error) {
		if v, ok := cache.Get(text); ok {
			return v, nil
		}
		v, err := embedder.EmbedQuery(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("embed query: %w", err)
		}
		cache.Add(text, v)
		return v, nil
	}, nil
}
