package retriever

import (
	"context"
	"fmt"
	"maps"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/philippgille/chromem-go"
	"github.com/set-night/chatbot/internal/config"
	"github.com/set-night/chatbot/internal/domain"
	"github.com/tmc/langchaingo/embeddings"
)

// Retriever returns the documents most relevant to a query, best first.
type Retriever interface {
	GetRelevantDocuments(ctx context.Context, query string) ([]domain.Document, error)
}

// Index is an in-memory chromem collection searched by cosine similarity.
type Index struct {
	coll     *chromem.Collection
	embedder embeddings.Embedder
	topK     int
	// minScore <= -1 disables filtering.
	minScore float32
}

var _ Retriever = (*Index)(nil)

type IndexOption func(*Index)

func WithTopK(k int) IndexOption {
	return func(i *Index) {
		if k > 0 {
			i.topK = k
		}
	}
}

func WithMinScore(score float64) IndexOption {
	return func(i *Index) { i.minScore = float32(score) }
}

func NewIndex(name string, embedder embeddings.Embedder, opts ...IndexOption) (*Index, error) {
	embed, err := cachedQueryEmbedding(embedder, config.EmbeddingCacheSize)
	if err != nil {
		return nil, err
	}

	coll, err := chromem.NewDB().GetOrCreateCollection(name, nil, embed)
	if err != nil {
		return nil, fmt.Errorf("create collection: %w", err)
	}

	idx := &Index{coll: coll, embedder: embedder, topK: 4, minScore: -1}
	for _, opt := range opts {
		opt(idx)
	}
	return idx, nil
}

// AddDocuments embeds docs in one batch and stores them. Blank documents
// are skipped. It returns the number of documents stored.
func (i *Index) AddDocuments(ctx context.Context, docs []domain.Document) (int, error) {
	kept := make([]domain.Document, 0, len(docs))
	texts := make([]string, 0, len(docs))
	for _, doc := range docs {
		if strings.TrimSpace(doc.PageContent) == "" {
			continue
		}
		kept = append(kept, doc)
		texts = append(texts, doc.PageContent)
	}
	if len(kept) == 0 {
		return 0, nil
	}

	vectors, err := i.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("embed documents: %w", err)
	}
	if len(vectors) != len(kept) {
		return 0, fmt.Errorf("embed documents: got %d vectors for %d documents", len(vectors), len(kept))
	}

	records := make([]chromem.Document, len(kept))
	for n, doc := range kept {
		id := doc.ID
		if id == "" {
			id = uuid.NewString()
		}
		records[n] = chromem.Document{
			ID:        id,
			Metadata:  maps.Clone(doc.Metadata),
			Embedding: vectors[n],
			Content:   doc.PageContent,
		}
	}

	if err := i.coll.AddDocuments(ctx, records, config.IndexConcurrency); err != nil {
		return 0, fmt.Errorf("add documents: %w", err)
	}
	return len(records), nil
}

func (i *Index) Count() int {
	return i.coll.Count()
}

func (i *Index) GetRelevantDocuments(ctx context.Context, query string) ([]domain.Document, error) {
	query = strings.TrimSpace(query)
	total := i.coll.Count()
	if query == "" || total == 0 {
		return nil, nil
	}

	// chromem refuses nResults larger than the collection.
	k := min(i.topK, total)
	results, err := i.coll.Query(ctx, query, k, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("query collection: %w", err)
	}

	docs := make([]domain.Document, 0, len(results))
	for _, res := range results {
		if i.minScore > -1 && res.Similarity < i.minScore {
			continue
		}
		docs = append(docs, domain.Document{
			ID:          res.ID,
			PageContent: res.Content,
			Metadata:    maps.Clone(res.Metadata),
			Score:       res.Similarity,
		})
	}
	sort.SliceStable(docs, func(a, b int) bool { return docs[a].Score > docs[b].Score })
	return docs, nil
}
