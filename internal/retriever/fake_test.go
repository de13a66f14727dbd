package retriever

import (
	"context"
	"hash/fnv"
	"strings"
	"sync"
)

// wordEmbedder hashes words into a small vector so texts sharing words are
// close. The last component is a constant so no vector is all zeros.
type wordEmbedder struct {
	mu           sync.Mutex
	queryCalls   int
	documentCall int
}

const fakeDims = 64

func embedWords(text string) []float32 {
	v := make([]float32, fakeDims+1)
	for _, w := range strings.Fields(strings.ToLower(text)) {
		w = strings.Trim(w, ".,!?;:")
		if w == "" {
			continue
		}
		h := fnv.New32a()
		h.Write([]byte(w))
		v[h.Sum32()%fakeDims]++
	}
	v[fakeDims] = 0.1
	return v
}

func (e *wordEmbedder) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	e.mu.Lock()
	e.documentCall++
	e.mu.Unlock()

	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = embedWords(t)
	}
	return out, nil
}

func (e *wordEmbedder) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	e.mu.Lock()
	e.queryCalls++
	e.mu.Unlock()
	return embedWords(text), nil
}

func (e *wordEmbedder) QueryCalls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.queryCalls
}
