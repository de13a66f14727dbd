package retriever

import (
	"fmt"
	"maps"
	"strconv"

	"github.com/set-night/chatbot/internal/domain"
	"github.com/tmc/langchaingo/textsplitter"
)

// Splitter cuts documents into overlapping chunks small enough to embed.
type Splitter struct {
	splitter textsplitter.TextSplitter
}

func NewSplitter(chunkSize, chunkOverlap int) *Splitter {
	return &Splitter{splitter: textsplitter.NewRecursiveCharacter(
		textsplitter.WithChunkSize(chunkSize),
		textsplitter.WithChunkOverlap(chunkOverlap),
	)}
}

// Split returns the chunks of every document in order. Each chunk inherits
// its parent's metadata plus its position under "chunk".
func (s *Splitter) Split(docs []domain.Document) ([]domain.Document, error) {
	var out []domain.Document
	for _, doc := range docs {
		parts, err := s.splitter.SplitText(doc.PageContent)
		if err != nil {
			return nil, fmt.Errorf("split %s: %w", doc.Source(), err)
		}
		for i, part := range parts {
			meta := maps.Clone(doc.Metadata)
			if meta == nil {
				meta = make(map[string]string, 1)
			}
			meta[domain.MetaChunk] = strconv.Itoa(i)
			out = append(out, domain.Document{PageContent: part, Metadata: meta})
		}
	}
	return out, nil
}
