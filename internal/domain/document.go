package domain

// Metadata keys attached to every indexed document.
const (
	MetaSource = "source"
	MetaTitle  = "title"
	MetaChunk  = "chunk"
)

// Document is a text fragment returned by a retriever.
type Document struct {
	ID          string
	PageContent string
	Metadata    map[string]string
	Score       float32
}

func (d Document) Source() string {
	return d.Metadata[MetaSource]
}
