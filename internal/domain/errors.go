package domain

import "errors"

var (
	ErrEmptyInput            = errors.New("empty input")
	ErrEmptyResponse         = errors.New("model returned an empty response")
	ErrUnknownProvider       = errors.New("unknown model provider")
	ErrUnknownHistoryBackend = errors.New("unknown history backend")
	ErrNoEmbedder            = errors.New("provider has no embedding endpoint")
	ErrNoRetriever           = errors.New("no document retriever configured")
	ErrEmptyDocument         = errors.New("document has no text")
	ErrUnsupportedSource     = errors.New("unsupported document source")
	ErrModelNotFound         = errors.New("model not found in price catalog")
)
