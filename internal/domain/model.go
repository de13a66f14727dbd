package domain

import "github.com/shopspring/decimal"

type Usage struct {
	PromptTokens     int
	CompletionTokens int
}

func (u Usage) Total() int {
	return u.PromptTokens + u.CompletionTokens
}

// Reply is the outcome of a single conversation turn.
type Reply struct {
	Message Message
	Sources []Document
	// Query is the search query sent to the retriever; empty when retrieval did not run.
	Query string
	Usage Usage
	Cost  decimal.Decimal
}

// ModelPrice is a catalog entry with USD prices per 1M tokens.
type ModelPrice struct {
	ID              string
	Name            string
	PromptPrice     float64
	CompletionPrice float64
	ContextLength   int
}

func (m ModelPrice) IsFree() bool {
	return m.PromptPrice == 0 && m.CompletionPrice == 0
}
