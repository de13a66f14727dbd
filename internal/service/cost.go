package service

import (
	"fmt"

	"github.com/set-night/chatbot/internal/domain"
	"github.com/shopspring/decimal"
)

// CalculateCost returns the USD cost of one request. Prices are per 1M tokens.
func CalculateCost(promptTokens, completionTokens int, promptPrice, completionPrice float64) decimal.Decimal {
	promptCost := decimal.NewFromInt(int64(promptTokens)).Mul(decimal.NewFromFloat(promptPrice))
	completionCost := decimal.NewFromInt(int64(completionTokens)).Mul(decimal.NewFromFloat(completionPrice))
	return promptCost.Add(completionCost).Div(decimal.NewFromInt(1_000_000))
}

// FormatCost renders the cost footer shown under a reply.
func FormatCost(cost decimal.Decimal, usage domain.Usage) string {
	return fmt.Sprintf("💰 Cost: $%s | 📊 Tokens: %d→%d", cost.StringFixed(6), usage.PromptTokens, usage.CompletionTokens)
}
