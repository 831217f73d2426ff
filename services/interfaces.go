package services

import (
	"context"

	"github.com/shopspring/decimal"
)

// LLMServiceInterface defines the interface for model invocations, satisfied
// by both the OpenAI-compatible and the Bedrock backend
type LLMServiceInterface interface {
	InvokeWithPrompt(ctx context.Context, systemPrompt, userPrompt string) (string, error)
	InvokeStructured(ctx context.Context, systemPrompt, userPrompt string, result interface{}) error
}

// MarketDataInterface defines the interface for spot price lookups
type MarketDataInterface interface {
	GetLastPrice(ctx context.Context, symbol string) (decimal.Decimal, error)
}

// Compile-time interface verification
var _ LLMServiceInterface = (*OpenAIService)(nil)
var _ LLMServiceInterface = (*BedrockService)(nil)
var _ MarketDataInterface = (*BinanceService)(nil)
