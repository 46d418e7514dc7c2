package llmclient

import (
	"context"
)

// LLMClient is a single text-generation backend bound to one model.
// Implementations only perform the call; rate limiting, timeouts and
// retries are layered on top by the llm package.
type LLMClient interface {
	Name() string
	Close() error
	CountTokens(text string) int
	GenerateText(ctx context.Context, req Request) (string, error)
}

// Request is the provider boundary payload.
type Request struct {
	Prompt      string
	Tier        Tier
	Temperature float32
	MaxTokens   int
}
