package llmclient

import (
	"context"
	"fmt"
	"strings"
)

// Tier is a quality/speed class for a generation call.
type Tier string

const (
	// TierQuality is used for narrative synthesis.
	TierQuality Tier = "quality"
	// TierFast is used for extraction, mapping and regeneration.
	TierFast Tier = "fast"
)

// TierConfig binds a tier to one provider model and its sampling budget.
type TierConfig struct {
	Provider    string  `yaml:"provider"`
	Model       string  `yaml:"model"`
	Temperature float32 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
}

// Credentials carries provider secrets.
type Credentials struct {
	GeminiAPIKey  string
	OpenAIAPIKey  string
	OpenAIBaseURL string
}

// DefaultTiers is the static two-tier catalog.
func DefaultTiers() map[Tier]TierConfig {
	return map[Tier]TierConfig{
		TierQuality: {Provider: "gemini", Model: "gemini-2.5-pro", Temperature: 0.8, MaxTokens: 4096},
		TierFast:    {Provider: "gemini", Model: "gemini-2.5-flash", Temperature: 0.4, MaxTokens: 8192},
	}
}

// New builds the client for one tier configuration.
func New(ctx context.Context, cfg TierConfig, creds Credentials) (LLMClient, error) {
	model := strings.TrimSpace(cfg.Model)
	switch normalizeProvider(cfg.Provider) {
	case "gemini":
		return NewGeminiClient(ctx, creds.GeminiAPIKey, model)
	case "openai":
		return NewOpenAIClient(creds.OpenAIAPIKey, creds.OpenAIBaseURL, model)
	case "fake":
		return NewFakeClient(), nil
	default:
		return nil, fmt.Errorf("llm provider %q not supported", cfg.Provider)
	}
}

func normalizeProvider(p string) string {
	p = strings.ToLower(strings.TrimSpace(p))
	if p == "" {
		return "gemini"
	}
	return p
}
