package llmclient

import (
	"context"
	"errors"
	"strings"
	"time"

	genai "google.golang.org/genai"
)

// GeminiClient is a thin wrapper around the official genai client.
// It only focuses on the API call itself and on classifying failures.
type GeminiClient struct {
	cli   *genai.Client
	model string
}

// NewGeminiClient creates a client. An empty apiKey lets genai read
// GEMINI_API_KEY / GOOGLE_API_KEY from the environment.
func NewGeminiClient(ctx context.Context, apiKey, model string) (*GeminiClient, error) {
	if strings.TrimSpace(model) == "" {
		return nil, errors.New("gemini: model is required")
	}
	cli, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  strings.TrimSpace(apiKey),
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, &Error{Kind: KindAuth, Provider: "gemini", Err: err}
	}
	return &GeminiClient{cli: cli, model: model}, nil
}

func (g *GeminiClient) Name() string                { return "Gemini:" + g.model }
func (g *GeminiClient) Close() error                { return nil }
func (g *GeminiClient) CountTokens(text string) int { return CountTokens(text) }

// GenerateText sends the prompt as a single user turn and returns the
// concatenated text parts of the first candidate.
func (g *GeminiClient) GenerateText(ctx context.Context, req Request) (string, error) {
	cfg := &genai.GenerateContentConfig{}
	if req.Temperature > 0 {
		cfg.Temperature = genai.Ptr(req.Temperature)
	}
	if req.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(req.MaxTokens)
	}
	resp, err := g.cli.Models.GenerateContent(ctx, g.model,
		[]*genai.Content{{Role: "user", Parts: []*genai.Part{{Text: req.Prompt}}}},
		cfg,
	)
	if err != nil {
		return "", g.classify(err)
	}
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", &Error{Kind: KindOther, Provider: "gemini", Err: ErrEmptyResponse}
	}
	var sb strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		if p == nil {
			continue
		}
		sb.WriteString(p.Text)
	}
	if strings.TrimSpace(sb.String()) == "" {
		return "", &Error{Kind: KindOther, Provider: "gemini", Err: ErrEmptyResponse}
	}
	return sb.String(), nil
}

func (g *GeminiClient) classify(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &Error{Kind: KindTimeout, Provider: "gemini", Err: err}
	}
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return geminiAPIError(apiErr, err)
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return geminiAPIError(*apiErrPtr, err)
	}
	return &Error{Kind: kindFromMessage(err.Error()), Provider: "gemini", Err: err}
}

func geminiAPIError(apiErr genai.APIError, cause error) error {
	kind := KindFromStatus(apiErr.Code)
	if kind == KindOther {
		kind = kindFromMessage(apiErr.Status + " " + apiErr.Message)
	}
	e := &Error{Kind: kind, Provider: "gemini", StatusCode: apiErr.Code, Err: cause}
	if kind == KindRateLimit {
		e.RetryAfter = geminiRetryDelay(apiErr.Details)
	}
	if kind == KindAuth || kind == KindNotFound || kind == KindValidation {
		return NewPermanentError(e)
	}
	return e
}

// geminiRetryDelay reads google.rpc.RetryInfo.retryDelay (e.g. "7s") from error details.
func geminiRetryDelay(details []map[string]any) time.Duration {
	for _, d := range details {
		t, _ := d["@type"].(string)
		if !strings.Contains(t, "RetryInfo") {
			continue
		}
		raw, _ := d["retryDelay"].(string)
		if dur, err := time.ParseDuration(strings.TrimSpace(raw)); err == nil && dur > 0 {
			return dur
		}
	}
	return 0
}
