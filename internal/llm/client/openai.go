package llmclient

import (
	"context"
	"errors"
	"strings"
	"time"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// OpenAIClient calls any OpenAI-compatible chat completions endpoint.
type OpenAIClient struct {
	cli   openai.Client
	model string
	now   func() time.Time
}

func NewOpenAIClient(apiKey, baseURL, model string) (*OpenAIClient, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, NewPermanentError(&Error{Kind: KindAuth, Provider: "openai", Err: errors.New("api key missing")})
	}
	if strings.TrimSpace(model) == "" {
		return nil, errors.New("openai: model is required")
	}
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		// Retries belong to the provider layer.
		option.WithMaxRetries(0),
	}
	if strings.TrimSpace(baseURL) != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &OpenAIClient{cli: openai.NewClient(opts...), model: model, now: time.Now}, nil
}

func (o *OpenAIClient) Name() string                { return "OpenAI:" + o.model }
func (o *OpenAIClient) Close() error                { return nil }
func (o *OpenAIClient) CountTokens(text string) int { return CountTokens(text) }

func (o *OpenAIClient) GenerateText(ctx context.Context, req Request) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(o.model),
		Messages: []openai.ChatCompletionMessageParamUnion{openai.UserMessage(req.Prompt)},
	}
	if req.Temperature > 0 {
		params.Temperature = openai.Float(float64(req.Temperature))
	}
	if req.MaxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(req.MaxTokens))
	}
	resp, err := o.cli.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", o.classify(err)
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return "", &Error{Kind: KindOther, Provider: "openai", Err: ErrEmptyResponse}
	}
	return resp.Choices[0].Message.Content, nil
}

func (o *OpenAIClient) classify(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &Error{Kind: KindTimeout, Provider: "openai", Err: err}
	}
	var apiErr *openai.Error
	if !errors.As(err, &apiErr) {
		return &Error{Kind: kindFromMessage(err.Error()), Provider: "openai", Err: err}
	}
	e := &Error{Kind: KindFromStatus(apiErr.StatusCode), Provider: "openai", StatusCode: apiErr.StatusCode, Err: err}
	if e.Kind == KindRateLimit && apiErr.Response != nil {
		if h, ok := ParseRateLimitHeaders(apiErr.Response.Header, o.now()); ok {
			e.RetryAfter = h.SuggestedWait()
		}
	}
	switch e.Kind {
	case KindAuth, KindNotFound, KindValidation:
		return NewPermanentError(e)
	}
	return e
}
