package llm

import (
	"context"

	llmclient "pagecopy/internal/llm/client"
	"pagecopy/internal/logger"
)

// PromptHook observes every prompt and response passing through a client.
type PromptHook interface {
	Before(ctx context.Context, operation string, req llmclient.Request)
	After(ctx context.Context, operation string, text string, err error)
}

// PromptLogger is a PromptHook that writes prompts and responses to the
// debug log, truncated to MaxBytes.
type PromptLogger struct {
	Log      *logger.Logger
	MaxBytes int
}

func NewPromptLogger(log *logger.Logger) *PromptLogger {
	return &PromptLogger{Log: logger.OrNop(log), MaxBytes: 2048}
}

func (p *PromptLogger) Before(_ context.Context, operation string, req llmclient.Request) {
	p.Log.Debug("llm prompt", "operation", operation, "tier", req.Tier, "prompt", p.clip(req.Prompt))
}

func (p *PromptLogger) After(_ context.Context, operation string, text string, err error) {
	if err != nil {
		p.Log.Debug("llm prompt failed", "operation", operation, "error", err)
		return
	}
	p.Log.Debug("llm completion", "operation", operation, "text", p.clip(text))
}

func (p *PromptLogger) clip(s string) string {
	if p.MaxBytes <= 0 || len(s) <= p.MaxBytes {
		return s
	}
	return s[:p.MaxBytes] + "...(truncated)"
}

type ctxKeyOperation struct{}

// WithHook calls hook.Before/After around GenerateText.
func WithHook(hook PromptHook) Middleware {
	return func(next llmclient.LLMClient) llmclient.LLMClient {
		if hook == nil {
			return next
		}
		return &hooked{next: next, hook: hook}
	}
}

type hooked struct {
	next llmclient.LLMClient
	hook PromptHook
}

func (h *hooked) Name() string                { return h.next.Name() }
func (h *hooked) Close() error                { return h.next.Close() }
func (h *hooked) CountTokens(text string) int { return h.next.CountTokens(text) }

func (h *hooked) GenerateText(ctx context.Context, req llmclient.Request) (string, error) {
	op := OperationFrom(ctx)
	h.hook.Before(ctx, op, req)
	out, err := h.next.GenerateText(ctx, req)
	h.hook.After(ctx, op, out, err)
	return out, err
}

// WithOperation stores the operation id used for retry bookkeeping and logs.
func WithOperation(ctx context.Context, operationID string) context.Context {
	return context.WithValue(ctx, ctxKeyOperation{}, operationID)
}

// OperationFrom returns the operation id stored in the context.
func OperationFrom(ctx context.Context) string {
	if v := ctx.Value(ctxKeyOperation{}); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return "unknown"
}
