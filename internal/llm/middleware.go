package llm

import (
	"context"
	"time"

	llmclient "pagecopy/internal/llm/client"
	"pagecopy/internal/logger"
	"pagecopy/internal/metrics"
)

// Middleware decorates an LLMClient to inject cross-cutting concerns
// (logging, metrics, hooks).
type Middleware func(llmclient.LLMClient) llmclient.LLMClient

// Wrap applies middlewares in left-to-right order.
// Example: Wrap(inner, A, B) => A(B(inner))
func Wrap(inner llmclient.LLMClient, mws ...Middleware) llmclient.LLMClient {
	out := inner
	for i := len(mws) - 1; i >= 0; i-- {
		out = mws[i](out)
	}
	return out
}

// -------- Logging --------

// WithLogging logs request size and errors.
func WithLogging(log *logger.Logger) Middleware {
	log = logger.OrNop(log)
	return func(next llmclient.LLMClient) llmclient.LLMClient {
		return &logging{next: next, log: log}
	}
}

type logging struct {
	next llmclient.LLMClient
	log  *logger.Logger
}

func (l *logging) Name() string                { return l.next.Name() }
func (l *logging) Close() error                { return l.next.Close() }
func (l *logging) CountTokens(text string) int { return l.next.CountTokens(text) }

func (l *logging) GenerateText(ctx context.Context, req llmclient.Request) (string, error) {
	op := OperationFrom(ctx)
	l.log.Debug("llm request",
		"client", l.next.Name(),
		"operation", op,
		"tier", req.Tier,
		"prompt_bytes", len(req.Prompt),
		"prompt_tokens", l.next.CountTokens(req.Prompt),
	)
	out, err := l.next.GenerateText(ctx, req)
	if err != nil {
		l.log.Warn("llm error", "client", l.next.Name(), "operation", op, "kind", llmclient.KindOf(err).String(), "error", err)
		return out, err
	}
	l.log.Debug("llm response", "client", l.next.Name(), "operation", op, "response_bytes", len(out))
	return out, nil
}

// -------- Metrics --------

// WithMetrics records call outcome and latency per tier.
func WithMetrics() Middleware {
	return func(next llmclient.LLMClient) llmclient.LLMClient {
		return &measured{next: next}
	}
}

type measured struct {
	next llmclient.LLMClient
}

func (m *measured) Name() string                { return m.next.Name() }
func (m *measured) Close() error                { return m.next.Close() }
func (m *measured) CountTokens(text string) int { return m.next.CountTokens(text) }

func (m *measured) GenerateText(ctx context.Context, req llmclient.Request) (string, error) {
	start := time.Now()
	out, err := m.next.GenerateText(ctx, req)
	metrics.ProviderLatency.WithLabelValues(string(req.Tier)).Observe(time.Since(start).Seconds())
	outcome := "ok"
	if err != nil {
		outcome = llmclient.KindOf(err).String()
	}
	metrics.ProviderCalls.WithLabelValues(string(req.Tier), outcome).Inc()
	return out, err
}
