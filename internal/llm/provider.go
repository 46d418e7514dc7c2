package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	llmclient "pagecopy/internal/llm/client"
	"pagecopy/internal/logger"
)

const DefaultTimeout = 90 * time.Second

// ErrUnknownTier is returned when no client is bound to the requested tier.
var ErrUnknownTier = errors.New("llm: tier not configured")

// ProviderConfig binds the two tiers and the per-call wall-clock timeout.
type ProviderConfig struct {
	Tiers   map[llmclient.Tier]llmclient.TierConfig
	Timeout time.Duration
	// Hook, when set, observes every prompt and response.
	Hook PromptHook
}

// Provider issues one generation call at a time per caller: rate-limit
// gating, a hard timeout race, and a single retry for rate-limit failures.
// Non-retryable failures propagate immediately.
type Provider struct {
	clients map[llmclient.Tier]llmclient.LLMClient
	tiers   map[llmclient.Tier]llmclient.TierConfig
	limiter *RateLimiter
	timeout time.Duration
	log     *logger.Logger
}

// NewProvider wraps each tier client with logging and metrics middleware.
func NewProvider(clients map[llmclient.Tier]llmclient.LLMClient, cfg ProviderConfig, limiter *RateLimiter, log *logger.Logger) (*Provider, error) {
	if len(clients) == 0 {
		return nil, errors.New("llm: at least one tier client is required")
	}
	log = logger.OrNop(log)
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	tiers := llmclient.DefaultTiers()
	for t, c := range cfg.Tiers {
		tiers[t] = c
	}
	wrapped := make(map[llmclient.Tier]llmclient.LLMClient, len(clients))
	for t, c := range clients {
		if c == nil {
			return nil, fmt.Errorf("llm: nil client for tier %s", t)
		}
		wrapped[t] = Wrap(c, WithLogging(log), WithMetrics(), WithHook(cfg.Hook))
	}
	return &Provider{
		clients: wrapped,
		tiers:   tiers,
		limiter: limiter,
		timeout: timeout,
		log:     log,
	}, nil
}

// NewOperationID returns a fresh id for retry bookkeeping.
func NewOperationID(kind string) string {
	return kind + "-" + uuid.NewString()
}

// GenerateText runs one call against tier. operationID keys the retry
// counter; an empty id gets a generated one.
func (p *Provider) GenerateText(ctx context.Context, prompt string, tier llmclient.Tier, operationID string) (string, error) {
	client, ok := p.clients[tier]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownTier, tier)
	}
	if operationID == "" {
		operationID = NewOperationID(string(tier))
	}
	ctx = WithOperation(ctx, operationID)
	cfg := p.tiers[tier]
	req := llmclient.Request{
		Prompt:      prompt,
		Tier:        tier,
		Temperature: cfg.Temperature,
		MaxTokens:   cfg.MaxTokens,
	}

	out, err := p.attempt(ctx, client, req)
	if err == nil {
		p.limiter.ResetRetryAttempts(operationID)
		return out, nil
	}
	kind := llmclient.KindOf(err)
	if !kind.Retryable() || llmclient.IsPermanent(err) {
		return "", err
	}

	delay := p.limiter.HandleRateLimitError(ctx, err, operationID)
	p.log.Info("rate limited, retrying once", "operation", operationID, "tier", tier, "delay", delay)
	if ctx.Err() != nil {
		return "", ctx.Err()
	}
	out, err = p.attempt(ctx, client, req)
	if err != nil {
		return "", err
	}
	p.limiter.ResetRetryAttempts(operationID)
	return out, nil
}

type callResult struct {
	text string
	err  error
}

// attempt gates on the limiter then races the call against the timeout.
// A call that loses the race is abandoned: its result is dropped into a
// buffered channel nobody reads.
func (p *Provider) attempt(ctx context.Context, client llmclient.LLMClient, req llmclient.Request) (string, error) {
	p.limiter.WaitIfNeeded(ctx)
	if err := ctx.Err(); err != nil {
		return "", err
	}

	done := make(chan callResult, 1)
	go func() {
		text, err := client.GenerateText(ctx, req)
		done <- callResult{text: text, err: err}
	}()

	timer := time.NewTimer(p.timeout)
	defer timer.Stop()
	select {
	case r := <-done:
		return r.text, r.err
	case <-timer.C:
		return "", &llmclient.Error{
			Kind:     llmclient.KindTimeout,
			Provider: client.Name(),
			Err:      fmt.Errorf("no response within %s", p.timeout),
		}
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Close releases every tier client.
func (p *Provider) Close() error {
	var errs []error
	for _, c := range p.clients {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
