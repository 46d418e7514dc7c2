package llm

import (
	"context"
	"math/rand"
	"sync"
	"time"

	llmclient "pagecopy/internal/llm/client"
	"pagecopy/internal/metrics"
)

// Clock abstracts time so tests can drive the limiter without sleeping.
type Clock interface {
	Now() time.Time
	// Sleep blocks for d or until ctx is done.
	Sleep(ctx context.Context, d time.Duration)
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }
func (realClock) Sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// RealClock is the wall clock.
var RealClock Clock = realClock{}

// RateLimitConfig tunes spacing, the rolling minute budget and backoff.
type RateLimitConfig struct {
	// MaxPerSecond derives the minimum spacing between consecutive calls.
	MaxPerSecond float64
	// MaxPerMinute caps calls in any trailing 60s window.
	MaxPerMinute int
	// NoiseThreshold is the smallest delay worth sleeping for.
	NoiseThreshold time.Duration

	BaseDelay  time.Duration
	MaxDelay   time.Duration
	BackoffCap int
	MaxJitter  time.Duration
}

func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		MaxPerSecond:   2,
		MaxPerMinute:   60,
		NoiseThreshold: 10 * time.Millisecond,
		BaseDelay:      time.Second,
		MaxDelay:       60 * time.Second,
		BackoffCap:     5,
		MaxJitter:      500 * time.Millisecond,
	}
}

// MinSpacing is the enforced gap between consecutive calls.
func (c RateLimitConfig) MinSpacing() time.Duration {
	if c.MaxPerSecond <= 0 {
		return 0
	}
	return time.Duration(float64(time.Second) / c.MaxPerSecond)
}

const rateWindow = time.Minute

// RateLimiter throttles outbound generation calls for one orchestrator
// instance. State is in memory only: a sliding window of call timestamps
// and per-operation retry attempt counters.
type RateLimiter struct {
	cfg   RateLimitConfig
	clock Clock

	mu       sync.Mutex
	window   []time.Time
	attempts map[string]int
	rng      *rand.Rand
}

type RateLimiterOption func(*RateLimiter)

// WithClock replaces the wall clock.
func WithClock(c Clock) RateLimiterOption {
	return func(l *RateLimiter) { l.clock = c }
}

// WithJitterSeed makes jitter deterministic.
func WithJitterSeed(seed int64) RateLimiterOption {
	return func(l *RateLimiter) { l.rng = rand.New(rand.NewSource(seed)) }
}

func NewRateLimiter(cfg RateLimitConfig, opts ...RateLimiterOption) *RateLimiter {
	def := DefaultRateLimitConfig()
	if cfg.NoiseThreshold < 0 {
		cfg.NoiseThreshold = 0
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = def.BaseDelay
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = def.MaxDelay
	}
	if cfg.BackoffCap <= 0 {
		cfg.BackoffCap = def.BackoffCap
	}
	if cfg.MaxJitter < 0 {
		cfg.MaxJitter = 0
	}
	l := &RateLimiter{
		cfg:      cfg,
		clock:    RealClock,
		attempts: make(map[string]int),
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, o := range opts {
		o(l)
	}
	return l
}

// WaitIfNeeded blocks until the next call fits both the per-second spacing
// and the per-minute budget. Delays at or below the noise threshold are
// skipped. It never fails; a cancelled ctx just ends the wait early.
func (l *RateLimiter) WaitIfNeeded(ctx context.Context) {
	if l == nil {
		return
	}
	l.mu.Lock()
	now := l.clock.Now()
	l.pruneLocked(now)

	var delay time.Duration
	if n := len(l.window); n > 0 {
		if spacing := l.cfg.MinSpacing(); spacing > 0 {
			delay = l.window[n-1].Add(spacing).Sub(now)
		}
		if limit := l.cfg.MaxPerMinute; limit > 0 && n >= limit {
			if d := l.window[n-limit].Add(rateWindow).Sub(now); d > delay {
				delay = d
			}
		}
	}
	if delay <= l.cfg.NoiseThreshold {
		delay = 0
	}
	// Reserve the slot before sleeping so concurrent callers queue behind it.
	l.window = append(l.window, now.Add(delay))
	l.mu.Unlock()

	if delay > 0 {
		l.clock.Sleep(ctx, delay)
	}
}

func (l *RateLimiter) pruneLocked(now time.Time) {
	cutoff := now.Add(-rateWindow)
	i := 0
	for i < len(l.window) && !l.window[i].After(cutoff) {
		i++
	}
	if i > 0 {
		l.window = append(l.window[:0], l.window[i:]...)
	}
}

// HandleRateLimitError waits out a rate-limit failure for operationID and
// returns the delay used:
//
//	min(max(retryAfter, base*2^min(attempt, cap)) + jitter, maxDelay)
//
// The attempt counter for operationID is incremented. Giving up is the
// caller's decision.
func (l *RateLimiter) HandleRateLimitError(ctx context.Context, err error, operationID string) time.Duration {
	if l == nil {
		return 0
	}
	l.mu.Lock()
	attempt := l.attempts[operationID]
	l.attempts[operationID] = attempt + 1
	exp := attempt
	if exp > l.cfg.BackoffCap {
		exp = l.cfg.BackoffCap
	}
	delay := l.cfg.BaseDelay * time.Duration(1<<exp)
	if ra := llmclient.RetryAfterOf(err); ra > delay {
		delay = ra
	}
	if l.cfg.MaxJitter > 0 {
		delay += time.Duration(l.rng.Int63n(int64(l.cfg.MaxJitter) + 1))
	}
	if delay > l.cfg.MaxDelay {
		delay = l.cfg.MaxDelay
	}
	l.mu.Unlock()

	metrics.RateLimitBackoffs.Inc()
	l.clock.Sleep(ctx, delay)
	return delay
}

// ResetRetryAttempts clears the counter after a successful call.
func (l *RateLimiter) ResetRetryAttempts(operationID string) {
	if l == nil {
		return
	}
	l.mu.Lock()
	delete(l.attempts, operationID)
	l.mu.Unlock()
}

// Attempts returns the current retry attempt count for operationID.
func (l *RateLimiter) Attempts(operationID string) int {
	if l == nil {
		return 0
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.attempts[operationID]
}
