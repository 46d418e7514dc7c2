package llmclient

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var ErrEmptyResponse = errors.New("empty response from LLM")

// Kind classifies provider failures.
type Kind int

const (
	KindOther Kind = iota
	KindRateLimit
	KindTimeout
	KindAuth
	KindNotFound
	KindValidation
)

func (k Kind) String() string {
	switch k {
	case KindRateLimit:
		return "rate_limit"
	case KindTimeout:
		return "timeout"
	case KindAuth:
		return "auth"
	case KindNotFound:
		return "not_found"
	case KindValidation:
		return "validation"
	default:
		return "other"
	}
}

// Retryable reports whether a failure of this kind may resolve by waiting.
func (k Kind) Retryable() bool { return k == KindRateLimit }

// Error is a classified provider failure.
type Error struct {
	Kind       Kind
	Provider   string
	StatusCode int
	// RetryAfter is the server-suggested delay, zero when absent.
	RetryAfter time.Duration
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s: %s (status %d): %v", e.Provider, e.Kind, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Provider, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// PermanentError indicates an error that will not resolve with retries.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return e.Err.Error() }
func (e *PermanentError) Unwrap() error { return e.Err }

func NewPermanentError(err error) error {
	return &PermanentError{Err: err}
}

// IsPermanent reports whether err was marked permanent or classifies as a
// non-retryable kind (auth, not found, validation).
func IsPermanent(err error) bool {
	if err == nil {
		return false
	}
	var pErr *PermanentError
	if errors.As(err, &pErr) {
		return true
	}
	switch KindOf(err) {
	case KindAuth, KindNotFound, KindValidation:
		return true
	}
	return false
}

// KindOf classifies any error. Typed errors win; otherwise context deadlines
// and well-known message fragments are used.
func KindOf(err error) Kind {
	if err == nil {
		return KindOther
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	return kindFromMessage(err.Error())
}

// KindFromStatus maps an HTTP status code onto a Kind.
func KindFromStatus(code int) Kind {
	switch {
	case code == 429:
		return KindRateLimit
	case code == 401 || code == 403:
		return KindAuth
	case code == 404:
		return KindNotFound
	case code == 400 || code == 422:
		return KindValidation
	case code == 408 || code == 504:
		return KindTimeout
	default:
		return KindOther
	}
}

// RetryAfterOf returns the server-suggested delay carried by err, if any.
func RetryAfterOf(err error) time.Duration {
	var e *Error
	if errors.As(err, &e) {
		return e.RetryAfter
	}
	return 0
}

// reStatus finds an HTTP status quoted in an error message, such as
// "Error 429, Message: ..." or "status code: 403". Bare numbers elsewhere in
// the text ("4000 tokens") do not count.
var reStatus = regexp.MustCompile(`(?i)\b(?:status(?:\s*code)?|code|error|http(?:/[\d.]+)?)\s*[:=]?\s*([45]\d{2})\b`)

func kindFromMessage(msg string) Kind {
	if m := reStatus.FindStringSubmatch(msg); m != nil {
		code, _ := strconv.Atoi(m[1])
		if k := KindFromStatus(code); k != KindOther {
			return k
		}
	}
	m := strings.ToLower(msg)
	switch {
	case strings.Contains(m, "rate limit"), strings.Contains(m, "ratelimit"),
		strings.Contains(m, "quota"), strings.Contains(m, "resource_exhausted"), strings.Contains(m, "resource exhausted"),
		strings.Contains(m, "too many requests"):
		return KindRateLimit
	case strings.Contains(m, "timeout"), strings.Contains(m, "timed out"), strings.Contains(m, "deadline exceeded"):
		return KindTimeout
	case strings.Contains(m, "api key"), strings.Contains(m, "unauthorized"), strings.Contains(m, "unauthenticated"),
		strings.Contains(m, "permission denied"):
		return KindAuth
	case strings.Contains(m, "not found"), strings.Contains(m, "not supported"),
		strings.Contains(m, "unsupported model"):
		return KindNotFound
	case strings.Contains(m, "invalid argument"), strings.Contains(m, "validation"):
		return KindValidation
	}
	return KindOther
}
