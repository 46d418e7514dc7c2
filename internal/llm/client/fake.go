package llmclient

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
)

// FakeResponder produces a scripted reply for one call.
type FakeResponder func(ctx context.Context, req Request) (string, error)

// FakeClient replays scripted responses for offline runs and tests. Calls
// beyond the script fall back to Default, or to an echo of the prompt size.
type FakeClient struct {
	mu      sync.Mutex
	script  []FakeResponder
	calls   []Request
	Default FakeResponder
}

func NewFakeClient(script ...FakeResponder) *FakeClient {
	return &FakeClient{script: script}
}

// Reply returns a responder that always yields text.
func Reply(text string) FakeResponder {
	return func(context.Context, Request) (string, error) { return text, nil }
}

// Fail returns a responder that always yields err.
func Fail(err error) FakeResponder {
	return func(context.Context, Request) (string, error) { return "", err }
}

func (f *FakeClient) Name() string                { return "FakeLLM" }
func (f *FakeClient) Close() error                { return nil }
func (f *FakeClient) CountTokens(text string) int { return CountTokens(text) }

// Push appends responders to the script.
func (f *FakeClient) Push(rs ...FakeResponder) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.script = append(f.script, rs...)
}

// Calls returns a copy of the requests received so far.
func (f *FakeClient) Calls() []Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Request(nil), f.calls...)
}

func (f *FakeClient) GenerateText(ctx context.Context, req Request) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, req)
	var next FakeResponder
	if len(f.script) > 0 {
		next = f.script[0]
		f.script = f.script[1:]
	} else {
		next = f.Default
	}
	f.mu.Unlock()

	if next == nil {
		return offlineReply(req.Prompt), nil
	}
	return next(ctx, req)
}

// requiredKeysMarker matches the manifest line written by the bulk-map prompt.
const requiredKeysMarker = "REQUIRED_KEYS:"

// offlineReply answers bulk-map prompts with one placeholder per required key
// and anything else with a short neutral paragraph.
func offlineReply(prompt string) string {
	for _, line := range strings.Split(prompt, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, requiredKeysMarker) {
			continue
		}
		obj := map[string]string{}
		for _, id := range strings.Split(strings.TrimPrefix(line, requiredKeysMarker), ",") {
			id = strings.TrimSpace(id)
			if id != "" {
				obj[id] = "Placeholder copy for " + strings.ReplaceAll(id, "-", " ") + "."
			}
		}
		raw, _ := json.Marshal(obj)
		return string(raw)
	}
	return "This offering helps people reach their goals with less effort. It is built around what they already care about, and it removes the friction that held them back."
}
