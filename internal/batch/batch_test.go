package batch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	llmclient "pagecopy/internal/llm/client"
	"pagecopy/internal/prompt"
	"pagecopy/internal/tester"
	"pagecopy/internal/types"
)

type recordingClock struct {
	mu     sync.Mutex
	sleeps []time.Duration
}

func (c *recordingClock) Now() time.Time { return time.Time{} }
func (c *recordingClock) Sleep(_ context.Context, d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sleeps = append(c.sleeps, d)
}

// scriptedGen answers bulk-map prompts through reply, keyed by call index.
type scriptedGen struct {
	calls   int
	prompts []string
	tiers   []llmclient.Tier
	reply   func(call int, ids []string) (string, error)
}

func (g *scriptedGen) GenerateText(_ context.Context, p string, tier llmclient.Tier, _ string) (string, error) {
	g.calls++
	g.prompts = append(g.prompts, p)
	g.tiers = append(g.tiers, tier)
	return g.reply(g.calls, requiredKeys(p))
}

func requiredKeys(p string) []string {
	for _, line := range strings.Split(p, "\n") {
		line = strings.TrimSpace(line)
		if rest, ok := strings.CutPrefix(line, prompt.RequiredKeysPrefix); ok {
			var ids []string
			for _, id := range strings.Split(rest, ",") {
				ids = append(ids, strings.TrimSpace(id))
			}
			return ids
		}
	}
	return nil
}

func answerAll(ids []string, skip ...string) string {
	obj := map[string]string{}
	for _, id := range ids {
		obj[id] = "copy for " + id
	}
	for _, s := range skip {
		delete(obj, s)
	}
	b, _ := json.Marshal(obj)
	return string(b)
}

func manifestOf(n int) types.Manifest {
	m := make(types.Manifest, n)
	for i := range m {
		m[i] = types.SlotField{ID: fmt.Sprintf("slot-%02d", i), Label: fmt.Sprintf("Paragraph %d", i), SemanticType: types.Paragraph}
	}
	return m
}

func TestSplit(t *testing.T) {
	cfg := DefaultConfig()
	tester.Eq(t, len(Split(manifestOf(25), cfg)), 1)
	tester.Eq(t, len(Split(manifestOf(0), cfg)), 0)

	got := Split(manifestOf(60), cfg)
	tester.Eq(t, len(got), 3)
	tester.Eq(t, len(got[0]), 25)
	tester.Eq(t, len(got[2]), 10)
	tester.Eq(t, got[1][0].ID, "slot-25")
}

func TestRun_SixtyFieldsThreeBatchesComplete(t *testing.T) {
	gen := &scriptedGen{reply: func(_ int, ids []string) (string, error) { return answerAll(ids), nil }}
	clock := &recordingClock{}
	c := NewCoordinator(gen, DefaultConfig(), nil, WithClock(clock))

	fields := manifestOf(60)
	var events []Event
	res := c.Run(context.Background(), Job{Narrative: "n", Fields: fields}, func(e Event) { events = append(events, e) })

	tester.Eq(t, gen.calls, 3)
	for _, tier := range gen.tiers {
		tester.Eq(t, tier, llmclient.TierFast)
	}
	tester.Eq(t, clock.sleeps, []time.Duration{500 * time.Millisecond, 500 * time.Millisecond}, "delay only between batches")
	tester.Eq(t, res.Slots.Keys(), fields.IDs(), "manifest order preserved")
	assert.Empty(t, res.SlotErrors)
	for _, f := range fields {
		_, inErr := res.SlotErrors[f.ID]
		tester.True(t, res.Slots.Has(f.ID) != inErr, f.ID)
	}
	require.Len(t, events, 6)
	tester.Eq(t, events[0].Kind, BatchStarted)
	tester.Eq(t, events[5].Kind, BatchCompleted)
	tester.Eq(t, events[5].Batch, 3)
}

func TestRun_MissingKeysBecomeSlotErrors(t *testing.T) {
	gen := &scriptedGen{reply: func(_ int, ids []string) (string, error) {
		return answerAll(ids, "slot-07", "slot-41"), nil
	}}
	c := NewCoordinator(gen, Config{Threshold: 100, Size: 100}, nil)

	res := c.Run(context.Background(), Job{Narrative: "n", Fields: manifestOf(60)}, nil).Finalize()

	tester.Eq(t, gen.calls, 1)
	tester.False(t, res.Success)
	tester.Eq(t, res.Slots.Len(), 58)
	tester.Eq(t, res.SlotErrors, map[string]string{
		"slot-07": types.ReasonSlotMissing,
		"slot-41": types.ReasonSlotMissing,
	})
}

func TestRun_SimilarIDsDoNotShareOneKey(t *testing.T) {
	gen := &scriptedGen{reply: func(int, []string) (string, error) {
		return `{"hero_title": "Cook less"}`, nil
	}}
	c := NewCoordinator(gen, Config{Threshold: 100, Size: 100}, nil)
	fields := types.Manifest{
		{ID: "hero_title", Label: "Headline", SemanticType: types.Headline},
		{ID: "Hero-Title", Label: "Headline 2", SemanticType: types.Headline},
	}

	res := c.Run(context.Background(), Job{Narrative: "n", Fields: fields}, nil).Finalize()

	tester.False(t, res.Success)
	v, ok := res.Slots.Get("hero_title")
	tester.True(t, ok)
	tester.Eq(t, v, "Cook less")
	tester.False(t, res.Slots.Has("Hero-Title"))
	tester.Eq(t, res.SlotErrors, map[string]string{"Hero-Title": types.ReasonSlotMissing})
}

func TestRun_FailedBatchDoesNotAbortOthers(t *testing.T) {
	gen := &scriptedGen{reply: func(call int, ids []string) (string, error) {
		switch call {
		case 1:
			return "", &llmclient.Error{Kind: llmclient.KindTimeout, Err: errors.New("slow")}
		case 2:
			return "not json at all", nil
		}
		return answerAll(ids), nil
	}}
	c := NewCoordinator(gen, Config{Threshold: 2, Size: 2}, nil, WithClock(&recordingClock{}))

	var failed int
	res := c.Run(context.Background(), Job{Narrative: "n", Fields: manifestOf(6)}, func(e Event) {
		if e.Kind == BatchFailed {
			failed++
		}
	}).Finalize()

	tester.Eq(t, gen.calls, 3)
	tester.Eq(t, failed, 2)
	tester.Eq(t, res.Slots.Keys(), []string{"slot-04", "slot-05"})
	require.Len(t, res.SlotErrors, 4)
	assert.Contains(t, res.SlotErrors["slot-00"], "Batch 1/3 failed")
	assert.Contains(t, res.SlotErrors["slot-02"], "Batch 2/3 failed")
}

func TestRun_EmptyValueAndMaxLength(t *testing.T) {
	gen := &scriptedGen{reply: func(int, []string) (string, error) {
		return `{"title": "An unusually long headline that keeps going", "body": "  "}`, nil
	}}
	c := NewCoordinator(gen, DefaultConfig(), nil)
	fields := types.Manifest{
		{ID: "title", SemanticType: types.Headline, MaxLength: 20},
		{ID: "body", SemanticType: types.Paragraph},
		{ID: "logo", SemanticType: types.Image},
	}

	res := c.Run(context.Background(), Job{Narrative: "n", Fields: fields}, nil)

	v, _ := res.Slots.Get("title")
	tester.Eq(t, v, "An unusually long")
	tester.Eq(t, res.SlotErrors, map[string]string{"body": types.ReasonSlotEmpty})
	tester.False(t, res.Slots.Has("logo"), "images are never mapped")
}

func TestRun_CancelledContextFailsRemaining(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	gen := &scriptedGen{reply: func(_ int, ids []string) (string, error) {
		cancel()
		return answerAll(ids), nil
	}}
	c := NewCoordinator(gen, Config{Threshold: 1, Size: 1}, nil, WithClock(&recordingClock{}))

	res := c.Run(ctx, Job{Narrative: "n", Fields: manifestOf(3)}, nil)

	tester.Eq(t, gen.calls, 1)
	tester.Eq(t, res.Slots.Len(), 1)
	tester.Eq(t, len(res.SlotErrors), 2)
}

func TestFit(t *testing.T) {
	tester.Eq(t, Fit("short", 10), "short")
	tester.Eq(t, Fit("hello world again", 11), "hello world")
	tester.Eq(t, Fit("hello, world", 7), "hello")
	tester.Eq(t, Fit("abcdefghij", 4), "abcd")
	tester.Eq(t, Fit("anything", 0), "anything")
}
