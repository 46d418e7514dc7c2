package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pagecopy/internal/batch"
	"pagecopy/internal/cache/memory"
	"pagecopy/internal/gateway/repository/artifact"
	llmclient "pagecopy/internal/llm/client"
	"pagecopy/internal/prompt"
	"pagecopy/internal/tester"
	"pagecopy/internal/types"
)

type call struct {
	prompt string
	tier   llmclient.Tier
}

// fakeGen answers narrative, bulk and single-slot prompts through hooks.
type fakeGen struct {
	mu        sync.Mutex
	calls     []call
	narrative func(tier llmclient.Tier) (string, error)
	single    func(p string) (string, error)
}

func (g *fakeGen) GenerateText(_ context.Context, p string, tier llmclient.Tier, _ string) (string, error) {
	g.mu.Lock()
	g.calls = append(g.calls, call{prompt: p, tier: tier})
	g.mu.Unlock()

	if ids := requiredKeys(p); ids != nil {
		obj := map[string]string{}
		for _, id := range ids {
			obj[id] = "Copy for " + id
		}
		b, _ := json.Marshal(obj)
		return string(b), nil
	}
	if g.single != nil && tier == llmclient.TierFast && g.narrative == nil {
		return g.single(p)
	}
	if g.narrative != nil {
		return g.narrative(tier)
	}
	return "A narrative.", nil
}

func (g *fakeGen) bulkCalls() int {
	n := 0
	for _, c := range g.calls {
		if strings.Contains(c.prompt, prompt.RequiredKeysPrefix) {
			n++
		}
	}
	return n
}

func requiredKeys(p string) []string {
	for _, line := range strings.Split(p, "\n") {
		if rest, ok := strings.CutPrefix(strings.TrimSpace(line), prompt.RequiredKeysPrefix); ok {
			var ids []string
			for _, id := range strings.Split(rest, ",") {
				ids = append(ids, strings.TrimSpace(id))
			}
			return ids
		}
	}
	return nil
}

type noSleep struct{}

func (noSleep) Now() time.Time                       { return time.Time{} }
func (noSleep) Sleep(context.Context, time.Duration) {}

var (
	brief = types.Brief{
		ProductName: "MealMap",
		Description: "Weekly dinner planning",
		Audience:    types.Audience{AgeRange: "25-40", Country: "Japan", Tone: types.ToneFriendly},
	}
	fields = types.Manifest{
		{ID: "hero", Label: "Primary Headline 1", SemanticType: types.Headline},
		{ID: "logo", SemanticType: types.Image},
		{ID: "intro", Label: "Intro", SemanticType: types.Paragraph},
		{ID: "cta", Label: "Start Free", SemanticType: types.CTA},
	}
)

func newTestOrchestrator(gen *fakeGen, archive RunArchive) (*Orchestrator, *memory.Narratives) {
	store := memory.NewNarratives(16, 0, time.Hour)
	return New(gen, Options{Narratives: store, Archive: archive, Clock: noSleep{}}), store
}

func TestGenerate_NarrativeThenMapping(t *testing.T) {
	gen := &fakeGen{narrative: func(llmclient.Tier) (string, error) {
		return "# The Story\n\nParagraph **one**.\n\nParagraph two\ncontinues.", nil
	}}
	archiveStore := artifact.NewMemoryStore()
	o, store := newTestOrchestrator(gen, artifact.NewArchive(archiveStore))

	var events []batch.Event
	res, err := o.Generate(context.Background(), GenerateRequest{Brief: brief, Fields: fields}, func(e batch.Event) { events = append(events, e) })
	require.NoError(t, err)

	assert.True(t, res.Success)
	assert.Equal(t, []string{"hero", "intro", "cta"}, res.Slots.Keys())
	assert.Equal(t, "Paragraph one.\n\nParagraph two continues.", res.Narrative)
	stored, ok := store.Get(res.NarrativeID)
	require.True(t, ok)
	assert.Equal(t, res.Narrative, stored)
	require.NotEmpty(t, res.RunID)

	tester.Eq(t, gen.calls[0].tier, llmclient.TierQuality)
	tester.Eq(t, gen.calls[1].tier, llmclient.TierFast)
	tester.Eq(t, len(events), 2)

	names, err := archiveStore.List(context.Background(), res.RunID)
	require.NoError(t, err)
	assert.Equal(t, []string{artifact.ManifestFile, artifact.NarrativeFile, artifact.ResultFile}, names)
}

func TestGenerate_AuthFailureNeverMaps(t *testing.T) {
	gen := &fakeGen{narrative: func(tier llmclient.Tier) (string, error) {
		return "", &llmclient.Error{Kind: llmclient.KindAuth, StatusCode: 401, Err: errors.New("bad key")}
	}}
	o, _ := newTestOrchestrator(gen, nil)

	res, err := o.Generate(context.Background(), GenerateRequest{Brief: brief, Fields: fields}, nil)
	require.NoError(t, err)

	assert.False(t, res.Success)
	assert.Equal(t, "auth", res.ErrorKind)
	assert.Contains(t, res.Error, "Narrative generation failed")
	assert.Equal(t, 0, gen.bulkCalls(), "mapping is never attempted")
	require.Len(t, gen.calls, 2, "quality then one fast fallback")
	assert.Equal(t, llmclient.TierFast, gen.calls[1].tier)
	assert.Equal(t, 0, res.Slots.Len())
	assert.Len(t, res.SlotErrors, 3)
}

func TestGenerateNarrative_FallsBackToFastTier(t *testing.T) {
	gen := &fakeGen{narrative: func(tier llmclient.Tier) (string, error) {
		if tier == llmclient.TierQuality {
			return "", &llmclient.Error{Kind: llmclient.KindNotFound, Err: errors.New("model retired")}
		}
		return "Fast tier prose.", nil
	}}
	o, _ := newTestOrchestrator(gen, nil)

	nar, err := o.GenerateNarrative(context.Background(), brief)
	require.NoError(t, err)
	assert.Equal(t, llmclient.TierFast, nar.Tier)
	assert.Equal(t, "Fast tier prose.", nar.Text)
}

func TestGenerateNarrative_RejectsEmptyBrief(t *testing.T) {
	o, _ := newTestOrchestrator(&fakeGen{}, nil)
	_, err := o.GenerateNarrative(context.Background(), types.Brief{})
	assert.True(t, errors.Is(err, ErrInvalidRequest))
}

func TestMapNarrativeToSlots_ByID(t *testing.T) {
	gen := &fakeGen{}
	o, store := newTestOrchestrator(gen, nil)
	id := store.Put("Stored narrative.")

	res, err := o.MapNarrativeToSlots(context.Background(), MapRequest{NarrativeID: id, Fields: fields}, nil)
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, id, res.NarrativeID)
	assert.Contains(t, gen.calls[0].prompt, "Stored narrative.")

	_, err = o.MapNarrativeToSlots(context.Background(), MapRequest{NarrativeID: "gone", Fields: fields}, nil)
	assert.True(t, errors.Is(err, ErrNarrativeNotFound))

	dup := types.Manifest{{ID: "a", SemanticType: types.Headline}, {ID: "a", SemanticType: types.CTA}}
	_, err = o.MapNarrativeToSlots(context.Background(), MapRequest{Narrative: "n", Fields: dup}, nil)
	assert.True(t, errors.Is(err, ErrInvalidRequest))

	_, err = o.MapNarrativeToSlots(context.Background(), MapRequest{Narrative: "n", Fields: types.Manifest{{ID: "img", SemanticType: types.Image}}}, nil)
	assert.True(t, errors.Is(err, ErrInvalidRequest))
}

func TestGenerateSlot(t *testing.T) {
	gen := &fakeGen{single: func(string) (string, error) { return `"Plan a week of dinners in minutes"`, nil }}
	o, _ := newTestOrchestrator(gen, nil)

	field := types.SlotField{ID: "hero", SemanticType: types.Headline, MaxLength: 20}
	res, err := o.GenerateSlot(context.Background(), SlotRequest{Narrative: "n", Field: field})
	require.NoError(t, err)
	assert.True(t, res.Success)
	v, _ := res.Slots.Get("hero")
	assert.Equal(t, "Plan a week of", v)

	_, err = o.GenerateSlot(context.Background(), SlotRequest{Narrative: "n", Field: types.SlotField{ID: "logo", SemanticType: types.Image}})
	assert.True(t, errors.Is(err, ErrInvalidRequest))
}

func TestRegenerateSlot(t *testing.T) {
	var seen string
	gen := &fakeGen{single: func(p string) (string, error) {
		seen = p
		return "", &llmclient.Error{Kind: llmclient.KindRateLimit, Err: errors.New("429")}
	}}
	o, _ := newTestOrchestrator(gen, nil)

	res, err := o.RegenerateSlot(context.Background(), RegenerateRequest{
		SlotRequest: SlotRequest{Narrative: "n", Field: types.SlotField{ID: "intro", SemanticType: types.Paragraph}},
		Previous:    "Old intro text",
		Feedback:    "make it warmer",
	})
	require.NoError(t, err)
	assert.Contains(t, seen, "make it warmer")
	assert.False(t, res.Success)
	assert.Equal(t, "rate_limit", res.ErrorKind)
	assert.Contains(t, res.SlotErrors, "intro")
}

func TestFlattenNarrative(t *testing.T) {
	src := "# Heading\n\nSome **bold** text\nacross lines.\n\n- item one\n- item two\n\n```\ncode\n```\n\nFinal with `code` and <b>tags</b>."
	assert.Equal(t, "Some bold text across lines.\n\nitem one\n\nitem two\n\nFinal with code and tags.", FlattenNarrative(src))
	assert.Equal(t, "", FlattenNarrative("   "))
}
