package rpc

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"connectrpc.com/connect"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pagecopy/internal/batch"
	"pagecopy/internal/detect"
	"pagecopy/internal/gateway/repository/artifact"
	"pagecopy/internal/llm"
	llmclient "pagecopy/internal/llm/client"
	"pagecopy/internal/orchestrator"
	"pagecopy/internal/tester"
	"pagecopy/internal/types"
)

type fixture struct {
	fake    *llmclient.FakeClient
	orch    *orchestrator.Orchestrator
	archive *artifact.Archive
	srv     *httptest.Server
}

func newFixture(t *testing.T, script ...llmclient.FakeResponder) *fixture {
	t.Helper()
	fake := llmclient.NewFakeClient(script...)
	provider, err := llm.NewProvider(
		map[llmclient.Tier]llmclient.LLMClient{llmclient.TierQuality: fake, llmclient.TierFast: fake},
		llm.ProviderConfig{},
		llm.NewRateLimiter(llm.RateLimitConfig{}),
		nil,
	)
	require.NoError(t, err)
	archive := artifact.NewArchive(artifact.NewMemoryStore())
	orch := orchestrator.New(provider, orchestrator.Options{
		Batch:   batch.Config{Size: 2},
		Archive: archive,
	})

	mux := http.NewServeMux()
	mux.Handle(NewCopyServiceHandler(NewCopyHandler(orch, detect.New(detect.DefaultClassifier()), archive, nil)))
	mux.HandleFunc("/ws/generate", NewGenerateStreamHandler(orch, nil).HandleGenerateWS)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return &fixture{fake: fake, orch: orch, archive: archive, srv: srv}
}

func call[Req, Res any](t *testing.T, f *fixture, procedure string, req *Req) (*Res, error) {
	t.Helper()
	client := connect.NewClient[Req, Res](f.srv.Client(), f.srv.URL+procedure, connect.WithCodec(Codec()))
	resp, err := client.CallUnary(context.Background(), connect.NewRequest(req))
	if err != nil {
		return nil, err
	}
	return resp.Msg, nil
}

func sampleFields() types.Manifest {
	return types.Manifest{
		{ID: "hero-title", Label: "Hero", SemanticType: types.Headline},
		{ID: "hero-body", Label: "Body", SemanticType: types.Paragraph},
		{ID: "cta", Label: "CTA", SemanticType: types.CTA},
	}
}

func sampleBrief() types.Brief {
	return types.Brief{
		ProductName: "Mealwise",
		Description: "A meal planner for busy parents.",
		Audience:    types.Audience{Tone: types.ToneFriendly},
	}
}

func TestDetectSlots(t *testing.T) {
	f := newFixture(t)
	out, err := call[DetectSlotsRequest, DetectSlotsResponse](t, f, DetectSlotsProcedure, &DetectSlotsRequest{
		HTML: `<div class="ad-banner"><p>Buy now</p></div><p>This is long enough real content to qualify.</p>`,
	})
	require.NoError(t, err)
	require.Len(t, out.Slots, 1)
	tester.Eq(t, out.Fields[0].ID, out.Slots[0].ID)
	tester.Eq(t, out.Fields[0].SemanticType, types.Paragraph)
	assert.Contains(t, out.MarkedHTML, `data-slot="`+out.Slots[0].ID+`"`)
}

func TestDetectSlotsEmptyDocument(t *testing.T) {
	f := newFixture(t)
	_, err := call[DetectSlotsRequest, DetectSlotsResponse](t, f, DetectSlotsProcedure, &DetectSlotsRequest{HTML: "  "})
	require.Error(t, err)
	tester.Eq(t, connect.CodeOf(err), connect.CodeInvalidArgument)
}

func TestGenerateThenGetRun(t *testing.T) {
	f := newFixture(t)
	res, err := call[orchestrator.GenerateRequest, types.Result](t, f, GenerateProcedure, &orchestrator.GenerateRequest{
		Brief:  sampleBrief(),
		Fields: sampleFields(),
	})
	require.NoError(t, err)
	tester.True(t, res.Success, "slot errors: %v", res.SlotErrors)
	tester.Eq(t, res.Slots.Keys(), []string{"hero-title", "hero-body", "cta"})
	require.NotEmpty(t, res.RunID)
	require.NotEmpty(t, res.NarrativeID)

	run, err := call[GetRunRequest, artifact.Run](t, f, GetRunProcedure, &GetRunRequest{RunID: res.RunID})
	require.NoError(t, err)
	tester.Eq(t, run.ID, res.RunID)
	tester.Eq(t, run.Narrative, res.Narrative)
	tester.Eq(t, len(run.Manifest), 3)
	tester.True(t, run.Result.Success)
}

func TestGetRunNotFound(t *testing.T) {
	f := newFixture(t)
	_, err := call[GetRunRequest, artifact.Run](t, f, GetRunProcedure, &GetRunRequest{RunID: "missing"})
	require.Error(t, err)
	tester.Eq(t, connect.CodeOf(err), connect.CodeNotFound)

	_, err = call[GetRunRequest, artifact.Run](t, f, GetRunProcedure, &GetRunRequest{})
	tester.Eq(t, connect.CodeOf(err), connect.CodeInvalidArgument)
}

func TestGenerateInvalidManifest(t *testing.T) {
	f := newFixture(t)
	_, err := call[orchestrator.GenerateRequest, types.Result](t, f, GenerateProcedure, &orchestrator.GenerateRequest{
		Brief: sampleBrief(),
	})
	require.Error(t, err)
	tester.Eq(t, connect.CodeOf(err), connect.CodeInvalidArgument)
	assert.Empty(t, f.fake.Calls())
}

func TestGenerateNarrativeAuthFailure(t *testing.T) {
	authErr := &llmclient.Error{Kind: llmclient.KindAuth, Provider: "FakeLLM"}
	f := newFixture(t, llmclient.Fail(authErr), llmclient.Fail(authErr))
	_, err := call[GenerateNarrativeRequest, orchestrator.Narrative](t, f, GenerateNarrativeProcedure, &GenerateNarrativeRequest{
		Brief: sampleBrief(),
	})
	require.Error(t, err)
	tester.Eq(t, connect.CodeOf(err), connect.CodeUnauthenticated)
	tester.Eq(t, len(f.fake.Calls()), 2)
}

func TestMapSlotsByNarrativeID(t *testing.T) {
	f := newFixture(t)
	nar, err := call[GenerateNarrativeRequest, orchestrator.Narrative](t, f, GenerateNarrativeProcedure, &GenerateNarrativeRequest{
		Brief: sampleBrief(),
	})
	require.NoError(t, err)
	tester.Eq(t, nar.Tier, llmclient.TierQuality)

	res, err := call[orchestrator.MapRequest, types.Result](t, f, MapSlotsProcedure, &orchestrator.MapRequest{
		NarrativeID: nar.ID,
		Fields:      sampleFields(),
	})
	require.NoError(t, err)
	tester.True(t, res.Success)
	tester.Eq(t, res.NarrativeID, nar.ID)

	_, err = call[orchestrator.MapRequest, types.Result](t, f, MapSlotsProcedure, &orchestrator.MapRequest{
		NarrativeID: "expired",
		Fields:      sampleFields(),
	})
	tester.Eq(t, connect.CodeOf(err), connect.CodeNotFound)
}

func TestGenerateAndRegenerateSlot(t *testing.T) {
	f := newFixture(t, llmclient.Reply(`"Plan dinners in minutes"`), llmclient.Reply("Dinner, sorted."))
	field := types.SlotField{ID: "hero-title", Label: "Hero", SemanticType: types.Headline}

	res, err := call[orchestrator.SlotRequest, types.Result](t, f, GenerateSlotProcedure, &orchestrator.SlotRequest{
		Narrative: "Mealwise plans dinners.",
		Field:     field,
	})
	require.NoError(t, err)
	v, _ := res.Slots.Get("hero-title")
	tester.Eq(t, v, "Plan dinners in minutes")

	res, err = call[orchestrator.RegenerateRequest, types.Result](t, f, RegenerateSlotProcedure, &orchestrator.RegenerateRequest{
		SlotRequest: orchestrator.SlotRequest{Narrative: "Mealwise plans dinners.", Field: field},
		Previous:    "Plan dinners in minutes",
		Feedback:    "shorter",
	})
	require.NoError(t, err)
	v, _ = res.Slots.Get("hero-title")
	tester.Eq(t, v, "Dinner, sorted.")
}

func TestToCopyError(t *testing.T) {
	cases := map[error]connect.Code{
		orchestrator.ErrInvalidRequest:                                   connect.CodeInvalidArgument,
		orchestrator.ErrNarrativeNotFound:                                connect.CodeNotFound,
		artifact.ErrNotFound:                                             connect.CodeNotFound,
		&llmclient.Error{Kind: llmclient.KindRateLimit}:                  connect.CodeResourceExhausted,
		&llmclient.Error{Kind: llmclient.KindTimeout}:                    connect.CodeDeadlineExceeded,
		&llmclient.Error{Kind: llmclient.KindNotFound}:                   connect.CodeUnavailable,
		&llmclient.Error{Kind: llmclient.KindOther, Provider: "FakeLLM"}: connect.CodeInternal,
	}
	for in, want := range cases {
		tester.Eq(t, connect.CodeOf(toCopyError(in)), want, "%v", in)
	}
}
