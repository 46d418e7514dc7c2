package orchestrator

import (
	"context"
	"strings"

	"pagecopy/internal/batch"
	"pagecopy/internal/jsonrepair"
	"pagecopy/internal/llm"
	llmclient "pagecopy/internal/llm/client"
	"pagecopy/internal/prompt"
	"pagecopy/internal/types"
)

// SlotRequest generates one slot from a narrative.
type SlotRequest struct {
	Audience    types.Audience  `json:"audience"`
	Narrative   string          `json:"narrative,omitempty"`
	NarrativeID string          `json:"narrativeId,omitempty"`
	Field       types.SlotField `json:"field"`
}

// RegenerateRequest rewrites one slot given its previous text and feedback.
type RegenerateRequest struct {
	SlotRequest
	Previous string `json:"previous,omitempty"`
	Feedback string `json:"feedback,omitempty"`
}

func (o *Orchestrator) GenerateSlot(ctx context.Context, req SlotRequest) (*types.Result, error) {
	narrative, err := o.checkSlot(req)
	if err != nil {
		return nil, err
	}
	p, err := prompt.Build(prompt.SingleSlotRequest{Audience: req.Audience, Narrative: narrative, Field: req.Field})
	if err != nil {
		return nil, invalid("%v", err)
	}
	return o.single(ctx, req, p, "slot"), nil
}

func (o *Orchestrator) RegenerateSlot(ctx context.Context, req RegenerateRequest) (*types.Result, error) {
	narrative, err := o.checkSlot(req.SlotRequest)
	if err != nil {
		return nil, err
	}
	p, err := prompt.Build(prompt.RegenerateRequest{
		Audience:  req.Audience,
		Narrative: narrative,
		Field:     req.Field,
		Previous:  req.Previous,
		Feedback:  req.Feedback,
	})
	if err != nil {
		return nil, invalid("%v", err)
	}
	return o.single(ctx, req.SlotRequest, p, "regenerate"), nil
}

func (o *Orchestrator) checkSlot(req SlotRequest) (string, error) {
	f := req.Field
	if strings.TrimSpace(f.ID) == "" {
		return "", invalid("field id is required")
	}
	if err := (types.Manifest{f}).Validate(); err != nil {
		return "", invalid("%v", err)
	}
	if !f.SemanticType.Generable() {
		return "", invalid("field %q of type %s has no text to generate", f.ID, f.SemanticType)
	}
	return o.resolveNarrative(req.Narrative, req.NarrativeID)
}

func (o *Orchestrator) single(ctx context.Context, req SlotRequest, p, kind string) *types.Result {
	f := req.Field
	res := types.NewResult()
	res.NarrativeID = req.NarrativeID
	raw, err := o.gen.GenerateText(ctx, p, llmclient.TierFast, llm.NewOperationID(kind))
	if err != nil {
		res.Error = err.Error()
		res.ErrorKind = llmclient.KindOf(err).String()
		res.Fail(f.ID, err.Error())
		o.log.Warn("slot generation failed", "slot", f.ID, "kind", res.ErrorKind, "error", err)
		return res.Finalize()
	}
	if v := jsonrepair.Text(raw, f.ID); v != "" {
		res.Fill(f.ID, batch.Fit(v, f.MaxLength))
	} else {
		res.Fail(f.ID, types.ReasonSlotEmpty)
	}
	return res.Finalize()
}
