package orchestrator

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"pagecopy/internal/batch"
	"pagecopy/internal/gateway/repository/artifact"
	llmclient "pagecopy/internal/llm/client"
	"pagecopy/internal/types"
)

// MapRequest maps an existing narrative onto a manifest. Narrative wins
// over NarrativeID when both are set.
type MapRequest struct {
	Audience    types.Audience `json:"audience"`
	Narrative   string         `json:"narrative,omitempty"`
	NarrativeID string         `json:"narrativeId,omitempty"`
	Fields      types.Manifest `json:"fields"`
}

// GenerateRequest runs narrative synthesis then mapping.
type GenerateRequest struct {
	Brief  types.Brief    `json:"brief"`
	Fields types.Manifest `json:"fields"`
}

// MapNarrativeToSlots maps the narrative in batches. Provider and parse
// failures are reported per slot in the result; only request errors are
// returned.
func (o *Orchestrator) MapNarrativeToSlots(ctx context.Context, req MapRequest, observe batch.Observer) (*types.Result, error) {
	fields, err := validManifest(req.Fields)
	if err != nil {
		return nil, err
	}
	narrative, err := o.resolveNarrative(req.Narrative, req.NarrativeID)
	if err != nil {
		return nil, err
	}
	res := o.mapSlots(ctx, req.Audience, narrative, fields, observe)
	res.NarrativeID = req.NarrativeID
	return res, nil
}

func (o *Orchestrator) mapSlots(ctx context.Context, aud types.Audience, narrative string, fields types.Manifest, observe batch.Observer) *types.Result {
	res := o.batches.Run(ctx, batch.Job{Audience: aud, Narrative: narrative, Fields: fields}, observe)
	if res.Slots.Len() == 0 && len(res.SlotErrors) > 0 {
		res.Error = "No slot content could be generated"
	}
	return res.Finalize()
}

// Generate synthesizes the narrative and maps it. When narrative synthesis
// fails the result carries the classified error, every field is marked
// failed, and no mapping call is made.
func (o *Orchestrator) Generate(ctx context.Context, req GenerateRequest, observe batch.Observer) (*types.Result, error) {
	fields, err := validManifest(req.Fields)
	if err != nil {
		return nil, err
	}
	nar, err := o.GenerateNarrative(ctx, req.Brief)
	if err != nil {
		if errors.Is(err, ErrInvalidRequest) {
			return nil, err
		}
		res := types.NewResult()
		res.Error = "Narrative generation failed: " + err.Error()
		res.ErrorKind = llmclient.KindOf(err).String()
		for _, f := range fields {
			res.Fail(f.ID, res.Error)
		}
		o.log.Error("generation aborted", "kind", res.ErrorKind, "error", err)
		return res.Finalize(), nil
	}

	res := o.mapSlots(ctx, req.Brief.Audience, nar.Text, fields, observe)
	res.Narrative = nar.Text
	res.NarrativeID = nar.ID
	res.RunID = uuid.NewString()
	o.archiveRun(ctx, req.Fields, res)
	o.log.Info("generation finished",
		"run_id", res.RunID, "success", res.Success,
		"filled", res.Slots.Len(), "failed", len(res.SlotErrors))
	return res, nil
}

// archiveRun never fails the generation; errors are logged.
func (o *Orchestrator) archiveRun(ctx context.Context, manifest types.Manifest, res *types.Result) {
	if o.archive == nil {
		return
	}
	run := artifact.Run{ID: res.RunID, Narrative: res.Narrative, Manifest: manifest, Result: res}
	if err := o.archive.Save(context.WithoutCancel(ctx), run); err != nil {
		o.log.Warn("archive run failed", "run_id", res.RunID, "error", err)
	}
}
