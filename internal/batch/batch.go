// Package batch maps a narrative onto a slot manifest in bounded,
// sequential generation calls and merges the per-batch outcomes.
package batch

import (
	"context"
	"fmt"
	"strings"
	"time"

	"pagecopy/internal/jsonrepair"
	"pagecopy/internal/llm"
	llmclient "pagecopy/internal/llm/client"
	"pagecopy/internal/logger"
	"pagecopy/internal/metrics"
	"pagecopy/internal/prompt"
	"pagecopy/internal/types"
)

// Config bounds batch sizes. A manifest with at most Threshold fields runs
// as one batch; larger manifests are cut into batches of Size.
type Config struct {
	Threshold int
	Size      int
	Delay     time.Duration
}

func DefaultConfig() Config {
	return Config{Threshold: 25, Size: 25, Delay: 500 * time.Millisecond}
}

// Generator is the provider surface the coordinator needs.
type Generator interface {
	GenerateText(ctx context.Context, prompt string, tier llmclient.Tier, operationID string) (string, error)
}

// Job is one mapping request.
type Job struct {
	Audience  types.Audience
	Narrative string
	Fields    types.Manifest
}

type Coordinator struct {
	gen   Generator
	cfg   Config
	clock llm.Clock
	log   *logger.Logger
}

type Option func(*Coordinator)

// WithClock replaces the clock used for the inter-batch delay.
func WithClock(c llm.Clock) Option {
	return func(co *Coordinator) { co.clock = c }
}

func NewCoordinator(gen Generator, cfg Config, log *logger.Logger, opts ...Option) *Coordinator {
	def := DefaultConfig()
	if cfg.Size <= 0 {
		cfg.Size = def.Size
	}
	if cfg.Threshold <= 0 {
		cfg.Threshold = cfg.Size
	}
	if cfg.Delay < 0 {
		cfg.Delay = 0
	}
	c := &Coordinator{gen: gen, cfg: cfg, clock: llm.RealClock, log: logger.OrNop(log)}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *Coordinator) Config() Config { return c.cfg }

// Split cuts fields into order-preserving batches.
func Split(fields types.Manifest, cfg Config) []types.Manifest {
	if len(fields) == 0 {
		return nil
	}
	if len(fields) <= cfg.Threshold || cfg.Size <= 0 {
		return []types.Manifest{fields}
	}
	out := make([]types.Manifest, 0, (len(fields)+cfg.Size-1)/cfg.Size)
	for start := 0; start < len(fields); start += cfg.Size {
		end := min(start+cfg.Size, len(fields))
		out = append(out, fields[start:end])
	}
	return out
}

// Run maps job.Fields in sequential batches. Every generable field id ends
// up in exactly one of the result's slot map and error map. A failing batch
// marks its own fields and the remaining batches still run. Run does not
// set Success; callers finalize the result after adding their own fields.
func (c *Coordinator) Run(ctx context.Context, job Job, observe Observer) *types.Result {
	res := types.NewResult()
	batches := Split(job.Fields.Generable(), c.cfg)
	total := len(batches)

	for i, fields := range batches {
		if i > 0 && c.cfg.Delay > 0 {
			c.clock.Sleep(ctx, c.cfg.Delay)
		}
		ev := Event{Batch: i + 1, Total: total, FieldIDs: fields.IDs()}
		if err := ctx.Err(); err != nil {
			c.failBatch(res, fields, ev, err, observe)
			continue
		}
		emit(observe, ev.with(BatchStarted))

		parsed, err := c.generate(ctx, job, fields)
		if err != nil {
			c.failBatch(res, fields, ev, err, observe)
			continue
		}
		ev.Strategy = string(parsed.Strategy)
		found := parsed.Resolve(fields.IDs())
		for _, f := range fields {
			v, ok := found[f.ID]
			switch {
			case !ok:
				res.Fail(f.ID, types.ReasonSlotMissing)
				ev.Missing = append(ev.Missing, f.ID)
			case strings.TrimSpace(v) == "":
				res.Fail(f.ID, types.ReasonSlotEmpty)
				ev.Missing = append(ev.Missing, f.ID)
			default:
				res.Fill(f.ID, Fit(v, f.MaxLength))
				ev.Filled++
			}
		}
		outcome := "ok"
		if len(ev.Missing) > 0 {
			outcome = "partial"
		}
		metrics.BatchOutcomes.WithLabelValues(outcome).Inc()
		c.log.Info("batch mapped",
			"batch", ev.Batch, "total", total,
			"fields", len(fields), "filled", ev.Filled, "missing", len(ev.Missing),
			"strategy", ev.Strategy,
		)
		emit(observe, ev.with(BatchCompleted))
	}
	return res
}

func (c *Coordinator) generate(ctx context.Context, job Job, fields types.Manifest) (*jsonrepair.Result, error) {
	p, err := prompt.Build(prompt.BulkMapRequest{
		Audience:  job.Audience,
		Narrative: job.Narrative,
		Fields:    fields,
	})
	if err != nil {
		return nil, err
	}
	raw, err := c.gen.GenerateText(ctx, p, llmclient.TierFast, llm.NewOperationID("map"))
	if err != nil {
		return nil, err
	}
	parsed, err := jsonrepair.Parse(raw)
	if err != nil {
		return nil, err
	}
	c.log.Debug("batch response parsed", "strategy", parsed.Strategy, "keys", len(parsed.Values))
	return parsed, nil
}

func (c *Coordinator) failBatch(res *types.Result, fields types.Manifest, ev Event, err error, observe Observer) {
	reason := fmt.Sprintf("Batch %d/%d failed: %v", ev.Batch, ev.Total, err)
	for _, f := range fields {
		res.Fail(f.ID, reason)
	}
	metrics.BatchOutcomes.WithLabelValues("failed").Inc()
	c.log.Warn("batch failed", "batch", ev.Batch, "total", ev.Total, "fields", len(fields), "kind", llmclient.KindOf(err).String(), "error", err)
	ev.Error = err.Error()
	ev.Missing = fields.IDs()
	emit(observe, ev.with(BatchFailed))
}
