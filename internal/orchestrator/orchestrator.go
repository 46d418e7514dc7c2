// Package orchestrator sequences narrative synthesis and slot mapping and
// exposes the generation contract used by the API and the CLI.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"pagecopy/internal/batch"
	"pagecopy/internal/cache/memory"
	"pagecopy/internal/gateway/repository/artifact"
	"pagecopy/internal/llm"
	"pagecopy/internal/logger"
	"pagecopy/internal/types"
)

var (
	// ErrInvalidRequest wraps request validation failures.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrNarrativeNotFound is returned for an unknown or expired narrative id.
	ErrNarrativeNotFound = errors.New("narrative not found")
)

// NarrativeStore keeps narratives addressable by id.
type NarrativeStore interface {
	Put(text string) string
	Get(id string) (string, bool)
}

// RunArchive persists completed generation runs.
type RunArchive interface {
	Save(ctx context.Context, run artifact.Run) error
}

type Options struct {
	Batch      batch.Config
	Narratives NarrativeStore
	Archive    RunArchive
	Logger     *logger.Logger
	// Clock drives the inter-batch delay.
	Clock llm.Clock
}

type Orchestrator struct {
	gen        batch.Generator
	batches    *batch.Coordinator
	narratives NarrativeStore
	archive    RunArchive
	log        *logger.Logger
}

func New(gen batch.Generator, opts Options) *Orchestrator {
	log := logger.OrNop(opts.Logger)
	var bopts []batch.Option
	if opts.Clock != nil {
		bopts = append(bopts, batch.WithClock(opts.Clock))
	}
	narratives := opts.Narratives
	if narratives == nil {
		narratives = memory.NewNarratives(256, 64<<20, 24*time.Hour)
	}
	return &Orchestrator{
		gen:        gen,
		batches:    batch.NewCoordinator(gen, opts.Batch, log.With("component", "batch"), bopts...),
		narratives: narratives,
		archive:    opts.Archive,
		log:        log,
	}
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidRequest, fmt.Sprintf(format, args...))
}

// resolveNarrative prefers inline text over an id reference.
func (o *Orchestrator) resolveNarrative(text, id string) (string, error) {
	if strings.TrimSpace(text) != "" {
		return text, nil
	}
	if strings.TrimSpace(id) == "" {
		return "", invalid("narrative or narrativeId is required")
	}
	text, ok := o.narratives.Get(id)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrNarrativeNotFound, id)
	}
	return text, nil
}

func validManifest(fields types.Manifest) (types.Manifest, error) {
	if err := fields.Validate(); err != nil {
		return nil, invalid("%v", err)
	}
	gen := fields.Generable()
	if len(gen) == 0 {
		return nil, invalid("manifest has no generable fields")
	}
	return gen, nil
}
