package artifact

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"pagecopy/internal/types"
	"pagecopy/internal/util/jsonutil"
)

// Artifact names of an archived generation run.
const (
	NarrativeFile = "narrative.txt"
	ManifestFile  = "manifest.json"
	ResultFile    = "result.json"
)

// Run is one archived full generation.
type Run struct {
	ID        string         `json:"id"`
	Narrative string         `json:"narrative"`
	Manifest  types.Manifest `json:"manifest"`
	Result    *types.Result  `json:"result"`
	// URLs holds download links when the store can presign them.
	URLs map[string]string `json:"urls,omitempty"`
}

type presigner interface {
	PresignedURL(ctx context.Context, runID, name string, ttl time.Duration) (string, error)
}

// Archive writes and reads runs through a Store.
type Archive struct {
	store Store
}

func NewArchive(store Store) *Archive { return &Archive{store: store} }

func (a *Archive) Save(ctx context.Context, run Run) error {
	manifest, err := jsonutil.MarshalNoEscapeIndent(run.Manifest, "", "  ")
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}
	result, err := jsonutil.MarshalNoEscapeIndent(run.Result, "", "  ")
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	files := []struct {
		name string
		data []byte
	}{
		{NarrativeFile, []byte(run.Narrative)},
		{ManifestFile, manifest},
		{ResultFile, result},
	}
	for _, f := range files {
		if err := a.store.Put(ctx, run.ID, f.name, f.data); err != nil {
			return fmt.Errorf("put %s: %w", f.name, err)
		}
	}
	return nil
}

// Load reads a run back. ErrNotFound is returned when the run has no result.
func (a *Archive) Load(ctx context.Context, runID string) (*Run, error) {
	raw, err := a.store.Get(ctx, runID, ResultFile)
	if err != nil {
		return nil, err
	}
	run := &Run{ID: runID, Result: types.NewResult()}
	if err := json.Unmarshal(raw, run.Result); err != nil {
		return nil, fmt.Errorf("decode result: %w", err)
	}
	if raw, err := a.store.Get(ctx, runID, ManifestFile); err == nil {
		if err := json.Unmarshal(raw, &run.Manifest); err != nil {
			return nil, fmt.Errorf("decode manifest: %w", err)
		}
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	if raw, err := a.store.Get(ctx, runID, NarrativeFile); err == nil {
		run.Narrative = string(raw)
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	if p, ok := a.store.(presigner); ok {
		run.URLs = map[string]string{}
		for _, name := range []string{NarrativeFile, ManifestFile, ResultFile} {
			if u, err := p.PresignedURL(ctx, runID, name, time.Hour); err == nil {
				run.URLs[name] = u
			}
		}
	}
	return run, nil
}

// Files lists the artifact names stored for a run.
func (a *Archive) Files(ctx context.Context, runID string) ([]string, error) {
	return a.store.List(ctx, runID)
}
