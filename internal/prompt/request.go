package prompt

import (
	"errors"
	"fmt"

	"pagecopy/internal/types"
)

// Kind names the four prompt operations.
type Kind string

const (
	KindNarrative  Kind = "narrative"
	KindSingleSlot Kind = "single_slot"
	KindBulkMap    Kind = "bulk_map"
	KindRegenerate Kind = "regenerate"
)

// Request is one of NarrativeRequest, SingleSlotRequest, BulkMapRequest or
// RegenerateRequest.
type Request interface {
	Kind() Kind
}

type NarrativeRequest struct {
	Brief types.Brief
}

type SingleSlotRequest struct {
	Audience  types.Audience
	Narrative string
	Field     types.SlotField
}

type BulkMapRequest struct {
	Audience  types.Audience
	Narrative string
	Fields    types.Manifest
}

type RegenerateRequest struct {
	Audience  types.Audience
	Narrative string
	Field     types.SlotField
	// Previous is the text being replaced; the new text must differ from it.
	Previous string
	// Feedback is an optional editor note.
	Feedback string
}

func (NarrativeRequest) Kind() Kind  { return KindNarrative }
func (SingleSlotRequest) Kind() Kind { return KindSingleSlot }
func (BulkMapRequest) Kind() Kind    { return KindBulkMap }
func (RegenerateRequest) Kind() Kind { return KindRegenerate }

var ErrEmptyNarrative = errors.New("prompt: narrative is required")

// Build renders the prompt for req. Identical requests yield identical text.
func Build(req Request) (string, error) {
	switch r := req.(type) {
	case NarrativeRequest:
		return Narrative(r), nil
	case SingleSlotRequest:
		if r.Narrative == "" {
			return "", ErrEmptyNarrative
		}
		return SingleSlot(r), nil
	case BulkMapRequest:
		if r.Narrative == "" {
			return "", ErrEmptyNarrative
		}
		if len(r.Fields) == 0 {
			return "", errors.New("prompt: bulk map needs at least one field")
		}
		return BulkMap(r), nil
	case RegenerateRequest:
		if r.Narrative == "" {
			return "", ErrEmptyNarrative
		}
		return Regenerate(r), nil
	case nil:
		return "", errors.New("prompt: nil request")
	default:
		return "", fmt.Errorf("prompt: unsupported request %T", req)
	}
}
