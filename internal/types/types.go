package types

import (
	"fmt"
	"strings"
)

// Slot definitions ----------------------------------------------------------------

// SemanticType is the content class of a slot.
type SemanticType string

const (
	Headline    SemanticType = "headline"
	Subheadline SemanticType = "subheadline"
	Paragraph   SemanticType = "paragraph"
	List        SemanticType = "list"
	CTA         SemanticType = "cta"
	Image       SemanticType = "image"
)

var semanticTypes = map[SemanticType]bool{
	Headline: true, Subheadline: true, Paragraph: true, List: true, CTA: true, Image: true,
}

// Generable reports whether slots of this type carry a text generation obligation.
func (t SemanticType) Generable() bool { return t != Image }

type SlotField struct {
	ID           string       `json:"id" yaml:"id"`
	Label        string       `json:"label" yaml:"label"`
	SemanticType SemanticType `json:"semanticType" yaml:"semanticType"`
	MaxLength    int          `json:"maxLength,omitempty" yaml:"maxLength,omitempty"`
	Instructions string       `json:"instructions,omitempty" yaml:"instructions,omitempty"`
}

// Manifest is an ordered list of slot fields. Order is significant.
type Manifest []SlotField

// IDs returns the field ids in manifest order.
func (m Manifest) IDs() []string {
	out := make([]string, 0, len(m))
	for _, f := range m {
		out = append(out, f.ID)
	}
	return out
}

// Generable drops fields that carry no generation obligation (images).
func (m Manifest) Generable() Manifest {
	out := make(Manifest, 0, len(m))
	for _, f := range m {
		if f.SemanticType.Generable() {
			out = append(out, f)
		}
	}
	return out
}

// Validate checks id uniqueness and semantic types.
func (m Manifest) Validate() error {
	seen := make(map[string]struct{}, len(m))
	for i, f := range m {
		id := strings.TrimSpace(f.ID)
		if id == "" {
			return fmt.Errorf("types: field %d has empty id", i)
		}
		if _, dup := seen[id]; dup {
			return fmt.Errorf("types: duplicate field id %q", id)
		}
		seen[id] = struct{}{}
		if !semanticTypes[f.SemanticType] {
			return fmt.Errorf("types: field %q has unknown semantic type %q", id, f.SemanticType)
		}
		if f.MaxLength < 0 {
			return fmt.Errorf("types: field %q has negative maxLength", id)
		}
	}
	return nil
}

// Detector output ---------------------------------------------------------------

// ContentRegion is a detected editable region. The detector marks the
// element in the document with the region id; the region itself keeps no
// reference to the document.
type ContentRegion struct {
	ID           string       `json:"id"`
	SemanticType SemanticType `json:"semanticType"`
	Label        string       `json:"label"`
}

// DetectionResult is the manifest consumer boundary.
type DetectionResult struct {
	MarkedHTML string          `json:"markedHtml"`
	Slots      []ContentRegion `json:"slots"`
}

// Manifest converts detected regions into slot fields, keeping order.
func (r DetectionResult) Manifest() Manifest {
	out := make(Manifest, 0, len(r.Slots))
	for _, s := range r.Slots {
		out = append(out, SlotField{ID: s.ID, Label: s.Label, SemanticType: s.SemanticType})
	}
	return out
}
