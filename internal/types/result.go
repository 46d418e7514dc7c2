package types

// Reasons recorded per slot id in Result.SlotErrors.
const (
	ReasonSlotMissing = "Slot not found in AI response"
	ReasonSlotEmpty   = "Slot returned empty content"
)

// Result is the outcome of a mapping or full generation. Partial success is
// a normal outcome: Slots carries what was recovered, SlotErrors the rest.
type Result struct {
	Slots       *ContentMap       `json:"slots"`
	Success     bool              `json:"success"`
	Error       string            `json:"error,omitempty"`
	ErrorKind   string            `json:"errorKind,omitempty"`
	SlotErrors  map[string]string `json:"slotErrors,omitempty"`
	Narrative   string            `json:"narrative,omitempty"`
	NarrativeID string            `json:"narrativeId,omitempty"`
	RunID       string            `json:"runId,omitempty"`
}

// NewResult returns an empty result with initialized maps.
func NewResult() *Result {
	return &Result{Slots: NewContentMap(), SlotErrors: map[string]string{}}
}

// Fail records a per-slot failure unless the slot already has content.
func (r *Result) Fail(id, reason string) {
	if r.Slots.Has(id) {
		return
	}
	if r.SlotErrors == nil {
		r.SlotErrors = map[string]string{}
	}
	r.SlotErrors[id] = reason
}

// Fill records content for a slot and clears any earlier failure for it.
func (r *Result) Fill(id, text string) {
	r.Slots.Set(id, text)
	delete(r.SlotErrors, id)
}

// Finalize sets Success from the error state.
func (r *Result) Finalize() *Result {
	r.Success = r.Error == "" && len(r.SlotErrors) == 0
	if len(r.SlotErrors) == 0 {
		r.SlotErrors = nil
	}
	return r
}
