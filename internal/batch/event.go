package batch

// EventKind identifies a progress event.
type EventKind string

const (
	BatchStarted   EventKind = "batch_started"
	BatchCompleted EventKind = "batch_completed"
	BatchFailed    EventKind = "batch_failed"
)

// Event reports progress of one batch. Batch is 1-based.
type Event struct {
	Kind     EventKind `json:"kind"`
	Batch    int       `json:"batch"`
	Total    int       `json:"total"`
	FieldIDs []string  `json:"fieldIds"`
	Filled   int       `json:"filled,omitempty"`
	Missing  []string  `json:"missing,omitempty"`
	Strategy string    `json:"strategy,omitempty"`
	Error    string    `json:"error,omitempty"`
}

// Observer receives events synchronously on the coordinator's goroutine.
type Observer func(Event)

func (e Event) with(k EventKind) Event {
	e.Kind = k
	return e
}

func emit(o Observer, e Event) {
	if o != nil {
		o(e)
	}
}
