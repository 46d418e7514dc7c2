package memory

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Narratives keeps synthesized narratives addressable by id for follow-up
// mapping and regeneration calls.
type Narratives struct {
	c *LRUTTL[string, string]
}

// NewNarratives bounds the store by entry count and total text bytes.
func NewNarratives(maxEntries, maxBytes int, ttl time.Duration) *Narratives {
	return &Narratives{c: NewLRUTTL[string, string](maxEntries, maxBytes, ttl)}
}

// Put stores text under a fresh id.
func (n *Narratives) Put(text string) string {
	id := uuid.NewString()
	n.c.Set(id, text, len(text))
	return id
}

func (n *Narratives) Get(id string) (string, bool) {
	return n.c.Get(strings.TrimSpace(id))
}

func (n *Narratives) Len() int { return n.c.Len() }
