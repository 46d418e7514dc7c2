package memory

import (
	"testing"
	"time"

	"pagecopy/internal/tester"
)

func TestLRUTTL_EvictsLeastRecentlyUsed(t *testing.T) {
	c := NewLRUTTL[string, int](2, 0, time.Minute)
	c.Set("a", 1, 0)
	c.Set("b", 2, 0)
	_, _ = c.Get("a")
	c.Set("c", 3, 0)

	_, ok := c.Get("b")
	tester.False(t, ok, "b was least recently used")
	v, ok := c.Get("a")
	tester.True(t, ok)
	tester.Eq(t, v, 1)
}

func TestLRUTTL_ExpiresEntries(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewLRUTTL[string, string](4, 0, time.Minute)
	c.now = func() time.Time { return now }
	c.Set("k", "v", 1)

	now = now.Add(59 * time.Second)
	_, ok := c.Get("k")
	tester.True(t, ok)

	now = now.Add(2 * time.Second)
	_, ok = c.Get("k")
	tester.False(t, ok)
	tester.Eq(t, c.Len(), 0)
}

func TestLRUTTL_ByteBudget(t *testing.T) {
	c := NewLRUTTL[string, string](10, 10, time.Minute)
	c.Set("a", "aaaaaa", 6)
	c.Set("b", "bbbbbb", 6)
	_, ok := c.Get("a")
	tester.False(t, ok)
	tester.Eq(t, c.Len(), 1)
}

func TestNarratives_PutGet(t *testing.T) {
	n := NewNarratives(8, 0, time.Hour)
	id := n.Put("Once upon a time.")
	got, ok := n.Get(" " + id + " ")
	tester.True(t, ok)
	tester.Eq(t, got, "Once upon a time.")
	tester.True(t, n.Put("x") != id, "ids are unique")
	_, ok = n.Get("missing")
	tester.False(t, ok)
}
