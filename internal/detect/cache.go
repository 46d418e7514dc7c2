package detect

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"pagecopy/internal/types"
)

// CachedDetector memoizes detection by input digest and collapses
// concurrent detections of the same input into one.
type CachedDetector struct {
	d     *Detector
	cache *lru.Cache[string, *types.DetectionResult]
	group singleflight.Group
}

func NewCached(d *Detector, size int) (*CachedDetector, error) {
	if size <= 0 {
		size = 256
	}
	c, err := lru.New[string, *types.DetectionResult](size)
	if err != nil {
		return nil, fmt.Errorf("detect: cache: %w", err)
	}
	return &CachedDetector{d: d, cache: c}, nil
}

// Detect returns a copy of the cached result when one exists.
func (c *CachedDetector) Detect(src string) (*types.DetectionResult, error) {
	key := digest(src)
	if r, ok := c.cache.Get(key); ok {
		return clone(r), nil
	}
	v, err, _ := c.group.Do(key, func() (any, error) {
		r, err := c.d.Detect(src)
		if err != nil {
			return nil, err
		}
		c.cache.Add(key, r)
		return r, nil
	})
	if err != nil {
		return nil, err
	}
	return clone(v.(*types.DetectionResult)), nil
}

func (c *CachedDetector) Len() int { return c.cache.Len() }

func digest(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

func clone(r *types.DetectionResult) *types.DetectionResult {
	out := *r
	out.Slots = append([]types.ContentRegion(nil), r.Slots...)
	return &out
}
