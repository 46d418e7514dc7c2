// Package artifact fronts a run archive store with in-memory read caches.
package artifact

import (
	"context"
	"errors"
	"strings"
	"time"

	memcache "pagecopy/internal/cache/memory"
	artifactrepo "pagecopy/internal/gateway/repository/artifact"
	"pagecopy/internal/metrics"
)

type Store = artifactrepo.Store

// ErrNoPresign is returned by PresignedURL when the origin cannot sign.
var ErrNoPresign = errors.New("artifact: origin cannot presign urls")

type presigner interface {
	PresignedURL(ctx context.Context, runID, name string, ttl time.Duration) (string, error)
}

type CacheConfig struct {
	BlobTTL        time.Duration
	BlobMaxEntries int
	BlobMaxBytes   int

	ListTTL        time.Duration
	ListMaxEntries int

	URLTTL        time.Duration
	URLMaxEntries int
}

func DefaultCacheConfig() CacheConfig {
	return CacheConfig{
		BlobTTL:        5 * time.Minute,
		BlobMaxEntries: 1024,
		BlobMaxBytes:   64 * 1024 * 1024, // 64MiB
		ListTTL:        30 * time.Second,
		ListMaxEntries: 512,
		URLTTL:         5 * time.Minute,
		URLMaxEntries:  1024,
	}
}

// CachedStore writes through to origin and serves repeated reads of run
// artifacts, file lists and presigned urls from memory.
type CachedStore struct {
	origin Store

	blobCache *memcache.LRUTTL[string, []byte]
	listCache *memcache.LRUTTL[string, []string]
	urlCache  *memcache.LRUTTL[string, string]
}

func NewCachedStore(origin Store, cfg CacheConfig) *CachedStore {
	def := DefaultCacheConfig()
	if cfg.BlobTTL <= 0 {
		cfg.BlobTTL = def.BlobTTL
	}
	if cfg.BlobMaxEntries <= 0 {
		cfg.BlobMaxEntries = def.BlobMaxEntries
	}
	if cfg.BlobMaxBytes < 0 {
		cfg.BlobMaxBytes = def.BlobMaxBytes
	}
	if cfg.ListTTL <= 0 {
		cfg.ListTTL = def.ListTTL
	}
	if cfg.ListMaxEntries <= 0 {
		cfg.ListMaxEntries = def.ListMaxEntries
	}
	if cfg.URLTTL <= 0 {
		cfg.URLTTL = def.URLTTL
	}
	if cfg.URLMaxEntries <= 0 {
		cfg.URLMaxEntries = def.URLMaxEntries
	}
	return &CachedStore{
		origin:    origin,
		blobCache: memcache.NewLRUTTL[string, []byte](cfg.BlobMaxEntries, cfg.BlobMaxBytes, cfg.BlobTTL),
		listCache: memcache.NewLRUTTL[string, []string](cfg.ListMaxEntries, 0, cfg.ListTTL),
		urlCache:  memcache.NewLRUTTL[string, string](cfg.URLMaxEntries, 0, cfg.URLTTL),
	}
}

func (s *CachedStore) Put(ctx context.Context, runID, name string, content []byte) error {
	if err := s.origin.Put(ctx, runID, name, content); err != nil {
		return err
	}
	key := artifactKey(runID, name)
	copied := append([]byte(nil), content...)
	s.blobCache.Set(key, copied, len(copied))
	s.listCache.Delete(strings.TrimSpace(runID))
	s.urlCache.Delete(key)
	return nil
}

func (s *CachedStore) Get(ctx context.Context, runID, name string) ([]byte, error) {
	key := artifactKey(runID, name)
	if raw, ok := s.blobCache.Get(key); ok {
		observe("blob", true)
		return append([]byte(nil), raw...), nil
	}
	observe("blob", false)

	raw, err := s.origin.Get(ctx, runID, name)
	if err != nil {
		return nil, err
	}
	copied := append([]byte(nil), raw...)
	s.blobCache.Set(key, copied, len(copied))
	return append([]byte(nil), copied...), nil
}

func (s *CachedStore) List(ctx context.Context, runID string) ([]string, error) {
	runID = strings.TrimSpace(runID)
	if list, ok := s.listCache.Get(runID); ok {
		observe("list", true)
		return append([]string(nil), list...), nil
	}
	observe("list", false)

	list, err := s.origin.List(ctx, runID)
	if err != nil {
		return nil, err
	}
	copied := append([]string(nil), list...)
	approxBytes := 0
	for _, v := range copied {
		approxBytes += len(v)
	}
	s.listCache.Set(runID, copied, approxBytes)
	return append([]string(nil), copied...), nil
}

// PresignedURL delegates to the origin when it can sign; signed urls are
// reused for URLTTL, which should stay below the signing ttl.
func (s *CachedStore) PresignedURL(ctx context.Context, runID, name string, ttl time.Duration) (string, error) {
	p, ok := s.origin.(presigner)
	if !ok {
		return "", ErrNoPresign
	}
	key := artifactKey(runID, name)
	if cached, ok := s.urlCache.Get(key); ok {
		observe("url", true)
		return cached, nil
	}
	observe("url", false)

	url, err := p.PresignedURL(ctx, runID, name, ttl)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(url) != "" {
		s.urlCache.Set(key, url, len(url))
	}
	return url, nil
}

func artifactKey(runID, name string) string {
	return strings.TrimSpace(runID) + "/" + strings.TrimLeft(strings.TrimSpace(name), "/")
}

func observe(kind string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	metrics.ArchiveCache.WithLabelValues(kind, result).Inc()
}
