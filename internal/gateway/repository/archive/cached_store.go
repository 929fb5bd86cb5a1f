package archive

import (
	"context"
	"strings"
	"sync/atomic"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

type CacheConfig struct {
	BlobTTL        time.Duration
	BlobMaxEntries int

	ListTTL        time.Duration
	ListMaxEntries int

	URLTTL        time.Duration
	URLMaxEntries int
}

func DefaultCacheConfig() CacheConfig {
	return CacheConfig{
		BlobTTL:        5 * time.Minute,
		BlobMaxEntries: 128,
		ListTTL:        30 * time.Second,
		ListMaxEntries: 256,
		URLTTL:         5 * time.Minute,
		URLMaxEntries:  512,
	}
}

type MetricsSnapshot struct {
	BlobHits     uint64
	BlobMisses   uint64
	ListHits     uint64
	ListMisses   uint64
	URLHits      uint64
	URLMisses    uint64
	OriginReads  uint64
	OriginWrites uint64
}

type cacheMetrics struct {
	blobHits, blobMisses     atomic.Uint64
	listHits, listMisses     atomic.Uint64
	urlHits, urlMisses       atomic.Uint64
	originReads, originWrite atomic.Uint64
}

// CachedStore fronts an origin Store with read-through LRU caches.
type CachedStore struct {
	origin Store

	blobs   *expirable.LRU[string, []byte]
	lists   *expirable.LRU[string, []string]
	urls    *expirable.LRU[string, string]
	metrics cacheMetrics
}

func NewCachedStore(origin Store, cfg CacheConfig) *CachedStore {
	def := DefaultCacheConfig()
	if cfg.BlobTTL <= 0 {
		cfg.BlobTTL = def.BlobTTL
	}
	if cfg.BlobMaxEntries <= 0 {
		cfg.BlobMaxEntries = def.BlobMaxEntries
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
		origin: origin,
		blobs:  expirable.NewLRU[string, []byte](cfg.BlobMaxEntries, nil, cfg.BlobTTL),
		lists:  expirable.NewLRU[string, []string](cfg.ListMaxEntries, nil, cfg.ListTTL),
		urls:   expirable.NewLRU[string, string](cfg.URLMaxEntries, nil, cfg.URLTTL),
	}
}

func (s *CachedStore) Put(ctx context.Context, planID, path string, content []byte) error {
	s.metrics.originWrite.Add(1)
	if err := s.origin.Put(ctx, planID, path, content); err != nil {
		return err
	}
	key := cacheKey(planID, path)
	s.blobs.Add(key, append([]byte(nil), content...))
	s.lists.Remove(strings.TrimSpace(planID))
	s.urls.Remove(key)
	return nil
}

func (s *CachedStore) Get(ctx context.Context, planID, path string) ([]byte, error) {
	key := cacheKey(planID, path)
	if raw, ok := s.blobs.Get(key); ok {
		s.metrics.blobHits.Add(1)
		return append([]byte(nil), raw...), nil
	}
	s.metrics.blobMisses.Add(1)
	s.metrics.originReads.Add(1)

	raw, err := s.origin.Get(ctx, planID, path)
	if err != nil {
		return nil, err
	}
	s.blobs.Add(key, append([]byte(nil), raw...))
	return raw, nil
}

func (s *CachedStore) GetURL(ctx context.Context, planID, path string) (string, error) {
	key := cacheKey(planID, path)
	if u, ok := s.urls.Get(key); ok {
		s.metrics.urlHits.Add(1)
		return u, nil
	}
	s.metrics.urlMisses.Add(1)
	s.metrics.originReads.Add(1)

	u, err := s.origin.GetURL(ctx, planID, path)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(u) != "" {
		s.urls.Add(key, u)
	}
	return u, nil
}

func (s *CachedStore) List(ctx context.Context, planID string) ([]string, error) {
	planID = strings.TrimSpace(planID)
	if list, ok := s.lists.Get(planID); ok {
		s.metrics.listHits.Add(1)
		return append([]string(nil), list...), nil
	}
	s.metrics.listMisses.Add(1)
	s.metrics.originReads.Add(1)

	list, err := s.origin.List(ctx, planID)
	if err != nil {
		return nil, err
	}
	s.lists.Add(planID, append([]string(nil), list...))
	return list, nil
}

func (s *CachedStore) Metrics() MetricsSnapshot {
	if s == nil {
		return MetricsSnapshot{}
	}
	m := &s.metrics
	return MetricsSnapshot{
		BlobHits:     m.blobHits.Load(),
		BlobMisses:   m.blobMisses.Load(),
		ListHits:     m.listHits.Load(),
		ListMisses:   m.listMisses.Load(),
		URLHits:      m.urlHits.Load(),
		URLMisses:    m.urlMisses.Load(),
		OriginReads:  m.originReads.Load(),
		OriginWrites: m.originWrite.Load(),
	}
}

func cacheKey(planID, path string) string {
	return strings.TrimSpace(planID) + "/" + strings.TrimLeft(strings.TrimSpace(path), "/")
}
