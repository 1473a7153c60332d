package controllers

import (
	"strconv"
	"sync"
	"time"

	"github.com/amaumene/neocable/internal/models"
	gocache "github.com/patrickmn/go-cache"
)

// MetaCache holds metadata records keyed by TMDB lookup key. Values are
// copied on the way in and out so callers can never mutate a cached
// record except through PatchLink.
type MetaCache struct {
	cache *gocache.Cache
	mu    sync.Mutex
}

// NewMetaCache creates a metadata cache. A zero ttl means entries never
// expire and live for the whole process.
func NewMetaCache(ttl time.Duration) *MetaCache {
	expiry := gocache.NoExpiration
	if ttl > 0 {
		expiry = ttl
	}
	return &MetaCache{cache: gocache.New(expiry, 10*time.Minute)}
}

func cacheKey(key int64) string {
	return strconv.FormatInt(key, 10)
}

// Has reports whether a record exists for the key
func (m *MetaCache) Has(key int64) bool {
	_, ok := m.cache.Get(cacheKey(key))
	return ok
}

// Get returns a copy of the cached record for the key
func (m *MetaCache) Get(key int64) (*models.MetadataRecord, bool) {
	v, ok := m.cache.Get(cacheKey(key))
	if !ok {
		return nil, false
	}
	rec := v.(models.MetadataRecord)
	return &rec, true
}

// Set stores a copy of the record under the key
func (m *MetaCache) Set(key int64, rec *models.MetadataRecord) {
	m.cache.SetDefault(cacheKey(key), *rec)
}

// PatchLink attaches a resolved link to an existing record. The first
// non-empty link wins; later patches are ignored. Returns false when no
// record exists for the key. Two programs can share one lookup key, so
// the read-modify-write is serialized.
func (m *MetaCache) PatchLink(key int64, link string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	v, ok := m.cache.Get(cacheKey(key))
	if !ok {
		return false
	}
	rec := v.(models.MetadataRecord)
	if rec.ResolvedLink != "" {
		return true
	}
	rec.ResolvedLink = link
	m.cache.SetDefault(cacheKey(key), rec)
	return true
}

// Len returns the number of live entries
func (m *MetaCache) Len() int {
	return m.cache.ItemCount()
}
