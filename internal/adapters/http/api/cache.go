package api

import (
	"net/http"
	"strconv"

	"github.com/coocood/freecache"

	"github.com/okian/mapboard/internal/domain/types"
	"github.com/okian/mapboard/pkg/metrics"
)

// viewFunc computes the response value of a GET view.
type viewFunc func(r *http.Request) (any, error)

// viewCache keeps encoded view responses keyed by data generation and
// request URI. Entries of older generations are never read again and age
// out of the ring buffer.
type viewCache struct {
	cache      *freecache.Cache
	capacity   int
	generation func() uint64
}

// newViewCache returns a disabled cache when bytes is zero.
func newViewCache(bytes int, generation func() uint64) *viewCache {
	c := &viewCache{generation: generation}
	if bytes > 0 {
		c.cache = freecache.NewCache(bytes)
		c.capacity = bytes
	}
	return c
}

func (c *viewCache) enabled() bool { return c != nil && c.cache != nil }

func (c *viewCache) key(r *http.Request) []byte {
	return []byte(strconv.FormatUint(c.generation(), 10) + "|" + r.URL.RequestURI())
}

// wrap serves fn through the cache. Errors are never cached.
func (c *viewCache) wrap(fn viewFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var key []byte
		if c.enabled() {
			key = c.key(r)
			if body, err := c.cache.Get(key); err == nil {
				metrics.RecordCacheLookup(true)
				w.Header().Set("X-Cache", "hit")
				writeBody(w, http.StatusOK, body)
				return
			}
			metrics.RecordCacheLookup(false)
		}

		v, err := fn(r)
		if err != nil {
			writeServiceError(r.Context(), w, err)
			return
		}
		body, err := encode(v)
		if err != nil {
			writeServiceError(r.Context(), w, err)
			return
		}
		body = append(body, '\n')
		if c.enabled() {
			_ = c.cache.Set(key, body, 0)
			w.Header().Set("X-Cache", "miss")
		}
		writeBody(w, http.StatusOK, body)
	}
}

// stats returns nil when the cache is disabled.
func (c *viewCache) stats() *types.CacheStats {
	if !c.enabled() {
		return nil
	}
	return &types.CacheStats{
		Entries:  c.cache.EntryCount(),
		Hits:     c.cache.HitCount(),
		Misses:   c.cache.MissCount(),
		HitRate:  c.cache.HitRate(),
		Evicted:  c.cache.EvacuateCount(),
		Capacity: c.capacity,
	}
}
