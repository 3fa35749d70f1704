package middleware

import (
	"container/list"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/llmkit-go/llmkit/provider"
)

// CacheConfig configures the response cache.
//
// Deduplication uses golang.org/x/sync/singleflight (present transitively
// in the teacher's module graph via its web framework dependencies;
// promoted here to a direct, exercised dependency) so concurrent identical
// requests share one upstream call. Eviction is a hand-rolled TTL+LRU
// (container/list + map): no ecosystem LRU turned up anywhere in the
// example corpus, so this follows the teacher's fallback-to-small-utility
// approach seen in pkg/schema's StructValidator.
type CacheConfig struct {
	MaxEntries int
	TTL        time.Duration
	// MaxBytes caps the cache's total estimated byte footprint; entries
	// are evicted LRU-first once exceeded. Zero means unbounded.
	MaxBytes int64
	// MaxEntryBytes rejects (pass-through, not cached) any single
	// Response whose estimated size exceeds it. Zero means unbounded.
	MaxEntryBytes int64
}

type cacheEntry struct {
	key     string
	value   *provider.Response
	expires time.Time
	bytes   int64
	elem    *list.Element
}

// ResponseCache is a TTL+LRU cache of provider.Response keyed by a
// fingerprint of the request, with single-flight de-duplication of
// concurrent misses.
type ResponseCache struct {
	cfg        CacheConfig
	mu         sync.Mutex
	index      map[string]*cacheEntry
	order      *list.List
	totalBytes int64
	group      singleflight.Group
}

func NewResponseCache(cfg CacheConfig) *ResponseCache {
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = 256
	}
	return &ResponseCache{cfg: cfg, index: map[string]*cacheEntry{}, order: list.New()}
}

// Fingerprint hashes the semantically relevant fields of req into a stable
// cache key.
func Fingerprint(req provider.Request) string {
	buf, _ := json.Marshal(struct {
		Model          string
		Messages       []provider.Message
		System         string
		Tools          []provider.Tool
		Parameters     provider.Parameters
		ResponseFormat *provider.ResponseFormat
	}{req.Model, req.Messages, req.System, req.Tools, req.Parameters, req.ResponseFormat})
	sum := sha256.Sum256(buf)
	return hex.EncodeToString(sum[:])
}

// responseSize estimates a Response's cache footprint as its JSON-encoded
// byte length. Used only for the entry/total byte caps, not for wire I/O.
func responseSize(resp *provider.Response) int64 {
	buf, err := json.Marshal(resp)
	if err != nil {
		return 0
	}
	return int64(len(buf))
}

func (c *ResponseCache) get(key string) (*provider.Response, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.index[key]
	if !ok {
		return nil, false
	}
	if time.Now().After(e.expires) {
		c.removeLocked(e)
		return nil, false
	}
	c.order.MoveToFront(e.elem)
	return e.value, true
}

// put stores value under key, unless it exceeds MaxEntryBytes, in which
// case it is silently rejected (pass-through: the caller already has the
// response, it's just never cached).
func (c *ResponseCache) put(key string, value *provider.Response) {
	size := responseSize(value)
	if c.cfg.MaxEntryBytes > 0 && size > c.cfg.MaxEntryBytes {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.index[key]; ok {
		c.totalBytes += size - e.bytes
		e.value = value
		e.bytes = size
		e.expires = time.Now().Add(c.cfg.TTL)
		c.order.MoveToFront(e.elem)
	} else {
		e := &cacheEntry{key: key, value: value, expires: time.Now().Add(c.cfg.TTL), bytes: size}
		e.elem = c.order.PushFront(e)
		c.index[key] = e
		c.totalBytes += size
	}

	for c.order.Len() > c.cfg.MaxEntries {
		c.removeLocked(c.order.Back().Value.(*cacheEntry))
	}
	for c.cfg.MaxBytes > 0 && c.totalBytes > c.cfg.MaxBytes && c.order.Len() > 0 {
		c.removeLocked(c.order.Back().Value.(*cacheEntry))
	}
}

func (c *ResponseCache) removeLocked(e *cacheEntry) {
	c.order.Remove(e.elem)
	c.totalBytes -= e.bytes
	delete(c.index, e.key)
}

// Cache returns a GenerateLayer backed by this cache. Streaming calls are
// never cached since spec semantics treat each stream as a live sequence.
func (c *ResponseCache) Cache() GenerateLayer {
	return LayerFunc[provider.Request, *provider.Response](func(next GenerateService) GenerateService {
		return ServiceFunc[provider.Request, *provider.Response](func(ctx context.Context, req provider.Request) (*provider.Response, error) {
			key := Fingerprint(req)
			if v, ok := c.get(key); ok {
				cp := *v
				return &cp, nil
			}

			v, err, _ := c.group.Do(key, func() (any, error) {
				resp, err := next.Handle(ctx, req)
				if err != nil {
					return nil, err
				}
				c.put(key, resp)
				return resp, nil
			})
			if err != nil {
				return nil, err
			}
			cp := *v.(*provider.Response)
			return &cp, nil
		})
	})
}
