// Package fieldcodec caches the per-field encoder closures the schema
// package specializes at first use (spec section 9: "the source
// generates per-field encoder closures from templates at first use...
// a tagged-variant encoder object with a dispatch on field kind
// constructed once during resolve").
//
// It depends only on wire, not schema, so schema can depend on it
// without a cycle.
package fieldcodec

import (
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/protodyn/protowire/wire"
)

// EncodeFunc is a compiled, field-kind-specialized encoder.
type EncodeFunc func(value interface{}, w *wire.Writer) error

// Cache compiles each distinct key's encoder exactly once, even when
// multiple goroutines race to encode the same field for the first time
// concurrently (schema.Root is documented as safe for concurrent readers
// once resolved; this is the one place that "first use" laziness could
// otherwise race). Grounded on the teacher's use of golang.org/x/sync
// (semaphore/errgroup) in protoresolve for coordinating concurrent
// descriptor-tree work; singleflight is the member of that family suited
// to "run this exactly once no matter how many callers show up at once."
type Cache struct {
	mu  sync.RWMutex
	fns map[string]EncodeFunc
	sf  singleflight.Group
}

// NewCache returns an empty Cache.
func NewCache() *Cache {
	return &Cache{fns: map[string]EncodeFunc{}}
}

// GetOrCompile returns the cached encoder for key, compiling it via
// compile (and caching the result) if this is the first request for
// that key.
func (c *Cache) GetOrCompile(key string, compile func() EncodeFunc) EncodeFunc {
	c.mu.RLock()
	fn, ok := c.fns[key]
	c.mu.RUnlock()
	if ok {
		return fn
	}

	v, _, _ := c.sf.Do(key, func() (interface{}, error) {
		c.mu.RLock()
		if fn, ok := c.fns[key]; ok {
			c.mu.RUnlock()
			return fn, nil
		}
		c.mu.RUnlock()

		fn := compile()

		c.mu.Lock()
		c.fns[key] = fn
		c.mu.Unlock()
		return fn, nil
	})
	return v.(EncodeFunc)
}

// Invalidate drops a cached encoder, e.g. when a field is re-resolved
// after being removed and re-added to a namespace under the same name.
func (c *Cache) Invalidate(key string) {
	c.mu.Lock()
	delete(c.fns, key)
	c.mu.Unlock()
}
