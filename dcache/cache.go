package dcache

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	logging "github.com/ipfs/go-log/v2"
	"golang.org/x/sync/singleflight"
)

var log = logging.Logger("dcache")

// Cache memoizes loaded payloads of type V by signature, for a bounded time.
type Cache[V any] struct {
	mu      sync.Mutex
	entries map[string]*entry[V]
	// gen advances on every invalidation. Flight keys include it, so loads
	// started before an invalidation cannot satisfy or pollute lookups made
	// after it.
	gen uint64

	ttl time.Duration
	now func() time.Time

	flights singleflight.Group

	hits   atomic.Uint64
	misses atomic.Uint64
}

type entry[V any] struct {
	payload   V
	fetchedAt time.Time
}

// New creates a new cache for payloads of type V.
func New[V any](options ...Option) (*Cache[V], error) {
	opts, err := getOpts(options)
	if err != nil {
		return nil, err
	}
	return &Cache[V]{
		entries: make(map[string]*entry[V]),
		ttl:     opts.ttl,
		now:     opts.now,
	}, nil
}

// GetOrLoad returns the cached payload for signature if a fresh entry exists.
// Otherwise it invokes loader, stores the result with the current time, and
// returns it. Concurrent calls for the same signature during a miss share a
// single loader invocation. Loader failures are returned to every waiting
// caller and are never stored; an already-stored entry survives a failed
// reload.
func (c *Cache[V]) GetOrLoad(ctx context.Context, signature string, loader func(context.Context) (V, error)) (V, error) {
	payload, gen, ok := c.lookup(signature)
	if ok {
		c.hits.Add(1)
		return payload, nil
	}
	c.misses.Add(1)

	result, err, shared := c.flights.Do(fmt.Sprintf("%d/%s", gen, signature), func() (any, error) {
		// A concurrent flight may have stored the payload between the miss
		// and this call winning the flight.
		if payload, _, ok := c.lookup(signature); ok {
			return payload, nil
		}
		payload, err := loader(ctx)
		if err != nil {
			return nil, err
		}
		c.store(signature, gen, payload)
		return payload, nil
	})
	if err != nil {
		log.Debugw("Load failed, nothing cached", "signature", signature, "err", err)
		var zero V
		return zero, err
	}
	if shared {
		log.Debugw("Concurrent loads collapsed", "signature", signature)
	}
	return result.(V), nil
}

// Invalidate removes the entry for signature, if any. The next GetOrLoad for
// the signature always re-fetches, even if a load was already in flight.
func (c *Cache[V]) Invalidate(signature string) {
	c.mu.Lock()
	delete(c.entries, signature)
	c.gen++
	c.mu.Unlock()
}

// Clear removes every entry. The next GetOrLoad for any signature always
// re-fetches.
func (c *Cache[V]) Clear() {
	c.mu.Lock()
	c.entries = make(map[string]*entry[V])
	c.gen++
	c.mu.Unlock()
}

// Len returns the number of stored entries, fresh or expired.
func (c *Cache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Stats returns cumulative hit and miss counts.
func (c *Cache[V]) Stats() (hits, misses uint64) {
	return c.hits.Load(), c.misses.Load()
}

func (c *Cache[V]) lookup(signature string) (V, uint64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[signature]
	if !ok || c.now().Sub(e.fetchedAt) > c.ttl {
		var zero V
		return zero, c.gen, false
	}
	return e.payload, c.gen, true
}

// store records a loaded payload unless an invalidation happened after the
// load began, in which case the payload is stale by definition and dropped.
func (c *Cache[V]) store(signature string, gen uint64, payload V) {
	c.mu.Lock()
	if c.gen == gen {
		c.entries[signature] = &entry[V]{
			payload:   payload,
			fetchedAt: c.now(),
		}
	}
	c.mu.Unlock()
}
