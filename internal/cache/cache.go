// Package cache provides the get-or-compute store for region generation.
//
// The cache is the only mutable state shared between orchestrator tasks. All
// mutation goes through GetOrCompute, which guarantees at most one concurrent
// computation per fingerprint: concurrent callers for the same key await the
// single in-flight result instead of duplicating work.
package cache

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"
)

// Entry is one cached computation. Entries are immutable once written: a
// recomputation for the same key produces a new Entry value, never an
// in-place mutation, so concurrent readers cannot observe a half-written
// value.
type Entry struct {
	Key         string
	Output      string
	CreatedAt   time.Time
	Generations int64 // number of requests served by this entry
}

// Backing is an optional durable store consulted on memory misses and
// populated on successful computes. Get returns (nil, nil) on a miss.
type Backing interface {
	Get(ctx context.Context, key string) (*Entry, error)
	Put(ctx context.Context, entry Entry) error
	Close() error
}

// BackingError wraps a durable-backing failure. It aborts only the
// computations that needed the backing, never the whole run.
type BackingError struct {
	Op  string
	Key string
	Err error
}

func (e *BackingError) Error() string {
	return fmt.Sprintf("cache backing %s for key %s: %v", e.Op, e.Key, e.Err)
}

func (e *BackingError) Unwrap() error { return e.Err }

// Cache is an in-memory, optionally durable, single-flight compute cache.
//
// Thread-safety: all methods are safe for concurrent use. The entry map is
// guarded by mu; duplicate-compute collapse is delegated to
// singleflight.Group, which releases the key on every exit path including
// panics inside compute.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]Entry

	group   singleflight.Group
	backing Backing
	now     func() time.Time

	persistFailures atomic.Int64
}

// Option configures a Cache.
type Option func(*Cache)

// WithBacking attaches a durable backing store. The cache owns the backing
// and closes it on Close.
func WithBacking(b Backing) Option {
	return func(c *Cache) { c.backing = b }
}

// WithClock overrides the time source for Entry.CreatedAt. Used by tests for
// deterministic timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// New creates an empty cache.
func New(opts ...Option) *Cache {
	c := &Cache{
		entries: make(map[string]Entry),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetOrCompute returns the cached output for key, computing it at most once
// across all concurrent callers.
//
// Semantics:
//   - Hit: compute is not invoked.
//   - Miss: exactly one caller runs compute; every concurrent caller for the
//     same key receives that one result, success or failure.
//   - Failure: the error is reported to all waiting callers and nothing is
//     cached, so the key stays eligible for retry.
//   - Cancellation: a compute aborted by ctx publishes no entry.
//   - Panic inside compute is recovered into an error; the key is never
//     left permanently locked.
func (c *Cache) GetOrCompute(ctx context.Context, key string, compute func(context.Context) (string, error)) (string, error) {
	if output, ok := c.hit(key); ok {
		return output, nil
	}

	v, err, _ := c.group.Do(key, func() (result any, err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("compute for key %s panicked: %v", key, r)
			}
		}()

		// A racing caller may have published between our miss and the
		// singleflight section.
		if output, ok := c.hit(key); ok {
			return output, nil
		}

		if c.backing != nil {
			entry, berr := c.backing.Get(ctx, key)
			if berr != nil {
				return "", &BackingError{Op: "get", Key: key, Err: berr}
			}
			if entry != nil {
				c.publish(*entry)
				return entry.Output, nil
			}
		}

		if cerr := ctx.Err(); cerr != nil {
			return "", cerr
		}
		output, cerr := compute(ctx)
		if cerr != nil {
			return "", cerr
		}
		if cerr := ctx.Err(); cerr != nil {
			// Cancelled mid-compute: do not publish a result that the
			// strategy may not have finished cleanly.
			return "", cerr
		}

		entry := Entry{
			Key:         key,
			Output:      output,
			CreatedAt:   c.now(),
			Generations: 1,
		}
		c.publish(entry)
		if c.backing != nil {
			if berr := c.backing.Put(ctx, entry); berr != nil {
				// Best-effort persistence: the in-memory entry already
				// serves this run.
				c.persistFailures.Add(1)
			}
		}
		return output, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// hit returns the cached output and bumps the generation counter.
func (c *Cache) hit(key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[key]
	if !ok {
		return "", false
	}
	entry.Generations++
	c.entries[key] = entry // copy-on-write: the old value is unchanged
	return entry.Output, true
}

// publish stores a new immutable entry.
func (c *Cache) publish(entry Entry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[entry.Key] = entry
}

// Entry returns a copy of the cached entry for key, if present.
func (c *Cache) Entry(key string) (Entry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.entries[key]
	return entry, ok
}

// Len returns the number of in-memory entries.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// PersistFailures returns how many durable writes failed since creation.
func (c *Cache) PersistFailures() int64 {
	return c.persistFailures.Load()
}

// Close releases the durable backing, if any.
func (c *Cache) Close() error {
	if c.backing == nil {
		return nil
	}
	return c.backing.Close()
}
