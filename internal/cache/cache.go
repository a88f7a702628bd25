// Package cache holds completed question sets keyed by a fingerprint of
// the generation request, so identical requests skip the provider
// entirely.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"

	"github.com/abhisek/quizforge/internal/mcq"
)

// DefaultCapacity is the entry limit used when none is configured.
const DefaultCapacity = 500

// Key fingerprints a generation request. Two requests map to the same
// key exactly when they ask for the same questions from the same
// material.
type Key string

// KeyFor computes the fingerprint for a generation request. The hash
// covers the source material (text or attachment bytes), the per-tier
// counts, and the explanation flag. Field boundaries are length-prefixed
// so adjacent fields cannot collide.
func KeyFor(req mcq.GenerationRequest) Key {
	h := sha256.New()
	writeField := func(field string) {
		fmt.Fprintf(h, "%d:%s;", len(field), field)
	}
	writeField(req.Text)
	if req.Attachment != nil {
		writeField(req.Attachment.MIME)
		writeField(string(req.Attachment.Data))
	}
	fmt.Fprintf(h, "e%d:m%d:h%d:x%t", req.Counts.Easy, req.Counts.Medium, req.Counts.Hard, req.Explain)
	return Key(hex.EncodeToString(h.Sum(nil)))
}

// EvictionPolicy decides which resident key leaves when the cache is
// full. Implementations are called under the cache lock and must not
// call back into the cache.
type EvictionPolicy interface {
	// Admitted records that key became resident.
	Admitted(key Key)
	// Accessed records a read hit on a resident key.
	Accessed(key Key)
	// Victim returns the key to evict. Only called when at least one
	// key is resident.
	Victim() Key
	// Removed records that key left the cache.
	Removed(key Key)
}

// Cache is a bounded in-memory store of completed question sets. Safe
// for concurrent use.
type Cache struct {
	mu       sync.Mutex
	entries  map[Key][]mcq.MCQ
	capacity int
	policy   EvictionPolicy
}

// Option configures a Cache.
type Option func(*Cache)

// WithCapacity overrides the default entry limit.
func WithCapacity(n int) Option {
	return func(c *Cache) {
		if n > 0 {
			c.capacity = n
		}
	}
}

// WithPolicy overrides the default FIFO eviction policy.
func WithPolicy(p EvictionPolicy) Option {
	return func(c *Cache) {
		if p != nil {
			c.policy = p
		}
	}
}

// New creates a Cache with the default capacity and FIFO eviction.
func New(opts ...Option) *Cache {
	c := &Cache{
		entries:  make(map[Key][]mcq.MCQ),
		capacity: DefaultCapacity,
		policy:   newFIFOPolicy(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the cached question set for key, if resident.
func (c *Cache) Get(key Key) ([]mcq.MCQ, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	set, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	c.policy.Accessed(key)
	out := make([]mcq.MCQ, len(set))
	copy(out, set)
	return out, true
}

// Put stores a completed question set. Empty sets are never stored: a
// resident empty entry would shadow a retry that could succeed.
func (c *Cache) Put(key Key, set []mcq.MCQ) {
	if len(set) == 0 {
		return
	}
	stored := make([]mcq.MCQ, len(set))
	copy(stored, set)

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, resident := c.entries[key]; resident {
		c.entries[key] = stored
		return
	}
	for len(c.entries) >= c.capacity {
		victim := c.policy.Victim()
		delete(c.entries, victim)
		c.policy.Removed(victim)
	}
	c.entries[key] = stored
	c.policy.Admitted(key)
}

// Len returns the number of resident entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
