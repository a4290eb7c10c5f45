// Package cache provides a generic two-tier memoization layer: a small
// memory-resident hot tier backed by a larger badger-persisted cold tier.
// Entries carry a wall-clock TTL, so values written before a restart stay
// valid on disk until they expire, not until the process dies.
package cache

import (
	"fmt"
	"sync"
	"time"
)

const (
	// DefaultMaxMemoryItems bounds the hot tier.
	DefaultMaxMemoryItems = 1000
	// DefaultMaxDiskItems bounds the cold tier.
	DefaultMaxDiskItems = 10000
	// DefaultTTL is how long entries stay valid unless set explicitly.
	DefaultTTL = time.Hour
)

// Config sizes the two tiers. The zero value gets defaults on New.
type Config struct {
	MaxMemoryItems int
	MaxDiskItems   int
	DefaultTTL     time.Duration
	// Dir is where the cold tier lives. Empty keeps it in memory, which
	// preserves the tiering behavior but not restarts.
	Dir string
}

// Stats is a point-in-time snapshot of cache effectiveness.
type Stats struct {
	MemoryHits uint64 `msgpack:"memory_hits" json:"memory_hits"`
	DiskHits   uint64 `msgpack:"disk_hits" json:"disk_hits"`
	Misses     uint64 `msgpack:"misses" json:"misses"`
	MemorySize int    `msgpack:"memory_size" json:"memory_size"`
	DiskSize   int    `msgpack:"disk_size" json:"disk_size"`
}

// IOError is a disk tier failure tagged with the operation and key it hit.
// Read and write failures never reach Get or Set callers; they are logged
// and the lookup degrades to a miss. Clear and Close surface them.
type IOError struct {
	Op  string
	Key string
	Err error
}

func (e *IOError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("cache %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("cache %s %q: %v", e.Op, e.Key, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

type memEntry[V any] struct {
	value       V
	insertedAt  time.Time
	expiresAt   time.Time
	lastAccess  time.Time
	accessCount int
}

// Cache is the two-tier cache. All operations serialize on one exclusive
// lock; critical sections are short since badger is embedded and fast, and
// correctness here only needs at-least-once semantics: concurrent identical
// misses may both compute, last Set wins.
type Cache[V any] struct {
	mu     sync.Mutex
	memory map[string]*memEntry[V]
	disk   *diskTier[V]
	cfg    Config

	memoryHits uint64
	diskHits   uint64
	misses     uint64
}

// New opens a cache with the given config. The badger tier is created under
// cfg.Dir, or in memory when no directory is configured.
func New[V any](cfg Config) (*Cache[V], error) {
	if cfg.MaxMemoryItems <= 0 {
		cfg.MaxMemoryItems = DefaultMaxMemoryItems
	}
	if cfg.MaxDiskItems <= 0 {
		cfg.MaxDiskItems = DefaultMaxDiskItems
	}
	if cfg.DefaultTTL <= 0 {
		cfg.DefaultTTL = DefaultTTL
	}

	disk, err := openDiskTier[V](cfg.Dir)
	if err != nil {
		return nil, err
	}

	return &Cache[V]{
		memory: make(map[string]*memEntry[V]),
		disk:   disk,
		cfg:    cfg,
	}, nil
}

// Get returns the cached value for key. A memory hit refreshes recency; a
// disk hit moves the entry back into the hot tier. Expired entries in either
// tier read as absent and are purged on the way out.
func (c *Cache[V]) Get(key string) (V, bool) {
	var zero V
	now := time.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	if entry, ok := c.memory[key]; ok {
		if now.After(entry.expiresAt) {
			delete(c.memory, key)
		} else {
			entry.lastAccess = now
			entry.accessCount++
			c.memoryHits++
			return entry.value, true
		}
	}

	entry, ok := c.disk.read(key, now)
	if !ok {
		c.misses++
		return zero, false
	}

	// Promotion moves the entry, it does not copy: the disk slot is freed
	// and the fresh recency makes the entry safe from the eviction below.
	c.disk.remove(key)
	entry.lastAccess = now
	entry.accessCount++
	c.memory[key] = entry
	c.evictLocked(now)
	c.diskHits++
	return entry.value, true
}

// Set stores value under key with the default TTL.
func (c *Cache[V]) Set(key string, value V) {
	c.SetTTL(key, value, c.cfg.DefaultTTL)
}

// SetTTL stores value under key, valid until now+ttl on the wall clock.
// The write always lands in the memory tier; any stale disk copy of the
// same key is dropped so an expiring memory entry cannot resurrect it.
func (c *Cache[V]) SetTTL(key string, value V, ttl time.Duration) {
	now := time.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	c.memory[key] = &memEntry[V]{
		value:      value,
		insertedAt: now,
		expiresAt:  now.Add(ttl),
		lastAccess: now,
	}
	c.disk.remove(key)
	c.evictLocked(now)
}

// evictLocked shrinks the memory tier back under its bound, demoting the
// least recently used entries to disk. Already-expired victims are dropped
// outright. Caller holds the lock.
func (c *Cache[V]) evictLocked(now time.Time) {
	for len(c.memory) > c.cfg.MaxMemoryItems {
		victimKey := ""
		var victim *memEntry[V]
		for key, entry := range c.memory {
			if victim == nil || olderThan(entry, victim) {
				victimKey = key
				victim = entry
			}
		}

		delete(c.memory, victimKey)
		if now.After(victim.expiresAt) {
			continue
		}
		c.disk.write(victimKey, victim, c.cfg.MaxDiskItems)
	}
}

// olderThan orders eviction victims: least recent access first, ties broken
// by fewest accesses.
func olderThan[V any](a, b *memEntry[V]) bool {
	if !a.lastAccess.Equal(b.lastAccess) {
		return a.lastAccess.Before(b.lastAccess)
	}
	return a.accessCount < b.accessCount
}

// Clear empties both tiers and resets the hit counters.
func (c *Cache[V]) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.memory = make(map[string]*memEntry[V])
	c.memoryHits = 0
	c.diskHits = 0
	c.misses = 0
	return c.disk.drop()
}

// Stats returns current counters and tier sizes.
func (c *Cache[V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{
		MemoryHits: c.memoryHits,
		DiskHits:   c.diskHits,
		Misses:     c.misses,
		MemorySize: len(c.memory),
		DiskSize:   c.disk.size(),
	}
}

// Close releases the badger tier. The cache must not be used afterwards.
func (c *Cache[V]) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.disk.close()
}
