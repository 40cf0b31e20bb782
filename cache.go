package prfs

import (
	"os"
	"sync"
	"time"
)

// statCache caches stat results and known-missing paths, strictly on
// the read side. The guard's freshly-created classification probes the
// backing filesystem directly and never consults this cache; admitted
// writes and freshly created backup files invalidate their paths so
// reads converge promptly.
type statCache struct {
	statCache     map[string]*statCacheEntry
	negativeCache map[string]*negativeCacheEntry
	mu            sync.RWMutex
	statTTL       time.Duration
	negativeTTL   time.Duration
	maxEntries    int
	enabled       bool
}

type statCacheEntry struct {
	info    os.FileInfo
	expires time.Time
}

// negativeCacheEntry remembers a path that was looked up and found
// missing.
type negativeCacheEntry struct {
	expires time.Time
}

// newStatCache builds the cache. A disabled cache is a valid value
// whose every method is a no-op.
func newStatCache(enabled bool, statTTL, negativeTTL time.Duration, maxEntries int) *statCache {
	if !enabled {
		return &statCache{enabled: false}
	}

	return &statCache{
		statCache:     make(map[string]*statCacheEntry),
		negativeCache: make(map[string]*negativeCacheEntry),
		statTTL:       statTTL,
		negativeTTL:   negativeTTL,
		maxEntries:    maxEntries,
		enabled:       true,
	}
}

// getStat returns a live cached stat result, if any.
func (c *statCache) getStat(path string) (os.FileInfo, bool) {
	if !c.enabled {
		return nil, false
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.statCache[path]
	if !ok {
		return nil, false
	}
	if time.Now().After(entry.expires) {
		return nil, false
	}
	return entry.info, true
}

func (c *statCache) putStat(path string, info os.FileInfo) {
	if !c.enabled {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.statCache) >= c.maxEntries {
		c.evictOldestStat()
	}

	c.statCache[path] = &statCacheEntry{
		info:    info,
		expires: time.Now().Add(c.statTTL),
	}
}

// isNegative reports a live known-missing entry for path. Serves the
// read path only; write classification never consults it.
func (c *statCache) isNegative(path string) bool {
	if !c.enabled {
		return false
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.negativeCache[path]
	if !ok {
		return false
	}
	return !time.Now().After(entry.expires)
}

func (c *statCache) putNegative(path string) {
	if !c.enabled {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.negativeCache) >= c.maxEntries {
		c.evictOldestNegative()
	}

	c.negativeCache[path] = &negativeCacheEntry{
		expires: time.Now().Add(c.negativeTTL),
	}
}

// invalidate drops path from both maps. Called for every admitted
// write and for every backup file the guard creates.
func (c *statCache) invalidate(path string) {
	if !c.enabled {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.statCache, path)
	delete(c.negativeCache, path)
}

func (c *statCache) clear() {
	if !c.enabled {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.statCache = make(map[string]*statCacheEntry)
	c.negativeCache = make(map[string]*negativeCacheEntry)
}

// evictOldestStat drops the entry closest to expiry to make room.
func (c *statCache) evictOldestStat() {
	var oldestPath string
	var oldestTime time.Time

	for path, entry := range c.statCache {
		if oldestPath == "" || entry.expires.Before(oldestTime) {
			oldestPath = path
			oldestTime = entry.expires
		}
	}
	if oldestPath != "" {
		delete(c.statCache, oldestPath)
	}
}

func (c *statCache) evictOldestNegative() {
	var oldestPath string
	var oldestTime time.Time

	for path, entry := range c.negativeCache {
		if oldestPath == "" || entry.expires.Before(oldestTime) {
			oldestPath = path
			oldestTime = entry.expires
		}
	}
	if oldestPath != "" {
		delete(c.negativeCache, oldestPath)
	}
}

// Stats snapshots the cache for the diagnostics surface.
func (c *statCache) Stats() CacheStats {
	if !c.enabled {
		return CacheStats{Enabled: false}
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	return CacheStats{
		Enabled:           true,
		StatCacheSize:     len(c.statCache),
		NegativeCacheSize: len(c.negativeCache),
		MaxEntries:        c.maxEntries,
		StatTTL:           c.statTTL,
		NegativeTTL:       c.negativeTTL,
	}
}

// CacheStats is a point-in-time view of the read cache.
type CacheStats struct {
	Enabled           bool
	StatCacheSize     int
	NegativeCacheSize int
	MaxEntries        int
	StatTTL           time.Duration
	NegativeTTL       time.Duration
}
