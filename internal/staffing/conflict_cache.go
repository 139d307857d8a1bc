package staffing

import (
	"strings"
	"sync"
	"time"
)

// conflictCache stores recently computed conflict reports so repeated
// advisory checks for the same resource and date do not rescan every event.
// Any committed mutation invalidates the whole cache.
type conflictCache struct {
	mu         sync.RWMutex
	now        func() time.Time
	ttl        time.Duration
	maxEntries int
	entries    map[string]conflictCacheEntry
}

type conflictCacheEntry struct {
	report    ConflictReport
	expiresAt time.Time
}

const defaultConflictCacheTTL = 30 * time.Second

func newConflictCache(ttl time.Duration, maxEntries int, now func() time.Time) *conflictCache {
	if ttl <= 0 {
		ttl = defaultConflictCacheTTL
	}
	if maxEntries <= 0 {
		maxEntries = 128
	}
	if now == nil {
		now = time.Now
	}
	return &conflictCache{
		now:        now,
		ttl:        ttl,
		maxEntries: maxEntries,
		entries:    make(map[string]conflictCacheEntry),
	}
}

func (c *conflictCache) Get(key string) (ConflictReport, bool) {
	if c == nil {
		return ConflictReport{}, false
	}
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return ConflictReport{}, false
	}
	if c.now().After(entry.expiresAt) {
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()
		return ConflictReport{}, false
	}
	return cloneReport(entry.report), true
}

func (c *conflictCache) Store(key string, report ConflictReport) {
	if c == nil {
		return
	}
	cloned := cloneReport(report)

	c.mu.Lock()
	defer c.mu.Unlock()

	c.cleanupLocked()
	if len(c.entries) >= c.maxEntries {
		c.evictOneLocked()
	}
	c.entries[key] = conflictCacheEntry{report: cloned, expiresAt: c.now().Add(c.ttl)}
}

// setTTL adjusts the entry lifetime in place and drops everything cached
// under the old one. Mutating under the cache lock keeps concurrent readers
// off a swapped pointer.
func (c *conflictCache) setTTL(ttl time.Duration) {
	if c == nil {
		return
	}
	if ttl <= 0 {
		ttl = defaultConflictCacheTTL
	}
	c.mu.Lock()
	c.ttl = ttl
	c.entries = make(map[string]conflictCacheEntry)
	c.mu.Unlock()
}

func (c *conflictCache) Invalidate() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.entries = make(map[string]conflictCacheEntry)
	c.mu.Unlock()
}

func (c *conflictCache) cleanupLocked() {
	now := c.now()
	for key, entry := range c.entries {
		if now.After(entry.expiresAt) {
			delete(c.entries, key)
		}
	}
}

func (c *conflictCache) evictOneLocked() {
	for key := range c.entries {
		delete(c.entries, key)
		return
	}
}

func cloneReport(report ConflictReport) ConflictReport {
	if len(report.Conflicting) == 0 {
		return ConflictReport{HasConflict: report.HasConflict}
	}
	out := make([]ConflictingEvent, len(report.Conflicting))
	copy(out, report.Conflicting)
	return ConflictReport{HasConflict: report.HasConflict, Conflicting: out}
}

func conflictCacheKey(resourceID, eventID string, date time.Time) string {
	builder := strings.Builder{}
	builder.WriteString(resourceID)
	builder.WriteString("|")
	builder.WriteString(eventID)
	builder.WriteString("|")
	builder.WriteString(date.Format(time.DateOnly))
	return builder.String()
}
