// Package querycache implements the persisted search-term cache.
//
// The cache maps normalized search terms to a resolved platform identifier so
// repeated expensive lookups (search-term → video id) are answered locally.
// It is a pure optimization layer: it holds no authoritative data and can be
// discarded at any time.
package querycache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

// schemaVersion guards the on-disk format. A mismatch on load discards every
// entry and starts fresh; there is no migration.
const schemaVersion = 1

// dayMillis is the hit-count weight in the eviction score: each hit counts as
// one day of recency.
const dayMillis = int64(24 * time.Hour / time.Millisecond)

// evictFraction of the configured maximum size is removed when the cache is
// full, lowest score first.
const evictFraction = 0.2

// DefaultMaxEntries bounds the cache when no size is configured.
const DefaultMaxEntries = 500

// Entry is a single cached resolution.
type Entry struct {
	Key        string `json:"normalizedKey"`
	ResolvedID string `json:"resolvedId"`
	CreatedAt  int64  `json:"createdAt"` // unix millis
	Hits       int    `json:"hitCount"`
}

// Stats summarizes cache contents.
type Stats struct {
	Entries   int   `json:"entries"`
	TotalHits int   `json:"totalHits"`
	Oldest    int64 `json:"oldest,omitempty"` // unix millis, zero when empty
	Newest    int64 `json:"newest,omitempty"`
}

type diskFormat struct {
	Version int              `json:"version"`
	Queries map[string]Entry `json:"queries"`
}

// Cache is the persisted query cache. All operations lazily load the on-disk
// state on first use; initialization is idempotent. Every mutation is written
// through to disk immediately, including the hit-count bump on Get.
type Cache struct {
	mu     sync.Mutex
	path   string
	max    int
	logger *log.Logger

	loaded  bool
	entries map[string]*Entry
	// order tracks insertion order for the stable eviction tie-break. After a
	// reload it is rebuilt oldest-first, which approximates the original
	// insertion order closely enough for an approximate eviction policy.
	order []string

	now func() time.Time
}

// New creates a Cache persisted at path, bounded to maxEntries.
func New(path string, maxEntries int, logger *log.Logger) *Cache {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	return &Cache{
		path:   path,
		max:    maxEntries,
		logger: logger.With("component", "querycache"),
		now:    time.Now,
	}
}

// Get returns the resolved id for terms, or "" on a miss. A hit increments
// the entry's hit count and persists immediately.
func (c *Cache) Get(terms string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.ensureLoaded(); err != nil {
		return "", err
	}

	entry, ok := c.entries[Normalize(terms)]
	if !ok {
		return "", nil
	}

	entry.Hits++
	if err := c.persist(); err != nil {
		return "", err
	}
	return entry.ResolvedID, nil
}

// Set records a resolution for terms. If the key is already present the call
// is a no-op: the cache never overwrites a resolved mapping, which guards
// against a slow fallback resolver clobbering a faster provider's answer.
// Inserting into a full cache evicts first.
func (c *Cache) Set(terms, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.ensureLoaded(); err != nil {
		return err
	}

	key := Normalize(terms)
	if _, ok := c.entries[key]; ok {
		return nil
	}

	if len(c.entries) >= c.max {
		c.evict()
	}

	c.entries[key] = &Entry{
		Key:        key,
		ResolvedID: id,
		CreatedAt:  c.now().UnixMilli(),
	}
	c.order = append(c.order, key)
	return c.persist()
}

// Has reports whether terms resolve without bumping the hit count.
func (c *Cache) Has(terms string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.ensureLoaded(); err != nil {
		return false, err
	}
	_, ok := c.entries[Normalize(terms)]
	return ok, nil
}

// Delete removes an entry, reporting whether one existed.
func (c *Cache) Delete(terms string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.ensureLoaded(); err != nil {
		return false, err
	}

	key := Normalize(terms)
	if _, ok := c.entries[key]; !ok {
		return false, nil
	}
	delete(c.entries, key)
	c.removeFromOrder(key)
	return true, c.persist()
}

// Clear discards every entry.
func (c *Cache) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.ensureLoaded(); err != nil {
		return err
	}
	c.entries = make(map[string]*Entry)
	c.order = nil
	return c.persist()
}

// Len returns the number of cached entries.
func (c *Cache) Len() (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.ensureLoaded(); err != nil {
		return 0, err
	}
	return len(c.entries), nil
}

// GetStats summarizes the cache contents.
func (c *Cache) GetStats() (Stats, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.ensureLoaded(); err != nil {
		return Stats{}, err
	}

	stats := Stats{Entries: len(c.entries)}
	for _, e := range c.entries {
		stats.TotalHits += e.Hits
		if stats.Oldest == 0 || e.CreatedAt < stats.Oldest {
			stats.Oldest = e.CreatedAt
		}
		if e.CreatedAt > stats.Newest {
			stats.Newest = e.CreatedAt
		}
	}
	return stats, nil
}

// ensureLoaded loads the on-disk state once. Callers must hold c.mu.
func (c *Cache) ensureLoaded() error {
	if c.loaded {
		return nil
	}

	c.entries = make(map[string]*Entry)
	c.order = nil

	data, err := os.ReadFile(c.path)
	if os.IsNotExist(err) {
		c.loaded = true
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read query cache: %w", err)
	}

	var disk diskFormat
	if err := json.Unmarshal(data, &disk); err != nil {
		c.logger.Warn("query cache unreadable, starting fresh", "error", err)
		c.loaded = true
		return nil
	}

	if disk.Version != schemaVersion {
		c.logger.Warn("query cache schema mismatch, discarding",
			"found", disk.Version, "want", schemaVersion)
		c.loaded = true
		return nil
	}

	for key, entry := range disk.Queries {
		e := entry
		c.entries[key] = &e
		c.order = append(c.order, key)
	}
	sort.Slice(c.order, func(i, j int) bool {
		a, b := c.entries[c.order[i]], c.entries[c.order[j]]
		if a.CreatedAt != b.CreatedAt {
			return a.CreatedAt < b.CreatedAt
		}
		return a.Key < b.Key
	})

	c.loaded = true
	c.logger.Debug("query cache loaded", "entries", len(c.entries))
	return nil
}

// persist writes the whole cache file. Write failures propagate; silently
// losing a cache write would corrupt user-visible state. Callers must hold
// c.mu.
func (c *Cache) persist() error {
	disk := diskFormat{Version: schemaVersion, Queries: make(map[string]Entry, len(c.entries))}
	for key, entry := range c.entries {
		disk.Queries[key] = *entry
	}

	data, err := json.MarshalIndent(disk, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode query cache: %w", err)
	}

	if dir := filepath.Dir(c.path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create cache dir: %w", err)
		}
	}
	if err := os.WriteFile(c.path, data, 0644); err != nil {
		return fmt.Errorf("failed to write query cache: %w", err)
	}
	return nil
}

// score rewards both recency and frequency: an entry used often is treated as
// if it were created later, one day per hit.
func (e *Entry) score() int64 {
	return e.CreatedAt + int64(e.Hits)*dayMillis
}

// evict removes the lowest-scoring floor(max*evictFraction) entries. The sort
// is stable, so equal scores fall back to insertion order. Callers must hold
// c.mu.
func (c *Cache) evict() {
	n := int(float64(c.max) * evictFraction)
	if n <= 0 {
		n = 1
	}
	if n > len(c.order) {
		n = len(c.order)
	}

	ranked := make([]string, len(c.order))
	copy(ranked, c.order)
	sort.SliceStable(ranked, func(i, j int) bool {
		return c.entries[ranked[i]].score() < c.entries[ranked[j]].score()
	})

	for _, key := range ranked[:n] {
		delete(c.entries, key)
		c.removeFromOrder(key)
	}
	c.logger.Debug("evicted cache entries", "count", n, "remaining", len(c.entries))
}

func (c *Cache) removeFromOrder(key string) {
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			return
		}
	}
}
