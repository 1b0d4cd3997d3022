package enrich

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"

	"github.com/jobradar/jobradar/internal/fsutil"
)

// DefaultTTL is how long a fallback lookup result is trusted.
const DefaultTTL = 14 * 24 * time.Hour

// CacheEntry is one persisted lookup result. TS is epoch milliseconds.
type CacheEntry struct {
	MinValue *int64 `json:"minValue,omitempty"`
	MaxValue int64  `json:"maxValue"`
	Source   string `json:"source"`
	TS       int64  `json:"ts"`
}

// Cache is the disk-backed lookup cache keyed by company slug. Items are
// held with NoExpiration: an entry older than the TTL is not served but
// stays in the file until a newer lookup replaces it, so the TTL is checked
// against the injected clock in Get rather than by go-cache's expiry.
type Cache struct {
	path  string
	ttl   time.Duration
	now   func() time.Time
	items *gocache.Cache
	dirty bool
}

// LoadCache reads path. A missing or unreadable file yields an empty cache.
// An empty path keeps the cache in memory only.
func LoadCache(path string, ttl time.Duration, now func() time.Time) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if now == nil {
		now = time.Now
	}
	c := &Cache{
		path:  path,
		ttl:   ttl,
		now:   now,
		items: gocache.New(gocache.NoExpiration, 0),
	}
	if path == "" {
		return c
	}

	b, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			logrus.Warnf("[enrich] cache read %s: %v; starting empty", path, err)
		}
		return c
	}
	var raw map[string]CacheEntry
	if err := json.Unmarshal(b, &raw); err != nil {
		logrus.Warnf("[enrich] cache decode %s: %v; starting empty", path, err)
		return c
	}
	for k, v := range raw {
		c.items.Set(k, v, gocache.NoExpiration)
	}
	return c
}

// Get returns the entry for slug if it is younger than the TTL.
func (c *Cache) Get(slug string) (CacheEntry, bool) {
	v, ok := c.items.Get(slug)
	if !ok {
		return CacheEntry{}, false
	}
	e := v.(CacheEntry)
	if c.now().Sub(time.UnixMilli(e.TS)) >= c.ttl {
		return e, false
	}
	return e, true
}

// Put stores e under slug, stamping it with the current time.
func (c *Cache) Put(slug string, e CacheEntry) {
	e.TS = c.now().UnixMilli()
	c.items.Set(slug, e, gocache.NoExpiration)
	c.dirty = true
}

func (c *Cache) Len() int { return c.items.ItemCount() }

// Save writes the cache back to disk if anything changed.
func (c *Cache) Save() error {
	if c.path == "" || !c.dirty {
		return nil
	}
	out := make(map[string]CacheEntry, c.items.ItemCount())
	for k, it := range c.items.Items() {
		out[k] = it.Object.(CacheEntry)
	}
	b, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("encode enrichment cache: %w", err)
	}
	if err := fsutil.WriteFileAtomic(c.path, b, 0o644); err != nil {
		return fmt.Errorf("write enrichment cache: %w", err)
	}
	c.dirty = false
	return nil
}
