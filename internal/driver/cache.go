package driver

import (
	"fmt"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"

	"a11ygraph/internal/diag"
	"a11ygraph/internal/frontend"
	"a11ygraph/internal/source"
)

// DefaultCacheEntries sizes the in-memory layer.
const DefaultCacheEntries = 1024

// CacheKey identifies one parse: the unit path and its content fingerprint.
type CacheKey struct {
	Path        string
	Fingerprint string
}

// KeyFor builds the key of a loaded file.
func KeyFor(f *source.File) CacheKey {
	return CacheKey{Path: f.Path, Fingerprint: f.Fingerprint()}
}

type cacheEntry struct {
	res   frontend.Result
	diags []diag.Diagnostic
}

// Cache keeps parse results in an LRU and optionally on disk. Entries are
// stored detached and handed out as copies rebound to the caller's FileID.
// Safe for concurrent use.
type Cache struct {
	mem  *lru.Cache[CacheKey, cacheEntry]
	disk *DiskCache

	hits   atomic.Int64
	misses atomic.Int64
}

// NewCache creates a cache with up to entries models in memory. disk may be
// nil.
func NewCache(entries int, disk *DiskCache) (*Cache, error) {
	if entries <= 0 {
		entries = DefaultCacheEntries
	}
	mem, err := lru.New[CacheKey, cacheEntry](entries)
	if err != nil {
		return nil, fmt.Errorf("model cache: %w", err)
	}
	return &Cache{mem: mem, disk: disk}, nil
}

// Disk returns the persistent layer, if any.
func (c *Cache) Disk() *DiskCache {
	if c == nil {
		return nil
	}
	return c.disk
}

// Get looks key up in memory, then on disk. A disk error is returned with
// ok=false and callers treat it as a miss.
func (c *Cache) Get(key CacheKey, file source.FileID) (frontend.Result, []diag.Diagnostic, bool, error) {
	if c == nil {
		return frontend.Result{}, nil, false, nil
	}
	if e, ok := c.mem.Get(key); ok {
		c.hits.Add(1)
		res, diags := rebind(e, file)
		return res, diags, true, nil
	}
	var p DiskPayload
	ok, err := c.disk.Get(key, &p)
	if err != nil || !ok {
		c.misses.Add(1)
		return frontend.Result{}, nil, false, err
	}
	e := cacheEntry{
		res:   frontend.Result{Structure: p.Structure, Behavior: p.Behavior, Style: p.Style},
		diags: p.Diagnostics,
	}
	c.mem.Add(key, e)
	c.hits.Add(1)
	res, diags := rebind(e, file)
	return res, diags, true, nil
}

// Put stores a copy of res in both layers.
func (c *Cache) Put(key CacheKey, res frontend.Result, diags []diag.Diagnostic) error {
	if c == nil {
		return nil
	}
	e := cacheEntry{
		res: frontend.Result{
			Structure: res.Structure.Clone(),
			Behavior:  res.Behavior.Clone(),
			Style:     res.Style.Clone(),
		},
		diags: cloneDiags(diags),
	}
	c.mem.Add(key, e)
	return c.disk.Put(key, &DiskPayload{
		Structure:   e.res.Structure,
		Behavior:    e.res.Behavior,
		Style:       e.res.Style,
		Diagnostics: e.diags,
	})
}

// Purge drops the memory layer.
func (c *Cache) Purge() {
	if c != nil {
		c.mem.Purge()
	}
}

// Stats returns hit and miss counters since creation.
func (c *Cache) Stats() (hits, misses int64) {
	if c == nil {
		return 0, 0
	}
	return c.hits.Load(), c.misses.Load()
}

func rebind(e cacheEntry, file source.FileID) (frontend.Result, []diag.Diagnostic) {
	var res frontend.Result
	if e.res.Structure != nil {
		res.Structure = e.res.Structure.WithFile(file)
	}
	if e.res.Behavior != nil {
		res.Behavior = e.res.Behavior.WithFile(file)
	}
	if e.res.Style != nil {
		res.Style = e.res.Style.WithFile(file)
	}
	diags := make([]diag.Diagnostic, len(e.diags))
	for i, d := range e.diags {
		diags[i] = d.WithFile(file)
	}
	return res, diags
}

func cloneDiags(ds []diag.Diagnostic) []diag.Diagnostic {
	out := make([]diag.Diagnostic, len(ds))
	for i, d := range ds {
		d.Notes = append([]diag.Note(nil), d.Notes...)
		out[i] = d
	}
	return out
}
