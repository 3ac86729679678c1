package driver

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/vmihailenco/msgpack/v5"

	"a11ygraph/internal/behavior"
	"a11ygraph/internal/diag"
	"a11ygraph/internal/structure"
	"a11ygraph/internal/style"
)

// Поднимать при любом изменении формата моделей или DiskPayload.
const diskCacheSchemaVersion uint16 = 1

// ErrSchemaMismatch is returned by Get for entries written by another
// schema version.
var ErrSchemaMismatch = errors.New("cache schema mismatch")

// DiskCache хранит разобранные модели на диске, ключ: путь + отпечаток.
// Thread-safe for concurrent access.
type DiskCache struct {
	mu  sync.RWMutex
	dir string
}

// DiskPayload is one unit's front-end output. Spans carry the FileID of the
// run that wrote them and are rebound on read.
type DiskPayload struct {
	Schema      uint16
	Path        string
	Fingerprint string

	Structure   *structure.Model
	Behavior    *behavior.Model
	Style       *style.Model
	Diagnostics []diag.Diagnostic
}

// OpenDiskCache opens dir, or <XDG_CACHE_HOME|~/.cache>/<app> when dir is
// empty.
func OpenDiskCache(dir, app string) (*DiskCache, error) {
	if dir == "" {
		base := os.Getenv("XDG_CACHE_HOME")
		if base == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return nil, err
			}
			base = filepath.Join(home, ".cache")
		}
		dir = filepath.Join(base, app)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &DiskCache{dir: dir}, nil
}

// Dir returns the cache root.
func (c *DiskCache) Dir() string {
	if c == nil {
		return ""
	}
	return c.dir
}

func (c *DiskCache) pathFor(key CacheKey) string {
	sum := sha256.Sum256([]byte(key.Path + "\x00" + key.Fingerprint))
	return filepath.Join(c.dir, "models", hex.EncodeToString(sum[:])+".mp")
}

// Put serializes and writes a payload to the disk cache.
func (c *DiskCache) Put(key CacheKey, payload *DiskPayload) error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	payload.Schema = diskCacheSchemaVersion
	payload.Path = key.Path
	payload.Fingerprint = key.Fingerprint

	p := c.pathFor(key)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(filepath.Dir(p), "tmp-*")
	if err != nil {
		return err
	}
	renamed := false
	defer func() {
		if !renamed {
			_ = os.Remove(f.Name())
		}
	}()

	if err := msgpack.NewEncoder(f).Encode(payload); err != nil {
		_ = f.Close()
		return fmt.Errorf("encode %s: %w", key.Path, err)
	}
	if err := f.Close(); err != nil {
		return err
	}
	// Атомарная замена
	if err := os.Rename(f.Name(), p); err != nil {
		return err
	}
	renamed = true
	return nil
}

// Get reads the payload for key. A missing entry is (false, nil); an entry
// from another schema or for another key is (false, ErrSchemaMismatch).
func (c *DiskCache) Get(key CacheKey, out *DiskPayload) (bool, error) {
	if c == nil {
		return false, nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	f, err := os.Open(c.pathFor(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	defer f.Close()

	if err := msgpack.NewDecoder(f).Decode(out); err != nil {
		return false, fmt.Errorf("decode %s: %w", key.Path, err)
	}
	if out.Schema != diskCacheSchemaVersion || out.Path != key.Path || out.Fingerprint != key.Fingerprint {
		return false, ErrSchemaMismatch
	}
	return true, nil
}

// DropAll removes every cached payload.
func (c *DiskCache) DropAll() error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return os.RemoveAll(filepath.Join(c.dir, "models"))
}
