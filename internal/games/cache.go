// Package games resolves Steam app ids to display names, backed by the
// public store API and a JSON cache on disk so each id is looked up at most
// once. Failed lookups are cached too, as marker values, so a flaky network
// does not translate into a lookup storm.
package games

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Failure markers stored in place of a name when resolution fails. They are
// shown to the user as-is and suppress further automatic lookups for the id.
const (
	markerOffline  = "(Offline)"
	markerTimeout  = "(Timeout)"
	markerAPIError = "(API Error)"
	markerDataErr  = "(Data Error)"
)

// IsFailureMarker reports whether a cached name records a failed lookup
// rather than a real title.
func IsFailureMarker(name string) bool {
	for _, m := range []string{markerOffline, markerTimeout, markerAPIError, markerDataErr} {
		if strings.HasSuffix(name, m) {
			return true
		}
	}
	return false
}

// Cache is the on-disk id-to-name map. Every mutation rewrites the whole
// document; the file is small and a partial write would corrupt it, so
// writes go through a temp file and rename.
type Cache struct {
	path string

	mu    sync.Mutex
	names map[string]string
}

// OpenCache loads the cache at path, starting empty when the file does not
// exist yet. A file that exists but cannot be parsed is an error: silently
// discarding it would re-trigger every lookup and then overwrite the file.
func OpenCache(path string) (*Cache, error) {
	c := &Cache{path: path, names: make(map[string]string)}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return c, nil
	}
	if err != nil {
		return nil, fmt.Errorf("cannot read game name cache: %w", err)
	}
	if err := json.Unmarshal(data, &c.names); err != nil {
		return nil, fmt.Errorf("game name cache %s is corrupt: %w", path, err)
	}
	return c, nil
}

// Get returns the cached name for an id, if any.
func (c *Cache) Get(gameID string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	name, ok := c.names[gameID]
	return name, ok
}

// Put records a name (or failure marker) for an id and persists the cache.
func (c *Cache) Put(gameID, name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.names[gameID] = name
	return c.flushLocked()
}

// All returns a copy of the cached entries.
func (c *Cache) All() map[string]string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]string, len(c.names))
	for k, v := range c.names {
		out[k] = v
	}
	return out
}

func (c *Cache) flushLocked() error {
	data, err := json.MarshalIndent(c.names, "", "  ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(c.path), ".gamenames-")
	if err != nil {
		return fmt.Errorf("cannot write game name cache: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), c.path)
}
