package entitycache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/moxious/historynet/resolver/pkg/lookup"
)

// snapshotVersion tags the persisted format. A mismatch on load discards
// the whole store; there is no migration path for a cache.
const snapshotVersion = 1

type snapshot struct {
	Version int                      `json:"version"`
	Entries map[string]snapshotEntry `json:"entries"`
}

type snapshotEntry struct {
	Data           *lookup.Result `json:"data"`
	WrittenAt      time.Time      `json:"writtenAt"`
	LastAccessedAt time.Time      `json:"lastAccessedAt"`
}

// SaveSnapshot persists the settled entries through the configured
// store. In-flight calls and retained errors are deliberately not
// persisted; both are session state.
func (c *Cache) SaveSnapshot() error {
	if c.opts.Store == nil {
		return nil
	}

	c.mu.Lock()
	snap := snapshot{
		Version: snapshotVersion,
		Entries: make(map[string]snapshotEntry, len(c.entries)),
	}
	for key, e := range c.entries {
		snap.Entries[key] = snapshotEntry{
			Data:           e.data,
			WrittenAt:      e.writtenAt,
			LastAccessedAt: e.lastAccessedAt,
		}
	}
	c.mu.Unlock()

	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to encode cache snapshot: %w", err)
	}
	return c.opts.Store.Save(data)
}

// loadSnapshot restores entries from the store. Anything unreadable,
// unparsable or of the wrong version clears the store and starts empty.
// Entries already past their TTL are dropped instead of resurrected.
func (c *Cache) loadSnapshot() {
	data, err := c.opts.Store.Load()
	if err != nil || len(data) == 0 {
		return
	}

	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil || snap.Version != snapshotVersion {
		_ = c.opts.Store.Clear()
		return
	}

	now := c.opts.Clock()
	c.mu.Lock()
	for key, se := range snap.Entries {
		if now.Sub(se.WrittenAt) > c.opts.TTL {
			continue
		}
		c.entries[key] = &entry{
			data:           se.Data,
			writtenAt:      se.WrittenAt,
			lastAccessedAt: se.LastAccessedAt,
		}
	}
	c.mu.Unlock()
}

// FileStore persists the snapshot as a single file, written atomically
// via a temp file and rename.
type FileStore struct {
	Path string
}

func (s *FileStore) Load() ([]byte, error) {
	data, err := os.ReadFile(s.Path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	return data, err
}

func (s *FileStore) Save(data []byte) error {
	dir := filepath.Dir(s.Path)
	tmp, err := os.CreateTemp(dir, ".cache-*")
	if err != nil {
		return fmt.Errorf("failed to create snapshot temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to close snapshot: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.Path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to replace snapshot: %w", err)
	}
	return nil
}

func (s *FileStore) Clear() error {
	err := os.Remove(s.Path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
