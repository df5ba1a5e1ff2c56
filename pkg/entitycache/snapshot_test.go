package entitycache

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// memStore keeps the snapshot in memory and counts Clear calls.
type memStore struct {
	data   []byte
	clears int
}

func (s *memStore) Load() ([]byte, error) { return s.data, nil }
func (s *memStore) Save(data []byte) error {
	s.data = data
	return nil
}
func (s *memStore) Clear() error {
	s.data = nil
	s.clears++
	return nil
}

func TestSnapshotRoundTrip(t *testing.T) {
	clock := newFakeClock()
	fetcher := newFakeFetcher(map[string]string{"Q1": "Ada"})
	store := &memStore{}
	cache := New(fetcher, Options{Clock: clock.Now, Store: store})
	ctx := context.Background()

	if _, err := cache.Resolve(ctx, Ref{ExternalID: "Q1"}); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if _, err := cache.Resolve(ctx, Ref{NodeID: "gone"}); err != nil { // confirmed absent
		t.Fatalf("resolve: %v", err)
	}
	if err := cache.SaveSnapshot(); err != nil {
		t.Fatalf("SaveSnapshot: %v", err)
	}

	restored := New(newFakeFetcher(nil), Options{Clock: clock.Now, Store: store})
	if restored.Len() != 2 {
		t.Fatalf("expected 2 restored entries, got %d", restored.Len())
	}

	res, err := restored.Resolve(ctx, Ref{ExternalID: "Q1"})
	if err != nil || res == nil || res.Identity.CanonicalTitle != "Ada" {
		t.Fatalf("restored hit: res=%+v err=%v", res, err)
	}
	res, err = restored.Resolve(ctx, Ref{NodeID: "gone"})
	if err != nil || res != nil {
		t.Fatalf("restored absent: res=%+v err=%v", res, err)
	}
}

func TestSnapshotVersionMismatchDiscards(t *testing.T) {
	stale, _ := json.Marshal(snapshot{Version: snapshotVersion + 1, Entries: map[string]snapshotEntry{
		"externalId:Q1": {WrittenAt: time.Now()},
	}})
	store := &memStore{data: stale}

	cache := New(newFakeFetcher(nil), Options{Clock: newFakeClock().Now, Store: store})
	if cache.Len() != 0 {
		t.Fatalf("mismatched snapshot must not load, len=%d", cache.Len())
	}
	if store.clears != 1 {
		t.Fatalf("expected the store to be cleared, clears=%d", store.clears)
	}
}

func TestSnapshotCorruptDiscards(t *testing.T) {
	store := &memStore{data: []byte("{not json")}

	cache := New(newFakeFetcher(nil), Options{Clock: newFakeClock().Now, Store: store})
	if cache.Len() != 0 || store.clears != 1 {
		t.Fatalf("corrupt snapshot must be discarded: len=%d clears=%d", cache.Len(), store.clears)
	}
}

func TestSnapshotDropsExpiredOnLoad(t *testing.T) {
	clock := newFakeClock()
	fetcher := newFakeFetcher(map[string]string{"Q1": "Ada", "Q2": "Babbage"})
	store := &memStore{}
	cache := New(fetcher, Options{Clock: clock.Now, TTL: time.Hour, Store: store})
	ctx := context.Background()

	if _, err := cache.Resolve(ctx, Ref{ExternalID: "Q1"}); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	clock.Advance(45 * time.Minute)
	if _, err := cache.Resolve(ctx, Ref{ExternalID: "Q2"}); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if err := cache.SaveSnapshot(); err != nil {
		t.Fatalf("SaveSnapshot: %v", err)
	}

	// Q1 is past its TTL by load time; Q2 is not.
	clock.Advance(30 * time.Minute)
	restored := New(newFakeFetcher(nil), Options{Clock: clock.Now, TTL: time.Hour, Store: store})
	if restored.Len() != 1 {
		t.Fatalf("expected only the unexpired entry, len=%d", restored.Len())
	}
	if _, err := restored.Resolve(ctx, Ref{ExternalID: "Q2"}); err != nil {
		t.Fatalf("resolve: %v", err)
	}
}

func TestFileStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "entities.cache.json")
	store := &FileStore{Path: path}

	data, err := store.Load()
	if err != nil || data != nil {
		t.Fatalf("missing file should load empty: data=%v err=%v", data, err)
	}

	if err := store.Save([]byte(`{"version":1}`)); err != nil {
		t.Fatalf("Save: %v", err)
	}
	data, err = store.Load()
	if err != nil || string(data) != `{"version":1}` {
		t.Fatalf("Load after Save: data=%q err=%v", data, err)
	}

	// No temp files left behind by the atomic write.
	names, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(names) != 1 {
		t.Fatalf("expected only the snapshot file, got %d entries", len(names))
	}

	if err := store.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if err := store.Clear(); err != nil {
		t.Fatalf("Clear on missing file must be a no-op: %v", err)
	}
	data, err = store.Load()
	if err != nil || data != nil {
		t.Fatalf("load after clear: data=%v err=%v", data, err)
	}
}
