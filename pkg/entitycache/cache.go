// Package entitycache memoizes entity resolution results on the consumer
// side of the lookup service. It caches confirmed-absent results as well
// as hits, expires entries on a wall-clock TTL, evicts in bulk by least
// recent access when full, and guarantees at most one outstanding
// network call per identifier no matter how many callers race.
package entitycache

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/moxious/historynet/resolver/pkg/lookup"
)

// Defaults applied by New when Options leaves a field zero.
const (
	DefaultTTL           = 48 * time.Hour
	DefaultMaxEntries    = 500
	DefaultEvictFraction = 0.10
)

// Clock abstracts time.Now so TTL and LRU behavior are testable without
// wall-clock dependencies.
type Clock func() time.Time

// Fetcher is the network edge: one batched call against the lookup
// service. The cache never talks to the service any other way.
type Fetcher interface {
	FetchBatch(ctx context.Context, q lookup.BatchQuery) (*lookup.BatchResult, error)
}

// Store persists the cache between sessions. Implementations may be a
// file, a browser key/value store, or nothing at all.
type Store interface {
	Load() ([]byte, error)
	Save(data []byte) error
	Clear() error
}

// Options configures cache policy. Zero values fall back to defaults.
type Options struct {
	TTL           time.Duration
	MaxEntries    int
	EvictFraction float64
	Clock         Clock
	Store         Store
}

// Ref describes one entity by whichever identifiers the caller has on
// hand. External id takes precedence, then title, then node id.
type Ref struct {
	ExternalID string
	Title      string
	NodeID     string
}

// normalize picks the strongest identifier and returns the cache key for
// it. Keys are kind-prefixed so identifiers from different key spaces
// can never collide.
func (r Ref) normalize() (key, kind, id string, ok bool) {
	switch {
	case strings.TrimSpace(r.ExternalID) != "":
		id = strings.TrimSpace(r.ExternalID)
		kind = lookup.KindExternalID
	case strings.TrimSpace(r.Title) != "":
		id = strings.TrimSpace(r.Title)
		kind = lookup.KindTitle
	case strings.TrimSpace(r.NodeID) != "":
		id = strings.TrimSpace(r.NodeID)
		kind = lookup.KindNodeID
	default:
		return "", "", "", false
	}
	return kind + ":" + id, kind, id, true
}

type entry struct {
	data           *lookup.Result // nil means confirmed absent
	writtenAt      time.Time
	lastAccessedAt time.Time
}

// call is one in-flight network request. Everyone waiting on the same
// identifier blocks on done and reads the same settled outcome.
type call struct {
	done chan struct{}
	res  *lookup.Result
	err  error
}

// Cache is safe for concurrent use by any number of goroutines.
type Cache struct {
	fetcher Fetcher
	opts    Options

	mu       sync.Mutex
	entries  map[string]*entry
	inflight map[string]*call
	errs     map[string]error
}

// New builds a cache over fetcher. If a Store is configured, a previous
// snapshot is loaded immediately; a corrupt or version-mismatched
// snapshot is discarded rather than migrated.
func New(fetcher Fetcher, opts Options) *Cache {
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if opts.MaxEntries <= 0 {
		opts.MaxEntries = DefaultMaxEntries
	}
	if opts.EvictFraction <= 0 {
		opts.EvictFraction = DefaultEvictFraction
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}

	c := &Cache{
		fetcher:  fetcher,
		opts:     opts,
		entries:  make(map[string]*entry),
		inflight: make(map[string]*call),
		errs:     make(map[string]error),
	}
	if opts.Store != nil {
		c.loadSnapshot()
	}
	return c
}

// Len reports the number of settled entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Err returns the retained failure for an identifier whose last fetch
// errored, or nil. Errors are never cached as results, so a retry stays
// possible.
func (c *Cache) Err(ref Ref) error {
	key, _, _, ok := ref.normalize()
	if !ok {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.errs[key]
}

// Resolve returns the entity's resolution result, serving fresh cache
// entries immediately and joining any in-flight call for the same
// identifier. A ref with no identifiers at all resolves to absent
// without consulting the service. A nil result with nil error means the
// entity is confirmed absent from the corpus.
func (c *Cache) Resolve(ctx context.Context, ref Ref) (*lookup.Result, error) {
	key, kind, id, ok := ref.normalize()
	if !ok {
		return nil, nil
	}

	c.mu.Lock()
	if e, hit := c.lookupLocked(key); hit {
		res := e.data
		c.mu.Unlock()
		return res, nil
	}
	if cl, pending := c.inflight[key]; pending {
		c.mu.Unlock()
		select {
		case <-cl.done:
			return cl.res, cl.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	cl := &call{done: make(chan struct{})}
	c.inflight[key] = cl
	c.mu.Unlock()

	res, err := c.fetchOne(ctx, kind, id)
	c.settle(key, cl, res, err)
	return res, err
}

// Prefetch warms the cache for a batch of refs with a single network
// call covering every distinct identifier that is neither fresh nor
// already pending. Repeated prefetches while the call is in flight are
// no-ops. Identifiers the upstream answer mentions in neither results
// nor notFound are marked errored with the cause retained.
func (c *Cache) Prefetch(ctx context.Context, refs []Ref) error {
	type pending struct {
		key string
		id  string
		cl  *call
	}

	var q lookup.BatchQuery
	var items []pending

	c.mu.Lock()
	for _, ref := range refs {
		key, kind, id, ok := ref.normalize()
		if !ok {
			continue
		}
		if _, hit := c.lookupLocked(key); hit {
			continue
		}
		if _, inFlight := c.inflight[key]; inFlight {
			continue
		}

		cl := &call{done: make(chan struct{})}
		c.inflight[key] = cl
		items = append(items, pending{key: key, id: id, cl: cl})

		switch kind {
		case lookup.KindExternalID:
			q.ExternalIDs = append(q.ExternalIDs, id)
		case lookup.KindTitle:
			q.Titles = append(q.Titles, id)
		case lookup.KindNodeID:
			q.NodeIDs = append(q.NodeIDs, id)
		}
	}
	c.mu.Unlock()

	if len(items) == 0 {
		return nil
	}

	resp, err := c.fetcher.FetchBatch(ctx, q)
	for _, it := range items {
		res, callErr := pickResult(resp, err, it.id)
		c.settle(it.key, it.cl, res, callErr)
	}
	return err
}

// Clear drops every settled entry and retained error, and wipes the
// persisted snapshot. In-flight calls are not cancelled; their results
// land in the now-empty cache when they settle.
func (c *Cache) Clear() {
	c.mu.Lock()
	c.entries = make(map[string]*entry)
	c.errs = make(map[string]error)
	c.mu.Unlock()

	if c.opts.Store != nil {
		_ = c.opts.Store.Clear()
	}
}

// lookupLocked applies freshness rules in order: expired entries are
// removed and count as a miss; a fresh entry has its access time
// refreshed (writtenAt stays put, so TTL is independent of access).
func (c *Cache) lookupLocked(key string) (*entry, bool) {
	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	now := c.opts.Clock()
	if now.Sub(e.writtenAt) > c.opts.TTL {
		delete(c.entries, key)
		return nil, false
	}
	e.lastAccessedAt = now
	return e, true
}

func (c *Cache) fetchOne(ctx context.Context, kind, id string) (*lookup.Result, error) {
	var q lookup.BatchQuery
	switch kind {
	case lookup.KindExternalID:
		q.ExternalIDs = []string{id}
	case lookup.KindTitle:
		q.Titles = []string{id}
	case lookup.KindNodeID:
		q.NodeIDs = []string{id}
	}
	resp, err := c.fetcher.FetchBatch(ctx, q)
	return pickResult(resp, err, id)
}

// pickResult maps one identifier out of a batch response: a result, a
// cacheable absent (nil result), or an error when the upstream call
// failed or silently dropped the identifier.
func pickResult(resp *lookup.BatchResult, err error, id string) (*lookup.Result, error) {
	if err != nil {
		return nil, err
	}
	if res, ok := resp.Results[id]; ok {
		return res, nil
	}
	for _, missing := range resp.NotFound {
		if missing == id {
			return nil, nil
		}
	}
	return nil, fmt.Errorf("identifier %q missing from lookup response", id)
}

// settle records the outcome of a call and releases everyone waiting on
// it. The in-flight slot is freed only here, after settling, so no second
// network call can start for the identifier in the meantime.
func (c *Cache) settle(key string, cl *call, res *lookup.Result, err error) {
	c.mu.Lock()
	if err == nil {
		now := c.opts.Clock()
		c.entries[key] = &entry{data: res, writtenAt: now, lastAccessedAt: now}
		delete(c.errs, key)
		c.evictLocked()
	} else {
		c.errs[key] = err
	}
	delete(c.inflight, key)
	c.mu.Unlock()

	cl.res = res
	cl.err = err
	close(cl.done)
}

// evictLocked enforces the entry cap on the write path. Eviction is in
// bulk, a fixed fraction of the cap at once ordered by last access, so
// a burst of inserts does not pay a per-insert eviction scan.
func (c *Cache) evictLocked() {
	if len(c.entries) <= c.opts.MaxEntries {
		return
	}

	n := int(math.Ceil(c.opts.EvictFraction * float64(c.opts.MaxEntries)))
	if n < 1 {
		n = 1
	}

	type aged struct {
		key string
		at  time.Time
	}
	all := make([]aged, 0, len(c.entries))
	for k, e := range c.entries {
		all = append(all, aged{key: k, at: e.lastAccessedAt})
	}
	sort.Slice(all, func(i, j int) bool { return all[i].at.Before(all[j].at) })

	for i := 0; i < n && i < len(all); i++ {
		delete(c.entries, all[i].key)
	}
}
