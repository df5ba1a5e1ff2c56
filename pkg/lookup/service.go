// Package lookup answers single and batch entity resolution queries
// against the on-disk index produced by the index builder. The service is
// stateless: every request loads only the files it needs, and shard files
// are read-only at serve time, so concurrent requests share nothing.
package lookup

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/moxious/historynet/resolver/pkg/entityindex"
	"github.com/moxious/historynet/resolver/pkg/logger"
)

// Identifier kinds, matching the query parameter names of the HTTP API.
const (
	KindExternalID = "externalId"
	KindTitle      = "title"
	KindNodeID     = "nodeId"
)

// ErrUnavailable means the index was never generated. Callers surface it
// as "feature not provisioned", which is different from "nothing matched".
var ErrUnavailable = errors.New("entity index not generated")

// batchParallelism bounds concurrent file loads during batch resolution.
const batchParallelism = 8

// Query carries whichever identifiers the caller has for one logical
// entity. Resolution tries external id first, then title, then node id.
type Query struct {
	ExternalID string
	Title      string
	NodeID     string
}

// Identity describes which identifiers the resolved entity is known by.
type Identity struct {
	ExternalID     string `json:"externalId,omitempty"`
	Title          string `json:"title,omitempty"`
	CanonicalTitle string `json:"canonicalTitle"`
}

// Result is the answer for one identifier. Zero appearances is a normal,
// successful outcome meaning the entity is unknown to the corpus.
type Result struct {
	Identity         Identity                 `json:"identity"`
	Appearances      []entityindex.Appearance `json:"appearances"`
	TotalAppearances int                      `json:"totalAppearances"`
}

// BatchQuery holds already-split identifier lists, any combination of the
// three kinds in one call.
type BatchQuery struct {
	ExternalIDs []string
	Titles      []string
	NodeIDs     []string
}

// BatchResult maps each found identifier to its result; identifiers with
// no appearances anywhere land in NotFound.
type BatchResult struct {
	Results  map[string]*Result `json:"results"`
	NotFound []string           `json:"notFound"`
}

// Service resolves queries against the index rooted at dir.
type Service struct {
	dir string
}

func NewService(dir string) *Service {
	return &Service{dir: dir}
}

// Available reports whether the index has been generated.
func (s *Service) Available() bool {
	_, err := os.Stat(filepath.Join(s.dir, entityindex.ManifestFile))
	return err == nil
}

// Resolve answers a single query. An unknown entity yields a zero-
// appearance result echoing the queried identity, not an error. Only a
// never-provisioned index is an error.
func (s *Service) Resolve(ctx context.Context, q Query) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !s.Available() {
		return nil, ErrUnavailable
	}

	if q.ExternalID != "" {
		requestsTotal.WithLabelValues(KindExternalID).Inc()
		if rec := s.lookupExternalID(q.ExternalID); rec != nil {
			return resultFor(rec), nil
		}
	}
	if q.Title != "" {
		requestsTotal.WithLabelValues(KindTitle).Inc()
		if rec := s.lookupFlat(entityindex.TitleDir, entityindex.TitleFile, q.Title); rec != nil {
			return resultFor(rec), nil
		}
	}
	if q.NodeID != "" {
		requestsTotal.WithLabelValues(KindNodeID).Inc()
		if rec := s.lookupFlat(entityindex.NodeIDDir, entityindex.NodeIDFile, q.NodeID); rec != nil {
			return resultFor(rec), nil
		}
	}

	notFoundTotal.Inc()
	return &Result{
		Identity:    Identity{ExternalID: q.ExternalID, Title: q.Title},
		Appearances: []entityindex.Appearance{},
	}, nil
}

// ResolveBatch looks up every identifier independently, fanning out over
// a bounded group. Identifiers repeated across kinds are resolved once,
// first kind wins.
func (s *Service) ResolveBatch(ctx context.Context, q BatchQuery) (*BatchResult, error) {
	if !s.Available() {
		return nil, ErrUnavailable
	}

	type item struct {
		kind string
		id   string
	}
	var items []item
	seen := make(map[string]struct{})
	add := func(kind string, ids []string) {
		for _, id := range ids {
			if id == "" {
				continue
			}
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			items = append(items, item{kind: kind, id: id})
		}
	}
	add(KindExternalID, q.ExternalIDs)
	add(KindTitle, q.Titles)
	add(KindNodeID, q.NodeIDs)

	out := &BatchResult{
		Results:  make(map[string]*Result),
		NotFound: []string{},
	}

	eg, gCtx := errgroup.WithContext(ctx)
	eg.SetLimit(batchParallelism)
	mutex := sync.Mutex{}

	for _, it := range items {
		it := it
		eg.Go(func() error {
			var q Query
			switch it.kind {
			case KindExternalID:
				q.ExternalID = it.id
			case KindTitle:
				q.Title = it.id
			case KindNodeID:
				q.NodeID = it.id
			}

			res, err := s.Resolve(gCtx, q)
			if err != nil {
				return err
			}

			mutex.Lock()
			defer mutex.Unlock()
			if res.TotalAppearances > 0 {
				out.Results[it.id] = res
			} else {
				out.NotFound = append(out.NotFound, it.id)
			}
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, err
	}

	sort.Strings(out.NotFound)
	return out, nil
}

// lookupExternalID loads only the shard the identifier maps to, bounding
// per-request I/O regardless of corpus size. A missing shard means the
// identifier is unknown; a corrupt shard is logged and treated the same
// way rather than failing the request.
func (s *Service) lookupExternalID(id string) *entityindex.Record {
	path := filepath.Join(s.dir, entityindex.ExternalIDDir, entityindex.ShardFile(id))
	idx, err := entityindex.ReadIndexFile(path)
	if errors.Is(err, entityindex.ErrAbsent) {
		return nil
	}
	if err != nil {
		shardFailuresTotal.Inc()
		logger.Warn("Failed to load external-id shard", "shard", entityindex.ShardFile(id), "err", err)
		return nil
	}
	return idx[id]
}

func (s *Service) lookupFlat(dir, file, id string) *entityindex.Record {
	idx, err := entityindex.ReadIndexFile(filepath.Join(s.dir, dir, file))
	if errors.Is(err, entityindex.ErrAbsent) {
		return nil
	}
	if err != nil {
		shardFailuresTotal.Inc()
		logger.Warn("Failed to load index file", "file", file, "err", err)
		return nil
	}
	return idx[id]
}

func resultFor(rec *entityindex.Record) *Result {
	return &Result{
		Identity: Identity{
			ExternalID:     rec.ExternalID,
			Title:          rec.Title,
			CanonicalTitle: rec.CanonicalTitle,
		},
		Appearances:      rec.Appearances,
		TotalAppearances: len(rec.Appearances),
	}
}
