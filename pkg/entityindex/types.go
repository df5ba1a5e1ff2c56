// Package entityindex builds and persists the cross-scene entity
// resolution indexes: for every real-world entity appearing in any scene
// dataset, where (dataset, node) it appears. Entities are keyed in three
// independent spaces: the stable external knowledge-base id, the
// encyclopedia article title, and the dataset-local node id.
package entityindex

import "time"

// On-disk layout produced by Write and consumed by the lookup service.
const (
	ExternalIDDir = "by-external-id"
	TitleDir      = "by-title"
	NodeIDDir     = "by-nodeid"

	TitleFile    = "titles.json"
	NodeIDFile   = "nodeids.json"
	ManifestFile = "manifest.json"
)

// Appearance is one occurrence of an entity in one dataset. Immutable
// once written.
type Appearance struct {
	DatasetID   string `json:"datasetId"`
	DatasetName string `json:"datasetName"`
	NodeID      string `json:"nodeId"`
	NodeTitle   string `json:"nodeTitle"`
}

// Record is the aggregated identity of one entity within one key space.
// CanonicalTitle is the title of the first appearance encountered and is
// never overwritten by later datasets. Appearances is append-only and
// ordered by dataset scan order.
type Record struct {
	ExternalID     string       `json:"externalId,omitempty"`
	Title          string       `json:"title,omitempty"`
	CanonicalTitle string       `json:"canonicalTitle"`
	Appearances    []Appearance `json:"appearances"`
}

// Index maps an identifier to its aggregated record within one key space.
type Index map[string]*Record

// DatasetInfo is the per-dataset summary recorded in the manifest.
type DatasetInfo struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	NodeCount int    `json:"nodeCount"`
}

// IndexStats summarizes one key space in the manifest.
type IndexStats struct {
	TotalEntities int `json:"totalEntities"`
	ShardCount    int `json:"shardCount"`
}

// Manifest is the build summary written alongside the indexes.
type Manifest struct {
	GeneratedAt  time.Time     `json:"generatedAt"`
	BuildID      string        `json:"buildId"`
	DatasetCount int           `json:"datasetCount"`
	Datasets     []DatasetInfo `json:"datasets"`
	SkippedNodes int           `json:"skippedNodes"`
	Indexes      struct {
		ExternalID IndexStats `json:"externalId"`
		Title      IndexStats `json:"title"`
		NodeID     IndexStats `json:"nodeId"`
	} `json:"indexes"`
}
