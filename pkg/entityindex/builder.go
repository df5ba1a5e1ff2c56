package entityindex

import (
	"github.com/moxious/historynet/resolver/pkg/logger"
	"github.com/moxious/historynet/resolver/pkg/scene"
)

// BuildResult holds the three in-memory indexes plus the scan summary.
// Each stage of the build takes the previous stage's output as an
// argument; nothing lives in package state.
type BuildResult struct {
	ByExternalID Index
	ByTitle      Index
	ByNodeID     Index

	Datasets     []DatasetInfo
	SkippedNodes int
}

// Build scans every dataset under root sequentially and aggregates node
// appearances into the three key-space indexes. A dataset that fails to
// load is skipped with a warning; the run always produces valid output
// for the remaining datasets. Only a missing root is an error.
func Build(root string) (*BuildResult, error) {
	dirs, err := scene.ListDatasets(root)
	if err != nil {
		return nil, err
	}

	res := &BuildResult{
		ByExternalID: Index{},
		ByTitle:      Index{},
		ByNodeID:     Index{},
	}

	for _, dir := range dirs {
		ds, err := scene.LoadDataset(root, dir)
		if err != nil {
			logger.Warn("Skipping unreadable dataset", "dataset", dir, "err", err)
			continue
		}
		res.indexDataset(ds)
	}

	return res, nil
}

func (r *BuildResult) indexDataset(ds *scene.Dataset) {
	indexed := 0
	for _, node := range ds.Nodes {
		if node.ExternalID == "" && node.WikiTitle == "" && node.ID == "" {
			r.SkippedNodes++
			continue
		}

		app := Appearance{
			DatasetID:   ds.Manifest.ID,
			DatasetName: ds.Manifest.Name,
			NodeID:      node.ID,
			NodeTitle:   node.Title,
		}

		if node.ExternalID != "" {
			r.ByExternalID.append(node.ExternalID, node, app)
		}
		if node.WikiTitle != "" {
			r.ByTitle.append(node.WikiTitle, node, app)
		}
		if node.ID != "" {
			r.ByNodeID.append(node.ID, node, app)
		}
		indexed++
	}

	r.Datasets = append(r.Datasets, DatasetInfo{
		ID:        ds.Manifest.ID,
		Name:      ds.Manifest.Name,
		NodeCount: indexed,
	})

	logger.Debug("Indexed dataset", "dataset", ds.Manifest.ID, "nodes", indexed)
}

// append merges an appearance into the record for key, creating the
// record on first sight. Identity fields are fixed by the first node
// seen for the key; later nodes only contribute appearances.
func (idx Index) append(key string, node scene.Node, app Appearance) {
	rec, ok := idx[key]
	if !ok {
		rec = &Record{
			ExternalID:     node.ExternalID,
			Title:          node.WikiTitle,
			CanonicalTitle: node.Title,
		}
		idx[key] = rec
	}
	rec.Appearances = append(rec.Appearances, app)
}
