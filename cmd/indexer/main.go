package main

import (
	"os"
	"time"

	"github.com/moxious/historynet/resolver/internal/util"
	"github.com/moxious/historynet/resolver/pkg/entityindex"
	"github.com/moxious/historynet/resolver/pkg/logger"
)

// Builds the cross-scene entity index from every dataset directory and
// replaces the output directory wholesale. Run offline, after dataset
// edits; the lookup service picks up the new index on its next request.
//
//	indexer [datasets-dir] [index-dir]
func main() {
	util.LoadEnv()

	logger.Init(util.GetEnvBool("DEBUG", false))

	datasetsDir := util.GetEnvString("DATASETS_DIR", "datasets")
	indexDir := util.GetEnvString("INDEX_DIR", "entity-index")
	if len(os.Args) > 1 {
		datasetsDir = os.Args[1]
	}
	if len(os.Args) > 2 {
		indexDir = os.Args[2]
	}

	start := time.Now()

	res, err := entityindex.Build(datasetsDir)
	if err != nil {
		logger.Fatal("Failed to scan datasets", "dir", datasetsDir, "err", err)
	}

	if err := entityindex.Write(indexDir, res); err != nil {
		logger.Fatal("Failed to write entity index", "dir", indexDir, "err", err)
	}

	logger.Info("Entity index written",
		"dir", indexDir,
		"datasets", len(res.Datasets),
		"external_ids", len(res.ByExternalID),
		"titles", len(res.ByTitle),
		"node_ids", len(res.ByNodeID),
		"skipped_nodes", res.SkippedNodes,
		"duration", time.Since(start).Round(time.Millisecond),
	)
}
