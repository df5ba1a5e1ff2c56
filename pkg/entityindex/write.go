package entityindex

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/moxious/historynet/resolver/pkg/logger"
)

// Write serializes a build result into dir, replacing any previous index
// wholesale. The files are staged in a sibling temp directory and swapped
// into place at the end, so a failed run never leaves partial output and
// a concurrent reader never sees a half-written index.
func Write(dir string, res *BuildResult) error {
	buildID, err := gonanoid.New()
	if err != nil {
		return fmt.Errorf("failed to generate build id: %w", err)
	}

	tmp := fmt.Sprintf("%s.build-%s", dir, buildID)
	if err := writeTree(tmp, buildID, res); err != nil {
		os.RemoveAll(tmp)
		return err
	}

	if err := os.RemoveAll(dir); err != nil {
		os.RemoveAll(tmp)
		return fmt.Errorf("failed to remove previous index %s: %w", dir, err)
	}
	if err := os.Rename(tmp, dir); err != nil {
		os.RemoveAll(tmp)
		return fmt.Errorf("failed to move index into place: %w", err)
	}

	return nil
}

func writeTree(dir, buildID string, res *BuildResult) error {
	shards := partitionShards(res.ByExternalID)

	if err := os.MkdirAll(filepath.Join(dir, ExternalIDDir), 0o755); err != nil {
		return fmt.Errorf("failed to create index directory: %w", err)
	}
	for _, sub := range []string{TitleDir, NodeIDDir} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0o755); err != nil {
			return fmt.Errorf("failed to create index directory: %w", err)
		}
	}

	for name, shard := range shards {
		if err := writeJSON(filepath.Join(dir, ExternalIDDir, name), shard); err != nil {
			return err
		}
	}
	if err := writeJSON(filepath.Join(dir, TitleDir, TitleFile), res.ByTitle); err != nil {
		return err
	}
	if err := writeJSON(filepath.Join(dir, NodeIDDir, NodeIDFile), res.ByNodeID); err != nil {
		return err
	}

	manifest := buildManifest(buildID, res, len(shards))
	if err := writeJSON(filepath.Join(dir, ManifestFile), manifest); err != nil {
		return err
	}

	logger.Info("Entity index staged",
		"build_id", buildID,
		"datasets", len(res.Datasets),
		"external_id_shards", len(shards),
	)

	return nil
}

// partitionShards splits the external-id index into per-shard maps. Every
// identifier lands in exactly one shard.
func partitionShards(idx Index) map[string]Index {
	shards := make(map[string]Index)
	for key, rec := range idx {
		name := ShardFile(key)
		shard, ok := shards[name]
		if !ok {
			shard = Index{}
			shards[name] = shard
		}
		shard[key] = rec
	}
	return shards
}

func buildManifest(buildID string, res *BuildResult, shardCount int) *Manifest {
	m := &Manifest{
		GeneratedAt:  time.Now().UTC(),
		BuildID:      buildID,
		DatasetCount: len(res.Datasets),
		Datasets:     res.Datasets,
		SkippedNodes: res.SkippedNodes,
	}
	m.Indexes.ExternalID = IndexStats{TotalEntities: len(res.ByExternalID), ShardCount: shardCount}
	m.Indexes.Title = IndexStats{TotalEntities: len(res.ByTitle), ShardCount: 1}
	m.Indexes.NodeID = IndexStats{TotalEntities: len(res.ByNodeID), ShardCount: 1}
	return m
}

func writeJSON(path string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
