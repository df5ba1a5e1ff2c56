// Package scene models the hand-authored scene dataset layout: one
// directory per dataset, each holding a manifest and a node list. The
// files are produced and validated by the dataset authoring tooling;
// this package only reads them.
package scene

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Manifest describes one scene dataset.
type Manifest struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Period      string `json:"period,omitempty"`
}

// Node is one entry in a dataset's node list: a person, object, location
// or organization appearing in the scene. ExternalID is the stable
// knowledge-base identifier (letter prefix followed by digits, e.g.
// "Q937"); WikiTitle is the encyclopedia article title. Both are
// optional, as is everything beyond ID and Title.
type Node struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	Type       string `json:"type,omitempty"`
	ExternalID string `json:"externalId,omitempty"`
	WikiTitle  string `json:"wikiTitle,omitempty"`
}

// Dataset is one loaded dataset directory.
type Dataset struct {
	Dir      string
	Manifest Manifest
	Nodes    []Node
}

const (
	manifestFile = "manifest.json"
	nodesFile    = "nodes.json"
)

// ListDatasets returns the dataset directory names under root in sorted
// order. Hidden directories and plain files are skipped. A missing root
// is an error; the caller decides whether that is fatal.
func ListDatasets(root string) ([]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("failed to read datasets root %s: %w", root, err)
	}

	var dirs []string
	for _, entry := range entries {
		if !entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		dirs = append(dirs, entry.Name())
	}
	sort.Strings(dirs)

	return dirs, nil
}

// LoadDataset reads one dataset directory. Any missing or unparsable
// file is returned as an error so the indexer can skip the dataset
// without aborting the run.
func LoadDataset(root, dir string) (*Dataset, error) {
	var manifest Manifest
	if err := readJSON(filepath.Join(root, dir, manifestFile), &manifest); err != nil {
		return nil, err
	}

	var nodes []Node
	if err := readJSON(filepath.Join(root, dir, nodesFile), &nodes); err != nil {
		return nil, err
	}

	if manifest.ID == "" {
		manifest.ID = dir
	}
	if manifest.Name == "" {
		manifest.Name = manifest.ID
	}

	return &Dataset{
		Dir:      dir,
		Manifest: manifest,
		Nodes:    nodes,
	}, nil
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nil
}
