package entityindex

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// ErrAbsent marks an index file that does not exist on disk. Callers
// treat it as "no entities in this range", distinct from a corrupt file.
var ErrAbsent = errors.New("index file absent")

// ReadIndexFile loads one flat identifier-to-record file. It returns
// ErrAbsent for a missing file and a wrapped parse error for a corrupt
// one, so callers can tell the two apart without touching the error text.
func ReadIndexFile(path string) (Index, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrAbsent
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var idx Index
	if err := json.Unmarshal(data, &idx); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
	}
	return idx, nil
}

// ReadManifest loads the build summary at the index root.
func ReadManifest(dir string) (*Manifest, error) {
	data, err := os.ReadFile(filepath.Join(dir, ManifestFile))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrAbsent
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read index manifest: %w", err)
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse index manifest: %w", err)
	}
	return &m, nil
}
