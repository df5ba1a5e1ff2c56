package scene

import (
	"encoding/json"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func writeDataset(t *testing.T, root, dir string, manifest any, nodes any) {
	t.Helper()

	dsDir := filepath.Join(root, dir)
	if err := os.MkdirAll(dsDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if manifest != nil {
		data, _ := json.Marshal(manifest)
		if err := os.WriteFile(filepath.Join(dsDir, "manifest.json"), data, 0o644); err != nil {
			t.Fatalf("write manifest: %v", err)
		}
	}
	if nodes != nil {
		data, _ := json.Marshal(nodes)
		if err := os.WriteFile(filepath.Join(dsDir, "nodes.json"), data, 0o644); err != nil {
			t.Fatalf("write nodes: %v", err)
		}
	}
}

func TestListDatasets(t *testing.T) {
	root := t.TempDir()
	for _, dir := range []string{"zeta", "alpha", ".git"} {
		if err := os.MkdirAll(filepath.Join(root, dir), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
	}
	if err := os.WriteFile(filepath.Join(root, "README.md"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	dirs, err := ListDatasets(root)
	if err != nil {
		t.Fatalf("ListDatasets: %v", err)
	}
	if !reflect.DeepEqual(dirs, []string{"alpha", "zeta"}) {
		t.Fatalf("dirs = %v, want sorted dataset dirs only", dirs)
	}
}

func TestListDatasetsMissingRoot(t *testing.T) {
	if _, err := ListDatasets(filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Fatal("expected error for missing root")
	}
}

func TestLoadDataset(t *testing.T) {
	root := t.TempDir()
	writeDataset(t, root, "rome", Manifest{ID: "rome-100ad", Name: "Rome, 100 AD", Period: "100 AD"}, []Node{
		{ID: "per-trajan", Title: "Trajan", Type: "person", ExternalID: "Q1425"},
	})

	ds, err := LoadDataset(root, "rome")
	if err != nil {
		t.Fatalf("LoadDataset: %v", err)
	}
	if ds.Dir != "rome" || ds.Manifest.ID != "rome-100ad" || ds.Manifest.Period != "100 AD" {
		t.Fatalf("unexpected dataset %+v", ds)
	}
	if len(ds.Nodes) != 1 || ds.Nodes[0].ExternalID != "Q1425" {
		t.Fatalf("unexpected nodes %+v", ds.Nodes)
	}
}

func TestLoadDatasetDefaultsIdentity(t *testing.T) {
	root := t.TempDir()
	writeDataset(t, root, "unnamed", map[string]string{}, []Node{})

	ds, err := LoadDataset(root, "unnamed")
	if err != nil {
		t.Fatalf("LoadDataset: %v", err)
	}
	if ds.Manifest.ID != "unnamed" || ds.Manifest.Name != "unnamed" {
		t.Fatalf("expected directory-derived defaults, got %+v", ds.Manifest)
	}
}

func TestLoadDatasetErrors(t *testing.T) {
	root := t.TempDir()

	// Missing nodes.json.
	writeDataset(t, root, "nonodes", Manifest{ID: "nonodes"}, nil)
	if _, err := LoadDataset(root, "nonodes"); err == nil {
		t.Fatal("expected error for missing node list")
	}

	// Unparsable manifest.
	badDir := filepath.Join(root, "bad")
	if err := os.MkdirAll(badDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(badDir, "manifest.json"), []byte("{oops"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := LoadDataset(root, "bad"); err == nil {
		t.Fatal("expected error for corrupt manifest")
	}
}
