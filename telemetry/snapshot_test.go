package telemetry

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSnapshotSaveLoad(t *testing.T) {
	tmpDir := t.TempDir()

	snapshot := &Snapshot{
		Version:     SnapshotVersion,
		Step:        120,
		Width:       2,
		Height:      2,
		Depth:       1,
		Density:     []float32{0, 0.25, 0.5, 1},
		Temperature: []float32{0, 1, 2, 3},
		Stats:       &FieldStats{Step: 120, TotalDensity: 1.75},
		Bookmark: &Bookmark{
			Type:        BookmarkPlumeAtCeiling,
			Step:        120,
			Description: "Test bookmark",
		},
	}

	path, err := SaveSnapshot(snapshot, tmpDir)
	if err != nil {
		t.Fatalf("SaveSnapshot failed: %v", err)
	}
	if want := "snapshot_120_plume_at_ceiling.json"; filepath.Base(path) != want {
		t.Errorf("file = %s, want %s", filepath.Base(path), want)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("snapshot file not created: %v", err)
	}

	loaded, err := LoadSnapshot(path)
	if err != nil {
		t.Fatalf("LoadSnapshot failed: %v", err)
	}
	if loaded.Step != 120 || loaded.Width != 2 || loaded.Depth != 1 {
		t.Errorf("header = %+v", loaded)
	}
	for i, d := range snapshot.Density {
		if loaded.Density[i] != d {
			t.Errorf("density[%d] = %v, want %v", i, loaded.Density[i], d)
		}
	}
	if loaded.Stats == nil || loaded.Stats.TotalDensity != 1.75 {
		t.Errorf("stats = %+v", loaded.Stats)
	}
	if loaded.Bookmark == nil || loaded.Bookmark.Type != BookmarkPlumeAtCeiling {
		t.Errorf("bookmark = %+v", loaded.Bookmark)
	}
}

func TestLoadSnapshotValidates(t *testing.T) {
	tests := []struct {
		name string
		json string
		want string
	}{
		{"version", `{"version": 9, "width": 1, "height": 1, "depth": 1, "density": [0]}`, "version"},
		{"empty grid", `{"version": 1, "width": 0, "height": 1, "depth": 1}`, "empty"},
		{"short density", `{"version": 1, "width": 2, "height": 1, "depth": 1, "density": [0]}`, "density"},
		{"short temperature", `{"version": 1, "width": 1, "height": 1, "depth": 1, "density": [0], "temperature": [1, 2]}`, "temperature"},
		{"malformed", `{"version":`, "unmarshal"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "snap.json")
			if err := os.WriteFile(path, []byte(tt.json), 0644); err != nil {
				t.Fatal(err)
			}
			_, err := LoadSnapshot(path)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("err = %v, want mention of %q", err, tt.want)
			}
		})
	}
}

func TestLoadSnapshotMissing(t *testing.T) {
	if _, err := LoadSnapshot(filepath.Join(t.TempDir(), "none.json")); err == nil {
		t.Error("expected error for missing snapshot")
	}
}
