package telemetry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// SnapshotVersion is incremented when the format changes.
const SnapshotVersion = 1

// Snapshot holds the scalar fields of one step. A density snapshot can
// be loaded back as a static volume for raycast-only viewing.
type Snapshot struct {
	Version int `json:"version"`
	Step    int `json:"step"`

	Width  int `json:"width"`
	Height int `json:"height"`
	Depth  int `json:"depth"`

	// x-fastest, one float per cell
	Density     []float32 `json:"density"`
	Temperature []float32 `json:"temperature,omitempty"`

	Stats    *FieldStats `json:"stats,omitempty"`
	Bookmark *Bookmark   `json:"bookmark,omitempty"`
}

// Validate checks the version and that every field matches the grid.
func (s *Snapshot) Validate() error {
	if s.Version != SnapshotVersion {
		return fmt.Errorf("snapshot version %d, want %d", s.Version, SnapshotVersion)
	}
	if s.Width <= 0 || s.Height <= 0 || s.Depth <= 0 {
		return fmt.Errorf("snapshot grid %dx%dx%d is empty", s.Width, s.Height, s.Depth)
	}
	cells := s.Width * s.Height * s.Depth
	if len(s.Density) != cells {
		return fmt.Errorf("snapshot density has %d values for %d cells", len(s.Density), cells)
	}
	if s.Temperature != nil && len(s.Temperature) != cells {
		return fmt.Errorf("snapshot temperature has %d values for %d cells", len(s.Temperature), cells)
	}
	return nil
}

// SaveSnapshot writes a snapshot to dir and returns its path.
func SaveSnapshot(snapshot *Snapshot, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create snapshot dir: %w", err)
	}

	name := fmt.Sprintf("snapshot_%d", snapshot.Step)
	if snapshot.Bookmark != nil {
		sanitized := strings.ReplaceAll(string(snapshot.Bookmark.Type), " ", "_")
		name = fmt.Sprintf("snapshot_%d_%s", snapshot.Step, sanitized)
	}
	path := filepath.Join(dir, name+".json")

	data, err := json.Marshal(snapshot)
	if err != nil {
		return "", fmt.Errorf("marshal snapshot: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("write snapshot: %w", err)
	}
	return path, nil
}

// LoadSnapshot reads and validates a snapshot.
func LoadSnapshot(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}

	var snapshot Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	if err := snapshot.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &snapshot, nil
}
