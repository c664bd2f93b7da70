package ingest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Document is one exported wiki page
type Document struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	Content    string `json:"content"`
	URL        string `json:"url"`
	SpaceKey   string `json:"space_key"`
	SpaceName  string `json:"space_name"`
	ExportedAt string `json:"exported_at"`
}

// Snapshot is the durable export of all wiki documents
type Snapshot struct {
	ExportTime string     `json:"export_time"`
	TotalDocs  int        `json:"total_docs"`
	Docs       []Document `json:"docs"`
}

// WriteSnapshot writes a snapshot atomically via a temp file rename
func WriteSnapshot(path string, docs []Document) error {
	snap := Snapshot{
		ExportTime: time.Now().Format(time.RFC3339),
		TotalDocs:  len(docs),
		Docs:       docs,
	}

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create snapshot dir: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to finalize snapshot: %w", err)
	}
	return nil
}

// ReadSnapshot loads a snapshot from disk
func ReadSnapshot(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to parse snapshot: %w", err)
	}
	return &snap, nil
}
