// Package export writes the in-memory batch of a scan pass to disk for
// offline inspection, independent of store writes.
package export

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"ideaengine/internal/models"
)

const timestampLayout = "20060102T150405Z"

// WriteSnapshots emits two timestamped files: the full batch and the
// candidate subset. Returns the written paths.
func WriteSnapshots(dir string, ts time.Time, all, candidates []models.Idea) (string, string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", "", fmt.Errorf("[Export] failed to create snapshot dir: %w", err)
	}

	stamp := ts.UTC().Format(timestampLayout)
	allPath := filepath.Join(dir, fmt.Sprintf("scan_%s_batch.json", stamp))
	candPath := filepath.Join(dir, fmt.Sprintf("scan_%s_candidates.json", stamp))

	if err := writeJSON(allPath, all); err != nil {
		return "", "", err
	}
	if err := writeJSON(candPath, candidates); err != nil {
		return "", "", err
	}
	return allPath, candPath, nil
}

func writeJSON(path string, ideas []models.Idea) error {
	if ideas == nil {
		ideas = []models.Idea{}
	}
	data, err := json.MarshalIndent(ideas, "", "  ")
	if err != nil {
		return fmt.Errorf("[Export] failed to marshal snapshot: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("[Export] failed to write snapshot: %w", err)
	}
	return nil
}
