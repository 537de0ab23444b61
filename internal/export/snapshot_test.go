package export

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ideaengine/internal/models"
)

func TestWriteSnapshotsEmitsBothFiles(t *testing.T) {
	dir := t.TempDir()
	ts := time.Date(2025, 8, 1, 12, 30, 0, 0, time.UTC)

	all := []models.Idea{
		{Title: "a", SourceName: "webdev"},
		{Title: "b", SourceName: "startups"},
	}
	candidates := all[:1]

	allPath, candPath, err := WriteSnapshots(dir, ts, all, candidates)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "scan_20250801T123000Z_batch.json"), allPath)
	assert.Equal(t, filepath.Join(dir, "scan_20250801T123000Z_candidates.json"), candPath)

	var gotAll, gotCand []models.Idea
	readJSON(t, allPath, &gotAll)
	readJSON(t, candPath, &gotCand)
	assert.Len(t, gotAll, 2)
	assert.Len(t, gotCand, 1)
	assert.Equal(t, "a", gotCand[0].Title)
}

func TestWriteSnapshotsHandlesEmptyBatch(t *testing.T) {
	dir := t.TempDir()

	allPath, candPath, err := WriteSnapshots(dir, time.Now(), nil, nil)
	require.NoError(t, err)

	var gotAll, gotCand []models.Idea
	readJSON(t, allPath, &gotAll)
	readJSON(t, candPath, &gotCand)
	assert.Empty(t, gotAll)
	assert.Empty(t, gotCand)
}

func readJSON(t *testing.T, path string, out *[]models.Idea) {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, out))
}
