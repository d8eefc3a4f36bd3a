package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveLoadDataset_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dataset.json")
	records := []map[string]any{
		sampleRecord("scn-a1", "monday"),
		sampleRecord("scn-a2", "tuesday"),
	}

	require.NoError(t, SaveDataset(path, records))

	loaded, err := LoadDataset(path)
	require.NoError(t, err)
	require.Len(t, loaded, 2)
	assert.Equal(t, "scn-a1", loaded[0]["scenario_id"])
	assert.Equal(t, "scn-a2", loaded[1]["scenario_id"])
}

func TestSaveDataset_NilWritesEmptyArray(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dataset.json")
	require.NoError(t, SaveDataset(path, nil))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "[]\n", string(data))
}

func TestLoadDataset_NotAnArray(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dataset.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"scenario_id": "x"}`), 0o644))

	_, err := LoadDataset(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse dataset")
}

func TestFindDatasetFiles_SingleFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dataset.json")
	require.NoError(t, os.WriteFile(path, []byte("[]"), 0o644))

	files, err := FindDatasetFiles(path)
	require.NoError(t, err)
	assert.Equal(t, []string{path}, files)
}

func TestFindDatasetFiles_DirectorySorted(t *testing.T) {
	tmpDir := t.TempDir()
	for _, name := range []string{"b.json", "a.json", "notes.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(tmpDir, name), []byte("[]"), 0o644))
	}

	files, err := FindDatasetFiles(tmpDir)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(tmpDir, "a.json"),
		filepath.Join(tmpDir, "b.json"),
	}, files)
}

func TestFindDatasetFiles_EmptyDirectory(t *testing.T) {
	_, err := FindDatasetFiles(t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no JSON dataset files")
}
