package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/willowtree-housing/willow/internal/vocab"
)

// LoadDataset reads a JSON dataset file: an ordered array of scenario
// record objects. Element shape is not validated here; malformed records
// surface as validator violations downstream.
func LoadDataset(path string) ([]map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read dataset file: %w", err)
	}

	var records []map[string]any
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to parse dataset %s: %w", path, err)
	}
	return records, nil
}

// SaveDataset writes records as an indented JSON array. The parent
// directory must exist.
func SaveDataset(path string, records []map[string]any) error {
	if records == nil {
		records = []map[string]any{}
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode dataset: %w", err)
	}
	data = append(data, '\n')
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write dataset file: %w", err)
	}
	return nil
}

// FindDatasetFiles resolves a path to the list of JSON dataset files it
// names: either the file itself or, for a directory, every .json file in
// it (non-recursive), sorted for deterministic processing order.
func FindDatasetFiles(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to access %s: %w", path, err)
	}

	if !info.IsDir() {
		return []string{path}, nil
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", path, err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		files = append(files, filepath.Join(path, entry.Name()))
	}
	sort.Strings(files)

	if len(files) == 0 {
		return nil, fmt.Errorf("no JSON dataset files found in %s", path)
	}
	return files, nil
}

// loadRegistry builds the vocabulary registry from the --vocab flag or the
// embedded default.
func loadRegistry(opts *RootOptions) (*vocab.Registry, error) {
	if opts.VocabPath == "" {
		return vocab.Default(), nil
	}
	return vocab.LoadFile(opts.VocabPath)
}
