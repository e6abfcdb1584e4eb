package datasets

import (
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
)

// SaveSignalArray writes a channels-by-samples array to path as a gob
// stream, creating parent directories as needed. The write is atomic: a
// temp file in the target directory is renamed into place, so readers never
// observe a partially written array.
func SaveSignalArray(path string, signal [][]float64) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create signal cache directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp.*")
	if err != nil {
		return fmt.Errorf("failed to create temp signal cache: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		tmp.Close()
		os.Remove(tmpName)
	}()

	if err := gob.NewEncoder(tmp).Encode(signal); err != nil {
		return fmt.Errorf("failed to encode signal cache %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp signal cache: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to move signal cache into place at %s: %w", path, err)
	}
	return nil
}

// LoadSignalArray reads a channels-by-samples array previously written by
// SaveSignalArray.
func LoadSignalArray(path string) ([][]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open signal cache %s: %w", path, err)
	}
	defer f.Close()
	var signal [][]float64
	if err := gob.NewDecoder(f).Decode(&signal); err != nil {
		return nil, fmt.Errorf("failed to decode signal cache %s: %w", path, err)
	}
	return signal, nil
}
