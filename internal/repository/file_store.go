package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"SensorStream/internal/domain/models"
	domrepo "SensorStream/internal/domain/repository"
	"SensorStream/pkg/util"
)

// FileStore writes each flushed batch as a JSON array into a directory.
type FileStore struct {
	dir string
}

// NewFileStore creates a file-backed SampleStore rooted at dir.
func NewFileStore(dir string) domrepo.SampleStore {
	return &FileStore{dir: dir}
}

func (s *FileStore) Backend() string { return "file" }

// Save writes readings to dir/name. An existing file is never overwritten; a
// numbered suffix is added instead and the name actually used is returned.
func (s *FileStore) Save(ctx context.Context, name string, readings []models.Reading) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if !util.SafeName(name) {
		return "", fmt.Errorf("save %q: %w", name, models.ErrInvalidName)
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("create data dir: %w", err)
	}

	f, stored, err := util.CreateUnique(s.dir, name)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", name, err)
	}

	if readings == nil {
		readings = []models.Reading{}
	}
	if err := json.NewEncoder(f).Encode(readings); err != nil {
		_ = f.Close()
		_ = os.Remove(filepath.Join(s.dir, stored))
		return "", fmt.Errorf("encode %s: %w", stored, err)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		_ = os.Remove(filepath.Join(s.dir, stored))
		return "", fmt.Errorf("sync %s: %w", stored, err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(filepath.Join(s.dir, stored))
		return "", fmt.Errorf("close %s: %w", stored, err)
	}
	return stored, nil
}

func (s *FileStore) Close() error { return nil }
