package repository

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"SensorStream/internal/domain/models"
	domrepo "SensorStream/internal/domain/repository"
	"SensorStream/pkg/util"
)

// VideoStore keeps uploaded videos as plain files in one directory.
type VideoStore struct {
	dir string
}

func NewVideoStore(dir string) domrepo.VideoStore {
	return &VideoStore{dir: dir}
}

// Save copies r into dir/name without overwriting an existing file and
// returns the name used and the number of bytes written.
func (s *VideoStore) Save(ctx context.Context, name string, r io.Reader) (string, int64, error) {
	if !util.SafeName(name) {
		return "", 0, fmt.Errorf("save %q: %w", name, models.ErrInvalidName)
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", 0, fmt.Errorf("create upload dir: %w", err)
	}

	f, stored, err := util.CreateUnique(s.dir, name)
	if err != nil {
		return "", 0, fmt.Errorf("create %s: %w", name, err)
	}

	n, err := io.Copy(f, &ctxReader{ctx: ctx, r: r})
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(filepath.Join(s.dir, stored))
		return "", 0, fmt.Errorf("write %s: %w", stored, err)
	}
	return stored, n, nil
}

// Path resolves name to a file inside dir.
func (s *VideoStore) Path(name string) (string, error) {
	if !util.SafeName(name) {
		return "", models.ErrInvalidName
	}
	p := filepath.Join(s.dir, name)
	info, err := os.Stat(p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", models.ErrVideoNotFound
		}
		return "", err
	}
	if info.IsDir() {
		return "", models.ErrVideoNotFound
	}
	return p, nil
}

// ctxReader stops a long copy once the request is gone.
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
