package util

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// TimestampedName builds "<prefix>_<unix seconds>.<ext>".
func TimestampedName(prefix string, t time.Time, ext string) string {
	return fmt.Sprintf("%s_%d.%s", prefix, t.Unix(), ext)
}

// CreateUnique creates name inside dir without overwriting an existing file.
// On collision it tries name-1, name-2, ... before the extension.
func CreateUnique(dir, name string) (*os.File, string, error) {
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	candidate := name
	for i := 1; i <= 1000; i++ {
		f, err := os.OpenFile(filepath.Join(dir, candidate), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err == nil {
			return f, candidate, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return nil, "", err
		}
		candidate = fmt.Sprintf("%s-%d%s", stem, i, ext)
	}
	return nil, "", fmt.Errorf("no free name for %s in %s", name, dir)
}
