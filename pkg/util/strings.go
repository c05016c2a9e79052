package util

import (
	"path/filepath"
	"strings"
)

// Extension returns the lower-cased extension of a client-supplied file name
// without the dot, or def when there is none. Only the base name is considered.
func Extension(name, def string) string {
	base := filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	ext := strings.TrimPrefix(filepath.Ext(base), ".")
	if ext == "" || strings.ContainsAny(ext, " /\\") {
		return def
	}
	return strings.ToLower(ext)
}

// SafeName reports whether name is a plain file name that cannot escape its directory.
func SafeName(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	if strings.ContainsAny(name, "/\\\x00") {
		return false
	}
	return filepath.Base(name) == name
}
