package utils

import (
	"path/filepath"
	"strings"
)

// GetPathInfo resolves a possibly relative path to its absolute form and the
// directory containing it.
func GetPathInfo(relPath string) (fullPath string, parentDir string, err error) {
	fullPath, err = filepath.Abs(relPath)
	if err != nil {
		return "", "", err
	}
	parentDir = filepath.Dir(fullPath)
	return fullPath, parentDir, nil
}

// WithExt swaps the extension of path for ext (which should include the dot).
// A path without an extension just gains ext.
func WithExt(path string, ext string) string {
	old := filepath.Ext(path)
	if old == "" {
		return path + ext
	}
	return strings.TrimSuffix(path, old) + ext
}
