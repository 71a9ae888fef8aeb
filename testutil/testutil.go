// Package testutil provides shared helpers for tests that operate on real
// project directories.
package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// SeedProject creates a temp directory prepopulated with files. Keys are
// slash-separated paths relative to the project root.
func SeedProject(t *testing.T, files map[string]string) string {
	t.Helper()

	dir := t.TempDir()
	for rel, content := range files {
		WriteFile(t, dir, rel, content)
	}
	return dir
}

// WriteFile writes content at a slash-separated path under dir, creating
// parent directories as needed. Returns the absolute path.
func WriteFile(t *testing.T, dir, rel, content string) string {
	t.Helper()

	path := filepath.Join(dir, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}
