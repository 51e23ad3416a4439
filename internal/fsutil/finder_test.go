package fsutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
}

func TestFindFiles(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.hcl"))
	writeFile(t, filepath.Join(root, "nested", "deep", "b.hcl"))
	writeFile(t, filepath.Join(root, "nested", "readme.md"))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "dir.hcl"), 0o755))

	files, err := FindFiles(root, "**/*.hcl")

	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(root, "a.hcl"),
		filepath.Join(root, "nested", "deep", "b.hcl"),
	}, files)
}

func TestFindFiles_BadPattern(t *testing.T) {
	_, err := FindFiles(t.TempDir(), "[")
	require.Error(t, err)

	assert.Panics(t, func() { _, _ = FindFiles(".", "") })
}

func TestMatch(t *testing.T) {
	root := filepath.Join("srv", "modules")
	testCases := []struct {
		name string
		path string
		want bool
	}{
		{name: "top level", path: filepath.Join(root, "a.hcl"), want: true},
		{name: "nested", path: filepath.Join(root, "x", "y", "a.hcl"), want: true},
		{name: "wrong extension", path: filepath.Join(root, "a.txt"), want: false},
		{name: "outside root", path: filepath.Join("srv", "other", "a.hcl"), want: false},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Match(root, "**/*.hcl", tc.path))
		})
	}
}

func TestFindDirs(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a", "b", "f.hcl"))

	dirs, err := FindDirs(root)

	require.NoError(t, err)
	assert.Equal(t, []string{root, filepath.Join(root, "a"), filepath.Join(root, "a", "b")}, dirs)
}
