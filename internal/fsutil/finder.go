// Package fsutil provides file system utility functions.
package fsutil

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// FindFiles returns every regular file under rootPath whose path relative to
// rootPath matches the doublestar pattern (for example "**/*.hcl"). The
// returned paths are joined with rootPath and sorted.
func FindFiles(rootPath string, pattern string) ([]string, error) {
	if pattern == "" {
		panic("pattern must not be empty")
	}
	if !doublestar.ValidatePattern(pattern) {
		return nil, doublestar.ErrBadPattern
	}

	matches, err := doublestar.Glob(os.DirFS(rootPath), filepath.ToSlash(pattern), doublestar.WithFilesOnly())
	if err != nil {
		return nil, err
	}

	files := make([]string, 0, len(matches))
	for _, m := range matches {
		files = append(files, filepath.Join(rootPath, filepath.FromSlash(m)))
	}
	sort.Strings(files)
	return files, nil
}

// Match reports whether path, taken relative to rootPath, matches pattern.
// Paths outside rootPath never match.
func Match(rootPath, pattern, path string) bool {
	rel, err := filepath.Rel(rootPath, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return false
	}
	ok, err := doublestar.Match(filepath.ToSlash(pattern), filepath.ToSlash(rel))
	return err == nil && ok
}

// FindDirs recursively lists rootPath and every directory below it.
func FindDirs(rootPath string) ([]string, error) {
	var dirs []string
	err := filepath.WalkDir(rootPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			dirs = append(dirs, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return dirs, nil
}
