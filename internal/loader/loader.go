// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
//
// This file defines the Loader, which keeps the registry in step with the
// module files under one directory.

package loader

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/specialistvlad/treeplug/internal/catalog"
	"github.com/specialistvlad/treeplug/internal/compiler"
	"github.com/specialistvlad/treeplug/internal/ctxlog"
	"github.com/specialistvlad/treeplug/internal/fsutil"
	"github.com/specialistvlad/treeplug/internal/model"
	"lukechampine.com/blake3"
)

// DefaultPattern selects every module file below the modules path.
const DefaultPattern = "**/*.hcl"

// fileState remembers what a file last installed.
type fileState struct {
	id          string
	fingerprint [32]byte
}

// Loader compiles module files and installs them through an Installer. It
// tracks which module came from which file so that edits replace and
// deletions uninstall the right entry.
type Loader struct {
	installer *catalog.Installer
	root      string
	pattern   string
	workers   int

	mu    sync.Mutex
	files map[string]fileState
}

// Option configures a Loader.
type Option func(*Loader)

// WithPattern sets the doublestar pattern, relative to the root, that
// selects module files.
func WithPattern(pattern string) Option {
	return func(l *Loader) {
		if pattern != "" {
			l.pattern = pattern
		}
	}
}

// WithWorkers bounds the number of files compiled at once.
func WithWorkers(n int) Option {
	return func(l *Loader) {
		if n > 0 {
			l.workers = n
		}
	}
}

// New creates a Loader for the module files under root.
func New(installer *catalog.Installer, root string, opts ...Option) *Loader {
	l := &Loader{
		installer: installer,
		root:      filepath.Clean(root),
		pattern:   DefaultPattern,
		workers:   runtime.NumCPU(),
		files:     make(map[string]fileState),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Root returns the directory the loader scans.
func (l *Loader) Root() string { return l.root }

// Matches reports whether path is a module file this loader is responsible for.
func (l *Loader) Matches(path string) bool {
	return fsutil.Match(l.root, l.pattern, path)
}

// LoadAll compiles every matching file under the root. Files that no longer
// exist since the previous call are uninstalled. Per-file failures are in the
// report; the error is only for failures to scan the directory.
func (l *Loader) LoadAll(ctx context.Context) (*Report, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Loading module files.", "path", l.root, "pattern", l.pattern)

	paths, err := fsutil.FindFiles(l.root, l.pattern)
	if err != nil {
		return nil, fmt.Errorf("scanning modules path %s: %w", l.root, err)
	}
	if len(paths) == 0 {
		logger.Warn("No module files found in path.", "path", l.root, "pattern", l.pattern)
	}

	report := &Report{Files: make([]FileReport, len(paths))}
	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < min(l.workers, max(len(paths), 1)); w++ {
		wg.Add(1)
		go l.worker(ctx, paths, jobs, report, &wg, w)
	}
	for i := range paths {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	for _, gone := range l.stale(paths) {
		if l.Forget(ctx, gone) {
			report.Removed = append(report.Removed, gone)
		}
	}

	logger.Info("Module files loaded.",
		"installed", report.Installed(),
		"failed", len(report.Failed()),
		"unchanged", report.Unchanged(),
		"removed", len(report.Removed))
	return report, nil
}

// worker compiles the files whose indexes arrive on jobs. Each index is
// written by exactly one worker, so report.Files needs no lock.
func (l *Loader) worker(ctx context.Context, paths []string, jobs <-chan int, report *Report, wg *sync.WaitGroup, workerID int) {
	defer wg.Done()
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Loader worker started.", "workerID", workerID)

	for i := range jobs {
		if ctx.Err() != nil {
			report.Files[i] = FileReport{Path: paths[i], Err: ctx.Err()}
			continue
		}
		report.Files[i] = l.Reload(ctxlog.With(ctx, "workerID", workerID), paths[i])
	}
	logger.Debug("Loader worker finished.", "workerID", workerID)
}

// Reload compiles one file and installs it, replacing the module the file
// installed before. A file whose content is unchanged is skipped. When
// compilation fails the previously installed module stays in place.
func (l *Loader) Reload(ctx context.Context, path string) FileReport {
	path = filepath.Clean(path)
	logger := ctxlog.FromContext(ctx).With("file", path)
	rep := FileReport{Path: path}

	data, err := os.ReadFile(path)
	if err != nil {
		rep.Err = fmt.Errorf("reading module file: %w", err)
		logger.Warn("Module file could not be read.", "error", err)
		return rep
	}
	sum := blake3.Sum256(data)

	l.mu.Lock()
	prev, known := l.files[path]
	l.mu.Unlock()
	if known && prev.fingerprint == sum {
		logger.Debug("Module file unchanged, skipping.")
		rep.ID = prev.id
		rep.Unchanged = true
		return rep
	}

	d, err := l.installer.PrepareWithDefaultID(ctx, string(data), model.KindUnknown, defaultID(path), compiler.WithFilename(path))
	if err != nil {
		rep.Err = err
		logger.Warn("Module file did not compile.", "error", err)
		return rep
	}
	reg := l.installer.Registry()
	if known && isPlaceholder(d) {
		// A placeholder stands in for the module the file installed before,
		// under the same id and in the same kind list.
		if old, ok := reg.Lookup(prev.id); ok {
			d, err = l.installer.Prepare(ctx, string(data), old.Kind, standIn(old), compiler.WithFilename(path))
			if err != nil {
				rep.Err = err
				logger.Warn("Module file did not compile.", "error", err)
				return rep
			}
		}
	}
	rep.ID = d.ID
	if u, ok := d.Unit.(*compiler.Unit); ok {
		rep.Warnings = u.Warnings()
		rep.Placeholder = u.Placeholder()
	}

	if known {
		err = reg.Swap(prev.id, d)
	} else {
		err = reg.Register(d)
	}
	if err != nil {
		rep.Err = fmt.Errorf("installing module %q: %w", d.ID, err)
		logger.Warn("Module could not be installed.", "id", d.ID, "error", err)
		return rep
	}

	l.mu.Lock()
	l.files[path] = fileState{id: d.ID, fingerprint: sum}
	l.mu.Unlock()

	rep.Installed = true
	logger.Info("Module file installed.", "id", d.ID, "kind", d.Kind.String(), "replaced", known)
	return rep
}

// Forget uninstalls the module that path installed, if any.
func (l *Loader) Forget(ctx context.Context, path string) bool {
	path = filepath.Clean(path)
	l.mu.Lock()
	prev, known := l.files[path]
	delete(l.files, path)
	l.mu.Unlock()

	if !known {
		return false
	}
	return l.installer.Uninstall(ctx, prev.id)
}

// ModuleFor returns the id of the module path installed.
func (l *Loader) ModuleFor(path string) (string, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	st, ok := l.files[filepath.Clean(path)]
	return st.id, ok
}

func (l *Loader) stale(current []string) []string {
	seen := make(map[string]struct{}, len(current))
	for _, p := range current {
		seen[p] = struct{}{}
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	var gone []string
	for p := range l.files {
		if _, ok := seen[p]; !ok {
			gone = append(gone, p)
		}
	}
	return gone
}

func isPlaceholder(d *model.Descriptor) bool {
	u, ok := d.Unit.(*compiler.Unit)
	return ok && u.Placeholder()
}

// standIn is the metadata a placeholder takes over from the module it
// replaces.
func standIn(old *model.Descriptor) model.Meta {
	repeatable := old.Repeatable
	return model.Meta{
		ID:         old.ID,
		Name:       old.Name,
		Help:       old.HelpText,
		Icon:       old.Icon,
		Repeatable: &repeatable,
	}
}

// defaultID names a module after its file: "plots/heat-map.hcl" becomes
// "heat-map".
func defaultID(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
