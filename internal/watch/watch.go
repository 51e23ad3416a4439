// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
//
// This file defines the Watcher, which turns file system events under the
// modules path into reloads and uninstalls.

package watch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/specialistvlad/treeplug/internal/ctxlog"
	"github.com/specialistvlad/treeplug/internal/fsutil"
	"github.com/specialistvlad/treeplug/internal/loader"
)

// DefaultDelay is how long a path must stay quiet before it is reloaded.
// Editors often write a file in several steps.
const DefaultDelay = 150 * time.Millisecond

// Target is what the watcher drives. *loader.Loader implements it.
type Target interface {
	Root() string
	Matches(path string) bool
	Reload(ctx context.Context, path string) loader.FileReport
	Forget(ctx context.Context, path string) bool
}

// Watcher watches a Target's root directory recursively.
type Watcher struct {
	target Target
	delay  time.Duration

	mu     sync.Mutex
	timers map[string]*time.Timer
	ready  chan struct{}
	wg     sync.WaitGroup
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDelay sets the debounce delay.
func WithDelay(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.delay = d
		}
	}
}

// New creates a Watcher for target.
func New(target Target, opts ...Option) *Watcher {
	w := &Watcher{
		target: target,
		delay:  DefaultDelay,
		timers: make(map[string]*time.Timer),
		ready:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Ready is closed once the root directory tree is being watched.
func (w *Watcher) Ready() <-chan struct{} { return w.ready }

// Run watches until ctx is cancelled. Pending reloads are dropped on exit.
func (w *Watcher) Run(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating file watcher: %w", err)
	}
	defer fsw.Close()

	if err := w.addTree(ctx, fsw, w.target.Root()); err != nil {
		return err
	}
	close(w.ready)
	logger.Info("Watching modules path.", "path", w.target.Root(), "delay", w.delay)

	defer w.stopTimers()
	for {
		select {
		case <-ctx.Done():
			logger.Debug("Watcher stopping.")
			return nil
		case ev, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			w.handle(ctx, fsw, ev)
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			logger.Warn("File watcher error.", "error", err)
		}
	}
}

func (w *Watcher) handle(ctx context.Context, fsw *fsnotify.Watcher, ev fsnotify.Event) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("File event.", "path", ev.Name, "op", ev.Op.String())

	if ev.Has(fsnotify.Create) {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			// Files may have landed in the directory before it was added.
			if err := w.addTree(ctx, fsw, ev.Name); err != nil {
				logger.Warn("Could not watch new directory.", "path", ev.Name, "error", err)
			}
			w.scheduleTree(ctx, ev.Name)
			return
		}
	}
	if ev.Has(fsnotify.Chmod) && !ev.Has(fsnotify.Write) {
		return
	}
	if w.target.Matches(ev.Name) {
		w.schedule(ctx, ev.Name)
	}
}

func (w *Watcher) addTree(ctx context.Context, fsw *fsnotify.Watcher, root string) error {
	dirs, err := fsutil.FindDirs(root)
	if err != nil {
		return fmt.Errorf("listing directories under %s: %w", root, err)
	}
	for _, dir := range dirs {
		if err := fsw.Add(dir); err != nil {
			return fmt.Errorf("watching %s: %w", dir, err)
		}
		ctxlog.FromContext(ctx).Debug("Watching directory.", "path", dir)
	}
	return nil
}

func (w *Watcher) scheduleTree(ctx context.Context, dir string) {
	dirs, err := fsutil.FindDirs(dir)
	if err != nil {
		return
	}
	for _, d := range dirs {
		entries, err := os.ReadDir(d)
		if err != nil {
			continue
		}
		for _, e := range entries {
			path := filepath.Join(d, e.Name())
			if !e.IsDir() && w.target.Matches(path) {
				w.schedule(ctx, path)
			}
		}
	}
}

// schedule (re)starts the quiet period for path.
func (w *Watcher) schedule(ctx context.Context, path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if t, ok := w.timers[path]; ok && t.Stop() {
		w.wg.Done()
	}
	w.wg.Add(1)
	var t *time.Timer
	t = time.AfterFunc(w.delay, func() {
		defer w.wg.Done()
		w.mu.Lock()
		if w.timers[path] == t {
			delete(w.timers, path)
		}
		w.mu.Unlock()
		if ctx.Err() == nil {
			w.apply(ctx, path)
		}
	})
	w.timers[path] = t
}

// apply looks at the file as it is now, so create, write, rename and remove
// all collapse into either a reload or an uninstall.
func (w *Watcher) apply(ctx context.Context, path string) {
	logger := ctxlog.FromContext(ctx).With("path", path)

	_, err := os.Stat(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		if w.target.Forget(ctx, path) {
			logger.Info("Module file removed, module uninstalled.")
		}
	case err != nil:
		logger.Warn("Module file could not be inspected.", "error", err)
	default:
		rep := w.target.Reload(ctx, path)
		if rep.Err != nil {
			logger.Warn("Module file reload failed; previous version kept.", "error", rep.Err)
		}
	}
}

func (w *Watcher) stopTimers() {
	w.mu.Lock()
	for path, t := range w.timers {
		if t.Stop() {
			w.wg.Done()
		}
		delete(w.timers, path)
	}
	w.mu.Unlock()
	w.wg.Wait()
}
