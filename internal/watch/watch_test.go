package watch

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/specialistvlad/treeplug/internal/loader"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recorder is a Target that remembers what the watcher asked of it.
type recorder struct {
	root string

	mu      sync.Mutex
	reloads map[string]int
	forgets map[string]int
}

func newRecorder(root string) *recorder {
	return &recorder{root: root, reloads: map[string]int{}, forgets: map[string]int{}}
}

func (r *recorder) Root() string { return r.root }

func (r *recorder) Matches(path string) bool { return strings.HasSuffix(path, ".hcl") }

func (r *recorder) Reload(_ context.Context, path string) loader.FileReport {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reloads[path]++
	return loader.FileReport{Path: path, Installed: true}
}

func (r *recorder) Forget(_ context.Context, path string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.forgets[path]++
	return true
}

func (r *recorder) counts(path string) (reloads, forgets int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.reloads[path], r.forgets[path]
}

func startWatcher(t *testing.T, target Target, delay time.Duration) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	w := New(target, WithDelay(delay))

	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		require.NoError(t, <-done)
	})

	select {
	case <-w.Ready():
	case err := <-done:
		t.Fatalf("watcher exited early: %v", err)
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not become ready")
	}
}

func TestWatcher_DebouncesWritesIntoOneReload(t *testing.T) {
	// --- Arrange ---
	root := t.TempDir()
	rec := newRecorder(root)
	startWatcher(t, rec, 200*time.Millisecond)
	path := filepath.Join(root, "m.hcl")

	// --- Act ---
	for i := 0; i < 5; i++ {
		require.NoError(t, os.WriteFile(path, []byte(strings.Repeat("x", i+1)), 0o644))
	}

	// --- Assert ---
	require.Eventually(t, func() bool {
		n, _ := rec.counts(path)
		return n >= 1
	}, 2*time.Second, 10*time.Millisecond)
	time.Sleep(300 * time.Millisecond)
	n, _ := rec.counts(path)
	assert.Equal(t, 1, n)
}

func TestWatcher_RemoveForgetsFile(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "m.hcl")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
	rec := newRecorder(root)
	startWatcher(t, rec, 30*time.Millisecond)

	require.NoError(t, os.Remove(path))

	require.Eventually(t, func() bool {
		_, f := rec.counts(path)
		return f == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestWatcher_IgnoresNonModuleFiles(t *testing.T) {
	root := t.TempDir()
	rec := newRecorder(root)
	startWatcher(t, rec, 30*time.Millisecond)
	other := filepath.Join(root, "notes.txt")
	marker := filepath.Join(root, "marker.hcl")

	require.NoError(t, os.WriteFile(other, []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(marker, []byte("x"), 0o644))

	require.Eventually(t, func() bool {
		n, _ := rec.counts(marker)
		return n == 1
	}, 2*time.Second, 10*time.Millisecond)
	n, f := rec.counts(other)
	assert.Zero(t, n)
	assert.Zero(t, f)
}

func TestWatcher_FollowsNewDirectories(t *testing.T) {
	root := t.TempDir()
	rec := newRecorder(root)
	startWatcher(t, rec, 30*time.Millisecond)
	dir := filepath.Join(root, "nested")
	path := filepath.Join(dir, "m.hcl")

	require.NoError(t, os.Mkdir(dir, 0o755))
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	require.Eventually(t, func() bool {
		n, _ := rec.counts(path)
		return n >= 1
	}, 2*time.Second, 10*time.Millisecond)
}
