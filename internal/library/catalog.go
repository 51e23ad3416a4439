// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
package library

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/ext/userfunc"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/specialistvlad/treeplug/internal/ctxlog"
	"github.com/zclconf/go-cty/cty/function"
	"lukechampine.com/blake3"
)

// FileExtension is the extension of library files.
const FileExtension = ".hcl"

// ErrNotFound is returned when no library matches a name.
var ErrNotFound = errors.New("library not found")

// LoadError reports a library file that exists but does not compile.
type LoadError struct {
	Path  string
	Diags hcl.Diagnostics
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("library file %s: %s", e.Path, e.Diags.Error())
}

type cachedFile struct {
	fingerprint [32]byte
	lib         *Library
}

// Catalog is the host's view of every library a module can reference.
// Built-in libraries are always present; file libraries are discovered on
// the search patterns and compiled on first use.
type Catalog struct {
	patterns []string

	mu    sync.Mutex
	files map[string]cachedFile
}

// NewCatalog creates a catalog searching the given doublestar patterns, e.g.
// "libs/**/*.hcl".
func NewCatalog(patterns ...string) *Catalog {
	return &Catalog{
		patterns: append([]string(nil), patterns...),
		files:    make(map[string]cachedFile),
	}
}

// Lookup resolves a library by name. A *LoadError is returned when a
// matching file fails to compile, ErrNotFound when nothing matches.
func (c *Catalog) Lookup(ctx context.Context, name string) (*Library, error) {
	if lib, ok := Builtin(name); ok {
		return lib, nil
	}

	path, err := c.find(name)
	if err != nil {
		return nil, err
	}
	return c.loadFile(ctx, name, path)
}

// Names lists every library name the catalog can currently resolve.
func (c *Catalog) Names() []string {
	names := BuiltinNames()
	for _, path := range c.candidates() {
		names = append(names, libraryName(path))
	}
	sort.Strings(names)
	return names
}

func (c *Catalog) find(name string) (string, error) {
	if strings.HasSuffix(name, FileExtension) && strings.ContainsRune(name, filepath.Separator) {
		if _, err := os.Stat(name); err == nil {
			return name, nil
		}
	}

	want := strings.TrimSuffix(filepath.Base(name), FileExtension)
	for _, path := range c.candidates() {
		if libraryName(path) == want {
			return path, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrNotFound, name)
}

// candidates returns library files matched by the patterns, in pattern
// order and sorted within a pattern.
func (c *Catalog) candidates() []string {
	var out []string
	seen := make(map[string]struct{})
	for _, pattern := range c.patterns {
		matches, err := doublestar.FilepathGlob(pattern, doublestar.WithFilesOnly())
		if err != nil {
			continue
		}
		sort.Strings(matches)
		for _, m := range matches {
			if filepath.Ext(m) != FileExtension {
				continue
			}
			if _, dup := seen[m]; dup {
				continue
			}
			seen[m] = struct{}{}
			out = append(out, m)
		}
	}
	return out
}

func (c *Catalog) loadFile(ctx context.Context, name, path string) (*Library, error) {
	logger := ctxlog.FromContext(ctx)

	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading library file %s: %w", path, err)
	}
	sum := blake3.Sum256(src)

	c.mu.Lock()
	defer c.mu.Unlock()

	if cached, ok := c.files[path]; ok && cached.fingerprint == sum {
		logger.Debug("Library file served from cache.", "library", name, "path", path)
		return cached.lib, nil
	}

	funcs, diags := compileLibrary(path, src)
	if diags.HasErrors() {
		return nil, &LoadError{Path: path, Diags: diags}
	}

	lib := &Library{Name: libraryName(path), Origin: path, Functions: funcs}
	c.files[path] = cachedFile{fingerprint: sum, lib: lib}
	logger.Debug("Library file compiled.", "library", lib.Name, "path", path, "functions", len(funcs))
	return lib, nil
}

// compileLibrary decodes the function blocks of a library file. Library
// functions may call the core library and each other.
func compileLibrary(path string, src []byte) (map[string]function.Function, hcl.Diagnostics) {
	file, diags := hclsyntax.ParseConfig(src, path, hcl.InitialPos)
	if diags.HasErrors() {
		return nil, diags
	}

	var evalCtx *hcl.EvalContext
	funcs, remain, funcDiags := userfunc.DecodeUserFunctions(file.Body, "function", func() *hcl.EvalContext {
		return evalCtx
	})
	diags = append(diags, funcDiags...)

	_, remainDiags := remain.Content(&hcl.BodySchema{})
	diags = append(diags, remainDiags...)
	if diags.HasErrors() {
		return nil, diags
	}

	all := make(map[string]function.Function, len(funcs))
	core, _ := Builtin(CoreName)
	for n, f := range core.Functions {
		all[n] = f
	}
	for n, f := range funcs {
		all[n] = f
	}
	evalCtx = &hcl.EvalContext{Functions: all}

	return funcs, diags
}

func libraryName(path string) string {
	return strings.TrimSuffix(filepath.Base(path), FileExtension)
}
