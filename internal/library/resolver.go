// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
package library

import (
	"context"
	"errors"

	"github.com/specialistvlad/treeplug/internal/ctxlog"
	"github.com/specialistvlad/treeplug/internal/diag"
)

// Resolver turns reference names into libraries, always starting from the
// host's base set.
type Resolver struct {
	catalog *Catalog
	base    []string
}

// NewResolver creates a resolver. With no base names the base set is the
// core library alone.
func NewResolver(catalog *Catalog, base ...string) *Resolver {
	if len(base) == 0 {
		base = []string{CoreName}
	}
	return &Resolver{
		catalog: catalog,
		base:    append([]string(nil), base...),
	}
}

// Base returns the base reference names.
func (r *Resolver) Base() []string {
	return append([]string(nil), r.base...)
}

// Resolve returns the base libraries followed by the additional ones,
// deduplicated by name and in first-seen order. Every name that cannot be
// located produces a ReferenceNotFound diagnostic; it is never skipped.
func (r *Resolver) Resolve(ctx context.Context, additional []string) ([]*Library, diag.Diagnostics) {
	logger := ctxlog.FromContext(ctx)

	var (
		libs  []*Library
		diags diag.Diagnostics
	)
	seen := make(map[string]struct{})

	names := append(r.Base(), additional...)
	for _, name := range names {
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}

		lib, err := r.catalog.Lookup(ctx, name)
		if err == nil {
			libs = append(libs, lib)
			continue
		}

		var loadErr *LoadError
		switch {
		case errors.As(err, &loadErr):
			logger.Warn("Referenced library file does not compile.", "library", name, "path", loadErr.Path)
			diags = append(diags, diag.Errorf(diag.ClassReference, diag.CodeReferenceInvalid, nil,
				"Library %q could not be loaded: %s", name, loadErr.Diags.Error()))
		case errors.Is(err, ErrNotFound):
			logger.Debug("Referenced library not found.", "library", name)
			msg := "Library %q could not be found"
			if suggestion := closest(name, r.catalog.Names()); suggestion != "" {
				diags = append(diags, diag.Errorf(diag.ClassReference, diag.CodeReferenceMissing, nil,
					msg+"; did you mean %q?", name, suggestion))
			} else {
				diags = append(diags, diag.Errorf(diag.ClassReference, diag.CodeReferenceMissing, nil, msg, name))
			}
		default:
			diags = append(diags, diag.Errorf(diag.ClassReference, diag.CodeReferenceMissing, nil,
				"Library %q could not be read: %v", name, err))
		}
	}

	return libs, diags
}
