// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
//
// Package library resolves the references a module asks for into function
// tables the compiler can link against.
//
// A reference is a library name. The host always supplies a base set (by
// default just "core"); a module adds to it with `#r` directives. Names are
// looked up first among the built-in libraries and then as `<name>.hcl`
// library files on the configured search patterns.
package library

import (
	"sort"

	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/specialistvlad/treeplug/internal/diag"
	"github.com/zclconf/go-cty/cty/function"
)

// OriginBuiltin is the Origin of libraries compiled into the binary.
const OriginBuiltin = "builtin"

// Library is a resolved reference.
type Library struct {
	Name string
	// Origin is OriginBuiltin or the path of the library file.
	Origin    string
	Functions map[string]function.Function
}

// FunctionNames returns the library's function names, sorted.
func (l *Library) FunctionNames() []string {
	names := make([]string, 0, len(l.Functions))
	for name := range l.Functions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Merge flattens libraries into one function table. When two libraries
// export the same name the earlier one keeps it and a warning is reported.
func Merge(libs []*Library) (map[string]function.Function, diag.Diagnostics) {
	var diags diag.Diagnostics
	merged := make(map[string]function.Function)
	owner := make(map[string]string)

	for _, lib := range libs {
		for _, name := range lib.FunctionNames() {
			if prev, taken := owner[name]; taken {
				diags = append(diags, diag.Warnf(diag.ClassReference, diag.CodeShadowedFunc, nil,
					"Function %q from library %q is shadowed by library %q", name, lib.Name, prev))
				continue
			}
			owner[name] = lib.Name
			merged[name] = lib.Functions[name]
		}
	}
	return merged, diags
}

// closest picks the candidate most like name, or "" when nothing is close.
func closest(name string, candidates []string) string {
	if len(candidates) == 0 {
		return ""
	}

	ranks := fuzzy.RankFindFold(name, candidates)
	if len(ranks) > 0 {
		sort.Sort(ranks)
		return ranks[0].Target
	}

	best, bestDist := "", 3
	for _, c := range candidates {
		if d := fuzzy.LevenshteinDistance(name, c); d < bestDist {
			best, bestDist = c, d
		}
	}
	return best
}
