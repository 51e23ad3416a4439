// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
package library

import (
	"github.com/zclconf/go-cty/cty/function"
	"github.com/zclconf/go-cty/cty/function/stdlib"
)

// CoreName is the library every compilation gets unless configured otherwise.
const CoreName = "core"

// builtinTables holds the function tables shipped with the binary. The
// tables are disjoint so that referencing several of them never shadows a
// name.
var builtinTables = map[string]map[string]function.Function{
	CoreName: {
		"length":   stdlib.LengthFunc,
		"format":   stdlib.FormatFunc,
		"concat":   stdlib.ConcatFunc,
		"lookup":   stdlib.LookupFunc,
		"merge":    stdlib.MergeFunc,
		"keys":     stdlib.KeysFunc,
		"values":   stdlib.ValuesFunc,
		"coalesce": stdlib.CoalesceFunc,
		"element":  stdlib.ElementFunc,
		"range":    stdlib.RangeFunc,
		"min":      stdlib.MinFunc,
		"max":      stdlib.MaxFunc,
	},
	"strings": {
		"upper":      stdlib.UpperFunc,
		"lower":      stdlib.LowerFunc,
		"title":      stdlib.TitleFunc,
		"trimspace":  stdlib.TrimSpaceFunc,
		"trim":       stdlib.TrimFunc,
		"trimprefix": stdlib.TrimPrefixFunc,
		"trimsuffix": stdlib.TrimSuffixFunc,
		"substr":     stdlib.SubstrFunc,
		"strlen":     stdlib.StrlenFunc,
		"join":       stdlib.JoinFunc,
		"split":      stdlib.SplitFunc,
		"replace":    stdlib.ReplaceFunc,
		"chomp":      stdlib.ChompFunc,
		"indent":     stdlib.IndentFunc,
		"strrev":     stdlib.ReverseFunc,
		"formatlist": stdlib.FormatListFunc,
	},
	"collections": {
		"chunklist":    stdlib.ChunklistFunc,
		"compact":      stdlib.CompactFunc,
		"contains":     stdlib.ContainsFunc,
		"distinct":     stdlib.DistinctFunc,
		"flatten":      stdlib.FlattenFunc,
		"reverse":      stdlib.ReverseListFunc,
		"slice":        stdlib.SliceFunc,
		"zipmap":       stdlib.ZipmapFunc,
		"sort":         stdlib.SortFunc,
		"coalescelist": stdlib.CoalesceListFunc,
	},
	"numeric": {
		"abs":      stdlib.AbsoluteFunc,
		"ceil":     stdlib.CeilFunc,
		"floor":    stdlib.FloorFunc,
		"log":      stdlib.LogFunc,
		"pow":      stdlib.PowFunc,
		"signum":   stdlib.SignumFunc,
		"parseint": stdlib.ParseIntFunc,
	},
	"encoding": {
		"jsonencode": stdlib.JSONEncodeFunc,
		"jsondecode": stdlib.JSONDecodeFunc,
		"csvdecode":  stdlib.CSVDecodeFunc,
	},
	"regex": {
		"regex":        stdlib.RegexFunc,
		"regexall":     stdlib.RegexAllFunc,
		"regexreplace": stdlib.RegexReplaceFunc,
	},
	"sets": {
		"setunion":               stdlib.SetUnionFunc,
		"setintersection":        stdlib.SetIntersectionFunc,
		"setsubtract":            stdlib.SetSubtractFunc,
		"setsymmetricdifference": stdlib.SetSymmetricDifferenceFunc,
		"sethaselement":          stdlib.SetHasElementFunc,
	},
	"datetime": {
		"formatdate": stdlib.FormatDateFunc,
		"timeadd":    stdlib.TimeAddFunc,
	},
}

// Builtin returns a built-in library by name.
func Builtin(name string) (*Library, bool) {
	table, ok := builtinTables[name]
	if !ok {
		return nil, false
	}
	return &Library{Name: name, Origin: OriginBuiltin, Functions: table}, true
}

// BuiltinNames lists the names of the built-in libraries.
func BuiltinNames() []string {
	names := make([]string, 0, len(builtinTables))
	for name := range builtinTables {
		names = append(names, name)
	}
	return names
}
