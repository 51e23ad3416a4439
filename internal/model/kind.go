// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
//
// This file defines Kind, the closed set of module kinds the host knows how
// to call.
//
// A kind decides two things: which catalog partition a module is listed in,
// and which entry function its compiled unit must export. The entry function
// is the whole invocation contract the core enforces; what the host passes in
// and expects back is up to the host.
package model

import (
	"fmt"
	"strings"
)

// Kind classifies a module.
type Kind int

const (
	// KindUnknown is the zero value. As a compile hint it means "infer the
	// kind from the entry function the source defines".
	KindUnknown Kind = iota
	KindTransformer
	KindFurtherTransformation
	KindCoordinate
	KindPlotting
	KindFileType
	KindAction
)

// Kinds lists every concrete kind in catalog order.
var Kinds = []Kind{
	KindTransformer,
	KindFurtherTransformation,
	KindCoordinate,
	KindPlotting,
	KindFileType,
	KindAction,
}

var kindNames = map[Kind]string{
	KindUnknown:               "unknown",
	KindTransformer:           "transformer",
	KindFurtherTransformation: "further_transformation",
	KindCoordinate:            "coordinate",
	KindPlotting:              "plotting",
	KindFileType:              "file_type",
	KindAction:                "action",
}

var entryPoints = map[Kind]string{
	KindTransformer:           "transform",
	KindFurtherTransformation: "further_transform",
	KindCoordinate:            "coordinates",
	KindPlotting:              "plot",
	KindFileType:              "read",
	KindAction:                "perform",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// EntryPoint returns the function name a unit of this kind must define.
// KindUnknown has no entry point.
func (k Kind) EntryPoint() string {
	return entryPoints[k]
}

// Valid reports whether k is one of the concrete kinds.
func (k Kind) Valid() bool {
	_, ok := entryPoints[k]
	return ok
}

// ParseKind converts a kind name into a Kind. Matching ignores case, and
// hyphens are accepted in place of underscores. The empty string parses as
// KindUnknown.
func ParseKind(s string) (Kind, error) {
	norm := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_")
	if norm == "" {
		return KindUnknown, nil
	}
	for k, name := range kindNames {
		if name == norm {
			return k, nil
		}
	}
	return KindUnknown, fmt.Errorf("unknown module kind %q", s)
}

// KindForEntryPoint returns the kind whose entry function is named fn.
func KindForEntryPoint(fn string) (Kind, bool) {
	for _, k := range Kinds {
		if entryPoints[k] == fn {
			return k, true
		}
	}
	return KindUnknown, false
}
