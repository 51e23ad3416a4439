// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
//
// Package directive extracts the reference directives a module source may
// carry in front of its code.
//
// A directive is a line of the form `#r<name>` or `#r "<name>"`. Directives
// are only recognised in the unbroken leading run of blank and directive
// lines; the first content line ends the scan, and a directive-looking line
// after it is just source text. Because `#` starts an HCL comment, a directive
// that slips past the scanner is still harmless to the parser.
package directive

import (
	"strings"

	"github.com/hashicorp/hcl/v2"
)

// Marker is the two-character prefix of a directive line.
const Marker = "#r"

// Result is the outcome of scanning a source text.
type Result struct {
	// References lists the library names in the order they appeared.
	References []string
	// Residual is the source from the first content line onwards.
	Residual string
	// Offset is where Residual starts within the original text.
	Offset hcl.Pos
}

// Extract scans the leading lines of src for directives. It never fails.
func Extract(src string) Result {
	res := Result{Offset: hcl.Pos{Line: 1, Column: 1, Byte: 0}}

	rest := src
	for rest != "" {
		line, next, hasNext := strings.Cut(rest, "\n")
		trimmed := strings.TrimSpace(line)

		switch {
		case trimmed == "":
		case strings.HasPrefix(trimmed, Marker):
			if name := referenceName(trimmed[len(Marker):]); name != "" {
				res.References = append(res.References, name)
			}
		default:
			res.Residual = rest
			return res
		}

		if !hasNext {
			break
		}
		res.Offset.Byte += len(line) + 1
		res.Offset.Line++
		rest = next
	}

	// Nothing but directives and blank lines.
	res.Residual = ""
	res.Offset.Byte = len(src)
	return res
}

func referenceName(raw string) string {
	name := strings.TrimSpace(raw)
	if len(name) >= 2 && strings.HasPrefix(name, `"`) && strings.HasSuffix(name, `"`) {
		name = strings.TrimSpace(name[1 : len(name)-1])
	}
	return name
}
