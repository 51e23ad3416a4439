// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
//
// Package diag defines the structured, non-fatal report produced by a module
// compilation. Every problem the toolchain finds (a syntax error, a missing
// library, an undefined function) is a Diagnostic; a compilation fails only
// when the filtered set of error diagnostics is non-empty.
package diag

import (
	"fmt"
	"strings"

	"github.com/hashicorp/hcl/v2"
)

// Severity is the level a diagnostic was reported at.
type Severity int

const (
	SeverityWarning Severity = iota
	SeverityError
)

func (s Severity) String() string {
	if s == SeverityError {
		return "error"
	}
	return "warning"
}

// Class groups diagnostics by the phase that produced them.
type Class int

const (
	// ClassSyntax marks source text the parser could not read.
	ClassSyntax Class = iota
	// ClassReference marks a directive naming a library that cannot be resolved.
	ClassReference
	// ClassCompilation marks problems found while emitting the unit.
	ClassCompilation
)

func (c Class) String() string {
	switch c {
	case ClassSyntax:
		return "SyntaxError"
	case ClassReference:
		return "ReferenceNotFound"
	default:
		return "CompilationError"
	}
}

// Diagnostic codes.
const (
	CodeSyntax           = "PLG1001"
	CodeReferenceMissing = "PLG2001"
	CodeReferenceInvalid = "PLG2002"
	CodeCompile          = "PLG3001"
	CodeUnknownFunction  = "PLG3002"
	CodeUnknownVariable  = "PLG3003"
	CodeMissingEntry     = "PLG3004"
	CodeAmbiguousKind    = "PLG3005"
	CodeEntryArity       = "PLG3006"
	CodeDuplicateFunc    = "PLG3007"
	CodeUnusedParam      = "PLG4001"
	CodeShadowedFunc     = "PLG4002"
)

// Diagnostic is one issue reported while compiling a module.
type Diagnostic struct {
	Code     string
	Class    Class
	Severity Severity
	// WarningAsError is set on warnings that were escalated by configuration.
	WarningAsError bool
	Message        string
	Subject        *hcl.Range
}

// IsError reports whether the diagnostic makes a compilation fail.
func (d Diagnostic) IsError() bool {
	return d.Severity == SeverityError || d.WarningAsError
}

// String renders the diagnostic as "<code>: <message>".
func (d Diagnostic) String() string {
	return d.Code + ": " + d.Message
}

// Diagnostics is an ordered collection, kept in the order the toolchain
// reported the issues.
type Diagnostics []Diagnostic

// HasErrors reports whether any diagnostic is an error or an escalated warning.
func (ds Diagnostics) HasErrors() bool {
	for _, d := range ds {
		if d.IsError() {
			return true
		}
	}
	return false
}

// Errors returns the diagnostics that fail a compilation, preserving order.
func (ds Diagnostics) Errors() Diagnostics {
	var out Diagnostics
	for _, d := range ds {
		if d.IsError() {
			out = append(out, d)
		}
	}
	return out
}

// Warnings returns the diagnostics that do not fail a compilation.
func (ds Diagnostics) Warnings() Diagnostics {
	var out Diagnostics
	for _, d := range ds {
		if !d.IsError() {
			out = append(out, d)
		}
	}
	return out
}

// OfClass returns the diagnostics of one class.
func (ds Diagnostics) OfClass(c Class) Diagnostics {
	var out Diagnostics
	for _, d := range ds {
		if d.Class == c {
			out = append(out, d)
		}
	}
	return out
}

// Escalate flags every warning as an error.
func (ds Diagnostics) Escalate() Diagnostics {
	out := make(Diagnostics, len(ds))
	for i, d := range ds {
		if d.Severity == SeverityWarning {
			d.WarningAsError = true
		}
		out[i] = d
	}
	return out
}

// Error joins the diagnostics one per line.
func (ds Diagnostics) Error() string {
	lines := make([]string, len(ds))
	for i, d := range ds {
		lines[i] = d.String()
	}
	return strings.Join(lines, "\n")
}

// Errorf builds an error-severity diagnostic.
func Errorf(class Class, code string, subject *hcl.Range, format string, args ...any) Diagnostic {
	return Diagnostic{
		Code:     code,
		Class:    class,
		Severity: SeverityError,
		Message:  withLocation(subject, fmt.Sprintf(format, args...)),
		Subject:  subject,
	}
}

// Warnf builds a warning-severity diagnostic.
func Warnf(class Class, code string, subject *hcl.Range, format string, args ...any) Diagnostic {
	return Diagnostic{
		Code:     code,
		Class:    class,
		Severity: SeverityWarning,
		Message:  withLocation(subject, fmt.Sprintf(format, args...)),
		Subject:  subject,
	}
}

// FromHCL converts HCL diagnostics, keeping their order, and tags each with
// the given class and code.
func FromHCL(hclDiags hcl.Diagnostics, class Class, code string) Diagnostics {
	out := make(Diagnostics, 0, len(hclDiags))
	for _, hd := range hclDiags {
		msg := hd.Summary
		if hd.Detail != "" {
			msg += "; " + hd.Detail
		}
		sev := SeverityError
		if hd.Severity == hcl.DiagWarning {
			sev = SeverityWarning
		}
		out = append(out, Diagnostic{
			Code:     code,
			Class:    class,
			Severity: sev,
			Message:  withLocation(hd.Subject, msg),
			Subject:  hd.Subject,
		})
	}
	return out
}

func withLocation(subject *hcl.Range, msg string) string {
	if subject == nil || subject.Filename == "" {
		return msg
	}
	return fmt.Sprintf("%s:%d,%d: %s", subject.Filename, subject.Start.Line, subject.Start.Column, msg)
}
