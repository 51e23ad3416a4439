// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
//
// This file defines the Compiler, which turns module source text into a
// loaded, invocable Unit or a diagnostics report.
//
// The pipeline is:
//
//  1. Extract the leading `#r` directives.
//  2. Resolve the base references plus the directive references.
//  3. Parse the residual source with hclsyntax, starting at the offset the
//     residual had in the original text so positions match what the user wrote.
//  4. Emit: decode the `function` blocks into cty functions, statically check
//     them against the resolved libraries, and classify the module kind.
//  5. Bind the functions to their evaluation context and wrap them in a Unit.
//
// Every problem found on the way is a Diagnostic. Nothing panics out of
// Compile, and a Unit is only ever returned whole.
package compiler

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/specialistvlad/treeplug/internal/ctxlog"
	"github.com/specialistvlad/treeplug/internal/diag"
	"github.com/specialistvlad/treeplug/internal/directive"
	"github.com/specialistvlad/treeplug/internal/library"
	"github.com/specialistvlad/treeplug/internal/model"
)

// DefaultFilename is used in diagnostics when the caller names no file.
const DefaultFilename = "module.hcl"

// Compiler compiles module sources. It is safe for concurrent use.
type Compiler struct {
	resolver         *library.Resolver
	warningsAsErrors bool
}

// Option configures a Compiler.
type Option func(*Compiler)

// WithWarningsAsErrors makes every warning fail the compilation.
func WithWarningsAsErrors(enabled bool) Option {
	return func(c *Compiler) {
		c.warningsAsErrors = enabled
	}
}

// New creates a Compiler linking against the libraries the resolver finds.
func New(resolver *library.Resolver, opts ...Option) *Compiler {
	c := &Compiler{resolver: resolver}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type request struct {
	filename string
	// standalone skips reference resolution entirely.
	standalone bool
}

// CompileOption configures a single compilation.
type CompileOption func(*request)

// WithFilename sets the file name reported in diagnostics.
func WithFilename(name string) CompileOption {
	return func(r *request) {
		if name != "" {
			r.filename = name
		}
	}
}

// Compile compiles src as a module of the given kind. KindUnknown asks the
// compiler to infer the kind from the entry function the source defines.
//
// On failure the error is a *CompileError holding every error diagnostic,
// unless ctx was cancelled, in which case ctx's error is returned.
func (c *Compiler) Compile(ctx context.Context, src string, kind model.Kind, opts ...CompileOption) (*Unit, error) {
	req := request{filename: DefaultFilename}
	for _, opt := range opts {
		opt(&req)
	}
	return c.compile(ctx, src, kind, req)
}

func (c *Compiler) compile(ctx context.Context, src string, kind model.Kind, req request) (*Unit, error) {
	logger := ctxlog.FromContext(ctx).With("filename", req.filename, "kind_hint", kind.String())
	logger.Debug("Compilation started.")

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ext := directive.Extract(src)
	logger.Debug("Directives extracted.", "references", ext.References, "residual_line", ext.Offset.Line)

	var (
		diags diag.Diagnostics
		libs  []*library.Library
	)
	if !req.standalone {
		var refDiags diag.Diagnostics
		libs, refDiags = c.resolver.Resolve(ctx, ext.References)
		diags = append(diags, refDiags...)
	}

	file, parseDiags := hclsyntax.ParseConfig([]byte(ext.Residual), req.filename, ext.Offset)
	diags = append(diags, diag.FromHCL(parseDiags, diag.ClassSyntax, diag.CodeSyntax)...)
	if diags.HasErrors() {
		return nil, c.fail(ctx, req, diags)
	}

	if err := ctx.Err(); err != nil {
		logger.Debug("Compilation abandoned after parsing.", "error", err)
		return nil, err
	}

	id := "unit-" + uuid.NewString()
	linked, linkDiags := library.Merge(libs)
	diags = append(diags, linkDiags...)

	img, emitDiags := emit(file, linked, kind)
	diags = append(diags, emitDiags...)

	if c.warningsAsErrors {
		diags = diags.Escalate()
	}
	if diags.HasErrors() {
		return nil, c.fail(ctx, req, diags)
	}

	if err := ctx.Err(); err != nil {
		logger.Debug("Compilation abandoned before loading.", "error", err)
		return nil, err
	}

	unit := newUnit(id, src, img, libraryNames(libs), diags.Warnings())
	logger.Debug("Compilation succeeded.", "unit", unit.ID(), "kind", unit.Kind().String(), "warnings", len(unit.Warnings()))
	return unit, nil
}

func (c *Compiler) fail(ctx context.Context, req request, diags diag.Diagnostics) error {
	errs := diags.Errors()
	ctxlog.FromContext(ctx).Debug("Compilation failed.", "filename", req.filename, "errors", len(errs))
	return &CompileError{Filename: req.filename, Diagnostics: errs}
}

// Result is the outcome of an asynchronous compilation.
type Result struct {
	Unit *Unit
	Err  error
}

// CompileAsync runs Compile on its own goroutine. The returned channel
// delivers exactly one Result and is then closed; a caller that stops
// listening does not block the compilation.
func (c *Compiler) CompileAsync(ctx context.Context, src string, kind model.Kind, opts ...CompileOption) <-chan Result {
	out := make(chan Result, 1)
	go func() {
		defer close(out)
		unit, err := c.Compile(ctx, src, kind, opts...)
		out <- Result{Unit: unit, Err: err}
	}()
	return out
}

// CompileLenient never fails. When src does not compile, it compiles the
// placeholder module for kind instead and returns that unit, whose Source
// is the placeholder text. A KindUnknown request falls back to a
// transformer placeholder.
func (c *Compiler) CompileLenient(ctx context.Context, src string, kind model.Kind, opts ...CompileOption) *Unit {
	unit, err := c.Compile(ctx, src, kind, opts...)
	if err == nil {
		return unit
	}

	req := request{filename: DefaultFilename}
	for _, opt := range opts {
		opt(&req)
	}
	ctxlog.FromContext(ctx).Warn("Module failed to compile, substituting placeholder.", "filename", req.filename, "error", err)

	if !kind.Valid() {
		kind = model.KindTransformer
	}
	req.standalone = true

	// The placeholder is built even when ctx was cancelled; availability is
	// the point of the lenient path.
	unit, err = c.compile(context.WithoutCancel(ctx), PlaceholderSource(kind), kind, req)
	if err != nil {
		panic(fmt.Sprintf("placeholder module for kind %s failed to compile: %v", kind, err))
	}
	unit.placeholder = true
	return unit
}

func libraryNames(libs []*library.Library) []string {
	names := make([]string, len(libs))
	for i, l := range libs {
		names[i] = l.Name
	}
	return names
}
