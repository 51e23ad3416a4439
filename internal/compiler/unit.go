// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
package compiler

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"

	"github.com/specialistvlad/treeplug/internal/diag"
	"github.com/specialistvlad/treeplug/internal/model"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"
	"github.com/zclconf/go-cty/cty/gocty"
	"lukechampine.com/blake3"
)

// ErrNoSuchFunction is returned when calling a function a unit does not define.
var ErrNoSuchFunction = errors.New("no such function")

// Unit is a compiled module: a loaded function table plus the exact source
// that produced it. Units are immutable and stay loaded until released by
// their owner.
type Unit struct {
	id          string
	source      string
	fingerprint string
	kind        model.Kind
	meta        model.Meta
	references  []string
	funcs       map[string]function.Function
	warnings    diag.Diagnostics
	placeholder bool
}

var _ model.Unit = (*Unit)(nil)

func newUnit(id, src string, img *image, references []string, warnings diag.Diagnostics) *Unit {
	sum := blake3.Sum256([]byte(src))
	return &Unit{
		id:          id,
		source:      src,
		fingerprint: hex.EncodeToString(sum[:]),
		kind:        img.kind,
		meta:        img.meta,
		references:  references,
		funcs:       img.funcs,
		warnings:    warnings,
	}
}

// ID is the process-unique identity of this loaded image. Compiling the
// same text twice yields two different IDs.
func (u *Unit) ID() string { return u.id }

// Source returns the exact text the unit was compiled from.
func (u *Unit) Source() string { return u.source }

// Fingerprint is the hex blake3 digest of Source.
func (u *Unit) Fingerprint() string { return u.fingerprint }

// Kind is the kind the unit was classified as.
func (u *Unit) Kind() model.Kind { return u.kind }

// Meta returns the metadata declared in the source's module block.
func (u *Unit) Meta() model.Meta { return u.meta }

// References lists the resolved library names the unit was linked against.
func (u *Unit) References() []string {
	return append([]string(nil), u.references...)
}

// Warnings returns the warnings reported by a successful compilation.
func (u *Unit) Warnings() diag.Diagnostics {
	return append(diag.Diagnostics(nil), u.warnings...)
}

// Placeholder reports whether the unit is the stand-in compiled by
// CompileLenient.
func (u *Unit) Placeholder() bool { return u.placeholder }

// Functions lists the functions the module defines, sorted.
func (u *Unit) Functions() []string {
	names := make([]string, 0, len(u.funcs))
	for name := range u.funcs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Call invokes one of the module's functions. Panics raised while
// evaluating are returned as errors.
func (u *Unit) Call(ctx context.Context, name string, args ...cty.Value) (result cty.Value, err error) {
	if err := ctx.Err(); err != nil {
		return cty.NilVal, err
	}
	fn, ok := u.funcs[name]
	if !ok {
		return cty.NilVal, fmt.Errorf("%w: %q in unit %s", ErrNoSuchFunction, name, u.id)
	}

	defer func() {
		if r := recover(); r != nil {
			result = cty.NilVal
			err = fmt.Errorf("function %q in unit %s panicked: %v", name, u.id, r)
		}
	}()

	result, err = fn.Call(args)
	if err != nil {
		return cty.NilVal, fmt.Errorf("calling %q in unit %s: %w", name, u.id, err)
	}
	return result, nil
}

// Invoke calls the entry function of the unit's kind.
func (u *Unit) Invoke(ctx context.Context, arg cty.Value) (cty.Value, error) {
	return u.Call(ctx, u.kind.EntryPoint(), arg)
}

// InvokeGo converts a Go value with gocty and passes it to Invoke. The value
// must have a type gocty can imply: primitives, slices, maps of concrete
// types, and structs with cty tags.
func (u *Unit) InvokeGo(ctx context.Context, arg any) (cty.Value, error) {
	ty, err := gocty.ImpliedType(arg)
	if err != nil {
		return cty.NilVal, fmt.Errorf("implying cty type of %T: %w", arg, err)
	}
	val, err := gocty.ToCtyValue(arg, ty)
	if err != nil {
		return cty.NilVal, fmt.Errorf("converting %T to cty: %w", arg, err)
	}
	return u.Invoke(ctx, val)
}
