// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
//
// This file defines the Descriptor, the catalog record for one installed
// module, and the Unit contract it wraps.
//
// Why is Unit an interface here?
//
// The compiler produces units and the registry stores descriptors. Keeping
// the contract in model lets both depend on model without depending on each
// other, and lets pipeline and registry tests run against small fakes.
package model

import (
	"context"
	"errors"
	"strings"

	"github.com/zclconf/go-cty/cty"
)

// Unit is a loaded, invocable result of a successful compilation.
type Unit interface {
	// ID is the process-unique identity of the loaded image.
	ID() string
	// Source is the exact text the unit was compiled from.
	Source() string
	// Kind is the kind the unit was classified as.
	Kind() Kind
	// Meta is the metadata the source declared in its module block.
	Meta() Meta
	// Invoke calls the kind's entry function.
	Invoke(ctx context.Context, arg cty.Value) (cty.Value, error)
}

// Meta is descriptor metadata. Zero fields mean "not given".
type Meta struct {
	ID         string
	Name       string
	Help       string
	Icon       string
	Repeatable *bool
}

// Descriptor is a module as listed in the catalog.
type Descriptor struct {
	ID         string
	Name       string
	HelpText   string
	Kind       Kind
	Repeatable bool
	// Icon is an opaque handle the presentation layer resolves.
	Icon string
	Unit Unit
}

// ErrMissingID is returned when neither the caller nor the source names the module.
var ErrMissingID = errors.New("module descriptor has no id")

// NewDescriptor wraps a compiled unit with metadata. Fields set in override
// win over the unit's own module block; Name falls back to the ID.
func NewDescriptor(unit Unit, override Meta) (*Descriptor, error) {
	if unit == nil {
		return nil, errors.New("module descriptor needs a compiled unit")
	}
	declared := unit.Meta()

	d := &Descriptor{
		ID:       strings.TrimSpace(firstNonEmpty(override.ID, declared.ID)),
		Name:     firstNonEmpty(override.Name, declared.Name),
		HelpText: firstNonEmpty(override.Help, declared.Help),
		Icon:     firstNonEmpty(override.Icon, declared.Icon),
		Kind:     unit.Kind(),
		Unit:     unit,
	}
	if d.ID == "" {
		return nil, ErrMissingID
	}
	if d.Name == "" {
		d.Name = d.ID
	}
	switch {
	case override.Repeatable != nil:
		d.Repeatable = *override.Repeatable
	case declared.Repeatable != nil:
		d.Repeatable = *declared.Repeatable
	}
	return d, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
