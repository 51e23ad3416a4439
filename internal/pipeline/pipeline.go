// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
//
// This file defines the Pipeline, a client-held ordered selection of modules
// of one kind.

package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/specialistvlad/treeplug/internal/ctxlog"
	"github.com/specialistvlad/treeplug/internal/model"
	"github.com/specialistvlad/treeplug/internal/registry"
	"github.com/zclconf/go-cty/cty"
)

var (
	// ErrUnsupportedKind is returned for kinds that cannot be chained.
	ErrUnsupportedKind = errors.New("pipelines hold further transformation or plotting modules only")
	// ErrKindMismatch is returned when a module of another kind is added.
	ErrKindMismatch = errors.New("module kind does not match pipeline")
	// ErrNotSelectable is returned when a non-repeatable module is added twice.
	ErrNotSelectable = errors.New("module is already in the pipeline and is not repeatable")
)

// Pipeline is an ordered list of modules. It is owned by one client and is
// not safe for concurrent use.
type Pipeline struct {
	kind  model.Kind
	steps []*model.Descriptor
}

// New creates an empty pipeline for kind.
func New(kind model.Kind) (*Pipeline, error) {
	if kind != model.KindFurtherTransformation && kind != model.KindPlotting {
		return nil, fmt.Errorf("%w: got %s", ErrUnsupportedKind, kind)
	}
	return &Pipeline{kind: kind}, nil
}

// Kind returns the kind of module the pipeline holds.
func (p *Pipeline) Kind() model.Kind { return p.kind }

// Len returns the number of steps.
func (p *Pipeline) Len() int { return len(p.steps) }

// Steps returns a copy of the selection in order.
func (p *Pipeline) Steps() []*model.Descriptor {
	return append([]*model.Descriptor(nil), p.steps...)
}

// Add appends d if registry.CanSelect allows it.
func (p *Pipeline) Add(d *model.Descriptor) error {
	if d.Kind != p.kind {
		return fmt.Errorf("%w: %q is %s, pipeline is %s", ErrKindMismatch, d.ID, d.Kind, p.kind)
	}
	if !registry.CanSelect(d, p.steps) {
		return fmt.Errorf("%w: %q", ErrNotSelectable, d.ID)
	}
	p.steps = append(p.steps, d)
	return nil
}

// RemoveAt drops the step at index i.
func (p *Pipeline) RemoveAt(i int) error {
	if i < 0 || i >= len(p.steps) {
		return fmt.Errorf("step index %d out of range [0,%d)", i, len(p.steps))
	}
	p.steps = append(p.steps[:i], p.steps[i+1:]...)
	return nil
}

// Selectable narrows candidates to the ones Add would accept now, keeping
// their order. This is the list a picker shows.
func (p *Pipeline) Selectable(candidates []*model.Descriptor) []*model.Descriptor {
	out := make([]*model.Descriptor, 0, len(candidates))
	for _, d := range candidates {
		if d.Kind == p.kind && registry.CanSelect(d, p.steps) {
			out = append(out, d)
		}
	}
	return out
}

// Run invokes every step in order, feeding each step's result to the next,
// and returns the last result. An empty pipeline returns input unchanged.
func (p *Pipeline) Run(ctx context.Context, input cty.Value) (cty.Value, error) {
	logger := ctxlog.FromContext(ctx)
	value := input
	for i, d := range p.steps {
		if err := ctx.Err(); err != nil {
			return cty.NilVal, err
		}
		logger.Debug("Running pipeline step.", "step", i, "module", d.ID)
		out, err := d.Unit.Invoke(ctx, value)
		if err != nil {
			return cty.NilVal, fmt.Errorf("pipeline step %d (%s): %w", i, d.ID, err)
		}
		value = out
	}
	return value, nil
}
