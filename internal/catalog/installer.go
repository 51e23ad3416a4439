// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
//
// This file defines the Installer, the compile-then-register step that keeps
// half-built modules out of the registry.

package catalog

import (
	"context"
	"fmt"

	"github.com/specialistvlad/treeplug/internal/compiler"
	"github.com/specialistvlad/treeplug/internal/ctxlog"
	"github.com/specialistvlad/treeplug/internal/model"
	"github.com/specialistvlad/treeplug/internal/registry"
)

// Installer compiles module sources and registers the results.
type Installer struct {
	compiler *compiler.Compiler
	registry *registry.Registry
	lenient  bool
}

// Option configures an Installer.
type Option func(*Installer)

// WithLenient makes Prepare install placeholder units for sources that do
// not compile instead of failing.
func WithLenient(enabled bool) Option {
	return func(i *Installer) {
		i.lenient = enabled
	}
}

// NewInstaller creates an Installer writing into reg.
func NewInstaller(c *compiler.Compiler, reg *registry.Registry, opts ...Option) *Installer {
	i := &Installer{compiler: c, registry: reg}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Registry returns the registry the installer writes into.
func (i *Installer) Registry() *registry.Registry { return i.registry }

// Prepare compiles src and wraps the unit in a descriptor without touching
// the registry.
func (i *Installer) Prepare(ctx context.Context, src string, kind model.Kind, meta model.Meta, opts ...compiler.CompileOption) (*model.Descriptor, error) {
	unit, err := i.compile(ctx, src, kind, opts...)
	if err != nil {
		return nil, err
	}
	return describe(unit, meta)
}

// PrepareWithDefaultID is Prepare for sources that may not name themselves:
// defaultID is used when the module block declares no id.
func (i *Installer) PrepareWithDefaultID(ctx context.Context, src string, kind model.Kind, defaultID string, opts ...compiler.CompileOption) (*model.Descriptor, error) {
	unit, err := i.compile(ctx, src, kind, opts...)
	if err != nil {
		return nil, err
	}
	var meta model.Meta
	if unit.Meta().ID == "" {
		meta.ID = defaultID
	}
	return describe(unit, meta)
}

func (i *Installer) compile(ctx context.Context, src string, kind model.Kind, opts ...compiler.CompileOption) (*compiler.Unit, error) {
	if i.lenient {
		return i.compiler.CompileLenient(ctx, src, kind, opts...), nil
	}
	return i.compiler.Compile(ctx, src, kind, opts...)
}

func describe(unit *compiler.Unit, meta model.Meta) (*model.Descriptor, error) {
	d, err := model.NewDescriptor(unit, meta)
	if err != nil {
		return nil, fmt.Errorf("describing compiled module: %w", err)
	}
	return d, nil
}

// Install compiles src and registers it. Nothing is registered unless
// compilation succeeds and the id is free.
func (i *Installer) Install(ctx context.Context, src string, kind model.Kind, meta model.Meta, opts ...compiler.CompileOption) (*model.Descriptor, error) {
	logger := ctxlog.FromContext(ctx)

	d, err := i.Prepare(ctx, src, kind, meta, opts...)
	if err != nil {
		logger.Debug("Module did not compile.", "error", err)
		return nil, err
	}
	if err := i.registry.Register(d); err != nil {
		return nil, fmt.Errorf("installing module %q: %w", d.ID, err)
	}

	logger.Info("Module installed.", "id", d.ID, "kind", d.Kind.String(), "unit", d.Unit.ID())
	return d, nil
}

// Result carries the outcome of InstallAsync.
type Result struct {
	Descriptor *model.Descriptor
	Err        error
}

// InstallAsync runs Install on its own goroutine. The channel receives one
// Result and is closed.
func (i *Installer) InstallAsync(ctx context.Context, src string, kind model.Kind, meta model.Meta, opts ...compiler.CompileOption) <-chan Result {
	out := make(chan Result, 1)
	go func() {
		defer close(out)
		d, err := i.Install(ctx, src, kind, meta, opts...)
		out <- Result{Descriptor: d, Err: err}
	}()
	return out
}

// Uninstall removes a module and reports whether it was installed.
func (i *Installer) Uninstall(ctx context.Context, id string) bool {
	removed := i.registry.Remove(id)
	if removed {
		ctxlog.FromContext(ctx).Info("Module uninstalled.", "id", id)
	}
	return removed
}

// Replace recompiles the module registered as id from src and swaps it in.
// The new source keeps the old module's id and is compiled against the old
// kind, so a module never moves between kind lists on replacement. The old
// module stays registered when compilation fails.
func (i *Installer) Replace(ctx context.Context, id string, src string, opts ...compiler.CompileOption) (*model.Descriptor, error) {
	old, ok := i.registry.Lookup(id)
	if !ok {
		return nil, fmt.Errorf("replacing module %q: %w", id, registry.ErrNotFound)
	}

	d, err := i.Prepare(ctx, src, old.Kind, model.Meta{ID: id}, opts...)
	if err != nil {
		return nil, err
	}
	if err := i.registry.Swap(id, d); err != nil {
		return nil, fmt.Errorf("replacing module %q: %w", id, err)
	}

	ctxlog.FromContext(ctx).Info("Module replaced.", "id", id, "unit", d.Unit.ID())
	return d, nil
}
