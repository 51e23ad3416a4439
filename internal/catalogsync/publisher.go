// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
//
// This file defines the Publisher, which mirrors registry changes to a
// presentation process.

package catalogsync

import (
	"context"
	"log/slog"

	"github.com/specialistvlad/treeplug/internal/ctxlog"
	"github.com/specialistvlad/treeplug/internal/model"
	"github.com/specialistvlad/treeplug/internal/registry"
)

// Event names emitted to the presentation process.
const (
	EventModuleRegistered = "module_registered"
	EventModuleRemoved    = "module_removed"
)

// Emitter sends named events. *SocketEmitter implements it.
type Emitter interface {
	Emit(event string, payload any) error
	Close() error
}

// Summary is the wire form of a descriptor. The compiled unit stays in
// process; only its identity travels.
type Summary struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	HelpText   string `json:"help,omitempty"`
	Kind       string `json:"kind"`
	Icon       string `json:"icon,omitempty"`
	Repeatable bool   `json:"repeatable"`
	Unit       string `json:"unit"`
}

// Summarize converts a descriptor to its wire form.
func Summarize(d *model.Descriptor) Summary {
	s := Summary{
		ID:         d.ID,
		Name:       d.Name,
		HelpText:   d.HelpText,
		Kind:       d.Kind.String(),
		Icon:       d.Icon,
		Repeatable: d.Repeatable,
	}
	if d.Unit != nil {
		s.Unit = d.Unit.ID()
	}
	return s
}

// Publisher forwards registry events to an Emitter.
type Publisher struct {
	emitter Emitter
}

// NewPublisher creates a Publisher writing to e.
func NewPublisher(e Emitter) *Publisher {
	return &Publisher{emitter: e}
}

// Attach announces every module already in reg, then every later change,
// until the returned function is called. A module registered while Attach
// runs may be announced twice; receivers key summaries by id.
func (p *Publisher) Attach(ctx context.Context, reg *registry.Registry) (detach func()) {
	logger := ctxlog.FromContext(ctx).With("component", "catalogsync")

	unsubscribe := reg.Subscribe(func(ev registry.Event) {
		name := EventModuleRegistered
		if ev.Type == registry.EventRemoved {
			name = EventModuleRemoved
		}
		p.send(logger, name, ev.Descriptor)
	})
	for _, d := range reg.All() {
		p.send(logger, EventModuleRegistered, d)
	}
	logger.Info("Catalog publisher attached.", "modules", reg.Len())
	return unsubscribe
}

func (p *Publisher) send(logger *slog.Logger, event string, d *model.Descriptor) {
	if err := p.emitter.Emit(event, Summarize(d)); err != nil {
		logger.Warn("Could not publish catalog event.", "event", event, "id", d.ID, "error", err)
		return
	}
	logger.Debug("Published catalog event.", "event", event, "id", d.ID)
}
