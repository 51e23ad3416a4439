// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package registry

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/specialistvlad/treeplug/internal/model"
)

var (
	// ErrDuplicateID is returned by Register when the id is already taken by
	// a module of any kind.
	ErrDuplicateID = errors.New("duplicate module id")
	// ErrNotFound is returned when an id is not registered.
	ErrNotFound = errors.New("module not found")
	// ErrInvalidDescriptor is returned for nil descriptors and empty ids.
	ErrInvalidDescriptor = errors.New("invalid module descriptor")
)

// Registry is the catalog of installed modules. All methods are safe for
// concurrent use; every mutation replaces whole entries under one lock.
type Registry struct {
	mu      sync.RWMutex
	modules map[string]*model.Descriptor
	// pending holds events in the order their changes were applied;
	// dispatching is set while one goroutine is delivering them. Both are
	// guarded by mu.
	pending     []Event
	dispatching bool

	subMu       sync.Mutex
	subscribers map[int]func(Event)
	nextSub     int
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{
		modules:     make(map[string]*model.Descriptor),
		subscribers: make(map[int]func(Event)),
	}
}

// Register adds a descriptor. The registry is left untouched on error.
func (r *Registry) Register(d *model.Descriptor) error {
	if err := validate(d); err != nil {
		return err
	}

	r.mu.Lock()
	if _, exists := r.modules[d.ID]; exists {
		r.mu.Unlock()
		return fmt.Errorf("%w: %q", ErrDuplicateID, d.ID)
	}
	r.modules[d.ID] = d
	deliver := r.enqueueLocked(Event{Type: EventRegistered, Descriptor: d})
	r.mu.Unlock()

	if deliver {
		r.dispatch()
	}
	return nil
}

// Remove deletes the descriptor with the given id and reports whether one
// was there. Removing an unknown id is a no-op.
func (r *Registry) Remove(id string) bool {
	r.mu.Lock()
	d, exists := r.modules[id]
	deliver := false
	if exists {
		delete(r.modules, id)
		deliver = r.enqueueLocked(Event{Type: EventRemoved, Descriptor: d})
	}
	r.mu.Unlock()

	if deliver {
		r.dispatch()
	}
	return exists
}

// Swap atomically replaces the module registered as oldID with d. The new
// descriptor may carry a different id, as long as that id is free.
func (r *Registry) Swap(oldID string, d *model.Descriptor) error {
	if err := validate(d); err != nil {
		return err
	}

	r.mu.Lock()
	old, exists := r.modules[oldID]
	if !exists {
		r.mu.Unlock()
		return fmt.Errorf("%w: %q", ErrNotFound, oldID)
	}
	if d.ID != oldID {
		if _, taken := r.modules[d.ID]; taken {
			r.mu.Unlock()
			return fmt.Errorf("%w: %q", ErrDuplicateID, d.ID)
		}
		delete(r.modules, oldID)
	}
	r.modules[d.ID] = d
	deliver := r.enqueueLocked(
		Event{Type: EventRemoved, Descriptor: old},
		Event{Type: EventRegistered, Descriptor: d},
	)
	r.mu.Unlock()

	if deliver {
		r.dispatch()
	}
	return nil
}

// Lookup returns the descriptor registered under id.
func (r *Registry) Lookup(id string) (*model.Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.modules[id]
	return d, ok
}

// Len returns the number of registered modules.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.modules)
}

// ListByKind returns the modules of one kind ordered by name, ignoring
// case, with ties broken by id.
func (r *Registry) ListByKind(kind model.Kind) []*model.Descriptor {
	r.mu.RLock()
	out := make([]*model.Descriptor, 0, len(r.modules))
	for _, d := range r.modules {
		if d.Kind == kind {
			out = append(out, d)
		}
	}
	r.mu.RUnlock()

	sortByName(out)
	return out
}

// All returns every module, grouped by kind in catalog order and sorted by
// name within a kind.
func (r *Registry) All() []*model.Descriptor {
	var out []*model.Descriptor
	for _, k := range model.Kinds {
		out = append(out, r.ListByKind(k)...)
	}
	return out
}

// Filter returns the modules of kind whose name or help text contains
// query, ignoring case. An empty query returns ListByKind unchanged.
func (r *Registry) Filter(kind model.Kind, query string) []*model.Descriptor {
	return FilterDescriptors(r.ListByKind(kind), query)
}

// Suggest returns up to limit registered ids that look like id, closest
// first.
func (r *Registry) Suggest(id string, limit int) []string {
	r.mu.RLock()
	ids := make([]string, 0, len(r.modules))
	for known := range r.modules {
		ids = append(ids, known)
	}
	r.mu.RUnlock()

	ranks := fuzzy.RankFindNormalizedFold(id, ids)
	sort.Sort(ranks)
	out := make([]string, 0, limit)
	for _, rank := range ranks {
		if len(out) == limit {
			break
		}
		out = append(out, rank.Target)
	}
	return out
}

func validate(d *model.Descriptor) error {
	if d == nil {
		return fmt.Errorf("%w: nil descriptor", ErrInvalidDescriptor)
	}
	if strings.TrimSpace(d.ID) == "" {
		return fmt.Errorf("%w: empty id", ErrInvalidDescriptor)
	}
	if d.Unit == nil {
		return fmt.Errorf("%w: %q has no compiled unit", ErrInvalidDescriptor, d.ID)
	}
	return nil
}

func sortByName(ds []*model.Descriptor) {
	sort.SliceStable(ds, func(i, j int) bool {
		a, b := strings.ToLower(ds[i].Name), strings.ToLower(ds[j].Name)
		if a != b {
			return a < b
		}
		return ds[i].ID < ds[j].ID
	})
}
