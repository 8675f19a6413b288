package editors

import (
	"context"
	"sort"
)

// Registry is the read-mostly editor_id -> manager map (spec.md §4.6).
// It's built once at startup and never mutated afterward — binary
// discovery and its TTL cache live inside each Manager, not here.
type Registry struct {
	managers map[string]Manager
	priority []string // fixed fallback priority, spec.md §4.7 step 5
}

// NewRegistry builds a Registry from managers, in the priority order
// that spec.md §4.7's step 5 ("first installed editor from a fixed
// priority list") falls back to.
func NewRegistry(managers []Manager) *Registry {
	r := &Registry{managers: make(map[string]Manager, len(managers))}
	for _, m := range managers {
		id := m.Descriptor().ID
		r.managers[id] = m
		r.priority = append(r.priority, id)
	}
	return r
}

// Get returns the manager for id, if registered.
func (r *Registry) Get(id string) (Manager, bool) {
	m, ok := r.managers[id]
	return m, ok
}

// Descriptors returns every registered editor's descriptor, in registry
// order.
func (r *Registry) Descriptors() []Descriptor {
	out := make([]Descriptor, 0, len(r.priority))
	for _, id := range r.priority {
		out = append(out, r.managers[id].Descriptor())
	}
	return out
}

// FirstInstalled walks the fixed priority list and returns the first
// editor whose binary can currently be discovered.
func (r *Registry) FirstInstalled(ctx context.Context) (string, bool) {
	for _, id := range r.priority {
		if _, err := r.managers[id].FindBinary(ctx); err == nil {
			return id, true
		}
	}
	return "", false
}

// Select implements spec.md §4.7's editor-selection chain given the
// already-computed context for steps 2-5 (step 1, an explicit per-request
// hint, is reserved/unused per the spec and so isn't modeled here).
//
//  2. workspaceOverride — workspace-specific editor override
//  3. recentEditorID    — most-recently-seen editor within the recency window
//  4. defaultEditorID   — Settings.default_editor_id
//  5. first installed editor from the fixed priority list
func (r *Registry) Select(ctx context.Context, workspaceOverride, recentEditorID, defaultEditorID string) (string, bool) {
	for _, candidate := range []string{workspaceOverride, recentEditorID, defaultEditorID} {
		if candidate == "" {
			continue
		}
		if _, ok := r.managers[candidate]; ok {
			return candidate, true
		}
	}
	return r.FirstInstalled(ctx)
}

// sortedIDs is a small helper for tests/debugging that want a stable
// enumeration of registered editor IDs.
func (r *Registry) sortedIDs() []string {
	ids := make([]string, 0, len(r.managers))
	for id := range r.managers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
