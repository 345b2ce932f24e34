// Package registry holds the UI elements of the application under test and
// resolves identifiers to them.
package registry

import (
	"sync"

	"github.com/devicelab-dev/uiharness/pkg/core"
)

// Filter reports whether an element is currently interactable. A nil Filter
// accepts every element.
type Filter func(Element) bool

// Registry is the ordered set of elements. Order is configuration order and
// is the tie-breaker for text resolution.
type Registry struct {
	mu       sync.RWMutex
	elements []*Element
	byKey    map[string][]int
}

// New creates a registry from elements in configuration order. Duplicate
// keys are tolerated; every element sharing a key is returned by queries.
func New(elements []Element) *Registry {
	r := &Registry{
		elements: make([]*Element, 0, len(elements)),
		byKey:    make(map[string][]int, len(elements)),
	}
	for i := range elements {
		e := elements[i]
		r.elements = append(r.elements, &e)
		r.byKey[e.Key] = append(r.byKey[e.Key], i)
	}
	return r
}

// Len returns the number of elements.
func (r *Registry) Len() int {
	return len(r.elements)
}

// Resolve finds the element an identifier refers to. Keys match exactly;
// text matches the first element in configuration order whose current text
// equals the value. The reserved Reset text never matches.
func (r *Registry) Resolve(id Identifier, visible Filter) (Element, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if id.Mode == MatchKey {
		for _, idx := range r.byKey[id.Value] {
			if e := r.elements[idx]; accept(*e, visible) {
				return *e, nil
			}
		}
	} else {
		for _, e := range r.elements {
			if id.matches(e) && accept(*e, visible) {
				return *e, nil
			}
		}
	}

	return Element{}, core.ErrElementNotFound.
		WithMessagef("element not found: %s", id).
		WithDetails(map[string]interface{}{"identifier": id.String()})
}

// QueryByKey returns {key, text} for every element with the given key.
// An unknown key yields an empty, non-nil slice.
func (r *Registry) QueryByKey(key string, visible Filter) []core.TextEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := []core.TextEntry{}
	for _, idx := range r.byKey[key] {
		e := r.elements[idx]
		if !accept(*e, visible) {
			continue
		}
		result = append(result, core.TextEntry{Key: e.Key, Text: e.Text})
	}
	return result
}

// Lookup returns every element with the given key, ignoring visibility.
func (r *Registry) Lookup(key string) []Element {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []Element
	for _, idx := range r.byKey[key] {
		result = append(result, *r.elements[idx])
	}
	return result
}

// MutateText replaces the text of every element with the given key.
func (r *Registry) MutateText(key, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	indexes := r.byKey[key]
	if len(indexes) == 0 {
		return core.ErrElementNotFound.WithMessagef("element not found: key=%q", key)
	}
	for _, idx := range indexes {
		r.elements[idx].Text = text
	}
	return nil
}

// Snapshot returns a copy of all elements in configuration order.
func (r *Registry) Snapshot() []Element {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Element, len(r.elements))
	for i, e := range r.elements {
		out[i] = *e
	}
	return out
}

// Restore resets every element's text from a snapshot taken by Snapshot.
// Elements are matched by position; the element set itself never changes.
func (r *Registry) Restore(snapshot []Element) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, e := range r.elements {
		if i < len(snapshot) {
			e.Text = snapshot[i].Text
		}
	}
}

func accept(e Element, visible Filter) bool {
	return visible == nil || visible(e)
}
