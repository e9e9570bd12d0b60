// Package registry provides thread-safe storage of bindings keyed by type,
// applying the registration-mode conflict rules of a single module.
package registry

import (
	"fmt"
	"reflect"
	"sort"
	"sync"
)

// Mode is the conflict-resolution class of a registration.
// Modes are ordered by rank: Fallback < Normal < Override.
type Mode int

const (
	// ModeFallback bindings are only used when nothing else provides the type.
	ModeFallback Mode = iota

	// ModeNormal is the default. A second normal registration on the same
	// type is a conflict.
	ModeNormal

	// ModeOverride replaces any existing binding silently.
	ModeOverride
)

// String returns the lowercase name of the mode.
func (m Mode) String() string {
	switch m {
	case ModeFallback:
		return "fallback"
	case ModeNormal:
		return "normal"
	case ModeOverride:
		return "override"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// Rank orders modes for replacement decisions.
func (m Mode) Rank() int {
	return int(m)
}

// ParseMode parses "fallback", "normal" or "override".
func ParseMode(s string) (Mode, error) {
	switch s {
	case "fallback":
		return ModeFallback, nil
	case "normal", "":
		return ModeNormal, nil
	case "override":
		return ModeOverride, nil
	default:
		return ModeNormal, fmt.Errorf("unknown mode %q", s)
	}
}

// Lockable is the part of a binding the registry needs to know about:
// whether it holds a cached instance, and how to drop it.
type Lockable interface {
	IsLocked() bool
	Unlock()
}

// Record is a stored binding together with the mode it was registered with.
type Record[B Lockable] struct {
	Binding B
	Mode    Mode

	// Permanent records survive RemoveAll.
	Permanent bool
}

// Registry stores one record per type.
// Several types may share the same record when a binding was registered
// against more than one type.
type Registry[B Lockable] struct {
	mu      sync.RWMutex
	records map[reflect.Type]Record[B]
}

// New creates an empty Registry.
func New[B Lockable]() *Registry[B] {
	return &Registry[B]{
		records: make(map[reflect.Type]Record[B]),
	}
}

// Update stores record under every type in types, applying the mode rules:
//
//   - a new override replaces any existing record;
//   - a new record replaces an existing record of lower rank;
//   - a new record of lower rank than the existing one is ignored;
//   - a new record of the same rank as the existing one is a conflict.
//
// Normal registered onto an existing override is also a conflict.
// The update is atomic: when any type conflicts nothing is stored.
// Update returns the types that accepted the record.
//
// This method is goroutine-safe.
func (r *Registry[B]) Update(types []reflect.Type, record Record[B]) ([]reflect.Type, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	accepted, err := r.prepare(types, record.Mode)
	if err != nil {
		return nil, err
	}

	for _, t := range accepted {
		r.records[t] = record
	}
	return accepted, nil
}

// Check reports the conflict Update would return, without storing anything.
func (r *Registry[B]) Check(types []reflect.Type, mode Mode) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, err := r.prepare(types, mode)
	return err
}

// prepare must be called with mu held.
func (r *Registry[B]) prepare(types []reflect.Type, mode Mode) ([]reflect.Type, error) {
	seen := make(map[reflect.Type]struct{}, len(types))
	accepted := make([]reflect.Type, 0, len(types))

	for _, t := range types {
		if t == nil {
			return nil, fmt.Errorf("registry: nil type")
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}

		existing, exists := r.records[t]
		if !exists || mode == ModeOverride {
			accepted = append(accepted, t)
			continue
		}

		switch {
		case mode == existing.Mode:
			return nil, &ConflictError{Type: t, Existing: existing.Mode, Requested: mode}
		case mode == ModeNormal && existing.Mode == ModeOverride:
			return nil, &ConflictError{Type: t, Existing: existing.Mode, Requested: mode}
		case mode.Rank() < existing.Mode.Rank():
			continue
		}

		accepted = append(accepted, t)
	}

	return accepted, nil
}

// Lookup returns the record stored for t.
//
// This method is goroutine-safe.
func (r *Registry[B]) Lookup(t reflect.Type) (Record[B], bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	record, ok := r.records[t]
	return record, ok
}

// Has checks if a record exists for the given type.
//
// This method is goroutine-safe.
func (r *Registry[B]) Has(t reflect.Type) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.records[t]
	return ok
}

// IsLocked reports whether any stored binding holds a cached instance.
func (r *Registry[B]) IsLocked() bool {
	for _, b := range r.bindings() {
		if b.IsLocked() {
			return true
		}
	}
	return false
}

// Unlock drops the cached instance of every stored binding.
// Records are kept.
func (r *Registry[B]) Unlock() {
	for _, b := range r.bindings() {
		b.Unlock()
	}
}

// RemoveAll deletes every record that was not registered as permanent and
// returns the number of types that were removed.
func (r *Registry[B]) RemoveAll() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for t, record := range r.records {
		if record.Permanent {
			continue
		}
		delete(r.records, t)
		removed++
	}
	return removed
}

// Types returns every registered type, sorted by name.
func (r *Registry[B]) Types() []reflect.Type {
	r.mu.RLock()
	types := make([]reflect.Type, 0, len(r.records))
	for t := range r.records {
		types = append(types, t)
	}
	r.mu.RUnlock()

	sort.Slice(types, func(i, j int) bool {
		return types[i].String() < types[j].String()
	})
	return types
}

// Len returns the number of registered types.
func (r *Registry[B]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.records)
}

// bindings returns the distinct stored bindings. A binding shared by
// several types is returned once.
func (r *Registry[B]) bindings() []B {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[any]struct{}, len(r.records))
	out := make([]B, 0, len(r.records))
	for _, record := range r.records {
		var key any = record.Binding
		if key == nil {
			continue
		}
		if !reflect.TypeOf(key).Comparable() {
			out = append(out, record.Binding)
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, record.Binding)
	}
	return out
}

// ConflictError is returned when a registration collides with an existing
// record of the same rank.
type ConflictError struct {
	Type      reflect.Type
	Existing  Mode
	Requested Mode
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("a %s binding already exists for type %v (requested mode %s)", e.Existing, e.Type, e.Requested)
}
