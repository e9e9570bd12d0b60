package nasc

import (
	"fmt"
	"reflect"
	"sync"
	"weak"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"

	"github.com/toutaio/toutago-nasc-injection/registry"
)

// usedModule is a composition edge.
type usedModule struct {
	module   *Module
	priority Priority

	// scope is set while the edge is held by an open temporary use.
	scope *Scope
}

// Module is an isolated registry of bindings plus a prioritized list of
// other modules it falls through to when resolving.
//
// Resolution order for a type:
//  1. high-priority used modules, most recently used first;
//  2. the module's own bindings;
//  3. low-priority used modules, most recently used first.
//
// Once a singleton reachable from the module has been built the module is
// locked, and changes to its bindings or composition fail with
// ModuleLockedError until Unlock is called.
type Module struct {
	name     string
	registry *registry.Registry[Injectable]

	// mu guards used. Later entries are more recent.
	mu   sync.RWMutex
	used []usedModule

	// writeMu serializes mutations (lock check + apply).
	writeMu sync.Mutex

	obsMu        sync.Mutex
	observers    []weak.Pointer[Module]
	listeners    map[uint64]Listener
	nextListener uint64
	loggers      []zerolog.Logger

	tracer trace.Tracer

	providerMu sync.Mutex
	providers  []*providerEntry

	reflectionCache *reflectionCache
}

// Name returns the unique name of the module.
func (m *Module) Name() string {
	return m.name
}

// String returns the module name.
func (m *Module) String() string {
	return m.name
}

// ── Resolution ───────────────────────────────────────────────────────────────

// Resolve returns the binding answering t in the composition graph of m.
// Returns *NoInjectableError if there is none.
func (m *Module) Resolve(t reflect.Type) (Injectable, error) {
	if t == nil {
		return nil, &InvalidBindingError{Reason: "cannot resolve nil type"}
	}

	if inj, ok := m.lookup(t, make(map[*Module]struct{})); ok {
		return inj, nil
	}
	return nil, &NoInjectableError{Type: t, Module: m.name}
}

// Contains reports whether t can be resolved from m.
func (m *Module) Contains(t reflect.Type) bool {
	if t == nil {
		return false
	}
	_, ok := m.lookup(t, make(map[*Module]struct{}))
	return ok
}

// lookup walks the composition graph. visited guards against cycles: a
// module already visited answers nothing.
func (m *Module) lookup(t reflect.Type, visited map[*Module]struct{}) (Injectable, bool) {
	if _, seen := visited[m]; seen {
		return nil, false
	}
	visited[m] = struct{}{}

	high, low := m.tiers()

	for _, used := range high {
		if inj, ok := used.lookup(t, visited); ok {
			return inj, true
		}
	}

	if record, ok := m.registry.Lookup(t); ok {
		return record.Binding, true
	}

	for _, used := range low {
		if inj, ok := used.lookup(t, visited); ok {
			return inj, true
		}
	}

	return nil, false
}

// tiers returns the used modules split by priority, most recent first.
// The copy lets callers recurse without holding mu.
func (m *Module) tiers() (high, low []*Module) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for i := len(m.used) - 1; i >= 0; i-- {
		u := m.used[i]
		if u.priority == PriorityHigh {
			high = append(high, u.module)
		} else {
			low = append(low, u.module)
		}
	}
	return high, low
}

// FindInstance resolves t and returns an instance per the binding's policy.
// Returns *NoInjectableError if nothing provides t, or *ResolutionError if
// building the instance failed.
func (m *Module) FindInstance(t reflect.Type) (any, error) {
	return m.findInstance(t, nil)
}

func (m *Module) findInstance(t reflect.Type, chain *frame) (any, error) {
	inj, err := m.Resolve(t)
	if err != nil {
		return nil, err
	}

	instance, err := instanceOf(m, inj, t, chain)
	if err != nil {
		return nil, &ResolutionError{Type: t, Cause: err}
	}
	return instance, nil
}

// GetInstance is like FindInstance but reports a missing binding through
// ok=false instead of an error. Failures building the instance are still
// returned.
func (m *Module) GetInstance(t reflect.Type) (instance any, ok bool, err error) {
	return m.getInstance(t, nil)
}

func (m *Module) getInstance(t reflect.Type, chain *frame) (instance any, ok bool, err error) {
	inj, err := m.Resolve(t)
	if err != nil {
		if _, missing := err.(*NoInjectableError); missing {
			return nil, false, nil
		}
		return nil, false, err
	}

	instance, err = instanceOf(m, inj, t, chain)
	if err != nil {
		return nil, false, &ResolutionError{Type: t, Cause: err}
	}
	return instance, true, nil
}

// GetLazyInstance returns a handle resolving t on dereference.
// With cache the first answer, including "absent", is kept by the handle.
func (m *Module) GetLazyInstance(t reflect.Type, cache bool) *Lazy[any] {
	return newLazy[any](m, t, cache)
}

// ── Locking ──────────────────────────────────────────────────────────────────

// IsLocked reports whether any singleton reachable from m holds a cached
// instance.
func (m *Module) IsLocked() bool {
	return m.isLocked(make(map[*Module]struct{}))
}

func (m *Module) isLocked(visited map[*Module]struct{}) bool {
	if _, seen := visited[m]; seen {
		return false
	}
	visited[m] = struct{}{}

	if m.registry.IsLocked() {
		return true
	}

	high, low := m.tiers()
	for _, used := range append(high, low...) {
		if used.isLocked(visited) {
			return true
		}
	}
	return false
}

// Unlock clears every singleton cache reachable from m. Bindings are kept;
// singletons resolved afterwards are built again by their factory.
func (m *Module) Unlock() {
	m.unlock(make(map[*Module]struct{}))
	m.debug("`%s` has been unlocked.", m)
}

func (m *Module) unlock(visited map[*Module]struct{}) {
	if _, seen := visited[m]; seen {
		return
	}
	visited[m] = struct{}{}

	m.registry.Unlock()

	high, low := m.tiers()
	for _, used := range append(high, low...) {
		used.unlock(visited)
	}
}

// checkLocking fails when m, or a module using m directly or transitively,
// is locked: a change to m is visible through every module using it.
func (m *Module) checkLocking() error {
	visited := make(map[*Module]struct{})
	queue := []*Module{m}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		if _, seen := visited[current]; seen {
			continue
		}
		visited[current] = struct{}{}

		if current.IsLocked() {
			return &ModuleLockedError{Module: m.name, Locked: current.name}
		}
		queue = append(queue, current.liveObservers()...)
	}
	return nil
}

// ── Composition ──────────────────────────────────────────────────────────────

// Use makes m fall through to other when resolving, at the given priority.
// If other is already used its priority is updated and it becomes the most
// recently used module of that priority.
//
// Returns *SelfUseError when other is m, *ModuleAlreadyUsedError while
// other is held by an open temporary use and *ModuleLockedError when m is
// locked.
func (m *Module) Use(other *Module, priority Priority) error {
	return m.use(other, priority, nil)
}

// use adds or moves the edge to other. A non-nil scope opens a temporary
// use, which must not overlap an existing edge.
func (m *Module) use(other *Module, priority Priority, scope *Scope) error {
	if other == nil {
		return &InvalidBindingError{Reason: "used module cannot be nil"}
	}
	if other == m {
		return &SelfUseError{Module: m.name}
	}

	return m.dispatch(true, func() (Event, error) {
		m.mu.Lock()
		index := m.indexOf(other)
		if index >= 0 && (scope != nil || m.used[index].scope != nil) {
			m.mu.Unlock()
			return nil, &ModuleAlreadyUsedError{Module: m.name, Used: other.name}
		}
		if index >= 0 {
			m.used = append(m.used[:index], m.used[index+1:]...)
		}
		m.used = append(m.used, usedModule{module: other, priority: priority, scope: scope})
		m.mu.Unlock()

		if index >= 0 {
			return &ModulePriorityUpdated{Module: m, Updated: other, Priority: priority}, nil
		}

		other.addObserver(m)
		return &ModuleAdded{Module: m, Added: other, Priority: priority}, nil
	})
}

// StopUsing removes other from the modules used by m. It is a no-op when
// other is not used.
func (m *Module) StopUsing(other *Module) error {
	return m.stopUsing(other, nil)
}

// stopUsing removes the edge to other. With a scope only the edge opened by
// that scope is removed, and the lock is not checked.
func (m *Module) stopUsing(other *Module, scope *Scope) error {
	if other == nil {
		return nil
	}

	return m.dispatch(scope == nil, func() (Event, error) {
		m.mu.Lock()
		index := m.indexOf(other)
		if index < 0 || (scope != nil && m.used[index].scope != scope) {
			m.mu.Unlock()
			return nil, nil
		}
		m.used = append(m.used[:index], m.used[index+1:]...)
		m.mu.Unlock()

		other.removeObserver(m)
		return &ModuleRemoved{Module: m, Removed: other}, nil
	})
}

// ChangePriority moves a used module to another priority, as the most
// recently used module of that priority.
// Returns *ModuleNotUsedError when other is not used by m.
func (m *Module) ChangePriority(other *Module, priority Priority) error {
	if other == nil {
		return &InvalidBindingError{Reason: "used module cannot be nil"}
	}

	return m.dispatch(true, func() (Event, error) {
		m.mu.Lock()
		defer m.mu.Unlock()

		index := m.indexOf(other)
		if index < 0 {
			return nil, &ModuleNotUsedError{Module: m.name, Used: other.name}
		}
		edge := m.used[index]
		edge.priority = priority
		m.used = append(m.used[:index], m.used[index+1:]...)
		m.used = append(m.used, edge)
		return &ModulePriorityUpdated{Module: m, Updated: other, Priority: priority}, nil
	})
}

// InitModules replaces the used modules of m by modules, used in order at
// low priority.
func (m *Module) InitModules(modules ...*Module) error {
	for _, used := range m.UsedModules() {
		if err := m.StopUsing(used); err != nil {
			return err
		}
	}
	for _, used := range modules {
		if err := m.Use(used, PriorityLow); err != nil {
			return err
		}
	}
	return nil
}

// UsedModules returns the modules used by m in resolution order.
func (m *Module) UsedModules() []*Module {
	high, low := m.tiers()
	return append(high, low...)
}

// PriorityOf returns the priority other is used with by m.
func (m *Module) PriorityOf(other *Module) (Priority, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	index := m.indexOf(other)
	if index < 0 {
		return PriorityLow, false
	}
	return m.used[index].priority, true
}

// indexOf must be called with mu held.
func (m *Module) indexOf(other *Module) int {
	for i, u := range m.used {
		if u.module == other {
			return i
		}
	}
	return -1
}

// ── Dispatch ─────────────────────────────────────────────────────────────────

// dispatch serializes a mutation of m. With checkLock the mutation is
// rejected while m or a module using it is locked. apply returns the event
// to propagate, or nil when nothing changed.
func (m *Module) dispatch(checkLock bool, apply func() (Event, error)) error {
	m.writeMu.Lock()
	if checkLock {
		if err := m.checkLocking(); err != nil {
			m.writeMu.Unlock()
			return err
		}
	}
	event, err := apply()
	m.writeMu.Unlock()

	if err != nil {
		return err
	}
	if event != nil {
		m.propagate(event, make(map[*Module]struct{}))
	}
	return nil
}

// propagate logs event, hands it to the listeners of m, then forwards it
// to every module using m wrapped in an EventProxy.
func (m *Module) propagate(event Event, visited map[*Module]struct{}) {
	if _, seen := visited[m]; seen {
		return
	}
	visited[m] = struct{}{}

	m.debug("%s", event)

	for _, listener := range m.listenerSnapshot() {
		listener.OnEvent(event)
	}

	for _, observer := range m.liveObservers() {
		observer.propagate(&EventProxy{Module: observer, Event: event}, visited)
	}
}

// Subscribe registers listener for the events of m and of the modules it
// uses. The returned function unsubscribes it.
func (m *Module) Subscribe(listener Listener) (unsubscribe func()) {
	m.obsMu.Lock()
	defer m.obsMu.Unlock()

	if m.listeners == nil {
		m.listeners = make(map[uint64]Listener)
	}
	id := m.nextListener
	m.nextListener++
	m.listeners[id] = listener

	return func() {
		m.obsMu.Lock()
		defer m.obsMu.Unlock()
		delete(m.listeners, id)
	}
}

func (m *Module) listenerSnapshot() []Listener {
	m.obsMu.Lock()
	defer m.obsMu.Unlock()

	out := make([]Listener, 0, len(m.listeners))
	for id := uint64(0); id < m.nextListener; id++ {
		if l, ok := m.listeners[id]; ok {
			out = append(out, l)
		}
	}
	return out
}

// addObserver records that observer uses m. Observers are held weakly: m
// does not keep the modules using it alive.
func (m *Module) addObserver(observer *Module) {
	m.obsMu.Lock()
	defer m.obsMu.Unlock()

	ptr := weak.Make(observer)
	for _, existing := range m.observers {
		if existing == ptr {
			return
		}
	}
	m.observers = append(m.observers, ptr)
}

func (m *Module) removeObserver(observer *Module) {
	m.obsMu.Lock()
	defer m.obsMu.Unlock()

	ptr := weak.Make(observer)
	for i, existing := range m.observers {
		if existing == ptr {
			m.observers = append(m.observers[:i], m.observers[i+1:]...)
			return
		}
	}
}

// liveObservers returns the observers still alive and drops the others.
func (m *Module) liveObservers() []*Module {
	m.obsMu.Lock()
	defer m.obsMu.Unlock()

	live := make([]*Module, 0, len(m.observers))
	kept := m.observers[:0]
	for _, ptr := range m.observers {
		if observer := ptr.Value(); observer != nil {
			live = append(live, observer)
			kept = append(kept, ptr)
		}
	}
	m.observers = kept
	return live
}

// ── Logging ──────────────────────────────────────────────────────────────────

// AddLogger adds a logger receiving the debug messages of m.
func (m *Module) AddLogger(logger zerolog.Logger) {
	m.obsMu.Lock()
	defer m.obsMu.Unlock()
	m.loggers = append(m.loggers, logger)
}

func (m *Module) debug(format string, args ...any) {
	m.obsMu.Lock()
	loggers := append([]zerolog.Logger(nil), m.loggers...)
	m.obsMu.Unlock()

	if len(loggers) == 0 {
		return
	}
	message := fmt.Sprintf(format, args...)
	for _, logger := range loggers {
		logger.Debug().Str("module", m.name).Msg(message)
	}
}
