package nasc

import (
	"reflect"
	"sync"
	"sync/atomic"
)

// Injectable is a binding: it provides instances for one or more types
// according to its caching policy.
type Injectable interface {
	// Instance returns an instance according to the caching policy.
	Instance() (any, error)

	// IsLocked reports whether a cached instance exists.
	IsLocked() bool

	// Unlock discards any cached instance.
	Unlock()
}

// builder builds an instance knowing which bindings are being built by the
// current resolution.
type builder func(chain *frame) (any, error)

// frame is one binding being built for module. Frames form the resolution
// path.
type frame struct {
	module *Module
	inj    Injectable
	typ    reflect.Type
	parent *frame
}

// chained is implemented by the bindings built by this package.
type chained interface {
	instance(chain *frame) (any, error)
}

// instanceOf returns an instance of inj resolved for t. Bindings already
// being built on chain are reported as a cycle instead of being entered
// again.
func instanceOf(m *Module, inj Injectable, t reflect.Type, chain *frame) (any, error) {
	c, ok := inj.(chained)
	if !ok {
		return inj.Instance()
	}

	for f := chain; f != nil; f = f.parent {
		if f.inj == inj {
			return nil, &CircularDependencyError{Path: chain.path(t)}
		}
	}
	return c.instance(&frame{module: m, inj: inj, typ: t, parent: chain})
}

// path lists the types from the outermost frame down to next.
func (f *frame) path(next reflect.Type) []string {
	var path []string
	for current := f; current != nil; current = current.parent {
		path = append(path, current.typ.String())
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return append(path, next.String())
}

func fromFactory(factory Factory) builder {
	return func(chain *frame) (any, error) { return factory(chainResolver{chain: chain}) }
}

// chainResolver is the Resolver handed to a Factory. It resolves from the
// module of the frame being built and extends its chain.
type chainResolver struct {
	chain *frame
}

func (r chainResolver) FindInstance(t reflect.Type) (any, error) {
	if r.chain == nil || r.chain.module == nil {
		return nil, &NoInjectableError{Type: t}
	}
	return r.chain.module.findInstance(t, r.chain)
}

func (r chainResolver) GetInstance(t reflect.Type) (any, bool, error) {
	if r.chain == nil || r.chain.module == nil {
		return nil, false, nil
	}
	return r.chain.module.getInstance(t, r.chain)
}

// NewTransient returns an Injectable calling factory on every resolution.
func NewTransient(factory Factory) Injectable {
	return &transientInjectable{build: fromFactory(factory)}
}

// NewSingleton returns an Injectable calling factory once and caching the
// result until Unlock. Concurrent first calls run factory at most once.
func NewSingleton(factory Factory) Injectable {
	return &singletonInjectable{build: fromFactory(factory)}
}

// NewConstant returns an Injectable always answering value.
func NewConstant(value any) Injectable {
	return &constantInjectable{value: value}
}

type transientInjectable struct {
	build builder
}

func (t *transientInjectable) Instance() (any, error)             { return t.build(nil) }
func (t *transientInjectable) instance(chain *frame) (any, error) { return t.build(chain) }
func (t *transientInjectable) IsLocked() bool                     { return false }
func (t *transientInjectable) Unlock()                            {}

// singletonValue boxes the cached instance so that a nil instance still
// counts as cached.
type singletonValue struct {
	value any
}

// singletonInjectable holds a lazily created instance.
// The mutex guards construction only; readers go through the atomic pointer.
type singletonInjectable struct {
	build  builder
	mu     sync.Mutex
	cached atomic.Pointer[singletonValue]
}

// Instance returns the cached instance, creating it on first call.
// A failing factory caches nothing, so the next call tries again.
//
// This method is goroutine-safe.
func (s *singletonInjectable) Instance() (any, error) {
	return s.instance(nil)
}

func (s *singletonInjectable) instance(chain *frame) (any, error) {
	// Fast path: already constructed
	if v := s.cached.Load(); v != nil {
		return v.value, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Double-check after acquiring the lock (another goroutine might have built it)
	if v := s.cached.Load(); v != nil {
		return v.value, nil
	}

	instance, err := s.build(chain)
	if err != nil {
		return nil, err
	}
	s.cached.Store(&singletonValue{value: instance})
	return instance, nil
}

func (s *singletonInjectable) IsLocked() bool {
	return s.cached.Load() != nil
}

func (s *singletonInjectable) Unlock() {
	s.cached.Store(nil)
}

type constantInjectable struct {
	value any
}

func (c *constantInjectable) Instance() (any, error) { return c.value, nil }
func (c *constantInjectable) IsLocked() bool         { return false }
func (c *constantInjectable) Unlock()                {}

// shouldBeInjectable marks a type that must be provided by another
// registration. Resolving it fails.
type shouldBeInjectable struct {
	typ reflect.Type
}

func (s *shouldBeInjectable) Instance() (any, error) {
	return nil, &ShouldBeInjectableError{Type: s.typ}
}
func (s *shouldBeInjectable) IsLocked() bool { return false }
func (s *shouldBeInjectable) Unlock()        {}
