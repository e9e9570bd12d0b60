package nasc

import (
	"reflect"
	"sync"

	"github.com/toutaio/toutago-nasc-injection/signature"
)

// DefaultModuleName is the name of the module returned by Default.
const DefaultModuleName = "__default__"

var (
	namedMu sync.Mutex
	named   = make(map[string]*Module)
)

// FromName returns the process-wide module with the given name, creating it
// on first use. Two calls with the same name return the same module.
func FromName(name string, options ...Option) *Module {
	namedMu.Lock()
	defer namedMu.Unlock()

	if m, ok := named[name]; ok {
		return m
	}

	m := New(options...)
	m.name = name
	named[name] = m
	return m
}

// Default returns the default module. The package-level functions below
// operate on it.
func Default() *Module {
	return FromName(DefaultModuleName)
}

// Bind registers a transient binding in the default module.
func Bind(constructor any, opts ...BindOption) error {
	return Default().Bind(constructor, opts...)
}

// Singleton registers a singleton binding in the default module.
func Singleton(constructor any, opts ...BindOption) error {
	return Default().Singleton(constructor, opts...)
}

// Constant registers a constant in the default module.
func Constant(value any, opts ...BindOption) error {
	return Default().Constant(value, opts...)
}

// ShouldBeInjectable registers a placeholder for t in the default module.
func ShouldBeInjectable(t reflect.Type) error {
	return Default().ShouldBeInjectable(t)
}

// FindInstance resolves t from the default module.
func FindInstance(t reflect.Type) (any, error) {
	return Default().FindInstance(t)
}

// GetInstance resolves t from the default module, reporting absence with
// ok=false.
func GetInstance(t reflect.Type) (any, bool, error) {
	return Default().GetInstance(t)
}

// GetLazyInstance returns a lazy handle on t in the default module.
func GetLazyInstance(t reflect.Type, cache bool) *Lazy[any] {
	return Default().GetLazyInstance(t, cache)
}

// Inject wraps fn so that its parameters are resolved from the default
// module.
func Inject(fn any, opts ...signature.Option) (*InjectedFunc, error) {
	return Default().Inject(fn, opts...)
}

// AutoWire injects the tagged fields of instance from the default module.
func AutoWire(instance any) error {
	return Default().AutoWire(instance)
}
