// Package signature describes the parameters of a function as an ordered
// list of (name, requested types, has-default) entries.
//
// The injector consumes a Signature and never inspects functions itself, so
// any front end producing one can drive it. Of is the reflection-based
// front end: Go keeps no parameter names at run time, so parameters are
// named arg0, arg1, ... unless Names is given.
package signature

import (
	"fmt"
	"reflect"
	"runtime"
)

// Parameter is one declared parameter of a function.
type Parameter struct {
	// Name identifies the parameter for explicit arguments.
	Name string

	// Index is the position of the parameter.
	Index int

	// Types are the requested types, tried in order. More than one type
	// describes a union: the first type that resolves is used.
	Types []reflect.Type

	// HasDefault parameters fall back to the zero value of their Go type
	// when no explicit argument is given and no binding resolves.
	HasDefault bool
}

// Type returns the Go type of the parameter in the function signature.
func (p Parameter) Type() reflect.Type {
	return p.Types[0]
}

// Signature is the ordered parameter list of a function.
type Signature struct {
	// Name is the function name, for diagnostics.
	Name string

	// Func is the function type.
	Func reflect.Type

	Parameters []Parameter
}

// Lookup returns the parameter with the given name.
func (s *Signature) Lookup(name string) (Parameter, bool) {
	for _, p := range s.Parameters {
		if p.Name == name {
			return p, true
		}
	}
	return Parameter{}, false
}

// Option adjusts the signature produced by Of.
type Option func(*Signature) error

// Names names the parameters in order. Fewer names than parameters leaves
// the remaining ones with their generated names.
func Names(names ...string) Option {
	return func(s *Signature) error {
		if len(names) > len(s.Parameters) {
			return fmt.Errorf("%d names given for %d parameters", len(names), len(s.Parameters))
		}
		for i, name := range names {
			if name == "" {
				continue
			}
			if other, ok := s.Lookup(name); ok && other.Index != i {
				return fmt.Errorf("duplicate parameter name %q", name)
			}
			s.Parameters[i].Name = name
		}
		return nil
	}
}

// Defaults marks the named parameters as having a default.
func Defaults(names ...string) Option {
	return func(s *Signature) error {
		for _, name := range names {
			i, err := s.index(name)
			if err != nil {
				return err
			}
			s.Parameters[i].HasDefault = true
		}
		return nil
	}
}

// Union makes the named parameter request the given types, tried in order
// before the parameter's own Go type. Every type must be assignable to the
// parameter.
func Union(name string, types ...reflect.Type) Option {
	return func(s *Signature) error {
		i, err := s.index(name)
		if err != nil {
			return err
		}
		own := s.Parameters[i].Types[0]
		for _, t := range types {
			if t == nil || !t.AssignableTo(own) {
				return fmt.Errorf("type %v is not assignable to parameter %s (%v)", t, name, own)
			}
		}
		requested := append(append([]reflect.Type(nil), types...), own)
		s.Parameters[i].Types = requested
		return nil
	}
}

func (s *Signature) index(name string) (int, error) {
	p, ok := s.Lookup(name)
	if !ok {
		return -1, fmt.Errorf("unknown parameter %q", name)
	}
	return p.Index, nil
}

// Of describes fn, which must be a non-variadic function.
func Of(fn any, opts ...Option) (*Signature, error) {
	if fn == nil {
		return nil, fmt.Errorf("function cannot be nil")
	}

	value := reflect.ValueOf(fn)
	fnType := value.Type()
	if fnType.Kind() != reflect.Func {
		return nil, fmt.Errorf("expected a function, got %v", fnType)
	}

	sig := FromType(fnType)
	if sig == nil {
		return nil, fmt.Errorf("variadic functions are not supported: %v", fnType)
	}
	if f := runtime.FuncForPC(value.Pointer()); f != nil {
		sig.Name = f.Name()
	}

	for _, opt := range opts {
		if err := opt(sig); err != nil {
			return nil, err
		}
	}
	return sig, nil
}

// FromType describes a function type with generated parameter names.
// It returns nil for variadic or non-function types.
func FromType(fnType reflect.Type) *Signature {
	if fnType.Kind() != reflect.Func || fnType.IsVariadic() {
		return nil
	}

	params := make([]Parameter, fnType.NumIn())
	for i := range params {
		params[i] = Parameter{
			Name:  fmt.Sprintf("arg%d", i),
			Index: i,
			Types: []reflect.Type{fnType.In(i)},
		}
	}
	return &Signature{
		Name:       fnType.String(),
		Func:       fnType,
		Parameters: params,
	}
}

// Clone returns a deep copy of s, safe to adjust with options.
func (s *Signature) Clone() *Signature {
	params := make([]Parameter, len(s.Parameters))
	for i, p := range s.Parameters {
		p.Types = append([]reflect.Type(nil), p.Types...)
		params[i] = p
	}
	return &Signature{Name: s.Name, Func: s.Func, Parameters: params}
}
