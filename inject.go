package nasc

import (
	"fmt"
	"reflect"
	"runtime"

	"github.com/toutaio/toutago-nasc-injection/signature"
)

var errorType = reflect.TypeOf((*error)(nil)).Elem()

// Argument is an explicit argument passed to an injected function. Explicit
// arguments always take precedence over injected ones.
type Argument struct {
	name  string
	index int
	value any
}

// Arg passes value for the parameter with the given name.
func Arg(name string, value any) Argument {
	return Argument{name: name, index: -1, value: value}
}

// ArgAt passes value for the parameter at the given position.
func ArgAt(index int, value any) Argument {
	return Argument{index: index, value: value}
}

// InjectedFunc wraps a function whose parameters are resolved from a module
// at call time. Nothing is cached between calls: every call sees the
// bindings and composition of the module as they are at that moment.
type InjectedFunc struct {
	module *Module
	fn     reflect.Value
	sig    *signature.Signature
}

// Inject wraps fn so that its parameters are resolved from m by type. The
// signature is read by reflection; opts name parameters, give them defaults
// or request union types.
//
// Example:
//
//	greet, _ := module.Inject(func(l Logger, name string) {
//	    l.Log("hello " + name)
//	}, signature.Names("logger", "name"))
//	greet.Call(nasc.Arg("name", "world"))
func (m *Module) Inject(fn any, opts ...signature.Option) (*InjectedFunc, error) {
	value, err := funcValue(fn)
	if err != nil {
		return nil, err
	}

	sig := m.reflectionCache.getSignature(value.Type())
	if sig == nil {
		return nil, &InvalidBindingError{Reason: fmt.Sprintf("variadic functions cannot be injected: %v", value.Type())}
	}
	if f := runtime.FuncForPC(value.Pointer()); f != nil {
		sig.Name = f.Name()
	}

	for _, opt := range opts {
		if err := opt(sig); err != nil {
			return nil, &InvalidBindingError{Reason: err.Error()}
		}
	}

	return &InjectedFunc{module: m, fn: value, sig: sig}, nil
}

// InjectSignature wraps fn using a signature produced by another front end.
// The signature must describe the type of fn.
func (m *Module) InjectSignature(fn any, sig *signature.Signature) (*InjectedFunc, error) {
	value, err := funcValue(fn)
	if err != nil {
		return nil, err
	}
	if sig == nil {
		return nil, &InvalidBindingError{Reason: "signature cannot be nil"}
	}
	if sig.Func != value.Type() || len(sig.Parameters) != value.Type().NumIn() {
		return nil, &InvalidBindingError{Reason: fmt.Sprintf("signature of %v does not describe %v", sig.Func, value.Type())}
	}
	for i, p := range sig.Parameters {
		if p.Index != i || len(p.Types) == 0 {
			return nil, &InvalidBindingError{Reason: fmt.Sprintf("malformed parameter %q at position %d", p.Name, i)}
		}
	}

	return &InjectedFunc{module: m, fn: value, sig: sig.Clone()}, nil
}

func funcValue(fn any) (reflect.Value, error) {
	if fn == nil {
		return reflect.Value{}, &InvalidBindingError{Reason: "function cannot be nil"}
	}
	value := reflect.ValueOf(fn)
	if value.Kind() != reflect.Func {
		return reflect.Value{}, &InvalidBindingError{Reason: fmt.Sprintf("expected a function, got %T", fn)}
	}
	if value.IsNil() {
		return reflect.Value{}, &InvalidBindingError{Reason: "function cannot be nil"}
	}
	return value, nil
}

// Signature returns the parameters the function is injected with.
func (f *InjectedFunc) Signature() *signature.Signature {
	return f.sig
}

// Call resolves every parameter not given in args and calls the function.
// It returns the function results; a failure to inject a parameter is
// returned as *UnresolvableDependencyError and the function is not called.
func (f *InjectedFunc) Call(args ...Argument) ([]any, error) {
	in, err := f.arguments(args, nil)
	if err != nil {
		return nil, err
	}

	out := f.fn.Call(in)
	results := make([]any, len(out))
	for i, v := range out {
		results[i] = v.Interface()
	}
	return results, nil
}

// arguments builds the call arguments: explicit ones first, then resolved
// ones for every other parameter.
func (f *InjectedFunc) arguments(args []Argument, chain *frame) ([]reflect.Value, error) {
	explicit := make(map[int]reflect.Value, len(args))

	for _, arg := range args {
		index := arg.index
		if arg.name != "" {
			p, ok := f.sig.Lookup(arg.name)
			if !ok {
				return nil, &InvalidBindingError{Reason: fmt.Sprintf("%s has no parameter named %q", f.sig.Name, arg.name)}
			}
			index = p.Index
		}
		if index < 0 || index >= len(f.sig.Parameters) {
			return nil, &InvalidBindingError{Reason: fmt.Sprintf("%s has no parameter at position %d", f.sig.Name, index)}
		}

		v, err := valueFor(arg.value, f.sig.Func.In(index))
		if err != nil {
			return nil, &InvalidBindingError{Reason: fmt.Sprintf("argument %s: %v", f.sig.Parameters[index].Name, err)}
		}
		explicit[index] = v
	}

	in := make([]reflect.Value, len(f.sig.Parameters))
	for i, p := range f.sig.Parameters {
		if v, ok := explicit[i]; ok {
			in[i] = v
			continue
		}

		v, err := f.resolve(p, chain)
		if err != nil {
			return nil, err
		}
		in[i] = v
	}
	return in, nil
}

// resolve tries every requested type of p in order.
func (f *InjectedFunc) resolve(p signature.Parameter, chain *frame) (reflect.Value, error) {
	target := f.sig.Func.In(p.Index)
	var missing error

	for _, t := range p.Types {
		inj, err := f.module.Resolve(t)
		if err != nil {
			if missing == nil {
				missing = err
			}
			continue
		}

		instance, err := instanceOf(f.module, inj, t, chain)
		if err != nil {
			return reflect.Value{}, f.unresolvable(p, &ResolutionError{Type: t, Cause: err})
		}

		v, err := valueFor(instance, target)
		if err != nil {
			return reflect.Value{}, f.unresolvable(p, &ResolutionError{Type: t, Cause: err})
		}
		return v, nil
	}

	if p.HasDefault {
		return reflect.Zero(target), nil
	}
	return reflect.Value{}, f.unresolvable(p, missing)
}

func (f *InjectedFunc) unresolvable(p signature.Parameter, cause error) error {
	return &UnresolvableDependencyError{
		Function:  f.sig.Name,
		Parameter: p.Name,
		Index:     p.Index,
		Types:     p.Types,
		Cause:     cause,
	}
}

// valueFor converts v to a value assignable to t.
func valueFor(v any, t reflect.Type) (reflect.Value, error) {
	if v == nil {
		if nillable(t.Kind()) {
			return reflect.Zero(t), nil
		}
		return reflect.Value{}, fmt.Errorf("nil is not assignable to %v", t)
	}

	rv := reflect.ValueOf(v)
	if !rv.Type().AssignableTo(t) {
		return reflect.Value{}, fmt.Errorf("%v is not assignable to %v", rv.Type(), t)
	}
	return rv, nil
}

// Wrap returns a function of the same type as fn whose nil arguments are
// injected from m. Arguments of pointer, interface, map, slice, func and
// chan types are injected when nil; every other argument, zero or not, is
// passed through unchanged. Use InjectedFunc.Call with an explicit nil
// Argument to force a nil value.
//
// When injection fails the wrapper returns the error as its last result if
// fn returns an error, and panics otherwise.
//
// Example:
//
//	handle, _ := nasc.Wrap(module, func(repo UserRepository, id int) (*User, error) {
//	    return repo.Find(id)
//	})
//	user, err := handle(nil, 42)
func Wrap[F any](m *Module, fn F, opts ...signature.Option) (F, error) {
	var zero F

	injected, err := m.Inject(fn, opts...)
	if err != nil {
		return zero, err
	}

	fnType := injected.fn.Type()
	numOut := fnType.NumOut()
	returnsError := numOut > 0 && fnType.Out(numOut-1) == errorType

	wrapped := reflect.MakeFunc(fnType, func(in []reflect.Value) []reflect.Value {
		args := make([]Argument, 0, len(in))
		for i, v := range in {
			if nillable(v.Kind()) && v.IsNil() {
				continue
			}
			args = append(args, ArgAt(i, v.Interface()))
		}

		values, err := injected.arguments(args, nil)
		if err != nil {
			if !returnsError {
				panic(err)
			}
			out := make([]reflect.Value, numOut)
			for i := range out {
				out[i] = reflect.Zero(fnType.Out(i))
			}
			out[numOut-1] = reflect.ValueOf(&err).Elem()
			return out
		}
		return injected.fn.Call(values)
	})

	return wrapped.Interface().(F), nil
}

// nillable reports whether values of kind k can be nil.
func nillable(k reflect.Kind) bool {
	switch k {
	case reflect.Interface, reflect.Ptr, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return true
	}
	return false
}
