package nasc

import (
	"fmt"
	"reflect"
)

// constructorInfo holds metadata about a constructor.
// A constructor is either a function or a pointer to a struct used as a
// template whose tagged fields are auto-wired.
//
// Supported function signatures:
//   - func(Dep1, Dep2, ...) T
//   - func(Dep1, Dep2, ...) (T, error)
type constructorInfo struct {
	fn           reflect.Value
	returnType   reflect.Type
	returnsError bool
	isStruct     bool
}

// parseConstructor analyzes a constructor and extracts metadata.
func parseConstructor(constructor any) (*constructorInfo, error) {
	if constructor == nil {
		return nil, fmt.Errorf("constructor cannot be nil")
	}

	value := reflect.ValueOf(constructor)
	typ := value.Type()

	if typ.Kind() == reflect.Ptr && typ.Elem().Kind() == reflect.Struct {
		return &constructorInfo{returnType: typ, isStruct: true}, nil
	}

	if typ.Kind() != reflect.Func {
		return nil, fmt.Errorf("constructor must be a function or a pointer to struct, got %v", typ)
	}
	if value.IsNil() {
		return nil, fmt.Errorf("constructor cannot be nil")
	}
	if typ.IsVariadic() {
		return nil, fmt.Errorf("constructor cannot be variadic: %v", typ)
	}

	// Validate return values
	numOut := typ.NumOut()
	if numOut == 0 || numOut > 2 {
		return nil, fmt.Errorf("constructor must return (T) or (T, error), got %d return values", numOut)
	}

	returnsError := false
	if numOut == 2 {
		if typ.Out(1) != errorType {
			return nil, fmt.Errorf("constructor's second return value must be error, got %v", typ.Out(1))
		}
		returnsError = true
	}

	return &constructorInfo{
		fn:           value,
		returnType:   typ.Out(0),
		returnsError: returnsError,
	}, nil
}

// builderFor builds the function calling the constructor. With inject the
// constructor parameters (or tagged struct fields) are resolved from m on
// every call.
func (m *Module) builderFor(info *constructorInfo, inject bool) (builder, error) {
	if info.isStruct {
		elem := info.returnType.Elem()
		return func(chain *frame) (any, error) {
			instance := reflect.New(elem)
			if inject {
				if err := m.autoWire(instance, chain); err != nil {
					return nil, err
				}
			}
			return instance.Interface(), nil
		}, nil
	}

	if !inject {
		if info.fn.Type().NumIn() > 0 {
			return nil, fmt.Errorf("constructor %v has parameters but injection is disabled", info.fn.Type())
		}
		return func(*frame) (any, error) {
			return info.results(info.fn.Call(nil))
		}, nil
	}

	injected, err := m.Inject(info.fn.Interface())
	if err != nil {
		return nil, err
	}
	return func(chain *frame) (any, error) {
		in, err := injected.arguments(nil, chain)
		if err != nil {
			return nil, err
		}
		return info.results(info.fn.Call(in))
	}, nil
}

// results splits the values returned by the constructor.
func (info *constructorInfo) results(out []reflect.Value) (any, error) {
	if info.returnsError && !out[1].IsNil() {
		return nil, out[1].Interface().(error)
	}
	return out[0].Interface(), nil
}
