package nasc

import (
	"fmt"
	"reflect"
)

// Key returns the type key of T. Use it to name interfaces, which cannot be
// taken from a value.
//
// Example:
//
//	module.Singleton(NewPostgres, nasc.On(nasc.Key[Database]()))
func Key[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

// Find resolves T from m.
//
// Example:
//
//	db, err := nasc.Find[Database](module)
func Find[T any](m *Module) (T, error) {
	var zero T

	instance, err := m.FindInstance(Key[T]())
	if err != nil {
		return zero, err
	}
	return as[T](instance)
}

// MustFind is like Find but panics on error. It is meant for program
// initialization.
func MustFind[T any](m *Module) T {
	value, err := Find[T](m)
	if err != nil {
		panic(err)
	}
	return value
}

// Get resolves T from m. ok is false when nothing provides T.
func Get[T any](m *Module) (value T, ok bool, err error) {
	instance, ok, err := m.GetInstance(Key[T]())
	if err != nil || !ok {
		return value, false, err
	}
	value, err = as[T](instance)
	if err != nil {
		return value, false, err
	}
	return value, true, nil
}

func as[T any](instance any) (T, error) {
	var zero T
	if instance == nil {
		return zero, nil
	}
	value, ok := instance.(T)
	if !ok {
		return zero, &ResolutionError{
			Type:  Key[T](),
			Cause: fmt.Errorf("instance of type %T does not satisfy %v", instance, Key[T]()),
		}
	}
	return value, nil
}
