package nasc

import (
	"reflect"
	"sync"
)

// Lazy resolves an instance when dereferenced instead of when it is
// created. Without caching every Get resolves again, so it follows changes
// made to the module in between.
type Lazy[T any] struct {
	module *Module
	typ    reflect.Type
	cache  bool

	mu    sync.Mutex
	done  bool
	value T
	ok    bool
}

func newLazy[T any](m *Module, t reflect.Type, cache bool) *Lazy[T] {
	return &Lazy[T]{module: m, typ: t, cache: cache}
}

// LazyOf returns a handle resolving T from m on dereference.
//
// Example:
//
//	db := nasc.LazyOf[Database](module, true)
//	...
//	conn, ok, err := db.Get()
func LazyOf[T any](m *Module, cache bool) *Lazy[T] {
	return newLazy[T](m, Key[T](), cache)
}

// Get resolves the instance. ok is false when nothing provides the type.
// With caching the first successful answer, including absence, is kept;
// errors are never cached.
func (l *Lazy[T]) Get() (value T, ok bool, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.done {
		return l.value, l.ok, nil
	}

	instance, found, err := l.module.GetInstance(l.typ)
	if err != nil {
		return value, false, err
	}
	if found {
		if value, err = as[T](instance); err != nil {
			return value, false, err
		}
	}

	if l.cache {
		l.done = true
		l.value = value
		l.ok = found
	}
	return value, found, nil
}

// IsSet reports whether a cached answer is held.
func (l *Lazy[T]) IsSet() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.done
}

// Type returns the type resolved by the handle.
func (l *Lazy[T]) Type() reflect.Type {
	return l.typ
}
