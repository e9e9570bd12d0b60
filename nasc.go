package nasc

import (
	"context"
	"fmt"
	"reflect"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/toutaio/toutago-nasc-injection/registry"
)

// New creates an isolated module. Without WithName the module gets an
// anonymous name. The module is not registered in the process-wide table
// used by FromName.
//
// Example:
//
//	module := nasc.New()
//	// or with options:
//	module := nasc.New(nasc.WithName("billing"), nasc.WithLogger(logger))
func New(options ...Option) *Module {
	m := &Module{
		name:            anonymousName(),
		registry:        registry.New[Injectable](),
		tracer:          noop.NewTracerProvider().Tracer(""),
		reflectionCache: newReflectionCache(),
	}

	// Apply options
	for _, opt := range options {
		if err := opt(m); err != nil {
			panic(fmt.Sprintf("failed to apply option: %v", err))
		}
	}

	return m
}

func anonymousName() string {
	return "anonymous@" + uuid.NewString()[:7]
}

// Bind registers a transient binding: constructor is called on every
// resolution. The binding is keyed on the constructor's return type and on
// the types given with On.
//
// The constructor is a function whose parameters are resolved from the
// module at call time, or a pointer to struct whose `inject` fields are
// auto-wired on a fresh instance.
//
// Example:
//
//	module.Bind(NewUserService)
//	// Where: func NewUserService(logger Logger, db Database) (*UserService, error)
//
// Returns *BindingConflictError if a binding of the same mode already owns
// one of the types, and *ModuleLockedError while the module is locked.
func (m *Module) Bind(constructor any, opts ...BindOption) error {
	return m.bindConstructor(constructor, LifetimeTransient, opts)
}

// Singleton registers a binding whose instance is built on first
// resolution and shared afterwards. Building it locks the module.
//
// Example:
//
//	module.Singleton(NewDatabase, nasc.On(nasc.Key[Database]()))
//	db1, _ := nasc.Find[Database](module)
//	db2, _ := nasc.Find[Database](module)
//	// db1 == db2 (same instance)
func (m *Module) Singleton(constructor any, opts ...BindOption) error {
	return m.bindConstructor(constructor, LifetimeSingleton, opts)
}

// bindConstructor is the internal method that handles constructor binding.
func (m *Module) bindConstructor(constructor any, lifetime Lifetime, opts []BindOption) error {
	o := newBindOptions(opts)

	info, err := parseConstructor(constructor)
	if err != nil {
		return &InvalidBindingError{Reason: fmt.Sprintf("invalid constructor: %v", err)}
	}

	build, err := m.builderFor(info, o.inject)
	if err != nil {
		return &InvalidBindingError{Reason: err.Error()}
	}

	types := append([]reflect.Type{info.returnType}, o.on...)

	var inj Injectable
	switch lifetime {
	case LifetimeSingleton:
		inj = &singletonInjectable{build: m.traced(info.returnType, build)}
	default:
		inj = &transientInjectable{build: build}
	}

	return m.update(types, inj, o.mode, o.permanent, true)
}

// Constant registers value as is. The binding is keyed on the dynamic type
// of value, unless AliasOnly is given, and on the types given with On.
// Constants never resolve dependencies, so they can be registered while
// the module is locked.
//
// Example:
//
//	module.Constant(&Config{DSN: dsn}, nasc.On(nasc.Key[ConfigSource]()))
func (m *Module) Constant(value any, opts ...BindOption) error {
	o := newBindOptions(opts)

	types := append([]reflect.Type(nil), o.on...)
	if !o.aliasOnly {
		if value == nil {
			return &InvalidBindingError{Reason: "nil constant needs AliasOnly and On"}
		}
		types = append([]reflect.Type{reflect.TypeOf(value)}, types...)
	}
	if len(types) == 0 {
		return &InvalidBindingError{Reason: "constant has no type to be registered on"}
	}
	for _, t := range types {
		if _, err := valueFor(value, t); err != nil {
			return &InvalidBindingError{Reason: err.Error()}
		}
	}

	return m.update(types, NewConstant(value), o.mode, o.permanent, false)
}

// ShouldBeInjectable registers a fallback placeholder for t. It documents
// that another registration is expected to provide t; resolving it while
// nothing else does fails with *ShouldBeInjectableError.
func (m *Module) ShouldBeInjectable(t reflect.Type) error {
	if t == nil {
		return &InvalidBindingError{Reason: "type cannot be nil"}
	}
	return m.update([]reflect.Type{t}, &shouldBeInjectable{typ: t}, ModeFallback, false, true)
}

// Update stores inj under every type in types with the given mode. It is
// the raw form of Bind, Singleton and Constant. The registration is atomic:
// either every type accepts the binding or nothing is stored.
func (m *Module) Update(types []reflect.Type, inj Injectable, mode Mode) error {
	if inj == nil {
		return &InvalidBindingError{Reason: "injectable cannot be nil"}
	}
	if len(types) == 0 {
		return &InvalidBindingError{Reason: "no type to register the injectable on"}
	}
	return m.update(types, inj, mode, false, true)
}

func (m *Module) update(types []reflect.Type, inj Injectable, mode Mode, permanent, checkLock bool) error {
	return m.dispatch(checkLock, func() (Event, error) {
		record := registry.Record[Injectable]{Binding: inj, Mode: mode, Permanent: permanent}

		accepted, err := m.registry.Update(types, record)
		if err != nil {
			if conflict, ok := err.(*registry.ConflictError); ok {
				return nil, &BindingConflictError{
					Type:      conflict.Type,
					Module:    m.name,
					Existing:  conflict.Existing,
					Requested: conflict.Requested,
				}
			}
			return nil, &InvalidBindingError{Reason: err.Error()}
		}
		if len(accepted) == 0 {
			return nil, nil
		}
		return &DependenciesUpdated{Module: m, Types: accepted, Mode: mode}, nil
	})
}

// Reset removes every binding of m that was not registered as Permanent
// and drops cached reflection data. Used modules are kept.
func (m *Module) Reset() error {
	return m.dispatch(true, func() (Event, error) {
		types := m.registry.Types()
		if m.registry.RemoveAll() == 0 {
			return nil, nil
		}
		m.reflectionCache.clear()

		removed := types[:0]
		for _, t := range types {
			if !m.registry.Has(t) {
				removed = append(removed, t)
			}
		}
		return &DependenciesUpdated{Module: m, Types: removed, Mode: ModeOverride}, nil
	})
}

// Types returns the types bound directly in m, sorted by name.
func (m *Module) Types() []reflect.Type {
	return m.registry.Types()
}

// traced wraps a singleton factory in a construction span.
func (m *Module) traced(t reflect.Type, build builder) builder {
	return func(chain *frame) (any, error) {
		_, span := m.tracer.Start(context.Background(), "nasc.singleton.construct",
			trace.WithAttributes(
				attribute.String("nasc.module", m.name),
				attribute.String("nasc.type", t.String()),
			))
		defer span.End()

		instance, err := build(chain)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		return instance, err
	}
}
