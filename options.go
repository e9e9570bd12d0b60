package nasc

import (
	"fmt"
	"reflect"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
)

// Option is a function that configures a Module.
type Option func(*Module) error

// WithName sets the module name. Names are only unique within the
// process-wide table used by FromName; New does not register the module.
func WithName(name string) Option {
	return func(m *Module) error {
		if name == "" {
			return fmt.Errorf("module name cannot be empty")
		}
		m.name = name
		return nil
	}
}

// WithLogger adds a logger receiving debug messages for every change made
// to the module or propagated from the modules it uses.
func WithLogger(logger zerolog.Logger) Option {
	return func(m *Module) error {
		m.loggers = append(m.loggers, logger)
		return nil
	}
}

// WithTracer makes singleton construction run inside a span of tracer.
func WithTracer(tracer trace.Tracer) Option {
	return func(m *Module) error {
		if tracer == nil {
			return fmt.Errorf("tracer cannot be nil")
		}
		m.tracer = tracer
		return nil
	}
}

// BindOption configures a registration.
type BindOption func(*bindOptions)

type bindOptions struct {
	on        []reflect.Type
	mode      Mode
	permanent bool
	inject    bool
	aliasOnly bool
}

func newBindOptions(opts []BindOption) *bindOptions {
	o := &bindOptions{
		mode:   ModeNormal,
		inject: true,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// On registers the binding under additional types, typically the
// interfaces the instance satisfies.
//
// Example:
//
//	module.Singleton(NewPostgresDB, nasc.On(nasc.Key[Database]()))
func On(types ...reflect.Type) BindOption {
	return func(o *bindOptions) {
		o.on = append(o.on, types...)
	}
}

// WithMode sets the registration mode. The default is ModeNormal.
func WithMode(mode Mode) BindOption {
	return func(o *bindOptions) {
		o.mode = mode
	}
}

// Permanent keeps the binding when the module is reset.
func Permanent() BindOption {
	return func(o *bindOptions) {
		o.permanent = true
	}
}

// WithoutInjection registers a constructor as is: it must take no
// parameters and its dependencies are not resolved.
func WithoutInjection() BindOption {
	return func(o *bindOptions) {
		o.inject = false
	}
}

// AliasOnly registers a constant only under the types given with On, not
// under its own dynamic type.
func AliasOnly() BindOption {
	return func(o *bindOptions) {
		o.aliasOnly = true
	}
}
