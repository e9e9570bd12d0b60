package nasc

import (
	"fmt"
	"reflect"

	"github.com/toutaio/toutago-nasc-injection/registry"
)

// Lifetime represents the caching policy of a binding.
type Lifetime string

const (
	// LifetimeTransient creates a new instance on every resolution.
	// This is the lifetime of Bind.
	LifetimeTransient Lifetime = "transient"

	// LifetimeSingleton creates a single instance that is reused for all resolutions.
	// The instance is created lazily on first resolution and locks the module.
	LifetimeSingleton Lifetime = "singleton"

	// LifetimeConstant returns a value supplied at registration time.
	// It never resolves dependencies and never locks the module.
	LifetimeConstant Lifetime = "constant"
)

// String returns the string representation of the lifetime.
func (l Lifetime) String() string {
	return string(l)
}

// Mode is the conflict-resolution class of a registration.
type Mode = registry.Mode

const (
	// ModeFallback bindings are only used if nothing else provides the type.
	ModeFallback = registry.ModeFallback
	// ModeNormal is the default mode; a second normal binding is a conflict.
	ModeNormal = registry.ModeNormal
	// ModeOverride replaces any existing binding.
	ModeOverride = registry.ModeOverride
)

// Priority decides where a used module is searched relative to the bindings
// of the module using it.
type Priority int

const (
	// PriorityLow modules are searched after the module's own bindings.
	PriorityLow Priority = iota
	// PriorityHigh modules are searched before the module's own bindings.
	PriorityHigh
)

// String returns the lowercase name of the priority.
func (p Priority) String() string {
	switch p {
	case PriorityLow:
		return "low"
	case PriorityHigh:
		return "high"
	default:
		return fmt.Sprintf("priority(%d)", int(p))
	}
}

// ParsePriority parses "low" or "high". An empty string is PriorityLow.
func ParsePriority(s string) (Priority, error) {
	switch s {
	case "low", "":
		return PriorityLow, nil
	case "high":
		return PriorityHigh, nil
	default:
		return PriorityLow, fmt.Errorf("unknown priority %q", s)
	}
}

// Resolver resolves the dependencies of a Factory from the module the
// resolution started in.
type Resolver interface {
	FindInstance(t reflect.Type) (any, error)
	GetInstance(t reflect.Type) (instance any, ok bool, err error)
}

// Factory builds an instance for a binding created with NewTransient or
// NewSingleton. Dependencies are resolved through r, which reports a binding
// requiring itself with *CircularDependencyError. A singleton factory that
// resolves its own type through the module instead of r never returns.
type Factory func(r Resolver) (any, error)
