package nasc

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
)

// Sentinel errors matched by the typed errors below through errors.Is.
var (
	ErrNoInjectable    = errors.New("no injectable")
	ErrBindingConflict = errors.New("binding conflict")
	ErrModuleLocked    = errors.New("module is locked")
)

// NoInjectableError is returned when no binding for a type exists anywhere
// in the composition graph of a module.
type NoInjectableError struct {
	Type   reflect.Type
	Module string
}

func (e *NoInjectableError) Error() string {
	return fmt.Sprintf("no injectable for type %v in module `%s`. Did you forget to register it?", e.Type, e.Module)
}

// Is makes errors.Is(err, ErrNoInjectable) true.
func (e *NoInjectableError) Is(target error) bool {
	return target == ErrNoInjectable
}

// BindingConflictError is returned when a registration collides with an
// existing binding of the same rank in the same module.
type BindingConflictError struct {
	Type      reflect.Type
	Module    string
	Existing  Mode
	Requested Mode
}

func (e *BindingConflictError) Error() string {
	return fmt.Sprintf("a %s injectable already exists for type %v in module `%s`; register it with another mode or on another type",
		e.Existing, e.Type, e.Module)
}

// Is makes errors.Is(err, ErrBindingConflict) true.
func (e *BindingConflictError) Is(target error) bool {
	return target == ErrBindingConflict
}

// ModuleLockedError is returned when a mutation is attempted on a module
// that has constructed at least one singleton. Locked names the module whose
// lock caused the rejection; it may be a module using Module.
type ModuleLockedError struct {
	Module string
	Locked string
}

func (e *ModuleLockedError) Error() string {
	if e.Locked != "" && e.Locked != e.Module {
		return fmt.Sprintf("module `%s` cannot be changed: `%s` is locked", e.Module, e.Locked)
	}
	return fmt.Sprintf("module `%s` is locked", e.Module)
}

// Is makes errors.Is(err, ErrModuleLocked) true.
func (e *ModuleLockedError) Is(target error) bool {
	return target == ErrModuleLocked
}

// SelfUseError is returned when a module is asked to use itself.
type SelfUseError struct {
	Module string
}

func (e *SelfUseError) Error() string {
	return fmt.Sprintf("module `%s` can't be used by itself", e.Module)
}

// ModuleNotUsedError is returned when an operation needs a module to be in
// the used list and it is not.
type ModuleNotUsedError struct {
	Module string
	Used   string
}

func (e *ModuleNotUsedError) Error() string {
	return fmt.Sprintf("`%s` can't be found in the modules used by `%s`", e.Used, e.Module)
}

// ModuleAlreadyUsedError is returned when a temporary use would overlap an
// existing use of the same module.
type ModuleAlreadyUsedError struct {
	Module string
	Used   string
}

func (e *ModuleAlreadyUsedError) Error() string {
	return fmt.Sprintf("`%s` already uses `%s`", e.Module, e.Used)
}

// CircularDependencyError is returned when building an instance requires,
// directly or not, the instance being built.
type CircularDependencyError struct {
	Path []string
}

func (e *CircularDependencyError) Error() string {
	if len(e.Path) == 0 {
		return "circular dependency detected"
	}
	return fmt.Sprintf("circular dependency detected: %s", strings.Join(e.Path, " -> "))
}

// InvalidBindingError is returned when a binding has invalid parameters.
type InvalidBindingError struct {
	Reason string
}

func (e *InvalidBindingError) Error() string {
	return fmt.Sprintf("invalid binding: %s", e.Reason)
}

// ShouldBeInjectableError is returned when resolution reaches a placeholder
// registered with ShouldBeInjectable.
type ShouldBeInjectableError struct {
	Type reflect.Type
}

func (e *ShouldBeInjectableError) Error() string {
	return fmt.Sprintf("`%v` should be an injectable", e.Type)
}

// ResolutionError is returned when a binding was found but building the
// instance failed.
type ResolutionError struct {
	Type  reflect.Type
	Cause error
}

func (e *ResolutionError) Error() string {
	typeStr := "unknown"
	if e.Type != nil {
		typeStr = e.Type.String()
	}
	if e.Cause == nil {
		return fmt.Sprintf("failed to resolve %s", typeStr)
	}
	return fmt.Sprintf("failed to resolve %s: %v", typeStr, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *ResolutionError) Unwrap() error {
	return e.Cause
}

// UnresolvableDependencyError is returned by an injected call when a required
// parameter has neither an explicit argument nor a resolvable binding.
type UnresolvableDependencyError struct {
	Function  string
	Parameter string
	Index     int
	Types     []reflect.Type
	Cause     error
}

func (e *UnresolvableDependencyError) Error() string {
	names := make([]string, len(e.Types))
	for i, t := range e.Types {
		names[i] = t.String()
	}

	var b strings.Builder
	fmt.Fprintf(&b, "cannot inject parameter %s (#%d, %s)", e.Parameter, e.Index, strings.Join(names, " | "))
	if e.Function != "" {
		fmt.Fprintf(&b, " of %s", e.Function)
	}
	if e.Cause != nil {
		fmt.Fprintf(&b, ": %v", e.Cause)
	}
	return b.String()
}

// Unwrap returns the resolution failure for the parameter.
func (e *UnresolvableDependencyError) Unwrap() error {
	return e.Cause
}
