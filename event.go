package nasc

import (
	"fmt"
	"reflect"
	"strings"
)

// Event describes a change in the bindings or the composition of a module.
// String returns the message logged when the event is dispatched.
type Event interface {
	fmt.Stringer
}

// Listener receives events dispatched by a module, including the events
// propagated from the modules it uses.
//
// OnEvent is called synchronously after the change was applied. It must not
// block and must not mutate the module that dispatched the event.
type Listener interface {
	OnEvent(event Event)
}

// ListenerFunc adapts a function to the Listener interface.
type ListenerFunc func(event Event)

// OnEvent calls f(event).
func (f ListenerFunc) OnEvent(event Event) { f(event) }

// DependenciesUpdated is dispatched when bindings were stored in a module.
type DependenciesUpdated struct {
	Module *Module
	Types  []reflect.Type
	Mode   Mode
}

func (e *DependenciesUpdated) String() string {
	formatted := make([]string, len(e.Types))
	for i, t := range e.Types {
		formatted[i] = fmt.Sprintf("`%v`", t)
	}

	noun := "dependency has"
	if len(e.Types) > 1 {
		noun = "dependencies have"
	}
	if len(formatted) == 0 {
		return fmt.Sprintf("%d %s been updated.", len(e.Types), noun)
	}
	return fmt.Sprintf("%d %s been updated: %s.", len(e.Types), noun, strings.Join(formatted, ", "))
}

// ModuleAdded is dispatched when a module starts using another one.
type ModuleAdded struct {
	Module   *Module
	Added    *Module
	Priority Priority
}

func (e *ModuleAdded) String() string {
	return fmt.Sprintf("`%s` now uses `%s`.", e.Module, e.Added)
}

// ModuleRemoved is dispatched when a module stops using another one.
type ModuleRemoved struct {
	Module  *Module
	Removed *Module
}

func (e *ModuleRemoved) String() string {
	return fmt.Sprintf("`%s` no longer uses `%s`.", e.Module, e.Removed)
}

// ModulePriorityUpdated is dispatched when the priority of a used module changes.
type ModulePriorityUpdated struct {
	Module   *Module
	Updated  *Module
	Priority Priority
}

func (e *ModulePriorityUpdated) String() string {
	return fmt.Sprintf("In `%s`, the priority `%s` has been applied to `%s`.", e.Module, e.Priority, e.Updated)
}

// EventProxy wraps an event that a module received from a module it uses
// and propagated to its own listeners.
type EventProxy struct {
	Module *Module
	Event  Event
}

func (e *EventProxy) String() string {
	return fmt.Sprintf("`%s` has propagated an event: %s", e.Module, e.Origin())
}

// History returns the chain of events, from the origin to the last proxy
// before this one.
func (e *EventProxy) History() []Event {
	var history []Event
	if inner, ok := e.Event.(*EventProxy); ok {
		history = inner.History()
	}
	return append(history, e.Event)
}

// Origin returns the event that started the propagation.
func (e *EventProxy) Origin() Event {
	return e.History()[0]
}
