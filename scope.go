package nasc

import (
	"sync"
)

// Scope is a temporary use of a module. Closing it removes the used module
// from the composition, whatever the lock state of the modules involved.
//
// Example:
//
//	scope, err := module.UseTemporarily(overrides, nasc.PriorityHigh)
//	if err != nil {
//	    return err
//	}
//	defer scope.Close()
type Scope struct {
	module *Module
	used   *Module

	once sync.Once
	err  error
}

// UseTemporarily uses other at the given priority until the returned scope
// is closed. other must not already be used by m, and while the scope is
// open Use on other fails: a temporary use never overlaps a lasting one, so
// closing the scope always restores the previous composition. ChangePriority
// and StopUsing still apply to the temporary edge.
//
// Returns *ModuleAlreadyUsedError when other is already used by m.
func (m *Module) UseTemporarily(other *Module, priority Priority) (*Scope, error) {
	scope := &Scope{module: m, used: other}
	if err := m.use(other, priority, scope); err != nil {
		return nil, err
	}
	return scope, nil
}

// UsingTemporarily runs fn while m uses other at the given priority. The
// composition is restored when fn returns or panics.
//
// Example:
//
//	err := module.UsingTemporarily(fakes, nasc.PriorityHigh, func() error {
//	    svc, err := nasc.Find[*Service](module)
//	    ...
//	})
func (m *Module) UsingTemporarily(other *Module, priority Priority, fn func() error) (err error) {
	scope, err := m.UseTemporarily(other, priority)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := scope.Close(); err == nil {
			err = closeErr
		}
	}()

	return fn()
}

// Module returns the module the scope was opened on.
func (s *Scope) Module() *Module {
	return s.module
}

// Used returns the temporarily used module.
func (s *Scope) Used() *Module {
	return s.used
}

// Close stops the temporary use. An edge to the used module opened after
// the temporary one was stopped is kept. It is safe to call more than once.
func (s *Scope) Close() error {
	s.once.Do(func() {
		s.err = s.module.stopUsing(s.used, s)
	})
	return s.err
}
