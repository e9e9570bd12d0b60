// Package nasctest registers test doubles in a dedicated module and plugs
// it into the module under test for the duration of a test.
//
// Example:
//
//	func TestCheckout(t *testing.T) {
//	    nasctest.Use(t)
//	    ...
//	}
//
//	func init() {
//	    nasctest.Singleton(NewFakePayments, nasc.On(nasc.Key[Payments]()))
//	}
package nasctest

import (
	"reflect"
	"testing"

	nasc "github.com/toutaio/toutago-nasc-injection"
)

// ModuleName is the name of the module holding test doubles.
const ModuleName = "__testing__"

// Module returns the process-wide module holding test doubles.
func Module() *nasc.Module {
	return nasc.FromName(ModuleName)
}

// Bind registers a transient test double.
func Bind(constructor any, opts ...nasc.BindOption) error {
	return Module().Bind(constructor, opts...)
}

// Singleton registers a singleton test double.
func Singleton(constructor any, opts ...nasc.BindOption) error {
	return Module().Singleton(constructor, opts...)
}

// Constant registers a constant test double.
func Constant(value any, opts ...nasc.BindOption) error {
	return Module().Constant(value, opts...)
}

// ShouldBeInjectable registers a test placeholder for t.
func ShouldBeInjectable(t reflect.Type) error {
	return Module().ShouldBeInjectable(t)
}

// Use plugs the test module into the default module at high priority until
// the end of the test.
func Use(tb testing.TB) {
	tb.Helper()
	UseIn(tb, nasc.Default(), Module())
}

// UseIn plugs testModule into module at high priority until the end of the
// test. Both modules are unlocked first so that singletons built before the
// test do not leak into it; module is unlocked again at cleanup so that
// singletons built from test doubles do not leak out of it.
func UseIn(tb testing.TB, module, testModule *nasc.Module) {
	tb.Helper()

	module.Unlock()
	testModule.Unlock()

	scope, err := module.UseTemporarily(testModule, nasc.PriorityHigh)
	if err != nil {
		tb.Fatalf("nasctest: cannot use %s in %s: %v", testModule, module, err)
	}

	tb.Cleanup(func() {
		module.Unlock()
		if err := scope.Close(); err != nil {
			tb.Errorf("nasctest: cannot stop using %s in %s: %v", testModule, module, err)
		}
	})
}
