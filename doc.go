// Package nasc provides layered dependency-injection modules for Go.
//
// Nasc (Old Irish: "Link" or "Bond") maps requested types to bindings and
// resolves function parameters and struct fields by type. Modules can use
// other modules, which makes it easy to swap implementations in tests or
// per environment without touching the code that consumes them.
//
// # Features
//
//   - Transient, singleton and constant bindings
//   - Fallback, normal and override registration modes
//   - Module composition with high and low priority tiers
//   - Temporary composition with automatic restore
//   - Locking: no change once a singleton has been built, until Unlock
//   - Function injection with explicit argument overrides
//   - Struct field auto-wiring through `inject` tags
//   - Lazy handles, events, zerolog logging and OpenTelemetry spans
//
// # Quick Start
//
//	module := nasc.New()
//	module.Singleton(NewConsoleLogger, nasc.On(nasc.Key[Logger]()))
//	module.Bind(NewUserService)
//
//	service, err := nasc.Find[*UserService](module)
//
// # Lifetimes
//
// Transient - new instance each time:
//
//	module.Bind(NewRequestContext)
//
// Singleton - built once, shared, locks the module:
//
//	module.Singleton(NewDatabase)
//
// Constant - a value supplied at registration time:
//
//	module.Constant(&Config{Port: 8080})
//
// # Modes
//
// A second normal registration for the same type is a conflict. Use
// ModeOverride to replace a binding and ModeFallback to provide a default
// that anything else takes precedence over:
//
//	module.Bind(NewMemoryCache, nasc.On(nasc.Key[Cache]()), nasc.WithMode(nasc.ModeFallback))
//
// # Composition
//
// A module falls through to the modules it uses. High priority modules are
// searched before its own bindings, low priority ones after:
//
//	app := nasc.New(nasc.WithName("app"))
//	app.Use(infrastructure, nasc.PriorityLow)
//
//	scope, _ := app.UseTemporarily(fakes, nasc.PriorityHigh)
//	defer scope.Close()
//
// # Locking
//
// Building a singleton locks every module it is reachable from. Changing a
// locked module, or a module used by a locked one, fails with
// *ModuleLockedError until Unlock clears the singleton caches.
//
// # Injection
//
// Inject resolves the parameters of any function at call time:
//
//	handler, _ := module.Inject(func(repo UserRepository, id int) (*User, error) {
//	    return repo.Find(id)
//	}, signature.Names("repo", "id"))
//	out, err := handler.Call(nasc.Arg("id", 42))
//
// AutoWire fills struct fields tagged `inject`:
//
//	type Service struct {
//	    Logger Logger `inject:""`
//	    Cache  Cache  `inject:"optional"`
//	}
//
// # Thread Safety
//
// All operations are safe for concurrent use. A singleton factory runs at
// most once even when first requested concurrently. A binding whose
// construction requires itself fails with *CircularDependencyError.
package nasc
