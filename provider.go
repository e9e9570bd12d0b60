package nasc

import (
	"fmt"
	"reflect"
)

// ServiceProvider is the interface that must be implemented by service providers.
// Service providers encapsulate related registrations.
//
// Example:
//
//	type LoggingProvider struct{}
//
//	func (p *LoggingProvider) Register(module *nasc.Module) error {
//	    return module.Singleton(NewConsoleLogger, nasc.On(nasc.Key[Logger]()))
//	}
type ServiceProvider interface {
	Register(module *Module) error
}

// BootableProvider is an optional interface for providers that need a boot phase.
// The Boot method is called after all providers have been registered.
//
// Example:
//
//	func (p *DatabaseProvider) Boot(module *nasc.Module) error {
//	    db, err := nasc.Find[Database](module)
//	    if err != nil {
//	        return err
//	    }
//	    return db.Connect()
//	}
type BootableProvider interface {
	ServiceProvider
	Boot(module *Module) error
}

// DeferredProvider is an optional interface for providers that should be registered
// conditionally.
type DeferredProvider interface {
	ServiceProvider
	ShouldRegister(module *Module) bool
}

// providerEntry tracks a registered provider.
type providerEntry struct {
	provider ServiceProvider
	booted   bool
}

// RegisterProvider registers a service provider with the module.
// The provider's Register method is called immediately. A provider of a type
// already registered is skipped.
//
// Example:
//
//	module.RegisterProvider(&LoggingProvider{})
//	module.RegisterProvider(&DatabaseProvider{})
//	module.BootProviders()
func (m *Module) RegisterProvider(provider ServiceProvider) error {
	if provider == nil {
		return fmt.Errorf("provider cannot be nil")
	}

	if deferred, ok := provider.(DeferredProvider); ok {
		if !deferred.ShouldRegister(m) {
			return nil
		}
	}

	providerType := reflect.TypeOf(provider)
	if m.hasProvider(providerType) {
		return nil
	}

	// Register may itself register providers, so it runs without providerMu.
	if err := provider.Register(m); err != nil {
		return fmt.Errorf("provider registration failed: %w", err)
	}

	m.providerMu.Lock()
	m.providers = append(m.providers, &providerEntry{provider: provider})
	m.providerMu.Unlock()

	m.debug("provider %v registered in `%s`.", providerType, m)

	return nil
}

func (m *Module) hasProvider(providerType reflect.Type) bool {
	m.providerMu.Lock()
	defer m.providerMu.Unlock()

	for _, entry := range m.providers {
		if reflect.TypeOf(entry.provider) == providerType {
			return true
		}
	}
	return false
}

// BootProviders calls the Boot method on all registered providers that implement
// BootableProvider and have not booted yet. Booting usually resolves
// singletons, so it locks the module.
func (m *Module) BootProviders() error {
	m.providerMu.Lock()
	pending := make([]*providerEntry, 0, len(m.providers))
	for _, entry := range m.providers {
		if !entry.booted {
			pending = append(pending, entry)
		}
	}
	m.providerMu.Unlock()

	for _, entry := range pending {
		bootable, ok := entry.provider.(BootableProvider)
		if !ok {
			continue
		}
		if err := bootable.Boot(m); err != nil {
			return fmt.Errorf("provider boot failed: %w", err)
		}

		m.providerMu.Lock()
		entry.booted = true
		m.providerMu.Unlock()
	}

	return nil
}

// GetProviders returns a list of all registered providers.
func (m *Module) GetProviders() []ServiceProvider {
	m.providerMu.Lock()
	defer m.providerMu.Unlock()

	providers := make([]ServiceProvider, len(m.providers))
	for i, entry := range m.providers {
		providers[i] = entry.provider
	}
	return providers
}
