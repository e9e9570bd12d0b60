package nasc

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// Test interfaces and implementations
type Logger interface {
	Log(msg string)
}

type ConsoleLogger struct {
	messages []string
}

func (l *ConsoleLogger) Log(msg string) {
	l.messages = append(l.messages, msg)
}

type Database interface {
	Connect() error
}

type MockDB struct {
	connected bool
}

func (db *MockDB) Connect() error {
	db.connected = true
	return nil
}

func newConsoleLogger() *ConsoleLogger { return &ConsoleLogger{} }
func newMockDB() *MockDB               { return &MockDB{} }

func TestNew(t *testing.T) {
	module := New()
	require.NotNil(t, module)
	assert.NotNil(t, module.registry)
	assert.True(t, strings.HasPrefix(module.Name(), "anonymous@"), module.Name())
	assert.Len(t, module.Name(), len("anonymous@")+7)
	assert.NotEqual(t, module.Name(), New().Name())
}

func TestNew_WithOptions(t *testing.T) {
	module := New(WithName("billing"))
	assert.Equal(t, "billing", module.Name())
	assert.Equal(t, "billing", module.String())
}

func TestNew_InvalidOptionPanics(t *testing.T) {
	assert.Panics(t, func() { New(WithName("")) })
	assert.Panics(t, func() { New(WithTracer(nil)) })
}

func TestBind_TransientReturnsNewInstances(t *testing.T) {
	module := New()
	require.NoError(t, module.Bind(newConsoleLogger, On(Key[Logger]())))

	first, err := Find[Logger](module)
	require.NoError(t, err)
	second, err := Find[Logger](module)
	require.NoError(t, err)

	assert.NotSame(t, first, second)
	assert.False(t, module.IsLocked())

	concrete, err := Find[*ConsoleLogger](module)
	require.NoError(t, err)
	assert.NotNil(t, concrete)
}

func TestSingleton_ReturnsSameInstance(t *testing.T) {
	module := New()
	require.NoError(t, module.Singleton(newMockDB, On(Key[Database]())))

	first, err := Find[Database](module)
	require.NoError(t, err)
	second, err := Find[Database](module)
	require.NoError(t, err)
	concrete, err := Find[*MockDB](module)
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Same(t, first, concrete)
	assert.True(t, module.IsLocked())
}

func TestConstant(t *testing.T) {
	module := New()
	db := &MockDB{}
	require.NoError(t, module.Constant(db, On(Key[Database]())))

	got, err := Find[Database](module)
	require.NoError(t, err)
	assert.Same(t, db, got)

	got2, err := Find[*MockDB](module)
	require.NoError(t, err)
	assert.Same(t, db, got2)
	assert.False(t, module.IsLocked())
}

func TestConstant_AliasOnly(t *testing.T) {
	module := New()
	require.NoError(t, module.Constant(&MockDB{}, AliasOnly(), On(Key[Database]())))

	assert.True(t, module.Contains(Key[Database]()))
	assert.False(t, module.Contains(Key[*MockDB]()))
}

func TestConstant_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		value any
		opts  []BindOption
	}{
		{"nil without alias", nil, nil},
		{"alias only without types", &MockDB{}, []BindOption{AliasOnly()}},
		{"not assignable", &MockDB{}, []BindOption{On(Key[Logger]())}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New().Constant(tt.value, tt.opts...)
			var invalid *InvalidBindingError
			assert.ErrorAs(t, err, &invalid)
		})
	}
}

func TestConstant_NilWithAlias(t *testing.T) {
	module := New()
	require.NoError(t, module.Constant(nil, AliasOnly(), On(Key[Logger]())))

	logger, ok, err := Get[Logger](module)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Nil(t, logger)
}

func TestConstant_AllowedWhileLocked(t *testing.T) {
	module := New()
	require.NoError(t, module.Singleton(newMockDB))
	_, err := Find[*MockDB](module)
	require.NoError(t, err)
	require.True(t, module.IsLocked())

	assert.NoError(t, module.Constant(&ConsoleLogger{}))
	assert.ErrorIs(t, module.Bind(newConsoleLogger, WithMode(ModeOverride)), ErrModuleLocked)
}

func TestShouldBeInjectable(t *testing.T) {
	module := New()
	require.NoError(t, module.ShouldBeInjectable(Key[Logger]()))

	assert.True(t, module.Contains(Key[Logger]()))

	_, err := Find[Logger](module)
	var placeholder *ShouldBeInjectableError
	require.ErrorAs(t, err, &placeholder)
	assert.Equal(t, Key[Logger](), placeholder.Type)

	// Any real registration replaces the placeholder.
	require.NoError(t, module.Bind(newConsoleLogger, On(Key[Logger]())))
	_, err = Find[Logger](module)
	assert.NoError(t, err)

	assert.Error(t, module.ShouldBeInjectable(nil))
}

func TestRegistrationModes(t *testing.T) {
	tests := []struct {
		name     string
		existing Mode
		next     Mode
		conflict bool
		replaced bool
	}{
		{"normal onto normal", ModeNormal, ModeNormal, true, false},
		{"override onto normal", ModeNormal, ModeOverride, false, true},
		{"fallback onto normal", ModeNormal, ModeFallback, false, false},
		{"normal onto fallback", ModeFallback, ModeNormal, false, true},
		{"override onto fallback", ModeFallback, ModeOverride, false, true},
		{"fallback onto fallback", ModeFallback, ModeFallback, true, false},
		{"normal onto override", ModeOverride, ModeNormal, true, false},
		{"override onto override", ModeOverride, ModeOverride, false, true},
		{"fallback onto override", ModeOverride, ModeFallback, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			module := New()
			first, second := &ConsoleLogger{}, &ConsoleLogger{}

			require.NoError(t, module.Constant(first, AliasOnly(), On(Key[Logger]()), WithMode(tt.existing)))
			err := module.Constant(second, AliasOnly(), On(Key[Logger]()), WithMode(tt.next))

			if tt.conflict {
				var conflict *BindingConflictError
				require.ErrorAs(t, err, &conflict)
				assert.ErrorIs(t, err, ErrBindingConflict)
				assert.Equal(t, Key[Logger](), conflict.Type)
				assert.Equal(t, module.Name(), conflict.Module)
				return
			}
			require.NoError(t, err)

			got, err := Find[Logger](module)
			require.NoError(t, err)
			if tt.replaced {
				assert.Same(t, second, got)
			} else {
				assert.Same(t, first, got)
			}
		})
	}
}

func TestRegistration_IsAtomic(t *testing.T) {
	module := New()
	require.NoError(t, module.Bind(newConsoleLogger, On(Key[Logger]())))

	type loggingDB struct {
		MockDB
		ConsoleLogger
	}

	// Database is free but Logger conflicts: nothing is stored.
	err := module.Constant(&loggingDB{}, On(Key[Database](), Key[Logger]()))
	require.ErrorIs(t, err, ErrBindingConflict)

	assert.False(t, module.Contains(Key[*loggingDB]()))
	assert.False(t, module.Contains(Key[Database]()))
}

func TestUpdate(t *testing.T) {
	module := New()
	calls := 0
	inj := NewTransient(func(Resolver) (any, error) {
		calls++
		return &MockDB{}, nil
	})

	require.NoError(t, module.Update([]reflect.Type{Key[Database](), Key[*MockDB]()}, inj, ModeNormal))

	_, err := Find[Database](module)
	require.NoError(t, err)
	_, err = Find[*MockDB](module)
	require.NoError(t, err)
	assert.Equal(t, 2, calls)

	assert.Error(t, module.Update(nil, inj, ModeNormal))
	assert.Error(t, module.Update([]reflect.Type{Key[Logger]()}, nil, ModeNormal))
}

func TestReset_KeepsPermanentBindings(t *testing.T) {
	module := New()
	require.NoError(t, module.Constant(&ConsoleLogger{}, On(Key[Logger]()), Permanent()))
	require.NoError(t, module.Bind(newMockDB, On(Key[Database]())))

	var events []Event
	module.Subscribe(ListenerFunc(func(e Event) { events = append(events, e) }))

	require.NoError(t, module.Reset())

	assert.True(t, module.Contains(Key[Logger]()))
	assert.False(t, module.Contains(Key[Database]()))
	assert.Equal(t, []reflect.Type{Key[*ConsoleLogger](), Key[Logger]()}, module.Types())

	require.Len(t, events, 1)
	updated, ok := events[0].(*DependenciesUpdated)
	require.True(t, ok)
	assert.ElementsMatch(t, []reflect.Type{Key[Database](), Key[*MockDB]()}, updated.Types)
}

func TestReset_RejectedWhileLocked(t *testing.T) {
	module := New()
	require.NoError(t, module.Singleton(newMockDB))
	_, err := Find[*MockDB](module)
	require.NoError(t, err)

	assert.ErrorIs(t, module.Reset(), ErrModuleLocked)
	module.Unlock()
	assert.NoError(t, module.Reset())
	assert.Empty(t, module.Types())
}

func TestSingleton_Tracing(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	module := New(WithName("traced"), WithTracer(provider.Tracer("test")))
	require.NoError(t, module.Singleton(newMockDB))
	require.NoError(t, module.Singleton(func() (*ConsoleLogger, error) {
		return nil, errors.New("no console")
	}))

	_, err := Find[*MockDB](module)
	require.NoError(t, err)
	_, err = Find[*MockDB](module)
	require.NoError(t, err)
	_, err = Find[*ConsoleLogger](module)
	require.Error(t, err)

	spans := recorder.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, "nasc.singleton.construct", spans[0].Name())
	assert.Equal(t, codes.Unset, spans[0].Status().Code)
	assert.Equal(t, codes.Error, spans[1].Status().Code)

	attrs := map[string]string{}
	for _, kv := range spans[0].Attributes() {
		attrs[string(kv.Key)] = kv.Value.AsString()
	}
	assert.Equal(t, "traced", attrs["nasc.module"])
	assert.Equal(t, "*nasc.MockDB", attrs["nasc.type"])
}

func TestLifetime_String(t *testing.T) {
	tests := []struct {
		lifetime Lifetime
		want     string
	}{
		{LifetimeTransient, "transient"},
		{LifetimeSingleton, "singleton"},
		{LifetimeConstant, "constant"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.lifetime.String(); got != tt.want {
				t.Errorf("Lifetime.String() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPriority(t *testing.T) {
	assert.Equal(t, "low", PriorityLow.String())
	assert.Equal(t, "high", PriorityHigh.String())
	assert.Equal(t, "priority(7)", Priority(7).String())

	p, err := ParsePriority("high")
	require.NoError(t, err)
	assert.Equal(t, PriorityHigh, p)

	p, err = ParsePriority("")
	require.NoError(t, err)
	assert.Equal(t, PriorityLow, p)

	_, err = ParsePriority("urgent")
	assert.Error(t, err)
}
