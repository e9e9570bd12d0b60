package nasc

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUseTemporarily(t *testing.T) {
	app, fakes := New(), New()
	require.NoError(t, app.Bind(greetingFrom("app")))
	require.NoError(t, fakes.Bind(greetingFrom("fake")))

	scope, err := app.UseTemporarily(fakes, PriorityHigh)
	require.NoError(t, err)
	assert.Same(t, app, scope.Module())
	assert.Same(t, fakes, scope.Used())
	assert.Equal(t, "fake", findGreeting(t, app))

	require.NoError(t, scope.Close())
	assert.Equal(t, "app", findGreeting(t, app))
	assert.Empty(t, app.UsedModules())

	// Close is idempotent.
	assert.NoError(t, scope.Close())
}

func TestUseTemporarily_AlreadyUsed(t *testing.T) {
	app, infra := New(), New()
	require.NoError(t, app.Use(infra, PriorityLow))

	_, err := app.UseTemporarily(infra, PriorityHigh)
	var alreadyUsed *ModuleAlreadyUsedError
	require.ErrorAs(t, err, &alreadyUsed)

	// The lasting use is untouched.
	p, ok := app.PriorityOf(infra)
	assert.True(t, ok)
	assert.Equal(t, PriorityLow, p)
}

func TestUseTemporarily_UseOnHeldEdgeFails(t *testing.T) {
	app, fakes := New(), New()
	scope, err := app.UseTemporarily(fakes, PriorityHigh)
	require.NoError(t, err)

	err = app.Use(fakes, PriorityLow)
	var alreadyUsed *ModuleAlreadyUsedError
	require.ErrorAs(t, err, &alreadyUsed)

	require.NoError(t, app.ChangePriority(fakes, PriorityLow))
	p, ok := app.PriorityOf(fakes)
	require.True(t, ok)
	assert.Equal(t, PriorityLow, p)

	require.NoError(t, scope.Close())
	assert.Empty(t, app.UsedModules())
}

func TestUseTemporarily_CloseKeepsLaterUse(t *testing.T) {
	app, fakes := New(), New()
	scope, err := app.UseTemporarily(fakes, PriorityHigh)
	require.NoError(t, err)

	require.NoError(t, app.StopUsing(fakes))
	require.NoError(t, app.Use(fakes, PriorityLow))

	require.NoError(t, scope.Close())
	p, ok := app.PriorityOf(fakes)
	assert.True(t, ok)
	assert.Equal(t, PriorityLow, p)
}

func TestUseTemporarily_CloseWhileLocked(t *testing.T) {
	app, fakes := New(), New()
	require.NoError(t, fakes.Singleton(newMockDB))

	scope, err := app.UseTemporarily(fakes, PriorityHigh)
	require.NoError(t, err)

	_, err = Find[*MockDB](app)
	require.NoError(t, err)
	require.True(t, app.IsLocked())

	require.NoError(t, scope.Close())
	assert.Empty(t, app.UsedModules())
	assert.False(t, app.Contains(Key[*MockDB]()))
}

func TestUseTemporarily_RejectedWhileLocked(t *testing.T) {
	app := New()
	require.NoError(t, app.Singleton(newMockDB))
	_, err := Find[*MockDB](app)
	require.NoError(t, err)

	_, err = app.UseTemporarily(New(), PriorityHigh)
	assert.ErrorIs(t, err, ErrModuleLocked)
}

func TestUsingTemporarily(t *testing.T) {
	app, fakes := New(), New()
	require.NoError(t, app.Bind(greetingFrom("app")))
	require.NoError(t, fakes.Bind(greetingFrom("fake")))

	var inside string
	err := app.UsingTemporarily(fakes, PriorityHigh, func() error {
		inside = findGreeting(t, app)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "fake", inside)
	assert.Equal(t, "app", findGreeting(t, app))
}

func TestUsingTemporarily_RestoresOnError(t *testing.T) {
	app, fakes := New(), New()
	boom := errors.New("boom")

	err := app.UsingTemporarily(fakes, PriorityHigh, func() error {
		assert.Len(t, app.UsedModules(), 1)
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, app.UsedModules())
}

func TestUsingTemporarily_RestoresOnPanic(t *testing.T) {
	app, fakes := New(), New()

	assert.PanicsWithValue(t, "boom", func() {
		_ = app.UsingTemporarily(fakes, PriorityLow, func() error {
			panic("boom")
		})
	})
	assert.Empty(t, app.UsedModules())

	// The edge can be used again.
	require.NoError(t, app.Use(fakes, PriorityLow))
}
