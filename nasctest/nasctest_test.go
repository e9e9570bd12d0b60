package nasctest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	nasc "github.com/toutaio/toutago-nasc-injection"
)

type Clock interface {
	Now() string
}

type realClock struct{}

func (realClock) Now() string { return "real" }

type fakeClock struct{}

func (fakeClock) Now() string { return "fake" }

func TestUseIn_OverridesDuringTest(t *testing.T) {
	module := nasc.New()
	testModule := nasc.New()

	require.NoError(t, module.Singleton(func() realClock { return realClock{} }, nasc.On(nasc.Key[Clock]())))
	require.NoError(t, testModule.Constant(fakeClock{}, nasc.On(nasc.Key[Clock]())))

	// Lock the module before the test starts.
	clock, err := nasc.Find[Clock](module)
	require.NoError(t, err)
	assert.Equal(t, "real", clock.Now())
	require.True(t, module.IsLocked())

	t.Run("with test doubles", func(t *testing.T) {
		UseIn(t, module, testModule)

		clock, err := nasc.Find[Clock](module)
		require.NoError(t, err)
		assert.Equal(t, "fake", clock.Now())
	})

	assert.Empty(t, module.UsedModules())
	assert.False(t, module.IsLocked())

	clock, err = nasc.Find[Clock](module)
	require.NoError(t, err)
	assert.Equal(t, "real", clock.Now())
}

func TestUse_DefaultModules(t *testing.T) {
	type marker struct{ name string }

	require.NoError(t, Constant(&marker{name: "test"}))

	t.Run("plugged", func(t *testing.T) {
		Use(t)

		m, err := nasc.Find[*marker](nasc.Default())
		require.NoError(t, err)
		assert.Equal(t, "test", m.name)
	})

	_, ok, err := nasc.Get[*marker](nasc.Default())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestModule_IsNamed(t *testing.T) {
	assert.Equal(t, ModuleName, Module().Name())
	assert.Same(t, Module(), nasc.FromName(ModuleName))
}
