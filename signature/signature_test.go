package signature

import (
	"io"
	"os"
	"reflect"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newGreeter(w io.Writer, prefix string) string {
	return prefix
}

func TestOf_GeneratedNames(t *testing.T) {
	sig, err := Of(newGreeter)
	require.NoError(t, err)

	require.Len(t, sig.Parameters, 2)
	assert.Equal(t, "arg0", sig.Parameters[0].Name)
	assert.Equal(t, 0, sig.Parameters[0].Index)
	assert.Equal(t, reflect.TypeOf((*io.Writer)(nil)).Elem(), sig.Parameters[0].Type())
	assert.Equal(t, "arg1", sig.Parameters[1].Name)
	assert.False(t, sig.Parameters[1].HasDefault)
	assert.True(t, strings.HasSuffix(sig.Name, "newGreeter"), sig.Name)
}

func TestOf_Options(t *testing.T) {
	sig, err := Of(newGreeter, Names("w", "prefix"), Defaults("prefix"))
	require.NoError(t, err)

	p, ok := sig.Lookup("prefix")
	require.True(t, ok)
	assert.Equal(t, 1, p.Index)
	assert.True(t, p.HasDefault)

	_, ok = sig.Lookup("arg0")
	assert.False(t, ok)
}

func TestOf_Union(t *testing.T) {
	fileType := reflect.TypeOf(&os.File{})
	sig, err := Of(newGreeter, Names("w"), Union("w", fileType))
	require.NoError(t, err)

	p, _ := sig.Lookup("w")
	require.Len(t, p.Types, 2)
	assert.Equal(t, fileType, p.Types[0])
	assert.Equal(t, reflect.TypeOf((*io.Writer)(nil)).Elem(), p.Types[1])
}

func TestOf_Errors(t *testing.T) {
	tests := []struct {
		name string
		fn   any
		opts []Option
	}{
		{"nil", nil, nil},
		{"not a function", 42, nil},
		{"variadic", func(xs ...int) {}, nil},
		{"too many names", newGreeter, []Option{Names("a", "b", "c")}},
		{"duplicate names", newGreeter, []Option{Names("a", "a")}},
		{"unknown default", newGreeter, []Option{Defaults("missing")}},
		{"union not assignable", newGreeter, []Option{Union("arg1", reflect.TypeOf(0))}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Of(tt.fn, tt.opts...)
			assert.Error(t, err)
		})
	}
}

func TestClone_IsIndependent(t *testing.T) {
	sig, err := Of(newGreeter)
	require.NoError(t, err)

	clone := sig.Clone()
	require.NoError(t, Names("w")(clone))

	assert.Equal(t, "arg0", sig.Parameters[0].Name)
	assert.Equal(t, "w", clone.Parameters[0].Name)
}
