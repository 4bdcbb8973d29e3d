package registry

import (
	"testing"

	"github.com/starpoint-labs/starpin/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixtureModules() []*core.Module {
	return []*core.Module{
		{
			Path: "jax",
			File: "jax/__init__.py",
			Symbols: []*core.Symbol{
				{Name: "grad", Kind: core.SymbolAlias, Module: "jax", Origin: "jax.api.grad", Public: true},
				{Name: "jit", Kind: core.SymbolAlias, Module: "jax", Origin: "jax.api.jit", Public: true},
				{Name: "numpy", Kind: core.SymbolModule, Module: "jax", Origin: "jax.numpy", Public: true},
			},
		},
		{
			Path:        "jax.numpy",
			File:        "jax/numpy/__init__.py",
			StarImports: []string{"jax.numpy.lax_numpy"},
			Symbols: []*core.Symbol{
				{Name: "linalg", Kind: core.SymbolModule, Module: "jax.numpy", Origin: "jax.numpy.linalg", Public: true},
			},
		},
		{
			Path: "jax.numpy.lax_numpy",
			File: "jax/numpy/lax_numpy.py",
			Symbols: []*core.Symbol{
				{Name: "tanh", Kind: core.SymbolFunction, Module: "jax.numpy.lax_numpy", Public: true},
				{Name: "absolute", Kind: core.SymbolFunction, Module: "jax.numpy.lax_numpy", Public: true},
				{Name: "abs", Kind: core.SymbolAlias, Module: "jax.numpy.lax_numpy", Origin: "absolute", Public: true},
				{Name: "ndarray", Kind: core.SymbolClass, Module: "jax.numpy.lax_numpy", Public: true},
				{Name: "_promote", Kind: core.SymbolFunction, Module: "jax.numpy.lax_numpy", Public: false},
			},
		},
		{
			Path: "jax.numpy.linalg",
			File: "jax/numpy/linalg.py",
			Symbols: []*core.Symbol{
				{Name: "norm", Kind: core.SymbolFunction, Module: "jax.numpy.linalg", Public: true},
			},
		},
		{
			Path:   "jax.nn",
			File:   "jax/nn.py",
			HasAll: true,
			All:    []string{"relu"},
			Symbols: []*core.Symbol{
				{Name: "relu", Kind: core.SymbolFunction, Module: "jax.nn", Public: true},
				{Name: "softmax", Kind: core.SymbolFunction, Module: "jax.nn", Public: true},
			},
		},
		{
			Path:        "jax.experimental",
			File:        "jax/experimental/__init__.py",
			StarImports: []string{"jax.nn"},
		},
	}
}

func TestResolveRelativeToModule(t *testing.T) {
	r := Build(fixtureModules())

	// tanh reaches jax.numpy only through the star import of lax_numpy.
	sym, ok := r.Resolve("jax.numpy", "tanh")
	require.True(t, ok)
	assert.Equal(t, core.SymbolFunction, sym.Kind)
	assert.Equal(t, "jax.numpy.lax_numpy", sym.Module)

	sym, ok = r.Resolve("jax", "grad")
	require.True(t, ok)
	assert.Equal(t, "jax.api.grad", sym.Origin)
}

func TestResolveDottedEntry(t *testing.T) {
	r := Build(fixtureModules())

	sym, ok := r.Resolve("jax", "numpy.tanh")
	require.True(t, ok)
	assert.Equal(t, "tanh", sym.Name)

	sym, ok = r.Resolve("", "jax.numpy.linalg.norm")
	require.True(t, ok)
	assert.Equal(t, "norm", sym.Name)
}

func TestResolveModuleEntry(t *testing.T) {
	r := Build(fixtureModules())

	sym, ok := r.Resolve("jax", "numpy")
	require.True(t, ok)
	assert.Equal(t, core.SymbolModule, sym.Kind)
	assert.Equal(t, "numpy", sym.Name)
	assert.Equal(t, "jax", sym.Module)
}

func TestResolveAttributeChain(t *testing.T) {
	r := Build(fixtureModules())

	// Attributes of a resolvable class are accepted on the class itself.
	sym, ok := r.Resolve("jax.numpy", "ndarray.at")
	require.True(t, ok)
	assert.Equal(t, core.SymbolClass, sym.Kind)

	_, ok = r.Resolve("jax.numpy", "missing.at")
	assert.False(t, ok)
}

func TestResolveStarRespectsAll(t *testing.T) {
	r := Build(fixtureModules())

	_, ok := r.Resolve("jax.experimental", "relu")
	assert.True(t, ok)

	// softmax is public in jax.nn but excluded from its __all__.
	_, ok = r.Resolve("jax.experimental", "softmax")
	assert.False(t, ok)
}

func TestResolvePrivateNames(t *testing.T) {
	r := Build(fixtureModules())

	// Private names stay addressable in their defining module.
	_, ok := r.ResolveQualified("jax.numpy.lax_numpy._promote")
	assert.True(t, ok)

	// But star imports do not carry them across.
	_, ok = r.Resolve("jax.numpy", "_promote")
	assert.False(t, ok)
}

func TestResolveUnknown(t *testing.T) {
	r := Build(fixtureModules())

	_, ok := r.Resolve("jax.numpy", "tnah")
	assert.False(t, ok)
	_, ok = r.Resolve("", "scipy.signal.convolve")
	assert.False(t, ok)
}

func TestSurface(t *testing.T) {
	r := Build(fixtureModules())

	var names []string
	for _, s := range r.Surface("jax.numpy") {
		names = append(names, s.Name)
	}
	assert.Equal(t, []string{"abs", "absolute", "linalg", "ndarray", "tanh"}, names)
}

func TestStarImportCycle(t *testing.T) {
	r := Build([]*core.Module{
		{Path: "a", StarImports: []string{"b"}, Symbols: []*core.Symbol{
			{Name: "from_a", Kind: core.SymbolFunction, Module: "a", Public: true},
		}},
		{Path: "b", StarImports: []string{"a"}, Symbols: []*core.Symbol{
			{Name: "from_b", Kind: core.SymbolFunction, Module: "b", Public: true},
		}},
	})

	_, ok := r.Resolve("a", "from_a")
	assert.True(t, ok)
	_, ok = r.Resolve("a", "from_b")
	assert.True(t, ok)
}

func TestSuggest(t *testing.T) {
	r := Build(fixtureModules())

	assert.Equal(t, []string{"tanh"}, r.Suggest("jax.numpy", "tahn"))
	assert.Contains(t, r.Suggest("jax.numpy", "linalgg"), "linalg")
	assert.Empty(t, r.Suggest("jax.numpy", "conv_general_dilated"))
}

func TestEditDistance(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"", "abc", 3},
		{"abs", "abs", 0},
		{"tanh", "tahn", 2},
		{"add", "mul", 3},
		{"linalg", "linalgg", 1},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, editDistance(tt.a, tt.b), "editDistance(%q, %q)", tt.a, tt.b)
	}
}
