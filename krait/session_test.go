package krait

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/krait-dev/krait/frontend/config"
	"github.com/krait-dev/krait/frontend/diag"
	"github.com/krait-dev/krait/frontend/types"
)

func TestCheckSingleModule(t *testing.T) {
	mod, err := Check("app", `
x = 3
y: int = x
z: str = x
`)
	require.NoError(t, err)

	typ, ok := mod.Result.BindingType("y")
	require.True(t, ok)
	assert.Equal(t, "int", typ.String())

	bad := mod.Result.Diagnostics.OfKind(diag.KindInvalidAssignment)
	require.Len(t, bad, 1)
	assert.EqualError(t, bad[0], "cannot assign Literal[3] to 'z' declared as str")
}

func TestCheckParseError(t *testing.T) {
	mod, err := Check("bad", "x = )\n")
	require.Error(t, err)
	assert.Nil(t, mod)
	assert.Contains(t, err.Error(), "parsing module bad")
}

func TestSessionSharedRegistry(t *testing.T) {
	sess := NewSession(SessionSettings{})

	_, err := sess.CheckSource("geom", `
class Point:
    def __init__(self, x: int):
        self.x = x
`)
	require.NoError(t, err)

	app, err := sess.CheckSource("app", "p: geom.Point\n")
	require.NoError(t, err)
	assert.Empty(t, app.Result.Diagnostics.Diagnostics(),
		"qualified annotations resolve through the shared registry")

	typ, ok := app.Result.BindingType("p")
	require.True(t, ok)
	assert.Equal(t, "Point", typ.String())

	cls, ok := sess.Registry().Lookup("geom.Point")
	require.True(t, ok)
	assert.Equal(t, "geom.Point", cls.QualifiedName())
}

// chainProvider is the shape an import resolver takes: it forwards to
// the exports of modules checked earlier in the session.
type chainProvider struct {
	delegate types.DefinitionProvider
}

func (p *chainProvider) ResolveName(name string) (types.Type, types.BindingState) {
	if p.delegate == nil {
		return nil, types.BindingUnbound
	}
	return p.delegate.ResolveName(name)
}

func TestSessionProviderChaining(t *testing.T) {
	chain := &chainProvider{}
	sess := NewSession(SessionSettings{Provider: chain})

	lib, err := sess.CheckSource("lib", "x = 3\n")
	require.NoError(t, err)
	chain.delegate = lib.Result.Provider()

	app, err := sess.CheckSource("app", "y = x + 1\nz = missing\n")
	require.NoError(t, err)

	typ, ok := app.Result.BindingType("y")
	require.True(t, ok)
	assert.Equal(t, "int", typ.String())

	assert.Len(t, app.Result.Diagnostics.OfKind(diag.KindUnresolvedReference), 1,
		"names absent from the chained module stay unresolved")
}

func TestSessionConfigPatterns(t *testing.T) {
	src := `
def make() -> Tree:
    pass

class Tree:
    pass
`
	cfg := &config.Config{
		Default: config.ModuleOptions{FileKind: config.FileKindRegular},
		Modules: map[string]config.ModuleOptions{
			"stubs.*": {FileKind: config.FileKindStub},
		},
	}
	sess := NewSession(SessionSettings{Config: cfg})

	stub, err := sess.CheckSource("stubs.tree", src)
	require.NoError(t, err)
	assert.Equal(t, config.FileKindStub, stub.Options.FileKind)
	assert.Empty(t, stub.Result.Diagnostics.Diagnostics())

	app, err := sess.CheckSource("app", src)
	require.NoError(t, err)
	assert.Len(t, app.Result.Diagnostics.OfKind(diag.KindUnresolvedReference), 1)

	assert.Len(t, sess.Diagnostics().Diagnostics(), 1, "session merges per-module lists")
	assert.NoError(t, sess.Err())

	got, ok := sess.Module("stubs.tree")
	require.True(t, ok)
	assert.Same(t, stub, got)
}
