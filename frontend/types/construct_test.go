package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCtx(t *testing.T) *Ctx {
	t.Helper()
	c := NewCtx(NewRegistry())
	t.Cleanup(func() {
		for _, f := range c.Failures() {
			t.Errorf("internal failure: %v", f)
		}
	})
	return c
}

// defineTestClass registers a plain class in the test module. Bases are
// given as instance types; no bases means object.
func defineTestClass(c *Ctx, name string, bases ...Type) *ClassDef {
	def := NewClassDef("test", name)
	if len(bases) == 0 {
		bases = []Type{c.Instance(c.reg.Builtins.Object)}
	}
	def.Bases = bases
	return c.reg.Register(def)
}

func TestNewUnionSimplifies(t *testing.T) {
	c := newTestCtx(t)
	b := &c.reg.Builtins

	intT := c.Instance(b.Int)
	strT := c.Instance(b.Str)
	boolT := c.Instance(b.Bool)

	testCases := []struct {
		name     string
		parts    []Type
		expected string
	}{
		{"empty is never", nil, "Never"},
		{"single member is itself", []Type{intT}, "int"},
		{"duplicates collapse", []Type{intT, intT}, "int"},
		{"never drops out", []Type{Never, strT}, "str"},
		{"nested unions flatten", []Type{c.NewUnion(c.IntLiteral(1), c.IntLiteral(2)), c.NewUnion(c.IntLiteral(2), c.IntLiteral(3))}, "Literal[1, 2, 3]"},
		{"subclass absorbed", []Type{boolT, intT}, "int"},
		{"literal absorbed by its class", []Type{c.IntLiteral(1), intT}, "int"},
		{"bool literal pair fuses", []Type{c.BoolLiteral(true), c.BoolLiteral(false)}, "bool"},
		{"fused bool absorbed by int", []Type{c.BoolLiteral(true), c.BoolLiteral(false), intT}, "int"},
		{"string literal absorbed by LiteralString", []Type{c.StringLiteral("a"), LiteralString}, "LiteralString"},
		{"LiteralString absorbed by str", []Type{LiteralString, strT}, "str"},
		{"unrelated classes kept", []Type{intT, strT}, "int | str"},
		{"none kept", []Type{intT, None}, "int | None"},
		{"gradual member never absorbed", []Type{Unknown, intT}, "Unknown | int"},
		{"specializations are invariant", []Type{c.Instance(b.List, intT), c.Instance(b.List, strT)}, "list[int] | list[str]"},
		{"object absorbs instances", []Type{strT, c.Instance(b.Object)}, "object"},
		{"class objects absorbed by type", []Type{c.SubclassOf(b.Int), c.Instance(b.Type)}, "type"},
		{"tuple absorbed by tuple class", []Type{c.NewTuple(intT, strT), c.Instance(b.Tuple)}, "tuple"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, c.NewUnion(tc.parts...).String())
		})
	}
}

func TestNewUnionOrderInsensitive(t *testing.T) {
	c := newTestCtx(t)
	b := &c.reg.Builtins

	members := []Type{c.Instance(b.Int), c.Instance(b.Str), None}
	orderings := [][]Type{
		{members[0], members[1], members[2]},
		{members[2], members[0], members[1]},
		{members[1], members[2], members[0]},
	}

	base := c.NewUnion(orderings[0]...)
	for _, perm := range orderings[1:] {
		permuted := c.NewUnion(perm...)
		assert.True(t, Equal(base, permuted), "expected %s == %s", base, permuted)
		assert.True(t, c.IsEquivalentTo(base, permuted))
	}
}

func TestNewIntersection(t *testing.T) {
	c := newTestCtx(t)
	b := &c.reg.Builtins

	intT := c.Instance(b.Int)
	strT := c.Instance(b.Str)
	boolT := c.Instance(b.Bool)

	testCases := []struct {
		name     string
		pos, neg []Type
		expected string
	}{
		{"empty is object", nil, nil, "object"},
		{"single positive is itself", []Type{intT}, nil, "int"},
		{"negation renders with tilde", []Type{intT}, []Type{AlwaysTruthy}, "int & ~AlwaysTruthy"},
		{"disjoint positives are never", []Type{intT, strT}, nil, "Never"},
		{"same type on both sides is never", []Type{intT}, []Type{intT}, "Never"},
		{"negated object is never", []Type{intT}, []Type{c.Instance(b.Object)}, "Never"},
		{"object vanishes from positives", []Type{c.Instance(b.Object), strT}, nil, "str"},
		{"more specific positive wins", []Type{intT, boolT}, nil, "bool"},
		{"redundant disjoint negation drops", []Type{intT}, []Type{strT}, "int"},
		{"never positive is never", []Type{Never, intT}, nil, "Never"},
		{"never negation drops", []Type{intT}, []Type{Never}, "int"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, c.NewIntersectionWithNegations(tc.pos, tc.neg).String())
		})
	}
}

func TestNegate(t *testing.T) {
	c := newTestCtx(t)
	b := &c.reg.Builtins
	intT := c.Instance(b.Int)

	assert.Equal(t, "object", c.Negate(Never).String())
	assert.Equal(t, "Never", c.Negate(c.Instance(b.Object)).String())
	assert.Equal(t, "Unknown", c.Negate(Unknown).String())
	assert.Equal(t, "~int", c.Negate(intT).String())
	assert.Equal(t, "int", c.Negate(c.Negate(intT)).String())
}

func TestNewTuple(t *testing.T) {
	c := newTestCtx(t)
	b := &c.reg.Builtins
	intT := c.Instance(b.Int)
	strT := c.Instance(b.Str)

	assert.Equal(t, "tuple[()]", c.NewTuple().String())
	assert.Equal(t, "tuple[int, str]", c.NewTuple(intT, strT).String())
	assert.Equal(t, "Never", c.NewTuple(intT, Never).String(),
		"a Never element makes the product uninhabited")
	assert.Equal(t, "tuple[int, ...]", c.NewVariadicTuple(intT).String())
	assert.Equal(t, "tuple[()]", c.NewVariadicTuple(Never).String(),
		"only the empty tuple remains inhabited")
}

func TestInterningSharesStructure(t *testing.T) {
	c := newTestCtx(t)
	b := &c.reg.Builtins

	left := c.NewUnion(c.Instance(b.Int), c.Instance(b.Str))
	right := c.NewUnion(c.Instance(b.Int), c.Instance(b.Str))
	require.Equal(t, left, right)

	// same structure built through different spellings still hashes
	// and compares equal
	assert.True(t, Equal(c.NewTuple(c.Instance(b.Int)), c.NewTuple(c.Instance(b.Int))))
	assert.True(t, Equal(c.IntLiteral(7), c.IntLiteral(7)))
	assert.False(t, Equal(c.IntLiteral(7), c.IntLiteral(8)))
}

func TestNarrowedUnionShapeSurvivesConstruction(t *testing.T) {
	c := newTestCtx(t)
	x := c.Instance(defineTestClass(c, "X"))

	narrowed := c.NewIntersectionWithNegations([]Type{x}, []Type{AlwaysTruthy})
	u := c.NewUnion(narrowed, x)
	assert.Equal(t, "X & ~AlwaysTruthy | X", u.String(),
		"intersections are not simple members and must not be absorbed")
}
