package types

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/krait-dev/krait/frontend/ast"
)

func TestIsSubtypeOf(t *testing.T) {
	c := newTestCtx(t)
	b := &c.reg.Builtins

	intT := c.Instance(b.Int)
	strT := c.Instance(b.Str)
	boolT := c.Instance(b.Bool)
	objT := c.Instance(b.Object)

	testCases := []struct {
		name     string
		a, b     Type
		expected bool
	}{
		{"reflexive", intT, intT, true},
		{"subclass", boolT, intT, true},
		{"not supertype", intT, boolT, false},
		{"everything below object", strT, objT, true},
		{"literal below its class", c.IntLiteral(1), intT, true},
		{"class not below literal", intT, c.IntLiteral(1), false},
		{"never below everything", Never, strT, true},
		{"nothing below never", intT, Never, false},
		{"dynamic not a static subtype", Unknown, intT, false},
		{"static not below dynamic", intT, Unknown, false},
		{"member below union", intT, c.NewUnion(intT, strT), true},
		{"union below common supertype", c.NewUnion(boolT, intT), intT, true},
		{"union not below one branch", c.NewUnion(intT, strT), intT, false},
		{"bool decomposes against literal pair", boolT, c.NewUnion(c.BoolLiteral(true), c.BoolLiteral(false)), true},
		{"true literal always truthy", c.BoolLiteral(true), AlwaysTruthy, true},
		{"empty string always falsy", c.StringLiteral(""), AlwaysFalsy, true},
		{"plain str not always falsy", strT, AlwaysFalsy, false},
		{"string literal below LiteralString", c.StringLiteral("a"), LiteralString, true},
		{"LiteralString below str", LiteralString, strT, true},
		{"none below none", None, None, true},
		{"none not below int", None, intT, false},
		{"tuple covariant elements", c.NewTuple(boolT, c.IntLiteral(1)), c.NewTuple(intT, intT), true},
		{"tuple arity mismatch", c.NewTuple(intT), c.NewTuple(intT, intT), false},
		{"fixed tuple below variadic", c.NewTuple(boolT, intT), c.NewVariadicTuple(intT), true},
		{"variadic elem covariant", c.NewVariadicTuple(boolT), c.NewVariadicTuple(intT), true},
		{"variadic not below fixed", c.NewVariadicTuple(intT), c.NewTuple(intT), false},
		{"class object along mro", c.SubclassOf(b.Bool), c.SubclassOf(b.Int), true},
		{"class object not upward", c.SubclassOf(b.Int), c.SubclassOf(b.Bool), false},
		{"intersection below positive member", c.NewIntersectionWithNegations([]Type{boolT}, []Type{AlwaysTruthy}), boolT, true},
		{"member below union with narrow shape", c.NewIntersectionWithNegations([]Type{intT}, []Type{AlwaysTruthy}), c.NewUnion(intT, strT), true},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, c.IsSubtypeOf(tc.a, tc.b),
				"IsSubtypeOf(%s, %s)", tc.a, tc.b)
		})
	}
}

func TestIsAssignableTo(t *testing.T) {
	c := newTestCtx(t)
	b := &c.reg.Builtins

	intT := c.Instance(b.Int)
	strT := c.Instance(b.Str)

	testCases := []struct {
		name     string
		a, b     Type
		expected bool
	}{
		{"dynamic into static", Unknown, intT, true},
		{"static into dynamic", intT, Unknown, true},
		{"any into static", Any, strT, true},
		{"dynamic not into never", Unknown, Never, false},
		{"static rules still apply", strT, intT, false},
		{"subtype implies assignable", c.IntLiteral(3), intT, true},
		{"dynamic specialization argument", c.Instance(b.List, Unknown), c.Instance(b.List, intT), true},
		{"invariant argument rejects", c.Instance(b.List, strT), c.Instance(b.List, intT), false},
		{"dynamic class object", c.SubclassOfAny(), c.SubclassOf(b.Int), true},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, c.IsAssignableTo(tc.a, tc.b),
				"IsAssignableTo(%s, %s)", tc.a, tc.b)
		})
	}
}

// A class inheriting from Any stands in for any non-final class, but
// ordinary rules still govern what can be assigned into it.
func TestDynamicBaseAsymmetry(t *testing.T) {
	c := newTestCtx(t)
	b := &c.reg.Builtins

	sub := c.Instance(defineTestClass(c, "Sub", Any))
	intT := c.Instance(b.Int)

	assert.True(t, c.IsAssignableTo(sub, intT), "Sub's unknown base may hide any ancestry")
	assert.False(t, c.IsAssignableTo(intT, sub), "an int is not an instance of Sub")
	assert.False(t, c.IsSubtypeOf(sub, intT), "gradual standing-in is not subtyping")
	assert.False(t, c.IsAssignableTo(sub, c.Instance(b.Bool)), "final classes admit no unknown descendants")
}

func TestProtocolStructuralAssignability(t *testing.T) {
	c := newTestCtx(t)
	b := &c.reg.Builtins

	intT := c.Instance(b.Int)
	strT := c.Instance(b.Str)

	testCases := []struct {
		name     string
		a, b     Type
		expected bool
	}{
		{"list is sized", c.Instance(b.List, intT), c.Instance(b.Sized), true},
		{"int is not sized", intT, c.Instance(b.Sized), false},
		{"list iterates its element", c.Instance(b.List, intT), c.Instance(b.Iterable, intT), true},
		{"element mismatch rejects", c.Instance(b.List, strT), c.Instance(b.Iterable, intT), false},
		{"str iterates str", strT, c.Instance(b.Iterable, strT), true},
		{"str is a container of str", strT, c.Instance(b.Container, strT), true},
		{"int is hashable", intT, c.Instance(b.Hashable), true},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, c.IsAssignableTo(tc.a, tc.b),
				"IsAssignableTo(%s, %s)", tc.a, tc.b)
		})
	}
}

func TestCallableSubtyping(t *testing.T) {
	c := newTestCtx(t)
	b := &c.reg.Builtins

	intT := c.Instance(b.Int)
	boolT := c.Instance(b.Bool)

	pos := func(name string, annot Type) Param {
		return Param{Name: name, Kind: ast.ParamPositionalOrKeyword, Annot: annot}
	}

	intToBool := c.NewCallable([]Param{pos("x", intT)}, boolT)
	boolToInt := c.NewCallable([]Param{pos("x", boolT)}, intT)
	gradualToInt := c.NewGradualCallable(intT)

	assert.True(t, c.IsSubtypeOf(intToBool, boolToInt),
		"parameters are contravariant, returns covariant")
	assert.False(t, c.IsSubtypeOf(boolToInt, intToBool))
	assert.True(t, c.IsSubtypeOf(gradualToInt, boolToInt),
		"a gradual parameter list materializes to the target's")
	assert.False(t, c.IsSubtypeOf(c.NewCallable(nil, intT), intToBool),
		"a zero-parameter callable cannot accept the argument")

	withDefault := c.NewCallable([]Param{{Name: "x", Kind: ast.ParamPositionalOrKeyword, Annot: intT, HasDefault: true}}, intT)
	assert.True(t, c.IsSubtypeOf(withDefault, c.NewCallable(nil, intT)),
		"a defaulted parameter tolerates being omitted")
}

func TestIsEquivalentTo(t *testing.T) {
	c := newTestCtx(t)
	b := &c.reg.Builtins

	intT := c.Instance(b.Int)
	strT := c.Instance(b.Str)

	assert.True(t, c.IsEquivalentTo(c.NewUnion(intT, strT), c.NewUnion(strT, intT)))
	assert.True(t, c.IsEquivalentTo(c.NewUnion(c.Instance(b.Bool), intT), intT))
	assert.True(t, c.IsEquivalentTo(c.NewUnion(c.BoolLiteral(true), c.BoolLiteral(false)), c.Instance(b.Bool)))
	assert.False(t, c.IsEquivalentTo(intT, c.NewUnion(intT, strT)))
	assert.False(t, c.IsEquivalentTo(Unknown, intT), "dynamic is not equivalent to anything static")
}

// The subtype relation is a preorder on fully static types, and
// assignability extends it.
func TestSubtypePreorder(t *testing.T) {
	c := newTestCtx(t)
	b := &c.reg.Builtins

	intT := c.Instance(b.Int)
	boolT := c.Instance(b.Bool)
	strT := c.Instance(b.Str)
	objT := c.Instance(b.Object)

	grammar := []Type{
		Never,
		None,
		objT,
		intT,
		boolT,
		strT,
		c.IntLiteral(1),
		c.BoolLiteral(true),
		c.StringLiteral(""),
		LiteralString,
		c.NewUnion(intT, strT),
		c.NewUnion(boolT, strT),
		c.NewUnion(intT, None),
		c.NewUnion(c.IntLiteral(1), strT),
		c.NewTuple(),
		c.NewTuple(boolT, intT),
		c.NewTuple(intT, intT),
		c.NewVariadicTuple(intT),
		c.NewVariadicTuple(objT),
	}

	for _, a := range grammar {
		assert.True(t, c.IsSubtypeOf(a, a), "reflexivity of %s", a)
	}
	for _, a := range grammar {
		for _, mid := range grammar {
			if c.IsSubtypeOf(a, mid) {
				assert.True(t, c.IsAssignableTo(a, mid),
					"assignability must extend subtyping: %s to %s", a, mid)
			}
			for _, top := range grammar {
				if c.IsSubtypeOf(a, mid) && c.IsSubtypeOf(mid, top) {
					assert.True(t, c.IsSubtypeOf(a, top),
						"transitivity: %s <= %s <= %s", a, mid, top)
				}
			}
		}
	}
}

func TestIsDisjointFrom(t *testing.T) {
	c := newTestCtx(t)
	b := &c.reg.Builtins

	intT := c.Instance(b.Int)
	strT := c.Instance(b.Str)
	boolT := c.Instance(b.Bool)

	testCases := []struct {
		name     string
		a, b     Type
		expected bool
	}{
		{"non-final classes may share a subclass", intT, strT, false},
		{"final class vs unrelated class", boolT, strT, true},
		{"subclass overlaps", boolT, intT, false},
		{"truthiness markers split everything", AlwaysTruthy, AlwaysFalsy, true},
		{"none vs int", None, intT, true},
		{"none vs none", None, None, false},
		{"distinct literals", c.IntLiteral(1), c.IntLiteral(2), true},
		{"literal vs its class", c.IntLiteral(1), intT, false},
		{"dynamic overlaps everything", Unknown, intT, false},
		{"never disjoint from all", Never, intT, true},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, c.IsDisjointFrom(tc.a, tc.b),
				"IsDisjointFrom(%s, %s)", tc.a, tc.b)
		})
	}
}
