package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/krait-dev/krait/frontend/ast"
)

func TestSpecializationApply(t *testing.T) {
	c := newTestCtx(t)
	b := &c.reg.Builtins
	intT := c.Instance(b.Int)

	tDef := c.reg.NewTypeVar("T", nil)
	uDef := c.reg.NewTypeVar("U", nil)
	tv, uv := c.TypeVar(tDef), c.TypeVar(uDef)
	spec := NewSpecialization().With(tDef, intT)

	testCases := []struct {
		name     string
		typ      Type
		expected string
	}{
		{"bare variable", tv, "int"},
		{"unmapped variable stays", uv, "U"},
		{"inside a specialization", c.Instance(b.List, tv), "list[int]"},
		{"inside a union", c.NewUnion(tv, None), "int | None"},
		{"inside a tuple", c.NewTuple(tv, c.Instance(b.Str)), "tuple[int, str]"},
		{"inside a callable", c.NewCallable([]Param{param("x", tv)}, tv), "(x: int) -> int"},
		{"union re-simplifies", c.NewUnion(tv, c.Instance(b.Bool)), "int"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := spec.Apply(c, tc.typ)
			assert.Equal(t, tc.expected, got.String())
		})
	}
}

func TestSpecializationIsPersistent(t *testing.T) {
	c := newTestCtx(t)
	b := &c.reg.Builtins

	tDef := c.reg.NewTypeVar("T", nil)
	uDef := c.reg.NewTypeVar("U", nil)

	s1 := NewSpecialization().With(tDef, c.Instance(b.Int))
	s2 := s1.With(uDef, c.Instance(b.Str))

	assert.Equal(t, 1, s1.Len())
	assert.Equal(t, 2, s2.Len())
	_, ok := s1.Get(uDef)
	assert.False(t, ok)
}

func TestGenericContextCollect(t *testing.T) {
	c := newTestCtx(t)
	b := &c.reg.Builtins

	tDef := c.reg.NewTypeVar("T", nil)
	uDef := c.reg.NewTypeVar("U", nil)
	sig := c.NewCallable([]Param{
		param("x", c.TypeVar(tDef)),
		param("y", c.Instance(b.List, c.TypeVar(uDef))),
		param("z", c.TypeVar(tDef)),
	}, c.TypeVar(tDef))

	g := NewGenericContext()
	g.CollectFrom(sig)
	require.Equal(t, 2, g.Len())
	assert.Equal(t, []*TypeVarDef{tDef, uDef}, g.Vars())
	assert.True(t, g.Contains(tDef))
}

func TestConstraintSolving(t *testing.T) {
	c := newTestCtx(t)
	b := &c.reg.Builtins
	intT := c.Instance(b.Int)
	strT := c.Instance(b.Str)

	tDef := c.reg.NewTypeVar("T", nil)
	tv := c.TypeVar(tDef)
	gctx := NewGenericContext(tDef)

	t.Run("lower bound from the argument", func(t *testing.T) {
		cs := c.AssignabilityConstraints(intT, tv)
		spec, ok := cs.Solve(c, gctx)
		require.True(t, ok)
		got, _ := spec.Get(tDef)
		assert.Equal(t, "int", got.String())
	})

	t.Run("upper bound without a lower picks the upper", func(t *testing.T) {
		cs := c.AssignabilityConstraints(tv, intT)
		spec, ok := cs.Solve(c, gctx)
		require.True(t, ok)
		got, _ := spec.Get(tDef)
		assert.Equal(t, "int", got.String())
	})

	t.Run("invariant argument pins exactly", func(t *testing.T) {
		cs := c.AssignabilityConstraints(c.Instance(b.List, intT), c.Instance(b.List, tv))
		spec, ok := cs.Solve(c, gctx)
		require.True(t, ok)
		got, _ := spec.Get(tDef)
		assert.Equal(t, "int", got.String())
	})

	t.Run("conflicting bounds do not solve", func(t *testing.T) {
		cs := c.AssignabilityConstraints(strT, tv).And(c, c.AssignabilityConstraints(tv, intT))
		_, ok := cs.Solve(c, gctx)
		assert.False(t, ok)
	})

	t.Run("two arguments join the lower bound", func(t *testing.T) {
		cs := c.AssignabilityConstraints(intT, tv).And(c, c.AssignabilityConstraints(strT, tv))
		spec, ok := cs.Solve(c, gctx)
		require.True(t, ok)
		got, _ := spec.Get(tDef)
		assert.Equal(t, "int | str", got.String())
	})

	t.Run("variables outside the context stay symbolic", func(t *testing.T) {
		cs := c.AssignabilityConstraints(intT, tv)
		spec, ok := cs.Solve(c, NewGenericContext())
		require.True(t, ok)
		assert.Equal(t, 0, spec.Len())
	})
}

func TestBoundedTypeVar(t *testing.T) {
	c := newTestCtx(t)
	b := &c.reg.Builtins
	intT := c.Instance(b.Int)

	bounded := c.TypeVar(c.reg.NewTypeVar("N", intT))

	// the declared bound settles the ground query
	assert.True(t, c.IsSubtypeOf(bounded, intT))
	assert.False(t, c.IsSubtypeOf(bounded, c.Instance(b.Str)))

	// member lookup goes through the bound
	got := c.AttributeType(bounded, "__add__", ast.Range{})
	assert.Equal(t, "(other: int) -> int", got.String())
}

func TestConstrainedTypeVar(t *testing.T) {
	c := newTestCtx(t)
	b := &c.reg.Builtins
	strT := c.Instance(b.Str)
	bytesT := c.Instance(b.Bytes)

	anyStr := c.reg.NewTypeVar("AnyStr", nil)
	anyStr.Constraints = []Type{strT, bytesT}
	tv := c.TypeVar(anyStr)

	// every pin must satisfy the right side
	assert.True(t, c.IsSubtypeOf(tv, c.NewUnion(strT, bytesT)))
	assert.False(t, c.IsSubtypeOf(tv, strT))

	// an argument picks the pin it fits
	gctx := NewGenericContext(anyStr)
	spec, ok := c.AssignabilityConstraints(strT, tv).Solve(c, gctx)
	require.True(t, ok)
	got, _ := spec.Get(anyStr)
	assert.Equal(t, "str", got.String())
}

func TestConstraintChoices(t *testing.T) {
	c := newTestCtx(t)
	b := &c.reg.Builtins

	pinned := c.reg.NewTypeVar("S", nil)
	pinned.Constraints = []Type{c.Instance(b.Str), c.Instance(b.Bytes)}
	free := c.reg.NewTypeVar("T", nil)

	var assignments []string
	for spec := range constraintChoices([]*TypeVarDef{pinned, free}) {
		got, ok := spec.Get(pinned)
		require.True(t, ok)
		_, freeBound := spec.Get(free)
		assert.False(t, freeBound)
		assignments = append(assignments, got.String())
	}
	assert.Equal(t, []string{"str", "bytes"}, assignments)
}

func TestConstraintSetAlgebra(t *testing.T) {
	c := newTestCtx(t)
	b := &c.reg.Builtins
	tv := c.TypeVar(c.reg.NewTypeVar("T", nil))

	assert.True(t, AlwaysConstraints().IsAlwaysSatisfied())
	assert.True(t, NeverConstraints().IsNeverSatisfied())
	assert.True(t, ConstraintsWhen(true).IsAlwaysSatisfied())
	assert.True(t, ConstraintsWhen(false).IsNeverSatisfied())

	bounded := c.AssignabilityConstraints(tv, c.Instance(b.Int))
	assert.False(t, bounded.IsAlwaysSatisfied())
	assert.False(t, bounded.IsNeverSatisfied())

	// identities of the algebra
	assert.Equal(t, bounded.String(), AlwaysConstraints().And(c, bounded).String())
	assert.Equal(t, bounded.String(), NeverConstraints().Or(bounded).String())

	// a set conjoined with its negation is unsatisfiable
	assert.True(t, bounded.And(c, bounded.Negate(c)).IsNeverSatisfied())
	// double negation restores satisfiability
	assert.False(t, bounded.Negate(c).Negate(c).IsNeverSatisfied())
}

func TestMaterialization(t *testing.T) {
	c := newTestCtx(t)
	b := &c.reg.Builtins
	intT := c.Instance(b.Int)

	cov := c.reg.NewTypeVar("T", nil)
	cov.Variance = Covariant
	box := defineTestClass(c, "Box")
	box.TypeParams = []*TypeVarDef{cov}

	testCases := []struct {
		name        string
		typ         Type
		top, bottom string
	}{
		{"bare dynamic", Unknown, "object", "Never"},
		{"dynamic class object", c.SubclassOfAny(), "type[object]", "Never"},
		{"union absorbs the top", c.NewUnion(intT, Unknown), "object", "int"},
		{"tuple elements are covariant", c.NewTuple(Unknown, intT), "tuple[object, int]", "tuple[Never, int]"},
		{"variadic tuple", c.NewVariadicTuple(Unknown), "tuple[object, ...]", "tuple[Never, ...]"},
		{"invariant argument is stuck", c.Instance(b.List, Unknown), "list[Unknown]", "list[Unknown]"},
		{"covariant argument moves", c.Instance(box, Unknown), "Box[object]", "Box[Never]"},
		{
			"callable flips through parameters",
			c.NewCallable([]Param{param("x", Unknown)}, Unknown),
			"(x: Never) -> object",
			"(x: object) -> Never",
		},
		{"static types are untouched", intT, "int", "int"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.top, c.TopMaterialization(tc.typ).String())
			assert.Equal(t, tc.bottom, c.BottomMaterialization(tc.typ).String())
		})
	}
}
