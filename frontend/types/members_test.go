package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/krait-dev/krait/frontend/ast"
	"github.com/krait-dev/krait/frontend/diag"
)

func param(name string, annot Type) Param {
	return Param{Name: name, Kind: ast.ParamPositionalOrKeyword, Annot: annot}
}

// addMethod declares a method on def with an explicit self parameter.
func addMethod(c *Ctx, def *ClassDef, name string, ret Type, params ...Param) {
	sig := append([]Param{param("self", c.Instance(def))}, params...)
	def.AddMember(&Member{Name: name, Kind: MemberMethod, Type: c.NewCallable(sig, ret)})
}

func TestMethodBinding(t *testing.T) {
	c := newTestCtx(t)
	b := &c.reg.Builtins

	x := defineTestClass(c, "X")
	addMethod(c, x, "m", c.Instance(b.Str), param("x", c.Instance(b.Int)))

	instAccess := c.AttributeType(c.Instance(x), "m", ast.Range{})
	assert.Equal(t, "(x: int) -> str", instAccess.String())

	classAccess := c.AttributeType(c.SubclassOf(x), "m", ast.Range{})
	assert.Equal(t, "(self: X, x: int) -> str", classAccess.String())
}

func TestClassMethodAndStaticMethodBinding(t *testing.T) {
	c := newTestCtx(t)
	b := &c.reg.Builtins
	intT := c.Instance(b.Int)

	x := defineTestClass(c, "X")
	x.AddMember(&Member{
		Name: "make",
		Kind: MemberClassMethod,
		Type: c.NewCallable([]Param{param("cls", c.SubclassOf(x)), param("n", intT)}, c.Instance(x)),
	})
	x.AddMember(&Member{
		Name: "helper",
		Kind: MemberStaticMethod,
		Type: c.NewCallable([]Param{param("n", intT)}, intT),
	})

	// the first parameter of a classmethod binds on both access paths
	assert.Equal(t, "(n: int) -> X", c.AttributeType(c.Instance(x), "make", ast.Range{}).String())
	assert.Equal(t, "(n: int) -> X", c.AttributeType(c.SubclassOf(x), "make", ast.Range{}).String())

	// a staticmethod binds nothing
	assert.Equal(t, "(n: int) -> int", c.AttributeType(c.Instance(x), "helper", ast.Range{}).String())
	assert.Equal(t, "(n: int) -> int", c.AttributeType(c.SubclassOf(x), "helper", ast.Range{}).String())
}

func TestGenericMemberSpecialization(t *testing.T) {
	c := newTestCtx(t)
	b := &c.reg.Builtins

	listInt := c.Instance(b.List, c.Instance(b.Int))
	assert.Equal(t, "(item: int) -> None", c.AttributeType(listInt, "append", ast.Range{}).String())

	dictStrInt := c.Instance(b.Dict, c.Instance(b.Str), c.Instance(b.Int))
	assert.Equal(t, "(key: str) -> int | None", c.AttributeType(dictStrInt, "get", ast.Range{}).String())
}

func TestInheritedMemberSpecialization(t *testing.T) {
	c := newTestCtx(t)
	b := &c.reg.Builtins

	// class StrList(list[str]): the inherited signature is rewritten
	// through the base entry in the MRO
	strList := defineTestClass(c, "StrList", c.Instance(b.List, c.Instance(b.Str)))
	assert.Equal(t, "(item: str) -> None", c.AttributeType(c.Instance(strList), "append", ast.Range{}).String())
}

func TestPropertyAccess(t *testing.T) {
	c := newTestCtx(t)
	b := &c.reg.Builtins

	x := defineTestClass(c, "X")
	x.AddMember(&Member{
		Name: "size",
		Kind: MemberValue,
		Type: c.Instance(b.Property, c.Instance(b.Int)),
	})

	// instance access goes through __get__
	assert.Equal(t, "int", c.AttributeType(c.Instance(x), "size", ast.Range{}).String())
	// class access yields the descriptor itself
	assert.Equal(t, "property[int]", c.AttributeType(c.SubclassOf(x), "size", ast.Range{}).String())
}

func TestDescriptorPrecedence(t *testing.T) {
	c := newTestCtx(t)
	b := &c.reg.Builtins
	strT := c.Instance(b.Str)

	x := defineTestClass(c, "X")
	x.AddMember(&Member{
		Name: "managed",
		Kind: MemberValue,
		Type: c.Instance(b.Property, c.Instance(b.Int)),
	})
	x.AddInstanceAttr("managed", strT)
	x.AddMember(&Member{Name: "plain", Kind: MemberValue, Type: c.Instance(b.Int)})
	x.AddInstanceAttr("plain", strT)

	inst := c.Instance(x)
	// a data descriptor on the class shadows the instance attribute
	assert.Equal(t, "int", c.AttributeType(inst, "managed", ast.Range{}).String())
	// a plain class value loses to the instance attribute
	assert.Equal(t, "str", c.AttributeType(inst, "plain", ast.Range{}).String())
}

func TestUnionAttribute(t *testing.T) {
	b := func(c *Ctx) (*ClassDef, *ClassDef) {
		left := defineTestClass(c, "Left")
		left.AddMember(&Member{Name: "shared", Kind: MemberValue, Type: c.Instance(c.reg.Builtins.Int)})
		left.AddMember(&Member{Name: "only_left", Kind: MemberValue, Type: c.Instance(c.reg.Builtins.Int)})
		right := defineTestClass(c, "Right")
		right.AddMember(&Member{Name: "shared", Kind: MemberValue, Type: c.Instance(c.reg.Builtins.Str)})
		return left, right
	}

	t.Run("present on every member", func(t *testing.T) {
		c := newTestCtx(t)
		left, right := b(c)
		u := c.NewUnion(c.Instance(left), c.Instance(right))
		assert.Equal(t, "int | str", c.AttributeType(u, "shared", ast.Range{}).String())
		assert.Empty(t, c.Diagnostics().Diagnostics())
	})

	t.Run("present on some members", func(t *testing.T) {
		c := newTestCtx(t)
		left, right := b(c)
		u := c.NewUnion(c.Instance(left), c.Instance(right))
		got := c.AttributeType(u, "only_left", ast.Range{})
		assert.Equal(t, "int", got.String())
		assert.Len(t, c.Diagnostics().OfKind(diag.KindPossiblyUnboundAttribute), 1)
	})

	t.Run("present on no member", func(t *testing.T) {
		c := newTestCtx(t)
		left, right := b(c)
		u := c.NewUnion(c.Instance(left), c.Instance(right))
		got := c.AttributeType(u, "missing", ast.Range{})
		assert.Equal(t, Unknown, got)
		assert.Len(t, c.Diagnostics().OfKind(diag.KindUnresolvedAttribute), 1)
	})
}

func TestEnumMemberAccess(t *testing.T) {
	c := newTestCtx(t)
	b := &c.reg.Builtins

	color := defineTestClass(c, "Color", c.Instance(b.Enum))
	color.IsEnum = true
	color.AddMember(&Member{Name: "RED", Kind: MemberValue, Type: c.IntLiteral(1)})
	color.AddMember(&Member{Name: "GREEN", Kind: MemberValue, Type: c.IntLiteral(2)})

	// class access names the member itself
	assert.Equal(t, "Literal[Color.RED]", c.AttributeType(c.SubclassOf(color), "RED", ast.Range{}).String())

	// instance access reaches the Enum base declarations
	assert.Equal(t, "str", c.AttributeType(c.Instance(color), "name", ast.Range{}).String())

	// an enum instance decomposes into its member literals
	members := c.NewUnion(c.EnumLiteral(color, "RED"), c.EnumLiteral(color, "GREEN"))
	assert.True(t, c.IsSubtypeOf(c.Instance(color), members))
}

func TestUnresolvedAttribute(t *testing.T) {
	c := newTestCtx(t)

	x := defineTestClass(c, "X")
	got := c.AttributeType(c.Instance(x), "missing", ast.Range{})
	assert.Equal(t, Unknown, got)

	ds := c.Diagnostics().OfKind(diag.KindUnresolvedAttribute)
	require.Len(t, ds, 1)
	assert.EqualError(t, ds[0], "type X has no attribute 'missing'")
}

func TestPossiblyUnboundMember(t *testing.T) {
	c := newTestCtx(t)
	b := &c.reg.Builtins

	x := defineTestClass(c, "X")
	x.AddMember(&Member{Name: "flag", Kind: MemberValue, Type: c.Instance(b.Bool), PossiblyUnbound: true})

	got := c.AttributeType(c.Instance(x), "flag", ast.Range{})
	assert.Equal(t, "bool", got.String())
	assert.Len(t, c.Diagnostics().OfKind(diag.KindPossiblyUnboundAttribute), 1)
}

func TestDynamicBaseAttribute(t *testing.T) {
	c := newTestCtx(t)

	sub := defineTestClass(c, "Sub", Any)
	got := c.AttributeType(c.Instance(sub), "anything", ast.Range{})
	assert.Equal(t, Unknown, got)
	assert.Empty(t, c.Diagnostics().Diagnostics())
}

func TestMetaclassMemberOnClassObject(t *testing.T) {
	c := newTestCtx(t)
	b := &c.reg.Builtins

	meta := defineTestClass(c, "Meta", c.Instance(b.Type))
	addMethod(c, meta, "registry", c.Instance(b.Str))

	x := defineTestClass(c, "X")
	x.Metaclass = c.SubclassOf(meta)

	// class objects see metaclass methods bound like instance methods
	assert.Equal(t, "() -> str", c.AttributeType(c.SubclassOf(x), "registry", ast.Range{}).String())
	// instances do not
	c.AttributeType(c.Instance(x), "registry", ast.Range{})
	assert.Len(t, c.Diagnostics().OfKind(diag.KindUnresolvedAttribute), 1)
}

func superFixture(c *Ctx) (base, mid, leaf *ClassDef) {
	b := &c.reg.Builtins
	base = defineTestClass(c, "Base")
	addMethod(c, base, "greet", c.Instance(b.Str))
	mid = defineTestClass(c, "Mid", c.Instance(base))
	addMethod(c, mid, "greet", c.Instance(b.Int))
	addMethod(c, mid, "only_mid", None)
	leaf = defineTestClass(c, "Leaf", c.Instance(mid))
	return base, mid, leaf
}

func TestSuperAttribute(t *testing.T) {
	t.Run("resolves strictly after the pivot", func(t *testing.T) {
		c := newTestCtx(t)
		_, mid, leaf := superFixture(c)
		got := c.SuperAttributeType(c.SubclassOf(mid), c.Instance(leaf), "greet", ast.Range{})
		assert.Equal(t, "() -> str", got.String())
	})

	t.Run("pivot's own members are invisible", func(t *testing.T) {
		c := newTestCtx(t)
		_, mid, leaf := superFixture(c)
		got := c.SuperAttributeType(c.SubclassOf(mid), c.Instance(leaf), "only_mid", ast.Range{})
		assert.Equal(t, Unknown, got)

		ds := c.Diagnostics().OfKind(diag.KindUnresolvedAttribute)
		require.Len(t, ds, 1)
		assert.EqualError(t, ds[0], "type super(type[Mid], Leaf) has no attribute 'only_mid'")
	})

	t.Run("instance attributes are invisible", func(t *testing.T) {
		c := newTestCtx(t)
		base, mid, leaf := superFixture(c)
		base.AddInstanceAttr("field", c.Instance(c.reg.Builtins.Int))
		got := c.SuperAttributeType(c.SubclassOf(mid), c.Instance(leaf), "field", ast.Range{})
		assert.Equal(t, Unknown, got)
		assert.Len(t, c.Diagnostics().OfKind(diag.KindUnresolvedAttribute), 1)
	})

	t.Run("class object owner keeps self", func(t *testing.T) {
		c := newTestCtx(t)
		_, mid, leaf := superFixture(c)
		got := c.SuperAttributeType(c.SubclassOf(mid), c.SubclassOf(leaf), "greet", ast.Range{})
		assert.Equal(t, "(self: Base) -> str", got.String())
	})

	t.Run("owner outside the pivot's hierarchy", func(t *testing.T) {
		c := newTestCtx(t)
		_, mid, _ := superFixture(c)
		other := defineTestClass(c, "Other")
		got := c.SuperAttributeType(c.SubclassOf(mid), c.Instance(other), "greet", ast.Range{})
		assert.Equal(t, Unknown, got)
		assert.Len(t, c.Diagnostics().OfKind(diag.KindInvalidSuperArgument), 1)
	})

	t.Run("pivot must be a class object", func(t *testing.T) {
		c := newTestCtx(t)
		base, _, leaf := superFixture(c)
		got := c.SuperAttributeType(c.Instance(base), c.Instance(leaf), "greet", ast.Range{})
		assert.Equal(t, Unknown, got)
		assert.Len(t, c.Diagnostics().OfKind(diag.KindInvalidSuperArgument), 1)
	})

	t.Run("implicit form from the method frame", func(t *testing.T) {
		c := newTestCtx(t)
		_, mid, leaf := superFixture(c)
		c.PushFrame(mid, c.Instance(leaf))
		defer c.PopFrame()

		pivot, owner, ok := c.ImplicitSuperType(ast.Range{})
		require.True(t, ok)
		got := c.SuperAttributeType(pivot, owner, "greet", ast.Range{})
		assert.Equal(t, "() -> str", got.String())
	})

	t.Run("implicit form outside a method", func(t *testing.T) {
		c := newTestCtx(t)
		_, _, ok := c.ImplicitSuperType(ast.Range{})
		assert.False(t, ok)
		assert.Len(t, c.Diagnostics().OfKind(diag.KindUnavailableImplicitSuperArgs), 1)
	})
}
