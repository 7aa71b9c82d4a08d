package types

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/krait-dev/krait/frontend/ast"
	"github.com/krait-dev/krait/frontend/diag"
)

// mapDefs is a fixed-scope DefinitionProvider for tests.
type mapDefs map[string]Type

func (m mapDefs) ResolveName(name string) (Type, BindingState) {
	if t, ok := m[name]; ok {
		return t, BindingBound
	}
	return nil, BindingUnbound
}

func nameExpr(s string) *ast.NameExpr { return &ast.NameExpr{Name: s} }

func subscript(value ast.Expr, args ...ast.Expr) *ast.SubscriptExpr {
	if len(args) == 1 {
		return &ast.SubscriptExpr{Value: value, Index: args[0]}
	}
	return &ast.SubscriptExpr{Value: value, Index: &ast.TupleExpr{Elems: args}}
}

func TestAnnotationNames(t *testing.T) {
	c := newTestCtx(t)

	testCases := []struct {
		name     string
		expected string
	}{
		{"int", "int"},
		{"str", "str"},
		{"object", "object"},
		{"Any", "Any"},
		{"Never", "Never"},
		{"NoReturn", "Never"},
		{"None", "None"},
		{"LiteralString", "LiteralString"},
		{"Callable", "(...) -> Unknown"},
		{"float", "int | float"},
		{"complex", "int | float | complex"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := c.AnnotationType(nameExpr(tc.name))
			assert.Equal(t, tc.expected, got.String())
		})
	}

	// the bare reading skips the numeric tower widening
	assert.Equal(t, "float", c.BareAnnotationType(nameExpr("float")).String())
}

func TestAnnotationSpecialForms(t *testing.T) {
	c := newTestCtx(t)

	testCases := []struct {
		name     string
		expr     ast.Expr
		expected string
	}{
		{
			"union subscription",
			subscript(nameExpr("Union"), nameExpr("int"), nameExpr("str")),
			"int | str",
		},
		{
			"optional",
			subscript(nameExpr("Optional"), nameExpr("int")),
			"int | None",
		},
		{
			"pipe union",
			&ast.BinaryExpr{Left: nameExpr("int"), Op: ast.OpBitOr, Right: &ast.NoneLit{}},
			"int | None",
		},
		{
			"literal ints",
			subscript(nameExpr("Literal"), &ast.IntLit{Value: 1}, &ast.IntLit{Value: 2}),
			"Literal[1, 2]",
		},
		{
			"literal string",
			subscript(nameExpr("Literal"), &ast.StringLit{Value: "on"}),
			`Literal["on"]`,
		},
		{
			"negative literal",
			subscript(nameExpr("Literal"), &ast.UnaryExpr{Op: ast.OpNeg, Operand: &ast.IntLit{Value: 1}}),
			"Literal[-1]",
		},
		{
			"nested literal splices",
			subscript(nameExpr("Literal"),
				subscript(nameExpr("Literal"), &ast.IntLit{Value: 1}, &ast.IntLit{Value: 2}),
				&ast.IntLit{Value: 3}),
			"Literal[1, 2, 3]",
		},
		{
			"literal none",
			subscript(nameExpr("Literal"), &ast.NoneLit{}),
			"None",
		},
		{
			"annotated unwraps",
			subscript(nameExpr("Annotated"), nameExpr("int"), &ast.StringLit{Value: "meta"}),
			"int",
		},
		{
			"empty tuple",
			subscript(nameExpr("tuple"), &ast.TupleExpr{}),
			"tuple[()]",
		},
		{
			"fixed tuple",
			subscript(nameExpr("tuple"), nameExpr("int"), nameExpr("str")),
			"tuple[int, str]",
		},
		{
			"variadic tuple",
			subscript(nameExpr("tuple"), nameExpr("int"), &ast.EllipsisLit{}),
			"tuple[int, ...]",
		},
		{
			"gradual callable",
			subscript(nameExpr("Callable"), &ast.EllipsisLit{}, nameExpr("int")),
			"(...) -> int",
		},
		{
			"explicit callable",
			subscript(nameExpr("Callable"),
				&ast.ListExpr{Elems: []ast.Expr{nameExpr("int"), nameExpr("str")}},
				nameExpr("bool")),
			"(int, str) -> bool",
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := c.AnnotationType(tc.expr)
			assert.Equal(t, tc.expected, got.String())
		})
	}
	assert.Empty(t, c.Diagnostics().Diagnostics())
}

func TestGenericAlias(t *testing.T) {
	c := newTestCtx(t)

	got := c.AnnotationType(subscript(nameExpr("list"), nameExpr("int")))
	assert.Equal(t, "list[int]", got.String())

	got = c.AnnotationType(subscript(nameExpr("dict"), nameExpr("str"), nameExpr("int")))
	assert.Equal(t, "dict[str, int]", got.String())

	// missing arguments are repaired towards the declared arity
	got = c.AnnotationType(subscript(nameExpr("dict"), nameExpr("str")))
	assert.Equal(t, "dict[str, Unknown]", got.String())
	assert.Len(t, c.Diagnostics().OfKind(diag.KindInvalidTypeForm), 1)
}

func TestSubscriptRejections(t *testing.T) {
	t.Run("non-generic class", func(t *testing.T) {
		c := newTestCtx(t)
		got := c.AnnotationType(subscript(nameExpr("int"), nameExpr("str")))
		assert.Equal(t, Unknown, got)
		assert.Len(t, c.Diagnostics().OfKind(diag.KindInvalidTypeForm), 1)
	})

	t.Run("already specialized", func(t *testing.T) {
		c := newTestCtx(t)
		inner := subscript(nameExpr("list"), nameExpr("int"))
		got := c.AnnotationType(subscript(inner, nameExpr("str")))
		assert.Equal(t, Unknown, got)
		assert.Len(t, c.Diagnostics().OfKind(diag.KindInvalidTypeForm), 1)
	})
}

func TestTypeForm(t *testing.T) {
	c := newTestCtx(t)
	defs := mapDefs{"T": c.TypeVar(c.reg.NewTypeVar("T", nil))}
	c.WithDefinitions(defs)

	testCases := []struct {
		name     string
		arg      ast.Expr
		expected string
	}{
		{"concrete class", nameExpr("int"), "type[int]"},
		{"any", nameExpr("Any"), "type[Any]"},
		{"none", nameExpr("None"), "type[NoneType]"},
		{"typevar erases", nameExpr("T"), "type[Any]"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := c.AnnotationType(subscript(nameExpr("type"), tc.arg))
			assert.Equal(t, tc.expected, got.String())
		})
	}

	t.Run("specialized argument", func(t *testing.T) {
		c := newTestCtx(t)
		arg := subscript(nameExpr("list"), nameExpr("int"))
		got := c.AnnotationType(subscript(nameExpr("type"), arg))
		assert.Equal(t, Unknown, got)
		assert.Len(t, c.Diagnostics().OfKind(diag.KindInvalidTypeForm), 1)
	})
}

func TestDeclaredType(t *testing.T) {
	c := newTestCtx(t)

	t.Run("plain annotation", func(t *testing.T) {
		got, quals := c.DeclaredType(nameExpr("int"))
		assert.Equal(t, "int", got.String())
		assert.False(t, quals.ClassVar)
		assert.False(t, quals.Final)
	})

	t.Run("classvar", func(t *testing.T) {
		got, quals := c.DeclaredType(subscript(nameExpr("ClassVar"), nameExpr("int")))
		assert.Equal(t, "int", got.String())
		assert.True(t, quals.ClassVar)
	})

	t.Run("final", func(t *testing.T) {
		got, quals := c.DeclaredType(subscript(nameExpr("Final"), nameExpr("str")))
		assert.Equal(t, "str", got.String())
		assert.True(t, quals.Final)
	})

	t.Run("bare final defers to inference", func(t *testing.T) {
		got, quals := c.DeclaredType(nameExpr("Final"))
		assert.Equal(t, Unknown, got)
		assert.True(t, quals.Final)
	})

	t.Run("stacked qualifiers", func(t *testing.T) {
		expr := subscript(nameExpr("ClassVar"), subscript(nameExpr("Final"), nameExpr("int")))
		got, quals := c.DeclaredType(expr)
		assert.Equal(t, "int", got.String())
		assert.True(t, quals.ClassVar)
		assert.True(t, quals.Final)
	})
}

func TestRejectedTypeForms(t *testing.T) {
	testCases := []struct {
		name string
		expr ast.Expr
	}{
		{"int literal", &ast.IntLit{Value: 3}},
		{"bool literal", &ast.BoolLit{Value: true}},
		{"bytes literal", &ast.BytesLit{Value: "x"}},
		{"bare ellipsis", &ast.EllipsisLit{}},
		{"tuple display", &ast.TupleExpr{Elems: []ast.Expr{nameExpr("int")}}},
		{"list display", &ast.ListExpr{Elems: []ast.Expr{nameExpr("int")}}},
		{"non-union operator", &ast.BinaryExpr{Left: nameExpr("int"), Op: ast.OpAdd, Right: nameExpr("str")}},
		{"bare literal form", nameExpr("Literal")},
		{"bare union form", nameExpr("Union")},
		{"misplaced classvar", subscript(nameExpr("list"), subscript(nameExpr("ClassVar"), nameExpr("int")))},
		{"empty union", subscript(nameExpr("Union"), &ast.TupleExpr{})},
		{"callable without shape", subscript(nameExpr("Callable"), nameExpr("int"))},
		{"callable bad parameter list", subscript(nameExpr("Callable"), nameExpr("int"), nameExpr("str"))},
		{"misplaced tuple ellipsis", subscript(nameExpr("tuple"), &ast.EllipsisLit{}, nameExpr("int"))},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			c := newTestCtx(t)
			c.AnnotationType(tc.expr)
			assert.NotEmpty(t, c.Diagnostics().OfKind(diag.KindInvalidTypeForm), "expected an invalid-type-form diagnostic")
		})
	}
}

func TestAnnotationNameResolution(t *testing.T) {
	t.Run("definitions shadow builtins", func(t *testing.T) {
		c := newTestCtx(t)
		box := defineTestClass(c, "Box")
		c.WithDefinitions(mapDefs{"Box": c.SubclassOf(box)})
		assert.Equal(t, "Box", c.AnnotationType(nameExpr("Box")).String())
	})

	t.Run("module-qualified names", func(t *testing.T) {
		c := newTestCtx(t)
		got := c.AnnotationType(&ast.AttributeExpr{Value: nameExpr("enum"), Attr: "Enum"})
		assert.Equal(t, "Enum", got.String())
	})

	t.Run("unresolved name", func(t *testing.T) {
		c := newTestCtx(t)
		got := c.AnnotationType(nameExpr("Missing"))
		assert.Equal(t, Unknown, got)
		assert.Len(t, c.Diagnostics().OfKind(diag.KindUnresolvedReference), 1)
	})

	t.Run("value in type position", func(t *testing.T) {
		c := newTestCtx(t)
		c.WithDefinitions(mapDefs{"three": c.IntLiteral(3)})
		got := c.AnnotationType(nameExpr("three"))
		assert.Equal(t, Unknown, got)
		assert.Len(t, c.Diagnostics().OfKind(diag.KindInvalidTypeForm), 1)
	})

	t.Run("conditional alias", func(t *testing.T) {
		c := newTestCtx(t)
		b := &c.reg.Builtins
		alias := c.NewUnion(c.SubclassOf(b.Int), c.SubclassOf(b.Str))
		c.WithDefinitions(mapDefs{"IntOrStr": alias})
		assert.Equal(t, "int | str", c.AnnotationType(nameExpr("IntOrStr")).String())
	})
}

func TestEnumLiteralAnnotation(t *testing.T) {
	c := newTestCtx(t)
	b := &c.reg.Builtins

	color := defineTestClass(c, "Color", c.Instance(b.Enum))
	color.IsEnum = true
	color.AddMember(&Member{Name: "RED", Kind: MemberValue, Type: c.IntLiteral(1)})
	c.WithDefinitions(mapDefs{"Color": c.SubclassOf(color)})

	member := &ast.AttributeExpr{Value: nameExpr("Color"), Attr: "RED"}
	got := c.AnnotationType(subscript(nameExpr("Literal"), member))
	assert.Equal(t, "Literal[Color.RED]", got.String())

	// a name that is not a member is rejected
	bad := &ast.AttributeExpr{Value: nameExpr("Color"), Attr: "BLUE"}
	c.AnnotationType(subscript(nameExpr("Literal"), bad))
	assert.Len(t, c.Diagnostics().OfKind(diag.KindInvalidTypeForm), 1)
}

func TestForwardAnnotations(t *testing.T) {
	c := newTestCtx(t)
	c.WithAnnotationParser(func(src string, at ast.Range) (ast.Expr, error) {
		if src == "boom" {
			return nil, errors.New("parse error")
		}
		return &ast.NameExpr{Range: at, Name: src}, nil
	})

	got := c.AnnotationType(&ast.StringLit{Value: "int"})
	assert.Equal(t, "int", got.String())

	got = c.AnnotationType(&ast.StringLit{Value: "boom"})
	assert.Equal(t, Unknown, got)
	require.Len(t, c.Diagnostics().OfKind(diag.KindInvalidTypeForm), 1)
}
