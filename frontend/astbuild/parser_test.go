package astbuild

import (
	"fmt"
	gotoken "go/token"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/krait-dev/krait/frontend/ast"
)

// render prints an expression as a compact prefix form so tables stay
// readable. Nil slice parts print as _.
func render(e ast.Expr) string {
	switch e := e.(type) {
	case nil:
		return "_"
	case *ast.NameExpr:
		return e.Name
	case *ast.IntLit:
		return strconv.FormatInt(e.Value, 10)
	case *ast.FloatLit:
		return e.Text
	case *ast.StringLit:
		return strconv.Quote(e.Value)
	case *ast.BytesLit:
		return "b" + strconv.Quote(e.Value)
	case *ast.BoolLit:
		if e.Value {
			return "True"
		}
		return "False"
	case *ast.NoneLit:
		return "None"
	case *ast.EllipsisLit:
		return "..."
	case *ast.TupleExpr:
		return renderForm("tuple", e.Elems...)
	case *ast.ListExpr:
		return renderForm("list", e.Elems...)
	case *ast.AttributeExpr:
		return "(. " + render(e.Value) + " " + e.Attr + ")"
	case *ast.SubscriptExpr:
		return renderForm("sub", e.Value, e.Index)
	case *ast.SliceExpr:
		return renderForm("slice", e.Lower, e.Upper, e.Step)
	case *ast.StarredExpr:
		return renderForm("star", e.Value)
	case *ast.CallExpr:
		parts := []string{render(e.Func)}
		for _, a := range e.Args {
			parts = append(parts, render(a))
		}
		for _, kw := range e.Keywords {
			if kw.Name == "" {
				parts = append(parts, "**"+render(kw.Value))
			} else {
				parts = append(parts, kw.Name+"="+render(kw.Value))
			}
		}
		return "(call " + strings.Join(parts, " ") + ")"
	case *ast.BinaryExpr:
		return "(" + e.Op.String() + " " + render(e.Left) + " " + render(e.Right) + ")"
	case *ast.UnaryExpr:
		return "(" + e.Op.String() + " " + render(e.Operand) + ")"
	case *ast.BoolExpr:
		return renderForm(e.Op.String(), e.Values...)
	case *ast.CompareExpr:
		parts := []string{render(e.Left)}
		for i, op := range e.Ops {
			parts = append(parts, op.String(), render(e.Comparators[i]))
		}
		return "(cmp " + strings.Join(parts, " ") + ")"
	case *ast.LambdaExpr:
		return "(lambda [" + strings.Join(e.Params, " ") + "] " + render(e.Body) + ")"
	case *ast.AwaitExpr:
		return renderForm("await", e.Value)
	case *ast.ComprehensionExpr:
		return "(for " + e.Target + " " + render(e.Iter) + " " + render(e.Element) + ")"
	case *ast.FStringLit:
		return renderForm("fstr", e.Parts...)
	}
	return fmt.Sprintf("?%T", e)
}

func renderForm(head string, exprs ...ast.Expr) string {
	parts := make([]string, 0, len(exprs)+1)
	parts = append(parts, head)
	for _, e := range exprs {
		parts = append(parts, render(e))
	}
	return "(" + strings.Join(parts, " ") + ")"
}

func TestParseExprForms(t *testing.T) {
	cases := []struct {
		src  string
		want string
	}{
		{"3", "3"},
		{"3.5", "3.5"},
		{`"a"`, `"a"`},
		{`"a\nb"`, `"a\nb"`},
		{`'a'`, `"a"`},
		{`b"ab"`, `b"ab"`},
		{"True", "True"},
		{"None", "None"},
		{"...", "..."},
		{"x", "x"},

		{"1 + 2 * 3", "(+ 1 (* 2 3))"},
		{"(1 + 2) * 3", "(* (+ 1 2) 3)"},
		{"1 - 2 - 3", "(- (- 1 2) 3)"},
		{"7 // 2 % 3", "(% (// 7 2) 3)"},
		{"a @ b", "(@ a b)"},
		{"2 ** 3 ** 2", "(** 2 (** 3 2))"},
		{"-x ** 2", "(- (** x 2))"},
		{"~n", "(~ n)"},
		{"1 << 2 + 3", "(<< 1 (+ 2 3))"},
		{"a | b ^ c & d", "(| a (^ b (& c d)))"},
		{"int | None", "(| int None)"},

		{"not x or y and z", "(or (not x) (and y z))"},
		{"a < b <= c", "(cmp a < b <= c)"},
		{"1 < x < 10", "(cmp 1 < x < 10)"},
		{"a is not b", "(cmp a is not b)"},
		{"a not in b", "(cmp a not in b)"},
		{"a == b != c", "(cmp a == b != c)"},

		{"x.y.z", "(. (. x y) z)"},
		{"f(1, k=2)", "(call f 1 k=2)"},
		{"f(*a, **k)", "(call f (star a) **k)"},
		{"f(1)(2)", "(call (call f 1) 2)"},
		{"f()", "(call f)"},
		{"xs[0]", "(sub xs 0)"},
		{"xs[1:2]", "(sub xs (slice 1 2 _))"},
		{"xs[:]", "(sub xs (slice _ _ _))"},
		{"xs[::2]", "(sub xs (slice _ _ 2))"},
		{"xs[1:2:3]", "(sub xs (slice 1 2 3))"},
		{"d[a, b]", "(sub d (tuple a b))"},

		{"()", "(tuple)"},
		{"(1,)", "(tuple 1)"},
		{"(1, 2)", "(tuple 1 2)"},
		{"1, 2", "(tuple 1 2)"},
		{"1,", "(tuple 1)"},
		{"[]", "(list)"},
		{"[1, *xs]", "(list 1 (star xs))"},
		{"[x for x in xs]", "(for x xs x)"},
		{"[x + 1 for x in xs]", "(for x xs (+ x 1))"},

		{"lambda: 3", "(lambda [] 3)"},
		{"lambda x, y: x + y", "(lambda [x y] (+ x y))"},
		{"f(lambda: 3)", "(call f (lambda [] 3))"},
		{"await f()", "(await (call f))"},

		{`f"a{x}b"`, `(fstr "a" x "b")`},
		{`f"{x}{y}"`, "(fstr x y)"},
		{`f"{{x}}"`, `(fstr "{x}")`},
		{`f"{x + 1}"`, "(fstr (+ x 1))"},
	}
	for _, tc := range cases {
		t.Run(tc.src, func(t *testing.T) {
			e, err := ParseExpr(tc.src, ast.Range{})
			require.NoError(t, err)
			assert.Equal(t, tc.want, render(e))
		})
	}
}

func TestParseModuleStatements(t *testing.T) {
	src := `
x: int = 3
y = f(x)

@final
class Meta(type):
    pass

class Point(Base, metaclass=Meta):
    x: int
    y: int = 0

    def dist(self, other: Point) -> float:
        return other.x

def run(a, b: int = 1, *args, c: str, **kw) -> None:
    pass
`
	stmts, err := ParseModule(src)
	require.NoError(t, err)
	require.Len(t, stmts, 5)

	ann := stmts[0].(*ast.AnnAssignStmt)
	assert.Equal(t, "x", render(ann.Target))
	assert.Equal(t, "int", render(ann.Annotation))
	assert.Equal(t, "3", render(ann.Value))

	assign := stmts[1].(*ast.AssignStmt)
	assert.Equal(t, "y", render(assign.Target))
	assert.Equal(t, "(call f x)", render(assign.Value))

	meta := stmts[2].(*ast.ClassDefStmt)
	assert.Equal(t, "Meta", meta.Name)
	assert.True(t, meta.HasDecorator("final"))
	require.Len(t, meta.Bases, 1)
	assert.Equal(t, "type", render(meta.Bases[0]))
	require.Len(t, meta.Body, 1)
	assert.IsType(t, &ast.PassStmt{}, meta.Body[0])

	point := stmts[3].(*ast.ClassDefStmt)
	assert.Equal(t, "Point", point.Name)
	require.Len(t, point.Bases, 1)
	assert.Equal(t, "Base", render(point.Bases[0]))
	mc, ok := point.MetaclassKeyword()
	require.True(t, ok)
	assert.Equal(t, "Meta", render(mc))
	require.Len(t, point.Body, 3)
	assert.Nil(t, point.Body[0].(*ast.AnnAssignStmt).Value)
	assert.Equal(t, "0", render(point.Body[1].(*ast.AnnAssignStmt).Value))

	dist := point.Body[2].(*ast.FunctionDefStmt)
	assert.Equal(t, "dist", dist.Name)
	require.Len(t, dist.Params, 2)
	assert.Equal(t, "self", dist.Params[0].Name)
	assert.Nil(t, dist.Params[0].Annotation)
	assert.Equal(t, "Point", render(dist.Params[1].Annotation))
	assert.Equal(t, "float", render(dist.Returns))
	require.Len(t, dist.Body, 1)
	ret := dist.Body[0].(*ast.ReturnStmt)
	assert.Equal(t, "(. other x)", render(ret.Value))

	run := stmts[4].(*ast.FunctionDefStmt)
	assert.Equal(t, "run", run.Name)
	assert.Equal(t, "None", render(run.Returns))
	require.Len(t, run.Params, 5)
	assert.Equal(t, ast.ParamPositionalOrKeyword, run.Params[0].Kind)
	assert.Equal(t, ast.ParamPositionalOrKeyword, run.Params[1].Kind)
	assert.Equal(t, "1", render(run.Params[1].Default))
	assert.Equal(t, ast.ParamVarPositional, run.Params[2].Kind)
	assert.Equal(t, "args", run.Params[2].Name)
	assert.Equal(t, ast.ParamKeywordOnly, run.Params[3].Kind)
	assert.Equal(t, "str", render(run.Params[3].Annotation))
	assert.Equal(t, ast.ParamVarKeyword, run.Params[4].Kind)
	assert.Equal(t, "kw", run.Params[4].Name)
}

func TestParamMarkers(t *testing.T) {
	stmts, err := ParseModule("def f(a, b, /, c, *, d):\n    pass\n")
	require.NoError(t, err)
	require.Len(t, stmts, 1)
	fn := stmts[0].(*ast.FunctionDefStmt)
	require.Len(t, fn.Params, 4)
	assert.Equal(t, ast.ParamPositionalOnly, fn.Params[0].Kind)
	assert.Equal(t, ast.ParamPositionalOnly, fn.Params[1].Kind)
	assert.Equal(t, ast.ParamPositionalOrKeyword, fn.Params[2].Kind)
	assert.Equal(t, ast.ParamKeywordOnly, fn.Params[3].Kind)
}

func TestInlineSuites(t *testing.T) {
	stmts, err := ParseModule("def f(): return 3\nclass C: pass\n")
	require.NoError(t, err)
	require.Len(t, stmts, 2)

	fn := stmts[0].(*ast.FunctionDefStmt)
	require.Len(t, fn.Body, 1)
	ret := fn.Body[0].(*ast.ReturnStmt)
	assert.Equal(t, "3", render(ret.Value))

	cls := stmts[1].(*ast.ClassDefStmt)
	require.Len(t, cls.Body, 1)
	assert.IsType(t, &ast.PassStmt{}, cls.Body[0])
}

func TestBareReturn(t *testing.T) {
	stmts, err := ParseModule("def f():\n    return\n")
	require.NoError(t, err)
	fn := stmts[0].(*ast.FunctionDefStmt)
	require.Len(t, fn.Body, 1)
	assert.Nil(t, fn.Body[0].(*ast.ReturnStmt).Value)
}

func TestImplicitLineJoining(t *testing.T) {
	src := "xs = [\n    1,\n    2,\n]\nf(\n    xs,\n)\n"
	stmts, err := ParseModule(src)
	require.NoError(t, err)
	require.Len(t, stmts, 2)
	assign := stmts[0].(*ast.AssignStmt)
	assert.Equal(t, "(list 1 2)", render(assign.Value))
	call := stmts[1].(*ast.ExprStmt)
	assert.Equal(t, "(call f xs)", render(call.Value))
}

func TestParseErrors(t *testing.T) {
	cases := []struct {
		name string
		src  string
		want string
	}{
		{"tab indent", "def f():\n\treturn 3\n", "tab indentation is not supported"},
		{"bad dedent", "def f():\n    pass\n  pass\n", "unindent does not match"},
		{"unterminated string", "x = \"abc\n", "unterminated string literal"},
		{"if unsupported", "if x:\n    pass\n", `"if" statements are not supported`},
		{"for unsupported", "for x in xs:\n    pass\n", "'for' statements are not supported"},
		{"import unsupported", "import os\n", `"import" statements are not supported`},
		{"assign to literal", "3 = x\n", "cannot assign to this expression"},
		{"bad annotation target", "f(): int\n", "only names and attributes can carry an annotation"},
		{"lone decorator", "@final\nx = 3\n", "decorators must be followed by a def or class"},
		{"stray closing", "x = )\n", `unexpected ")"`},
		{"lone brace", `x = f"}"` + "\n", "single '}' in f-string"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseModule(tc.src)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestErrorsCarryLineNumbers(t *testing.T) {
	_, err := ParseModule("x = 1\ny = )\n")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")
}

func TestParseExprOffsets(t *testing.T) {
	e, err := ParseExpr("T | None", ast.RangeAt(100, 108))
	require.NoError(t, err)
	bin := e.(*ast.BinaryExpr)
	assert.Equal(t, gotoken.Pos(100), bin.Left.(*ast.NameExpr).PosStart)
	assert.Equal(t, gotoken.Pos(104), bin.Right.(*ast.NoneLit).PosStart)
}

func TestFStringInterpolationOffsets(t *testing.T) {
	e, err := ParseExpr(`f"a{x}"`, ast.Range{})
	require.NoError(t, err)
	fs := e.(*ast.FStringLit)
	require.Len(t, fs.Parts, 2)
	name := fs.Parts[1].(*ast.NameExpr)
	assert.Equal(t, gotoken.Pos(4), name.PosStart)
}

func TestTrailingExprRejected(t *testing.T) {
	_, err := ParseExpr("1 2", ast.Range{})
	require.Error(t, err)
}
