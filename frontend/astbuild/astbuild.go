// Package astbuild reads the compact Python-flavoured notation that
// tests and conformance fixtures are written in, producing frontend/ast
// nodes. It covers exactly the statement and expression forms the
// checker gives meaning to; a real host front end would supply its own
// AST instead.
package astbuild

import (
	"github.com/krait-dev/krait/frontend/ast"
)

// ParseModule reads a whole fixture module into a statement list.
func ParseModule(src string) ([]ast.Stmt, error) {
	toks, err := newLexer(src, 0).scan()
	if err != nil {
		return nil, err
	}
	return (&parser{toks: toks}).parseModule()
}

// ParseExpr reads a single expression. Positions in the result are
// offset to land inside at, so it slots in as the deferred annotation
// parser on a types.Ctx.
func ParseExpr(src string, at ast.Range) (ast.Expr, error) {
	return parseExprAt(src, int(at.PosStart))
}

func parseExprAt(src string, base int) (ast.Expr, error) {
	toks, err := newLexer(src, base).scan()
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks}
	e, err := p.parseExprList()
	if err != nil {
		return nil, err
	}
	p.eatKind(tokNewline)
	if !p.atKind(tokEOF) {
		return nil, p.errorf("unexpected %s after expression", p.describe(p.cur()))
	}
	return e, nil
}
