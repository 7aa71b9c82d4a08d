package astbuild

import (
	"strconv"

	"github.com/pkg/errors"

	"github.com/krait-dev/krait/frontend/ast"
)

// statements the checker has no semantics for; naming them beats a
// confusing generic parse error.
var unsupportedStmts = map[string]struct{}{
	"if": {}, "elif": {}, "else": {}, "while": {}, "with": {},
	"try": {}, "except": {}, "finally": {}, "raise": {}, "assert": {},
	"import": {}, "from": {}, "del": {}, "global": {}, "nonlocal": {},
	"yield": {}, "match": {},
}

type parser struct {
	toks []token
	pos  int
}

func (p *parser) cur() token  { return p.toks[p.pos] }
func (p *parser) prev() token { return p.toks[p.pos-1] }

func (p *parser) advance() token {
	t := p.toks[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

func (p *parser) atKind(k tokenKind) bool { return p.cur().kind == k }

func (p *parser) eatKind(k tokenKind) bool {
	if p.atKind(k) {
		p.advance()
		return true
	}
	return false
}

func (p *parser) peekOp(text string) bool {
	t := p.cur()
	return t.kind == tokOp && t.text == text
}

func (p *parser) peekKw(text string) bool {
	t := p.cur()
	return t.kind == tokKeyword && t.text == text
}

func (p *parser) eatOp(text string) bool {
	if p.peekOp(text) {
		p.advance()
		return true
	}
	return false
}

func (p *parser) eatKw(text string) bool {
	if p.peekKw(text) {
		p.advance()
		return true
	}
	return false
}

func (p *parser) errorf(format string, args ...any) error {
	return errors.Errorf("line %d: "+format, append([]any{p.cur().line}, args...)...)
}

func (p *parser) expectOp(text string) error {
	if !p.eatOp(text) {
		return p.errorf("expected %q, got %s", text, p.describe(p.cur()))
	}
	return nil
}

func (p *parser) expectKind(k tokenKind) (token, error) {
	if !p.atKind(k) {
		return token{}, p.errorf("expected %s, got %s", k, p.describe(p.cur()))
	}
	return p.advance(), nil
}

func (p *parser) describe(t token) string {
	if t.text != "" {
		return strconv.Quote(t.text)
	}
	return t.kind.String()
}

func (p *parser) spanFrom(start token) ast.Range {
	return ast.RangeAt(start.start, p.prev().end)
}

func (p *parser) parseModule() ([]ast.Stmt, error) {
	var stmts []ast.Stmt
	for !p.atKind(tokEOF) {
		if p.eatKind(tokNewline) {
			continue
		}
		st, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, st)
	}
	return stmts, nil
}

func (p *parser) parseStatement() (ast.Stmt, error) {
	t := p.cur()
	switch {
	case p.peekOp("@"):
		return p.parseDecorated()
	case p.peekKw("def"):
		return p.parseFunctionDef(nil)
	case p.peekKw("class"):
		return p.parseClassDef(nil)
	case p.peekKw("return"):
		return p.parseReturn()
	case p.peekKw("pass"):
		p.advance()
		if err := p.endStatement(); err != nil {
			return nil, err
		}
		return &ast.PassStmt{Range: ast.RangeAt(t.start, t.end)}, nil
	case p.peekKw("for"):
		return nil, p.errorf("'for' statements are not supported by the fixture reader")
	case t.kind == tokName:
		if _, unsupported := unsupportedStmts[t.text]; unsupported {
			return nil, p.errorf("%q statements are not supported by the fixture reader", t.text)
		}
	}
	return p.parseSimpleStmt()
}

func (p *parser) endStatement() error {
	if p.eatKind(tokNewline) || p.atKind(tokEOF) || p.atKind(tokDedent) {
		return nil
	}
	return p.errorf("expected end of statement, got %s", p.describe(p.cur()))
}

// parseSimpleStmt covers expression statements, `x = v`, `x: T` and
// `x: T = v`.
func (p *parser) parseSimpleStmt() (ast.Stmt, error) {
	start := p.cur()
	first, err := p.parseExprList()
	if err != nil {
		return nil, err
	}
	switch {
	case p.eatOp("="):
		value, err := p.parseExprList()
		if err != nil {
			return nil, err
		}
		if !validAssignTarget(first) {
			return nil, p.errorf("cannot assign to this expression")
		}
		if err := p.endStatement(); err != nil {
			return nil, err
		}
		return &ast.AssignStmt{Range: p.spanFrom(start), Target: first, Value: value}, nil

	case p.eatOp(":"):
		annotation, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		var value ast.Expr
		if p.eatOp("=") {
			if value, err = p.parseExprList(); err != nil {
				return nil, err
			}
		}
		switch first.(type) {
		case *ast.NameExpr, *ast.AttributeExpr:
		default:
			return nil, p.errorf("only names and attributes can carry an annotation")
		}
		if err := p.endStatement(); err != nil {
			return nil, err
		}
		return &ast.AnnAssignStmt{
			Range:      p.spanFrom(start),
			Target:     first,
			Annotation: annotation,
			Value:      value,
		}, nil
	}
	if err := p.endStatement(); err != nil {
		return nil, err
	}
	return &ast.ExprStmt{Range: p.spanFrom(start), Value: first}, nil
}

func validAssignTarget(e ast.Expr) bool {
	switch e := e.(type) {
	case *ast.NameExpr, *ast.AttributeExpr, *ast.SubscriptExpr:
		return true
	case *ast.TupleExpr:
		for _, el := range e.Elems {
			if !validAssignTarget(el) {
				return false
			}
		}
		return true
	}
	return false
}

func (p *parser) parseReturn() (ast.Stmt, error) {
	start := p.advance()
	var value ast.Expr
	if !p.atKind(tokNewline) && !p.atKind(tokEOF) && !p.atKind(tokDedent) {
		var err error
		if value, err = p.parseExprList(); err != nil {
			return nil, err
		}
	}
	if err := p.endStatement(); err != nil {
		return nil, err
	}
	return &ast.ReturnStmt{Range: p.spanFrom(start), Value: value}, nil
}

func (p *parser) parseDecorated() (ast.Stmt, error) {
	var decorators []ast.Expr
	for p.eatOp("@") {
		d, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		decorators = append(decorators, d)
		if !p.eatKind(tokNewline) {
			return nil, p.errorf("expected newline after decorator")
		}
	}
	switch {
	case p.peekKw("def"):
		return p.parseFunctionDef(decorators)
	case p.peekKw("class"):
		return p.parseClassDef(decorators)
	}
	return nil, p.errorf("decorators must be followed by a def or class")
}

func (p *parser) parseFunctionDef(decorators []ast.Expr) (ast.Stmt, error) {
	start := p.advance() // def
	name, err := p.expectKind(tokName)
	if err != nil {
		return nil, err
	}
	if err := p.expectOp("("); err != nil {
		return nil, err
	}
	params, err := p.parseParams()
	if err != nil {
		return nil, err
	}
	var returns ast.Expr
	if p.eatOp("->") {
		if returns, err = p.parseExpr(); err != nil {
			return nil, err
		}
	}
	if err := p.expectOp(":"); err != nil {
		return nil, err
	}
	body, err := p.parseSuite()
	if err != nil {
		return nil, err
	}
	return &ast.FunctionDefStmt{
		Range:      p.spanFrom(start),
		Name:       name.text,
		Decorators: decorators,
		Params:     params,
		Returns:    returns,
		Body:       body,
	}, nil
}

func (p *parser) parseParams() ([]*ast.Param, error) {
	var params []*ast.Param
	keywordOnly := false
	for !p.peekOp(")") {
		switch {
		case p.eatOp("/"):
			for _, prm := range params {
				if prm.Kind == ast.ParamPositionalOrKeyword {
					prm.Kind = ast.ParamPositionalOnly
				}
			}
		case p.eatOp("**"):
			name, err := p.expectKind(tokName)
			if err != nil {
				return nil, err
			}
			params = append(params, &ast.Param{
				Range: ast.RangeAt(name.start, name.end),
				Name:  name.text,
				Kind:  ast.ParamVarKeyword,
			})
		case p.eatOp("*"):
			if p.peekOp(",") || p.peekOp(")") {
				keywordOnly = true
				break
			}
			name, err := p.expectKind(tokName)
			if err != nil {
				return nil, err
			}
			params = append(params, &ast.Param{
				Range: ast.RangeAt(name.start, name.end),
				Name:  name.text,
				Kind:  ast.ParamVarPositional,
			})
			keywordOnly = true
		default:
			prm, err := p.parseOneParam(keywordOnly)
			if err != nil {
				return nil, err
			}
			params = append(params, prm)
		}
		if !p.eatOp(",") {
			break
		}
	}
	if err := p.expectOp(")"); err != nil {
		return nil, err
	}
	return params, nil
}

func (p *parser) parseOneParam(keywordOnly bool) (*ast.Param, error) {
	name, err := p.expectKind(tokName)
	if err != nil {
		return nil, err
	}
	prm := &ast.Param{
		Range: ast.RangeAt(name.start, name.end),
		Name:  name.text,
		Kind:  ast.ParamPositionalOrKeyword,
	}
	if keywordOnly {
		prm.Kind = ast.ParamKeywordOnly
	}
	if p.eatOp(":") {
		if prm.Annotation, err = p.parseExpr(); err != nil {
			return nil, err
		}
	}
	if p.eatOp("=") {
		if prm.Default, err = p.parseExpr(); err != nil {
			return nil, err
		}
	}
	return prm, nil
}

func (p *parser) parseClassDef(decorators []ast.Expr) (ast.Stmt, error) {
	start := p.advance() // class
	name, err := p.expectKind(tokName)
	if err != nil {
		return nil, err
	}
	var bases []ast.Expr
	var kws []*ast.Keyword
	if p.eatOp("(") {
		if bases, kws, err = p.parseCallArgs(); err != nil {
			return nil, err
		}
		if err := p.expectOp(")"); err != nil {
			return nil, err
		}
	}
	if err := p.expectOp(":"); err != nil {
		return nil, err
	}
	body, err := p.parseSuite()
	if err != nil {
		return nil, err
	}
	return &ast.ClassDefStmt{
		Range:      p.spanFrom(start),
		Name:       name.text,
		Decorators: decorators,
		Bases:      bases,
		Keywords:   kws,
		Body:       body,
	}, nil
}

func (p *parser) parseSuite() ([]ast.Stmt, error) {
	if p.eatKind(tokNewline) {
		if _, err := p.expectKind(tokIndent); err != nil {
			return nil, err
		}
		var body []ast.Stmt
		for !p.eatKind(tokDedent) {
			if p.eatKind(tokNewline) {
				continue
			}
			st, err := p.parseStatement()
			if err != nil {
				return nil, err
			}
			body = append(body, st)
		}
		return body, nil
	}
	// inline suite: a single simple statement on the def/class line
	st, err := p.parseStatement()
	if err != nil {
		return nil, err
	}
	return []ast.Stmt{st}, nil
}

// parseExprList parses `a` or the unparenthesized tuple `a, b, c`.
func (p *parser) parseExprList() (ast.Expr, error) {
	start := p.cur()
	first, err := p.parseStarOrExpr()
	if err != nil {
		return nil, err
	}
	if !p.peekOp(",") {
		return first, nil
	}
	elems := []ast.Expr{first}
	for p.eatOp(",") {
		if p.listEnds() {
			break
		}
		next, err := p.parseStarOrExpr()
		if err != nil {
			return nil, err
		}
		elems = append(elems, next)
	}
	return &ast.TupleExpr{Range: p.spanFrom(start), Elems: elems}, nil
}

// listEnds reports whether the token after a comma closes the list, so
// trailing commas parse.
func (p *parser) listEnds() bool {
	t := p.cur()
	if t.kind == tokNewline || t.kind == tokEOF || t.kind == tokDedent {
		return true
	}
	if t.kind == tokOp {
		switch t.text {
		case ")", "]", "=", ":":
			return true
		}
	}
	return false
}

func (p *parser) parseStarOrExpr() (ast.Expr, error) {
	if start := p.cur(); p.eatOp("*") {
		value, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		return &ast.StarredExpr{Range: p.spanFrom(start), Value: value}, nil
	}
	return p.parseExpr()
}

func (p *parser) parseExpr() (ast.Expr, error) {
	if p.peekKw("lambda") {
		return p.parseLambda()
	}
	return p.parseOr()
}

func (p *parser) parseLambda() (ast.Expr, error) {
	start := p.advance() // lambda
	var names []string
	for p.atKind(tokName) {
		names = append(names, p.advance().text)
		if !p.eatOp(",") {
			break
		}
	}
	if err := p.expectOp(":"); err != nil {
		return nil, err
	}
	body, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	return &ast.LambdaExpr{Range: p.spanFrom(start), Params: names, Body: body}, nil
}

func (p *parser) parseOr() (ast.Expr, error) {
	start := p.cur()
	first, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	if !p.peekKw("or") {
		return first, nil
	}
	values := []ast.Expr{first}
	for p.eatKw("or") {
		next, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		values = append(values, next)
	}
	return &ast.BoolExpr{Range: p.spanFrom(start), Op: ast.BoolOr, Values: values}, nil
}

func (p *parser) parseAnd() (ast.Expr, error) {
	start := p.cur()
	first, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	if !p.peekKw("and") {
		return first, nil
	}
	values := []ast.Expr{first}
	for p.eatKw("and") {
		next, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		values = append(values, next)
	}
	return &ast.BoolExpr{Range: p.spanFrom(start), Op: ast.BoolAnd, Values: values}, nil
}

func (p *parser) parseNot() (ast.Expr, error) {
	if start := p.cur(); p.eatKw("not") {
		operand, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		return &ast.UnaryExpr{Range: p.spanFrom(start), Op: ast.OpNot, Operand: operand}, nil
	}
	return p.parseComparison()
}

func (p *parser) parseComparison() (ast.Expr, error) {
	start := p.cur()
	left, err := p.parseBitOr()
	if err != nil {
		return nil, err
	}
	var ops []ast.CompareOp
	var comparators []ast.Expr
	for {
		op, ok, err := p.compareOp()
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		right, err := p.parseBitOr()
		if err != nil {
			return nil, err
		}
		ops = append(ops, op)
		comparators = append(comparators, right)
	}
	if len(ops) == 0 {
		return left, nil
	}
	return &ast.CompareExpr{
		Range:       p.spanFrom(start),
		Left:        left,
		Ops:         ops,
		Comparators: comparators,
	}, nil
}

func (p *parser) compareOp() (ast.CompareOp, bool, error) {
	t := p.cur()
	if t.kind == tokOp {
		var op ast.CompareOp
		switch t.text {
		case "==":
			op = ast.CmpEq
		case "!=":
			op = ast.CmpNe
		case "<":
			op = ast.CmpLt
		case "<=":
			op = ast.CmpLe
		case ">":
			op = ast.CmpGt
		case ">=":
			op = ast.CmpGe
		default:
			return 0, false, nil
		}
		p.advance()
		return op, true, nil
	}
	if t.kind == tokKeyword {
		switch t.text {
		case "is":
			p.advance()
			if p.eatKw("not") {
				return ast.CmpIsNot, true, nil
			}
			return ast.CmpIs, true, nil
		case "in":
			p.advance()
			return ast.CmpIn, true, nil
		case "not":
			p.advance()
			if !p.eatKw("in") {
				return 0, false, p.errorf("expected 'in' after 'not'")
			}
			return ast.CmpNotIn, true, nil
		}
	}
	return 0, false, nil
}

type binaryLevel struct {
	ops  map[string]ast.BinaryOp
	next func() (ast.Expr, error)
}

func (p *parser) parseBinaryLevel(lvl binaryLevel) (ast.Expr, error) {
	start := p.cur()
	left, err := lvl.next()
	if err != nil {
		return nil, err
	}
	for {
		t := p.cur()
		if t.kind != tokOp {
			return left, nil
		}
		op, found := lvl.ops[t.text]
		if !found {
			return left, nil
		}
		p.advance()
		right, err := lvl.next()
		if err != nil {
			return nil, err
		}
		left = &ast.BinaryExpr{Range: p.spanFrom(start), Op: op, Left: left, Right: right}
	}
}

func (p *parser) parseBitOr() (ast.Expr, error) {
	return p.parseBinaryLevel(binaryLevel{
		ops:  map[string]ast.BinaryOp{"|": ast.OpBitOr},
		next: p.parseBitXor,
	})
}

func (p *parser) parseBitXor() (ast.Expr, error) {
	return p.parseBinaryLevel(binaryLevel{
		ops:  map[string]ast.BinaryOp{"^": ast.OpBitXor},
		next: p.parseBitAnd,
	})
}

func (p *parser) parseBitAnd() (ast.Expr, error) {
	return p.parseBinaryLevel(binaryLevel{
		ops:  map[string]ast.BinaryOp{"&": ast.OpBitAnd},
		next: p.parseShift,
	})
}

func (p *parser) parseShift() (ast.Expr, error) {
	return p.parseBinaryLevel(binaryLevel{
		ops:  map[string]ast.BinaryOp{"<<": ast.OpLShift, ">>": ast.OpRShift},
		next: p.parseArith,
	})
}

func (p *parser) parseArith() (ast.Expr, error) {
	return p.parseBinaryLevel(binaryLevel{
		ops:  map[string]ast.BinaryOp{"+": ast.OpAdd, "-": ast.OpSub},
		next: p.parseTerm,
	})
}

func (p *parser) parseTerm() (ast.Expr, error) {
	return p.parseBinaryLevel(binaryLevel{
		ops: map[string]ast.BinaryOp{
			"*": ast.OpMul, "/": ast.OpTrueDiv, "//": ast.OpFloorDiv,
			"%": ast.OpMod, "@": ast.OpMatMul,
		},
		next: p.parseFactor,
	})
}

func (p *parser) parseFactor() (ast.Expr, error) {
	start := p.cur()
	if p.eatKw("await") {
		value, err := p.parseFactor()
		if err != nil {
			return nil, err
		}
		return &ast.AwaitExpr{Range: p.spanFrom(start), Value: value}, nil
	}
	var op ast.UnaryOp
	switch {
	case p.eatOp("-"):
		op = ast.OpNeg
	case p.eatOp("+"):
		op = ast.OpPos
	case p.eatOp("~"):
		op = ast.OpInvert
	default:
		return p.parsePower()
	}
	operand, err := p.parseFactor()
	if err != nil {
		return nil, err
	}
	return &ast.UnaryExpr{Range: p.spanFrom(start), Op: op, Operand: operand}, nil
}

func (p *parser) parsePower() (ast.Expr, error) {
	start := p.cur()
	base, err := p.parsePostfix()
	if err != nil {
		return nil, err
	}
	if !p.eatOp("**") {
		return base, nil
	}
	exp, err := p.parseFactor() // right-associative
	if err != nil {
		return nil, err
	}
	return &ast.BinaryExpr{Range: p.spanFrom(start), Op: ast.OpPow, Left: base, Right: exp}, nil
}

func (p *parser) parsePostfix() (ast.Expr, error) {
	start := p.cur()
	e, err := p.parseAtom()
	if err != nil {
		return nil, err
	}
	for {
		switch {
		case p.eatOp("("):
			args, kws, err := p.parseCallArgs()
			if err != nil {
				return nil, err
			}
			if err := p.expectOp(")"); err != nil {
				return nil, err
			}
			e = &ast.CallExpr{Range: p.spanFrom(start), Func: e, Args: args, Keywords: kws}
		case p.eatOp("."):
			name, err := p.expectKind(tokName)
			if err != nil {
				return nil, err
			}
			e = &ast.AttributeExpr{Range: p.spanFrom(start), Value: e, Attr: name.text}
		case p.eatOp("["):
			index, err := p.parseSubscriptIndex()
			if err != nil {
				return nil, err
			}
			if err := p.expectOp("]"); err != nil {
				return nil, err
			}
			e = &ast.SubscriptExpr{Range: p.spanFrom(start), Value: e, Index: index}
		default:
			return e, nil
		}
	}
}

func (p *parser) parseCallArgs() ([]ast.Expr, []*ast.Keyword, error) {
	var args []ast.Expr
	var kws []*ast.Keyword
	for !p.peekOp(")") {
		start := p.cur()
		switch {
		case p.eatOp("*"):
			value, err := p.parseExpr()
			if err != nil {
				return nil, nil, err
			}
			args = append(args, &ast.StarredExpr{Range: p.spanFrom(start), Value: value})
		case p.eatOp("**"):
			value, err := p.parseExpr()
			if err != nil {
				return nil, nil, err
			}
			kws = append(kws, &ast.Keyword{Range: p.spanFrom(start), Value: value})
		case start.kind == tokName && p.nextIsOp("="):
			p.advance() // name
			p.advance() // =
			value, err := p.parseExpr()
			if err != nil {
				return nil, nil, err
			}
			kws = append(kws, &ast.Keyword{Range: p.spanFrom(start), Name: start.text, Value: value})
		default:
			value, err := p.parseExpr()
			if err != nil {
				return nil, nil, err
			}
			args = append(args, value)
		}
		if !p.eatOp(",") {
			break
		}
	}
	return args, kws, nil
}

// nextIsOp reports whether the token after the current one is the given
// operator, without consuming anything.
func (p *parser) nextIsOp(text string) bool {
	if p.pos+1 >= len(p.toks) {
		return false
	}
	t := p.toks[p.pos+1]
	return t.kind == tokOp && t.text == text
}

func (p *parser) parseSubscriptIndex() (ast.Expr, error) {
	start := p.cur()
	var lower ast.Expr
	if !p.peekOp(":") {
		first, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if !p.peekOp(":") {
			if !p.peekOp(",") {
				return first, nil
			}
			elems := []ast.Expr{first}
			for p.eatOp(",") {
				if p.peekOp("]") {
					break
				}
				next, err := p.parseExpr()
				if err != nil {
					return nil, err
				}
				elems = append(elems, next)
			}
			return &ast.TupleExpr{Range: p.spanFrom(start), Elems: elems}, nil
		}
		lower = first
	}
	if err := p.expectOp(":"); err != nil {
		return nil, err
	}
	slice := &ast.SliceExpr{Lower: lower}
	if !p.peekOp(":") && !p.peekOp("]") {
		upper, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		slice.Upper = upper
	}
	if p.eatOp(":") && !p.peekOp("]") {
		step, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		slice.Step = step
	}
	slice.Range = p.spanFrom(start)
	return slice, nil
}

func (p *parser) parseAtom() (ast.Expr, error) {
	t := p.cur()
	switch t.kind {
	case tokInt:
		p.advance()
		value, err := strconv.ParseInt(t.text, 10, 64)
		if err != nil {
			return nil, p.errorf("invalid integer literal %q", t.text)
		}
		return &ast.IntLit{Range: ast.RangeAt(t.start, t.end), Value: value}, nil
	case tokFloat:
		p.advance()
		return &ast.FloatLit{Range: ast.RangeAt(t.start, t.end), Text: t.text}, nil
	case tokString:
		p.advance()
		return &ast.StringLit{Range: ast.RangeAt(t.start, t.end), Value: t.text}, nil
	case tokBytes:
		p.advance()
		return &ast.BytesLit{Range: ast.RangeAt(t.start, t.end), Value: t.text}, nil
	case tokFString:
		p.advance()
		return p.parseFString(t)
	case tokName:
		p.advance()
		return &ast.NameExpr{Range: ast.RangeAt(t.start, t.end), Name: t.text}, nil
	case tokKeyword:
		switch t.text {
		case "True", "False":
			p.advance()
			return &ast.BoolLit{Range: ast.RangeAt(t.start, t.end), Value: t.text == "True"}, nil
		case "None":
			p.advance()
			return &ast.NoneLit{Range: ast.RangeAt(t.start, t.end)}, nil
		case "lambda":
			return p.parseLambda()
		}
	case tokOp:
		switch t.text {
		case "...":
			p.advance()
			return &ast.EllipsisLit{Range: ast.RangeAt(t.start, t.end)}, nil
		case "(":
			return p.parseParenAtom()
		case "[":
			return p.parseListAtom()
		}
	}
	return nil, p.errorf("unexpected %s", p.describe(t))
}

func (p *parser) parseParenAtom() (ast.Expr, error) {
	start := p.advance() // (
	if p.eatOp(")") {
		return &ast.TupleExpr{Range: p.spanFrom(start)}, nil
	}
	first, err := p.parseStarOrExpr()
	if err != nil {
		return nil, err
	}
	if !p.peekOp(",") {
		if err := p.expectOp(")"); err != nil {
			return nil, err
		}
		return first, nil // plain grouping
	}
	elems := []ast.Expr{first}
	for p.eatOp(",") {
		if p.peekOp(")") {
			break
		}
		next, err := p.parseStarOrExpr()
		if err != nil {
			return nil, err
		}
		elems = append(elems, next)
	}
	if err := p.expectOp(")"); err != nil {
		return nil, err
	}
	return &ast.TupleExpr{Range: p.spanFrom(start), Elems: elems}, nil
}

func (p *parser) parseListAtom() (ast.Expr, error) {
	start := p.advance() // [
	if p.eatOp("]") {
		return &ast.ListExpr{Range: p.spanFrom(start)}, nil
	}
	first, err := p.parseStarOrExpr()
	if err != nil {
		return nil, err
	}
	if p.eatKw("for") {
		target, err := p.expectKind(tokName)
		if err != nil {
			return nil, err
		}
		if !p.eatKw("in") {
			return nil, p.errorf("expected 'in' in comprehension")
		}
		iter, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if err := p.expectOp("]"); err != nil {
			return nil, err
		}
		return &ast.ComprehensionExpr{
			Range:   p.spanFrom(start),
			Element: first,
			Target:  target.text,
			Iter:    iter,
		}, nil
	}
	elems := []ast.Expr{first}
	for p.eatOp(",") {
		if p.peekOp("]") {
			break
		}
		next, err := p.parseStarOrExpr()
		if err != nil {
			return nil, err
		}
		elems = append(elems, next)
	}
	if err := p.expectOp("]"); err != nil {
		return nil, err
	}
	return &ast.ListExpr{Range: p.spanFrom(start), Elems: elems}, nil
}

// parseFString splits the raw f-string body into literal segments and
// brace interpolations; each interpolation is read as an expression.
func (p *parser) parseFString(t token) (ast.Expr, error) {
	raw := t.text
	full := ast.RangeAt(t.start, t.end)
	var parts []ast.Expr
	var lit []byte
	flush := func() {
		if len(lit) > 0 {
			parts = append(parts, &ast.StringLit{Range: full, Value: string(lit)})
			lit = nil
		}
	}
	for i := 0; i < len(raw); i++ {
		switch raw[i] {
		case '{':
			if i+1 < len(raw) && raw[i+1] == '{' {
				lit = append(lit, '{')
				i++
				continue
			}
			depth := 1
			j := i + 1
			for ; j < len(raw) && depth > 0; j++ {
				switch raw[j] {
				case '{':
					depth++
				case '}':
					depth--
				}
			}
			if depth != 0 {
				return nil, errors.Errorf("line %d: unbalanced braces in f-string", t.line)
			}
			flush()
			// prefix and opening quote sit before the raw text
			inner, err := parseExprAt(raw[i+1:j-1], t.start+2+i+1)
			if err != nil {
				return nil, errors.Wrapf(err, "in f-string interpolation")
			}
			parts = append(parts, inner)
			i = j - 1
		case '}':
			if i+1 < len(raw) && raw[i+1] == '}' {
				lit = append(lit, '}')
				i++
				continue
			}
			return nil, errors.Errorf("line %d: single '}' in f-string", t.line)
		default:
			lit = append(lit, raw[i])
		}
	}
	flush()
	return &ast.FStringLit{Range: full, Parts: parts}, nil
}
