package types

import (
	"github.com/krait-dev/krait/frontend/ast"
	"github.com/krait-dev/krait/frontend/diag"
)

// ChainedCompareType types `a OP b OP c ...`, which evaluates like
// `a OP b and b OP c` with each middle operand evaluated once. Every
// link but the last is used in boolean context, so its result must be
// bool-convertible and the chain's type folds through `and` with
// falsy narrowing on the left of each step.
func (c *Ctx) ChainedCompareType(ops []ast.CompareOp, operands []Type, span ast.Range) Type {
	if len(ops) == 0 || len(operands) != len(ops)+1 {
		c.addFailure("malformed comparison chain: %d ops, %d operands", len(ops), len(operands))
		return Unknown
	}
	links := make([]Type, len(ops))
	for i, op := range ops {
		links[i] = c.CompareOpType(op, operands[i], operands[i+1], span)
	}
	result := links[len(links)-1]
	for i := len(links) - 2; i >= 0; i-- {
		result = c.andType(links[i], result, span)
	}
	return result
}

// CompareOpType types a single comparison link.
func (c *Ctx) CompareOpType(op ast.CompareOp, left, right Type, span ast.Range) Type {
	switch op {
	case ast.CmpIs, ast.CmpIsNot:
		return c.identityType(op, left, right)
	case ast.CmpIn, ast.CmpNotIn:
		return c.containmentType(op, left, right, span)
	}
	if op.IsOrdering() {
		return c.orderingType(op, left, right, span)
	}
	return c.equalityType(op, left, right, span)
}

// equalityType resolves == and !=. It cannot fail: when no dunder
// applies, identity comparison steps in and yields bool.
func (c *Ctx) equalityType(op ast.CompareOp, left, right Type, span ast.Range) Type {
	var results []Type
	for _, l := range unionParts(left) {
		for _, r := range unionParts(right) {
			results = append(results, c.equalityPair(op, l, r, span))
		}
	}
	return c.NewUnion(results...)
}

func (c *Ctx) equalityPair(op ast.CompareOp, left, right Type, span ast.Range) Type {
	if lit, ok := c.literalComparison(op, left, right); ok {
		return lit
	}
	if lt, ok := left.(tupleType); ok {
		if rt, ok := right.(tupleType); ok {
			return c.tupleEquality(op, lt, rt, span)
		}
	}
	if t, ok := c.compareDunderQuiet(op, left, right); ok {
		return t
	}
	return c.Instance(c.reg.Builtins.Bool)
}

// tupleEquality compares fixed tuples element-wise: one provably
// unequal pair settles the answer without reaching the end, and a
// full run of provably equal pairs settles it the other way.
func (c *Ctx) tupleEquality(op ast.CompareOp, left, right tupleType, span ast.Range) Type {
	if len(left.elems) != len(right.elems) {
		return c.BoolLiteral(op == ast.CmpNe)
	}
	allEqual := true
	for i := range left.elems {
		l, r := left.elems[i], right.elems[i]
		eq, decided := c.literalComparison(ast.CmpEq, l, r)
		if !decided {
			allEqual = false
			// the element comparison feeds a boolean context
			c.EnsureBoolUsable(c.equalityPair(ast.CmpEq, l, r, span), span)
			continue
		}
		if b, isBool := eq.(boolLiteral); isBool && !b.value {
			return c.BoolLiteral(op == ast.CmpNe)
		}
	}
	if allEqual {
		return c.BoolLiteral(op == ast.CmpEq)
	}
	return c.Instance(c.reg.Builtins.Bool)
}

// orderingType resolves < <= > >=, which have no identity fallback:
// an unsupported pair is an error.
func (c *Ctx) orderingType(op ast.CompareOp, left, right Type, span ast.Range) Type {
	if lt, ok := left.(tupleType); ok {
		if rt, ok := right.(tupleType); ok {
			return c.tupleOrdering(op, lt, rt, span)
		}
	}
	var results []Type
	for _, l := range unionParts(left) {
		for _, r := range unionParts(right) {
			if lit, ok := c.literalComparison(op, l, r); ok {
				results = append(results, lit)
				continue
			}
			t, ok := c.compareDunderQuiet(op, l, r)
			if !ok {
				c.addError(diag.New(diag.NewUnsupportedOperator{
					Positioner: span,
					Op:         op.String(),
					Left:       left.String(),
					Right:      right.String(),
					Component:  -1,
				}))
				return Unknown
			}
			results = append(results, t)
		}
	}
	return c.NewUnion(results...)
}

// compareDunderQuiet mirrors binaryOpQuiet for the rich comparison
// dunders: the left operand's method unless a strict right subclass
// overrides the reflected one first.
func (c *Ctx) compareDunderQuiet(op ast.CompareOp, left, right Type) (Type, bool) {
	if IsDynamic(left) || IsDynamic(right) {
		return Unknown, true
	}
	dunder, reflected := op.Dunder(), op.ReflectedDunder()
	if c.reflectedTakesPrecedence(left, right, reflected) {
		if t, ok := c.callDunder1(right, reflected, left); ok {
			return t, true
		}
		return c.callDunder1(left, dunder, right)
	}
	if t, ok := c.callDunder1(left, dunder, right); ok {
		return t, true
	}
	return c.callDunder1(right, reflected, left)
}

// literalComparison decides a comparison between two fully-known
// values. Mixed int/bool pairs compare numerically, and an equality
// between literals of unrelated kinds is decidedly false.
func (c *Ctx) literalComparison(op ast.CompareOp, left, right Type) (Type, bool) {
	if li, ok := numericLiteralValue(left); ok {
		if ri, ok := numericLiteralValue(right); ok {
			return c.BoolLiteral(compareOrdered(op, li, ri)), true
		}
	}
	if ls, ok := left.(stringLiteral); ok {
		if rs, ok := right.(stringLiteral); ok {
			return c.BoolLiteral(compareOrdered(op, ls.value, rs.value)), true
		}
	}
	if lb, ok := left.(bytesLiteral); ok {
		if rb, ok := right.(bytesLiteral); ok {
			return c.BoolLiteral(compareOrdered(op, lb.value, rb.value)), true
		}
	}
	switch op {
	case ast.CmpEq, ast.CmpNe:
		if le, ok := left.(enumLiteral); ok {
			if re, ok := right.(enumLiteral); ok && le.class == re.class {
				return c.BoolLiteral((le.member == re.member) == (op == ast.CmpEq)), true
			}
		}
		if isConcreteLiteral(left) && isConcreteLiteral(right) {
			// unrelated literal kinds can only be unequal
			return c.BoolLiteral(op == ast.CmpNe), true
		}
	}
	return nil, false
}

func numericLiteralValue(t Type) (int64, bool) {
	switch t := t.(type) {
	case intLiteral:
		return t.value, true
	case boolLiteral:
		if t.value {
			return 1, true
		}
		return 0, true
	}
	return 0, false
}

func isConcreteLiteral(t Type) bool {
	switch t.(type) {
	case intLiteral, boolLiteral, stringLiteral, bytesLiteral, enumLiteral, noneType:
		return true
	}
	return false
}

func compareOrdered[E int64 | string](op ast.CompareOp, a, b E) bool {
	switch op {
	case ast.CmpEq:
		return a == b
	case ast.CmpNe:
		return a != b
	case ast.CmpLt:
		return a < b
	case ast.CmpLe:
		return a <= b
	case ast.CmpGt:
		return a > b
	default:
		return a >= b
	}
}

// tupleOrdering compares fixed-length tuples lexicographically. A pair
// of equal literal elements defers the decision to the next position,
// an unequal literal pair settles the outcome, and anything else only
// needs the element comparison to be supported.
func (c *Ctx) tupleOrdering(op ast.CompareOp, left, right tupleType, span ast.Range) Type {
	n := min(len(left.elems), len(right.elems))
	for i := range n {
		l, r := left.elems[i], right.elems[i]
		if eq, ok := c.literalComparison(ast.CmpEq, l, r); ok {
			if b, isBool := eq.(boolLiteral); isBool && b.value {
				continue
			}
			if lit, ok := c.literalComparison(op, l, r); ok {
				return lit
			}
		}
		if _, ok := c.compareDunderQuiet(op, l, r); !ok {
			c.addError(diag.New(diag.NewUnsupportedOperator{
				Positioner: span,
				Op:         op.String(),
				Left:       left.String(),
				Right:      right.String(),
				Component:  i,
			}))
			return Unknown
		}
		return c.Instance(c.reg.Builtins.Bool)
	}
	// every compared pair tied, so the lengths decide
	return c.BoolLiteral(compareOrdered(op, int64(len(left.elems)), int64(len(right.elems))))
}

// identityType resolves `is` and `is not`, which never dispatch. A
// provably disjoint pair settles the answer.
func (c *Ctx) identityType(op ast.CompareOp, left, right Type) Type {
	if _, lNone := left.(noneType); lNone {
		if _, rNone := right.(noneType); rNone {
			return c.BoolLiteral(op == ast.CmpIs)
		}
	}
	if c.IsDisjointFrom(left, right) {
		return c.BoolLiteral(op == ast.CmpIsNot)
	}
	return c.Instance(c.reg.Builtins.Bool)
}

// containmentType resolves `in` and `not in` against the right
// operand: __contains__ wins when present and its argument type is
// checked with no fallback, otherwise iteration, otherwise integer
// subscripting.
func (c *Ctx) containmentType(op ast.CompareOp, item, container Type, span ast.Range) Type {
	for _, part := range unionParts(container) {
		if IsDynamic(part) {
			continue
		}
		if !c.containmentSupported(item, part) {
			c.addError(diag.New(diag.NewUnsupportedOperator{
				Positioner: span,
				Op:         op.String(),
				Left:       item.String(),
				Right:      container.String(),
				Component:  -1,
			}))
			return Unknown
		}
	}
	return c.Instance(c.reg.Builtins.Bool)
}

func (c *Ctx) containmentSupported(item, container Type) bool {
	if callee, found := probeMember(c, container, "__contains__"); found {
		_, ok := c.applyCall1(callee, item)
		return ok
	}
	if callee, found := probeMember(c, container, "__iter__"); found {
		_, ok := c.applyCall0(callee)
		return ok
	}
	if callee, found := probeMember(c, container, "__getitem__"); found {
		_, ok := c.applyCall1(callee, c.Instance(c.reg.Builtins.Int))
		return ok
	}
	return false
}

// BoolOpType types `left and right` / `left or right`. The left
// operand survives in the result narrowed to the branch on which it
// is returned unevaluated.
func (c *Ctx) BoolOpType(op ast.BoolOp, left, right Type, span ast.Range) Type {
	if op == ast.BoolAnd {
		return c.andType(left, right, span)
	}
	switch c.EnsureBoolUsable(left, span) {
	case TruthinessAlwaysTrue:
		return left
	case TruthinessAlwaysFalse:
		return right
	default:
		return c.NewUnion(c.NarrowedTruthy(left), right)
	}
}

func (c *Ctx) andType(left, right Type, span ast.Range) Type {
	switch c.EnsureBoolUsable(left, span) {
	case TruthinessAlwaysFalse:
		return left
	case TruthinessAlwaysTrue:
		return right
	default:
		return c.NewUnion(c.NarrowedFalsy(left), right)
	}
}

// NotType types `not x` from truthiness alone.
func (c *Ctx) NotType(operand Type, span ast.Range) Type {
	switch c.EnsureBoolUsable(operand, span) {
	case TruthinessAlwaysTrue:
		return c.BoolLiteral(false)
	case TruthinessAlwaysFalse:
		return c.BoolLiteral(true)
	default:
		return c.Instance(c.reg.Builtins.Bool)
	}
}
