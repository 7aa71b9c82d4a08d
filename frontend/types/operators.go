package types

import (
	"github.com/krait-dev/krait/frontend/ast"
	"github.com/krait-dev/krait/frontend/diag"
)

// Operator resolution is dunder dispatch, never ad hoc rules: the
// builtins work because the declaration library pre-declares their
// dunders. A binary operation tries the left operand's forward dunder
// and the right operand's reflected dunder; the reflected side goes
// first when the right type is a strict subclass of the left that
// overrides the reflected method.

// BinaryOpType resolves `left op right`. Union operands distribute:
// every combination of alternatives must support the operation.
func (c *Ctx) BinaryOpType(op ast.BinaryOp, left, right Type, span ast.Range) Type {
	var results []Type
	for _, l := range unionParts(left) {
		for _, r := range unionParts(right) {
			t, ok := c.binaryOpQuiet(op, l, r)
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

// UnaryOpType resolves `op operand` for -, +, ~. `not` is handled by
// truthiness analysis instead, since it has no dunder.
func (c *Ctx) UnaryOpType(op ast.UnaryOp, operand Type, span ast.Range) Type {
	dunder := op.Dunder()
	if dunder == "" {
		c.addFailure("unary operator %s has no dunder", op)
		return Unknown
	}
	var results []Type
	for _, part := range unionParts(operand) {
		if IsDynamic(part) {
			results = append(results, Unknown)
			continue
		}
		t, ok := c.callDunder0(part, dunder)
		if !ok {
			c.addError(diag.New(diag.NewUnsupportedOperator{
				Positioner: span,
				Op:         op.String(),
				Left:       operand.String(),
				Component:  -1,
			}))
			return Unknown
		}
		results = append(results, t)
	}
	return c.NewUnion(results...)
}

func unionParts(t Type) []Type {
	if u, ok := t.(unionType); ok {
		return u.members
	}
	return []Type{t}
}

// binaryOpQuiet resolves one alternative pair without reporting.
func (c *Ctx) binaryOpQuiet(op ast.BinaryOp, left, right Type) (Type, bool) {
	if IsDynamic(left) || IsDynamic(right) {
		return Unknown, true
	}
	forward, reflected := op.Dunder(), op.ReflectedDunder()

	type attempt struct {
		recv, arg Type
		name      string
	}
	attempts := []attempt{
		{left, right, forward},
		{right, left, reflected},
	}
	if c.reflectedTakesPrecedence(left, right, reflected) {
		attempts[0], attempts[1] = attempts[1], attempts[0]
	}

	for _, a := range attempts {
		if t, ok := c.callDunder1(a.recv, a.name, a.arg); ok {
			return t, true
		}
	}
	return nil, false
}

// reflectedTakesPrecedence: the right operand's class is a strict
// subclass of the left's and overrides the reflected dunder somewhere
// before the left class in its MRO.
func (c *Ctx) reflectedTakesPrecedence(left, right Type, reflected string) bool {
	if reflected == "" {
		return false
	}
	leftClass, _ := nominalFrameOf(c, left)
	rightClass, _ := nominalFrameOf(c, right)
	if leftClass == nil || rightClass == nil || leftClass == rightClass {
		return false
	}
	if _, sub := rightClass.mroEntryFor(c, leftClass); !sub {
		return false
	}
	for _, entry := range rightClass.Mro(c) {
		if entry.isDynamic() {
			return false
		}
		if entry.class == leftClass {
			return false
		}
		if _, ok := entry.class.OwnMember(reflected); ok {
			return true
		}
	}
	return false
}

// callDunder1 probes name on recv and types a single-argument call.
// The probe is silent: a missing or incompatible dunder is simply
// unavailable, mirroring NotImplemented at runtime.
func (c *Ctx) callDunder1(recv Type, name string, arg Type) (Type, bool) {
	bound, ok := probeMember(c, recv, name)
	if !ok {
		return nil, false
	}
	return c.applyCall1(bound, arg)
}

func (c *Ctx) applyCall1(callee Type, arg Type) (Type, bool) {
	if IsDynamic(callee) {
		return Unknown, true
	}
	ct, ok := callee.(callableType)
	if !ok {
		return nil, false
	}
	if ct.gradualParams {
		return ct.ret, true
	}
	slot := -1
	for i, p := range ct.params {
		switch p.Kind {
		case ast.ParamPositionalOnly, ast.ParamPositionalOrKeyword, ast.ParamVarPositional:
			slot = i
		}
		if slot >= 0 {
			break
		}
	}
	if slot < 0 {
		return nil, false
	}
	p := ct.params[slot]
	if p.Annot != nil && !c.IsAssignableTo(arg, p.Annot) {
		return nil, false
	}
	// any further parameters must be omittable
	for _, rest := range ct.params[slot+1:] {
		if rest.Kind == ast.ParamVarPositional || rest.Kind == ast.ParamVarKeyword {
			continue
		}
		if !rest.HasDefault {
			return nil, false
		}
	}
	return ct.ret, true
}

// callDunder0 probes name on recv and types a zero-argument call.
func (c *Ctx) callDunder0(recv Type, name string) (Type, bool) {
	bound, ok := probeMember(c, recv, name)
	if !ok {
		return nil, false
	}
	return c.applyCall0(bound)
}

func (c *Ctx) applyCall0(callee Type) (Type, bool) {
	if IsDynamic(callee) {
		return Unknown, true
	}
	ct, ok := callee.(callableType)
	if !ok {
		return nil, false
	}
	if ct.gradualParams {
		return ct.ret, true
	}
	for _, p := range ct.params {
		if p.Kind == ast.ParamVarPositional || p.Kind == ast.ParamVarKeyword {
			continue
		}
		if !p.HasDefault {
			return nil, false
		}
	}
	return ct.ret, true
}
