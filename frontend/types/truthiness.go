package types

import (
	"github.com/krait-dev/krait/frontend/ast"
	"github.com/krait-dev/krait/frontend/diag"
)

// Truthiness is the statically-known outcome of bool(v).
type Truthiness uint8

const (
	TruthinessAmbiguous Truthiness = iota
	TruthinessAlwaysTrue
	TruthinessAlwaysFalse
)

func (t Truthiness) String() string {
	switch t {
	case TruthinessAlwaysTrue:
		return "always true"
	case TruthinessAlwaysFalse:
		return "always false"
	default:
		return "ambiguous"
	}
}

func (t Truthiness) negate() Truthiness {
	switch t {
	case TruthinessAlwaysTrue:
		return TruthinessAlwaysFalse
	case TruthinessAlwaysFalse:
		return TruthinessAlwaysTrue
	default:
		return TruthinessAmbiguous
	}
}

// TruthinessOf analyzes bool(t). Literals answer from their value,
// instances through __bool__ and then __len__. usable reports whether
// the type may appear in boolean context at all: it turns false when a
// __bool__ override returns something that is not a bool.
func (c *Ctx) TruthinessOf(t Type) (tr Truthiness, usable bool) {
	if truthy, known := literalTruthiness(t); known {
		if truthy {
			return TruthinessAlwaysTrue, true
		}
		return TruthinessAlwaysFalse, true
	}

	switch t := t.(type) {
	case dynamicType, neverType, variadicTupleType:
		return TruthinessAmbiguous, true
	case alwaysTruthyType:
		return TruthinessAlwaysTrue, true
	case alwaysFalsyType:
		return TruthinessAlwaysFalse, true
	case enumLiteral:
		return c.instanceTruthiness(instanceType{class: t.class})
	case unionType:
		return c.unionTruthiness(t)
	case intersectionType:
		return c.intersectionTruthiness(t)
	case instanceType:
		return c.instanceTruthiness(t)
	case callableType, subclassOfType:
		// functions and class objects are always truthy
		return TruthinessAlwaysTrue, true
	case typeVarType:
		return c.TruthinessOf(t.def.BoundOrObject(c))
	}
	return TruthinessAmbiguous, true
}

func (c *Ctx) unionTruthiness(u unionType) (Truthiness, bool) {
	combined := Truthiness(0)
	first := true
	usable := true
	for _, m := range u.members {
		tr, ok := c.TruthinessOf(m)
		usable = usable && ok
		if first {
			combined = tr
			first = false
			continue
		}
		if tr != combined {
			combined = TruthinessAmbiguous
		}
	}
	return combined, usable
}

func (c *Ctx) intersectionTruthiness(in intersectionType) (Truthiness, bool) {
	usable := true
	result := TruthinessAmbiguous
	for _, p := range in.positive {
		tr, ok := c.TruthinessOf(p)
		usable = usable && ok
		if tr != TruthinessAmbiguous {
			result = tr
		}
	}
	for _, n := range in.negative {
		switch n.(type) {
		case alwaysTruthyType:
			result = TruthinessAlwaysFalse
		case alwaysFalsyType:
			result = TruthinessAlwaysTrue
		}
	}
	return result, usable
}

func (c *Ctx) instanceTruthiness(inst instanceType) (Truthiness, bool) {
	if boolRet, ok := c.callDunder0(inst, "__bool__"); ok {
		return c.truthinessFromBoolReturn(boolRet)
	}
	if lenRet, ok := c.callDunder0(inst, "__len__"); ok {
		return c.truthinessFromLenReturn(lenRet)
	}
	// without either dunder an object is truthy, but only a final
	// class rules out an overriding subclass
	if inst.class.IsFinal {
		return TruthinessAlwaysTrue, true
	}
	return TruthinessAmbiguous, true
}

func (c *Ctx) truthinessFromBoolReturn(ret Type) (Truthiness, bool) {
	switch ret := ret.(type) {
	case boolLiteral:
		if ret.value {
			return TruthinessAlwaysTrue, true
		}
		return TruthinessAlwaysFalse, true
	case dynamicType:
		return TruthinessAmbiguous, true
	}
	if c.IsAssignableTo(ret, c.Instance(c.reg.Builtins.Bool)) {
		return TruthinessAmbiguous, true
	}
	return TruthinessAmbiguous, false
}

func (c *Ctx) truthinessFromLenReturn(ret Type) (Truthiness, bool) {
	switch ret := ret.(type) {
	case intLiteral:
		if ret.value != 0 {
			return TruthinessAlwaysTrue, true
		}
		return TruthinessAlwaysFalse, true
	case dynamicType:
		return TruthinessAmbiguous, true
	}
	if c.IsAssignableTo(ret, c.Instance(c.reg.Builtins.Int)) {
		return TruthinessAmbiguous, true
	}
	return TruthinessAmbiguous, false
}

// EnsureBoolUsable reports when t cannot be used in boolean context.
func (c *Ctx) EnsureBoolUsable(t Type, span ast.Range) Truthiness {
	tr, usable := c.TruthinessOf(t)
	if !usable {
		c.addError(diag.New(diag.NewUnsupportedBoolConversion{
			Positioner: span,
			Type:       t.String(),
		}))
	}
	return tr
}

// NarrowedTruthy is the type of t's values on a branch where bool(v)
// held: a known-falsy type narrows to Never, everything else excludes
// the always-falsy region. Unions narrow member-wise, so bool narrows
// to Literal[True].
func (c *Ctx) NarrowedTruthy(t Type) Type {
	return c.narrowTruthiness(t, true)
}

// NarrowedFalsy is the complementary narrowing, for branches where
// bool(v) failed.
func (c *Ctx) NarrowedFalsy(t Type) Type {
	return c.narrowTruthiness(t, false)
}

func (c *Ctx) narrowTruthiness(t Type, keepTruthy bool) Type {
	tr, _ := c.TruthinessOf(t)
	switch {
	case tr == TruthinessAlwaysTrue && keepTruthy,
		tr == TruthinessAlwaysFalse && !keepTruthy:
		return t
	case tr == TruthinessAlwaysTrue, tr == TruthinessAlwaysFalse:
		return Never
	}
	if u, ok := t.(unionType); ok {
		parts := make([]Type, 0, len(u.members))
		for _, m := range u.members {
			parts = append(parts, c.narrowTruthiness(m, keepTruthy))
		}
		return c.NewUnion(parts...)
	}
	if expanded, ok := expandType(c, t); ok {
		return c.narrowTruthiness(expanded, keepTruthy)
	}
	if keepTruthy {
		return c.NewIntersectionWithNegations([]Type{t}, []Type{AlwaysFalsy})
	}
	return c.NewIntersectionWithNegations([]Type{t}, []Type{AlwaysTruthy})
}
