package types

// Materialization replaces dynamic types with concrete bounds. The top
// materialization is the most permissive fully-static supertype shape,
// the bottom the most restrictive subtype shape: Unknown in a covariant
// position becomes object under top and Never under bottom, and the
// polarity flips through contravariant positions. Invariant positions
// cannot be simplified either way and keep their dynamic type.

// TopMaterialization materializes dynamic types upward.
func (c *Ctx) TopMaterialization(t Type) Type {
	return c.materialize(t, Covariant)
}

// BottomMaterialization materializes dynamic types downward.
func (c *Ctx) BottomMaterialization(t Type) Type {
	return c.materialize(t, Contravariant)
}

func (c *Ctx) materialize(t Type, v Variance) Type {
	if !c.guardDepth() {
		defer c.unguardDepth()
		return t
	}
	defer c.unguardDepth()

	switch t := t.(type) {
	case dynamicType:
		switch v {
		case Covariant:
			return c.Instance(c.reg.Builtins.Object)
		case Contravariant:
			return Never
		default:
			return t
		}
	case subclassOfType:
		if !t.dynamic {
			return t
		}
		switch v {
		case Covariant:
			return c.SubclassOf(c.reg.Builtins.Object)
		case Contravariant:
			return Never
		default:
			return t
		}
	case unionType:
		members := make([]Type, 0, len(t.members))
		for _, m := range t.members {
			members = append(members, c.materialize(m, v))
		}
		return c.NewUnion(members...)
	case intersectionType:
		pos := make([]Type, 0, len(t.positive))
		for _, p := range t.positive {
			pos = append(pos, c.materialize(p, v))
		}
		// a negated member is a contravariant position
		neg := make([]Type, 0, len(t.negative))
		for _, n := range t.negative {
			neg = append(neg, c.materialize(n, v.Flip()))
		}
		return c.NewIntersectionWithNegations(pos, neg)
	case tupleType:
		elems := make([]Type, 0, len(t.elems))
		for _, e := range t.elems {
			elems = append(elems, c.materialize(e, v))
		}
		return c.NewTuple(elems...)
	case variadicTupleType:
		return c.NewVariadicTuple(c.materialize(t.elem, v))
	case instanceType:
		if len(t.args) == 0 {
			return t
		}
		args := make([]Type, len(t.args))
		for i, arg := range t.args {
			args[i] = c.materialize(arg, composeVariance(v, paramVariance(t.class, i)))
		}
		return c.Instance(t.class, args...)
	case callableType:
		mapped := t
		if !t.gradualParams {
			params := make([]Param, len(t.params))
			for i, p := range t.params {
				mp := p
				if p.Annot != nil {
					mp.Annot = c.materialize(p.Annot, v.Flip())
				}
				params[i] = mp
			}
			mapped.params = params
		}
		mapped.ret = c.materialize(t.ret, v)
		return c.intern(mapped)
	default:
		return t
	}
}

func paramVariance(class *ClassDef, i int) Variance {
	if class == nil || i >= len(class.TypeParams) {
		return Invariant
	}
	return class.TypeParams[i].Variance
}

func composeVariance(outer, inner Variance) Variance {
	switch inner {
	case Covariant:
		return outer
	case Contravariant:
		return outer.Flip()
	default:
		return Invariant
	}
}
