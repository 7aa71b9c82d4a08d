package types

// Public entry points of the relation engine. The boolean forms answer
// ground queries and memoize per registry; the constraint forms return
// the full algebra for generic inference to compose.

type relCacheKey struct {
	a, b uint64
	rel  uint8
}

const (
	cacheSubtype uint8 = iota
	cacheAssignable
	cacheDisjoint
)

// SubtypeConstraints answers whether a is a subtype of b, as a
// constraint set over the type variables involved.
func (c *Ctx) SubtypeConstraints(a, b Type) ConstraintSet {
	return newRelChecker(c, relSubtype).check(a, b)
}

// AssignabilityConstraints answers whether a is assignable to b: the
// gradual relation, where a dynamic type stands in for any type on
// either side.
func (c *Ctx) AssignabilityConstraints(a, b Type) ConstraintSet {
	return newRelChecker(c, relAssignable).check(a, b)
}

// IsSubtypeOf is the ground form of SubtypeConstraints.
func (c *Ctx) IsSubtypeOf(a, b Type) bool {
	return c.groundQuery(a, b, cacheSubtype, func() bool {
		return c.SubtypeConstraints(a, b).IsAlwaysSatisfied()
	})
}

// IsAssignableTo is the ground form of AssignabilityConstraints.
func (c *Ctx) IsAssignableTo(a, b Type) bool {
	return c.groundQuery(a, b, cacheAssignable, func() bool {
		return c.AssignabilityConstraints(a, b).IsAlwaysSatisfied()
	})
}

// IsEquivalentTo reports mutual subtyping.
func (c *Ctx) IsEquivalentTo(a, b Type) bool {
	if a == nil || b == nil {
		return false
	}
	return Equal(a, b) || (c.IsSubtypeOf(a, b) && c.IsSubtypeOf(b, a))
}

func (c *Ctx) groundQuery(a, b Type, rel uint8, compute func() bool) bool {
	if a == nil || b == nil {
		c.addFailure("nil type in relation query")
		return false
	}
	if hasTypeVars(a) || hasTypeVars(b) {
		return compute()
	}
	key := relCacheKey{a: a.Hash(), b: b.Hash(), rel: rel}
	c.reg.cacheMu.RLock()
	cached, ok := c.reg.relCache[key]
	c.reg.cacheMu.RUnlock()
	if ok {
		return cached
	}
	result := compute()
	c.reg.cacheMu.Lock()
	if prior, raced := c.reg.relCache[key]; raced {
		result = prior
	} else {
		c.reg.relCache[key] = result
	}
	c.reg.cacheMu.Unlock()
	return result
}

func hasTypeVars(t Type) bool {
	if _, ok := t.(typeVarType); ok {
		return true
	}
	for child := range t.children() {
		if hasTypeVars(child) {
			return true
		}
	}
	return false
}

// IsDisjointFrom reports that a and b provably share no value. The
// check is conservative: protocols, unrelated non-final classes and
// callables are never considered disjoint, since a hidden common
// subtype may exist.
func (c *Ctx) IsDisjointFrom(a, b Type) bool {
	if a == nil || b == nil {
		return false
	}
	return c.groundQuery(a, b, cacheDisjoint, func() bool {
		return c.disjoint(a, b, 0)
	})
}

func (c *Ctx) disjoint(a, b Type, depth int) bool {
	if depth > 64 {
		return false
	}
	if IsNever(a) || IsNever(b) {
		return true
	}
	if IsDynamic(a) || IsDynamic(b) {
		return false
	}
	if Equal(a, b) {
		return false
	}

	if u, ok := a.(unionType); ok {
		for _, m := range u.members {
			if !c.disjoint(m, b, depth+1) {
				return false
			}
		}
		return true
	}
	if u, ok := b.(unionType); ok {
		for _, m := range u.members {
			if !c.disjoint(a, m, depth+1) {
				return false
			}
		}
		return true
	}

	if in, ok := a.(intersectionType); ok {
		return c.intersectionDisjoint(in, b, depth)
	}
	if in, ok := b.(intersectionType); ok {
		return c.intersectionDisjoint(in, a, depth)
	}

	// the two truthiness markers split every type between them
	if _, ok := a.(alwaysTruthyType); ok {
		if _, other := b.(alwaysFalsyType); other {
			return true
		}
	}
	if _, ok := a.(alwaysFalsyType); ok {
		if _, other := b.(alwaysTruthyType); other {
			return true
		}
	}
	if simplyDisjoint(c, a, b) {
		return true
	}

	if at, ok := a.(tupleType); ok {
		if bt, ok := b.(tupleType); ok {
			if len(at.elems) != len(bt.elems) {
				return true
			}
			for i := range at.elems {
				if c.disjoint(at.elems[i], bt.elems[i], depth+1) {
					return true
				}
			}
			return false
		}
	}

	if at, ok := a.(subclassOfType); ok {
		if bt, ok := b.(subclassOfType); ok {
			if at.dynamic || bt.dynamic {
				return false
			}
			return c.classesDisjoint(at.class, bt.class)
		}
	}

	aClass, _ := nominalFrameOf(c, a)
	bClass, _ := nominalFrameOf(c, b)
	if aClass == nil || bClass == nil {
		return false
	}
	if aClass.IsProtocol || bClass.IsProtocol {
		return false
	}
	// a literal against its own class was already ruled compatible by
	// simplyDisjoint returning false plus the nominal walk here
	if _, found := aClass.mroEntryFor(c, bClass); found {
		return false
	}
	if _, found := bClass.mroEntryFor(c, aClass); found {
		return false
	}
	if aClass.HasDynamicBase(c) || bClass.HasDynamicBase(c) {
		return false
	}
	return aClass.IsFinal || bClass.IsFinal
}

func (c *Ctx) intersectionDisjoint(in intersectionType, other Type, depth int) bool {
	for _, p := range in.positive {
		if c.disjoint(p, other, depth+1) {
			return true
		}
	}
	for _, n := range in.negative {
		// other ⊆ n means other lies entirely in the excluded region
		if c.IsSubtypeOf(other, n) {
			return true
		}
	}
	return false
}

func (c *Ctx) classesDisjoint(a, b *ClassDef) bool {
	if a == b {
		return false
	}
	if _, found := a.mroEntryFor(c, b); found {
		return false
	}
	if _, found := b.mroEntryFor(c, a); found {
		return false
	}
	if a.HasDynamicBase(c) || b.HasDynamicBase(c) {
		return false
	}
	return a.IsFinal || b.IsFinal
}
