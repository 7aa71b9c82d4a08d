package types

import (
	"github.com/hashicorp/go-set/v3"
)

// Constructors for composite types live on Ctx so every built type goes
// through the registry's interner and the simplification rules run
// exactly once, at construction. Simplification here is shallow: it
// absorbs "simple" members (literals, instances, None, tuples, class
// objects) through cheap nominal checks and leaves intersections, type
// variables and callables untouched, so narrowed shapes like
// `X & ~AlwaysTruthy | X` survive construction. The full subtype
// engine never runs inside a constructor.

// NewUnion builds the union of parts: nested unions flatten, Never
// drops out, duplicates collapse by structural equality, the two bool
// literals fuse into bool, and any member simply subsumed by another
// member is absorbed. Zero members construct Never, one member
// constructs itself. Member order is first appearance, which permutes
// freely without changing identity since the union hash is commutative.
func (c *Ctx) NewUnion(parts ...Type) Type {
	flat := make([]Type, 0, len(parts))
	for _, p := range parts {
		flat = appendUnionMember(flat, p)
	}

	// Literal[True] | Literal[False] fuses before absorption so an int
	// member can absorb the resulting bool.
	flat = fuseBoolPair(c, flat)

	seen := set.NewHashSet[Type, uint64](len(flat))
	members := make([]Type, 0, len(flat))
	for _, p := range flat {
		if seen.Insert(p) {
			members = append(members, p)
		}
	}

	kept := make([]Type, 0, len(members))
	for i, m := range members {
		absorbed := false
		for j, other := range members {
			if i == j {
				continue
			}
			if simplySubsumes(c, m, other) {
				absorbed = true
				break
			}
		}
		if !absorbed {
			kept = append(kept, m)
		}
	}

	switch len(kept) {
	case 0:
		return Never
	case 1:
		return kept[0]
	}
	return c.intern(unionType{members: kept})
}

func appendUnionMember(acc []Type, t Type) []Type {
	switch t := t.(type) {
	case nil:
		return acc
	case neverType:
		return acc
	case unionType:
		for _, m := range t.members {
			acc = appendUnionMember(acc, m)
		}
		return acc
	default:
		return append(acc, t)
	}
}

func fuseBoolPair(c *Ctx, members []Type) []Type {
	trueAt, falseAt := -1, -1
	for i, m := range members {
		if b, ok := m.(boolLiteral); ok {
			if b.value {
				trueAt = i
			} else {
				falseAt = i
			}
		}
	}
	if trueAt < 0 || falseAt < 0 {
		return members
	}
	first, second := trueAt, falseAt
	if second < first {
		first, second = second, first
	}
	members[first] = c.Instance(c.reg.Builtins.Bool)
	return append(members[:second], members[second+1:]...)
}

// NewIntersection builds a conjunction of positive members only.
func (c *Ctx) NewIntersection(parts ...Type) Type {
	return c.NewIntersectionWithNegations(parts, nil)
}

// Negate builds ~t: the type of values that are not instances of t.
// Negating a negation restores the inner type, Never and object are
// each other's complements, and dynamic types are their own negation.
func (c *Ctx) Negate(t Type) Type {
	switch t := t.(type) {
	case neverType:
		return c.Instance(c.reg.Builtins.Object)
	case dynamicType:
		return t
	case intersectionType:
		if len(t.positive) == 0 && len(t.negative) == 1 {
			return t.negative[0]
		}
	case instanceType:
		if t.class == c.reg.Builtins.Object && len(t.args) == 0 {
			return Never
		}
	}
	return c.NewIntersectionWithNegations(nil, []Type{t})
}

// NewIntersectionWithNegations builds pos[0] & ... & ~neg[0] & ...:
// nested positive intersections flatten into both sides, object
// vanishes from the positive side, a member present on both sides or
// two provably disjoint positive members collapse the conjunction to
// Never, negative members disjoint from a positive member drop as
// redundant, and a positive member subsumed by another keeps only the
// more specific of the two. An empty conjunction is object.
func (c *Ctx) NewIntersectionWithNegations(pos, neg []Type) Type {
	var posFlat, negFlat []Type
	for _, p := range pos {
		posFlat, negFlat = appendIntersectionMember(posFlat, negFlat, p)
	}
	for _, n := range neg {
		if n == nil {
			continue
		}
		if IsNever(n) {
			continue
		}
		negFlat = append(negFlat, n)
	}

	objectInst := c.Instance(c.reg.Builtins.Object)

	seenPos := set.NewHashSet[Type, uint64](len(posFlat))
	var posMembers []Type
	for _, p := range posFlat {
		if IsNever(p) {
			return Never
		}
		if Equal(p, objectInst) {
			continue
		}
		if seenPos.Insert(p) {
			posMembers = append(posMembers, p)
		}
	}

	seenNeg := set.NewHashSet[Type, uint64](len(negFlat))
	var negMembers []Type
	for _, n := range negFlat {
		if Equal(n, objectInst) {
			// nothing is ~object
			return Never
		}
		if seenPos.Contains(n) {
			return Never
		}
		if seenNeg.Insert(n) {
			negMembers = append(negMembers, n)
		}
	}

	for i, a := range posMembers {
		for _, b := range posMembers[i+1:] {
			if simplyDisjoint(c, a, b) {
				return Never
			}
		}
	}

	keptNeg := make([]Type, 0, len(negMembers))
	for _, n := range negMembers {
		redundant := false
		for _, p := range posMembers {
			if simplyDisjoint(c, p, n) {
				redundant = true
				break
			}
		}
		if !redundant {
			keptNeg = append(keptNeg, n)
		}
	}
	negMembers = keptNeg

	keptPos := make([]Type, 0, len(posMembers))
	for i, a := range posMembers {
		subsumesOther := false
		for j, b := range posMembers {
			if i == j {
				continue
			}
			// keep the more specific member: drop a when b refines it
			if simplySubsumes(c, b, a) {
				subsumesOther = true
				break
			}
		}
		if !subsumesOther {
			keptPos = append(keptPos, a)
		}
	}
	posMembers = keptPos

	switch {
	case len(posMembers) == 0 && len(negMembers) == 0:
		return objectInst
	case len(posMembers) == 1 && len(negMembers) == 0:
		return posMembers[0]
	}
	return c.intern(intersectionType{positive: posMembers, negative: negMembers})
}

func appendIntersectionMember(pos, neg []Type, t Type) (accPos, accNeg []Type) {
	switch t := t.(type) {
	case nil:
		return pos, neg
	case intersectionType:
		for _, p := range t.positive {
			pos, neg = appendIntersectionMember(pos, neg, p)
		}
		neg = append(neg, t.negative...)
		return pos, neg
	default:
		return append(pos, t), neg
	}
}

// NewTuple builds a fixed-length heterogeneous tuple. A Never element
// makes the whole product uninhabited.
func (c *Ctx) NewTuple(elems ...Type) Type {
	for _, e := range elems {
		if IsNever(e) {
			return Never
		}
	}
	return c.intern(tupleType{elems: append([]Type(nil), elems...)})
}

// NewVariadicTuple builds tuple[elem, ...]. With a Never element only
// the empty tuple remains inhabited, so the type collapses to tuple[()].
func (c *Ctx) NewVariadicTuple(elem Type) Type {
	if IsNever(elem) {
		return c.NewTuple()
	}
	return c.intern(variadicTupleType{elem: elem})
}

// Instance builds the instance type of class, optionally specialized.
// A nil class records a failure and recovers as Unknown.
func (c *Ctx) Instance(class *ClassDef, args ...Type) Type {
	if class == nil {
		c.addFailure("instance type of nil class")
		return Unknown
	}
	if len(args) == 0 {
		return c.intern(instanceType{class: class})
	}
	return c.intern(instanceType{class: class, args: append([]Type(nil), args...)})
}

// SubclassOf builds type[C], the type of class objects deriving from C.
func (c *Ctx) SubclassOf(class *ClassDef) Type {
	if class == nil {
		c.addFailure("subclass-of type of nil class")
		return Unknown
	}
	return c.intern(subclassOfType{class: class})
}

// SubclassOfAny builds type[Any], the class-object type with a dynamic
// bound.
func (c *Ctx) SubclassOfAny() Type {
	return c.intern(subclassOfType{dynamic: true})
}

func (c *Ctx) IntLiteral(v int64) Type {
	return c.intern(intLiteral{value: v})
}

func (c *Ctx) BoolLiteral(v bool) Type {
	return c.intern(boolLiteral{value: v})
}

func (c *Ctx) StringLiteral(s string) Type {
	return c.intern(stringLiteral{value: s})
}

func (c *Ctx) BytesLiteral(b string) Type {
	return c.intern(bytesLiteral{value: b})
}

func (c *Ctx) EnumLiteral(class *ClassDef, member string) Type {
	if class == nil {
		c.addFailure("enum literal of nil class")
		return Unknown
	}
	return c.intern(enumLiteral{class: class, member: member})
}

// NewCallable builds a signature type from an ordered parameter list
// and a return type.
func (c *Ctx) NewCallable(params []Param, ret Type) Type {
	if ret == nil {
		ret = Unknown
	}
	return c.intern(callableType{params: append([]Param(nil), params...), ret: ret})
}

// NewGradualCallable builds `(...) -> ret`, the callable that accepts
// any argument list.
func (c *Ctx) NewGradualCallable(ret Type) Type {
	if ret == nil {
		ret = Unknown
	}
	return c.intern(callableType{gradualParams: true, ret: ret})
}

// TypeVar wraps a type variable declaration as a type.
func (c *Ctx) TypeVar(def *TypeVarDef) Type {
	if def == nil {
		c.addFailure("type of nil type variable")
		return Unknown
	}
	return c.intern(typeVarType{def: def})
}

// classInherits walks the written bases transitively. It never touches
// the memoized linearization, so it is safe during class set-up and
// inside constructors; cycles terminate through the visited set.
func classInherits(class, ancestor *ClassDef) bool {
	if class == nil || ancestor == nil {
		return false
	}
	visited := make(map[*ClassDef]struct{}, 8)
	var walk func(c *ClassDef) bool
	walk = func(c *ClassDef) bool {
		if c == ancestor {
			return true
		}
		if _, ok := visited[c]; ok {
			return false
		}
		visited[c] = struct{}{}
		for _, base := range c.Bases {
			if inst, ok := base.(instanceType); ok && walk(inst.class) {
				return true
			}
		}
		return false
	}
	return walk(class)
}

// nominalClassOf maps a simple type to the class its values instantiate.
func nominalClassOf(c *Ctx, t Type) (*ClassDef, bool) {
	b := c.reg.Builtins
	switch t := t.(type) {
	case boolLiteral:
		return b.Bool, true
	case intLiteral:
		return b.Int, true
	case stringLiteral:
		return b.Str, true
	case literalStringType:
		return b.Str, true
	case bytesLiteral:
		return b.Bytes, true
	case enumLiteral:
		return t.class, true
	case noneType:
		return b.NoneType, true
	case instanceType:
		return t.class, true
	}
	return nil, false
}

// simplySubsumes reports a ≤ b for the member shapes union and
// intersection construction simplifies over. Dynamic types, type
// variables, callables, intersections and protocols all answer false
// and are left to the full subtype engine.
func simplySubsumes(c *Ctx, a, b Type) bool {
	if Equal(a, b) {
		return true
	}
	switch b := b.(type) {
	case instanceType:
		if len(b.args) > 0 {
			// specialization is invariant; only identity subsumes
			return false
		}
		if b.class.IsProtocol {
			return false
		}
		if aClass, ok := nominalClassOf(c, a); ok {
			return classInherits(aClass, b.class)
		}
		switch a := a.(type) {
		case tupleType, variadicTupleType:
			return b.class == c.reg.Builtins.Tuple || b.class == c.reg.Builtins.Object
		case subclassOfType:
			return !a.dynamic && (b.class == c.reg.Builtins.Type || b.class == c.reg.Builtins.Object)
		case callableType:
			return b.class == c.reg.Builtins.Object
		}
		return false
	case literalStringType:
		_, isStrLit := a.(stringLiteral)
		return isStrLit
	case tupleType:
		at, ok := a.(tupleType)
		if !ok || len(at.elems) != len(b.elems) {
			return false
		}
		for i := range at.elems {
			if !simplySubsumes(c, at.elems[i], b.elems[i]) {
				return false
			}
		}
		return true
	case variadicTupleType:
		switch a := a.(type) {
		case tupleType:
			for _, e := range a.elems {
				if !simplySubsumes(c, e, b.elem) {
					return false
				}
			}
			return true
		case variadicTupleType:
			return simplySubsumes(c, a.elem, b.elem)
		}
		return false
	case subclassOfType:
		at, ok := a.(subclassOfType)
		if !ok || at.dynamic || b.dynamic {
			return false
		}
		return classInherits(at.class, b.class)
	}
	return false
}

// literalTruthiness reports whether t is a literal with a statically
// known truth value.
func literalTruthiness(t Type) (truthy, known bool) {
	switch t := t.(type) {
	case boolLiteral:
		return t.value, true
	case intLiteral:
		return t.value != 0, true
	case stringLiteral:
		return t.value != "", true
	case bytesLiteral:
		return t.value != "", true
	case noneType:
		return false, true
	case tupleType:
		return len(t.elems) > 0, true
	}
	return false, false
}

// simplyDisjoint reports that a and b provably share no values, again
// restricted to cheap shapes: distinct literals, literals of unrelated
// classes, None against anything that is not None, and the two
// truthiness types against literals of known truth value.
func simplyDisjoint(c *Ctx, a, b Type) bool {
	if Equal(a, b) {
		return false
	}
	return disjointHalf(c, a, b) || disjointHalf(c, b, a)
}

func disjointHalf(c *Ctx, a, b Type) bool {
	switch a.(type) {
	case alwaysTruthyType:
		truthy, known := literalTruthiness(b)
		return known && !truthy
	case alwaysFalsyType:
		truthy, known := literalTruthiness(b)
		return known && truthy
	case noneType:
		bClass, ok := nominalClassOf(c, b)
		return ok && bClass != c.reg.Builtins.NoneType &&
			bClass != c.reg.Builtins.Object && !bClass.IsProtocol
	case boolLiteral, intLiteral, stringLiteral, bytesLiteral, enumLiteral:
		// two distinct literals never share a value
		return IsLiteral(b) && !Equal(a, b)
	}
	return false
}
